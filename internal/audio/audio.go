package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// DecodedAudio is a voiceover decoded to raw PCM. Its measured duration is
// the ground truth for the composition timeline, independent of whatever
// nominal durations the script declared.
type DecodedAudio struct {
	Samples []int16 // interleaved stereo at 48kHz
}

// Duration returns the exact playback length of the decoded buffer.
func (d *DecodedAudio) Duration() time.Duration {
	return time.Duration(len(d.Samples)) * time.Second / (SampleRate * Channels)
}

// FrameCount returns the number of 20ms frames needed to play the buffer,
// counting a trailing partial frame as one.
func (d *DecodedAudio) FrameCount() int {
	return (len(d.Samples) + FrameSamples - 1) / FrameSamples
}
