package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrDecode marks a voiceover payload that could not be decoded: truncated
// data, an unsupported codec, or an empty buffer.
var ErrDecode = errors.New("audio decode failed")

// Decode runs FFmpeg to decode encoded audio bytes to raw PCM int16
// samples. Returns interleaved stereo samples at 48kHz.
func Decode(ctx context.Context, data []byte) (*DecodedAudio, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio buffer", ErrDecode)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)

	out, err := cmd.Output()
	if err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) && len(exit.Stderr) > 0 {
			return nil, fmt.Errorf("%w: ffmpeg: %s", ErrDecode, strings.TrimSpace(string(exit.Stderr)))
		}
		return nil, fmt.Errorf("%w: ffmpeg: %v", ErrDecode, err)
	}

	// Ensure even byte count for int16 alignment
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no samples produced", ErrDecode)
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}

	return &DecodedAudio{Samples: samples}, nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
