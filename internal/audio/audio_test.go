package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Constants ---

func TestConstants(t *testing.T) {
	// 48kHz * 20ms = 960 samples per channel
	if got := SampleRate * int(FrameDuration/time.Millisecond) / 1000; got != FrameSize {
		t.Errorf("FrameSize mismatch: want %d, got %d", got, FrameSize)
	}
	if FrameSamples != FrameSize*Channels {
		t.Errorf("FrameSamples = %d, want %d", FrameSamples, FrameSize*Channels)
	}
	if FrameBytes != FrameSamples*2 {
		t.Errorf("FrameBytes = %d, want %d", FrameBytes, FrameSamples*2)
	}
}

// --- DecodedAudio ---

func TestDuration(t *testing.T) {
	// One second of interleaved stereo at 48kHz
	d := &DecodedAudio{Samples: make([]int16, SampleRate*Channels)}
	if got := d.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
}

func TestDurationHalfFrame(t *testing.T) {
	d := &DecodedAudio{Samples: make([]int16, FrameSamples/2)}
	if got := d.Duration(); got != FrameDuration/2 {
		t.Errorf("Duration = %v, want %v", got, FrameDuration/2)
	}
	if got := d.FrameCount(); got != 1 {
		t.Errorf("FrameCount = %d, want 1 (partial frame counts)", got)
	}
}

func TestFrameCount(t *testing.T) {
	d := &DecodedAudio{Samples: make([]int16, FrameSamples*3)}
	if got := d.FrameCount(); got != 3 {
		t.Errorf("FrameCount = %d, want 3", got)
	}
}

// --- Decode ---

func TestDecodeEmptyInput(t *testing.T) {
	_, err := Decode(context.Background(), nil)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Decode(nil) error = %v, want ErrDecode", err)
	}
}

// --- SamplesToBytes ---

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	buf := SamplesToBytes(samples)
	if len(buf) != len(samples)*2 {
		t.Fatalf("SamplesToBytes length = %d, want %d", len(buf), len(samples)*2)
	}

	// 256 = 0x0100 -> little-endian bytes [0x00, 0x01]
	idx := 5 * 2
	if buf[idx] != 0x00 || buf[idx+1] != 0x01 {
		t.Errorf("Sample 256 encoded as [%02x, %02x], want [00, 01]", buf[idx], buf[idx+1])
	}
}

// --- Graph ---

func shortAudio(frames int) *DecodedAudio {
	return &DecodedAudio{Samples: make([]int16, frames*FrameSamples)}
}

func TestGraphPlaysOut(t *testing.T) {
	g := NewGraph(shortAudio(3))
	g.SetTick(time.Millisecond)

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-g.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Graph never signalled end of playback")
	}

	// All frames should be waiting on the capture sink, in order.
	count := 0
	for range g.Capture() {
		count++
	}
	if count != 3 {
		t.Errorf("Capture delivered %d frames, want 3", count)
	}
}

func TestGraphStartTwice(t *testing.T) {
	g := NewGraph(shortAudio(1))
	g.SetTick(time.Millisecond)

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := g.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
	<-g.Done()
}

func TestGraphCancelDoesNotSignalDone(t *testing.T) {
	g := NewGraph(shortAudio(500))
	g.SetTick(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := g.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	// Sinks close when the run loop exits...
	select {
	case _, ok := <-g.Capture():
		for ok {
			_, ok = <-g.Capture()
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Capture channel never closed after cancel")
	}

	// ...but Done stays open: cancellation is not end-of-playback.
	select {
	case <-g.Done():
		t.Error("Done closed on cancellation")
	default:
	}
}

func TestGraphPadsTrailingFrame(t *testing.T) {
	// 1.5 frames of audio: the second frame must arrive padded to full size.
	g := NewGraph(&DecodedAudio{Samples: make([]int16, FrameSamples+FrameSamples/2)})
	g.SetTick(time.Millisecond)

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-g.Done()

	for frame := range g.Capture() {
		if len(frame) != FrameSamples {
			t.Errorf("Frame length %d, want %d", len(frame), FrameSamples)
		}
	}
}
