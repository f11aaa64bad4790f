package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"scenecast/internal/timeline"
)

// --- Hue ---

func TestHueDeterministic(t *testing.T) {
	tests := []struct {
		base, index, want int
	}{
		{0, 0, 0},
		{100, 0, 100},
		{100, 1, 132},
		{100, 10, 60}, // 100 + 320 = 420 mod 360
		{350, 1, 22},
		{0, 45, 0}, // 45*32 = 1440 = 4*360
	}
	for _, tt := range tests {
		if got := Hue(tt.base, tt.index); got != tt.want {
			t.Errorf("Hue(%d,%d) = %d, want %d", tt.base, tt.index, got, tt.want)
		}
		// Identical on repeated computation
		if again := Hue(tt.base, tt.index); again != Hue(tt.base, tt.index) {
			t.Errorf("Hue(%d,%d) not deterministic", tt.base, tt.index)
		}
	}
}

// --- Progress ---

func TestProgressClamp(t *testing.T) {
	tests := []struct {
		elapsed, total, want float64
	}{
		{0, 1000, 0},
		{500, 1000, 0.5},
		{1000, 1000, 1},
		{2000, 1000, 1},
		{-50, 1000, 0},
	}
	for _, tt := range tests {
		if got := Progress(tt.elapsed, tt.total); got != tt.want {
			t.Errorf("Progress(%v,%v) = %v, want %v", tt.elapsed, tt.total, got, tt.want)
		}
	}
}

// --- Wrap ---

func TestWrapRespectsWordBoundaries(t *testing.T) {
	lines := Wrap("the quick brown fox jumps over the lazy dog", 15)
	for _, line := range lines {
		if len(line) > 15 {
			t.Errorf("Line %q exceeds 15 chars", line)
		}
	}
	// No word may be split across lines.
	rejoined := strings.Join(lines, " ")
	if rejoined != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("Wrap mangled words: %q", rejoined)
	}
}

func TestWrapLongWord(t *testing.T) {
	lines := Wrap("a supercalifragilistic b", 10)
	found := false
	for _, line := range lines {
		if line == "supercalifragilistic" {
			found = true
		}
	}
	if !found {
		t.Errorf("Long word should get its own unsplit line, got %v", lines)
	}
}

func TestWrapEmpty(t *testing.T) {
	if lines := Wrap("   ", 10); lines != nil {
		t.Errorf("Wrap of blank text = %v, want nil", lines)
	}
}

// --- Draw ---

func testSegment() timeline.TimedSegment {
	return timeline.TimedSegment{
		Segment: timeline.Segment{ID: "s1", Title: "Opening", Script: "some narration text for the frame"},
		Index:   0,
		StartMs: 0,
		EndMs:   5000,
	}
}

func TestDrawGradientCorner(t *testing.T) {
	s := NewSurface(64, 36)
	Draw(s, 0, 5000, testSegment(), 120)

	// Top-left pixel is the pure start color of the gradient.
	want := hslToRGB(float64(Hue(120, 0)), 0.60, 0.22)
	buf := make([]byte, s.FrameBytes())
	s.Snapshot(buf)
	if buf[0] != want.R || buf[1] != want.G || buf[2] != want.B {
		t.Errorf("Corner pixel = (%d,%d,%d), want (%d,%d,%d)",
			buf[0], buf[1], buf[2], want.R, want.G, want.B)
	}
}

func TestDrawIsReproducible(t *testing.T) {
	a := NewSurface(64, 36)
	b := NewSurface(64, 36)
	Draw(a, 1234, 5000, testSegment(), 200)
	Draw(b, 1234, 5000, testSegment(), 200)

	bufA := make([]byte, a.FrameBytes())
	bufB := make([]byte, b.FrameBytes())
	a.Snapshot(bufA)
	b.Snapshot(bufB)
	for i := range bufA {
		if bufA[i] != bufB[i] {
			t.Fatalf("Frames differ at byte %d: same input must draw identical pixels", i)
		}
	}
}

func TestHSLPrimaries(t *testing.T) {
	red := hslToRGB(0, 1, 0.5)
	if red.R != 255 || red.G != 0 || red.B != 0 {
		t.Errorf("hsl(0,1,0.5) = %v, want pure red", red)
	}
	green := hslToRGB(120, 1, 0.5)
	if green.G != 255 || green.R != 0 {
		t.Errorf("hsl(120,1,0.5) = %v, want pure green", green)
	}
	blue := hslToRGB(240, 1, 0.5)
	if blue.B != 255 || blue.G != 0 {
		t.Errorf("hsl(240,1,0.5) = %v, want pure blue", blue)
	}
}

// --- Loop ---

func TestRunLoopStopsAtTotal(t *testing.T) {
	s := NewSurface(32, 18)
	timed, err := timeline.Map([]timeline.Segment{{ID: "a", Title: "t", Weight: 1}}, 80)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	done := make(chan struct{})
	go func() {
		RunLoop(context.Background(), s, timed, 80*time.Millisecond, 0, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not stop once elapsed reached total")
	}
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	s := NewSurface(32, 18)
	timed, _ := timeline.Map([]timeline.Segment{{ID: "a", Title: "t", Weight: 1}}, 60000)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunLoop(ctx, s, timed, time.Minute, 0, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not stop on context cancel")
	}
}
