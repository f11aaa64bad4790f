package audio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Graph plays one decoded voiceover in real time and routes every 20ms PCM
// frame to two sinks: a monitor channel (live listening) and a capture
// channel (drained by the recorder). Playback starts at most once; Done
// closes exactly once when the final frame has been emitted, which is the
// signal that ends a composition's nominal lifecycle.
type Graph struct {
	dec     *DecodedAudio
	tick    time.Duration
	monitor chan []int16
	capture chan []int16
	done    chan struct{}

	mu       sync.RWMutex
	started  bool
	position time.Duration
}

// NewGraph builds the playback graph for a decoded voiceover.
func NewGraph(dec *DecodedAudio) *Graph {
	return &Graph{
		dec:     dec,
		tick:    FrameDuration,
		monitor: make(chan []int16, 150), // ~3 seconds of buffer at 20ms/frame
		capture: make(chan []int16, 150),
		done:    make(chan struct{}),
	}
}

// SetTick overrides the real-time frame pacing. Must be called before
// Start; tests use it to play short buffers quickly.
func (g *Graph) SetTick(d time.Duration) {
	g.mu.Lock()
	g.tick = d
	g.mu.Unlock()
}

// Monitor returns the channel of frames for live listening. Closed when
// playback ends or the context is cancelled.
func (g *Graph) Monitor() <-chan []int16 { return g.monitor }

// Capture returns the channel of frames for the recorder. Closed when
// playback ends or the context is cancelled.
func (g *Graph) Capture() <-chan []int16 { return g.capture }

// Done closes when the voiceover has played out naturally. It does not
// close on context cancellation.
func (g *Graph) Done() <-chan struct{} { return g.done }

// Position returns how far playback has advanced.
func (g *Graph) Position() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.position
}

// Start begins playback. A second call is a caller error.
func (g *Graph) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return fmt.Errorf("audio graph already started")
	}
	g.started = true
	tick := g.tick
	g.mu.Unlock()

	go g.run(ctx, tick)
	return nil
}

func (g *Graph) run(ctx context.Context, tick time.Duration) {
	defer close(g.monitor)
	defer close(g.capture)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	samples := g.dec.Samples
	for off := 0; off < len(samples); off += FrameSamples {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var frame []int16
		if end := off + FrameSamples; end <= len(samples) {
			frame = samples[off:end]
		} else {
			// Pad the trailing partial frame with silence.
			frame = make([]int16, FrameSamples)
			copy(frame, samples[off:])
		}

		// Neither sink may stall playback: a slow monitor listener or a
		// stopped recorder just misses the frame.
		select {
		case g.monitor <- frame:
		default:
		}
		select {
		case g.capture <- frame:
		default:
		}

		g.mu.Lock()
		g.position = time.Duration(off/FrameSamples+1) * FrameDuration
		g.mu.Unlock()
	}

	close(g.done)
}
