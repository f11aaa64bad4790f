package compose

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"scenecast/internal/audio"
	"scenecast/internal/capture"
	"scenecast/internal/render"
	"scenecast/internal/stream"
	"scenecast/internal/timeline"
)

var (
	// ErrBusy rejects a Compose while another run is active. The in-flight
	// run is not disturbed.
	ErrBusy = errors.New("composition already in progress")

	// ErrHostUnavailable rejects a Compose on a host that cannot render or
	// capture at all. Nothing has been allocated when it is returned.
	ErrHostUnavailable = errors.New("host cannot compose")
)

// State is the externally observable composition state.
type State struct {
	Rendering bool   `json:"isRendering"`
	Err       string `json:"error,omitempty"`
}

// Result is what a successful (or cancelled) run resolves to. The artifact
// URL is process-local and revocable; DurationSeconds is always the full
// decoded voiceover length, even when cancellation truncated the capture.
type Result struct {
	ArtifactID      string  `json:"artifactId"`
	ArtifactURL     string  `json:"videoUrl"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Run is the completion handle for one composition. It settles exactly
// once: Done closes, then Result reports either the result or the failure.
type Run struct {
	done     chan struct{}
	result   Result
	err      error
	cancelCh chan struct{}
	cancel   sync.Once
}

// Done closes when the run has settled.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result returns the outcome. Only valid after Done has closed.
func (r *Run) Result() (Result, error) { return r.result, r.err }

// Wait blocks until the run settles or ctx expires.
func (r *Run) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Config holds composition parameters.
type Config struct {
	Width         int
	Height        int
	FlushInterval time.Duration // recorder chunk flush cadence
	RenderTick    time.Duration // draw loop cadence
	HueBase       int           // session hue seed, explicit for reproducible renders
}

// recorder is the slice of capture.Recorder the orchestrator drives.
type recorder interface {
	Start(ctx context.Context, flushInterval time.Duration) error
	Stop()
	Stopped() <-chan struct{}
	Err() <-chan error
	Artifact() []byte
	MIME() string
}

// Orchestrator sequences one composition at a time: decode, timing map,
// capture, render loop, playback, and the completion chain audio-end →
// recorder-stop → recorder-stopped → settle.
type Orchestrator struct {
	cfg     Config
	store   *capture.Store
	monitor *stream.Broadcaster // optional live monitor fan-out

	// Seams for lifecycle tests; production wiring stays on the defaults.
	probeFn     func() error
	decodeFn    func(context.Context, []byte) (*audio.DecodedAudio, error)
	newRecorder func(*render.Surface, <-chan []int16) recorder
	audioTick   time.Duration // zero = real-time playback pacing

	mu     sync.RWMutex
	state  State
	active *Run
	subs   map[chan State]struct{}
}

// New creates an orchestrator that stores finished artifacts in store and
// feeds the monitor broadcaster, which may be nil.
func New(cfg Config, store *capture.Store, monitor *stream.Broadcaster) *Orchestrator {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 250 * time.Millisecond
	}
	if cfg.RenderTick <= 0 {
		cfg.RenderTick = time.Second / 30
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		monitor:  monitor,
		probeFn:  capture.ProbeHost,
		decodeFn: audio.Decode,
		newRecorder: func(s *render.Surface, in <-chan []int16) recorder {
			return capture.NewRecorder(s, in)
		},
		subs: make(map[chan State]struct{}),
	}
}

// Status returns the current observable state.
func (o *Orchestrator) Status() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Subscribe registers an observer of state transitions. Slow observers miss
// updates rather than blocking the lifecycle.
func (o *Orchestrator) Subscribe() chan State {
	ch := make(chan State, 8)
	o.mu.Lock()
	o.subs[ch] = struct{}{}
	o.mu.Unlock()
	return ch
}

// Unsubscribe removes an observer.
func (o *Orchestrator) Unsubscribe(ch chan State) {
	o.mu.Lock()
	delete(o.subs, ch)
	o.mu.Unlock()
}

func (o *Orchestrator) notify(s State) {
	o.mu.RLock()
	for ch := range o.subs {
		select {
		case ch <- s:
		default:
		}
	}
	o.mu.RUnlock()
}

// Compose starts one composition run. It fails fast when the host cannot
// compose, the payload breaks the input contract, or a run is already
// active; otherwise the returned handle settles exactly once.
func (o *Orchestrator) Compose(ctx context.Context, p Payload) (*Run, error) {
	if err := o.probeFn(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	run := &Run{
		done:     make(chan struct{}),
		cancelCh: make(chan struct{}),
	}

	o.mu.Lock()
	if o.active != nil {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.active = run
	o.state = State{Rendering: true}
	o.mu.Unlock()
	o.notify(State{Rendering: true})

	go o.run(ctx, p, run)
	return run, nil
}

// Cancel short-circuits the active run: the recorder stops immediately and
// the run resolves with whatever was captured. Playback and the draw loop
// are left to finish on their own. No-op when idle.
func (o *Orchestrator) Cancel() {
	o.mu.RLock()
	run := o.active
	o.mu.RUnlock()
	if run == nil {
		return
	}
	run.cancel.Do(func() { close(run.cancelCh) })
}

func (o *Orchestrator) run(ctx context.Context, p Payload, run *Run) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel() // reclaims playback, draw loop, and ffmpeg once settled

	// Decode first: the actual audio length is the timeline's ground truth.
	raw, err := base64.StdEncoding.DecodeString(p.Voiceover.AudioBase64)
	if err != nil {
		o.finish(run, Result{}, fmt.Errorf("%w: invalid base64: %v", audio.ErrDecode, err))
		return
	}
	dec, err := o.decodeFn(runCtx, raw)
	if err != nil {
		o.finish(run, Result{}, err)
		return
	}

	total := dec.Duration()
	totalMs := float64(total) / float64(time.Millisecond)
	timed, err := timeline.Map(p.timelineSegments(), totalMs)
	if err != nil {
		o.finish(run, Result{}, err)
		return
	}

	log.Printf("Composing %d segments over %.1fs of voiceover", len(timed), total.Seconds())

	surface := render.NewSurface(o.cfg.Width, o.cfg.Height)
	// First frame before capture starts, so the recording never opens black.
	render.Draw(surface, 0, totalMs, timed[0], o.cfg.HueBase)

	graph := audio.NewGraph(dec)
	if o.audioTick > 0 {
		graph.SetTick(o.audioTick)
	}
	if o.monitor != nil {
		go o.monitor.Run(runCtx, graph.Monitor())
	}

	rec := o.newRecorder(surface, graph.Capture())
	if err := rec.Start(runCtx, o.cfg.FlushInterval); err != nil {
		o.finish(run, Result{}, err)
		return
	}

	go render.RunLoop(runCtx, surface, timed, total, o.cfg.HueBase, o.cfg.RenderTick)

	if err := graph.Start(runCtx); err != nil {
		rec.Stop()
		o.finish(run, Result{}, err)
		return
	}

	// End-of-playback strictly precedes recorder stop, which strictly
	// precedes settlement. Cancellation enters the same chain one link in.
	select {
	case <-graph.Done():
		rec.Stop()
	case <-run.cancelCh:
		log.Printf("Composition cancelled at %.1fs", graph.Position().Seconds())
		rec.Stop()
	case <-runCtx.Done():
		rec.Stop()
	case err := <-rec.Err():
		o.finish(run, Result{}, err)
		return
	}

	select {
	case <-rec.Stopped():
	case err := <-rec.Err():
		o.finish(run, Result{}, err)
		return
	}

	h := o.store.Put(rec.Artifact(), rec.MIME())
	o.finish(run, Result{
		ArtifactID:      h.ID,
		ArtifactURL:     h.URL,
		DurationSeconds: total.Seconds(),
	}, nil)
}

// finish settles the run exactly once and publishes the state transition.
func (o *Orchestrator) finish(run *Run, res Result, err error) {
	st := State{}
	if err != nil {
		st.Err = err.Error()
		log.Printf("Composition failed: %v", err)
	} else {
		log.Printf("Composition complete: %s (%.1fs)", res.ArtifactURL, res.DurationSeconds)
	}

	o.mu.Lock()
	o.active = nil
	o.state = st
	o.mu.Unlock()

	run.result = res
	run.err = err
	close(run.done)
	o.notify(st)
}
