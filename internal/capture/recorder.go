package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"scenecast/internal/audio"
	"scenecast/internal/render"
)

// ErrRecorder marks an underlying capture or encoding failure. Once raised
// the run is unrecoverable.
var ErrRecorder = errors.New("recorder failure")

const (
	// CaptureFPS is the rate at which the rendering surface is sampled.
	CaptureFPS = 30

	// Container and bitrate hints for the produced artifact.
	ContainerMIME = "video/webm"
	videoBitrate  = "4M"
	audioBitrate  = "128k"
)

// ProbeHost reports whether this host can compose at all: without ffmpeg
// there is no decoder and no capture muxer.
func ProbeHost() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("host cannot compose: ffmpeg not found: %w", err)
	}
	return nil
}

// Recorder captures the rendering surface at a fixed frame rate, merges it
// with the audio capture sink, and muxes both through FFmpeg into a single
// WebM. Encoded output is buffered as ordered chunks and concatenated into
// one artifact on stop.
//
// Video frames enter on ffmpeg's stdin, PCM audio on fd 3, and the encoded
// container streams back on stdout.
type Recorder struct {
	surface *render.Surface
	audioIn <-chan []int16

	cmd       *exec.Cmd
	videoPipe io.WriteCloser
	audioPipe *os.File
	out       io.ReadCloser

	mu      sync.Mutex
	pending []byte   // encoded bytes not yet flushed into a chunk
	chunks  [][]byte // ordered, never dropped, never reordered

	stopOnce sync.Once
	stopCh   chan struct{} // tells the feeders to finish
	stopped  chan struct{} // closed after the final flush
	errCh    chan error
}

// NewRecorder wires a recorder to the surface it samples and the audio
// capture channel it drains.
func NewRecorder(s *render.Surface, audioIn <-chan []int16) *Recorder {
	return &Recorder{
		surface: s,
		audioIn: audioIn,
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
		errCh:   make(chan error, 1),
	}
}

// Stopped closes once the recorder has flushed everything after Stop.
func (r *Recorder) Stopped() <-chan struct{} { return r.stopped }

// Err delivers a fatal recorder failure, at most once.
func (r *Recorder) Err() <-chan error { return r.errCh }

// MIME returns the container type of the produced artifact.
func (r *Recorder) MIME() string { return ContainerMIME }

// Start launches FFmpeg and begins capturing. Encoded chunks accumulate on
// the given flush interval until Stop.
func (r *Recorder) Start(ctx context.Context, flushInterval time.Duration) error {
	bounds := r.surface.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	audioRead, audioWrite, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("%w: audio pipe: %v", ErrRecorder, err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", fmt.Sprint(CaptureFPS),
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"-i", "pipe:3",
		"-c:v", "libvpx",
		"-b:v", videoBitrate,
		"-c:a", "libopus",
		"-b:a", audioBitrate,
		"-f", "webm",
		"-loglevel", "error",
		"pipe:1",
	)
	cmd.ExtraFiles = []*os.File{audioRead}

	videoPipe, err := cmd.StdinPipe()
	if err != nil {
		audioRead.Close()
		audioWrite.Close()
		return fmt.Errorf("%w: stdin pipe: %v", ErrRecorder, err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		audioRead.Close()
		audioWrite.Close()
		return fmt.Errorf("%w: stdout pipe: %v", ErrRecorder, err)
	}

	if err := cmd.Start(); err != nil {
		audioRead.Close()
		audioWrite.Close()
		return fmt.Errorf("%w: ffmpeg start: %v", ErrRecorder, err)
	}
	audioRead.Close() // child holds its own copy now

	r.cmd = cmd
	r.videoPipe = videoPipe
	r.audioPipe = audioWrite
	r.out = out

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.feedVideo(gctx) })
	g.Go(func() error { return r.feedAudio(gctx) })
	go func() {
		if err := g.Wait(); err != nil {
			r.fail(err)
		}
	}()

	go r.collect(ctx, flushInterval)
	return nil
}

// Stop finishes the capture: the feeders close their pipes, FFmpeg
// finalizes the container, and once the tail of the stream has been
// buffered the Stopped channel closes. Safe to call more than once.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Artifact concatenates the buffered chunks, in arrival order, into the
// finished container.
func (r *Recorder) Artifact() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var size int
	for _, c := range r.chunks {
		size += len(c)
	}
	blob := make([]byte, 0, size)
	for _, c := range r.chunks {
		blob = append(blob, c...)
	}
	return blob
}

// ChunkCount returns how many chunks have been flushed so far.
func (r *Recorder) ChunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

// feedVideo samples the surface at the capture rate and writes raw frames
// until Stop.
func (r *Recorder) feedVideo(ctx context.Context) error {
	defer r.videoPipe.Close()

	ticker := time.NewTicker(time.Second / CaptureFPS)
	defer ticker.Stop()

	frame := make([]byte, r.surface.FrameBytes())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.stopCh:
			return nil
		case <-ticker.C:
		}
		r.surface.Snapshot(frame)
		if _, err := r.videoPipe.Write(frame); err != nil {
			return fmt.Errorf("%w: video feed: %v", ErrRecorder, err)
		}
	}
}

// feedAudio drains the capture sink into ffmpeg until the sink closes
// (playback ended) or Stop.
func (r *Recorder) feedAudio(ctx context.Context) error {
	defer r.audioPipe.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.stopCh:
			return nil
		case samples, ok := <-r.audioIn:
			if !ok {
				return nil
			}
			if _, err := r.audioPipe.Write(audio.SamplesToBytes(samples)); err != nil {
				return fmt.Errorf("%w: audio feed: %v", ErrRecorder, err)
			}
		}
	}
}

// collect reads encoded output, flushing the pending buffer into an ordered
// chunk on every flush interval. At EOF it takes a final flush, reaps
// ffmpeg, and signals stopped.
func (r *Recorder) collect(ctx context.Context, flushInterval time.Duration) {
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		buf := make([]byte, 32*1024)
		for {
			n, err := r.out.Read(buf)
			if n > 0 {
				r.mu.Lock()
				r.pending = append(r.pending, buf[:n]...)
				r.mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flushPending()
		case <-readDone:
			r.flushPending()
			if err := r.cmd.Wait(); err != nil {
				select {
				case <-r.stopCh:
					// A stopping run kills the pipes; ffmpeg's exit status
					// is not a capture failure then.
				default:
					select {
					case <-ctx.Done():
					default:
						r.fail(fmt.Errorf("%w: ffmpeg: %v", ErrRecorder, err))
						return
					}
				}
			}
			close(r.stopped)
			return
		}
	}
}

func (r *Recorder) flushPending() {
	r.mu.Lock()
	if len(r.pending) > 0 {
		r.chunks = append(r.chunks, r.pending)
		r.pending = nil
	}
	r.mu.Unlock()
}

func (r *Recorder) fail(err error) {
	select {
	case r.errCh <- err:
	default:
	}
}
