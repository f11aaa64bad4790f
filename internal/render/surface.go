package render

import (
	"image"
	"sync"
)

// Surface is the raster a composition draws into. The draw loop writes
// whole frames; the recorder snapshots pixels at its own capture rate, so
// access is serialized here.
type Surface struct {
	mu  sync.Mutex
	img *image.RGBA
}

// NewSurface allocates a w x h RGBA surface.
func NewSurface(w, h int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Bounds returns the pixel bounds of the surface.
func (s *Surface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// FrameBytes returns the size of one raw RGBA frame.
func (s *Surface) FrameBytes() int {
	return len(s.img.Pix)
}

// Snapshot copies the current pixels into buf, which must be FrameBytes
// long. Used by the recorder's video feeder.
func (s *Surface) Snapshot(buf []byte) {
	s.mu.Lock()
	copy(buf, s.img.Pix)
	s.mu.Unlock()
}

// withImage runs fn with exclusive access to the backing image.
func (s *Surface) withImage(fn func(*image.RGBA)) {
	s.mu.Lock()
	fn(s.img)
	s.mu.Unlock()
}
