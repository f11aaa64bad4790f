package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"scenecast/internal/timeline"
)

// Layout constants. Fixed positions keep rendered output identical for the
// same input, so frames are comparable across runs.
const (
	hueStep   = 32 // hue degrees advanced per segment index
	hueSpread = 40 // gradient end hue offset

	marginX    = 60
	titleY     = 120
	bodyY      = 170
	bodyCols   = 52 // word-wrap column width, characters
	lineHeight = 22

	barHeight  = 10
	barLiftY   = 60 // distance of the progress bar from the bottom edge
	panelInset = 40
)

// Hue returns the deterministic base hue for a segment:
// (base + index*32) mod 360.
func Hue(base, index int) int {
	h := (base + index*hueStep) % 360
	if h < 0 {
		h += 360
	}
	return h
}

// Progress returns elapsed/total clamped to [0,1].
func Progress(elapsedMs, totalMs float64) float64 {
	if totalMs <= 0 {
		return 1
	}
	p := elapsedMs / totalMs
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Draw renders one frame onto the surface: a diagonal gradient keyed to the
// active segment's hue, a dark overlay panel, a progress bar, the segment
// title, and its word-wrapped script.
func Draw(s *Surface, elapsedMs, totalMs float64, active timeline.TimedSegment, hueBase int) {
	s.withImage(func(img *image.RGBA) {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()

		hue := Hue(hueBase, active.Index)
		from := hslToRGB(float64(hue), 0.60, 0.22)
		to := hslToRGB(float64((hue+hueSpread)%360), 0.60, 0.22)

		// Diagonal gradient, top-left to bottom-right.
		span := float64(w + h - 2)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				t := float64(x+y) / span
				img.SetRGBA(x, y, lerpRGB(from, to, t))
			}
		}

		// Semi-transparent dark panel behind the text.
		panel := image.Rect(panelInset, panelInset+40, w-panelInset, h-barLiftY-40)
		shade(img, panel, 115)

		// Progress bar: full-width translucent track, filled proportionally.
		trackY := h - barLiftY
		track := image.Rect(0, trackY, w, trackY+barHeight)
		shade(img, track, 90)
		p := Progress(elapsedMs, totalMs)
		fill := image.Rect(0, trackY, int(p*float64(w)), trackY+barHeight)
		tint(img, fill, color.RGBA{R: 255, G: 255, B: 255, A: 210})

		// Title and word-wrapped body.
		drawText(img, marginX, titleY, active.Title, color.RGBA{255, 255, 255, 255})
		y := bodyY
		for _, line := range Wrap(active.Script, bodyCols) {
			drawText(img, marginX, y, line, color.RGBA{220, 220, 225, 255})
			y += lineHeight
		}
	})
}

// shade darkens a rectangle by blending black at the given alpha (0-255).
func shade(img *image.RGBA, r image.Rectangle, alpha uint8) {
	r = r.Intersect(img.Bounds())
	a := float64(alpha) / 255
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			c.R = uint8(float64(c.R) * (1 - a))
			c.G = uint8(float64(c.G) * (1 - a))
			c.B = uint8(float64(c.B) * (1 - a))
			img.SetRGBA(x, y, c)
		}
	}
}

// tint blends an opaque-ish color over a rectangle.
func tint(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	a := float64(c.A) / 255
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			d := img.RGBAAt(x, y)
			d.R = uint8(float64(d.R)*(1-a) + float64(c.R)*a)
			d.G = uint8(float64(d.G)*(1-a) + float64(c.G)*a)
			d.B = uint8(float64(d.B)*(1-a) + float64(c.B)*a)
			img.SetRGBA(x, y, d)
		}
	}
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func lerpRGB(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
		A: 255,
	}
}

// hslToRGB converts HSL (h in degrees, s and l in [0,1]) to RGBA.
func hslToRGB(h, s, l float64) color.RGBA {
	c := (1 - math.Abs(2*l-1)) * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	m := l - c/2
	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}
