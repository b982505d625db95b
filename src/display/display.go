// Package display reports the geometry of active displays.
package display

import (
	"errors"
	"image"

	"github.com/kbinani/screenshot"

	"screenshots/src/geom"
)

// ErrNoDisplays is returned when no active display is reported.
var ErrNoDisplays = errors.New("no active displays found")

// Display is one active display in global coordinates.
type Display struct {
	Index  int       `json:"index"`
	Bounds geom.Rect `json:"bounds"`
}

// Provider is the display query surface of github.com/kbinani/screenshot.
type Provider interface {
	NumActiveDisplays() int
	GetDisplayBounds(displayIndex int) image.Rectangle
}

type system struct{}

func (system) NumActiveDisplays() int                 { return screenshot.NumActiveDisplays() }
func (system) GetDisplayBounds(i int) image.Rectangle { return screenshot.GetDisplayBounds(i) }

// System queries the real displays.
var System Provider = system{}

func fromImage(r image.Rectangle) geom.Rect {
	return geom.Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}

// List returns every active display.
func List(p Provider) ([]Display, error) {
	n := p.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplays
	}
	out := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Display{Index: i, Bounds: fromImage(p.GetDisplayBounds(i))})
	}
	return out, nil
}

// VirtualBounds is the union of all display bounds.
func VirtualBounds(p Provider) (geom.Rect, error) {
	n := p.NumActiveDisplays()
	if n == 0 {
		return geom.Rect{}, ErrNoDisplays
	}
	union := p.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(p.GetDisplayBounds(i))
	}
	return fromImage(union), nil
}

// Containing returns the display holding the centre of r.
func Containing(p Provider, r geom.Rect) (Display, bool) {
	s := r.Standardize()
	cx, cy := s.X+s.Width/2, s.Y+s.Height/2
	displays, err := List(p)
	if err != nil {
		return Display{}, false
	}
	for _, d := range displays {
		b := d.Bounds
		if cx >= b.X && cx < b.MaxX() && cy >= b.Y && cy < b.MaxY() {
			return d, true
		}
	}
	return Display{}, false
}

// Clamp intersects r with the virtual screen. It returns false when nothing
// of r is on screen.
func Clamp(p Provider, r geom.Rect) (geom.Rect, bool) {
	vb, err := VirtualBounds(p)
	if err != nil {
		return geom.Rect{}, false
	}
	in := r.Image().Intersect(vb.Image())
	if in.Empty() {
		return geom.Rect{}, false
	}
	return fromImage(in), true
}
