// Package geom holds the screen-space point and rectangle types shared by the
// event monitor, the selection tracker and the capture coordinator.
//
// Coordinates are global display coordinates with the origin in the top-left
// corner of the main display, which is what both CGEventGetLocation and
// `screencapture -R` use.
package geom

import (
	"fmt"
	"image"
	"math"
)

// Point is a location on screen.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsZero reports whether p is exactly the origin.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Rect is an axis-aligned rectangle. A standardized Rect has non-negative
// Width and Height.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints builds the normalized rectangle spanned by two points.
// The second return value is false when both points are the origin, which is
// what the event monitor reports when no drag gesture was observed.
func RectFromPoints(start, end Point) (Rect, bool) {
	if start.IsZero() && end.IsZero() {
		return Rect{}, false
	}
	return Rect{
		X:      math.Min(start.X, end.X),
		Y:      math.Min(start.Y, end.Y),
		Width:  math.Abs(start.X - end.X),
		Height: math.Abs(start.Y - end.Y),
	}, true
}

// Standardize returns r with a non-negative width and height.
func (r Rect) Standardize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// MaxX is the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY is the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	s := r.Standardize()
	return s.Width == 0 || s.Height == 0
}

// Integral returns the smallest rectangle with integer origin and size that
// contains r.
func (r Rect) Integral() Rect {
	s := r.Standardize()
	minX := math.Floor(s.X)
	minY := math.Floor(s.Y)
	maxX := math.Ceil(s.MaxX())
	maxY := math.Ceil(s.MaxY())
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Image converts r to an image.Rectangle after making it integral.
func (r Rect) Image() image.Rectangle {
	i := r.Integral()
	return image.Rect(int(i.X), int(i.Y), int(i.MaxX()), int(i.MaxY()))
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.X, r.Y, r.Width, r.Height)
}
