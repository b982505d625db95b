package display

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshots/src/geom"
)

type fakeDisplays []image.Rectangle

func (f fakeDisplays) NumActiveDisplays() int                 { return len(f) }
func (f fakeDisplays) GetDisplayBounds(i int) image.Rectangle { return f[i] }

// A 1440x900 main display with a 1920x1080 display to its left.
var twoDisplays = fakeDisplays{
	image.Rect(0, 0, 1440, 900),
	image.Rect(-1920, -180, 0, 900),
}

func TestList(t *testing.T) {
	got, err := List(twoDisplays)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, geom.Rect{X: -1920, Y: -180, Width: 1920, Height: 1080}, got[1].Bounds)
	assert.Equal(t, 1, got[1].Index)

	_, err = List(fakeDisplays{})
	assert.ErrorIs(t, err, ErrNoDisplays)
}

func TestVirtualBounds(t *testing.T) {
	vb, err := VirtualBounds(twoDisplays)
	require.NoError(t, err)
	assert.Equal(t, geom.Rect{X: -1920, Y: -180, Width: 3360, Height: 1080}, vb)

	_, err = VirtualBounds(fakeDisplays{})
	assert.ErrorIs(t, err, ErrNoDisplays)
}

func TestContaining(t *testing.T) {
	d, ok := Containing(twoDisplays, geom.Rect{X: 100, Y: 100, Width: 50, Height: 50})
	require.True(t, ok)
	assert.Equal(t, 0, d.Index)

	d, ok = Containing(twoDisplays, geom.Rect{X: -10, Y: 0, Width: -200, Height: 100})
	require.True(t, ok)
	assert.Equal(t, 1, d.Index)

	_, ok = Containing(twoDisplays, geom.Rect{X: 5000, Y: 5000, Width: 1, Height: 1})
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	got, ok := Clamp(twoDisplays, geom.Rect{X: 1400, Y: 800, Width: 100, Height: 200})
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 1400, Y: 800, Width: 40, Height: 100}, got)

	_, ok = Clamp(twoDisplays, geom.Rect{X: 3000, Y: 0, Width: 10, Height: 10})
	assert.False(t, ok)
}
