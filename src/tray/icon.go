package tray

import (
	"image"
	"image/color"
	"sync"

	"screenshots/src/imaging"
)

var (
	iconOnce sync.Once
	iconPNG  []byte
)

// Icon returns the 22x22 template icon: a dashed selection rectangle with a
// solid corner handle. Template icons are drawn black on transparent and
// macOS recolours them for light and dark menu bars.
func Icon() []byte {
	iconOnce.Do(func() {
		data, err := imaging.EncodePNG(drawIcon(22))
		if err == nil {
			iconPNG = data
		}
	})
	return iconPNG
}

func drawIcon(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	ink := color.NRGBA{A: 255}

	lo, hi := 3, size-4
	for i := lo; i <= hi; i++ {
		if (i/2)%2 == 0 {
			img.SetNRGBA(i, lo, ink)
			img.SetNRGBA(i, hi, ink)
			img.SetNRGBA(lo, i, ink)
			img.SetNRGBA(hi, i, ink)
		}
	}
	for y := hi - 3; y <= hi+1 && y < size; y++ {
		for x := hi - 3; x <= hi+1 && x < size; x++ {
			img.SetNRGBA(x, y, ink)
		}
	}
	return img
}
