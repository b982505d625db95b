package capture

import (
	"image"

	"screenshots/src/geom"
)

// Screenshot is a finished capture on disk. The caller owns Path and is
// responsible for removing it.
type Screenshot struct {
	Path    string
	Rect    geom.Rect
	HasRect bool
}

// ScreenshotImage is a decoded capture. Its backing file is already gone.
type ScreenshotImage struct {
	Image   image.Image
	Rect    geom.Rect
	HasRect bool
}

// Params tunes an area capture. A non-nil SelectionRect skips the interactive
// selection and is reported back as the capture rectangle.
type Params struct {
	SelectionRect *geom.Rect
}
