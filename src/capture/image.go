package capture

import (
	"image"
	_ "image/png"
	"log"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// DecodeFile reads an image in any registered format (PNG, TIFF, BMP).
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ImageDecodeError{Path: path, Err: err}
	}
	return img, nil
}

// decodeAndDiscard decodes path and hands the file to the cleanup pool
// whatever the outcome.
func (c *CLI) decodeAndDiscard(path string) (image.Image, error) {
	defer c.cleanup.Remove(path, func(p string, err error) {
		if err == nil {
			log.Printf("Capture: removed %s", p)
		}
	})
	return DecodeFile(path)
}
