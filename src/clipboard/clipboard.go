package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

var (
	writeMu sync.Mutex
)

// ErrWriteFailed is returned when the system clipboard refused the data.
var ErrWriteFailed = errors.New("clipboard write failed")

func Init() error {
	return clipboard.Init()
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	return write(clipboard.FmtText, []byte(text))
}

// WriteImage puts PNG-encoded bytes on the clipboard.
func WriteImage(png []byte) error {
	if len(png) == 0 {
		return errors.New("empty image")
	}
	return write(clipboard.FmtImage, png)
}

func write(f clipboard.Format, data []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if clipboard.Write(f, data) == nil {
		return ErrWriteFailed
	}
	return nil
}
