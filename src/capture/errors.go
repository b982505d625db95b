package capture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrScreenshotDirectoryInvalid means no directory could be resolved for a
	// screenshot file.
	ErrScreenshotDirectoryInvalid = errors.New("screenshot directory is invalid")
	// ErrCantCreateWindowCaptureURL is the window-capture counterpart of
	// ErrScreenshotDirectoryInvalid.
	ErrCantCreateWindowCaptureURL = errors.New("cannot create window capture path")
	// ErrUserCancelled is inferred when screencapture exits cleanly without
	// writing the destination file, which is what pressing Escape does.
	ErrUserCancelled = errors.New("screenshot cancelled by user")
	// ErrCaptureInProgress rejects a capture while another one on the same CLI
	// is still running.
	ErrCaptureInProgress = errors.New("capture already in progress")
	// ErrCantDecodeImage reports a capture file that is not a readable image.
	ErrCantDecodeImage = errors.New("cannot decode captured image")
	// ErrMissingMetadataRect is attached to watched screenshots whose capture
	// rectangle never appeared in Spotlight metadata.
	ErrMissingMetadataRect = errors.New("screenshot metadata has no capture rectangle")
)

// TerminationStatusError is returned when screencapture exits non-zero.
type TerminationStatusError struct {
	Status int
	Output []byte
}

func (e *TerminationStatusError) Error() string {
	out := strings.TrimSpace(string(e.Output))
	if out == "" {
		return fmt.Sprintf("screencapture exited with status %d", e.Status)
	}
	return fmt.Sprintf("screencapture exited with status %d: %s", e.Status, out)
}

// ImageDecodeError wraps the decoder failure for Path.
type ImageDecodeError struct {
	Path string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCantDecodeImage, e.Path, e.Err)
}

func (e *ImageDecodeError) Is(target error) bool {
	return target == ErrCantDecodeImage
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }
