//go:build !darwin || !cgo

package mouse

const nativeSupported = false

type unsupportedSource struct{}

// NewNativeSource returns a source that always fails: CGEventTap only exists
// on macOS.
func NewNativeSource() Source {
	return unsupportedSource{}
}

func (unsupportedSource) Start(func(Event)) error { return ErrCantCreateEventTap }

func (unsupportedSource) Stop() {}
