package mouse

import (
	"strings"

	"screenshots/src/hook"
)

// Backend names accepted by NewSource.
const (
	BackendNative = "native"
	BackendGohook = "gohook"
)

// NewSource picks the event backend. The native CGEventTap is preferred where
// it exists; "gohook" or a platform without it falls back to the shared gohook
// bus.
func NewSource(backend string, bus *hook.Bus) Source {
	if strings.EqualFold(strings.TrimSpace(backend), BackendGohook) || !nativeSupported {
		return NewHookSource(bus)
	}
	return NewNativeSource()
}
