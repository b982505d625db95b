package mouse

import (
	"fmt"
	"sync"

	gohook "github.com/robotn/gohook"

	"screenshots/src/geom"
	"screenshots/src/hook"
)

// HookSource reads global events from the shared gohook bus.
type HookSource struct {
	bus *hook.Bus

	mu    sync.Mutex
	unsub func()
}

// NewHookSource returns a Source backed by bus. A nil bus uses hook.Default().
func NewHookSource(bus *hook.Bus) *HookSource {
	if bus == nil {
		bus = hook.Default()
	}
	return &HookSource{bus: bus}
}

func (s *HookSource) Start(emit func(Event)) error {
	s.Stop()

	unsub, err := s.bus.Subscribe("mouse-monitor", func(ev gohook.Event) {
		if converted, ok := convertHookEvent(ev); ok {
			emit(converted)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCantCreateEventTap, err)
	}

	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()
	return nil
}

func (s *HookSource) Stop() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// convertHookEvent maps gohook kinds onto monitor events. The gohook names
// do not follow libuiohook's: MouseDown is PRESSED, MouseHold is RELEASED and
// MouseUp is CLICKED, which is only sent for a release without a drag and is
// ignored. KeyDown is PRESSED; KeyHold is TYPED and is ignored.
func convertHookEvent(ev gohook.Event) (Event, bool) {
	loc := geom.Point{X: float64(ev.X), Y: float64(ev.Y)}
	switch ev.Kind {
	case gohook.MouseDown:
		return Event{Kind: KindButtonDown, Location: loc}, true
	case gohook.MouseHold:
		return Event{Kind: KindButtonUp, Location: loc}, true
	case gohook.MouseDrag:
		return Event{Kind: KindDrag, Location: loc}, true
	case gohook.KeyDown:
		return Event{Kind: KindKeyDown, Keycode: ev.Rawcode}, true
	case gohook.KeyUp:
		return Event{Kind: KindKeyUp, Keycode: ev.Rawcode}, true
	default:
		return Event{}, false
	}
}
