package mouse

import (
	"log"
	"sync"

	"screenshots/src/geom"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithPanKey sets the keycode that, while held, turns drags into pans.
func WithPanKey(code uint16) Option {
	return func(m *Monitor) { m.panKey = code }
}

// Monitor tracks one drag gesture at a time from a global event Source.
type Monitor struct {
	source Source
	panKey uint16

	mu       sync.Mutex
	running  bool
	callback func(Result)
	hasDown  bool
	down     geom.Point
	current  geom.Point
	panHeld  bool
}

// New creates a monitor over source. Pan key defaults to space.
func New(source Source, opts ...Option) *Monitor {
	m := &Monitor{source: source, panKey: SpaceKeycode}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartListening installs the tap and invokes callback once per completed
// drag. Any previous tap is torn down first. On error the monitor stays
// stopped.
func (m *Monitor) StartListening(callback func(Result)) error {
	m.StopListening()

	m.mu.Lock()
	m.callback = callback
	m.hasDown = false
	m.running = true
	m.mu.Unlock()

	if err := m.source.Start(m.handle); err != nil {
		m.mu.Lock()
		m.running = false
		m.callback = nil
		m.mu.Unlock()
		return err
	}
	return nil
}

// StopListening tears the tap down and forgets the callback and pan state.
// Safe to call repeatedly or before StartListening.
func (m *Monitor) StopListening() {
	m.mu.Lock()
	wasRunning := m.running
	m.running = false
	m.callback = nil
	m.panHeld = false
	m.hasDown = false
	m.mu.Unlock()

	if wasRunning {
		m.source.Stop()
	}
}

// Running reports whether a tap is installed.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) handle(ev Event) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}

	var (
		fire   func(Result)
		result Result
	)

	switch ev.Kind {
	case KindButtonDown:
		m.down = ev.Location
		m.current = ev.Location
		m.hasDown = true
	case KindDrag:
		if m.panHeld && m.hasDown {
			m.down = m.down.Add(ev.Location.Sub(m.current))
		}
		m.current = ev.Location
	case KindButtonUp:
		if m.hasDown {
			result = Result{Initial: m.down, End: ev.Location}
			fire = m.callback
			m.hasDown = false
		}
	case KindKeyDown:
		if ev.Keycode == m.panKey {
			m.panHeld = true
		}
	case KindKeyUp:
		if ev.Keycode == m.panKey {
			m.panHeld = false
		}
	}
	m.mu.Unlock()

	if fire != nil {
		log.Printf("Mouse: drag finished %v -> %v", result.Initial, result.End)
		fire(result)
	}
}
