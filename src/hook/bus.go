package hook

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	gohook "github.com/robotn/gohook"
)

// ErrHookUnavailable is returned when the global input hook could not be started.
var ErrHookUnavailable = errors.New("global input hook unavailable")

// Handler receives every event pumped from the global hook. Handlers run on the
// pump goroutine and must not block.
type Handler func(gohook.Event)

type subscriber struct {
	name    string
	handler Handler
}

// Bus owns the process-wide gohook event channel and fans events out to
// subscribers. gohook keeps a single global channel, so the hotkey listener and
// the mouse monitor have to share one pump instead of each calling Start.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]subscriber
	nextID  int
	running bool

	start func() chan gohook.Event
	end   func()
}

var (
	defaultBus  *Bus
	defaultOnce sync.Once
)

// Default returns the process-wide bus backed by gohook.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultBus = NewBus(func() chan gohook.Event { return gohook.Start() }, gohook.End)
	})
	return defaultBus
}

// NewBus creates a bus around the given start/end functions.
func NewBus(start func() chan gohook.Event, end func()) *Bus {
	return &Bus{
		subs:  make(map[int]subscriber),
		start: start,
		end:   end,
	}
}

// Subscribe registers a handler and starts the hook if it is not running yet.
// The returned function unregisters the handler; the hook is stopped once the
// last subscriber leaves.
func (b *Bus) Subscribe(name string, h Handler) (func(), error) {
	if h == nil {
		return nil, fmt.Errorf("hook: nil handler for %s", name)
	}

	b.mu.Lock()
	if !b.running {
		ch := b.start()
		if ch == nil {
			b.mu.Unlock()
			return nil, ErrHookUnavailable
		}
		b.running = true
		go b.pump(ch)
		log.Printf("Hook: started global event pump")
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = subscriber{name: name, handler: h}
	b.mu.Unlock()

	log.Printf("Hook: %s subscribed", name)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}, nil
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, id)
	stop := b.running && len(b.subs) == 0
	if stop {
		b.running = false
	}
	b.mu.Unlock()

	log.Printf("Hook: %s unsubscribed", sub.name)
	if stop {
		b.end()
		log.Printf("Hook: stopped global event pump")
	}
}

// Subscribers returns the names of the current subscribers.
func (b *Bus) Subscribers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.subs))
	for _, s := range b.subs {
		names = append(names, s.name)
	}
	sort.Strings(names)
	return names
}

// Running reports whether the global hook is active.
func (b *Bus) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Bus) pump(ch chan gohook.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in hook pump: %v", r)
		}
	}()

	for ev := range ch {
		b.mu.Lock()
		handlers := make([]Handler, 0, len(b.subs))
		for _, s := range b.subs {
			handlers = append(handlers, s.handler)
		}
		b.mu.Unlock()

		for _, h := range handlers {
			h(ev)
		}
	}
	log.Printf("Hook: event channel closed")
}
