// Package selection recovers the rectangle a user dragged out during an
// interactive capture by watching global mouse events while screencapture runs.
//
// Neither the screenshot's extended attributes nor Spotlight metadata report the
// rectangle reliably on current macOS releases, so the drag is observed directly.
package selection

import (
	"log"
	"sync"

	"screenshots/src/geom"
	"screenshots/src/mouse"
)

// Handler pairs one mouse.Monitor with the last drag it reported.
type Handler struct {
	monitor *mouse.Monitor

	mu      sync.Mutex
	mouseUp *geom.Point
	mouseDn *geom.Point
}

// NewHandler wraps m.
func NewHandler(m *mouse.Monitor) *Handler {
	return &Handler{monitor: m}
}

// StartEventsMonitor begins recording drags. A failure is logged and returned;
// callers treat it as "no rectangle available" rather than a capture failure.
func (h *Handler) StartEventsMonitor() error {
	err := h.monitor.StartListening(func(r mouse.Result) {
		initial, end := r.Initial, r.End
		h.mu.Lock()
		h.mouseDn = &initial
		h.mouseUp = &end
		h.mu.Unlock()
	})
	if err != nil {
		log.Printf("Selection: event monitor unavailable: %v", err)
		return err
	}
	return nil
}

// StopEventsMonitor removes the tap and forgets recorded points so nothing
// leaks into the next capture.
func (h *Handler) StopEventsMonitor() {
	h.monitor.StopListening()

	h.mu.Lock()
	h.mouseDn = nil
	h.mouseUp = nil
	h.mu.Unlock()
}

// ScreenshotRect returns the rectangle spanned by the last drag, or false if
// no complete drag was recorded or both points are the origin.
func (h *Handler) ScreenshotRect() (geom.Rect, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mouseDn == nil || h.mouseUp == nil {
		return geom.Rect{}, false
	}
	return geom.RectFromPoints(*h.mouseDn, *h.mouseUp)
}
