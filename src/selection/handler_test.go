package selection

import (
	"testing"
	"time"

	gohook "github.com/robotn/gohook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshots/src/geom"
	"screenshots/src/hook"
	"screenshots/src/mouse"
)

type scriptedSource struct {
	emit func(mouse.Event)
	err  error
}

func (s *scriptedSource) Start(emit func(mouse.Event)) error {
	if s.err != nil {
		return s.err
	}
	s.emit = emit
	return nil
}

func (s *scriptedSource) Stop() { s.emit = nil }

func (s *scriptedSource) drag(from, to geom.Point) {
	s.emit(mouse.Event{Kind: mouse.KindButtonDown, Location: from})
	s.emit(mouse.Event{Kind: mouse.KindDrag, Location: to})
	s.emit(mouse.Event{Kind: mouse.KindButtonUp, Location: to})
}

func newHandler(src *scriptedSource) *Handler {
	return NewHandler(mouse.New(src))
}

func TestScreenshotRectNormalizesDrag(t *testing.T) {
	pairs := []struct {
		from, to geom.Point
		want     geom.Rect
	}{
		{geom.Point{X: 10, Y: 10}, geom.Point{X: 110, Y: 60}, geom.Rect{X: 10, Y: 10, Width: 100, Height: 50}},
		{geom.Point{X: 300, Y: 400}, geom.Point{X: 100, Y: 150}, geom.Rect{X: 100, Y: 150, Width: 200, Height: 250}},
		{geom.Point{X: 50, Y: 5}, geom.Point{X: 20, Y: 35}, geom.Rect{X: 20, Y: 5, Width: 30, Height: 30}},
	}

	for _, p := range pairs {
		src := &scriptedSource{}
		h := newHandler(src)
		require.NoError(t, h.StartEventsMonitor())

		src.drag(p.from, p.to)

		got, ok := h.ScreenshotRect()
		require.True(t, ok)
		assert.Equal(t, p.want, got)
		assert.GreaterOrEqual(t, got.Width, 0.0)
		assert.GreaterOrEqual(t, got.Height, 0.0)
	}
}

func TestScreenshotRectAbsentForOriginPair(t *testing.T) {
	src := &scriptedSource{}
	h := newHandler(src)
	require.NoError(t, h.StartEventsMonitor())

	src.drag(geom.Point{}, geom.Point{})

	_, ok := h.ScreenshotRect()
	assert.False(t, ok)
}

func TestScreenshotRectAbsentWithoutCompleteGesture(t *testing.T) {
	src := &scriptedSource{}
	h := newHandler(src)
	require.NoError(t, h.StartEventsMonitor())

	_, ok := h.ScreenshotRect()
	assert.False(t, ok, "nothing recorded yet")

	src.emit(mouse.Event{Kind: mouse.KindButtonDown, Location: geom.Point{X: 4, Y: 4}})
	_, ok = h.ScreenshotRect()
	assert.False(t, ok, "down without up")
}

func TestLatestDragWins(t *testing.T) {
	src := &scriptedSource{}
	h := newHandler(src)
	require.NoError(t, h.StartEventsMonitor())

	src.drag(geom.Point{X: 1, Y: 1}, geom.Point{X: 2, Y: 2})
	src.drag(geom.Point{X: 10, Y: 10}, geom.Point{X: 30, Y: 40})

	got, ok := h.ScreenshotRect()
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 10, Y: 10, Width: 20, Height: 30}, got)
}

func TestStopClearsRecordedPoints(t *testing.T) {
	src := &scriptedSource{}
	h := newHandler(src)
	require.NoError(t, h.StartEventsMonitor())

	src.drag(geom.Point{X: 1, Y: 1}, geom.Point{X: 9, Y: 9})
	h.StopEventsMonitor()

	_, ok := h.ScreenshotRect()
	assert.False(t, ok)

	// Safe to stop again.
	h.StopEventsMonitor()
}

func TestStartFailureDegradesToNoRect(t *testing.T) {
	h := newHandler(&scriptedSource{err: mouse.ErrCantCreateEventTap})

	err := h.StartEventsMonitor()
	require.ErrorIs(t, err, mouse.ErrCantCreateEventTap)

	_, ok := h.ScreenshotRect()
	assert.False(t, ok)
	h.StopEventsMonitor()
}

func TestGohookDragThroughBus(t *testing.T) {
	ch := make(chan gohook.Event, 8)
	bus := hook.NewBus(func() chan gohook.Event { return ch }, func() {})
	h := NewHandler(mouse.New(mouse.NewHookSource(bus)))
	require.NoError(t, h.StartEventsMonitor())
	defer h.StopEventsMonitor()

	ch <- gohook.Event{Kind: gohook.MouseDown, X: 10, Y: 10}
	ch <- gohook.Event{Kind: gohook.MouseDrag, X: 100, Y: 80}
	ch <- gohook.Event{Kind: gohook.MouseHold, X: 100, Y: 80}

	require.Eventually(t, func() bool {
		_, ok := h.ScreenshotRect()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	got, _ := h.ScreenshotRect()
	assert.Equal(t, geom.Rect{X: 10, Y: 10, Width: 90, Height: 70}, got)
}

func TestGohookClickIsNotADrag(t *testing.T) {
	ch := make(chan gohook.Event, 8)
	bus := hook.NewBus(func() chan gohook.Event { return ch }, func() {})
	h := NewHandler(mouse.New(mouse.NewHookSource(bus)))
	require.NoError(t, h.StartEventsMonitor())
	defer h.StopEventsMonitor()

	ch <- gohook.Event{Kind: gohook.MouseUp, X: 10, Y: 10}
	ch <- gohook.Event{Kind: gohook.MouseMove, X: 20, Y: 20}

	never := func() bool {
		_, ok := h.ScreenshotRect()
		return ok
	}
	assert.Never(t, never, 100*time.Millisecond, 10*time.Millisecond)
}
