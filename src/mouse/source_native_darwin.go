//go:build darwin && cgo

package mouse

/*
#cgo darwin LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	uintptr_t handle;
	CFMachPortRef tap;
	CFRunLoopSourceRef source;
	CFRunLoopRef loop;
} ScreenshotTap;

extern void goScreenshotTapEvent(uintptr_t handle, int eventType, double x, double y, int64_t keycode);

static inline CGEventRef screenshotTapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *info) {
	ScreenshotTap *t = (ScreenshotTap *)info;
	if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
		if (t->tap != NULL) {
			CGEventTapEnable(t->tap, true);
		}
		return event;
	}
	CGPoint p = CGEventGetLocation(event);
	int64_t keycode = 0;
	if (type == kCGEventKeyDown || type == kCGEventKeyUp) {
		keycode = CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
	}
	goScreenshotTapEvent(t->handle, (int)type, p.x, p.y, keycode);
	return event;
}

static inline CGEventMask screenshotTapMask(void) {
	return CGEventMaskBit(kCGEventLeftMouseDown) |
		CGEventMaskBit(kCGEventLeftMouseUp) |
		CGEventMaskBit(kCGEventRightMouseDown) |
		CGEventMaskBit(kCGEventRightMouseUp) |
		CGEventMaskBit(kCGEventLeftMouseDragged) |
		CGEventMaskBit(kCGEventRightMouseDragged) |
		CGEventMaskBit(kCGEventKeyDown) |
		CGEventMaskBit(kCGEventKeyUp);
}

// 0 on success, 1 when the tap can't be created, 2 when the run loop source can't.
static inline int screenshotTapCreate(ScreenshotTap *t, uintptr_t handle) {
	t->handle = handle;
	t->tap = CGEventTapCreate(kCGHIDEventTap,
	                          kCGHeadInsertEventTap,
	                          kCGEventTapOptionListenOnly,
	                          screenshotTapMask(),
	                          screenshotTapCallback,
	                          t);
	if (t->tap == NULL) {
		return 1;
	}
	t->source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, t->tap, 0);
	if (t->source == NULL) {
		CFMachPortInvalidate(t->tap);
		CFRelease(t->tap);
		t->tap = NULL;
		return 2;
	}
	t->loop = CFRunLoopGetCurrent();
	CFRunLoopAddSource(t->loop, t->source, kCFRunLoopCommonModes);
	CGEventTapEnable(t->tap, true);
	return 0;
}

static inline void screenshotTapRunOnce(double seconds) {
	CFRunLoopRunInMode(kCFRunLoopDefaultMode, seconds, false);
}

static inline void screenshotTapWake(ScreenshotTap *t) {
	if (t->loop != NULL) {
		CFRunLoopStop(t->loop);
	}
}

static inline void screenshotTapDestroy(ScreenshotTap *t) {
	if (t->tap != NULL) {
		CGEventTapEnable(t->tap, false);
	}
	if (t->source != NULL) {
		CFRunLoopSourceInvalidate(t->source);
		CFRelease(t->source);
		t->source = NULL;
	}
	if (t->tap != NULL) {
		CFMachPortInvalidate(t->tap);
		CFRelease(t->tap);
		t->tap = NULL;
	}
	t->loop = NULL;
}
*/
import "C"

import (
	"log"
	"runtime"
	"runtime/cgo"
	"sync"
	"sync/atomic"
	"unsafe"

	"screenshots/src/geom"
)

const nativeSupported = true

// runLoopSlice bounds how long the tap thread sleeps inside the run loop
// before rechecking the stop flag.
const runLoopSlice = 0.25

// NativeSource installs a listen-only CGEventTap on a dedicated OS thread
// running its own CFRunLoop.
type NativeSource struct {
	mu     sync.Mutex
	active *nativeTap
}

// NewNativeSource returns the CoreGraphics event tap backend.
func NewNativeSource() Source {
	return &NativeSource{}
}

type nativeTap struct {
	emit    func(Event)
	stopped atomic.Bool
	done    chan struct{}

	mu  sync.Mutex
	ref *C.ScreenshotTap
}

func (s *NativeSource) Start(emit func(Event)) error {
	s.Stop()

	t := &nativeTap{emit: emit, done: make(chan struct{})}
	started := make(chan error, 1)
	go t.run(started)
	if err := <-started; err != nil {
		<-t.done
		return err
	}

	s.mu.Lock()
	s.active = t
	s.mu.Unlock()
	return nil
}

func (s *NativeSource) Stop() {
	s.mu.Lock()
	t := s.active
	s.active = nil
	s.mu.Unlock()

	if t == nil {
		return
	}
	t.mu.Lock()
	t.stopped.Store(true)
	if t.ref != nil {
		C.screenshotTapWake(t.ref)
	}
	t.mu.Unlock()
	<-t.done
}

func (t *nativeTap) run(started chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	handle := cgo.NewHandle(t)
	defer handle.Delete()

	ref := (*C.ScreenshotTap)(C.calloc(1, C.sizeof_ScreenshotTap))
	defer C.free(unsafe.Pointer(ref))

	switch C.screenshotTapCreate(ref, C.uintptr_t(handle)) {
	case 1:
		started <- ErrCantCreateEventTap
		return
	case 2:
		started <- ErrCantCreateRunLoopSource
		return
	}

	t.mu.Lock()
	t.ref = ref
	t.mu.Unlock()
	started <- nil
	log.Printf("Mouse: CGEventTap installed")

	for !t.stopped.Load() {
		C.screenshotTapRunOnce(C.double(runLoopSlice))
	}

	t.mu.Lock()
	t.ref = nil
	t.mu.Unlock()
	C.screenshotTapDestroy(ref)
	log.Printf("Mouse: CGEventTap removed")
}

//export goScreenshotTapEvent
func goScreenshotTapEvent(handle C.uintptr_t, eventType C.int, x, y C.double, keycode C.int64_t) {
	t, ok := cgo.Handle(uintptr(handle)).Value().(*nativeTap)
	if !ok || t.stopped.Load() {
		return
	}

	loc := geom.Point{X: float64(x), Y: float64(y)}
	var ev Event
	switch int(eventType) {
	case int(C.kCGEventLeftMouseDown), int(C.kCGEventRightMouseDown):
		ev = Event{Kind: KindButtonDown, Location: loc}
	case int(C.kCGEventLeftMouseUp), int(C.kCGEventRightMouseUp):
		ev = Event{Kind: KindButtonUp, Location: loc}
	case int(C.kCGEventLeftMouseDragged), int(C.kCGEventRightMouseDragged):
		ev = Event{Kind: KindDrag, Location: loc}
	case int(C.kCGEventKeyDown):
		ev = Event{Kind: KindKeyDown, Keycode: uint16(keycode)}
	case int(C.kCGEventKeyUp):
		ev = Event{Kind: KindKeyUp, Keycode: uint16(keycode)}
	default:
		return
	}
	t.emit(ev)
}
