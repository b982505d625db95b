// Package capture drives /usr/sbin/screencapture and pairs each screenshot
// with the rectangle the user selected.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"screenshots/src/geom"
	"screenshots/src/hook"
	"screenshots/src/mouse"
	"screenshots/src/selection"
	"screenshots/src/worker"
)

// DefaultExecutable is the macOS screenshot tool.
const DefaultExecutable = "/usr/sbin/screencapture"

// Tracker observes the user's selection while screencapture runs.
// *selection.Handler satisfies it.
type Tracker interface {
	StartEventsMonitor() error
	StopEventsMonitor()
	ScreenshotRect() (geom.Rect, bool)
}

// Options configures a CLI. Zero values pick the defaults noted per field.
type Options struct {
	// Directory receives capture files. Default: os.UserCacheDir().
	Directory string
	// Executable defaults to DefaultExecutable.
	Executable string
	// Runner defaults to ExecRunner.
	Runner Runner
	// NewTracker builds one tracker per area capture. Default: a
	// selection.Handler over EventBackend.
	NewTracker func() Tracker
	// EventBackend is passed to mouse.NewSource ("native" or "gohook").
	EventBackend string
	// Bus backs the gohook event backend. Default: hook.Default().
	Bus *hook.Bus
	// PanKey overrides the pan modifier keycode (default space).
	PanKey uint16
	// Cleanup removes temp files after decoding. Default: a private
	// single-worker pool that Close drains.
	Cleanup *worker.Pool
}

// CLI runs captures one at a time.
type CLI struct {
	executable string
	runner     Runner
	newTracker func() Tracker
	directory  func() (string, error)

	cleanup     *worker.Pool
	ownsCleanup bool

	busy atomic.Bool
}

// New builds a CLI from opts.
func New(opts Options) *CLI {
	c := &CLI{
		executable: opts.Executable,
		runner:     opts.Runner,
		newTracker: opts.NewTracker,
		cleanup:    opts.Cleanup,
	}
	if c.executable == "" {
		c.executable = DefaultExecutable
	}
	if c.runner == nil {
		c.runner = ExecRunner{}
	}
	if c.newTracker == nil {
		backend, bus, panKey := opts.EventBackend, opts.Bus, opts.PanKey
		c.newTracker = func() Tracker {
			var mopts []mouse.Option
			if panKey != 0 {
				mopts = append(mopts, mouse.WithPanKey(panKey))
			}
			return selection.NewHandler(mouse.New(mouse.NewSource(backend, bus), mopts...))
		}
	}
	if c.cleanup == nil {
		c.cleanup = worker.New(1)
		c.ownsCleanup = true
	}

	dir := opts.Directory
	c.directory = func() (string, error) {
		if dir != "" {
			return dir, nil
		}
		return os.UserCacheDir()
	}
	return c
}

// Close waits for pending temp-file removals. The CLI stays usable; later
// removals run inline.
func (c *CLI) Close() {
	if c.ownsCleanup {
		c.cleanup.Close()
	}
}

// Busy reports whether a capture is running.
func (c *CLI) Busy() bool { return c.busy.Load() }

// CaptureScreenshot runs an area capture and blocks until screencapture exits.
// With params.SelectionRect set the rectangle is captured non-interactively
// and returned as is (made integral); otherwise the rectangle the user dragged
// is reported when one was observed.
func (c *CLI) CaptureScreenshot(ctx context.Context, params *Params, soundEnabled bool) (Screenshot, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Screenshot{}, ErrCaptureInProgress
	}
	defer c.busy.Store(false)

	path, err := c.createPath("Screen Shot ")
	if err != nil {
		return Screenshot{}, fmt.Errorf("%w: %v", ErrScreenshotDirectoryInvalid, err)
	}

	var explicit *geom.Rect
	if params != nil {
		explicit = params.SelectionRect
	}

	// The tracker must be listening before screencapture can see a drag and
	// keep listening until it exits.
	tracker := c.newTracker()
	if err := tracker.StartEventsMonitor(); err != nil {
		log.Printf("Capture: continuing without selection tracking: %v", err)
	}
	defer tracker.StopEventsMonitor()

	if err := c.run(ctx, screenshotArgs(explicit, soundEnabled), path); err != nil {
		return Screenshot{}, err
	}

	shot := Screenshot{Path: path}
	if explicit != nil {
		shot.Rect, shot.HasRect = explicit.Integral(), true
	} else if rect, ok := tracker.ScreenshotRect(); ok {
		shot.Rect, shot.HasRect = rect.Integral(), true
	}
	log.Printf("Capture: screenshot %s rect=%v (has=%t)", filepath.Base(path), shot.Rect, shot.HasRect)
	return shot, nil
}

// CaptureScreenshotImage captures, decodes, and removes the capture file.
func (c *CLI) CaptureScreenshotImage(ctx context.Context, params *Params, soundEnabled bool) (ScreenshotImage, error) {
	shot, err := c.CaptureScreenshot(ctx, params, soundEnabled)
	if err != nil {
		return ScreenshotImage{}, err
	}
	img, err := c.decodeAndDiscard(shot.Path)
	if err != nil {
		return ScreenshotImage{}, err
	}
	return ScreenshotImage{Image: img, Rect: shot.Rect, HasRect: shot.HasRect}, nil
}

// CaptureWindow lets the user click a window and returns the capture path.
// No rectangle is tracked in window mode.
func (c *CLI) CaptureWindow(ctx context.Context, soundEnabled, windowShadowEnabled bool) (string, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return "", ErrCaptureInProgress
	}
	defer c.busy.Store(false)

	path, err := c.createPath("Window capture ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCantCreateWindowCaptureURL, err)
	}
	if err := c.run(ctx, windowArgs(soundEnabled, windowShadowEnabled), path); err != nil {
		return "", err
	}
	log.Printf("Capture: window %s", filepath.Base(path))
	return path, nil
}

// CaptureWindowImage is CaptureWindow plus decoding and file removal.
func (c *CLI) CaptureWindowImage(ctx context.Context, soundEnabled, windowShadowEnabled bool) (image.Image, error) {
	path, err := c.CaptureWindow(ctx, soundEnabled, windowShadowEnabled)
	if err != nil {
		return nil, err
	}
	return c.decodeAndDiscard(path)
}

func (c *CLI) createPath(prefix string) (string, error) {
	dir, err := c.directory()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, prefix+strings.ToUpper(uuid.NewString())+".png"), nil
}

// run executes screencapture and classifies the outcome. A clean exit without
// the destination file is the only cancellation signal screencapture gives.
func (c *CLI) run(ctx context.Context, flags, path string) error {
	status, output, err := c.runner.Run(ctx, c.executable, flags, path)
	if err != nil {
		return fmt.Errorf("run %s: %w", c.executable, err)
	}
	if status != 0 {
		return &TerminationStatusError{Status: status, Output: output}
	}
	if _, err := os.Stat(path); err != nil {
		return ErrUserCancelled
	}
	return nil
}

// screenshotArgs builds the single flag token for an area capture.
func screenshotArgs(rect *geom.Rect, soundEnabled bool) string {
	var b strings.Builder
	b.WriteByte('-')
	if !soundEnabled {
		b.WriteByte('x')
	}
	if rect != nil {
		fmt.Fprintf(&b, "R%d,%d,%d,%d", int(rect.X), int(rect.Y), int(rect.Width), int(rect.Height))
	} else {
		b.WriteByte('s')
	}
	return b.String()
}

func windowArgs(soundEnabled, windowShadowEnabled bool) string {
	args := "-w"
	if !soundEnabled {
		args += "x"
	}
	if !windowShadowEnabled {
		args += "o"
	}
	return args
}
