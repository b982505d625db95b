package capture

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"screenshots/src/geom"
	"screenshots/src/watcher"
)

const (
	defaultMaxRetries = 10
	defaultRetryWait  = 100 * time.Millisecond
)

// Detected is a screenshot that appeared in a watched directory. Err is
// ErrMissingMetadataRect when no capture rectangle could be read.
type Detected struct {
	Path    string
	Rect    geom.Rect
	HasRect bool
	Retries int
	Err     error
}

// RectReader returns the global capture rectangle recorded for a screenshot
// file, or false when the metadata is not there (yet).
type RectReader func(ctx context.Context, path string) (geom.Rect, bool)

// WatcherOptions configures a ScreenshotWatcher.
type WatcherOptions struct {
	// Directory defaults to ~/Desktop, where macOS saves screenshots.
	Directory  string
	MaxRetries int
	RetryWait  time.Duration
	// ReadRect defaults to MetadataRectReader(ExecRunner{}).
	ReadRect RectReader
}

// ScreenshotWatcher reports screenshots the system saves into a directory,
// for example after the user presses Cmd-Shift-4.
type ScreenshotWatcher struct {
	opts    WatcherOptions
	dw      *watcher.Watcher
	handler func(Detected)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScreenshotWatcher builds a stopped watcher that delivers detections to
// handler.
func NewScreenshotWatcher(opts WatcherOptions, handler func(Detected)) (*ScreenshotWatcher, error) {
	if opts.Directory == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScreenshotDirectoryInvalid, err)
		}
		opts.Directory = filepath.Join(home, "Desktop")
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}
	if opts.ReadRect == nil {
		opts.ReadRect = MetadataRectReader(ExecRunner{})
	}

	sw := &ScreenshotWatcher{opts: opts, handler: handler}
	sw.dw = watcher.New(opts.Directory, sw)
	return sw, nil
}

// Start begins watching. It returns false if already running or the
// directory cannot be watched.
func (sw *ScreenshotWatcher) Start() bool {
	if sw.dw.IsRunning() {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	sw.ctx, sw.cancel = ctx, cancel
	if !sw.dw.Start() {
		cancel()
		return false
	}
	return true
}

// Dir returns the watched directory.
func (sw *ScreenshotWatcher) Dir() string { return sw.opts.Directory }

// Stop ends the watch and abandons pending metadata retries.
func (sw *ScreenshotWatcher) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	sw.dw.Stop()
}

// DirectoryChanged implements watcher.Delegate.
func (sw *ScreenshotWatcher) DirectoryChanged(_ *watcher.Watcher, changes watcher.ChangeSet) {
	if changes.Empty() {
		return
	}
	for _, path := range changes.NewFiles {
		if !IsScreenshotName(filepath.Base(path)) {
			continue
		}
		go sw.resolve(sw.ctx, path)
		return
	}
}

// DirectoryError implements watcher.Delegate.
func (sw *ScreenshotWatcher) DirectoryError(_ *watcher.Watcher, err error) {
	log.Printf("ScreenshotWatcher: %v", err)
}

func (sw *ScreenshotWatcher) resolve(ctx context.Context, path string) {
	d := Detected{Path: path}
	for {
		if rect, ok := sw.opts.ReadRect(ctx, path); ok {
			d.Rect, d.HasRect = rect, true
			break
		}
		if d.Retries >= sw.opts.MaxRetries {
			d.Err = ErrMissingMetadataRect
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sw.opts.RetryWait):
		}
		d.Retries++
	}
	if ctx.Err() != nil {
		return
	}
	if sw.handler != nil {
		sw.handler(d)
	}
}

// IsScreenshotName matches the file names macOS gives saved screenshots.
func IsScreenshotName(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), ".png") {
		return false
	}
	return strings.Contains(name, "Screen Shot") || strings.Contains(name, "Screenshot")
}

// MetadataRectReader reads kMDItemScreenCaptureGlobalRect through mdls.
func MetadataRectReader(r Runner) RectReader {
	return func(ctx context.Context, path string) (geom.Rect, bool) {
		status, out, err := r.Run(ctx, "/usr/bin/mdls", "-raw", "-name", "kMDItemScreenCaptureGlobalRect", path)
		if err != nil || status != 0 {
			return geom.Rect{}, false
		}
		return parseMetadataRect(string(out))
	}
}

// parseMetadataRect parses mdls -raw output such as "(\n    10,\n    20,\n    300,\n    200\n)".
func parseMetadataRect(raw string) (geom.Rect, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "(") || !strings.HasSuffix(raw, ")") {
		return geom.Rect{}, false
	}
	fields := strings.Split(strings.Trim(raw, "()"), ",")
	if len(fields) != 4 {
		return geom.Rect{}, false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return geom.Rect{}, false
		}
		v[i] = n
	}
	return geom.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, true
}
