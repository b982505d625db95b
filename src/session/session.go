package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"screenshots/src/capture"
	"screenshots/src/clipboard"
	"screenshots/src/geom"
	"screenshots/src/imaging"
	"screenshots/src/logutil"
)

// CaptureFunc produces one decoded capture.
type CaptureFunc func(ctx context.Context) (capture.ScreenshotImage, error)

// Result is what a session hands to its target.
type Result struct {
	Image   image.Image
	PNG     []byte
	Rect    geom.Rect
	HasRect bool
	// Path is set by FileTarget once the PNG is written.
	Path string
}

type ResultTarget interface {
	OnSuccess(res *Result) error
	OnFailure(err error) error
}

type Options struct {
	Capture CaptureFunc
	Target  ResultTarget
	// MaxWidth and MaxHeight bound the delivered image; 0 disables scaling.
	MaxWidth  int
	MaxHeight int
	// Deadline bounds the whole capture; 0 waits as long as the user does.
	Deadline time.Duration
}

// AreaCapture captures an area with cli.
func AreaCapture(cli *capture.CLI, params *capture.Params, soundEnabled bool) CaptureFunc {
	return func(ctx context.Context) (capture.ScreenshotImage, error) {
		return cli.CaptureScreenshotImage(ctx, params, soundEnabled)
	}
}

// WindowCapture captures a window with cli.
func WindowCapture(cli *capture.CLI, soundEnabled, windowShadowEnabled bool) CaptureFunc {
	return func(ctx context.Context) (capture.ScreenshotImage, error) {
		img, err := cli.CaptureWindowImage(ctx, soundEnabled, windowShadowEnabled)
		if err != nil {
			return capture.ScreenshotImage{}, err
		}
		return capture.ScreenshotImage{Image: img}, nil
	}
}

func Execute(ctx context.Context, opts Options) (Result, error) {
	if opts.Capture == nil {
		return Result{}, errors.New("Capture is required")
	}
	if opts.Target == nil {
		return Result{}, errors.New("Target is required")
	}

	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	shot, err := opts.Capture(ctx)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}

	img := imaging.ScaleToFit(shot.Image, opts.MaxWidth, opts.MaxHeight)
	data, err := imaging.EncodePNG(img)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}

	res := Result{Image: img, PNG: data, Rect: shot.Rect, HasRect: shot.HasRect}
	if err := opts.Target.OnSuccess(&res); err != nil {
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}
	log.Printf("Session: delivered %dx%d capture (%d bytes)", img.Bounds().Dx(), img.Bounds().Dy(), len(data))
	return res, nil
}

// Cancelled reports whether err means the user backed out of the capture.
func Cancelled(err error) bool {
	return errors.Is(err, capture.ErrUserCancelled) || errors.Is(err, context.Canceled)
}

type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(res *Result) error {
	return clipboard.WriteImage(res.PNG)
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

// FileTarget saves the PNG into Dir.
type FileTarget struct {
	Dir string
	// Now is used for the file name; defaults to time.Now.
	Now func() time.Time
}

func (t FileTarget) OnSuccess(res *Result) error {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("Screenshot %s.png", now().Format("2006-01-02 at 15.04.05.000"))
	path := filepath.Join(t.Dir, name)
	if err := os.WriteFile(path, res.PNG, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	res.Path = path
	log.Printf("Session: saved %s", logutil.SanitizeForLog(name, 120))
	return nil
}

func (FileTarget) OnFailure(err error) error {
	return nil
}

// StdoutTarget prints one JSON line per result.
type StdoutTarget struct {
	Writer io.Writer
}

type stdoutRecord struct {
	Path   string     `json:"path,omitempty"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Rect   *geom.Rect `json:"rect,omitempty"`
	Error  string     `json:"error,omitempty"`
}

func (t StdoutTarget) writer() io.Writer {
	if t.Writer == nil {
		return os.Stdout
	}
	return t.Writer
}

func (t StdoutTarget) OnSuccess(res *Result) error {
	rec := stdoutRecord{Path: res.Path}
	if res.Image != nil {
		rec.Width, rec.Height = res.Image.Bounds().Dx(), res.Image.Bounds().Dy()
	}
	if res.HasRect {
		r := res.Rect
		rec.Rect = &r
	}
	return json.NewEncoder(t.writer()).Encode(rec)
}

func (t StdoutTarget) OnFailure(err error) error {
	if err == nil {
		return nil
	}
	return json.NewEncoder(t.writer()).Encode(stdoutRecord{Error: err.Error()})
}

// Targets delivers to each target in order. OnSuccess stops at the first
// failure so later targets (stdout) can report earlier outputs (files).
type Targets []ResultTarget

func (ts Targets) OnSuccess(res *Result) error {
	for _, t := range ts {
		if err := t.OnSuccess(res); err != nil {
			return err
		}
	}
	return nil
}

func (ts Targets) OnFailure(err error) error {
	var errs []error
	for _, t := range ts {
		errs = append(errs, t.OnFailure(err))
	}
	return errors.Join(errs...)
}
