package eventloop

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"screenshots/src/capture"
	"screenshots/src/config"
	"screenshots/src/hook"
	"screenshots/src/hotkey"
	"screenshots/src/session"
	"screenshots/src/singleinstance"
	"screenshots/src/tray"
)

// Mode selects what a capture request grabs.
type Mode int

const (
	ModeArea Mode = iota
	ModeWindow
)

func (m Mode) String() string {
	switch m {
	case ModeArea:
		return "area"
	case ModeWindow:
		return "window"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names String returns.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "area":
		return ModeArea, nil
	case "window":
		return ModeWindow, nil
	}
	return 0, fmt.Errorf("unknown capture mode %q", s)
}

// Executor runs one capture session to completion.
type Executor func(ctx context.Context, mode Mode) (session.Result, error)

// SessionExecutor captures with cli and delivers to target, scaled to the
// configured maximum size.
func SessionExecutor(cli *capture.CLI, cfg *config.Config, target session.ResultTarget) Executor {
	return func(ctx context.Context, mode Mode) (session.Result, error) {
		opts := session.Options{
			Target:    target,
			MaxWidth:  cfg.MaxWidth,
			MaxHeight: cfg.MaxHeight,
		}
		switch mode {
		case ModeWindow:
			opts.Capture = session.WindowCapture(cli, cfg.SoundEnabled, cfg.WindowShadowEnabled)
		default:
			opts.Capture = session.AreaCapture(cli, nil, cfg.SoundEnabled)
		}
		return session.Execute(ctx, opts)
	}
}

type Options struct {
	Execute Executor
	// Deadline bounds each capture; 0 waits as long as the user does.
	Deadline time.Duration
	// SetTooltip defaults to tray.UpdateTooltip.
	SetTooltip func(string)
	// OnBusy is called when a request arrives while a capture is running.
	OnBusy func(Mode)
	// OnError is called when a capture fails for a reason other than the
	// user cancelling.
	OnError func(Mode, error)
	// OnDetected receives screenshots reported through WatchHandler.
	OnDetected func(capture.Detected)
}

// Loop is the single-threaded coordinator for hotkey, tray and watcher
// events. Only one capture runs at a time.
type Loop struct {
	execute        Executor
	deadline       time.Duration
	setTooltip     func(string)
	onBusy         func(Mode)
	onDetected     func(capture.Detected)
	onError        func(Mode, error)
	busy           bool
	requests       chan request
	results        chan result
	detections     chan capture.Detected
	defaultTooltip string
	stops          []func()
}

// request is one capture to run. conn is set for delegated requests and
// receives the outcome.
type request struct {
	mode Mode
	conn singleinstance.Conn
}

type result struct {
	mode   Mode
	conn   singleinstance.Conn
	res    session.Result
	err    error
	cancel context.CancelFunc
}

func New(opts Options) *Loop {
	l := &Loop{
		execute:        opts.Execute,
		deadline:       opts.Deadline,
		setTooltip:     opts.SetTooltip,
		onBusy:         opts.OnBusy,
		onDetected:     opts.OnDetected,
		onError:        opts.OnError,
		requests:       make(chan request, 4),
		results:        make(chan result, 1),
		detections:     make(chan capture.Detected, 8),
		defaultTooltip: "Screenshots",
	}
	if l.setTooltip == nil {
		l.setTooltip = tray.UpdateTooltip
	}
	return l
}

// SetDefaultTooltip optionally sets the tray tooltip base text.
func (l *Loop) SetDefaultTooltip(tt string) { l.defaultTooltip = tt }

func (l *Loop) setBusy(b bool, mode Mode) {
	l.busy = b
	if b {
		l.setTooltip(fmt.Sprintf("Screenshots: capturing %s...", mode))
	} else {
		l.setTooltip(l.defaultTooltip)
	}
}

// Trigger posts a capture request. It reports false when the queue is full.
func (l *Loop) Trigger(mode Mode) bool {
	select {
	case l.requests <- request{mode: mode}:
		return true
	default:
		log.Printf("Eventloop: request queue full, dropping %s capture", mode)
		return false
	}
}

// StartHotkeys registers the area and window hotkeys from cfg. Empty combos
// are skipped. Listeners are removed when Run returns.
func (l *Loop) StartHotkeys(bus *hook.Bus, cfg *config.Config) error {
	bindings := []struct {
		combo string
		mode  Mode
	}{
		{cfg.ScreenshotHotkey, ModeArea},
		{cfg.WindowHotkey, ModeWindow},
	}
	for _, b := range bindings {
		if b.combo == "" {
			continue
		}
		mode := b.mode
		stop, err := hotkey.Listen(bus, b.combo, func() { l.Trigger(mode) })
		if err != nil {
			l.stopAll()
			return err
		}
		l.stops = append(l.stops, stop)
	}
	return nil
}

// Serve feeds requests from a resident server into the loop until ctx ends
// or the server closes.
func (l *Loop) Serve(ctx context.Context, srv singleinstance.Server) {
	go func() {
		for {
			conn, err := srv.Next(ctx)
			if err != nil {
				return
			}
			mode, err := ParseMode(conn.Request().Mode)
			if err != nil {
				_ = conn.RespondError(err.Error())
				_ = conn.Close()
				continue
			}
			select {
			case l.requests <- request{mode: mode, conn: conn}:
			case <-ctx.Done():
				_ = conn.RespondError("daemon shutting down")
				_ = conn.Close()
				return
			}
		}
	}()
}

// WatchHandler returns a handler for capture.NewScreenshotWatcher that feeds
// detections into the loop.
func (l *Loop) WatchHandler() func(capture.Detected) {
	return func(d capture.Detected) {
		select {
		case l.detections <- d:
		default:
			log.Printf("Eventloop: detection queue full, dropping %s", d.Path)
		}
	}
}

// Run processes requests until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l.execute == nil {
		return fmt.Errorf("eventloop: no executor")
	}
	defer l.stopAll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-l.requests:
			l.startRequest(ctx, req)
		case res := <-l.results:
			l.handleResult(res)
		case d := <-l.detections:
			l.handleDetected(d)
		}
	}
}

func (l *Loop) startRequest(ctx context.Context, req request) {
	mode := req.mode
	if l.busy {
		log.Printf("Eventloop: busy, skipping %s capture", mode)
		if req.conn != nil {
			_ = req.conn.RespondError("busy, please retry")
			_ = req.conn.Close()
		}
		if l.onBusy != nil {
			l.onBusy(mode)
		}
		return
	}

	var jobCtx context.Context
	var cancel context.CancelFunc
	if l.deadline > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, l.deadline)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}

	l.setBusy(true, mode)
	log.Printf("Eventloop: starting %s capture", mode)
	go func() {
		res, err := l.execute(jobCtx, mode)
		l.results <- result{mode: mode, conn: req.conn, res: res, err: err, cancel: cancel}
	}()
}

func (l *Loop) handleResult(r result) {
	defer func() {
		l.setBusy(false, r.mode)
		if r.cancel != nil {
			r.cancel()
		}
	}()

	switch {
	case r.err == nil:
		var b image.Rectangle
		if r.res.Image != nil {
			b = r.res.Image.Bounds()
		}
		if r.res.Path != "" {
			log.Printf("Eventloop: %s capture %dx%d saved to %s", r.mode, b.Dx(), b.Dy(), r.res.Path)
		} else {
			log.Printf("Eventloop: %s capture %dx%d delivered", r.mode, b.Dx(), b.Dy())
		}
	case session.Cancelled(r.err):
		log.Printf("Eventloop: %s capture cancelled", r.mode)
	default:
		log.Printf("Eventloop: %s capture failed: %v", r.mode, r.err)
		if l.onError != nil {
			l.onError(r.mode, r.err)
		}
	}
	if r.conn != nil {
		reply(r)
	}
}

func reply(r result) {
	defer r.conn.Close()
	var err error
	switch {
	case r.err == nil:
		err = r.conn.RespondSuccess(r.res.Path)
	case session.Cancelled(r.err):
		err = r.conn.RespondCancelled()
	default:
		err = r.conn.RespondError(r.err.Error())
	}
	if err != nil {
		log.Printf("Eventloop: reply to client failed: %v", err)
	}
}

func (l *Loop) handleDetected(d capture.Detected) {
	if d.Err != nil {
		log.Printf("Eventloop: screenshot %s: %v (after %d retries)", d.Path, d.Err, d.Retries)
	} else {
		log.Printf("Eventloop: screenshot %s at %s", d.Path, d.Rect)
	}
	if l.onDetected != nil {
		l.onDetected(d)
	}
}

func (l *Loop) stopAll() {
	for _, stop := range l.stops {
		stop()
	}
	l.stops = nil
}
