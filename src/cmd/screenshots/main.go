package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screenshots/src/capture"
	"screenshots/src/clipboard"
	"screenshots/src/config"
	"screenshots/src/display"
	"screenshots/src/eventloop"
	"screenshots/src/geom"
	"screenshots/src/hook"
	"screenshots/src/logutil"
	"screenshots/src/notification"
	"screenshots/src/permissions"
	"screenshots/src/runtimeinit"
	"screenshots/src/session"
	"screenshots/src/singleinstance"
	"screenshots/src/tray"
)

// exitCancelled is returned when the user backs out of a capture.
const exitCancelled = 2

// errCancelled marks a capture the user aborted; main exits quietly with
// exitCancelled.
var errCancelled = errors.New("capture cancelled")

// Replaced in tests.
var newCaptureCLI = runtimeinit.NewCaptureCLI

func init() {
	// The menu-bar app must run on the main thread.
	runtime.LockOSThread()
}

type rootOptions struct {
	configPath string
	envPath    string
	captureDir string
	backend    string
	verbose    bool
}

type outputOptions struct {
	outDir    string
	clipboard bool
	jsonOut   bool
	maxWidth  int
	maxHeight int
	mute      bool
	timeout   time.Duration
}

func main() {
	if err := runWithArgs(os.Args); err != nil {
		if errors.Is(err, errCancelled) {
			os.Exit(exitCancelled)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screenshots"}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args[1:])
	return cmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "screenshots",
		Short:         "Capture screenshots with macOS screencapture and report the selected rectangle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to config.toml (overrides "+config.ConfigPathEnvVar+")")
	pf.StringVar(&opts.envPath, "env", "", "Path to a .env file")
	pf.StringVar(&opts.captureDir, "capture-dir", "", "Directory for temporary capture files")
	pf.StringVar(&opts.backend, "backend", "", "Input event backend: native or gohook")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	cmd.AddCommand(
		newCaptureCmd(opts),
		newWindowCmd(opts),
		newWatchCmd(opts),
		newDisplaysCmd(opts),
		newPermissionsCmd(opts),
		newDaemonCmd(opts),
		newTriggerCmd(opts),
	)
	return cmd
}

func bootstrap(opts *rootOptions, out outputOptions, interactive bool) (*config.Config, error) {
	return runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			ConfigPathOverride:   opts.configPath,
			EnvPathOverride:      opts.envPath,
			CaptureDirOverride:   opts.captureDir,
			OutputDirOverride:    out.outDir,
			EventBackendOverride: opts.backend,
		},
		SetupLogging: func(enableFileLogging bool, dir string) {
			if opts.verbose {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
				log.SetOutput(os.Stderr)
				return
			}
			logutil.Setup(enableFileLogging, dir)
		},
		InitClipboard:      out.clipboard,
		RequestPermissions: interactive,
	})
}

func addOutputFlags(cmd *cobra.Command, out *outputOptions) {
	f := cmd.Flags()
	f.StringVarP(&out.outDir, "out", "o", "", "Save the PNG into this directory (default: output_dir, else the working directory)")
	f.BoolVarP(&out.clipboard, "clipboard", "c", false, "Copy the PNG to the clipboard")
	f.BoolVar(&out.jsonOut, "json", false, "Print a JSON record instead of the file path")
	f.IntVar(&out.maxWidth, "max-width", 0, "Scale down to at most this width (0 = config)")
	f.IntVar(&out.maxHeight, "max-height", 0, "Scale down to at most this height (0 = config)")
	f.BoolVar(&out.mute, "mute", false, "Do not play the camera sound")
	f.DurationVar(&out.timeout, "timeout", 0, "Give up after this long (0 = wait for the user)")
}

// buildTarget picks where a capture goes. Without --clipboard the PNG is
// always saved so there is a path to report.
func buildTarget(cfg *config.Config, out outputOptions, stdout io.Writer) session.ResultTarget {
	var targets session.Targets
	dir := cfg.OutputDir
	if dir == "" && !out.clipboard {
		dir = "."
	}
	if dir != "" {
		targets = append(targets, session.FileTarget{Dir: dir})
	}
	if out.clipboard {
		targets = append(targets, session.ClipboardTarget{})
	}
	if out.jsonOut {
		targets = append(targets, session.StdoutTarget{Writer: stdout})
	}
	return targets
}

func maxSize(cfg *config.Config, out outputOptions) (int, int) {
	w, h := cfg.MaxWidth, cfg.MaxHeight
	if out.maxWidth > 0 {
		w = out.maxWidth
	}
	if out.maxHeight > 0 {
		h = out.maxHeight
	}
	return w, h
}

func runSession(cmd *cobra.Command, cfg *config.Config, out outputOptions, newCapture func(*capture.CLI) session.CaptureFunc) error {
	cli, pool := newCaptureCLI(cfg, hook.Default())
	defer pool.Close()
	defer cli.Close()

	maxW, maxH := maxSize(cfg, out)
	res, err := session.Execute(cmd.Context(), session.Options{
		Capture:   newCapture(cli),
		Target:    buildTarget(cfg, out, cmd.OutOrStdout()),
		MaxWidth:  maxW,
		MaxHeight: maxH,
		Deadline:  out.timeout,
	})
	if err != nil {
		if session.Cancelled(err) {
			return errCancelled
		}
		return err
	}
	if !out.jsonOut && res.Path != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Path)
	}
	return nil
}

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	var out outputOptions
	var rect string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture an area, interactively or from --rect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var params *capture.Params
			if rect != "" {
				r, err := parseRect(rect)
				if err != nil {
					return err
				}
				params = &capture.Params{SelectionRect: &r}
			}
			cfg, err := bootstrap(opts, out, params == nil)
			if err != nil {
				return err
			}
			if params != nil {
				r, err := clampToScreen(*params.SelectionRect)
				if err != nil {
					return err
				}
				params.SelectionRect = &r
			}
			sound := cfg.SoundEnabled && !out.mute
			return runSession(cmd, cfg, out, func(cli *capture.CLI) session.CaptureFunc {
				return session.AreaCapture(cli, params, sound)
			})
		},
	}
	cmd.Flags().StringVar(&rect, "rect", "", "Capture x,y,width,height in global screen points without user interaction")
	addOutputFlags(cmd, &out)
	return cmd
}

func newWindowCmd(opts *rootOptions) *cobra.Command {
	var out outputOptions
	var noShadow bool
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Capture the window the user clicks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap(opts, out, false)
			if err != nil {
				return err
			}
			sound := cfg.SoundEnabled && !out.mute
			shadow := cfg.WindowShadowEnabled && !noShadow
			return runSession(cmd, cfg, out, func(cli *capture.CLI) session.CaptureFunc {
				return session.WindowCapture(cli, sound, shadow)
			})
		},
	}
	cmd.Flags().BoolVar(&noShadow, "no-shadow", false, "Leave out the window shadow")
	addOutputFlags(cmd, &out)
	return cmd
}

type detectionRecord struct {
	Path    string     `json:"path"`
	Rect    *geom.Rect `json:"rect,omitempty"`
	Retries int        `json:"retries"`
	Error   string     `json:"error,omitempty"`
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var dir string
	var copyRect bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report screenshots the system saves, with their capture rectangle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap(opts, outputOptions{clipboard: copyRect}, false)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.WatchDir
			}

			var mu sync.Mutex
			enc := json.NewEncoder(cmd.OutOrStdout())
			sw, err := capture.NewScreenshotWatcher(capture.WatcherOptions{Directory: dir}, func(d capture.Detected) {
				rec := detectionRecord{Path: d.Path, Retries: d.Retries}
				if d.HasRect {
					r := d.Rect
					rec.Rect = &r
					if copyRect {
						if err := clipboard.Write(formatRect(r)); err != nil {
							log.Printf("CLI: copy rect: %v", err)
						}
					}
				}
				if d.Err != nil {
					rec.Error = d.Err.Error()
				}
				mu.Lock()
				defer mu.Unlock()
				_ = enc.Encode(rec)
			})
			if err != nil {
				return err
			}
			if !sw.Start() {
				return fmt.Errorf("%w: cannot watch %s", capture.ErrScreenshotDirectoryInvalid, sw.Dir())
			}
			defer sw.Stop()
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", sw.Dir())
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to watch (default: watch_dir, else ~/Desktop)")
	cmd.Flags().BoolVar(&copyRect, "copy-rect", false, "Copy each capture rectangle as x,y,width,height for 'capture --rect'")
	return cmd
}

func newDisplaysCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "displays",
		Short: "List active displays in global screen coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bootstrap(opts, outputOptions{}, false); err != nil {
				return err
			}
			displays, err := display.List(display.System)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(w).Encode(displays)
			}
			for _, d := range displays {
				fmt.Fprintf(w, "%d\t%s\n", d.Index, d.Bounds)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}

func newPermissionsCmd(opts *rootOptions) *cobra.Command {
	var request bool
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Show whether Input Monitoring access is granted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bootstrap(opts, outputOptions{}, request); err != nil {
				return err
			}
			p := permissions.CheckInputMonitoring(nil)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "input monitoring: %s\n", p.StatusString())
			if p.Message != "" {
				fmt.Fprintf(w, "  %s\n", p.Message)
			}
			if p.Guidance != "" {
				fmt.Fprintf(w, "  %s\n", p.Guidance)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&request, "request", false, "Prompt for access if it was never decided")
	return cmd
}

func newDaemonCmd(opts *rootOptions) *cobra.Command {
	var noTray bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Stay resident: hotkeys and a menu-bar item trigger captures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap(opts, outputOptions{clipboard: true}, true)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg, !noTray)
		},
	}
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "Run without the menu-bar item")
	return cmd
}

func runDaemon(parent context.Context, cfg *config.Config, withTray bool) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	srv := singleinstance.NewServer()
	if err := srv.Start(ctx); err != nil {
		if port, ok := singleinstance.DetectResidentPort(ctx); ok {
			return fmt.Errorf("a daemon is already running on port %d", port)
		}
		return fmt.Errorf("cannot claim the daemon port: %w", err)
	}
	defer srv.Close()

	bus := hook.Default()
	cli, pool := newCaptureCLI(cfg, bus)
	defer pool.Close()
	defer cli.Close()

	targets := session.Targets{session.ClipboardTarget{}}
	if cfg.OutputDir != "" {
		targets = append(session.Targets{session.FileTarget{Dir: cfg.OutputDir}}, targets...)
	}

	tooltip := fmt.Sprintf("Screenshots - %s area, %s window", cfg.ScreenshotHotkey, cfg.WindowHotkey)
	loop := eventloop.New(eventloop.Options{
		Execute:  eventloop.SessionExecutor(cli, cfg, targets),
		Deadline: cfg.CaptureTimeout(),
		OnDetected: func(d capture.Detected) {
			notification.Show(detectedNotice(d))
		},
		OnBusy: func(eventloop.Mode) {
			notification.Show("Screenshots", "Busy, please retry")
		},
		OnError: func(mode eventloop.Mode, err error) {
			notification.Show(fmt.Sprintf("Screenshot (%s) failed", mode), err.Error())
		},
	})
	loop.SetDefaultTooltip(tooltip)
	if err := loop.StartHotkeys(bus, cfg); err != nil {
		return err
	}

	if cfg.WatchDir != "" {
		sw, err := capture.NewScreenshotWatcher(capture.WatcherOptions{Directory: cfg.WatchDir}, loop.WatchHandler())
		if err != nil {
			return err
		}
		if sw.Start() {
			defer sw.Stop()
			log.Printf("Daemon: watching %s", sw.Dir())
		} else {
			log.Printf("Daemon: cannot watch %s", sw.Dir())
		}
	}

	loop.Serve(ctx, srv)
	log.Printf("Daemon: started on port %d (area %s, window %s)", srv.Port(), cfg.ScreenshotHotkey, cfg.WindowHotkey)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	if !withTray {
		err := <-done
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	go func() {
		<-ctx.Done()
		tray.Quit()
	}()
	tray.Run(tray.Menu{
		Title:           "Screenshots",
		OnCaptureArea:   func() { loop.Trigger(eventloop.ModeArea) },
		OnCaptureWindow: func() { loop.Trigger(eventloop.ModeWindow) },
		OnOpenFolder:    openFolderAction(cfg.OutputDir),
		OnQuit:          cancel,
	})
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newTriggerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "trigger [area|window]",
		Short:     "Ask the running daemon to capture and print the saved path",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"area", "window"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := eventloop.ModeArea
			if len(args) == 1 {
				m, err := eventloop.ParseMode(args[0])
				if err != nil {
					return err
				}
				mode = m
			}
			if _, err := bootstrap(opts, outputOptions{}, false); err != nil {
				return err
			}
			delegated, path, err := singleinstance.NewClient().TryCapture(cmd.Context(), mode.String())
			switch {
			case errors.Is(err, singleinstance.ErrCancelled):
				return errCancelled
			case err != nil:
				return err
			case !delegated:
				start, end := singleinstance.PortRange()
				return fmt.Errorf("no daemon found on ports %d-%d; start one with 'screenshots daemon'", start, end)
			}
			if path != "" {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}

func openFolderAction(dir string) func() {
	if dir == "" {
		return nil
	}
	return func() {
		if err := exec.Command("/usr/bin/open", dir).Run(); err != nil {
			log.Printf("Daemon: open %s: %v", dir, err)
		}
	}
}

// detectedNotice describes a screenshot taken with the system shortcut. The
// body is the rect in the form 'capture --rect' accepts.
func detectedNotice(d capture.Detected) (title, body string) {
	name := filepath.Base(d.Path)
	switch {
	case d.HasRect:
		return "Screenshot " + name, formatRect(d.Rect)
	case d.Err != nil:
		return "Screenshot " + name, fmt.Sprintf("no capture rect: %v", d.Err)
	default:
		return "Screenshot " + name, "no capture rect"
	}
}

// clampToScreen trims r to the virtual screen. A rect fully inside is
// returned unchanged. Without any reported display r is passed through and
// screencapture decides.
func clampToScreen(r geom.Rect) (geom.Rect, error) {
	if _, err := display.List(display.System); err != nil {
		log.Printf("CLI: %v, capturing %s unchecked", err, r)
		return r, nil
	}
	clamped, ok := display.Clamp(display.System, r)
	if !ok {
		return geom.Rect{}, fmt.Errorf("rect %s is not on any display", r)
	}
	if clamped != r.Integral() {
		log.Printf("CLI: rect %s clamped to %s", r, clamped)
		r = clamped
	}
	if d, ok := display.Containing(display.System, r); ok {
		log.Printf("CLI: capturing on display %d", d.Index)
	}
	return r, nil
}

// formatRect is the inverse of parseRect.
func formatRect(r geom.Rect) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{f(r.X), f(r.Y), f(r.Width), f(r.Height)}, ",")
}

// parseRect reads "x,y,width,height" in points.
func parseRect(s string) (geom.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Rect{}, fmt.Errorf("invalid rect %q: want x,y,width,height", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, fmt.Errorf("invalid rect %q: %w", s, err)
		}
		v[i] = f
	}
	r := geom.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Width < 0 || r.Height < 0 || r.IsEmpty() {
		return geom.Rect{}, fmt.Errorf("invalid rect %q: width and height must be positive", s)
	}
	return r, nil
}
