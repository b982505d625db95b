package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshots/src/capture"
	"screenshots/src/config"
	"screenshots/src/display"
	"screenshots/src/geom"
	"screenshots/src/hook"
	"screenshots/src/permissions"
	"screenshots/src/session"
	"screenshots/src/singleinstance"
	"screenshots/src/worker"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.ConfigPathEnvVar, filepath.Join(dir, "missing.toml"))
	t.Setenv(config.EnvPathEnvVar, filepath.Join(dir, "missing.env"))
	t.Setenv("OUTPUT_DIR", "")
	t.Setenv("MAX_WIDTH", "")
	t.Setenv("MAX_HEIGHT", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// pngRunner writes a small PNG where screencapture would, or nothing when
// cancel is set.
type pngRunner struct {
	args   []string
	cancel bool
}

func (r *pngRunner) Run(_ context.Context, name string, args ...string) (int, []byte, error) {
	r.args = append([]string{name}, args...)
	if r.cancel {
		return 0, nil, nil
	}
	f, err := os.Create(args[len(args)-1])
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()
	return 0, nil, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 40, 20)))
}

type idleTracker struct{}

func (idleTracker) StartEventsMonitor() error         { return nil }
func (idleTracker) StopEventsMonitor()                {}
func (idleTracker) ScreenshotRect() (geom.Rect, bool) { return geom.Rect{}, false }

func fakeCaptureCLI(t *testing.T, runner capture.Runner) {
	t.Helper()
	captureDir := t.TempDir()
	orig := newCaptureCLI
	newCaptureCLI = func(cfg *config.Config, _ *hook.Bus) (*capture.CLI, *worker.Pool) {
		pool := worker.New(1)
		return capture.New(capture.Options{
			Directory:  captureDir,
			Runner:     runner,
			NewTracker: func() capture.Tracker { return idleTracker{} },
			Cleanup:    pool,
		}), pool
	}
	t.Cleanup(func() { newCaptureCLI = orig })
}

type fakeDisplays []image.Rectangle

func (f fakeDisplays) NumActiveDisplays() int                 { return len(f) }
func (f fakeDisplays) GetDisplayBounds(i int) image.Rectangle { return f[i] }

func useDisplays(t *testing.T, p display.Provider) {
	t.Helper()
	orig := display.System
	display.System = p
	t.Cleanup(func() { display.System = orig })
}

func TestParseRect(t *testing.T) {
	tests := []struct {
		in      string
		want    geom.Rect
		wantErr bool
	}{
		{"10,20,300,200", geom.Rect{X: 10, Y: 20, Width: 300, Height: 200}, false},
		{" -1440 , 0.5 , 100 , 50.25 ", geom.Rect{X: -1440, Y: 0.5, Width: 100, Height: 50.25}, false},
		{"10,20,300", geom.Rect{}, true},
		{"a,b,c,d", geom.Rect{}, true},
		{"0,0,0,10", geom.Rect{}, true},
		{"0,0,10,-5", geom.Rect{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRect(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatRectRoundTrips(t *testing.T) {
	r := geom.Rect{X: -1440, Y: 25.5, Width: 640, Height: 480}
	assert.Equal(t, "-1440,25.5,640,480", formatRect(r))
	got, err := parseRect(formatRect(r))
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestCommandTree(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"capture", "daemon", "displays", "permissions", "trigger", "watch", "window"}, names)
}

func TestBuildTarget(t *testing.T) {
	cfg := &config.Config{}
	var stdout bytes.Buffer

	targets := buildTarget(cfg, outputOptions{}, &stdout).(session.Targets)
	require.Len(t, targets, 1)
	assert.Equal(t, session.FileTarget{Dir: "."}, targets[0])

	targets = buildTarget(cfg, outputOptions{clipboard: true, jsonOut: true}, &stdout).(session.Targets)
	require.Len(t, targets, 2)
	assert.IsType(t, session.ClipboardTarget{}, targets[0])
	assert.IsType(t, session.StdoutTarget{}, targets[1])

	targets = buildTarget(&config.Config{OutputDir: "/tmp/out"}, outputOptions{clipboard: true}, &stdout).(session.Targets)
	require.Len(t, targets, 2)
	assert.Equal(t, session.FileTarget{Dir: "/tmp/out"}, targets[0])
}

func TestMaxSizeFlagsOverrideConfig(t *testing.T) {
	w, h := maxSize(&config.Config{MaxWidth: 800, MaxHeight: 600}, outputOptions{maxWidth: 100})
	assert.Equal(t, 100, w)
	assert.Equal(t, 600, h)
}

func TestCaptureRectSavesFileAndPrintsJSON(t *testing.T) {
	isolateConfig(t)
	useDisplays(t, fakeDisplays{image.Rect(0, 0, 1440, 900)})
	runner := &pngRunner{}
	fakeCaptureCLI(t, runner)
	outDir := t.TempDir()

	out, err := execute(t, "capture", "--rect", "10.5,20,300,200", "--mute", "--json", "--out", outDir, "--max-width", "20")
	require.NoError(t, err)
	assert.Equal(t, []string{capture.DefaultExecutable, "-xR10,20,300,200"}, runner.args[:2])

	var rec struct {
		Path   string     `json:"path"`
		Width  int        `json:"width"`
		Height int        `json:"height"`
		Rect   *geom.Rect `json:"rect"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rec), out)
	assert.Equal(t, outDir, filepath.Dir(rec.Path))
	assert.Equal(t, 20, rec.Width)
	assert.Equal(t, 10, rec.Height)
	require.NotNil(t, rec.Rect)
	assert.Equal(t, geom.Rect{X: 10, Y: 20, Width: 301, Height: 200}, *rec.Rect)
	assert.FileExists(t, rec.Path)
}

func TestCaptureRectClampedToScreen(t *testing.T) {
	isolateConfig(t)
	useDisplays(t, fakeDisplays{image.Rect(0, 0, 1440, 900)})
	runner := &pngRunner{}
	fakeCaptureCLI(t, runner)

	_, err := execute(t, "capture", "--rect", "1400,800,100,200", "--mute", "--out", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{capture.DefaultExecutable, "-xR1400,800,40,100"}, runner.args[:2])
}

func TestCaptureRectOffScreen(t *testing.T) {
	isolateConfig(t)
	useDisplays(t, fakeDisplays{image.Rect(0, 0, 1440, 900)})
	runner := &pngRunner{}
	fakeCaptureCLI(t, runner)

	_, err := execute(t, "capture", "--rect", "3000,0,10,10", "--mute", "--out", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not on any display")
	assert.Empty(t, runner.args)
}

func TestCapturePrintsPathWithoutJSON(t *testing.T) {
	isolateConfig(t)
	fakeCaptureCLI(t, &pngRunner{})
	outDir := t.TempDir()

	out, err := execute(t, "window", "--out", outDir, "--no-shadow")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, outDir, filepath.Dir(path))
	assert.FileExists(t, path)
}

func TestCaptureCancelled(t *testing.T) {
	isolateConfig(t)
	fakeCaptureCLI(t, &pngRunner{cancel: true})

	_, err := execute(t, "capture", "--out", t.TempDir())
	assert.True(t, errors.Is(err, errCancelled), "got %v", err)
}

func TestCaptureRejectsBadRect(t *testing.T) {
	isolateConfig(t)
	_, err := execute(t, "capture", "--rect", "1,2,3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rect")
}

func TestDisplaysCommand(t *testing.T) {
	isolateConfig(t)
	useDisplays(t, fakeDisplays{image.Rect(0, 0, 1440, 900), image.Rect(1440, -200, 3360, 880)})

	out, err := execute(t, "displays", "--json")
	require.NoError(t, err)
	var got []display.Display
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, geom.Rect{X: 1440, Y: -200, Width: 1920, Height: 1080}, got[1].Bounds)

	useDisplays(t, fakeDisplays{})
	_, err = execute(t, "displays")
	assert.ErrorIs(t, err, display.ErrNoDisplays)
}

func TestPermissionsCommandHonoursOverride(t *testing.T) {
	isolateConfig(t)
	t.Setenv(permissions.EnvInputMonitoring, "denied")

	out, err := execute(t, "permissions")
	require.NoError(t, err)
	assert.Contains(t, out, "input monitoring: denied")
	assert.Contains(t, out, permissions.EnvInputMonitoring)
}

func TestTriggerWithoutDaemon(t *testing.T) {
	isolateConfig(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	t.Setenv(singleinstance.PortStartEnvVar, strconv.Itoa(port))
	t.Setenv(singleinstance.PortEndEnvVar, strconv.Itoa(port))

	_, err = execute(t, "trigger", "window")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no daemon found")

	_, err = execute(t, "trigger", "fullscreen")
	assert.Error(t, err)
}

func TestDetectedNotice(t *testing.T) {
	title, body := detectedNotice(capture.Detected{
		Path:    "/Users/me/Desktop/Screenshot 1.png",
		Rect:    geom.Rect{X: -1440, Y: 25.5, Width: 640, Height: 480},
		HasRect: true,
	})
	assert.Equal(t, "Screenshot Screenshot 1.png", title)
	assert.Equal(t, "-1440,25.5,640,480", body)

	_, body = detectedNotice(capture.Detected{Path: "/tmp/a.png", Err: capture.ErrMissingMetadataRect})
	assert.Contains(t, body, "no capture rect")
}
