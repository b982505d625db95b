package capture

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshots/src/geom"
	"screenshots/src/watcher"
)

func TestIsScreenshotName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Screen Shot 2020-01-02 at 10.11.12.png", true},
		{"Screenshot 2024-05-06 at 09.00.00.png", true},
		{"Screenshot 2024-05-06 at 09.00.00.PNG", true},
		{"Screenshot 2024-05-06.jpg", false},
		{"holiday.png", false},
		{"Screen Recording 2024-05-06.mov", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsScreenshotName(tt.name))
		})
	}
}

func TestParseMetadataRect(t *testing.T) {
	rect, ok := parseMetadataRect("(\n    10,\n    20,\n    300,\n    200\n)\n")
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 10, Y: 20, Width: 300, Height: 200}, rect)

	for _, raw := range []string{"(null)", "", "(1, 2, 3)", "(a, b, c, d)", "10, 20, 30, 40"} {
		_, ok := parseMetadataRect(raw)
		assert.False(t, ok, raw)
	}
}

func TestMetadataRectReaderUsesMdls(t *testing.T) {
	r := &scriptedRunner{output: []byte("(\n    1,\n    2,\n    3,\n    4\n)")}
	rect, ok := MetadataRectReader(r)(context.Background(), "/tmp/Screen Shot.png")
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 1, Y: 2, Width: 3, Height: 4}, rect)
	assert.Equal(t,
		[]string{"/usr/bin/mdls", "-raw", "-name", "kMDItemScreenCaptureGlobalRect", "/tmp/Screen Shot.png"},
		r.lastArgs())

	_, ok = MetadataRectReader(&scriptedRunner{status: 1})(context.Background(), "x.png")
	assert.False(t, ok)
}

func newTestWatcher(t *testing.T, read RectReader, got chan<- Detected) *ScreenshotWatcher {
	t.Helper()
	sw, err := NewScreenshotWatcher(WatcherOptions{
		Directory:  t.TempDir(),
		MaxRetries: 3,
		RetryWait:  time.Millisecond,
		ReadRect:   read,
	}, func(d Detected) { got <- d })
	require.NoError(t, err)
	sw.ctx, sw.cancel = context.WithCancel(context.Background())
	t.Cleanup(sw.cancel)
	return sw
}

func TestScreenshotWatcherRetriesUntilRectAppears(t *testing.T) {
	var calls atomic.Int32
	read := func(context.Context, string) (geom.Rect, bool) {
		if calls.Add(1) < 3 {
			return geom.Rect{}, false
		}
		return geom.Rect{X: 7, Y: 8, Width: 9, Height: 10}, true
	}
	got := make(chan Detected, 1)
	sw := newTestWatcher(t, read, got)

	sw.DirectoryChanged(nil, watcher.ChangeSet{NewFiles: []string{"/d/notes.txt", "/d/Screen Shot 1.png", "/d/Screen Shot 0.png"}})

	d := <-got
	assert.Equal(t, "/d/Screen Shot 1.png", d.Path, "only the newest screenshot is reported")
	assert.True(t, d.HasRect)
	assert.Equal(t, 2, d.Retries)
	assert.NoError(t, d.Err)
}

func TestScreenshotWatcherGivesUpWithoutMetadata(t *testing.T) {
	read := func(context.Context, string) (geom.Rect, bool) { return geom.Rect{}, false }
	got := make(chan Detected, 1)
	sw := newTestWatcher(t, read, got)

	sw.DirectoryChanged(nil, watcher.ChangeSet{NewFiles: []string{"/d/Screenshot a.png"}})

	d := <-got
	assert.False(t, d.HasRect)
	assert.Equal(t, 3, d.Retries)
	assert.ErrorIs(t, d.Err, ErrMissingMetadataRect)
}

func TestScreenshotWatcherSilentAfterStop(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	read := func(context.Context, string) (geom.Rect, bool) {
		close(started)
		<-release
		return geom.Rect{X: 1, Y: 2, Width: 3, Height: 4}, true
	}
	got := make(chan Detected, 1)
	sw := newTestWatcher(t, read, got)

	sw.DirectoryChanged(nil, watcher.ChangeSet{NewFiles: []string{"/d/Screenshot late.png"}})
	<-started
	sw.cancel()
	close(release)

	select {
	case d := <-got:
		t.Fatalf("detection delivered after stop: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScreenshotWatcherIgnoresOtherFiles(t *testing.T) {
	got := make(chan Detected, 1)
	sw := newTestWatcher(t, func(context.Context, string) (geom.Rect, bool) { return geom.Rect{}, true }, got)

	sw.DirectoryChanged(nil, watcher.ChangeSet{})
	sw.DirectoryChanged(nil, watcher.ChangeSet{
		NewFiles:     []string{"/d/photo.png"},
		DeletedFiles: []string{"/d/Screen Shot old.png"},
	})

	select {
	case d := <-got:
		t.Fatalf("unexpected detection %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScreenshotWatcherEndToEnd(t *testing.T) {
	got := make(chan Detected, 1)
	dir := t.TempDir()
	sw, err := NewScreenshotWatcher(WatcherOptions{
		Directory: dir,
		ReadRect: func(context.Context, string) (geom.Rect, bool) {
			return geom.Rect{Width: 1, Height: 1}, true
		},
	}, func(d Detected) { got <- d })
	require.NoError(t, err)

	require.True(t, sw.Start())
	defer sw.Stop()
	assert.False(t, sw.Start(), "already running")

	path := filepath.Join(dir, "Screenshot 2024-01-01 at 12.00.00.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	select {
	case d := <-got:
		assert.Equal(t, path, d.Path)
		assert.True(t, d.HasRect)
	case <-time.After(5 * time.Second):
		t.Fatal("screenshot not detected")
	}
}
