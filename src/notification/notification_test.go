package notification

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestScriptQuotes(t *testing.T) {
	got := script(`Screenshots`, `saved "a\b.png"`)
	want := `display notification "saved \"a\\b.png\"" with title "Screenshots"`
	if got != want {
		t.Fatalf("script() = %s, want %s", got, want)
	}
}

func TestShowRunsOsascriptOnMac(t *testing.T) {
	called := make(chan []string, 1)
	orig := runCommand
	runCommand = func(name string, args ...string) error {
		called <- append([]string{name}, args...)
		return nil
	}
	defer func() { runCommand = orig }()

	Show("Screenshots", "line one\n"+strings.Repeat("x", 300))

	if runtime.GOOS != "darwin" {
		select {
		case args := <-called:
			t.Fatalf("unexpected command %v", args)
		case <-time.After(50 * time.Millisecond):
		}
		return
	}

	select {
	case args := <-called:
		if args[0] != "/usr/bin/osascript" || len(args) != 3 {
			t.Fatalf("unexpected command %v", args)
		}
		if strings.Contains(args[2], "\n") || !strings.Contains(args[2], `...`) {
			t.Fatalf("message not flattened and truncated: %q", args[2])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("osascript not run")
	}
}
