package notification

import (
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strings"

	"screenshots/src/logutil"
)

const maxMessageLen = 200

// runCommand is replaced in tests.
var runCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Show posts a Notification Center banner without blocking. Off macOS the
// message is only logged.
func Show(title, message string) {
	message = logutil.SanitizeForLog(message, maxMessageLen)
	if runtime.GOOS != "darwin" {
		log.Printf("Notification: %s: %s", title, message)
		return
	}
	go func() {
		if err := runCommand("/usr/bin/osascript", "-e", script(title, message)); err != nil {
			log.Printf("Failed to show notification: %v", err)
		}
	}()
}

func script(title, message string) string {
	return fmt.Sprintf("display notification %s with title %s", quote(message), quote(title))
}

// quote makes an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
