package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"

	"screenshots/src/hook"
)

// Listen registers a global hotkey such as "Ctrl+Alt+S" on bus (nil uses
// hook.Default()) and calls callback each time the whole combination is held.
// The callback runs on its own goroutine. The returned function unregisters.
func Listen(bus *hook.Bus, hotkeyConfig string, callback func()) (func(), error) {
	m, err := newMatcher(hotkeyConfig)
	if err != nil {
		return nil, err
	}
	if bus == nil {
		bus = hook.Default()
	}

	unsub, err := bus.Subscribe("hotkey "+hotkeyConfig, func(ev gohook.Event) {
		if m.handle(ev) {
			log.Printf("Hotkey activated: %s", hotkeyConfig)
			if callback != nil {
				go callback()
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("hotkey %s: %w", hotkeyConfig, err)
	}
	log.Printf("Hotkey listener configured for: %s", hotkeyConfig)
	return unsub, nil
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// matcher tracks which keys of one combination are currently held.
type matcher struct {
	mu   sync.Mutex
	keys []keyState
}

func newMatcher(hotkeyConfig string) (*matcher, error) {
	m := &matcher{}
	for _, name := range parseHotkey(hotkeyConfig) {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", hotkeyConfig, name)
		}
		m.keys = append(m.keys, keyState{name: name, rawcodes: rawcodes})
	}
	if len(m.keys) == 0 {
		return nil, fmt.Errorf("hotkey %q: no keys", hotkeyConfig)
	}
	return m, nil
}

// handle feeds one event and reports whether it completed the combination.
// Key presses arrive as KeyDown; KeyHold is the "typed" event that follows a
// printable press and counts as a press too.
func (m *matcher) handle(ev gohook.Event) bool {
	var pressed bool
	switch ev.Kind {
	case gohook.KeyHold, gohook.KeyDown:
		pressed = true
	case gohook.KeyUp:
		pressed = false
	default:
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matched := false
	for i := range m.keys {
		for _, rawcode := range m.keys[i].rawcodes {
			if ev.Rawcode == rawcode {
				m.keys[i].pressed = pressed
				matched = true
				break
			}
		}
	}
	if !pressed || !matched {
		return false
	}

	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	// Reset so holding the combination fires once.
	for i := range m.keys {
		m.keys[i].pressed = false
	}
	return true
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt", "opt", "option":
			keys = append(keys, "alt")
		case "shift":
			keys = append(keys, "shift")
		case "win", "cmd", "command", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

var letterCodes = map[string]uint16{
	"a": 0, "s": 1, "d": 2, "f": 3, "h": 4, "g": 5, "z": 6, "x": 7, "c": 8, "v": 9,
	"b": 11, "q": 12, "w": 13, "e": 14, "r": 15, "y": 16, "t": 17, "o": 31, "u": 32,
	"i": 34, "p": 35, "l": 37, "j": 38, "k": 40, "n": 45, "m": 46,
	"1": 18, "2": 19, "3": 20, "4": 21, "6": 22, "5": 23, "9": 25, "7": 26, "8": 28, "0": 29,
}

var functionCodes = []uint16{
	122, 120, 99, 118, 96, 97, 98, 100, 101, 109, // F1-F10
	103, 111, 105, 107, 113, 106, 64, 79, 80, 90, // F11-F20
}

// keyNameToRawcodes maps a key name to macOS virtual key codes (kVK_*), the
// rawcodes gohook reports on darwin. Modifiers return left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	switch keyName {
	case "ctrl":
		return []uint16{59, 62} // kVK_Control, kVK_RightControl
	case "alt":
		return []uint16{58, 61} // kVK_Option, kVK_RightOption
	case "shift":
		return []uint16{56, 60} // kVK_Shift, kVK_RightShift
	case "cmd":
		return []uint16{55, 54} // kVK_Command, kVK_RightCommand

	case "space":
		return []uint16{49}
	case "enter", "return":
		return []uint16{36}
	case "esc", "escape":
		return []uint16{53}
	case "tab":
		return []uint16{48}
	case "backspace":
		return []uint16{51} // kVK_Delete
	case "delete", "del":
		return []uint16{117} // kVK_ForwardDelete
	case "home":
		return []uint16{115}
	case "end":
		return []uint16{119}
	case "pageup", "pgup":
		return []uint16{116}
	case "pagedown", "pgdn":
		return []uint16{121}
	case "left":
		return []uint16{123}
	case "right":
		return []uint16{124}
	case "down":
		return []uint16{125}
	case "up":
		return []uint16{126}
	}

	if code, ok := letterCodes[keyName]; ok {
		return []uint16{code}
	}
	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= len(functionCodes) && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{functionCodes[n-1]}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
