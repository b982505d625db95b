package tray

import (
	"log"
	"sync/atomic"

	"github.com/getlantern/systray"
)

// Menu wires menu items to actions. Nil actions hide their item.
type Menu struct {
	Title           string
	OnCaptureArea   func()
	OnCaptureWindow func()
	OnOpenFolder    func()
	OnQuit          func()
}

var ready atomic.Bool

// Run shows the menu-bar item and blocks until Quit. It must be called from
// the main goroutine.
func Run(menu Menu) {
	systray.Run(func() { onReady(menu) }, func() {
		ready.Store(false)
		log.Printf("Tray: exited")
	})
}

// Quit removes the menu-bar item and makes Run return.
func Quit() {
	systray.Quit()
}

// UpdateTooltip changes the hover text. Calls before the tray is ready are
// ignored.
func UpdateTooltip(text string) {
	if !ready.Load() {
		return
	}
	systray.SetTooltip(text)
}

func onReady(menu Menu) {
	title := menu.Title
	if title == "" {
		title = "Screenshots"
	}
	if icon := Icon(); icon != nil {
		systray.SetTemplateIcon(icon, icon)
	} else {
		systray.SetTitle(title)
	}
	systray.SetTooltip(title)

	var items []*systray.MenuItem
	var actions []func()
	add := func(label, tip string, action func()) {
		if action == nil {
			return
		}
		items = append(items, systray.AddMenuItem(label, tip))
		actions = append(actions, action)
	}
	add("Capture Area", "Drag out an area to capture", menu.OnCaptureArea)
	add("Capture Window", "Click a window to capture", menu.OnCaptureWindow)
	add("Open Output Folder", "Show saved screenshots", menu.OnOpenFolder)
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	for i := range items {
		go func(item *systray.MenuItem, action func()) {
			for range item.ClickedCh {
				action()
			}
		}(items[i], actions[i])
	}
	go func() {
		<-mQuit.ClickedCh
		if menu.OnQuit != nil {
			menu.OnQuit()
		}
		systray.Quit()
	}()

	ready.Store(true)
	log.Printf("Tray: ready")
}
