//go:build !windows

package hotkey

import (
	"log"
	"strings"
	"time"

	hook "github.com/robotn/gohook"
)

// rawcodeName maps gohook keycodes back to the normalized key names
// used for binding parts. Built once from gohook's own keycode table.
var rawcodeName = func() map[uint16]string {
	m := make(map[uint16]string, len(hook.Keycode))
	for name, code := range hook.Keycode {
		upper := strings.ToUpper(name)
		// Prefer the short canonical names on collisions (e.g. "ctrl"
		// over "lctrl")
		if existing, ok := m[code]; ok && len(existing) <= len(upper) {
			continue
		}
		m[code] = upper
	}
	return m
}()

func (l *Listener) startPlatform() error {
	events := hook.Start()

	go func() {
		for ev := range events {
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				if name, ok := rawcodeName[ev.Keycode]; ok {
					l.UpdateState(name, true)
				}
			case hook.KeyUp:
				if name, ok := rawcodeName[ev.Keycode]; ok {
					l.UpdateState(name, false)
				}
			case hook.MouseDown:
				state, click := buttonNames(ev.Button)
				if state != "" {
					l.UpdateState(state, true)
				}
				if click != "" {
					l.notifyClick(ClickEvent{
						X:      int(ev.X),
						Y:      int(ev.Y),
						Button: click,
						When:   time.Now(),
					})
				}
			case hook.MouseUp:
				if state, _ := buttonNames(ev.Button); state != "" {
					l.UpdateState(state, false)
				}
			}
		}
	}()

	log.Println("Hotkey: gohook event tap started.")
	return nil
}

func (l *Listener) stopPlatform() {
	hook.End()
}

// buttonNames maps a gohook button number to the MOUSEn name used in
// the pressed-state set and to the observer-facing button name.
func buttonNames(btn uint16) (state, click string) {
	switch btn {
	case 1:
		return "MOUSE1", "left"
	case 2:
		return "MOUSE3", "right"
	case 3:
		return "MOUSE2", "middle"
	case 4:
		return "MOUSE4", ""
	case 5:
		return "MOUSE5", ""
	}
	return "", ""
}
