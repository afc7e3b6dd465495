// Package tray puts the clicker service in the system tray: one menu
// entry per runnable profile plus the housekeeping items, built on
// getlantern/systray.
package tray

import (
	"encoding/binary"

	"github.com/getlantern/systray"
)

// entry is one menu row. separator entries render as dividers.
type entry struct {
	title     string
	separator bool
	onClick   func()
	item      *systray.MenuItem
}

// Tray manages the tray icon and its menu. Entries must be added
// before Run; title and check state may change at any time after.
type Tray struct {
	tooltip string
	entries []*entry
	quitCh  chan struct{}
}

// New creates a tray shell with the given tooltip. The menu is empty
// until entries are added.
func New(tooltip string) *Tray {
	return &Tray{
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem appends a clickable entry and returns its id.
func (t *Tray) AddMenuItem(title string, onClick func()) int {
	t.entries = append(t.entries, &entry{title: title, onClick: onClick})
	return len(t.entries) - 1
}

// AddSeparator appends a menu divider.
func (t *Tray) AddSeparator() {
	t.entries = append(t.entries, &entry{separator: true})
}

// SetItemChecked toggles the checkmark on an entry. Unknown ids are
// ignored.
func (t *Tray) SetItemChecked(id int, checked bool) {
	e := t.entry(id)
	if e == nil || e.item == nil {
		return
	}
	if checked {
		e.item.Check()
	} else {
		e.item.Uncheck()
	}
}

// SetItemTitle replaces an entry's text, e.g. flipping a profile row
// between "Run ..." and "Stop ...".
func (t *Tray) SetItemTitle(id int, title string) {
	e := t.entry(id)
	if e == nil {
		return
	}
	e.title = title
	if e.item != nil {
		e.item.SetTitle(title)
	}
}

func (t *Tray) entry(id int) *entry {
	if id < 0 || id >= len(t.entries) || t.entries[id].separator {
		return nil
	}
	return t.entries[id]
}

// Run hands the calling goroutine to systray and blocks until Stop.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Stop quits the tray loop, unblocking Run.
func (t *Tray) Stop() {
	select {
	case <-t.quitCh:
	default:
		close(t.quitCh)
	}
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("AutoClick")
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(trayIcon())

	for _, e := range t.entries {
		if e.separator {
			systray.AddSeparator()
			continue
		}
		e.item = systray.AddMenuItem(e.title, e.title)
		if e.onClick == nil {
			continue
		}
		go func(e *entry) {
			for {
				select {
				case <-e.item.ClickedCh:
					e.onClick()
				case <-t.quitCh:
					return
				}
			}
		}(e)
	}
}

// trayIcon builds a 16x16 32-bit ICO filled with a solid orange
// square, so the tray works without shipping an asset file.
func trayIcon() []byte {
	const (
		side    = 16
		pixels  = side * side * 4
		mask    = side * side / 8
		dibSize = 40
	)
	icon := make([]byte, 22+dibSize+pixels+mask)

	// ICONDIR + ICONDIRENTRY: one 16x16 32bpp image
	binary.LittleEndian.PutUint16(icon[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(icon[4:], 1) // count
	icon[6], icon[7] = side, side
	binary.LittleEndian.PutUint16(icon[10:], 1)  // planes
	binary.LittleEndian.PutUint16(icon[12:], 32) // bpp
	binary.LittleEndian.PutUint32(icon[14:], uint32(dibSize+pixels+mask))
	binary.LittleEndian.PutUint32(icon[18:], 22) // image offset

	// BITMAPINFOHEADER: height doubled for the AND mask
	dib := icon[22:]
	binary.LittleEndian.PutUint32(dib[0:], dibSize)
	binary.LittleEndian.PutUint32(dib[4:], side)
	binary.LittleEndian.PutUint32(dib[8:], side*2)
	binary.LittleEndian.PutUint16(dib[12:], 1)
	binary.LittleEndian.PutUint16(dib[14:], 32)
	binary.LittleEndian.PutUint32(dib[20:], pixels)

	// BGRA pixel data, solid orange
	px := icon[22+dibSize : 22+dibSize+pixels]
	for i := 0; i < pixels; i += 4 {
		px[i] = 0x00   // B
		px[i+1] = 0x7F // G
		px[i+2] = 0xFF // R
		px[i+3] = 0xFF // A
	}
	// AND mask stays zero: fully opaque
	return icon
}
