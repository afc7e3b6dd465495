// Package input provides native mouse input injection with a layered
// fallback strategy. Injection operates at the OS input-device level so
// clicks land in applications that read raw or DirectInput-style input
// and ignore posted window messages.
package input

import (
	"fmt"
	"log"
	"strings"
	"time"

	"autoclick/internal/config"
)

// Click timing within one multi-click burst, matching common OS
// synthetic-input behavior: press held briefly, short gap between
// clicks of a double/triple click.
const (
	pressHold  = 5 * time.Millisecond
	clickGap   = 10 * time.Millisecond
	moveSettle = 10 * time.Millisecond
)

// Attempt records one injection layer's failure.
type Attempt struct {
	Layer string
	Err   error
}

// InjectionError reports that every injection layer failed.
type InjectionError struct {
	Op       string // "click" or "move"
	Attempts []Attempt
}

func (e *InjectionError) Error() string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = fmt.Sprintf("%s: %v", a.Layer, a.Err)
	}
	return fmt.Sprintf("input: all %s layers failed [%s]", e.Op, strings.Join(names, "; "))
}

// Layers returns the names of the layers tried, in order.
func (e *InjectionError) Layers() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Layer
	}
	return names
}

// layer is one injection backend. Layers are tried in order; the first
// success wins.
type layer struct {
	name  string
	click func(button string, count int) error
	move  func(x, y int) error
}

// Injector performs native clicks and cursor moves.
type Injector struct {
	layers []layer
}

// NewInjector creates an injector with the platform's layer stack:
// synthetic-input API first, legacy event API second, the robotgo
// library last (on Windows); robotgo alone elsewhere.
func NewInjector() *Injector {
	return &Injector{layers: platformLayers()}
}

// newInjectorWithLayers is used by tests to supply fake layers.
func newInjectorWithLayers(layers []layer) *Injector {
	return &Injector{layers: layers}
}

func validButton(button string) bool {
	switch button {
	case config.ButtonLeft, config.ButtonRight, config.ButtonMiddle:
		return true
	}
	return false
}

// Click moves the cursor to (x, y) and fires count clicks of button
// there. count < 1 is treated as a single click.
func (inj *Injector) Click(x, y int, button string, count int) error {
	if !validButton(button) {
		return fmt.Errorf("input: unknown button %q", button)
	}
	if count < 1 {
		count = 1
	}

	if err := inj.MoveCursor(x, y); err != nil {
		return err
	}
	// Give the cursor move time to land before the press
	time.Sleep(moveSettle)

	var attempts []Attempt
	for _, l := range inj.layers {
		if err := l.click(button, count); err != nil {
			log.Printf("Input: %s click failed, trying next layer: %v", l.name, err)
			attempts = append(attempts, Attempt{Layer: l.name, Err: err})
			continue
		}
		return nil
	}
	return &InjectionError{Op: "click", Attempts: attempts}
}

// ClickAt fires count clicks of button at the current cursor position
// without moving the cursor first. Used by the cursor clicker.
func (inj *Injector) ClickAt(button string, count int) error {
	if !validButton(button) {
		return fmt.Errorf("input: unknown button %q", button)
	}
	if count < 1 {
		count = 1
	}

	var attempts []Attempt
	for _, l := range inj.layers {
		if err := l.click(button, count); err != nil {
			log.Printf("Input: %s click failed, trying next layer: %v", l.name, err)
			attempts = append(attempts, Attempt{Layer: l.name, Err: err})
			continue
		}
		return nil
	}
	return &InjectionError{Op: "click", Attempts: attempts}
}

// MoveCursor places the cursor at absolute screen coordinates.
func (inj *Injector) MoveCursor(x, y int) error {
	var attempts []Attempt
	for _, l := range inj.layers {
		if l.move == nil {
			continue
		}
		if err := l.move(x, y); err != nil {
			attempts = append(attempts, Attempt{Layer: l.name, Err: err})
			continue
		}
		return nil
	}
	return &InjectionError{Op: "move", Attempts: attempts}
}

// CursorPos returns the live cursor position.
func (inj *Injector) CursorPos() (int, int, error) {
	return cursorPos()
}
