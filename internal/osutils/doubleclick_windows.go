//go:build windows

// Package osutils provides small OS-specific helpers.
package osutils

import (
	"time"

	"golang.org/x/sys/windows"
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procGetDoubleClickTime = user32.NewProc("GetDoubleClickTime")
)

// DoubleClickTime returns the user's configured double-click interval.
// The recorder uses it to merge rapid same-position clicks into one
// multi-click step.
func DoubleClickTime() time.Duration {
	ms, _, _ := procGetDoubleClickTime.Call()
	if ms == 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
