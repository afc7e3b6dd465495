//go:build !windows

// Package osutils provides small OS-specific helpers.
package osutils

import "time"

// DoubleClickTime returns the double-click interval. There is no
// portable way to query it outside Windows, so use the common default.
func DoubleClickTime() time.Duration {
	return 500 * time.Millisecond
}
