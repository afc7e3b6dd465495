//go:build !windows

package input

import "github.com/go-vgo/robotgo"

func cursorPos() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

func platformLayers() []layer {
	return []layer{
		{name: "robotgo", click: robotgoClick, move: robotgoMove},
	}
}
