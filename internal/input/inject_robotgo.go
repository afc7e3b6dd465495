package input

import (
	"time"

	"github.com/go-vgo/robotgo"

	"autoclick/internal/config"
)

// robotgo names the middle button "center".
func robotgoButton(button string) string {
	if button == config.ButtonMiddle {
		return "center"
	}
	return button
}

func robotgoClick(button string, count int) error {
	name := robotgoButton(button)
	for i := 0; i < count; i++ {
		robotgo.Click(name)
		if i < count-1 {
			time.Sleep(clickGap)
		}
	}
	return nil
}

func robotgoMove(x, y int) error {
	robotgo.Move(x, y)
	return nil
}
