//go:build windows

package input

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"autoclick/internal/config"
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procMouseEvent       = user32.NewProc("mouse_event")
	procSetCursorPos     = user32.NewProc("SetCursorPos")
	procGetCursorPos     = user32.NewProc("GetCursorPos")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

const (
	inputMouse = 0

	mouseEventFMove       = 0x0001
	mouseEventFLeftDown   = 0x0002
	mouseEventFLeftUp     = 0x0004
	mouseEventFRightDown  = 0x0008
	mouseEventFRightUp    = 0x0010
	mouseEventFMiddleDown = 0x0020
	mouseEventFMiddleUp   = 0x0040
	mouseEventFAbsolute   = 0x8000

	smCxScreen = 0
	smCyScreen = 1
)

type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// winInput matches the Win32 INPUT struct layout on amd64: type DWORD,
// 4 bytes of union alignment padding, then the MOUSEINPUT member.
type winInput struct {
	Type uint32
	_    uint32
	Mi   mouseInput
}

type point struct {
	X int32
	Y int32
}

func buttonFlags(button string) (down, up uint32, err error) {
	switch button {
	case config.ButtonLeft:
		return mouseEventFLeftDown, mouseEventFLeftUp, nil
	case config.ButtonRight:
		return mouseEventFRightDown, mouseEventFRightUp, nil
	case config.ButtonMiddle:
		return mouseEventFMiddleDown, mouseEventFMiddleUp, nil
	}
	return 0, 0, fmt.Errorf("unknown button %q", button)
}

func sendMouseInput(flags uint32, dx, dy int32) error {
	in := winInput{Type: inputMouse, Mi: mouseInput{Dx: dx, Dy: dy, DwFlags: flags}}
	sent, _, callErr := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if sent != 1 {
		return fmt.Errorf("SendInput rejected event: %v", callErr)
	}
	return nil
}

func sendInputClick(button string, count int) error {
	down, up, err := buttonFlags(button)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := sendMouseInput(down, 0, 0); err != nil {
			return err
		}
		time.Sleep(pressHold)
		if err := sendMouseInput(up, 0, 0); err != nil {
			return err
		}
		if i < count-1 {
			time.Sleep(clickGap)
		}
	}
	return nil
}

// sendInputMove issues an absolute move over the normalized 0..65535
// virtual coordinate space SendInput uses.
func sendInputMove(x, y int) error {
	cx, _, _ := procGetSystemMetrics.Call(smCxScreen)
	cy, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if cx < 2 || cy < 2 {
		return fmt.Errorf("screen metrics unavailable")
	}
	nx := int32(x * 65535 / (int(cx) - 1))
	ny := int32(y * 65535 / (int(cy) - 1))
	return sendMouseInput(mouseEventFMove|mouseEventFAbsolute, nx, ny)
}

func mouseEventClick(button string, count int) error {
	down, up, err := buttonFlags(button)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		procMouseEvent.Call(uintptr(down), 0, 0, 0, 0)
		time.Sleep(pressHold)
		procMouseEvent.Call(uintptr(up), 0, 0, 0, 0)
		if i < count-1 {
			time.Sleep(clickGap)
		}
	}
	return nil
}

func setCursorPosMove(x, y int) error {
	ok, _, callErr := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if ok == 0 {
		return fmt.Errorf("SetCursorPos failed: %v", callErr)
	}
	return nil
}

func cursorPos() (int, int, error) {
	var pt point
	ok, _, callErr := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if ok == 0 {
		return 0, 0, fmt.Errorf("input: GetCursorPos failed: %v", callErr)
	}
	return int(pt.X), int(pt.Y), nil
}

func platformLayers() []layer {
	return []layer{
		{name: "sendinput", click: sendInputClick, move: sendInputMove},
		{name: "mouse_event", click: mouseEventClick, move: setCursorPosMove},
		{name: "robotgo", click: robotgoClick, move: robotgoMove},
	}
}
