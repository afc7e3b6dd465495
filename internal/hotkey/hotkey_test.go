package hotkey

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseDescriptor(t *testing.T) {
	cases := []struct {
		in    string
		parts []string
		ok    bool
	}{
		{"Ctrl+W", []string{"CTRL", "W"}, true},
		{"ctrl + shift + f10", []string{"CTRL", "SHIFT", "F10"}, true},
		{"F1", []string{"F1"}, true},
		{"Win+5", []string{"CMD", "5"}, true},
		{"Ctrl+Mouse4", []string{"CTRL", "MOUSE4"}, true},
		{"Alt+Space", []string{"ALT", "SPACE"}, true},
		{"", nil, false},
		{"Ctrl+", nil, false},
		{"Ctrl+Shift", nil, false}, // modifiers only
		{"Ctrl+F13", nil, false},
		{"Bogus+W", nil, false},
	}

	for _, c := range cases {
		parts, err := parseDescriptor(c.in)
		if c.ok {
			if err != nil {
				t.Errorf("parseDescriptor(%q) unexpected error: %v", c.in, err)
				continue
			}
			if len(parts) != len(c.parts) {
				t.Errorf("parseDescriptor(%q) = %v, want %v", c.in, parts, c.parts)
				continue
			}
			for i := range parts {
				if parts[i] != c.parts[i] {
					t.Errorf("parseDescriptor(%q) = %v, want %v", c.in, parts, c.parts)
					break
				}
			}
		} else {
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("parseDescriptor(%q) expected ErrInvalidDescriptor, got %v", c.in, err)
			}
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestMatchFiresCallback(t *testing.T) {
	l := NewListener()
	var fired int64
	if _, err := l.Register("Ctrl+Shift+K", func() { atomic.AddInt64(&fired, 1) }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	l.UpdateState("CTRL", true)
	l.UpdateState("SHIFT", true)
	l.UpdateState("K", true)

	waitFor(t, func() bool { return atomic.LoadInt64(&fired) == 1 })

	// Releasing and pressing the trigger again fires again
	l.UpdateState("K", false)
	l.UpdateState("K", true)
	waitFor(t, func() bool { return atomic.LoadInt64(&fired) == 2 })
}

func TestNoMatchWithoutAllParts(t *testing.T) {
	l := NewListener()
	var fired int64
	l.Register("Ctrl+K", func() { atomic.AddInt64(&fired, 1) })

	l.UpdateState("K", true)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt64(&fired) != 0 {
		t.Error("callback fired without the modifier held")
	}
}

func TestRegisterReplacesUnprotected(t *testing.T) {
	l := NewListener()
	var first, second int64
	h1, err := l.Register("Ctrl+K", func() { atomic.AddInt64(&first, 1) })
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := l.Register("Ctrl+K", func() { atomic.AddInt64(&second, 1) }); err != nil {
		t.Fatalf("re-Register: %v", err)
	}

	l.UpdateState("CTRL", true)
	l.UpdateState("K", true)
	waitFor(t, func() bool { return atomic.LoadInt64(&second) == 1 })
	if atomic.LoadInt64(&first) != 0 {
		t.Error("replaced callback still fired")
	}

	// The stale handle must not remove the new binding
	l.Unregister(h1)
	l.UpdateState("K", false)
	l.UpdateState("K", true)
	waitFor(t, func() bool { return atomic.LoadInt64(&second) == 2 })
}

func TestProtectedBindingRejectsRebind(t *testing.T) {
	l := NewListener()
	if _, err := l.RegisterProtected("Ctrl+W", func() {}); err != nil {
		t.Fatalf("RegisterProtected: %v", err)
	}

	if _, err := l.Register("Ctrl+W", func() {}); !errors.Is(err, ErrDuplicateBinding) {
		t.Errorf("expected ErrDuplicateBinding, got %v", err)
	}
	if _, err := l.RegisterProtected("Ctrl+W", func() {}); !errors.Is(err, ErrDuplicateBinding) {
		t.Errorf("expected ErrDuplicateBinding for protected duplicate, got %v", err)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	l := NewListener()
	var fired int64
	h, _ := l.Register("Ctrl+K", func() { atomic.AddInt64(&fired, 1) })

	if err := l.Unregister(h); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := l.Unregister(h); err != nil {
		t.Fatalf("second Unregister: %v", err)
	}

	l.UpdateState("CTRL", true)
	l.UpdateState("K", true)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt64(&fired) != 0 {
		t.Error("callback fired after Unregister")
	}
}

func TestClosedListenerRejectsCalls(t *testing.T) {
	l := NewListener()
	l.Close()

	if _, err := l.Register("Ctrl+K", func() {}); !errors.Is(err, ErrListenerClosed) {
		t.Errorf("Register after Close: expected ErrListenerClosed, got %v", err)
	}
	if err := l.Unregister(Handle{}); !errors.Is(err, ErrListenerClosed) {
		t.Errorf("Unregister after Close: expected ErrListenerClosed, got %v", err)
	}
	if err := l.Start(); !errors.Is(err, ErrListenerClosed) {
		t.Errorf("Start after Close: expected ErrListenerClosed, got %v", err)
	}

	// Second Close is a no-op
	l.Close()
}

func TestClickObserver(t *testing.T) {
	l := NewListener()
	var got []ClickEvent
	l.SetClickObserver(func(ev ClickEvent) { got = append(got, ev) })

	l.notifyClick(ClickEvent{X: 10, Y: 20, Button: "left", When: time.Now()})
	l.notifyClick(ClickEvent{X: 30, Y: 40, Button: "right", When: time.Now()})

	if len(got) != 2 || got[0].X != 10 || got[1].Button != "right" {
		t.Errorf("unexpected observations: %+v", got)
	}

	l.SetClickObserver(nil)
	l.notifyClick(ClickEvent{X: 1, Y: 1, Button: "left"})
	if len(got) != 2 {
		t.Error("observer fired after being cleared")
	}
}
