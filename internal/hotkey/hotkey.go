// Package hotkey provides global system-wide hotkey and mouse button
// monitoring. One Listener owns the single OS-level hook resource for
// the whole process; every consumer registers through it.
package hotkey

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidDescriptor is returned for a hotkey string that does not
	// parse as modifiers plus exactly one key.
	ErrInvalidDescriptor = errors.New("hotkey: invalid descriptor")

	// ErrDuplicateBinding is returned when a registration would displace
	// a protected binding, or duplicate another protected registration.
	ErrDuplicateBinding = errors.New("hotkey: descriptor already bound")

	// ErrListenerClosed is returned for any call after Close.
	ErrListenerClosed = errors.New("hotkey: listener closed")
)

// ClickEvent is a raw mouse-button-down observation with screen
// coordinates, delivered to the registered click observer.
type ClickEvent struct {
	X, Y   int
	Button string // "left", "right" or "middle"
	When   time.Time
}

// Handle identifies one registration for later Unregister.
type Handle struct {
	id         uint64
	descriptor string
}

// MakeHandle builds a handle from its parts. Useful for fakes that
// stand in for the listener.
func MakeHandle(id uint64, descriptor string) Handle {
	return Handle{id: id, descriptor: descriptor}
}

// ID returns the registration's unique id.
func (h Handle) ID() uint64 { return h.id }

// Descriptor returns the normalized descriptor the handle was
// registered under.
func (h Handle) Descriptor() string { return h.descriptor }

type binding struct {
	id        uint64
	parts     []string // e.g. ["CTRL", "SHIFT", "F10"]
	original  string
	protected bool
	callback  func()
}

// Listener handles global hotkey registration and matching. Callbacks
// fire on their own goroutines, never on the OS hook thread.
type Listener struct {
	mu           sync.RWMutex
	closed       bool
	started      bool
	nextID       uint64
	bindings     map[string]*binding // keyed by normalized descriptor
	currentState map[string]bool     // keys/buttons currently pressed
	clickObs     func(ClickEvent)
}

// NewListener creates a listener. Call Start to install the OS hooks.
func NewListener() *Listener {
	return &Listener{
		bindings:     make(map[string]*binding),
		currentState: make(map[string]bool),
	}
}

// modifier names accepted in descriptors, normalized form on the right
var modAliases = map[string]string{
	"CTRL": "CTRL", "CONTROL": "CTRL",
	"ALT": "ALT", "OPTION": "ALT",
	"SHIFT": "SHIFT",
	"CMD": "CMD", "WIN": "CMD", "META": "CMD", "SUPER": "CMD",
}

var namedKeys = map[string]bool{
	"SPACE": true, "ENTER": true, "ESC": true, "BACKSPACE": true,
	"TAB": true, "CAPSLOCK": true, "PAGEUP": true, "PAGEDOWN": true,
	"END": true, "HOME": true, "LEFT": true, "UP": true, "RIGHT": true,
	"DOWN": true, "PRINTSCREEN": true, "INSERT": true, "DELETE": true,
	"PAUSE": true, "SCROLLLOCK": true,
}

func isTriggerKey(s string) bool {
	if namedKeys[s] {
		return true
	}
	if len(s) == 1 {
		c := s[0]
		return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
	}
	// F1-F12
	if s[0] == 'F' && len(s) <= 3 {
		n := 0
		for _, c := range s[1:] {
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		return n >= 1 && n <= 12
	}
	// Mouse buttons can act as hotkey triggers too (e.g. "Ctrl+Mouse4")
	if strings.HasPrefix(s, "MOUSE") && len(s) == 6 {
		return s[5] >= '1' && s[5] <= '5'
	}
	return false
}

// parseDescriptor normalizes "Ctrl+Shift+F10" into its uppercase parts,
// validating that it names any number of modifiers plus one trigger key.
func parseDescriptor(descriptor string) ([]string, error) {
	raw := strings.Split(descriptor, "+")
	parts := make([]string, 0, len(raw))
	triggers := 0
	for _, p := range raw {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
		}
		if norm, ok := modAliases[p]; ok {
			parts = append(parts, norm)
			continue
		}
		if !isTriggerKey(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDescriptor, descriptor)
		}
		triggers++
		parts = append(parts, p)
	}
	if triggers == 0 {
		return nil, fmt.Errorf("%w: %q (no trigger key)", ErrInvalidDescriptor, descriptor)
	}
	return parts, nil
}

func normalize(parts []string) string {
	return strings.Join(parts, "+")
}

// Start installs the platform-specific global hooks. The hook message
// loop runs on its own background goroutine.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrListenerClosed
	}
	if l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = true
	l.mu.Unlock()

	return l.startPlatform()
}

// Register binds a descriptor to a callback. Re-registering the same
// descriptor replaces the prior binding and invalidates its handle,
// unless the prior binding is protected, in which case
// ErrDuplicateBinding is returned and nothing changes.
func (l *Listener) Register(descriptor string, callback func()) (Handle, error) {
	return l.register(descriptor, callback, false)
}

// RegisterProtected binds a descriptor that later Register calls cannot
// displace. Used for the fixed recorder control hotkeys installed at
// startup. Fails with ErrDuplicateBinding if the descriptor is bound.
func (l *Listener) RegisterProtected(descriptor string, callback func()) (Handle, error) {
	return l.register(descriptor, callback, true)
}

func (l *Listener) register(descriptor string, callback func(), protected bool) (Handle, error) {
	parts, err := parseDescriptor(descriptor)
	if err != nil {
		return Handle{}, err
	}
	key := normalize(parts)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Handle{}, ErrListenerClosed
	}

	if existing, ok := l.bindings[key]; ok {
		if existing.protected || protected {
			return Handle{}, fmt.Errorf("%w: %q", ErrDuplicateBinding, descriptor)
		}
		// Unprotected duplicate: last registration wins
		log.Printf("Hotkey: Replacing binding for %s", descriptor)
	}

	l.nextID++
	l.bindings[key] = &binding{
		id:        l.nextID,
		parts:     parts,
		original:  descriptor,
		protected: protected,
		callback:  callback,
	}
	return Handle{id: l.nextID, descriptor: key}, nil
}

// Unregister releases a binding. Stale or unknown handles are a no-op.
func (l *Listener) Unregister(h Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrListenerClosed
	}
	if b, ok := l.bindings[h.descriptor]; ok && b.id == h.id {
		delete(l.bindings, h.descriptor)
	}
	return nil
}

// SetClickObserver installs the single raw-click observer (nil clears).
// It is invoked on the hook thread and must return quickly.
func (l *Listener) SetClickObserver(fn func(ClickEvent)) {
	l.mu.Lock()
	l.clickObs = fn
	l.mu.Unlock()
}

// Close releases the OS hooks and all registrations. The listener is
// unusable afterwards. Idempotent.
func (l *Listener) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	started := l.started
	l.bindings = make(map[string]*binding)
	l.clickObs = nil
	l.mu.Unlock()

	if started {
		l.stopPlatform()
	}
}

// UpdateState records a key or button transition and, on press,
// dispatches any fully-held bindings. Called by the platform hooks.
func (l *Listener) UpdateState(key string, isDown bool) {
	l.mu.Lock()
	key = strings.ToUpper(key)
	if isDown {
		l.currentState[key] = true
	} else {
		delete(l.currentState, key)
	}
	l.mu.Unlock()

	if isDown {
		l.checkMatches()
	}
}

func (l *Listener) checkMatches() {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, b := range l.bindings {
		match := true
		// All parts of the hotkey must be in currentState
		for _, part := range b.parts {
			if !l.currentState[part] {
				match = false
				break
			}
		}

		if match {
			log.Printf("Hotkey: Triggered %s", b.original)
			go b.callback()
		}
	}
}

// notifyClick forwards a button-down observation to the click observer.
// Called by the platform hooks; delivery is synchronous so the recorder
// sees clicks in capture order.
func (l *Listener) notifyClick(ev ClickEvent) {
	l.mu.RLock()
	obs := l.clickObs
	l.mu.RUnlock()

	if obs != nil {
		obs(ev)
	}
}
