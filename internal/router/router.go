// Package router binds profile start/end hotkeys to click playback.
// Each registered profile owns a snapshot of its configuration and an
// independent executor pair, so two active profiles can run at the
// same time.
package router

import (
	"log"
	"sync"
	"sync/atomic"

	"autoclick/internal/clicker"
	"autoclick/internal/config"
	"autoclick/internal/hotkey"
	"autoclick/internal/status"
)

// Registrar is the slice of the hotkey listener the router needs.
type Registrar interface {
	Register(descriptor string, callback func()) (hotkey.Handle, error)
	Unregister(h hotkey.Handle) error
}

// PathRunner replays a click path. Implemented by clicker.PathExecutor.
type PathRunner interface {
	Start(path []config.ClickStep) error
	Stop()
	Running() bool
}

// CursorRunner clicks at the cursor position. Implemented by
// clicker.CursorClicker.
type CursorRunner interface {
	Start(intervalMs int, button string, limit int) error
	Stop()
	Running() bool
}

type entry struct {
	snapshot atomic.Pointer[config.Profile]

	startHandle hotkey.Handle
	endHandle   hotkey.Handle
	hasStart    bool
	hasEnd      bool

	path   PathRunner
	cursor CursorRunner
}

// Router maps profile hotkeys onto executors.
type Router struct {
	reg       Registrar
	bus       *status.Bus
	newPath   func(profileID string) PathRunner
	newCursor func(profileID string) CursorRunner

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRouter creates a router dispatching through reg and building real
// executors over inj.
func NewRouter(reg Registrar, bus *status.Bus, inj clicker.Injector) *Router {
	return newRouter(reg, bus,
		func(id string) PathRunner { return clicker.NewPathExecutor(inj, bus, id, false) },
		func(id string) CursorRunner { return clicker.NewCursorClicker(inj, bus, id) },
	)
}

func newRouter(reg Registrar, bus *status.Bus, newPath func(string) PathRunner, newCursor func(string) CursorRunner) *Router {
	return &Router{
		reg:       reg,
		bus:       bus,
		newPath:   newPath,
		newCursor: newCursor,
		entries:   make(map[string]*entry),
	}
}

// RegisterProfile binds p's start and end hotkeys. Profiles that are
// not both saved and active are skipped. Registering an id that is
// already registered releases its old bindings first and swaps in the
// new snapshot, so a queued keypress never dispatches against stale
// configuration.
func (r *Router) RegisterProfile(p config.Profile) error {
	if !p.IsSaved || !p.IsActive {
		log.Printf("Router: Skipping profile %s (saved=%v active=%v)", p.ID, p.IsSaved, p.IsActive)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[p.ID]
	if ok {
		r.releaseBindingsLocked(e)
	} else {
		e = &entry{
			path:   r.newPath(p.ID),
			cursor: r.newCursor(p.ID),
		}
		r.entries[p.ID] = e
	}

	e.snapshot.Store(p.Clone())

	id := p.ID
	if p.HasStartHotkey() {
		h, err := r.reg.Register(p.StartHotkey, func() { r.onStart(id) })
		if err != nil {
			return err
		}
		e.startHandle = h
		e.hasStart = true
	}
	if p.HasEndHotkey() {
		h, err := r.reg.Register(p.EndHotkey, func() { r.onStop(id) })
		if err != nil {
			r.releaseBindingsLocked(e)
			return err
		}
		e.endHandle = h
		e.hasEnd = true
	}
	log.Printf("Router: Registered profile %s (start=%q end=%q)", p.ID, p.StartHotkey, p.EndHotkey)
	return nil
}

// UnregisterProfile releases the profile's bindings and stops any
// running playback. No-op for unknown ids.
func (r *Router) UnregisterProfile(profileID string) {
	r.mu.Lock()
	e, ok := r.entries[profileID]
	if ok {
		r.releaseBindingsLocked(e)
		delete(r.entries, profileID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	e.path.Stop()
	e.cursor.Stop()
	log.Printf("Router: Unregistered profile %s", profileID)
}

// releaseBindingsLocked drops the entry's hotkey bindings. Caller
// holds r.mu.
func (r *Router) releaseBindingsLocked(e *entry) {
	if e.hasStart {
		if err := r.reg.Unregister(e.startHandle); err != nil {
			log.Printf("Router: Unregister start hotkey: %v", err)
		}
		e.hasStart = false
	}
	if e.hasEnd {
		if err := r.reg.Unregister(e.endHandle); err != nil {
			log.Printf("Router: Unregister end hotkey: %v", err)
		}
		e.hasEnd = false
	}
}

func (r *Router) onStart(profileID string) {
	r.mu.Lock()
	e, ok := r.entries[profileID]
	r.mu.Unlock()
	if !ok {
		log.Printf("Router: Start hotkey for unknown profile %s, ignoring", profileID)
		return
	}
	p := e.snapshot.Load()
	if p == nil || !p.IsSaved || !p.IsActive {
		log.Printf("Router: Stale snapshot for profile %s, ignoring start", profileID)
		return
	}

	var err error
	switch p.Mode() {
	case config.ModeClickPath:
		err = e.path.Start(p.ClickPath)
	case config.ModeCursorPosition:
		err = e.cursor.Start(p.CursorIntervalMs, p.CursorButton, p.CursorCount)
	}
	if err != nil {
		log.Printf("Router: Start for profile %s: %v", profileID, err)
		r.bus.Publish(status.Event{Kind: status.Error, ProfileID: profileID, Detail: err.Error()})
	}
}

func (r *Router) onStop(profileID string) {
	r.mu.Lock()
	e, ok := r.entries[profileID]
	r.mu.Unlock()
	if !ok {
		return
	}
	e.path.Stop()
	e.cursor.Stop()
}

// StartProfile begins playback for a registered profile, exactly as
// if its start hotkey had fired.
func (r *Router) StartProfile(profileID string) {
	r.onStart(profileID)
}

// StopProfile stops the profile's playback, exactly as if its end
// hotkey had fired.
func (r *Router) StopProfile(profileID string) {
	r.onStop(profileID)
}

// Running reports whether the profile currently has playback active.
func (r *Router) Running(profileID string) bool {
	r.mu.Lock()
	e, ok := r.entries[profileID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return e.path.Running() || e.cursor.Running()
}

// RegisteredIDs returns the ids with live bindings.
func (r *Router) RegisteredIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Close releases every binding and stops all playback.
func (r *Router) Close() {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for id, e := range r.entries {
		r.releaseBindingsLocked(e)
		entries = append(entries, e)
		delete(r.entries, id)
	}
	r.mu.Unlock()
	for _, e := range entries {
		e.path.Stop()
		e.cursor.Stop()
	}
}
