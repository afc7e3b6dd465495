// Package clicker runs click playback: replaying a recorded click path
// step by step, or clicking repeatedly at the live cursor position.
package clicker

import (
	"errors"
	"log"
	"sync"
	"time"

	"autoclick/internal/config"
	"autoclick/internal/status"
)

var (
	ErrEmptyPath       = errors.New("clicker: click path is empty")
	ErrAlreadyRunning  = errors.New("clicker: already running")
	ErrInvalidInterval = errors.New("clicker: interval must be positive")
)

// Injector is the slice of the input layer playback needs.
type Injector interface {
	Click(x, y int, button string, count int) error
	ClickAt(button string, count int) error
	CursorPos() (int, int, error)
}

// PathExecutor replays a recorded click path on its own goroutine.
// Each step waits its delay, then clicks; step order is strict and a
// stop request interrupts mid-delay.
type PathExecutor struct {
	inj       Injector
	bus       *status.Bus
	profileID string
	repeat    bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewPathExecutor creates an executor publishing events for profileID.
// If repeat is set, the path loops until stopped.
func NewPathExecutor(inj Injector, bus *status.Bus, profileID string, repeat bool) *PathExecutor {
	return &PathExecutor{inj: inj, bus: bus, profileID: profileID, repeat: repeat}
}

// Start begins replaying path. It returns immediately; playback runs
// on a dedicated goroutine until the path completes or Stop is called.
func (e *PathExecutor) Start(path []config.ClickStep) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	steps := make([]config.ClickStep, len(path))
	copy(steps, path)
	stopCh, done := e.stopCh, e.done
	e.mu.Unlock()

	go e.run(steps, stopCh, done)
	return nil
}

func (e *PathExecutor) run(steps []config.ClickStep, stopCh chan struct{}, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(done)
		e.bus.Publish(status.Event{Kind: status.Stopped, ProfileID: e.profileID})
	}()

	e.bus.Publish(status.Event{Kind: status.Started, ProfileID: e.profileID})
	log.Printf("Clicker: Playing %d-step path for profile %s", len(steps), e.profileID)

	for {
		for i := range steps {
			step := steps[i]
			if step.DelayMs > 0 {
				select {
				case <-stopCh:
					return
				case <-time.After(time.Duration(step.DelayMs) * time.Millisecond):
				}
			} else {
				select {
				case <-stopCh:
					return
				default:
				}
			}

			if err := e.inj.Click(step.X, step.Y, step.Button, step.ClickCount); err != nil {
				log.Printf("Clicker: Step %d failed for profile %s: %v", i, e.profileID, err)
				e.bus.Publish(status.Event{
					Kind:      status.Error,
					ProfileID: e.profileID,
					StepIndex: i,
					Detail:    err.Error(),
				})
				return
			}
			e.bus.Publish(status.Event{
				Kind:      status.StepExecuted,
				ProfileID: e.profileID,
				StepIndex: i,
				Step:      &step,
			})
		}
		if !e.repeat {
			return
		}
		select {
		case <-stopCh:
			return
		default:
		}
	}
}

// Stop requests the current run to end. It is safe to call when no run
// is active, and safe to call more than once.
func (e *PathExecutor) Stop() {
	e.mu.Lock()
	if e.running {
		select {
		case <-e.stopCh:
		default:
			close(e.stopCh)
		}
	}
	e.mu.Unlock()
}

// Wait blocks until the current run has fully exited. Returns
// immediately if nothing is running.
func (e *PathExecutor) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a playback goroutine is active.
func (e *PathExecutor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// CursorClicker clicks at the live cursor position on a fixed
// interval. A click limit of 0 means run until stopped.
type CursorClicker struct {
	inj       Injector
	bus       *status.Bus
	profileID string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewCursorClicker creates a cursor clicker publishing events for
// profileID.
func NewCursorClicker(inj Injector, bus *status.Bus, profileID string) *CursorClicker {
	return &CursorClicker{inj: inj, bus: bus, profileID: profileID}
}

// Start begins clicking button every intervalMs at the cursor's
// current position. If limit > 0 the clicker stops itself after that
// many clicks.
func (c *CursorClicker) Start(intervalMs int, button string, limit int) error {
	if intervalMs <= 0 {
		return ErrInvalidInterval
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	stopCh, done := c.stopCh, c.done
	c.mu.Unlock()

	go c.run(time.Duration(intervalMs)*time.Millisecond, button, limit, stopCh, done)
	return nil
}

func (c *CursorClicker) run(interval time.Duration, button string, limit int, stopCh chan struct{}, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(done)
		c.bus.Publish(status.Event{Kind: status.Stopped, ProfileID: c.profileID})
	}()

	c.bus.Publish(status.Event{Kind: status.Started, ProfileID: c.profileID})
	log.Printf("Clicker: Cursor clicking every %v for profile %s", interval, c.profileID)

	clicks := 0
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		// The click lands wherever the cursor is right now, not where
		// it was at Start
		if err := c.inj.ClickAt(button, 1); err != nil {
			log.Printf("Clicker: Cursor click failed for profile %s: %v", c.profileID, err)
			c.bus.Publish(status.Event{
				Kind:      status.Error,
				ProfileID: c.profileID,
				Detail:    err.Error(),
			})
			return
		}
		clicks++

		ev := status.Event{Kind: status.StepExecuted, ProfileID: c.profileID, StepIndex: clicks - 1}
		if x, y, err := c.inj.CursorPos(); err == nil {
			ev.Step = &config.ClickStep{X: x, Y: y, Button: button, ClickCount: 1}
		}
		c.bus.Publish(ev)

		if limit > 0 && clicks >= limit {
			return
		}
		select {
		case <-stopCh:
			return
		case <-time.After(interval):
		}
	}
}

// Stop requests the clicker to end. Idempotent.
func (c *CursorClicker) Stop() {
	c.mu.Lock()
	if c.running {
		select {
		case <-c.stopCh:
		default:
			close(c.stopCh)
		}
	}
	c.mu.Unlock()
}

// Wait blocks until the current run has fully exited.
func (c *CursorClicker) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether the clicking goroutine is active.
func (c *CursorClicker) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
