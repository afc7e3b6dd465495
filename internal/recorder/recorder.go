// Package recorder captures raw mouse clicks into a click path. It
// consumes click events from the global input hook and turns them into
// steps with inter-click delays, grouping rapid same-spot clicks into
// double or triple clicks.
package recorder

import (
	"log"
	"sync"
	"time"

	"autoclick/internal/config"
	"autoclick/internal/hotkey"
	"autoclick/internal/osutils"
	"autoclick/internal/status"
)

// Clicks with the same button landing within this pixel slop of the
// previous click are candidates for double-click grouping.
const groupSlopPx = 4

// ObserverHost is the slice of the hotkey listener the recorder
// needs: somewhere to hang its click observer while recording.
type ObserverHost interface {
	SetClickObserver(fn func(hotkey.ClickEvent))
}

// Recorder builds a click path from observed clicks.
type Recorder struct {
	bus       *status.Bus
	host      ObserverHost // may be nil; clicks then arrive via HandleClick directly
	threshold time.Duration

	mu        sync.Mutex
	active    bool
	steps     []config.ClickStep
	lastClick time.Time
}

// NewRecorder creates a recorder observing clicks through host.
// threshold controls double-click grouping; pass 0 to use the OS
// double-click time.
func NewRecorder(bus *status.Bus, host ObserverHost, threshold time.Duration) *Recorder {
	if threshold <= 0 {
		threshold = osutils.DoubleClickTime()
	}
	return &Recorder{bus: bus, host: host, threshold: threshold}
}

// Start begins a new recording, discarding any previous steps, and
// attaches the click observer. Calling Start while already recording
// is a no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return
	}
	r.active = true
	r.steps = nil
	r.lastClick = time.Time{}
	r.mu.Unlock()

	if r.host != nil {
		r.host.SetClickObserver(r.HandleClick)
	}
	log.Println("Recorder: Recording started")
	r.bus.Publish(status.Event{Kind: status.RecordingStarted})
}

// Stop ends the recording and returns the captured path. Calling Stop
// while not recording returns the last captured path unchanged.
func (r *Recorder) Stop() []config.ClickStep {
	r.mu.Lock()
	wasActive := r.active
	r.active = false
	out := make([]config.ClickStep, len(r.steps))
	copy(out, r.steps)
	r.mu.Unlock()

	if wasActive {
		if r.host != nil {
			r.host.SetClickObserver(nil)
		}
		log.Printf("Recorder: Recording stopped with %d steps", len(out))
		r.bus.Publish(status.Event{Kind: status.RecordingStopped})
	}
	return out
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Snapshot returns a copy of the steps captured so far.
func (r *Recorder) Snapshot() []config.ClickStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]config.ClickStep, len(r.steps))
	copy(out, r.steps)
	return out
}

// HandleClick consumes one raw click. Clicks arriving while not
// recording are ignored. A click with the same button within the
// double-click threshold and a few pixels of the previous one bumps
// that step's click count instead of appending a new step.
func (r *Recorder) HandleClick(ev hotkey.ClickEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}

	if n := len(r.steps); n > 0 {
		prev := &r.steps[n-1]
		if prev.Button == ev.Button &&
			ev.When.Sub(r.lastClick) <= r.threshold &&
			abs(ev.X-prev.X) <= groupSlopPx && abs(ev.Y-prev.Y) <= groupSlopPx {
			prev.ClickCount++
			r.lastClick = ev.When
			r.publishCaptured(n-1, *prev)
			return
		}
	}

	delay := 0
	if !r.lastClick.IsZero() {
		delay = int(ev.When.Sub(r.lastClick) / time.Millisecond)
	}
	step := config.ClickStep{
		X:          ev.X,
		Y:          ev.Y,
		Button:     ev.Button,
		ClickCount: 1,
		DelayMs:    delay,
	}
	r.steps = append(r.steps, step)
	r.lastClick = ev.When
	r.publishCaptured(len(r.steps)-1, step)
}

func (r *Recorder) publishCaptured(index int, step config.ClickStep) {
	s := step
	r.bus.Publish(status.Event{
		Kind:      status.RecordingStepCaptured,
		StepIndex: index,
		Step:      &s,
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
