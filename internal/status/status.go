// Package status distributes runtime events (playback progress,
// recording captures, errors) to interested consumers such as the
// local event-feed API and the log.
package status

import (
	"sync"
	"time"

	"autoclick/internal/config"
)

// Kind identifies the event type
type Kind string

const (
	// Started is emitted when a profile's playback or clicking begins
	Started Kind = "started"

	// Stopped is emitted when playback or clicking ends, for any reason
	Stopped Kind = "stopped"

	// StepExecuted is emitted after each click-path step's injection
	StepExecuted Kind = "step_executed"

	// RecordingStarted is emitted when the recorder begins capturing
	RecordingStarted Kind = "recording_started"

	// RecordingStopped is emitted when the recorder finalizes a path
	RecordingStopped Kind = "recording_stopped"

	// RecordingStepCaptured is emitted for each captured click step
	RecordingStepCaptured Kind = "recording_step_captured"

	// Error is emitted for runtime failures that abort a run
	Error Kind = "error"
)

// Event is one runtime status notification
type Event struct {
	Kind      Kind              `json:"kind"`
	ProfileID string            `json:"profile_id,omitempty"`
	StepIndex int               `json:"step_index,omitempty"`
	Step      *config.ClickStep `json:"step,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Time      time.Time         `json:"time"`
}

// Bus fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event, so a stalled GUI
// cannot delay playback timing.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a buffered channel receiving future events.
// The channel is closed by Unsubscribe.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription channel. Safe to call
// with a channel that was already removed.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers an event to all current subscribers
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full, drop event
		}
	}
}
