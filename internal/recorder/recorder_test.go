package recorder

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoclick/internal/clicker"
	"autoclick/internal/hotkey"
	"autoclick/internal/status"
)

func click(x, y int, button string, at time.Time) hotkey.ClickEvent {
	return hotkey.ClickEvent{X: x, Y: y, Button: button, When: at}
}

func TestFirstStepHasZeroDelay(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 100*time.Millisecond)
	r.Start()
	r.HandleClick(click(10, 20, "left", time.Now()))
	steps := r.Stop()

	require.Len(t, steps, 1)
	assert.Equal(t, 0, steps[0].DelayMs)
	assert.Equal(t, 10, steps[0].X)
	assert.Equal(t, 1, steps[0].ClickCount)
}

func TestDelayIsElapsedSincePreviousClick(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 50*time.Millisecond)
	base := time.Now()
	r.Start()
	r.HandleClick(click(10, 10, "left", base))
	r.HandleClick(click(200, 200, "left", base.Add(750*time.Millisecond)))
	steps := r.Stop()

	require.Len(t, steps, 2)
	assert.Equal(t, 750, steps[1].DelayMs)
}

func TestRapidSameSpotClicksGroupIntoDoubleClick(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 200*time.Millisecond)
	base := time.Now()
	r.Start()
	r.HandleClick(click(50, 50, "left", base))
	r.HandleClick(click(52, 51, "left", base.Add(120*time.Millisecond)))
	steps := r.Stop()

	require.Len(t, steps, 1)
	assert.Equal(t, 2, steps[0].ClickCount)
}

func TestSlowClicksDoNotGroup(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 200*time.Millisecond)
	base := time.Now()
	r.Start()
	r.HandleClick(click(50, 50, "left", base))
	r.HandleClick(click(50, 50, "left", base.Add(400*time.Millisecond)))
	steps := r.Stop()

	require.Len(t, steps, 2)
}

func TestFarApartClicksDoNotGroup(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 200*time.Millisecond)
	base := time.Now()
	r.Start()
	r.HandleClick(click(50, 50, "left", base))
	r.HandleClick(click(80, 50, "left", base.Add(50*time.Millisecond)))
	steps := r.Stop()

	require.Len(t, steps, 2)
}

func TestDifferentButtonsDoNotGroup(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 200*time.Millisecond)
	base := time.Now()
	r.Start()
	r.HandleClick(click(50, 50, "left", base))
	r.HandleClick(click(50, 50, "right", base.Add(50*time.Millisecond)))
	steps := r.Stop()

	require.Len(t, steps, 2)
	assert.Equal(t, "right", steps[1].Button)
}

func TestClicksIgnoredWhileNotRecording(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 200*time.Millisecond)
	r.HandleClick(click(10, 10, "left", time.Now()))
	assert.Empty(t, r.Snapshot())

	r.Start()
	r.HandleClick(click(10, 10, "left", time.Now()))
	r.Stop()
	r.HandleClick(click(20, 20, "left", time.Now()))
	assert.Len(t, r.Snapshot(), 1)
}

func TestStartDiscardsPreviousRecording(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 200*time.Millisecond)
	r.Start()
	r.HandleClick(click(10, 10, "left", time.Now()))
	r.Stop()

	r.Start()
	assert.Empty(t, r.Snapshot())
	// restart must not inherit the old last-click time as a delay base
	r.HandleClick(click(30, 30, "left", time.Now()))
	steps := r.Stop()
	require.Len(t, steps, 1)
	assert.Equal(t, 0, steps[0].DelayMs)
}

func TestStartWhileRecordingIsNoOp(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 200*time.Millisecond)
	r.Start()
	r.HandleClick(click(10, 10, "left", time.Now()))
	r.Start()
	assert.Len(t, r.Snapshot(), 1)
}

type fakeHost struct {
	observer func(hotkey.ClickEvent)
	sets     int
}

func (f *fakeHost) SetClickObserver(fn func(hotkey.ClickEvent)) {
	f.observer = fn
	f.sets++
}

func TestObserverAttachedForRecordingLifetime(t *testing.T) {
	host := &fakeHost{}
	r := NewRecorder(status.NewBus(), host, 200*time.Millisecond)

	r.Start()
	require.NotNil(t, host.observer)
	host.observer(click(10, 10, "left", time.Now()))

	steps := r.Stop()
	assert.Nil(t, host.observer, "observer must detach on stop")
	assert.Equal(t, 2, host.sets)
	require.Len(t, steps, 1)
}

func TestStatusEventsPublished(t *testing.T) {
	bus := status.NewBus()
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	r := NewRecorder(bus, nil, 200*time.Millisecond)
	r.Start()
	r.HandleClick(click(10, 10, "left", time.Now()))
	r.Stop()

	var kinds []status.Kind
	for {
		select {
		case e := <-events:
			kinds = append(kinds, e.Kind)
			continue
		default:
		}
		break
	}
	require.Len(t, kinds, 3)
	assert.Equal(t, status.RecordingStarted, kinds[0])
	assert.Equal(t, status.RecordingStepCaptured, kinds[1])
	assert.Equal(t, status.RecordingStopped, kinds[2])
}

type timedInjector struct {
	mu     sync.Mutex
	coords [][2]int
	times  []time.Time
}

func (f *timedInjector) Click(x, y int, button string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coords = append(f.coords, [2]int{x, y})
	f.times = append(f.times, time.Now())
	return nil
}

func (f *timedInjector) ClickAt(button string, count int) error { return f.Click(-1, -1, button, count) }
func (f *timedInjector) CursorPos() (int, int, error)           { return 0, 0, nil }

// Recording a click sequence and replaying it through the executor
// reproduces the same coordinates in order with the recorded gaps.
func TestRecordThenReplayRoundTrip(t *testing.T) {
	r := NewRecorder(status.NewBus(), nil, 100*time.Millisecond)
	base := time.Now()
	r.Start()
	r.HandleClick(click(10, 10, "left", base))
	r.HandleClick(click(50, 60, "left", base.Add(300*time.Millisecond)))
	r.HandleClick(click(100, 5, "left", base.Add(1050*time.Millisecond)))
	path := r.Stop()

	require.Len(t, path, 3)
	assert.Equal(t, 0, path[0].DelayMs)
	assert.Equal(t, 300, path[1].DelayMs)
	assert.Equal(t, 750, path[2].DelayMs)

	inj := &timedInjector{}
	exec := clicker.NewPathExecutor(inj, status.NewBus(), "roundtrip", false)
	require.NoError(t, exec.Start(path))
	exec.Wait()

	require.Len(t, inj.coords, 3)
	assert.Equal(t, [2]int{10, 10}, inj.coords[0])
	assert.Equal(t, [2]int{50, 60}, inj.coords[1])
	assert.Equal(t, [2]int{100, 5}, inj.coords[2])

	gap1 := inj.times[1].Sub(inj.times[0])
	gap2 := inj.times[2].Sub(inj.times[1])
	assert.GreaterOrEqual(t, gap1, 290*time.Millisecond)
	assert.Less(t, gap1, 700*time.Millisecond)
	assert.GreaterOrEqual(t, gap2, 740*time.Millisecond)
	assert.Less(t, gap2, 1500*time.Millisecond)
}
