package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/road-hazard-alerts/internal/catalog"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
	"github.com/mr1hm/road-hazard-alerts/internal/observability"
	"github.com/mr1hm/road-hazard-alerts/internal/position"
	"github.com/mr1hm/road-hazard-alerts/internal/ranking"
	"github.com/mr1hm/road-hazard-alerts/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingCue struct {
	plays atomic.Int64
	err   error
	panic bool
}

func (c *countingCue) Play(ctx context.Context, alert models.AlertCandidate) error {
	c.plays.Add(1)
	if c.panic {
		panic("audio device gone")
	}
	return c.err
}

type memoryRecorder struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (r *memoryRecorder) Record(e models.AlertEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *memoryRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type harness struct {
	tracker   *Tracker
	locator   *position.PushLocator
	live      *position.Live
	sim       *position.Simulator
	clock     *clockwork.FakeClock
	cue       *countingCue
	recorder  *memoryRecorder
	metrics   *observability.Metrics
	snapshots chan *models.Snapshot
}

type harnessOption func(*Options)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	clock := clockwork.NewFakeClock()
	samples := make(chan models.PositionSample, 16)
	errs := make(chan error, 4)
	locator := position.NewPushLocator(clock)
	live := position.NewLive(locator, position.DefaultWatchOptions(), clock, samples, errs)
	sim := position.NewSimulator(position.DefaultSimulatorConfig(catalog.NagaCenter), clock, samples)

	broadcaster := stream.NewBroadcaster()
	id, ch := broadcaster.Subscribe()

	h := &harness{
		locator:   locator,
		live:      live,
		sim:       sim,
		clock:     clock,
		cue:       &countingCue{},
		recorder:  &memoryRecorder{},
		metrics:   observability.NewMetricsForTesting(),
		snapshots: ch,
	}

	o := Options{
		Hazards:   catalog.All(),
		Samples:   samples,
		Errors:    errs,
		Live:      live,
		Simulator: sim,
		Publisher: broadcaster,
		Cue:       h.cue,
		Recorder:  h.recorder,
		Metrics:   h.metrics,
	}
	for _, opt := range opts {
		opt(&o)
	}
	h.tracker = New(o)
	h.tracker.Start(context.Background())

	t.Cleanup(func() {
		h.tracker.Stop()
		broadcaster.Unsubscribe(id)
	})
	return h
}

// waitFor reads published snapshots until one matches.
func (h *harness) waitFor(t *testing.T, match func(*models.Snapshot) bool) *models.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-h.snapshots:
			if match(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timeout waiting for snapshot")
			return nil
		}
	}
}

func hasPosition(s *models.Snapshot) bool { return s.Position != nil }

func fixAt(id int, ts int64) models.PositionSample {
	h, _ := catalog.ByID(id)
	return models.PositionSample{Latitude: h.Latitude, Longitude: h.Longitude, Timestamp: ts}
}

func TestTracker_InitialSnapshot(t *testing.T) {
	tr := New(Options{Hazards: catalog.All()})

	s := tr.Snapshot()
	require.NotNil(t, s)
	assert.Equal(t, models.GPSSearching, s.Status.State)
	assert.Nil(t, s.Position)
	assert.Equal(t, "– km/h", s.Speed)
	assert.Equal(t, "–", s.Nearest)
	assert.Nil(t, s.Alert)
	require.Len(t, s.Hazards, 10)
	for i, rh := range s.Hazards {
		assert.Equal(t, i+1, rh.ID)
		assert.Nil(t, rh.Distance)
	}
}

func TestTracker_NoLiveSourceIsUnsupported(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Live = nil })

	s := h.waitFor(t, func(s *models.Snapshot) bool { return s.Status.State == models.GPSUnsupported })
	assert.Equal(t, "GPS not supported on this device", s.Status.Message)
	assert.Len(t, s.Hazards, 10)
}

func TestTracker_AlertLifecycleFiresCueOnce(t *testing.T) {
	h := newHarness(t)
	require.Eventually(t, func() bool { return h.locator.WatcherCount() == 1 }, time.Second, 5*time.Millisecond)

	h.locator.Push(fixAt(1, 1000))
	s := h.waitFor(t, hasPosition)
	require.NotNil(t, s.Alert)
	assert.Equal(t, 1, s.Alert.ID)
	assert.True(t, s.PlayCue)
	assert.Equal(t, "HIGH • VERIFIED", s.AlertLabel)
	assert.Equal(t, "0 m", s.AlertDistance)
	assert.Equal(t, models.GPSOK, s.Status.State)

	// Still inside the threshold: reselection, no new cue.
	moved := fixAt(1, 2000)
	moved.Latitude += 0.0001
	h.locator.Push(moved)
	s = h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 2000 })
	require.NotNil(t, s.Alert)
	assert.False(t, s.PlayCue)

	h.locator.Push(models.PositionSample{Latitude: 13.7, Longitude: 123.3, Timestamp: 3000})
	s = h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 3000 })
	assert.Nil(t, s.Alert)

	h.locator.Push(fixAt(3, 4000))
	s = h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 4000 })
	require.NotNil(t, s.Alert)
	assert.Equal(t, 3, s.Alert.ID)
	assert.True(t, s.PlayCue)

	assert.Equal(t, int64(2), h.cue.plays.Load())
	assert.Equal(t, 2, h.recorder.len())
}

func TestTracker_SpeedFromConsecutiveFixes(t *testing.T) {
	h := newHarness(t)
	require.Eventually(t, func() bool { return h.locator.WatcherCount() == 1 }, time.Second, 5*time.Millisecond)

	h.locator.Push(models.PositionSample{Latitude: 13.70, Longitude: 123.30, Timestamp: 1000})
	s := h.waitFor(t, hasPosition)
	assert.Equal(t, "– km/h", s.Speed)
	assert.Nil(t, s.SpeedKmh)

	h.locator.Push(models.PositionSample{Latitude: 13.7001, Longitude: 123.30, Timestamp: 2000})
	s = h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 2000 })
	require.NotNil(t, s.SpeedKmh)
	assert.InDelta(t, 40.0, *s.SpeedKmh, 0.5)
	assert.Equal(t, "40 km/h", s.Speed)

	// Out of order sample: speed becomes unavailable, no error.
	h.locator.Push(models.PositionSample{Latitude: 13.7002, Longitude: 123.30, Timestamp: 1500})
	s = h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 1500 })
	assert.Nil(t, s.SpeedKmh)
	assert.Equal(t, "– km/h", s.Speed)
}

func TestTracker_SetFilterKeepsAlert(t *testing.T) {
	h := newHarness(t)
	require.Eventually(t, func() bool { return h.locator.WatcherCount() == 1 }, time.Second, 5*time.Millisecond)

	// Hazard 6 is the only low severity entry.
	h.locator.Push(fixAt(6, 1000))
	s := h.waitFor(t, hasPosition)
	require.NotNil(t, s.Alert)
	require.Equal(t, 6, s.Alert.ID)

	s, err := h.tracker.SetFilter(context.Background(), ranking.FilterHigh)
	require.NoError(t, err)
	assert.Equal(t, "high", s.Filter)
	require.Len(t, s.Hazards, 3)
	for _, rh := range s.Hazards {
		assert.Equal(t, models.SeverityHigh, rh.Severity)
	}
	require.NotNil(t, s.NearestDistance)
	assert.InDelta(t, 0.0, *s.NearestDistance, 1e-9)
	require.NotNil(t, s.Alert)
	assert.Equal(t, 6, s.Alert.ID)
	assert.False(t, s.PlayCue)
	assert.Equal(t, int64(1), h.cue.plays.Load())
}

func TestTracker_LocationErrorDisablesDistances(t *testing.T) {
	h := newHarness(t)
	require.Eventually(t, func() bool { return h.locator.WatcherCount() == 1 }, time.Second, 5*time.Millisecond)

	h.locator.Push(fixAt(1, 1000))
	h.waitFor(t, hasPosition)

	h.locator.Fail(errors.New("user denied geolocation"))
	s := h.waitFor(t, func(s *models.Snapshot) bool { return s.Status.State == models.GPSUnavailable })
	assert.Equal(t, "GPS unavailable – using map only", s.Status.Message)
	assert.Nil(t, s.Position)
	assert.Nil(t, s.Alert)
	assert.Equal(t, "–", s.Nearest)
	for _, rh := range s.Hazards {
		assert.Nil(t, rh.Distance)
	}
}

func TestTracker_CueFailuresAreSwallowed(t *testing.T) {
	for name, cue := range map[string]*countingCue{
		"error": {err: errors.New("autoplay blocked")},
		"panic": {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(o *Options) { o.Cue = cue })
			require.Eventually(t, func() bool { return h.locator.WatcherCount() == 1 }, time.Second, 5*time.Millisecond)

			h.locator.Push(fixAt(7, 1000))
			s := h.waitFor(t, hasPosition)
			require.NotNil(t, s.Alert)
			assert.Equal(t, 7, s.Alert.ID)
			assert.Equal(t, int64(1), cue.plays.Load())

			// The loop is still alive.
			_, err := h.tracker.SetFilter(context.Background(), ranking.FilterMedium)
			assert.NoError(t, err)
		})
	}
}

func TestTracker_ToggleSimulation(t *testing.T) {
	h := newHarness(t)
	require.Eventually(t, func() bool { return h.locator.WatcherCount() == 1 }, time.Second, 5*time.Millisecond)
	ctx := context.Background()

	running, err := h.tracker.ToggleSimulation(ctx)
	require.NoError(t, err)
	assert.True(t, running)
	assert.True(t, h.sim.Running())
	assert.False(t, h.live.Running())

	h.clock.Advance(time.Second)
	s := h.waitFor(t, hasPosition)
	assert.True(t, s.Simulating)
	assert.InDelta(t, catalog.NagaCenter.Latitude, s.Position.Latitude, 0.0041)
	assert.Equal(t, models.GPSOK, s.Status.State)

	running, err = h.tracker.ToggleSimulation(ctx)
	require.NoError(t, err)
	assert.False(t, running)
	assert.False(t, h.sim.Running())
	assert.True(t, h.live.Running())

	s = h.tracker.Snapshot()
	assert.False(t, s.Simulating)
	assert.Nil(t, s.Position)
	assert.Equal(t, models.GPSSearching, s.Status.State)
}

func TestTracker_ToggleWithoutSimulator(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Simulator = nil })

	_, err := h.tracker.ToggleSimulation(context.Background())
	assert.ErrorIs(t, err, ErrNoSimulator)
}

func TestTracker_CommandsAfterStop(t *testing.T) {
	tr := New(Options{Hazards: catalog.All()})
	tr.Start(context.Background())
	tr.Stop()

	_, err := tr.SetFilter(context.Background(), ranking.FilterHigh)
	assert.Error(t, err)
}

func TestTracker_OlderSampleReplacesLast(t *testing.T) {
	h := newHarness(t)
	require.Eventually(t, func() bool { return h.locator.WatcherCount() == 1 }, time.Second, 5*time.Millisecond)

	h.locator.Push(models.PositionSample{Latitude: 13.70, Longitude: 123.30, Timestamp: 5000})
	h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 5000 })

	h.locator.Push(models.PositionSample{Latitude: 13.71, Longitude: 123.30, Timestamp: 1000})
	s := h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 1000 })
	assert.Equal(t, "– km/h", s.Speed)
	assert.Nil(t, s.SpeedKmh)
	assert.Equal(t, 13.71, s.Position.Latitude)

	// Speed is now measured from the older sample, which became the last fix.
	h.locator.Push(models.PositionSample{Latitude: 13.7101, Longitude: 123.30, Timestamp: 2000})
	s = h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 2000 })
	require.NotNil(t, s.SpeedKmh)
	assert.InDelta(t, 40.0, *s.SpeedKmh, 0.5)
}

func TestTracker_GaugesResetWithoutPosition(t *testing.T) {
	h := newHarness(t)
	require.Eventually(t, func() bool { return h.locator.WatcherCount() == 1 }, time.Second, 5*time.Millisecond)

	h.locator.Push(models.PositionSample{Latitude: 13.6245, Longitude: 123.1932, Timestamp: 1000})
	h.locator.Push(models.PositionSample{Latitude: 13.6246, Longitude: 123.1932, Timestamp: 2000})
	h.waitFor(t, func(s *models.Snapshot) bool { return s.Position != nil && s.Position.Timestamp == 2000 })
	assert.Greater(t, testutil.ToFloat64(h.metrics.SpeedKmh), 0.0)
	assert.Greater(t, testutil.ToFloat64(h.metrics.NearestHazard), 0.0)

	h.locator.Fail(errors.New("position unavailable"))
	h.waitFor(t, func(s *models.Snapshot) bool { return s.Status.State == models.GPSUnavailable })
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.SpeedKmh))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.NearestHazard))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.AlertActive))
}
