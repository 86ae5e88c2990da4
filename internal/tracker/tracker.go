// Package tracker owns the live state of one user: last position, speed, the
// severity filter and the proximity alert. All state changes happen on a
// single goroutine, in the order samples and commands arrive.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/road-hazard-alerts/internal/geo"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
	"github.com/mr1hm/road-hazard-alerts/internal/observability"
	"github.com/mr1hm/road-hazard-alerts/internal/position"
	"github.com/mr1hm/road-hazard-alerts/internal/ranking"
)

var ErrNoSimulator = errors.New("simulation not configured")

// Cue is the one-shot notification played when an alert becomes active.
// Errors are logged and otherwise ignored.
type Cue interface {
	Play(ctx context.Context, alert models.AlertCandidate) error
}

type Publisher interface {
	Broadcast(s *models.Snapshot)
}

type Recorder interface {
	Record(event models.AlertEvent)
}

type Options struct {
	Hazards   []models.Hazard
	Samples   <-chan models.PositionSample
	Errors    <-chan error
	Live      position.Source
	Simulator position.Source
	Publisher Publisher
	Cue       Cue
	Recorder  Recorder
	Metrics   *observability.Metrics
	Clock     clockwork.Clock
}

type command func(ctx context.Context)

type Tracker struct {
	hazards   []models.Hazard
	samples   <-chan models.PositionSample
	errs      <-chan error
	live      position.Source
	sim       position.Source
	publisher Publisher
	cue       Cue
	recorder  Recorder
	metrics   *observability.Metrics
	clock     clockwork.Clock
	commands  chan command

	// Loop-owned state.
	last       *models.PositionSample
	lastUpdate time.Time
	speed      *float64
	filter     ranking.Filter
	status     models.GPSStatus
	alert      *models.AlertCandidate
	simulating bool

	current snapshotHolder

	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) *Tracker {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	t := &Tracker{
		hazards:   opts.Hazards,
		samples:   opts.Samples,
		errs:      opts.Errors,
		live:      opts.Live,
		sim:       opts.Simulator,
		publisher: opts.Publisher,
		cue:       opts.Cue,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		clock:     clock,
		commands:  make(chan command),
		filter:    ranking.FilterAll,
		status:    models.NewGPSStatus(models.GPSSearching),
		done:      make(chan struct{}),
	}
	t.current.store(t.buildSnapshot(false))
	return t
}

// Start runs the event loop until ctx is cancelled or Stop is called.
func (t *Tracker) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	go t.run(runCtx)
}

func (t *Tracker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	slog.Info("tracker stopped")
}

// Snapshot returns the latest published state. The result must not be modified.
func (t *Tracker) Snapshot() *models.Snapshot {
	return t.current.load()
}

// SetFilter changes which severities are listed. The alert is not re-evaluated.
func (t *Tracker) SetFilter(ctx context.Context, f ranking.Filter) (*models.Snapshot, error) {
	err := t.do(ctx, func(context.Context) {
		t.filter = f
		t.publish(false)
	})
	if err != nil {
		return nil, err
	}
	return t.Snapshot(), nil
}

// ToggleSimulation starts the simulated drive if it is stopped and stops it if
// it is running. The live subscription is paused while simulating.
func (t *Tracker) ToggleSimulation(ctx context.Context) (bool, error) {
	if t.sim == nil {
		return false, ErrNoSimulator
	}

	var (
		running bool
		err     error
	)
	doErr := t.do(ctx, func(loopCtx context.Context) {
		running, err = t.toggle(loopCtx)
	})
	if doErr != nil {
		return false, doErr
	}
	return running, err
}

func (t *Tracker) do(ctx context.Context, fn command) error {
	finished := make(chan struct{})
	wrapped := func(loopCtx context.Context) {
		defer close(finished)
		fn(loopCtx)
	}

	select {
	case t.commands <- wrapped:
	case <-t.done:
		return errors.New("tracker stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)

	t.startLive(ctx)
	t.publish(false)

	for {
		select {
		case <-ctx.Done():
			t.stopSources()
			return
		case s := <-t.samples:
			t.handlePosition(ctx, s)
		case err := <-t.errs:
			t.handleError(ctx, err)
		case cmd := <-t.commands:
			cmd(ctx)
		}
	}
}

func (t *Tracker) startLive(ctx context.Context) {
	if t.live == nil {
		t.handleError(ctx, position.ErrUnsupported)
		return
	}
	if err := t.live.Start(ctx); err != nil {
		t.handleError(ctx, err)
		return
	}
	t.status = models.NewGPSStatus(models.GPSSearching)
}

func (t *Tracker) stopSources() {
	if t.sim != nil {
		t.sim.Stop()
	}
	if t.live != nil {
		t.live.Stop()
	}
}

func (t *Tracker) toggle(ctx context.Context) (bool, error) {
	if t.sim.Running() {
		t.sim.Stop()
		t.simulating = false
		t.resetPosition(ctx)
		slog.Info("switched to live location")
		t.startLive(ctx)
		t.publish(false)
		return false, nil
	}

	if t.live != nil {
		t.live.Stop()
	}
	t.resetPosition(ctx)
	if err := t.sim.Start(ctx); err != nil {
		t.startLive(ctx)
		t.publish(false)
		return false, fmt.Errorf("error starting simulation: %w", err)
	}
	t.simulating = true
	t.status = models.NewGPSStatus(models.GPSSearching)
	slog.Info("switched to simulated location")
	t.publish(false)
	return true, nil
}

// resetPosition forgets the previous source's fix so speed is never estimated
// across two sources, and drops samples it left queued.
func (t *Tracker) resetPosition(ctx context.Context) {
	for drained := false; !drained; {
		select {
		case <-t.samples:
		default:
			drained = true
		}
	}
	t.last = nil
	t.speed = nil
	t.updateAlert(ctx)
}

func (t *Tracker) handlePosition(ctx context.Context, s models.PositionSample) {
	if kmh, ok := geo.EstimateSpeedKmh(s, t.last); ok {
		t.speed = &kmh
	} else {
		t.speed = nil
	}

	t.last = &s
	t.lastUpdate = t.clock.Now()
	t.status = models.NewGPSStatus(models.GPSOK)

	if t.metrics != nil {
		source := "live"
		if t.simulating {
			source = "simulated"
		}
		t.metrics.PositionsProcessed.WithLabelValues(source).Inc()
	}

	activated := t.updateAlert(ctx)
	t.publish(activated)
}

func (t *Tracker) handleError(ctx context.Context, err error) {
	if t.simulating {
		slog.Debug("ignoring live location error while simulating", "error", err)
		return
	}

	state, reason := models.GPSUnavailable, "unavailable"
	switch {
	case errors.Is(err, position.ErrUnsupported):
		state, reason = models.GPSUnsupported, "unsupported"
	case errors.Is(err, position.ErrTimeout):
		reason = "timeout"
	}
	slog.Warn("location error", "reason", reason, "error", err)
	if t.metrics != nil {
		t.metrics.PositionErrors.WithLabelValues(reason).Inc()
	}

	t.status = models.NewGPSStatus(state)
	t.last = nil
	t.speed = nil
	t.updateAlert(ctx)
	t.publish(false)
}

// updateAlert re-evaluates the alert against the full catalog and reports
// whether it just went from idle to active.
func (t *Tracker) updateAlert(ctx context.Context) bool {
	prev := t.alert
	next := ranking.EvaluateAlert(t.last, t.hazards)
	t.alert = next

	switch {
	case next == nil:
		if prev != nil {
			slog.Info("alert cleared", "hazard_id", prev.ID)
		}
		if t.metrics != nil {
			t.metrics.AlertActive.Set(0)
		}
		return false
	case prev == nil:
		t.activate(ctx, *next)
		return true
	default:
		if prev.ID != next.ID {
			slog.Debug("alert reselected", "from", prev.ID, "to", next.ID)
		}
		return false
	}
}

func (t *Tracker) activate(ctx context.Context, a models.AlertCandidate) {
	slog.Info("alert raised",
		"hazard_id", a.ID,
		"name", a.Name,
		"severity", a.Severity.String(),
		"distance", geo.FormatDistance(a.Distance),
	)
	if t.metrics != nil {
		t.metrics.AlertActive.Set(1)
		t.metrics.AlertsRaised.WithLabelValues(a.Severity.String()).Inc()
	}

	now := t.clock.Now()
	if t.recorder != nil {
		t.recorder.Record(models.AlertEvent{
			ID:         fmt.Sprintf("%d-%d", a.ID, now.UnixMilli()),
			HazardID:   a.ID,
			HazardName: a.Name,
			Severity:   a.Severity,
			Distance:   a.Distance,
			Simulated:  t.simulating,
			CreatedAt:  now,
		})
	}

	t.playCue(ctx, a)
}

func (t *Tracker) playCue(ctx context.Context, a models.AlertCandidate) {
	if t.cue == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("alert cue panicked", "panic", r)
		}
	}()
	if err := t.cue.Play(ctx, a); err != nil {
		slog.Debug("alert cue failed", "error", err)
	}
}

func (t *Tracker) publish(playCue bool) {
	snap := t.buildSnapshot(playCue)
	t.current.store(snap)

	if t.metrics != nil {
		speed, nearest := 0.0, 0.0
		if snap.SpeedKmh != nil {
			speed = *snap.SpeedKmh
		}
		if snap.NearestDistance != nil {
			nearest = *snap.NearestDistance
		}
		t.metrics.SpeedKmh.Set(speed)
		t.metrics.NearestHazard.Set(nearest)
	}
	if t.publisher != nil {
		t.publisher.Broadcast(snap)
	}
}

func (t *Tracker) buildSnapshot(playCue bool) *models.Snapshot {
	res := ranking.Rank(t.last, t.hazards, t.filter)

	snap := &models.Snapshot{
		Status:          t.status,
		SpeedKmh:        t.speed,
		NearestDistance: res.Nearest,
		Nearest:         "–",
		Hazards:         res.Hazards,
		Filter:          string(t.filter),
		Simulating:      t.simulating,
		UpdatedAt:       t.lastUpdate,
		PlayCue:         playCue,
	}
	if t.last != nil {
		p := *t.last
		snap.Position = &p
	}
	if t.speed != nil {
		snap.Speed = geo.FormatSpeed(*t.speed, true)
	} else {
		snap.Speed = geo.FormatSpeed(0, false)
	}
	if res.Nearest != nil {
		snap.Nearest = geo.FormatDistance(*res.Nearest)
	}
	if t.alert != nil {
		a := *t.alert
		snap.Alert = &a
		snap.AlertLabel = a.SeverityLabel()
		snap.AlertDistance = geo.FormatDistance(a.Distance)
	}
	return snap
}
