package position

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

type SimulatorConfig struct {
	Center   models.Coordinates
	Radius   float64 // degrees
	Step     float64 // radians advanced per tick
	Interval time.Duration
}

func DefaultSimulatorConfig(center models.Coordinates) SimulatorConfig {
	return SimulatorConfig{
		Center:   center,
		Radius:   0.004,
		Step:     0.03,
		Interval: time.Second,
	}
}

// Simulator drives a point around a circle, one sample per tick.
type Simulator struct {
	cfg   SimulatorConfig
	clock clockwork.Clock
	out   chan<- models.PositionSample

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSimulator(cfg SimulatorConfig, clock clockwork.Clock, out chan<- models.PositionSample) *Simulator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Simulator{
		cfg:   cfg,
		clock: clock,
		out:   out,
	}
}

func (s *Simulator) Name() string {
	return "simulated"
}

// Start begins a fresh lap from angle zero. It is a no-op if already running.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	ticker := s.clock.NewTicker(s.cfg.Interval)
	go s.run(runCtx, ticker, s.done)

	slog.Info("simulation started", "center_lat", s.cfg.Center.Latitude, "center_lng", s.cfg.Center.Longitude)
	return nil
}

// Stop cancels the timer and waits for the generator to exit, so no sample
// is sent after Stop returns.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("simulation stopped")
}

func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Toggle stops a running simulation or starts a stopped one and reports
// whether it is running afterwards.
func (s *Simulator) Toggle(ctx context.Context) (bool, error) {
	if s.Running() {
		s.Stop()
		return false, nil
	}
	if err := s.Start(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Simulator) run(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	var t float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t += s.cfg.Step
			sample := models.PositionSample{
				Latitude:  s.cfg.Center.Latitude + s.cfg.Radius*math.Cos(t),
				Longitude: s.cfg.Center.Longitude + s.cfg.Radius*math.Sin(t),
				Timestamp: s.clock.Now().UnixMilli(),
			}
			select {
			case s.out <- sample:
			case <-ctx.Done():
				return
			}
		}
	}
}
