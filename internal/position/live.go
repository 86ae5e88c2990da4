package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

// WatchOptions mirror the platform's continuous-location settings.
type WatchOptions struct {
	HighAccuracy bool
	MaximumAge   time.Duration // oldest cached fix the platform may hand back
	Timeout      time.Duration // acquisition timeout per fix
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy: true,
		MaximumAge:   1000 * time.Millisecond,
		Timeout:      10000 * time.Millisecond,
	}
}

// Locator is the platform capability behind a live subscription. Watch returns
// channels that are closed once ctx is done.
type Locator interface {
	Watch(ctx context.Context, opts WatchOptions) (<-chan models.PositionSample, <-chan error, error)
}

// Live forwards fixes from a Locator subscription. Failures are reported on
// the errs channel as ErrUnavailable or ErrTimeout and never stop the source.
type Live struct {
	locator Locator
	opts    WatchOptions
	clock   clockwork.Clock
	out     chan<- models.PositionSample
	errs    chan<- error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLive(locator Locator, opts WatchOptions, clock clockwork.Clock, out chan<- models.PositionSample, errs chan<- error) *Live {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Live{
		locator: locator,
		opts:    opts,
		clock:   clock,
		out:     out,
		errs:    errs,
	}
}

func (l *Live) Name() string {
	return "live"
}

func (l *Live) Start(ctx context.Context) error {
	if l.locator == nil {
		return ErrUnsupported
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	fixes, failures, err := l.locator.Watch(runCtx, l.opts)
	if err != nil {
		cancel()
		if errors.Is(err, ErrUnsupported) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	l.cancel = cancel
	l.done = make(chan struct{})
	timer := l.clock.NewTimer(l.opts.Timeout)
	go l.run(runCtx, fixes, failures, timer, l.done)

	slog.Info("live location subscribed",
		"high_accuracy", l.opts.HighAccuracy,
		"max_age", l.opts.MaximumAge,
		"timeout", l.opts.Timeout,
	)
	return nil
}

func (l *Live) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("live location unsubscribed")
}

func (l *Live) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

func (l *Live) run(ctx context.Context, fixes <-chan models.PositionSample, failures <-chan error, timer clockwork.Timer, done chan struct{}) {
	defer close(done)
	defer l.detach(done)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				if ctx.Err() == nil {
					l.report(ctx, fmt.Errorf("%w: subscription ended by locator", ErrUnavailable))
				}
				return
			}
			timer.Reset(l.opts.Timeout)
			select {
			case l.out <- fix:
			case <-ctx.Done():
				return
			}
		case err, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrUnsupported) {
				err = fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			l.report(ctx, err)
		case <-timer.Chan():
			timer.Reset(l.opts.Timeout)
			l.report(ctx, ErrTimeout)
		}
	}
}

// detach returns Live to the stopped state when run exits without Stop, so
// Running reports false and the next Start subscribes again.
func (l *Live) detach(done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != done {
		return
	}
	l.cancel()
	l.cancel, l.done = nil, nil
}

func (l *Live) report(ctx context.Context, err error) {
	slog.Debug("live location error", "error", err)
	if l.errs == nil {
		return
	}
	select {
	case l.errs <- err:
	case <-ctx.Done():
	}
}
