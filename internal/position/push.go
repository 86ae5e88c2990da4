package position

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

const watcherBuffer = 16

// PushLocator is a Locator fed from outside the process, e.g. a browser posting
// its geolocation readings over HTTP.
type PushLocator struct {
	clock clockwork.Clock

	mu       sync.Mutex
	watchers map[uint64]*watcher
	nextID   uint64
	last     *models.PositionSample
	lastAt   time.Time
}

type watcher struct {
	fixes chan models.PositionSample
	errs  chan error
}

func NewPushLocator(clock clockwork.Clock) *PushLocator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PushLocator{
		clock:    clock,
		watchers: make(map[uint64]*watcher),
	}
}

// Watch registers a subscriber. A cached fix no older than opts.MaximumAge is
// delivered immediately.
func (p *PushLocator) Watch(ctx context.Context, opts WatchOptions) (<-chan models.PositionSample, <-chan error, error) {
	w := &watcher{
		fixes: make(chan models.PositionSample, watcherBuffer),
		errs:  make(chan error, watcherBuffer),
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.watchers[id] = w
	if p.last != nil && p.clock.Since(p.lastAt) <= opts.MaximumAge {
		w.fixes <- *p.last
	}
	p.mu.Unlock()

	context.AfterFunc(ctx, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watchers, id)
		close(w.fixes)
		close(w.errs)
	})

	return w.fixes, w.errs, nil
}

// Push hands a fix to every watcher. Watchers that are not keeping up miss it.
func (p *PushLocator) Push(fix models.PositionSample) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = &fix
	p.lastAt = p.clock.Now()
	for _, w := range p.watchers {
		select {
		case w.fixes <- fix:
		default:
		}
	}
}

// Fail reports a platform error (denied permission, hardware failure) to watchers.
func (p *PushLocator) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, w := range p.watchers {
		select {
		case w.errs <- err:
		default:
		}
	}
}

func (p *PushLocator) WatcherCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watchers)
}
