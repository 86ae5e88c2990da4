package journal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/mr1hm/road-hazard-alerts/internal/config"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
	"github.com/mr1hm/road-hazard-alerts/internal/observability"
	"github.com/mr1hm/road-hazard-alerts/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockAlertRepo implements repository.AlertRepository for testing
type mockAlertRepo struct {
	mu       sync.Mutex
	events   map[string]models.AlertEvent
	addCount atomic.Int64
}

func newMockRepo() *mockAlertRepo {
	return &mockAlertRepo{
		events: make(map[string]models.AlertEvent),
	}
}

func (m *mockAlertRepo) AddAlert(ctx context.Context, a *models.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[a.ID] = *a
	m.addCount.Add(1)
	return nil
}

func (m *mockAlertRepo) GetAlert(ctx context.Context, id string) (*models.AlertEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.events[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *mockAlertRepo) ListAlerts(ctx context.Context, opts repository.Filter) ([]models.AlertEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.AlertEvent
	for _, a := range m.events {
		results = append(results, a)
	}
	return results, nil
}

func (m *mockAlertRepo) CountByHazard(ctx context.Context) (map[int]int64, error) {
	return nil, nil
}

func TestJournal_StartStop(t *testing.T) {
	j := New(config.WorkerConfig{Count: 2, BufferSize: 10}, newMockRepo(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)

	time.Sleep(20 * time.Millisecond)

	cancel()
	j.Stop()
	j.Stop()
}

func TestJournal_RecordsAndDeduplicates(t *testing.T) {
	repo := newMockRepo()
	j := New(config.WorkerConfig{Count: 1, BufferSize: 10}, repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)

	ev := models.AlertEvent{ID: "3-1000", HazardID: 3, Severity: models.SeverityHigh, CreatedAt: time.Now()}
	j.Record(ev)
	j.Record(ev)

	time.Sleep(50 * time.Millisecond)
	cancel()
	j.Stop()

	if repo.addCount.Load() != 1 {
		t.Errorf("expected 1 alert added, got %d", repo.addCount.Load())
	}
}

func TestJournal_ConcurrentRecord(t *testing.T) {
	repo := newMockRepo()
	j := New(config.WorkerConfig{Count: 4, BufferSize: 500}, repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	j.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for k := 0; k < 20; k++ {
				j.Record(models.AlertEvent{
					ID:        fmt.Sprintf("%d-%d", g, k),
					HazardID:  g,
					CreatedAt: time.Now(),
				})
			}
		}(i)
	}
	wg.Wait()

	time.Sleep(200 * time.Millisecond)
	cancel()
	j.Stop()

	if repo.addCount.Load() != 200 {
		t.Errorf("expected 200 alerts added, got %d", repo.addCount.Load())
	}
}

func TestJournal_RecordBeforeStartIsDropped(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	repo := newMockRepo()
	j := New(config.WorkerConfig{Count: 1, BufferSize: 1}, repo, metrics)

	j.Record(models.AlertEvent{ID: "early"})

	if got := testutil.ToFloat64(metrics.JournalDropped); got != 1 {
		t.Errorf("expected 1 dropped event, got %v", got)
	}
	if repo.addCount.Load() != 0 {
		t.Errorf("expected nothing stored, got %d", repo.addCount.Load())
	}
}
