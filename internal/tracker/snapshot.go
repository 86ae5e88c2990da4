package tracker

import (
	"sync"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

// snapshotHolder lets readers on other goroutines see the loop's latest output.
type snapshotHolder struct {
	mu   sync.RWMutex
	snap *models.Snapshot
}

func (h *snapshotHolder) store(s *models.Snapshot) {
	h.mu.Lock()
	h.snap = s
	h.mu.Unlock()
}

func (h *snapshotHolder) load() *models.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}
