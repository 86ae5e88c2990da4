package repository

import (
	"context"
	"time"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

type Filter struct {
	Limit       int
	Offset      int
	Since       *time.Time
	HazardID    *int
	MinSeverity *models.Severity // >= this severity (e.g., MEDIUM includes MEDIUM and HIGH)
}

// AlertRepository is the journal of alert activations. Hazards themselves are
// never stored; the catalog is static.
type AlertRepository interface {
	AddAlert(ctx context.Context, a *models.AlertEvent) error
	GetAlert(ctx context.Context, id string) (*models.AlertEvent, error)
	ListAlerts(ctx context.Context, opts Filter) ([]models.AlertEvent, error)
	CountByHazard(ctx context.Context) (map[int]int64, error)
}
