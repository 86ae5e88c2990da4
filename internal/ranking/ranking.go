// Package ranking computes the distance-sorted hazard list and the active
// proximity alert for a position. Every call is a pure function of its inputs.
package ranking

import (
	"sort"
	"strings"

	"github.com/mr1hm/road-hazard-alerts/internal/geo"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

// Filter limits which severities appear in the ranked list.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterMedium Filter = "medium" // medium and up
	FilterHigh   Filter = "high"   // high only
)

// ParseFilter falls back to FilterAll for anything it does not recognise.
func ParseFilter(s string) Filter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "high-only":
		return FilterHigh
	case "medium", "medium-and-up":
		return FilterMedium
	default:
		return FilterAll
	}
}

func (f Filter) Keep(s models.Severity) bool {
	switch f {
	case FilterHigh:
		return s == models.SeverityHigh
	case FilterMedium:
		return s >= models.SeverityMedium
	default:
		return true
	}
}

// Threshold is the alert radius in meters for a severity.
func Threshold(s models.Severity) float64 {
	switch s {
	case models.SeverityHigh:
		return 120
	case models.SeverityMedium:
		return 100
	case models.SeverityLow:
		return 80
	default:
		return 0
	}
}

type Result struct {
	Hazards []models.RankedHazard `json:"hazards"`
	// Nearest is taken over the whole catalog, not the filtered list.
	Nearest *float64 `json:"nearest_m"`
}

// Rank annotates each hazard with its distance from pos, keeps the ones allowed
// by f and sorts them nearest first. Equal distances keep catalog order.
// With a nil pos every distance is nil and catalog order is preserved.
func Rank(pos *models.PositionSample, hazards []models.Hazard, f Filter) Result {
	var res Result

	annotated := make([]models.RankedHazard, 0, len(hazards))
	for _, h := range hazards {
		rh := models.RankedHazard{Hazard: h}
		if pos != nil {
			d := geo.DistanceMeters(pos.Coordinates(), h.Coordinates())
			rh.Distance = &d
			if res.Nearest == nil || d < *res.Nearest {
				nearest := d
				res.Nearest = &nearest
			}
		}
		annotated = append(annotated, rh)
	}

	res.Hazards = make([]models.RankedHazard, 0, len(annotated))
	for _, rh := range annotated {
		if f.Keep(rh.Severity) {
			res.Hazards = append(res.Hazards, rh)
		}
	}

	sort.SliceStable(res.Hazards, func(i, j int) bool {
		a, b := res.Hazards[i].Distance, res.Hazards[j].Distance
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})

	return res
}

// EvaluateAlert returns the closest hazard within its severity threshold of pos,
// or nil. The filter does not apply here.
func EvaluateAlert(pos *models.PositionSample, hazards []models.Hazard) *models.AlertCandidate {
	if pos == nil {
		return nil
	}

	var candidate *models.AlertCandidate
	for _, h := range hazards {
		d := geo.DistanceMeters(pos.Coordinates(), h.Coordinates())
		if d > Threshold(h.Severity) {
			continue
		}
		if candidate == nil || d < candidate.Distance {
			candidate = &models.AlertCandidate{Hazard: h, Distance: d}
		}
	}
	return candidate
}
