package models

import (
	"strings"
	"time"
)

// AlertCandidate is the closest hazard currently inside its severity threshold.
type AlertCandidate struct {
	Hazard
	Distance float64 `json:"distance_m"`
}

// SeverityLabel is the banner text, e.g. "HIGH • VERIFIED".
func (a *AlertCandidate) SeverityLabel() string {
	label := strings.ToUpper(a.Severity.String())
	if a.Verified {
		label += " • VERIFIED"
	}
	return label
}

// AlertEvent records one Idle->Active transition in the journal.
type AlertEvent struct {
	ID         string    `json:"id"`
	HazardID   int       `json:"hazard_id"`
	HazardName string    `json:"hazard_name"`
	Severity   Severity  `json:"severity"`
	Distance   float64   `json:"distance_m"`
	Simulated  bool      `json:"simulated"`
	CreatedAt  time.Time `json:"created_at"`
}
