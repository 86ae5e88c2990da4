package models

import (
	"fmt"
	"strings"
)

type HazardType string

const (
	HazardTypePotholeDeep     HazardType = "pothole_deep"
	HazardTypePotholeShallow  HazardType = "pothole_shallow"
	HazardTypeFlooded         HazardType = "flooded"
	HazardTypeBarriered       HazardType = "barriered"
	HazardTypeUnderRenovation HazardType = "under_renovation"
	HazardTypeCrack           HazardType = "crack"
)

// Label is the human readable name shown next to a hazard in the list.
func (t HazardType) Label() string {
	switch t {
	case HazardTypePotholeDeep:
		return "Deep pothole"
	case HazardTypePotholeShallow:
		return "Shallow potholes"
	case HazardTypeFlooded:
		return "Flooded road"
	case HazardTypeBarriered:
		return "Barriered / blocked"
	case HazardTypeUnderRenovation:
		return "Under renovation"
	case HazardTypeCrack:
		return "Cracked surface"
	default:
		return string(t)
	}
}

func (t HazardType) Icon() string {
	switch t {
	case HazardTypePotholeDeep:
		return "🕳️"
	case HazardTypeFlooded:
		return "🌧️"
	case HazardTypeBarriered:
		return "🚧"
	case HazardTypeUnderRenovation:
		return "👷"
	case HazardTypeCrack:
		return "〰️"
	default:
		return "⚠️"
	}
}

// Severity is ordered: SeverityLow < SeverityMedium < SeverityHigh.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Title returns the capitalized form used in list metadata ("High severity").
func (s Severity) Title() string {
	str := s.String()
	return strings.ToUpper(str[:1]) + str[1:]
}

func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return SeverityUnknown, fmt.Errorf("unknown severity: %q", s)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Hazard is a catalog entry. Values are never mutated after the catalog is built.
type Hazard struct {
	ID          int        `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Type        HazardType `json:"type" yaml:"type"`
	Severity    Severity   `json:"severity" yaml:"severity"`
	Latitude    float64    `json:"latitude" yaml:"latitude"`
	Longitude   float64    `json:"longitude" yaml:"longitude"`
	Verified    bool       `json:"verified" yaml:"verified"`
	Description string     `json:"description" yaml:"description"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Hazard) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  h.Latitude,
		Longitude: h.Longitude,
	}
}

// RankedHazard pairs a hazard with its distance from the current position.
// Distance is nil when no position is known.
type RankedHazard struct {
	Hazard
	Distance *float64 `json:"distance_m"`
}
