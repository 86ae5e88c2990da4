package models

import "time"

type GPSState string

const (
	GPSSearching   GPSState = "searching"
	GPSOK          GPSState = "ok"
	GPSUnavailable GPSState = "unavailable"
	GPSUnsupported GPSState = "unsupported"
)

func (s GPSState) Message() string {
	switch s {
	case GPSOK:
		return "GPS locked · Live"
	case GPSUnavailable:
		return "GPS unavailable – using map only"
	case GPSUnsupported:
		return "GPS not supported on this device"
	default:
		return "Searching GPS…"
	}
}

type GPSStatus struct {
	State   GPSState `json:"state"`
	Message string   `json:"message"`
}

func NewGPSStatus(state GPSState) GPSStatus {
	return GPSStatus{State: state, Message: state.Message()}
}

// Snapshot is everything the presentation layer needs to render one update.
type Snapshot struct {
	Status          GPSStatus       `json:"status"`
	Position        *PositionSample `json:"position,omitempty"`
	SpeedKmh        *float64        `json:"speed_kmh"`
	Speed           string          `json:"speed"`
	NearestDistance *float64        `json:"nearest_distance_m"`
	Nearest         string          `json:"nearest"`
	Hazards         []RankedHazard  `json:"hazards"`
	Alert           *AlertCandidate `json:"alert"`
	AlertLabel      string          `json:"alert_label,omitempty"`
	AlertDistance   string          `json:"alert_distance,omitempty"`
	// PlayCue is set only on the update where an alert became active.
	PlayCue         bool            `json:"play_cue"`
	Filter          string          `json:"filter"`
	Simulating      bool            `json:"simulating"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
