package models

import "time"

// PositionSample is a single fix. Timestamp is milliseconds since epoch.
type PositionSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

func (p PositionSample) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}

func (p PositionSample) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}
