// Package geo holds the distance and speed math used by the ranking engine.
package geo

import (
	"fmt"
	"math"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

const earthRadiusMeters = 6371000.0

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b models.Coordinates) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// FormatDistance renders meters below 1 km and kilometers (two decimals) from 1 km up.
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.2f km", meters/1000)
	}
	return fmt.Sprintf("%d m", int64(math.Round(meters)))
}

// EstimateSpeedKmh derives speed from two consecutive fixes. It reports false when
// there is no previous fix or the timestamps do not move forward.
func EstimateSpeedKmh(current models.PositionSample, previous *models.PositionSample) (float64, bool) {
	if previous == nil {
		return 0, false
	}
	dt := float64(current.Timestamp-previous.Timestamp) / 1000
	if dt <= 0 {
		return 0, false
	}
	d := DistanceMeters(previous.Coordinates(), current.Coordinates())
	return d / dt * 3.6, true
}

func FormatSpeed(kmh float64, ok bool) string {
	if !ok {
		return "– km/h"
	}
	return fmt.Sprintf("%.0f km/h", kmh)
}
