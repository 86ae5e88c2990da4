package api

import (
	"github.com/mr1hm/road-hazard-alerts/internal/geo"
	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(hazards []models.RankedHazard) FeatureCollection {
	features := make([]Feature, 0, len(hazards))

	for _, h := range hazards {
		distance := "–"
		if h.Distance != nil {
			distance = geo.FormatDistance(*h.Distance)
		}
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{h.Longitude, h.Latitude},
			},
			Properties: map[string]any{
				"id":          h.ID,
				"name":        h.Name,
				"type":        string(h.Type),
				"type_label":  h.Type.Label(),
				"icon":        h.Type.Icon(),
				"severity":    h.Severity.String(),
				"verified":    h.Verified,
				"description": h.Description,
				"distance_m":  h.Distance,
				"distance":    distance,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
