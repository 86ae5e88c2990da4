// Package catalog holds the fixed set of known road hazards around Naga City.
// The list is built once at package init and never modified; callers get copies.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

// NagaCenter is the default map and simulation center.
var NagaCenter = models.Coordinates{Latitude: 13.6233, Longitude: 123.194}

var hazards = []models.Hazard{
	{
		ID:          1,
		Name:        "Deep pothole – right lane",
		Type:        models.HazardTypePotholeDeep,
		Severity:    models.SeverityHigh,
		Latitude:    13.6239,
		Longitude:   123.1932,
		Verified:    true,
		Description: "Deep, sharp‑edged pothole on the right lane. Strongly advised to slow down and change lane.",
	},
	{
		ID:          2,
		Name:        "Shallow potholes – left wheel path",
		Type:        models.HazardTypePotholeShallow,
		Severity:    models.SeverityMedium,
		Latitude:    13.6227,
		Longitude:   123.1951,
		Verified:    false,
		Description: "Cluster of shallow potholes. Reduce speed to avoid tire wear.",
	},
	{
		ID:          3,
		Name:        "Flooded section – low area",
		Type:        models.HazardTypeFlooded,
		Severity:    models.SeverityHigh,
		Latitude:    13.6245,
		Longitude:   123.1937,
		Verified:    true,
		Description: "Road usually floods during heavy rain. Risk of hydroplaning and hidden deep potholes.",
	},
	{
		ID:          4,
		Name:        "Temporary barrier – lane closed",
		Type:        models.HazardTypeBarriered,
		Severity:    models.SeverityMedium,
		Latitude:    13.6221,
		Longitude:   123.1925,
		Verified:    true,
		Description: "Plastic barriers closing one lane for safety. Merge early and follow traffic signs.",
	},
	{
		ID:          5,
		Name:        "Ongoing road renovation",
		Type:        models.HazardTypeUnderRenovation,
		Severity:    models.SeverityMedium,
		Latitude:    13.6218,
		Longitude:   123.1948,
		Verified:    true,
		Description: "Active roadworks. Uneven surface, loose gravel, and workers present – drive very carefully.",
	},
	{
		ID:          6,
		Name:        "Cracked surface – near intersection",
		Type:        models.HazardTypeCrack,
		Severity:    models.SeverityLow,
		Latitude:    13.6231,
		Longitude:   123.196,
		Verified:    false,
		Description: "Fine road cracks that can worsen over time, especially in rain.",
	},
	{
		ID:          7,
		Name:        "Deep pothole – near pedestrian crossing",
		Type:        models.HazardTypePotholeDeep,
		Severity:    models.SeverityHigh,
		Latitude:    13.6242,
		Longitude:   123.1955,
		Verified:    true,
		Description: "Deep pothole close to the pedestrian lane. Strong braking needed if not anticipated.",
	},
	{
		ID:          8,
		Name:        "Multiple shallow potholes",
		Type:        models.HazardTypePotholeShallow,
		Severity:    models.SeverityMedium,
		Latitude:    13.6224,
		Longitude:   123.1938,
		Verified:    false,
		Description: "Series of shallow potholes along the lane. Maintain low to moderate speed.",
	},
	{
		ID:          9,
		Name:        "Flooded shoulder – avoid right side",
		Type:        models.HazardTypeFlooded,
		Severity:    models.SeverityMedium,
		Latitude:    13.6236,
		Longitude:   123.1929,
		Verified:    true,
		Description: "Shoulder area collects water after rain. Risky for motorcycles and small vehicles.",
	},
	{
		ID:          10,
		Name:        "Concrete barriers – two-way scheme",
		Type:        models.HazardTypeBarriered,
		Severity:    models.SeverityMedium,
		Latitude:    13.6215,
		Longitude:   123.1956,
		Verified:    true,
		Description: "Concrete barriers redirect vehicles into a temporary two-way traffic scheme.",
	},
}

// All returns the catalog in its defined order.
func All() []models.Hazard {
	out := make([]models.Hazard, len(hazards))
	copy(out, hazards)
	return out
}

func Len() int {
	return len(hazards)
}

func ByID(id int) (models.Hazard, bool) {
	for _, h := range hazards {
		if h.ID == id {
			return h, true
		}
	}
	return models.Hazard{}, false
}

// Export writes the catalog as "yaml" or "json".
func Export(w io.Writer, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(hazards); err != nil {
			return fmt.Errorf("error encoding catalog as yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(hazards); err != nil {
			return fmt.Errorf("error encoding catalog as json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported catalog format: %q", format)
	}
}
