package poi

import (
	"fmt"

	"storeloc/internal/geo"
)

// Attribute keys shown in the detail panel
const (
	AttrName        = "name"
	AttrHours       = "hours"
	AttrDescription = "description"
	AttrPhone       = "phone"
)

// Feature is a store loaded from the data source. Features are never
// mutated after Load returns.
type Feature struct {
	ID         string            // Unique within a feature set
	Coordinate geo.LatLon        // Store location
	Attributes map[string]string // Display attributes, keys are case-sensitive
}

// Attr returns the attribute value or "" when the key is missing
func (f *Feature) Attr(key string) string {
	if f == nil || f.Attributes == nil {
		return ""
	}
	return f.Attributes[key]
}

// DisplayName returns the name attribute, falling back to the ID
func (f *Feature) DisplayName() string {
	if f == nil {
		return ""
	}
	if name := f.Attr(AttrName); name != "" {
		return name
	}
	return f.ID
}

// PositionString returns a formatted lat/lon string
func (f *Feature) PositionString() string {
	lat := f.Coordinate.Lat
	lon := f.Coordinate.Lon

	latDir := "N"
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}

	lonDir := "E"
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}

	return fmt.Sprintf("%.4f*%s, %.4f*%s", lat, latDir, lon, lonDir)
}

// ListDisplay returns a one-line summary, e.g. "Midtown  1.2km"
func (f *Feature) ListDisplay(distanceMeters float64) string {
	return fmt.Sprintf("%-24s %6.1fkm", f.DisplayName(), distanceMeters/1000)
}
