package geo

import (
	"fmt"

	"github.com/jonas-p/go-shp"
)

// LoadBasemap reads polyline and polygon outlines from an ESRI shapefile.
// Multi-part shapes are split so parts are never joined by a stray segment.
func LoadBasemap(path string) ([]*Line, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open basemap %s: %w", path, err)
	}
	defer shape.Close()

	lines := make([]*Line, 0)
	for shape.Next() {
		_, s := shape.Shape()

		switch geom := s.(type) {
		case *shp.PolyLine:
			lines = append(lines, splitParts(geom.Parts, geom.Points)...)
		case *shp.Polygon:
			lines = append(lines, splitParts(geom.Parts, geom.Points)...)
		}
	}
	if err := shape.Err(); err != nil {
		return nil, fmt.Errorf("read basemap %s: %w", path, err)
	}

	return lines, nil
}

func splitParts(parts []int32, points []shp.Point) []*Line {
	var lines []*Line
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 2 {
			continue
		}

		line := &Line{Points: make([]LatLon, 0, end-start)}
		for _, p := range points[start:end] {
			line.Points = append(line.Points, LatLon{Lat: p.Y, Lon: p.X})
		}
		lines = append(lines, line)
	}
	return lines
}

// FilterByBounds keeps lines with at least one vertex inside the bounds
func FilterByBounds(lines []*Line, bounds *Bounds) []*Line {
	filtered := make([]*Line, 0)
	for _, line := range lines {
		for _, p := range line.Points {
			if bounds.Contains(p) {
				filtered = append(filtered, line)
				break
			}
		}
	}
	return filtered
}

// Bounds represents a geographic bounding box
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks if a coordinate is within the bounds
func (b *Bounds) Contains(c LatLon) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}
