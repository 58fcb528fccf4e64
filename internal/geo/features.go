package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// LatLon represents a geographic coordinate
type LatLon struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate lies within WGS84 limits
func (c LatLon) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Point converts the coordinate to an orb point (lon, lat order)
func (c LatLon) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point back to a LatLon
func FromPoint(p orb.Point) LatLon {
	return LatLon{Lat: p.Lat(), Lon: p.Lon()}
}

func (c LatLon) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}

// Offset moves the coordinate by the given distances in meters
func (c LatLon) Offset(northMeters, eastMeters float64) LatLon {
	p := c.Point()
	if northMeters != 0 {
		bearing := 0.0
		if northMeters < 0 {
			bearing = 180
		}
		p = orbgeo.PointAtBearingAndDistance(p, bearing, math.Abs(northMeters))
	}
	if eastMeters != 0 {
		bearing := 90.0
		if eastMeters < 0 {
			bearing = 270
		}
		p = orbgeo.PointAtBearingAndDistance(p, bearing, math.Abs(eastMeters))
	}
	return FromPoint(p)
}

// Distance returns the great-circle distance between two coordinates in meters
func Distance(a, b LatLon) float64 {
	return orbgeo.Distance(a.Point(), b.Point())
}

// ParseLatLon parses "lat,lon"
func ParseLatLon(s string) (LatLon, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return LatLon{}, fmt.Errorf("invalid coordinate %q: want lat,lon", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return LatLon{}, fmt.Errorf("invalid latitude %q: %w", latStr, err)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return LatLon{}, fmt.Errorf("invalid longitude %q: %w", lonStr, err)
	}

	c := LatLon{Lat: lat, Lon: lon}
	if !c.Valid() {
		return LatLon{}, fmt.Errorf("coordinate %q out of range", s)
	}
	return c, nil
}

// Line is a basemap polyline (roads, coastlines, borders)
type Line struct {
	Points []LatLon
}
