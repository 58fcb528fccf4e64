package geo

import (
	"math"
)

const kmPerDegreeLat = 111.32

// Point represents a screen coordinate
type Point struct {
	X int
	Y int
}

// Projection handles conversion from lat/lon to screen coordinates
type Projection struct {
	centerLat    float64
	centerLon    float64
	radiusKm     float64
	screenWidth  int
	screenHeight int
	aspectRatio  float64
	scaleX       float64
	scaleY       float64
}

// NewProjection creates an equirectangular projection that fits a circle of
// radiusKm around the center into the screen.
// aspectRatio compensates for terminal cells being taller than they are wide.
func NewProjection(center LatLon, radiusKm float64, screenWidth, screenHeight int, aspectRatio float64) *Projection {
	p := &Projection{
		centerLat:    center.Lat,
		centerLon:    center.Lon,
		radiusKm:     radiusKm,
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
		aspectRatio:  aspectRatio,
	}

	p.calculateScale()
	return p
}

// calculateScale computes the cells-per-degree scaling factors
func (p *Projection) calculateScale() {
	kmPerDegreeLon := kmPerDegreeLat * math.Cos(p.centerLat*math.Pi/180.0)

	totalDegreesLat := 2 * p.radiusKm / kmPerDegreeLat
	totalDegreesLon := 2 * p.radiusKm / kmPerDegreeLon

	effectiveHeight := float64(p.screenHeight) * p.aspectRatio
	scaleY := effectiveHeight / totalDegreesLat
	scaleX := float64(p.screenWidth) / totalDegreesLon

	if scaleX < scaleY {
		p.scaleX = scaleX
		p.scaleY = scaleX / p.aspectRatio
	} else {
		p.scaleX = scaleY * p.aspectRatio
		p.scaleY = scaleY
	}
}

// Project converts a coordinate to screen coordinates, (0, 0) being top-left
func (p *Projection) Project(c LatLon) Point {
	deltaLat := c.Lat - p.centerLat
	deltaLon := c.Lon - p.centerLon

	// screen Y grows downward
	x := int(math.Round(deltaLon * p.scaleX))
	y := int(math.Round(-deltaLat * p.scaleY))

	return Point{X: x + p.screenWidth/2, Y: y + p.screenHeight/2}
}

// Unproject converts screen coordinates back to a coordinate
func (p *Projection) Unproject(pt Point) LatLon {
	x := pt.X - p.screenWidth/2
	y := pt.Y - p.screenHeight/2

	return LatLon{
		Lat: p.centerLat - float64(y)/p.scaleY,
		Lon: p.centerLon + float64(x)/p.scaleX,
	}
}

// OnScreen checks if a screen point lies inside the projected area
func (p *Projection) OnScreen(pt Point) bool {
	return pt.X >= 0 && pt.X < p.screenWidth && pt.Y >= 0 && pt.Y < p.screenHeight
}

// UpdateCenter recalculates the projection with a new center point
func (p *Projection) UpdateCenter(c LatLon) {
	p.centerLat = c.Lat
	p.centerLon = c.Lon
	p.calculateScale()
}

// UpdateDimensions updates the screen dimensions and recalculates scaling
func (p *Projection) UpdateDimensions(width, height int) {
	p.screenWidth = width
	p.screenHeight = height
	p.calculateScale()
}

// Center returns the current center point
func (p *Projection) Center() LatLon {
	return LatLon{Lat: p.centerLat, Lon: p.centerLon}
}

// RadiusKm returns the radius the projection was fitted to
func (p *Projection) RadiusKm() float64 {
	return p.radiusKm
}

// DegreesPerCell returns the longitude span of one screen column
func (p *Projection) DegreesPerCell() float64 {
	if p.scaleX == 0 {
		return 0
	}
	return 1 / p.scaleX
}

// Bounds returns the geographic bounds visible on screen
func (p *Projection) Bounds() *Bounds {
	topLeft := p.Unproject(Point{X: 0, Y: 0})
	bottomRight := p.Unproject(Point{X: p.screenWidth - 1, Y: p.screenHeight - 1})

	return &Bounds{
		MinLat: math.Min(topLeft.Lat, bottomRight.Lat),
		MaxLat: math.Max(topLeft.Lat, bottomRight.Lat),
		MinLon: math.Min(topLeft.Lon, bottomRight.Lon),
		MaxLon: math.Max(topLeft.Lon, bottomRight.Lon),
	}
}
