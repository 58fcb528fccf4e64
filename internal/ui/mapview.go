package ui

import (
	"sort"

	"github.com/gdamore/tcell/v2"

	"storeloc/internal/debug"
	"storeloc/internal/geo"
	"storeloc/internal/locator"
	"storeloc/internal/poi"
	"storeloc/internal/render"
	"storeloc/internal/routing"
)

// HitRadius is how many cells away from a marker a tap still hits it
const HitRadius = 1

const (
	minRadiusKm = 0.5
	maxRadiusKm = 500
)

// MapView displays the basemap, the stores, the route and the user's
// location. It is the map surface the locator controller drives.
type MapView struct {
	renderer    *render.MapRenderer
	projection  *geo.Projection
	canvas      *render.Canvas
	width       int
	height      int
	radiusKm    float64
	aspectRatio float64

	features   []*poi.Feature
	selectedID string
	route      routing.Route
	user       geo.LatLon
	hasUser    bool
}

var _ locator.MapSurface = (*MapView)(nil)

// NewMapView creates a new map view
func NewMapView(width, height int, center geo.LatLon, basemap []*geo.Line, radiusKm, aspectRatio float64, styles render.Styles) *MapView {
	projection := geo.NewProjection(center, radiusKm, width, height, aspectRatio)
	canvas := render.NewCanvas(width, height)
	renderer := render.NewMapRenderer(projection, basemap, canvas, styles)

	return &MapView{
		renderer:    renderer,
		projection:  projection,
		canvas:      canvas,
		width:       width,
		height:      height,
		radiusKm:    radiusKm,
		aspectRatio: aspectRatio,
	}
}

// SetFeatures replaces the stores drawn on the locations layer
func (m *MapView) SetFeatures(features []*poi.Feature) {
	m.features = features
}

// VisibleFeatures returns the on-screen stores within HitRadius cells of pt,
// nearest first. Stores at the same distance keep their source order.
func (m *MapView) VisibleFeatures(pt geo.Point, layer string) []*poi.Feature {
	if layer != locator.LayerLocations {
		return nil
	}

	type hit struct {
		feature *poi.Feature
		dist    int
	}
	var hits []hit

	for _, f := range m.features {
		p := m.projection.Project(f.Coordinate)
		if !m.projection.OnScreen(p) {
			continue
		}
		dx, dy := p.X-pt.X, p.Y-pt.Y
		if abs(dx) > HitRadius || abs(dy) > HitRadius {
			continue
		}
		hits = append(hits, hit{feature: f, dist: dx*dx + dy*dy})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].dist < hits[j].dist
	})

	features := make([]*poi.Feature, 0, len(hits))
	for _, h := range hits {
		features = append(features, h.feature)
	}
	return features
}

// SetMarkerStyle highlights the store with selectedID
func (m *MapView) SetMarkerStyle(selectedID string) {
	m.selectedID = selectedID
}

// SetRouteLine sets the route to draw, nil hides it
func (m *MapView) SetRouteLine(route routing.Route) {
	m.route = route
}

// CenterOn moves the map center
func (m *MapView) CenterOn(c geo.LatLon) {
	m.projection.UpdateCenter(c)
	debug.Log("map centered on %v", c)
}

// SetUserLocation moves the user's location dot
func (m *MapView) SetUserLocation(loc geo.LatLon) {
	m.user = loc
	m.hasUser = true
}

// SetStyles switches to a new theme
func (m *MapView) SetStyles(styles render.Styles) {
	m.renderer.UpdateStyles(styles)
}

// Draw renders the map view to the screen
func (m *MapView) Draw(screen tcell.Screen) {
	m.canvas.Clear()

	m.renderer.RenderBasemap()
	m.renderer.RenderRoute(m.route)
	m.renderer.RenderStores(m.features, m.selectedID)
	if m.hasUser {
		m.renderer.RenderUser(m.user)
	}

	m.canvas.Blit(screen, 0, 0)
}

// UpdateDimensions updates the view dimensions when the screen is resized
func (m *MapView) UpdateDimensions(width, height int) {
	m.width = width
	m.height = height

	m.projection.UpdateDimensions(width, height)

	m.canvas = render.NewCanvas(width, height)
	m.renderer.UpdateCanvas(m.canvas)
}

// Projection returns the current projection
func (m *MapView) Projection() *geo.Projection {
	return m.projection
}

// ZoomIn decreases the radius (zooms in)
func (m *MapView) ZoomIn() {
	newRadius := m.radiusKm * 0.75
	if newRadius < minRadiusKm {
		newRadius = minRadiusKm
	}
	m.SetRadius(newRadius)
}

// ZoomOut increases the radius (zooms out)
func (m *MapView) ZoomOut() {
	newRadius := m.radiusKm * 1.33
	if newRadius > maxRadiusKm {
		newRadius = maxRadiusKm
	}
	m.SetRadius(newRadius)
}

// SetRadius updates the map radius and recalculates the projection
func (m *MapView) SetRadius(radiusKm float64) {
	m.radiusKm = radiusKm
	m.projection = geo.NewProjection(m.projection.Center(), radiusKm, m.width, m.height, m.aspectRatio)
	m.renderer.UpdateProjection(m.projection)
	debug.Log("map radius changed to %.1f km", radiusKm)
}

// Radius returns the current map radius in km
func (m *MapView) Radius() float64 {
	return m.radiusKm
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
