package render

import (
	"github.com/gdamore/tcell/v2"

	"storeloc/internal/debug"
	"storeloc/internal/geo"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
)

// MapRenderer draws the basemap, the route line, store markers and the
// user's location to a canvas
type MapRenderer struct {
	projection *geo.Projection
	basemap    []*geo.Line
	canvas     *Canvas
	styles     Styles
}

// NewMapRenderer creates a new map renderer
func NewMapRenderer(projection *geo.Projection, basemap []*geo.Line, canvas *Canvas, styles Styles) *MapRenderer {
	return &MapRenderer{
		projection: projection,
		basemap:    basemap,
		canvas:     canvas,
		styles:     styles,
	}
}

// RenderBasemap draws the visible basemap lines
func (m *MapRenderer) RenderBasemap() {
	if len(m.basemap) == 0 {
		return
	}

	visible := geo.FilterByBounds(m.basemap, m.projection.Bounds())
	if debug.Enabled() {
		debug.Log("rendering %d basemap lines (of %d total)", len(visible), len(m.basemap))
	}

	for _, line := range visible {
		m.drawPolyline(line.Points, '·', m.styles.Basemap)
	}
}

// RenderRoute draws the route line, simplified to the current zoom so
// dense geometries don't cost more than a cell per vertex
func (m *MapRenderer) RenderRoute(route routing.Route) {
	if len(route) < 2 {
		return
	}

	simplified := route.Simplify(m.projection.DegreesPerCell() / 2)
	m.drawPolyline(simplified, RouteRune, m.styles.Route)
}

// RenderStores draws every store marker. The selected store is drawn last
// so it is never hidden by a neighbour, with its name beside it.
func (m *MapRenderer) RenderStores(features []*poi.Feature, selectedID string) {
	var selected *poi.Feature

	for _, f := range features {
		if f.ID == selectedID {
			selected = f
			continue
		}
		pt := m.projection.Project(f.Coordinate)
		m.canvas.Set(pt.X, pt.Y, m.styles.MarkerRune, m.styles.Marker)
	}

	if selected == nil {
		return
	}

	pt := m.projection.Project(selected.Coordinate)
	m.canvas.Set(pt.X, pt.Y, m.styles.SelectedMarkerRune, m.styles.MarkerSelected)
	if name := selected.DisplayName(); name != "" {
		m.canvas.DrawTextClipped(pt.X+2, pt.Y, m.canvas.Width()-pt.X-2, name, m.styles.Label)
	}
}

// RenderUser draws the user's location dot
func (m *MapRenderer) RenderUser(loc geo.LatLon) {
	pt := m.projection.Project(loc)
	m.canvas.Set(pt.X, pt.Y, UserRune, m.styles.User)
}

func (m *MapRenderer) drawPolyline(points []geo.LatLon, char rune, style tcell.Style) {
	for i := 0; i < len(points)-1; i++ {
		p1 := m.projection.Project(points[i])
		p2 := m.projection.Project(points[i+1])
		m.DrawLine(p1.X, p1.Y, p2.X, p2.Y, char, style)
	}
}

// DrawLine implements Bresenham's line algorithm for drawing lines on the canvas
func (m *MapRenderer) DrawLine(x0, y0, x1, y1 int, char rune, style tcell.Style) {
	// Segments far off screen would loop for a long time for nothing
	if !m.segmentNearCanvas(x0, y0, x1, y1) {
		return
	}

	dx := abs(x1 - x0)
	dy := abs(y1 - y0)

	sx := -1
	if x0 < x1 {
		sx = 1
	}

	sy := -1
	if y0 < y1 {
		sy = 1
	}

	err := dx - dy

	for {
		m.canvas.Set(x0, y0, char, style)

		if x0 == x1 && y0 == y1 {
			break
		}

		e2 := 2 * err

		if e2 > -dy {
			err -= dy
			x0 += sx
		}

		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (m *MapRenderer) segmentNearCanvas(x0, y0, x1, y1 int) bool {
	w, h := m.canvas.Width(), m.canvas.Height()
	if (x0 < 0 && x1 < 0) || (x0 >= w && x1 >= w) {
		return false
	}
	if (y0 < 0 && y1 < 0) || (y0 >= h && y1 >= h) {
		return false
	}
	return abs(x1-x0) < maxSegmentCells && abs(y1-y0) < maxSegmentCells
}

// maxSegmentCells bounds the work DrawLine does for one segment
const maxSegmentCells = 1 << 16

// abs returns the absolute value of an integer
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// UpdateProjection updates the renderer's projection
func (m *MapRenderer) UpdateProjection(projection *geo.Projection) {
	m.projection = projection
}

// UpdateCanvas updates the renderer's canvas
func (m *MapRenderer) UpdateCanvas(canvas *Canvas) {
	m.canvas = canvas
}

// UpdateStyles switches the renderer to a new theme's styles
func (m *MapRenderer) UpdateStyles(styles Styles) {
	m.styles = styles
}
