package render

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"storeloc/internal/geo"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
	"storeloc/internal/theme"
)

func TestCanvasDrawText(t *testing.T) {
	c := NewCanvas(10, 2)

	if n := c.DrawText(0, 0, "ab", tcell.StyleDefault); n != 2 {
		t.Fatalf("ascii width = %d", n)
	}
	if n := c.DrawText(0, 1, "日本", tcell.StyleDefault); n != 4 {
		t.Fatalf("wide width = %d", n)
	}
	if got := c.Get(2, 1).Char; got != '本' {
		t.Fatalf("second wide rune at col 2, got %q", got)
	}

	c.Clear()
	c.DrawTextClipped(0, 0, 5, "Foggy Bottom", tcell.StyleDefault)
	if got := c.Get(4, 0).Char; got != '…' {
		t.Fatalf("expected ellipsis at col 4, got %q", got)
	}
	if got := c.Get(5, 0).Char; got != ' ' {
		t.Fatalf("text not clipped, col 5 = %q", got)
	}

	c.Clear()
	c.DrawTextCentered(0, 0, 10, "ab", tcell.StyleDefault)
	if c.Get(4, 0).Char != 'a' || c.Get(5, 0).Char != 'b' {
		t.Fatalf("text not centered")
	}

	// Out of bounds writes are ignored
	c.Set(-1, 0, 'x', tcell.StyleDefault)
	c.Set(10, 0, 'x', tcell.StyleDefault)
}

func TestColor(t *testing.T) {
	th, _ := theme.Lookup("blue")
	r, g, b := Color(th.Colors.Primary).RGB()
	if r != 0x45 || g != 0xab || b != 0xe8 {
		t.Fatalf("rgb = %x %x %x", r, g, b)
	}
}

func newTestRenderer(w, h int) (*MapRenderer, *Canvas, *geo.Projection) {
	center := geo.LatLon{Lat: 38.9, Lon: -77.0}
	proj := geo.NewProjection(center, 2, w, h, 2.0)
	canvas := NewCanvas(w, h)
	return NewMapRenderer(proj, nil, canvas, NewStyles(theme.Default())), canvas, proj
}

func TestRenderStores(t *testing.T) {
	m, canvas, proj := newTestRenderer(40, 20)
	center := proj.Center()

	a := &poi.Feature{ID: "a", Coordinate: center, Attributes: map[string]string{poi.AttrName: "Dupont"}}
	b := &poi.Feature{ID: "b", Coordinate: center.Offset(0, 800)}

	m.RenderStores([]*poi.Feature{a, b}, "a")

	pa := proj.Project(a.Coordinate)
	if cell := canvas.Get(pa.X, pa.Y); cell.Char != 'B' || cell.Style != m.styles.MarkerSelected {
		t.Fatalf("selected marker = %q", cell.Char)
	}
	if canvas.Get(pa.X+2, pa.Y).Char != 'D' {
		t.Fatal("selected store label missing")
	}

	pb := proj.Project(b.Coordinate)
	if cell := canvas.Get(pb.X, pb.Y); cell.Char != 'b' {
		t.Fatalf("unselected marker = %q", cell.Char)
	}
}

func TestRenderRouteAndUser(t *testing.T) {
	m, canvas, proj := newTestRenderer(40, 20)
	start := proj.Center()
	end := start.Offset(0, 1000)

	m.RenderRoute(routing.Route{start, end})
	m.RenderUser(start)

	ps, pe := proj.Project(start), proj.Project(end)
	if canvas.Get(ps.X, ps.Y).Char != UserRune {
		t.Fatal("user dot missing")
	}
	for x := ps.X + 1; x <= pe.X; x++ {
		if canvas.Get(x, ps.Y).Char != RouteRune {
			t.Fatalf("route gap at column %d", x)
		}
	}

	// Single point routes draw nothing
	canvas.Clear()
	m.RenderRoute(routing.Route{start})
	if canvas.Get(ps.X, ps.Y).Char != ' ' {
		t.Fatal("single point route should not be drawn")
	}
}

func TestRenderBasemapSkipsOffscreen(t *testing.T) {
	m, canvas, proj := newTestRenderer(20, 10)
	far := geo.LatLon{Lat: 10, Lon: 10}
	center := proj.Center()

	m.basemap = []*geo.Line{
		{Points: []geo.LatLon{far, {Lat: 10.1, Lon: 10.1}}},
		{Points: []geo.LatLon{center, center.Offset(0, 500)}},
	}
	m.RenderBasemap()

	pc := proj.Project(center)
	if canvas.Get(pc.X, pc.Y).Char != '·' {
		t.Fatal("visible basemap line not drawn")
	}
}
