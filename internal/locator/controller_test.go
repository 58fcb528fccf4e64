package locator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storeloc/internal/geo"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
)

type fakeSurface struct {
	mu       sync.Mutex
	hits     map[geo.Point][]*poi.Feature
	queries  int
	selected string
	route    routing.Route
	center   geo.LatLon
	layers   []string
}

func (s *fakeSurface) VisibleFeatures(pt geo.Point, layer string) []*poi.Feature {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	s.layers = append(s.layers, layer)
	return s.hits[pt]
}

func (s *fakeSurface) SetMarkerStyle(selectedID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = selectedID
}

func (s *fakeSurface) SetRouteLine(route routing.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = route
}

func (s *fakeSurface) CenterOn(c geo.LatLon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.center = c
}

func (s *fakeSurface) state() (string, routing.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.route
}

type fakePager struct {
	mu      sync.Mutex
	visible bool
	shown   Selection
	shows   int
}

func (p *fakePager) ShowDetail(sel Selection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = true
	p.shown = sel
	p.shows++
}

func (p *fakePager) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = false
	p.shown = Selection{}
}

func (p *fakePager) state() (bool, Selection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible, p.shown
}

func makeFeatures(ids ...string) []*poi.Feature {
	features := make([]*poi.Feature, 0, len(ids))
	for i, id := range ids {
		features = append(features, &poi.Feature{
			ID:         id,
			Coordinate: geo.LatLon{Lat: 38.9 + float64(i)*0.01, Lon: -77.0},
			Attributes: map[string]string{poi.AttrName: "Store " + id},
		})
	}
	return features
}

// straightRouter routes every request as origin -> destination
var straightRouter = routing.Direct{}

func newTestController(t *testing.T, router routing.Service, ids ...string) (*Controller, *fakeSurface, *fakePager, []*poi.Feature) {
	t.Helper()
	surface := &fakeSurface{hits: make(map[geo.Point][]*poi.Feature)}
	pager := &fakePager{}
	c := NewController(Config{Surface: surface, Pager: pager, Router: router})
	features := makeFeatures(ids...)
	c.SetFeatures(features)
	return c, surface, pager, features
}

func selectedID(c *Controller) string {
	if sel := c.Selection(); sel.Active() {
		return sel.Feature.ID
	}
	return ""
}

func TestTapHitSelects(t *testing.T) {
	c, surface, pager, features := newTestController(t, straightRouter, "A", "B", "C")
	surface.hits[geo.Point{X: 10, Y: 5}] = []*poi.Feature{features[1]}

	if got := c.ResolveTap(geo.Point{X: 10, Y: 5}); got != features[1] {
		t.Fatalf("ResolveTap = %v, want B", got)
	}
	if got := c.ResolveTap(geo.Point{X: 0, Y: 0}); got != nil {
		t.Fatalf("ResolveTap on empty point = %v, want nil", got)
	}
	if !reflect.DeepEqual(surface.layers, []string{LayerLocations, LayerLocations}) {
		t.Fatalf("queried layers %v", surface.layers)
	}

	if got := c.Tap(geo.Point{X: 10, Y: 5}); got != features[1] {
		t.Fatalf("Tap = %v, want B", got)
	}
	sel, route := surface.state()
	if sel != "B" {
		t.Errorf("marker style selected %q, want B", sel)
	}
	if route != nil {
		t.Errorf("no route cached yet, route line should be hidden, got %v", route)
	}
	if surface.center != features[1].Coordinate {
		t.Errorf("map centered on %v", surface.center)
	}
	visible, shown := pager.state()
	if !visible || shown.Feature != features[1] || shown.Index != 1 || shown.Total != 3 {
		t.Errorf("pager showing %+v (visible=%v)", shown, visible)
	}
}

func TestTapFirstHitWins(t *testing.T) {
	c, surface, _, features := newTestController(t, straightRouter, "A", "B")
	surface.hits[geo.Point{X: 1, Y: 1}] = []*poi.Feature{nil, features[1], features[0]}

	if got := c.Tap(geo.Point{X: 1, Y: 1}); got != features[1] {
		t.Fatalf("Tap = %v, want B", got)
	}
}

func TestTapMissWhileSelectedClears(t *testing.T) {
	c, surface, pager, features := newTestController(t, straightRouter, "A", "B", "C")

	c.RefreshRoutes(context.Background(), geo.LatLon{Lat: 38.8, Lon: -77.1}).Wait()
	c.Select(features[1])
	if _, route := surface.state(); len(route) == 0 {
		t.Fatal("expected route line for B")
	}

	if got := c.Tap(geo.Point{X: 40, Y: 40}); got != nil {
		t.Fatalf("Tap on empty point = %v", got)
	}

	if c.Selection().Active() {
		t.Fatal("selection should be cleared")
	}
	sel, route := surface.state()
	if sel != "" || route != nil {
		t.Errorf("surface still shows selection %q route %v", sel, route)
	}
	if visible, _ := pager.state(); visible {
		t.Error("pager should be hidden")
	}
}

func TestAdvanceExample(t *testing.T) {
	c, _, _, features := newTestController(t, straightRouter, "A", "B", "C")
	c.Select(features[1])

	if got := c.Advance(Forward); got != features[2] {
		t.Fatalf("advance from B = %v, want C", got)
	}
	if got := c.Advance(Forward); got != features[0] {
		t.Fatalf("advance from C = %v, want A", got)
	}
	if selectedID(c) != "A" {
		t.Fatalf("selection = %q, want A", selectedID(c))
	}
}

func TestAdvanceWraps(t *testing.T) {
	c, _, _, features := newTestController(t, straightRouter, "A", "B", "C", "D")

	c.Select(features[3])
	if got := c.Advance(Forward); got != features[0] {
		t.Fatalf("forward from last = %v, want first", got)
	}
	if got := c.Advance(Backward); got != features[3] {
		t.Fatalf("backward from first = %v, want last", got)
	}
}

func TestAdvanceInverse(t *testing.T) {
	for n := 1; n <= 5; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("S%d", i)
		}
		c, _, _, features := newTestController(t, straightRouter, ids...)

		for _, start := range features {
			for _, dir := range []Direction{Forward, Backward} {
				back := Backward
				if dir == Backward {
					back = Forward
				}

				c.Select(start)
				c.Advance(dir)
				if got := c.Advance(back); got != start {
					t.Fatalf("n=%d: %s then back from %s landed on %v", n, dir, start.ID, got)
				}
			}
		}
	}
}

func TestAdvanceWithoutSelection(t *testing.T) {
	c, surface, pager, _ := newTestController(t, straightRouter, "A", "B")
	pagerShows := pager.shows

	if got := c.Advance(Forward); got != nil {
		t.Fatalf("Advance without selection = %v", got)
	}
	if c.Selection().Active() || pager.shows != pagerShows {
		t.Fatal("Advance without selection must not change anything")
	}
	if sel, _ := surface.state(); sel != "" {
		t.Fatalf("marker selected %q", sel)
	}
}

func TestAdvanceShowsCachedRoute(t *testing.T) {
	c, surface, _, features := newTestController(t, straightRouter, "A", "B")
	origin := geo.LatLon{Lat: 38.8, Lon: -77.1}
	c.RefreshRoutes(context.Background(), origin).Wait()

	c.Select(features[0])
	c.Advance(Forward)

	sel, route := surface.state()
	want := routing.Route{origin, features[1].Coordinate}
	if sel != "B" || !reflect.DeepEqual(route, want) {
		t.Fatalf("surface shows %q %v, want B %v", sel, route, want)
	}
	if got := c.Selection().Route; !reflect.DeepEqual(got, want) {
		t.Fatalf("selection route %v", got)
	}
}

func TestNeighbor(t *testing.T) {
	c, _, _, features := newTestController(t, straightRouter, "A", "B", "C")

	if got := c.Neighbor(features[0], Backward); got != features[2] {
		t.Fatalf("Neighbor(A, backward) = %v", got)
	}
	if got := c.Neighbor(&poi.Feature{ID: "zzz"}, Forward); got != nil {
		t.Fatalf("Neighbor of unknown store = %v", got)
	}
	if c.Selection().Active() {
		t.Fatal("Neighbor must not select")
	}
}

func TestLandscapeClearsSelection(t *testing.T) {
	c, surface, pager, features := newTestController(t, straightRouter, "A", "B")
	surface.hits[geo.Point{X: 3, Y: 3}] = []*poi.Feature{features[0]}

	c.Select(features[1])
	c.SetOrientation(Landscape)
	if c.Selection().Active() {
		t.Fatal("landscape should clear the selection")
	}
	if visible, _ := pager.state(); visible {
		t.Fatal("pager should be hidden in landscape")
	}

	queries := surface.queries
	if got := c.Tap(geo.Point{X: 3, Y: 3}); got != nil {
		t.Fatalf("tap in landscape resolved %v", got)
	}
	if surface.queries != queries {
		t.Fatal("landscape taps must not query the map")
	}

	c.SetOrientation(Portrait)
	if got := c.Tap(geo.Point{X: 3, Y: 3}); got != features[0] {
		t.Fatalf("tap in portrait = %v", got)
	}
}

func TestRefreshRoutesFillsCache(t *testing.T) {
	c, _, _, features := newTestController(t, straightRouter, "A", "B", "C")
	origin := geo.LatLon{Lat: 38.8, Lon: -77.1}

	res := c.RefreshRoutes(context.Background(), origin).Wait()
	if res.Total != 3 || res.Succeeded != 3 || len(res.Failed) != 0 || res.Err() != nil {
		t.Fatalf("result = %+v", res)
	}

	for _, f := range features {
		route, ok := c.CachedRoute(f.ID)
		if !ok || !reflect.DeepEqual(route, routing.Route{origin, f.Coordinate}) {
			t.Errorf("cached route for %s = %v (%v)", f.ID, route, ok)
		}
	}
	if got, ok := c.Origin(); !ok || got != origin {
		t.Errorf("origin = %v", got)
	}
}

func TestRefreshFailureIsolation(t *testing.T) {
	var fail atomic.Bool
	router := routing.ServiceFunc(func(ctx context.Context, origin, dest geo.LatLon) (routing.Route, error) {
		if fail.Load() && dest.Lat > 38.905 && dest.Lat < 38.915 {
			return nil, errors.New("service unavailable")
		}
		return routing.Route{origin, dest}, nil
	})
	c, _, _, features := newTestController(t, router, "A", "B", "C")

	first := geo.LatLon{Lat: 38.8, Lon: -77.1}
	c.RefreshRoutes(context.Background(), first).Wait()
	before, _ := c.CachedRoute("B")

	fail.Store(true)
	second := geo.LatLon{Lat: 38.7, Lon: -77.2}
	res := c.RefreshRoutes(context.Background(), second).Wait()

	if res.Succeeded != 2 || len(res.Failed) != 1 || res.Failed["B"] == nil {
		t.Fatalf("result = %+v", res)
	}
	if after, _ := c.CachedRoute("B"); !reflect.DeepEqual(after, before) {
		t.Fatalf("failed request changed B: %v -> %v", before, after)
	}
	for _, f := range []*poi.Feature{features[0], features[2]} {
		if route, _ := c.CachedRoute(f.ID); route[0] != second {
			t.Errorf("%s not refreshed: %v", f.ID, route)
		}
	}
}

func TestRefreshFailureLeavesMissingEntryAbsent(t *testing.T) {
	router := routing.ServiceFunc(func(ctx context.Context, origin, dest geo.LatLon) (routing.Route, error) {
		if dest.Lat < 38.905 {
			return routing.Route{}, nil
		}
		return routing.Route{origin, dest}, nil
	})
	c, _, _, _ := newTestController(t, router, "A", "B")

	res := c.RefreshRoutes(context.Background(), geo.LatLon{Lat: 38.8, Lon: -77.1}).Wait()
	if !errors.Is(res.Failed["A"], routing.ErrNoRoute) {
		t.Fatalf("empty route should fail with ErrNoRoute, got %v", res.Failed["A"])
	}
	if _, ok := c.CachedRoute("A"); ok {
		t.Fatal("A should have no cache entry")
	}
	if _, ok := c.CachedRoute("B"); !ok {
		t.Fatal("B should be cached")
	}
}

func TestRouteCacheLastWriteWins(t *testing.T) {
	release := make(chan struct{})
	slowOrigin := geo.LatLon{Lat: 38.8, Lon: -77.1}
	fastOrigin := geo.LatLon{Lat: 38.7, Lon: -77.2}

	router := routing.ServiceFunc(func(ctx context.Context, origin, dest geo.LatLon) (routing.Route, error) {
		if origin == slowOrigin {
			<-release
		}
		return routing.Route{origin, dest}, nil
	})
	c, _, _, features := newTestController(t, router, "A")

	slow := c.RefreshRoutes(context.Background(), slowOrigin)
	c.RefreshRoutes(context.Background(), fastOrigin).Wait()

	if route, _ := c.CachedRoute("A"); route[0] != fastOrigin {
		t.Fatalf("expected fast result first, got %v", route)
	}

	// The older request completes last, so its result stays
	close(release)
	slow.Wait()

	want := routing.Route{slowOrigin, features[0].Coordinate}
	if route, _ := c.CachedRoute("A"); !reflect.DeepEqual(route, want) {
		t.Fatalf("cache = %v, want %v", route, want)
	}
}

func TestRefreshCancelsSupersededBatch(t *testing.T) {
	started := make(chan struct{}, 1)
	router := routing.ServiceFunc(func(ctx context.Context, origin, dest geo.LatLon) (routing.Route, error) {
		if origin.Lat == 1 {
			started <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return routing.Route{origin, dest}, nil
	})
	c, _, _, _ := newTestController(t, router, "A")

	old := c.RefreshRoutes(context.Background(), geo.LatLon{Lat: 1, Lon: 1})
	<-started
	c.RefreshRoutes(context.Background(), geo.LatLon{Lat: 2, Lon: 2}).Wait()

	select {
	case <-old.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("superseded refresh was not cancelled")
	}
	res := old.Wait()
	if !errors.Is(res.Failed["A"], context.Canceled) {
		t.Fatalf("expected cancellation, got %+v", res)
	}
	if route, _ := c.CachedRoute("A"); route[0] != (geo.LatLon{Lat: 2, Lon: 2}) {
		t.Fatalf("cache = %v", route)
	}
}

func TestCompletionForSelectedRedraws(t *testing.T) {
	c, surface, pager, features := newTestController(t, straightRouter, "A", "B")
	c.Select(features[0])
	shows := pager.shows

	origin := geo.LatLon{Lat: 38.8, Lon: -77.1}
	c.RefreshRoutes(context.Background(), origin).Wait()

	_, route := surface.state()
	if !reflect.DeepEqual(route, routing.Route{origin, features[0].Coordinate}) {
		t.Fatalf("route line = %v", route)
	}
	_, shown := pager.state()
	if pager.shows != shows+1 || len(shown.Route) != 2 {
		t.Fatalf("pager redraws = %d, shown route %v", pager.shows-shows, shown.Route)
	}
	if selectedID(c) != "A" {
		t.Fatalf("completion changed the selection to %q", selectedID(c))
	}
}

func TestCompletionsAreDispatched(t *testing.T) {
	var (
		mu      sync.Mutex
		pending []func()
	)
	dispatch := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		pending = append(pending, fn)
	}

	surface := &fakeSurface{hits: make(map[geo.Point][]*poi.Feature)}
	c := NewController(Config{Surface: surface, Pager: &fakePager{}, Router: straightRouter, Dispatch: dispatch})
	c.SetFeatures(makeFeatures("A", "B"))

	c.RefreshRoutes(context.Background(), geo.LatLon{Lat: 1, Lon: 1}).Wait()
	if c.Cache().Len() != 0 {
		t.Fatal("cache must only change on the dispatcher")
	}

	mu.Lock()
	for _, fn := range pending {
		fn()
	}
	mu.Unlock()

	if c.Cache().Len() != 2 {
		t.Fatalf("cache len = %d after draining", c.Cache().Len())
	}
}

func TestMaxInFlight(t *testing.T) {
	var inFlight, peak atomic.Int32
	router := routing.ServiceFunc(func(ctx context.Context, origin, dest geo.LatLon) (routing.Route, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return routing.Route{origin, dest}, nil
	})

	surface := &fakeSurface{hits: make(map[geo.Point][]*poi.Feature)}
	c := NewController(Config{Surface: surface, Pager: &fakePager{}, Router: router, MaxInFlight: 2})
	c.SetFeatures(makeFeatures("A", "B", "C", "D", "E", "F"))

	res := c.RefreshRoutes(context.Background(), geo.LatLon{Lat: 1, Lon: 1}).Wait()
	if res.Succeeded != 6 {
		t.Fatalf("result = %+v", res)
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds limit", peak.Load())
	}
}

func TestUpdateLocationDebounce(t *testing.T) {
	c, _, _, _ := newTestController(t, straightRouter, "A")
	home := geo.LatLon{Lat: 38.8, Lon: -77.1}

	first := c.UpdateLocation(context.Background(), home)
	if first == nil {
		t.Fatal("first location must refresh")
	}
	first.Wait()

	if r := c.UpdateLocation(context.Background(), home.Offset(100, 0)); r != nil {
		t.Fatal("a 100m move should not refresh")
	}
	if r := c.UpdateLocation(context.Background(), home.Offset(400, 0)); r == nil {
		t.Fatal("a 400m move should refresh")
	} else {
		r.Wait()
	}
}

func TestSetFeaturesResets(t *testing.T) {
	c, _, pager, features := newTestController(t, straightRouter, "A", "B")
	c.RefreshRoutes(context.Background(), geo.LatLon{Lat: 1, Lon: 1}).Wait()
	c.Select(features[0])

	c.SetFeatures(makeFeatures("X", "Y", "Z"))

	if c.Selection().Active() {
		t.Fatal("selection should be cleared")
	}
	if visible, _ := pager.state(); visible {
		t.Fatal("pager should be hidden")
	}
	if c.Cache().Len() != 0 {
		t.Fatal("cache should be cleared")
	}
	if got := len(c.Features()); got != 3 {
		t.Fatalf("features = %d", got)
	}

	// Selecting a store from the old set is ignored
	c.Select(features[0])
	if c.Selection().Active() {
		t.Fatal("stale store selected")
	}
}

func TestSetFeaturesRoutesNewSetOnNextLocation(t *testing.T) {
	c, _, _, _ := newTestController(t, straightRouter, "A")
	home := geo.LatLon{Lat: 38.8, Lon: -77.1}
	c.UpdateLocation(context.Background(), home).Wait()

	c.SetFeatures(makeFeatures("X", "Y"))
	if _, ok := c.Origin(); ok {
		t.Fatal("origin should be forgotten with the old store set")
	}

	r := c.UpdateLocation(context.Background(), home.Offset(10, 0))
	if r == nil {
		t.Fatal("a small move after SetFeatures must still refresh")
	}
	if res := r.Wait(); res.Succeeded != 2 {
		t.Fatalf("succeeded = %d, want 2", res.Succeeded)
	}
	if got := c.Cache().Len(); got != 2 {
		t.Fatalf("cache has %d routes, want 2", got)
	}
}

func TestRouteCache(t *testing.T) {
	cache := NewRouteCache()
	a := &poi.Feature{ID: "a"}
	b := &poi.Feature{ID: "b"}

	cache.Set(b, routing.Route{{Lat: 1}})
	cache.Set(a, routing.Route{{Lat: 2}})
	cache.Set(a, routing.Route{{Lat: 3}})
	cache.Set(&poi.Feature{}, routing.Route{{Lat: 4}})

	if cache.Len() != 2 {
		t.Fatalf("len = %d", cache.Len())
	}
	if got := cache.Route("a"); got[0].Lat != 3 {
		t.Fatalf("route a = %v", got)
	}
	if cache.Route("missing") != nil {
		t.Fatal("missing id should have nil route")
	}

	entries := cache.Entries()
	if entries[0].Feature != a || entries[1].Feature != b {
		t.Fatalf("entries not sorted: %v", entries)
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Fatal("clear failed")
	}
}
