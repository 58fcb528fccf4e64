package locator

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"storeloc/internal/debug"
	"storeloc/internal/geo"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
)

// LayerLocations is the map layer holding store markers
const LayerLocations = "locations"

// DefaultRefreshDistance is how far, in meters, the user has to move before
// routes are recomputed.
const DefaultRefreshDistance = 250.0

// Direction is a paging direction
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Orientation is the layout mode of the screen. The detail panel only fits
// in Portrait.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

// MapSurface is the map the stores are drawn on
type MapSurface interface {
	// VisibleFeatures returns the features drawn at pt on layer, nearest first
	VisibleFeatures(pt geo.Point, layer string) []*poi.Feature
	// SetMarkerStyle highlights selectedID, "" leaves every marker unselected
	SetMarkerStyle(selectedID string)
	// SetRouteLine draws route, nil hides the line
	SetRouteLine(route routing.Route)
	CenterOn(c geo.LatLon)
}

// Pager shows the detail panel for the selected store
type Pager interface {
	ShowDetail(sel Selection)
	Hide()
}

// Dispatcher runs fn on the goroutine that owns the UI
type Dispatcher func(fn func())

// Inline runs fn immediately on the calling goroutine
func Inline(fn func()) { fn() }

// Selection is the store shown in the detail panel with its route.
// The zero value means nothing is selected.
type Selection struct {
	Feature *poi.Feature
	Route   routing.Route // Empty while the route is unknown
	Index   int           // Position in the feature set
	Total   int           // Size of the feature set
}

// Active reports whether a store is selected
func (s Selection) Active() bool {
	return s.Feature != nil
}

// Config wires a Controller to its collaborators
type Config struct {
	Surface         MapSurface
	Pager           Pager
	Router          routing.Service
	Dispatch        Dispatcher // Inline when nil
	MaxInFlight     int        // Concurrent route requests per refresh, 0 is unlimited
	RefreshDistance float64    // Meters, DefaultRefreshDistance when zero
}

// Controller owns the store set, the route cache and the selection. It turns
// taps into selections and keeps the map and the detail panel in sync with them.
//
// Collaborators are called with the controller's lock held, so they must not
// call back into the Controller synchronously.
type Controller struct {
	surface         MapSurface
	pager           Pager
	router          routing.Service
	dispatch        Dispatcher
	maxInFlight     int
	refreshDistance float64

	mu          sync.Mutex
	features    []*poi.Feature
	index       map[string]int
	cache       *RouteCache
	selection   Selection
	orientation Orientation
	origin      geo.LatLon
	hasOrigin   bool
	cancel      context.CancelFunc // Cancels the in-flight refresh
}

// NewController creates a controller with an empty feature set
func NewController(cfg Config) *Controller {
	dispatch := cfg.Dispatch
	if dispatch == nil {
		dispatch = Inline
	}

	refreshDistance := cfg.RefreshDistance
	if refreshDistance == 0 {
		refreshDistance = DefaultRefreshDistance
	}

	return &Controller{
		surface:         cfg.Surface,
		pager:           cfg.Pager,
		router:          cfg.Router,
		dispatch:        dispatch,
		maxInFlight:     cfg.MaxInFlight,
		refreshDistance: refreshDistance,
		index:           make(map[string]int),
		cache:           NewRouteCache(),
	}
}

// SetFeatures replaces the store set. Cached routes, the selection, the last
// refresh origin and any in-flight refresh belong to the old set and are dropped.
func (c *Controller) SetFeatures(features []*poi.Feature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.features = append([]*poi.Feature(nil), features...)
	c.index = make(map[string]int, len(features))
	for i, f := range c.features {
		c.index[f.ID] = i
	}

	c.cache.Clear()
	c.clearLocked()

	// The next location update has to route the new set
	c.hasOrigin = false

	debug.Log("loaded %d stores", len(c.features))
}

// Features returns the store set in source order
func (c *Controller) Features() []*poi.Feature {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*poi.Feature(nil), c.features...)
}

// Selection returns the current selection
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// CachedRoute returns the route cached for a feature ID
func (c *Controller) CachedRoute(id string) (routing.Route, bool) {
	e, ok := c.cache.Get(id)
	return e.Route, ok
}

// Cache exposes the route cache for read access
func (c *Controller) Cache() *RouteCache {
	return c.cache
}

// Origin returns the location routes were last requested from
func (c *Controller) Origin() (geo.LatLon, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.origin, c.hasOrigin
}

// ResolveTap returns the first store under pt, or nil. In Landscape the tap
// is not resolved and the selection is cleared instead.
func (c *Controller) ResolveTap(pt geo.Point) *poi.Feature {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(pt)
}

func (c *Controller) resolveLocked(pt geo.Point) *poi.Feature {
	if c.orientation == Landscape {
		c.clearLocked()
		return nil
	}

	for _, f := range c.surface.VisibleFeatures(pt, LayerLocations) {
		if f != nil {
			return f
		}
	}
	return nil
}

// Tap resolves pt and selects the store under it. A miss clears the selection.
func (c *Controller) Tap(pt geo.Point) *poi.Feature {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.resolveLocked(pt)
	if f == nil {
		c.clearLocked()
		return nil
	}
	c.selectLocked(f)
	if !c.selection.Active() || c.selection.Feature.ID != f.ID {
		return nil
	}
	return c.selection.Feature
}

// Select makes f the selection and shows its cached route, if any.
// A nil feature clears the selection.
func (c *Controller) Select(f *poi.Feature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f == nil {
		c.clearLocked()
		return
	}
	c.selectLocked(f)
}

func (c *Controller) selectLocked(f *poi.Feature) {
	idx, ok := c.index[f.ID]
	if !ok {
		debug.Log("select: unknown store %q", f.ID)
		return
	}
	f = c.features[idx]

	route := c.cache.Route(f.ID)
	c.selection = Selection{
		Feature: f,
		Route:   route,
		Index:   idx,
		Total:   len(c.features),
	}

	c.surface.SetMarkerStyle(f.ID)
	c.surface.CenterOn(f.Coordinate)
	c.pager.ShowDetail(c.selection)
	if len(route) > 0 {
		c.surface.SetRouteLine(route)
	} else {
		c.surface.SetRouteLine(nil)
	}
}

// ClearSelection unselects every marker and hides the route and the detail panel
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Controller) clearLocked() {
	c.selection = Selection{}
	c.surface.SetMarkerStyle("")
	c.surface.SetRouteLine(nil)
	c.pager.Hide()
}

// Advance selects the store after (Forward) or before (Backward) the current
// one, wrapping at both ends. Without a selection it does nothing and
// returns nil.
func (c *Controller) Advance(dir Direction) *poi.Feature {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.selection.Active() {
		return nil
	}

	next := c.neighborLocked(c.selection.Feature, dir)
	if next == nil {
		return nil
	}
	c.selectLocked(next)
	return next
}

// Neighbor returns the store adjacent to f without changing the selection
func (c *Controller) Neighbor(f *poi.Feature, dir Direction) *poi.Feature {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.neighborLocked(f, dir)
}

func (c *Controller) neighborLocked(f *poi.Feature, dir Direction) *poi.Feature {
	if f == nil || len(c.features) == 0 {
		return nil
	}
	idx, ok := c.index[f.ID]
	if !ok {
		return nil
	}

	n := len(c.features)
	switch dir {
	case Backward:
		idx = (idx - 1 + n) % n
	default:
		idx = (idx + 1) % n
	}
	return c.features[idx]
}

// SetOrientation records the layout mode. Landscape hides the detail panel,
// so the selection is cleared.
func (c *Controller) SetOrientation(o Orientation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orientation = o
	if o == Landscape {
		c.clearLocked()
	}
}

// Orientation returns the current layout mode
func (c *Controller) Orientation() Orientation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orientation
}

// UpdateLocation refreshes routes when loc is the first known location or is
// farther than the refresh distance from the last refresh origin. It returns
// nil when no refresh was started.
func (c *Controller) UpdateLocation(ctx context.Context, loc geo.LatLon) *Refresh {
	c.mu.Lock()
	skip := c.hasOrigin && geo.Distance(c.origin, loc) < c.refreshDistance
	c.mu.Unlock()

	if skip {
		return nil
	}
	return c.RefreshRoutes(ctx, loc)
}

// RefreshRoutes requests a route from origin to every store. Requests run
// concurrently and complete in any order; each completion is dispatched to
// the UI goroutine and overwrites that store's cache entry. A failed request
// leaves the entry as it was. Starting a refresh cancels the previous one.
func (c *Controller) RefreshRoutes(ctx context.Context, origin geo.LatLon) *Refresh {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.origin = origin
	c.hasOrigin = true
	features := append([]*poi.Feature(nil), c.features...)
	c.mu.Unlock()

	r := &Refresh{
		Origin: origin,
		Total:  len(features),
		done:   make(chan struct{}),
	}

	debug.WithFields(log.Fields{"origin": origin.String(), "stores": len(features)}).Debug("refreshing routes")

	g := new(errgroup.Group)
	if c.maxInFlight > 0 {
		g.SetLimit(c.maxInFlight)
	}

	go func() {
		defer close(r.done)
		defer cancel()

		for _, f := range features {
			f := f
			g.Go(func() error {
				route, err := c.router.ComputeRoute(ctx, origin, f.Coordinate)
				if err == nil && len(route) == 0 {
					err = &routing.Error{Origin: origin, Destination: f.Coordinate, Err: routing.ErrNoRoute}
				}

				c.dispatch(func() { c.complete(f, origin, route, err) })
				r.record(f, err)
				return nil
			})
		}
		g.Wait()
	}()

	return r
}

// complete applies one route result. It runs on the UI goroutine.
func (c *Controller) complete(f *poi.Feature, origin geo.LatLon, route routing.Route, err error) {
	if err != nil {
		entry := debug.WithFields(log.Fields{"feature": f.ID, "origin": origin.String()}).WithError(err)
		if errors.Is(err, context.Canceled) {
			entry.Debug("route request cancelled")
		} else {
			entry.Warn("route request failed")
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Results for a replaced feature set are stale
	if idx, ok := c.index[f.ID]; !ok || c.features[idx] != f {
		return
	}

	c.cache.Set(f, route)

	if c.selection.Active() && c.selection.Feature.ID == f.ID {
		c.selection.Route = route
		c.surface.SetRouteLine(route)
		c.pager.ShowDetail(c.selection)
	}
}

// Refresh tracks one batch of route requests
type Refresh struct {
	Origin geo.LatLon
	Total  int

	done      chan struct{}
	mu        sync.Mutex
	succeeded int
	failed    map[string]error
}

// RefreshResult summarizes a finished refresh
type RefreshResult struct {
	Total     int
	Succeeded int
	Failed    map[string]error // Keyed by feature ID
}

// Err joins every failure, nil when all requests succeeded
func (r RefreshResult) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, err := range r.Failed {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Refresh) record(f *poi.Feature, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		r.succeeded++
		return
	}
	if r.failed == nil {
		r.failed = make(map[string]error)
	}
	r.failed[f.ID] = err
}

// Done is closed once every request finished and its completion was
// handed to the dispatcher.
func (r *Refresh) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the refresh is done
func (r *Refresh) Wait() RefreshResult {
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()

	failed := make(map[string]error, len(r.failed))
	for id, err := range r.failed {
		failed[id] = err
	}
	return RefreshResult{
		Total:     r.Total,
		Succeeded: r.succeeded,
		Failed:    failed,
	}
}
