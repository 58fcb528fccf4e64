package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"storeloc/internal/debug"
	"storeloc/internal/geo"
	"storeloc/internal/locator"
	"storeloc/internal/poi"
	"storeloc/internal/render"
	"storeloc/internal/routing"
	"storeloc/internal/theme"
)

// Terminals shorter than this are treated as landscape: there is no room
// for the detail panel, so stores can't be selected.
const minPortraitRows = 18

const (
	maxPagerWidth  = 64
	maxPagerHeight = 10
	pickerWidth    = 36
	nudgeMeters    = 100.0
)

// Options configures the application
type Options struct {
	Screen          tcell.Screen // tcell.NewScreen when nil
	Features        []*poi.Feature
	Basemap         []*geo.Line
	Router          routing.Service
	Theme           *theme.Theme // The theme picker opens when nil
	Origin          *geo.LatLon  // Initial user location, if known
	RadiusKm        float64
	AspectRatio     float64
	MaxInFlight     int
	RefreshDistance float64
	Updates         <-chan geo.LatLon // Live user locations, may be nil
}

// App is the main application loop. Screen events and route completions are
// handled on the goroutine running Run.
type App struct {
	screen  tcell.Screen
	ctrl    *locator.Controller
	mapView *MapView
	pager   *PagerView
	picker  *ThemePickerView
	updates <-chan geo.LatLon

	theme      theme.Theme
	styles     render.Styles
	pickerOpen bool
	user       geo.LatLon
	hasUser    bool
	pressed    bool
	refresh    *locator.Refresh

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}

	quit     chan struct{}
	quitOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApp creates a new application
func NewApp(opts Options) (*App, error) {
	screen := opts.Screen
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("failed to create screen: %w", err)
		}
		screen = s
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}

	screen.SetStyle(tcell.StyleDefault)
	screen.EnableMouse()
	screen.Clear()

	th := theme.Default()
	if opts.Theme != nil {
		th = *opts.Theme
	}
	styles := render.NewStyles(th)

	center := centroid(opts.Features)
	if opts.Origin != nil {
		center = *opts.Origin
	}

	width, height := screen.Size()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		screen:     screen,
		mapView:    NewMapView(width, mapHeight(height), center, opts.Basemap, opts.RadiusKm, opts.AspectRatio, styles),
		pager:      NewPagerView(0, 0, 0, 0, styles),
		picker:     NewThemePickerView(0, 0, 0, 0),
		updates:    opts.Updates,
		theme:      th,
		styles:     styles,
		pickerOpen: opts.Theme == nil,
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}

	a.ctrl = locator.NewController(locator.Config{
		Surface:         a.mapView,
		Pager:           a.pager,
		Router:          opts.Router,
		Dispatch:        a.dispatch,
		MaxInFlight:     opts.MaxInFlight,
		RefreshDistance: opts.RefreshDistance,
	})
	a.pager.SetNeighborFunc(a.ctrl.Neighbor)
	a.picker.SelectName(th.Name)

	a.ctrl.SetFeatures(opts.Features)
	a.mapView.SetFeatures(opts.Features)

	if opts.Origin != nil {
		a.user = *opts.Origin
		a.hasUser = true
		a.mapView.SetUserLocation(a.user)
	}

	a.layout(width, height)
	return a, nil
}

// Controller returns the store controller
func (a *App) Controller() *locator.Controller {
	return a.ctrl
}

// Run starts the application main loop
func (a *App) Run() error {
	defer a.cleanup()

	if a.hasUser {
		a.refreshRoutes(a.user)
	}

	events := make(chan tcell.Event, 16)
	go a.screen.ChannelEvents(events, a.quit)

	ticker := time.NewTicker(100 * time.Millisecond) // 10 FPS
	defer ticker.Stop()

	a.render()

	for {
		select {
		case <-a.quit:
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !a.handleEvent(ev) {
				return nil // Quit requested
			}
			a.render()

		case <-a.wake:
			a.drain()
			a.render()

		case loc, ok := <-a.updates:
			if !ok {
				a.updates = nil
				continue
			}
			a.setUserLocation(loc)

		case <-ticker.C:
			a.render()
		}
	}
}

// dispatch queues fn for the Run goroutine
func (a *App) dispatch(fn func()) {
	a.mu.Lock()
	a.pending = append(a.pending, fn)
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// drain runs every queued completion
func (a *App) drain() {
	a.mu.Lock()
	fns := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (a *App) refreshRoutes(origin geo.LatLon) {
	a.refresh = a.ctrl.RefreshRoutes(a.ctx, origin)
}

func (a *App) setUserLocation(loc geo.LatLon) {
	a.user = loc
	a.hasUser = true
	a.mapView.SetUserLocation(loc)

	if r := a.ctrl.UpdateLocation(a.ctx, loc); r != nil {
		a.refresh = r
	}
}

// selectNearest selects the store closest to the user, or to the map
// center when the user's location is unknown
func (a *App) selectNearest() {
	origin := a.mapView.Projection().Center()
	if a.hasUser {
		origin = a.user
	}

	ranked := poi.Nearest(a.ctrl.Features(), origin, 1)
	if len(ranked) == 0 {
		return
	}
	a.ctrl.Select(ranked[0].Feature)
}

func (a *App) applyTheme(th theme.Theme) {
	a.theme = th
	a.styles = render.NewStyles(th)
	a.mapView.SetStyles(a.styles)
	a.pager.SetStyles(a.styles)
	a.picker.SelectName(th.Name)
	debug.Log("theme set to %s", th.Name)
}

// render renders the current view to the screen
func (a *App) render() {
	a.screen.Clear()

	a.mapView.Draw(a.screen)
	a.pager.Draw(a.screen)
	if a.pickerOpen {
		a.picker.Draw(a.screen, a.styles)
	}
	a.drawStatus()

	a.screen.Show()
}

func (a *App) drawStatus() {
	width, height := a.screen.Size()
	if width < 1 || height < 1 {
		return
	}

	canvas := render.NewCanvas(width, 1)
	canvas.FillRect(0, 0, width, 1, ' ', a.styles.Status)
	canvas.DrawTextClipped(0, 0, width, a.statusText(), a.styles.Status)
	canvas.Blit(a.screen, 0, height-1)
}

func (a *App) statusText() string {
	if a.ctrl.Orientation() == locator.Landscape {
		return " enlarge the terminal to select stores   [q]uit"
	}

	total := len(a.ctrl.Features())
	routes := a.ctrl.Cache().Len()
	busy := ""
	if a.refresh != nil {
		select {
		case <-a.refresh.Done():
		default:
			busy = " (routing…)"
		}
	}
	return fmt.Sprintf(" %s %s  stores: %d  routes: %d/%d%s  radius: %.1f km   [n]earest [t]heme [r]efresh [q]uit",
		a.theme.Icon, a.theme.Name, total, routes, total, busy, a.mapView.Radius())
}

// handleEvent processes screen events. It returns false when the user quits.
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ev)

	case *tcell.EventMouse:
		// A tap is a button press followed by its release
		if ev.Buttons()&tcell.Button1 != 0 {
			a.pressed = true
			return true
		}
		if ev.Buttons() == tcell.ButtonNone && a.pressed {
			a.pressed = false
			x, y := ev.Position()
			a.handleTap(x, y)
		}

	case *tcell.EventResize:
		a.handleResize()
	}

	return true
}

func (a *App) handleTap(x, y int) {
	if a.pickerOpen {
		if a.picker.Click(x, y) {
			a.applyTheme(a.picker.Selected())
			a.pickerOpen = false
		}
		return
	}

	if a.pager.Contains(x, y) {
		if dir, ok := a.pager.HitArrow(x, y); ok {
			a.ctrl.Advance(dir)
		}
		return
	}

	a.ctrl.Tap(geo.Point{X: x, Y: y})
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		switch {
		case a.pickerOpen:
			a.pickerOpen = false
		case a.ctrl.Selection().Active():
			a.ctrl.ClearSelection()
		default:
			a.stop()
			return false
		}

	case tcell.KeyEnter:
		if a.pickerOpen {
			a.applyTheme(a.picker.Selected())
			a.pickerOpen = false
		}

	case tcell.KeyUp:
		if a.pickerOpen {
			a.picker.SelectPrev()
		}

	case tcell.KeyDown:
		if a.pickerOpen {
			a.picker.SelectNext()
		}

	case tcell.KeyLeft:
		a.ctrl.Advance(locator.Backward)

	case tcell.KeyRight:
		a.ctrl.Advance(locator.Forward)

	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			a.stop()
			return false

		case '+', '=':
			a.mapView.ZoomIn()

		case '-', '_':
			a.mapView.ZoomOut()

		case 'w', 'W':
			a.nudge(nudgeMeters, 0)
		case 's', 'S':
			a.nudge(-nudgeMeters, 0)
		case 'a', 'A':
			a.nudge(0, -nudgeMeters)
		case 'd', 'D':
			a.nudge(0, nudgeMeters)

		case 'n', 'N':
			a.selectNearest()

		case 't', 'T':
			a.pickerOpen = !a.pickerOpen

		case 'c', 'C':
			if a.hasUser {
				a.mapView.CenterOn(a.user)
			}

		case 'r', 'R':
			if a.hasUser {
				a.refreshRoutes(a.user)
			}
		}
	}

	return true
}

// nudge moves the user's location, starting from the map center when it
// is unknown
func (a *App) nudge(north, east float64) {
	from := a.mapView.Projection().Center()
	if a.hasUser {
		from = a.user
	}
	a.setUserLocation(from.Offset(north, east))
}

// handleResize handles terminal resize events
func (a *App) handleResize() {
	a.screen.Sync()
	width, height := a.screen.Size()

	a.mapView.UpdateDimensions(width, mapHeight(height))
	a.layout(width, height)
}

// layout places the panels and sets the orientation for a screen size
func (a *App) layout(width, height int) {
	orientation := locator.Portrait
	if height < minPortraitRows {
		orientation = locator.Landscape
	}
	if orientation != a.ctrl.Orientation() {
		a.ctrl.SetOrientation(orientation)
		debug.Log("orientation changed to %d (%dx%d)", orientation, width, height)
	}

	pw := min(width, maxPagerWidth)
	ph := min(height*2/5, maxPagerHeight)
	a.pager.UpdateDimensions((width-pw)/2, mapHeight(height)-ph, pw, ph)

	kw := min(width, pickerWidth)
	kh := min(height-1, len(theme.All())+2)
	a.picker.UpdateDimensions((width-kw)/2, (height-kh)/2, kw, kh)
}

// stop ends Run and cancels in-flight route requests
func (a *App) stop() {
	a.quitOnce.Do(func() {
		close(a.quit)
	})
}

// cleanup performs cleanup before exit
func (a *App) cleanup() {
	a.stop()

	if a.cancel != nil {
		a.cancel()
	}

	if a.screen != nil {
		a.screen.Fini()
	}
}

// mapHeight leaves the bottom row for the status line
func mapHeight(screenHeight int) int {
	if screenHeight < 2 {
		return screenHeight
	}
	return screenHeight - 1
}

// centroid returns the mean store position, or 0,0 for no stores
func centroid(features []*poi.Feature) geo.LatLon {
	if len(features) == 0 {
		return geo.LatLon{}
	}
	var lat, lon float64
	for _, f := range features {
		lat += f.Coordinate.Lat
		lon += f.Coordinate.Lon
	}
	n := float64(len(features))
	return geo.LatLon{Lat: lat / n, Lon: lon / n}
}
