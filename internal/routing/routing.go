package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/simplify"

	"storeloc/internal/geo"
)

// ErrNoRoute is returned when the service answers but has no path between
// the two points.
var ErrNoRoute = errors.New("no route found")

// Route is the driving path from an origin to a store. An empty route means
// no route is available.
type Route []geo.LatLon

// Service computes routes. Implementations must be safe for concurrent use.
type Service interface {
	ComputeRoute(ctx context.Context, origin, destination geo.LatLon) (Route, error)
}

// ServiceFunc adapts a function to the Service interface
type ServiceFunc func(ctx context.Context, origin, destination geo.LatLon) (Route, error)

// ComputeRoute calls f(ctx, origin, destination)
func (f ServiceFunc) ComputeRoute(ctx context.Context, origin, destination geo.LatLon) (Route, error) {
	return f(ctx, origin, destination)
}

// Error describes a failed route request
type Error struct {
	Origin      geo.LatLon
	Destination geo.LatLon
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("route %v -> %v: %v", e.Origin, e.Destination, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// LineString converts the route to an orb line string
func (r Route) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(r))
	for _, c := range r {
		ls = append(ls, c.Point())
	}
	return ls
}

// Length returns the geodesic length of the route in meters
func (r Route) Length() float64 {
	if len(r) < 2 {
		return 0
	}
	return orbgeo.Length(r.LineString())
}

// Simplify drops vertices closer than threshold degrees to the line between
// their neighbours. The receiver is left untouched.
func (r Route) Simplify(threshold float64) Route {
	if len(r) < 3 {
		return r
	}
	ls := simplify.DouglasPeucker(threshold).LineString(r.LineString().Clone())
	return FromLineString(ls)
}

// FromLineString converts an orb line string to a route
func FromLineString(ls orb.LineString) Route {
	route := make(Route, 0, len(ls))
	for _, p := range ls {
		route = append(route, geo.FromPoint(p))
	}
	return route
}

// Direct is an offline Service that draws a straight line to each store
type Direct struct{}

// ComputeRoute returns the two-point route origin -> destination
func (Direct) ComputeRoute(ctx context.Context, origin, destination geo.LatLon) (Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Origin: origin, Destination: destination, Err: err}
	}
	return Route{origin, destination}, nil
}
