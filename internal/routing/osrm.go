package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	kitlog "github.com/go-kit/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"storeloc/internal/geo"
)

// DefaultProfile is the OSRM profile used when none is configured
const DefaultProfile = "driving"

// OSRMConfig configures an OSRMClient
type OSRMConfig struct {
	BaseURL    string        // e.g. https://router.project-osrm.org
	Profile    string        // driving, walking, cycling
	Timeout    time.Duration // Per request, 10s when zero
	HTTPClient *http.Client  // Overrides Timeout when set
	Logger     kitlog.Logger // Request log, nothing is logged when nil
}

// OSRMClient requests routes from an OSRM compatible HTTP service
type OSRMClient struct {
	route endpoint.Endpoint
}

type routeRequest struct {
	Origin      geo.LatLon
	Destination geo.LatLon
}

type routeResponse struct {
	Route    Route
	Distance float64 // Meters, as reported by the service
	Duration float64 // Seconds
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry *geojson.Geometry `json:"geometry"`
		Distance float64           `json:"distance"`
		Duration float64           `json:"duration"`
	} `json:"routes"`
}

// NewOSRMClient builds the route endpoint for cfg.BaseURL
func NewOSRMClient(cfg OSRMConfig) (*OSRMClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid router url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid router url %q: scheme must be http or https", cfg.BaseURL)
	}

	profile := cfg.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	ep := httptransport.NewExplicitClient(
		makeRouteRequest(base, profile),
		decodeRouteResponse,
		httptransport.SetClient(client),
	).Endpoint()

	if cfg.Logger != nil {
		ep = LoggingMiddleware(kitlog.With(cfg.Logger, "component", "osrm", "profile", profile))(ep)
	}

	return &OSRMClient{route: ep}, nil
}

// ComputeRoute requests the full-overview route geometry from origin to destination
func (c *OSRMClient) ComputeRoute(ctx context.Context, origin, destination geo.LatLon) (Route, error) {
	resp, err := c.route(ctx, routeRequest{Origin: origin, Destination: destination})
	if err != nil {
		return nil, &Error{Origin: origin, Destination: destination, Err: err}
	}

	r := resp.(routeResponse)
	if len(r.Route) == 0 {
		return nil, &Error{Origin: origin, Destination: destination, Err: ErrNoRoute}
	}
	return r.Route, nil
}

func makeRouteRequest(base *url.URL, profile string) httptransport.CreateRequestFunc {
	return func(ctx context.Context, request interface{}) (*http.Request, error) {
		req := request.(routeRequest)

		// OSRM wants lon,lat pairs separated by ';'
		coords := fmt.Sprintf("%f,%f;%f,%f",
			req.Origin.Lon, req.Origin.Lat,
			req.Destination.Lon, req.Destination.Lat)

		u := *base
		u.Path = base.Path + "/route/v1/" + url.PathEscape(profile) + "/" + coords
		u.RawQuery = url.Values{
			"overview":   {"full"},
			"geometries": {"geojson"},
		}.Encode()

		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Accept", "application/json")
		r.Header.Set("User-Agent", "storeloc/1.0")
		return r, nil
	}
}

func decodeRouteResponse(_ context.Context, resp *http.Response) (interface{}, error) {
	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("router returned %s", resp.Status)
		}
		return nil, fmt.Errorf("decode router response: %w", err)
	}

	switch body.Code {
	case "Ok":
	case "NoRoute", "NoSegment":
		return nil, ErrNoRoute
	default:
		return nil, fmt.Errorf("router returned %s: %s", body.Code, body.Message)
	}

	if len(body.Routes) == 0 || body.Routes[0].Geometry == nil {
		return nil, ErrNoRoute
	}

	first := body.Routes[0]
	ls, ok := first.Geometry.Coordinates.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("unexpected route geometry %s", first.Geometry.Type)
	}

	return routeResponse{
		Route:    FromLineString(ls),
		Distance: first.Distance,
		Duration: first.Duration,
	}, nil
}

// LoggingMiddleware logs every route request with its outcome and latency
func LoggingMiddleware(logger kitlog.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			defer func(begin time.Time) {
				req, _ := request.(routeRequest)
				logger.Log(
					"method", "route",
					"origin", req.Origin.String(),
					"destination", req.Destination.String(),
					"took", time.Since(begin),
					"err", err,
				)
			}(time.Now())
			return next(ctx, request)
		}
	}
}
