package routing

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	kitlog "github.com/go-kit/log"

	"storeloc/internal/geo"
)

var (
	origin = geo.LatLon{Lat: 38.9, Lon: -77.03}
	store  = geo.LatLon{Lat: 38.91, Lon: -77.01}
)

func TestOSRMClientComputeRoute(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":2100.5,"duration":300,
			"geometry":{"type":"LineString","coordinates":[[-77.03,38.9],[-77.02,38.905],[-77.01,38.91]]}}]}`))
	}))
	defer server.Close()

	var logs bytes.Buffer
	client, err := NewOSRMClient(OSRMConfig{
		BaseURL: server.URL + "/",
		Logger:  kitlog.NewLogfmtLogger(&logs),
	})
	if err != nil {
		t.Fatalf("NewOSRMClient: %v", err)
	}

	route, err := client.ComputeRoute(context.Background(), origin, store)
	if err != nil {
		t.Fatalf("ComputeRoute: %v", err)
	}

	if want := "/route/v1/driving/-77.030000,38.900000;-77.010000,38.910000"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	if !strings.Contains(gotQuery, "geometries=geojson") || !strings.Contains(gotQuery, "overview=full") {
		t.Errorf("query = %q", gotQuery)
	}
	if len(route) != 3 || route[0] != origin || route[2] != store {
		t.Fatalf("route = %v", route)
	}
	if !strings.Contains(logs.String(), "method=route") {
		t.Errorf("expected request log, got %q", logs.String())
	}
}

func TestOSRMClientErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantNoRte bool
	}{
		{name: "no route", status: http.StatusBadRequest, body: `{"code":"NoRoute","message":"Impossible route"}`, wantNoRte: true},
		{name: "empty routes", status: http.StatusOK, body: `{"code":"Ok","routes":[]}`, wantNoRte: true},
		{name: "invalid query", status: http.StatusBadRequest, body: `{"code":"InvalidQuery","message":"bad"}`},
		{name: "gateway error", status: http.StatusBadGateway, body: `<html>bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewOSRMClient(OSRMConfig{BaseURL: server.URL})
			if err != nil {
				t.Fatalf("NewOSRMClient: %v", err)
			}

			_, err = client.ComputeRoute(context.Background(), origin, store)
			var rerr *Error
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if rerr.Destination != store {
				t.Errorf("destination = %v", rerr.Destination)
			}
			if got := errors.Is(err, ErrNoRoute); got != tt.wantNoRte {
				t.Errorf("errors.Is(ErrNoRoute) = %v, want %v (%v)", got, tt.wantNoRte, err)
			}
		})
	}
}

func TestOSRMClientHonorsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewOSRMClient(OSRMConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewOSRMClient: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.ComputeRoute(ctx, origin, store); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewOSRMClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "://nope"} {
		if _, err := NewOSRMClient(OSRMConfig{BaseURL: raw}); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestDirect(t *testing.T) {
	route, err := Direct{}.ComputeRoute(context.Background(), origin, store)
	if err != nil {
		t.Fatalf("ComputeRoute: %v", err)
	}
	if len(route) != 2 || route[0] != origin || route[1] != store {
		t.Fatalf("route = %v", route)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Direct{}).ComputeRoute(ctx, origin, store); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRouteLengthAndSimplify(t *testing.T) {
	start := geo.LatLon{Lat: 38.9, Lon: -77.0}
	route := Route{start, start.Offset(500, 0), start.Offset(1000, 0), start.Offset(1000, 1000)}

	if l := route.Length(); math.Abs(l-2000) > 10 {
		t.Fatalf("length = %.1f, want ~2000", l)
	}
	if (Route{start}).Length() != 0 {
		t.Fatal("single point route should have zero length")
	}

	simple := route.Simplify(1e-5)
	if len(simple) != 3 {
		t.Fatalf("expected collinear midpoint dropped, got %d points", len(simple))
	}
	if len(route) != 4 {
		t.Fatal("Simplify must not modify the receiver")
	}
}
