package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storeloc/internal/geo"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
	"storeloc/internal/theme"
)

// Config holds the settings shared by every storeloc command
type Config struct {
	DataPath        string // Store data file or http(s) URL
	IDKey           string
	BasemapPath     string // Optional shapefile drawn under the stores
	CacheDir        string
	RouterURL       string // OSRM base URL, empty for straight-line routes
	RouterProfile   string
	RouterTimeout   time.Duration
	MaxInFlight     int
	Origin          string // "lat,lon"
	LocationFeed    string // host:port of a lat,lon line server
	LocationCommand string // Command printing lat,lon lines
	Theme           string // Empty shows the theme picker
	RadiusKm        float64
	AspectRatio     float64
	RefreshDistance float64 // Meters
	DebugLog        string
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		IDKey:           poi.DefaultIDKey,
		RouterProfile:   routing.DefaultProfile,
		RouterTimeout:   10 * time.Second,
		RadiusKm:        5,
		AspectRatio:     2.0,
		RefreshDistance: 250,
	}
}

// Env maps environment variables to the flag they back
var Env = map[string]string{
	"data":             "STORELOC_DATA",
	"id-key":           "STORELOC_ID_KEY",
	"basemap":          "STORELOC_BASEMAP",
	"cache":            "STORELOC_CACHE_DIR",
	"router":           "STORELOC_ROUTER_URL",
	"profile":          "STORELOC_ROUTER_PROFILE",
	"router-timeout":   "STORELOC_ROUTER_TIMEOUT",
	"max-in-flight":    "STORELOC_MAX_IN_FLIGHT",
	"origin":           "STORELOC_ORIGIN",
	"location-feed":    "STORELOC_LOCATION_FEED",
	"location-cmd":     "STORELOC_LOCATION_CMD",
	"theme":            "STORELOC_THEME",
	"radius":           "STORELOC_RADIUS_KM",
	"aspect":           "STORELOC_ASPECT",
	"refresh-distance": "STORELOC_REFRESH_DISTANCE",
}

// ApplyEnv fills every setting whose flag was not given on the command line
// from its environment variable. changed reports whether a flag was set.
func (c *Config) ApplyEnv(getenv func(string) string, changed func(flag string) bool) error {
	lookup := func(flag string) (string, bool) {
		if changed != nil && changed(flag) {
			return "", false
		}
		v := strings.TrimSpace(getenv(Env[flag]))
		return v, v != ""
	}

	strs := map[string]*string{
		"data":          &c.DataPath,
		"id-key":        &c.IDKey,
		"basemap":       &c.BasemapPath,
		"cache":         &c.CacheDir,
		"router":        &c.RouterURL,
		"profile":       &c.RouterProfile,
		"origin":        &c.Origin,
		"location-feed": &c.LocationFeed,
		"location-cmd":  &c.LocationCommand,
		"theme":         &c.Theme,
	}
	for flag, dst := range strs {
		if v, ok := lookup(flag); ok {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"radius":           &c.RadiusKm,
		"aspect":           &c.AspectRatio,
		"refresh-distance": &c.RefreshDistance,
	}
	for flag, dst := range floats {
		if v, ok := lookup(flag); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", Env[flag], err)
			}
			*dst = f
		}
	}

	if v, ok := lookup("max-in-flight"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", Env["max-in-flight"], err)
		}
		c.MaxInFlight = n
	}

	if v, ok := lookup("router-timeout"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", Env["router-timeout"], err)
		}
		c.RouterTimeout = d
	}

	return nil
}

// Validate checks ranges and formats. Every problem is reported at once.
func (c Config) Validate() error {
	var errs []error

	if c.DataPath == "" {
		errs = append(errs, errors.New("a store data file is required (--data)"))
	}
	if c.AspectRatio < 1.0 || c.AspectRatio > 4.0 {
		errs = append(errs, errors.New("aspect ratio must be between 1.0 and 4.0"))
	}
	if c.RadiusKm <= 0 {
		errs = append(errs, errors.New("radius must be positive"))
	}
	if c.RefreshDistance < 0 {
		errs = append(errs, errors.New("refresh distance must not be negative"))
	}
	if c.MaxInFlight < 0 {
		errs = append(errs, errors.New("max in-flight requests must not be negative"))
	}
	if c.RouterTimeout <= 0 {
		errs = append(errs, errors.New("router timeout must be positive"))
	}
	if c.Origin != "" {
		if _, err := geo.ParseLatLon(c.Origin); err != nil {
			errs = append(errs, fmt.Errorf("origin: %w", err))
		}
	}
	if c.Theme != "" {
		if _, ok := theme.Lookup(c.Theme); !ok {
			errs = append(errs, fmt.Errorf("unknown theme %q (have %s)", c.Theme, strings.Join(theme.Names(), ", ")))
		}
	}
	if c.LocationFeed != "" && c.LocationCommand != "" {
		errs = append(errs, errors.New("use either a location feed or a location command, not both"))
	}

	return errors.Join(errs...)
}

// OriginLatLon returns the configured origin, ok=false when none was given
func (c Config) OriginLatLon() (geo.LatLon, bool) {
	if c.Origin == "" {
		return geo.LatLon{}, false
	}
	loc, err := geo.ParseLatLon(c.Origin)
	if err != nil {
		return geo.LatLon{}, false
	}
	return loc, true
}

// IsRemoteData reports whether the data source has to be downloaded
func (c Config) IsRemoteData() bool {
	return strings.HasPrefix(c.DataPath, "http://") || strings.HasPrefix(c.DataPath, "https://")
}
