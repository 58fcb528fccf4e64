package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	kitlog "github.com/go-kit/log"
	"github.com/spf13/cobra"

	"storeloc/internal/cache"
	"storeloc/internal/config"
	"storeloc/internal/debug"
	"storeloc/internal/geo"
	"storeloc/internal/location"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
	"storeloc/internal/theme"
	"storeloc/internal/ui"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "storeloc",
	Short: "Terminal store locator",
	Long: `storeloc shows stores on a terminal map. Click a store to see its details
and the route to it, and page through the stores with the arrow keys.`,
	SilenceUsage: true,
	RunE:         runMap,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfg.DataPath, "data", "", "Store data: .geojson, .shp, .csv or .db file, or an http(s) URL")
	f.StringVar(&cfg.IDKey, "id-key", cfg.IDKey, "Attribute that uniquely identifies a store")
	f.StringVar(&cfg.BasemapPath, "basemap", "", "Basemap shapefile, or one of: coastline, states, roads")
	f.StringVar(&cfg.CacheDir, "cache", "", "Cache directory for downloads (default: ~/.storeloc/data)")
	f.StringVar(&cfg.RouterURL, "router", "", "OSRM base URL, straight lines when empty")
	f.StringVar(&cfg.RouterProfile, "profile", cfg.RouterProfile, "OSRM routing profile")
	f.DurationVar(&cfg.RouterTimeout, "router-timeout", cfg.RouterTimeout, "Timeout per route request")
	f.IntVar(&cfg.MaxInFlight, "max-in-flight", 0, "Concurrent route requests, 0 is unlimited")
	f.StringVar(&cfg.Origin, "origin", "", "Your location as lat,lon")
	f.StringVar(&cfg.Theme, "theme", "", "Theme name, the picker opens when empty")
	f.StringVarP(&cfg.DebugLog, "debug", "d", "", "Debug log file (e.g., debug.log)")

	rootCmd.Flags().StringVar(&cfg.LocationFeed, "location-feed", "", "Read lat,lon lines from host:port")
	rootCmd.Flags().StringVar(&cfg.LocationCommand, "location-cmd", "", "Read lat,lon lines from a command, e.g. a GPS helper")
	rootCmd.Flags().Float64VarP(&cfg.RadiusKm, "radius", "r", cfg.RadiusKm, "Map radius in km")
	rootCmd.Flags().Float64VarP(&cfg.AspectRatio, "aspect", "a", cfg.AspectRatio, "Character aspect ratio - adjust for font width (1.0-4.0)")
	rootCmd.Flags().Float64Var(&cfg.RefreshDistance, "refresh-distance", cfg.RefreshDistance, "Meters moved before routes are refreshed")

	rootCmd.AddCommand(exportCmd, nearestCmd, themesCmd, convertCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup applies the environment, validates the settings and opens the debug
// log. The returned func closes the log.
func setup(cmd *cobra.Command) (func(), error) {
	if err := cfg.ApplyEnv(os.Getenv, cmd.Flags().Changed); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	closeLog := func() {}
	if cfg.DebugLog != "" {
		logFile, err := os.Create(cfg.DebugLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create debug log: %v\n", err)
		} else {
			debug.SetOutput(logFile)
			debug.Log("storeloc debug log started")
			closeLog = func() {
				debug.SetOutput(nil)
				logFile.Close()
			}
		}
	}
	return closeLog, nil
}

// loadFeatures loads the store data, downloading it first when it is remote
func loadFeatures(ctx context.Context, m *cache.Manager) ([]*poi.Feature, error) {
	path := cfg.DataPath
	if cfg.IsRemoteData() {
		p, err := m.Fetch(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to download store data: %w", err)
		}
		path = p
	}

	features, err := poi.Load(path, poi.Options{IDKey: cfg.IDKey})
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("no stores in %s", cfg.DataPath)
	}
	return features, nil
}

// loadBasemap loads the optional basemap. A missing basemap is a warning,
// the map still works without one.
func loadBasemap(ctx context.Context, m *cache.Manager) []*geo.Line {
	if cfg.BasemapPath == "" {
		return nil
	}

	path := cfg.BasemapPath
	if _, ok := cache.Basemaps[path]; ok {
		p, err := m.EnsureBasemap(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Skipping basemap %s: %v\n", path, err)
			return nil
		}
		path = p
	}

	lines, err := geo.LoadBasemap(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Skipping basemap: %v\n", err)
		return nil
	}
	return lines
}

func newRouter() (routing.Service, error) {
	if cfg.RouterURL == "" {
		return routing.Direct{}, nil
	}

	var logger kitlog.Logger
	if debug.Enabled() {
		logger = kitlog.With(kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(debug.Writer())), "ts", kitlog.DefaultTimestampUTC)
	}

	return routing.NewOSRMClient(routing.OSRMConfig{
		BaseURL: cfg.RouterURL,
		Profile: cfg.RouterProfile,
		Timeout: cfg.RouterTimeout,
		Logger:  logger,
	})
}

func newLocationFeed() (*location.Feed, error) {
	switch {
	case cfg.LocationFeed != "":
		fmt.Printf("Connecting to location feed at %s...\n", cfg.LocationFeed)
		return location.NewNetworkFeed(cfg.LocationFeed)
	case cfg.LocationCommand != "":
		fmt.Printf("Starting %s...\n", cfg.LocationCommand)
		return location.NewCommandFeed(cfg.LocationCommand)
	}
	return nil, nil
}

func runMap(cmd *cobra.Command, args []string) error {
	closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m, err := cache.NewManager(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	m.SetProgress(os.Stdout)

	fmt.Println("Loading stores...")
	features, err := loadFeatures(ctx, m)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d stores\n", len(features))

	basemap := loadBasemap(ctx, m)

	router, err := newRouter()
	if err != nil {
		return err
	}

	opts := ui.Options{
		Features:        features,
		Basemap:         basemap,
		Router:          router,
		RadiusKm:        cfg.RadiusKm,
		AspectRatio:     cfg.AspectRatio,
		MaxInFlight:     cfg.MaxInFlight,
		RefreshDistance: cfg.RefreshDistance,
	}
	if th, ok := theme.Lookup(cfg.Theme); ok {
		opts.Theme = &th
	}
	if origin, ok := cfg.OriginLatLon(); ok {
		opts.Origin = &origin
	}

	feed, err := newLocationFeed()
	if err != nil {
		return fmt.Errorf("failed to start location feed: %w", err)
	}
	if feed != nil {
		feed.Start()
		defer feed.Close()
		opts.Updates = feed.Updates()

		go func() {
			for err := range feed.Errors() {
				debug.WithError(err).Warn("location feed")
			}
		}()
	}

	app, err := ui.NewApp(opts)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Run with panic recovery to ensure terminal is always restored
	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "\nPanic: %v\n", r)
			}
		}()

		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}()

	fmt.Println("\nGoodbye!")
	return nil
}
