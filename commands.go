package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"storeloc/internal/cache"
	"storeloc/internal/export"
	"storeloc/internal/geo"
	"storeloc/internal/locator"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
	"storeloc/internal/theme"
)

var (
	exportOut  string
	nearestN   int
	convertOut string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stores and the routes to them as KML",
	Long: `Loads the stores, computes the route from --origin to every store and
writes them as a KML document for Google Earth or any GIS tool.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "List the stores closest to --origin",
	Args:  cobra.NoArgs,
	RunE:  runNearest,
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List the available themes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, th := range theme.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %c/%c  %-10s %s\n",
				th.Name, th.Marker, th.SelectedMarker, th.Icon, th.Colors.Primary.Hex())
		}
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the store data to a SQLite database",
	Args:  cobra.NoArgs,
	RunE:  runConvert,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "Output KML file, - for stdout")
	nearestCmd.Flags().IntVarP(&nearestN, "count", "n", 5, "Number of stores to list")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "stores.db", "Output SQLite database")
}

// headless stands in for the map and the detail panel when there is no UI
type headless struct{}

func (headless) VisibleFeatures(geo.Point, string) []*poi.Feature { return nil }
func (headless) SetMarkerStyle(string) {}
func (headless) SetRouteLine(routing.Route) {}
func (headless) CenterOn(geo.LatLon) {}
func (headless) ShowDetail(locator.Selection) {}
func (headless) Hide() {}

func loadStores(ctx context.Context) ([]*poi.Feature, error) {
	m, err := cache.NewManager(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	m.SetProgress(os.Stderr)
	return loadFeatures(ctx, m)
}

func runExport(cmd *cobra.Command, args []string) error {
	closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	features, err := loadStores(ctx)
	if err != nil {
		return err
	}

	router, err := newRouter()
	if err != nil {
		return err
	}

	ctrl := locator.NewController(locator.Config{
		Surface:     headless{},
		Pager:       headless{},
		Router:      router,
		Dispatch:    locator.Inline,
		MaxInFlight: cfg.MaxInFlight,
	})
	ctrl.SetFeatures(features)

	doc := export.Document{
		Name:     strings.TrimSuffix(filepath.Base(cfg.DataPath), filepath.Ext(cfg.DataPath)),
		Theme:    theme.Default(),
		Features: features,
		Routes:   make(map[string]routing.Route),
	}
	if th, ok := theme.Lookup(cfg.Theme); ok {
		doc.Theme = th
	}

	if origin, ok := cfg.OriginLatLon(); ok {
		doc.Origin = &origin

		res := ctrl.RefreshRoutes(ctx, origin).Wait()
		for id, err := range res.Failed {
			log.WithError(err).WithField("store", id).Warn("no route")
		}
		fmt.Fprintf(os.Stderr, "Routed %d of %d stores\n", res.Succeeded, res.Total)

		for _, e := range ctrl.Cache().Entries() {
			doc.Routes[e.Feature.ID] = e.Route
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "-" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	return export.WriteKML(w, doc)
}

func runNearest(cmd *cobra.Command, args []string) error {
	closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	origin, ok := cfg.OriginLatLon()
	if !ok {
		return fmt.Errorf("--origin is required")
	}

	features, err := loadStores(cmd.Context())
	if err != nil {
		return err
	}

	for i, r := range poi.Nearest(features, origin, nearestN) {
		fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s  %s\n", i+1, r.Feature.ListDisplay(r.Distance), r.Feature.Attr(poi.AttrHours))
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	closeLog, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	features, err := loadStores(cmd.Context())
	if err != nil {
		return err
	}

	if err := poi.SaveSQLite(cmd.Context(), convertOut, features); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d stores to %s\n", len(features), convertOut)
	return nil
}
