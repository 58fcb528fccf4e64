package export

import (
	"fmt"
	"io"
	"strings"

	kml "github.com/twpayne/go-kml/v2"

	"storeloc/internal/geo"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
	"storeloc/internal/theme"
)

// Document is a store set with its routes, ready to be written as KML
type Document struct {
	Name     string
	Theme    theme.Theme
	Origin   *geo.LatLon
	Features []*poi.Feature
	Routes   map[string]routing.Route // Keyed by feature ID, missing means no route
}

// WriteKML writes one placemark per store, one line per known route and a
// placemark for the origin, styled with the theme colors
func WriteKML(w io.Writer, doc Document) error {
	storeStyle := kml.SharedStyle("store",
		kml.IconStyle(
			kml.Color(doc.Theme.Colors.Accent),
		),
	)
	routeStyle := kml.SharedStyle("route",
		kml.LineStyle(
			kml.Color(doc.Theme.Colors.NavigationLine),
			kml.Width(3),
		),
	)

	children := []kml.Element{
		kml.Name(doc.Name),
		storeStyle,
		routeStyle,
	}

	if doc.Origin != nil {
		children = append(children, kml.Placemark(
			kml.Name("Origin"),
			kml.Point(kml.Coordinates(coordinate(*doc.Origin))),
		))
	}

	stores := make([]kml.Element, 0, len(doc.Features)+1)
	stores = append(stores, kml.Name("Stores"))
	routes := []kml.Element{kml.Name("Routes")}

	for _, f := range doc.Features {
		route := doc.Routes[f.ID]

		stores = append(stores, kml.Placemark(
			kml.Name(f.DisplayName()),
			kml.Description(describe(f, route)),
			kml.StyleURL(storeStyle.URL()),
			kml.Point(kml.Coordinates(coordinate(f.Coordinate))),
		))

		if len(route) < 2 {
			continue
		}
		coords := make([]kml.Coordinate, 0, len(route))
		for _, c := range route {
			coords = append(coords, coordinate(c))
		}
		routes = append(routes, kml.Placemark(
			kml.Name("Route to "+f.DisplayName()),
			kml.StyleURL(routeStyle.URL()),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}

	children = append(children, kml.Folder(stores...))
	if len(routes) > 1 {
		children = append(children, kml.Folder(routes...))
	}

	if err := kml.KML(kml.Document(children...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

func coordinate(c geo.LatLon) kml.Coordinate {
	return kml.Coordinate{Lon: c.Lon, Lat: c.Lat}
}

func describe(f *poi.Feature, route routing.Route) string {
	var lines []string
	for _, key := range []string{poi.AttrHours, poi.AttrDescription, poi.AttrPhone} {
		if v := f.Attr(key); v != "" {
			lines = append(lines, v)
		}
	}
	if len(route) >= 2 {
		lines = append(lines, fmt.Sprintf("%.1f km away", route.Length()/1000))
	}
	return strings.Join(lines, "\n")
}
