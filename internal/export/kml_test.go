package export

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"storeloc/internal/geo"
	"storeloc/internal/poi"
	"storeloc/internal/routing"
	"storeloc/internal/theme"
)

func TestWriteKML(t *testing.T) {
	origin := geo.LatLon{Lat: 38.95, Lon: -77.0}
	features := []*poi.Feature{
		{ID: "a", Coordinate: geo.LatLon{Lat: 38.9, Lon: -77.03}, Attributes: map[string]string{
			poi.AttrName:  "Dupont & Co",
			poi.AttrHours: "9-5",
		}},
		{ID: "b", Coordinate: geo.LatLon{Lat: 38.91, Lon: -77.02}},
	}
	routes := map[string]routing.Route{
		"a": {origin, features[0].Coordinate},
	}

	var buf bytes.Buffer
	err := WriteKML(&buf, Document{
		Name:     "stores",
		Theme:    theme.Default(),
		Origin:   &origin,
		Features: features,
		Routes:   routes,
	})
	if err != nil {
		t.Fatalf("WriteKML: %v", err)
	}
	out := buf.String()

	if err := xml.Unmarshal(buf.Bytes(), new(struct{})); err != nil {
		t.Fatalf("output is not well-formed XML: %v", err)
	}

	if got := strings.Count(out, "<Placemark>"); got != 4 {
		t.Errorf("got %d placemarks, want 4 (origin, 2 stores, 1 route)", got)
	}
	for _, want := range []string{
		"Dupont &amp; Co",
		"<name>b</name>",
		"-77.03,38.9",
		"Route to Dupont &amp; Co",
		"#route",
		"<LineString>",
		"9-5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestWriteKMLWithoutRoutes(t *testing.T) {
	var buf bytes.Buffer
	err := WriteKML(&buf, Document{
		Name:     "empty",
		Theme:    theme.Default(),
		Features: []*poi.Feature{{ID: "x", Coordinate: geo.LatLon{Lat: 1, Lon: 2}}},
	})
	if err != nil {
		t.Fatalf("WriteKML: %v", err)
	}
	if strings.Contains(buf.String(), "<LineString>") {
		t.Error("no route lines expected")
	}
	if strings.Contains(buf.String(), "Routes") {
		t.Error("empty routes folder should be omitted")
	}
}
