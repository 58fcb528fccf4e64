package poi

import (
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"storeloc/internal/geo"
)

func loadGeoJSON(path string, opts Options) ([]*Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: err}
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: err}
	}

	features := make([]*Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		pt, ok := gf.Geometry.(orb.Point)
		if !ok {
			return nil, &LoadError{Path: path, Record: i, Err: fmt.Errorf("geometry %T is not a point", gf.Geometry)}
		}

		coord := geo.FromPoint(pt)
		if !coord.Valid() {
			return nil, &LoadError{Path: path, Record: i, Err: fmt.Errorf("coordinate %v out of range", coord)}
		}

		attrs := stringProperties(gf.Properties)
		features = append(features, &Feature{
			ID:         resolveID(attrs, sourceID(gf.ID), i, opts),
			Coordinate: coord,
			Attributes: attrs,
		})
	}

	return features, nil
}

// stringProperties flattens GeoJSON properties to display strings.
// Nested objects and nulls are dropped.
func stringProperties(props geojson.Properties) map[string]string {
	attrs := make(map[string]string, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case string:
			attrs[k] = val
		case float64:
			attrs[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			attrs[k] = strconv.FormatBool(val)
		}
	}
	return attrs
}

func sourceID(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
