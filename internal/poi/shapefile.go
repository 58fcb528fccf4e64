package poi

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"

	"storeloc/internal/geo"
)

// loadShapefile reads point shapes with their dbf attributes. Field names
// are lower-cased since dbf headers are conventionally upper case.
func loadShapefile(path string, opts Options) ([]*Feature, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: err}
	}
	defer shape.Close()

	fields := shape.Fields()
	features := make([]*Feature, 0)

	for shape.Next() {
		n, s := shape.Shape()

		pt, ok := s.(*shp.Point)
		if !ok {
			return nil, &LoadError{Path: path, Record: n, Err: fmt.Errorf("shape %T is not a point", s)}
		}

		coord := geo.LatLon{Lat: pt.Y, Lon: pt.X}
		if !coord.Valid() {
			return nil, &LoadError{Path: path, Record: n, Err: fmt.Errorf("coordinate %v out of range", coord)}
		}

		attrs := make(map[string]string, len(fields))
		for k, f := range fields {
			val := trimDBF(shape.ReadAttribute(n, k))
			if val == "" {
				continue
			}
			attrs[strings.ToLower(trimDBF(f.String()))] = val
		}

		features = append(features, &Feature{
			ID:         resolveID(attrs, "", n, opts),
			Coordinate: coord,
			Attributes: attrs,
		})
	}
	if err := shape.Err(); err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: err}
	}

	return features, nil
}

// trimDBF strips the NUL and space padding of fixed-width dbf values
func trimDBF(v string) string {
	return strings.TrimSpace(strings.TrimRight(v, "\x00 "))
}
