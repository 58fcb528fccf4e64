package poi

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"storeloc/internal/geo"
)

// loadCSV reads a store list with a header row. latitude and longitude
// columns are required; every other column becomes an attribute.
func loadCSV(path string, opts Options) ([]*Feature, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header row to get column indices
	header, err := reader.Read()
	if err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: fmt.Errorf("read header: %w", err)}
	}

	colIndices := make(map[string]int)
	for i, col := range header {
		colIndices[strings.TrimSpace(col)] = i
	}

	latCol, lonCol := -1, -1
	for _, name := range []string{"latitude", "lat", "latitude_deg"} {
		if i, ok := colIndices[name]; ok {
			latCol = i
			break
		}
	}
	for _, name := range []string{"longitude", "lon", "lng", "longitude_deg"} {
		if i, ok := colIndices[name]; ok {
			lonCol = i
			break
		}
	}
	if latCol < 0 || lonCol < 0 {
		return nil, &LoadError{Path: path, Record: -1, Err: fmt.Errorf("missing latitude/longitude columns")}
	}

	var features []*Feature
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Record: i, Err: err}
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(record[latCol]), 64)
		if err != nil {
			return nil, &LoadError{Path: path, Record: i, Err: fmt.Errorf("latitude: %w", err)}
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(record[lonCol]), 64)
		if err != nil {
			return nil, &LoadError{Path: path, Record: i, Err: fmt.Errorf("longitude: %w", err)}
		}

		coord := geo.LatLon{Lat: lat, Lon: lon}
		if !coord.Valid() {
			return nil, &LoadError{Path: path, Record: i, Err: fmt.Errorf("coordinate %v out of range", coord)}
		}

		attrs := make(map[string]string, len(header))
		for col, idx := range colIndices {
			if idx == latCol || idx == lonCol || idx >= len(record) {
				continue
			}
			if val := strings.TrimSpace(record[idx]); val != "" {
				attrs[col] = val
			}
		}

		features = append(features, &Feature{
			ID:         resolveID(attrs, attrs["id"], i, opts),
			Coordinate: coord,
			Attributes: attrs,
		})
	}

	return features, nil
}
