package poi

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultIDKey is the attribute that uniquely identifies a store. Coordinates
// are never used since two stores can share a building.
const DefaultIDKey = "phone"

// Options controls how raw records become features
type Options struct {
	IDKey string // Attribute used as the feature ID, DefaultIDKey when empty
}

func (o Options) idKey() string {
	if o.IDKey == "" {
		return DefaultIDKey
	}
	return o.IDKey
}

// LoadError reports a data source that could not be turned into features
type LoadError struct {
	Path   string
	Record int // Zero-based record index, -1 when the whole file failed
	Err    error
}

func (e *LoadError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("load %s: record %d: %v", e.Path, e.Record, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a feature collection, picking the decoder from the file extension.
// Features keep the order of the source records.
func Load(path string, opts Options) ([]*Feature, error) {
	var (
		features []*Feature
		err      error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		features, err = loadGeoJSON(path, opts)
	case ".shp":
		features, err = loadShapefile(path, opts)
	case ".db", ".sqlite", ".sqlite3":
		features, err = loadSQLite(path, opts)
	case ".csv":
		features, err = loadCSV(path, opts)
	default:
		return nil, &LoadError{Path: path, Record: -1, Err: fmt.Errorf("unsupported format %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, err
	}

	if err := checkUnique(path, features); err != nil {
		return nil, err
	}
	return features, nil
}

// resolveID picks the feature ID: configured attribute, then the source's own
// identifier, then the record position.
func resolveID(attrs map[string]string, sourceID string, index int, opts Options) string {
	if id := strings.TrimSpace(attrs[opts.idKey()]); id != "" {
		return id
	}
	if sourceID != "" {
		return sourceID
	}
	return fmt.Sprintf("#%d", index)
}

func checkUnique(path string, features []*Feature) error {
	seen := make(map[string]int, len(features))
	for i, f := range features {
		if prev, ok := seen[f.ID]; ok {
			return &LoadError{Path: path, Record: i, Err: fmt.Errorf("duplicate id %q (first seen at record %d)", f.ID, prev)}
		}
		seen[f.ID] = i
	}
	return nil
}
