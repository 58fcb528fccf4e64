package poi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"

	"storeloc/internal/geo"
)

const storesSchema = `
CREATE TABLE IF NOT EXISTS stores (
	id TEXT,
	lat REAL NOT NULL,
	lon REAL NOT NULL,
	properties TEXT NOT NULL DEFAULT '{}'
);
`

// loadSQLite reads the stores table in rowid order
func loadSQLite(path string, opts Options) ([]*Feature, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: err}
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(), `
SELECT COALESCE(id, ''), lat, lon, properties
FROM stores
ORDER BY rowid`)
	if err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: err}
	}
	defer rows.Close()

	features := make([]*Feature, 0)
	for i := 0; rows.Next(); i++ {
		var (
			id         string
			coord      geo.LatLon
			properties string
		)
		if err := rows.Scan(&id, &coord.Lat, &coord.Lon, &properties); err != nil {
			return nil, &LoadError{Path: path, Record: i, Err: err}
		}
		if !coord.Valid() {
			return nil, &LoadError{Path: path, Record: i, Err: fmt.Errorf("coordinate %v out of range", coord)}
		}

		props := geojson.Properties{}
		if properties != "" {
			if err := json.Unmarshal([]byte(properties), &props); err != nil {
				return nil, &LoadError{Path: path, Record: i, Err: fmt.Errorf("properties: %w", err)}
			}
		}

		attrs := stringProperties(props)
		features = append(features, &Feature{
			ID:         resolveID(attrs, id, i, opts),
			Coordinate: coord,
			Attributes: attrs,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Path: path, Record: -1, Err: err}
	}

	return features, nil
}

// SaveSQLite writes features into the stores table of a sqlite database,
// replacing any rows already there.
func SaveSQLite(ctx context.Context, path string, features []*Feature) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, storesSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stores`); err != nil {
		return err
	}
	for _, f := range features {
		props, err := json.Marshal(f.Attributes)
		if err != nil {
			return fmt.Errorf("store %s: %w", f.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stores (id, lat, lon, properties) VALUES (?, ?, ?, ?)`,
			f.ID, f.Coordinate.Lat, f.Coordinate.Lon, string(props),
		); err != nil {
			return fmt.Errorf("store %s: %w", f.ID, err)
		}
	}

	return tx.Commit()
}
