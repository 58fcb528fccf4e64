package cache

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"storeloc/internal/debug"
)

const userAgent = "Mozilla/5.0 (compatible; storeloc/1.0)"

// Manager downloads remote store data and basemaps into a local cache
type Manager struct {
	cacheDir string
	client   *http.Client
	out      io.Writer
}

// DataFile is a downloadable basemap
type DataFile struct {
	Name string // Friendly name
	URL  string // Download URL of a zipped shapefile
	Base string // Base filename (without extension)
}

// Natural Earth basemaps, selectable by key with --basemap
var Basemaps = map[string]DataFile{
	"coastline": {
		Name: "Coastlines",
		URL:  "https://naciscdn.org/naturalearth/10m/physical/ne_10m_coastline.zip",
		Base: "ne_10m_coastline",
	},
	"states": {
		Name: "States/Provinces",
		URL:  "https://naciscdn.org/naturalearth/10m/cultural/ne_10m_admin_1_states_provinces_lines.zip",
		Base: "ne_10m_admin_1_states_provinces_lines",
	},
	"roads": {
		Name: "Roads (North America)",
		URL:  "https://naciscdn.org/naturalearth/10m/cultural/ne_10m_roads_north_america.zip",
		Base: "ne_10m_roads_north_america",
	},
}

// NewManager creates a new cache manager
// If cacheDir is empty, uses ~/.storeloc/data
func NewManager(cacheDir string) (*Manager, error) {
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".storeloc", "data")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Manager{
		cacheDir: cacheDir,
		client:   &http.Client{},
		out:      io.Discard,
	}, nil
}

// SetProgress sets where download progress is printed
func (m *Manager) SetProgress(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	m.out = w
}

// SetHTTPClient replaces the client used for downloads
func (m *Manager) SetHTTPClient(c *http.Client) {
	m.client = c
}

// Fetch returns the local path of the file at rawURL, downloading it on
// first use. The cached file is keyed by the whole URL and keeps the
// extension from the URL path so loaders can dispatch on it.
func (m *Manager) Fetch(ctx context.Context, rawURL string) (string, error) {
	name, err := cacheName(rawURL)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(m.cacheDir, name)
	if _, err := os.Stat(dest); err == nil {
		debug.Log("cache hit for %s", rawURL)
		return dest, nil
	}

	fmt.Fprintf(m.out, "Downloading %s...\n", rawURL)

	tmp, err := m.download(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)

	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("failed to save download: %w", err)
	}
	return dest, nil
}

// cacheName maps a URL to "<file>-<hash><ext>", e.g.
// https://example.com/a/stores.geojson -> stores-1f2e3d4c5b6a7988.geojson
func cacheName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("URL %q does not name a file", rawURL)
	}

	sum := sha256.Sum256([]byte(rawURL))
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + hex.EncodeToString(sum[:8]) + ext, nil
}

// EnsureBasemap returns the shapefile for a Natural Earth basemap key,
// downloading and extracting it if needed
func (m *Manager) EnsureBasemap(ctx context.Context, key string) (string, error) {
	file, ok := Basemaps[key]
	if !ok {
		return "", fmt.Errorf("unknown basemap %q", key)
	}

	shpPath := m.GetDataPath(file.Base)
	if _, err := os.Stat(shpPath); err == nil {
		return shpPath, nil
	}

	fmt.Fprintf(m.out, "Downloading %s...\n", file.Name)

	tmp, err := m.download(ctx, file.URL)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)

	if err := m.extractZip(tmp, m.cacheDir); err != nil {
		return "", fmt.Errorf("failed to extract: %w", err)
	}

	if _, err := os.Stat(shpPath); err != nil {
		return "", fmt.Errorf("%s not found in %s", filepath.Base(shpPath), file.URL)
	}

	fmt.Fprintf(m.out, "Downloaded and extracted %s\n", file.Name)
	return shpPath, nil
}

// download saves rawURL to a temporary file in the cache directory
func (m *Manager) download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status: %s (URL: %s)", resp.Status, rawURL)
	}

	tmpFile, err := os.CreateTemp(m.cacheDir, ".download_*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmpFile.Close()

	n, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to save download: %w", err)
	}

	debug.Log("downloaded %d bytes from %s", n, rawURL)
	return tmpFile.Name(), nil
}

func (m *Manager) extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(filepath.Base(f.Name), ".") {
			continue
		}

		// Flattened, so entries can't escape destDir
		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		rc, err := f.Open()

		if err != nil {
			return err
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			rc.Close()
			return err
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) GetDataPath(base string) string {
	return filepath.Join(m.cacheDir, base+".shp")
}

func (m *Manager) GetCacheDir() string {
	return m.cacheDir
}
