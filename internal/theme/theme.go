package theme

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette is the color scheme of a theme
type Palette struct {
	Primary        colorful.Color // Detail panel background
	PrimaryDark    colorful.Color // Panel border and selected marker
	NavigationLine colorful.Color // Route line
	LowerCardText  colorful.Color // Detail panel text
	Accent         colorful.Color // Paging arrows and unselected markers
}

// Theme is a marker set with its color scheme
type Theme struct {
	Name           string
	Icon           string // What the marker depicts
	Marker         rune   // Unselected store marker
	SelectedMarker rune
	Basemap        colorful.Color // Basemap line color
	Colors         Palette
}

var (
	black = colorful.Color{R: 0, G: 0, B: 0}
	white = colorful.Color{R: 1, G: 1, B: 1}
)

// Themes in picker order. Never modified after init.
var registry = []Theme{
	{
		Name:           "purple",
		Icon:           "burger",
		Marker:         'b',
		SelectedMarker: 'B',
		Basemap:        colorful.Color{R: 0.45, G: 0.40, B: 0.55},
		Colors: Palette{
			Primary:        colorful.Color{R: 0.64, G: 0.36, B: 0.80},
			PrimaryDark:    colorful.Color{R: 0.36, G: 0.22, B: 0.73},
			NavigationLine: colorful.Color{R: 0.60, G: 0.49, B: 0.87},
			LowerCardText:  colorful.Color{R: 0.42, G: 0.08, B: 0.61},
			Accent:         colorful.Color{R: 0.78, G: 0.66, B: 0.85},
		},
	},
	{
		Name:           "blue",
		Icon:           "ice cream",
		Marker:         'i',
		SelectedMarker: 'I',
		Basemap:        colorful.Color{R: 0.35, G: 0.45, B: 0.55},
		Colors: Palette{
			Primary:        colorful.Color{R: 0.27, G: 0.67, B: 0.91},
			PrimaryDark:    colorful.Color{R: 0.15, G: 0.55, B: 0.73},
			NavigationLine: colorful.Color{R: 0.43, G: 0.79, B: 0.95},
			LowerCardText:  colorful.Color{R: 0.06, G: 0.51, B: 0.70},
			Accent:         colorful.Color{R: 0.62, G: 0.80, B: 0.88},
		},
	},
	{
		Name:           "green",
		Icon:           "money",
		Marker:         's',
		SelectedMarker: '$',
		Basemap:        colorful.Color{R: 0.35, G: 0.50, B: 0.35},
		Colors: Palette{
			Primary:        colorful.Color{R: 0.35, G: 0.89, B: 0.14},
			PrimaryDark:    colorful.Color{R: 0.23, G: 0.78, B: 0.01},
			NavigationLine: colorful.Color{R: 0.23, G: 0.78, B: 0.01},
			LowerCardText:  black,
			Accent:         colorful.Color{R: 0.47, G: 0.96, B: 0.27},
		},
	},
	{
		Name:           "gray",
		Icon:           "bike",
		Marker:         'o',
		SelectedMarker: 'O',
		Basemap:        colorful.Color{R: 0.50, G: 0.50, B: 0.50},
		Colors: Palette{
			Primary:        colorful.Color{R: 0.93, G: 0.94, B: 0.94},
			PrimaryDark:    colorful.Color{R: 0.41, G: 0.41, B: 0.41},
			NavigationLine: colorful.Color{R: 0.41, G: 0.41, B: 0.41},
			LowerCardText:  colorful.Color{R: 0.41, G: 0.41, B: 0.41},
			Accent:         colorful.Color{R: 0.62, G: 0.62, B: 0.62},
		},
	},
	{
		Name:           "neutral",
		Icon:           "house",
		Marker:         'h',
		SelectedMarker: 'H',
		Basemap:        colorful.Color{R: 0.55, G: 0.53, B: 0.50},
		Colors: Palette{
			Primary:        colorful.Color{R: 0.91, G: 0.90, B: 0.88},
			PrimaryDark:    colorful.Color{R: 0.70, G: 0.69, B: 0.67},
			NavigationLine: colorful.Color{R: 0.00, G: 0.73, B: 1.00},
			LowerCardText:  black,
			Accent:         white,
		},
	},
}

// All returns every theme in picker order
func All() []Theme {
	return append([]Theme(nil), registry...)
}

// Default is the first theme
func Default() Theme {
	return registry[0]
}

// Lookup finds a theme by name, ignoring case
func Lookup(name string) (Theme, bool) {
	name = strings.TrimSpace(name)
	for _, t := range registry {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Theme{}, false
}

// Names lists the theme names in picker order
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, t := range registry {
		names = append(names, t.Name)
	}
	return names
}
