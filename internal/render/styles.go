package render

import (
	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"storeloc/internal/theme"
)

// Styles are the tcell styles derived from a theme
type Styles struct {
	Basemap        tcell.Style
	Route          tcell.Style
	Marker         tcell.Style
	MarkerSelected tcell.Style
	User           tcell.Style
	Label          tcell.Style
	Status         tcell.Style

	PanelBorder tcell.Style
	PanelText   tcell.Style
	PanelTitle  tcell.Style
	PanelArrow  tcell.Style

	ListItem     tcell.Style
	ListSelected tcell.Style

	MarkerRune         rune
	SelectedMarkerRune rune
}

// UserRune marks the user's location
const UserRune = '◎'

// RouteRune is drawn along the route line
const RouteRune = '•'

// Color converts a colorful color to a true-color tcell color
func Color(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

// NewStyles builds the style set for th
func NewStyles(th theme.Theme) Styles {
	p := th.Colors
	panelBg := Color(p.Primary)

	return Styles{
		Basemap:        tcell.StyleDefault.Foreground(Color(th.Basemap)),
		Route:          tcell.StyleDefault.Foreground(Color(p.NavigationLine)).Bold(true),
		Marker:         tcell.StyleDefault.Foreground(Color(p.Accent)),
		MarkerSelected: tcell.StyleDefault.Foreground(Color(p.PrimaryDark)).Bold(true).Reverse(true),
		User:           tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
		Label:          tcell.StyleDefault.Foreground(tcell.ColorWhite),
		Status:         tcell.StyleDefault.Foreground(tcell.ColorSilver),

		PanelBorder: tcell.StyleDefault.Foreground(Color(p.PrimaryDark)).Background(panelBg),
		PanelText:   tcell.StyleDefault.Foreground(Color(p.LowerCardText)).Background(panelBg),
		PanelTitle:  tcell.StyleDefault.Foreground(Color(p.LowerCardText)).Background(panelBg).Bold(true),
		PanelArrow:  tcell.StyleDefault.Foreground(Color(p.PrimaryDark)).Background(panelBg).Bold(true),

		ListItem:     tcell.StyleDefault.Foreground(tcell.ColorWhite),
		ListSelected: tcell.StyleDefault.Foreground(Color(p.LowerCardText)).Background(Color(p.Accent)),

		MarkerRune:         th.Marker,
		SelectedMarkerRune: th.SelectedMarker,
	}
}
