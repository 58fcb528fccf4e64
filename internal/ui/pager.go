package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storeloc/internal/locator"
	"storeloc/internal/poi"
	"storeloc/internal/render"
)

// Attributes listed under the store name, in display order
var detailAttributes = []string{poi.AttrHours, poi.AttrDescription, poi.AttrPhone}

// NeighborFunc answers which store comes before or after f
type NeighborFunc func(f *poi.Feature, dir locator.Direction) *poi.Feature

// PagerView is the detail panel for the selected store. It pages through
// stores in source order with the arrow keys or by clicking the arrows.
type PagerView struct {
	sel      locator.Selection
	visible  bool
	neighbor NeighborFunc
	styles   render.Styles
	title    cases.Caser

	x, y          int
	width, height int
}

var _ locator.Pager = (*PagerView)(nil)

// NewPagerView creates a hidden pager
func NewPagerView(x, y, width, height int, styles render.Styles) *PagerView {
	return &PagerView{
		styles: styles,
		title:  cases.Title(language.English),
		x:      x,
		y:      y,
		width:  width,
		height: height,
	}
}

// ShowDetail shows the panel for sel
func (p *PagerView) ShowDetail(sel locator.Selection) {
	p.sel = sel
	p.visible = sel.Active()
}

// Hide hides the panel
func (p *PagerView) Hide() {
	p.sel = locator.Selection{}
	p.visible = false
}

// Visible reports whether the panel is shown
func (p *PagerView) Visible() bool {
	return p.visible
}

// Selection returns the selection on display
func (p *PagerView) Selection() locator.Selection {
	return p.sel
}

// SetNeighborFunc sets the lookup used to label the paging arrows
func (p *PagerView) SetNeighborFunc(fn NeighborFunc) {
	p.neighbor = fn
}

// SetStyles switches to a new theme
func (p *PagerView) SetStyles(styles render.Styles) {
	p.styles = styles
}

// Contains reports whether screen cell (x, y) is inside the visible panel
func (p *PagerView) Contains(x, y int) bool {
	return p.visible &&
		x >= p.x && x < p.x+p.width &&
		y >= p.y && y < p.y+p.height
}

// HitArrow reports which paging arrow, if any, is at screen cell (x, y).
// The three columns at each side of the panel count as the arrow.
func (p *PagerView) HitArrow(x, y int) (locator.Direction, bool) {
	if !p.Contains(x, y) {
		return locator.Forward, false
	}
	switch {
	case x < p.x+3:
		return locator.Backward, true
	case x >= p.x+p.width-3:
		return locator.Forward, true
	}
	return locator.Forward, false
}

// Lines returns the panel text below the title
func (p *PagerView) Lines() []string {
	f := p.sel.Feature
	if f == nil {
		return nil
	}

	lines := make([]string, 0, len(detailAttributes)+2)
	for _, key := range detailAttributes {
		lines = append(lines, fmt.Sprintf("%-12s %s", p.title.String(key)+":", f.Attr(key)))
	}

	if len(p.sel.Route) >= 2 {
		lines = append(lines, fmt.Sprintf("%-12s %.1f km", "Route:", p.sel.Route.Length()/1000))
	} else {
		lines = append(lines, fmt.Sprintf("%-12s %s", "Route:", "calculating route…"))
	}
	lines = append(lines, fmt.Sprintf("%-12s %s", "Position:", f.PositionString()))

	return lines
}

// Footer returns the page indicator, e.g. "‹ Dupont   2/3   Capitol ›"
func (p *PagerView) Footer() string {
	page := fmt.Sprintf("%d/%d", p.sel.Index+1, p.sel.Total)
	if p.neighbor == nil || p.sel.Feature == nil {
		return "‹ " + page + " ›"
	}

	prev := p.neighbor(p.sel.Feature, locator.Backward)
	next := p.neighbor(p.sel.Feature, locator.Forward)
	return fmt.Sprintf("‹ %s   %s   %s ›", prev.DisplayName(), page, next.DisplayName())
}

// Draw renders the panel to the screen
func (p *PagerView) Draw(screen tcell.Screen) {
	if !p.visible || p.width < 4 || p.height < 3 {
		return
	}

	canvas := render.NewCanvas(p.width, p.height)
	canvas.FillRect(0, 0, p.width, p.height, ' ', p.styles.PanelText)
	canvas.DrawBox(0, 0, p.width, p.height, p.styles.PanelBorder)

	inner := p.width - 8
	canvas.DrawTextCentered(4, 1, inner, p.sel.Feature.DisplayName(), p.styles.PanelTitle)

	for i, line := range p.Lines() {
		row := i + 2
		if row >= p.height-2 {
			break
		}
		canvas.DrawTextClipped(4, row, inner, line, p.styles.PanelText)
	}

	mid := p.height / 2
	canvas.Set(1, mid, '‹', p.styles.PanelArrow)
	canvas.Set(p.width-2, mid, '›', p.styles.PanelArrow)
	canvas.DrawTextCentered(1, p.height-2, p.width-2, p.Footer(), p.styles.PanelText)

	canvas.Blit(screen, p.x, p.y)
}

// UpdateDimensions updates the view dimensions
func (p *PagerView) UpdateDimensions(x, y, width, height int) {
	p.x = x
	p.y = y
	p.width = width
	p.height = height
}
