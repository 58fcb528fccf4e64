package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"storeloc/internal/render"
	"storeloc/internal/theme"
)

// ThemePickerView is a scrollable list of themes
type ThemePickerView struct {
	themes        []theme.Theme
	selectedIndex int
	scrollOffset  int
	maxVisible    int
	x, y          int
	width, height int
}

// NewThemePickerView creates a picker listing every registered theme
func NewThemePickerView(x, y, width, height int) *ThemePickerView {
	l := &ThemePickerView{
		themes: theme.All(),
	}
	l.UpdateDimensions(x, y, width, height)
	return l
}

// SelectNext moves selection down
func (l *ThemePickerView) SelectNext() {
	if l.selectedIndex < len(l.themes)-1 {
		l.selectedIndex++
		l.adjustScroll()
	}
}

// SelectPrev moves selection up
func (l *ThemePickerView) SelectPrev() {
	if l.selectedIndex > 0 {
		l.selectedIndex--
		l.adjustScroll()
	}
}

// SelectName moves the selection to the named theme
func (l *ThemePickerView) SelectName(name string) {
	for i, th := range l.themes {
		if th.Name == name {
			l.selectedIndex = i
			l.adjustScroll()
			return
		}
	}
}

// adjustScroll adjusts scroll offset to keep selected item visible
func (l *ThemePickerView) adjustScroll() {
	if l.selectedIndex >= l.scrollOffset+l.maxVisible {
		l.scrollOffset = l.selectedIndex - l.maxVisible + 1
	}

	if l.selectedIndex < l.scrollOffset {
		l.scrollOffset = l.selectedIndex
	}

	if l.scrollOffset < 0 {
		l.scrollOffset = 0
	}
}

// Selected returns the highlighted theme
func (l *ThemePickerView) Selected() theme.Theme {
	if l.selectedIndex >= 0 && l.selectedIndex < len(l.themes) {
		return l.themes[l.selectedIndex]
	}
	return theme.Default()
}

// ItemAt returns the index of the theme drawn on screen row y
func (l *ThemePickerView) ItemAt(x, y int) (int, bool) {
	if x <= l.x || x >= l.x+l.width-1 {
		return 0, false
	}
	i := l.scrollOffset + y - l.y - 1
	if y <= l.y || y >= l.y+l.height-1 || i >= len(l.themes) {
		return 0, false
	}
	return i, true
}

// Click highlights the theme on row y and reports whether one was hit
func (l *ThemePickerView) Click(x, y int) bool {
	i, ok := l.ItemAt(x, y)
	if ok {
		l.selectedIndex = i
		l.adjustScroll()
	}
	return ok
}

// Draw renders the picker to the screen
func (l *ThemePickerView) Draw(screen tcell.Screen, styles render.Styles) {
	if l.width < 4 || l.height < 3 {
		return
	}

	canvas := render.NewCanvas(l.width, l.height)
	canvas.DrawBox(0, 0, l.width, l.height, styles.Label)
	canvas.DrawTextCentered(1, 0, l.width-2, " Choose a theme ", styles.Label)

	visibleCount := min(l.maxVisible, len(l.themes)-l.scrollOffset)
	for i := 0; i < visibleCount; i++ {
		idx := l.scrollOffset + i
		th := l.themes[idx]

		style := styles.ListItem
		if idx == l.selectedIndex {
			style = styles.ListSelected
		}

		row := i + 1
		canvas.FillRect(1, row, l.width-2, 1, ' ', style)

		swatch := tcell.StyleDefault.Foreground(render.Color(th.Colors.Primary))
		canvas.Set(2, row, '█', swatch)
		canvas.Set(3, row, '█', swatch)

		text := fmt.Sprintf("%-8s %c %c  %s", th.Name, th.Marker, th.SelectedMarker, th.Icon)
		canvas.DrawTextClipped(5, row, l.width-7, text, style)
	}

	if len(l.themes) > l.maxVisible {
		canvas.Set(l.width-2, 0, '↕', styles.Label)
	}

	canvas.Blit(screen, l.x, l.y)
}

// UpdateDimensions updates the view dimensions
func (l *ThemePickerView) UpdateDimensions(x, y, width, height int) {
	l.x = x
	l.y = y
	l.width = width
	l.height = height
	l.maxVisible = height - 2
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
	l.adjustScroll()
}
