package strip

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/b/tabdeck/pkg/labels"
	"github.com/b/tabdeck/pkg/perf"
	"github.com/b/tabdeck/pkg/theme"
)

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

const (
	dirtyGlyph    = "●"
	pinGlyph      = "▪"
	closeGlyph    = "×"
	overflowLeft  = "‹"
	overflowRight = "›"
)

// Render produces the strip rows for the current state. Callers that
// changed the width since the last Layout get a fresh layout pass first.
func (c *Controller) Render(width int) []string {
	defer perf.Start("strip.render").Stop()
	if width != c.dims.Width {
		c.Layout(Dimensions{Width: width, Height: c.dims.Height}, LayoutOptions{})
	}
	if len(c.tabs) == 0 {
		return []string{c.emptyRow(width)}
	}
	if c.wrapped {
		return c.renderWrapped(width)
	}
	return []string{c.renderScrolled(width)}
}

func (c *Controller) renderScrolled(width int) string {
	tabsW := c.tabsViewportWidth()
	stickyWidth, available, stickyActive := stickyLayout(c.pane.StickyCount(), c.sizing(), tabsW)
	offset := c.viewport.ScrollOffset()

	var b strings.Builder

	// Sticky prefix pinned at the origin.
	if stickyActive {
		for _, tab := range c.tabs {
			if !tab.Sticky {
				break
			}
			b.WriteString(c.renderTabSpan(tab, 0, tab.Bounds.W))
		}
	}

	// Scrolled body: the window over adjusted content, with overflow
	// indicators overlaying the outermost cells.
	winLo := offset + stickyWidth
	winHi := winLo + available
	leftOverflow := offset > 0
	rightOverflow := winHi < c.contentWidth()

	if available > 0 {
		clipLo, clipHi := winLo, winHi
		if leftOverflow {
			clipLo++
		}
		if rightOverflow {
			clipHi--
		}

		if leftOverflow {
			b.WriteString(c.overflowStyle().Render(overflowLeft))
		}
		cells := 0
		for _, tab := range c.tabs {
			if stickyActive && tab.Sticky {
				continue
			}
			lo, hi := tab.Bounds.X, tab.Bounds.X+tab.Bounds.W
			if hi <= clipLo || lo >= clipHi {
				continue
			}
			from, to := clipLo, clipHi
			if lo > from {
				from = lo
			}
			if hi < to {
				to = hi
			}
			b.WriteString(c.renderTabSpan(tab, from-lo, to-lo))
			cells += to - from
		}
		pad := clipHi - clipLo - cells
		if pad > 0 {
			b.WriteString(c.stripStyle().Render(strings.Repeat(" ", pad)))
		}
		if rightOverflow {
			b.WriteString(c.overflowStyle().Render(overflowRight))
		}
	}

	b.WriteString(c.renderToolbar())
	return b.String()
}

func (c *Controller) renderWrapped(width int) []string {
	rowCount := c.tabs[len(c.tabs)-1].Bounds.Row + 1
	rows := make([]string, 0, rowCount)
	for r := 0; r < rowCount; r++ {
		var b strings.Builder
		x := 0
		for _, tab := range c.tabs {
			if tab.Bounds.Row != r {
				continue
			}
			b.WriteString(c.renderTabSpan(tab, 0, tab.Bounds.W))
			x = tab.Bounds.X + tab.Bounds.W
		}
		if r == rowCount-1 {
			// The toolbar rides the end of the last row; the trailing
			// margin guaranteed there is room for it.
			pad := width - x - toolbarWidth
			if pad > 0 {
				b.WriteString(c.stripStyle().Render(strings.Repeat(" ", pad)))
			}
			b.WriteString(c.renderToolbar())
		} else if pad := width - x; pad > 0 {
			b.WriteString(c.stripStyle().Render(strings.Repeat(" ", pad)))
		}
		rows = append(rows, b.String())
	}
	return rows
}

// renderTabSpan renders cells [from, to) of one tab. Partial spans happen
// where a tab crosses the scroll window edge.
func (c *Controller) renderTabSpan(tab *Tab, from, to int) string {
	fgKey, bgKey := theme.KeyTabInactiveFg, theme.KeyTabInactiveBg
	if tab.Active {
		fgKey, bgKey = theme.KeyTabActiveFg, theme.KeyTabActiveBg
	}
	if tab.Index == c.dropCaret {
		fgKey, bgKey = theme.KeyDropFg, theme.KeyDropBg
	}
	fg, _ := theme.ResolveColor(c.theme, fgKey)
	bg, _ := theme.ResolveColor(c.theme, bgKey)
	if fg == "" && bg != "" {
		// A theme that sets a background without its foreground still
		// needs readable text on it.
		fg = theme.DeriveTextColor(bg)
	}

	style := lipgloss.NewStyle()
	if fg != "" {
		style = style.Foreground(lipgloss.Color(fg))
	}
	if bg != "" {
		style = style.Background(lipgloss.Color(bg))
	}
	if tab.Active {
		style = style.Bold(true)
	}

	glyph, glyphKey := c.stateGlyph(tab)
	glyphStyle := style
	if glyphKey != "" {
		if col, ok := theme.ResolveColor(c.theme, glyphKey); ok && col != "" {
			if bg != "" {
				// Indicator colors are tuned against one background but
				// the same dot lands on both active and inactive tabs.
				col = theme.EnsureContrast(col, bg, 3.0)
			}
			glyphStyle = glyphStyle.Foreground(lipgloss.Color(col))
		}
	}

	textWidth := tab.Bounds.W - 4
	if textWidth < 1 {
		textWidth = 1
	}
	body := runewidth.FillRight(runewidth.Truncate(labelText(tab.Label), textWidth, labels.Ellipsis), textWidth)

	spans := []struct {
		text  string
		style lipgloss.Style
		w     int
	}{
		{" " + body + " ", style, textWidth + 2},
		{glyph, glyphStyle, runewidth.StringWidth(glyph)},
		{" ", style, 1},
	}

	var b strings.Builder
	x := 0
	for _, sp := range spans {
		lo, hi := from-x, to-x
		if lo < 0 {
			lo = 0
		}
		if hi > sp.w {
			hi = sp.w
		}
		if hi > lo {
			if lo == 0 && hi == sp.w {
				b.WriteString(sp.style.Render(sp.text))
			} else {
				b.WriteString(sp.style.Render(clipCells(sp.text, lo, hi)))
			}
		}
		x += sp.w
	}

	seg := b.String()
	if c.zones != nil && from == 0 {
		seg = c.zones.Mark(tab.ZoneID, seg)
	}
	return seg
}

// stateGlyph picks the single-cell indicator sharing the close button
// slot, and its color key: saving beats dirty beats pinned beats close.
func (c *Controller) stateGlyph(tab *Tab) (string, string) {
	switch {
	case tab.Saving:
		return spinnerFrames[c.spinner%len(spinnerFrames)], theme.KeySavingFg
	case tab.Dirty:
		return dirtyGlyph, theme.KeyDirtyFg
	case tab.Sticky:
		return pinGlyph, theme.KeyPinFg
	case c.cfg.Tabs.CloseButton:
		return closeGlyph, ""
	default:
		return " ", ""
	}
}

// renderToolbar is the trailing " [+]" new-tab button.
func (c *Controller) renderToolbar() string {
	fg, _ := theme.ResolveColor(c.theme, theme.KeyOverflowFg)
	st := c.stripStyle()
	if fg != "" {
		st = st.Foreground(lipgloss.Color(fg))
	}
	seg := st.Render(" [+]")
	if c.zones != nil {
		seg = c.zones.Mark(c.newZoneID, seg)
	}
	return seg
}

func (c *Controller) emptyRow(width int) string {
	pad := width - toolbarWidth
	if pad < 0 {
		pad = 0
	}
	return c.stripStyle().Render(strings.Repeat(" ", pad)) + c.renderToolbar()
}

func (c *Controller) stripStyle() lipgloss.Style {
	st := lipgloss.NewStyle()
	if bg, _ := theme.ResolveColor(c.theme, theme.KeyStripBg); bg != "" {
		st = st.Background(lipgloss.Color(bg))
	}
	return st
}

func (c *Controller) overflowStyle() lipgloss.Style {
	st := c.stripStyle()
	if fg, _ := theme.ResolveColor(c.theme, theme.KeyOverflowFg); fg != "" {
		st = st.Foreground(lipgloss.Color(fg))
	}
	return st
}

func labelText(l labels.Label) string {
	if l.Description != "" {
		return l.Name + " " + l.Description
	}
	return l.Name
}

func labelCellWidth(l labels.Label) int {
	return runewidth.StringWidth(labelText(l))
}

// clipCells returns the cells [from, to) of a plain string. A wide rune
// straddling either edge degrades to spaces so geometry holds.
func clipCells(s string, from, to int) string {
	if to <= from {
		return ""
	}
	var b strings.Builder
	x := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		next := x + w
		if next <= from {
			x = next
			continue
		}
		if x >= to {
			break
		}
		if x >= from && next <= to {
			b.WriteRune(r)
		} else {
			lo, hi := x, next
			if lo < from {
				lo = from
			}
			if hi > to {
				hi = to
			}
			b.WriteString(strings.Repeat(" ", hi-lo))
		}
		x = next
	}
	return b.String()
}
