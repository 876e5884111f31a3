package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/b/tabdeck/pkg/labels"
	"github.com/b/tabdeck/pkg/strip"
	"github.com/b/tabdeck/pkg/workspace"
)

const maxPreviewBytes = 256 * 1024

// filePreview caches the head of a file between frames.
type filePreview struct {
	mtime time.Time
	lines []string
}

// sidebarWidth is zero when the sidebar is hidden or the window is too
// narrow to leave the deck a useful share.
func (m *model) sidebarWidth() int {
	if !m.cfg.Sidebar.Visible || m.width < m.cfg.Sidebar.Width+40 {
		return 0
	}
	return m.cfg.Sidebar.Width
}

func (m *model) deckWidth() int { return m.width - m.sidebarWidth() }

// bodyHeight leaves one line for the status bar.
func (m *model) bodyHeight() int { return m.height - 1 }

func (m *model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	sbw := m.sidebarWidth()
	bodyH := m.bodyHeight()
	deck := m.renderDeck(m.deckWidth(), bodyH)

	lines := make([]string, 0, m.height)
	if sbw > 0 {
		side := m.renderSidebar(sbw, bodyH)
		for i := range deck {
			lines = append(lines, side[i]+deck[i])
		}
	} else {
		m.sidebarVis = m.sidebarVis[:0]
		lines = append(lines, deck...)
	}
	lines = append(lines, m.renderStatusBar())

	// Scan records this frame's zone coordinates and strips the markers.
	return m.zones.Scan(strings.Join(lines, "\n"))
}

// renderDeck stacks the panes as vertical blocks, each a tab strip over a
// document view, and records where each block landed so mouse handling
// can map screen points back to panes.
func (m *model) renderDeck(deckW, bodyH int) []string {
	for _, pv := range m.panes {
		pv.top, pv.height, pv.stripRows = 0, 0, 0
	}

	blank := lipgloss.NewStyle().Background(lipgloss.Color(m.th.ViewBg))
	lines := make([]string, 0, bodyH)

	paneH := 0
	if len(m.panes) > 0 {
		paneH = bodyH / len(m.panes)
		if paneH < 2 {
			paneH = 2
		}
	}
	for pi, pv := range m.panes {
		rest := bodyH - len(lines)
		if rest < 1 {
			break
		}
		h := paneH
		if pi == len(m.panes)-1 || h > rest {
			h = rest // last pane absorbs the remainder
		}

		pv.top = len(lines)
		pv.height = h
		pv.strip.Layout(strip.Dimensions{Width: deckW, Height: h - 1}, strip.LayoutOptions{})
		rows := pv.strip.Render(deckW)
		maxRows := h - 1
		if maxRows < 1 {
			maxRows = 1
		}
		if len(rows) > maxRows {
			rows = rows[:maxRows]
		}
		pv.stripRows = len(rows)
		lines = append(lines, rows...)
		lines = append(lines, m.renderView(pv, deckW, h-len(rows))...)
	}

	for len(lines) < bodyH {
		lines = append(lines, blank.Render(strings.Repeat(" ", deckW)))
	}
	return lines[:bodyH]
}

// renderView paints the pane body under the strip: shell tail for
// terminal items, file head for file items.
func (m *model) renderView(pv *deckPane, w, h int) []string {
	if h <= 0 {
		return nil
	}
	style := lipgloss.NewStyle().
		Background(lipgloss.Color(m.th.ViewBg)).
		Foreground(lipgloss.Color(m.th.ViewFg))

	var body []string
	it := pv.pane.ActiveItem()
	switch {
	case it == nil:
		body = []string{"", "  no open tabs"}
	case it.Kind == workspace.KindTerminal:
		if s, ok := m.shells[it.ID]; ok {
			body = s.Tail(h)
		} else {
			body = []string{"", "  shell exited"}
		}
	default:
		body = m.previewLines(it.Title(labels.Long), h)
	}

	lines := make([]string, 0, h)
	for i := 0; i < h; i++ {
		var raw string
		if i < len(body) {
			raw = body[i]
		}
		raw = runewidth.Truncate(raw, w, "…")
		lines = append(lines, style.Render(runewidth.FillRight(raw, w)))
	}
	return lines
}

// previewLines returns the head of a file, cached by mtime.
func (m *model) previewLines(path string, n int) []string {
	info, err := os.Stat(path)
	if err != nil {
		return []string{"", "  " + err.Error()}
	}
	if p, ok := m.previews[path]; ok && p.mtime.Equal(info.ModTime()) && len(p.lines) >= n {
		return p.lines[:n]
	}

	f, err := os.Open(path)
	if err != nil {
		return []string{"", "  " + err.Error()}
	}
	defer f.Close()

	buf := make([]byte, maxPreviewBytes)
	read, _ := f.Read(buf)
	raw := strings.Split(string(buf[:read]), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, " "+strings.ReplaceAll(strings.TrimRight(l, "\r"), "\t", "    "))
	}
	m.previews[path] = &filePreview{mtime: info.ModTime(), lines: lines}
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// renderSidebar paints the workspace file listing. Every row is exactly
// sbw cells so the deck column lines up, and each visible entry is
// marked as a zone for hit testing. The window follows the cursor;
// sidebarVis records which entries are actually on screen this frame.
func (m *model) renderSidebar(sbw, h int) []string {
	base := lipgloss.NewStyle().
		Background(lipgloss.Color(m.th.SidebarBg)).
		Foreground(lipgloss.Color(m.th.SidebarFg))
	header := base.Bold(true)
	active := lipgloss.NewStyle().
		Background(lipgloss.Color(m.th.SidebarBg)).
		Foreground(lipgloss.Color(m.th.SidebarActiveFg))

	pad := func(st lipgloss.Style, s string) string {
		return st.Render(runewidth.FillRight(runewidth.Truncate(s, sbw, "…"), sbw))
	}

	openPaths := make(map[string]bool)
	for _, pv := range m.panes {
		for _, it := range pv.pane.Items() {
			if it.Kind == workspace.KindFile {
				openPaths[it.Title(labels.Long)] = true
			}
		}
	}

	visible := h - 1 // header row
	off := 0
	if visible > 0 && m.cursor >= visible {
		off = m.cursor - visible + 1
	}

	m.sidebarVis = m.sidebarVis[:0]
	lines := make([]string, 0, h)
	lines = append(lines, pad(header, " "+filepath.Base(m.root)))

	for i := off; i < len(m.files) && len(lines) < h; i++ {
		name := m.files[i]
		st := base
		prefix := "  "
		if openPaths[filepath.Join(m.root, name)] {
			st = active
		}
		if i == m.cursor {
			st = st.Bold(true)
			prefix = "▸ "
		}
		m.sidebarVis = append(m.sidebarVis, name)
		lines = append(lines, m.zones.Mark(sidebarZoneID(name), pad(st, prefix+name)))
	}
	for len(lines) < h {
		lines = append(lines, pad(base, ""))
	}
	return lines[:h]
}

// renderStatusBar paints the bottom line: the active prompt when one is
// open, key hints otherwise.
func (m *model) renderStatusBar() string {
	if m.renaming {
		prompt := lipgloss.NewStyle().
			Background(lipgloss.Color(m.th.PromptBg)).
			Foreground(lipgloss.Color(m.th.PromptFg))
		// The input paints its own cursor, so the row stays unpadded
		// past it.
		return prompt.Render(" rename: ") + m.renameInput.View()
	}
	if m.confirmItem != nil {
		prompt := lipgloss.NewStyle().
			Background(lipgloss.Color(m.th.PromptBg)).
			Foreground(lipgloss.Color(m.th.PromptFg))
		text := fmt.Sprintf(" close %q? its shell is still running · y/n", m.confirmItem.Name())
		return prompt.Render(runewidth.FillRight(runewidth.Truncate(text, m.width, "…"), m.width))
	}

	st := lipgloss.NewStyle().
		Background(lipgloss.Color(m.th.StripBg)).
		Foreground(lipgloss.Color(m.th.OverflowFg))
	focused := 0
	fv := m.focusedView()
	for i, pv := range m.panes {
		if pv == fv {
			focused = i + 1
		}
	}
	text := fmt.Sprintf(" n:new  w:close  p:pin  r:rename  v:split  z:merge  b:bar  t:%s  q:quit · pane %d/%d",
		m.th.Name, focused, len(m.panes))
	return st.Render(runewidth.FillRight(runewidth.Truncate(text, m.width, "…"), m.width))
}
