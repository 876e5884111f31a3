package main

import (
	"context"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/b/tabdeck/pkg/dnd"
	"github.com/b/tabdeck/pkg/strip"
)

func sidebarZoneID(name string) string { return "sidebar/" + name }

// paneAt maps a screen line to the deck pane block covering it, using the
// geometry recorded by the last frame.
func (m *model) paneAt(y int) *deckPane {
	for _, pv := range m.panes {
		if y >= pv.top && y < pv.top+pv.height {
			return pv
		}
	}
	return nil
}

// tabRunAt finds the tab under strip-local (sx, row) and the contiguous
// cell run it occupies on screen. Probing the controller keeps the hit
// math identical to the layout math across scroll, sticky and wrap.
func tabRunAt(pv *deckPane, sx, row, stripW int) (*strip.Tab, int, int, bool) {
	tab, ok := pv.strip.TabAtPoint(sx, row)
	if !ok {
		return nil, 0, 0, false
	}
	lo := sx
	for lo > 0 {
		t, ok := pv.strip.TabAtPoint(lo-1, row)
		if !ok || t != tab {
			break
		}
		lo--
	}
	hi := sx
	for hi < stripW-1 {
		t, ok := pv.strip.TabAtPoint(hi+1, row)
		if !ok || t != tab {
			break
		}
		hi++
	}
	return tab, lo, hi, true
}

// sidebarEntryAt consults only the entries rendered in the last frame;
// zones of scrolled-out entries keep stale coordinates in the manager.
func (m *model) sidebarEntryAt(msg tea.MouseMsg) (string, bool) {
	for _, name := range m.sidebarVis {
		if m.zones.Get(sidebarZoneID(name)).InBounds(msg) {
			return filepath.Join(m.root, name), true
		}
	}
	return "", false
}

func (m *model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.renaming {
		if msg.Action == tea.MouseActionPress {
			m.renaming = false
			m.renameItem = nil
		}
		return m, nil
	}
	if m.confirmItem != nil {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if msg.Action == tea.MouseActionPress {
			m.handleWheel(msg)
		}
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		m.handlePress(msg)
	case tea.MouseActionMotion:
		m.handleMotion(msg)
	case tea.MouseActionRelease:
		m.handleRelease(msg)
	}
	return m, nil
}

func (m *model) modifierHeld(msg tea.MouseMsg) bool {
	switch m.cfg.Wheel.Modifier {
	case "ctrl":
		return msg.Ctrl
	case "alt":
		return msg.Alt
	}
	return false
}

func (m *model) handleWheel(msg tea.MouseMsg) {
	sbw := m.sidebarWidth()
	if sbw > 0 && msg.X < sbw {
		if msg.Button == tea.MouseButtonWheelDown && m.cursor < len(m.files)-1 {
			m.cursor++
		}
		if msg.Button == tea.MouseButtonWheelUp && m.cursor > 0 {
			m.cursor--
		}
		return
	}

	pv := m.paneAt(msg.Y)
	if pv == nil || msg.Y-pv.top >= pv.stripRows {
		return
	}
	delta := 3.0
	if msg.Button == tea.MouseButtonWheelUp {
		delta = -3.0
	}
	pv.strip.HandleWheel(strip.WheelEvent{DeltaY: delta, Modifier: m.modifierHeld(msg)})
}

func (m *model) handlePress(msg tea.MouseMsg) {
	for _, pv := range m.panes {
		if m.zones.Get(pv.strip.NewTabZoneID()).InBounds(msg) {
			if msg.Button == tea.MouseButtonLeft {
				m.openTerminalTab(pv)
			}
			return
		}
	}

	sbw := m.sidebarWidth()
	if sbw > 0 && msg.X < sbw {
		m.pressOnSidebar(msg)
		return
	}

	pv := m.paneAt(msg.Y)
	if pv == nil {
		return
	}
	row := msg.Y - pv.top
	if row >= pv.stripRows {
		if msg.Button == tea.MouseButtonLeft {
			m.ws.FocusPane(pv.pane)
		}
		return
	}

	sx := msg.X - sbw
	tab, lo, hi, ok := tabRunAt(pv, sx, row, m.deckWidth())

	switch msg.Button {
	case tea.MouseButtonMiddle:
		if ok {
			m.attemptClose(pv, tab.Index)
		}

	case tea.MouseButtonLeft:
		if !ok {
			m.ws.FocusPane(pv.pane)
			return
		}
		// The close glyph is live only on fully visible, unpinned tabs;
		// a clipped tab activates first like any partially hidden tab.
		if m.cfg.Tabs.CloseButton && !tab.Sticky && hi-lo+1 == tab.Bounds.W && sx == lo+tab.Bounds.W-2 {
			m.attemptClose(pv, tab.Index)
			return
		}

		now := time.Now()
		if m.lastClickPane == pv && m.lastClickIdx == tab.Index && now.Sub(m.lastClickAt) < doubleClickWindow {
			pv.strip.HandleDoubleClick(tab.Index)
			m.lastClickPane = nil
			return
		}
		m.lastClickAt = now
		m.lastClickPane = pv
		m.lastClickIdx = tab.Index

		pv.strip.HandleClick(tab.Index)
		m.pressKind = "tab"
		m.pressPane = pv
		m.pressIndex = tab.Index
		m.dragging = false
	}
}

func (m *model) pressOnSidebar(msg tea.MouseMsg) {
	if msg.Button != tea.MouseButtonLeft {
		return
	}
	for _, name := range m.sidebarVis {
		if m.zones.Get(sidebarZoneID(name)).InBounds(msg) {
			for i, f := range m.files {
				if f == name {
					m.cursor = i
					break
				}
			}
			// Entries open on release so a drag can start from them
			// instead. Tabs activate on press, like every tab bar.
			m.pressKind = "sidebar"
			m.pressPath = filepath.Join(m.root, name)
			m.dragging = false
			return
		}
	}
}

func (m *model) handleMotion(msg tea.MouseMsg) {
	if m.pressKind == "" {
		return
	}
	if !m.dragging {
		switch m.pressKind {
		case "tab":
			it, ok := m.pressPane.pane.GetItemAt(m.pressIndex)
			if !ok {
				m.clearPress()
				return
			}
			m.reg.SetItem(dnd.ItemPayload{Item: it, SourcePane: m.pressPane.pane.ID})
		case "sidebar":
			m.reg.SetTree(dnd.TreePayload{IDs: []string{m.pressPath}})
		default:
			return
		}
		m.dragging = true
	}

	target, idx := m.dropTargetAt(msg)
	for _, pv := range m.panes {
		if pv == target {
			pv.strip.SetDropCaret(idx)
		} else {
			pv.strip.SetDropCaret(-1)
		}
	}
}

// dropTargetAt maps the pointer to an insertion point: a tab's own index,
// or the end of the pane for the empty strip area and the document view.
func (m *model) dropTargetAt(msg tea.MouseMsg) (*deckPane, int) {
	sbw := m.sidebarWidth()
	if msg.X < sbw {
		return nil, -1
	}
	pv := m.paneAt(msg.Y)
	if pv == nil {
		return nil, -1
	}
	row := msg.Y - pv.top
	if row >= pv.stripRows {
		return pv, pv.pane.Count()
	}
	if tab, _, _, ok := tabRunAt(pv, msg.X-sbw, row, m.deckWidth()); ok {
		return pv, tab.Index
	}
	return pv, pv.pane.Count()
}

func (m *model) handleRelease(msg tea.MouseMsg) {
	defer func() {
		m.clearPress()
		m.reg.EndGesture()
	}()

	if !m.dragging {
		if m.pressKind == "sidebar" {
			if path, ok := m.sidebarEntryAt(msg); ok && path == m.pressPath {
				m.openSidebarPath(path)
			}
		}
		return
	}

	target, idx := m.dropTargetAt(msg)
	for _, pv := range m.panes {
		if pv != target {
			pv.strip.SetDropCaret(-1)
		}
	}
	if target == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	target.strip.HandleDrop(ctx, dnd.DropEvent{
		CopyModifier: dnd.CopyModifierHeld(msg.Ctrl, msg.Alt),
	}, idx)
}

func (m *model) clearPress() {
	m.pressKind = ""
	m.pressPane = nil
	m.pressIndex = 0
	m.pressPath = ""
	m.dragging = false
}
