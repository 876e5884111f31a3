package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/b/tabdeck/pkg/workspace"
)

func TestViewFrameShape(t *testing.T) {
	m, _ := newTestModel(t, "a.go")
	m.addPane()

	frame := m.View()
	lines := strings.Split(frame, "\n")
	if got := len(lines); got != m.height {
		t.Fatalf("frame has %d lines, want %d", got, m.height)
	}
	for i, line := range lines {
		if got := lipgloss.Width(line); got != m.width {
			t.Errorf("line %d is %d cells wide, want %d", i, got, m.width)
		}
	}
}

func TestViewEmptyBeforeFirstResize(t *testing.T) {
	m, _ := newTestModel(t, "a.go")
	m.width, m.height = 0, 0

	if got := m.View(); got != "" {
		t.Fatalf("expected an empty frame before the first size message, got %q", got)
	}
}

func TestViewShowsFilePreview(t *testing.T) {
	m, _ := newTestModel(t, "a.go")

	if frame := m.View(); !strings.Contains(frame, "a.go body") {
		t.Fatalf("expected the active file's head in the frame")
	}
}

func TestViewBodiesForEmptyAndExitedPanes(t *testing.T) {
	m, _ := newTestModel(t, "a.go")
	pv2 := m.addPane()

	if frame := m.View(); !strings.Contains(frame, "no open tabs") {
		t.Fatalf("expected a placeholder for the empty pane")
	}

	// A terminal item without a live session renders as exited.
	pv2.pane.OpenItem(workspace.NewTerminalItem("shell", m.root), workspace.OpenOptions{Index: -1, Active: true})
	if frame := m.View(); !strings.Contains(frame, "shell exited") {
		t.Fatalf("expected the dead shell placeholder")
	}
}

func TestRenderDeckPartitionsBody(t *testing.T) {
	m, pv1 := newTestModel(t, "a.go")
	pv2 := m.addPane()
	m.View()

	half := m.bodyHeight() / 2
	if pv1.top != 0 || pv1.height != half {
		t.Errorf("first block = (%d,%d), want (0,%d)", pv1.top, pv1.height, half)
	}
	if pv2.top != half || pv2.height != m.bodyHeight()-half {
		t.Errorf("second block = (%d,%d), want (%d,%d)", pv2.top, pv2.height, half, m.bodyHeight()-half)
	}
	if pv1.stripRows != 1 || pv2.stripRows != 1 {
		t.Errorf("strip rows = %d,%d, want single rows without wrap", pv1.stripRows, pv2.stripRows)
	}
}

func TestSidebarHiddenWhenNarrow(t *testing.T) {
	m, _ := newTestModel(t, "a.go")

	if got := m.sidebarWidth(); got != m.cfg.Sidebar.Width {
		t.Fatalf("sidebarWidth = %d at width 100, want %d", got, m.cfg.Sidebar.Width)
	}
	m.width = 50
	if got := m.sidebarWidth(); got != 0 {
		t.Errorf("sidebarWidth = %d at width 50, want the sidebar collapsed", got)
	}
	m.width = 100
	m.cfg.Sidebar.Visible = false
	if got := m.sidebarWidth(); got != 0 {
		t.Errorf("sidebarWidth = %d with the sidebar toggled off, want 0", got)
	}
}

func TestSidebarMarksCursorRow(t *testing.T) {
	m, _ := newTestModel(t, "a.go", "b.go")
	m.cursor = 1

	rows := m.renderSidebar(m.cfg.Sidebar.Width, m.bodyHeight())
	if len(rows) != m.bodyHeight() {
		t.Fatalf("sidebar has %d rows, want %d", len(rows), m.bodyHeight())
	}
	if !strings.Contains(rows[2], "▸ b.go") {
		t.Errorf("cursor row = %q, want the caret on b.go", rows[2])
	}
	if strings.Contains(rows[1], "▸") {
		t.Errorf("row without the cursor carries a caret: %q", rows[1])
	}
}

func TestSidebarWindowFollowsCursor(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("f%02d.go", i)
		if err := os.WriteFile(filepath.Join(m.root, name), []byte("x\n"), 0644); err != nil {
			t.Fatalf("write fixture file: %v", err)
		}
	}
	m.files = m.listFiles()
	m.cursor = 11

	rows := m.renderSidebar(m.cfg.Sidebar.Width, 10)
	if strings.Contains(strings.Join(rows, "\n"), "f00.go") {
		t.Errorf("expected the window to scroll past the first entries")
	}
	if !strings.Contains(rows[len(rows)-1], "f11.go") {
		t.Errorf("last row = %q, want the cursor entry visible", rows[len(rows)-1])
	}
	if len(m.sidebarVis) != 9 || m.sidebarVis[0] != "f03.go" {
		t.Errorf("visible window = %v, want 9 entries from f03.go", m.sidebarVis)
	}
}

func TestPreviewLinesExpandTabsAndCache(t *testing.T) {
	m, _ := newTestModel(t)
	path := filepath.Join(m.root, "notes.txt")
	if err := os.WriteFile(path, []byte("one\ttab\ntwo\n"), 0644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}

	lines := m.previewLines(path, 2)
	if len(lines) != 2 || lines[0] != " one    tab" || lines[1] != " two" {
		t.Fatalf("previewLines = %q, want tab expanded and a leading space", lines)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := os.WriteFile(path, []byte("changed\n"), 0644); err != nil {
		t.Fatalf("rewrite fixture file: %v", err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if lines := m.previewLines(path, 2); lines[0] != " one    tab" {
		t.Errorf("previewLines = %q with an unchanged mtime, want the cached head", lines)
	}

	later := info.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if lines := m.previewLines(path, 2); lines[0] != " changed" {
		t.Errorf("previewLines = %q after the mtime moved, want a fresh read", lines)
	}
}

func TestPreviewLinesReportsErrors(t *testing.T) {
	m, _ := newTestModel(t)

	lines := m.previewLines(filepath.Join(m.root, "missing.txt"), 5)
	if len(lines) != 2 || !strings.Contains(lines[1], "no such file") {
		t.Fatalf("previewLines = %q for a missing file, want the error surfaced", lines)
	}
}

func TestStatusBarShowsPrompts(t *testing.T) {
	m, pv := newTestModel(t, "a.go")
	m.ws.FocusPane(pv.pane)

	bar := m.renderStatusBar()
	if !strings.Contains(bar, "pane 1/1") || !strings.Contains(bar, m.th.Name) {
		t.Errorf("status bar = %q, want hints with the pane count and theme", bar)
	}

	it, _ := pv.pane.GetItemAt(0)
	m.confirmItem = it
	m.confirmPane = pv
	bar = m.renderStatusBar()
	if !strings.Contains(bar, "a.go") || !strings.Contains(bar, "y/n") {
		t.Errorf("confirm bar = %q, want the tab name and y/n", bar)
	}
	m.confirmItem = nil

	m.startRename()
	if bar = m.renderStatusBar(); !strings.Contains(bar, "rename:") {
		t.Errorf("rename bar = %q, want the prompt label", bar)
	}
}
