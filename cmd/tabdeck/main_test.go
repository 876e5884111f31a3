package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/b/tabdeck/pkg/config"
	"github.com/b/tabdeck/pkg/dnd"
	"github.com/b/tabdeck/pkg/paths"
	"github.com/b/tabdeck/pkg/session"
	"github.com/b/tabdeck/pkg/theme"
	"github.com/b/tabdeck/pkg/workspace"
)

// newTestModel builds the model by hand so no shell gets spawned and no
// program loop runs. Files are created under a temp root and opened as
// tabs in the first pane.
func newTestModel(t *testing.T, files ...string) (*model, *deckPane) {
	t.Helper()
	cfg := config.Default()
	m := &model{
		cfg:      cfg,
		th:       theme.GetTheme(cfg.Theme),
		ws:       workspace.New(),
		reg:      dnd.NewRegistry(),
		zones:    zone.New(),
		root:     t.TempDir(),
		shells:   make(map[workspace.ItemID]*session.Session),
		previews: make(map[string]*filePreview),
		width:    100,
		height:   31,
	}
	m.ws.TrustGate = m.trustGate
	t.Cleanup(m.shutdown)

	pv := m.addPane()
	for _, name := range files {
		full := filepath.Join(m.root, name)
		if err := os.WriteFile(full, []byte(name+" body\n"), 0644); err != nil {
			t.Fatalf("write fixture file: %v", err)
		}
		pv.pane.OpenItem(workspace.NewFileItem(full), workspace.OpenOptions{Index: -1, Active: true})
	}
	m.files = m.listFiles()
	return m, pv
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTrustGateBoundsRoot(t *testing.T) {
	m, _ := newTestModel(t)

	if !m.trustGate([]workspace.OpenRequest{{Path: filepath.Join(m.root, "a.go")}}) {
		t.Fatalf("expected path under root to pass the gate")
	}
	if m.trustGate([]workspace.OpenRequest{{Path: filepath.Join(m.root, "..", "escape.go")}}) {
		t.Fatalf("expected .. traversal to be denied")
	}
	if m.trustGate([]workspace.OpenRequest{
		{Path: filepath.Join(m.root, "ok.go")},
		{Path: "/etc/passwd"},
	}) {
		t.Fatalf("expected one bad path to deny the whole batch")
	}
}

func TestResolveTreeItemFilesOnly(t *testing.T) {
	m, _ := newTestModel(t, "a.go")

	reqs, ok := m.ResolveTreeItem(context.Background(), filepath.Join(m.root, "a.go"))
	if !ok || len(reqs) != 1 {
		t.Fatalf("ResolveTreeItem = %v, %v, want one request", reqs, ok)
	}
	if reqs[0].Kind != workspace.KindFile || reqs[0].Index != -1 || !reqs[0].Active {
		t.Errorf("request = %+v, want active appended file", reqs[0])
	}

	if _, ok := m.ResolveTreeItem(context.Background(), m.root); ok {
		t.Errorf("expected directory to be rejected")
	}
	if _, ok := m.ResolveTreeItem(context.Background(), filepath.Join(m.root, "missing.go")); ok {
		t.Errorf("expected missing path to be rejected")
	}
}

func TestOpenSidebarPathReusesExistingTab(t *testing.T) {
	m, pv := newTestModel(t, "a.go", "b.go")
	m.ws.FocusPane(pv.pane)

	path := filepath.Join(m.root, "a.go")
	m.openSidebarPath(path)
	if got := pv.pane.Count(); got != 2 {
		t.Fatalf("count = %d after reopening an open file, want 2", got)
	}
	if it := pv.pane.ActiveItem(); it == nil || it.Name() != "a.go" {
		t.Errorf("expected the existing a.go tab to be activated, got %v", it)
	}

	if err := os.WriteFile(filepath.Join(m.root, "c.go"), []byte("x\n"), 0644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}
	m.openSidebarPath(filepath.Join(m.root, "c.go"))
	if got := pv.pane.Count(); got != 3 {
		t.Errorf("count = %d after opening a new file, want 3", got)
	}
}

func TestAttemptCloseClosesWhenPolicyAllows(t *testing.T) {
	m, pv := newTestModel(t, "a.go", "b.go")

	m.attemptClose(pv, 0)
	if got := pv.pane.Count(); got != 1 {
		t.Fatalf("count = %d after closing a file tab, want 1", got)
	}
	if m.confirmItem != nil {
		t.Errorf("expected no confirmation for a closable tab")
	}
}

func TestConfirmFlowClosesOnYes(t *testing.T) {
	m, pv := newTestModel(t, "a.go", "b.go")
	it, _ := pv.pane.GetItemAt(0)
	m.confirmItem = it
	m.confirmPane = pv

	m.handleKey(keyMsg("y"))
	if got := pv.pane.Count(); got != 1 {
		t.Fatalf("count = %d after confirming, want 1", got)
	}
	if m.confirmItem != nil || m.confirmPane != nil {
		t.Errorf("expected the prompt to be dismissed")
	}
}

func TestConfirmFlowAnyOtherKeyCancels(t *testing.T) {
	m, pv := newTestModel(t, "a.go")
	it, _ := pv.pane.GetItemAt(0)
	m.confirmItem = it
	m.confirmPane = pv

	m.handleKey(keyMsg("x"))
	if got := pv.pane.Count(); got != 1 {
		t.Fatalf("count = %d after cancelling, want the tab kept", got)
	}
	if m.confirmItem != nil {
		t.Errorf("expected the prompt to be dismissed")
	}
}

func TestRenamePromptCommitsOnEnter(t *testing.T) {
	m, pv := newTestModel(t, "a.go")
	m.ws.FocusPane(pv.pane)

	m.startRename()
	if !m.renaming {
		t.Fatalf("expected rename mode after startRename")
	}
	m.renameInput.SetValue("notes")
	m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})

	it := pv.pane.ActiveItem()
	if it == nil || it.Name() != "notes" {
		t.Fatalf("name = %v, want notes", it)
	}
	if m.renaming {
		t.Errorf("expected rename mode to end on enter")
	}
}

func TestRenamePromptEscCancels(t *testing.T) {
	m, pv := newTestModel(t, "a.go")
	m.ws.FocusPane(pv.pane)

	m.startRename()
	m.renameInput.SetValue("discarded")
	m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})

	if it := pv.pane.ActiveItem(); it == nil || it.Name() != "a.go" {
		t.Fatalf("expected the original name to survive esc, got %v", it)
	}
}

func TestMergeFoldsFocusedPane(t *testing.T) {
	m, pv1 := newTestModel(t, "a.go")
	pv2 := m.addPane()
	if err := os.WriteFile(filepath.Join(m.root, "b.go"), []byte("x\n"), 0644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}
	pv2.pane.OpenItem(workspace.NewFileItem(filepath.Join(m.root, "b.go")), workspace.OpenOptions{Index: -1, Active: true})
	m.ws.FocusPane(pv2.pane)

	m.mergeFocusedPane()

	if got := len(m.panes); got != 1 {
		t.Fatalf("panes = %d after merge, want 1", got)
	}
	if m.panes[0] != pv1 {
		t.Fatalf("expected the source pane to fold into the first pane")
	}
	if got := pv1.pane.Count(); got != 2 {
		t.Errorf("count = %d after merge, want both tabs", got)
	}
	if m.ws.FocusedPane() != pv1.pane {
		t.Errorf("expected focus to land on the destination pane")
	}
}

func TestCycleThemeRotatesAndPersists(t *testing.T) {
	t.Setenv("TABDECK_CONFIG_DIR", t.TempDir())
	paths.ResetForTest()
	t.Cleanup(paths.ResetForTest)
	m, _ := newTestModel(t)
	before := m.cfg.Theme

	m.cycleTheme()

	if m.cfg.Theme == before {
		t.Fatalf("expected the theme to advance past %q", before)
	}
	if want := theme.GetTheme(m.cfg.Theme).Name; m.th.Name != want {
		t.Errorf("model theme = %q, want %q applied", m.th.Name, want)
	}
	if _, err := os.Stat(config.DefaultConfigPath()); err != nil {
		t.Errorf("expected the new theme to be written to disk: %v", err)
	}
}

func TestPathDropperOpensFiles(t *testing.T) {
	m, pv := newTestModel(t, "a.go")
	if err := os.WriteFile(filepath.Join(m.root, "b.go"), []byte("x\n"), 0644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}

	d := pathDropper{ws: m.ws, root: m.root}
	data := "b.go\n" + m.root + "\nmissing.go\n"
	if err := d.HandleDrop(context.Background(), data, pv.pane, 0, dnd.DropOptions{}); err != nil {
		t.Fatalf("HandleDrop: %v", err)
	}
	if got := pv.pane.Count(); got != 2 {
		t.Fatalf("count = %d after drop, want the directory and bad lines skipped", got)
	}
	it, _ := pv.pane.GetItemAt(0)
	if it == nil || it.Name() != "b.go" {
		t.Errorf("expected b.go inserted at index 0, got %v", it)
	}

	if err := d.HandleDrop(context.Background(), "nothing-here\n", pv.pane, -1, dnd.DropOptions{}); err == nil {
		t.Errorf("expected an error when no line is openable")
	}
}

func TestHandlePasteOpensOntoFocusedPane(t *testing.T) {
	m, pv := newTestModel(t, "a.go")
	m.ws.FocusPane(pv.pane)
	if err := os.WriteFile(filepath.Join(m.root, "pasted.go"), []byte("x\n"), 0644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}

	m.handlePaste(filepath.Join(m.root, "pasted.go") + "\n")

	if got := pv.pane.Count(); got != 2 {
		t.Fatalf("count = %d after paste, want the path opened as a tab", got)
	}
	if it := pv.pane.ActiveItem(); it == nil || it.Name() != "pasted.go" {
		t.Errorf("expected the pasted file to be active, got %v", it)
	}
}

func TestFileChangePulsesSavingIndicator(t *testing.T) {
	m, pv := newTestModel(t, "a.go")
	path := filepath.Join(m.root, "a.go")

	_, cmd := m.Update(fileChangedMsg{path: path})
	it, _ := pv.pane.GetItemAt(0)
	if it == nil || !it.Saving() {
		t.Fatalf("expected the open tab to show saving after a disk write")
	}
	if cmd == nil {
		t.Fatalf("expected a scheduled pulse end")
	}

	m.Update(savedMsg{path: path})
	if it.Saving() {
		t.Errorf("expected the pulse to end")
	}
}

func TestFileChangeIgnoresUnopenedPaths(t *testing.T) {
	m, _ := newTestModel(t, "a.go")

	_, cmd := m.Update(fileChangedMsg{path: filepath.Join(m.root, "other.go")})
	if cmd != nil {
		t.Errorf("expected no pulse for a file not open in any pane")
	}
}

func TestListFilesSkipsDirsAndDotfiles(t *testing.T) {
	m, _ := newTestModel(t, "b.go", "a.go")
	if err := os.Mkdir(filepath.Join(m.root, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(m.root, ".hidden"), []byte("x"), 0644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}

	got := m.listFiles()
	want := []string{"a.go", "b.go"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("listFiles = %v, want %v", got, want)
	}
}

func TestSyncPanesDropsRemovedPanes(t *testing.T) {
	m, pv1 := newTestModel(t, "a.go")
	pv2 := m.addPane()

	m.ws.RemovePane(pv2.pane)
	m.syncPanes()

	if len(m.panes) != 1 || m.panes[0] != pv1 {
		t.Fatalf("panes = %d, want only the surviving pane", len(m.panes))
	}
}

func TestFocusNextPaneCycles(t *testing.T) {
	m, pv1 := newTestModel(t, "a.go")
	pv2 := m.addPane()
	m.ws.FocusPane(pv1.pane)

	m.focusNextPane()
	if m.ws.FocusedPane() != pv2.pane {
		t.Fatalf("expected focus to advance to the second pane")
	}
	m.focusNextPane()
	if m.ws.FocusedPane() != pv1.pane {
		t.Errorf("expected focus to wrap back to the first pane")
	}
}
