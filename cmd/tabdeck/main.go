// tabdeck is the interactive workspace: a file sidebar next to a deck of
// panes, each pane topped by a tab strip over a document view. Tabs hold
// file previews or live shell sessions and move between panes by drag.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"

	"github.com/b/tabdeck/pkg/config"
	"github.com/b/tabdeck/pkg/dnd"
	"github.com/b/tabdeck/pkg/labels"
	"github.com/b/tabdeck/pkg/paths"
	"github.com/b/tabdeck/pkg/session"
	"github.com/b/tabdeck/pkg/strip"
	"github.com/b/tabdeck/pkg/theme"
	"github.com/b/tabdeck/pkg/workspace"
)

const (
	doubleClickWindow = 400 * time.Millisecond
	maxSidebarEntries = 64
	savePulse         = 400 * time.Millisecond
)

// deckPane pairs a workspace pane with its strip controller and remembers
// the screen block it rendered into, which mouse handling maps against.
type deckPane struct {
	pane  *workspace.Pane
	strip *strip.Controller

	top       int // first screen line of the pane block
	height    int // total block height including strip rows
	stripRows int // strip rows in the last frame
}

type model struct {
	cfg   *config.Config
	th    theme.Theme
	ws    *workspace.Workspace
	reg   *dnd.Registry
	zones *zone.Manager
	root  string

	panes    []*deckPane
	shells   map[workspace.ItemID]*session.Session
	previews map[string]*filePreview

	files      []string
	sidebarVis []string // entries on screen in the last frame
	cursor     int

	width  int
	height int

	// Press state for the drag gesture. pressKind is "tab" or "sidebar";
	// empty means no button is down.
	pressKind  string
	pressPane  *deckPane
	pressIndex int
	pressPath  string
	dragging   bool

	lastClickAt   time.Time
	lastClickPane *deckPane
	lastClickIdx  int

	// Rename prompt state.
	renaming    bool
	renameInput textinput.Model
	renameItem  *workspace.Item

	// Close confirmation, shown when the close policy vetoed.
	confirmItem *workspace.Item
	confirmPane *deckPane
}

type tickMsg time.Time

type refreshMsg struct{}

type reloadConfigMsg struct{}

// fileChangedMsg reports a disk write under root; savedMsg ends the
// saving pulse it started.
type fileChangedMsg struct{ path string }

type savedMsg struct{ path string }

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) Init() tea.Cmd {
	return tickCmd()
}

// runningShellPolicy vetoes closing a terminal tab whose shell is still
// alive; the host turns the veto into a confirmation prompt.
type runningShellPolicy struct {
	shells map[workspace.ItemID]*session.Session
}

func (p runningShellPolicy) CanClose(it *workspace.Item) bool {
	if it.Kind != workspace.KindTerminal {
		return true
	}
	s, ok := p.shells[it.ID]
	return !ok || !s.Running()
}

func newModel(cfg *config.Config, root string) *model {
	m := &model{
		cfg:      cfg,
		th:       theme.GetTheme(cfg.Theme),
		ws:       workspace.New(),
		reg:      dnd.NewRegistry(),
		zones:    zone.New(),
		root:     root,
		shells:   make(map[workspace.ItemID]*session.Session),
		previews: make(map[string]*filePreview),
	}
	m.ws.TrustGate = m.trustGate
	m.ws.Subscribe(m.onWorkspaceEvent)
	m.files = m.listFiles()

	pv := m.addPane()
	pv.pane.OpenItem(workspace.NewTerminalItem("shell", root), workspace.OpenOptions{Index: -1, Active: true})
	return m
}

func (m *model) addPane() *deckPane {
	p := m.ws.NewPane()
	pv := &deckPane{
		pane: p,
		strip: strip.New(strip.Options{
			Workspace:   m.ws,
			Pane:        p,
			Config:      m.cfg,
			Theme:       m.th,
			Registry:    m.reg,
			TreeSource:  m,
			Dropper:     pathDropper{ws: m.ws, root: m.root},
			ClosePolicy: runningShellPolicy{shells: m.shells},
			Zones:       m.zones,
		}),
	}
	m.panes = append(m.panes, pv)
	return pv
}

// syncPanes realigns the strip controllers with the workspace's pane set
// after merges removed panes underneath us.
func (m *model) syncPanes() {
	live := m.ws.Panes()
	kept := m.panes[:0]
	for _, pv := range m.panes {
		found := false
		for _, p := range live {
			if p == pv.pane {
				found = true
				break
			}
		}
		if found {
			kept = append(kept, pv)
		} else {
			pv.strip.Close()
		}
	}
	m.panes = kept
}

func (m *model) focusedView() *deckPane {
	focused := m.ws.FocusedPane()
	for _, pv := range m.panes {
		if pv.pane == focused {
			return pv
		}
	}
	if len(m.panes) > 0 {
		return m.panes[0]
	}
	return nil
}

func (m *model) paneViewOf(p *workspace.Pane) *deckPane {
	for _, pv := range m.panes {
		if pv.pane == p {
			return pv
		}
	}
	return nil
}

// trustGate bounds batch opens to the workspace root. Anything resolving
// outside it, including traversal via .., denies the whole batch.
func (m *model) trustGate(reqs []workspace.OpenRequest) bool {
	for _, req := range reqs {
		rel, err := filepath.Rel(m.root, req.Path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			return false
		}
	}
	return true
}

// ResolveTreeItem maps a sidebar entry id (an absolute path under root) to
// an open request. Implements dnd.TreeItemSource.
func (m *model) ResolveTreeItem(ctx context.Context, id string) ([]workspace.OpenRequest, bool) {
	info, err := os.Stat(id)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return []workspace.OpenRequest{{Path: id, Kind: workspace.KindFile, Index: -1, Active: true}}, true
}

// onWorkspaceEvent keeps shells aligned with terminal items. Events fire
// synchronously inside pane mutations, all on the program loop.
func (m *model) onWorkspaceEvent(ev workspace.Event) {
	switch ev.Type {
	case workspace.EventItemOpened:
		if ev.Item != nil && ev.Item.Kind == workspace.KindTerminal {
			m.startShell(ev.Item)
		}
	case workspace.EventItemClosed:
		if ev.Item != nil {
			if s, ok := m.shells[ev.Item.ID]; ok {
				s.Close()
				delete(m.shells, ev.Item.ID)
			}
		}
	}
}

func (m *model) startShell(it *workspace.Item) {
	if _, ok := m.shells[it.ID]; ok {
		return
	}
	cols, rows := m.shellSize()
	s, err := session.Start(session.Options{
		Shell:  m.cfg.Shell,
		Dir:    it.Dir(),
		Cols:   cols,
		Rows:   rows,
		OnExit: notifyProgram,
	})
	if err != nil {
		return
	}
	m.shells[it.ID] = s
}

func (m *model) shellSize() (int, int) {
	cols := m.deckWidth()
	if cols < 1 {
		cols = 80
	}
	rows := 24
	if n := len(m.panes); n > 0 && m.bodyHeight() > 0 {
		if r := m.bodyHeight()/n - 1; r > 0 {
			rows = r
		}
	}
	return cols, rows
}

func (m *model) resizeShells() {
	cols, rows := m.shellSize()
	for _, s := range m.shells {
		s.Resize(cols, rows)
	}
}

func (m *model) shutdown() {
	for id, s := range m.shells {
		s.Close()
		delete(m.shells, id)
	}
	m.zones.Close()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeShells()
		return m, nil

	case tickMsg:
		for _, pv := range m.panes {
			pv.strip.TickSpinner()
		}
		m.files = m.listFiles()
		if m.cursor >= len(m.files) {
			m.cursor = len(m.files) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, tickCmd()

	case refreshMsg:
		m.syncPanes()
		return m, nil

	case reloadConfigMsg:
		cfg, err := config.LoadConfig(config.DefaultConfigPath())
		if err == nil {
			m.applyConfig(cfg)
		}
		return m, nil

	case fileChangedMsg:
		if it, _ := m.itemForPath(msg.path); it != nil {
			m.ws.SetSaving(it, true)
			path := msg.path
			return m, tea.Tick(savePulse, func(time.Time) tea.Msg {
				return savedMsg{path: path}
			})
		}
		return m, nil

	case savedMsg:
		if it, _ := m.itemForPath(msg.path); it != nil {
			m.ws.SetSaving(it, false)
		}
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Paste {
		m.handlePaste(string(msg.Runes))
		return m, nil
	}

	if m.renaming {
		switch msg.String() {
		case "enter":
			name := strings.TrimSpace(m.renameInput.Value())
			if name != "" && m.renameItem != nil {
				m.ws.RenameItem(m.renameItem, name)
			}
			m.renaming = false
			m.renameItem = nil
			return m, nil
		case "esc", "escape":
			m.renaming = false
			m.renameItem = nil
			return m, nil
		default:
			var cmd tea.Cmd
			m.renameInput, cmd = m.renameInput.Update(msg)
			return m, cmd
		}
	}

	if m.confirmItem != nil {
		switch msg.String() {
		case "y", "Y":
			it, pv := m.confirmItem, m.confirmPane
			m.confirmItem = nil
			m.confirmPane = nil
			pv.pane.CloseItem(it)
		default:
			m.confirmItem = nil
			m.confirmPane = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.shutdown()
		return m, tea.Quit

	case "left", "right", "home", "end":
		if pv := m.focusedView(); pv != nil {
			pv.strip.HandleKey(msg.String())
		}

	case "tab":
		m.focusNextPane()

	case "j", "down":
		if m.cursor < len(m.files)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "enter":
		if m.cursor < len(m.files) {
			m.openSidebarPath(filepath.Join(m.root, m.files[m.cursor]))
		}

	case "n":
		if pv := m.focusedView(); pv != nil {
			m.openTerminalTab(pv)
		}

	case "w":
		if pv := m.focusedView(); pv != nil {
			if it := pv.pane.ActiveItem(); it != nil {
				m.attemptClose(pv, pv.pane.IndexOf(it))
			}
		}

	case "p":
		if pv := m.focusedView(); pv != nil {
			if it := pv.pane.ActiveItem(); it != nil {
				pv.strip.HandleDoubleClick(pv.pane.IndexOf(it))
			}
		}

	case "r":
		m.startRename()

	case "v":
		pv := m.addPane()
		m.ws.FocusPane(pv.pane)
		m.openTerminalTab(pv)
		m.resizeShells()

	case "z":
		m.mergeFocusedPane()

	case "b":
		m.cfg.Sidebar.Visible = !m.cfg.Sidebar.Visible

	case "t":
		m.cycleTheme()
	}
	return m, nil
}

func (m *model) focusNextPane() {
	if len(m.panes) < 2 {
		return
	}
	focused := m.ws.FocusedPane()
	for i, pv := range m.panes {
		if pv.pane == focused {
			m.ws.FocusPane(m.panes[(i+1)%len(m.panes)].pane)
			return
		}
	}
	m.ws.FocusPane(m.panes[0].pane)
}

// attemptClose closes the tab at index unless the close policy objects, in
// which case a confirmation prompt takes over the status line.
func (m *model) attemptClose(pv *deckPane, index int) {
	it, ok := pv.pane.GetItemAt(index)
	if !ok {
		return
	}
	if pv.strip.HandleMiddleClick(index) {
		return
	}
	m.confirmItem = it
	m.confirmPane = pv
}

func (m *model) openTerminalTab(pv *deckPane) {
	name := fmt.Sprintf("shell %d", len(m.shells)+1)
	it := workspace.NewTerminalItem(name, m.root)
	m.ws.FocusPane(pv.pane)
	pv.pane.OpenItem(it, workspace.OpenOptions{Index: -1, Active: true})
}

// openSidebarPath opens the file into the focused pane, reusing an
// existing tab for the same path instead of stacking duplicates.
func (m *model) openSidebarPath(path string) {
	pane := m.ws.FocusedPane()
	if pane == nil {
		return
	}
	for _, it := range pane.Items() {
		if it.Kind == workspace.KindFile && it.Title(labels.Long) == path {
			pane.ActivateItem(it)
			return
		}
	}
	pane.OpenItem(workspace.NewFileItem(path), workspace.OpenOptions{Index: -1, Active: true})
}

func (m *model) startRename() {
	pv := m.focusedView()
	if pv == nil {
		return
	}
	it := pv.pane.ActiveItem()
	if it == nil {
		return
	}
	ti := textinput.New()
	ti.Placeholder = "tab name"
	ti.CharLimit = 64
	ti.Width = 28
	ti.SetValue(it.Name())
	ti.Focus()
	m.renameInput = ti
	m.renameItem = it
	m.renaming = true
}

// mergeFocusedPane folds the focused pane into its neighbor and drops it.
// The workspace removes the emptied pane; syncPanes drops our controller.
func (m *model) mergeFocusedPane() {
	if len(m.panes) < 2 {
		return
	}
	src := m.focusedView()
	if src == nil {
		return
	}
	var dst *deckPane
	for _, pv := range m.panes {
		if pv != src {
			dst = pv
			break
		}
	}
	m.ws.MergePanes(src.pane, dst.pane, workspace.MergeOptions{Index: -1, Mode: workspace.MergeMove})
	m.syncPanes()
	m.ws.FocusPane(dst.pane)
	m.resizeShells()
}

func (m *model) cycleTheme() {
	names := theme.ListThemes()
	sort.Strings(names)
	next := names[0]
	for i, name := range names {
		if name == m.cfg.Theme {
			next = names[(i+1)%len(names)]
			break
		}
	}
	m.cfg.Theme = next
	m.th = theme.GetTheme(next)
	for _, pv := range m.panes {
		pv.strip.SetTheme(m.th)
	}
	paths.EnsureConfigDir()
	config.SaveConfig(config.DefaultConfigPath(), m.cfg)
}

func (m *model) applyConfig(cfg *config.Config) {
	*m.cfg = *cfg
	m.th = theme.GetTheme(cfg.Theme)
	for _, pv := range m.panes {
		pv.strip.SetTheme(m.th)
		pv.strip.SetConfig(m.cfg)
	}
}

// handlePaste treats pasted text as an external resource drop on the
// focused pane, the closest a terminal gets to a cross-process drag.
func (m *model) handlePaste(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	pv := m.focusedView()
	if pv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pv.strip.HandleDrop(ctx, dnd.DropEvent{
		ExternalTypes: []string{"text/plain"},
		ExternalData:  text,
	}, pv.pane.Count())
}

// itemForPath finds the open file tab backed by the given path.
func (m *model) itemForPath(path string) (*workspace.Item, *deckPane) {
	for _, pv := range m.panes {
		for _, it := range pv.pane.Items() {
			if it.Kind == workspace.KindFile && it.Title(labels.Long) == path {
				return it, pv
			}
		}
	}
	return nil, nil
}

func (m *model) listFiles() []string {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
		if len(names) >= maxSidebarEntries {
			break
		}
	}
	sort.Strings(names)
	return names
}

// pathDropper opens externally dropped path lists as file tabs. The batch
// still passes the trust gate.
type pathDropper struct {
	ws   *workspace.Workspace
	root string
}

func (d pathDropper) HandleDrop(ctx context.Context, data string, pane *workspace.Pane, index int, opts dnd.DropOptions) error {
	var reqs []workspace.OpenRequest
	for _, ln := range strings.Split(data, "\n") {
		p := strings.TrimSpace(ln)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(d.root, p)
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		reqs = append(reqs, workspace.OpenRequest{Path: p, Kind: workspace.KindFile, Index: index, Active: true})
		if index >= 0 {
			index++
		}
	}
	if len(reqs) == 0 {
		return fmt.Errorf("no openable paths in drop data")
	}
	return d.ws.OpenBatch(pane, reqs, workspace.OpenBatchOptions{ValidateTrust: true})
}

func watchConfig(p *tea.Program, configPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	_ = watcher.Add(configPath)
	go func() {
		for {
			select {
			case event := <-watcher.Events:
				if event.Op&fsnotify.Write == fsnotify.Write {
					p.Send(reloadConfigMsg{})
				}
			case <-watcher.Errors:
				return
			}
		}
	}()
}

// watchRoot reports disk writes under the workspace root so open tabs can
// pulse their saving indicator and refresh previews.
func watchRoot(p *tea.Program, root string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	_ = watcher.Add(root)
	go func() {
		for {
			select {
			case event := <-watcher.Events:
				if event.Op&fsnotify.Write == fsnotify.Write {
					p.Send(fileChangedMsg{path: event.Name})
				}
			case <-watcher.Errors:
				return
			}
		}
	}()
}

// Program reference for session callbacks arriving off the event loop.
var program *tea.Program

func notifyProgram() {
	if program != nil {
		program.Send(refreshMsg{})
	}
}

func main() {
	// Force ANSI256 color mode to avoid partial 24-bit escape code issues
	lipgloss.SetColorProfile(termenv.ANSI256)

	rootFlag := flag.String("root", ".", "workspace root directory")
	flag.Parse()

	root, err := filepath.Abs(*rootFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad root: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		cfg = config.Default()
	}
	m := newModel(cfg, root)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	program = p
	watchConfig(p, config.DefaultConfigPath())
	watchRoot(p, root)

	go func() {
		for range sigChan {
			p.Send(refreshMsg{})
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
