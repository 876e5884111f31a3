package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/b/tabdeck/pkg/config"
	"github.com/b/tabdeck/pkg/daemon"
	"github.com/b/tabdeck/pkg/dnd"
	"github.com/b/tabdeck/pkg/labels"
	"github.com/b/tabdeck/pkg/paths"
	"github.com/b/tabdeck/pkg/session"
	"github.com/b/tabdeck/pkg/strip"
	"github.com/b/tabdeck/pkg/theme"
	"github.com/b/tabdeck/pkg/workspace"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

const (
	minRenderWidth  = 40
	minRenderHeight = 8

	doubleClickWindow = 400 * time.Millisecond

	maxSidebarEntries = 64
	maxPreviewBytes   = 256 * 1024
)

// paneView pairs a pane with its strip controller plus the frame
// bookkeeping needed to splice strip-only updates into client screens.
type paneView struct {
	pane  *workspace.Pane
	strip *strip.Controller

	// name is the generated pane nickname; empty until the namer fills it.
	name string

	// Geometry from the most recent full frame. Strip-only broadcasts
	// reuse it, so clients with other dimensions resync on the next full
	// render.
	stripLine int
	stripCol  int
	stripW    int
}

// filePreview caches one file's head so renders don't hit the disk on
// every frame.
type filePreview struct {
	mtime time.Time
	lines []string
}

// Coordinator owns the workspace state behind the daemon socket: panes,
// strip controllers, shell sessions and the sidebar listing. All
// mutations and renders run under stateMu; workspace events are delivered
// synchronously from mutations, so the event handler runs with the lock
// already held.
type Coordinator struct {
	stateMu sync.RWMutex

	sessionID string
	root      string

	cfg *config.Config
	th  theme.Theme

	ws    *workspace.Workspace
	reg   *dnd.Registry
	panes []*paneView

	shells map[workspace.ItemID]*session.Session
	namer  *namer

	previews map[string]*filePreview

	// Click and drag gesture state across input messages.
	lastClickAt     time.Time
	lastClickTarget string
	pressAction     string
	pressTarget     string
	dragging        bool

	// Redraw coalescing for the broadcast loop.
	changed       chan struct{}
	pendingFull   bool
	pendingStrips map[workspace.PaneID]bool
}

// NewCoordinator builds the daemon state for one session. The root
// directory feeds the sidebar listing and bounds the trust gate.
func NewCoordinator(sessionID, root string) *Coordinator {
	// Daemon renders degrade to the lowest client profile at broadcast
	// time; composing at ANSI256 keeps frames portable across terminals.
	lipgloss.SetColorProfile(termenv.ANSI256)

	cfg, err := config.LoadConfig(paths.ConfigPath())
	if err != nil {
		logEvent("CONFIG_ERROR", err.Error())
		cfg = config.Default()
	}

	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	c := &Coordinator{
		sessionID:     sessionID,
		root:          root,
		cfg:           cfg,
		th:            theme.GetTheme(cfg.Theme),
		ws:            workspace.New(),
		reg:           dnd.NewRegistry(),
		shells:        make(map[workspace.ItemID]*session.Session),
		previews:      make(map[string]*filePreview),
		changed:       make(chan struct{}, 1),
		pendingStrips: make(map[workspace.PaneID]bool),
	}
	c.ws.TrustGate = c.trustGate
	c.namer = newNamer(cfg.LLM, c.setPaneName)

	c.ws.Subscribe(c.onWorkspaceEvent)

	pv := c.addPane()
	it := workspace.NewTerminalItem("shell", root)
	pv.pane.OpenItem(it, workspace.OpenOptions{Index: -1, Active: true})

	return c
}

func (c *Coordinator) addPane() *paneView {
	pane := c.ws.NewPane()
	ctrl := strip.New(strip.Options{
		Workspace:   c.ws,
		Pane:        pane,
		Config:      c.cfg,
		Theme:       c.th,
		Registry:    c.reg,
		TreeSource:  c,
		ClosePolicy: dirtyClosePolicy{},
		Zones:       nil, // clients hit-test against Regions, not zones
	})
	pv := &paneView{pane: pane, strip: ctrl}
	c.panes = append(c.panes, pv)
	return pv
}

// dirtyClosePolicy vetoes interactive closes of unsaved items. The daemon
// has no confirmation dialog, so the veto is the whole policy.
type dirtyClosePolicy struct{}

func (dirtyClosePolicy) CanClose(it *workspace.Item) bool { return !it.Dirty() }

// trustGate approves batches whose every path stays inside the daemon
// root. Tree drops resolve through here; anything pointing outside the
// workspace is refused wholesale.
func (c *Coordinator) trustGate(reqs []workspace.OpenRequest) bool {
	for _, req := range reqs {
		rel, err := filepath.Rel(c.root, req.Path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			logEvent("TRUST_DENIED", req.Path)
			return false
		}
	}
	return true
}

// ResolveTreeItem maps a sidebar entry id (an absolute path under root)
// to an open request. Implements dnd.TreeItemSource.
func (c *Coordinator) ResolveTreeItem(ctx context.Context, id string) ([]workspace.OpenRequest, bool) {
	info, err := os.Stat(id)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return []workspace.OpenRequest{{Path: id, Kind: workspace.KindFile, Index: -1, Active: true}}, true
}

// onWorkspaceEvent runs synchronously inside workspace mutations, with
// stateMu already held by the mutating caller.
func (c *Coordinator) onWorkspaceEvent(ev workspace.Event) {
	switch ev.Type {
	case workspace.EventItemOpened:
		if ev.Item != nil && ev.Item.Kind == workspace.KindTerminal {
			c.startShell(ev.Item)
		}
	case workspace.EventItemClosed:
		if ev.Item != nil {
			if s, ok := c.shells[ev.Item.ID]; ok {
				s.Close()
				delete(c.shells, ev.Item.ID)
			}
		}
	}

	switch ev.Type {
	case workspace.EventItemOpened, workspace.EventItemClosed, workspace.EventItemMoved, workspace.EventPaneMerged:
		c.refreshPaneNames()
	}

	c.markDirty(true, "")
}

func (c *Coordinator) startShell(it *workspace.Item) {
	dir := it.Dir()
	if dir == "" {
		dir = c.root
	}
	s, err := session.Start(session.Options{
		Shell:  c.cfg.Shell,
		Dir:    dir,
		Cols:   80,
		Rows:   24,
		Notify: c.notifyAsync,
		OnExit: c.notifyAsync,
	})
	if err != nil {
		logEvent("SHELL_ERROR", err.Error())
		return
	}
	c.shells[it.ID] = s
}

// notifyAsync is the change hook for goroutines outside the input path,
// e.g. pty readers. It takes the lock itself.
func (c *Coordinator) notifyAsync() {
	c.stateMu.Lock()
	c.markDirty(true, "")
	c.stateMu.Unlock()
}

// markDirty records a pending redraw. Callers hold stateMu.
func (c *Coordinator) markDirty(full bool, pane workspace.PaneID) {
	if full {
		c.pendingFull = true
	} else if pane != "" {
		c.pendingStrips[pane] = true
	}
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Changed signals the broadcast loop that something needs to go out.
func (c *Coordinator) Changed() <-chan struct{} { return c.changed }

// FlushPending drains the redraw flags. A full frame subsumes any queued
// strip-only updates.
func (c *Coordinator) FlushPending() (full bool, strips []daemon.StripUpdatePayload) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	full = c.pendingFull
	c.pendingFull = false
	if full {
		c.pendingStrips = make(map[workspace.PaneID]bool)
		return true, nil
	}
	for id := range c.pendingStrips {
		if p := c.stripPayload(id); p != nil {
			strips = append(strips, *p)
		}
	}
	c.pendingStrips = make(map[workspace.PaneID]bool)
	return false, strips
}

// stripPayload re-renders one pane's strip at its last frame geometry.
// Callers hold stateMu.
func (c *Coordinator) stripPayload(id workspace.PaneID) *daemon.StripUpdatePayload {
	pv := c.paneViewByID(id)
	if pv == nil || pv.stripW <= 0 {
		return nil
	}
	rows := pv.strip.Render(pv.stripW)
	var regions []daemon.Region
	for r := range rows {
		regions = append(regions, c.stripRowRegions(pv, r, pv.stripLine+r, pv.stripCol, pv.stripW, r == len(rows)-1)...)
	}
	return &daemon.StripUpdatePayload{
		Pane:    string(id),
		Line:    pv.stripLine,
		Content: strings.Join(rows, "\n"),
		Regions: regions,
	}
}

// TickSpinner advances every strip's saving animation. It reports whether
// any tab is actually animating so the caller can skip idle broadcasts.
func (c *Coordinator) TickSpinner() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	animating := false
	for _, pv := range c.panes {
		pv.strip.TickSpinner()
		for _, it := range pv.pane.Items() {
			if it.Saving() {
				animating = true
			}
		}
	}
	if animating {
		for _, pv := range c.panes {
			c.pendingStrips[pv.pane.ID] = true
		}
		select {
		case c.changed <- struct{}{}:
		default:
		}
	}
	return animating
}

// SetConfig swaps the live config across every controller. Used by the
// config watcher on file changes.
func (c *Coordinator) SetConfig(cfg *config.Config) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.cfg = cfg
	c.th = theme.GetTheme(cfg.Theme)
	for _, pv := range c.panes {
		pv.strip.SetTheme(c.th)
		pv.strip.SetConfig(cfg)
	}
	c.markDirty(true, "")
}

// PaneCount is read by the idle monitor's event log line.
func (c *Coordinator) PaneCount() int {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return len(c.panes)
}

func (c *Coordinator) paneViewByID(id workspace.PaneID) *paneView {
	for _, pv := range c.panes {
		if pv.pane.ID == id {
			return pv
		}
	}
	return nil
}

func (c *Coordinator) refreshPaneNames() {
	for _, pv := range c.panes {
		var names []string
		for _, it := range pv.pane.Items() {
			names = append(names, it.Name())
		}
		c.namer.Request(pv.pane.ID, names)
	}
}

// setPaneName lands a generated nickname. Called from the namer's worker
// goroutine.
func (c *Coordinator) setPaneName(id workspace.PaneID, name string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	pv := c.paneViewByID(id)
	if pv == nil || pv.name == name {
		return
	}
	pv.name = name
	c.markDirty(true, "")
}

// RenderForClient composes a full frame plus its hit regions for one
// client's dimensions.
func (c *Coordinator) RenderForClient(clientID string, width, height int) *daemon.RenderPayload {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	// Garbage dimensions from a half-subscribed client get defaults
	// rather than a crash or a degenerate layout.
	if width < minRenderWidth {
		width = 80
	}
	if height < minRenderHeight {
		height = 24
	}

	var regions []daemon.Region

	sbw := 0
	if c.cfg.Sidebar.Visible && width >= c.cfg.Sidebar.Width+minRenderWidth {
		sbw = c.cfg.Sidebar.Width
	}
	deckW := width - sbw
	bodyH := height - 1 // bottom row is the status bar

	sidebar := c.renderSidebar(sbw, bodyH, &regions)
	deck := c.renderDeck(sbw, deckW, bodyH, &regions)

	lines := make([]string, 0, height)
	for i := 0; i < bodyH; i++ {
		if sbw > 0 {
			lines = append(lines, sidebar[i]+deck[i])
		} else {
			lines = append(lines, deck[i])
		}
	}
	lines = append(lines, c.renderStatusBar(width))

	return &daemon.RenderPayload{
		Content: strings.Join(lines, "\n"),
		Width:   width,
		Height:  height,
		Regions: regions,
	}
}

// renderDeck lays the panes out as vertical stack: strip rows on top of
// each pane's view area.
func (c *Coordinator) renderDeck(originX, deckW, bodyH int, regions *[]daemon.Region) []string {
	lines := make([]string, 0, bodyH)
	paneH := bodyH / len(c.panes)
	if paneH < 3 {
		paneH = 3
	}

	for pi, pv := range c.panes {
		if len(lines) >= bodyH {
			break
		}
		h := paneH
		if pi == len(c.panes)-1 {
			h = bodyH - len(lines) // last pane absorbs the remainder
		}

		pv.strip.Layout(strip.Dimensions{Width: deckW, Height: h - 1}, strip.LayoutOptions{})
		rows := pv.strip.Render(deckW)
		if len(rows) > h-1 {
			rows = rows[:h-1]
		}

		pv.stripLine = len(lines)
		pv.stripCol = originX
		pv.stripW = deckW
		for r, row := range rows {
			*regions = append(*regions, c.stripRowRegions(pv, r, len(lines), originX, deckW, r == len(rows)-1)...)
			lines = append(lines, row)
		}

		viewH := h - len(rows)
		for _, row := range c.renderView(pv, deckW, viewH) {
			lines = append(lines, row)
		}
	}

	view := lipgloss.NewStyle().Background(lipgloss.Color(c.th.ViewBg))
	for len(lines) < bodyH {
		lines = append(lines, view.Render(strings.Repeat(" ", deckW)))
	}
	return lines[:bodyH]
}

// stripRowRegions derives the clickable regions for one rendered strip
// row by probing the controller's own hit testing, so region math can
// never drift from layout math. Close regions come first: resolution is
// first match wins, and the close glyph sits inside the tab run.
func (c *Coordinator) stripRowRegions(pv *paneView, row, line, originX, stripW int, lastRow bool) []daemon.Region {
	var closes []daemon.Region
	var runs []daemon.Region

	paneID := string(pv.pane.ID)
	runStart, runIdx := -1, -1
	flush := func(end int) {
		if runIdx < 0 || runStart < 0 {
			return
		}
		runs = append(runs, daemon.Region{
			StartLine: line,
			EndLine:   line,
			StartCol:  originX + runStart,
			EndCol:    originX + end - 1,
			Action:    "activate_tab",
			Target:    paneID + ":" + strconv.Itoa(runIdx),
		})
		if tab, ok := pv.strip.TabAt(runIdx); ok {
			// Only a fully visible tab exposes its close glyph; clipped
			// tabs activate first, like any other partially hidden tab.
			if c.cfg.Tabs.CloseButton && !tab.Sticky && end-runStart == tab.Bounds.W {
				closes = append(closes, daemon.Region{
					StartLine: line,
					EndLine:   line,
					StartCol:  originX + runStart + tab.Bounds.W - 2,
					EndCol:    originX + runStart + tab.Bounds.W - 2,
					Action:    "close_tab",
					Target:    paneID + ":" + strconv.Itoa(runIdx),
				})
			}
		}
	}

	for x := 0; x <= stripW; x++ {
		idx := -1
		if x < stripW {
			if tab, ok := pv.strip.TabAtPoint(x, row); ok {
				idx = tab.Index
			}
		}
		if idx != runIdx {
			flush(x)
			runStart, runIdx = x, idx
		}
	}

	regions := append(closes, runs...)
	if lastRow {
		regions = append(regions, daemon.Region{
			StartLine: line,
			EndLine:   line,
			StartCol:  originX + stripW - 4,
			EndCol:    originX + stripW - 1,
			Action:    "new_tab",
			Target:    paneID,
		})
	}
	// Row catch-all so wheel gestures over padding still find the pane.
	regions = append(regions, daemon.Region{
		StartLine: line,
		EndLine:   line,
		StartCol:  originX,
		EndCol:    originX + stripW - 1,
		Action:    "strip_row",
		Target:    paneID,
	})
	return regions
}

// renderView paints the pane body under the strip: shell tail for
// terminal items, file head for file items.
func (c *Coordinator) renderView(pv *paneView, w, h int) []string {
	if h <= 0 {
		return nil
	}
	style := lipgloss.NewStyle().
		Background(lipgloss.Color(c.th.ViewBg)).
		Foreground(lipgloss.Color(c.th.ViewFg))

	var body []string
	it := pv.pane.ActiveItem()
	switch {
	case it == nil:
		body = []string{"", "  no open tabs"}
	case it.Kind == workspace.KindTerminal:
		if s, ok := c.shells[it.ID]; ok {
			body = s.Tail(h)
		} else {
			body = []string{"", "  shell exited"}
		}
	default:
		body = c.previewLines(it.Title(labels.Long), h)
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
func (c *Coordinator) previewLines(path string, n int) []string {
	info, err := os.Stat(path)
	if err != nil {
		return []string{"", "  " + err.Error()}
	}
	if p, ok := c.previews[path]; ok && p.mtime.Equal(info.ModTime()) && len(p.lines) >= n {
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
	c.previews[path] = &filePreview{mtime: info.ModTime(), lines: lines}
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// renderSidebar paints the file listing and the pane roster. Every row is
// exactly sbw cells so the deck column lines up.
func (c *Coordinator) renderSidebar(sbw, h int, regions *[]daemon.Region) []string {
	if sbw <= 0 {
		return nil
	}
	base := lipgloss.NewStyle().
		Background(lipgloss.Color(c.th.SidebarBg)).
		Foreground(lipgloss.Color(c.th.SidebarFg))
	header := base.Bold(true)
	active := lipgloss.NewStyle().
		Background(lipgloss.Color(c.th.SidebarBg)).
		Foreground(lipgloss.Color(c.th.SidebarActiveFg))

	pad := func(st lipgloss.Style, s string) string {
		return st.Render(runewidth.FillRight(runewidth.Truncate(s, sbw, "…"), sbw))
	}

	openPaths := make(map[string]bool)
	for _, pv := range c.panes {
		if it := pv.pane.ActiveItem(); it != nil && it.Kind == workspace.KindFile {
			openPaths[it.Title(labels.Long)] = true
		}
	}

	lines := make([]string, 0, h)
	lines = append(lines, pad(header, " "+filepath.Base(c.root)))

	for _, name := range c.listFiles() {
		if len(lines) >= h-len(c.panes)-2 {
			break
		}
		full := filepath.Join(c.root, name)
		st := base
		if openPaths[full] {
			st = active
		}
		*regions = append(*regions, daemon.Region{
			StartLine: len(lines),
			EndLine:   len(lines),
			StartCol:  0,
			EndCol:    sbw - 1,
			Action:    "sidebar_open",
			Target:    full,
		})
		lines = append(lines, pad(st, "  "+name))
	}

	for len(lines) < h-len(c.panes)-1 {
		lines = append(lines, pad(base, ""))
	}

	lines = append(lines, pad(header, " panes"))
	for i, pv := range c.panes {
		if len(lines) >= h {
			break
		}
		label := pv.name
		if label == "" {
			label = fmt.Sprintf("pane %d", i+1)
		}
		st := base
		if c.ws.FocusedPane() == pv.pane {
			st = active
		}
		*regions = append(*regions, daemon.Region{
			StartLine: len(lines),
			EndLine:   len(lines),
			StartCol:  0,
			EndCol:    sbw - 1,
			Action:    "focus_pane",
			Target:    string(pv.pane.ID),
		})
		lines = append(lines, pad(st, fmt.Sprintf("  %s (%d)", label, pv.pane.Count())))
	}
	for len(lines) < h {
		lines = append(lines, pad(base, ""))
	}
	return lines[:h]
}

func (c *Coordinator) listFiles() []string {
	entries, err := os.ReadDir(c.root)
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

func (c *Coordinator) renderStatusBar(width int) string {
	st := lipgloss.NewStyle().
		Background(lipgloss.Color(c.th.StripBg)).
		Foreground(lipgloss.Color(c.th.OverflowFg))
	text := fmt.Sprintf(" %s · %s · %d pane(s)", c.sessionID, c.th.Name, len(c.panes))
	return st.Render(runewidth.FillRight(runewidth.Truncate(text, width, "…"), width))
}

// HandleInput routes one client input message. Mouse gestures carry the
// region resolution the renderer already did; the coordinator only
// supplies gesture memory (double click, drag) on top.
func (c *Coordinator) HandleInput(clientID string, input daemon.InputPayload) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	switch input.Type {
	case "key":
		c.handleKey(input.Key)
	case "mouse":
		c.handleMouse(input)
	case "action":
		// Synthetic path for clients that resolve clicks fully
		// themselves.
		c.runAction(input.ResolvedAction, input.ResolvedTarget, input)
		c.markDirty(true, "")
	}
}

func (c *Coordinator) handleKey(key string) {
	pane := c.ws.FocusedPane()
	if pane == nil {
		return
	}
	pv := c.paneViewByID(pane.ID)
	if pv == nil {
		return
	}
	if pv.strip.HandleKey(key) {
		c.markDirty(true, "")
	}
}

func (c *Coordinator) handleMouse(input daemon.InputPayload) {
	switch input.Button {
	case "wheelup", "wheeldown":
		if input.Action != "press" {
			return
		}
		c.handleWheel(input)
		return
	}

	switch input.Action {
	case "press":
		c.handlePress(input)
	case "motion":
		c.handleMotion(input)
	case "release":
		c.handleRelease(input)
	}
}

func (c *Coordinator) handleWheel(input daemon.InputPayload) {
	id := c.paneForTarget(input.ResolvedAction, input.ResolvedTarget)
	pv := c.paneViewByID(id)
	if pv == nil {
		return
	}

	held := false
	switch c.cfg.Wheel.Modifier {
	case "ctrl":
		held = input.Ctrl
	case "alt":
		held = input.Alt
	}
	delta := 3.0
	if input.Button == "wheelup" {
		delta = -3.0
	}
	if pv.strip.HandleWheel(strip.WheelEvent{DeltaY: delta, Modifier: held}) {
		c.markDirty(false, id)
	}
}

// paneForTarget recovers the pane id from any strip region target.
func (c *Coordinator) paneForTarget(action, target string) workspace.PaneID {
	switch action {
	case "activate_tab", "close_tab":
		if i := strings.LastIndex(target, ":"); i > 0 {
			return workspace.PaneID(target[:i])
		}
	case "new_tab", "strip_row", "focus_pane":
		return workspace.PaneID(target)
	}
	return ""
}

func splitTabTarget(target string) (workspace.PaneID, int, bool) {
	i := strings.LastIndex(target, ":")
	if i <= 0 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(target[i+1:])
	if err != nil {
		return "", 0, false
	}
	return workspace.PaneID(target[:i]), idx, true
}

func (c *Coordinator) handlePress(input daemon.InputPayload) {
	c.pressAction = input.ResolvedAction
	c.pressTarget = input.ResolvedTarget
	c.dragging = false

	if input.Button == "middle" {
		switch input.ResolvedAction {
		case "activate_tab", "close_tab":
			if id, idx, ok := splitTabTarget(input.ResolvedTarget); ok {
				if pv := c.paneViewByID(id); pv != nil {
					pv.strip.HandleMiddleClick(idx)
					c.markDirty(true, "")
				}
			}
		}
		return
	}
	if input.Button != "left" {
		return
	}

	// Double click on the same tab toggles its pin.
	if input.ResolvedAction == "activate_tab" &&
		input.ResolvedTarget == c.lastClickTarget &&
		time.Since(c.lastClickAt) < doubleClickWindow {
		if id, idx, ok := splitTabTarget(input.ResolvedTarget); ok {
			if pv := c.paneViewByID(id); pv != nil {
				pv.strip.HandleDoubleClick(idx)
				c.markDirty(true, "")
			}
		}
		c.lastClickTarget = ""
		return
	}
	c.lastClickAt = time.Now()
	c.lastClickTarget = input.ResolvedTarget

	// Sidebar entries open on release so a drag can start from them
	// instead. Tabs activate on press, like every tab bar.
	if input.ResolvedAction == "sidebar_open" {
		return
	}
	c.runAction(input.ResolvedAction, input.ResolvedTarget, input)
	c.markDirty(true, "")
}

// handleMotion arms the drag payload on the first move away from the
// pressed region and tracks the drop caret after that.
func (c *Coordinator) handleMotion(input daemon.InputPayload) {
	if c.pressAction == "" {
		return
	}

	if !c.dragging && input.ResolvedTarget != c.pressTarget {
		switch c.pressAction {
		case "activate_tab":
			if id, idx, ok := splitTabTarget(c.pressTarget); ok {
				if pv := c.paneViewByID(id); pv != nil {
					if it, ok := pv.pane.GetItemAt(idx); ok {
						c.reg.SetItem(dnd.ItemPayload{Item: it, SourcePane: id})
						c.dragging = true
					}
				}
			}
		case "sidebar_open":
			c.reg.SetTree(dnd.TreePayload{IDs: []string{c.pressTarget}})
			c.dragging = true
		}
	}
	if !c.dragging {
		return
	}

	hoverPane, hoverIdx := c.dropTarget(input)
	for _, pv := range c.panes {
		if pv.pane.ID == hoverPane {
			pv.strip.SetDropCaret(hoverIdx)
		} else {
			pv.strip.SetDropCaret(-1)
		}
		c.markDirty(false, pv.pane.ID)
	}
}

func (c *Coordinator) handleRelease(input daemon.InputPayload) {
	defer func() {
		c.pressAction = ""
		c.pressTarget = ""
		c.dragging = false
		c.reg.EndGesture()
	}()

	if !c.dragging {
		if c.pressAction == "sidebar_open" && input.ResolvedTarget == c.pressTarget {
			c.runAction("sidebar_open", c.pressTarget, input)
			c.markDirty(true, "")
		}
		return
	}

	hoverPane, hoverIdx := c.dropTarget(input)
	for _, pv := range c.panes {
		if pv.pane.ID != hoverPane {
			pv.strip.SetDropCaret(-1)
		}
	}
	pv := c.paneViewByID(hoverPane)
	if pv == nil {
		c.markDirty(true, "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := dnd.DropEvent{
		TargetPane:   hoverPane,
		TargetIndex:  hoverIdx,
		CopyModifier: dnd.CopyModifierHeld(input.Ctrl, input.Alt),
	}
	if _, err := pv.strip.HandleDrop(ctx, ev, hoverIdx); err != nil {
		logEvent("DROP_ERROR", err.Error())
	}
	c.markDirty(true, "")
}

// dropTarget maps the region under the cursor to an insertion pane and
// index. Toolbar and padding append at the tail.
func (c *Coordinator) dropTarget(input daemon.InputPayload) (workspace.PaneID, int) {
	if id, idx, ok := splitTabTarget(input.ResolvedTarget); ok &&
		(input.ResolvedAction == "activate_tab" || input.ResolvedAction == "close_tab") {
		return id, idx
	}
	id := c.paneForTarget(input.ResolvedAction, input.ResolvedTarget)
	if pv := c.paneViewByID(id); pv != nil {
		return id, pv.pane.Count()
	}
	return "", -1
}

func (c *Coordinator) runAction(action, target string, input daemon.InputPayload) {
	switch action {
	case "activate_tab":
		if id, idx, ok := splitTabTarget(target); ok {
			if pv := c.paneViewByID(id); pv != nil {
				c.ws.FocusPane(pv.pane)
				pv.strip.HandleClick(idx)
			}
		}
	case "close_tab":
		if id, idx, ok := splitTabTarget(target); ok {
			if pv := c.paneViewByID(id); pv != nil {
				pv.strip.HandleMiddleClick(idx)
			}
		}
	case "new_tab":
		if pv := c.paneViewByID(workspace.PaneID(target)); pv != nil {
			c.ws.FocusPane(pv.pane)
			name := fmt.Sprintf("shell %d", len(c.shells)+1)
			it := workspace.NewTerminalItem(name, c.root)
			pv.pane.OpenItem(it, workspace.OpenOptions{Index: -1, Active: true})
		}
	case "focus_pane":
		if pv := c.paneViewByID(workspace.PaneID(target)); pv != nil {
			c.ws.FocusPane(pv.pane)
		}
	case "sidebar_open":
		pane := c.ws.FocusedPane()
		if pane == nil {
			return
		}
		// Reuse an existing tab for the same path instead of stacking
		// duplicates.
		for _, it := range pane.Items() {
			if it.Kind == workspace.KindFile && it.Title(labels.Long) == target {
				pane.ActivateItem(it)
				return
			}
		}
		pane.OpenItem(workspace.NewFileItem(target), workspace.OpenOptions{Index: -1, Active: true})
	}
}

// Shutdown closes every shell session. Called once on daemon exit.
func (c *Coordinator) Shutdown() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	for id, s := range c.shells {
		s.Close()
		delete(c.shells, id)
	}
}
