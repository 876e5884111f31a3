package strip

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/b/tabdeck/pkg/config"
	"github.com/b/tabdeck/pkg/dnd"
	"github.com/b/tabdeck/pkg/workspace"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type vetoPolicy struct{ allow bool }

func (p *vetoPolicy) CanClose(*workspace.Item) bool { return p.allow }

type fixture struct {
	ws    *workspace.Workspace
	pane  *workspace.Pane
	ctrl  *Controller
	cfg   *config.Config
	clock *fakeClock
}

func newFixture(t *testing.T, cfg *config.Config, paths ...string) *fixture {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	ws := workspace.New()
	pane := ws.NewPane()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	ctrl := New(Options{
		Workspace: ws,
		Pane:      pane,
		Config:    cfg,
		Registry:  dnd.NewRegistry(),
		Clock:     clock,
	})
	t.Cleanup(ctrl.Close)
	for _, p := range paths {
		pane.OpenItem(workspace.NewFileItem(p), workspace.OpenOptions{Index: -1})
	}
	return &fixture{ws: ws, pane: pane, ctrl: ctrl, cfg: cfg, clock: clock}
}

func TestController_LabelsDedupAcrossTabs(t *testing.T) {
	fix := newFixture(t, nil, "/alpha/main.go", "/beta/main.go", "/beta/other.go")

	a, _ := fix.ctrl.TabAt(0)
	b, _ := fix.ctrl.TabAt(1)
	c, _ := fix.ctrl.TabAt(2)

	if a.Label.Description == "" || b.Label.Description == "" {
		t.Fatal("same-name tabs should carry distinguishing descriptions")
	}
	if a.Label.Description == b.Label.Description {
		t.Errorf("descriptions did not distinguish: %q vs %q", a.Label.Description, b.Label.Description)
	}
	if c.Label.Description != "" {
		t.Errorf("unique name got description %q, want none", c.Label.Description)
	}
}

func TestController_TailTrimKeepsIndicesAligned(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	b, _ := fix.pane.GetItemAt(1)

	fix.pane.CloseItem(b)

	if fix.ctrl.Count() != 2 {
		t.Fatalf("controller has %d tabs, want 2", fix.ctrl.Count())
	}
	first, _ := fix.ctrl.TabAt(0)
	second, _ := fix.ctrl.TabAt(1)
	if first.Item.Name() != "a.go" || second.Item.Name() != "c.go" {
		t.Errorf("tabs = [%s %s], want [a.go c.go]", first.Item.Name(), second.Item.Name())
	}
	// Records are rewritten in place and trimmed from the tail, so the
	// per-position zone ids survive any close.
	wantZone := string(fix.pane.ID) + "/tab/1"
	if second.ZoneID != wantZone {
		t.Errorf("ZoneID = %q, want %q", second.ZoneID, wantZone)
	}
}

func TestController_IgnoresOtherPanes(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go")
	other := fix.ws.NewPane()

	other.OpenItem(workspace.NewFileItem("/tmp/b.go"), workspace.OpenOptions{Index: -1})

	if fix.ctrl.Count() != 1 {
		t.Errorf("controller has %d tabs after a foreign open, want 1", fix.ctrl.Count())
	}
}

func TestController_WheelSwitching(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	fix.pane.ActivateAt(1)

	activeIndex := func() int { return fix.pane.IndexOf(fix.pane.ActiveItem()) }

	t.Run("below threshold is ignored", func(t *testing.T) {
		if fix.ctrl.HandleWheel(WheelEvent{DeltaY: 2}) {
			t.Error("delta 2 under threshold 3 should not switch")
		}
		if activeIndex() != 1 {
			t.Fatalf("active = %d, want 1", activeIndex())
		}
	})

	t.Run("switch then debounce", func(t *testing.T) {
		if !fix.ctrl.HandleWheel(WheelEvent{DeltaY: 3}) {
			t.Fatal("first notch should switch")
		}
		if activeIndex() != 2 {
			t.Fatalf("active = %d, want 2", activeIndex())
		}
		if fix.ctrl.HandleWheel(WheelEvent{DeltaY: -3}) {
			t.Error("second notch inside the debounce window should be dropped")
		}
		fix.clock.advance(119 * time.Millisecond)
		if fix.ctrl.HandleWheel(WheelEvent{DeltaY: -3}) {
			t.Error("still one tick inside the window")
		}
		fix.clock.advance(1 * time.Millisecond)
		if !fix.ctrl.HandleWheel(WheelEvent{DeltaY: -3}) {
			t.Error("window elapsed, the notch should switch")
		}
		if activeIndex() != 1 {
			t.Fatalf("active = %d, want 1", activeIndex())
		}
	})

	t.Run("hard flick relaxes the debounce", func(t *testing.T) {
		fix.clock.advance(60 * time.Millisecond)
		if fix.ctrl.HandleWheel(WheelEvent{DeltaY: 3}) {
			t.Error("plain notch at 60ms should still be debounced")
		}
		if !fix.ctrl.HandleWheel(WheelEvent{DeltaY: 6}) {
			t.Error("double-strength flick halves the 120ms debounce")
		}
		if activeIndex() != 2 {
			t.Fatalf("active = %d, want 2", activeIndex())
		}
	})

	t.Run("boundary does not consume the debounce", func(t *testing.T) {
		fix.clock.advance(time.Second)
		if fix.ctrl.HandleWheel(WheelEvent{DeltaY: 3}) {
			t.Error("no tab past the end")
		}
		if !fix.ctrl.HandleWheel(WheelEvent{DeltaY: -3}) {
			t.Error("rejected boundary notch must not start a debounce window")
		}
	})
}

func TestController_WheelModifierInvertsSetting(t *testing.T) {
	t.Run("switching on, modifier falls through", func(t *testing.T) {
		fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go")
		fix.pane.ActivateAt(0)
		if fix.ctrl.HandleWheel(WheelEvent{DeltaY: 3, Modifier: true}) {
			t.Error("modifier should hand the wheel back to scrolling")
		}
		if fix.pane.IndexOf(fix.pane.ActiveItem()) != 0 {
			t.Error("active tab moved although the wheel was handed back")
		}
	})

	t.Run("switching off, modifier engages", func(t *testing.T) {
		cfg := config.Default()
		cfg.Wheel.SwitchTabs = false
		fix := newFixture(t, cfg, "/tmp/a.go", "/tmp/b.go")
		fix.pane.ActivateAt(0)
		if fix.ctrl.HandleWheel(WheelEvent{DeltaY: 3}) {
			t.Error("plain wheel should scroll when switching is off")
		}
		if !fix.ctrl.HandleWheel(WheelEvent{DeltaY: 3, Modifier: true}) {
			t.Error("modifier should engage switching")
		}
	})
}

func TestController_WheelNeedsTwoTabs(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go")
	if fix.ctrl.HandleWheel(WheelEvent{DeltaY: 30}) {
		t.Error("a single tab has nothing to switch to")
	}
}

func TestController_MiddleClickHonorsClosePolicy(t *testing.T) {
	ws := workspace.New()
	pane := ws.NewPane()
	policy := &vetoPolicy{}
	ctrl := New(Options{Workspace: ws, Pane: pane, ClosePolicy: policy, Registry: dnd.NewRegistry()})
	t.Cleanup(ctrl.Close)
	pane.OpenItem(workspace.NewFileItem("/tmp/a.go"), workspace.OpenOptions{Index: -1})

	if ctrl.HandleMiddleClick(0) {
		t.Error("vetoed close reported as done")
	}
	if pane.Count() != 1 {
		t.Fatal("vetoed close removed the item")
	}

	policy.allow = true
	if !ctrl.HandleMiddleClick(0) {
		t.Error("allowed close should happen")
	}
	if pane.Count() != 0 {
		t.Error("item still open after close")
	}
}

func TestController_DoubleClickTogglesPin(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go")
	b, _ := fix.pane.GetItemAt(1)

	fix.ctrl.HandleDoubleClick(1)
	if !fix.pane.IsPinned(b) {
		t.Fatal("double click should pin")
	}

	fix.ctrl.HandleDoubleClick(fix.pane.IndexOf(b))
	if fix.pane.IsPinned(b) {
		t.Error("second double click should unpin")
	}
}

func TestController_KeyNavigation(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	fix.pane.ActivateAt(1)
	activeIndex := func() int { return fix.pane.IndexOf(fix.pane.ActiveItem()) }

	if !fix.ctrl.HandleKey("left") || activeIndex() != 0 {
		t.Fatalf("left: active = %d, want 0", activeIndex())
	}
	if fix.ctrl.HandleKey("left") {
		t.Error("left at the first tab should report unhandled")
	}
	if !fix.ctrl.HandleKey("end") || activeIndex() != 2 {
		t.Fatalf("end: active = %d, want 2", activeIndex())
	}
	if fix.ctrl.HandleKey("right") {
		t.Error("right at the last tab should report unhandled")
	}
	if !fix.ctrl.HandleKey("home") || activeIndex() != 0 {
		t.Fatalf("home: active = %d, want 0", activeIndex())
	}
	if !fix.ctrl.HandleKey("right") || activeIndex() != 1 {
		t.Fatalf("right: active = %d, want 1", activeIndex())
	}
}

func TestController_TabAtPoint(t *testing.T) {
	// Three 8-cell tabs, strip wide enough for all plus the toolbar.
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	fix.pane.ActivateAt(0)
	fix.ctrl.Layout(Dimensions{Width: 28, Height: 1}, LayoutOptions{ForceReveal: true})

	tests := []struct {
		x    int
		want string
		ok   bool
	}{
		{0, "a.go", true},
		{7, "a.go", true},
		{8, "b.go", true},
		{23, "c.go", true},
		{24, "", false},
	}
	for _, tt := range tests {
		tab, ok := fix.ctrl.TabAtPoint(tt.x, 0)
		if ok != tt.ok {
			t.Errorf("TabAtPoint(%d) ok = %v, want %v", tt.x, ok, tt.ok)
			continue
		}
		if ok && tab.Item.Name() != tt.want {
			t.Errorf("TabAtPoint(%d) = %s, want %s", tt.x, tab.Item.Name(), tt.want)
		}
	}

	if _, ok := fix.ctrl.TabAtPoint(0, 1); ok {
		t.Error("single-row strip has nothing on row 1")
	}
}

func TestController_TabAtPointScrolled(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	fix.ctrl.Layout(Dimensions{Width: 20, Height: 1}, LayoutOptions{ForceReveal: true})

	// Revealing the active last tab scrolled the first 8 cells away.
	if got := fix.ctrl.viewport.ScrollOffset(); got != 8 {
		t.Fatalf("offset = %d, want 8", got)
	}
	tab, ok := fix.ctrl.TabAtPoint(0, 0)
	if !ok || tab.Item.Name() != "b.go" {
		t.Errorf("TabAtPoint(0) under scroll should hit b.go")
	}
	tab, ok = fix.ctrl.TabAtPoint(15, 0)
	if !ok || tab.Item.Name() != "c.go" {
		t.Errorf("TabAtPoint(15) under scroll should hit c.go")
	}
}

func TestController_TabAtPointStickyPrefix(t *testing.T) {
	cfg := config.Default()
	cfg.Pinned.Sizing = "shrink"
	fix := newFixture(t, cfg, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	a, _ := fix.pane.GetItemAt(0)
	fix.pane.PinItem(a)
	fix.ctrl.Layout(Dimensions{Width: 40, Height: 1}, LayoutOptions{ForceReveal: true})

	tab, ok := fix.ctrl.TabAtPoint(5, 0)
	if !ok || tab.Item != a {
		t.Error("points inside the prefix should hit the pinned tab")
	}
	tab, ok = fix.ctrl.TabAtPoint(12, 0)
	if !ok || tab.Item.Name() != "b.go" {
		t.Error("first body cell should hit the first unpinned tab")
	}
	if _, ok := fix.ctrl.TabAtPoint(35, 0); ok {
		t.Error("points past the content should miss")
	}
}

func TestController_BlockNextRevealIsOneShot(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	fix.ctrl.Layout(Dimensions{Width: 20, Height: 1}, LayoutOptions{ForceReveal: true})
	if got := fix.ctrl.viewport.ScrollOffset(); got != 8 {
		t.Fatalf("offset = %d, want 8", got)
	}

	fix.ctrl.BlockNextReveal()
	fix.pane.ActivateAt(0)
	if got := fix.ctrl.viewport.ScrollOffset(); got != 8 {
		t.Fatalf("blocked reveal moved the strip to %d", got)
	}

	fix.ctrl.Layout(Dimensions{Width: 20, Height: 1}, LayoutOptions{ForceReveal: true})
	if got := fix.ctrl.viewport.ScrollOffset(); got != 0 {
		t.Errorf("offset = %d, want 0 once the block is consumed", got)
	}
}

func TestController_WrapAndUnwrap(t *testing.T) {
	cfg := config.Default()
	cfg.Tabs.Wrap = true
	fix := newFixture(t, cfg, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go", "/tmp/d.go", "/tmp/e.go")

	fix.ctrl.Layout(Dimensions{Width: 24, Height: 2}, LayoutOptions{})
	if !fix.ctrl.Wrapped() {
		t.Fatal("forty cells of tabs should wrap on a 24 cell strip")
	}
	tab, ok := fix.ctrl.TabAtPoint(4, 1)
	if !ok || tab.Item.Name() != "d.go" {
		t.Error("row 1 origin should hit the first wrapped tab")
	}
	third, _ := fix.ctrl.TabAt(2)
	if !third.LastInRow {
		t.Error("third tab closes row 0")
	}

	fix.ctrl.Layout(Dimensions{Width: 48, Height: 2}, LayoutOptions{})
	if fix.ctrl.Wrapped() {
		t.Error("content fits one row again, the strip should unwrap")
	}
}

func TestController_DropCaretSkipsNoopTargets(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	a, _ := fix.pane.GetItemAt(0)
	fix.ctrl.reg.SetItem(dnd.ItemPayload{Item: a, SourcePane: fix.pane.ID})

	fix.ctrl.SetDropCaret(0)
	if fix.ctrl.DropCaret() != -1 {
		t.Error("dropping a tab on itself shows no caret")
	}
	fix.ctrl.SetDropCaret(2)
	if fix.ctrl.DropCaret() != 2 {
		t.Errorf("caret = %d, want 2", fix.ctrl.DropCaret())
	}
	fix.ctrl.SetDropCaret(-1)
	if fix.ctrl.DropCaret() != -1 {
		t.Error("caret should clear")
	}
}

func TestController_RenderGeometry(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	fix.pane.ActivateAt(0)
	fix.ctrl.Layout(Dimensions{Width: 40, Height: 1}, LayoutOptions{ForceReveal: true})

	rows := fix.ctrl.Render(40)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if w := lipgloss.Width(rows[0]); w != 40 {
		t.Errorf("row width = %d, want 40", w)
	}
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		if !strings.Contains(rows[0], name) {
			t.Errorf("row missing label %q", name)
		}
	}
	if !strings.Contains(rows[0], "[+]") {
		t.Error("row missing the new tab button")
	}
}

func TestController_RenderOverflowIndicator(t *testing.T) {
	fix := newFixture(t, nil, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go")
	fix.ctrl.Layout(Dimensions{Width: 20, Height: 1}, LayoutOptions{ForceReveal: true})

	rows := fix.ctrl.Render(20)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if w := lipgloss.Width(rows[0]); w != 20 {
		t.Errorf("row width = %d, want 20", w)
	}
	if !strings.Contains(rows[0], overflowLeft) {
		t.Error("scrolled strip should mark the left overflow")
	}
	if strings.Contains(rows[0], overflowRight) {
		t.Error("nothing overflows on the right once the last tab is revealed")
	}
}

func TestController_RenderWrappedRows(t *testing.T) {
	cfg := config.Default()
	cfg.Tabs.Wrap = true
	fix := newFixture(t, cfg, "/tmp/a.go", "/tmp/b.go", "/tmp/c.go", "/tmp/d.go", "/tmp/e.go")
	fix.ctrl.Layout(Dimensions{Width: 24, Height: 2}, LayoutOptions{})

	rows := fix.ctrl.Render(24)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for i, row := range rows {
		if w := lipgloss.Width(row); w != 24 {
			t.Errorf("row %d width = %d, want 24", i, w)
		}
	}
	if !strings.Contains(rows[1], "[+]") {
		t.Error("toolbar belongs on the last row")
	}
	if strings.Contains(rows[0], "[+]") {
		t.Error("toolbar must not repeat on earlier rows")
	}
}

func TestController_SetConfigRelabels(t *testing.T) {
	fix := newFixture(t, nil, "/alpha/main.go", "/beta/main.go")
	a, _ := fix.ctrl.TabAt(0)
	if a.Label.Description == "" {
		t.Fatal("duplicate names start with descriptions")
	}

	cfg := config.Default()
	cfg.Labels.ShortenDuplicates = false
	cfg.Labels.Verbosity = "long"
	fix.ctrl.SetConfig(cfg)

	a, _ = fix.ctrl.TabAt(0)
	if a.Label.Description != "/alpha" {
		t.Errorf("Description = %q, want the full directory under long verbosity", a.Label.Description)
	}
}
