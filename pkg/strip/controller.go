package strip

import (
	"context"
	"fmt"
	"math"
	"time"

	zone "github.com/lrstanley/bubblezone"

	"github.com/b/tabdeck/pkg/config"
	"github.com/b/tabdeck/pkg/dnd"
	"github.com/b/tabdeck/pkg/labels"
	"github.com/b/tabdeck/pkg/perf"
	"github.com/b/tabdeck/pkg/theme"
	"github.com/b/tabdeck/pkg/workspace"
)

// toolbarWidth is the trailing " [+]" button area. In scroll mode it is
// carved off the strip width; in wrap mode it overlays the end of the
// last row behind the trailing margin.
const toolbarWidth = 4

// ClosePolicy can veto an interactive close, e.g. while the item is mid
// save and the host wants the write to land first.
type ClosePolicy interface {
	CanClose(it *workspace.Item) bool
}

// Clock feeds the wheel debounce. Tests inject a fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Dimensions is the strip area granted by the host: width in cells,
// height in rows.
type Dimensions struct {
	Width  int
	Height int
}

type LayoutOptions struct {
	// ForceReveal runs the reveal step even when dimensions did not
	// change, e.g. right after activation moved.
	ForceReveal bool
}

// WheelEvent is one wheel notch over the strip, as reported by the host
// input layer. Modifier is whether the configured switch modifier was
// held.
type WheelEvent struct {
	DeltaX, DeltaY float64
	Modifier       bool
}

// Options wires a Controller's collaborators at construction. Nil fields
// fall back to working defaults where one exists.
type Options struct {
	Workspace   *workspace.Workspace
	Pane        *workspace.Pane
	Viewport    Viewport
	Config      *config.Config
	Theme       theme.Theme
	Registry    *dnd.Registry
	TreeSource  dnd.TreeItemSource
	Dropper     dnd.ResourceDropper
	ClosePolicy ClosePolicy
	Clock       Clock
	Zones       *zone.Manager
}

// Controller owns the ordered tab records for one pane and keeps them
// consistent with the underlying item collection: labels recompute on
// every relevant mutation, layout reruns on every resize or structure
// change, and input maps to workspace commands or the drop resolver. The
// controller never mutates the item list directly.
type Controller struct {
	ws       *workspace.Workspace
	pane     *workspace.Pane
	viewport Viewport
	cfg      *config.Config
	theme    theme.Theme
	reg      *dnd.Registry
	resolver *dnd.Resolver
	policy   ClosePolicy
	clock    Clock
	zones    *zone.Manager

	tabs           []*Tab
	dims           Dimensions
	wrapped        bool
	trailingMargin int
	blockReveal    bool
	dropCaret      int
	lastWheel      time.Time
	spinner        int
	newZoneID      string

	unsubscribe func()
}

func New(opts Options) *Controller {
	c := &Controller{
		ws:        opts.Workspace,
		pane:      opts.Pane,
		viewport:  opts.Viewport,
		cfg:       opts.Config,
		theme:     opts.Theme,
		reg:       opts.Registry,
		policy:    opts.ClosePolicy,
		clock:     opts.Clock,
		zones:     opts.Zones,
		dropCaret: -1,
		newZoneID: fmt.Sprintf("%s/new", opts.Pane.ID),
	}
	if c.viewport == nil {
		c.viewport = &ScrollState{}
	}
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	if c.reg == nil {
		c.reg = dnd.Default
	}
	if c.clock == nil {
		c.clock = systemClock{}
	}
	c.resolver = dnd.NewResolver(c.reg, c.ws, opts.TreeSource, opts.Dropper)
	c.unsubscribe = c.ws.Subscribe(c.onEvent)
	c.RefreshLabels()
	c.RedrawAll()
	return c
}

// Close detaches the controller from workspace events.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) Pane() *workspace.Pane { return c.pane }
func (c *Controller) Count() int            { return len(c.tabs) }
func (c *Controller) Wrapped() bool         { return c.wrapped }

// SetTheme swaps the palette used from the next render on.
func (c *Controller) SetTheme(t theme.Theme) { c.theme = t }

// SetConfig applies a reloaded config: labels recompute under the new
// verbosity settings and layout reruns with the new sizing.
func (c *Controller) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c.cfg = cfg
	c.RefreshLabels()
	c.RedrawAll()
	c.Layout(c.dims, LayoutOptions{ForceReveal: true})
}

func (c *Controller) onEvent(ev workspace.Event) {
	if ev.Pane != c.pane.ID && ev.From != c.pane.ID {
		return
	}
	switch ev.Type {
	case workspace.EventItemOpened, workspace.EventItemClosed, workspace.EventItemMoved,
		workspace.EventItemPinned, workspace.EventLabelChanged, workspace.EventPaneMerged:
		c.RefreshLabels()
		c.RedrawAll()
		c.Layout(c.dims, LayoutOptions{})
	case workspace.EventItemActivated:
		c.RedrawAll()
		c.Layout(c.dims, LayoutOptions{ForceReveal: true})
	case workspace.EventDirtyChanged, workspace.EventSavingChanged, workspace.EventPaneFocused:
		c.RedrawAll()
	}
}

// RefreshLabels recomputes every tab's label from the pane's items. The
// pass realigns tab records first so labels land on final positions.
func (c *Controller) RefreshLabels() {
	defer perf.Start("strip.labels").Stop()
	items := c.pane.Items()
	c.syncTabs(items)

	describables := make([]labels.Describable, len(items))
	for i, it := range items {
		describables[i] = it
	}
	var active labels.Describable
	if a := c.pane.ActiveItem(); a != nil {
		active = a
	}
	labs, _ := labels.Compute(describables, active, labels.Options{
		Verbosity:         labels.ParseVerbosity(c.cfg.Labels.Verbosity),
		ShortenDuplicates: c.cfg.Labels.ShortenDuplicates,
	})
	for i := range c.tabs {
		c.tabs[i].Label = labs[i]
	}
}

// RedrawAll re-derives every tab's visual state from the pane. Render
// only formats what this pass set.
func (c *Controller) RedrawAll() {
	c.syncTabs(c.pane.Items())
	for i, tab := range c.tabs {
		tab.Sticky = c.pane.IsSticky(i)
		tab.Active = c.pane.IsActive(tab.Item)
		tab.Dirty = tab.Item.Dirty()
		tab.Saving = tab.Item.Saving()
	}
}

// syncTabs realigns tab records with the pane's item order. Surviving
// records are rewritten in place first; only then is the surplus trimmed
// from the tail, so indices stay aligned at every step no matter which
// logical tab went away.
func (c *Controller) syncTabs(items []*workspace.Item) {
	for i, it := range items {
		if i < len(c.tabs) {
			c.tabs[i].Item = it
			c.tabs[i].Index = i
		} else {
			c.tabs = append(c.tabs, &Tab{
				Index:  i,
				Item:   it,
				ZoneID: fmt.Sprintf("%s/tab/%d", c.pane.ID, i),
			})
		}
	}
	for len(c.tabs) > len(items) {
		c.tabs[len(c.tabs)-1] = nil
		c.tabs = c.tabs[:len(c.tabs)-1]
	}
}

// Layout runs the two layout phases for the granted dimensions: the wrap
// decision first, then the minimal active-tab reveal when not wrapped.
func (c *Controller) Layout(dims Dimensions, opts LayoutOptions) {
	defer perf.Start("strip.layout").Stop()
	c.dims = dims

	c.measure()
	content := c.contentWidth()
	lastW := 0
	if n := len(c.tabs); n > 0 {
		lastW = c.tabs[n-1].Bounds.W
	}

	budget := c.cfg.Tabs.WrapRows
	if dims.Height > 0 && dims.Height < budget {
		budget = dims.Height
	}

	res := computeWrapState(wrapInput{
		Enabled:      c.cfg.Tabs.Wrap,
		Wrapped:      c.wrapped,
		ContentWidth: content,
		ViewportW:    dims.Width,
		WrappedRows:  c.rowCount(dims.Width),
		HeightBudget: budget,
		LastTabWidth: lastW,
		ToolbarWidth: toolbarWidth,
	})
	c.wrapped = res.Wrapped
	c.trailingMargin = res.TrailingMargin
	if res.SnapContent {
		c.viewport.SetDimensions(dims.Width, dims.Width)
	}

	if c.wrapped {
		c.flowRows(dims.Width)
		markRowEnds(c.tabs)
		return
	}

	activeX, activeW, activeSticky := -1, 0, false
	if tab, ok := c.activeTab(); ok {
		activeX, activeW = tab.Bounds.X, tab.Bounds.W
		activeSticky = tab.Sticky
	}
	revealActiveTab(c.viewport, revealInput{
		StickyCount:  c.pane.StickyCount(),
		Sizing:       c.sizing(),
		ViewportW:    c.tabsViewportWidth(),
		ContentWidth: content,
		ActiveTabX:   activeX,
		ActiveTabW:   activeW,
		ActiveSticky: activeSticky,
		ForceReveal:  opts.ForceReveal,
		BlockReveal:  c.blockReveal,
	})
	c.blockReveal = false
}

// BlockNextReveal suppresses the next active-tab reveal once. Set it
// before operations like rapid sequential closes, where scrolling to each
// interim successor would thrash the strip.
func (c *Controller) BlockNextReveal() { c.blockReveal = true }

// HandleDrop resolves a drop gesture that landed on this strip at the
// given insertion index.
func (c *Controller) HandleDrop(ctx context.Context, ev dnd.DropEvent, targetIndex int) (dnd.Action, error) {
	c.dropCaret = -1
	ev.TargetPane = c.pane.ID
	ev.TargetIndex = targetIndex
	return c.resolver.Resolve(ctx, ev)
}

// SetDropCaret highlights the insertion point while a drag hovers the
// strip, or clears it with -1. Self drops that could not change anything
// never show an affordance.
func (c *Controller) SetDropCaret(index int) {
	if index >= 0 && dnd.IsNoopDrop(c.reg, c.ws, c.pane.ID, index) {
		index = -1
	}
	c.dropCaret = index
}

func (c *Controller) DropCaret() int { return c.dropCaret }

// TabForItem finds the tab currently rendering the item.
func (c *Controller) TabForItem(it *workspace.Item) (*Tab, bool) {
	for _, tab := range c.tabs {
		if tab.Item == it {
			return tab, true
		}
	}
	return nil, false
}

// NewTabZoneID is the zone id marking the trailing new-tab button, for
// hosts that hit-test against a zone manager.
func (c *Controller) NewTabZoneID() string { return c.newZoneID }

// TabAt returns the tab record at index.
func (c *Controller) TabAt(index int) (*Tab, bool) {
	if index < 0 || index >= len(c.tabs) {
		return nil, false
	}
	return c.tabs[index], true
}

// TabAtPoint maps strip-local coordinates to the tab under them, honoring
// the sticky prefix overlay and the scroll offset.
func (c *Controller) TabAtPoint(x, row int) (*Tab, bool) {
	if c.wrapped {
		for _, tab := range c.tabs {
			if tab.Bounds.Row == row && x >= tab.Bounds.X && x < tab.Bounds.X+tab.Bounds.W {
				return tab, true
			}
		}
		return nil, false
	}
	if row != 0 {
		return nil, false
	}

	stickyWidth, _, stickyActive := stickyLayout(c.pane.StickyCount(), c.sizing(), c.tabsViewportWidth())
	if stickyActive && x < stickyWidth {
		return c.TabAt(x / perTabWidth(c.sizing()))
	}
	contentX := x + c.viewport.ScrollOffset()
	for _, tab := range c.tabs {
		if stickyActive && tab.Sticky {
			continue
		}
		if contentX >= tab.Bounds.X && contentX < tab.Bounds.X+tab.Bounds.W {
			return tab, true
		}
	}
	return nil, false
}

// HandleClick activates the tab at index.
func (c *Controller) HandleClick(index int) {
	c.pane.ActivateAt(index)
	c.ws.FocusPane(c.pane)
}

// HandleDoubleClick toggles pinning for the tab at index.
func (c *Controller) HandleDoubleClick(index int) {
	it, ok := c.pane.GetItemAt(index)
	if !ok {
		return
	}
	if c.pane.IsPinned(it) {
		c.pane.UnpinItem(it)
	} else {
		c.pane.PinItem(it)
	}
}

// HandleMiddleClick closes the tab at index unless the close policy
// vetoes it. Reports whether a close happened.
func (c *Controller) HandleMiddleClick(index int) bool {
	it, ok := c.pane.GetItemAt(index)
	if !ok {
		return false
	}
	if c.policy != nil && !c.policy.CanClose(it) {
		return false
	}
	c.pane.CloseItem(it)
	return true
}

// HandleKey maps strip navigation keys to activation changes. Key names
// follow the host's KeyMsg strings.
func (c *Controller) HandleKey(key string) bool {
	n := c.pane.Count()
	if n == 0 {
		return false
	}
	idx := c.pane.IndexOf(c.pane.ActiveItem())
	switch key {
	case "left":
		if idx > 0 {
			c.pane.ActivateAt(idx - 1)
			return true
		}
	case "right":
		if idx < n-1 {
			c.pane.ActivateAt(idx + 1)
			return true
		}
	case "home":
		c.pane.ActivateAt(0)
		return true
	case "end":
		c.pane.ActivateAt(n - 1)
		return true
	}
	return false
}

// HandleWheel turns wheel motion over the strip into tab switching. The
// configured modifier inverts the setting: with switching on, holding it
// falls through to plain scrolling; with switching off, holding it
// switches. Reports whether the event was consumed.
func (c *Controller) HandleWheel(ev WheelEvent) bool {
	if c.pane.Count() < 2 || c.pane.ActiveItem() == nil {
		return false
	}
	if c.cfg.Wheel.SwitchTabs == ev.Modifier {
		return false
	}

	delta := ev.DeltaX + ev.DeltaY
	mag := math.Abs(delta)
	threshold := float64(c.cfg.Wheel.Threshold)
	if threshold <= 0 {
		threshold = 1
	}
	if mag < threshold {
		return false
	}

	// Harder flicks relax the debounce proportionally, so a slow precise
	// notch switches once while a violent flick can step several tabs.
	debounce := time.Duration(c.cfg.Wheel.DebounceMS) * time.Millisecond
	if mag > threshold {
		debounce = time.Duration(float64(debounce) * threshold / mag)
	}
	now := c.clock.Now()
	if now.Sub(c.lastWheel) < debounce {
		return false
	}

	dir := 1
	if delta < 0 {
		dir = -1
	}
	next := c.pane.IndexOf(c.pane.ActiveItem()) + dir
	if next < 0 || next >= c.pane.Count() {
		return false
	}
	c.lastWheel = now
	c.pane.ActivateAt(next)
	return true
}

// TickSpinner advances the saving spinner one frame. Hosts drive it from
// their animation timer.
func (c *Controller) TickSpinner() { c.spinner++ }

func (c *Controller) sizing() Sizing { return ParseSizing(c.cfg.Pinned.Sizing) }

func (c *Controller) tabsViewportWidth() int {
	w := c.dims.Width - toolbarWidth
	if w < 0 {
		w = 0
	}
	return w
}

// measure assigns single-row bounds from current labels and sizing.
func (c *Controller) measure() {
	sizing := c.sizing()
	x := 0
	for _, tab := range c.tabs {
		w := c.tabWidth(tab, sizing)
		tab.Bounds = Bounds{X: x, W: w}
		x += w
	}
}

func (c *Controller) contentWidth() int {
	if len(c.tabs) == 0 {
		return 0
	}
	last := c.tabs[len(c.tabs)-1]
	return last.Bounds.X + last.Bounds.W
}

// tabWidth measures one tab. Sticky tabs take their sizing-mode cell; the
// rest size to their label within the configured bounds.
func (c *Controller) tabWidth(tab *Tab, sizing Sizing) int {
	if tab.Sticky {
		if w := perTabWidth(sizing); w > 0 {
			return w
		}
	}
	w := labelCellWidth(tab.Label) + 4 // 2 padding, 1 gap, 1 state glyph
	if min := c.cfg.Tabs.MinWidth; w < min {
		w = min
	}
	if max := c.cfg.Tabs.MaxWidth; max > 0 && w > max {
		w = max
	}
	return w
}

// rowCount flows the measured tab widths into rows of the given width.
// The last tab reserves the toolbar's cells next to it, mirroring the
// wrap decision's fit test.
func (c *Controller) rowCount(width int) int {
	if width <= 0 || len(c.tabs) == 0 {
		return 1
	}
	rows, x := 1, 0
	for i, tab := range c.tabs {
		need := tab.Bounds.W
		if i == len(c.tabs)-1 {
			need += toolbarWidth
		}
		if x > 0 && x+need > width {
			rows++
			x = 0
		}
		x += tab.Bounds.W
	}
	return rows
}

// flowRows lays the tabs into wrapped rows, writing Row and X per tab.
func (c *Controller) flowRows(width int) {
	if width <= 0 {
		return
	}
	row, x := 0, 0
	for i, tab := range c.tabs {
		need := tab.Bounds.W
		if i == len(c.tabs)-1 {
			need += c.trailingMargin
		}
		if x > 0 && x+need > width {
			row++
			x = 0
		}
		tab.Bounds.X = x
		tab.Bounds.Row = row
		x += tab.Bounds.W
	}
}

func (c *Controller) activeTab() (*Tab, bool) {
	for _, tab := range c.tabs {
		if tab.Active {
			return tab, true
		}
	}
	return nil, false
}
