// Package strip renders and lays out the document tab strip of a pane:
// label refresh, wrap-vs-scroll layout, minimal active-tab reveal, drag
// and drop, and pointer/keyboard/wheel input.
package strip

// Sizing controls how pinned tabs are measured inside the sticky prefix.
type Sizing int

const (
	SizingNormal  Sizing = iota // pinned tabs flow like regular tabs
	SizingCompact               // fixed narrow cells, marker plus a hint of the name
	SizingShrink                // fixed reduced-width cells
)

const (
	compactTabWidth = 6
	shrinkTabWidth  = 12

	// minFitWidth is the narrowest body that still positions a sticky
	// prefix. Below it pinned tabs scroll with everything else.
	minFitWidth = 16
)

func ParseSizing(s string) Sizing {
	switch s {
	case "compact":
		return SizingCompact
	case "shrink":
		return SizingShrink
	default:
		return SizingNormal
	}
}

func (s Sizing) String() string {
	switch s {
	case SizingCompact:
		return "compact"
	case SizingShrink:
		return "shrink"
	default:
		return "normal"
	}
}

// perTabWidth is the sticky cell width for a sizing mode. Normal
// contributes nothing: the prefix has no fixed positioning then.
func perTabWidth(s Sizing) int {
	switch s {
	case SizingCompact:
		return compactTabWidth
	case SizingShrink:
		return shrinkTabWidth
	default:
		return 0
	}
}

// Viewport is the geometry collaborator the layout engine writes to. The
// engine only computes target dimensions and offsets; it never measures
// the screen itself.
type Viewport interface {
	Width() int
	ContentWidth() int
	SetDimensions(width, contentWidth int)
	ScrollOffset() int
	SetScrollOffset(offset int)
}

// ScrollState is the plain value Viewport used by the renderer and tests.
// Offsets clamp to the scrollable range like any real scroller.
type ScrollState struct {
	width        int
	contentWidth int
	scrollLeft   int
}

func (s *ScrollState) Width() int        { return s.width }
func (s *ScrollState) ContentWidth() int { return s.contentWidth }

func (s *ScrollState) SetDimensions(width, contentWidth int) {
	s.width = width
	s.contentWidth = contentWidth
	s.SetScrollOffset(s.scrollLeft)
}

func (s *ScrollState) ScrollOffset() int { return s.scrollLeft }

func (s *ScrollState) SetScrollOffset(offset int) {
	max := s.contentWidth - s.width
	if max < 0 {
		max = 0
	}
	if offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}
	s.scrollLeft = offset
}

// wrapInput carries everything the wrap decision reads. Widths are cells,
// heights are rows.
type wrapInput struct {
	Enabled      bool // administrative wrap setting
	Wrapped      bool // state going into this pass
	ContentWidth int  // total width of all tabs on a single row
	ViewportW    int
	WrappedRows  int // rows the tabs occupy when flowed at ViewportW
	HeightBudget int // rows the strip may grow to
	LastTabWidth int
	ToolbarWidth int
}

type wrapResult struct {
	Wrapped        bool
	TrailingMargin int // reserved after the last tab so the toolbar never overlaps it
	SnapContent    bool
}

// computeWrapState is the first layout phase: decide whether tabs wrap
// onto multiple rows. Turning ON requires overflow plus the last tab
// fitting on a wrapped row next to the toolbar; turning OFF requires
// having been wrapped before this pass, which is what keeps the decision
// from oscillating on a steady input.
func computeWrapState(in wrapInput) wrapResult {
	if !in.Enabled {
		return wrapResult{}
	}

	lastTabFits := in.LastTabWidth+in.ToolbarWidth <= in.ViewportW
	wrapped := in.Wrapped || (in.ContentWidth > in.ViewportW && lastTabFits)
	if in.Wrapped {
		switch {
		case in.WrappedRows > in.HeightBudget:
			wrapped = false
		case in.ContentWidth <= in.ViewportW && in.WrappedRows <= 1:
			// Content fits a single row again, nothing left to wrap.
			wrapped = false
		case !lastTabFits:
			wrapped = false
		}
	}

	res := wrapResult{Wrapped: wrapped}
	if wrapped {
		res.TrailingMargin = in.ToolbarWidth
	}
	if wrapped && !in.Wrapped {
		// Snap content width to the viewport once on the transition so no
		// horizontal scroll range lingers while rows reflow.
		res.SnapContent = true
	}
	return res
}

// markRowEnds tags the final tab of each visual row, scanning in order for
// row changes. Exactly one tab per row carries the tag.
func markRowEnds(tabs []*Tab) {
	for i, tab := range tabs {
		tab.LastInRow = i == len(tabs)-1 || tabs[i+1].Bounds.Row != tab.Bounds.Row
	}
}

// revealInput is one reveal pass. Tab positions are cells from the strip
// origin in content coordinates, before scrolling.
type revealInput struct {
	StickyCount  int
	Sizing       Sizing
	ViewportW    int
	ContentWidth int
	ActiveTabX   int // -1 when the active tab has no geometry
	ActiveTabW   int
	ActiveSticky bool
	ForceReveal  bool
	BlockReveal  bool
}

// revealActiveTab is the second layout phase, run only when phase one
// decided against wrapping: update the viewport dimensions and scroll
// minimally so the active tab is fully visible past the sticky prefix.
func revealActiveTab(vp Viewport, in revealInput) {
	stickyWidth := in.StickyCount * perTabWidth(in.Sizing)
	available := in.ViewportW - stickyWidth
	if in.StickyCount > 0 && available < minFitWidth {
		// Degradation valve: the pane is too narrow to reserve a prefix,
		// so sticky positioning switches off for this pass.
		available = in.ViewportW
		stickyWidth = 0
	}

	oldWidth, oldContent := vp.Width(), vp.ContentWidth()
	vp.SetDimensions(in.ViewportW, in.ContentWidth)
	dimensionsChanged := oldWidth != in.ViewportW || oldContent != in.ContentWidth

	switch {
	case in.BlockReveal:
		return
	case in.ActiveTabX < 0 || in.ActiveTabW <= 0:
		return
	case in.ActiveSticky && in.Sizing != SizingNormal:
		// The active tab is pinned in place, scrolling cannot reveal it.
		return
	case !dimensionsChanged && !in.ForceReveal:
		return
	}

	scrollX := vp.ScrollOffset()
	fits := in.ActiveTabW <= available
	adjustedX := in.ActiveTabX - stickyWidth

	if fits && scrollX+available < adjustedX+in.ActiveTabW {
		// Overflowing right: scroll by exactly the overflow amount.
		vp.SetScrollOffset(scrollX + (adjustedX + in.ActiveTabW - (scrollX + available)))
	} else if scrollX > adjustedX || !fits {
		// Overflowing left, or too wide to fit: align its left edge.
		vp.SetScrollOffset(adjustedX)
	}
}

// stickyLayout resolves the effective sticky geometry for rendering and
// hit testing, applying the same degradation rule as the reveal pass.
func stickyLayout(stickyCount int, sizing Sizing, viewportW int) (stickyWidth, available int, active bool) {
	per := perTabWidth(sizing)
	stickyWidth = stickyCount * per
	available = viewportW - stickyWidth
	if stickyCount > 0 && available < minFitWidth {
		return 0, viewportW, false
	}
	return stickyWidth, available, per > 0 && stickyCount > 0
}
