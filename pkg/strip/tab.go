package strip

import (
	"github.com/b/tabdeck/pkg/labels"
	"github.com/b/tabdeck/pkg/workspace"
)

// Bounds is a tab's laid-out geometry in cells. X is measured from the
// strip origin in content coordinates, before any scrolling.
type Bounds struct {
	X   int
	W   int
	Row int
}

// Tab is the per-position record for one strip slot. Item reference,
// label snapshot, derived visual state and geometry all live in the one
// record, so position i means the same tab in every table.
type Tab struct {
	Index     int
	Item      *workspace.Item
	Label     labels.Label
	Sticky    bool
	Active    bool
	Dirty     bool
	Saving    bool
	LastInRow bool
	Bounds    Bounds

	// ZoneID is the tab's pointer hit region, stable per position. It
	// stops being emitted the moment the record is trimmed.
	ZoneID string
}
