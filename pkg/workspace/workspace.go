package workspace

import (
	"errors"
	"path/filepath"

	"github.com/google/uuid"
)

var ErrUntrustedBatch = errors.New("batch open denied by trust gate")

// Workspace is the ordered set of panes plus the listener fanout. One
// workspace per process; all mutations happen on the host event loop.
type Workspace struct {
	panes   []*Pane
	focused *Pane

	// TrustGate approves batches of incoming resources before they open.
	// Nil means no gate is installed, so validated opens are denied.
	TrustGate func(reqs []OpenRequest) bool

	listeners    map[int]Listener
	nextListener int
}

func New() *Workspace {
	return &Workspace{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns its remove func. Events are
// delivered synchronously in mutation order.
func (w *Workspace) Subscribe(fn Listener) func() {
	id := w.nextListener
	w.nextListener++
	w.listeners[id] = fn
	return func() { delete(w.listeners, id) }
}

func (w *Workspace) emit(ev Event) {
	for _, fn := range w.listeners {
		fn(ev)
	}
}

// NewPane appends an empty pane. The first pane is focused automatically.
func (w *Workspace) NewPane() *Pane {
	p := &Pane{ID: PaneID(uuid.NewString()), ws: w}
	w.panes = append(w.panes, p)
	if w.focused == nil {
		w.focused = p
	}
	return p
}

func (w *Workspace) Panes() []*Pane {
	return append([]*Pane(nil), w.panes...)
}

func (w *Workspace) PaneByID(id PaneID) (*Pane, bool) {
	for _, p := range w.panes {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// PaneOf finds the pane currently holding the item.
func (w *Workspace) PaneOf(it *Item) (*Pane, bool) {
	for _, p := range w.panes {
		if p.IndexOf(it) >= 0 {
			return p, true
		}
	}
	return nil, false
}

func (w *Workspace) FocusPane(p *Pane) {
	if p == nil || w.focused == p {
		return
	}
	prev := w.focused
	w.focused = p
	ev := Event{Type: EventPaneFocused, Pane: p.ID, Index: -1}
	if prev != nil {
		ev.From = prev.ID
	}
	w.emit(ev)
}

func (w *Workspace) FocusedPane() *Pane { return w.focused }

// RemovePane drops the pane from the workspace. Focus falls back to the
// first remaining pane.
func (w *Workspace) RemovePane(p *Pane) {
	for i, have := range w.panes {
		if have == p {
			w.panes = append(w.panes[:i], w.panes[i+1:]...)
			break
		}
	}
	w.emit(Event{Type: EventPaneRemoved, Pane: p.ID, Index: -1})
	if w.focused == p {
		w.focused = nil
		if len(w.panes) > 0 {
			w.FocusPane(w.panes[0])
		}
	}
}

type MergeMode int

const (
	MergeMove MergeMode = iota
	MergeCopy
)

type MergeOptions struct {
	Index int // insertion point for unpinned items; negative appends
	Mode  MergeMode
}

// MergePanes folds every item of src into dst. Pinned items join dst's
// sticky prefix; the rest insert in order at Index. Copy mode duplicates
// items, except singletons which always move. A src emptied by a move
// merge is removed from the workspace.
func (w *Workspace) MergePanes(src, dst *Pane, opts MergeOptions) {
	if src == nil || dst == nil || src == dst {
		return
	}

	appendMode := opts.Index < 0
	index := opts.Index

	var last *Item
	for _, it := range src.Items() {
		fromIdx := src.IndexOf(it)
		wasPinned := fromIdx < src.sticky

		copied := opts.Mode == MergeCopy && !it.Singleton
		moved := it
		if copied {
			moved = it.clone()
		} else {
			src.removeAt(fromIdx)
			if src.active == it {
				src.active = nil
			}
		}

		var at int
		if wasPinned {
			at = dst.insert(moved, dst.sticky, true)
		} else {
			// Pinned inserts above shift everything after the prefix, so
			// append mode re-reads the end each time.
			if appendMode {
				index = dst.Count()
			}
			at = dst.insert(moved, index, false)
			index = at + 1
		}

		evType := EventItemMoved
		if copied {
			evType = EventItemOpened
		}
		w.emit(Event{Type: evType, Pane: dst.ID, Item: moved, Index: at, From: src.ID})
		last = moved
	}

	if src.active == nil && src.Count() > 0 {
		src.ActivateItem(src.items[0])
	}

	w.emit(Event{Type: EventPaneMerged, Pane: dst.ID, Index: -1, From: src.ID})
	if last != nil {
		dst.ActivateItem(last)
	}
	if opts.Mode == MergeMove && src.Count() == 0 {
		w.RemovePane(src)
	}
}

// OpenRequest describes one item to open, typically resolved from a drag.
type OpenRequest struct {
	Name   string
	Path   string
	Kind   Kind
	Pinned bool
	Index  int
	Active bool
}

type OpenBatchOptions struct {
	ValidateTrust bool
}

// OpenBatch opens every request into the pane as one operation. Content
// arriving from outside the process must set ValidateTrust; a denial
// aborts the whole batch with no partial opens.
func (w *Workspace) OpenBatch(p *Pane, reqs []OpenRequest, opts OpenBatchOptions) error {
	if opts.ValidateTrust {
		if w.TrustGate == nil || !w.TrustGate(reqs) {
			return ErrUntrustedBatch
		}
	}
	for _, req := range reqs {
		var it *Item
		switch req.Kind {
		case KindTerminal:
			it = NewTerminalItem(req.Name, req.Path)
		default:
			it = NewFileItem(req.Path)
			if req.Name != "" {
				it.name = req.Name
			}
		}
		p.OpenItem(it, OpenOptions{Index: req.Index, Pinned: req.Pinned, Active: req.Active})
	}
	return nil
}

// SetDirty flips the item's dirty flag and notifies the owning pane.
func (w *Workspace) SetDirty(it *Item, dirty bool) {
	if it == nil || it.dirty == dirty {
		return
	}
	it.dirty = dirty
	w.emitItemState(EventDirtyChanged, it)
}

func (w *Workspace) SetSaving(it *Item, saving bool) {
	if it == nil || it.saving == saving {
		return
	}
	it.saving = saving
	w.emitItemState(EventSavingChanged, it)
}

// RenameItem changes the display name. Terminal titles follow the name.
func (w *Workspace) RenameItem(it *Item, name string) {
	if it == nil || name == "" || it.name == name {
		return
	}
	it.name = name
	if it.Kind == KindTerminal {
		it.title = name + " (" + it.dir + ")"
	} else {
		it.title = filepath.Join(it.dir, name)
	}
	w.emitItemState(EventLabelChanged, it)
}

func (w *Workspace) SetForceDescription(it *Item, force bool) {
	if it == nil || it.force == force {
		return
	}
	it.force = force
	w.emitItemState(EventLabelChanged, it)
}

func (w *Workspace) emitItemState(t EventType, it *Item) {
	pane, ok := w.PaneOf(it)
	if !ok {
		return
	}
	w.emit(Event{Type: t, Pane: pane.ID, Item: it, Index: pane.IndexOf(it)})
}
