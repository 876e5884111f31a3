package workspace

type PaneID string

// Pane holds an ordered list of open items with one active item and a
// leading prefix of pinned items. IsSticky(i) is structural: a pinned item
// is exactly an item at index < StickyCount().
type Pane struct {
	ID PaneID

	ws     *Workspace
	items  []*Item
	active *Item
	sticky int
}

type OpenOptions struct {
	Index  int // negative appends
	Pinned bool
	Active bool
}

// OpenItem inserts the item and returns its index. Opening an item already
// in the pane just activates it when requested.
func (p *Pane) OpenItem(it *Item, opts OpenOptions) int {
	if existing := p.IndexOf(it); existing >= 0 {
		if opts.Active {
			p.ActivateItem(it)
		}
		return existing
	}

	index := opts.Index
	if index < 0 {
		index = len(p.items)
	}
	index = p.insert(it, index, opts.Pinned)
	p.ws.emit(Event{Type: EventItemOpened, Pane: p.ID, Item: it, Index: index})

	if opts.Active || p.active == nil {
		p.ActivateItem(it)
	}
	return index
}

// CloseItem removes the item. When the active item closes, its successor
// at the same index takes over, falling back to the new last item.
func (p *Pane) CloseItem(it *Item) {
	idx := p.IndexOf(it)
	if idx < 0 {
		return
	}
	p.removeAt(idx)

	wasActive := p.active == it
	if wasActive {
		p.active = nil
		if len(p.items) > 0 {
			next := idx
			if next >= len(p.items) {
				next = len(p.items) - 1
			}
			p.active = p.items[next]
		}
	}

	p.ws.emit(Event{Type: EventItemClosed, Pane: p.ID, Item: it, Index: idx})
	if wasActive && p.active != nil {
		p.ws.emit(Event{Type: EventItemActivated, Pane: p.ID, Item: p.active, Index: p.IndexOf(p.active)})
	}
}

// MoveItem moves the item to index in target (same pane reorders).
// Crossing the sticky boundary updates pinned state: an item dropped
// inside the prefix joins it, one dropped past the prefix leaves it.
func (p *Pane) MoveItem(it *Item, target *Pane, index int) {
	from := p.IndexOf(it)
	if from < 0 {
		return
	}
	if target == nil || target == p {
		p.moveWithin(it, from, index)
		return
	}

	p.removeAt(from)
	p.fixActiveAfterRemoval(it, from)

	at := target.insert(it, index, index >= 0 && index < target.sticky)
	target.ws.emit(Event{Type: EventItemMoved, Pane: target.ID, Item: it, Index: at, From: p.ID})
	target.ActivateItem(it)
}

func (p *Pane) moveWithin(it *Item, from, to int) {
	wasPinned := from < p.sticky
	p.removeAt(from)
	if to > len(p.items) {
		to = len(p.items)
	}
	if to < 0 {
		to = 0
	}
	pinned := to < p.sticky || (wasPinned && to <= p.sticky)
	at := p.insert(it, to, pinned)
	if at == from && pinned == wasPinned {
		return
	}
	p.ws.emit(Event{Type: EventItemMoved, Pane: p.ID, Item: it, Index: at, From: p.ID})
}

// CopyItem duplicates the item into target at index and returns the copy.
// Singletons cannot be duplicated, so the original moves instead.
func (p *Pane) CopyItem(it *Item, target *Pane, index int) *Item {
	if p.IndexOf(it) < 0 {
		return nil
	}
	if target == nil {
		target = p
	}
	if it.Singleton {
		p.MoveItem(it, target, index)
		return it
	}

	dup := it.clone()
	at := target.insert(dup, index, index >= 0 && index < target.sticky)
	target.ws.emit(Event{Type: EventItemOpened, Pane: target.ID, Item: dup, Index: at, From: p.ID})
	target.ActivateItem(dup)
	return dup
}

// PinItem appends the item to the sticky prefix.
func (p *Pane) PinItem(it *Item) {
	idx := p.IndexOf(it)
	if idx < 0 || idx < p.sticky {
		return
	}
	p.removeAt(idx)
	at := p.insert(it, p.sticky, true)
	p.ws.emit(Event{Type: EventItemPinned, Pane: p.ID, Item: it, Index: at})
}

// UnpinItem moves the item to the first slot after the sticky prefix.
func (p *Pane) UnpinItem(it *Item) {
	idx := p.IndexOf(it)
	if idx < 0 || idx >= p.sticky {
		return
	}
	p.removeAt(idx)
	at := p.insert(it, p.sticky, false)
	p.ws.emit(Event{Type: EventItemPinned, Pane: p.ID, Item: it, Index: at})
}

func (p *Pane) ActivateItem(it *Item) {
	if it == nil || p.IndexOf(it) < 0 || p.active == it {
		return
	}
	p.active = it
	p.ws.emit(Event{Type: EventItemActivated, Pane: p.ID, Item: it, Index: p.IndexOf(it)})
}

// ActivateAt activates the item at index, clamped to the valid range.
func (p *Pane) ActivateAt(index int) {
	if len(p.items) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(p.items) {
		index = len(p.items) - 1
	}
	p.ActivateItem(p.items[index])
}

func (p *Pane) GetItemAt(index int) (*Item, bool) {
	if index < 0 || index >= len(p.items) {
		return nil, false
	}
	return p.items[index], true
}

func (p *Pane) IndexOf(it *Item) int {
	for i, have := range p.items {
		if have == it {
			return i
		}
	}
	return -1
}

func (p *Pane) IsActive(it *Item) bool { return p.active == it && it != nil }

func (p *Pane) IsPinned(it *Item) bool {
	idx := p.IndexOf(it)
	return idx >= 0 && idx < p.sticky
}

func (p *Pane) IsSticky(index int) bool { return index >= 0 && index < p.sticky }

func (p *Pane) Count() int { return len(p.items) }

func (p *Pane) StickyCount() int { return p.sticky }

func (p *Pane) ActiveItem() *Item { return p.active }

// Items returns a snapshot of the pane's items in order.
func (p *Pane) Items() []*Item {
	return append([]*Item(nil), p.items...)
}

// insert places the item honoring the sticky prefix and returns the final
// index. Pinned inserts clamp into the prefix and grow it; unpinned
// inserts clamp past it.
func (p *Pane) insert(it *Item, index int, pinned bool) int {
	if pinned {
		if index < 0 || index > p.sticky {
			index = p.sticky
		}
		p.items = insertAt(p.items, index, it)
		p.sticky++
	} else {
		if index < p.sticky {
			index = p.sticky
		}
		if index > len(p.items) {
			index = len(p.items)
		}
		p.items = insertAt(p.items, index, it)
	}
	return index
}

func (p *Pane) removeAt(i int) {
	if i < p.sticky {
		p.sticky--
	}
	p.items = append(p.items[:i], p.items[i+1:]...)
}

func (p *Pane) fixActiveAfterRemoval(it *Item, removedAt int) {
	if p.active != it {
		return
	}
	p.active = nil
	if len(p.items) == 0 {
		return
	}
	next := removedAt
	if next >= len(p.items) {
		next = len(p.items) - 1
	}
	p.active = p.items[next]
	p.ws.emit(Event{Type: EventItemActivated, Pane: p.ID, Item: p.active, Index: next})
}

func insertAt(items []*Item, index int, it *Item) []*Item {
	items = append(items, nil)
	copy(items[index+1:], items[index:])
	items[index] = it
	return items
}
