package workspace

type EventType int

const (
	EventItemOpened EventType = iota
	EventItemClosed
	EventItemMoved
	EventItemActivated
	EventItemPinned
	EventDirtyChanged
	EventSavingChanged
	EventLabelChanged
	EventPaneMerged
	EventPaneFocused
	EventPaneRemoved
)

func (t EventType) String() string {
	switch t {
	case EventItemOpened:
		return "item_opened"
	case EventItemClosed:
		return "item_closed"
	case EventItemMoved:
		return "item_moved"
	case EventItemActivated:
		return "item_activated"
	case EventItemPinned:
		return "item_pinned"
	case EventDirtyChanged:
		return "dirty_changed"
	case EventSavingChanged:
		return "saving_changed"
	case EventLabelChanged:
		return "label_changed"
	case EventPaneMerged:
		return "pane_merged"
	case EventPaneFocused:
		return "pane_focused"
	case EventPaneRemoved:
		return "pane_removed"
	}
	return "unknown"
}

// Event describes one workspace mutation. Pane is the pane where the
// change landed; From is set for cross-pane moves, copies and merges.
type Event struct {
	Type  EventType
	Pane  PaneID
	Item  *Item
	Index int
	From  PaneID
}

// Listener receives events synchronously, in mutation order.
type Listener func(Event)
