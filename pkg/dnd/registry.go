// Package dnd carries drag payloads between strip components and resolves
// drops into workspace operations. Payloads ride a typed registry instead
// of the terminal's selection buffer, so a drag can cross pane boundaries
// without serializing anything.
package dnd

import (
	"sync"

	"github.com/b/tabdeck/pkg/workspace"
)

// ItemPayload identifies a single dragged tab.
type ItemPayload struct {
	Item       *workspace.Item
	SourcePane workspace.PaneID
}

// PanePayload identifies a whole pane dragged by its handle.
type PanePayload struct {
	Pane workspace.PaneID
}

// TreePayload carries sidebar entry ids dragged onto a strip.
type TreePayload struct {
	IDs []string
}

// Registry holds at most one payload per kind. A payload lives until it is
// explicitly cleared, not until the gesture ends, so drags can traverse
// several drop targets. Every Set arms the matching clear for EndGesture;
// the gesture owner must call EndGesture on all exit paths (drop, cancel,
// leave) so stale payloads never bleed into the next drag.
type Registry struct {
	mu    sync.Mutex
	item  *ItemPayload
	pane  *PanePayload
	tree  *TreePayload
	armed []func()
}

// Default is the process-wide registry shared by every strip.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) SetItem(p ItemPayload) {
	r.mu.Lock()
	r.item = &p
	r.armed = append(r.armed, r.ClearItem)
	r.mu.Unlock()
}

func (r *Registry) Item() (ItemPayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.item == nil {
		return ItemPayload{}, false
	}
	return *r.item, true
}

func (r *Registry) HasItem() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.item != nil
}

func (r *Registry) ClearItem() {
	r.mu.Lock()
	r.item = nil
	r.mu.Unlock()
}

func (r *Registry) SetPane(p PanePayload) {
	r.mu.Lock()
	r.pane = &p
	r.armed = append(r.armed, r.ClearPane)
	r.mu.Unlock()
}

func (r *Registry) Pane() (PanePayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pane == nil {
		return PanePayload{}, false
	}
	return *r.pane, true
}

func (r *Registry) HasPane() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pane != nil
}

func (r *Registry) ClearPane() {
	r.mu.Lock()
	r.pane = nil
	r.mu.Unlock()
}

func (r *Registry) SetTree(p TreePayload) {
	r.mu.Lock()
	r.tree = &p
	r.armed = append(r.armed, r.ClearTree)
	r.mu.Unlock()
}

func (r *Registry) Tree() (TreePayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		return TreePayload{}, false
	}
	return *r.tree, true
}

func (r *Registry) HasTree() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree != nil
}

func (r *Registry) ClearTree() {
	r.mu.Lock()
	r.tree = nil
	r.mu.Unlock()
}

// EndGesture runs every clear armed since the last call. Clears run
// outside the lock; running one twice is harmless.
func (r *Registry) EndGesture() {
	r.mu.Lock()
	hooks := r.armed
	r.armed = nil
	r.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// ClearAll empties every slot regardless of arming.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	r.item = nil
	r.pane = nil
	r.tree = nil
	r.armed = nil
	r.mu.Unlock()
}
