package dnd

import (
	"testing"

	"github.com/b/tabdeck/pkg/workspace"
)

func TestRegistry_SlotsAreIndependent(t *testing.T) {
	reg := NewRegistry()
	it := workspace.NewFileItem("/tmp/a.go")

	reg.SetItem(ItemPayload{Item: it, SourcePane: "p1"})
	reg.SetPane(PanePayload{Pane: "p2"})
	reg.SetTree(TreePayload{IDs: []string{"/tmp/dir"}})

	if !reg.HasItem() || !reg.HasPane() || !reg.HasTree() {
		t.Fatal("all three slots should hold payloads")
	}

	reg.ClearPane()
	if reg.HasPane() {
		t.Error("pane slot should be empty after ClearPane")
	}
	if !reg.HasItem() || !reg.HasTree() {
		t.Error("clearing one slot must not touch the others")
	}

	got, ok := reg.Item()
	if !ok || got.Item != it || got.SourcePane != "p1" {
		t.Errorf("Item() = %+v, %v", got, ok)
	}
}

func TestRegistry_EmptyReads(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Item(); ok {
		t.Error("empty registry reported an item payload")
	}
	if _, ok := reg.Pane(); ok {
		t.Error("empty registry reported a pane payload")
	}
	if _, ok := reg.Tree(); ok {
		t.Error("empty registry reported a tree payload")
	}
}

func TestRegistry_EndGestureClearsArmed(t *testing.T) {
	reg := NewRegistry()
	reg.SetItem(ItemPayload{Item: workspace.NewFileItem("/tmp/a.go"), SourcePane: "p1"})
	reg.SetTree(TreePayload{IDs: []string{"x"}})

	reg.EndGesture()
	if reg.HasItem() || reg.HasTree() {
		t.Error("EndGesture must clear every slot set during the gesture")
	}

	// A second EndGesture with nothing armed is a no-op.
	reg.SetPane(PanePayload{Pane: "p9"})
	reg.EndGesture()
	if reg.HasPane() {
		t.Error("pane slot set after the first gesture should clear with the second")
	}
	reg.EndGesture()
}

func TestRegistry_ClearAll(t *testing.T) {
	reg := NewRegistry()
	reg.SetItem(ItemPayload{Item: workspace.NewFileItem("/tmp/a.go"), SourcePane: "p1"})
	reg.SetPane(PanePayload{Pane: "p2"})
	reg.ClearAll()
	if reg.HasItem() || reg.HasPane() || reg.HasTree() {
		t.Error("ClearAll left a payload behind")
	}
}
