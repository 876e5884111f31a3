package dnd

import (
	"context"
	"runtime"

	"github.com/b/tabdeck/pkg/workspace"
)

// Action names the workspace operation a drop resolved to.
type Action int

const (
	ActionNone Action = iota
	ActionMergePanes
	ActionMoveItem
	ActionCopyItem
	ActionOpenTree
	ActionOpenExternal
)

func (a Action) String() string {
	switch a {
	case ActionMergePanes:
		return "merge_panes"
	case ActionMoveItem:
		return "move_item"
	case ActionCopyItem:
		return "copy_item"
	case ActionOpenTree:
		return "open_tree"
	case ActionOpenExternal:
		return "open_external"
	default:
		return "none"
	}
}

// TreeItemSource resolves a dragged sidebar id into zero or more open
// requests. Resolution may hit disk, hence the context. ok=false means the
// id no longer resolves and the drop should skip it.
type TreeItemSource interface {
	ResolveTreeItem(ctx context.Context, id string) ([]workspace.OpenRequest, bool)
}

// DropOptions restricts what a ResourceDropper may do with external data.
type DropOptions struct {
	// AllowWindowOpen permits spawning a new top-level surface for the
	// dropped resource. Strip drops always pass false: the drop landed on
	// an existing pane, so the resource belongs there.
	AllowWindowOpen bool
}

// ResourceDropper handles raw drag data from outside the process, e.g. a
// file path dragged in from another terminal.
type ResourceDropper interface {
	HandleDrop(ctx context.Context, data string, pane *workspace.Pane, index int, opts DropOptions) error
}

// DropEvent is one completed drop gesture on a strip position.
type DropEvent struct {
	TargetPane  workspace.PaneID
	TargetIndex int

	// CopyModifier is the platform copy chord, already mapped through
	// CopyModifierHeld by the input layer.
	CopyModifier bool

	// ExternalTypes lists the payload types an out-of-process drag
	// advertises. Empty for internal drags.
	ExternalTypes []string
	ExternalData  string
}

// CopyModifierHeld maps raw modifier state to the platform copy
// convention: alt on Darwin, ctrl everywhere else.
func CopyModifierHeld(ctrl, alt bool) bool {
	if runtime.GOOS == "darwin" {
		return alt
	}
	return ctrl
}

// Resolver turns drop events into workspace mutations. Payload kinds are
// checked in fixed priority order: pane handle, single item, tree items,
// external data. Exactly one action results per drop.
type Resolver struct {
	reg     *Registry
	ws      *workspace.Workspace
	tree    TreeItemSource
	dropper ResourceDropper
}

func NewResolver(reg *Registry, ws *workspace.Workspace, tree TreeItemSource, dropper ResourceDropper) *Resolver {
	return &Resolver{reg: reg, ws: ws, tree: tree, dropper: dropper}
}

// Resolve applies the highest-priority payload to the drop target. The
// consumed slot is cleared on every path out, including failed ones, so a
// dead payload cannot replay on the next drop.
func (r *Resolver) Resolve(ctx context.Context, ev DropEvent) (Action, error) {
	dst, ok := r.ws.PaneByID(ev.TargetPane)
	if !ok {
		return ActionNone, nil
	}

	if payload, ok := r.reg.Pane(); ok {
		defer r.reg.ClearPane()
		src, ok := r.ws.PaneByID(payload.Pane)
		if !ok {
			return ActionNone, nil
		}
		// A pane cannot copy-merge into itself.
		mode := workspace.MergeMove
		if ev.CopyModifier && src != dst {
			mode = workspace.MergeCopy
		}
		r.ws.MergePanes(src, dst, workspace.MergeOptions{Index: ev.TargetIndex, Mode: mode})
		r.ws.FocusPane(dst)
		return ActionMergePanes, nil
	}

	if payload, ok := r.reg.Item(); ok {
		defer r.reg.ClearItem()
		src, ok := r.ws.PaneByID(payload.SourcePane)
		if !ok {
			return ActionNone, nil
		}
		// Singletons force MOVE no matter what modifier is held; a copy
		// would mint a second instance of something that must stay unique.
		if ev.CopyModifier && src != dst && !payload.Item.Singleton {
			src.CopyItem(payload.Item, dst, ev.TargetIndex)
			r.ws.FocusPane(dst)
			return ActionCopyItem, nil
		}
		src.MoveItem(payload.Item, dst, ev.TargetIndex)
		r.ws.FocusPane(dst)
		return ActionMoveItem, nil
	}

	if payload, ok := r.reg.Tree(); ok {
		defer r.reg.ClearTree()
		if r.tree == nil {
			return ActionNone, nil
		}
		var reqs []workspace.OpenRequest
		for _, id := range payload.IDs {
			resolved, ok := r.tree.ResolveTreeItem(ctx, id)
			if !ok {
				continue
			}
			for _, req := range resolved {
				req.Pinned = true
				req.Index = ev.TargetIndex
				reqs = append(reqs, req)
			}
		}
		if len(reqs) == 0 {
			return ActionNone, nil
		}
		if err := r.ws.OpenBatch(dst, reqs, workspace.OpenBatchOptions{ValidateTrust: true}); err != nil {
			return ActionNone, err
		}
		r.ws.FocusPane(dst)
		return ActionOpenTree, nil
	}

	if len(ev.ExternalTypes) > 0 && r.dropper != nil {
		err := r.dropper.HandleDrop(ctx, ev.ExternalData, dst, ev.TargetIndex, DropOptions{AllowWindowOpen: false})
		if err != nil {
			return ActionNone, err
		}
		r.ws.FocusPane(dst)
		return ActionOpenExternal, nil
	}

	return ActionNone, nil
}

// IsNoopDrop reports whether the in-flight single-item drag would land
// where it already sits: on its own index, or past the end of its own pane
// while already last. Affordance layers use this to suppress drop feedback
// for gestures that could not change anything.
func IsNoopDrop(reg *Registry, ws *workspace.Workspace, pane workspace.PaneID, targetIndex int) bool {
	payload, ok := reg.Item()
	if !ok {
		return false
	}
	if payload.SourcePane != pane {
		return false
	}
	src, ok := ws.PaneByID(pane)
	if !ok {
		return false
	}
	idx := src.IndexOf(payload.Item)
	if idx < 0 {
		return false
	}
	if targetIndex == idx {
		return true
	}
	return idx == src.Count()-1 && targetIndex >= src.Count()
}
