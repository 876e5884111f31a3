// Package workspace owns the ordered collections of open items behind each
// pane of the deck. Everything here is single-threaded: panes are mutated
// only from the host's event loop, and every mutation is announced through
// the workspace's listener fanout so views can react.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/b/tabdeck/pkg/labels"
)

type ItemID string

type Kind int

const (
	KindFile Kind = iota
	KindTerminal
)

// Item is one open document or terminal view. Display state lives here;
// the backing content (file preview, pty session) is owned by the host and
// keyed by ID.
type Item struct {
	ID        ItemID
	Kind      Kind
	Singleton bool

	name  string
	dir   string
	title string
	force bool

	dirty  bool
	saving bool
}

func newItem(kind Kind, name, dir, title string) *Item {
	return &Item{
		ID:    ItemID(uuid.NewString()),
		Kind:  kind,
		name:  name,
		dir:   dir,
		title: title,
	}
}

// NewFileItem opens a file path as an item. The directory becomes the
// description that label dedup works from.
func NewFileItem(path string) *Item {
	return newItem(KindFile, filepath.Base(path), filepath.Dir(path), path)
}

// NewTerminalItem wraps a shell session. Terminals are singletons: a live
// pty cannot exist in two panes at once, so copies degrade to moves.
func NewTerminalItem(name, cwd string) *Item {
	it := newItem(KindTerminal, name, cwd, name+" ("+cwd+")")
	it.Singleton = true
	return it
}

func (it *Item) clone() *Item {
	dup := *it
	dup.ID = ItemID(uuid.NewString())
	return &dup
}

func (it *Item) Name() string { return it.name }

func (it *Item) Description(v labels.Verbosity) string {
	switch v {
	case labels.Long:
		return it.dir
	case labels.Medium:
		return tildify(it.dir)
	}
	return filepath.Base(it.dir)
}

func (it *Item) Title(v labels.Verbosity) string {
	if v == labels.Short {
		return it.name
	}
	return it.title
}

func (it *Item) ForceDescription() bool { return it.force }

func (it *Item) Dirty() bool { return it.dirty }

func (it *Item) Saving() bool { return it.saving }

// Dir returns the directory backing the item's description.
func (it *Item) Dir() string { return it.dir }

func tildify(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}
	return path
}
