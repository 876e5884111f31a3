// Package labels computes the display labels for a strip of tabs,
// deduplicating descriptions across tabs that share a name.
package labels

// Verbosity selects how much of an item's description is shown.
type Verbosity int

const (
	Short Verbosity = iota
	Medium
	Long
)

// ParseVerbosity maps a config string to a Verbosity, defaulting to Short.
func ParseVerbosity(s string) Verbosity {
	switch s {
	case "medium":
		return Medium
	case "long":
		return Long
	}
	return Short
}

// Describable is the contract items must satisfy to be labeled.
type Describable interface {
	Name() string
	Description(v Verbosity) string
	Title(v Verbosity) string
	ForceDescription() bool
}

// Label is one tab's computed label snapshot. Labels are recomputed from
// scratch on every change, never patched.
type Label struct {
	Item             Describable
	Name             string
	Description      string
	Title            string
	Aria             string
	ForceDescription bool
}

// Equal reports label equality ignoring item identity, so callers can
// detect label-only changes.
func (l Label) Equal(o Label) bool {
	return l.Name == o.Name &&
		l.Description == o.Description &&
		l.Title == o.Title &&
		l.Aria == o.Aria &&
		l.ForceDescription == o.ForceDescription
}

type Options struct {
	Verbosity         Verbosity
	ShortenDuplicates bool
}

// Compute builds one label per item, in item order, and returns the index
// of the active item's label (-1 when absent). With ShortenDuplicates set,
// descriptions are deduplicated across tabs sharing a name.
func Compute(items []Describable, active Describable, opts Options) ([]Label, int) {
	labs := make([]Label, len(items))
	activeIndex := -1
	for i, it := range items {
		desc := it.Description(opts.Verbosity)
		labs[i] = Label{
			Item:             it,
			Name:             it.Name(),
			Description:      desc,
			Title:            it.Title(Long),
			Aria:             ariaFor(it.Name(), desc),
			ForceDescription: it.ForceDescription(),
		}
		if active != nil && it == active {
			activeIndex = i
		}
	}

	if opts.ShortenDuplicates {
		shortenDuplicateLabels(labs)
	}

	return labs, activeIndex
}

func ariaFor(name, description string) string {
	if description == "" {
		return name
	}
	return name + ", " + description
}

// shortenDuplicateLabels mutates descriptions in place so that tabs with
// the same name stay distinguishable with the least decoration possible.
func shortenDuplicateLabels(labs []Label) {
	byName := make(map[string][]int)
	var nameOrder []string
	for i := range labs {
		name := labs[i].Name
		if _, seen := byName[name]; !seen {
			nameOrder = append(nameOrder, name)
		}
		byName[name] = append(byName[name], i)
	}

	for _, name := range nameOrder {
		bucket := byName[name]

		// A lone name needs no description at all.
		if len(bucket) == 1 {
			l := &labs[bucket[0]]
			if !l.ForceDescription {
				l.Description = ""
			}
			continue
		}

		byDesc, descOrder := groupByDescription(labs, bucket)

		// Sub-groups sharing a short description only earn a bucket-wide
		// upgrade to long form when one of them disagrees in long form.
		useLong := false
		for _, desc := range descOrder {
			group := byDesc[desc]
			if useLong || len(group) < 2 {
				continue
			}
			first := labs[group[0]].Item.Description(Long)
			for _, idx := range group[1:] {
				if labs[idx].Item.Description(Long) != first {
					useLong = true
					break
				}
			}
		}

		if useLong {
			for _, idx := range bucket {
				labs[idx].Description = labs[idx].Item.Description(Long)
			}
			byDesc, descOrder = groupByDescription(labs, bucket)
		}

		// One distinct description left means it adds nothing.
		if len(descOrder) == 1 {
			for _, idx := range byDesc[descOrder[0]] {
				if !labs[idx].ForceDescription {
					labs[idx].Description = ""
				}
			}
			continue
		}

		shortened := ShortenPaths(descOrder)
		for di, desc := range descOrder {
			for _, idx := range byDesc[desc] {
				labs[idx].Description = shortened[di]
			}
		}
	}
}

func groupByDescription(labs []Label, bucket []int) (map[string][]int, []string) {
	byDesc := make(map[string][]int)
	var order []string
	for _, idx := range bucket {
		d := labs[idx].Description
		if _, seen := byDesc[d]; !seen {
			order = append(order, d)
		}
		byDesc[d] = append(byDesc[d], idx)
	}
	return byDesc, order
}
