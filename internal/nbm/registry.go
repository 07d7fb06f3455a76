package nbm

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
)

// ListRegistry holds every named resource list and which one, if any, is
// selected. List names are unique within a registry. Selection is advisory:
// it points at a member list and is cleared when that list leaves.
type ListRegistry struct {
	lists    []*ResourceList
	selected *ResourceList
	env      env
}

// NewListRegistry creates an empty registry. The options are passed on to
// lists and resources rebuilt by Load.
func NewListRegistry(opts ...Option) *ListRegistry {
	return &ListRegistry{env: newEnv(opts)}
}

func (g *ListRegistry) Len() int { return len(g.lists) }

// Get returns the list at i.
func (g *ListRegistry) Get(i int) (*ResourceList, error) {
	if i < 0 || i >= len(g.lists) {
		return nil, fmt.Errorf("%w: list %d of %d", ErrIndexOutOfRange, i, len(g.lists))
	}
	return g.lists[i], nil
}

// Find returns the list called name.
func (g *ListRegistry) Find(name string) (*ResourceList, bool) {
	for _, l := range g.lists {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// Index returns the position of l (by identity), or -1.
func (g *ListRegistry) Index(l *ResourceList) int {
	for i, item := range g.lists {
		if item == l {
			return i
		}
	}
	return -1
}

// All iterates over the lists with their positions.
func (g *ListRegistry) All() iter.Seq2[int, *ResourceList] {
	return func(yield func(int, *ResourceList) bool) {
		for i, l := range g.lists {
			if !yield(i, l) {
				return
			}
		}
	}
}

// Add appends l. The first list added to an empty registry becomes selected.
func (g *ListRegistry) Add(l *ResourceList) error {
	if l.Name == "" {
		return fmt.Errorf("%w: list name is empty", ErrValidation)
	}
	if _, ok := g.Find(l.Name); ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, l.Name)
	}

	g.lists = append(g.lists, l)
	if len(g.lists) == 1 {
		g.selected = l
	}
	g.env.logger.Info("list added", "list", l.Name)
	return nil
}

// Select marks the list at i as selected and returns it.
func (g *ListRegistry) Select(i int) (*ResourceList, error) {
	l, err := g.Get(i)
	if err != nil {
		return nil, err
	}
	g.selected = l
	return l, nil
}

// Selected returns the selected list, or nil.
func (g *ListRegistry) Selected() *ResourceList { return g.selected }

// SelectedIndex returns the position of the selected list, or -1.
func (g *ListRegistry) SelectedIndex() int {
	if g.selected == nil {
		return -1
	}
	return g.Index(g.selected)
}

// Remove deletes l from the registry, clearing the selection if l was selected.
func (g *ListRegistry) Remove(l *ResourceList) error {
	i := g.Index(l)
	if i < 0 {
		return fmt.Errorf("%w: list %q", ErrNotFound, l.Name)
	}
	_, err := g.Pop(i)
	return err
}

// Pop removes and returns the list at i, clearing the selection if it was selected.
func (g *ListRegistry) Pop(i int) (*ResourceList, error) {
	l, err := g.Get(i)
	if err != nil {
		return nil, err
	}
	g.lists = append(g.lists[:i], g.lists[i+1:]...)
	if g.selected == l || len(g.lists) == 0 {
		g.selected = nil
	}
	g.env.logger.Info("list removed", "list", l.Name)
	return l, nil
}

// Rename changes the name of the list at i, keeping names unique.
func (g *ListRegistry) Rename(i int, name string) error {
	l, err := g.Get(i)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: list name is empty", ErrValidation)
	}
	if other, ok := g.Find(name); ok && other != l {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	l.Name = name
	return nil
}

// Names returns the list names in order.
func (g *ListRegistry) Names() []string {
	names := make([]string, len(g.lists))
	for i, l := range g.lists {
		names[i] = l.Name
	}
	return names
}

// Mention renders one line per list, marking the selected one with '*'.
func (g *ListRegistry) Mention() string {
	if len(g.lists) == 0 {
		return "There are no lists."
	}

	var b strings.Builder
	for i, l := range g.lists {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := " "
		if l == g.selected {
			mark = "*"
		}
		name := truncate(l.Name, 32)
		if name != l.Name {
			name += "..."
		}
		fmt.Fprintf(&b, "%s [%d] - %q | %d elements", mark, i, name, l.Len())
	}
	return b.String()
}

// CountCopies counts the lists named "Copy N of <l.Name>".
func (g *ListRegistry) CountCopies(l *ResourceList) int {
	re := regexp.MustCompile(`^Copy \d+ of ` + regexp.QuoteMeta(l.Name) + `$`)
	n := 0
	for _, other := range g.lists {
		if re.MatchString(other.Name) {
			n++
		}
	}
	return n
}

// Duplicate adds a copy of the list at i named "Copy N of <name>", picking
// the first N that does not collide. The copy's resources are rebuilt from
// their records, so running the copy leaves the original untouched.
func (g *ListRegistry) Duplicate(i int) (*ResourceList, error) {
	src, err := g.Get(i)
	if err != nil {
		return nil, err
	}

	clone, err := listFromRecords(src.Name, src.Records(), src.env)
	if err != nil {
		return nil, err
	}
	for n := g.CountCopies(src) + 1; ; n++ {
		clone.Name = fmt.Sprintf("Copy %d of %s", n, src.Name)
		if _, taken := g.Find(clone.Name); !taken {
			break
		}
	}
	if err := g.Add(clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// Snapshot captures the registry for persistence.
func (g *ListRegistry) Snapshot() *RegistrySnapshot {
	snap := &RegistrySnapshot{
		Lists:    make([]ListSnapshot, len(g.lists)),
		Selected: g.SelectedIndex(),
	}
	for i, l := range g.lists {
		snap.Lists[i] = ListSnapshot{Name: l.Name, Resources: l.Records()}
	}
	return snap
}

// Save writes the registry to store.
func (g *ListRegistry) Save(store RegistryStore) error {
	if err := store.SaveRegistry(g.Snapshot()); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	g.env.logger.Info("registry saved", "lists", len(g.lists))
	return nil
}

// Load replaces the registry's contents with what store holds. An empty
// store leaves the registry untouched.
func (g *ListRegistry) Load(store RegistryStore) error {
	snap, err := store.LoadRegistry()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}
	if snap == nil {
		g.env.logger.Info("no saved registry, nothing loaded")
		return nil
	}
	return g.restoreSnapshot(snap)
}

func (g *ListRegistry) restoreSnapshot(snap *RegistrySnapshot) error {
	lists := make([]*ResourceList, 0, len(snap.Lists))
	seen := make(map[string]bool, len(snap.Lists))
	for _, ls := range snap.Lists {
		if seen[ls.Name] {
			return fmt.Errorf("%w: %q in stored registry", ErrDuplicateName, ls.Name)
		}
		seen[ls.Name] = true

		l, err := listFromRecords(ls.Name, ls.Resources, g.env)
		if err != nil {
			return fmt.Errorf("list %q: %w", ls.Name, err)
		}
		lists = append(lists, l)
	}

	g.lists = lists
	g.selected = nil
	if snap.Selected >= 0 && snap.Selected < len(lists) {
		g.selected = lists[snap.Selected]
	}
	g.env.logger.Info("registry loaded", "lists", len(lists))
	return nil
}
