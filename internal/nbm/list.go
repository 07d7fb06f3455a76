package nbm

import (
	"fmt"
	"iter"
	"strings"
)

// Span selects part of a list: a single index or the half-open range
// [Start, End). End < 0 means "through the end of the list".
type Span struct {
	Start int
	End   int
}

// SpanAll selects every item.
func SpanAll() Span { return Span{Start: 0, End: -1} }

// SpanOf selects the single item at i.
func SpanOf(i int) Span { return Span{Start: i, End: i + 1} }

// SpanRange selects the items in [start, end).
func SpanRange(start, end int) Span { return Span{Start: start, End: end} }

func (s Span) resolve(n int) (int, int, error) {
	end := s.End
	if end < 0 {
		end = n
	}
	if s.Start < 0 || s.Start > end || end > n {
		return 0, 0, fmt.Errorf("%w: span [%d:%d] of %d items", ErrIndexOutOfRange, s.Start, s.End, n)
	}
	return s.Start, end, nil
}

// ResourceList is a named, ordered collection of resources. Insertion order
// is preserved and duplicates are allowed. A ResourceList is not safe for
// concurrent mutation.
type ResourceList struct {
	Name  string
	items []Resource
	env   env
}

// NewResourceList creates an empty list. The options are used for list-level
// logging and for resources rebuilt by Import and Load.
func NewResourceList(name string, opts ...Option) *ResourceList {
	return &ResourceList{Name: name, env: newEnv(opts)}
}

func (l *ResourceList) Len() int { return len(l.items) }

// Add appends a resource.
func (l *ResourceList) Add(r Resource) {
	l.items = append(l.items, r)
}

// Extend appends several resources in order.
func (l *ResourceList) Extend(rs ...Resource) {
	l.items = append(l.items, rs...)
}

// Clear removes every resource.
func (l *ResourceList) Clear() {
	l.items = nil
}

// Index returns the position of the first resource equal to r, or -1.
func (l *ResourceList) Index(r Resource) int {
	for i, item := range l.items {
		if item.Equal(r) {
			return i
		}
	}
	return -1
}

// Count returns how many resources are equal to r.
func (l *ResourceList) Count(r Resource) int {
	n := 0
	for _, item := range l.items {
		if item.Equal(r) {
			n++
		}
	}
	return n
}

// Remove deletes the first resource equal to r.
func (l *ResourceList) Remove(r Resource) error {
	i := l.Index(r)
	if i < 0 {
		return fmt.Errorf("%w: %s in list %q", ErrNotFound, r.Name(), l.Name)
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return nil
}

// At returns the resource at i.
func (l *ResourceList) At(i int) (Resource, error) {
	if i < 0 || i >= len(l.items) {
		return nil, fmt.Errorf("%w: %d of %d items", ErrIndexOutOfRange, i, len(l.items))
	}
	return l.items[i], nil
}

// Slice returns a copy of the resources selected by s.
func (l *ResourceList) Slice(s Span) ([]Resource, error) {
	start, end, err := s.resolve(len(l.items))
	if err != nil {
		return nil, err
	}
	out := make([]Resource, end-start)
	copy(out, l.items[start:end])
	return out, nil
}

// Pop removes and returns the resource at i.
func (l *ResourceList) Pop(i int) (Resource, error) {
	r, err := l.At(i)
	if err != nil {
		return nil, err
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return r, nil
}

// PopSpan removes and returns the resources selected by s.
func (l *ResourceList) PopSpan(s Span) ([]Resource, error) {
	removed, err := l.Slice(s)
	if err != nil {
		return nil, err
	}
	start, end, _ := s.resolve(len(l.items))
	l.items = append(l.items[:start], l.items[end:]...)
	return removed, nil
}

// All iterates over the resources with their positions.
func (l *ResourceList) All() iter.Seq2[int, Resource] {
	return func(yield func(int, Resource) bool) {
		for i, r := range l.items {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Backup backs up the selected resources one at a time, in list order,
// yielding each outcome as soon as it is known. A failing resource does not
// stop the run; a consumer that stops iterating abandons the rest.
func (l *ResourceList) Backup(s Span, opts CopyOptions) (iter.Seq2[Result, Resource], error) {
	return l.run(s, "backup", func(r Resource) Result { return r.Backup(opts) })
}

// Restore restores the selected resources, like Backup.
func (l *ResourceList) Restore(s Span, opts CopyOptions) (iter.Seq2[Result, Resource], error) {
	return l.run(s, "restore", func(r Resource) Result { return r.Restore(opts) })
}

func (l *ResourceList) run(s Span, op string, do func(Resource) Result) (iter.Seq2[Result, Resource], error) {
	selected, err := l.Slice(s)
	if err != nil {
		return nil, err
	}
	logger := l.env.logger
	return func(yield func(Result, Resource) bool) {
		logger.Info(op+" started", "list", l.Name, "items", len(selected))
		for _, r := range selected {
			if !yield(do(r), r) {
				logger.Warn(op+" abandoned", "list", l.Name)
				return
			}
		}
		logger.Info(op+" finished", "list", l.Name)
	}, nil
}

// Status reports, for every resource, whether a backup would copy anything.
func (l *ResourceList) Status(strict bool) iter.Seq2[Resource, bool] {
	return func(yield func(Resource, bool) bool) {
		for _, r := range l.items {
			if !yield(r, r.AreDifferent(strict)) {
				return
			}
		}
	}
}

// FilesOnly returns a new list with the same name holding only file resources.
func (l *ResourceList) FilesOnly() *ResourceList {
	return l.filter(func(r Resource) bool { return r.Kind() == KindFile })
}

// DirsOnly returns a new list with the same name holding only directory resources.
func (l *ResourceList) DirsOnly() *ResourceList {
	return l.filter(func(r Resource) bool { return r.Kind() == KindDir })
}

// Copy returns a list with the same name and resources and its own storage.
func (l *ResourceList) Copy() *ResourceList {
	return l.filter(func(Resource) bool { return true })
}

func (l *ResourceList) filter(keep func(Resource) bool) *ResourceList {
	out := &ResourceList{Name: l.Name, env: l.env}
	for _, r := range l.items {
		if keep(r) {
			out.items = append(out.items, r)
		}
	}
	return out
}

// TotalFiles counts files across all resources; directories count their members.
func (l *ResourceList) TotalFiles() (int, error) {
	total := 0
	for _, r := range l.items {
		n, err := r.FileCount()
		if err != nil {
			return 0, fmt.Errorf("counting files of %s: %w", r.Name(), err)
		}
		total += n
	}
	return total, nil
}

// TotalSize sums the sizes of all resources.
func (l *ResourceList) TotalSize() (int64, error) {
	var total int64
	for _, r := range l.items {
		n, err := r.Size()
		if err != nil {
			return 0, fmt.Errorf("measuring %s: %w", r.Name(), err)
		}
		total += n
	}
	return total, nil
}

// Report renders every resource's report followed by the list totals.
func (l *ResourceList) Report() string {
	if len(l.items) == 0 {
		return "The list of files is empty"
	}

	var b strings.Builder
	for i, r := range l.items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Report(i))
	}

	files, size := "unavailable", "unavailable"
	if n, err := l.TotalFiles(); err == nil {
		files = fmt.Sprint(n)
	}
	if n, err := l.TotalSize(); err == nil {
		size = FormatSize(n)
	}
	fmt.Fprintf(&b, "\n\nTOTAL FILES: %s\nTOTAL SIZE:  %s", files, size)
	return b.String()
}

// Records returns the serialized form of every resource, in order.
func (l *ResourceList) Records() []Record {
	recs := make([]Record, len(l.items))
	for i, r := range l.items {
		recs[i] = r.Record()
	}
	return recs
}

// listFromRecords rebuilds a list, giving every resource the list's options.
func listFromRecords(name string, recs []Record, e env) (*ResourceList, error) {
	l := &ResourceList{Name: name, env: e}
	opts := []Option{WithLogger(e.logger), WithClock(e.clock), WithIgnore(e.ignore)}
	for i, rec := range recs {
		r, err := FromRecord(rec, opts...)
		if err != nil {
			return nil, fmt.Errorf("resource %d: %w", i, err)
		}
		l.items = append(l.items, r)
	}
	return l, nil
}
