package listview

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Store is the remote system of record behind a View.
type Store[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, payload any) error
	Update(ctx context.Context, id int64, payload any) error
	Delete(ctx context.Context, id int64) error
}

// PageState is the zero-based page index and the page size.
type PageState struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// View caches one remote collection and narrows it with filters and paging.
//
// The Collection is only ever replaced as a whole. Every write that the
// remote store accepts is followed by a full Load instead of a local patch,
// so the cache converges on the store at the price of one extra round trip.
type View[T any] struct {
	name   string
	store  Store[T]
	fields []Field[T]
	byName map[string]int
	opts   options

	mu       sync.RWMutex
	records  []T
	criteria map[string]criterion
	page     PageState
	inflight int
	issued   uint64
	err      error
	onLoad   []func([]T)
}

// New builds a view over store restricted to the given field set. Field
// names must be unique.
func New[T any](name string, store Store[T], fields []Field[T], opts ...Option) (*View[T], error) {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}

	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("listview %s: field %d has no name", name, i)
		}
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("listview %s: duplicate field %q", name, f.Name)
		}
		if (f.Kind == KindRange && f.Time == nil) || (f.Kind != KindRange && f.Text == nil) {
			return nil, fmt.Errorf("listview %s: field %q has no accessor", name, f.Name)
		}
		byName[f.Name] = i
	}

	return &View[T]{
		name:     name,
		store:    store,
		fields:   slices.Clone(fields),
		byName:   byName,
		opts:     o,
		records:  []T{},
		criteria: map[string]criterion{},
		page:     PageState{Size: o.pageSize},
	}, nil
}

func (v *View[T]) Name() string { return v.name }

// Fields lists the recognized filter fields in declaration order.
func (v *View[T]) Fields() []Field[T] { return slices.Clone(v.fields) }

// OnLoad registers fn to run, outside the view lock, with every Collection
// a Load applies.
func (v *View[T]) OnLoad(fn func([]T)) {
	v.mu.Lock()
	v.onLoad = append(v.onLoad, fn)
	v.mu.Unlock()
}

// Load fetches the full collection and replaces the cache with it. When ctx
// ends before the store answers, the cache and Err are left as they were.
func (v *View[T]) Load(ctx context.Context) error {
	if v.store == nil {
		return ErrNoStore
	}

	v.mu.Lock()
	v.inflight++
	v.issued++
	seq := v.issued
	v.mu.Unlock()

	records, err := v.store.List(ctx)

	v.mu.Lock()
	v.inflight--
	if v.opts.staleGuard && seq < v.issued {
		v.mu.Unlock()
		v.opts.log.Debugw("stale load dropped", "view", v.name, "seq", seq)
		if err != nil {
			return fmt.Errorf("load %s: %w", v.name, err)
		}
		return nil
	}

	// A caller that gave up says nothing about the remote store.
	if err != nil && ctx.Err() != nil {
		v.mu.Unlock()
		v.opts.log.Debugw("load abandoned", "view", v.name, "err", err)
		return fmt.Errorf("load %s: %w", v.name, err)
	}

	if err != nil {
		v.err = err
		if v.opts.onError == ClearOnError {
			v.records = []T{}
		}
		v.mu.Unlock()
		v.opts.log.Warnw("load failed", "view", v.name, "err", err)
		return fmt.Errorf("load %s: %w", v.name, err)
	}

	if records == nil {
		records = []T{}
	}
	v.records = records
	v.err = nil
	hooks := slices.Clone(v.onLoad)
	v.mu.Unlock()

	v.opts.log.Debugw("loaded", "view", v.name, "records", len(records))
	for _, fn := range hooks {
		fn(slices.Clone(records))
	}
	return nil
}

// Restore installs records as the Collection without asking the remote
// store, e.g. from a persisted snapshot at startup.
func (v *View[T]) Restore(records []T) {
	if records == nil {
		records = []T{}
	}
	v.mu.Lock()
	v.records = slices.Clone(records)
	v.err = nil
	v.mu.Unlock()
}

// SetFilter sets one field of the criteria and moves back to the first page.
// A zero Value removes the constraint.
func (v *View[T]) SetFilter(name string, val Value) error {
	i, ok := v.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	c, err := v.fields[i].compile(val, v.opts.loc)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if val.IsZero() {
		delete(v.criteria, name)
	} else {
		v.criteria[name] = c
	}
	v.page.Index = 0
	return nil
}

// ClearFilters drops every constraint and moves back to the first page.
func (v *View[T]) ClearFilters() {
	v.mu.Lock()
	v.criteria = map[string]criterion{}
	v.page.Index = 0
	v.mu.Unlock()
}

// Filters returns the active criteria keyed by field name.
func (v *View[T]) Filters() map[string]Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]Value, len(v.criteria))
	for k, c := range v.criteria {
		out[k] = c.value
	}
	return out
}

func (v *View[T]) SetPage(index int) {
	if index < 0 {
		index = 0
	}
	v.mu.Lock()
	v.page.Index = index
	v.mu.Unlock()
}

// SetPageSize changes the page size and moves back to the first page.
func (v *View[T]) SetPageSize(size int) {
	if size <= 0 {
		size = v.opts.pageSize
	}
	v.mu.Lock()
	v.page = PageState{Index: 0, Size: size}
	v.mu.Unlock()
}

func (v *View[T]) Page() PageState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

// PageCount is the number of pages the filtered collection spans.
func (v *View[T]) PageCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return pageCount(len(v.filter(v.criteria)), v.page.Size)
}

func (v *View[T]) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.inflight > 0
}

// Err is the error of the last applied load, nil after a successful one.
func (v *View[T]) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// Records returns a copy of the whole cached Collection.
func (v *View[T]) Records() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.records)
}

// VisibleRecords returns the current page of records matching every active
// filter, in Collection order.
func (v *View[T]) VisibleRecords() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return paginate(v.filter(v.criteria), v.page)
}

// Snapshot is the view state a presentation layer renders.
type Snapshot[T any] struct {
	Items   []T              `json:"items"`
	Total   int              `json:"total"`
	Loaded  int              `json:"loaded"`
	Page    int              `json:"page"`
	Size    int              `json:"size"`
	Pages   int              `json:"pages"`
	Loading bool             `json:"loading"`
	Error   string           `json:"error,omitempty"`
	Filters map[string]Value `json:"filters,omitempty"`
}

func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	filters := make(map[string]Value, len(v.criteria))
	for k, c := range v.criteria {
		filters[k] = c.value
	}
	return v.snapshot(v.criteria, filters, v.page)
}

// Query evaluates filters and paging against the cached Collection without
// touching the view's own criteria or page, so concurrent readers with
// different filters do not disturb each other.
func (v *View[T]) Query(filters map[string]Value, page PageState) (Snapshot[T], error) {
	crit := make(map[string]criterion, len(filters))
	active := make(map[string]Value, len(filters))
	for name, val := range filters {
		i, ok := v.byName[name]
		if !ok {
			return Snapshot[T]{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		c, err := v.fields[i].compile(val, v.opts.loc)
		if err != nil {
			return Snapshot[T]{}, err
		}
		if !val.IsZero() {
			crit[name] = c
			active[name] = val
		}
	}
	if page.Size <= 0 {
		page.Size = v.opts.pageSize
	}
	if page.Index < 0 {
		page.Index = 0
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot(crit, active, page), nil
}

func (v *View[T]) snapshot(crit map[string]criterion, filters map[string]Value, page PageState) Snapshot[T] {
	matched := v.filter(crit)
	s := Snapshot[T]{
		Items:   paginate(matched, page),
		Total:   len(matched),
		Loaded:  len(v.records),
		Page:    page.Index,
		Size:    page.Size,
		Pages:   pageCount(len(matched), page.Size),
		Loading: v.inflight > 0,
	}
	if v.err != nil {
		s.Error = v.err.Error()
	}
	if len(filters) > 0 {
		s.Filters = filters
	}
	return s
}

// filter must be called with the lock held.
func (v *View[T]) filter(crit map[string]criterion) []T {
	if len(crit) == 0 {
		return v.records
	}
	out := make([]T, 0, len(v.records))
	for _, rec := range v.records {
		if v.matches(rec, crit) {
			out = append(out, rec)
		}
	}
	return out
}

func (v *View[T]) matches(rec T, crit map[string]criterion) bool {
	for name, c := range crit {
		if !v.fields[v.byName[name]].match(rec, c) {
			return false
		}
	}
	return true
}

func paginate[T any](records []T, page PageState) []T {
	size := page.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	start := page.Index * size
	if start >= len(records) {
		return []T{}
	}
	end := min(start+size, len(records))
	return slices.Clone(records[start:end])
}

func pageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	return (total + size - 1) / size
}
