package memory

import (
	"fmt"
	"maps"
	"slices"

	"layoutpub/pkg/domain"
)

// History is the retained row-version history of one asset id. Versions[i]
// holds version i+1. Official and Draft point at the version visible in each
// branch for that state.
type History[T any] struct {
	Versions   []T                   `json:"versions"`
	Official   map[domain.Branch]int `json:"official,omitempty"`
	Draft      map[domain.Branch]int `json:"draft,omitempty"`
	ExternalID string                `json:"externalId,omitempty"`
}

func (h *History[T]) clone() *History[T] {
	return &History[T]{
		Versions:   slices.Clone(h.Versions),
		Official:   maps.Clone(h.Official),
		Draft:      maps.Clone(h.Draft),
		ExternalID: h.ExternalID,
	}
}

// Table is the serialisable state of one asset kind.
type Table[T any] struct {
	NextID int64                         `json:"nextId"`
	Rows   map[domain.IntID]*History[T] `json:"rows"`
}

type table[T domain.Versioned[T]] struct {
	nextID int64
	rows   map[domain.IntID]*History[T]
}

func newTable[T domain.Versioned[T]]() table[T] {
	return table[T]{rows: make(map[domain.IntID]*History[T])}
}

func (t table[T]) clone() table[T] {
	rows := make(map[domain.IntID]*History[T], len(t.rows))
	for id, h := range t.rows {
		rows[id] = h.clone()
	}
	return table[T]{nextID: t.nextID, rows: rows}
}

func (t table[T]) export() Table[T] {
	c := t.clone()
	return Table[T]{NextID: c.nextID, Rows: c.rows}
}

func importTable[T domain.Versioned[T]](in Table[T]) table[T] {
	t := table[T]{nextID: in.NextID, rows: make(map[domain.IntID]*History[T], len(in.Rows))}
	for id, h := range in.Rows {
		if h == nil {
			continue
		}
		t.rows[id] = h.clone()
		if id.Value > t.nextID {
			t.nextID = id.Value
		}
	}
	return t
}

// visible resolves which version of h a layout context sees, following the
// draft → design official → main official fallback.
func visible[T any](h *History[T], lc domain.LayoutContext) (int, domain.LayoutContext, bool) {
	if lc.State == domain.Draft {
		if v, ok := h.Draft[lc.Branch]; ok {
			return v, lc.Branch.Draft(), true
		}
	}
	if !lc.Branch.IsMain() {
		if v, ok := h.Official[lc.Branch]; ok {
			return v, lc.Branch.Official(), true
		}
	}
	if v, ok := h.Official[domain.MainBranch]; ok {
		return v, domain.MainOfficial, true
	}
	return 0, domain.LayoutContext{}, false
}

// stamp returns the stored row with the read-time context and external id.
func (t table[T]) stamp(h *History[T], version int, lc domain.LayoutContext) T {
	row := h.Versions[version-1]
	header := row.Header()
	header.Context = lc
	header.ExternalID = h.ExternalID
	return row.WithHeader(header)
}

// contextOf finds the state a stored version currently holds, falling back to
// the context it was written in.
func contextOf[T domain.Versioned[T]](h *History[T], version int) domain.LayoutContext {
	for _, b := range sortedBranches(h.Official) {
		if h.Official[b] == version {
			return b.Official()
		}
	}
	for _, b := range sortedBranches(h.Draft) {
		if h.Draft[b] == version {
			return b.Draft()
		}
	}
	return h.Versions[version-1].Header().Context
}

func sortedBranches(m map[domain.Branch]int) []domain.Branch {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b domain.Branch) int {
		da, _ := a.Design()
		db, _ := b.Design()
		return domain.CompareIntIDs(da, db)
	})
	return keys
}

func (t table[T]) get(lc domain.LayoutContext, id domain.IntID) (T, bool) {
	var zero T
	h, ok := t.rows[id]
	if !ok {
		return zero, false
	}
	v, rowCtx, ok := visible(h, lc)
	if !ok {
		return zero, false
	}
	return t.stamp(h, v, rowCtx), true
}

func (t table[T]) version(lc domain.LayoutContext, id domain.IntID) (domain.RowVersion, bool) {
	h, ok := t.rows[id]
	if !ok {
		return domain.RowVersion{}, false
	}
	v, _, ok := visible(h, lc)
	if !ok {
		return domain.RowVersion{}, false
	}
	return domain.RowVersion{ID: id, Version: v}, true
}

func (t table[T]) fetch(rv domain.RowVersion) (T, bool) {
	var zero T
	h, ok := t.rows[rv.ID]
	if !ok || rv.Version < 1 || rv.Version > len(h.Versions) {
		return zero, false
	}
	return t.stamp(h, rv.Version, contextOf(h, rv.Version)), true
}

func (t table[T]) sortedIDs() []domain.IntID {
	ids := slices.Collect(maps.Keys(t.rows))
	slices.SortFunc(ids, domain.CompareIntIDs)
	return ids
}

func (t table[T]) list(lc domain.LayoutContext, includeDeleted bool) []T {
	var out []T
	for _, id := range t.sortedIDs() {
		row, ok := t.get(lc, id)
		if !ok {
			continue
		}
		if !includeDeleted && !row.Header().State.Exists() {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (t table[T]) draftVersions(branch domain.Branch) []domain.RowVersion {
	var out []domain.RowVersion
	for _, id := range t.sortedIDs() {
		if v, ok := t.rows[id].Draft[branch]; ok {
			out = append(out, domain.RowVersion{ID: id, Version: v})
		}
	}
	return out
}

func (t table[T]) hasDraft(branch domain.Branch, id domain.IntID) bool {
	h, ok := t.rows[id]
	if !ok {
		return false
	}
	_, ok = h.Draft[branch]
	return ok
}

// hasOfficial reports whether an official row is visible in the branch.
func (t table[T]) hasOfficial(branch domain.Branch, id domain.IntID) bool {
	_, ok := t.version(branch.Official(), id)
	return ok
}

// scan collects the visible rows whose keys intersect the wanted set.
func scan[T domain.Versioned[T], K comparable](t table[T], lc domain.LayoutContext, wanted []K, keys func(T) []K) map[K][]domain.RowVersion {
	want := make(map[K]struct{}, len(wanted))
	for _, k := range wanted {
		want[k] = struct{}{}
	}
	out := make(map[K][]domain.RowVersion)
	for _, id := range t.sortedIDs() {
		row, ok := t.get(lc, id)
		if !ok {
			continue
		}
		for _, k := range keys(row) {
			if _, hit := want[k]; hit {
				out[k] = append(out[k], row.Header().RowVersion())
			}
		}
	}
	return out
}

func (t *table[T]) saveDraft(branch domain.Branch, asset T, header domain.AssetHeader) (T, error) {
	var zero T
	var h *History[T]
	if header.ID.IsZero() {
		t.nextID++
		header.ID = domain.NewIntID(t.nextID)
		h = &History[T]{}
		t.rows[header.ID] = h
	} else {
		var ok bool
		if h, ok = t.rows[header.ID]; !ok {
			return zero, fmt.Errorf("%s %s: %w", asset.Kind(), header.ID, domain.ErrNotFound)
		}
	}
	header.Version = len(h.Versions) + 1
	header.Context = branch.Draft()
	header.ExternalID = h.ExternalID
	row := asset.WithHeader(header)
	h.Versions = append(h.Versions, row)
	if h.Draft == nil {
		h.Draft = make(map[domain.Branch]int)
	}
	h.Draft[branch] = header.Version
	return row, nil
}

func (t *table[T]) deleteDraft(branch domain.Branch, id domain.IntID) (domain.RowVersion, error) {
	h, ok := t.rows[id]
	if !ok {
		return domain.RowVersion{}, fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	v, ok := h.Draft[branch]
	if !ok {
		return domain.RowVersion{}, fmt.Errorf("%s in %s: %w", id, branch, domain.ErrNoDraft)
	}
	delete(h.Draft, branch)
	return domain.RowVersion{ID: id, Version: v}, nil
}

func (t *table[T]) publish(branch domain.Branch, rv domain.RowVersion) (T, error) {
	var zero T
	h, ok := t.rows[rv.ID]
	if !ok {
		return zero, fmt.Errorf("publish %s: %w", rv, domain.ErrNotFound)
	}
	v, ok := h.Draft[branch]
	if !ok {
		return zero, fmt.Errorf("publish %s in %s: %w", rv, branch, domain.ErrNoDraft)
	}
	if v != rv.Version {
		return zero, fmt.Errorf("publish %s in %s: draft is at version %d: %w", rv, branch, v, domain.ErrPrecondition)
	}
	delete(h.Draft, branch)
	if h.Official == nil {
		h.Official = make(map[domain.Branch]int)
	}
	if h.Versions[v-1].Header().Cancelled {
		delete(h.Official, branch)
	} else {
		h.Official[branch] = v
	}
	return t.stamp(h, v, branch.Official()), nil
}

func (t *table[T]) setExternalID(id domain.IntID, externalID string) error {
	h, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrNotFound)
	}
	h.ExternalID = externalID
	return nil
}
