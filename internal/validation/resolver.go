package validation

import (
	"slices"

	"layoutpub/pkg/domain"
)

// resolver looks up one asset kind as it would be after publication: the
// candidate version for ids in the publication set, the official version in
// the target branch for everything else.
type resolver[T domain.Versioned[T]] struct {
	kind     domain.AssetKind
	reader   domain.AssetReader[T]
	branch   domain.Branch
	set      domain.ValidationVersions
	versions *NullableCache[domain.IntID, domain.RowVersion]
}

func newResolver[T domain.Versioned[T]](kind domain.AssetKind, reader domain.AssetReader[T], branch domain.Branch, set domain.ValidationVersions) *resolver[T] {
	return &resolver[T]{
		kind:     kind,
		reader:   reader,
		branch:   branch,
		set:      set,
		versions: NewNullableCache[domain.IntID, domain.RowVersion](),
	}
}

func (r *resolver[T]) candidate(id domain.IntID) (T, bool) {
	var zero T
	rv, ok := r.set.VersionOf(r.kind, id)
	if !ok {
		return zero, false
	}
	return r.reader.Fetch(rv)
}

func (r *resolver[T]) cancelled(id domain.IntID) bool {
	row, ok := r.candidate(id)
	return ok && row.Header().Cancelled
}

func (r *resolver[T]) inSet(id domain.IntID) bool { return r.set.Contains(r.kind, id) }

func (r *resolver[T]) officialVersion(id domain.IntID) (domain.RowVersion, bool) {
	return r.reader.Version(r.branch.Official(), id)
}

// get resolves id. A cancelled candidate falls back to what stays visible once
// the design's own official row is removed.
func (r *resolver[T]) get(id domain.IntID) (T, bool) {
	var zero T
	if row, ok := r.candidate(id); ok {
		if !row.Header().Cancelled {
			return row, true
		}
		rv, ok := r.reader.Version(domain.MainOfficial, id)
		if !ok {
			return zero, false
		}
		return r.reader.Fetch(rv)
	}
	rv, ok := r.versions.Get(id, r.officialVersion)
	if !ok {
		return zero, false
	}
	return r.reader.Fetch(rv)
}

func (r *resolver[T]) getAll(ids []domain.IntID) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if row, ok := r.get(id); ok {
			out = append(out, row)
		}
	}
	return out
}

// preload caches the official versions of ids outside the publication set.
func (r *resolver[T]) preload(ids []domain.IntID) {
	outside := slices.DeleteFunc(slices.Clone(ids), r.inSet)
	r.versions.Preload(outside, func(missing []domain.IntID) map[domain.IntID]domain.RowVersion {
		out := make(map[domain.IntID]domain.RowVersion, len(missing))
		for _, id := range missing {
			if rv, ok := r.officialVersion(id); ok {
				out[id] = rv
			}
		}
		return out
	})
}

// cacheOfficial remembers official versions found by a reverse lookup.
func (r *resolver[T]) cacheOfficial(versions []domain.RowVersion) {
	found := make(map[domain.IntID]domain.RowVersion, len(versions))
	for _, rv := range versions {
		if !r.inSet(rv.ID) {
			found[rv.ID] = rv
		}
	}
	r.versions.PutMissing(found)
}

// candidates returns the non-cancelled candidate rows of the publication set.
func (r *resolver[T]) candidates() []T {
	versions := r.set.Of(r.kind)
	out := make([]T, 0, len(versions))
	for _, rv := range versions {
		if row, ok := r.reader.Fetch(rv); ok && !row.Header().Cancelled {
			out = append(out, row)
		}
	}
	return out
}

// draft reads the branch draft directly, ignoring the publication set. It is
// used to name assets that are referenced but not being published.
func (r *resolver[T]) draft(id domain.IntID) (T, bool) { return r.reader.Get(r.branch.Draft(), id) }

// union merges official ids from a reverse lookup with the ids of matching
// candidates, keeping first-seen order.
func union(official []domain.RowVersion, candidates []domain.IntID) []domain.IntID {
	out := make([]domain.IntID, 0, len(official)+len(candidates))
	for _, rv := range official {
		if !slices.Contains(out, rv.ID) {
			out = append(out, rv.ID)
		}
	}
	for _, id := range candidates {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
