package memory

import (
	"slices"

	"golang.org/x/text/unicode/norm"

	"layoutpub/pkg/domain"
)

// view exposes a read-only snapshot of the store state.
type view struct {
	state *memoryState
}

type reader[T domain.Versioned[T]] struct {
	t *table[T]
}

func (r reader[T]) Get(lc domain.LayoutContext, id domain.IntID) (T, bool) { return r.t.get(lc, id) }

func (r reader[T]) Version(lc domain.LayoutContext, id domain.IntID) (domain.RowVersion, bool) {
	return r.t.version(lc, id)
}

func (r reader[T]) Fetch(v domain.RowVersion) (T, bool) { return r.t.fetch(v) }

func (r reader[T]) List(lc domain.LayoutContext, includeDeleted bool) []T {
	return r.t.list(lc, includeDeleted)
}

func (r reader[T]) DraftVersions(branch domain.Branch) []domain.RowVersion {
	return r.t.draftVersions(branch)
}

func (r reader[T]) HasDraft(branch domain.Branch, id domain.IntID) bool {
	return r.t.hasDraft(branch, id)
}

func (r reader[T]) HasOfficial(branch domain.Branch, id domain.IntID) bool {
	return r.t.hasOfficial(branch, id)
}

func (v *view) TrackNumbers() domain.AssetReader[domain.TrackNumber] {
	return reader[domain.TrackNumber]{t: &v.state.trackNumbers}
}

func (v *view) ReferenceLines() domain.AssetReader[domain.ReferenceLine] {
	return reader[domain.ReferenceLine]{t: &v.state.referenceLines}
}

func (v *view) LocationTracks() domain.AssetReader[domain.LocationTrack] {
	return reader[domain.LocationTrack]{t: &v.state.locationTracks}
}

func (v *view) Switches() domain.AssetReader[domain.Switch] {
	return reader[domain.Switch]{t: &v.state.switches}
}

func (v *view) KmPosts() domain.AssetReader[domain.KmPost] {
	return reader[domain.KmPost]{t: &v.state.kmPosts}
}

func one(id domain.IntID) []domain.IntID { return []domain.IntID{id} }

func (v *view) KmPostsByTrackNumbers(lc domain.LayoutContext, ids []domain.IntID) map[domain.IntID][]domain.RowVersion {
	return scan(v.state.kmPosts, lc, ids, func(k domain.KmPost) []domain.IntID {
		if k.TrackNumberID == nil {
			return nil
		}
		return one(*k.TrackNumberID)
	})
}

func (v *view) LocationTracksByTrackNumbers(lc domain.LayoutContext, ids []domain.IntID) map[domain.IntID][]domain.RowVersion {
	return scan(v.state.locationTracks, lc, ids, func(t domain.LocationTrack) []domain.IntID {
		return one(t.TrackNumberID)
	})
}

// ReferenceLinesByTrackNumbers returns the single reference line of each track
// number. Should more than one match, the lowest id wins.
func (v *view) ReferenceLinesByTrackNumbers(lc domain.LayoutContext, ids []domain.IntID) map[domain.IntID]domain.RowVersion {
	all := scan(v.state.referenceLines, lc, ids, func(r domain.ReferenceLine) []domain.IntID {
		return one(r.TrackNumberID)
	})
	out := make(map[domain.IntID]domain.RowVersion, len(all))
	for tn, versions := range all {
		out[tn] = versions[0]
	}
	return out
}

func (v *view) LocationTracksBySwitches(lc domain.LayoutContext, ids []domain.IntID) map[domain.IntID][]domain.RowVersion {
	return scan(v.state.locationTracks, lc, ids, domain.LocationTrack.SwitchIDs)
}

func (v *view) LocationTracksByDuplicateOf(lc domain.LayoutContext, ids []domain.IntID) map[domain.IntID][]domain.RowVersion {
	return scan(v.state.locationTracks, lc, ids, func(t domain.LocationTrack) []domain.IntID {
		if t.DuplicateOf == nil {
			return nil
		}
		return one(*t.DuplicateOf)
	})
}

func normalizeNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = norm.NFC.String(n)
	}
	return out
}

// byName rekeys normalised lookups back to the names the caller asked for.
func byName(names []string, found map[string][]domain.RowVersion) map[string][]domain.RowVersion {
	out := make(map[string][]domain.RowVersion)
	for _, n := range names {
		if versions, ok := found[norm.NFC.String(n)]; ok {
			out[n] = versions
		}
	}
	return out
}

func (v *view) TrackNumbersByNumbers(lc domain.LayoutContext, numbers []string) map[string][]domain.RowVersion {
	found := scan(v.state.trackNumbers, lc, normalizeNames(numbers), func(t domain.TrackNumber) []string {
		return []string{norm.NFC.String(t.Number)}
	})
	return byName(numbers, found)
}

func (v *view) SwitchesByNames(lc domain.LayoutContext, names []string) map[string][]domain.RowVersion {
	found := scan(v.state.switches, lc, normalizeNames(names), func(s domain.Switch) []string {
		return []string{norm.NFC.String(s.Name)}
	})
	return byName(names, found)
}

func (v *view) LocationTracksByNames(lc domain.LayoutContext, names []string) map[string][]domain.RowVersion {
	found := scan(v.state.locationTracks, lc, normalizeNames(names), func(t domain.LocationTrack) []string {
		return []string{norm.NFC.String(t.Name)}
	})
	return byName(names, found)
}

func (v *view) Publication(id domain.IntID) (domain.Publication, bool) {
	for _, p := range v.state.publications {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Publication{}, false
}

// Publications lists the branch's publications, newest first.
func (v *view) Publications(branch domain.Branch) []domain.Publication {
	var out []domain.Publication
	for _, p := range slices.Backward(v.state.publications) {
		if p.Branch == branch {
			out = append(out, p)
		}
	}
	return out
}

func (v *view) GeometryChanges(publicationID domain.IntID) []domain.GeometryChange {
	var out []domain.GeometryChange
	for _, c := range v.state.geometryChanges {
		if c.PublicationID == publicationID {
			out = append(out, cloneGeometryChange(c))
		}
	}
	return out
}

// UnprocessedGeometryChanges returns pending rows in enqueue order. A
// non-positive limit returns all of them.
func (v *view) UnprocessedGeometryChanges(limit int) []domain.GeometryChange {
	var out []domain.GeometryChange
	for _, c := range v.state.geometryChanges {
		if c.Processed {
			continue
		}
		out = append(out, cloneGeometryChange(c))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
