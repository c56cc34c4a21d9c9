package publication

import (
	"slices"

	"layoutpub/pkg/domain"
)

type idSet map[domain.IntID]struct{}

func (s idSet) add(ids ...domain.IntID) {
	for _, id := range ids {
		if !id.IsZero() {
			s[id] = struct{}{}
		}
	}
}

func (s idSet) has(id domain.IntID) bool {
	_, ok := s[id]
	return ok
}

// sortedExcept returns the members not selected by exclude, in id order.
func (s idSet) sortedExcept(exclude func(domain.IntID) bool) []domain.IntID {
	var out []domain.IntID
	for id := range s {
		if !exclude(id) {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, domain.CompareIntIDs)
	return out
}

// calculatedChanges finds the assets a publication affects without including
// them. It must run on the view before promotion, so the official rows are
// still the previous ones.
//
// Track numbers change indirectly when their reference line or km-posts are
// published, and the official tracks on them may get new addresses. Switches
// change when a published track links or unlinks them.
func calculatedChanges(view domain.LayoutView, set domain.ValidationVersions) domain.IndirectChanges {
	official := set.Branch.Official()

	trackNumbers := idSet{}
	for _, rv := range set.ReferenceLines {
		if draft, ok := view.ReferenceLines().Fetch(rv); ok {
			trackNumbers.add(draft.TrackNumberID)
		}
		if prev, ok := view.ReferenceLines().Get(official, rv.ID); ok {
			trackNumbers.add(prev.TrackNumberID)
		}
	}
	for _, rv := range set.KmPosts {
		if draft, ok := view.KmPosts().Fetch(rv); ok && draft.TrackNumberID != nil {
			trackNumbers.add(*draft.TrackNumberID)
		}
		if prev, ok := view.KmPosts().Get(official, rv.ID); ok && prev.TrackNumberID != nil {
			trackNumbers.add(*prev.TrackNumberID)
		}
	}

	tracks := idSet{}
	for _, versions := range view.LocationTracksByTrackNumbers(official, trackNumbers.sortedExcept(never)) {
		for _, rv := range versions {
			tracks.add(rv.ID)
		}
	}

	switches := idSet{}
	for _, rv := range set.LocationTracks {
		if draft, ok := view.LocationTracks().Fetch(rv); ok {
			switches.add(draft.SwitchIDs()...)
		}
		if prev, ok := view.LocationTracks().Get(official, rv.ID); ok {
			switches.add(prev.SwitchIDs()...)
		}
	}

	return domain.IndirectChanges{
		TrackNumbers:   trackNumbers.sortedExcept(inSet(set, domain.KindTrackNumber)),
		LocationTracks: tracks.sortedExcept(inSet(set, domain.KindLocationTrack)),
		Switches:       switches.sortedExcept(inSet(set, domain.KindSwitch)),
	}
}

func never(domain.IntID) bool { return false }

func inSet(set domain.ValidationVersions, kind domain.AssetKind) func(domain.IntID) bool {
	return func(id domain.IntID) bool { return set.Contains(kind, id) }
}
