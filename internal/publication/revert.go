package publication

import (
	"context"
	"slices"

	"layoutpub/pkg/domain"
)

// revertOrder deletes referencing drafts before the drafts they reference.
var revertOrder = []domain.AssetKind{
	domain.KindLocationTrack,
	domain.KindReferenceLine,
	domain.KindSwitch,
	domain.KindKmPost,
	domain.KindTrackNumber,
}

// RevertRequestDependencies extends request with every draft that must be
// reverted along with it so that no remaining draft references an asset
// whose draft disappears.
func (s *Service) RevertRequestDependencies(ctx context.Context, branch domain.Branch, request domain.PublicationRequestIDs) (domain.PublicationRequestIDs, error) {
	var out domain.PublicationRequestIDs
	err := s.run(ctx, "revert-dependencies", branch, func(ctx context.Context) (string, error) {
		return "", s.store.View(ctx, func(view domain.LayoutView) error {
			out = revertDependencies(view, branch, request)
			return nil
		})
	})
	return out, err
}

func revertDependencies(view domain.LayoutView, branch domain.Branch, request domain.PublicationRequestIDs) domain.PublicationRequestIDs {
	draft := branch.Draft()
	var out domain.PublicationRequestIDs

	// Track numbers of requested reference lines go too when they are drafts.
	trackNumbers := slices.Clone(request.TrackNumbers)
	for _, id := range request.ReferenceLines {
		if rl, ok := view.ReferenceLines().Get(draft, id); ok {
			trackNumbers = append(trackNumbers, rl.TrackNumberID)
		}
	}
	var draftOnly []domain.IntID
	for _, id := range trackNumbers {
		if !view.TrackNumbers().HasDraft(branch, id) {
			continue
		}
		out.Add(domain.KindTrackNumber, id)
		if !view.TrackNumbers().HasOfficial(branch, id) && !slices.Contains(draftOnly, id) {
			draftOnly = append(draftOnly, id)
		}
	}

	for _, id := range request.ReferenceLines {
		out.Add(domain.KindReferenceLine, id)
	}
	lines := view.ReferenceLinesByTrackNumbers(draft, request.TrackNumbers)
	for _, id := range request.TrackNumbers {
		if rv, ok := lines[id]; ok && view.ReferenceLines().HasDraft(branch, rv.ID) {
			out.Add(domain.KindReferenceLine, rv.ID)
		}
	}

	// A draft-only track number takes its draft-only children with it.
	for _, id := range request.KmPosts {
		out.Add(domain.KindKmPost, id)
	}
	kmPosts := view.KmPostsByTrackNumbers(draft, draftOnly)
	tracksOnTrackNumbers := view.LocationTracksByTrackNumbers(draft, draftOnly)
	for _, tn := range draftOnly {
		for _, rv := range kmPosts[tn] {
			if view.KmPosts().HasDraft(branch, rv.ID) && !view.KmPosts().HasOfficial(branch, rv.ID) {
				out.Add(domain.KindKmPost, rv.ID)
			}
		}
	}

	seeds := slices.Clone(request.LocationTracks)
	for _, tn := range draftOnly {
		for _, rv := range tracksOnTrackNumbers[tn] {
			if view.LocationTracks().HasDraft(branch, rv.ID) && !view.LocationTracks().HasOfficial(branch, rv.ID) {
				seeds = append(seeds, rv.ID)
			}
		}
	}
	seeds = slices.DeleteFunc(seeds, func(id domain.IntID) bool { return !view.LocationTracks().HasDraft(branch, id) })
	switchSeeds := slices.DeleteFunc(slices.Clone(request.Switches), func(id domain.IntID) bool { return !view.Switches().HasDraft(branch, id) })
	tracks, switches := switchLinkClosure(view, branch, seeds, switchSeeds)
	for _, id := range tracks {
		out.Add(domain.KindLocationTrack, id)
	}
	for _, id := range switches {
		out.Add(domain.KindSwitch, id)
	}
	return withDrafts(view, branch, out).Sorted()
}

// withDrafts drops requested ids that have no draft to revert.
func withDrafts(view domain.LayoutView, branch domain.Branch, ids domain.PublicationRequestIDs) domain.PublicationRequestIDs {
	var out domain.PublicationRequestIDs
	for _, kind := range domain.PublishOrder {
		for _, id := range ids.Of(kind) {
			if hasDraft(view, kind, branch, id) {
				out.Add(kind, id)
			}
		}
	}
	return out
}

// switchLinkClosure expands draft tracks and switches breadth first over
// switch links until a round finds nothing new. Only drafts are followed; an
// asset without a draft has nothing to revert.
func switchLinkClosure(view domain.LayoutView, branch domain.Branch, tracks, switches []domain.IntID) ([]domain.IntID, []domain.IntID) {
	draft := branch.Draft()
	seenTracks, seenSwitches := idSet{}, idSet{}
	seenTracks.add(tracks...)
	seenSwitches.add(switches...)
	allTracks, allSwitches := slices.Clone(tracks), slices.Clone(switches)

	newTracks, newSwitches := tracks, switches
	for len(newTracks) > 0 || len(newSwitches) > 0 {
		var foundSwitches, foundTracks []domain.IntID
		for _, id := range newTracks {
			if track, ok := view.LocationTracks().Get(draft, id); ok {
				foundSwitches = append(foundSwitches, track.SwitchIDs()...)
			}
		}
		linked := view.LocationTracksBySwitches(draft, newSwitches)
		for _, id := range newSwitches {
			for _, rv := range linked[id] {
				foundTracks = append(foundTracks, rv.ID)
			}
		}

		newTracks, newSwitches = nil, nil
		for _, id := range foundTracks {
			if !seenTracks.has(id) && view.LocationTracks().HasDraft(branch, id) {
				seenTracks.add(id)
				newTracks = append(newTracks, id)
			}
		}
		for _, id := range foundSwitches {
			if !seenSwitches.has(id) && view.Switches().HasDraft(branch, id) {
				seenSwitches.add(id)
				newSwitches = append(newSwitches, id)
			}
		}
		allTracks = append(allTracks, newTracks...)
		allSwitches = append(allSwitches, newSwitches...)
	}
	return allTracks, allSwitches
}

// RevertPublicationCandidates discards the drafts of ids in one transaction.
// Every id must have a draft.
func (s *Service) RevertPublicationCandidates(ctx context.Context, branch domain.Branch, ids domain.PublicationRequestIDs) (domain.RevertResult, error) {
	var out domain.RevertResult
	err := s.run(ctx, "revert", branch, func(ctx context.Context) (string, error) {
		return "", s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			out = domain.RevertResult{}
			for _, kind := range revertOrder {
				for _, id := range ids.Of(kind) {
					if err := deleteDraft(tx, kind, branch, id); err != nil {
						return domain.NewErrorf(domain.CodePreconditionFailed, err, "revert %s %s", kind, id)
					}
					out.Add(kind, 1)
				}
			}
			return nil
		})
	})
	if err != nil {
		return domain.RevertResult{}, err
	}
	return out, nil
}

func deleteDraft(tx domain.Transaction, kind domain.AssetKind, branch domain.Branch, id domain.IntID) error {
	var err error
	switch kind {
	case domain.KindTrackNumber:
		_, err = tx.TrackNumbers().DeleteDraft(branch, id)
	case domain.KindKmPost:
		_, err = tx.KmPosts().DeleteDraft(branch, id)
	case domain.KindReferenceLine:
		_, err = tx.ReferenceLines().DeleteDraft(branch, id)
	case domain.KindLocationTrack:
		_, err = tx.LocationTracks().DeleteDraft(branch, id)
	case domain.KindSwitch:
		_, err = tx.Switches().DeleteDraft(branch, id)
	}
	return err
}
