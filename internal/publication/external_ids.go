package publication

import (
	"context"
	"fmt"

	"layoutpub/pkg/domain"
)

// externalIDKinds are the kinds an external system of record tracks.
var externalIDKinds = []domain.AssetKind{domain.KindLocationTrack, domain.KindTrackNumber, domain.KindSwitch}

// UpdateExternalIDs issues an external id for each requested track number,
// location track and switch that has none. Each id is stored in its own
// transaction: once issued it exists in the external system, so a later
// failure must not roll it back. It returns how many ids were assigned.
func (s *Service) UpdateExternalIDs(ctx context.Context, branch domain.Branch, request domain.PublicationRequestIDs) (int, error) {
	assigned := 0
	err := s.run(ctx, "update-external-ids", branch, func(ctx context.Context) (string, error) {
		if s.issuer == nil {
			return "", nil
		}
		for _, kind := range externalIDKinds {
			for _, id := range request.Of(kind) {
				done, err := s.assignExternalID(ctx, branch, kind, id)
				if err != nil {
					return "", domain.NewErrorf(domain.CodeExternalIDFailed, err,
						"update external ids for publication candidates (%d assigned)", assigned)
				}
				if done {
					assigned++
				}
			}
		}
		return "", nil
	})
	return assigned, err
}

func (s *Service) assignExternalID(ctx context.Context, branch domain.Branch, kind domain.AssetKind, id domain.IntID) (bool, error) {
	assigned := false
	err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, found := externalIDOf(tx.Snapshot(), branch.Draft(), kind, id)
		if !found {
			return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		if current != "" {
			return nil
		}
		oid, err := s.issuer.Issue(ctx, kind)
		if err != nil {
			return err
		}
		if err := setExternalID(tx, kind, id, oid); err != nil {
			return err
		}
		s.obs.Logger.Info("external id assigned", "kind", string(kind), "id", id.String(), "externalId", oid)
		assigned = true
		return nil
	})
	return assigned, err
}

func externalIDOf(view domain.LayoutView, lc domain.LayoutContext, kind domain.AssetKind, id domain.IntID) (string, bool) {
	switch kind {
	case domain.KindTrackNumber:
		row, ok := view.TrackNumbers().Get(lc, id)
		return row.ExternalID, ok
	case domain.KindLocationTrack:
		row, ok := view.LocationTracks().Get(lc, id)
		return row.ExternalID, ok
	case domain.KindSwitch:
		row, ok := view.Switches().Get(lc, id)
		return row.ExternalID, ok
	}
	return "", false
}

func setExternalID(tx domain.Transaction, kind domain.AssetKind, id domain.IntID, externalID string) error {
	switch kind {
	case domain.KindTrackNumber:
		return tx.TrackNumbers().SetExternalID(id, externalID)
	case domain.KindLocationTrack:
		return tx.LocationTracks().SetExternalID(id, externalID)
	case domain.KindSwitch:
		return tx.Switches().SetExternalID(id, externalID)
	}
	return domain.NewErrorf(domain.CodeInvalidArgument, nil, "%s has no external id", kind)
}
