package publication

import (
	"context"
	"fmt"
	"slices"

	"layoutpub/internal/core"
	"layoutpub/internal/infra/lock"
	"layoutpub/pkg/domain"
)

// Request selects the drafts to publish.
type Request struct {
	Branch  domain.Branch
	Content domain.PublicationRequestIDs
	Message string
	User    string
}

type publishStage string

const (
	stageProposed  publishStage = "proposed"
	stageValidated publishStage = "validated"
	stageCommitted publishStage = "committed"
	stageRejected  publishStage = "rejected"
)

var stageTransitions = map[publishStage][]publishStage{
	stageProposed:  {stageValidated, stageRejected},
	stageValidated: {stageCommitted, stageRejected},
}

// publishAttempt tracks one publish through its stages. Committed and
// rejected are terminal.
type publishAttempt struct {
	stage  publishStage
	branch domain.Branch
	log    core.Logger
}

func (a *publishAttempt) advance(next publishStage) error {
	if !slices.Contains(stageTransitions[a.stage], next) {
		return fmt.Errorf("publish in %s: illegal stage transition %s -> %s", a.branch, a.stage, next)
	}
	a.log.Debug("publish stage", "branch", a.branch.String(), "from", string(a.stage), "to", string(next))
	a.stage = next
	return nil
}

// reject ends the attempt unless it already reached a terminal stage.
func (a *publishAttempt) reject() {
	if _, open := stageTransitions[a.stage]; open {
		_ = a.advance(stageRejected)
	}
}

// Publish validates the requested drafts as one unit and, when no ERROR
// issue is found, promotes them to official and records a publication. The
// whole attempt runs under the publication lock in one transaction; a
// failure leaves storage untouched.
func (s *Service) Publish(ctx context.Context, req Request) (domain.PublishResult, error) {
	var (
		result    domain.PublishResult
		published domain.Publication
	)
	err := s.run(ctx, "publish", req.Branch, func(ctx context.Context) (string, error) {
		if req.Content.IsEmpty() {
			return "", domain.NewErrorf(domain.CodeInvalidArgument, nil, "publish in %s: no assets selected", req.Branch)
		}
		attempt := &publishAttempt{stage: stageProposed, branch: req.Branch, log: s.obs.Logger}
		err := s.locker.RunWithLock(ctx, lock.Publication, s.cfg.PublicationHold, func(ctx context.Context) error {
			return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				var err error
				published, result, err = s.publishInTransaction(tx, req, attempt)
				return err
			})
		})
		if err != nil {
			attempt.reject()
			return "", err
		}
		if err := attempt.advance(stageCommitted); err != nil {
			return "", err
		}
		return published.ID.String(), nil
	})
	if err != nil {
		return domain.PublishResult{}, err
	}

	s.obs.AddPublished(string(domain.KindTrackNumber), result.TrackNumbers)
	s.obs.AddPublished(string(domain.KindKmPost), result.KmPosts)
	s.obs.AddPublished(string(domain.KindSwitch), result.Switches)
	s.obs.AddPublished(string(domain.KindReferenceLine), result.ReferenceLines)
	s.obs.AddPublished(string(domain.KindLocationTrack), result.LocationTracks)
	s.obs.Logger.Info("publication created", "id", published.ID.String(), "branch", req.Branch.String(),
		"trackNumbers", result.TrackNumbers, "kmPosts", result.KmPosts, "switches", result.Switches,
		"referenceLines", result.ReferenceLines, "locationTracks", result.LocationTracks)

	if err := s.archivePublication(ctx, published); err != nil {
		s.obs.Logger.Warn("archive publication report", "id", published.ID.String(), "error", err)
	}
	return result, nil
}

func (s *Service) publishInTransaction(tx domain.Transaction, req Request, attempt *publishAttempt) (domain.Publication, domain.PublishResult, error) {
	view := tx.Snapshot()
	set, err := versionsFor(view, req.Branch, req.Content)
	if err != nil {
		return domain.Publication{}, domain.PublishResult{}, err
	}

	validated := s.validator.ValidatePublicationUnit(s.newContext(view, set))
	if err := attempt.advance(stageValidated); err != nil {
		return domain.Publication{}, domain.PublishResult{}, err
	}
	if validated.HasErrors() {
		s.obs.Logger.Warn("publication rejected", "branch", req.Branch.String(), "errors", validated.ErrorCount())
		return domain.Publication{}, domain.PublishResult{}, &domain.ValidationFailedError{Result: validated}
	}

	// The view follows the transaction, so anything read from the previous
	// official rows must be read before promotion.
	indirect := calculatedChanges(view, set)
	changes := pendingGeometryChanges(view, set)

	for _, kind := range domain.PublishOrder {
		if err := promoteKind(tx, kind, req.Branch, set.Of(kind)); err != nil {
			return domain.Publication{}, domain.PublishResult{}, err
		}
	}

	pub, err := tx.CreatePublication(domain.Publication{
		UUID:           s.newUUID(),
		Branch:         req.Branch,
		User:           req.User,
		Message:        req.Message,
		TrackNumbers:   set.TrackNumbers,
		KmPosts:        set.KmPosts,
		ReferenceLines: set.ReferenceLines,
		LocationTracks: set.LocationTracks,
		Switches:       set.Switches,
		Indirect:       indirect,
	})
	if err != nil {
		return domain.Publication{}, domain.PublishResult{}, fmt.Errorf("create publication: %w", err)
	}
	for _, change := range changes {
		change.PublicationID = pub.ID
		if err := tx.SaveGeometryChange(change); err != nil {
			return domain.Publication{}, domain.PublishResult{}, fmt.Errorf("enqueue geometry change: %w", err)
		}
	}

	return pub, domain.PublishResult{
		PublicationID:  pub.ID,
		TrackNumbers:   len(set.TrackNumbers),
		KmPosts:        len(set.KmPosts),
		ReferenceLines: len(set.ReferenceLines),
		LocationTracks: len(set.LocationTracks),
		Switches:       len(set.Switches),
	}, nil
}

func promoteKind(tx domain.Transaction, kind domain.AssetKind, branch domain.Branch, versions []domain.RowVersion) error {
	switch kind {
	case domain.KindTrackNumber:
		return promote(tx.TrackNumbers(), kind, branch, versions)
	case domain.KindKmPost:
		return promote(tx.KmPosts(), kind, branch, versions)
	case domain.KindSwitch:
		return promote(tx.Switches(), kind, branch, versions)
	case domain.KindReferenceLine:
		return promote(tx.ReferenceLines(), kind, branch, versions)
	case domain.KindLocationTrack:
		return promote(tx.LocationTracks(), kind, branch, versions)
	}
	return domain.NewErrorf(domain.CodeInvalidArgument, nil, "unknown asset kind %s", kind)
}

// promote flips drafts to official. The versions were read under the lock,
// so any mismatch means storage changed outside of it.
func promote[T domain.Asset](w domain.AssetWriter[T], kind domain.AssetKind, branch domain.Branch, versions []domain.RowVersion) error {
	for _, rv := range versions {
		if _, err := w.Publish(branch, rv); err != nil {
			return domain.NewErrorf(domain.CodePreconditionFailed, err, "promote %s %s", kind, rv)
		}
	}
	return nil
}

// pendingGeometryChanges builds the unprocessed remark rows for published
// alignments, pointing at the official version each replaces. Cancellations
// are skipped; their geometry is the previous official one.
func pendingGeometryChanges(view domain.LayoutView, set domain.ValidationVersions) []domain.GeometryChange {
	official := set.Branch.Official()
	var out []domain.GeometryChange
	for _, rv := range set.ReferenceLines {
		if row, ok := view.ReferenceLines().Fetch(rv); ok && !row.Cancelled {
			prev, hasPrev := view.ReferenceLines().Version(official, rv.ID)
			out = append(out, geometryChange(domain.KindReferenceLine, rv, prev, hasPrev))
		}
	}
	for _, rv := range set.LocationTracks {
		if row, ok := view.LocationTracks().Fetch(rv); ok && !row.Cancelled {
			prev, hasPrev := view.LocationTracks().Version(official, rv.ID)
			out = append(out, geometryChange(domain.KindLocationTrack, rv, prev, hasPrev))
		}
	}
	return out
}

func geometryChange(kind domain.AssetKind, next, prev domain.RowVersion, hasPrev bool) domain.GeometryChange {
	c := domain.GeometryChange{Kind: kind, AssetID: next.ID, NewVersion: next}
	if hasPrev {
		c.OldVersion = &prev
	}
	return c
}
