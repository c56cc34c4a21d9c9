package publication

import (
	"context"
	"slices"

	"layoutpub/pkg/domain"
)

// ValidatedPublicationCandidates holds the requested candidates validated
// together, and every candidate of the branch validated as one unit.
type ValidatedPublicationCandidates struct {
	ValidatedAsPublicationUnit domain.PublicationCandidates `json:"validatedAsPublicationUnit"`
	AllChangesValidated        domain.PublicationCandidates `json:"allChangesValidated"`
}

// CollectPublicationCandidates lists the drafts of branch per kind.
func (s *Service) CollectPublicationCandidates(ctx context.Context, branch domain.Branch) (domain.PublicationCandidates, error) {
	var out domain.PublicationCandidates
	err := s.run(ctx, "collect-candidates", branch, func(ctx context.Context) (string, error) {
		return "", s.store.View(ctx, func(view domain.LayoutView) error {
			out = collectCandidates(view, branch)
			return nil
		})
	})
	return out, err
}

// ValidatePublicationCandidates validates the requested candidates as a
// publication unit, and separately all candidates of the branch.
func (s *Service) ValidatePublicationCandidates(ctx context.Context, branch domain.Branch, request domain.PublicationRequestIDs) (ValidatedPublicationCandidates, error) {
	var out ValidatedPublicationCandidates
	err := s.run(ctx, "validate-candidates", branch, func(ctx context.Context) (string, error) {
		return "", s.store.View(ctx, func(view domain.LayoutView) error {
			all := collectCandidates(view, branch)
			out.ValidatedAsPublicationUnit = s.validateCandidates(view, all.Filter(request))
			out.AllChangesValidated = s.validateCandidates(view, all)
			return nil
		})
	})
	return out, err
}

// ValidateVersions validates the drafts of the request as one publication
// set without publishing. Every requested id must have a draft.
func (s *Service) ValidateVersions(ctx context.Context, branch domain.Branch, request domain.PublicationRequestIDs) (domain.ValidationResult, error) {
	var out domain.ValidationResult
	err := s.run(ctx, "validate-versions", branch, func(ctx context.Context) (string, error) {
		return "", s.store.View(ctx, func(view domain.LayoutView) error {
			set, err := versionsFor(view, branch, request)
			if err != nil {
				return err
			}
			out = s.validator.ValidatePublicationUnit(s.newContext(view, set))
			return nil
		})
	})
	return out, err
}

func collectCandidates(view domain.LayoutView, branch domain.Branch) domain.PublicationCandidates {
	return domain.PublicationCandidates{
		Branch:         branch,
		TrackNumbers:   candidatesOf(view.TrackNumbers(), branch),
		KmPosts:        candidatesOf(view.KmPosts(), branch),
		ReferenceLines: candidatesOf(view.ReferenceLines(), branch),
		LocationTracks: candidatesOf(view.LocationTracks(), branch),
		Switches:       candidatesOf(view.Switches(), branch),
	}
}

func candidatesOf[T domain.Asset](r domain.AssetReader[T], branch domain.Branch) []domain.PublicationCandidate {
	var out []domain.PublicationCandidate
	for _, rv := range r.DraftVersions(branch) {
		draft, ok := r.Fetch(rv)
		if !ok {
			continue
		}
		h := draft.Header()
		var official *domain.LayoutState
		if o, ok := r.Get(branch.Official(), rv.ID); ok {
			state := o.Header().State
			official = &state
		}
		out = append(out, domain.PublicationCandidate{
			Kind:       draft.Kind(),
			RowVersion: rv,
			Operation:  domain.InferOperation(h.State, official),
			User:       h.ChangeUser,
			ChangeTime: h.ChangeTime,
			Cancelled:  h.Cancelled,
		})
	}
	return out
}

func (s *Service) validateCandidates(view domain.LayoutView, cands domain.PublicationCandidates) domain.PublicationCandidates {
	set := domain.ValidationVersions{Branch: cands.Branch}
	for _, kind := range domain.PublishOrder {
		var versions []domain.RowVersion
		for _, c := range cands.Of(kind) {
			versions = append(versions, c.RowVersion)
		}
		set.Set(kind, versions)
	}
	result := s.validator.ValidatePublicationUnit(s.newContext(view, set))

	out := domain.PublicationCandidates{Branch: cands.Branch}
	for _, kind := range domain.PublishOrder {
		validated := slices.Clone(cands.Of(kind))
		for i, c := range validated {
			if v, ok := result.Find(kind, c.ID()); ok {
				validated[i].Issues = v.Issues
			}
		}
		out.Set(kind, validated)
	}
	return out
}

// versionsFor resolves the current draft version of every requested id.
func versionsFor(view domain.LayoutView, branch domain.Branch, request domain.PublicationRequestIDs) (domain.ValidationVersions, error) {
	set := domain.ValidationVersions{Branch: branch}
	sorted := request.Sorted()
	for _, kind := range domain.PublishOrder {
		drafts := draftVersions(view, kind, branch)
		var versions []domain.RowVersion
		for _, id := range sorted.Of(kind) {
			i := slices.IndexFunc(drafts, func(rv domain.RowVersion) bool { return rv.ID == id })
			if i < 0 {
				return domain.ValidationVersions{}, domain.NewErrorf(domain.CodePreconditionFailed, domain.ErrNoDraft,
					"%s %s in %s", kind, id, branch)
			}
			versions = append(versions, drafts[i])
		}
		set.Set(kind, versions)
	}
	return set, nil
}

func draftVersions(view domain.LayoutView, kind domain.AssetKind, branch domain.Branch) []domain.RowVersion {
	switch kind {
	case domain.KindTrackNumber:
		return view.TrackNumbers().DraftVersions(branch)
	case domain.KindKmPost:
		return view.KmPosts().DraftVersions(branch)
	case domain.KindReferenceLine:
		return view.ReferenceLines().DraftVersions(branch)
	case domain.KindLocationTrack:
		return view.LocationTracks().DraftVersions(branch)
	case domain.KindSwitch:
		return view.Switches().DraftVersions(branch)
	}
	return nil
}

func hasDraft(view domain.LayoutView, kind domain.AssetKind, branch domain.Branch, id domain.IntID) bool {
	switch kind {
	case domain.KindTrackNumber:
		return view.TrackNumbers().HasDraft(branch, id)
	case domain.KindKmPost:
		return view.KmPosts().HasDraft(branch, id)
	case domain.KindReferenceLine:
		return view.ReferenceLines().HasDraft(branch, id)
	case domain.KindLocationTrack:
		return view.LocationTracks().HasDraft(branch, id)
	case domain.KindSwitch:
		return view.Switches().HasDraft(branch, id)
	}
	return false
}
