package publication

import (
	"context"

	"layoutpub/pkg/domain"
)

// Publication returns one publication record.
func (s *Service) Publication(ctx context.Context, id domain.IntID) (domain.Publication, error) {
	var out domain.Publication
	err := s.store.View(ctx, func(view domain.LayoutView) error {
		p, ok := view.Publication(id)
		if !ok {
			return domain.NewErrorf(domain.CodeNotFound, domain.ErrNotFound, "publication %s", id)
		}
		out = p
		return nil
	})
	return out, err
}

// Publications lists the publications of branch, newest first.
func (s *Service) Publications(ctx context.Context, branch domain.Branch) ([]domain.Publication, error) {
	var out []domain.Publication
	err := s.store.View(ctx, func(view domain.LayoutView) error {
		out = view.Publications(branch)
		return nil
	})
	return out, err
}

// GeometryChangeRemarks returns the geometry change rows of a publication,
// processed or not.
func (s *Service) GeometryChangeRemarks(ctx context.Context, publicationID domain.IntID) ([]domain.GeometryChange, error) {
	var out []domain.GeometryChange
	err := s.store.View(ctx, func(view domain.LayoutView) error {
		if _, ok := view.Publication(publicationID); !ok {
			return domain.NewErrorf(domain.CodeNotFound, domain.ErrNotFound, "publication %s", publicationID)
		}
		out = view.GeometryChanges(publicationID)
		return nil
	})
	return out, err
}
