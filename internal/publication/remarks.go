package publication

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"layoutpub/internal/geomdiff"
	"layoutpub/internal/infra/lock"
	"layoutpub/pkg/domain"
)

// Remark summary keys.
const (
	RemarkCreated   = "geometry-change.created"
	RemarkUnchanged = "geometry-change.unchanged"
	RemarkChanged   = "geometry-change.changed"
)

type remarkInput struct {
	change   domain.GeometryChange
	old, new *domain.Alignment
}

// ProcessGeometryChangeRemarks computes the remarks of one batch of queued
// geometry changes and marks them processed. Only unprocessed rows are read,
// so an interrupted run is picked up by the next one. It returns the number
// of rows processed.
func (s *Service) ProcessGeometryChangeRemarks(ctx context.Context) (int, error) {
	processed := 0
	err := s.obs.Run(ctx, "process-remarks", "", func(ctx context.Context) (string, error) {
		return "", s.locker.RunWithLock(ctx, lock.GeometryChangeRemarks, s.cfg.RemarksHold, func(ctx context.Context) error {
			var inputs []remarkInput
			err := s.store.View(ctx, func(view domain.LayoutView) error {
				for _, c := range view.UnprocessedGeometryChanges(s.cfg.RemarkBatchSize) {
					in, err := loadRemarkInput(view, c)
					if err != nil {
						return err
					}
					inputs = append(inputs, in)
				}
				return nil
			})
			if err != nil || len(inputs) == 0 {
				return err
			}

			remarks := make([]domain.GeometryChangeRemark, len(inputs))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(s.cfg.RemarkWorkers)
			for i, in := range inputs {
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					remarks[i] = computeRemark(in)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
				for i, in := range inputs {
					c := in.change
					c.Remark = &remarks[i]
					c.Processed = true
					if err := tx.SaveGeometryChange(c); err != nil {
						return err
					}
				}
				return nil
			})
			if err == nil {
				processed = len(inputs)
				s.obs.Logger.Info("geometry change remarks processed", "count", processed)
			}
			return err
		})
	})
	return processed, err
}

func loadRemarkInput(view domain.LayoutView, c domain.GeometryChange) (remarkInput, error) {
	in := remarkInput{change: c}
	next, ok := alignmentAt(view, c.Kind, c.NewVersion)
	if !ok {
		return remarkInput{}, fmt.Errorf("geometry change %s %s: %w", c.Kind, c.NewVersion, domain.ErrNotFound)
	}
	in.new = &next
	if c.OldVersion != nil {
		prev, ok := alignmentAt(view, c.Kind, *c.OldVersion)
		if !ok {
			return remarkInput{}, fmt.Errorf("geometry change %s %s: %w", c.Kind, *c.OldVersion, domain.ErrNotFound)
		}
		in.old = &prev
	}
	return in, nil
}

func alignmentAt(view domain.LayoutView, kind domain.AssetKind, rv domain.RowVersion) (domain.Alignment, bool) {
	switch kind {
	case domain.KindReferenceLine:
		row, ok := view.ReferenceLines().Fetch(rv)
		return row.Geometry, ok
	case domain.KindLocationTrack:
		row, ok := view.LocationTracks().Fetch(rv)
		return row.Geometry, ok
	}
	return domain.Alignment{}, false
}

func computeRemark(in remarkInput) domain.GeometryChangeRemark {
	var old domain.Alignment
	if in.old != nil {
		old = *in.old
	}
	diff := geomdiff.Diff(geomdiff.FromAlignment(old), geomdiff.FromAlignment(*in.new))
	remark := domain.GeometryChangeRemark{
		Added:        diff.Added,
		Removed:      diff.Removed,
		LengthChange: in.new.Length() - old.Length(),
	}
	switch {
	case in.old == nil:
		remark.Summary = RemarkCreated
	case diff.IsEmpty():
		remark.Summary = RemarkUnchanged
	default:
		remark.Summary = RemarkChanged
	}
	return remark
}
