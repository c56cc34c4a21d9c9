package fixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"layoutpub/pkg/domain"
)

// Seeder writes drafts into a store and publishes them directly, bypassing
// validation, so tests can arrange an official layout.
type Seeder struct {
	t      testing.TB
	store  domain.LayoutStore
	Branch domain.Branch
}

// NewSeeder seeds store in the main branch.
func NewSeeder(t testing.TB, store domain.LayoutStore) *Seeder {
	return &Seeder{t: t, store: store, Branch: domain.MainBranch}
}

// In returns a seeder writing to branch.
func (s *Seeder) In(branch domain.Branch) *Seeder {
	return &Seeder{t: s.t, store: s.store, Branch: branch}
}

func writerFor[T domain.Versioned[T]](tx domain.Transaction) domain.AssetWriter[T] {
	var zero T
	var w any
	switch zero.Kind() {
	case domain.KindTrackNumber:
		w = tx.TrackNumbers()
	case domain.KindReferenceLine:
		w = tx.ReferenceLines()
	case domain.KindLocationTrack:
		w = tx.LocationTracks()
	case domain.KindSwitch:
		w = tx.Switches()
	case domain.KindKmPost:
		w = tx.KmPosts()
	}
	return w.(domain.AssetWriter[T])
}

// Draft saves asset as a draft in the seeder's branch.
func Draft[T domain.Versioned[T]](s *Seeder, asset T) T {
	s.t.Helper()
	var saved T
	require.NoError(s.t, s.store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		saved, err = writerFor[T](tx).SaveDraft(s.Branch, asset)
		return err
	}))
	return saved
}

// Official saves asset as a draft and publishes it at once.
func Official[T domain.Versioned[T]](s *Seeder, asset T) T {
	s.t.Helper()
	var published T
	require.NoError(s.t, s.store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		w := writerFor[T](tx)
		saved, err := w.SaveDraft(s.Branch, asset)
		if err != nil {
			return err
		}
		published, err = w.Publish(s.Branch, saved.Header().RowVersion())
		return err
	}))
	return published
}

// Cancel drafts the cancellation of a design-branch asset.
func Cancel[T domain.Versioned[T]](s *Seeder, id domain.IntID) T {
	s.t.Helper()
	var cancelled T
	require.NoError(s.t, s.store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		cancelled, err = writerFor[T](tx).Cancel(s.Branch, id)
		return err
	}))
	return cancelled
}

// View returns a read-only view of the store's current state.
func (s *Seeder) View() domain.LayoutView {
	s.t.Helper()
	var out domain.LayoutView
	require.NoError(s.t, s.store.View(context.Background(), func(v domain.LayoutView) error {
		out = v
		return nil
	}))
	return out
}

// DraftVersions collects every draft of the seeder's branch as a publication set.
func (s *Seeder) DraftVersions() domain.ValidationVersions {
	s.t.Helper()
	v := s.View()
	set := domain.ValidationVersions{Branch: s.Branch}
	set.Set(domain.KindTrackNumber, v.TrackNumbers().DraftVersions(s.Branch))
	set.Set(domain.KindReferenceLine, v.ReferenceLines().DraftVersions(s.Branch))
	set.Set(domain.KindLocationTrack, v.LocationTracks().DraftVersions(s.Branch))
	set.Set(domain.KindSwitch, v.Switches().DraftVersions(s.Branch))
	set.Set(domain.KindKmPost, v.KmPosts().DraftVersions(s.Branch))
	return set
}

// Versions builds a publication set from the given drafts.
func Versions(branch domain.Branch, assets ...domain.Asset) domain.ValidationVersions {
	set := domain.ValidationVersions{Branch: branch}
	for _, a := range assets {
		set.Set(a.Kind(), append(set.Of(a.Kind()), a.Header().RowVersion()))
	}
	return set
}
