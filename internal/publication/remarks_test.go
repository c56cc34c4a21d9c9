package publication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layoutpub/internal/infra/lock"
	"layoutpub/pkg/domain"
	"layoutpub/testutil/fixtures"
)

func publishAll(t *testing.T, e env, content domain.PublicationRequestIDs) domain.PublishResult {
	t.Helper()
	result, err := e.svc.Publish(context.Background(), Request{Branch: domain.MainBranch, Content: content, Message: "test"})
	require.NoError(t, err)
	return result
}

func TestGeometryChangeRemarks(t *testing.T) {
	e := newEnv(t)
	s := e.seeder
	ctx := context.Background()
	tn := fixtures.Draft(s, fixtures.TrackNumber("002"))
	rl := fixtures.Draft(s, fixtures.ReferenceLine(tn.ID, "0001", 0, fixtures.Straight(fixtures.P(0, 100), fixtures.P(1000, 100), 10)))
	track := fixtures.Draft(s, fixtures.LocationTrack("LT-1", tn.ID, fixtures.Straight(fixtures.P(100, 100), fixtures.P(300, 100), 10)))

	first := publishAll(t, e, domain.PublicationRequestIDs{
		TrackNumbers:   ids(tn.ID),
		ReferenceLines: ids(rl.ID),
		LocationTracks: ids(track.ID),
	})
	assert.Equal(t, domain.PublishResult{PublicationID: first.PublicationID, TrackNumbers: 1, ReferenceLines: 1, LocationTracks: 1}, first)

	queued, err := e.svc.GeometryChangeRemarks(ctx, first.PublicationID)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	for _, c := range queued {
		assert.False(t, c.Processed)
		assert.Nil(t, c.OldVersion, "%s is new", c.Kind)
	}

	n, err := e.svc.ProcessGeometryChangeRemarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	done, err := e.svc.GeometryChangeRemarks(ctx, first.PublicationID)
	require.NoError(t, err)
	for _, c := range done {
		assert.True(t, c.Processed)
		require.NotNil(t, c.Remark)
		assert.Equal(t, RemarkCreated, c.Remark.Summary)
	}

	n, err = e.svc.ProcessGeometryChangeRemarks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "processed rows are not taken again")

	longer := track
	longer.Geometry = fixtures.Straight(fixtures.P(100, 100), fixtures.P(400, 100), 10)
	longer = fixtures.Draft(s, longer)
	second := publishAll(t, e, domain.PublicationRequestIDs{LocationTracks: ids(track.ID)})

	n, err = e.svc.ProcessGeometryChangeRemarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	changes, err := e.svc.GeometryChangeRemarks(ctx, second.PublicationID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	c := changes[0]
	require.NotNil(t, c.OldVersion)
	assert.Equal(t, track.RowVersion(), *c.OldVersion)
	assert.Equal(t, longer.RowVersion(), c.NewVersion)
	require.NotNil(t, c.Remark)
	assert.Equal(t, RemarkChanged, c.Remark.Summary)
	assert.InDelta(t, 100, c.Remark.LengthChange, 1e-9)
	require.Len(t, c.Remark.Added, 1)
	assert.InDelta(t, 200, c.Remark.Added[0].Min, 1e-6)
	assert.InDelta(t, 300, c.Remark.Added[0].Max, 1e-6)
	assert.Empty(t, c.Remark.Removed, "the old stretch is kept as is")
}

func TestGeometryChangeRemarksBatchAndLock(t *testing.T) {
	e := newEnv(t)
	e.svc.cfg.RemarkBatchSize = 1
	s := e.seeder
	ctx := context.Background()
	tn := fixtures.Draft(s, fixtures.TrackNumber("002"))
	rl := fixtures.Draft(s, fixtures.ReferenceLine(tn.ID, "0001", 0, fixtures.Straight(fixtures.P(0, 100), fixtures.P(1000, 100), 10)))
	result := publishAll(t, e, domain.PublicationRequestIDs{TrackNumbers: ids(tn.ID), ReferenceLines: ids(rl.ID)})

	err := e.locker.RunWithLock(ctx, lock.GeometryChangeRemarks, 0, func(ctx context.Context) error {
		_, err := e.svc.ProcessGeometryChangeRemarks(ctx)
		assert.Equal(t, domain.CodeLockUnavailable, domain.CodeOf(err))
		return nil
	})
	require.NoError(t, err)

	n, err := e.svc.ProcessGeometryChangeRemarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	changes, err := e.svc.GeometryChangeRemarks(ctx, result.PublicationID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Processed)

	_, err = e.svc.GeometryChangeRemarks(ctx, domain.NewIntID(42))
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestComputeRemarkUnchanged(t *testing.T) {
	geom := fixtures.Straight(fixtures.P(0, 0), fixtures.P(100, 0), 10)
	r := computeRemark(remarkInput{old: &geom, new: &geom})
	assert.Equal(t, RemarkUnchanged, r.Summary)
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Removed)
	assert.Zero(t, r.LengthChange)
}
