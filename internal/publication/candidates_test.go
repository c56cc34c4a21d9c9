package publication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layoutpub/pkg/domain"
	"layoutpub/testutil/fixtures"
)

func candidateFor(t *testing.T, cands []domain.PublicationCandidate, id domain.IntID) domain.PublicationCandidate {
	t.Helper()
	for _, c := range cands {
		if c.ID() == id {
			return c
		}
	}
	require.Failf(t, "candidate missing", "no candidate %s", id)
	return domain.PublicationCandidate{}
}

func TestCollectPublicationCandidatesInfersOperations(t *testing.T) {
	e := newEnv(t)
	s := e.seeder
	modified := fixtures.Official(s, fixtures.TrackNumber("001"))
	edit := modified
	edit.Description = "edited"
	edit = fixtures.Draft(s, edit)
	created := fixtures.Draft(s, fixtures.TrackNumber("002"))
	removed := fixtures.Official(s, fixtures.TrackNumber("003"))
	removal := fixtures.Draft(s, fixtures.WithState(removed, domain.StateDeleted))
	gone := fixtures.Official(s, fixtures.WithState(fixtures.TrackNumber("004"), domain.StateDeleted))
	restore := fixtures.Draft(s, fixtures.WithState(gone, domain.StateInUse))

	cands, err := e.svc.CollectPublicationCandidates(context.Background(), domain.MainBranch)
	require.NoError(t, err)
	require.Len(t, cands.TrackNumbers, 4)
	assert.Empty(t, cands.LocationTracks)

	c := candidateFor(t, cands.TrackNumbers, modified.ID)
	assert.Equal(t, domain.OperationModify, c.Operation)
	assert.Equal(t, edit.RowVersion(), c.RowVersion)
	assert.Equal(t, "tester", c.User)
	assert.Equal(t, domain.KindTrackNumber, c.Kind)

	assert.Equal(t, domain.OperationCreate, candidateFor(t, cands.TrackNumbers, created.ID).Operation)
	assert.Equal(t, domain.OperationDelete, candidateFor(t, cands.TrackNumbers, removal.ID).Operation)
	assert.Equal(t, domain.OperationRestore, candidateFor(t, cands.TrackNumbers, restore.ID).Operation)
}

func TestCollectPublicationCandidatesPerBranch(t *testing.T) {
	e := newEnv(t)
	tn := fixtures.Official(e.seeder, fixtures.TrackNumber("001"))
	design := domain.DesignBranch(domain.NewIntID(3))
	cancelled := fixtures.Official(e.seeder.In(design), tn)
	cancelled = fixtures.Cancel[domain.TrackNumber](e.seeder.In(design), cancelled.ID)

	inMain, err := e.svc.CollectPublicationCandidates(context.Background(), domain.MainBranch)
	require.NoError(t, err)
	assert.Empty(t, inMain.TrackNumbers)

	inDesign, err := e.svc.CollectPublicationCandidates(context.Background(), design)
	require.NoError(t, err)
	require.Len(t, inDesign.TrackNumbers, 1)
	assert.True(t, inDesign.TrackNumbers[0].Cancelled)
	assert.Equal(t, cancelled.RowVersion(), inDesign.TrackNumbers[0].RowVersion)
	assert.Equal(t, design, inDesign.Branch)
}

func TestValidatePublicationCandidates(t *testing.T) {
	e := newEnv(t)
	s := e.seeder
	tn := fixtures.Draft(s, fixtures.TrackNumber("002"))
	rl := fixtures.Draft(s, fixtures.ReferenceLine(tn.ID, "0001", 0, fixtures.Straight(fixtures.P(0, 100), fixtures.P(1000, 100), 10)))

	got, err := e.svc.ValidatePublicationCandidates(context.Background(), domain.MainBranch,
		domain.PublicationRequestIDs{TrackNumbers: ids(tn.ID)})
	require.NoError(t, err)

	unit := got.ValidatedAsPublicationUnit
	require.Len(t, unit.TrackNumbers, 1)
	assert.Empty(t, unit.ReferenceLines)
	assert.True(t, domain.HasErrors(unit.TrackNumbers[0].Issues), "the reference line stays unpublished")

	all := got.AllChangesValidated
	require.Len(t, all.TrackNumbers, 1)
	require.Len(t, all.ReferenceLines, 1)
	assert.Empty(t, all.TrackNumbers[0].Issues)
	assert.Equal(t, rl.ID, all.ReferenceLines[0].ID())
	assert.Empty(t, all.ReferenceLines[0].Issues)
}

func TestValidateVersions(t *testing.T) {
	e := newEnv(t)
	tn := fixtures.Draft(e.seeder, fixtures.TrackNumber("002"))

	result, err := e.svc.ValidateVersions(context.Background(), domain.MainBranch, domain.PublicationRequestIDs{TrackNumbers: ids(tn.ID)})
	require.NoError(t, err)
	assert.True(t, result.HasErrors())

	_, err = e.svc.ValidateVersions(context.Background(), domain.MainBranch, domain.PublicationRequestIDs{Switches: ids(domain.NewIntID(99))})
	assert.Equal(t, domain.CodePreconditionFailed, domain.CodeOf(err))
}
