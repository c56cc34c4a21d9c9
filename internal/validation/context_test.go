package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layoutpub/internal/infra/persistence/memory"
	"layoutpub/pkg/domain"
	"layoutpub/testutil/fixtures"
)

var design = domain.DesignBranch(domain.NewIntID(9))

func ids[T domain.Asset](rows []T) []domain.IntID {
	out := make([]domain.IntID, len(rows))
	for i, r := range rows {
		out[i] = r.Header().ID
	}
	return out
}

func TestContextResolvesCandidatesOverOfficial(t *testing.T) {
	s := fixtures.NewSeeder(t, memory.NewStore())
	tn1 := fixtures.Official(s, fixtures.TrackNumber("001"))
	tn2 := fixtures.Official(s, fixtures.TrackNumber("002"))
	track := fixtures.Official(s, fixtures.LocationTrack("LT", tn1.ID, fixtures.Straight(fixtures.P(0, 0), fixtures.P(10, 0), 5)))

	moved := track
	moved.TrackNumberID = tn2.ID
	moved.Name = "LT-moved"
	moved = fixtures.Draft(s, moved)

	ctx := NewContext(s.View(), domain.MainBranch, fixtures.Versions(domain.MainBranch, moved), nil, nil)
	got, ok := ctx.LocationTrack(track.ID)
	require.True(t, ok)
	assert.Equal(t, "LT-moved", got.Name)
	assert.True(t, got.IsDraft())

	assert.Empty(t, ctx.LocationTracksByTrackNumber(tn1.ID))
	assert.Equal(t, []domain.IntID{track.ID}, ids(ctx.LocationTracksByTrackNumber(tn2.ID)))
	assert.Empty(t, ctx.LocationTracksByName("LT"))
	assert.Len(t, ctx.LocationTracksByName("LT-moved"), 1)

	outside := NewContext(s.View(), domain.MainBranch, domain.ValidationVersions{}, nil, nil)
	got, ok = outside.LocationTrack(track.ID)
	require.True(t, ok)
	assert.Equal(t, "LT", got.Name, "drafts outside the set stay invisible")
	assert.Equal(t, []domain.IntID{track.ID}, ids(outside.LocationTracksByTrackNumber(tn1.ID)))
}

func TestContextUnpublishedReferenceFallsBackToDraftName(t *testing.T) {
	s := fixtures.NewSeeder(t, memory.NewStore())
	tn := fixtures.Draft(s, fixtures.TrackNumber("DRAFT-TN"))
	ctx := NewContext(s.View(), domain.MainBranch, domain.ValidationVersions{}, nil, nil)

	_, ok := ctx.TrackNumber(tn.ID)
	assert.False(t, ok)
	draft, ok := ctx.DraftTrackNumber(tn.ID)
	require.True(t, ok)
	assert.Equal(t, "DRAFT-TN", draft.Number)
}

func TestContextCancelledCandidateResolvesToMainOfficial(t *testing.T) {
	s := fixtures.NewSeeder(t, memory.NewStore())
	tn := fixtures.Official(s, fixtures.TrackNumber("001"))

	d := s.In(design)
	edited := tn
	edited.Number = "001-D"
	fixtures.Official(d, edited)
	cancelled := fixtures.Cancel[domain.TrackNumber](d, tn.ID)
	require.True(t, cancelled.Cancelled)

	ctx := NewContext(s.View(), design, fixtures.Versions(design, cancelled), nil, nil)
	assert.True(t, ctx.IsCancelled(domain.KindTrackNumber, tn.ID))
	assert.True(t, ctx.InPublicationSet(domain.KindTrackNumber, tn.ID))
	got, ok := ctx.TrackNumber(tn.ID)
	require.True(t, ok)
	assert.Equal(t, "001", got.Number)

	plain := NewContext(s.View(), design, domain.ValidationVersions{Branch: design}, nil, nil)
	got, ok = plain.TrackNumber(tn.ID)
	require.True(t, ok)
	assert.Equal(t, "001-D", got.Number, "without the cancellation the design official row wins")
}

func TestContextCancelledDesignOnlyAssetDisappears(t *testing.T) {
	s := fixtures.NewSeeder(t, memory.NewStore())
	d := s.In(design)
	sw := fixtures.Official(d, fixtures.Switch("V1", "YV60-300-1:9-O", fixtures.SwitchJoint(1, 0, 0)))
	cancelled := fixtures.Cancel[domain.Switch](d, sw.ID)

	ctx := NewContext(s.View(), design, fixtures.Versions(design, cancelled), nil, nil)
	_, ok := ctx.Switch(sw.ID)
	assert.False(t, ok)
	assert.Empty(t, ctx.SwitchesByName("V1"))
}

func layoutWithSwitch(t *testing.T) (*fixtures.Seeder, domain.ValidationVersions, domain.IntID, domain.IntID) {
	t.Helper()
	s := fixtures.NewSeeder(t, memory.NewStore())
	tn := fixtures.Official(s, fixtures.TrackNumber("001"))
	fixtures.Official(s, fixtures.ReferenceLine(tn.ID, "0001", 0, fixtures.Straight(fixtures.P(-100, 0), fixtures.P(1000, 0), 10)))
	fixtures.Official(s, fixtures.KmPost(tn.ID, "0002", fixtures.P(500, 0)))
	sw := fixtures.Official(s, fixtures.Switch("V1", "YV60-300-1:9-O",
		fixtures.SwitchJoint(1, 0, 0), fixtures.SwitchJoint(5, 10, 0), fixtures.SwitchJoint(2, 30, 0), fixtures.SwitchJoint(3, 30, 2)))
	through := fixtures.Official(s, fixtures.LocationTrack("LT-1", tn.ID, fixtures.Geometry(
		fixtures.Seg("pre", fixtures.P(-50, 0), fixtures.P(0, 0)),
		fixtures.Linked(fixtures.Seg("a", fixtures.P(0, 0), fixtures.P(10, 0)), sw.ID, 1, 5),
		fixtures.Linked(fixtures.Seg("b", fixtures.P(10, 0), fixtures.P(30, 0)), sw.ID, 5, 2),
		fixtures.Seg("post", fixtures.P(30, 0), fixtures.P(80, 0)),
	)))
	branch := fixtures.LocationTrack("LT-2", tn.ID, fixtures.Geometry(
		fixtures.Linked(fixtures.Seg("c", fixtures.P(0, 0), fixtures.P(30, 2)), sw.ID, 1, 3),
		fixtures.Seg("d", fixtures.P(30, 2), fixtures.P(60, 5)),
	))
	branch.TopologicalConnectivity = domain.ConnectivityStart
	branch = fixtures.Draft(s, branch)
	moved := through
	moved.Description = "edited"
	moved = fixtures.Draft(s, moved)
	return s, fixtures.Versions(domain.MainBranch, branch, moved), sw.ID, tn.ID
}

func TestContextPreloadDoesNotChangeLookups(t *testing.T) {
	s, set, switchID, tnID := layoutWithSwitch(t)
	view := s.View()
	cold := NewContext(view, domain.MainBranch, set, nil, nil)
	warm := NewContext(view, domain.MainBranch, set, nil, nil)
	warm.Preload()
	assert.True(t, warm.tracksBySwitch.Contains(switchID))

	for _, id := range set.IDs().Of(domain.KindLocationTrack) {
		a, okA := cold.LocationTrack(id)
		b, okB := warm.LocationTrack(id)
		assert.Equal(t, okA, okB)
		assert.Equal(t, a, b)
		assert.Equal(t, cold.PotentiallyAffectedSwitchIDs(id), warm.PotentiallyAffectedSwitchIDs(id))
		assert.Equal(t, cold.DuplicateTracks(id), warm.DuplicateTracks(id))
	}
	assert.Equal(t, cold.SwitchTracks(switchID), warm.SwitchTracks(switchID))
	assert.Equal(t, cold.KmPostsByTrackNumber(tnID), warm.KmPostsByTrackNumber(tnID))
	assert.Equal(t, cold.LocationTracksByTrackNumber(tnID), warm.LocationTracksByTrackNumber(tnID))
	assert.Equal(t, cold.TrackNumbersByNumber("001"), warm.TrackNumbersByNumber("001"))
	assert.Equal(t, cold.LocationTracksByName("LT-2"), warm.LocationTracksByName("LT-2"))
	rlA, okA := cold.ReferenceLineByTrackNumber(tnID)
	rlB, okB := warm.ReferenceLineByTrackNumber(tnID)
	assert.Equal(t, okA, okB)
	assert.Equal(t, rlA, rlB)
}

func TestContextSwitchLookups(t *testing.T) {
	s, set, switchID, _ := layoutWithSwitch(t)
	ctx := NewContext(s.View(), domain.MainBranch, set, nil, nil)

	tracks := ctx.SwitchTracks(switchID)
	names := []string{}
	for _, tr := range tracks {
		names = append(names, tr.Name)
	}
	assert.ElementsMatch(t, []string{"LT-1", "LT-2"}, names)

	lt2 := set.IDs().Of(domain.KindLocationTrack)[0]
	track, ok := ctx.LocationTrack(lt2)
	require.True(t, ok)
	groups := ctx.SegmentSwitches(track)
	require.Len(t, groups, 1)
	assert.Equal(t, "V1", groups[0].Name)
	assert.True(t, groups[0].Found)
	assert.False(t, groups[0].HasType, "no switch library configured")
	assert.Equal(t, []domain.IntID{switchID}, ctx.PotentiallyAffectedSwitchIDs(lt2))
}

func TestNamesCompareAfterNormalisation(t *testing.T) {
	s := fixtures.NewSeeder(t, memory.NewStore())
	fixtures.Official(s, fixtures.Switch("A\u0308-1", "YV60-300-1:9-O"))
	ctx := NewContext(s.View(), domain.MainBranch, domain.ValidationVersions{}, nil, nil)
	assert.Len(t, ctx.SwitchesByName("\u00c4-1"), 1)
}
