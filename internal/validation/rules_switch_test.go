package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"layoutpub/pkg/domain"
	"layoutpub/testutil/fixtures"
)

var testSwitchID = domain.NewIntID(1)

// turnoutYV is a turnout with the front joint 1 at the origin, the straight
// path 1-5-2 along the x axis and the diverging path 1-3.
func turnoutYV() (domain.Switch, domain.SwitchStructure) {
	sw := fixtures.Switch("V1", "YV",
		fixtures.SwitchJoint(1, 0, 0), fixtures.SwitchJoint(5, 10, 0), fixtures.SwitchJoint(2, 30, 0), fixtures.SwitchJoint(3, 30, 2))
	sw.ID = testSwitchID
	return sw, domain.SwitchStructure{
		ID:                "YV",
		BaseType:          "YV",
		PresentationJoint: 1,
		Joints:            joints(1, 5, 2, 3),
		Alignments:        []domain.SwitchAlignment{{Joints: joints(1, 5, 2)}, {Joints: joints(1, 3)}},
		FrontJoint:        fixtures.Joint(1),
	}
}

func switchTrack(id int64, name string, segs ...domain.Segment) domain.LocationTrack {
	t := fixtures.LocationTrack(name, domain.NewIntID(1), fixtures.Geometry(segs...))
	t.ID = domain.NewIntID(id)
	return t
}

func duplicate(t domain.LocationTrack) domain.LocationTrack {
	t.DuplicateOf = fixtures.ID(99)
	return t
}

// straightThrough passes the front joint and follows 1-5-2.
func straightThrough(id int64, name string) domain.LocationTrack {
	return switchTrack(id, name,
		fixtures.Seg("pre", fixtures.P(-50, 0), fixtures.P(0, 0)),
		fixtures.Linked(fixtures.Seg("a", fixtures.P(0, 0), fixtures.P(10, 0)), testSwitchID, 1, 5),
		fixtures.Linked(fixtures.Seg("b", fixtures.P(10, 0), fixtures.P(30, 0)), testSwitchID, 5, 2),
		fixtures.Seg("post", fixtures.P(30, 0), fixtures.P(80, 0)),
	)
}

// straightFromFront starts at the front joint.
func straightFromFront(id int64, name string) domain.LocationTrack {
	return switchTrack(id, name,
		fixtures.Linked(fixtures.Seg("a", fixtures.P(0, 0), fixtures.P(10, 0)), testSwitchID, 1, 5),
		fixtures.Linked(fixtures.Seg("b", fixtures.P(10, 0), fixtures.P(30, 0)), testSwitchID, 5, 2),
		fixtures.Seg("post", fixtures.P(30, 0), fixtures.P(80, 0)),
	)
}

func diverging(id int64, name string, end domain.Point) domain.LocationTrack {
	return switchTrack(id, name,
		fixtures.Linked(fixtures.Seg("c", fixtures.P(0, 0), end), testSwitchID, 1, 3),
		fixtures.Seg("post", end, fixtures.P(80, end.Y)),
	)
}

func TestSwitchTrackStructureIssues(t *testing.T) {
	linkage := KeySwitch + ".track-linkage"
	gap := switchTrack(1, "A",
		fixtures.Seg("pre", fixtures.P(-50, 0), fixtures.P(0, 0)),
		fixtures.Linked(fixtures.Seg("a", fixtures.P(0, 0), fixtures.P(10, 0)), testSwitchID, 1, 5),
		fixtures.Linked(fixtures.Seg("b", fixtures.P(11, 0), fixtures.P(30, 0)), testSwitchID, 0, 2),
		fixtures.Seg("post", fixtures.P(30, 0), fixtures.P(80, 0)),
	)
	offJoint := switchTrack(4, "T", fixtures.Seg("t", fixtures.P(-20, 10), fixtures.P(25, 10)))
	offJoint.TopologyEndSwitch = &domain.TopologySwitch{SwitchID: testSwitchID, Joint: 3}

	cases := []struct {
		name   string
		tracks []domain.LocationTrack
		want   []string
		params map[string]string
	}{
		{
			name:   "fully connected",
			tracks: []domain.LocationTrack{straightThrough(1, "A"), diverging(2, "B", fixtures.P(30, 2))},
		},
		{
			name:   "nothing at the front joint",
			tracks: []domain.LocationTrack{straightFromFront(1, "A"), diverging(2, "B", fixtures.P(30, 2))},
			want:   []string{linkage + ".front-joint-not-connected"},
			params: map[string]string{"switch": "V1"},
		},
		{
			name: "only a duplicate at the front joint",
			tracks: []domain.LocationTrack{
				straightFromFront(1, "A"), diverging(2, "B", fixtures.P(30, 2)), duplicate(straightThrough(3, "D")),
			},
			want: []string{linkage + ".front-joint-only-duplicate-connected"},
		},
		{
			name: "two tracks through the same joints",
			tracks: []domain.LocationTrack{
				straightThrough(1, "A"), diverging(2, "B", fixtures.P(30, 2)), straightThrough(3, "C"),
			},
			want:   []string{linkage + ".multiple-tracks-through-joint"},
			params: map[string]string{"locationTracks": "1 (A, C), 2 (A, C), 5 (A, C)", "switch": "V1"},
		},
		{
			name:   "diverging path unlinked",
			tracks: []domain.LocationTrack{straightThrough(1, "A")},
			want:   []string{linkage + ".switch-alignment-not-connected"},
			params: map[string]string{"locationTracks": "1-3", "switch": "V1"},
		},
		{
			name:   "diverging path linked only by a duplicate",
			tracks: []domain.LocationTrack{straightThrough(1, "A"), duplicate(diverging(2, "B", fixtures.P(30, 2)))},
			want:   []string{linkage + ".switch-alignment-only-connected-to-duplicate"},
			params: map[string]string{"locationTracks": "1-3"},
		},
		{
			name:   "gap between linked segments",
			tracks: []domain.LocationTrack{gap, diverging(2, "B", fixtures.P(30, 2))},
			want:   []string{KeySwitch + ".location-track.not-continuous"},
			params: map[string]string{"locationTracks": "A"},
		},
		{
			name:   "segment joint off the switch joint",
			tracks: []domain.LocationTrack{straightThrough(1, "A"), diverging(2, "B", fixtures.P(30, 5))},
			want:   []string{KeySwitch + ".location-track.joint-location-mismatch"},
			params: map[string]string{"locationTracks": "B"},
		},
		{
			name:   "topology end off the switch joint",
			tracks: []domain.LocationTrack{straightThrough(1, "A"), diverging(2, "B", fixtures.P(30, 2)), offJoint},
			want:   []string{KeySwitch + ".location-track.joint-location-mismatch"},
			params: map[string]string{"locationTracks": "T"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sw, structure := turnoutYV()
			issues := validateSwitchTrackStructure(sw, structure, tc.tracks)
			if len(tc.want) == 0 {
				assert.Empty(t, issues)
				return
			}
			assert.ElementsMatch(t, tc.want, keys(issues))
			issue := findIssue(t, issues, tc.want[0])
			for k, v := range tc.params {
				assert.Equal(t, v, issue.Params[k], k)
			}
		})
	}
}

func TestSwitchIssuesSeverity(t *testing.T) {
	sw, structure := turnoutYV()
	gap := switchTrack(1, "A",
		fixtures.Seg("pre", fixtures.P(-50, 0), fixtures.P(0, 0)),
		fixtures.Linked(fixtures.Seg("a", fixtures.P(0, 0), fixtures.P(10, 0)), testSwitchID, 1, 5),
		fixtures.Linked(fixtures.Seg("b", fixtures.P(11, 0), fixtures.P(30, 0)), testSwitchID, 0, 2),
	)
	issues := validateSwitchTrackStructure(sw, structure, []domain.LocationTrack{gap})
	assert.Equal(t, domain.SeverityError, findIssue(t, issues, KeySwitch+".location-track.not-continuous").Severity)
	assert.Equal(t, domain.SeverityWarning, findIssue(t, issues, KeySwitch+".track-linkage.switch-alignment-not-connected").Severity)
}

func TestSharedPassThroughJointAllowsCrossingTracks(t *testing.T) {
	sw := fixtures.Switch("K1", "KRV",
		fixtures.SwitchJoint(1, -10, 0), fixtures.SwitchJoint(5, 0, 0), fixtures.SwitchJoint(2, 10, 0),
		fixtures.SwitchJoint(4, 0, -10), fixtures.SwitchJoint(3, 0, 10))
	sw.ID = testSwitchID
	crossing := domain.SwitchStructure{
		ID:                "KRV",
		BaseType:          "KRV",
		PresentationJoint: 5,
		Joints:            joints(1, 2, 3, 4, 5),
		Alignments:        []domain.SwitchAlignment{{Joints: joints(1, 5, 2)}, {Joints: joints(4, 5, 3)}},
	}
	x := switchTrack(1, "X",
		fixtures.Seg("xpre", fixtures.P(-50, 0), fixtures.P(-10, 0)),
		fixtures.Linked(fixtures.Seg("x1", fixtures.P(-10, 0), fixtures.P(0, 0)), testSwitchID, 1, 5),
		fixtures.Linked(fixtures.Seg("x2", fixtures.P(0, 0), fixtures.P(10, 0)), testSwitchID, 5, 2),
		fixtures.Seg("xpost", fixtures.P(10, 0), fixtures.P(50, 0)),
	)
	y := switchTrack(2, "Y",
		fixtures.Seg("ypre", fixtures.P(0, -50), fixtures.P(0, -10)),
		fixtures.Linked(fixtures.Seg("y1", fixtures.P(0, -10), fixtures.P(0, 0)), testSwitchID, 4, 5),
		fixtures.Linked(fixtures.Seg("y2", fixtures.P(0, 0), fixtures.P(0, 10)), testSwitchID, 5, 3),
		fixtures.Seg("ypost", fixtures.P(0, 10), fixtures.P(0, 50)),
	)
	tracks := []domain.LocationTrack{x, y}

	issues := validateSwitchTrackStructure(sw, crossing, tracks)
	issue := findIssue(t, issues, KeySwitch+".track-linkage.multiple-tracks-through-joint")
	assert.Equal(t, "5 (X, Y)", issue.Params["locationTracks"])

	crossing.SharedPassThroughJoint = fixtures.Joint(5)
	assert.Empty(t, validateSwitchTrackStructure(sw, crossing, tracks))
}

func TestExcessTracksReportedToResponsibleTrack(t *testing.T) {
	sw, structure := turnoutYV()
	a, b, c := straightThrough(1, "A"), diverging(2, "B", fixtures.P(30, 2)), straightThrough(3, "C")
	tracks := []domain.LocationTrack{a, b, c}

	forA := validateSwitchTopologicalConnectivity(sw, structure, tracks, &a)
	assert.Equal(t, []string{KeyLocationTrack + ".switch-linkage.multiple-tracks-through-joint"}, keys(forA))

	assert.Empty(t, validateSwitchTopologicalConnectivity(sw, structure, tracks, &b))
}
