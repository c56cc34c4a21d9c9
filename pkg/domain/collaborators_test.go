package domain

import (
	"slices"
	"testing"
)

func TestConnectivityTypeSplitsCrossingsAtPresentationJoint(t *testing.T) {
	crossing := SwitchStructure{
		ID:                  "KRV43-233-1:9",
		PresentationJoint:   5,
		SplitAtPresentation: true,
		Alignments: []SwitchAlignment{
			{Joints: []JointNumber{1, 5, 2}},
			{Joints: []JointNumber{4, 5, 3}},
		},
	}
	ct := crossing.ConnectivityType()
	want := [][]JointNumber{{1, 5}, {5, 2}, {4, 5}, {5, 3}}
	if len(ct.TrackLinkedAlignments) != len(want) {
		t.Fatalf("unexpected alignments %v", ct.TrackLinkedAlignments)
	}
	for i := range want {
		if !slices.Equal(ct.TrackLinkedAlignments[i], want[i]) {
			t.Fatalf("alignment %d: got %v want %v", i, ct.TrackLinkedAlignments[i], want[i])
		}
	}

	front := JointNumber(1)
	turnout := SwitchStructure{
		PresentationJoint: 1,
		FrontJoint:        &front,
		Alignments:        []SwitchAlignment{{Joints: []JointNumber{1, 5, 2}}, {Joints: []JointNumber{1, 3}}},
	}
	ct = turnout.ConnectivityType()
	if len(ct.TrackLinkedAlignments) != 2 || *ct.FrontJoint != 1 {
		t.Fatalf("turnout alignments must be kept whole: %v", ct.TrackLinkedAlignments)
	}
	if JointSequence(ct.TrackLinkedAlignments[0]) != "1-5-2" {
		t.Fatalf("unexpected joint sequence rendering")
	}
}

func TestLocationTrackSwitchIDs(t *testing.T) {
	a, b, c := NewIntID(1), NewIntID(2), NewIntID(3)
	lt := LocationTrack{
		Geometry: Alignment{Segments: []Segment{
			{SwitchID: &a}, {SwitchID: &a}, {}, {SwitchID: &b},
		}},
		TopologyEndSwitch: &TopologySwitch{SwitchID: c, Joint: 1},
	}
	ids := lt.SwitchIDs()
	if !slices.Equal(ids, []IntID{a, b, c}) {
		t.Fatalf("unexpected switch ids %v", ids)
	}
	if !lt.LinksSwitch(c) || lt.LinksSwitch(NewIntID(4)) {
		t.Fatalf("unexpected link evaluation")
	}
}
