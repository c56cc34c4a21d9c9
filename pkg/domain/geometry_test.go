package domain

import (
	"math"
	"testing"
)

func pointsAlignment(points ...AlignmentPoint) Alignment {
	return Alignment{Segments: []Segment{{GeometryID: "g1", Points: points}}}
}

func TestAlignmentPointsDedupesSharedEndpoints(t *testing.T) {
	a := Alignment{Segments: []Segment{
		{GeometryID: "a", Points: []AlignmentPoint{{X: 0, Y: 0, M: 0}, {X: 1, Y: 0, M: 1}}},
		{GeometryID: "b", Points: []AlignmentPoint{{X: 1, Y: 0, M: 1}, {X: 2, Y: 0, M: 2}}},
	}}
	if got := len(a.Points()); got != 3 {
		t.Fatalf("expected 3 points, got %d", got)
	}
	if a.Length() != 2 {
		t.Fatalf("unexpected length %v", a.Length())
	}
	if (Alignment{}).Length() != 0 {
		t.Fatalf("empty alignment must have zero length")
	}
}

func TestMaxDirectionDelta(t *testing.T) {
	straight := pointsAlignment(AlignmentPoint{X: 0}, AlignmentPoint{X: 1, M: 1}, AlignmentPoint{X: 2, M: 2})
	if straight.MaxDirectionDelta() != 0 {
		t.Fatalf("straight line has no direction change")
	}
	turn := pointsAlignment(AlignmentPoint{X: 0}, AlignmentPoint{X: 1, M: 1}, AlignmentPoint{X: 1, Y: 1, M: 2})
	if math.Abs(turn.MaxDirectionDelta()-math.Pi/2) > 1e-9 {
		t.Fatalf("expected right angle, got %v", turn.MaxDirectionDelta())
	}
	back := pointsAlignment(AlignmentPoint{X: 0}, AlignmentPoint{X: 1, M: 1}, AlignmentPoint{X: 0, Y: 0.001, M: 2})
	if back.MaxDirectionDelta() <= math.Pi/2 {
		t.Fatalf("expected reversal to exceed right angle")
	}
}

func TestAngleDiffWrapsAround(t *testing.T) {
	if d := AngleDiff(math.Pi-0.1, -math.Pi+0.1); math.Abs(d-0.2) > 1e-9 {
		t.Fatalf("expected 0.2, got %v", d)
	}
}

func TestKmNumberParseAndOrder(t *testing.T) {
	km, err := ParseKmNumber("0012A")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if km.Number != 12 || km.Extension != "A" || km.String() != "0012A" {
		t.Fatalf("unexpected km %#v", km)
	}
	if CompareKmNumbers(MustKmNumber("0012"), km) >= 0 {
		t.Fatalf("plain km must precede its extension")
	}
	if CompareKmNumbers(MustKmNumber("0013"), km) <= 0 {
		t.Fatalf("next km must follow extension")
	}
	for _, bad := range []string{"", "A12", "12abc", "12a"} {
		if _, err := ParseKmNumber(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestTrackMeterFormatting(t *testing.T) {
	tm := TrackMeter{KmNumber: MustKmNumber("0003"), Meters: 12.3456}
	if got := tm.Format(); got != "0003+0012.346" {
		t.Fatalf("unexpected format %s", got)
	}
	if got := tm.FormatDropDecimals(); got != "0003+0012" {
		t.Fatalf("unexpected short format %s", got)
	}
	later := TrackMeter{KmNumber: MustKmNumber("0003"), Meters: 13}
	if CompareTrackMeters(tm, later) >= 0 || CompareTrackMeters(later, tm) <= 0 || CompareTrackMeters(tm, tm) != 0 {
		t.Fatalf("unexpected ordering")
	}
}

func TestSegmentJointLinks(t *testing.T) {
	sw := NewIntID(4)
	start, end := JointNumber(1), JointNumber(5)
	seg := Segment{SwitchID: &sw, StartJoint: &start, EndJoint: &end}
	if !seg.HasJoint(sw, 5) || seg.HasJoint(sw, 2) || seg.HasJoint(NewIntID(9), 1) {
		t.Fatalf("unexpected joint link evaluation")
	}
}
