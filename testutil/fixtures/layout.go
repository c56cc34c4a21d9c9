// Package fixtures builds layout assets for tests. Every builder returns an
// IN_USE asset with a zero header so stores allocate ids on SaveDraft.
package fixtures

import (
	"fmt"
	"math"

	"layoutpub/pkg/domain"
)

// P is shorthand for a point.
func P(x, y float64) domain.Point { return domain.Point{X: x, Y: y} }

// Joint returns a pointer to joint n.
func Joint(n int) *domain.JointNumber {
	j := domain.JointNumber(n)
	return &j
}

// ID returns a pointer to an int id.
func ID(v int64) *domain.IntID {
	id := domain.NewIntID(v)
	return &id
}

// Seg builds a segment through the given points. M values are assigned by Geometry.
func Seg(geometryID string, pts ...domain.Point) domain.Segment {
	points := make([]domain.AlignmentPoint, len(pts))
	for i, p := range pts {
		points[i] = domain.AlignmentPoint{X: p.X, Y: p.Y}
	}
	return domain.Segment{GeometryID: geometryID, Points: points}
}

// Linked attaches seg to a switch. A joint of 0 leaves that end unlinked.
func Linked(seg domain.Segment, switchID domain.IntID, startJoint, endJoint int) domain.Segment {
	id := switchID
	seg.SwitchID = &id
	if startJoint != 0 {
		seg.StartJoint = Joint(startJoint)
	}
	if endJoint != 0 {
		seg.EndJoint = Joint(endJoint)
	}
	return seg
}

// Geometry chains segments and assigns continuous M values from 0.
func Geometry(segments ...domain.Segment) domain.Alignment {
	var m float64
	var prev *domain.AlignmentPoint
	out := make([]domain.Segment, len(segments))
	for i, seg := range segments {
		points := make([]domain.AlignmentPoint, len(seg.Points))
		for j, p := range seg.Points {
			if prev != nil {
				m += prev.Point().DistanceTo(p.Point())
			}
			p.M = m
			points[j] = p
			prev = &points[j]
		}
		seg.Points = points
		out[i] = seg
	}
	return domain.Alignment{Segments: out}
}

// Straight builds a one-segment alignment from a to b with a point every step metres.
func Straight(a, b domain.Point, step float64) domain.Alignment {
	length := a.DistanceTo(b)
	n := int(math.Ceil(length / step))
	if n < 1 {
		n = 1
	}
	pts := make([]domain.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		f := float64(i) / float64(n)
		pts = append(pts, P(a.X+(b.X-a.X)*f, a.Y+(b.Y-a.Y)*f))
	}
	return Geometry(Seg(fmt.Sprintf("straight-%g-%g-%g-%g", a.X, a.Y, b.X, b.Y), pts...))
}

func header() domain.AssetHeader {
	return domain.AssetHeader{State: domain.StateInUse, ChangeUser: "tester"}
}

// TrackNumber builds a track number.
func TrackNumber(number string) domain.TrackNumber {
	return domain.TrackNumber{AssetHeader: header(), Number: number}
}

// ReferenceLine builds a reference line starting at km+meters.
func ReferenceLine(tn domain.IntID, km string, meters float64, geometry domain.Alignment) domain.ReferenceLine {
	return domain.ReferenceLine{
		AssetHeader:   header(),
		TrackNumberID: tn,
		StartAddress:  domain.TrackMeter{KmNumber: domain.MustKmNumber(km), Meters: meters},
		Geometry:      geometry,
	}
}

// LocationTrack builds a location track without topology links.
func LocationTrack(name string, tn domain.IntID, geometry domain.Alignment) domain.LocationTrack {
	return domain.LocationTrack{
		AssetHeader:             header(),
		Name:                    name,
		TrackNumberID:           tn,
		TopologicalConnectivity: domain.ConnectivityNone,
		Geometry:                geometry,
	}
}

// SwitchJoint locates joint n.
func SwitchJoint(n int, x, y float64) domain.SwitchJoint {
	return domain.SwitchJoint{Number: domain.JointNumber(n), Location: P(x, y)}
}

// Switch builds a switch of the given structure.
func Switch(name, structureID string, joints ...domain.SwitchJoint) domain.Switch {
	return domain.Switch{AssetHeader: header(), Name: name, StructureID: structureID, Joints: joints}
}

// KmPost builds a located km-post.
func KmPost(tn domain.IntID, km string, at domain.Point) domain.KmPost {
	id := tn
	loc := at
	return domain.KmPost{AssetHeader: header(), TrackNumberID: &id, KmNumber: domain.MustKmNumber(km), Location: &loc}
}

// WithState returns a copy of asset in the given state.
func WithState[T domain.Versioned[T]](asset T, state domain.LayoutState) T {
	h := asset.Header()
	h.State = state
	return asset.WithHeader(h)
}
