package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a planar coordinate in the layout CRS (metres).
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceTo returns the euclidean distance between two points.
func (p Point) DistanceTo(o Point) float64 { return math.Hypot(o.X-p.X, o.Y-p.Y) }

// IsSame reports whether the points coincide within delta.
func (p Point) IsSame(o Point, delta float64) bool { return p.DistanceTo(o) <= delta }

// AlignmentPoint is a point with its along-track position.
type AlignmentPoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	M float64 `json:"m" yaml:"m"`
}

// Point drops the m-value.
func (p AlignmentPoint) Point() Point { return Point{X: p.X, Y: p.Y} }

// JointNumber names a connection point on a switch structure.
type JointNumber int

// Segment is one piece of alignment geometry, optionally linked to a switch.
// GeometryID is stable for as long as the segment geometry is reused.
type Segment struct {
	GeometryID string           `json:"geometryId"`
	Points     []AlignmentPoint `json:"points"`
	SwitchID   *IntID           `json:"switchId,omitempty"`
	StartJoint *JointNumber     `json:"startJoint,omitempty"`
	EndJoint   *JointNumber     `json:"endJoint,omitempty"`
}

// Start returns the first point of the segment.
func (s Segment) Start() (AlignmentPoint, bool) {
	if len(s.Points) == 0 {
		return AlignmentPoint{}, false
	}
	return s.Points[0], true
}

// End returns the last point of the segment.
func (s Segment) End() (AlignmentPoint, bool) {
	if len(s.Points) == 0 {
		return AlignmentPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// LinksSwitch reports whether the segment is linked to the switch.
func (s Segment) LinksSwitch(id IntID) bool { return s.SwitchID != nil && *s.SwitchID == id }

// HasJoint reports whether the segment is linked to the switch at the joint.
func (s Segment) HasJoint(id IntID, joint JointNumber) bool {
	if !s.LinksSwitch(id) {
		return false
	}
	return (s.StartJoint != nil && *s.StartJoint == joint) || (s.EndJoint != nil && *s.EndJoint == joint)
}

// Alignment is the ordered geometry of a reference line or location track.
type Alignment struct {
	Segments []Segment `json:"segments"`
}

// Points returns all alignment points in order. Shared endpoints of
// consecutive segments appear once.
func (a Alignment) Points() []AlignmentPoint {
	var out []AlignmentPoint
	for _, seg := range a.Segments {
		for i, p := range seg.Points {
			if i == 0 && len(out) > 0 && out[len(out)-1].Point() == p.Point() {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

// Start returns the first point of the alignment.
func (a Alignment) Start() (AlignmentPoint, bool) {
	for _, seg := range a.Segments {
		if p, ok := seg.Start(); ok {
			return p, true
		}
	}
	return AlignmentPoint{}, false
}

// End returns the last point of the alignment.
func (a Alignment) End() (AlignmentPoint, bool) {
	for i := len(a.Segments) - 1; i >= 0; i-- {
		if p, ok := a.Segments[i].End(); ok {
			return p, true
		}
	}
	return AlignmentPoint{}, false
}

// Length is the m-distance from the first to the last point.
func (a Alignment) Length() float64 {
	start, ok := a.Start()
	if !ok {
		return 0
	}
	end, _ := a.End()
	return end.M - start.M
}

// MaxDirectionDelta returns the largest direction change between consecutive
// point pairs, in radians.
func (a Alignment) MaxDirectionDelta() float64 {
	points := a.Points()
	var maxDelta float64
	prev, hasPrev := 0.0, false
	for i := 1; i < len(points); i++ {
		dir, ok := Direction(points[i-1].Point(), points[i].Point())
		if !ok {
			continue
		}
		if hasPrev {
			maxDelta = math.Max(maxDelta, AngleDiff(prev, dir))
		}
		prev, hasPrev = dir, true
	}
	return maxDelta
}

// Direction returns the heading from a to b; false when the points coincide.
func Direction(a, b Point) (float64, bool) {
	if a == b {
		return 0, false
	}
	return math.Atan2(b.Y-a.Y, b.X-a.X), true
}

// AngleDiff returns the absolute difference of two headings in [0, π].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// KmNumber is a kilometre designation such as 0012 or 0012A.
type KmNumber struct {
	Number    int    `json:"number"`
	Extension string `json:"extension,omitempty"`
}

// ParseKmNumber parses the formatted kilometre number.
func ParseKmNumber(s string) (KmNumber, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return KmNumber{}, fmt.Errorf("parse km number %q: no digits", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return KmNumber{}, fmt.Errorf("parse km number %q: %w", s, err)
	}
	ext := s[i:]
	if len(ext) > 2 || strings.ToUpper(ext) != ext {
		return KmNumber{}, fmt.Errorf("parse km number %q: invalid extension", s)
	}
	return KmNumber{Number: n, Extension: ext}, nil
}

// MustKmNumber parses s and panics on malformed input.
func MustKmNumber(s string) KmNumber {
	km, err := ParseKmNumber(s)
	if err != nil {
		panic(err)
	}
	return km
}

func (k KmNumber) String() string { return fmt.Sprintf("%04d%s", k.Number, k.Extension) }

// CompareKmNumbers orders by number, then extension.
func CompareKmNumbers(a, b KmNumber) int {
	if a.Number != b.Number {
		return a.Number - b.Number
	}
	return strings.Compare(a.Extension, b.Extension)
}

// MarshalText encodes the formatted value.
func (k KmNumber) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes the formatted value.
func (k *KmNumber) UnmarshalText(b []byte) error {
	parsed, err := ParseKmNumber(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TrackMeter is a linear address: kilometre plus metres from the km-post.
type TrackMeter struct {
	KmNumber KmNumber `json:"kmNumber"`
	Meters   float64  `json:"meters"`
}

// CompareTrackMeters orders addresses along the track number.
func CompareTrackMeters(a, b TrackMeter) int {
	if c := CompareKmNumbers(a.KmNumber, b.KmNumber); c != 0 {
		return c
	}
	switch {
	case a.Meters < b.Meters:
		return -1
	case a.Meters > b.Meters:
		return 1
	}
	return 0
}

// Format renders the address with millimetre precision.
func (t TrackMeter) Format() string {
	return fmt.Sprintf("%s+%08.3f", t.KmNumber, t.Meters)
}

// FormatDropDecimals renders the address in whole metres.
func (t TrackMeter) FormatDropDecimals() string {
	return fmt.Sprintf("%s+%04d", t.KmNumber, int(math.Floor(t.Meters)))
}

func (t TrackMeter) String() string { return t.Format() }
