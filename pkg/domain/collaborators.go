package domain

import (
	"context"
	"slices"
	"strconv"
	"strings"
)

// IntersectType tells where a projected point falls relative to a line.
type IntersectType string

// Projection outcomes.
const (
	IntersectBefore IntersectType = "BEFORE"
	IntersectWithin IntersectType = "WITHIN"
	IntersectAfter  IntersectType = "AFTER"
)

// KmPostRejectedReason explains why a km-post was left out of a geocoding context.
type KmPostRejectedReason string

// Rejection reasons.
const (
	KmPostTooFarApart          KmPostRejectedReason = "TOO_FAR_APART"
	KmPostNoLocation           KmPostRejectedReason = "NO_LOCATION"
	KmPostIsBeforeStartAddress KmPostRejectedReason = "IS_BEFORE_START_ADDRESS"
	KmPostIntersectsBeforeLine KmPostRejectedReason = "INTERSECTS_BEFORE_REFERENCE_LINE"
	KmPostIntersectsAfterLine  KmPostRejectedReason = "INTERSECTS_AFTER_REFERENCE_LINE"
	KmPostDuplicate            KmPostRejectedReason = "DUPLICATE"
)

// GeocodingContextKey identifies the inputs of one geocoding context. It is
// self-contained so a geocoder can build the context from the key alone.
type GeocodingContextKey struct {
	TrackNumber   TrackNumber
	ReferenceLine ReferenceLine
	KmPosts       []KmPost
}

// CacheKey renders the row versions the context was built from.
func (k GeocodingContextKey) CacheKey() string {
	var b strings.Builder
	b.WriteString(k.TrackNumber.RowVersion().String())
	b.WriteString("|")
	b.WriteString(k.ReferenceLine.RowVersion().String())
	for _, kp := range k.KmPosts {
		b.WriteString("|")
		b.WriteString(kp.RowVersion().String())
	}
	return b.String()
}

// GeocodingReferencePoint anchors an address to a distance along the reference line.
type GeocodingReferencePoint struct {
	KmNumber     KmNumber      `json:"kmNumber"`
	Meters       float64       `json:"meters"`
	Distance     float64       `json:"distance"`
	KmPostOffset float64       `json:"kmPostOffset"`
	Intersect    IntersectType `json:"intersect"`
}

// Address returns the address of the reference point itself.
func (p GeocodingReferencePoint) Address() TrackMeter {
	return TrackMeter{KmNumber: p.KmNumber, Meters: p.Meters}
}

// RejectedKmPost is a km-post left out of a context.
type RejectedKmPost struct {
	KmPost KmPost               `json:"kmPost"`
	Reason KmPostRejectedReason `json:"reason"`
}

// GeocodingContextResult is the outcome of building a geocoding context.
type GeocodingContextResult struct {
	TrackNumber       string                    `json:"trackNumber"`
	ReferencePoints   []GeocodingReferencePoint `json:"referencePoints"`
	RejectedKmPosts   []RejectedKmPost          `json:"rejectedKmPosts,omitempty"`
	ValidKmPosts      []KmPost                  `json:"validKmPosts,omitempty"`
	StartPointTooLong bool                      `json:"startPointTooLong,omitempty"`
}

// AddressPoint is an alignment point with its geocoded address.
type AddressPoint struct {
	Point   AlignmentPoint `json:"point"`
	Address TrackMeter     `json:"address"`
}

// AlignmentAddresses is the geocoded walk along an alignment.
type AlignmentAddresses struct {
	StartPoint     AddressPoint   `json:"startPoint"`
	EndPoint       AddressPoint   `json:"endPoint"`
	StartIntersect IntersectType  `json:"startIntersect"`
	EndIntersect   IntersectType  `json:"endIntersect"`
	MidPoints      []AddressPoint `json:"midPoints"`
}

// AllPoints returns start, mid and end points in order.
func (a AlignmentAddresses) AllPoints() []AddressPoint {
	out := make([]AddressPoint, 0, len(a.MidPoints)+2)
	out = append(out, a.StartPoint)
	out = append(out, a.MidPoints...)
	return append(out, a.EndPoint)
}

// Geocoder maps alignment positions to linear addresses.
type Geocoder interface {
	ContextKey(tn TrackNumber, rl ReferenceLine, kmPosts []KmPost) GeocodingContextKey
	ContextResult(key GeocodingContextKey) (GeocodingContextResult, bool)
	AddressPoints(key GeocodingContextKey, alignment Alignment) (AlignmentAddresses, bool)
}

// SwitchAlignment is one declared path through a switch structure.
type SwitchAlignment struct {
	Joints []JointNumber `json:"joints" yaml:"joints"`
}

// SwitchStructure is a catalogue entry describing a switch type.
type SwitchStructure struct {
	ID                     string            `json:"id" yaml:"id"`
	BaseType               string            `json:"baseType" yaml:"baseType"`
	PresentationJoint      JointNumber       `json:"presentationJoint" yaml:"presentationJoint"`
	Joints                 []JointNumber     `json:"joints" yaml:"joints"`
	Alignments             []SwitchAlignment `json:"alignments" yaml:"alignments"`
	FrontJoint             *JointNumber      `json:"frontJoint,omitempty" yaml:"frontJoint"`
	SharedPassThroughJoint *JointNumber      `json:"sharedPassThroughJoint,omitempty" yaml:"sharedPassThroughJoint"`
	SplitAtPresentation    bool              `json:"splitAtPresentation,omitempty" yaml:"splitAtPresentation"`
}

// SwitchConnectivityType describes how tracks are expected to connect to a structure.
type SwitchConnectivityType struct {
	FrontJoint             *JointNumber
	SharedPassThroughJoint *JointNumber
	TrackLinkedAlignments  [][]JointNumber
}

// ConnectivityType derives the connectivity expectations of the structure.
// Crossing structures have their alignments split at the presentation joint,
// since separate tracks usually cover each half.
func (s SwitchStructure) ConnectivityType() SwitchConnectivityType {
	ct := SwitchConnectivityType{FrontJoint: s.FrontJoint, SharedPassThroughJoint: s.SharedPassThroughJoint}
	for _, a := range s.Alignments {
		idx := slices.Index(a.Joints, s.PresentationJoint)
		if s.SplitAtPresentation && idx > 0 && idx < len(a.Joints)-1 {
			ct.TrackLinkedAlignments = append(ct.TrackLinkedAlignments,
				slices.Clone(a.Joints[:idx+1]), slices.Clone(a.Joints[idx:]))
			continue
		}
		ct.TrackLinkedAlignments = append(ct.TrackLinkedAlignments, slices.Clone(a.Joints))
	}
	return ct
}

// JointSequence renders joints as 1-5-2.
func JointSequence(joints []JointNumber) string {
	parts := make([]string, len(joints))
	for i, j := range joints {
		parts[i] = strconv.Itoa(int(j))
	}
	return strings.Join(parts, "-")
}

// SwitchLibrary resolves switch structures by id.
type SwitchLibrary interface {
	Structure(id string) (SwitchStructure, bool)
}

// ExternalIDIssuer assigns identifiers in an external system of record.
type ExternalIDIssuer interface {
	Issue(ctx context.Context, kind AssetKind) (string, error)
}
