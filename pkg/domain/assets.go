package domain

import (
	"slices"
	"time"
)

// AssetKind enumerates the publishable layout asset kinds.
type AssetKind string

// Asset kinds.
const (
	KindTrackNumber   AssetKind = "TRACK_NUMBER"
	KindReferenceLine AssetKind = "REFERENCE_LINE"
	KindLocationTrack AssetKind = "LOCATION_TRACK"
	KindSwitch        AssetKind = "SWITCH"
	KindKmPost        AssetKind = "KM_POST"
)

// PublishOrder lists kinds in the order drafts are promoted.
var PublishOrder = []AssetKind{KindTrackNumber, KindKmPost, KindSwitch, KindReferenceLine, KindLocationTrack}

// LayoutState is the existence/lifecycle state of an asset.
type LayoutState string

// Lifecycle states.
const (
	StateInUse    LayoutState = "IN_USE"
	StateNotInUse LayoutState = "NOT_IN_USE"
	StateBuilt    LayoutState = "BUILT"
	StatePlanned  LayoutState = "PLANNED"
	StateDeleted  LayoutState = "DELETED"
)

// Exists is false only for deleted assets.
func (s LayoutState) Exists() bool { return s != StateDeleted }

// IsPublishable is false for states that may not be published.
func (s LayoutState) IsPublishable() bool { return s != StatePlanned }

// IsLinkable reports whether other assets may link to an asset in this state.
func (s LayoutState) IsLinkable() bool {
	return s == StateInUse || s == StateNotInUse || s == StateBuilt
}

// IsRemoved reports whether the asset has been removed from the network.
func (s LayoutState) IsRemoved() bool { return s == StateDeleted }

// Category collapses the state into EXISTING or NOT_EXISTING.
func (s LayoutState) Category() string {
	if s.Exists() {
		return "EXISTING"
	}
	return "NOT_EXISTING"
}

// AssetHeader carries identity, version and bookkeeping shared by every kind.
type AssetHeader struct {
	ID         IntID         `json:"id"`
	Version    int           `json:"version"`
	Context    LayoutContext `json:"context"`
	State      LayoutState   `json:"state"`
	Cancelled  bool          `json:"cancelled,omitempty"`
	ExternalID string        `json:"externalId,omitempty"`
	ChangeUser string        `json:"changeUser,omitempty"`
	ChangeTime time.Time     `json:"changeTime"`
}

// Header returns the header itself; it is promoted to every asset kind.
func (h AssetHeader) Header() AssetHeader { return h }

// RowVersion returns the row identity of this revision.
func (h AssetHeader) RowVersion() RowVersion { return RowVersion{ID: h.ID, Version: h.Version} }

// IsDraft reports whether the row was read as a draft.
func (h AssetHeader) IsDraft() bool { return h.Context.State == Draft }

// IsOfficial reports whether the row was read as official.
func (h AssetHeader) IsOfficial() bool { return h.Context.State == Official }

// Asset is implemented by every layout asset kind.
type Asset interface {
	Header() AssetHeader
	Kind() AssetKind
}

// Versioned is satisfied by concrete asset kinds whose header can be restamped.
type Versioned[T any] interface {
	Asset
	WithHeader(AssetHeader) T
}

// TrackNumber is the administrative identifier of a railway line.
type TrackNumber struct {
	AssetHeader
	Number      string `json:"number"`
	Description string `json:"description,omitempty"`
}

// Kind implements Asset.
func (TrackNumber) Kind() AssetKind { return KindTrackNumber }

// WithHeader returns a copy with the header replaced.
func (t TrackNumber) WithHeader(h AssetHeader) TrackNumber { t.AssetHeader = h; return t }

// ReferenceLine is the addressing geometry of a track number.
type ReferenceLine struct {
	AssetHeader
	TrackNumberID IntID      `json:"trackNumberId"`
	StartAddress  TrackMeter `json:"startAddress"`
	Geometry      Alignment  `json:"geometry"`
}

// Kind implements Asset.
func (ReferenceLine) Kind() AssetKind { return KindReferenceLine }

// WithHeader returns a copy with the header replaced.
func (r ReferenceLine) WithHeader(h AssetHeader) ReferenceLine { r.AssetHeader = h; return r }

// TopologicalConnectivity declares which track ends are expected to meet a switch.
type TopologicalConnectivity string

// Connectivity types.
const (
	ConnectivityNone        TopologicalConnectivity = "NONE"
	ConnectivityStart       TopologicalConnectivity = "START"
	ConnectivityEnd         TopologicalConnectivity = "END"
	ConnectivityStartAndEnd TopologicalConnectivity = "START_AND_END"
)

// ExpectsStart reports whether the track start should be connected.
func (c TopologicalConnectivity) ExpectsStart() bool {
	return c == ConnectivityStart || c == ConnectivityStartAndEnd
}

// ExpectsEnd reports whether the track end should be connected.
func (c TopologicalConnectivity) ExpectsEnd() bool {
	return c == ConnectivityEnd || c == ConnectivityStartAndEnd
}

// TopologySwitch links a track end to a switch joint without a segment link.
type TopologySwitch struct {
	SwitchID IntID       `json:"switchId"`
	Joint    JointNumber `json:"joint"`
}

// LocationTrack is a physical track with its own alignment.
type LocationTrack struct {
	AssetHeader
	Name                    string                  `json:"name"`
	Description             string                  `json:"description,omitempty"`
	TrackNumberID           IntID                   `json:"trackNumberId"`
	DuplicateOf             *IntID                  `json:"duplicateOf,omitempty"`
	TopologicalConnectivity TopologicalConnectivity `json:"topologicalConnectivity"`
	TopologyStartSwitch     *TopologySwitch         `json:"topologyStartSwitch,omitempty"`
	TopologyEndSwitch       *TopologySwitch         `json:"topologyEndSwitch,omitempty"`
	Geometry                Alignment               `json:"geometry"`
}

// Kind implements Asset.
func (LocationTrack) Kind() AssetKind { return KindLocationTrack }

// WithHeader returns a copy with the header replaced.
func (l LocationTrack) WithHeader(h AssetHeader) LocationTrack { l.AssetHeader = h; return l }

// SegmentSwitchIDs returns the distinct switches linked by segments, in order.
func (l LocationTrack) SegmentSwitchIDs() []IntID {
	var ids []IntID
	for _, seg := range l.Geometry.Segments {
		if seg.SwitchID != nil && !slices.Contains(ids, *seg.SwitchID) {
			ids = append(ids, *seg.SwitchID)
		}
	}
	return ids
}

// SwitchIDs returns every switch the track references through segments or
// topology end links.
func (l LocationTrack) SwitchIDs() []IntID {
	ids := l.SegmentSwitchIDs()
	for _, ts := range []*TopologySwitch{l.TopologyStartSwitch, l.TopologyEndSwitch} {
		if ts != nil && !slices.Contains(ids, ts.SwitchID) {
			ids = append(ids, ts.SwitchID)
		}
	}
	return ids
}

// LinksSwitch reports whether the track references the switch in any way.
func (l LocationTrack) LinksSwitch(id IntID) bool { return slices.Contains(l.SwitchIDs(), id) }

// SwitchJoint is the located connection point of a switch.
type SwitchJoint struct {
	Number   JointNumber `json:"number"`
	Location Point       `json:"location"`
}

// Switch is a turnout or crossing placed in the network.
type Switch struct {
	AssetHeader
	Name        string        `json:"name"`
	StructureID string        `json:"structureId"`
	Joints      []SwitchJoint `json:"joints,omitempty"`
}

// Kind implements Asset.
func (Switch) Kind() AssetKind { return KindSwitch }

// WithHeader returns a copy with the header replaced.
func (s Switch) WithHeader(h AssetHeader) Switch { s.AssetHeader = h; return s }

// Joint returns the located joint with the given number.
func (s Switch) Joint(n JointNumber) (SwitchJoint, bool) {
	for _, j := range s.Joints {
		if j.Number == n {
			return j, true
		}
	}
	return SwitchJoint{}, false
}

// KmPost marks the start of a kilometre on a track number.
type KmPost struct {
	AssetHeader
	TrackNumberID *IntID   `json:"trackNumberId,omitempty"`
	KmNumber      KmNumber `json:"kmNumber"`
	Location      *Point   `json:"location,omitempty"`
}

// Kind implements Asset.
func (KmPost) Kind() AssetKind { return KindKmPost }

// WithHeader returns a copy with the header replaced.
func (k KmPost) WithHeader(h AssetHeader) KmPost { k.AssetHeader = h; return k }
