package domain

import (
	"slices"
	"time"
)

// Operation is the inferred effect a candidate has when published.
type Operation string

// Candidate operations.
const (
	OperationCreate  Operation = "CREATE"
	OperationModify  Operation = "MODIFY"
	OperationDelete  Operation = "DELETE"
	OperationRestore Operation = "RESTORE"
)

// InferOperation derives the operation from the draft state and the official
// state, if any.
func InferOperation(draft LayoutState, official *LayoutState) Operation {
	switch {
	case official == nil:
		return OperationCreate
	case draft.IsRemoved() && !official.IsRemoved():
		return OperationDelete
	case official.IsRemoved() && !draft.IsRemoved():
		return OperationRestore
	default:
		return OperationModify
	}
}

// PublicationCandidate is a draft eligible for publication.
type PublicationCandidate struct {
	Kind       AssetKind         `json:"kind"`
	RowVersion RowVersion        `json:"rowVersion"`
	Operation  Operation         `json:"operation"`
	User       string            `json:"user,omitempty"`
	ChangeTime time.Time         `json:"changeTime"`
	Cancelled  bool              `json:"cancelled,omitempty"`
	Issues     []ValidationIssue `json:"issues,omitempty"`
}

// ID returns the asset id of the candidate.
func (c PublicationCandidate) ID() IntID { return c.RowVersion.ID }

// PublicationCandidates groups candidates per kind.
type PublicationCandidates struct {
	Branch         Branch                 `json:"branch"`
	TrackNumbers   []PublicationCandidate `json:"trackNumbers"`
	KmPosts        []PublicationCandidate `json:"kmPosts"`
	ReferenceLines []PublicationCandidate `json:"referenceLines"`
	LocationTracks []PublicationCandidate `json:"locationTracks"`
	Switches       []PublicationCandidate `json:"switches"`
}

// Of returns the candidates of one kind.
func (c PublicationCandidates) Of(kind AssetKind) []PublicationCandidate {
	switch kind {
	case KindTrackNumber:
		return c.TrackNumbers
	case KindKmPost:
		return c.KmPosts
	case KindReferenceLine:
		return c.ReferenceLines
	case KindLocationTrack:
		return c.LocationTracks
	case KindSwitch:
		return c.Switches
	}
	return nil
}

// Set replaces the candidates of one kind.
func (c *PublicationCandidates) Set(kind AssetKind, cands []PublicationCandidate) {
	switch kind {
	case KindTrackNumber:
		c.TrackNumbers = cands
	case KindKmPost:
		c.KmPosts = cands
	case KindReferenceLine:
		c.ReferenceLines = cands
	case KindLocationTrack:
		c.LocationTracks = cands
	case KindSwitch:
		c.Switches = cands
	}
}

// IDs returns the ids of every candidate.
func (c PublicationCandidates) IDs() PublicationRequestIDs {
	var ids PublicationRequestIDs
	for _, kind := range PublishOrder {
		for _, cand := range c.Of(kind) {
			ids.Add(kind, cand.ID())
		}
	}
	return ids
}

// Filter keeps the candidates whose ids are in the request.
func (c PublicationCandidates) Filter(req PublicationRequestIDs) PublicationCandidates {
	out := PublicationCandidates{Branch: c.Branch}
	for _, kind := range PublishOrder {
		var kept []PublicationCandidate
		for _, cand := range c.Of(kind) {
			if req.Contains(kind, cand.ID()) {
				kept = append(kept, cand)
			}
		}
		out.Set(kind, kept)
	}
	return out
}

// PublicationRequestIDs selects assets per kind.
type PublicationRequestIDs struct {
	TrackNumbers   []IntID `json:"trackNumbers,omitempty" yaml:"trackNumbers"`
	KmPosts        []IntID `json:"kmPosts,omitempty" yaml:"kmPosts"`
	ReferenceLines []IntID `json:"referenceLines,omitempty" yaml:"referenceLines"`
	LocationTracks []IntID `json:"locationTracks,omitempty" yaml:"locationTracks"`
	Switches       []IntID `json:"switches,omitempty" yaml:"switches"`
}

// Of returns the ids of one kind.
func (r PublicationRequestIDs) Of(kind AssetKind) []IntID {
	switch kind {
	case KindTrackNumber:
		return r.TrackNumbers
	case KindKmPost:
		return r.KmPosts
	case KindReferenceLine:
		return r.ReferenceLines
	case KindLocationTrack:
		return r.LocationTracks
	case KindSwitch:
		return r.Switches
	}
	return nil
}

func (r *PublicationRequestIDs) ref(kind AssetKind) *[]IntID {
	switch kind {
	case KindTrackNumber:
		return &r.TrackNumbers
	case KindKmPost:
		return &r.KmPosts
	case KindReferenceLine:
		return &r.ReferenceLines
	case KindLocationTrack:
		return &r.LocationTracks
	case KindSwitch:
		return &r.Switches
	}
	panic("unknown asset kind " + string(kind))
}

// Add appends id unless already present.
func (r *PublicationRequestIDs) Add(kind AssetKind, id IntID) {
	ids := r.ref(kind)
	if !slices.Contains(*ids, id) {
		*ids = append(*ids, id)
	}
}

// Contains reports whether the request selects id.
func (r PublicationRequestIDs) Contains(kind AssetKind, id IntID) bool {
	return slices.Contains(r.Of(kind), id)
}

// IsEmpty reports whether no asset is selected.
func (r PublicationRequestIDs) IsEmpty() bool {
	for _, kind := range PublishOrder {
		if len(r.Of(kind)) > 0 {
			return false
		}
	}
	return true
}

// Plus returns the union of both requests.
func (r PublicationRequestIDs) Plus(o PublicationRequestIDs) PublicationRequestIDs {
	var out PublicationRequestIDs
	for _, kind := range PublishOrder {
		for _, id := range r.Of(kind) {
			out.Add(kind, id)
		}
		for _, id := range o.Of(kind) {
			out.Add(kind, id)
		}
	}
	return out
}

// Minus returns the ids of r not selected by o.
func (r PublicationRequestIDs) Minus(o PublicationRequestIDs) PublicationRequestIDs {
	var out PublicationRequestIDs
	for _, kind := range PublishOrder {
		for _, id := range r.Of(kind) {
			if !o.Contains(kind, id) {
				out.Add(kind, id)
			}
		}
	}
	return out
}

// Sorted returns a copy with ids sorted per kind.
func (r PublicationRequestIDs) Sorted() PublicationRequestIDs {
	var out PublicationRequestIDs
	for _, kind := range PublishOrder {
		ids := slices.Clone(r.Of(kind))
		slices.SortFunc(ids, CompareIntIDs)
		*out.ref(kind) = ids
	}
	return out
}

// ValidationVersions is the publication set: the chosen row version per id
// and kind, for one branch.
type ValidationVersions struct {
	Branch         Branch       `json:"branch"`
	TrackNumbers   []RowVersion `json:"trackNumbers"`
	KmPosts        []RowVersion `json:"kmPosts"`
	ReferenceLines []RowVersion `json:"referenceLines"`
	LocationTracks []RowVersion `json:"locationTracks"`
	Switches       []RowVersion `json:"switches"`
}

// Of returns the versions of one kind.
func (v ValidationVersions) Of(kind AssetKind) []RowVersion {
	switch kind {
	case KindTrackNumber:
		return v.TrackNumbers
	case KindKmPost:
		return v.KmPosts
	case KindReferenceLine:
		return v.ReferenceLines
	case KindLocationTrack:
		return v.LocationTracks
	case KindSwitch:
		return v.Switches
	}
	return nil
}

// Set replaces the versions of one kind.
func (v *ValidationVersions) Set(kind AssetKind, versions []RowVersion) {
	switch kind {
	case KindTrackNumber:
		v.TrackNumbers = versions
	case KindKmPost:
		v.KmPosts = versions
	case KindReferenceLine:
		v.ReferenceLines = versions
	case KindLocationTrack:
		v.LocationTracks = versions
	case KindSwitch:
		v.Switches = versions
	}
}

// VersionOf returns the chosen version of id.
func (v ValidationVersions) VersionOf(kind AssetKind, id IntID) (RowVersion, bool) {
	for _, rv := range v.Of(kind) {
		if rv.ID == id {
			return rv, true
		}
	}
	return RowVersion{}, false
}

// Contains reports whether id is in the publication set.
func (v ValidationVersions) Contains(kind AssetKind, id IntID) bool {
	_, ok := v.VersionOf(kind, id)
	return ok
}

// IDs returns the ids of the set.
func (v ValidationVersions) IDs() PublicationRequestIDs {
	var ids PublicationRequestIDs
	for _, kind := range PublishOrder {
		for _, rv := range v.Of(kind) {
			ids.Add(kind, rv.ID)
		}
	}
	return ids
}

// IsEmpty reports whether the set has no versions.
func (v ValidationVersions) IsEmpty() bool { return v.IDs().IsEmpty() }

// IndirectChanges are assets affected by, but not included in, a publication.
type IndirectChanges struct {
	TrackNumbers   []IntID `json:"trackNumbers,omitempty"`
	LocationTracks []IntID `json:"locationTracks,omitempty"`
	Switches       []IntID `json:"switches,omitempty"`
}

// Publication is the immutable record of one successful publish.
type Publication struct {
	ID             IntID           `json:"id"`
	UUID           string          `json:"uuid"`
	Branch         Branch          `json:"branch"`
	Time           time.Time       `json:"time"`
	User           string          `json:"user"`
	Message        string          `json:"message"`
	TrackNumbers   []RowVersion    `json:"trackNumbers,omitempty"`
	KmPosts        []RowVersion    `json:"kmPosts,omitempty"`
	ReferenceLines []RowVersion    `json:"referenceLines,omitempty"`
	LocationTracks []RowVersion    `json:"locationTracks,omitempty"`
	Switches       []RowVersion    `json:"switches,omitempty"`
	Indirect       IndirectChanges `json:"indirect"`
}

// PublishResult reports what a publish promoted.
type PublishResult struct {
	PublicationID  IntID `json:"publicationId"`
	TrackNumbers   int   `json:"trackNumbers"`
	KmPosts        int   `json:"kmPosts"`
	ReferenceLines int   `json:"referenceLines"`
	LocationTracks int   `json:"locationTracks"`
	Switches       int   `json:"switches"`
}

// RevertResult reports how many drafts a revert discarded.
type RevertResult struct {
	TrackNumbers   int `json:"trackNumbers"`
	KmPosts        int `json:"kmPosts"`
	ReferenceLines int `json:"referenceLines"`
	LocationTracks int `json:"locationTracks"`
	Switches       int `json:"switches"`
}

// Add increments the count of one kind.
func (r *RevertResult) Add(kind AssetKind, n int) {
	switch kind {
	case KindTrackNumber:
		r.TrackNumbers += n
	case KindKmPost:
		r.KmPosts += n
	case KindReferenceLine:
		r.ReferenceLines += n
	case KindLocationTrack:
		r.LocationTracks += n
	case KindSwitch:
		r.Switches += n
	}
}

// MRange is a closed range of along-track positions.
type MRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// GeometryChangeRemark summarises a published geometry change.
type GeometryChangeRemark struct {
	Added        []MRange `json:"added,omitempty"`
	Removed      []MRange `json:"removed,omitempty"`
	LengthChange float64  `json:"lengthChange"`
	Summary      string   `json:"summary"`
}

// GeometryChange is a queued comparison between the previous official and the
// newly published geometry of an alignment-bearing asset.
type GeometryChange struct {
	PublicationID IntID                 `json:"publicationId"`
	Kind          AssetKind             `json:"kind"`
	AssetID       IntID                 `json:"assetId"`
	OldVersion    *RowVersion           `json:"oldVersion,omitempty"`
	NewVersion    RowVersion            `json:"newVersion"`
	Processed     bool                  `json:"processed"`
	Remark        *GeometryChangeRemark `json:"remark,omitempty"`
}
