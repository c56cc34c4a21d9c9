package validation

import (
	"slices"

	"golang.org/x/text/unicode/norm"

	"layoutpub/pkg/domain"
)

// Context is the layout seen through a publication set: every asset has
// exactly one version, the candidate when it is being published and the
// official one otherwise. A Context is built per validation call and caches
// everything it looks up.
type Context struct {
	view     domain.LayoutView
	branch   domain.Branch
	set      domain.ValidationVersions
	geocoder domain.Geocoder
	library  domain.SwitchLibrary

	trackNumbers   *resolver[domain.TrackNumber]
	referenceLines *resolver[domain.ReferenceLine]
	locationTracks *resolver[domain.LocationTrack]
	switches       *resolver[domain.Switch]
	kmPosts        *resolver[domain.KmPost]

	kmPostsByTrackNumber       *NullableCache[domain.IntID, []domain.IntID]
	tracksByTrackNumber        *NullableCache[domain.IntID, []domain.IntID]
	referenceLineByTrackNumber *NullableCache[domain.IntID, []domain.IntID]
	tracksBySwitch             *NullableCache[domain.IntID, []domain.IntID]
	tracksByDuplicateOf        *NullableCache[domain.IntID, []domain.IntID]
	trackNumbersByNumber       *NullableCache[string, []domain.IntID]
	switchesByName             *NullableCache[string, []domain.IntID]
	tracksByName               *NullableCache[string, []domain.IntID]
	geocodingKeysByTrackNumber *NullableCache[domain.IntID, domain.GeocodingContextKey]
}

// NewContext builds a context over view for publishing set into branch.
func NewContext(view domain.LayoutView, branch domain.Branch, set domain.ValidationVersions, geocoder domain.Geocoder, library domain.SwitchLibrary) *Context {
	return &Context{
		view:     view,
		branch:   branch,
		set:      set,
		geocoder: geocoder,
		library:  library,

		trackNumbers:   newResolver(domain.KindTrackNumber, view.TrackNumbers(), branch, set),
		referenceLines: newResolver(domain.KindReferenceLine, view.ReferenceLines(), branch, set),
		locationTracks: newResolver(domain.KindLocationTrack, view.LocationTracks(), branch, set),
		switches:       newResolver(domain.KindSwitch, view.Switches(), branch, set),
		kmPosts:        newResolver(domain.KindKmPost, view.KmPosts(), branch, set),

		kmPostsByTrackNumber:       NewNullableCache[domain.IntID, []domain.IntID](),
		tracksByTrackNumber:        NewNullableCache[domain.IntID, []domain.IntID](),
		referenceLineByTrackNumber: NewNullableCache[domain.IntID, []domain.IntID](),
		tracksBySwitch:             NewNullableCache[domain.IntID, []domain.IntID](),
		tracksByDuplicateOf:        NewNullableCache[domain.IntID, []domain.IntID](),
		trackNumbersByNumber:       NewNullableCache[string, []domain.IntID](),
		switchesByName:             NewNullableCache[string, []domain.IntID](),
		tracksByName:               NewNullableCache[string, []domain.IntID](),
		geocodingKeysByTrackNumber: NewNullableCache[domain.IntID, domain.GeocodingContextKey](),
	}
}

// Branch is the publication target branch.
func (c *Context) Branch() domain.Branch { return c.branch }

// Set is the publication set being validated.
func (c *Context) Set() domain.ValidationVersions { return c.set }

func (c *Context) TrackNumber(id domain.IntID) (domain.TrackNumber, bool) { return c.trackNumbers.get(id) }

func (c *Context) ReferenceLine(id domain.IntID) (domain.ReferenceLine, bool) {
	return c.referenceLines.get(id)
}

func (c *Context) LocationTrack(id domain.IntID) (domain.LocationTrack, bool) {
	return c.locationTracks.get(id)
}

func (c *Context) Switch(id domain.IntID) (domain.Switch, bool) { return c.switches.get(id) }

func (c *Context) KmPost(id domain.IntID) (domain.KmPost, bool) { return c.kmPosts.get(id) }

// DraftTrackNumber reads the branch draft regardless of the publication set.
func (c *Context) DraftTrackNumber(id domain.IntID) (domain.TrackNumber, bool) {
	return c.trackNumbers.draft(id)
}

// DraftLocationTrack reads the branch draft regardless of the publication set.
func (c *Context) DraftLocationTrack(id domain.IntID) (domain.LocationTrack, bool) {
	return c.locationTracks.draft(id)
}

// DraftSwitch reads the branch draft regardless of the publication set.
func (c *Context) DraftSwitch(id domain.IntID) (domain.Switch, bool) { return c.switches.draft(id) }

// IsCancelled reports whether the candidate of id cancels a design change.
func (c *Context) IsCancelled(kind domain.AssetKind, id domain.IntID) bool {
	switch kind {
	case domain.KindTrackNumber:
		return c.trackNumbers.cancelled(id)
	case domain.KindReferenceLine:
		return c.referenceLines.cancelled(id)
	case domain.KindLocationTrack:
		return c.locationTracks.cancelled(id)
	case domain.KindSwitch:
		return c.switches.cancelled(id)
	case domain.KindKmPost:
		return c.kmPosts.cancelled(id)
	}
	return false
}

// InPublicationSet reports whether id of kind is being published.
func (c *Context) InPublicationSet(kind domain.AssetKind, id domain.IntID) bool {
	return c.set.Contains(kind, id)
}

// Structure looks up a switch structure from the library.
func (c *Context) Structure(id string) (domain.SwitchStructure, bool) {
	if c.library == nil {
		return domain.SwitchStructure{}, false
	}
	return c.library.Structure(id)
}

func single[K comparable, V any](batch func([]K) map[K]V) func(K) (V, bool) {
	return func(k K) (V, bool) {
		v, ok := batch([]K{k})[k]
		return v, ok
	}
}

func filtered[T any](rows []T, keep func(T) bool) []T {
	return slices.DeleteFunc(rows, func(row T) bool { return !keep(row) })
}

func normalized(name string) string { return norm.NFC.String(name) }

// KmPostsByTrackNumber returns the resolved km-posts of a track number.
func (c *Context) KmPostsByTrackNumber(tn domain.IntID) []domain.KmPost {
	ids, _ := c.kmPostsByTrackNumber.Get(tn, single(c.fetchKmPostsByTrackNumbers))
	return filtered(c.kmPosts.getAll(ids), func(k domain.KmPost) bool {
		return k.TrackNumberID != nil && *k.TrackNumberID == tn
	})
}

func (c *Context) fetchKmPostsByTrackNumbers(tns []domain.IntID) map[domain.IntID][]domain.IntID {
	official := c.view.KmPostsByTrackNumbers(c.branch.Official(), tns)
	candidates := c.kmPosts.candidates()
	out := make(map[domain.IntID][]domain.IntID, len(tns))
	for _, tn := range tns {
		var matching []domain.IntID
		for _, k := range candidates {
			if k.TrackNumberID != nil && *k.TrackNumberID == tn {
				matching = append(matching, k.ID)
			}
		}
		c.kmPosts.cacheOfficial(official[tn])
		out[tn] = union(official[tn], matching)
	}
	return out
}

// LocationTracksByTrackNumber returns the resolved location tracks of a track number.
func (c *Context) LocationTracksByTrackNumber(tn domain.IntID) []domain.LocationTrack {
	ids, _ := c.tracksByTrackNumber.Get(tn, single(c.fetchTracksByTrackNumbers))
	return filtered(c.locationTracks.getAll(ids), func(t domain.LocationTrack) bool { return t.TrackNumberID == tn })
}

func (c *Context) fetchTracksByTrackNumbers(tns []domain.IntID) map[domain.IntID][]domain.IntID {
	official := c.view.LocationTracksByTrackNumbers(c.branch.Official(), tns)
	candidates := c.locationTracks.candidates()
	out := make(map[domain.IntID][]domain.IntID, len(tns))
	for _, tn := range tns {
		var matching []domain.IntID
		for _, t := range candidates {
			if t.TrackNumberID == tn {
				matching = append(matching, t.ID)
			}
		}
		c.locationTracks.cacheOfficial(official[tn])
		out[tn] = union(official[tn], matching)
	}
	return out
}

// ReferenceLineByTrackNumber returns the resolved reference line of a track number.
func (c *Context) ReferenceLineByTrackNumber(tn domain.IntID) (domain.ReferenceLine, bool) {
	ids, _ := c.referenceLineByTrackNumber.Get(tn, single(c.fetchReferenceLinesByTrackNumbers))
	for _, rl := range c.referenceLines.getAll(ids) {
		if rl.TrackNumberID == tn {
			return rl, true
		}
	}
	return domain.ReferenceLine{}, false
}

func (c *Context) fetchReferenceLinesByTrackNumbers(tns []domain.IntID) map[domain.IntID][]domain.IntID {
	official := c.view.ReferenceLinesByTrackNumbers(c.branch.Official(), tns)
	candidates := c.referenceLines.candidates()
	out := make(map[domain.IntID][]domain.IntID, len(tns))
	for _, tn := range tns {
		var matching []domain.IntID
		for _, rl := range candidates {
			if rl.TrackNumberID == tn {
				matching = append(matching, rl.ID)
			}
		}
		var officialVersions []domain.RowVersion
		if rv, ok := official[tn]; ok {
			officialVersions = append(officialVersions, rv)
		}
		c.referenceLines.cacheOfficial(officialVersions)
		out[tn] = union(officialVersions, matching)
	}
	return out
}

// SwitchTracks returns the resolved location tracks linked to a switch by
// segments or topology.
func (c *Context) SwitchTracks(switchID domain.IntID) []domain.LocationTrack {
	ids, _ := c.tracksBySwitch.Get(switchID, single(c.fetchSwitchTracks))
	return filtered(c.locationTracks.getAll(ids), func(t domain.LocationTrack) bool { return t.LinksSwitch(switchID) })
}

func (c *Context) fetchSwitchTracks(switchIDs []domain.IntID) map[domain.IntID][]domain.IntID {
	official := c.view.LocationTracksBySwitches(c.branch.Official(), switchIDs)
	candidates := c.locationTracks.candidates()
	out := make(map[domain.IntID][]domain.IntID, len(switchIDs))
	for _, id := range switchIDs {
		var matching []domain.IntID
		for _, t := range candidates {
			if t.LinksSwitch(id) {
				matching = append(matching, t.ID)
			}
		}
		c.locationTracks.cacheOfficial(official[id])
		out[id] = union(official[id], matching)
	}
	return out
}

// DuplicateTracks returns the resolved tracks marked as duplicates of trackID.
func (c *Context) DuplicateTracks(trackID domain.IntID) []domain.LocationTrack {
	ids, _ := c.tracksByDuplicateOf.Get(trackID, single(c.fetchDuplicateTracks))
	return filtered(c.locationTracks.getAll(ids), func(t domain.LocationTrack) bool {
		return t.DuplicateOf != nil && *t.DuplicateOf == trackID
	})
}

func (c *Context) fetchDuplicateTracks(trackIDs []domain.IntID) map[domain.IntID][]domain.IntID {
	official := c.view.LocationTracksByDuplicateOf(c.branch.Official(), trackIDs)
	candidates := c.locationTracks.candidates()
	out := make(map[domain.IntID][]domain.IntID, len(trackIDs))
	for _, id := range trackIDs {
		var matching []domain.IntID
		for _, t := range candidates {
			if t.DuplicateOf != nil && *t.DuplicateOf == id {
				matching = append(matching, t.ID)
			}
		}
		c.locationTracks.cacheOfficial(official[id])
		out[id] = union(official[id], matching)
	}
	return out
}

// TrackNumbersByNumber returns the resolved track numbers carrying number.
func (c *Context) TrackNumbersByNumber(number string) []domain.TrackNumber {
	key := normalized(number)
	ids, _ := c.trackNumbersByNumber.Get(key, single(c.fetchTrackNumbersByNumbers))
	return filtered(c.trackNumbers.getAll(ids), func(t domain.TrackNumber) bool { return normalized(t.Number) == key })
}

func (c *Context) fetchTrackNumbersByNumbers(numbers []string) map[string][]domain.IntID {
	official := c.view.TrackNumbersByNumbers(c.branch.Official(), numbers)
	candidates := c.trackNumbers.candidates()
	out := make(map[string][]domain.IntID, len(numbers))
	for _, n := range numbers {
		var matching []domain.IntID
		for _, t := range candidates {
			if normalized(t.Number) == n {
				matching = append(matching, t.ID)
			}
		}
		c.trackNumbers.cacheOfficial(official[n])
		out[n] = union(official[n], matching)
	}
	return out
}

// SwitchesByName returns the resolved switches named name.
func (c *Context) SwitchesByName(name string) []domain.Switch {
	key := normalized(name)
	ids, _ := c.switchesByName.Get(key, single(c.fetchSwitchesByNames))
	return filtered(c.switches.getAll(ids), func(s domain.Switch) bool { return normalized(s.Name) == key })
}

func (c *Context) fetchSwitchesByNames(names []string) map[string][]domain.IntID {
	official := c.view.SwitchesByNames(c.branch.Official(), names)
	candidates := c.switches.candidates()
	out := make(map[string][]domain.IntID, len(names))
	for _, n := range names {
		var matching []domain.IntID
		for _, s := range candidates {
			if normalized(s.Name) == n {
				matching = append(matching, s.ID)
			}
		}
		c.switches.cacheOfficial(official[n])
		out[n] = union(official[n], matching)
	}
	return out
}

// LocationTracksByName returns the resolved location tracks named name.
func (c *Context) LocationTracksByName(name string) []domain.LocationTrack {
	key := normalized(name)
	ids, _ := c.tracksByName.Get(key, single(c.fetchTracksByNames))
	return filtered(c.locationTracks.getAll(ids), func(t domain.LocationTrack) bool { return normalized(t.Name) == key })
}

func (c *Context) fetchTracksByNames(names []string) map[string][]domain.IntID {
	official := c.view.LocationTracksByNames(c.branch.Official(), names)
	candidates := c.locationTracks.candidates()
	out := make(map[string][]domain.IntID, len(names))
	for _, n := range names {
		var matching []domain.IntID
		for _, t := range candidates {
			if normalized(t.Name) == n {
				matching = append(matching, t.ID)
			}
		}
		c.locationTracks.cacheOfficial(official[n])
		out[n] = union(official[n], matching)
	}
	return out
}

// PotentiallyAffectedSwitchIDs returns the switches a track links to now plus,
// when the track is being changed, the switches its official version linked to.
func (c *Context) PotentiallyAffectedSwitchIDs(trackID domain.IntID) []domain.IntID {
	track, found := c.LocationTrack(trackID)
	var ids []domain.IntID
	if !found || track.IsDraft() {
		if official, ok := c.view.LocationTracks().Get(c.branch.Official(), trackID); ok {
			ids = append(ids, official.SwitchIDs()...)
		}
	}
	if found {
		for _, id := range track.SwitchIDs() {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// PotentiallyAffectedSwitches resolves PotentiallyAffectedSwitchIDs.
func (c *Context) PotentiallyAffectedSwitches(trackID domain.IntID) []domain.Switch {
	return c.switches.getAll(c.PotentiallyAffectedSwitchIDs(trackID))
}

// SegmentSwitch groups the segments of a track linked to one switch.
type SegmentSwitch struct {
	SwitchID  domain.IntID
	Name      string
	Switch    domain.Switch
	Found     bool
	Structure domain.SwitchStructure
	HasType   bool
	Segments  []domain.Segment
}

// SegmentSwitches groups the segments of a track by linked switch, in the
// order the switches first appear.
func (c *Context) SegmentSwitches(track domain.LocationTrack) []SegmentSwitch {
	var out []SegmentSwitch
	index := make(map[domain.IntID]int)
	for _, seg := range track.Geometry.Segments {
		if seg.SwitchID == nil {
			continue
		}
		i, ok := index[*seg.SwitchID]
		if !ok {
			i = len(out)
			index[*seg.SwitchID] = i
			out = append(out, c.segmentSwitch(*seg.SwitchID))
		}
		out[i].Segments = append(out[i].Segments, seg)
	}
	return out
}

func (c *Context) segmentSwitch(id domain.IntID) SegmentSwitch {
	ss := SegmentSwitch{SwitchID: id}
	ss.Switch, ss.Found = c.Switch(id)
	ss.Name = c.switchName(id, ss.Switch, ss.Found)
	if ss.Found {
		ss.Structure, ss.HasType = c.Structure(ss.Switch.StructureID)
	}
	return ss
}

func (c *Context) switchName(id domain.IntID, sw domain.Switch, found bool) string {
	if found {
		return sw.Name
	}
	if draft, ok := c.DraftSwitch(id); ok {
		return draft.Name
	}
	return id.String()
}

// TopologySwitchRef is a switch a track end is topologically connected to.
type TopologySwitchRef struct {
	SwitchID domain.IntID
	Name     string
	Switch   domain.Switch
	Found    bool
}

// TopologicallyConnectedSwitches resolves the topology end switches of a track.
func (c *Context) TopologicallyConnectedSwitches(track domain.LocationTrack) []TopologySwitchRef {
	var out []TopologySwitchRef
	for _, ts := range []*domain.TopologySwitch{track.TopologyStartSwitch, track.TopologyEndSwitch} {
		if ts == nil {
			continue
		}
		ref := TopologySwitchRef{SwitchID: ts.SwitchID}
		ref.Switch, ref.Found = c.Switch(ts.SwitchID)
		ref.Name = c.switchName(ts.SwitchID, ref.Switch, ref.Found)
		out = append(out, ref)
	}
	return out
}

// GeocodingContextKey returns the key of the geocoding context of a track
// number as it would be after publication.
func (c *Context) GeocodingContextKey(tn domain.IntID) (domain.GeocodingContextKey, bool) {
	return c.geocodingKeysByTrackNumber.Get(tn, func(id domain.IntID) (domain.GeocodingContextKey, bool) {
		if c.geocoder == nil {
			return domain.GeocodingContextKey{}, false
		}
		trackNumber, ok := c.TrackNumber(id)
		if !ok {
			return domain.GeocodingContextKey{}, false
		}
		rl, ok := c.ReferenceLineByTrackNumber(id)
		if !ok {
			return domain.GeocodingContextKey{}, false
		}
		return c.geocoder.ContextKey(trackNumber, rl, c.KmPostsByTrackNumber(id)), true
	})
}

// GeocodingContext builds the geocoding context of a track number.
func (c *Context) GeocodingContext(tn domain.IntID) (domain.GeocodingContextResult, bool) {
	key, ok := c.GeocodingContextKey(tn)
	if !ok {
		return domain.GeocodingContextResult{}, false
	}
	return c.geocoder.ContextResult(key)
}

// AddressPoints geocodes an alignment against the context of a track number.
func (c *Context) AddressPoints(tn domain.IntID, alignment domain.Alignment) (domain.AlignmentAddresses, bool) {
	key, ok := c.GeocodingContextKey(tn)
	if !ok {
		return domain.AlignmentAddresses{}, false
	}
	return c.geocoder.AddressPoints(key, alignment)
}
