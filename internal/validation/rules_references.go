package validation

import (
	"slices"
	"strings"

	"layoutpub/pkg/domain"
)

func validateTrackNumberReferences(tn domain.TrackNumber, hasReferenceLine bool, kmPosts []domain.KmPost, tracks []domain.LocationTrack) []domain.ValidationIssue {
	liveTracks := existing(tracks)
	livePosts := existing(kmPosts)
	var c collector
	c.require(hasReferenceLine, KeyTrackNumber+".reference-line.not-published")
	c.require(tn.State.Exists() || len(liveTracks) == 0, KeyTrackNumber+".location-track.reference-deleted",
		"locationTracks", joinNames(liveTracks, trackName, ", "))
	c.require(tn.State.Exists() || len(livePosts) == 0, KeyTrackNumber+".km-post.reference-deleted",
		"kmPosts", joinNames(livePosts, func(k domain.KmPost) string { return k.KmNumber.String() }, ", "))
	return c.issues
}

func validateKmPostReferences(kp domain.KmPost, tn *domain.TrackNumber, hasReferenceLine bool, number string) []domain.ValidationIssue {
	var c collector
	c.require(tn != nil, KeyKmPost+".track-number.not-published", "trackNumber", number)
	c.require(hasReferenceLine, KeyKmPost+".reference-line.not-published", "trackNumber", number)
	if tn == nil {
		return c.issues
	}
	c.require(!kp.State.Exists() || tn.State.IsLinkable(), KeyKmPost+".track-number.state."+string(tn.State),
		"trackNumber", tn.Number)
	c.require(kp.TrackNumberID != nil && *kp.TrackNumberID == tn.ID, KeyKmPost+".track-number.not-official",
		"trackNumber", tn.Number)
	return c.issues
}

func validateReferenceLineReferences(rl domain.ReferenceLine, tn *domain.TrackNumber, number string) []domain.ValidationIssue {
	var c collector
	c.require(tn != nil, KeyReferenceLine+".track-number.not-published", "trackNumber", number)
	c.require(tn == nil || rl.TrackNumberID == tn.ID, KeyReferenceLine+".track-number.not-official", "trackNumber", number)
	return c.issues
}

func validateLocationTrackReferences(t domain.LocationTrack, tn *domain.TrackNumber, number string) []domain.ValidationIssue {
	var c collector
	if tn == nil {
		c.require(false, KeyLocationTrack+".track-number.not-published", "trackNumber", number)
		return c.issues
	}
	c.require(t.TrackNumberID == tn.ID, KeyLocationTrack+".track-number.not-official", "trackNumber", tn.Number)
	c.require(t.State.IsRemoved() || tn.State.IsLinkable(), KeyLocationTrack+".track-number.state."+string(tn.State),
		"trackNumber", tn.Number)
	return c.issues
}

// validateDuplicateOf checks the duplicate relation of a track in both
// directions: what it duplicates and what duplicates it.
func validateDuplicateOf(t domain.LocationTrack, duplicateOf *domain.LocationTrack, draftName string, duplicates []domain.LocationTrack) []domain.ValidationIssue {
	var c collector
	if duplicateOf == nil {
		c.require(t.DuplicateOf == nil, KeyLocationTrack+".duplicate-of.not-published", "duplicateTrack", draftName)
	} else {
		name := []string{"duplicateTrack", duplicateOf.Name}
		c.require(t.State.IsRemoved() || duplicateOf.State.IsLinkable(),
			KeyLocationTrack+".duplicate-of.state."+string(duplicateOf.State), name...)
		c.require(duplicateOf.DuplicateOf == nil,
			KeyLocationTrack+".duplicate-of.publishing-duplicate-of-duplicated", name...)
		if len(duplicates) > 0 {
			key := KeyLocationTrack + ".duplicate-of.publishing-duplicate-while-duplicated"
			if len(duplicates) > 1 {
				key += "-multiple"
			}
			var names []string
			for _, d := range duplicates {
				if !slices.Contains(names, d.Name) {
					names = append(names, d.Name)
				}
			}
			c.require(false, key, "duplicateTrack", duplicateOf.Name, "otherDuplicates", strings.Join(names, ", "))
		}
	}
	if !t.State.Exists() {
		live := existing(duplicates)
		c.require(len(live) == 0, KeyLocationTrack+".deleted-duplicated-by-existing",
			"duplicates", joinNames(live, trackName, ","))
	}
	return c.issues
}

// nameClash classifies the other assets sharing a name: a clash with an
// asset being published in the same set wins over a clash with an official one.
func nameClash[T domain.Asset](self domain.IntID, others []T, inSet func(domain.IntID) bool) (draft, official bool) {
	for _, o := range others {
		id := o.Header().ID
		if id == self {
			continue
		}
		if inSet(id) {
			draft = true
		} else {
			official = true
		}
	}
	return draft, official
}

func validateUniqueName(prefix string, draft, official bool, kv ...string) []domain.ValidationIssue {
	var c collector
	c.require(draft || !official, prefix+".duplicate-name-official", kv...)
	c.require(!draft, prefix+".duplicate-name-draft", kv...)
	return c.issues
}

func validateTrackNumberUnique(tn domain.TrackNumber, same []domain.TrackNumber, inSet func(domain.IntID) bool) []domain.ValidationIssue {
	if !tn.State.Exists() {
		return nil
	}
	draft, official := nameClash(tn.ID, same, inSet)
	return validateUniqueName(KeyTrackNumber, draft, official, "trackNumber", tn.Number)
}

func validateSwitchUnique(sw domain.Switch, same []domain.Switch, inSet func(domain.IntID) bool) []domain.ValidationIssue {
	if !sw.State.Exists() {
		return nil
	}
	draft, official := nameClash(sw.ID, same, inSet)
	return validateUniqueName(KeySwitch, draft, official, "switch", sw.Name)
}

// validateLocationTrackUnique only compares tracks on the same track number.
func validateLocationTrackUnique(t domain.LocationTrack, number string, same []domain.LocationTrack, inSet func(domain.IntID) bool) []domain.ValidationIssue {
	if !t.State.Exists() {
		return nil
	}
	onTrackNumber := slices.DeleteFunc(slices.Clone(same), func(o domain.LocationTrack) bool {
		return o.TrackNumberID != t.TrackNumberID
	})
	draft, official := nameClash(t.ID, onTrackNumber, inSet)
	return validateUniqueName(KeyLocationTrack, draft, official, "locationTrack", t.Name, "trackNumber", number)
}
