package validation

import (
	"slices"

	"layoutpub/pkg/domain"
)

// Preload warms the caches for validating the whole publication set. Lookups
// after Preload return the same results as lookups without it.
func (c *Context) Preload() {
	req := c.set.IDs()
	ids := req.Of

	c.PreloadTrackNumberAndReferenceLineVersions(c.AssociatedTrackNumberIDs(req))

	tnIDs := ids(domain.KindTrackNumber)
	c.PreloadTrackNumbersByNumber(tnIDs)

	trackIDs := ids(domain.KindLocationTrack)
	c.PreloadLocationTrackVersions(trackIDs)
	c.PreloadLocationTracksByTrackNumbers(tnIDs)
	c.PreloadTrackDuplicates(trackIDs)
	c.PreloadLocationTracksByName(trackIDs)

	c.PreloadKmPostVersions(ids(domain.KindKmPost))
	c.PreloadKmPostsByTrackNumbers(tnIDs)

	switchIDs := slices.Clone(ids(domain.KindSwitch))
	for _, trackID := range trackIDs {
		for _, id := range c.PotentiallyAffectedSwitchIDs(trackID) {
			if !slices.Contains(switchIDs, id) {
				switchIDs = append(switchIDs, id)
			}
		}
	}
	c.PreloadSwitchVersions(switchIDs)
	c.PreloadSwitchesByName(ids(domain.KindSwitch))
	c.PreloadSwitchTracks(switchIDs)
}

// AssociatedTrackNumberIDs collects the track numbers of the given ids and the
// track numbers their reference lines, km-posts and location tracks refer to.
func (c *Context) AssociatedTrackNumberIDs(req domain.PublicationRequestIDs) []domain.IntID {
	out := slices.Clone(req.TrackNumbers)
	add := func(id domain.IntID) {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, rl := range c.referenceLines.getAll(req.ReferenceLines) {
		add(rl.TrackNumberID)
	}
	for _, kp := range c.kmPosts.getAll(req.KmPosts) {
		if kp.TrackNumberID != nil {
			add(*kp.TrackNumberID)
		}
	}
	for _, t := range c.locationTracks.getAll(req.LocationTracks) {
		add(t.TrackNumberID)
	}
	return out
}

// PreloadTrackNumberAndReferenceLineVersions caches the track numbers and the
// reference lines attached to them.
func (c *Context) PreloadTrackNumberAndReferenceLineVersions(tnIDs []domain.IntID) {
	c.trackNumbers.preload(tnIDs)
	c.referenceLineByTrackNumber.Preload(tnIDs, c.fetchReferenceLinesByTrackNumbers)
}

func (c *Context) PreloadLocationTrackVersions(ids []domain.IntID) { c.locationTracks.preload(ids) }

func (c *Context) PreloadKmPostVersions(ids []domain.IntID) { c.kmPosts.preload(ids) }

func (c *Context) PreloadSwitchVersions(ids []domain.IntID) { c.switches.preload(ids) }

func (c *Context) PreloadKmPostsByTrackNumbers(tnIDs []domain.IntID) {
	c.kmPostsByTrackNumber.Preload(tnIDs, c.fetchKmPostsByTrackNumbers)
}

func (c *Context) PreloadLocationTracksByTrackNumbers(tnIDs []domain.IntID) {
	c.tracksByTrackNumber.Preload(tnIDs, c.fetchTracksByTrackNumbers)
}

func (c *Context) PreloadTrackDuplicates(trackIDs []domain.IntID) {
	c.tracksByDuplicateOf.Preload(trackIDs, c.fetchDuplicateTracks)
}

func (c *Context) PreloadSwitchTracks(switchIDs []domain.IntID) {
	c.tracksBySwitch.Preload(switchIDs, c.fetchSwitchTracks)
}

// PreloadTrackNumbersByNumber caches the number lookups of the given track numbers.
func (c *Context) PreloadTrackNumbersByNumber(tnIDs []domain.IntID) {
	var numbers []string
	for _, tn := range c.trackNumbers.getAll(tnIDs) {
		numbers = appendName(numbers, tn.Number)
	}
	c.trackNumbersByNumber.Preload(numbers, c.fetchTrackNumbersByNumbers)
}

// PreloadSwitchesByName caches the name lookups of the given switches.
func (c *Context) PreloadSwitchesByName(switchIDs []domain.IntID) {
	var names []string
	for _, sw := range c.switches.getAll(switchIDs) {
		names = appendName(names, sw.Name)
	}
	c.switchesByName.Preload(names, c.fetchSwitchesByNames)
}

// PreloadLocationTracksByName caches the name lookups of the given tracks.
func (c *Context) PreloadLocationTracksByName(trackIDs []domain.IntID) {
	var names []string
	for _, t := range c.locationTracks.getAll(trackIDs) {
		names = appendName(names, t.Name)
	}
	c.tracksByName.Preload(names, c.fetchTracksByNames)
}

func appendName(names []string, name string) []string {
	n := normalized(name)
	if slices.Contains(names, n) {
		return names
	}
	return append(names, n)
}
