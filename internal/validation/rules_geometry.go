package validation

import (
	"strings"

	"layoutpub/pkg/domain"
)

// validateAlignment checks the shape of reference line and location track geometry.
func validateAlignment(prefix string, a domain.Alignment) []domain.ValidationIssue {
	var c collector
	c.require(len(a.Segments) > 0, prefix+".empty-segments")
	c.require(a.MaxDirectionDelta() <= MaxLayoutPointAngleChange, prefix+".points.not-continuous")
	return c.issues
}

// validateGeocodingContext reports the km-posts a context rejected and the
// inconsistencies of the reference points it kept.
func validateGeocodingContext(res domain.GeocodingContextResult, trackNumber string) []domain.ValidationIssue {
	var c collector
	for _, r := range res.RejectedKmPosts {
		kv := []string{"trackNumber", trackNumber, "kmNumber", r.KmPost.KmNumber.String()}
		switch r.Reason {
		case domain.KmPostTooFarApart:
			c.require(false, KeyGeocoding+".km-post-too-long", kv...)
		case domain.KmPostNoLocation:
			c.require(false, KeyGeocoding+".km-post-no-location", kv...)
		case domain.KmPostIsBeforeStartAddress:
			c.expect(false, KeyGeocoding+".km-post-smaller-than-track-number-start", kv...)
		case domain.KmPostIntersectsBeforeLine:
			c.expect(false, KeyGeocoding+".km-post-outside-line-before", kv...)
		case domain.KmPostIntersectsAfterLine:
			c.expect(false, KeyGeocoding+".km-post-outside-line-after", kv...)
		case domain.KmPostDuplicate:
			c.require(false, KeyGeocoding+".km-post-duplicate", kv...)
		}
	}

	var within []domain.GeocodingReferencePoint
	for _, p := range res.ReferencePoints {
		if p.Intersect == domain.IntersectWithin {
			within = append(within, p)
		}
	}

	var far []string
	for _, p := range within {
		if p.KmPostOffset > MaxKmPostOffset {
			far = append(far, p.KmNumber.String())
		}
	}
	c.expect(len(far) == 0, KeyGeocoding+".km-posts-far-from-line",
		"trackNumber", res.TrackNumber, "kmNumbers", strings.Join(far, ","))

	var disordered []string
	for i, p := range within {
		ok := (i == 0 || within[i-1].Distance < p.Distance) &&
			(i == len(within)-1 || p.Distance < within[i+1].Distance)
		if !ok {
			disordered = append(disordered, p.KmNumber.String())
		}
	}
	c.require(len(disordered) == 0, KeyGeocoding+".km-posts-invalid",
		"trackNumber", res.TrackNumber, "kmNumbers", strings.Join(disordered, ", "))

	c.require(!res.StartPointTooLong, KeyGeocoding+".start-km-too-long")
	return c.issues
}

func noContext(prefix string) domain.ValidationIssue {
	return domain.NewError(prefix+".no-context", nil)
}

// validateAddressPoints checks the geocoded walk along a location track:
// both ends on the reference line, no sharp turns, no stretched meters and
// strictly advancing addresses.
func validateAddressPoints(tn domain.TrackNumber, track domain.LocationTrack, addresses domain.AlignmentAddresses) []domain.ValidationIssue {
	points := addresses.AllPoints()
	coords := make([]domain.Point, len(points))
	addrs := make([]domain.TrackMeter, len(points))
	for i, p := range points {
		coords[i] = p.Point.Point()
		addrs[i] = p.Address
	}

	describe := func(ranges []IndexRange) string {
		var b strings.Builder
		for i, r := range ranges {
			if i == MaxReportedRanges {
				b.WriteString("...")
				break
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(addrs[r.Start].FormatDropDecimals())
			b.WriteString("..")
			b.WriteString(addrs[r.End-1].FormatDropDecimals())
		}
		return b.String()
	}

	sharp := RangesOfConsecutiveIndicesOf(false, angleChecks(coords), 2)
	stretched := RangesOfConsecutiveIndicesOf(false, spacingChecks(coords), 1)
	jumps := RangesOfConsecutiveIndicesOf(false, addressChecks(addrs), 1)

	var c collector
	c.require(addresses.StartIntersect == domain.IntersectWithin, KeyGeocoding+".start-outside-reference-line",
		"referenceLine", tn.Number, "locationTrack", track.Name)
	c.require(addresses.EndIntersect == domain.IntersectWithin, KeyGeocoding+".end-outside-reference-line",
		"referenceLine", tn.Number, "locationTrack", track.Name)
	c.require(len(sharp) == 0, KeyGeocoding+".sharp-angle",
		"trackNumber", tn.Number, "locationTrack", track.Name, "kmNumbers", describe(sharp))
	c.require(len(stretched) == 0, KeyGeocoding+".stretched-meters",
		"trackNumber", tn.Number, "locationTrack", track.Name, "kmNumbers", describe(stretched))
	c.require(len(jumps) == 0, KeyGeocoding+".not-continuous",
		"trackNumber", tn.Number, "locationTrack", track.Name, "kmNumbers", describe(jumps))
	return c.issues
}

// angleChecks compares the headings of consecutive point pairs. Pairs of
// coinciding points have no heading and never fail.
func angleChecks(coords []domain.Point) []bool {
	type heading struct {
		dir float64
		ok  bool
	}
	if len(coords) < 3 {
		return nil
	}
	headings := make([]heading, len(coords)-1)
	for i := range headings {
		headings[i].dir, headings[i].ok = domain.Direction(coords[i], coords[i+1])
	}
	out := make([]bool, len(headings)-1)
	for i := range out {
		a, b := headings[i], headings[i+1]
		out[i] = !a.ok || !b.ok || domain.AngleDiff(a.dir, b.dir) <= MaxLayoutPointAngleChange
	}
	return out
}

func spacingChecks(coords []domain.Point) []bool {
	if len(coords) < 2 {
		return nil
	}
	out := make([]bool, len(coords)-1)
	for i := range out {
		out[i] = coords[i].DistanceTo(coords[i+1]) <= MaxLayoutMeterLength
	}
	return out
}

func addressChecks(addrs []domain.TrackMeter) []bool {
	if len(addrs) < 2 {
		return nil
	}
	out := make([]bool, len(addrs)-1)
	for i := range out {
		out[i] = addressStepOK(addrs[i], addrs[i+1])
	}
	return out
}

func addressStepOK(a, b domain.TrackMeter) bool {
	if domain.CompareTrackMeters(a, b) > 0 {
		return false
	}
	if a.KmNumber != b.KmNumber {
		return true
	}
	d := b.Meters - a.Meters
	return d >= 0 && d <= MaxLayoutMeterLength
}
