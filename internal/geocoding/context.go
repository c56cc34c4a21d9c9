package geocoding

import (
	"math"
	"slices"

	"layoutpub/pkg/domain"
)

const (
	// maxMeters bounds the metre part of an address.
	maxMeters = 10000.0
	// minMeterLength keeps mid points off the start and end addresses.
	minMeterLength = 0.001
)

func metersValid(v float64) bool { return -maxMeters <= v && v < maxMeters }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// geoContext maps distances along a reference line to addresses.
type geoContext struct {
	line        polyline
	result      domain.GeocodingContextResult
	projections []float64 // distances of whole-metre addresses, ascending
}

func build(key domain.GeocodingContextKey) (*geoContext, bool) {
	line := newPolyline(key.ReferenceLine.Geometry)
	if !line.usable() {
		return nil, false
	}
	start := key.ReferenceLine.StartAddress
	valid, rejected := screenKmPosts(key.KmPosts, start)

	points := []domain.GeocodingReferencePoint{{
		KmNumber: start.KmNumber, Meters: start.Meters, Distance: 0, Intersect: domain.IntersectWithin,
	}}
	for _, kp := range valid {
		m, it := line.project(*kp.Location)
		points = append(points, domain.GeocodingReferencePoint{
			KmNumber:     kp.KmNumber,
			Distance:     m,
			KmPostOffset: kp.Location.DistanceTo(line.pointAt(m)),
			Intersect:    it,
		})
	}
	refPoints, outside := screenReferencePoints(points, valid)
	rejected = append(rejected, outside...)
	valid = slices.DeleteFunc(valid, func(kp domain.KmPost) bool {
		return slices.ContainsFunc(outside, func(r domain.RejectedKmPost) bool { return r.KmPost.ID == kp.ID })
	})

	ctx := &geoContext{
		line: line,
		result: domain.GeocodingContextResult{
			TrackNumber:       key.TrackNumber.Number,
			ReferencePoints:   refPoints,
			RejectedKmPosts:   rejected,
			ValidKmPosts:      valid,
			StartPointTooLong: startKmTooLong(start, line.length(), refPoints),
		},
	}
	ctx.projections = ctx.wholeMeters()
	return ctx, true
}

// screenKmPosts drops km-posts without a location or at or before the start
// address, and flags duplicate km numbers.
func screenKmPosts(kmPosts []domain.KmPost, start domain.TrackMeter) ([]domain.KmPost, []domain.RejectedKmPost) {
	var valid []domain.KmPost
	var rejected []domain.RejectedKmPost
	for _, kp := range kmPosts {
		switch {
		case kp.Location == nil:
			rejected = append(rejected, domain.RejectedKmPost{KmPost: kp, Reason: domain.KmPostNoLocation})
		case domain.CompareTrackMeters(domain.TrackMeter{KmNumber: kp.KmNumber}, start) <= 0:
			rejected = append(rejected, domain.RejectedKmPost{KmPost: kp, Reason: domain.KmPostIsBeforeStartAddress})
		default:
			valid = append(valid, kp)
		}
	}
	counts := map[domain.KmNumber]int{}
	for _, kp := range kmPosts {
		counts[kp.KmNumber]++
	}
	for _, kp := range kmPosts {
		if counts[kp.KmNumber] > 1 {
			rejected = append(rejected, domain.RejectedKmPost{KmPost: kp, Reason: domain.KmPostDuplicate})
		}
	}
	return valid, rejected
}

// screenReferencePoints keeps the points that project within the line, up to
// the first pair that is too far apart to address.
func screenReferencePoints(points []domain.GeocodingReferencePoint, kmPosts []domain.KmPost) ([]domain.GeocodingReferencePoint, []domain.RejectedKmPost) {
	var within []domain.GeocodingReferencePoint
	var rejected []domain.RejectedKmPost
	reject := func(rp domain.GeocodingReferencePoint, reason domain.KmPostRejectedReason) {
		i := slices.IndexFunc(kmPosts, func(kp domain.KmPost) bool { return kp.KmNumber == rp.KmNumber })
		if i >= 0 {
			rejected = append(rejected, domain.RejectedKmPost{KmPost: kmPosts[i], Reason: reason})
		}
	}
	for _, rp := range points {
		switch rp.Intersect {
		case domain.IntersectBefore:
			reject(rp, domain.KmPostIntersectsBeforeLine)
		case domain.IntersectAfter:
			reject(rp, domain.KmPostIntersectsAfterLine)
		default:
			within = append(within, rp)
		}
	}
	for i := 1; i < len(within); i++ {
		if !metersValid(math.Abs(within[i].Distance - within[i-1].Distance)) {
			reject(within[i], domain.KmPostTooFarApart)
			within = within[:i]
			break
		}
	}
	var distinct []domain.GeocodingReferencePoint
	for _, rp := range within {
		if !slices.ContainsFunc(distinct, func(o domain.GeocodingReferencePoint) bool { return o.Distance == rp.Distance }) {
			distinct = append(distinct, rp)
		}
	}
	return distinct, rejected
}

func startKmTooLong(start domain.TrackMeter, length float64, points []domain.GeocodingReferencePoint) bool {
	if len(points) == 0 {
		return false
	}
	startMeters := points[0].Distance + math.Ceil(start.Meters)
	next := length
	if len(points) > 1 {
		next = points[1].Distance
	}
	return !metersValid(startMeters + next)
}

// refPointAt returns the index of the last reference point at or before m,
// or the first one when m precedes them all.
func (c *geoContext) refPointAt(m float64) int {
	for i := len(c.result.ReferencePoints) - 1; i > 0; i-- {
		if c.result.ReferencePoints[i].Distance <= m {
			return i
		}
	}
	return 0
}

// address converts a distance along the line to an address.
func (c *geoContext) address(m float64) (domain.TrackMeter, bool) {
	rp := c.result.ReferencePoints[c.refPointAt(m)]
	meters := round3(rp.Meters + m - rp.Distance)
	if !metersValid(meters) {
		return domain.TrackMeter{}, false
	}
	return domain.TrackMeter{KmNumber: rp.KmNumber, Meters: meters}, true
}

func (c *geoContext) wholeMeters() []float64 {
	var out []float64
	rps := c.result.ReferencePoints
	length := c.line.length()
	for i, rp := range rps {
		end, last := length, i == len(rps)-1
		if !last {
			end = rps[i+1].Distance
		}
		for k := math.Ceil(rp.Meters); ; k++ {
			m := rp.Distance + k - rp.Meters
			if m > end || (!last && m >= end) {
				break
			}
			out = append(out, m)
		}
	}
	return out
}

func (c *geoContext) addressPoint(p domain.AlignmentPoint) (domain.AddressPoint, float64, domain.IntersectType, bool) {
	m, it := c.line.project(p.Point())
	addr, ok := c.address(m)
	return domain.AddressPoint{Point: p, Address: addr}, m, it, ok
}

// addressPoints walks the alignment and emits a mid point wherever it crosses
// a whole-metre address between its start and end addresses.
func (c *geoContext) addressPoints(a domain.Alignment) (domain.AlignmentAddresses, bool) {
	pts := a.Points()
	if len(pts) == 0 {
		return domain.AlignmentAddresses{}, false
	}
	start, startM, startIt, ok := c.addressPoint(pts[0])
	if !ok {
		return domain.AlignmentAddresses{}, false
	}
	end, endM, endIt, ok := c.addressPoint(pts[len(pts)-1])
	if !ok {
		return domain.AlignmentAddresses{}, false
	}
	lo, hi := startM+minMeterLength, endM-minMeterLength
	var mid []domain.AddressPoint
	prevM, _ := c.line.project(pts[0].Point())
	for i := 1; i < len(pts); i++ {
		curM, _ := c.line.project(pts[i].Point())
		for _, m := range c.between(prevM, curM) {
			if m < lo || m > hi {
				continue
			}
			addr, ok := c.address(m)
			if !ok {
				continue
			}
			f := (m - prevM) / (curM - prevM)
			a, b := pts[i-1], pts[i]
			p := domain.AlignmentPoint{X: a.X + f*(b.X-a.X), Y: a.Y + f*(b.Y-a.Y), M: a.M + f*(b.M-a.M)}
			mid = append(mid, domain.AddressPoint{Point: p, Address: addr})
		}
		prevM = curM
	}
	return domain.AlignmentAddresses{
		StartPoint:     start,
		EndPoint:       end,
		StartIntersect: startIt,
		EndIntersect:   endIt,
		MidPoints:      mid,
	}, true
}

// between returns the whole-metre distances in (from, to], ordered from from
// towards to.
func (c *geoContext) between(from, to float64) []float64 {
	if from == to {
		return nil
	}
	lo, hi := min(from, to), max(from, to)
	i, _ := slices.BinarySearch(c.projections, lo)
	var out []float64
	for ; i < len(c.projections) && c.projections[i] <= hi; i++ {
		if c.projections[i] > lo || from > to {
			out = append(out, c.projections[i])
		}
	}
	if from > to {
		out = slices.DeleteFunc(out, func(m float64) bool { return m == hi })
		slices.Reverse(out)
	}
	return out
}
