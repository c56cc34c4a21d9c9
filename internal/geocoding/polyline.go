package geocoding

import (
	"math"

	"layoutpub/pkg/domain"
)

// polyline is a reference line flattened to points with cumulative planar
// distances from its start.
type polyline struct {
	points []domain.Point
	dist   []float64
}

func newPolyline(a domain.Alignment) polyline {
	var pl polyline
	for _, p := range a.Points() {
		pt := p.Point()
		if n := len(pl.points); n > 0 && pl.points[n-1] == pt {
			continue
		}
		d := 0.0
		if n := len(pl.points); n > 0 {
			d = pl.dist[n-1] + pl.points[n-1].DistanceTo(pt)
		}
		pl.points = append(pl.points, pt)
		pl.dist = append(pl.dist, d)
	}
	return pl
}

func (pl polyline) length() float64 {
	if len(pl.dist) == 0 {
		return 0
	}
	return pl.dist[len(pl.dist)-1]
}

func (pl polyline) usable() bool { return len(pl.points) >= 2 }

// project returns the distance along the line of the point closest to p.
// Points beyond either end are extrapolated along the end edge, giving a
// negative distance or one past the length.
func (pl polyline) project(p domain.Point) (float64, domain.IntersectType) {
	best, bestDist := 0.0, math.Inf(1)
	last := len(pl.points) - 2
	intersect := domain.IntersectWithin
	for i := 0; i <= last; i++ {
		a, b := pl.points[i], pl.points[i+1]
		edge := pl.dist[i+1] - pl.dist[i]
		t := ((p.X-a.X)*(b.X-a.X) + (p.Y-a.Y)*(b.Y-a.Y)) / (edge * edge)
		it := domain.IntersectWithin
		switch {
		case t < 0 && i == 0:
			it = domain.IntersectBefore
		case t > 1 && i == last:
			it = domain.IntersectAfter
		case t < 0:
			t = 0
		case t > 1:
			t = 1
		}
		q := domain.Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
		if d := p.DistanceTo(q); d < bestDist {
			best, bestDist, intersect = pl.dist[i]+t*edge, d, it
		}
	}
	return best, intersect
}

// pointAt returns the point at distance m, clamped to the line.
func (pl polyline) pointAt(m float64) domain.Point {
	if m <= 0 {
		return pl.points[0]
	}
	for i := 1; i < len(pl.points); i++ {
		if m <= pl.dist[i] {
			a, b := pl.points[i-1], pl.points[i]
			t := (m - pl.dist[i-1]) / (pl.dist[i] - pl.dist[i-1])
			return domain.Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
		}
	}
	return pl.points[len(pl.points)-1]
}
