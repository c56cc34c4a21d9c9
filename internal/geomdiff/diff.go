// Package geomdiff compares two versions of an alignment and reports the
// along-track ranges that were added or removed. Parts are matched by key
// first, and only the unmatched stretches are compared point by point.
package geomdiff

import (
	"fmt"
	"slices"

	"layoutpub/pkg/domain"
)

// Part is one keyed piece of an alignment. Equal keys must mean equal content.
type Part struct {
	Key    string
	Points []domain.AlignmentPoint
}

// Result holds the ranges only present in the new geometry (Added, in new m
// values) and only present in the old one (Removed, in old m values).
type Result struct {
	Added   []domain.MRange
	Removed []domain.MRange
}

// IsEmpty reports whether the geometries were found equal.
func (r Result) IsEmpty() bool { return len(r.Added) == 0 && len(r.Removed) == 0 }

// Diff compares old and new.
func Diff(old, new []Part) Result {
	return Result{
		Added:   added(old, new),
		Removed: added(new, old),
	}
}

// FromAlignment splits stored geometry into parts keyed by segment geometry
// and end coordinates.
func FromAlignment(a domain.Alignment) []Part {
	parts := make([]Part, 0, len(a.Segments))
	for _, seg := range a.Segments {
		if len(seg.Points) == 0 {
			continue
		}
		first, last := seg.Points[0], seg.Points[len(seg.Points)-1]
		parts = append(parts, Part{
			Key:    fmt.Sprintf("%s@%s/%s", seg.GeometryID, pointKey(first), pointKey(last)),
			Points: seg.Points,
		})
	}
	return parts
}

func pointKey(p domain.AlignmentPoint) string { return fmt.Sprintf("%.3f,%.3f", p.X, p.Y) }

// span is a stretch between two matches, exclusive on both ends. A boundary
// of -1 or len means the stretch runs to the start or the end of the list.
type span struct {
	newFrom, newTo int
	oldFrom, oldTo int
}

func (s span) newUnmatched() bool { return s.newTo-s.newFrom > 1 }
func (s span) oldUnmatched() bool { return s.oldTo-s.oldFrom > 1 }

// unmatchedSpans matches newKeys against oldKeys in order and returns the
// stretches between matches that hold at least one unmatched element. A
// match never goes back in the old list.
func unmatchedSpans(oldKeys, newKeys []string) []span {
	positions := make(map[string][]int, len(oldKeys))
	for i, k := range oldKeys {
		positions[k] = append(positions[k], i)
	}
	var spans []span
	prevNew, prevOld := -1, -1
	closeSpan := func(newAt, oldAt int) {
		s := span{newFrom: prevNew, newTo: newAt, oldFrom: prevOld, oldTo: oldAt}
		if s.newUnmatched() || s.oldUnmatched() {
			spans = append(spans, s)
		}
		prevNew, prevOld = newAt, oldAt
	}
	for i, k := range newKeys {
		candidates := positions[k]
		j := slices.IndexFunc(candidates, func(o int) bool { return o > prevOld })
		if j < 0 {
			continue
		}
		closeSpan(i, candidates[j])
	}
	closeSpan(len(newKeys), len(oldKeys))
	return spans
}

// flat is an alignment as one point list. Points shared by consecutive parts
// appear once, and each part remembers where its ends landed.
type flat struct {
	points []domain.AlignmentPoint
	keys   []string
	first  []int
	last   []int
}

func flatten(parts []Part) flat {
	var f flat
	for _, p := range parts {
		if len(p.Points) == 0 {
			at := max(len(f.points)-1, 0)
			f.first = append(f.first, at)
			f.last = append(f.last, at)
			continue
		}
		start := len(f.points)
		for _, pt := range p.Points {
			key := pointKey(pt)
			if n := len(f.keys); n > 0 && f.keys[n-1] == key {
				if len(f.points)-1 < start {
					start = len(f.points) - 1
				}
				continue
			}
			f.points = append(f.points, pt)
			f.keys = append(f.keys, key)
		}
		f.first = append(f.first, start)
		f.last = append(f.last, len(f.points)-1)
	}
	return f
}

// between returns the flat index bounds, exclusive, of the points strictly
// between parts from and to.
func (f flat) between(from, to int) (int, int) {
	lo, hi := -1, len(f.points)
	if from >= 0 {
		lo = f.last[from]
	}
	if to < len(f.first) {
		hi = f.first[to]
	}
	return lo, hi
}

func (f flat) m(i int) float64 {
	i = min(max(i, 0), len(f.points)-1)
	return f.points[i].M
}

// added returns the ranges of next that have no counterpart in prev.
func added(prev, next []Part) []domain.MRange {
	if len(next) == 0 {
		return nil
	}
	oldKeys := make([]string, len(prev))
	for i, p := range prev {
		oldKeys[i] = p.Key
	}
	newKeys := make([]string, len(next))
	for i, p := range next {
		newKeys[i] = p.Key
	}
	fo, fn := flatten(prev), flatten(next)
	if len(fn.points) == 0 {
		return nil
	}

	var ranges []domain.MRange
	for _, s := range unmatchedSpans(oldKeys, newKeys) {
		if !s.newUnmatched() {
			continue
		}
		nlo, nhi := fn.between(s.newFrom, s.newTo)
		olo, ohi := fo.between(s.oldFrom, s.oldTo)
		newSub := fn.keys[nlo+1 : max(nhi, nlo+1)]
		var oldSub []string
		if olo+1 < ohi {
			oldSub = fo.keys[olo+1 : ohi]
		}
		if len(newSub) == 0 {
			// The unmatched parts only consist of boundary points.
			if len(oldSub) > 0 || !sameEdge(fo, olo, ohi, fn, nlo, nhi) {
				ranges = append(ranges, domain.MRange{Min: fn.m(nlo), Max: fn.m(nhi)})
			}
			continue
		}
		for _, ps := range unmatchedSpans(oldSub, newSub) {
			if !ps.newUnmatched() {
				continue
			}
			// Run of unmatched points as flat indices, widened to the
			// matched neighbours on either side.
			first := nlo + 1 + ps.newFrom + 1
			last := nlo + 1 + ps.newTo - 1
			ranges = append(ranges, domain.MRange{Min: fn.m(first - 1), Max: fn.m(last + 1)})
		}
	}
	return merge(ranges)
}

func (f flat) key(i int) string {
	if i < 0 || i >= len(f.keys) {
		return ""
	}
	return f.keys[i]
}

// sameEdge reports whether both sides connect the same two points directly.
func sameEdge(fo flat, olo, ohi int, fn flat, nlo, nhi int) bool {
	return fo.key(olo) == fn.key(nlo) && fo.key(ohi) == fn.key(nhi)
}

func merge(ranges []domain.MRange) []domain.MRange {
	if len(ranges) == 0 {
		return nil
	}
	slices.SortFunc(ranges, func(a, b domain.MRange) int {
		switch {
		case a.Min < b.Min:
			return -1
		case a.Min > b.Min:
			return 1
		}
		return 0
	})
	out := []domain.MRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if r.Min <= last.Max {
			last.Max = max(last.Max, r.Max)
			continue
		}
		out = append(out, r)
	}
	return out
}
