package validation

import (
	"fmt"
	"slices"
	"strings"

	"layoutpub/pkg/domain"
)

func trackName(t domain.LocationTrack) string { return t.Name }

// switchGroup is the part of one track linked to a switch.
type switchGroup struct {
	track    domain.LocationTrack
	segments []domain.Segment
}

func switchSegments(track domain.LocationTrack, switchID domain.IntID) []domain.Segment {
	var out []domain.Segment
	for _, seg := range track.Geometry.Segments {
		if seg.LinksSwitch(switchID) {
			out = append(out, seg)
		}
	}
	return out
}

// validateSwitchLocation requires a located switch.
func validateSwitchLocation(sw domain.Switch) []domain.ValidationIssue {
	var c collector
	c.require(len(sw.Joints) > 0, KeySwitch+".no-location")
	return c.issues
}

// validateSwitchTrackReferences flags a removed switch still used by existing tracks.
func validateSwitchTrackReferences(sw domain.Switch, tracks []domain.LocationTrack) []domain.ValidationIssue {
	live := existing(tracks)
	var c collector
	c.require(sw.State.Exists() || len(live) == 0, KeySwitch+".location-track.reference-deleted",
		"locationTracks", joinNames(live, trackName, ", "))
	return c.issues
}

// validateSwitchTrackStructure checks the existing tracks linked to a switch
// against its structure: continuous segments, joints where the switch has
// them, and joint sequences the structure allows.
func validateSwitchTrackStructure(sw domain.Switch, structure domain.SwitchStructure, tracks []domain.LocationTrack) []domain.ValidationIssue {
	if !sw.State.Exists() {
		return nil
	}
	live := existing(tracks)
	var groups []switchGroup
	for _, t := range live {
		if segs := switchSegments(t, sw.ID); len(segs) > 0 {
			groups = append(groups, switchGroup{track: t, segments: segs})
		}
	}
	paths := structureJointPaths(structure)

	var discontinuous, misplaced, badSequence, badEnds []domain.LocationTrack
	for _, g := range groups {
		if !segmentsContinuous(g.segments) {
			discontinuous = append(discontinuous, g.track)
		}
		if !segmentJointsAgree(sw, g.segments) {
			misplaced = append(misplaced, g.track)
		}
		if !jointPathFound(collectJoints(g.segments), paths) {
			badSequence = append(badSequence, g.track)
		}
	}
	for _, t := range live {
		if !topologyEndsAgree(sw, t) {
			badEnds = append(badEnds, t)
		}
	}

	var c collector
	c.require(len(discontinuous) == 0, KeySwitch+".location-track.not-continuous",
		"locationTracks", joinNames(discontinuous, trackName, ", "))
	c.expect(len(misplaced) == 0, KeySwitch+".location-track.joint-location-mismatch",
		"locationTracks", joinNames(misplaced, trackName, ", "))
	c.expect(len(badEnds) == 0, KeySwitch+".location-track.joint-location-mismatch",
		"locationTracks", joinNames(badEnds, trackName, ", "))
	c.require(len(badSequence) == 0, KeySwitch+".location-track.wrong-joint-sequence",
		"locationTracks", joinNames(badSequence, trackName, ", "))
	c.add(validateSwitchTopologicalConnectivity(sw, structure, live, nil)...)
	return c.issues
}

// validateSegmentSwitches checks the switches a track's segments link to.
func validateSegmentSwitches(track domain.LocationTrack, groups []SegmentSwitch) []domain.ValidationIssue {
	var c collector
	for _, g := range groups {
		name := []string{"switch", g.Name}
		if !g.Found || !g.HasType {
			c.require(false, KeyLocationTrack+".switch.not-published", name...)
			continue
		}
		sw := g.Switch
		c.require(!slices.ContainsFunc(g.Segments, func(s domain.Segment) bool { return !s.LinksSwitch(sw.ID) }),
			KeyLocationTrack+".switch.not-official", name...)
		c.require(!track.State.Exists() || sw.State.Exists(),
			KeyLocationTrack+".switch.state-category."+sw.State.Category(), name...)
		if !track.State.Exists() || !sw.State.Exists() {
			continue
		}
		joints := collectJoints(g.Segments)
		c.require(segmentsContinuous(g.Segments), KeyLocationTrack+".switch.alignment-not-continuous", name...)
		c.expect(segmentJointsAgree(sw, g.Segments), KeyLocationTrack+".switch.joint-location-mismatch", name...)
		c.require(jointPathFound(joints, structureJointPaths(g.Structure)), KeyLocationTrack+".switch.wrong-joint-sequence",
			"switch", sw.Name, "switchType", g.Structure.BaseType, "switchJoints", domain.JointSequence(joints))
		c.require(len(joints) > 0, KeyLocationTrack+".switch.wrong-links", name...)
	}
	return c.issues
}

// validateTopologySwitches checks the switches a track's ends connect to.
func validateTopologySwitches(track domain.LocationTrack, refs []TopologySwitchRef) []domain.ValidationIssue {
	var c collector
	for _, ref := range refs {
		if !ref.Found {
			c.require(false, KeyLocationTrack+".switch.not-published", "switch", ref.Name)
			continue
		}
		c.require(!track.State.Exists() || ref.Switch.State.Exists(),
			KeyLocationTrack+".switch.state-category."+ref.Switch.State.Category(), "switch", ref.Name)
	}
	return c.issues
}

// validateTrackSwitchConnectivity compares the declared connectivity of a
// track with the switches its ends actually meet.
func validateTrackSwitchConnectivity(track domain.LocationTrack) []domain.ValidationIssue {
	segs := track.Geometry.Segments
	hasStart := track.TopologyStartSwitch != nil
	hasEnd := track.TopologyEndSwitch != nil
	if len(segs) > 0 {
		first, last := segs[0], segs[len(segs)-1]
		hasStart = hasStart || (first.SwitchID != nil && first.StartJoint != nil)
		hasEnd = hasEnd || (last.SwitchID != nil && last.EndJoint != nil)
	}
	prefix := KeyLocationTrack + ".topological-connectivity"
	check := func(expected, has bool, end string) (bool, string) {
		if expected {
			return has, prefix + "." + end + "-switch-missing"
		}
		return !has, prefix + "." + end + "-switch-is-topologically-connected"
	}

	var c collector
	ok, key := check(track.TopologicalConnectivity.ExpectsStart(), hasStart, "start")
	c.expect(ok, key)
	ok, key = check(track.TopologicalConnectivity.ExpectsEnd(), hasEnd, "end")
	c.expect(ok, key)
	return c.issues
}

func linkageKey(validating *domain.LocationTrack) string {
	if validating != nil {
		return KeyLocationTrack + ".switch-linkage"
	}
	return KeySwitch + ".track-linkage"
}

func nonDuplicates(tracks []domain.LocationTrack) []domain.LocationTrack {
	return slices.DeleteFunc(slices.Clone(tracks), func(t domain.LocationTrack) bool { return t.DuplicateOf != nil })
}

// validateSwitchTopologicalConnectivity checks that the tracks around a switch
// cover its structure: something meets the front joint, no joint is passed
// through by more than one track, and every structure path is linked. With a
// validating track the issues are keyed for that track and excess-track
// findings are left to the tracks responsible.
func validateSwitchTopologicalConnectivity(sw domain.Switch, structure domain.SwitchStructure, tracks []domain.LocationTrack, validating *domain.LocationTrack) []domain.ValidationIssue {
	ct := structure.ConnectivityType()
	primary := nonDuplicates(tracks)
	key := linkageKey(validating)
	var c collector

	if ct.FrontJoint != nil {
		front := *ct.FrontJoint
		frontLinked := func(ts []domain.LocationTrack) bool {
			through := tracksThroughJoint(sw.ID, front, ts)
			return slices.ContainsFunc(ts, func(t domain.LocationTrack) bool {
				return topologyAt(t.TopologyStartSwitch, sw.ID, front) || topologyAt(t.TopologyEndSwitch, sw.ID, front)
			}) || len(through) > 0
		}
		if !frontLinked(primary) {
			suffix := ".front-joint-not-connected"
			if frontLinked(tracks) {
				suffix = ".front-joint-only-duplicate-connected"
			}
			c.expect(false, key+suffix, "switch", sw.Name)
		}
	}

	type excess struct {
		joint  domain.JointNumber
		tracks []domain.LocationTrack
	}
	var excesses []excess
	for _, j := range structure.Joints {
		if ct.SharedPassThroughJoint != nil && *ct.SharedPassThroughJoint == j {
			continue
		}
		if through := tracksThroughJoint(sw.ID, j, primary); len(through) > 1 {
			excesses = append(excesses, excess{joint: j, tracks: through})
		}
	}
	responsible := validating == nil || slices.ContainsFunc(excesses, func(e excess) bool {
		return slices.ContainsFunc(e.tracks, func(t domain.LocationTrack) bool { return t.ID == validating.ID })
	})
	if len(excesses) > 0 && responsible {
		slices.SortFunc(excesses, func(a, b excess) int { return int(a.joint) - int(b.joint) })
		parts := make([]string, len(excesses))
		for i, e := range excesses {
			names := make([]string, len(e.tracks))
			for k, t := range e.tracks {
				names[k] = t.Name
			}
			slices.Sort(names)
			parts[i] = fmt.Sprintf("%d (%s)", e.joint, strings.Join(names, ", "))
		}
		c.expect(false, key+".multiple-tracks-through-joint",
			"locationTracks", strings.Join(parts, ", "), "switch", sw.Name)
	}

	linkedBy := func(path []domain.JointNumber, ts []domain.LocationTrack) bool {
		return slices.ContainsFunc(ts, func(t domain.LocationTrack) bool { return pathLinked(path, t, sw.ID) })
	}
	var unlinked []string
	onlyDuplicates := false
	for _, path := range ct.TrackLinkedAlignments {
		if linkedBy(path, primary) {
			continue
		}
		unlinked = append(unlinked, domain.JointSequence(path))
		if linkedBy(path, tracks) {
			onlyDuplicates = true
		}
	}
	coversFullPath := false
	if validating != nil && validating.DuplicateOf == nil {
		for _, a := range structure.Alignments {
			if pathLinked(a.Joints, *validating, sw.ID) {
				coversFullPath = true
				break
			}
		}
	}
	if len(unlinked) > 0 && !coversFullPath {
		suffix := ".switch-alignment-not-connected"
		if onlyDuplicates {
			suffix = ".switch-alignment-only-connected-to-duplicate"
		}
		c.expect(false, key+suffix, "locationTracks", strings.Join(unlinked, ", "), "switch", sw.Name)
	}
	return c.issues
}

func topologyAt(ts *domain.TopologySwitch, switchID domain.IntID, joint domain.JointNumber) bool {
	return ts != nil && ts.SwitchID == switchID && ts.Joint == joint
}

// tracksThroughJoint returns the tracks that continue on both sides of a
// joint: their segments linked to the joint are neither the first nor the
// last segment of the track.
func tracksThroughJoint(switchID domain.IntID, joint domain.JointNumber, tracks []domain.LocationTrack) []domain.LocationTrack {
	var out []domain.LocationTrack
	for _, t := range tracks {
		segs := t.Geometry.Segments
		first, last := -1, -1
		for i, seg := range segs {
			if seg.HasJoint(switchID, joint) {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if first > 0 && last < len(segs)-1 {
			out = append(out, t)
		}
	}
	return out
}

// pathLinked reports whether a track links both end joints of a structure path.
func pathLinked(path []domain.JointNumber, t domain.LocationTrack, switchID domain.IntID) bool {
	if len(path) == 0 {
		return false
	}
	has := func(j domain.JointNumber) bool {
		return slices.ContainsFunc(t.Geometry.Segments, func(s domain.Segment) bool { return s.HasJoint(switchID, j) })
	}
	return has(path[0]) && has(path[len(path)-1])
}

// structureJointPaths lists the joint sequences a track may follow through a
// structure. Paths through an interior presentation joint may also be
// covered half by half.
func structureJointPaths(s domain.SwitchStructure) [][]domain.JointNumber {
	var out [][]domain.JointNumber
	for _, a := range s.Alignments {
		joints := a.Joints
		if len(joints) == 0 {
			continue
		}
		out = append(out, joints)
		idx := slices.Index(joints, s.PresentationJoint)
		if idx > 0 && idx < len(joints)-1 {
			out = append(out, joints[:idx+1], joints[idx:])
		}
	}
	return out
}

// collectJoints lists the joints a run of segments passes, dropping repeats
// where one segment ends at the joint the next starts from.
func collectJoints(segs []domain.Segment) []domain.JointNumber {
	var out []domain.JointNumber
	push := func(j *domain.JointNumber) {
		if j != nil && (len(out) == 0 || out[len(out)-1] != *j) {
			out = append(out, *j)
		}
	}
	for _, s := range segs {
		push(s.StartJoint)
		push(s.EndJoint)
	}
	return out
}

func jointPathFound(track []domain.JointNumber, paths [][]domain.JointNumber) bool {
	return slices.ContainsFunc(paths, func(p []domain.JointNumber) bool { return jointGroupMatches(track, p) })
}

// jointGroupMatches reports whether a track's joint sequence fits a structure
// path, in either direction.
func jointGroupMatches(track, path []domain.JointNumber) bool {
	for _, j := range track {
		if !slices.Contains(path, j) {
			return false
		}
	}
	if len(track) <= 1 {
		return true
	}
	if len(path) == 0 {
		return false
	}
	tFirst, tLast := track[0], track[len(track)-1]
	pFirst, pLast := path[0], path[len(path)-1]
	return (tFirst == pFirst && tLast == pLast) || (tFirst == pLast && tLast == pFirst)
}

func segmentsContinuous(segs []domain.Segment) bool {
	for i := 1; i < len(segs); i++ {
		prev, ok1 := segs[i-1].End()
		next, ok2 := segs[i].Start()
		if !ok1 || !ok2 || !prev.Point().IsSame(next.Point(), LayoutCoordinateDelta) {
			return false
		}
	}
	return true
}

func jointAt(sw domain.Switch, joint domain.JointNumber, at domain.Point) bool {
	j, ok := sw.Joint(joint)
	return ok && j.Location.IsSame(at, JointLocationDelta)
}

func segmentJointsAgree(sw domain.Switch, segs []domain.Segment) bool {
	for _, s := range segs {
		if s.StartJoint != nil {
			p, ok := s.Start()
			if !ok || !jointAt(sw, *s.StartJoint, p.Point()) {
				return false
			}
		}
		if s.EndJoint != nil {
			p, ok := s.End()
			if !ok || !jointAt(sw, *s.EndJoint, p.Point()) {
				return false
			}
		}
	}
	return true
}

// topologyEndsAgree checks the track ends topologically connected to sw
// against the joint locations.
func topologyEndsAgree(sw domain.Switch, t domain.LocationTrack) bool {
	if ts := t.TopologyStartSwitch; ts != nil && ts.SwitchID == sw.ID {
		if p, ok := t.Geometry.Start(); ok && !jointAt(sw, ts.Joint, p.Point()) {
			return false
		}
	}
	if ts := t.TopologyEndSwitch; ts != nil && ts.SwitchID == sw.ID {
		if p, ok := t.Geometry.End(); ok && !jointAt(sw, ts.Joint, p.Point()) {
			return false
		}
	}
	return true
}
