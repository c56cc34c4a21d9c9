package validation

import (
	"maps"
	"slices"

	"layoutpub/pkg/domain"
)

// Rule validates one asset of a kind as resolved by the context.
type Rule func(ctx *Context, id domain.IntID) []domain.ValidationIssue

// Validator runs the registered rules for every candidate of a publication set.
type Validator struct {
	rules map[domain.AssetKind][]Rule
}

// NewValidator returns a validator without rules.
func NewValidator() *Validator {
	return &Validator{rules: make(map[domain.AssetKind][]Rule)}
}

// NewDefaultValidator returns a validator with the publication rule set.
func NewDefaultValidator() *Validator {
	v := NewValidator()
	v.Register(domain.KindTrackNumber, validateTrackNumber)
	v.Register(domain.KindKmPost, validateKmPost)
	v.Register(domain.KindSwitch, validateSwitch)
	v.Register(domain.KindReferenceLine, validateReferenceLine)
	v.Register(domain.KindLocationTrack, validateLocationTrack)
	return v
}

// Register appends a rule for kind.
func (v *Validator) Register(kind domain.AssetKind, rule Rule) {
	v.rules[kind] = append(v.rules[kind], rule)
}

// ValidatePublicationUnit validates every candidate in the context's
// publication set. Each kind's results are sorted by id.
func (v *Validator) ValidatePublicationUnit(ctx *Context) domain.ValidationResult {
	ctx.Preload()
	var result domain.ValidationResult
	for _, kind := range domain.PublishOrder {
		ids := ctx.Set().IDs().Of(kind)
		slices.SortFunc(ids, domain.CompareIntIDs)
		validated := make([]domain.ValidatedAsset, 0, len(ids))
		for _, id := range ids {
			var issues []domain.ValidationIssue
			for _, rule := range v.rules[kind] {
				issues = append(issues, rule(ctx, id)...)
			}
			validated = append(validated, domain.ValidatedAsset{ID: id, Issues: distinct(issues)})
		}
		setResult(&result, kind, validated)
	}
	return result
}

func setResult(r *domain.ValidationResult, kind domain.AssetKind, v []domain.ValidatedAsset) {
	switch kind {
	case domain.KindTrackNumber:
		r.TrackNumbers = v
	case domain.KindKmPost:
		r.KmPosts = v
	case domain.KindSwitch:
		r.Switches = v
	case domain.KindReferenceLine:
		r.ReferenceLines = v
	case domain.KindLocationTrack:
		r.LocationTracks = v
	}
}

func distinct(issues []domain.ValidationIssue) []domain.ValidationIssue {
	out := make([]domain.ValidationIssue, 0, len(issues))
	for _, i := range issues {
		if !slices.ContainsFunc(out, func(o domain.ValidationIssue) bool {
			return o.Severity == i.Severity && o.Key == i.Key && maps.Equal(o.Params, i.Params)
		}) {
			out = append(out, i)
		}
	}
	return out
}

// trackNumberRef resolves a referenced track number. The number falls back to
// the branch draft so an unpublished reference can still be named.
func trackNumberRef(ctx *Context, id domain.IntID) (*domain.TrackNumber, string) {
	if tn, ok := ctx.TrackNumber(id); ok {
		return &tn, tn.Number
	}
	if draft, ok := ctx.DraftTrackNumber(id); ok {
		return nil, draft.Number
	}
	return nil, id.String()
}

func geocodingContextIssues(ctx *Context, prefix string, tn domain.TrackNumber) []domain.ValidationIssue {
	res, ok := ctx.GeocodingContext(tn.ID)
	if !ok {
		return []domain.ValidationIssue{noContext(prefix)}
	}
	return validateGeocodingContext(res, tn.Number)
}

func addressIssues(ctx *Context, prefix string, tn domain.TrackNumber, track domain.LocationTrack) []domain.ValidationIssue {
	if !track.State.Exists() || len(track.Geometry.Segments) == 0 {
		return nil
	}
	addresses, ok := ctx.AddressPoints(tn.ID, track.Geometry)
	if !ok {
		return []domain.ValidationIssue{noContext(prefix)}
	}
	return validateAddressPoints(tn, track, addresses)
}

func validateTrackNumber(ctx *Context, id domain.IntID) []domain.ValidationIssue {
	tn, ok := ctx.TrackNumber(id)
	if !ok {
		return nil
	}
	_, hasRL := ctx.ReferenceLineByTrackNumber(id)
	issues := validateLifecycle(KeyTrackNumber, tn.AssetHeader)
	issues = append(issues, validateTrackNumberReferences(tn, hasRL, ctx.KmPostsByTrackNumber(id), ctx.LocationTracksByTrackNumber(id))...)
	if tn.State.Exists() && hasRL {
		issues = append(issues, geocodingContextIssues(ctx, KeyTrackNumber, tn)...)
	}
	inSet := func(o domain.IntID) bool { return ctx.InPublicationSet(domain.KindTrackNumber, o) }
	return append(issues, validateTrackNumberUnique(tn, ctx.TrackNumbersByNumber(tn.Number), inSet)...)
}

func validateKmPost(ctx *Context, id domain.IntID) []domain.ValidationIssue {
	kp, ok := ctx.KmPost(id)
	if !ok {
		return nil
	}
	issues := validateLifecycle(KeyKmPost, kp.AssetHeader)
	var tn *domain.TrackNumber
	var number string
	hasRL := false
	if kp.TrackNumberID != nil {
		tn, number = trackNumberRef(ctx, *kp.TrackNumberID)
		if tn != nil {
			_, hasRL = ctx.ReferenceLineByTrackNumber(tn.ID)
		}
	}
	issues = append(issues, validateKmPostReferences(kp, tn, hasRL, number)...)
	if kp.State.Exists() && tn != nil && tn.State.Exists() && hasRL {
		issues = append(issues, geocodingContextIssues(ctx, KeyKmPost, *tn)...)
	}
	return issues
}

func validateSwitch(ctx *Context, id domain.IntID) []domain.ValidationIssue {
	sw, ok := ctx.Switch(id)
	if !ok {
		return nil
	}
	tracks := ctx.SwitchTracks(id)
	issues := validateLifecycle(KeySwitch, sw.AssetHeader)
	issues = append(issues, validateSwitchTrackReferences(sw, tracks)...)

	var location []domain.ValidationIssue
	if sw.State.Exists() {
		location = validateSwitchLocation(sw)
	}
	issues = append(issues, location...)
	if len(location) == 0 {
		if structure, ok := ctx.Structure(sw.StructureID); ok {
			issues = append(issues, validateSwitchTrackStructure(sw, structure, tracks)...)
		} else {
			issues = append(issues, domain.NewError(KeySwitch+".structure.not-found",
				params("switch", sw.Name, "structure", sw.StructureID)))
		}
	}
	inSet := func(o domain.IntID) bool { return ctx.InPublicationSet(domain.KindSwitch, o) }
	return append(issues, validateSwitchUnique(sw, ctx.SwitchesByName(sw.Name), inSet)...)
}

func validateReferenceLine(ctx *Context, id domain.IntID) []domain.ValidationIssue {
	rl, ok := ctx.ReferenceLine(id)
	if !ok {
		return nil
	}
	tn, number := trackNumberRef(ctx, rl.TrackNumberID)
	issues := validateLifecycle(KeyReferenceLine, rl.AssetHeader)
	issues = append(issues, validateReferenceLineReferences(rl, tn, number)...)
	if tn == nil || !tn.State.Exists() {
		return issues
	}
	issues = append(issues, validateAlignment(KeyReferenceLine, rl.Geometry)...)
	issues = append(issues, geocodingContextIssues(ctx, KeyReferenceLine, *tn)...)
	if _, ok := ctx.GeocodingContextKey(tn.ID); ok {
		for _, track := range ctx.LocationTracksByTrackNumber(tn.ID) {
			issues = append(issues, addressIssues(ctx, KeyReferenceLine, *tn, track)...)
		}
	}
	return issues
}

func validateLocationTrack(ctx *Context, id domain.IntID) []domain.ValidationIssue {
	track, ok := ctx.LocationTrack(id)
	if !ok {
		return nil
	}
	tn, number := trackNumberRef(ctx, track.TrackNumberID)
	issues := validateLifecycle(KeyLocationTrack, track.AssetHeader)
	issues = append(issues, validateLocationTrackReferences(track, tn, number)...)
	issues = append(issues, validateSegmentSwitches(track, ctx.SegmentSwitches(track))...)
	issues = append(issues, validateTopologySwitches(track, ctx.TopologicallyConnectedSwitches(track))...)

	var duplicateOf *domain.LocationTrack
	var duplicateOfName string
	if track.DuplicateOf != nil {
		if d, ok := ctx.LocationTrack(*track.DuplicateOf); ok {
			duplicateOf = &d
		}
		if d, ok := ctx.DraftLocationTrack(*track.DuplicateOf); ok {
			duplicateOfName = d.Name
		} else {
			duplicateOfName = track.DuplicateOf.String()
		}
	}
	issues = append(issues, validateDuplicateOf(track, duplicateOf, duplicateOfName, ctx.DuplicateTracks(id))...)

	if track.State.Exists() {
		issues = append(issues, validateAlignment(KeyLocationTrack, track.Geometry)...)
		if tn != nil {
			issues = append(issues, addressIssues(ctx, KeyLocationTrack, *tn, track)...)
		}
	}

	inSet := func(o domain.IntID) bool { return ctx.InPublicationSet(domain.KindLocationTrack, o) }
	issues = append(issues, validateLocationTrackUnique(track, number, ctx.LocationTracksByName(track.Name), inSet)...)

	for _, sw := range ctx.PotentiallyAffectedSwitches(id) {
		if !sw.State.Exists() {
			continue
		}
		structure, ok := ctx.Structure(sw.StructureID)
		if !ok {
			continue
		}
		issues = append(issues, validateSwitchTopologicalConnectivity(sw, structure, existing(ctx.SwitchTracks(sw.ID)), &track)...)
	}
	if track.State.Exists() {
		issues = append(issues, validateTrackSwitchConnectivity(track)...)
	}
	return issues
}
