package domain

import "testing"

func TestInferOperation(t *testing.T) {
	deleted, inUse := StateDeleted, StateInUse
	cases := []struct {
		name     string
		draft    LayoutState
		official *LayoutState
		want     Operation
	}{
		{"create", StateInUse, nil, OperationCreate},
		{"delete", StateDeleted, &inUse, OperationDelete},
		{"restore", StateInUse, &deleted, OperationRestore},
		{"modify", StateNotInUse, &inUse, OperationModify},
		{"still deleted", StateDeleted, &deleted, OperationModify},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InferOperation(tc.draft, tc.official); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestPublicationRequestIDsSetAlgebra(t *testing.T) {
	a := PublicationRequestIDs{LocationTracks: []IntID{NewIntID(1), NewIntID(2)}, Switches: []IntID{NewIntID(5)}}
	b := PublicationRequestIDs{LocationTracks: []IntID{NewIntID(2), NewIntID(3)}}

	union := a.Plus(b)
	if len(union.LocationTracks) != 3 || len(union.Switches) != 1 {
		t.Fatalf("unexpected union %#v", union)
	}
	diff := a.Minus(b)
	if len(diff.LocationTracks) != 1 || diff.LocationTracks[0] != NewIntID(1) || len(diff.Switches) != 1 {
		t.Fatalf("unexpected difference %#v", diff)
	}
	if !a.Minus(a).IsEmpty() {
		t.Fatalf("self difference must be empty")
	}
	if !union.Contains(KindLocationTrack, NewIntID(3)) || union.Contains(KindSwitch, NewIntID(3)) {
		t.Fatalf("contains must be kind scoped")
	}
	sorted := PublicationRequestIDs{KmPosts: []IntID{NewIntID(9), NewIntID(2)}}.Sorted()
	if sorted.KmPosts[0] != NewIntID(2) {
		t.Fatalf("expected sorted ids, got %v", sorted.KmPosts)
	}
}

func TestValidationVersionsLookup(t *testing.T) {
	v := ValidationVersions{TrackNumbers: []RowVersion{{ID: NewIntID(1), Version: 3}}}
	rv, ok := v.VersionOf(KindTrackNumber, NewIntID(1))
	if !ok || rv.Version != 3 {
		t.Fatalf("expected version 3, got %v %v", rv, ok)
	}
	if v.Contains(KindKmPost, NewIntID(1)) {
		t.Fatalf("lookup must be kind scoped")
	}
	if v.IsEmpty() || !(ValidationVersions{}).IsEmpty() {
		t.Fatalf("unexpected emptiness")
	}
}

func TestValidationResultHasErrors(t *testing.T) {
	var r ValidationResult
	r.Switches = []ValidatedAsset{{ID: NewIntID(1), Issues: []ValidationIssue{NewWarning("w", nil)}}}
	if r.HasErrors() {
		t.Fatalf("warnings must not block")
	}
	r.KmPosts = []ValidatedAsset{{ID: NewIntID(2), Issues: []ValidationIssue{NewError("e", nil)}}}
	if !r.HasErrors() || r.ErrorCount() != 1 {
		t.Fatalf("expected one blocking error")
	}
	err := &ValidationFailedError{Result: r}
	if CodeOf(err) != CodeValidationFailed {
		t.Fatalf("unexpected code %s", CodeOf(err))
	}
}
