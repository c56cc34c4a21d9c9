package domain

import (
	"encoding/json"
	"testing"
)

func TestBranchEqualityIsStructural(t *testing.T) {
	a := DesignBranch(NewIntID(7))
	b := DesignBranch(NewIntID(7))
	if a != b {
		t.Fatalf("design branches with the same id must be equal")
	}
	if a == MainBranch || a.IsMain() {
		t.Fatalf("design branch must differ from main")
	}
	if !(Branch{}).IsMain() {
		t.Fatalf("zero branch must be main")
	}
	if a.Official() != (LayoutContext{Branch: b, State: Official}) {
		t.Fatalf("contexts should compare by value")
	}
}

func TestParseBranch(t *testing.T) {
	for _, b := range []Branch{MainBranch, DesignBranch(NewIntID(12))} {
		parsed, err := ParseBranch(b.String())
		if err != nil {
			t.Fatalf("parse %s: %v", b, err)
		}
		if parsed != b {
			t.Fatalf("round trip mismatch %s != %s", parsed, b)
		}
	}
	for _, s := range []string{"", "main", "DESIGN_", "DESIGN_INT_0", "DESIGN_STR_x"} {
		if _, err := ParseBranch(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestLayoutContextJSON(t *testing.T) {
	lc := DesignBranch(NewIntID(3)).Draft()
	raw, err := json.Marshal(lc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"branch":"DESIGN_INT_3","state":"DRAFT"}` {
		t.Fatalf("unexpected json %s", raw)
	}
	var back LayoutContext
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != lc {
		t.Fatalf("round trip mismatch %s != %s", back, lc)
	}
	if MainDraft.String() != "MAIN/DRAFT" {
		t.Fatalf("unexpected format %s", MainDraft)
	}
}
