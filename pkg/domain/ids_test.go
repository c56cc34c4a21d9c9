package domain

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestDomainIDRoundTrip(t *testing.T) {
	ids := []DomainID{
		NewIntID(42),
		NewIntID(-3),
		StringID{Value: "ACC_7f3a"},
		StringID{Value: "with_underscore"},
		IndexedID{Parent: 12, Index: 0},
		IndexedID{Parent: 12, Index: 7},
	}
	for _, id := range ids {
		parsed, err := ParseDomainID(id.String())
		if err != nil {
			t.Fatalf("parse %s: %v", id, err)
		}
		if parsed != id {
			t.Fatalf("round trip mismatch: %#v != %#v", parsed, id)
		}
		if parsed.String() != id.String() {
			t.Fatalf("format mismatch: %s != %s", parsed, id)
		}
	}
}

func TestParseDomainIDRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "42", "INT_x", "STR_", "IDX_1", "IDX_a_1", "IDX_1_b", "FOO_1"} {
		if _, err := ParseDomainID(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestCompareDomainIDsOrdersByShapeThenValue(t *testing.T) {
	ids := []DomainID{
		IndexedID{Parent: 1, Index: 2},
		StringID{Value: "b"},
		NewIntID(10),
		IndexedID{Parent: 1, Index: 1},
		StringID{Value: "a"},
		NewIntID(2),
	}
	slices.SortFunc(ids, CompareDomainIDs)
	want := []string{"INT_2", "INT_10", "STR_a", "STR_b", "IDX_1_1", "IDX_1_2"}
	for i, id := range ids {
		if id.String() != want[i] {
			t.Fatalf("position %d: got %s want %s", i, id, want[i])
		}
	}
}

func TestRowVersionOrderingAndNext(t *testing.T) {
	v := RowVersion{ID: NewIntID(5), Version: 1}
	next := v.Next()
	if next.ID != v.ID || next.Version != 2 {
		t.Fatalf("unexpected next version %v", next)
	}
	if CompareRowVersions(v, next) >= 0 {
		t.Fatalf("expected %v < %v", v, next)
	}
	other := RowVersion{ID: NewIntID(4), Version: 9}
	if CompareRowVersions(other, v) >= 0 {
		t.Fatalf("expected id ordering to dominate")
	}
}

func TestIntIDKeysJSONMaps(t *testing.T) {
	in := map[IntID][]RowVersion{NewIntID(3): {{ID: NewIntID(9), Version: 2}}}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"INT_3":[{"id":"INT_9","version":2}]}` {
		t.Fatalf("unexpected json %s", raw)
	}
	var out map[IntID][]RowVersion
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := out[NewIntID(3)]; len(got) != 1 || got[0].Version != 2 {
		t.Fatalf("unexpected decoded map %#v", out)
	}
}
