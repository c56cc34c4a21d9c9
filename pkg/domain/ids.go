// Package domain defines the layout asset model, its identity and versioning
// scheme, and the contracts that persistence and collaborator implementations
// fulfil for the publication core.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DomainID is the closed set of identity shapes used by layout objects.
// Implementations: IntID, StringID, IndexedID.
type DomainID interface {
	fmt.Stringer
	isDomainID()
}

const (
	intIDPrefix     = "INT_"
	stringIDPrefix  = "STR_"
	indexedIDPrefix = "IDX_"
)

// IntID is a surrogate integer identity assigned by the store.
type IntID struct {
	Value int64
}

// StringID is an opaque identity generated outside the store.
type StringID struct {
	Value string
}

// IndexedID identifies a sub-object by its parent id and position.
type IndexedID struct {
	Parent int64
	Index  int
}

func (IntID) isDomainID()     {}
func (StringID) isDomainID()  {}
func (IndexedID) isDomainID() {}

// NewIntID wraps a raw integer.
func NewIntID(v int64) IntID { return IntID{Value: v} }

// IsZero reports whether the id has not been assigned.
func (id IntID) IsZero() bool { return id.Value == 0 }

func (id IntID) String() string { return intIDPrefix + strconv.FormatInt(id.Value, 10) }

func (id StringID) String() string { return stringIDPrefix + id.Value }

func (id IndexedID) String() string {
	return fmt.Sprintf("%s%d_%d", indexedIDPrefix, id.Parent, id.Index)
}

// MarshalText lets IntID key JSON maps.
func (id IntID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the INT_<n> form.
func (id *IntID) UnmarshalText(b []byte) error {
	parsed, err := ParseIntID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIntID parses the INT_<n> form.
func ParseIntID(s string) (IntID, error) {
	raw, ok := strings.CutPrefix(s, intIDPrefix)
	if !ok {
		return IntID{}, fmt.Errorf("parse int id %q: missing %s prefix", s, intIDPrefix)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return IntID{}, fmt.Errorf("parse int id %q: %w", s, err)
	}
	return IntID{Value: v}, nil
}

// ParseDomainID parses any of the formatted id shapes.
func ParseDomainID(s string) (DomainID, error) {
	switch {
	case strings.HasPrefix(s, intIDPrefix):
		return ParseIntID(s)
	case strings.HasPrefix(s, stringIDPrefix):
		v := strings.TrimPrefix(s, stringIDPrefix)
		if v == "" {
			return nil, fmt.Errorf("parse string id %q: empty value", s)
		}
		return StringID{Value: v}, nil
	case strings.HasPrefix(s, indexedIDPrefix):
		parent, index, ok := strings.Cut(strings.TrimPrefix(s, indexedIDPrefix), "_")
		if !ok {
			return nil, fmt.Errorf("parse indexed id %q: missing index", s)
		}
		p, err := strconv.ParseInt(parent, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse indexed id %q: %w", s, err)
		}
		i, err := strconv.Atoi(index)
		if err != nil {
			return nil, fmt.Errorf("parse indexed id %q: %w", s, err)
		}
		return IndexedID{Parent: p, Index: i}, nil
	default:
		return nil, fmt.Errorf("parse domain id %q: unknown shape", s)
	}
}

func shapeRank(id DomainID) int {
	switch id.(type) {
	case IntID:
		return 0
	case StringID:
		return 1
	case IndexedID:
		return 2
	}
	panic(fmt.Sprintf("unknown domain id shape %T", id))
}

// CompareDomainIDs orders ids by shape, then by value.
func CompareDomainIDs(a, b DomainID) int {
	if ra, rb := shapeRank(a), shapeRank(b); ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case IntID:
		return compareInt64(x.Value, b.(IntID).Value)
	case StringID:
		return strings.Compare(x.Value, b.(StringID).Value)
	case IndexedID:
		y := b.(IndexedID)
		if c := compareInt64(x.Parent, y.Parent); c != 0 {
			return c
		}
		return x.Index - y.Index
	}
	return 0
}

// CompareIntIDs orders integer ids by value.
func CompareIntIDs(a, b IntID) int { return compareInt64(a.Value, b.Value) }

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// RowVersion identifies one immutable revision of an asset.
type RowVersion struct {
	ID      IntID `json:"id"`
	Version int   `json:"version"`
}

// Next returns the version that follows v for the same id.
func (v RowVersion) Next() RowVersion { return RowVersion{ID: v.ID, Version: v.Version + 1} }

func (v RowVersion) String() string { return fmt.Sprintf("%s v%d", v.ID, v.Version) }

// CompareRowVersions orders by id, then version.
func CompareRowVersions(a, b RowVersion) int {
	if c := CompareIntIDs(a.ID, b.ID); c != 0 {
		return c
	}
	return a.Version - b.Version
}
