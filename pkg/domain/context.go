package domain

import (
	"fmt"
	"strings"
)

// Branch is either the main network or a design branch keyed by its design id.
// The zero value is the main branch.
type Branch struct {
	design IntID
}

// MainBranch is the single main line of layout edits.
var MainBranch = Branch{}

// DesignBranch returns the branch for the given design id.
func DesignBranch(design IntID) Branch { return Branch{design: design} }

// IsMain reports whether b is the main branch.
func (b Branch) IsMain() bool { return b.design.IsZero() }

// Design returns the design id and whether b is a design branch.
func (b Branch) Design() (IntID, bool) { return b.design, !b.design.IsZero() }

// Official returns the official context of the branch.
func (b Branch) Official() LayoutContext { return LayoutContext{Branch: b, State: Official} }

// Draft returns the draft context of the branch.
func (b Branch) Draft() LayoutContext { return LayoutContext{Branch: b, State: Draft} }

func (b Branch) String() string {
	if b.IsMain() {
		return "MAIN"
	}
	return "DESIGN_" + b.design.String()
}

// MarshalText lets Branch key JSON maps.
func (b Branch) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText parses MAIN or DESIGN_INT_<n>.
func (b *Branch) UnmarshalText(text []byte) error {
	parsed, err := ParseBranch(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBranch parses the formatted branch value.
func ParseBranch(s string) (Branch, error) {
	if s == "MAIN" {
		return MainBranch, nil
	}
	raw, ok := strings.CutPrefix(s, "DESIGN_")
	if !ok {
		return Branch{}, fmt.Errorf("parse branch %q: unknown form", s)
	}
	id, err := ParseIntID(raw)
	if err != nil {
		return Branch{}, fmt.Errorf("parse branch %q: %w", s, err)
	}
	if id.IsZero() {
		return Branch{}, fmt.Errorf("parse branch %q: design id must be non-zero", s)
	}
	return DesignBranch(id), nil
}

// PublicationState is one of the two competing row states within a branch.
type PublicationState string

const (
	Official PublicationState = "OFFICIAL"
	Draft    PublicationState = "DRAFT"
)

// LayoutContext is the coordinate a query is made under.
type LayoutContext struct {
	Branch Branch           `json:"branch"`
	State  PublicationState `json:"state"`
}

var (
	MainOfficial = MainBranch.Official()
	MainDraft    = MainBranch.Draft()
)

func (c LayoutContext) String() string { return c.Branch.String() + "/" + string(c.State) }
