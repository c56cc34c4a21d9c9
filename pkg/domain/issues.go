package domain

import (
	"fmt"
	"slices"
)

// Severity captures validation outcomes.
type Severity string

// Issue severities determine publish behavior.
const (
	// SeverityError blocks publication.
	SeverityError Severity = "ERROR"
	// SeverityWarning is reported but allows publication.
	SeverityWarning Severity = "WARNING"
)

// ValidationIssue is a single localisable finding about an asset.
type ValidationIssue struct {
	Severity Severity          `json:"severity"`
	Key      string            `json:"key"`
	Params   map[string]string `json:"params,omitempty"`
}

// NewError builds an ERROR issue.
func NewError(key string, params map[string]string) ValidationIssue {
	return ValidationIssue{Severity: SeverityError, Key: key, Params: params}
}

// NewWarning builds a WARNING issue.
func NewWarning(key string, params map[string]string) ValidationIssue {
	return ValidationIssue{Severity: SeverityWarning, Key: key, Params: params}
}

func (i ValidationIssue) String() string { return fmt.Sprintf("%s %s", i.Severity, i.Key) }

// HasErrors reports whether any issue is an ERROR.
func HasErrors(issues []ValidationIssue) bool {
	return slices.ContainsFunc(issues, func(i ValidationIssue) bool { return i.Severity == SeverityError })
}

// ValidatedAsset pairs an asset id with its issues.
type ValidatedAsset struct {
	ID     IntID             `json:"id"`
	Issues []ValidationIssue `json:"issues"`
}

// ValidationResult aggregates validated assets per kind.
type ValidationResult struct {
	TrackNumbers   []ValidatedAsset `json:"trackNumbers"`
	KmPosts        []ValidatedAsset `json:"kmPosts"`
	ReferenceLines []ValidatedAsset `json:"referenceLines"`
	LocationTracks []ValidatedAsset `json:"locationTracks"`
	Switches       []ValidatedAsset `json:"switches"`
}

// Of returns the validated assets of one kind.
func (r ValidationResult) Of(kind AssetKind) []ValidatedAsset {
	switch kind {
	case KindTrackNumber:
		return r.TrackNumbers
	case KindKmPost:
		return r.KmPosts
	case KindReferenceLine:
		return r.ReferenceLines
	case KindLocationTrack:
		return r.LocationTracks
	case KindSwitch:
		return r.Switches
	}
	return nil
}

// Find returns the validated asset with the given kind and id.
func (r ValidationResult) Find(kind AssetKind, id IntID) (ValidatedAsset, bool) {
	for _, a := range r.Of(kind) {
		if a.ID == id {
			return a, true
		}
	}
	return ValidatedAsset{}, false
}

// HasErrors returns true if the result contains blocking issues.
func (r ValidationResult) HasErrors() bool {
	for _, kind := range PublishOrder {
		for _, a := range r.Of(kind) {
			if HasErrors(a.Issues) {
				return true
			}
		}
	}
	return false
}

// ErrorCount returns the number of ERROR issues across all kinds.
func (r ValidationResult) ErrorCount() int {
	n := 0
	for _, kind := range PublishOrder {
		for _, a := range r.Of(kind) {
			for _, i := range a.Issues {
				if i.Severity == SeverityError {
					n++
				}
			}
		}
	}
	return n
}

// ValidationFailedError is returned when a publish attempt hits blocking issues.
type ValidationFailedError struct {
	Result ValidationResult
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("publication blocked by %d validation error(s)", e.Result.ErrorCount())
}
