package validation

import (
	"math"
	"strings"

	"layoutpub/pkg/domain"
)

// Message key roots.
const (
	KeyRoot          = "validation.layout"
	KeyTrackNumber   = KeyRoot + ".track-number"
	KeyKmPost        = KeyRoot + ".km-post"
	KeyReferenceLine = KeyRoot + ".reference-line"
	KeyLocationTrack = KeyRoot + ".location-track"
	KeyGeocoding     = KeyRoot + ".geocoding"
	KeySwitch        = KeyRoot + ".switch"
)

// Tolerances.
const (
	JointLocationDelta        = 0.5
	LayoutCoordinateDelta     = 0.001
	MaxLayoutPointAngleChange = math.Pi / 2
	MaxLayoutMeterLength      = 2.0
	MaxKmPostOffset           = 10.0
	MaxReportedRanges         = 5
)

// collector accumulates issues for one asset.
type collector struct {
	issues []domain.ValidationIssue
}

func params(kv ...string) map[string]string {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// require records an ERROR unless ok holds.
func (c *collector) require(ok bool, key string, kv ...string) {
	if !ok {
		c.issues = append(c.issues, domain.NewError(key, params(kv...)))
	}
}

// expect records a WARNING unless ok holds.
func (c *collector) expect(ok bool, key string, kv ...string) {
	if !ok {
		c.issues = append(c.issues, domain.NewWarning(key, params(kv...)))
	}
}

func (c *collector) add(issues ...domain.ValidationIssue) {
	c.issues = append(c.issues, issues...)
}

// IndexRange is a closed range of indices.
type IndexRange struct {
	Start int
	End   int
}

// RangesOfConsecutiveIndicesOf collapses each run of value in ts into one
// range. A range starts at the first index of the run and ends at the index
// after the run, moved by offset.
func RangesOfConsecutiveIndicesOf(value bool, ts []bool, offset int) []IndexRange {
	var out []IndexRange
	start := -1
	for i := 0; i <= len(ts); i++ {
		in := i < len(ts) && ts[i] == value
		switch {
		case in && start < 0:
			start = i
		case !in && start >= 0:
			out = append(out, IndexRange{Start: start, End: i + offset})
			start = -1
		}
	}
	return out
}

// validateLifecycle flags candidates whose state may not be published.
func validateLifecycle(prefix string, h domain.AssetHeader) []domain.ValidationIssue {
	var c collector
	c.require(h.State.IsPublishable(), prefix+".state."+string(h.State))
	return c.issues
}

func joinNames[T any](rows []T, name func(T) string, sep string) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = name(r)
	}
	return strings.Join(parts, sep)
}

func existing[T domain.Asset](rows []T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if r.Header().State.Exists() {
			out = append(out, r)
		}
	}
	return out
}
