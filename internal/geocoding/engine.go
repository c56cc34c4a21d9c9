// Package geocoding maps positions on location tracks to linear addresses
// along a track number's reference line. Contexts are built from the reference
// line geometry and the km-posts of the track number and cached by the row
// versions they were built from.
package geocoding

import (
	"cmp"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"layoutpub/pkg/domain"
)

// DefaultCacheSize bounds the number of cached contexts.
const DefaultCacheSize = 256

type cached struct {
	ctx *geoContext
	ok  bool
}

// Engine implements domain.Geocoder.
type Engine struct {
	cache *lru.Cache[string, cached]
}

var _ domain.Geocoder = (*Engine)(nil)

// New returns an engine caching up to size contexts.
func New(size int) (*Engine, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cached](size)
	if err != nil {
		return nil, fmt.Errorf("geocoding cache: %w", err)
	}
	return &Engine{cache: cache}, nil
}

// ContextKey builds the key for a track number. Deleted km-posts are left
// out and the rest are ordered by km number.
func (e *Engine) ContextKey(tn domain.TrackNumber, rl domain.ReferenceLine, kmPosts []domain.KmPost) domain.GeocodingContextKey {
	kps := slices.DeleteFunc(slices.Clone(kmPosts), func(kp domain.KmPost) bool { return !kp.State.Exists() })
	slices.SortStableFunc(kps, func(a, b domain.KmPost) int {
		return cmp.Or(domain.CompareKmNumbers(a.KmNumber, b.KmNumber), domain.CompareIntIDs(a.ID, b.ID))
	})
	return domain.GeocodingContextKey{TrackNumber: tn, ReferenceLine: rl, KmPosts: kps}
}

func (e *Engine) context(key domain.GeocodingContextKey) (*geoContext, bool) {
	k := key.CacheKey()
	if c, ok := e.cache.Get(k); ok {
		return c.ctx, c.ok
	}
	ctx, ok := build(key)
	e.cache.Add(k, cached{ctx: ctx, ok: ok})
	return ctx, ok
}

// ContextResult returns the reference points and rejected km-posts of the
// context, or false when the reference line has no usable geometry.
func (e *Engine) ContextResult(key domain.GeocodingContextKey) (domain.GeocodingContextResult, bool) {
	ctx, ok := e.context(key)
	if !ok {
		return domain.GeocodingContextResult{}, false
	}
	return ctx.result, true
}

// AddressPoints geocodes an alignment. It fails when there is no context or
// either end of the alignment cannot be addressed.
func (e *Engine) AddressPoints(key domain.GeocodingContextKey, alignment domain.Alignment) (domain.AlignmentAddresses, bool) {
	ctx, ok := e.context(key)
	if !ok {
		return domain.AlignmentAddresses{}, false
	}
	return ctx.addressPoints(alignment)
}

// Address geocodes a single point.
func (e *Engine) Address(key domain.GeocodingContextKey, p domain.Point) (domain.TrackMeter, domain.IntersectType, bool) {
	ctx, ok := e.context(key)
	if !ok {
		return domain.TrackMeter{}, "", false
	}
	ap, _, it, ok := ctx.addressPoint(domain.AlignmentPoint{X: p.X, Y: p.Y})
	return ap.Address, it, ok
}

// Len reports the number of cached contexts.
func (e *Engine) Len() int { return e.cache.Len() }
