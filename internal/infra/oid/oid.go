// Package oid issues external object identifiers when no external system of
// record is configured.
package oid

import (
	"context"
	"fmt"
	"sync"

	"layoutpub/pkg/domain"
)

// DefaultPrefix is the OID arc issued identifiers are placed under.
const DefaultPrefix = "1.2.246.578.13"

var kindArcs = map[domain.AssetKind]int{
	domain.KindTrackNumber:   10001,
	domain.KindLocationTrack: 10002,
	domain.KindSwitch:        10003,
	domain.KindReferenceLine: 10004,
	domain.KindKmPost:        10005,
}

// LocalIssuer hands out sequential OIDs per asset kind.
type LocalIssuer struct {
	prefix string
	mu     sync.Mutex
	next   map[domain.AssetKind]int64
}

var _ domain.ExternalIDIssuer = (*LocalIssuer)(nil)

// NewLocalIssuer returns an issuer rooted at prefix.
func NewLocalIssuer(prefix string) *LocalIssuer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &LocalIssuer{prefix: prefix, next: make(map[domain.AssetKind]int64)}
}

// Issue returns the next OID for kind.
func (i *LocalIssuer) Issue(ctx context.Context, kind domain.AssetKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	arc, ok := kindArcs[kind]
	if !ok {
		return "", domain.NewErrorf(domain.CodeInvalidArgument, nil, "no oid arc for kind %s", kind)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.next[kind]++
	return fmt.Sprintf("%s.%d.%d", i.prefix, arc, i.next[kind]), nil
}

// Resume continues numbering after the given OIDs, so restarts do not reissue
// identifiers already handed out.
func (i *LocalIssuer) Resume(kind domain.AssetKind, issued []string) {
	arc, ok := kindArcs[kind]
	if !ok {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, s := range issued {
		var n int64
		if _, err := fmt.Sscanf(s, i.prefix+fmt.Sprintf(".%d.", arc)+"%d", &n); err == nil && n > i.next[kind] {
			i.next[kind] = n
		}
	}
}
