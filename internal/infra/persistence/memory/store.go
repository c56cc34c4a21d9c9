// Package memory provides the versioned in-memory layout store used for tests,
// ephemeral environments and as the working set of the snapshotting backends.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"layoutpub/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.LayoutStore = (*Store)(nil)
	_ domain.Transaction = (*transaction)(nil)
	_ domain.LayoutView  = (*view)(nil)
)

type memoryState struct {
	trackNumbers      table[domain.TrackNumber]
	referenceLines    table[domain.ReferenceLine]
	locationTracks    table[domain.LocationTrack]
	switches          table[domain.Switch]
	kmPosts           table[domain.KmPost]
	publications      []domain.Publication
	geometryChanges   []domain.GeometryChange
	nextPublicationID int64
}

func newMemoryState() memoryState {
	return memoryState{
		trackNumbers:   newTable[domain.TrackNumber](),
		referenceLines: newTable[domain.ReferenceLine](),
		locationTracks: newTable[domain.LocationTrack](),
		switches:       newTable[domain.Switch](),
		kmPosts:        newTable[domain.KmPost](),
	}
}

func (s memoryState) clone() memoryState {
	changes := make([]domain.GeometryChange, len(s.geometryChanges))
	for i, c := range s.geometryChanges {
		changes[i] = cloneGeometryChange(c)
	}
	return memoryState{
		trackNumbers:      s.trackNumbers.clone(),
		referenceLines:    s.referenceLines.clone(),
		locationTracks:    s.locationTracks.clone(),
		switches:          s.switches.clone(),
		kmPosts:           s.kmPosts.clone(),
		publications:      slices.Clone(s.publications),
		geometryChanges:   changes,
		nextPublicationID: s.nextPublicationID,
	}
}

func cloneGeometryChange(c domain.GeometryChange) domain.GeometryChange {
	if c.OldVersion != nil {
		old := *c.OldVersion
		c.OldVersion = &old
	}
	if c.Remark != nil {
		r := *c.Remark
		r.Added = slices.Clone(r.Added)
		r.Removed = slices.Clone(r.Removed)
		c.Remark = &r
	}
	return c
}

// Snapshot captures a point-in-time clone of the store state. Each field maps
// to one persisted bucket of the snapshotting backends.
type Snapshot struct {
	TrackNumbers      Table[domain.TrackNumber]   `json:"trackNumbers"`
	ReferenceLines    Table[domain.ReferenceLine] `json:"referenceLines"`
	LocationTracks    Table[domain.LocationTrack] `json:"locationTracks"`
	Switches          Table[domain.Switch]        `json:"switches"`
	KmPosts           Table[domain.KmPost]        `json:"kmPosts"`
	Publications      []domain.Publication        `json:"publications"`
	GeometryChanges   []domain.GeometryChange     `json:"geometryChanges"`
	NextPublicationID int64                       `json:"nextPublicationId"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	c := state.clone()
	return Snapshot{
		TrackNumbers:      c.trackNumbers.export(),
		ReferenceLines:    c.referenceLines.export(),
		LocationTracks:    c.locationTracks.export(),
		Switches:          c.switches.export(),
		KmPosts:           c.kmPosts.export(),
		Publications:      c.publications,
		GeometryChanges:   c.geometryChanges,
		NextPublicationID: c.nextPublicationID,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := memoryState{
		trackNumbers:      importTable(s.TrackNumbers),
		referenceLines:    importTable(s.ReferenceLines),
		locationTracks:    importTable(s.LocationTracks),
		switches:          importTable(s.Switches),
		kmPosts:           importTable(s.KmPosts),
		publications:      slices.Clone(s.Publications),
		nextPublicationID: s.NextPublicationID,
	}
	for _, p := range state.publications {
		if p.ID.Value > state.nextPublicationID {
			state.nextPublicationID = p.ID.Value
		}
	}
	for _, c := range s.GeometryChanges {
		state.geometryChanges = append(state.geometryChanges, cloneGeometryChange(c))
	}
	return state
}

// Store provides an in-memory transactional store for layout assets.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc replaces the clock used to stamp change times.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the store state only when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) error {
	return s.RunInTransactionWithCommit(ctx, fn, nil)
}

// RunInTransactionWithCommit is RunInTransaction with a commit hook. After fn
// succeeds, commit receives the state the transaction produced; the store
// adopts that state only when commit returns nil. The store lock is held
// throughout, so commits happen in transaction order.
func (s *Store) RunInTransactionWithCommit(ctx context.Context, fn func(tx domain.Transaction) error, commit func(Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if commit != nil {
		if err := commit(snapshotFromMemoryState(tx.state)); err != nil {
			return err
		}
	}
	s.state = tx.state
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.LayoutView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&view{state: &snapshot})
}
