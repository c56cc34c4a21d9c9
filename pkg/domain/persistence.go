package domain

import "context"

// AssetReader exposes read access to one asset kind. Lookups by layout context
// follow the visibility fallback of the context's branch.
type AssetReader[T Asset] interface {
	Get(lc LayoutContext, id IntID) (T, bool)
	Version(lc LayoutContext, id IntID) (RowVersion, bool)
	Fetch(v RowVersion) (T, bool)
	List(lc LayoutContext, includeDeleted bool) []T
	DraftVersions(branch Branch) []RowVersion
	HasDraft(branch Branch, id IntID) bool
	HasOfficial(branch Branch, id IntID) bool
}

// AssetWriter mutates one asset kind within a transaction.
type AssetWriter[T Asset] interface {
	AssetReader[T]
	// SaveDraft stores a new draft revision. A zero id allocates a new asset.
	SaveDraft(branch Branch, asset T) (T, error)
	// Cancel drafts the removal of a design-branch asset.
	Cancel(branch Branch, id IntID) (T, error)
	// DeleteDraft discards the branch's draft row and returns its version.
	DeleteDraft(branch Branch, id IntID) (RowVersion, error)
	// Publish promotes the draft row to official without changing its version.
	Publish(branch Branch, version RowVersion) (T, error)
	SetExternalID(id IntID, externalID string) error
}

// LayoutView provides read-only access to a consistent snapshot.
type LayoutView interface {
	TrackNumbers() AssetReader[TrackNumber]
	ReferenceLines() AssetReader[ReferenceLine]
	LocationTracks() AssetReader[LocationTrack]
	Switches() AssetReader[Switch]
	KmPosts() AssetReader[KmPost]

	KmPostsByTrackNumbers(lc LayoutContext, ids []IntID) map[IntID][]RowVersion
	LocationTracksByTrackNumbers(lc LayoutContext, ids []IntID) map[IntID][]RowVersion
	ReferenceLinesByTrackNumbers(lc LayoutContext, ids []IntID) map[IntID]RowVersion
	LocationTracksBySwitches(lc LayoutContext, ids []IntID) map[IntID][]RowVersion
	LocationTracksByDuplicateOf(lc LayoutContext, ids []IntID) map[IntID][]RowVersion
	TrackNumbersByNumbers(lc LayoutContext, numbers []string) map[string][]RowVersion
	SwitchesByNames(lc LayoutContext, names []string) map[string][]RowVersion
	LocationTracksByNames(lc LayoutContext, names []string) map[string][]RowVersion

	Publication(id IntID) (Publication, bool)
	Publications(branch Branch) []Publication
	GeometryChanges(publicationID IntID) []GeometryChange
	UnprocessedGeometryChanges(limit int) []GeometryChange
}

// Transaction exposes the operations a persistence implementation must
// support within an atomic scope.
type Transaction interface {
	Snapshot() LayoutView
	TrackNumbers() AssetWriter[TrackNumber]
	ReferenceLines() AssetWriter[ReferenceLine]
	LocationTracks() AssetWriter[LocationTrack]
	Switches() AssetWriter[Switch]
	KmPosts() AssetWriter[KmPost]
	CreatePublication(Publication) (Publication, error)
	SaveGeometryChange(GeometryChange) error
}

// LayoutStore is the abstraction over durable layout backends.
type LayoutStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(LayoutView) error) error
}
