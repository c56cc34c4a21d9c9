package memory

import (
	"fmt"
	"time"

	"layoutpub/pkg/domain"
)

// transaction represents a mutation set applied to a private copy of the store state.
type transaction struct {
	state memoryState
	now   time.Time
}

type writer[T domain.Versioned[T]] struct {
	reader[T]
	now time.Time
}

func (w writer[T]) SaveDraft(branch domain.Branch, asset T) (T, error) {
	header := asset.Header()
	header.ChangeTime = w.now
	return w.t.saveDraft(branch, asset, header)
}

// Cancel drafts a copy of the branch's official row flagged as cancelled.
// Publishing that draft removes the design branch's own official row.
func (w writer[T]) Cancel(branch domain.Branch, id domain.IntID) (T, error) {
	var zero T
	if branch.IsMain() {
		return zero, domain.NewErrorf(domain.CodeInvalidArgument, nil, "cancel %s: only design branch assets can be cancelled", id)
	}
	official, ok := w.t.get(branch.Official(), id)
	if !ok {
		return zero, fmt.Errorf("cancel %s in %s: %w", id, branch, domain.ErrNotFound)
	}
	header := official.Header()
	header.Cancelled = true
	header.ChangeTime = w.now
	return w.t.saveDraft(branch, official, header)
}

func (w writer[T]) DeleteDraft(branch domain.Branch, id domain.IntID) (domain.RowVersion, error) {
	return w.t.deleteDraft(branch, id)
}

func (w writer[T]) Publish(branch domain.Branch, version domain.RowVersion) (T, error) {
	return w.t.publish(branch, version)
}

func (w writer[T]) SetExternalID(id domain.IntID, externalID string) error {
	return w.t.setExternalID(id, externalID)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.LayoutView {
	return &view{state: &tx.state}
}

func (tx *transaction) TrackNumbers() domain.AssetWriter[domain.TrackNumber] {
	return writer[domain.TrackNumber]{reader: reader[domain.TrackNumber]{t: &tx.state.trackNumbers}, now: tx.now}
}

func (tx *transaction) ReferenceLines() domain.AssetWriter[domain.ReferenceLine] {
	return writer[domain.ReferenceLine]{reader: reader[domain.ReferenceLine]{t: &tx.state.referenceLines}, now: tx.now}
}

func (tx *transaction) LocationTracks() domain.AssetWriter[domain.LocationTrack] {
	return writer[domain.LocationTrack]{reader: reader[domain.LocationTrack]{t: &tx.state.locationTracks}, now: tx.now}
}

func (tx *transaction) Switches() domain.AssetWriter[domain.Switch] {
	return writer[domain.Switch]{reader: reader[domain.Switch]{t: &tx.state.switches}, now: tx.now}
}

func (tx *transaction) KmPosts() domain.AssetWriter[domain.KmPost] {
	return writer[domain.KmPost]{reader: reader[domain.KmPost]{t: &tx.state.kmPosts}, now: tx.now}
}

// CreatePublication assigns the next publication id and records p.
func (tx *transaction) CreatePublication(p domain.Publication) (domain.Publication, error) {
	if !p.ID.IsZero() {
		return domain.Publication{}, domain.NewErrorf(domain.CodeInvalidArgument, nil, "publication already has id %s", p.ID)
	}
	tx.state.nextPublicationID++
	p.ID = domain.NewIntID(tx.state.nextPublicationID)
	if p.Time.IsZero() {
		p.Time = tx.now
	}
	tx.state.publications = append(tx.state.publications, p)
	return p, nil
}

// SaveGeometryChange inserts c or replaces the row with the same publication,
// kind and asset.
func (tx *transaction) SaveGeometryChange(c domain.GeometryChange) error {
	if _, ok := (&view{state: &tx.state}).Publication(c.PublicationID); !ok {
		return fmt.Errorf("geometry change for publication %s: %w", c.PublicationID, domain.ErrNotFound)
	}
	c = cloneGeometryChange(c)
	for i, existing := range tx.state.geometryChanges {
		if existing.PublicationID == c.PublicationID && existing.Kind == c.Kind && existing.AssetID == c.AssetID {
			tx.state.geometryChanges[i] = c
			return nil
		}
	}
	tx.state.geometryChanges = append(tx.state.geometryChanges, c)
	return nil
}
