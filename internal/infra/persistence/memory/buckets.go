package memory

import (
	"encoding/json"
	"fmt"
)

// Bucket is one JSON-encoded slice of a snapshot as stored by the
// snapshotting backends.
type Bucket struct {
	Name    string
	Payload []byte
}

type snapshotMeta struct {
	NextPublicationID int64 `json:"nextPublicationId"`
}

// BucketNames lists the persisted buckets in write order.
var BucketNames = []string{
	"trackNumbers",
	"referenceLines",
	"locationTracks",
	"switches",
	"kmPosts",
	"publications",
	"geometryChanges",
	"meta",
}

func (s *Snapshot) target(name string) (any, bool) {
	switch name {
	case "trackNumbers":
		return &s.TrackNumbers, true
	case "referenceLines":
		return &s.ReferenceLines, true
	case "locationTracks":
		return &s.LocationTracks, true
	case "switches":
		return &s.Switches, true
	case "kmPosts":
		return &s.KmPosts, true
	case "publications":
		return &s.Publications, true
	case "geometryChanges":
		return &s.GeometryChanges, true
	}
	return nil, false
}

// Buckets encodes the snapshot into its persisted buckets.
func (s Snapshot) Buckets() ([]Bucket, error) {
	out := make([]Bucket, 0, len(BucketNames))
	for _, name := range BucketNames {
		var v any = snapshotMeta{NextPublicationID: s.NextPublicationID}
		if t, ok := s.target(name); ok {
			v = t
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out = append(out, Bucket{Name: name, Payload: data})
	}
	return out, nil
}

// DecodeBucket decodes one persisted bucket into the snapshot. Unknown buckets
// and empty payloads are ignored.
func (s *Snapshot) DecodeBucket(name string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if name == "meta" {
		var meta snapshotMeta
		if err := json.Unmarshal(payload, &meta); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		s.NextPublicationID = meta.NextPublicationID
		return nil
	}
	t, ok := s.target(name)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(payload, t); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
