package cli

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"layoutpub/pkg/domain"
)

func TestTextRendering(t *testing.T) {
	var buf bytes.Buffer
	renderCandidates(&buf, domain.PublicationCandidates{
		Branch: domain.MainBranch,
		TrackNumbers: []domain.PublicationCandidate{{
			Kind:       domain.KindTrackNumber,
			RowVersion: domain.RowVersion{ID: domain.NewIntID(1), Version: 2},
			Operation:  domain.OperationModify,
			User:       "alice",
		}},
		LocationTracks: []domain.PublicationCandidate{{
			Kind:       domain.KindLocationTrack,
			RowVersion: domain.RowVersion{ID: domain.NewIntID(7), Version: 1},
			Operation:  domain.OperationCreate,
			User:       "bob",
			Issues: []domain.ValidationIssue{
				domain.NewError("validation.layout.location-track.switch-missing", map[string]string{"switch": "S1", "joint": "5"}),
				domain.NewWarning("validation.layout.location-track.short", nil),
			},
		}},
		Switches: []domain.PublicationCandidate{{
			Kind:       domain.KindSwitch,
			RowVersion: domain.RowVersion{ID: domain.NewIntID(3), Version: 4},
			Operation:  domain.OperationDelete,
			User:       "alice",
			Cancelled:  true,
		}},
	})
	buf.WriteString("\n")

	renderPublishResult(&buf, domain.PublishResult{PublicationID: domain.NewIntID(12), TrackNumbers: 1, LocationTracks: 2})
	buf.WriteString("\n")

	renderRevert(&buf,
		domain.PublicationRequestIDs{LocationTracks: []domain.IntID{domain.NewIntID(7)}, Switches: []domain.IntID{domain.NewIntID(3)}},
		&domain.RevertResult{LocationTracks: 1, Switches: 1})
	buf.WriteString("\n")

	old := domain.RowVersion{ID: domain.NewIntID(7), Version: 1}
	renderRemarks(&buf, []domain.GeometryChange{
		{
			Kind:       domain.KindLocationTrack,
			AssetID:    domain.NewIntID(7),
			OldVersion: &old,
			NewVersion: old.Next(),
			Processed:  true,
			Remark: &domain.GeometryChangeRemark{
				Added:        []domain.MRange{{Min: 200, Max: 300}},
				Removed:      []domain.MRange{{Min: 0, Max: 12.5}},
				LengthChange: 100,
				Summary:      "geometry-change.changed",
			},
		},
		{
			Kind:       domain.KindReferenceLine,
			AssetID:    domain.NewIntID(2),
			NewVersion: domain.RowVersion{ID: domain.NewIntID(2), Version: 1},
		},
	})

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "render", buf.Bytes())
}
