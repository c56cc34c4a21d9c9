package publication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	blobcore "layoutpub/internal/infra/blob/core"
	"layoutpub/pkg/domain"
)

// ReportPrefix is the blob key prefix of archived publication reports.
const ReportPrefix = "publications/"

// Report is the archived summary of one publication.
type Report struct {
	Publication domain.Publication   `json:"publication"`
	Result      domain.PublishResult `json:"result"`
}

// ReportKey is the blob key a publication's report is archived under.
func ReportKey(p domain.Publication) string {
	return fmt.Sprintf("%s%s/%s.json", ReportPrefix, p.Branch, p.ID)
}

func resultOf(p domain.Publication) domain.PublishResult {
	return domain.PublishResult{
		PublicationID:  p.ID,
		TrackNumbers:   len(p.TrackNumbers),
		KmPosts:        len(p.KmPosts),
		ReferenceLines: len(p.ReferenceLines),
		LocationTracks: len(p.LocationTracks),
		Switches:       len(p.Switches),
	}
}

func (s *Service) archivePublication(ctx context.Context, p domain.Publication) error {
	if s.archive == nil {
		return nil
	}
	body, err := json.MarshalIndent(Report{Publication: p, Result: resultOf(p)}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.archive.Put(ctx, ReportKey(p), bytes.NewReader(body), blobcore.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"publication-uuid": p.UUID,
			"branch":           p.Branch.String(),
		},
	})
	return err
}

// ArchivedReport reads back the archived report of a publication.
func (s *Service) ArchivedReport(ctx context.Context, p domain.Publication) (Report, error) {
	if s.archive == nil {
		return Report{}, domain.NewErrorf(domain.CodeNotFound, blobcore.ErrNotFound, "no report archive configured")
	}
	_, rc, err := s.archive.Get(ctx, ReportKey(p))
	if err != nil {
		return Report{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", ReportKey(p), err)
	}
	return r, nil
}

// ArchivedReportKeys lists the report keys archived for branch.
func (s *Service) ArchivedReportKeys(ctx context.Context, branch domain.Branch) ([]string, error) {
	if s.archive == nil {
		return nil, nil
	}
	infos, err := s.archive.List(ctx, ReportPrefix+branch.String()+"/")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".json") {
			keys = append(keys, info.Key)
		}
	}
	return keys, nil
}
