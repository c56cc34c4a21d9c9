package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"layoutpub/internal/publication"
	"layoutpub/pkg/domain"
)

// displayOrder is the order kinds are listed in text output.
var displayOrder = []domain.AssetKind{
	domain.KindTrackNumber,
	domain.KindReferenceLine,
	domain.KindKmPost,
	domain.KindSwitch,
	domain.KindLocationTrack,
}

func renderCandidates(w io.Writer, c domain.PublicationCandidates) {
	fmt.Fprintf(w, "Candidates in %s\n", c.Branch)
	total := 0
	for _, kind := range displayOrder {
		for _, cand := range c.Of(kind) {
			total++
			line := fmt.Sprintf("%-15s %-10s v%-3d %-8s %s", kind, cand.ID(), cand.RowVersion.Version, cand.Operation, cand.User)
			if cand.Cancelled {
				line += " (cancelled)"
			}
			fmt.Fprintln(w, strings.TrimRight(line, " "))
			renderIssueLines(w, cand.Issues)
		}
	}
	if total == 0 {
		fmt.Fprintln(w, "  none")
	}
}

func renderValidated(w io.Writer, v publication.ValidatedPublicationCandidates) {
	fmt.Fprintln(w, "== As a publication unit")
	renderCandidates(w, v.ValidatedAsPublicationUnit)
	fmt.Fprintln(w, "== With all changes")
	renderCandidates(w, v.AllChangesValidated)
}

// renderIssues lists the assets of a result that have issues.
func renderIssues(w io.Writer, r domain.ValidationResult) {
	for _, kind := range displayOrder {
		for _, asset := range r.Of(kind) {
			if len(asset.Issues) == 0 {
				continue
			}
			fmt.Fprintf(w, "%-15s %s\n", kind, asset.ID)
			renderIssueLines(w, asset.Issues)
		}
	}
}

func renderIssueLines(w io.Writer, issues []domain.ValidationIssue) {
	for _, issue := range issues {
		fmt.Fprintf(w, "  %-7s %s%s\n", issue.Severity, issue.Key, formatParams(issue.Params))
	}
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, k+"="+params[k])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

type kindCount struct {
	kind  domain.AssetKind
	count int
}

func publishCounts(r domain.PublishResult) []kindCount {
	return []kindCount{
		{domain.KindTrackNumber, r.TrackNumbers},
		{domain.KindReferenceLine, r.ReferenceLines},
		{domain.KindKmPost, r.KmPosts},
		{domain.KindSwitch, r.Switches},
		{domain.KindLocationTrack, r.LocationTracks},
	}
}

func revertCounts(r domain.RevertResult) []kindCount {
	return publishCounts(domain.PublishResult{
		TrackNumbers:   r.TrackNumbers,
		ReferenceLines: r.ReferenceLines,
		KmPosts:        r.KmPosts,
		Switches:       r.Switches,
		LocationTracks: r.LocationTracks,
	})
}

func renderCounts(w io.Writer, counts []kindCount) {
	for _, c := range counts {
		if c.count > 0 {
			fmt.Fprintf(w, "  %-15s %d\n", c.kind, c.count)
		}
	}
}

func renderPublishResult(w io.Writer, r domain.PublishResult) {
	fmt.Fprintf(w, "Published %s\n", r.PublicationID)
	renderCounts(w, publishCounts(r))
}

func renderRevert(w io.Writer, ids domain.PublicationRequestIDs, r *domain.RevertResult) {
	if r == nil {
		fmt.Fprintln(w, "Would revert")
	} else {
		fmt.Fprintln(w, "Reverted")
	}
	for _, kind := range displayOrder {
		for _, id := range ids.Of(kind) {
			fmt.Fprintf(w, "  %-15s %s\n", kind, id)
		}
	}
	if r != nil {
		fmt.Fprintln(w, "Discarded drafts")
		renderCounts(w, revertCounts(*r))
	}
}

func renderPublications(w io.Writer, pubs []domain.Publication) {
	if len(pubs) == 0 {
		fmt.Fprintln(w, "No publications")
		return
	}
	for _, p := range pubs {
		fmt.Fprintf(w, "%-10s %s %-12s %s\n", p.ID, p.Time.UTC().Format(time.RFC3339), p.User, p.Message)
	}
}

func renderPublication(w io.Writer, p domain.Publication) {
	fmt.Fprintf(w, "Publication %s (%s)\n", p.ID, p.UUID)
	fmt.Fprintf(w, "  branch   %s\n", p.Branch)
	fmt.Fprintf(w, "  time     %s\n", p.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  user     %s\n", p.User)
	fmt.Fprintf(w, "  message  %s\n", p.Message)
	published := map[domain.AssetKind][]domain.RowVersion{
		domain.KindTrackNumber:   p.TrackNumbers,
		domain.KindReferenceLine: p.ReferenceLines,
		domain.KindKmPost:        p.KmPosts,
		domain.KindSwitch:        p.Switches,
		domain.KindLocationTrack: p.LocationTracks,
	}
	for _, kind := range displayOrder {
		for _, rv := range published[kind] {
			fmt.Fprintf(w, "  %-15s %s\n", kind, rv)
		}
	}
	indirect := map[domain.AssetKind][]domain.IntID{
		domain.KindTrackNumber:   p.Indirect.TrackNumbers,
		domain.KindSwitch:        p.Indirect.Switches,
		domain.KindLocationTrack: p.Indirect.LocationTracks,
	}
	for _, kind := range displayOrder {
		for _, id := range indirect[kind] {
			fmt.Fprintf(w, "  %-15s %s (indirect)\n", kind, id)
		}
	}
}

func renderRemarks(w io.Writer, changes []domain.GeometryChange) {
	for _, c := range changes {
		old := "-"
		if c.OldVersion != nil {
			old = fmt.Sprintf("v%d", c.OldVersion.Version)
		}
		if c.Remark == nil {
			fmt.Fprintf(w, "%-15s %-10s %s -> v%d pending\n", c.Kind, c.AssetID, old, c.NewVersion.Version)
			continue
		}
		fmt.Fprintf(w, "%-15s %-10s %s -> v%d %s %+.1f m\n", c.Kind, c.AssetID, old, c.NewVersion.Version, c.Remark.Summary, c.Remark.LengthChange)
		for _, r := range c.Remark.Added {
			fmt.Fprintf(w, "  added   %.1f-%.1f\n", r.Min, r.Max)
		}
		for _, r := range c.Remark.Removed {
			fmt.Fprintf(w, "  removed %.1f-%.1f\n", r.Min, r.Max)
		}
	}
}
