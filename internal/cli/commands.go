package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"layoutpub/internal/publication"
	"layoutpub/pkg/domain"
)

// idFlags selects assets per kind. --all selects every candidate of the branch.
type idFlags struct {
	all    bool
	byKind map[domain.AssetKind]*[]string
}

func addIDFlags(cmd *cobra.Command, allHelp string) *idFlags {
	f := &idFlags{byKind: make(map[domain.AssetKind]*[]string)}
	names := map[domain.AssetKind]string{
		domain.KindTrackNumber:   "track-number",
		domain.KindKmPost:        "km-post",
		domain.KindReferenceLine: "reference-line",
		domain.KindLocationTrack: "location-track",
		domain.KindSwitch:        "switch",
	}
	for _, kind := range domain.PublishOrder {
		ids := []string{}
		f.byKind[kind] = &ids
		cmd.Flags().StringSliceVar(&ids, names[kind], nil, fmt.Sprintf("%s ids (INT_<n> or <n>)", strings.ReplaceAll(names[kind], "-", " ")))
	}
	if allHelp != "" {
		cmd.Flags().BoolVar(&f.all, "all", false, allHelp)
	}
	return f
}

func (f *idFlags) request(ctx context.Context, svc *publication.Service, branch domain.Branch) (domain.PublicationRequestIDs, error) {
	if f.all {
		cands, err := svc.CollectPublicationCandidates(ctx, branch)
		if err != nil {
			return domain.PublicationRequestIDs{}, err
		}
		return cands.IDs(), nil
	}
	var req domain.PublicationRequestIDs
	for _, kind := range domain.PublishOrder {
		for _, raw := range *f.byKind[kind] {
			id, err := parseID(raw)
			if err != nil {
				return domain.PublicationRequestIDs{}, err
			}
			req.Add(kind, id)
		}
	}
	return req, nil
}

func parseID(raw string) (domain.IntID, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
		return domain.NewIntID(n), nil
	}
	id, err := domain.ParseIntID(raw)
	if err != nil {
		return domain.IntID{}, domain.NewErrorf(domain.CodeInvalidArgument, err, "invalid id %q", raw)
	}
	return id, nil
}

func newSeedCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load layout drafts from a YAML file",
		Long: `Load track numbers, reference lines, km-posts, switches and location tracks
from a YAML file. Assets refer to each other by key and keys must be declared
before use. Assets marked official: true are published without validation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				seed, err := LoadSeedFile(args[0])
				if err != nil {
					return out.Fail("seed", domain.NewErrorf(domain.CodeInvalidArgument, err, "load %s", args[0]))
				}
				res, err := seed.Apply(ctx, app.Store, opts.Branch(), opts.User)
				if err != nil {
					return out.Fail("seed", err)
				}
				return out.Success(res, func(w io.Writer) {
					fmt.Fprintf(w, "Seeded %d drafts and %d official assets in %s\n", res.Drafts, res.Official, res.Branch)
				})
			})
		},
	}
}

func newCandidatesCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates",
		Short: "List publication candidates of the branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
				cands, err := app.Service.CollectPublicationCandidates(ctx, opts.Branch())
				if err != nil {
					return out.Fail("collect candidates", err)
				}
				return out.Success(cands, func(w io.Writer) { renderCandidates(w, cands) })
			})
		},
	}
}

func newValidateCommand(opts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate candidates as a publication unit",
		Long: `Validate the selected candidates as if they were published together, and
every candidate of the branch as one unit. Without id flags every candidate is
selected.`,
		Args: cobra.NoArgs,
	}
	ids := addIDFlags(cmd, "")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd, opts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
			req, err := ids.request(ctx, app.Service, opts.Branch())
			if err != nil {
				return out.Fail("validate", err)
			}
			if req.IsEmpty() {
				ids.all = true
				if req, err = ids.request(ctx, app.Service, opts.Branch()); err != nil {
					return out.Fail("validate", err)
				}
			}
			validated, err := app.Service.ValidatePublicationCandidates(ctx, opts.Branch(), req)
			if err != nil {
				return out.Fail("validate", err)
			}
			return out.Success(validated, func(w io.Writer) { renderValidated(w, validated) })
		})
	}
	return cmd
}

func newPublishCommand(opts *RootOptions, open Opener) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish drafts to official",
		Long: `Validate the selected drafts as a unit and publish them. In the main branch
external ids are assigned first. Nothing is stored when validation reports an
ERROR issue.`,
		Args: cobra.NoArgs,
	}
	ids := addIDFlags(cmd, "publish every candidate of the branch")
	cmd.Flags().StringVarP(&message, "message", "m", "", "publication message")
	_ = cmd.MarkFlagRequired("message")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd, opts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
			branch := opts.Branch()
			req, err := ids.request(ctx, app.Service, branch)
			if err != nil {
				return out.Fail("publish", err)
			}
			if branch.IsMain() {
				n, err := app.Service.UpdateExternalIDs(ctx, branch, req)
				if err != nil {
					return out.Fail("publish", err)
				}
				out.VerboseLog("assigned %d external ids", n)
			}
			result, err := app.Service.Publish(ctx, publication.Request{Branch: branch, Content: req, Message: message, User: opts.User})
			if err != nil {
				return out.Fail("publish", err)
			}
			return out.Success(result, func(w io.Writer) { renderPublishResult(w, result) })
		})
	}
	return cmd
}

// revertOutput is the JSON payload of revert.
type revertOutput struct {
	Reverted domain.PublicationRequestIDs `json:"reverted"`
	Result   *domain.RevertResult         `json:"result,omitempty"`
}

func newRevertCommand(opts *RootOptions, open Opener) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Discard drafts together with the drafts depending on them",
		Args:  cobra.NoArgs,
	}
	ids := addIDFlags(cmd, "revert every draft of the branch")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only list what would be reverted")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd, opts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
			branch := opts.Branch()
			req, err := ids.request(ctx, app.Service, branch)
			if err != nil {
				return out.Fail("revert", err)
			}
			deps, err := app.Service.RevertRequestDependencies(ctx, branch, req)
			if err != nil {
				return out.Fail("revert", err)
			}
			res := revertOutput{Reverted: deps}
			if !dryRun {
				result, err := app.Service.RevertPublicationCandidates(ctx, branch, deps)
				if err != nil {
					return out.Fail("revert", err)
				}
				res.Result = &result
			}
			return out.Success(res, func(w io.Writer) { renderRevert(w, res.Reverted, res.Result) })
		})
	}
	return cmd
}

// remarksOutput is the JSON payload of remarks.
type remarksOutput struct {
	Processed int                     `json:"processed"`
	Changes   []domain.GeometryChange `json:"changes,omitempty"`
}

func newRemarksCommand(opts *RootOptions, open Opener) *cobra.Command {
	var pubID string
	cmd := &cobra.Command{
		Use:   "remarks",
		Short: "Process pending geometry change remarks",
		Long: `Compute the remarks of unprocessed geometry changes. With --publication the
changes of that publication are listed afterwards.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&pubID, "publication", "", "publication id to list")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd, opts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
			n, err := app.Service.ProcessGeometryChangeRemarks(ctx)
			if err != nil {
				return out.Fail("process remarks", err)
			}
			res := remarksOutput{Processed: n}
			if pubID != "" {
				id, err := parseID(pubID)
				if err != nil {
					return out.Fail("remarks", err)
				}
				if res.Changes, err = app.Service.GeometryChangeRemarks(ctx, id); err != nil {
					return out.Fail("remarks", err)
				}
			}
			return out.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Processed %d geometry changes\n", res.Processed)
				renderRemarks(w, res.Changes)
			})
		})
	}
	return cmd
}

func newPublicationsCommand(opts *RootOptions, open Opener) *cobra.Command {
	var pubID string
	cmd := &cobra.Command{
		Use:   "publications",
		Short: "Show the publication log of the branch",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&pubID, "id", "", "show one publication")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd, opts, open, func(ctx context.Context, app *App, out *OutputFormatter) error {
			if pubID == "" {
				pubs, err := app.Service.Publications(ctx, opts.Branch())
				if err != nil {
					return out.Fail("publications", err)
				}
				return out.Success(pubs, func(w io.Writer) { renderPublications(w, pubs) })
			}
			id, err := parseID(pubID)
			if err != nil {
				return out.Fail("publications", err)
			}
			pub, err := app.Service.Publication(ctx, id)
			if err != nil {
				return out.Fail("publications", err)
			}
			return out.Success(pub, func(w io.Writer) { renderPublication(w, pub) })
		})
	}
	return cmd
}
