package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layoutpub/internal/geocoding"
	"layoutpub/internal/infra/lock"
	"layoutpub/internal/infra/oid"
	"layoutpub/internal/infra/persistence/memory"
	"layoutpub/internal/publication"
	"layoutpub/internal/switchlib"
	"layoutpub/pkg/domain"
)

const workflowSeed = `
trackNumbers:
  - key: tn
    number: "002"
referenceLines:
  - key: rl
    trackNumber: tn
    startKm: "0001"
    segments:
      - points: [[0, 100], [250, 100], [500, 100], [750, 100], [1000, 100]]
locationTracks:
  - key: lt
    name: LT-1
    trackNumber: tn
    segments:
      - points: [[100, 100], [150, 100], [200, 100], [250, 100], [300, 100]]
`

// memoryOpener shares one in-memory layout between command runs.
func memoryOpener(t *testing.T) Opener {
	t.Helper()
	geocoder, err := geocoding.New(8)
	require.NoError(t, err)
	store := memory.NewStore()
	svc := publication.NewService(publication.Deps{
		Store:    store,
		Locker:   lock.NewMemory(),
		Geocoder: geocoder,
		Library:  switchlib.Default(),
		Issuer:   oid.NewLocalIssuer("1.2.3"),
	}, publication.Config{RemarkBatchSize: 10, RemarkWorkers: 2})
	return func(context.Context, *RootOptions, io.Writer) (*App, error) {
		return &App{Service: svc, Store: store, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, nil
	}
}

func execute(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommandWith(open)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String() + errOut.String(), err
}

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"seed", "candidates", "validate", "publish", "revert", "remarks", "publications"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"config", "format", "verbose", "design", "user", "metrics-file", "trace"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootRejectsBadGlobalFlags(t *testing.T) {
	open := memoryOpener(t)

	_, err := execute(t, open, "candidates", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, open, "candidates", "--design", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPublishRequiresMessage(t *testing.T) {
	_, err := execute(t, memoryOpener(t), "publish", "--all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}

func TestWorkflow(t *testing.T) {
	open := memoryOpener(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(workflowSeed), 0o600))

	out, err := execute(t, open, "seed", path)
	require.NoError(t, err, out)
	assert.Equal(t, "Seeded 3 drafts and 0 official assets in MAIN\n", out)

	out, err = execute(t, open, "candidates", "--format", "json")
	require.NoError(t, err, out)
	var listed struct {
		Status string                       `json:"status"`
		Data   domain.PublicationCandidates `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, "ok", listed.Status)
	assert.Len(t, listed.Data.TrackNumbers, 1)
	assert.Len(t, listed.Data.ReferenceLines, 1)
	assert.Len(t, listed.Data.LocationTracks, 1)

	out, err = execute(t, open, "validate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "== As a publication unit")
	assert.NotContains(t, out, "ERROR")

	out, err = execute(t, open, "publish", "--all", "-m", "first")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Published INT_1")
	assert.Contains(t, out, "LOCATION_TRACK  1")

	out, err = execute(t, open, "candidates")
	require.NoError(t, err, out)
	assert.Equal(t, "Candidates in MAIN\n  none\n", out)

	out, err = execute(t, open, "publications")
	require.NoError(t, err, out)
	assert.Contains(t, out, "first")

	out, err = execute(t, open, "publications", "--id", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "LOCATION_TRACK  INT_")

	out, err = execute(t, open, "remarks", "--publication", "INT_1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Processed 2 geometry changes")
}

func TestRevertDryRun(t *testing.T) {
	open := memoryOpener(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(workflowSeed), 0o600))
	_, err := execute(t, open, "seed", path)
	require.NoError(t, err)

	out, err := execute(t, open, "revert", "--track-number", "1", "--dry-run")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Would revert")
	assert.Contains(t, out, "TRACK_NUMBER    INT_1")
	assert.Contains(t, out, "LOCATION_TRACK")

	out, err = execute(t, open, "candidates")
	require.NoError(t, err)
	assert.Contains(t, out, "TRACK_NUMBER", "dry run keeps drafts")

	out, err = execute(t, open, "revert", "--all")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Discarded drafts")

	out, err = execute(t, open, "candidates")
	require.NoError(t, err)
	assert.Equal(t, "Candidates in MAIN\n  none\n", out)
}

func TestOpenAppWritesConfiguredMetrics(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "layoutpub.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  driver: memory\nmetrics:\n  exporter: expvar\n  namespace: layoutpub_cli_test\n"), 0o600))
	metricsPath := filepath.Join(dir, "metrics.json")

	out, err := execute(t, OpenApp, "candidates", "--config", cfgPath, "--metrics-file", metricsPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Candidates in MAIN")

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	var snapshot struct {
		Results map[string]map[string]int64 `json:"results_total"`
	}
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.NotEmpty(t, snapshot.Results, "operations are recorded by the expvar exporter")
}

func TestBadIDIsCommandError(t *testing.T) {
	_, err := execute(t, memoryOpener(t), "validate", "--switch", "S-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseSeed(t *testing.T) {
	_, err := ParseSeed([]byte("trackNumbers:\n  - key: a\n    colour: red\n"))
	require.Error(t, err)

	seed, err := ParseSeed([]byte("locationTracks:\n  - name: LT\n    trackNumber: missing\n"))
	require.NoError(t, err)
	_, err = seed.Apply(context.Background(), memory.NewStore(), domain.MainBranch, "test")
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidArgument, domain.CodeOf(err))

	empty, err := ParseSeed(nil)
	require.NoError(t, err)
	res, err := empty.Apply(context.Background(), memory.NewStore(), domain.MainBranch, "test")
	require.NoError(t, err)
	assert.Zero(t, res.Drafts)
}
