package core

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"layoutpub/internal/config"
	"layoutpub/internal/infra/oid"
	"layoutpub/internal/infra/persistence/memory"
	"layoutpub/pkg/domain"
	"layoutpub/testutil/fixtures"
)

func memoryConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = "memory"
	return cfg
}

func TestOpenBackendsMemory(t *testing.T) {
	cfg := memoryConfig()
	cfg.Archive.Driver = "memory"
	b, err := OpenBackends(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open backends: %v", err)
	}
	defer func() { _ = b.Close() }()
	if b.Store == nil || b.Locker == nil || b.Geocoder == nil || b.Library == nil || b.Issuer == nil {
		t.Fatalf("missing backend in %+v", b)
	}
	if b.Archive == nil {
		t.Fatalf("expected memory archive")
	}
}

func TestOpenBackendsWithoutArchive(t *testing.T) {
	b, err := OpenBackends(context.Background(), memoryConfig())
	if err != nil {
		t.Fatalf("open backends: %v", err)
	}
	defer func() { _ = b.Close() }()
	if b.Archive != nil {
		t.Fatalf("archive should be disabled, got %T", b.Archive)
	}
}

func TestOpenBackendsSQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "layout.db")
	cfg.Archive.Driver = "fs"
	cfg.Archive.FSRoot = filepath.Join(t.TempDir(), "archive")
	b, err := OpenBackends(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open backends: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOpenBackendsRejectsUnknownDrivers(t *testing.T) {
	cases := map[string]func(*config.Config){
		"storage": func(c *config.Config) { c.Storage.Driver = "cassandra" },
		"lock":    func(c *config.Config) { c.Lock.Driver = "zookeeper" },
		"archive": func(c *config.Config) { c.Archive.Driver = "tape" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := memoryConfig()
			mutate(cfg)
			_, err := OpenBackends(context.Background(), cfg)
			if err == nil || !strings.Contains(err.Error(), "unknown "+name+" driver") {
				t.Fatalf("expected unknown %s driver error, got %v", name, err)
			}
		})
	}
}

func TestResumeIssuerContinuesAfterStoredIDs(t *testing.T) {
	store := memory.NewStore()
	s := fixtures.NewSeeder(t, store)
	tn := fixtures.Official(s, fixtures.TrackNumber("001"))
	if err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.TrackNumbers().SetExternalID(tn.ID, "1.2.3.10001.41")
	}); err != nil {
		t.Fatalf("set external id: %v", err)
	}

	issuer := oid.NewLocalIssuer("1.2.3")
	if err := ResumeIssuer(context.Background(), store, issuer); err != nil {
		t.Fatalf("resume: %v", err)
	}
	got, err := issuer.Issue(context.Background(), domain.KindTrackNumber)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got != "1.2.3.10001.42" {
		t.Fatalf("issued %s", got)
	}
	if got, _ := issuer.Issue(context.Background(), domain.KindSwitch); got != "1.2.3.10003.1" {
		t.Fatalf("switch numbering should start fresh, got %s", got)
	}
}
