package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"layoutpub/internal/config"
	"layoutpub/internal/geocoding"
	blobcore "layoutpub/internal/infra/blob/core"
	blobfs "layoutpub/internal/infra/blob/fs"
	blobmemory "layoutpub/internal/infra/blob/memory"
	blobs3 "layoutpub/internal/infra/blob/s3"
	"layoutpub/internal/infra/lock"
	"layoutpub/internal/infra/oid"
	"layoutpub/internal/infra/persistence/memory"
	"layoutpub/internal/infra/persistence/postgres"
	"layoutpub/internal/infra/persistence/sqlite"
	"layoutpub/internal/switchlib"
	"layoutpub/pkg/domain"
)

// Backends are the collaborators a publication service is built from.
type Backends struct {
	Store    domain.LayoutStore
	Locker   lock.Locker
	Archive  blobcore.Store
	Geocoder *geocoding.Engine
	Library  *switchlib.Library
	Issuer   *oid.LocalIssuer

	closers []func() error
}

// Close releases database handles in reverse opening order.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// OpenBackends builds every backend selected by cfg. On error nothing stays open.
func OpenBackends(ctx context.Context, cfg *config.Config) (_ *Backends, err error) {
	b := &Backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	var db *sql.DB
	switch cfg.Storage.Driver {
	case "memory":
		b.Store = memory.NewStore()
	case "sqlite":
		s, err := sqlite.NewStore(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Store, b.closers = s, append(b.closers, s.Close)
	case "postgres":
		s, err := postgres.NewStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		b.Store, b.closers, db = s, append(b.closers, s.Close), s.DB()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	switch cfg.Lock.Driver {
	case "memory":
		b.Locker = lock.NewMemory()
	case "postgres":
		if db == nil {
			if db, err = postgres.Open(ctx, cfg.Storage.PostgresDSN); err != nil {
				return nil, fmt.Errorf("lock database: %w", err)
			}
			b.closers = append(b.closers, db.Close)
		}
		b.Locker = lock.NewPostgres(db)
	default:
		return nil, fmt.Errorf("unknown lock driver %q", cfg.Lock.Driver)
	}

	if b.Archive, err = openArchive(ctx, cfg.Archive); err != nil {
		return nil, err
	}
	if b.Geocoder, err = geocoding.New(cfg.Geocoding.CacheSize); err != nil {
		return nil, err
	}
	if b.Library, err = switchlib.Load(cfg.SwitchLibrary.Path); err != nil {
		return nil, err
	}
	b.Issuer = oid.NewLocalIssuer(cfg.OID.Prefix)
	if err := ResumeIssuer(ctx, b.Store, b.Issuer); err != nil {
		return nil, err
	}
	return b, nil
}

func openArchive(ctx context.Context, cfg config.ArchiveConfig) (blobcore.Store, error) {
	switch blobcore.Driver(cfg.Driver) {
	case "":
		return nil, nil
	case blobcore.DriverMemory:
		return blobmemory.New(), nil
	case blobcore.DriverFilesystem:
		return blobfs.New(cfg.FSRoot)
	case blobcore.DriverS3:
		return blobs3.New(ctx, blobs3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	}
	return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
}

// ResumeIssuer continues OID numbering after the ids already stored.
func ResumeIssuer(ctx context.Context, store domain.LayoutStore, issuer *oid.LocalIssuer) error {
	return store.View(ctx, func(v domain.LayoutView) error {
		issuer.Resume(domain.KindTrackNumber, externalIDs(v.TrackNumbers().List(domain.MainOfficial, true)))
		issuer.Resume(domain.KindLocationTrack, externalIDs(v.LocationTracks().List(domain.MainOfficial, true)))
		issuer.Resume(domain.KindSwitch, externalIDs(v.Switches().List(domain.MainOfficial, true)))
		return nil
	})
}

func externalIDs[T domain.Asset](rows []T) []string {
	var out []string
	for _, r := range rows {
		if id := r.Header().ExternalID; id != "" {
			out = append(out, id)
		}
	}
	return out
}
