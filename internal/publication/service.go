// Package publication is the application service over a layout store: it
// lists publication candidates, validates them as a unit, publishes them
// atomically under the publication lock, reverts drafts with their
// dependencies and maintains the publication log.
package publication

import (
	"context"
	"time"

	"github.com/google/uuid"

	"layoutpub/internal/config"
	"layoutpub/internal/core"
	blobcore "layoutpub/internal/infra/blob/core"
	"layoutpub/internal/infra/lock"
	"layoutpub/internal/validation"
	"layoutpub/pkg/domain"
)

// Config tunes lock holds and the remark job.
type Config struct {
	PublicationHold time.Duration
	RemarksHold     time.Duration
	RemarkBatchSize int
	RemarkWorkers   int
}

// ConfigFrom extracts the service settings from the loaded configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		PublicationHold: cfg.Lock.PublicationHold.Duration(),
		RemarksHold:     cfg.Lock.RemarksHold.Duration(),
		RemarkBatchSize: cfg.Remarks.BatchSize,
		RemarkWorkers:   cfg.Remarks.Workers,
	}
}

// Deps are the collaborators of a Service. Archive is optional.
type Deps struct {
	Store    domain.LayoutStore
	Locker   lock.Locker
	Geocoder domain.Geocoder
	Library  domain.SwitchLibrary
	Issuer   domain.ExternalIDIssuer
	Archive  blobcore.Store
}

// DepsFrom adapts opened backends.
func DepsFrom(b *core.Backends) Deps {
	d := Deps{Store: b.Store, Locker: b.Locker, Archive: b.Archive}
	// Typed nil pointers must not become non-nil interfaces.
	if b.Geocoder != nil {
		d.Geocoder = b.Geocoder
	}
	if b.Library != nil {
		d.Library = b.Library
	}
	if b.Issuer != nil {
		d.Issuer = b.Issuer
	}
	return d
}

// Service coordinates publication workflows.
type Service struct {
	store     domain.LayoutStore
	locker    lock.Locker
	geocoder  domain.Geocoder
	library   domain.SwitchLibrary
	issuer    domain.ExternalIDIssuer
	archive   blobcore.Store
	validator *validation.Validator
	cfg       Config
	obs       core.Observability
	newUUID   func() string
}

// NewService builds a service. A nil locker falls back to an in-process one.
func NewService(deps Deps, cfg Config, opts ...core.Option) *Service {
	if deps.Locker == nil {
		deps.Locker = lock.NewMemory()
	}
	if cfg.RemarkBatchSize <= 0 {
		cfg.RemarkBatchSize = config.DefaultRemarkBatchSize
	}
	if cfg.RemarkWorkers <= 0 {
		cfg.RemarkWorkers = config.DefaultRemarkWorkers
	}
	return &Service{
		store:     deps.Store,
		locker:    deps.Locker,
		geocoder:  deps.Geocoder,
		library:   deps.Library,
		issuer:    deps.Issuer,
		archive:   deps.Archive,
		validator: validation.NewDefaultValidator(),
		cfg:       cfg,
		obs:       core.NewObservability(opts...),
		newUUID:   uuid.NewString,
	}
}

// Validator exposes the rule engine so callers can register extra rules.
func (s *Service) Validator() *validation.Validator { return s.validator }

func (s *Service) run(ctx context.Context, operation string, branch domain.Branch, fn func(context.Context) (string, error)) error {
	return s.obs.Run(ctx, operation, branch.String(), fn)
}

// newContext builds a cold validation context; ValidatePublicationUnit warms it.
func (s *Service) newContext(view domain.LayoutView, set domain.ValidationVersions) *validation.Context {
	return validation.NewContext(view, set.Branch, set, s.geocoder, s.library)
}
