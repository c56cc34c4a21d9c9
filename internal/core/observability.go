// Package core holds the composition helpers shared by the publication
// service and the CLI: observability contracts and their implementations, and
// the selection of storage, lock, archive and collaborator backends from
// configuration.
package core

import (
	"context"
	"time"
)

// Logger is the structured logger used by services. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder observes the outcome and duration of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// PublishedAssetsRecorder is implemented by recorders that also count
// published assets per kind.
type PublishedAssetsRecorder interface {
	AddPublished(kind string, n int)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan is ended once with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

// AuditStatus is the outcome recorded in an audit entry.
type AuditStatus string

// Audit statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records one service operation.
type AuditEntry struct {
	Operation string
	Status    AuditStatus
	Branch    string
	EntityID  string
	Error     string
	Duration  time.Duration
	At        time.Time
}

// AuditRecorder receives an entry per service operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

// Observability bundles the hooks a service reports through. The zero value
// is not usable; build it with NewObservability.
type Observability struct {
	Logger  Logger
	Metrics MetricsRecorder
	Tracer  Tracer
	Audit   AuditRecorder
	Now     func() time.Time
}

// Option configures Observability.
type Option func(*Observability)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(l Logger) Option {
	return func(o *Observability) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *Observability) {
		if m != nil {
			o.Metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(o *Observability) {
		if t != nil {
			o.Tracer = t
		}
	}
}

// WithAuditRecorder sets the audit recorder.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(o *Observability) {
		if a != nil {
			o.Audit = a
		}
	}
}

// WithClock overrides the clock used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Observability) {
		if now != nil {
			o.Now = now
		}
	}
}

// NewObservability applies opts over no-op defaults.
func NewObservability(opts ...Option) Observability {
	o := Observability{
		Logger:  noopLogger{},
		Metrics: noopMetrics{},
		Tracer:  noopTracer{},
		Audit:   noopAudit{},
		Now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Run traces, times, audits and logs fn as operation.
func (o Observability) Run(ctx context.Context, operation, branch string, fn func(context.Context) (entityID string, err error)) error {
	ctx, span := o.Tracer.Start(ctx, operation)
	started := o.Now()
	entityID, err := fn(ctx)
	duration := o.Now().Sub(started)
	span.End(err)
	o.Metrics.Observe(ctx, operation, err == nil, duration)

	entry := AuditEntry{
		Operation: operation,
		Status:    AuditStatusSuccess,
		Branch:    branch,
		EntityID:  entityID,
		Duration:  duration,
		At:        started,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		o.Logger.Warn("operation failed", "operation", operation, "branch", branch, "error", err)
	} else {
		o.Logger.Debug("operation done", "operation", operation, "branch", branch, "duration", duration)
	}
	o.Audit.Record(ctx, entry)
	return err
}

// AddPublished forwards published counts when the metrics recorder supports it.
func (o Observability) AddPublished(kind string, n int) {
	if r, ok := o.Metrics.(PublishedAssetsRecorder); ok && n > 0 {
		r.AddPublished(kind, n)
	}
}
