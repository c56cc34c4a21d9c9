package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls     []metricsCall
	published map[string]int
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) AddPublished(kind string, n int) {
	if c.published == nil {
		c.published = make(map[string]int)
	}
	c.published[kind] += n
}

type captureLogger struct {
	warnings []string
}

func (l *captureLogger) Debug(string, ...any)      {}
func (l *captureLogger) Info(string, ...any)       {}
func (l *captureLogger) Warn(msg string, _ ...any) { l.warnings = append(l.warnings, msg) }
func (l *captureLogger) Error(string, ...any)      {}

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestRunRecordsSuccess(t *testing.T) {
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	obs := NewObservability(
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithClock(fixedClock(start, time.Second)),
	)

	err := obs.Run(context.Background(), "publish", "MAIN", func(context.Context) (string, error) {
		return "INT_7", nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audit.entries))
	}
	got := audit.entries[0]
	want := AuditEntry{Operation: "publish", Status: AuditStatusSuccess, Branch: "MAIN", EntityID: "INT_7", Duration: time.Second, At: start}
	if got != want {
		t.Fatalf("audit entry = %+v, want %+v", got, want)
	}
	if len(metrics.calls) != 1 || metrics.calls[0] != (metricsCall{op: "publish", success: true}) {
		t.Fatalf("unexpected metrics calls %+v", metrics.calls)
	}
}

func TestRunRecordsFailure(t *testing.T) {
	audit := &captureAuditRecorder{}
	logger := &captureLogger{}
	tracer := NewJSONTracer(nil)
	obs := NewObservability(WithAuditRecorder(audit), WithLogger(logger), WithTracer(tracer))
	boom := errors.New("boom")

	err := obs.Run(context.Background(), "revert", "DESIGN_INT_2", func(context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the operation error, got %v", err)
	}
	if audit.entries[0].Status != AuditStatusError || audit.entries[0].Error != "boom" {
		t.Fatalf("unexpected audit entry %+v", audit.entries[0])
	}
	if len(logger.warnings) != 1 {
		t.Fatalf("expected a warning, got %v", logger.warnings)
	}
	spans := tracer.Entries()
	if len(spans) != 1 || spans[0].Operation != "revert" || spans[0].Status != "error" || spans[0].Error != "boom" {
		t.Fatalf("unexpected spans %+v", spans)
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	obs := NewObservability(WithLogger(nil), WithMetricsRecorder(nil), WithTracer(nil), WithAuditRecorder(nil), WithClock(nil))
	if err := obs.Run(context.Background(), "noop", "", func(context.Context) (string, error) { return "", nil }); err != nil {
		t.Fatalf("run: %v", err)
	}
	obs.AddPublished("TRACK_NUMBER", 1)
}

func TestAddPublishedSkipsEmptyCounts(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	obs := NewObservability(WithMetricsRecorder(metrics))
	obs.AddPublished("LOCATION_TRACK", 2)
	obs.AddPublished("SWITCH", 0)
	if len(metrics.published) != 1 || metrics.published["LOCATION_TRACK"] != 2 {
		t.Fatalf("unexpected published counts %v", metrics.published)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "publish", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "publish", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)
	rec.AddPublished("SWITCH", 3)

	snap := rec.Snapshot()
	if snap.Results["publish"]["success"] != 1 || snap.Results["publish"]["error"] != 1 {
		t.Fatalf("unexpected results %v", snap.Results)
	}
	if snap.DurationsMS["publish"] != 3 {
		t.Fatalf("unexpected durations %v", snap.DurationsMS)
	}
	if len(snap.Results) != 1 {
		t.Fatalf("unnamed operations are ignored, got %v", snap.Results)
	}

	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatalf("expvar %q not published", rec.Name())
	}
	if !strings.Contains(v.String(), `"published_assets_total":{"SWITCH":3}`) {
		t.Fatalf("unexpected expvar payload %s", v.String())
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg, "layoutpub")
	obs := NewObservability(WithMetricsRecorder(rec))

	_ = obs.Run(context.Background(), "publish", "MAIN", func(context.Context) (string, error) { return "", nil })
	_ = obs.Run(context.Background(), "publish", "MAIN", func(context.Context) (string, error) { return "", errors.New("x") })
	obs.AddPublished("REFERENCE_LINE", 4)

	if got := promtest.ToFloat64(rec.operations.WithLabelValues("publish", "success")); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := promtest.ToFloat64(rec.operations.WithLabelValues("publish", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
	if got := promtest.ToFloat64(rec.published.WithLabelValues("REFERENCE_LINE")); got != 4 {
		t.Fatalf("published count = %v", got)
	}
	if n := promtest.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("expected one duration series, got %d", n)
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "process-remarks")
	span.End(nil)

	var entry JSONTraceEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode span: %v", err)
	}
	if entry.Operation != "process-remarks" || entry.Status != "success" || entry.Error != "" {
		t.Fatalf("unexpected span %+v", entry)
	}
}
