package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"layoutpub/internal/config"
)

func TestNewMetricsPrometheus(t *testing.T) {
	m, err := NewMetrics(config.MetricsConfig{Exporter: "prometheus", Namespace: "lp_prom_test"})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	if _, ok := m.Recorder.(*PrometheusMetricsRecorder); !ok {
		t.Fatalf("recorder = %T", m.Recorder)
	}
	m.Recorder.Observe(context.Background(), "publish", true, 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "lp_prom_test_operations_total") {
		t.Fatalf("missing operations counter:\n%s", data)
	}
}

func TestNewMetricsExpvar(t *testing.T) {
	cfg := config.MetricsConfig{Exporter: "expvar", Namespace: "lp_expvar_test"}
	m, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	rec, ok := m.Recorder.(*ExpvarMetricsRecorder)
	if !ok {
		t.Fatalf("recorder = %T", m.Recorder)
	}
	if rec.Name() != "lp_expvar_test" {
		t.Fatalf("name = %q", rec.Name())
	}
	rec.Observe(context.Background(), "publish", true, time.Millisecond)
	rec.AddPublished("TRACK_NUMBER", 2)

	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"TRACK_NUMBER": 2`) {
		t.Fatalf("missing published count:\n%s", data)
	}

	// The namespace is taken now; a second exporter gets a generated name.
	again, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("NewMetrics again: %v", err)
	}
	if name := again.Recorder.(*ExpvarMetricsRecorder).Name(); name == "lp_expvar_test" {
		t.Fatalf("expected a generated name, got %q", name)
	}
}

func TestNewMetricsRejectsUnknownExporter(t *testing.T) {
	if _, err := NewMetrics(config.MetricsConfig{Exporter: "statsd"}); err == nil {
		t.Fatal("expected error")
	}
}
