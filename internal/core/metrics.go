package core

import (
	"encoding/json"
	"expvar"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"layoutpub/internal/config"
)

// Metrics is the recorder selected by metrics.exporter together with the
// writer that dumps its totals to a file.
type Metrics struct {
	Recorder MetricsRecorder
	write    func(path string) error
}

// NewMetrics builds the configured exporter. Prometheus metrics go to a
// private registry; expvar totals are published under the namespace, or a
// generated name when that is taken.
func NewMetrics(cfg config.MetricsConfig) (*Metrics, error) {
	switch cfg.Exporter {
	case "", "prometheus":
		registry := prometheus.NewRegistry()
		return &Metrics{
			Recorder: NewPrometheusMetricsRecorder(registry, cfg.Namespace),
			write:    func(path string) error { return prometheus.WriteToTextfile(path, registry) },
		}, nil
	case "expvar":
		name := cfg.Namespace
		if expvar.Get(name) != nil {
			name = ""
		}
		rec := NewExpvarMetricsRecorder(name)
		return &Metrics{
			Recorder: rec,
			write: func(path string) error {
				data, err := json.MarshalIndent(rec.Snapshot(), "", "  ")
				if err != nil {
					return err
				}
				return os.WriteFile(path, append(data, '\n'), 0o644)
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", cfg.Exporter)
	}
}

// WriteFile writes the current totals to path in the exporter's format.
func (m *Metrics) WriteFile(path string) error {
	return m.write(path)
}
