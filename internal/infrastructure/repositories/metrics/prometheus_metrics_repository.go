package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
)

const metricNamespace = "uptocode"

const (
	repositoriesMetricName      = "repositories_total"
	pipelinePollsMetricName     = "pipeline_polls_total"
	discoveryFailuresMetricName = "discovery_failures_total"
	runDurationMetricName       = "run_duration_seconds"
)

const (
	hostLabel    = "host"
	outcomeLabel = "outcome"
)

// PrometheusMetricsRepository keeps the counters of one run in its own registry.
type PrometheusMetricsRepository struct {
	registry          *prometheus.Registry
	repositories      *prometheus.CounterVec
	pipelinePolls     *prometheus.CounterVec
	discoveryFailures *prometheus.CounterVec
	runDuration       prometheus.Gauge
}

// NewMetricsRepository creates a collector with a fresh registry.
func NewMetricsRepository() repositories.MetricsRepository {
	registry := prometheus.NewRegistry()
	it := &PrometheusMetricsRepository{
		registry: registry,
		repositories: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      repositoriesMetricName,
				Help:      "count of attempted repositories by final outcome",
			},
			[]string{hostLabel, outcomeLabel},
		),
		pipelinePolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      pipelinePollsMetricName,
				Help:      "count of pipeline status requests issued by the merge gate",
			},
			[]string{hostLabel},
		),
		discoveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      discoveryFailuresMetricName,
				Help:      "count of host branches aborted while listing repositories",
			},
			[]string{hostLabel},
		),
		runDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      runDurationMetricName,
				Help:      "wall time of the run",
			},
		),
	}
	registry.MustRegister(it.repositories, it.pipelinePolls, it.discoveryFailures, it.runDuration)
	return it
}

func (it *PrometheusMetricsRepository) RecordOutcome(host string, outcome entities.Outcome) {
	it.repositories.WithLabelValues(host, string(outcome)).Inc()
}

func (it *PrometheusMetricsRepository) RecordPipelinePoll(host string) {
	it.pipelinePolls.WithLabelValues(host).Inc()
}

func (it *PrometheusMetricsRepository) RecordDiscoveryFailure(host string) {
	it.discoveryFailures.WithLabelValues(host).Inc()
}

// Gatherer exposes the run registry.
func (it *PrometheusMetricsRepository) Gatherer() prometheus.Gatherer {
	return it.registry
}

// Flush writes the registry in the text exposition format, for node_exporter's textfile collector.
func (it *PrometheusMetricsRepository) Flush(path string, report *entities.RunReport) error {
	if report != nil {
		it.runDuration.Set(report.Duration.Seconds())
	}
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, it.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %q: %w", path, err)
	}
	return nil
}
