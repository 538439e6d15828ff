package repositories

import "github.com/rios0rios0/uptocode/internal/domain/entities"

// MetricsRepository collects the counters of one run.
type MetricsRepository interface {
	RecordOutcome(host string, outcome entities.Outcome)
	RecordPipelinePoll(host string)
	RecordDiscoveryFailure(host string)

	// Flush writes the collected metrics to the file in Prometheus text format.
	Flush(path string, report *entities.RunReport) error
}
