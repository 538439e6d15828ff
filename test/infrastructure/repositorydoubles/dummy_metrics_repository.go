//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"sync"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
)

// DummyMetricsRepository counts recorded events in memory.
type DummyMetricsRepository struct {
	mu sync.Mutex

	Outcomes          map[string]int // "host/outcome"
	PipelinePolls     int
	DiscoveryFailures int
	FlushedPath       string
	FlushedReport     *entities.RunReport
}

var _ repositories.MetricsRepository = (*DummyMetricsRepository)(nil)

func (d *DummyMetricsRepository) RecordOutcome(host string, outcome entities.Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Outcomes == nil {
		d.Outcomes = make(map[string]int)
	}
	d.Outcomes[host+"/"+string(outcome)]++
}

func (d *DummyMetricsRepository) RecordPipelinePoll(string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PipelinePolls++
}

func (d *DummyMetricsRepository) RecordDiscoveryFailure(string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DiscoveryFailures++
}

func (d *DummyMetricsRepository) Flush(path string, report *entities.RunReport) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FlushedPath = path
	d.FlushedReport = report
	return nil
}
