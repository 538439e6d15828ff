//go:build unit

package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/metrics"
)

func TestPrometheusMetricsRepository(t *testing.T) {
	t.Parallel()

	t.Run("should count outcomes per host and write the text file", func(t *testing.T) {
		t.Parallel()

		// given
		repository := metrics.NewMetricsRepository()
		path := filepath.Join(t.TempDir(), "uptocode.prom")

		// when
		repository.RecordOutcome("github", entities.OutcomeMerged)
		repository.RecordOutcome("github", entities.OutcomeMerged)
		repository.RecordOutcome("gitlab", entities.OutcomeFailed)
		repository.RecordPipelinePoll("github")
		err := repository.Flush(path, &entities.RunReport{Duration: 2 * time.Second})

		// then
		require.NoError(t, err)
		content, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Contains(t, string(content), `uptocode_repositories_total{host="github",outcome="merged"} 2`)
		assert.Contains(t, string(content), `uptocode_repositories_total{host="gitlab",outcome="failed"} 1`)
		assert.Contains(t, string(content), `uptocode_pipeline_polls_total{host="github"} 1`)
		assert.Contains(t, string(content), "uptocode_run_duration_seconds 2")
	})

	t.Run("should keep separate registries per run", func(t *testing.T) {
		t.Parallel()

		// given
		first := metrics.NewMetricsRepository().(*metrics.PrometheusMetricsRepository)
		second := metrics.NewMetricsRepository().(*metrics.PrometheusMetricsRepository)

		// when
		first.RecordDiscoveryFailure("gitlab")

		// then
		count, err := testutil.GatherAndCount(first.Gatherer(), "uptocode_discovery_failures_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		count, err = testutil.GatherAndCount(second.Gatherer(), "uptocode_discovery_failures_total")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
