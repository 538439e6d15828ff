package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	"github.com/rios0rios0/uptocode/internal/logging"
)

// MergeGate merges a review request once the pipeline of its head revision succeeded.
type MergeGate struct {
	pollInterval time.Duration
	timeout      time.Duration
	metrics      repositories.MetricsRepository
}

// NewMergeGate creates a gate polling every pollInterval for at most timeout.
func NewMergeGate(pollInterval, timeout time.Duration, metrics repositories.MetricsRepository) *MergeGate {
	return &MergeGate{pollInterval: pollInterval, timeout: timeout, metrics: metrics}
}

// AttemptMerge walks the request through discovered, pipeline-found, pipeline-terminal,
// revision-confirmed and merged. Unsafe requests stay in discovered and are left open.
// Every failure before the merge call is a *entities.PipelineError.
func (it *MergeGate) AttemptMerge(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	request entities.ReviewRequest,
	safe bool,
) (entities.MergeState, error) {
	log := logging.FromContext(ctx)
	if !safe {
		log.Infof("[merge-gate] review request %d needs a manual review", request.ID)
		return entities.MergeDiscovered, nil
	}

	pipelines, err := it.findPipelines(ctx, host, repo, request.HeadRevision)
	if err != nil {
		return entities.MergeAborted, err
	}
	log.Infof("[merge-gate] waiting for %d pipeline(s) on %s", len(pipelines), request.HeadRevision)

	status, err := it.awaitTerminal(ctx, host, repo, request.HeadRevision, pipelines)
	if err != nil {
		return entities.MergeAborted, err
	}
	if status != entities.PipelineSuccess {
		return entities.MergeAborted, &entities.PipelineError{
			Reason: entities.PipelineUnsuccessful, Revision: request.HeadRevision, Status: status,
		}
	}

	current, err := host.GetReviewRequest(ctx, repo, request.ID)
	if err != nil {
		return entities.MergeAborted, fmt.Errorf("failed to re-read review request %d: %w", request.ID, err)
	}
	if current.State != entities.ReviewRequestOpen {
		return entities.MergeAborted, &entities.PipelineError{
			Reason: entities.PipelineRequestClosed, Revision: request.HeadRevision, Status: status,
		}
	}
	if current.HeadRevision != request.HeadRevision {
		return entities.MergeAborted, &entities.PipelineError{
			Reason:   entities.PipelineRevisionDrift,
			Revision: request.HeadRevision,
			Status:   status,
			Err:      fmt.Errorf("head moved to %s", current.HeadRevision),
		}
	}

	if err = host.MergeReviewRequest(ctx, repo, *current, true); err != nil {
		return entities.MergeAborted, fmt.Errorf("failed to merge review request %d: %w", request.ID, err)
	}
	log.Infof("[merge-gate] merged review request %d", request.ID)
	return entities.MergeMerged, nil
}

func (it *MergeGate) findPipelines(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	revision string,
) ([]entities.Pipeline, error) {
	listed, err := host.ListPipelines(ctx, repo, revision)
	if err != nil {
		return nil, &entities.PipelineError{Reason: entities.PipelineNotFound, Revision: revision, Err: err}
	}
	var pipelines []entities.Pipeline
	for _, pipeline := range listed {
		if pipeline.Revision == revision {
			pipelines = append(pipelines, pipeline)
		}
	}
	if len(pipelines) == 0 {
		return nil, &entities.PipelineError{Reason: entities.PipelineNotFound, Revision: revision}
	}
	return pipelines, nil
}

// awaitTerminal polls every pipeline on a constant ticker until all of them stopped
// running, one of them did not succeed, or the timeout expires. The first poll
// happens right away. The returned status is success only when every pipeline succeeded.
func (it *MergeGate) awaitTerminal(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	revision string,
	pipelines []entities.Pipeline,
) (entities.PipelineStatus, error) {
	pollCtx, cancel := context.WithTimeout(ctx, it.timeout)
	defer cancel()

	// pollCtx is watched directly so polling lasts the whole timeout
	ticker := backoff.NewTicker(backoff.NewConstantBackOff(it.pollInterval))
	defer ticker.Stop()

	pending := make(map[int64]entities.PipelineStatus, len(pipelines))
	for _, pipeline := range pipelines {
		pending[pipeline.ID] = pipeline.Status
	}
	for {
		select {
		case <-pollCtx.Done():
			status := pendingStatus(pipelines, pending)
			return status, &entities.PipelineError{
				Reason:   entities.PipelineTimedOut,
				Revision: revision,
				Status:   status,
				Err:      pollCtx.Err(),
			}
		case <-ticker.C:
		}

		for _, pipeline := range pipelines {
			if _, waiting := pending[pipeline.ID]; !waiting {
				continue
			}
			it.metrics.RecordPipelinePoll(host.Name())
			current, err := host.GetPipeline(pollCtx, repo, pipeline.ID)
			if err != nil {
				if pollCtx.Err() != nil {
					break
				}
				return pending[pipeline.ID], fmt.Errorf("failed to poll pipeline %d: %w", pipeline.ID, err)
			}
			logging.FromContext(ctx).Debugf("[merge-gate] pipeline %d is %s", pipeline.ID, current.Status)
			switch {
			case !current.Status.IsTerminal():
				pending[pipeline.ID] = current.Status
			case current.Status != entities.PipelineSuccess:
				return current.Status, nil
			default:
				delete(pending, pipeline.ID)
			}
		}
		if len(pending) == 0 {
			return entities.PipelineSuccess, nil
		}
	}
}

// pendingStatus reports the last known status of the first pipeline still running.
func pendingStatus(pipelines []entities.Pipeline, pending map[int64]entities.PipelineStatus) entities.PipelineStatus {
	for _, pipeline := range pipelines {
		if status, waiting := pending[pipeline.ID]; waiting {
			return status
		}
	}
	return entities.PipelineSuccess
}
