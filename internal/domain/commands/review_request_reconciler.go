package commands

import (
	"context"
	"fmt"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	"github.com/rios0rios0/uptocode/internal/logging"
)

// ReviewRequestReconciler keeps exactly one open review request per working branch.
type ReviewRequestReconciler struct{}

// NewReviewRequestReconciler creates a reconciler.
func NewReviewRequestReconciler() *ReviewRequestReconciler {
	return &ReviewRequestReconciler{}
}

// Reconcile creates the review request of the branch, or updates the only open one in place.
// Several open requests for the branch are left untouched and reported as a conflict.
func (it *ReviewRequestReconciler) Reconcile(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	branch, title, description string,
) (*entities.ReviewRequest, error) {
	log := logging.FromContext(ctx)
	input := entities.ReviewRequestInput{
		Title:        title,
		Description:  description,
		SourceBranch: branch,
		TargetBranch: repo.DefaultBranch,
	}

	existing, err := host.ListOpenReviewRequests(ctx, repo, branch, repo.DefaultBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to list open review requests: %w", err)
	}

	switch len(existing) {
	case 0:
		created, createErr := host.CreateReviewRequest(ctx, repo, input)
		if createErr != nil {
			return nil, fmt.Errorf("failed to create review request: %w", createErr)
		}
		log.Infof("[reconciler] created review request %d: %s", created.ID, created.WebURL)
		return created, nil
	case 1:
		return it.update(ctx, host, repo, existing[0].ID, input)
	default:
		ids := make([]int64, 0, len(existing))
		for _, request := range existing {
			ids = append(ids, request.ID)
		}
		return nil, &entities.ReviewConflictError{SourceBranch: branch, IDs: ids}
	}
}

func (it *ReviewRequestReconciler) update(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	id int64,
	input entities.ReviewRequestInput,
) (*entities.ReviewRequest, error) {
	if _, err := host.UpdateReviewRequest(ctx, repo, id, input); err != nil {
		return nil, fmt.Errorf("failed to update review request %d: %w", id, err)
	}

	// some hosts answer 200 and silently keep the old body
	persisted, err := host.GetReviewRequest(ctx, repo, id)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read review request %d: %w", id, err)
	}
	if ok, field := persisted.Matches(input); !ok {
		return nil, &entities.ReviewUpdateDroppedError{ID: id, Field: field}
	}

	logging.FromContext(ctx).Infof("[reconciler] updated review request %d: %s", id, persisted.WebURL)
	return persisted, nil
}
