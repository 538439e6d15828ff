package repositories

import (
	"context"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

// HostRepository abstracts a Git hosting platform (GitHub, GitLab).
// Read calls that list or fetch snapshots are memoized for the run,
// mutating calls and polling reads always reach the host.
type HostRepository interface {
	// Name returns the host identifier (e.g. "github", "gitlab").
	Name() string

	// Credentials returns the username and token git uses over HTTPS.
	Credentials() (string, string)

	// CloneURL returns the HTTPS clone URL of the repository.
	CloneURL(repo entities.Repository) string

	// ListOrgRepositories pages through every repository of the organization.
	// Any HTTP failure is returned as an *entities.DiscoveryError.
	ListOrgRepositories(ctx context.Context, organization string) ([]entities.Repository, error)

	// ResolveRepository fetches a single repository by organization and name.
	ResolveRepository(ctx context.Context, organization, name string) (entities.Repository, error)

	// FetchManifest reads the package manifest at the default branch.
	FetchManifest(ctx context.Context, repo entities.Repository) (*entities.Manifest, error)

	// CompareRevisions lists the commits between two revisions, newest first.
	CompareRevisions(ctx context.Context, repo entities.Repository, base, head string) (*entities.Comparison, error)

	ListOpenReviewRequests(
		ctx context.Context, repo entities.Repository, sourceBranch, targetBranch string,
	) ([]entities.ReviewRequest, error)
	GetReviewRequest(ctx context.Context, repo entities.Repository, id int64) (*entities.ReviewRequest, error)
	CreateReviewRequest(
		ctx context.Context, repo entities.Repository, input entities.ReviewRequestInput,
	) (*entities.ReviewRequest, error)
	UpdateReviewRequest(
		ctx context.Context, repo entities.Repository, id int64, input entities.ReviewRequestInput,
	) (*entities.ReviewRequest, error)

	// ListPipelines returns the pipelines gating the revision, most recent first.
	// A merge needs every one of them to succeed.
	ListPipelines(ctx context.Context, repo entities.Repository, revision string) ([]entities.Pipeline, error)
	GetPipeline(ctx context.Context, repo entities.Repository, id int64) (*entities.Pipeline, error)

	// MergeReviewRequest merges the request only if its head still equals request.HeadRevision.
	MergeReviewRequest(
		ctx context.Context, repo entities.Repository, request entities.ReviewRequest, deleteSourceBranch bool,
	) error
}
