package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/httpmemo"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/paging"
)

const (
	hostName       = "gitlab"
	gitUsername    = "oauth2"
	defaultBaseURL = "https://gitlab.com"
	defaultBranch  = "main"
	httpTimeout    = time.Minute
)

// GitLabHostRepository implements repositories.HostRepository for GitLab.
type GitLabHostRepository struct {
	token   string
	baseURL string
	client  *gl.Client
}

// NewHostRepository builds a client for one run. Retries are disabled,
// a failed call is final.
func NewHostRepository(settings entities.HostSettings, cache *httpmemo.Cache) (repositories.HostRepository, error) {
	baseURL := strings.TrimSuffix(settings.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client, err := gl.NewClient(settings.Token,
		gl.WithBaseURL(baseURL),
		gl.WithHTTPClient(&http.Client{Transport: httpmemo.NewTransport(cache, nil), Timeout: httpTimeout}),
		gl.WithCustomRetryMax(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client for %q: %w", baseURL, err)
	}

	return &GitLabHostRepository{token: settings.Token, baseURL: baseURL, client: client}, nil
}

func (it *GitLabHostRepository) Name() string { return hostName }

func (it *GitLabHostRepository) Credentials() (string, string) { return gitUsername, it.token }

func (it *GitLabHostRepository) CloneURL(repo entities.Repository) string {
	if repo.CloneURL != "" {
		return repo.CloneURL
	}
	return fmt.Sprintf("%s/%s.git", it.baseURL, repo.FullName())
}

// withPage sets the page query parameters on a list request.
func withPage(page, perPage int) gl.RequestOptionFunc {
	return func(req *retryablehttp.Request) error {
		query := req.URL.Query()
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(perPage))
		req.URL.RawQuery = query.Encode()
		return nil
	}
}

// ListOrgRepositories lists the group projects, subgroups included, the token can push to.
func (it *GitLabHostRepository) ListOrgRepositories(
	ctx context.Context,
	organization string,
) ([]entities.Repository, error) {
	ctx = httpmemo.Memoize(ctx)
	projects, err := paging.Collect(ctx, paging.PageSize,
		func(ctx context.Context, page, perPage int) ([]*gl.Project, error) {
			//nolint:exhaustruct // Paging is applied through withPage
			listed, _, listErr := it.client.Groups.ListGroupProjects(organization,
				&gl.ListGroupProjectsOptions{
					IncludeSubGroups: gl.Ptr(true),
					MinAccessLevel:   gl.Ptr(gl.DeveloperPermissions),
				},
				gl.WithContext(ctx), withPage(page, perPage),
			)
			return listed, listErr
		},
		func(project *gl.Project) int64 { return project.ID },
	)
	if err != nil {
		return nil, &entities.DiscoveryError{Host: hostName, Organization: organization, Err: err}
	}

	repos := make([]entities.Repository, 0, len(projects))
	for _, project := range projects {
		repos = append(repos, toRepository(project, true))
	}
	return repos, nil
}

func (it *GitLabHostRepository) ResolveRepository(
	ctx context.Context,
	organization, name string,
) (entities.Repository, error) {
	project, _, err := it.client.Projects.GetProject(organization+"/"+name, nil,
		gl.WithContext(httpmemo.Memoize(ctx)))
	if err != nil {
		return entities.Repository{}, fmt.Errorf("failed to get project %s/%s: %w", organization, name, err)
	}
	return toRepository(project, false), nil
}

func (it *GitLabHostRepository) FetchManifest(
	ctx context.Context,
	repo entities.Repository,
) (*entities.Manifest, error) {
	raw, _, err := it.client.RepositoryFiles.GetRawFile(
		repo.FullName(), entities.ManifestFileName,
		&gl.GetRawFileOptions{Ref: gl.Ptr(repo.DefaultBranch)},
		gl.WithContext(httpmemo.Memoize(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", entities.ManifestFileName, err)
	}
	return entities.ParseManifest(raw)
}

// CompareRevisions returns the commits newest first, as GitLab lists them.
func (it *GitLabHostRepository) CompareRevisions(
	ctx context.Context,
	repo entities.Repository,
	base, head string,
) (*entities.Comparison, error) {
	//nolint:exhaustruct // Straight compare between the two refs
	compare, _, err := it.client.Repositories.Compare(repo.FullName(),
		&gl.CompareOptions{From: gl.Ptr(base), To: gl.Ptr(head)},
		gl.WithContext(httpmemo.Memoize(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s...%s: %w", base, head, err)
	}

	webURL := it.webURL(repo)
	commits := make([]entities.Commit, 0, len(compare.Commits))
	for _, commit := range compare.Commits {
		commitURL := commit.WebURL
		if commitURL == "" {
			commitURL = webURL + "/-/commit/" + commit.ID
		}
		commits = append(commits, entities.Commit{
			ID:         commit.ID,
			AuthorName: commit.AuthorName,
			Message:    commit.Message,
			WebURL:     commitURL,
		})
	}

	return &entities.Comparison{
		BaseRevision: base,
		HeadRevision: head,
		WebURL:       fmt.Sprintf("%s/-/compare/%s...%s", webURL, base, head),
		Commits:      commits,
	}, nil
}

func (it *GitLabHostRepository) ListOpenReviewRequests(
	ctx context.Context,
	repo entities.Repository,
	sourceBranch, targetBranch string,
) ([]entities.ReviewRequest, error) {
	mergeRequests, err := paging.Collect(ctx, paging.PageSize,
		func(ctx context.Context, page, perPage int) ([]*gl.BasicMergeRequest, error) {
			//nolint:exhaustruct // Filter by state and branches only
			listed, _, listErr := it.client.MergeRequests.ListProjectMergeRequests(repo.FullName(),
				&gl.ListProjectMergeRequestsOptions{
					State:        gl.Ptr("opened"),
					SourceBranch: gl.Ptr(sourceBranch),
					TargetBranch: gl.Ptr(targetBranch),
				},
				gl.WithContext(ctx), withPage(page, perPage),
			)
			return listed, listErr
		},
		func(mr *gl.BasicMergeRequest) int64 { return int64(mr.IID) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list merge requests: %w", err)
	}

	requests := make([]entities.ReviewRequest, 0, len(mergeRequests))
	for _, mr := range mergeRequests {
		requests = append(requests, toReviewRequest(mr))
	}
	return requests, nil
}

func (it *GitLabHostRepository) GetReviewRequest(
	ctx context.Context,
	repo entities.Repository,
	id int64,
) (*entities.ReviewRequest, error) {
	mr, _, err := it.client.MergeRequests.GetMergeRequest(repo.FullName(), id, nil, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get merge request !%d: %w", id, err)
	}
	request := toReviewRequest(&mr.BasicMergeRequest)
	return &request, nil
}

func (it *GitLabHostRepository) CreateReviewRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.ReviewRequestInput,
) (*entities.ReviewRequest, error) {
	//nolint:exhaustruct // Minimal CreateMergeRequestOptions with required fields only
	mr, _, err := it.client.MergeRequests.CreateMergeRequest(repo.FullName(),
		&gl.CreateMergeRequestOptions{
			Title:              gl.Ptr(input.Title),
			Description:        gl.Ptr(input.Description),
			SourceBranch:       gl.Ptr(input.SourceBranch),
			TargetBranch:       gl.Ptr(input.TargetBranch),
			RemoveSourceBranch: gl.Ptr(true),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge request: %w", err)
	}
	request := toReviewRequest(&mr.BasicMergeRequest)
	return &request, nil
}

func (it *GitLabHostRepository) UpdateReviewRequest(
	ctx context.Context,
	repo entities.Repository,
	id int64,
	input entities.ReviewRequestInput,
) (*entities.ReviewRequest, error) {
	//nolint:exhaustruct // Only the edited fields are sent
	mr, _, err := it.client.MergeRequests.UpdateMergeRequest(repo.FullName(), id,
		&gl.UpdateMergeRequestOptions{
			Title:       gl.Ptr(input.Title),
			Description: gl.Ptr(input.Description),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update merge request !%d: %w", id, err)
	}
	request := toReviewRequest(&mr.BasicMergeRequest)
	return &request, nil
}

// ListPipelines returns the latest pipeline of the revision only: like the
// "pipelines must succeed" merge check, a newer pipeline supersedes older ones.
func (it *GitLabHostRepository) ListPipelines(
	ctx context.Context,
	repo entities.Repository,
	revision string,
) ([]entities.Pipeline, error) {
	//nolint:exhaustruct // Filter by revision, newest first
	listed, _, err := it.client.Pipelines.ListProjectPipelines(repo.FullName(),
		&gl.ListProjectPipelinesOptions{SHA: gl.Ptr(revision), OrderBy: gl.Ptr("id"), Sort: gl.Ptr("desc")},
		gl.WithContext(ctx), withPage(1, paging.PageSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	pipelines := make([]entities.Pipeline, 0, 1)
	for _, info := range listed[:min(len(listed), 1)] {
		pipelines = append(pipelines, entities.Pipeline{
			ID:       info.ID,
			Revision: info.SHA,
			Status:   pipelineStatus(info.Status),
			WebURL:   info.WebURL,
		})
	}
	return pipelines, nil
}

func (it *GitLabHostRepository) GetPipeline(
	ctx context.Context,
	repo entities.Repository,
	id int64,
) (*entities.Pipeline, error) {
	pipeline, _, err := it.client.Pipelines.GetPipeline(repo.FullName(), id, gl.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline %d: %w", id, err)
	}
	return &entities.Pipeline{
		ID:       pipeline.ID,
		Revision: pipeline.SHA,
		Status:   pipelineStatus(pipeline.Status),
		WebURL:   pipeline.WebURL,
	}, nil
}

// MergeReviewRequest accepts the merge request only while its head is request.HeadRevision.
func (it *GitLabHostRepository) MergeReviewRequest(
	ctx context.Context,
	repo entities.Repository,
	request entities.ReviewRequest,
	deleteSourceBranch bool,
) error {
	//nolint:exhaustruct // Merge commit message defaults to the project template
	_, _, err := it.client.MergeRequests.AcceptMergeRequest(repo.FullName(), request.ID,
		&gl.AcceptMergeRequestOptions{
			SHA:                      gl.Ptr(request.HeadRevision),
			ShouldRemoveSourceBranch: gl.Ptr(deleteSourceBranch),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to accept merge request !%d: %w", request.ID, err)
	}
	return nil
}

func (it *GitLabHostRepository) webURL(repo entities.Repository) string {
	if repo.WebURL != "" {
		return strings.TrimSuffix(repo.WebURL, "/")
	}
	return it.baseURL + "/" + repo.FullName()
}

func toRepository(project *gl.Project, pushPermission bool) entities.Repository {
	branch := project.DefaultBranch
	if branch == "" {
		branch = defaultBranch
	}
	organization := strings.TrimSuffix(project.PathWithNamespace, "/"+project.Path)
	return entities.Repository{
		ID:             project.ID,
		Host:           hostName,
		Organization:   organization,
		Name:           project.Path,
		PushPermission: pushPermission,
		Archived:       project.Archived,
		DefaultBranch:  branch,
		CloneURL:       project.HTTPURLToRepo,
		WebURL:         project.WebURL,
	}
}

func toReviewRequest(mr *gl.BasicMergeRequest) entities.ReviewRequest {
	state := entities.ReviewRequestClosed
	switch mr.State {
	case "opened", "locked":
		state = entities.ReviewRequestOpen
	case "merged":
		state = entities.ReviewRequestMerged
	}
	return entities.ReviewRequest{
		ID:           int64(mr.IID),
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		State:        state,
		HeadRevision: mr.SHA,
		WebURL:       mr.WebURL,
	}
}

func pipelineStatus(status string) entities.PipelineStatus {
	switch status {
	case "running":
		return entities.PipelineRunning
	case "success":
		return entities.PipelineSuccess
	case "failed":
		return entities.PipelineFailure
	case "canceled", "skipped":
		return entities.PipelineCanceled
	default:
		return entities.PipelinePending
	}
}
