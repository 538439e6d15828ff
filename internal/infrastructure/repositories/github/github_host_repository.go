package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/httpmemo"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/paging"
	"github.com/rios0rios0/uptocode/internal/logging"
)

const (
	hostName      = "github"
	gitUsername   = "x-access-token"
	defaultBranch = "main"
	httpTimeout   = time.Minute
)

var (
	errManifestIsDirectory = errors.New("manifest path is a directory")
	errNotMerged           = errors.New("pull request was not merged")
)

// GitHubHostRepository implements repositories.HostRepository for GitHub.
type GitHubHostRepository struct {
	token  string
	client *gh.Client
}

// NewHostRepository builds a client for one run. GET requests marked with
// httpmemo.Memoize are answered from the run cache.
func NewHostRepository(settings entities.HostSettings, cache *httpmemo.Cache) (repositories.HostRepository, error) {
	//nolint:exhaustruct // Expiry and refresh do not apply to static tokens
	transport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: settings.Token}),
		Base:   httpmemo.NewTransport(cache, nil),
	}
	client := gh.NewClient(&http.Client{Transport: transport, Timeout: httpTimeout})

	if settings.BaseURL != "" {
		enterprise, err := client.WithEnterpriseURLs(settings.BaseURL, settings.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", settings.BaseURL, err)
		}
		client = enterprise
	}

	return &GitHubHostRepository{token: settings.Token, client: client}, nil
}

func (it *GitHubHostRepository) Name() string { return hostName }

func (it *GitHubHostRepository) Credentials() (string, string) { return gitUsername, it.token }

func (it *GitHubHostRepository) CloneURL(repo entities.Repository) string {
	if repo.CloneURL != "" {
		return repo.CloneURL
	}
	return fmt.Sprintf("https://github.com/%s.git", repo.FullName())
}

// ListOrgRepositories lists every repository of the organization.
func (it *GitHubHostRepository) ListOrgRepositories(
	ctx context.Context,
	organization string,
) ([]entities.Repository, error) {
	ctx = httpmemo.Memoize(ctx)
	listed, err := paging.Collect(ctx, paging.PageSize,
		func(ctx context.Context, page, perPage int) ([]*gh.Repository, error) {
			repos, _, listErr := it.client.Repositories.ListByOrg(ctx, organization, &gh.RepositoryListByOrgOptions{
				Sort:        "full_name",
				ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
			})
			return repos, listErr
		},
		(*gh.Repository).GetID,
	)
	if err != nil {
		return nil, &entities.DiscoveryError{Host: hostName, Organization: organization, Err: err}
	}

	repos := make([]entities.Repository, 0, len(listed))
	for _, repo := range listed {
		repos = append(repos, toRepository(organization, repo))
	}
	return repos, nil
}

func (it *GitHubHostRepository) ResolveRepository(
	ctx context.Context,
	organization, name string,
) (entities.Repository, error) {
	repo, _, err := it.client.Repositories.Get(httpmemo.Memoize(ctx), organization, name)
	if err != nil {
		return entities.Repository{}, fmt.Errorf("failed to get repository %s/%s: %w", organization, name, err)
	}
	return toRepository(organization, repo), nil
}

func (it *GitHubHostRepository) FetchManifest(
	ctx context.Context,
	repo entities.Repository,
) (*entities.Manifest, error) {
	file, _, _, err := it.client.Repositories.GetContents(
		httpmemo.Memoize(ctx), repo.Organization, repo.Name, entities.ManifestFileName,
		&gh.RepositoryContentGetOptions{Ref: repo.DefaultBranch},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", entities.ManifestFileName, err)
	}
	if file == nil {
		return nil, errManifestIsDirectory
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", entities.ManifestFileName, err)
	}
	return entities.ParseManifest([]byte(content))
}

// CompareRevisions returns the commits newest first; GitHub lists them oldest first.
func (it *GitHubHostRepository) CompareRevisions(
	ctx context.Context,
	repo entities.Repository,
	base, head string,
) (*entities.Comparison, error) {
	var webURL string
	listed, err := paging.Collect(httpmemo.Memoize(ctx), paging.PageSize,
		func(ctx context.Context, page, perPage int) ([]*gh.RepositoryCommit, error) {
			comparison, _, compareErr := it.client.Repositories.CompareCommits(
				ctx, repo.Organization, repo.Name, base, head,
				&gh.ListOptions{Page: page, PerPage: perPage},
			)
			if compareErr != nil {
				return nil, compareErr
			}
			if webURL == "" {
				webURL = comparison.GetHTMLURL()
			}
			return comparison.Commits, nil
		},
		(*gh.RepositoryCommit).GetSHA,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s...%s: %w", base, head, err)
	}

	commits := make([]entities.Commit, 0, len(listed))
	for i := len(listed) - 1; i >= 0; i-- {
		commit := listed[i]
		author := commit.GetCommit().GetAuthor().GetName()
		if author == "" {
			author = commit.GetAuthor().GetLogin()
		}
		commits = append(commits, entities.Commit{
			ID:         commit.GetSHA(),
			AuthorName: author,
			Message:    commit.GetCommit().GetMessage(),
			WebURL:     commit.GetHTMLURL(),
		})
	}

	return &entities.Comparison{
		BaseRevision: base,
		HeadRevision: head,
		WebURL:       webURL,
		Commits:      commits,
	}, nil
}

func (it *GitHubHostRepository) ListOpenReviewRequests(
	ctx context.Context,
	repo entities.Repository,
	sourceBranch, targetBranch string,
) ([]entities.ReviewRequest, error) {
	pulls, err := paging.Collect(ctx, paging.PageSize,
		func(ctx context.Context, page, perPage int) ([]*gh.PullRequest, error) {
			listed, _, listErr := it.client.PullRequests.List(ctx, repo.Organization, repo.Name,
				&gh.PullRequestListOptions{
					State:       "open",
					Head:        repo.Organization + ":" + sourceBranch,
					Base:        targetBranch,
					ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
				})
			return listed, listErr
		},
		(*gh.PullRequest).GetNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	requests := make([]entities.ReviewRequest, 0, len(pulls))
	for _, pull := range pulls {
		if pull.GetHead().GetRef() != sourceBranch || pull.GetBase().GetRef() != targetBranch {
			continue
		}
		requests = append(requests, toReviewRequest(pull))
	}
	return requests, nil
}

func (it *GitHubHostRepository) GetReviewRequest(
	ctx context.Context,
	repo entities.Repository,
	id int64,
) (*entities.ReviewRequest, error) {
	pull, _, err := it.client.PullRequests.Get(ctx, repo.Organization, repo.Name, int(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request #%d: %w", id, err)
	}
	request := toReviewRequest(pull)
	return &request, nil
}

func (it *GitHubHostRepository) CreateReviewRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.ReviewRequestInput,
) (*entities.ReviewRequest, error) {
	//nolint:exhaustruct // Minimal NewPullRequest with required fields only
	pull, _, err := it.client.PullRequests.Create(ctx, repo.Organization, repo.Name, &gh.NewPullRequest{
		Title: gh.String(input.Title),
		Body:  gh.String(input.Description),
		Head:  gh.String(input.SourceBranch),
		Base:  gh.String(input.TargetBranch),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}
	request := toReviewRequest(pull)
	return &request, nil
}

func (it *GitHubHostRepository) UpdateReviewRequest(
	ctx context.Context,
	repo entities.Repository,
	id int64,
	input entities.ReviewRequestInput,
) (*entities.ReviewRequest, error) {
	//nolint:exhaustruct // Only the edited fields are sent
	pull, _, err := it.client.PullRequests.Edit(ctx, repo.Organization, repo.Name, int(id), &gh.PullRequest{
		Title: gh.String(input.Title),
		Body:  gh.String(input.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update pull request #%d: %w", id, err)
	}
	request := toReviewRequest(pull)
	return &request, nil
}

// ListPipelines returns the latest Actions run of every workflow triggered for the
// revision, most recent first. Older attempts of the same workflow are superseded.
func (it *GitHubHostRepository) ListPipelines(
	ctx context.Context,
	repo entities.Repository,
	revision string,
) ([]entities.Pipeline, error) {
	runs, _, err := it.client.Actions.ListRepositoryWorkflowRuns(ctx, repo.Organization, repo.Name,
		&gh.ListWorkflowRunsOptions{
			HeadSHA:     revision,
			ListOptions: gh.ListOptions{PerPage: paging.PageSize},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow runs: %w", err)
	}

	seen := make(map[int64]struct{}, len(runs.WorkflowRuns))
	pipelines := make([]entities.Pipeline, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		if _, superseded := seen[run.GetWorkflowID()]; superseded {
			continue
		}
		seen[run.GetWorkflowID()] = struct{}{}
		pipelines = append(pipelines, toPipeline(run))
	}
	return pipelines, nil
}

func (it *GitHubHostRepository) GetPipeline(
	ctx context.Context,
	repo entities.Repository,
	id int64,
) (*entities.Pipeline, error) {
	run, _, err := it.client.Actions.GetWorkflowRunByID(ctx, repo.Organization, repo.Name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow run %d: %w", id, err)
	}
	pipeline := toPipeline(run)
	return &pipeline, nil
}

// MergeReviewRequest merges with the head SHA as guard, then deletes the branch.
// A failed deletion does not undo the merge and is only logged.
func (it *GitHubHostRepository) MergeReviewRequest(
	ctx context.Context,
	repo entities.Repository,
	request entities.ReviewRequest,
	deleteSourceBranch bool,
) error {
	//nolint:exhaustruct // Merge method defaults to the repository setting
	result, _, err := it.client.PullRequests.Merge(ctx, repo.Organization, repo.Name, int(request.ID), "",
		&gh.PullRequestOptions{SHA: request.HeadRevision})
	if err != nil {
		return fmt.Errorf("failed to merge pull request #%d: %w", request.ID, err)
	}
	if !result.GetMerged() {
		return fmt.Errorf("%w: %s", errNotMerged, result.GetMessage())
	}

	if deleteSourceBranch {
		if _, err = it.client.Git.DeleteRef(ctx, repo.Organization, repo.Name, "heads/"+request.SourceBranch); err != nil {
			logging.FromContext(ctx).Warnf("[github] merged #%d but failed to delete branch %q: %v",
				request.ID, request.SourceBranch, err)
		}
	}
	return nil
}

func toRepository(organization string, repo *gh.Repository) entities.Repository {
	branch := repo.GetDefaultBranch()
	if branch == "" {
		branch = defaultBranch
	}
	return entities.Repository{
		ID:              repo.GetID(),
		Host:            hostName,
		Organization:    organization,
		Name:            repo.GetName(),
		PrimaryLanguage: repo.GetLanguage(),
		PushPermission:  repo.GetPermissions()["push"],
		Archived:        repo.GetArchived(),
		DefaultBranch:   branch,
		CloneURL:        repo.GetCloneURL(),
		WebURL:          repo.GetHTMLURL(),
	}
}

func toReviewRequest(pull *gh.PullRequest) entities.ReviewRequest {
	state := entities.ReviewRequestOpen
	switch {
	case pull.GetMerged():
		state = entities.ReviewRequestMerged
	case pull.GetState() != "open":
		state = entities.ReviewRequestClosed
	}
	return entities.ReviewRequest{
		ID:           int64(pull.GetNumber()),
		Title:        pull.GetTitle(),
		Description:  pull.GetBody(),
		SourceBranch: pull.GetHead().GetRef(),
		TargetBranch: pull.GetBase().GetRef(),
		State:        state,
		HeadRevision: pull.GetHead().GetSHA(),
		WebURL:       pull.GetHTMLURL(),
	}
}

func toPipeline(run *gh.WorkflowRun) entities.Pipeline {
	return entities.Pipeline{
		ID:       run.GetID(),
		Revision: run.GetHeadSHA(),
		Status:   pipelineStatus(run.GetStatus(), run.GetConclusion()),
		WebURL:   run.GetHTMLURL(),
	}
}

func pipelineStatus(status, conclusion string) entities.PipelineStatus {
	switch status {
	case "queued", "waiting", "requested", "pending":
		return entities.PipelinePending
	case "in_progress":
		return entities.PipelineRunning
	case "completed":
		switch conclusion {
		case "success":
			return entities.PipelineSuccess
		case "cancelled", "skipped":
			return entities.PipelineCanceled
		default:
			return entities.PipelineFailure
		}
	default:
		return entities.PipelinePending
	}
}
