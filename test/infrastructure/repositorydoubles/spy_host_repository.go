//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. These are hand-crafted implementations, no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"sync"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
)

// UpdateCall records one UpdateReviewRequest invocation.
type UpdateCall struct {
	ID    int64
	Input entities.ReviewRequestInput
}

// SpyHostRepository implements repositories.HostRepository as a configurable spy.
// It is safe for concurrent use by the orchestrator.
type SpyHostRepository struct {
	mu sync.Mutex

	// --- identity ---
	HostName string
	Token    string
	CloneTo  string // clone URL returned for every repository

	// --- ListOrgRepositories ---
	Repositories []entities.Repository
	ListErr      error
	ListedOrgs   []string

	// --- ResolveRepository ---
	Resolved   *entities.Repository
	ResolveErr error

	// --- FetchManifest (keyed by repository name) ---
	Manifests    map[string]*entities.Manifest
	ManifestErrs map[string]error
	FetchedNames []string

	// --- CompareRevisions ---
	Comparison   *entities.Comparison
	CompareErr   error
	CompareCalls []string

	// --- review requests (keyed by repository name) ---
	OpenRequests    map[string][]entities.ReviewRequest
	ListRequestsErr error
	CreateErr       error
	UpdateErr       error
	DropUpdates     bool   // keep the old title/description on re-read
	HeadOnRefetch   string // head revision reported by GetReviewRequest when set
	StateOnRefetch  entities.ReviewRequestState
	CreateCalls     []entities.ReviewRequestInput
	UpdateCalls     []UpdateCall
	GetCalls        []int64
	requests        map[int64]entities.ReviewRequest
	nextID          int64

	// --- pipelines ---
	Pipelines        []entities.Pipeline
	ListPipelinesErr error
	PipelineStatuses []entities.PipelineStatus // returned in order, the last one repeats
	GetPipelineCalls int

	// --- MergeReviewRequest ---
	MergeErr   error
	MergeCalls []entities.ReviewRequest
}

var _ repositories.HostRepository = (*SpyHostRepository)(nil)

func (p *SpyHostRepository) Name() string { return p.HostName }

func (p *SpyHostRepository) Credentials() (string, string) { return "spy", p.Token }

func (p *SpyHostRepository) CloneURL(repo entities.Repository) string {
	if p.CloneTo != "" {
		return p.CloneTo
	}
	return "https://example.com/" + repo.FullName() + ".git"
}

func (p *SpyHostRepository) ListOrgRepositories(_ context.Context, org string) ([]entities.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListedOrgs = append(p.ListedOrgs, org)
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	return p.Repositories, nil
}

func (p *SpyHostRepository) ResolveRepository(_ context.Context, org, name string) (entities.Repository, error) {
	if p.ResolveErr != nil {
		return entities.Repository{}, p.ResolveErr
	}
	if p.Resolved != nil {
		return *p.Resolved, nil
	}
	return entities.Repository{Host: p.HostName, Organization: org, Name: name}, nil
}

func (p *SpyHostRepository) FetchManifest(_ context.Context, repo entities.Repository) (*entities.Manifest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FetchedNames = append(p.FetchedNames, repo.Name)
	if err, ok := p.ManifestErrs[repo.Name]; ok {
		return nil, err
	}
	if manifest, ok := p.Manifests[repo.Name]; ok {
		return manifest, nil
	}
	return nil, fmt.Errorf("package.json not found in %s", repo.Name)
}

func (p *SpyHostRepository) CompareRevisions(
	_ context.Context, _ entities.Repository, base, head string,
) (*entities.Comparison, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompareCalls = append(p.CompareCalls, base+"..."+head)
	if p.CompareErr != nil {
		return nil, p.CompareErr
	}
	if p.Comparison != nil {
		return p.Comparison, nil
	}
	return &entities.Comparison{BaseRevision: base, HeadRevision: head}, nil
}

func (p *SpyHostRepository) ListOpenReviewRequests(
	_ context.Context, repo entities.Repository, sourceBranch, targetBranch string,
) ([]entities.ReviewRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ListRequestsErr != nil {
		return nil, p.ListRequestsErr
	}
	var matching []entities.ReviewRequest
	for _, request := range p.OpenRequests[repo.Name] {
		if request.SourceBranch == sourceBranch && request.TargetBranch == targetBranch {
			p.remember(request)
			matching = append(matching, request)
		}
	}
	return matching, nil
}

func (p *SpyHostRepository) GetReviewRequest(
	_ context.Context, _ entities.Repository, id int64,
) (*entities.ReviewRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GetCalls = append(p.GetCalls, id)
	request, ok := p.requests[id]
	if !ok {
		return nil, fmt.Errorf("review request %d not found", id)
	}
	if p.HeadOnRefetch != "" {
		request.HeadRevision = p.HeadOnRefetch
	}
	if p.StateOnRefetch != "" {
		request.State = p.StateOnRefetch
	}
	return &request, nil
}

func (p *SpyHostRepository) CreateReviewRequest(
	_ context.Context, repo entities.Repository, input entities.ReviewRequestInput,
) (*entities.ReviewRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CreateCalls = append(p.CreateCalls, input)
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	p.nextID++
	request := entities.ReviewRequest{
		ID:           p.nextID,
		Title:        input.Title,
		Description:  input.Description,
		SourceBranch: input.SourceBranch,
		TargetBranch: input.TargetBranch,
		State:        entities.ReviewRequestOpen,
		HeadRevision: "head-" + repo.Name,
	}
	p.remember(request)
	return &request, nil
}

func (p *SpyHostRepository) UpdateReviewRequest(
	_ context.Context, _ entities.Repository, id int64, input entities.ReviewRequestInput,
) (*entities.ReviewRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.UpdateCalls = append(p.UpdateCalls, UpdateCall{ID: id, Input: input})
	if p.UpdateErr != nil {
		return nil, p.UpdateErr
	}
	request := p.requests[id]
	if !p.DropUpdates {
		request.Title = input.Title
		request.Description = input.Description
		p.requests[id] = request
	}
	return &request, nil
}

func (p *SpyHostRepository) ListPipelines(
	_ context.Context, _ entities.Repository, revision string,
) ([]entities.Pipeline, error) {
	if p.ListPipelinesErr != nil {
		return nil, p.ListPipelinesErr
	}
	var matching []entities.Pipeline
	for _, pipeline := range p.Pipelines {
		if pipeline.Revision == revision {
			matching = append(matching, pipeline)
		}
	}
	return matching, nil
}

func (p *SpyHostRepository) GetPipeline(
	_ context.Context, _ entities.Repository, id int64,
) (*entities.Pipeline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GetPipelineCalls++
	status := entities.PipelineRunning
	if len(p.PipelineStatuses) > 0 {
		idx := min(p.GetPipelineCalls, len(p.PipelineStatuses)) - 1
		status = p.PipelineStatuses[idx]
	}
	for _, pipeline := range p.Pipelines {
		if pipeline.ID == id {
			pipeline.Status = status
			return &pipeline, nil
		}
	}
	return &entities.Pipeline{ID: id, Status: status}, nil
}

func (p *SpyHostRepository) MergeReviewRequest(
	_ context.Context, _ entities.Repository, request entities.ReviewRequest, _ bool,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.MergeCalls = append(p.MergeCalls, request)
	return p.MergeErr
}

// MutatingCalls counts create, update and merge calls.
func (p *SpyHostRepository) MutatingCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CreateCalls) + len(p.UpdateCalls) + len(p.MergeCalls)
}

func (p *SpyHostRepository) remember(request entities.ReviewRequest) {
	if p.requests == nil {
		p.requests = make(map[int64]entities.ReviewRequest)
	}
	if _, ok := p.requests[request.ID]; !ok {
		p.requests[request.ID] = request
	}
	if request.ID > p.nextID {
		p.nextID = request.ID
	}
}

// AddReviewRequest makes the request known to GetReviewRequest.
func (p *SpyHostRepository) AddReviewRequest(request entities.ReviewRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remember(request)
}
