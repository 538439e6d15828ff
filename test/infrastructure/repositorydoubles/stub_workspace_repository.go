//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
)

// StubWorkspaceRepository implements repositories.WorkspaceRepository without touching git.
type StubWorkspaceRepository struct {
	mu sync.Mutex

	PrepareErr   error
	ChangelogErr error
	CommitErr    error
	PushErr      error

	// keyed by repository name; overrides the shared errors above
	PrepareErrs map[string]error
	PushErrs    map[string]error

	Prepared   []string
	Changelogs map[string][]string
	Commits    map[string]string
	Pushed     []string
}

var _ repositories.WorkspaceRepository = (*StubWorkspaceRepository)(nil)

func (s *StubWorkspaceRepository) Prepare(
	_ context.Context, _ repositories.HostRepository, repo entities.Repository, branch, root string,
) (*repositories.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prepared = append(s.Prepared, repo.Name)
	if err, ok := s.PrepareErrs[repo.Name]; ok {
		return nil, err
	}
	if s.PrepareErr != nil {
		return nil, s.PrepareErr
	}
	return &repositories.Workspace{
		Dir:        filepath.Join(root, repo.Host, repo.Organization, repo.Name),
		Repository: repo,
		Branch:     branch,
	}, nil
}

func (s *StubWorkspaceRepository) RecordChangelog(
	_ context.Context, ws *repositories.Workspace, entries []string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ChangelogErr != nil {
		return false, s.ChangelogErr
	}
	if s.Changelogs == nil {
		s.Changelogs = make(map[string][]string)
	}
	s.Changelogs[ws.Repository.Name] = append(s.Changelogs[ws.Repository.Name], entries...)
	return true, nil
}

func (s *StubWorkspaceRepository) Commit(
	_ context.Context, ws *repositories.Workspace, message string, _ entities.GitSettings,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CommitErr != nil {
		return "", s.CommitErr
	}
	if s.Commits == nil {
		s.Commits = make(map[string]string)
	}
	s.Commits[ws.Repository.Name] = message
	return "commit-" + ws.Repository.Name, nil
}

func (s *StubWorkspaceRepository) Push(
	_ context.Context, _ repositories.HostRepository, ws *repositories.Workspace,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.PushErrs[ws.Repository.Name]; ok {
		return err
	}
	if s.PushErr != nil {
		return s.PushErr
	}
	s.Pushed = append(s.Pushed, ws.Repository.Name)
	return nil
}
