package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	changelogEntities "github.com/rios0rios0/gitforge/pkg/changelog/domain/entities"
	gitOperations "github.com/rios0rios0/gitforge/pkg/git/infrastructure"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	"github.com/rios0rios0/uptocode/internal/logging"
)

const (
	remoteName = "origin"
	dirMode    = 0o755
	fileMode   = 0o644
)

var errNothingToCommit = errors.New("working tree has no changes to commit")

// GitWorkspaceRepository implements repositories.WorkspaceRepository with go-git.
type GitWorkspaceRepository struct{}

// NewWorkspaceRepository creates the go-git workspace.
func NewWorkspaceRepository() repositories.WorkspaceRepository {
	return &GitWorkspaceRepository{}
}

func auth(host repositories.HostRepository) *githttp.BasicAuth {
	username, token := host.Credentials()
	return &githttp.BasicAuth{Username: username, Password: token}
}

func (it *GitWorkspaceRepository) Prepare(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	branch, root string,
) (*repositories.Workspace, error) {
	dir := filepath.Join(root, host.Name(), repo.Organization, repo.Name)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clean %q: %w", dir, err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), dirMode); err != nil {
		return nil, fmt.Errorf("failed to create %q: %w", filepath.Dir(dir), err)
	}

	logging.FromContext(ctx).Debugf("[workspace] Cloning %s into %s", repo.FullName(), dir)
	//nolint:exhaustruct // Clone only the default branch
	cloned, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           host.CloneURL(repo),
		Auth:          auth(host),
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(repo.DefaultBranch),
		SingleBranch:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", repo.FullName(), err)
	}

	worktree, err := cloned.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	head, err := cloned.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", repo.DefaultBranch, err)
	}
	// equivalent of "git checkout -B <branch>"
	if err = gitOperations.CreateAndSwitchBranch(cloned, worktree, branch, head.Hash()); err != nil {
		return nil, fmt.Errorf("failed to create branch %q: %w", branch, err)
	}

	return &repositories.Workspace{Dir: dir, Repository: repo, Branch: branch}, nil
}

func (it *GitWorkspaceRepository) RecordChangelog(
	ctx context.Context,
	workspace *repositories.Workspace,
	entries []string,
) (bool, error) {
	path := filepath.Join(workspace.Dir, entities.ChangelogFileName)
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", entities.ChangelogFileName, err)
	}

	updated := changelogEntities.InsertChangelogEntry(string(content), entries)
	if updated == string(content) {
		logging.FromContext(ctx).Debugf("[workspace] %s has no Unreleased section", entities.ChangelogFileName)
		return false, nil
	}
	if err = os.WriteFile(path, []byte(updated), fileMode); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", entities.ChangelogFileName, err)
	}
	return true, nil
}

func (it *GitWorkspaceRepository) Commit(
	_ context.Context,
	workspace *repositories.Workspace,
	message string,
	author entities.GitSettings,
) (string, error) {
	opened, err := gitOperations.OpenRepo(workspace.Dir)
	if err != nil {
		return "", err
	}
	worktree, err := opened.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	clean, err := gitOperations.WorktreeIsClean(worktree)
	if err != nil {
		return "", err
	}
	if clean {
		return "", errNothingToCommit
	}

	if err = gitOperations.StageAll(worktree); err != nil {
		return "", err
	}
	hash, err := gitOperations.CommitChanges(opened, worktree, message, nil, author.AuthorName, author.AuthorEmail)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func (it *GitWorkspaceRepository) Push(
	ctx context.Context,
	host repositories.HostRepository,
	workspace *repositories.Workspace,
) error {
	opened, err := gitOperations.OpenRepo(workspace.Dir)
	if err != nil {
		return err
	}

	refSpec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/heads/%s", workspace.Branch, workspace.Branch))
	//nolint:exhaustruct // Force push of the working branch only
	err = opened.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth(host),
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push %q: %w", workspace.Branch, err)
	}
	return nil
}
