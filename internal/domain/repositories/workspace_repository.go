package repositories

import (
	"context"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

// Workspace is a local clone checked out on the working branch.
type Workspace struct {
	Dir        string
	Repository entities.Repository
	Branch     string
}

// WorkspaceRepository performs the git side of a bump, one isolated directory per repository.
type WorkspaceRepository interface {
	// Prepare clones the default branch under root/<host>/<organization>/<name>,
	// replacing any previous clone, and creates the branch from it.
	Prepare(ctx context.Context, host HostRepository, repo entities.Repository, branch, root string) (*Workspace, error)

	// RecordChangelog inserts entries into CHANGELOG.md when the repository has one.
	RecordChangelog(ctx context.Context, workspace *Workspace, entries []string) (bool, error)

	// Commit stages every change and commits it, returning the new revision.
	Commit(ctx context.Context, workspace *Workspace, message string, author entities.GitSettings) (string, error)

	// Push force-pushes the working branch.
	Push(ctx context.Context, host HostRepository, workspace *Workspace) error
}
