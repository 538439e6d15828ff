package repositories

import (
	"context"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

// ManifestRepository reads and edits the package manifest of a local checkout.
type ManifestRepository interface {
	Read(ctx context.Context, dir string) (*entities.Manifest, error)

	// SetVersion rewrites the version range of the package inside the section,
	// leaving the rest of the file untouched.
	SetVersion(ctx context.Context, dir string, section entities.DependencySection, packageName, versionRange string) error
}
