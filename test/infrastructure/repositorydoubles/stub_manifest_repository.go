//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
)

// VersionWrite records one SetVersion call.
type VersionWrite struct {
	Dir     string
	Section entities.DependencySection
	Package string
	Range   string
}

// StubManifestRepository serves in-memory manifests keyed by the last element of the workspace directory.
type StubManifestRepository struct {
	mu sync.Mutex

	Manifests map[string]*entities.Manifest
	SetErr    error
	Writes    []VersionWrite
}

var _ repositories.ManifestRepository = (*StubManifestRepository)(nil)

func (s *StubManifestRepository) Read(_ context.Context, dir string) (*entities.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	manifest, ok := s.Manifests[filepath.Base(dir)]
	if !ok {
		return nil, fmt.Errorf("no %s in %s", entities.ManifestFileName, dir)
	}
	return manifest, nil
}

func (s *StubManifestRepository) SetVersion(
	_ context.Context, dir string, section entities.DependencySection, pkg, versionRange string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.Writes = append(s.Writes, VersionWrite{Dir: dir, Section: section, Package: pkg, Range: versionRange})
	return nil
}
