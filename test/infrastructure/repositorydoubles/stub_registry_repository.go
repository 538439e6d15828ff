//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"sync/atomic"

	"github.com/rios0rios0/uptocode/internal/domain/repositories"
)

// StubRegistryRepository returns a fixed latest version.
type StubRegistryRepository struct {
	Version string
	Err     error
	calls   atomic.Int32
}

var _ repositories.RegistryRepository = (*StubRegistryRepository)(nil)

func (s *StubRegistryRepository) LatestVersion(_ context.Context, _, _ string) (string, error) {
	s.calls.Add(1)
	return s.Version, s.Err
}

// Calls returns how many lookups were made.
func (s *StubRegistryRepository) Calls() int {
	return int(s.calls.Load())
}
