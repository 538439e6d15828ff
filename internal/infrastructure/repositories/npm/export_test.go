package npm

import "context"

// NewRegistryRepositoryWithRunner exports newRegistryRepository for testing.
func NewRegistryRepositoryWithRunner(
	run func(ctx context.Context, name string, args ...string) ([]byte, error),
) *NpmRegistryRepository {
	return newRegistryRepository(run)
}

// ReplaceVersion exports replaceVersion for testing.
var ReplaceVersion = replaceVersion //nolint:gochecknoglobals // test export
