package repositories

import "context"

// RegistryRepository queries the package registry.
type RegistryRepository interface {
	// LatestVersion returns the version tagged latest. An empty registry uses the client default.
	LatestVersion(ctx context.Context, packageName, registry string) (string, error)
}
