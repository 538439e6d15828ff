package repositories

import (
	"go.uber.org/dig"

	ghRepo "github.com/rios0rios0/uptocode/internal/infrastructure/repositories/github"
	glRepo "github.com/rios0rios0/uptocode/internal/infrastructure/repositories/gitlab"
	metricsRepo "github.com/rios0rios0/uptocode/internal/infrastructure/repositories/metrics"
	npmRepo "github.com/rios0rios0/uptocode/internal/infrastructure/repositories/npm"
	wsRepo "github.com/rios0rios0/uptocode/internal/infrastructure/repositories/workspace"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Host clients are built per run from the registry
	if err := container.Provide(func() *HostRegistry {
		reg := NewHostRegistry()
		reg.Register("github", ghRepo.NewHostRepository)
		reg.Register("gitlab", glRepo.NewHostRepository)
		return reg
	}); err != nil {
		return err
	}

	if err := container.Provide(func() MetricsFactory {
		return metricsRepo.NewMetricsRepository
	}); err != nil {
		return err
	}
	if err := container.Provide(wsRepo.NewWorkspaceRepository); err != nil {
		return err
	}
	if err := container.Provide(npmRepo.NewManifestRepository); err != nil {
		return err
	}
	if err := container.Provide(npmRepo.NewRegistryRepository); err != nil {
		return err
	}

	return nil
}
