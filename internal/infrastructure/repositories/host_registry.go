package repositories

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	domainRepos "github.com/rios0rios0/uptocode/internal/domain/repositories"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/httpmemo"
)

// HostFactory builds the client of one host for one run, sharing the run cache.
type HostFactory func(settings entities.HostSettings, cache *httpmemo.Cache) (domainRepos.HostRepository, error)

// MetricsFactory creates the collector of one run.
type MetricsFactory func() domainRepos.MetricsRepository

// HostRegistry manages all registered hosting platform implementations.
type HostRegistry struct {
	factories map[string]HostFactory
}

// NewHostRegistry creates an empty host registry.
func NewHostRegistry() *HostRegistry {
	return &HostRegistry{factories: make(map[string]HostFactory)}
}

// Register adds a host factory under the given type (e.g. "github").
func (r *HostRegistry) Register(hostType string, factory HostFactory) {
	r.factories[hostType] = factory
}

// Get builds the host client configured by settings.
func (r *HostRegistry) Get(settings entities.HostSettings, cache *httpmemo.Cache) (domainRepos.HostRepository, error) {
	factory, ok := r.factories[settings.Type]
	if !ok {
		return nil, fmt.Errorf("unknown host type: %q", settings.Type)
	}
	return factory(settings, cache)
}

// Names returns the registered host types, sorted.
func (r *HostRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
