package commands

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	"github.com/rios0rios0/uptocode/internal/logging"
)

// DependencyScanner finds the repositories of an organization that declare a package.
type DependencyScanner struct {
	concurrency int
	languages   []string
}

// NewDependencyScanner creates a scanner fetching at most concurrency manifests at once.
func NewDependencyScanner(concurrency int, languages []string) *DependencyScanner {
	return &DependencyScanner{concurrency: max(concurrency, 1), languages: languages}
}

// FindDependants lists the organization and keeps every repository whose manifest declares
// the package in exactly one dependency section. Discovery errors are returned as is,
// a manifest that cannot be read only demotes its repository.
func (it *DependencyScanner) FindDependants(
	ctx context.Context,
	host repositories.HostRepository,
	organization, packageName string,
) ([]entities.Repository, error) {
	ctx, log := logging.WithFields(ctx, logger.Fields{"host": host.Name(), "organization": organization})

	repos, err := host.ListOrgRepositories(ctx, organization)
	if err != nil {
		return nil, err
	}

	candidates := make([]entities.Repository, 0, len(repos))
	for _, repo := range repos {
		if it.isCandidate(repo) {
			candidates = append(candidates, repo)
		}
	}
	log.Infof("[scanner] %d of %d repositories are candidates", len(candidates), len(repos))

	// one slot per candidate keeps the discovery order without sorting afterwards
	dependant := make([]bool, len(candidates))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(it.concurrency)
	for i, repo := range candidates {
		group.Go(func() error {
			dependant[i] = it.declares(groupCtx, host, repo, packageName)
			return nil
		})
	}
	_ = group.Wait()

	var dependants []entities.Repository
	for i, repo := range candidates {
		if dependant[i] {
			dependants = append(dependants, repo)
		}
	}
	log.Infof("[scanner] %d repositories depend on %q", len(dependants), packageName)
	return dependants, nil
}

func (it *DependencyScanner) isCandidate(repo entities.Repository) bool {
	return repo.PushPermission && !repo.Archived && repo.HasLanguage(it.languages)
}

func (it *DependencyScanner) declares(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	packageName string,
) bool {
	log := logging.FromContext(ctx).WithField("repository", repo.FullName())

	manifest, err := host.FetchManifest(ctx, repo)
	if err != nil {
		log.Debugf("[scanner] skipping, no readable manifest: %v", err)
		return false
	}

	if _, _, err = manifest.Locate(packageName); err != nil {
		if errors.Is(err, entities.ErrPackageDeclaredTwice) {
			log.Warnf("[scanner] skipping: %v", err)
		}
		return false
	}
	return true
}
