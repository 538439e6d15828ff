package commands

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	infraRepos "github.com/rios0rios0/uptocode/internal/infrastructure/repositories"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/httpmemo"
)

// Scan is the interface for the scan command.
type Scan interface {
	Execute(ctx context.Context, settings *entities.Settings) ([]ScanResult, error)
}

// ScanResult lists the dependants found on one host.
type ScanResult struct {
	Host         string
	Organization string
	Dependants   []entities.Repository
	Err          error
}

// ScanCommand lists the dependants of the package without changing anything.
type ScanCommand struct {
	hostRegistry *infraRepos.HostRegistry
}

// NewScanCommand creates a new ScanCommand.
func NewScanCommand(hostRegistry *infraRepos.HostRegistry) *ScanCommand {
	return &ScanCommand{hostRegistry: hostRegistry}
}

// Execute scans every configured host concurrently, results follow the configuration order.
func (it *ScanCommand) Execute(ctx context.Context, settings *entities.Settings) ([]ScanResult, error) {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	cache := httpmemo.NewCache()
	scanner := NewDependencyScanner(settings.Concurrency, settings.Languages)
	results := make([]ScanResult, len(settings.Hosts))

	var group errgroup.Group
	for i, hostSettings := range settings.Hosts {
		host, err := it.hostRegistry.Get(hostSettings, cache)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize host %q: %w", hostSettings.Type, err)
		}
		group.Go(func() error {
			dependants, scanErr := scanner.FindDependants(ctx, host, hostSettings.Organization, settings.Package)
			if scanErr != nil {
				logger.Errorf("Failed to scan %s/%s: %v", host.Name(), hostSettings.Organization, scanErr)
			}
			results[i] = ScanResult{
				Host:         host.Name(),
				Organization: hostSettings.Organization,
				Dependants:   dependants,
				Err:          scanErr,
			}
			return nil
		})
	}
	_ = group.Wait()
	return results, nil
}
