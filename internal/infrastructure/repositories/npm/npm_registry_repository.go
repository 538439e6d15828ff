package npm

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"

	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	"github.com/rios0rios0/uptocode/internal/logging"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return output, nil
}

// NpmRegistryRepository asks the npm CLI for the latest published version.
// Concurrent queries for the same package share one process.
type NpmRegistryRepository struct {
	run      commandRunner
	inflight singleflight.Group
}

// NewRegistryRepository creates a registry client backed by "npm view".
func NewRegistryRepository() repositories.RegistryRepository {
	return newRegistryRepository(runCommand)
}

func newRegistryRepository(run commandRunner) *NpmRegistryRepository {
	return &NpmRegistryRepository{run: run}
}

func (it *NpmRegistryRepository) LatestVersion(ctx context.Context, packageName, registry string) (string, error) {
	args := []string{"view", packageName, "version"}
	if registry != "" {
		args = append(args, "--registry", registry)
	}

	version, err, _ := it.inflight.Do(strings.Join(args, " "), func() (any, error) {
		logging.FromContext(ctx).Debugf("[npm] Querying latest version of %s", packageName)
		output, runErr := it.run(ctx, "npm", args...)
		if runErr != nil {
			return "", fmt.Errorf("failed to query %s: %w", packageName, runErr)
		}
		latest := strings.TrimSpace(string(output))
		parsed, parseErr := semver.NewVersion(latest)
		if parseErr != nil {
			return "", fmt.Errorf("registry returned invalid version %q for %s: %w", latest, packageName, parseErr)
		}
		return parsed.String(), nil
	})
	if err != nil {
		return "", err
	}
	return version.(string), nil
}
