//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/uptocode/internal/domain/commands"
	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/uptocode/internal/infrastructure/repositories"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/httpmemo"
	"github.com/rios0rios0/uptocode/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/uptocode/test/infrastructure/repositorydoubles"
)

func TestScanCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should list dependants per host without mutating anything", func(t *testing.T) {
		t.Parallel()

		// given
		github := &doubles.SpyHostRepository{
			HostName:     "github",
			Repositories: []entities.Repository{entitybuilders.NewRepositoryBuilder().WithName("web").BuildRepository()},
			Manifests: map[string]*entities.Manifest{
				"web": entitybuilders.NewManifestBuilder().
					WithDependency(entities.Dependencies, testPackage, "^1.0.0").BuildManifest(),
			},
		}
		gitlab := &doubles.SpyHostRepository{HostName: "gitlab", ListErr: errors.New("401 Unauthorized")}

		registry := infraRepos.NewHostRegistry()
		registry.Register("github", func(entities.HostSettings, *httpmemo.Cache) (repositories.HostRepository, error) {
			return github, nil
		})
		registry.Register("gitlab", func(entities.HostSettings, *httpmemo.Cache) (repositories.HostRepository, error) {
			return gitlab, nil
		})
		settings := &entities.Settings{
			Package: testPackage,
			Hosts: []entities.HostSettings{
				{Type: "github", Organization: "acme", Token: "a"},
				{Type: "gitlab", Organization: "acme-group", Token: "b"},
			},
		}

		// when
		results, err := commands.NewScanCommand(registry).Execute(context.Background(), settings)

		// then
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "github", results[0].Host)
		require.Len(t, results[0].Dependants, 1)
		assert.Equal(t, "web", results[0].Dependants[0].Name)
		assert.Equal(t, "acme-group", results[1].Organization)
		require.Error(t, results[1].Err)
		assert.Zero(t, github.MutatingCalls())
	})

	t.Run("should reject settings without hosts", func(t *testing.T) {
		t.Parallel()

		// given
		settings := &entities.Settings{Package: testPackage}

		// when
		results, err := commands.NewScanCommand(infraRepos.NewHostRegistry()).Execute(context.Background(), settings)

		// then
		require.ErrorIs(t, err, entities.ErrNoHosts)
		assert.Nil(t, results)
	})
}
