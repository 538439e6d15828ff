//go:build unit

package commands_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/uptocode/internal/domain/commands"
	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/uptocode/internal/infrastructure/repositories"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/httpmemo"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/npm"
	"github.com/rios0rios0/uptocode/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/uptocode/test/infrastructure/repositorydoubles"
)

const testPackage = "@acme/ui"

// runFixture wires a RunCommand to doubles: "minor" pins 2.0.3, "major" pins 1.4.0
// and "unrelated" does not declare the package. The registry publishes 2.1.0.
type runFixture struct {
	host      *doubles.SpyHostRepository
	workspace *doubles.StubWorkspaceRepository
	manifests *doubles.StubManifestRepository
	registry  *doubles.StubRegistryRepository
	metrics   *doubles.DummyMetricsRepository
	settings  *entities.Settings
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()

	minor := entitybuilders.NewManifestBuilder().
		WithDependency(entities.Dependencies, testPackage, "^2.0.3").BuildManifest()
	major := entitybuilders.NewManifestBuilder().
		WithDependency(entities.DevDependencies, testPackage, "~1.4.0").BuildManifest()
	unrelated := entitybuilders.NewManifestBuilder().
		WithDependency(entities.Dependencies, "left-pad", "^1.0.0").BuildManifest()

	builder := entitybuilders.NewRepositoryBuilder()
	return &runFixture{
		host: &doubles.SpyHostRepository{
			HostName: "github",
			Token:    "token",
			Repositories: []entities.Repository{
				builder.WithID(1).WithName("minor").BuildRepository(),
				builder.WithID(2).WithName("major").BuildRepository(),
				builder.WithID(3).WithName("unrelated").BuildRepository(),
			},
			Manifests: map[string]*entities.Manifest{"minor": minor, "major": major, "unrelated": unrelated},
			Pipelines: []entities.Pipeline{
				{ID: 1, Revision: "head-minor", Status: entities.PipelinePending},
				{ID: 2, Revision: "head-major", Status: entities.PipelinePending},
			},
			PipelineStatuses: []entities.PipelineStatus{entities.PipelineRunning, entities.PipelineSuccess},
		},
		workspace: &doubles.StubWorkspaceRepository{},
		manifests: &doubles.StubManifestRepository{
			Manifests: map[string]*entities.Manifest{"minor": minor, "major": major, "unrelated": unrelated},
		},
		registry: &doubles.StubRegistryRepository{Version: "2.1.0"},
		metrics:  &doubles.DummyMetricsRepository{},
		settings: &entities.Settings{
			Package: testPackage,
			Hosts:   []entities.HostSettings{{Type: "github", Organization: "acme", Token: "token"}},
			Workdir: t.TempDir(),
			Merge: entities.MergeSettings{
				PollInterval:    time.Millisecond,
				PipelineTimeout: time.Second,
			},
			MetricsFile: filepath.Join(t.TempDir(), "uptocode.prom"),
		},
	}
}

func (f *runFixture) command() *commands.RunCommand {
	registry := infraRepos.NewHostRegistry()
	registry.Register("github", func(entities.HostSettings, *httpmemo.Cache) (repositories.HostRepository, error) {
		return f.host, nil
	})
	return commands.NewRunCommand(
		registry,
		func() repositories.MetricsRepository { return f.metrics },
		f.workspace,
		f.manifests,
		f.registry,
	)
}

func resultOf(t *testing.T, report *entities.RunReport, name string) entities.RepositoryResult {
	t.Helper()
	for _, result := range report.Results {
		if result.Repository.Name == name {
			return result
		}
	}
	t.Fatalf("no result for %q", name)
	return entities.RepositoryResult{}
}

func TestRunCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should merge the minor bump and leave the major bump for review", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)

		// when
		report, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, report.Results, 2)
		assert.Equal(t, "minor", report.Results[0].Repository.Name)
		assert.Equal(t, "major", report.Results[1].Repository.Name)

		minor := resultOf(t, report, "minor")
		assert.Equal(t, entities.OutcomeMerged, minor.Outcome)
		require.NotNil(t, minor.Plan)
		assert.False(t, minor.Plan.Breaking)
		assert.Equal(t, "2.0.3", minor.Plan.BeforeVersion)

		major := resultOf(t, report, "major")
		assert.Equal(t, entities.OutcomeAwaitingReview, major.Outcome)
		require.NotNil(t, major.Plan)
		assert.True(t, major.Plan.Breaking)
		require.NotNil(t, major.ReviewRequest)

		assert.Len(t, fixture.host.CreateCalls, 2)
		require.Len(t, fixture.host.MergeCalls, 1)
		assert.Equal(t, "head-minor", fixture.host.MergeCalls[0].HeadRevision)
		assert.Equal(t, 1, fixture.registry.Calls())
		assert.ElementsMatch(t, []string{"minor", "major"}, fixture.workspace.Pushed)
		assert.Equal(t, "chore(deps): bump @acme/ui from 1.4.0 to 2.1.0", fixture.workspace.Commits["major"])
		assert.Equal(t, []string{"- changed the `@acme/ui` dependency from `2.0.3` to `2.1.0`"},
			fixture.workspace.Changelogs["minor"])

		require.Len(t, fixture.manifests.Writes, 2)
		for _, write := range fixture.manifests.Writes {
			assert.Equal(t, "^2.1.0", write.Range)
		}

		assert.Equal(t, 1, fixture.metrics.Outcomes["github/merged"])
		assert.Equal(t, 1, fixture.metrics.Outcomes["github/awaiting-review"])
		assert.Equal(t, fixture.settings.MetricsFile, fixture.metrics.FlushedPath)
		assert.Same(t, report, fixture.metrics.FlushedReport)
	})

	t.Run("should describe the review request with the change note of the package", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.host.Comparison = &entities.Comparison{
			BaseRevision: "v2.0.3",
			HeadRevision: "v2.1.0",
			WebURL:       "https://github.com/acme/ui/compare/v2.0.3...v2.1.0",
			Commits:      []entities.Commit{{AuthorName: "Jane", Message: "feat: tooltip", WebURL: "https://x/1"}},
		}

		// when
		_, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Contains(t, fixture.host.CompareCalls, "v2.0.3...v2.1.0")
		assert.Contains(t, fixture.host.CompareCalls, "v1.4.0...v2.1.0")
		for _, input := range fixture.host.CreateCalls {
			assert.Contains(t, input.Description, "- Jane: [feat: tooltip](https://x/1)")
			assert.Equal(t, "uptocode-acme-ui", input.SourceBranch)
			assert.Equal(t, "main", input.TargetBranch)
		}
	})

	t.Run("should open review requests without change notes when the source cannot be resolved", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.host.ResolveErr = errors.New("404 Not Found")

		// when
		report, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.OutcomeMerged, resultOf(t, report, "minor").Outcome)
		assert.Empty(t, fixture.host.CompareCalls)
		for _, input := range fixture.host.CreateCalls {
			assert.NotContains(t, input.Description, "### Diff")
		}
	})

	t.Run("should only commit locally on a dry run", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)

		// when
		report, err := fixture.command().Execute(
			context.Background(), fixture.settings, commands.RunOptions{DryRun: true},
		)

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, report.Count(entities.OutcomePlanned))
		assert.Len(t, fixture.workspace.Commits, 2)
		assert.Empty(t, fixture.workspace.Pushed)
		assert.Zero(t, fixture.host.MutatingCalls())
	})

	t.Run("should skip repositories already on the latest version", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.registry.Version = "2.0.3"

		// when
		report, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		minor := resultOf(t, report, "minor")
		assert.Equal(t, entities.OutcomeSkipped, minor.Outcome)
		var lagErr *entities.RegistryLagError
		require.ErrorAs(t, minor.Err, &lagErr)
		assert.Equal(t, "2.0.3", lagErr.Latest)

		// 1.4.0 -> 2.0.3 is still a bump
		assert.Equal(t, entities.OutcomeAwaitingReview, resultOf(t, report, "major").Outcome)
		assert.Len(t, fixture.host.CreateCalls, 1)
	})

	t.Run("should report merge-aborted when the pipeline fails", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.host.PipelineStatuses = []entities.PipelineStatus{entities.PipelineFailure}

		// when
		report, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		minor := resultOf(t, report, "minor")
		assert.Equal(t, entities.OutcomeMergeAborted, minor.Outcome)
		var stepErr *entities.StepError
		require.ErrorAs(t, minor.Err, &stepErr)
		assert.Equal(t, "merge", stepErr.Step)
		assert.NotNil(t, minor.ReviewRequest)
		assert.Empty(t, fixture.host.MergeCalls)
	})

	t.Run("should isolate a failing repository from its siblings", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.workspace.PushErrs = map[string]error{"major": errors.New("remote rejected")}

		// when
		report, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		major := resultOf(t, report, "major")
		assert.Equal(t, entities.OutcomeFailed, major.Outcome)
		var stepErr *entities.StepError
		require.ErrorAs(t, major.Err, &stepErr)
		assert.Equal(t, "push", stepErr.Step)
		assert.Equal(t, entities.OutcomeMerged, resultOf(t, report, "minor").Outcome)
	})

	t.Run("should recover from a panicking repository", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.manifests.Manifests["major"] = nil

		// when
		report, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		major := resultOf(t, report, "major")
		assert.Equal(t, entities.OutcomeFailed, major.Outcome)
		require.ErrorContains(t, major.Err, "panic")
		assert.Equal(t, entities.OutcomeMerged, resultOf(t, report, "minor").Outcome)
	})

	t.Run("should report a host whose discovery fails", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.host.ListErr = &entities.DiscoveryError{Host: "github", Organization: "acme", Err: errors.New("boom")}

		// when
		report, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, report.Results)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, "acme", report.Failures[0].Organization)
		assert.Equal(t, 1, fixture.metrics.DiscoveryFailures)
	})

	t.Run("should return setup errors", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.settings.Package = ""

		// when
		report, err := fixture.command().Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.ErrorIs(t, err, entities.ErrNoPackage)
		assert.Nil(t, report)
	})
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected entities.Outcome
	}{
		{"registry lag", &entities.RegistryLagError{}, entities.OutcomeSkipped},
		{"wrapped pipeline error", &entities.StepError{Step: "merge", Err: &entities.PipelineError{}}, entities.OutcomeMergeAborted},
		{"review conflict", &entities.ReviewConflictError{}, entities.OutcomeFailed},
		{"plain error", errors.New("boom"), entities.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, commands.OutcomeOf(tt.err))
		})
	}
}

func TestRunCommandExecuteWithPackageJSON(t *testing.T) {
	t.Parallel()

	t.Run("should bump a package.json declaring scripts before its dependencies", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newRunFixture(t)
		fixture.host.Repositories = fixture.host.Repositories[:1]
		dir := filepath.Join(fixture.settings.Workdir, "github", "acme", "minor")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		manifest := `{
  "name": "minor",
  "scripts": {
    "test": "jest"
  },
  "dependencies": {
    "@acme/ui": "^2.0.3"
  }
}
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0o600))

		registry := infraRepos.NewHostRegistry()
		registry.Register("github", func(entities.HostSettings, *httpmemo.Cache) (repositories.HostRepository, error) {
			return fixture.host, nil
		})
		command := commands.NewRunCommand(
			registry,
			func() repositories.MetricsRepository { return fixture.metrics },
			fixture.workspace,
			npm.NewManifestRepository(),
			fixture.registry,
		)

		// when
		report, err := command.Execute(context.Background(), fixture.settings, commands.RunOptions{})

		// then
		require.NoError(t, err)
		result := resultOf(t, report, "minor")
		assert.Equal(t, entities.OutcomeMerged, result.Outcome)
		updated, err := os.ReadFile(filepath.Join(dir, "package.json"))
		require.NoError(t, err)
		assert.Contains(t, string(updated), `"@acme/ui": "^2.1.0"`)
		assert.Contains(t, string(updated), `"test": "jest"`)
	})
}
