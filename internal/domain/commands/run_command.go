package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/uptocode/internal/infrastructure/repositories"
	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/httpmemo"
	"github.com/rios0rios0/uptocode/internal/logging"
)

// Run is the interface for the run command.
type Run interface {
	Execute(ctx context.Context, settings *entities.Settings, opts RunOptions) (*entities.RunReport, error)
}

// RunOptions holds runtime options for a single run.
type RunOptions struct {
	DryRun bool // clone, bump and commit locally, but never push
}

// RunCommand bumps the package in every dependant repository of every configured host:
// discover -> branch and bump -> change note -> review request -> merge gate.
type RunCommand struct {
	hostRegistry   *infraRepos.HostRegistry
	metricsFactory infraRepos.MetricsFactory
	workspace      repositories.WorkspaceRepository
	manifests      repositories.ManifestRepository
	registry       repositories.RegistryRepository
}

// NewRunCommand creates a new RunCommand.
func NewRunCommand(
	hostRegistry *infraRepos.HostRegistry,
	metricsFactory infraRepos.MetricsFactory,
	workspace repositories.WorkspaceRepository,
	manifests repositories.ManifestRepository,
	registry repositories.RegistryRepository,
) *RunCommand {
	return &RunCommand{
		hostRegistry:   hostRegistry,
		metricsFactory: metricsFactory,
		workspace:      workspace,
		manifests:      manifests,
		registry:       registry,
	}
}

// hostBranch is one configured host with its client for the run.
type hostBranch struct {
	settings entities.HostSettings
	client   repositories.HostRepository
}

// runState holds everything scoped to one Execute call. It is dropped when the run returns.
type runState struct {
	*RunCommand

	settings   *entities.Settings
	opts       RunOptions
	branches   []hostBranch
	metrics    repositories.MetricsRepository
	scanner    *DependencyScanner
	publisher  *ChangeNotePublisher
	reconciler *ReviewRequestReconciler
	gate       *MergeGate
	latest     func() (string, error)
	source     func() (sourceRepository, error)
}

// sourceRepository is where the package itself is developed.
type sourceRepository struct {
	host repositories.HostRepository
	repo entities.Repository
}

// Execute runs the update cycle. Repository failures end up in the report,
// only setup failures are returned as errors.
func (it *RunCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts RunOptions,
) (*entities.RunReport, error) {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	startedAt := time.Now()

	state, err := it.newRunState(ctx, settings, opts)
	if err != nil {
		return nil, err
	}

	report := &entities.RunReport{Package: settings.Package}
	results := make([][]entities.RepositoryResult, len(state.branches))
	failures := make([]*entities.HostFailure, len(state.branches))

	// repositories of every host share one concurrency budget
	var hosts, repos errgroup.Group
	repos.SetLimit(settings.Concurrency)
	for i, branch := range state.branches {
		hosts.Go(func() error {
			results[i], failures[i] = state.processHost(ctx, branch, &repos)
			return nil
		})
	}
	_ = hosts.Wait()
	_ = repos.Wait()

	for i, branch := range state.branches {
		if failures[i] != nil {
			report.Failures = append(report.Failures, *failures[i])
		}
		for _, result := range results[i] {
			state.metrics.RecordOutcome(branch.client.Name(), result.Outcome)
			report.Results = append(report.Results, result)
		}
	}
	report.Duration = time.Since(startedAt)

	logger.Infof(
		"Run complete for %q in %s: %d merged, %d awaiting review, %d merge aborted, "+
			"%d planned, %d skipped, %d failed, %d host failures",
		report.Package, report.Duration.Round(time.Second),
		report.Count(entities.OutcomeMerged), report.Count(entities.OutcomeAwaitingReview),
		report.Count(entities.OutcomeMergeAborted), report.Count(entities.OutcomePlanned),
		report.Count(entities.OutcomeSkipped), report.Count(entities.OutcomeFailed),
		len(report.Failures),
	)

	if settings.MetricsFile != "" {
		if flushErr := state.metrics.Flush(settings.MetricsFile, report); flushErr != nil {
			logger.Warnf("Failed to write metrics to %q: %v", settings.MetricsFile, flushErr)
		}
	}
	return report, nil
}

func (it *RunCommand) newRunState(
	ctx context.Context,
	settings *entities.Settings,
	opts RunOptions,
) (*runState, error) {
	cache := httpmemo.NewCache()
	branches := make([]hostBranch, 0, len(settings.Hosts))
	for _, hostSettings := range settings.Hosts {
		client, err := it.hostRegistry.Get(hostSettings, cache)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize host %q: %w", hostSettings.Type, err)
		}
		branches = append(branches, hostBranch{settings: hostSettings, client: client})
	}

	metrics := it.metricsFactory()
	state := &runState{
		RunCommand: it,
		settings:   settings,
		opts:       opts,
		branches:   branches,
		metrics:    metrics,
		scanner:    NewDependencyScanner(settings.Concurrency, settings.Languages),
		publisher:  NewChangeNotePublisher(settings.BotAuthor),
		reconciler: NewReviewRequestReconciler(),
		gate:       NewMergeGate(settings.Merge.PollInterval, settings.Merge.PipelineTimeout, metrics),
	}
	state.latest = sync.OnceValues(func() (string, error) {
		return it.registry.LatestVersion(ctx, settings.Package, settings.Registry)
	})
	state.source = sync.OnceValues(func() (sourceRepository, error) {
		return state.resolveSource(ctx)
	})
	return state, nil
}

func (it *runState) processHost(
	ctx context.Context,
	branch hostBranch,
	repos *errgroup.Group,
) ([]entities.RepositoryResult, *entities.HostFailure) {
	host := branch.client
	organization := branch.settings.Organization

	logger.Infof("Searching %s/%s for dependants of %q...", host.Name(), organization, it.settings.Package)
	dependants, err := it.scanner.FindDependants(ctx, host, organization, it.settings.Package)
	if err != nil {
		logger.Errorf("Failed to discover repositories of %s/%s: %v", host.Name(), organization, err)
		it.metrics.RecordDiscoveryFailure(host.Name())
		return nil, &entities.HostFailure{Host: host.Name(), Organization: organization, Err: err}
	}

	results := make([]entities.RepositoryResult, len(dependants))
	for i, repo := range dependants {
		repos.Go(func() error {
			results[i] = it.settle(ctx, host, repo, it.updateRepository)
			return nil
		})
	}
	return results, nil
}

// settlement is the per-repository state handed to a task by settle.
type settlement struct {
	ctx    context.Context
	step   string
	result entities.RepositoryResult
}

// enter records the step and returns a context whose logger carries it.
func (s *settlement) enter(step string) context.Context {
	s.step = step
	ctx, _ := logging.WithFields(s.ctx, logger.Fields{"step": step})
	return ctx
}

func (s *settlement) fail(err error) error {
	return &entities.StepError{Step: s.step, Err: err}
}

type repositoryTask func(host repositories.HostRepository, s *settlement) error

// settle runs the task of one repository and turns whatever happens into a result.
// Errors and panics never leave it, so sibling repositories keep going.
func (it *runState) settle(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	task repositoryTask,
) (result entities.RepositoryResult) {
	ctx, log := logging.WithFields(ctx, logger.Fields{"host": host.Name(), "repository": repo.FullName()})
	s := &settlement{ctx: ctx, result: entities.RepositoryResult{Repository: repo}}

	defer func() {
		if recovered := recover(); recovered != nil {
			s.result.Err = s.fail(fmt.Errorf("panic: %v", recovered))
			s.result.Outcome = entities.OutcomeFailed
			log.WithField("step", s.step).Errorf("[orchestrator] recovered from panic: %v", recovered)
		}
		result = s.result
	}()

	err := task(host, s)
	if err == nil {
		log.Infof("[orchestrator] finished with outcome %s", s.result.Outcome)
		return s.result
	}

	s.result.Err = err
	s.result.Outcome = outcomeOf(err)
	entry := log.WithField("step", s.step)
	if s.result.Outcome == entities.OutcomeFailed {
		entry.Errorf("[orchestrator] %v", err)
	} else {
		entry.Warnf("[orchestrator] %s: %v", s.result.Outcome, err)
	}
	return s.result
}

func outcomeOf(err error) entities.Outcome {
	var lagErr *entities.RegistryLagError
	if errors.As(err, &lagErr) {
		return entities.OutcomeSkipped
	}
	var pipelineErr *entities.PipelineError
	if errors.As(err, &pipelineErr) {
		return entities.OutcomeMergeAborted
	}
	return entities.OutcomeFailed
}

// updateRepository performs the steps of one repository in order.
func (it *runState) updateRepository(host repositories.HostRepository, s *settlement) error {
	repo := s.result.Repository
	branchName := entities.BranchName(it.settings.BranchPrefix, it.settings.Package)

	ctx := s.enter("prepare")
	workspace, err := it.workspace.Prepare(ctx, host, repo, branchName, it.settings.Workdir)
	if err != nil {
		return s.fail(err)
	}

	ctx = s.enter("bump")
	plan, err := it.bump(ctx, workspace)
	if err != nil {
		return s.fail(err)
	}
	s.result.Plan = &plan

	ctx = s.enter("commit")
	if _, err = it.workspace.RecordChangelog(ctx, workspace, []string{plan.ChangelogEntry()}); err != nil {
		return s.fail(err)
	}
	if _, err = it.workspace.Commit(ctx, workspace, plan.Title(), it.settings.Git); err != nil {
		return s.fail(err)
	}
	if it.opts.DryRun {
		logging.FromContext(ctx).Infof("[orchestrator] dry run, %s committed locally in %s", plan.Title(), workspace.Dir)
		s.result.Outcome = entities.OutcomePlanned
		return nil
	}

	ctx = s.enter("push")
	if err = it.workspace.Push(ctx, host, workspace); err != nil {
		return s.fail(err)
	}

	ctx = s.enter("change-note")
	description := describePlan(plan, it.changeNote(ctx, plan))

	ctx = s.enter("reconcile")
	request, err := it.reconciler.Reconcile(ctx, host, repo, plan.BranchName, plan.Title(), description)
	if err != nil {
		return s.fail(err)
	}
	s.result.ReviewRequest = request

	ctx = s.enter("merge")
	state, err := it.gate.AttemptMerge(ctx, host, repo, *request, !plan.Breaking)
	if err != nil {
		return s.fail(err)
	}
	if state == entities.MergeMerged {
		s.result.Outcome = entities.OutcomeMerged
	} else {
		s.result.Outcome = entities.OutcomeAwaitingReview
	}
	return nil
}

// bump points the manifest at "^latest" and returns the resulting plan.
func (it *runState) bump(ctx context.Context, workspace *repositories.Workspace) (entities.UpdatePlan, error) {
	pkg := it.settings.Package

	manifest, err := it.manifests.Read(ctx, workspace.Dir)
	if err != nil {
		return entities.UpdatePlan{}, err
	}
	section, versionRange, err := manifest.Locate(pkg)
	if err != nil {
		return entities.UpdatePlan{}, err
	}
	pinned, err := entities.ExactVersion(versionRange)
	if err != nil {
		return entities.UpdatePlan{}, err
	}

	latest, err := it.latest()
	if err != nil {
		return entities.UpdatePlan{}, fmt.Errorf("failed to query the latest version of %q: %w", pkg, err)
	}
	newer, err := entities.IsNewer(latest, pinned)
	if err != nil {
		return entities.UpdatePlan{}, err
	}
	if !newer {
		return entities.UpdatePlan{}, &entities.RegistryLagError{Package: pkg, Pinned: pinned, Latest: latest}
	}

	if err = it.manifests.SetVersion(ctx, workspace.Dir, section, pkg, "^"+latest); err != nil {
		return entities.UpdatePlan{}, err
	}
	return entities.NewUpdatePlan(pkg, workspace.Repository, pinned, latest, workspace.Branch), nil
}

// changeNote renders the package's own history between the two versions.
// It degrades to an empty note, the description then only carries the version summary.
func (it *runState) changeNote(ctx context.Context, plan entities.UpdatePlan) string {
	log := logging.FromContext(ctx)

	source, err := it.source()
	if err != nil {
		log.Warnf("[change-note] %v", err)
		return ""
	}
	note, err := it.publisher.BuildChangeNote(ctx, source.host, source.repo,
		fmt.Sprintf(it.settings.TagFormat, plan.BeforeVersion),
		fmt.Sprintf(it.settings.TagFormat, plan.AfterVersion),
	)
	if err != nil {
		log.Warnf("[change-note] %v", err)
		return ""
	}
	return note
}

func (it *runState) resolveSource(ctx context.Context) (sourceRepository, error) {
	source := it.settings.SourceRepository()
	for _, branch := range it.branches {
		if branch.settings.Type != source.Host || source.Organization == "" {
			continue
		}
		repo, err := branch.client.ResolveRepository(ctx, source.Organization, source.Name)
		if err != nil {
			return sourceRepository{}, fmt.Errorf("%w: %s/%s: %w",
				entities.ErrSourceNotResolved, source.Organization, source.Name, err)
		}
		return sourceRepository{host: branch.client, repo: repo}, nil
	}
	return sourceRepository{}, fmt.Errorf("%w: no %s host configured for %s/%s",
		entities.ErrSourceNotResolved, source.Host, source.Organization, source.Name)
}
