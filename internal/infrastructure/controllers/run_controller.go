package controllers

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/uptocode/internal/domain/commands"
	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

// RunController handles the "run" subcommand.
type RunController struct {
	command commands.Run
}

// NewRunController creates a new RunController.
func NewRunController(command commands.Run) *RunController {
	return &RunController{command: command}
}

// GetBind returns the Cobra command metadata for the run controller.
func (it *RunController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "run",
		Short: "Bump the package in every dependant repository",
		Long: `Find the repositories depending on the package in every configured
GitHub organization and GitLab group, bump it to the latest published
version, open or update a review request with the change notes, and merge
it once its pipeline succeeds. Major bumps are left open for review.

The command exits 0 once the batch completed, whatever the individual
outcomes. It only fails when the settings are incomplete.`,
	}
}

// AddFlags adds the run-specific flags to the given Cobra command.
func (it *RunController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Clone, bump and commit locally without pushing anything")
	cmd.Flags().String("workdir", "", "Directory the repositories are cloned into (default: repos)")
	cmd.Flags().Duration("poll-interval", 0, "Interval between two pipeline status checks (default: 30s)")
	cmd.Flags().Duration("pipeline-timeout", 0, "How long to wait for a pipeline before giving up (default: 30m)")
	cmd.Flags().Int("concurrency", 0, "Repositories processed at the same time (default: 8)")
	cmd.Flags().String("metrics-file", "", "Write run metrics to this file in Prometheus text format")
	cmd.Flags().String("registry", "", "npm registry to query for the latest version")
}

// Execute runs the batch.
func (it *RunController) Execute(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Infof("Starting uptocode run for %q...", settings.Package)
	report, err := it.command.Execute(ctx, settings, commands.RunOptions{DryRun: dryRun})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printReport(cmd.OutOrStdout(), report)
	return nil
}

func printReport(out io.Writer, report *entities.RunReport) {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(writer, "OUTCOME\tHOST\tREPOSITORY\tBUMP\tREVIEW\n")
	for _, result := range report.Results {
		bump := "-"
		if result.Plan != nil {
			bump = result.Plan.BeforeVersion + " -> " + result.Plan.AfterVersion
		}
		review := "-"
		if result.ReviewRequest != nil {
			review = result.ReviewRequest.WebURL
		}
		_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			result.Outcome, result.Repository.Host, result.Repository.FullName(), bump, review)
	}
	for _, failure := range report.Failures {
		_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t-\t%v\n",
			entities.OutcomeFailed, failure.Host, failure.Organization, failure.Err)
	}
	_ = writer.Flush()
	_, _ = fmt.Fprintf(out, "%d repositories in %s\n", len(report.Results), report.Duration.Round(time.Second))
}
