package controllers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/uptocode/internal/domain/commands"
	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

// ScanController handles the "scan" subcommand.
type ScanController struct {
	command commands.Scan
}

// NewScanController creates a new ScanController.
func NewScanController(command commands.Scan) *ScanController {
	return &ScanController{command: command}
}

// GetBind returns the Cobra command metadata for the scan controller.
func (it *ScanController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "scan",
		Short: "List the repositories depending on the package",
		Long: `List, per configured host, the repositories that declare the package
in exactly one dependency section. Nothing is cloned or changed.`,
	}
}

// Execute prints the dependants of every host.
func (it *ScanController) Execute(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := it.command.Execute(ctx, settings)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, result := range results {
		if result.Err != nil {
			_, _ = fmt.Fprintf(out, "%s/%s: %v\n", result.Host, result.Organization, result.Err)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s/%s: %d dependants of %s\n",
			result.Host, result.Organization, len(result.Dependants), settings.Package)
		for _, repo := range result.Dependants {
			_, _ = fmt.Fprintf(out, "  %s\n", repo.FullName())
		}
	}
	return nil
}
