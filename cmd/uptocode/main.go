package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/uptocode/internal"
	"github.com/rios0rios0/uptocode/internal/infrastructure/controllers"
)

// flagAdder is implemented by controllers with subcommand-specific flags.
type flagAdder interface {
	AddFlags(cmd *cobra.Command)
}

func buildRootCommand() *cobra.Command {
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{
		Use:   "uptocode",
		Short: "Keep every dependant of a package up to date",
		Long: `Bump one npm package across every repository that depends on it.

Repositories are discovered in GitHub organizations and GitLab groups.
Each dependant gets a branch with the new version, a review request
describing the commits between the two releases, and is merged once
its pipeline succeeds. Major version bumps wait for a human review.

Usage:
  uptocode scan --package @acme/ui --github-org acme
  uptocode run  --package @acme/ui --github-org acme --gitlab-org acme-group`,
		SilenceUsage: true,
	}
	controllers.AddSettingsFlags(cmd.PersistentFlags())
	return cmd
}

func addSubcommands(rootCmd *cobra.Command, appContext *internal.AppInternal) {
	for _, controller := range appContext.GetControllers() {
		bind := controller.GetBind()
		//nolint:exhaustruct // Minimal Command initialization with required fields only
		subCmd := &cobra.Command{
			Use:   bind.Use,
			Short: bind.Short,
			Long:  bind.Long,
			Args:  cobra.NoArgs,
			RunE:  controller.Execute,
		}

		if adder, ok := controller.(flagAdder); ok {
			adder.AddFlags(subCmd)
		}

		rootCmd.AddCommand(subCmd)
	}
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("Failed to load .env: %v", err)
	}
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	cobraRoot := buildRootCommand()
	addSubcommands(cobraRoot, injectAppContext())

	if err := cobraRoot.Execute(); err != nil {
		logger.Fatalf("Error executing 'uptocode': %s", err)
	}
}
