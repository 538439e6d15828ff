package controllers

import (
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

const envPrefix = "UPTOCODE"

// AddSettingsFlags adds the flags shared by every subcommand, usually as persistent flags of the root.
func AddSettingsFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "Path to the settings file (default: auto-detect)")
	flags.StringP("package", "p", "", "Package whose dependants are bumped, e.g. @acme/ui")
	flags.String("github-org", "", "GitHub organization to scan")
	flags.String("github-token", "", "GitHub token (default: $GITHUB_TOKEN)")
	flags.String("gitlab-org", "", "GitLab group to scan")
	flags.String("gitlab-token", "", "GitLab token (default: $GITLAB_TOKEN)")
	flags.String("gitlab-host", "", "GitLab base URL for self-managed instances")
	flags.BoolP("verbose", "v", false, "Enable verbose output")
}

// loadSettings merges, highest precedence first, flags, environment and the settings file.
func loadSettings(cmd *cobra.Command) (*entities.Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	_ = v.BindEnv("github-token", envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("gitlab-token", envPrefix+"_GITLAB_TOKEN", "GITLAB_TOKEN")

	if v.GetBool("verbose") {
		logger.SetLevel(logger.DebugLevel)
	}

	settings, err := readSettingsFile(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	if pkg := v.GetString("package"); pkg != "" {
		settings.Package = pkg
	}
	settings.OverrideHost(entities.HostSettings{
		Type:         entities.HostGitHub,
		Organization: v.GetString("github-org"),
		Token:        v.GetString("github-token"),
	})
	settings.OverrideHost(entities.HostSettings{
		Type:         entities.HostGitLab,
		Organization: v.GetString("gitlab-org"),
		Token:        v.GetString("gitlab-token"),
		BaseURL:      v.GetString("gitlab-host"),
	})
	overrideRunSettings(v, settings)

	if err = settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func readSettingsFile(path string) (*entities.Settings, error) {
	if path == "" {
		found, err := entities.FindConfigFile()
		if err != nil {
			logger.Debugf("No settings file found, using flags and environment only")
			return entities.NewDefaultSettings(), nil
		}
		path = found
	}
	logger.Infof("Using settings file: %s", path)
	return entities.NewSettings(path)
}

// overrideRunSettings applies the run-only flags that were explicitly given.
func overrideRunSettings(v *viper.Viper, settings *entities.Settings) {
	if v.IsSet("registry") {
		settings.Registry = v.GetString("registry")
	}
	if v.IsSet("workdir") {
		settings.Workdir = v.GetString("workdir")
	}
	if v.IsSet("poll-interval") {
		settings.Merge.PollInterval = v.GetDuration("poll-interval")
	}
	if v.IsSet("pipeline-timeout") {
		settings.Merge.PipelineTimeout = v.GetDuration("pipeline-timeout")
	}
	if v.IsSet("concurrency") {
		settings.Concurrency = v.GetInt("concurrency")
	}
	if v.IsSet("metrics-file") {
		settings.MetricsFile = v.GetString("metrics-file")
	}
}
