package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	HostGitHub = "github"
	HostGitLab = "gitlab"

	defaultBranchPrefix    = "uptocode-"
	defaultTagFormat       = "v%s"
	defaultBotAuthor       = "semantic-release-bot"
	defaultWorkdir         = "repos"
	defaultConcurrency     = 8
	defaultPollInterval    = 30 * time.Second
	defaultPipelineTimeout = 30 * time.Minute
	defaultAuthorName      = "uptocode[bot]"
	defaultAuthorEmail     = "uptocode[bot]@users.noreply.github.com"
)

var (
	ErrConfigNotFound = errors.New("config file not found in default locations")
	ErrNoPackage      = errors.New("a package name is required")
	ErrNoHosts        = errors.New("at least one host must be configured")
)

// Settings is the full configuration of a run.
type Settings struct {
	Package      string         `yaml:"package"`
	Registry     string         `yaml:"registry"`
	Hosts        []HostSettings `yaml:"hosts"`
	Languages    []string       `yaml:"languages"`
	Workdir      string         `yaml:"workdir"`
	BranchPrefix string         `yaml:"branch_prefix"`
	TagFormat    string         `yaml:"tag_format"`
	BotAuthor    string         `yaml:"bot_author"`
	Source       SourceSettings `yaml:"source"`
	Merge        MergeSettings  `yaml:"merge"`
	Concurrency  int            `yaml:"concurrency"`
	Git          GitSettings    `yaml:"git"`
	MetricsFile  string         `yaml:"metrics_file"`
}

// HostSettings describes one hosting platform and the organization scanned on it.
type HostSettings struct {
	Type         string `yaml:"type"`         // "github" or "gitlab"
	Organization string `yaml:"organization"` // org on GitHub, group on GitLab
	Token        string `yaml:"token"`        // inline, ${ENV_VAR}, or file path
	BaseURL      string `yaml:"base_url"`
	User         string `yaml:"user"`
}

// SourceSettings points at the repository the package itself is developed in.
type SourceSettings struct {
	Host         string `yaml:"host"`
	Organization string `yaml:"organization"`
	Name         string `yaml:"name"`
}

// MergeSettings tunes the pipeline poll of the merge gate.
type MergeSettings struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`
}

// GitSettings is the identity used for bump commits.
type GitSettings struct {
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewSettings reads a YAML settings file and resolves its tokens.
// Defaults are applied, validation is left to the caller once flags are merged.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	settings := &Settings{}
	if unmarshalErr := yaml.Unmarshal(data, settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	for i := range settings.Hosts {
		settings.Hosts[i].Token = ResolveToken(settings.Hosts[i].Token)
	}
	settings.ApplyDefaults()
	return settings, nil
}

// NewDefaultSettings returns settings for runs driven only by flags and environment.
func NewDefaultSettings() *Settings {
	settings := &Settings{}
	settings.ApplyDefaults()
	return settings
}

// ApplyDefaults fills every unset optional field.
func (s *Settings) ApplyDefaults() {
	if len(s.Languages) == 0 {
		s.Languages = []string{"JavaScript", "TypeScript"}
	}
	if s.Workdir == "" {
		s.Workdir = defaultWorkdir
	}
	if s.BranchPrefix == "" {
		s.BranchPrefix = defaultBranchPrefix
	}
	if s.TagFormat == "" {
		s.TagFormat = defaultTagFormat
	}
	if s.BotAuthor == "" {
		s.BotAuthor = defaultBotAuthor
	}
	if s.Concurrency <= 0 {
		s.Concurrency = defaultConcurrency
	}
	if s.Merge.PollInterval <= 0 {
		s.Merge.PollInterval = defaultPollInterval
	}
	if s.Merge.PipelineTimeout <= 0 {
		s.Merge.PipelineTimeout = defaultPipelineTimeout
	}
	if s.Git.AuthorName == "" {
		s.Git.AuthorName = defaultAuthorName
	}
	if s.Git.AuthorEmail == "" {
		s.Git.AuthorEmail = defaultAuthorEmail
	}
}

// Host returns the settings of the given host type, or nil.
func (s *Settings) Host(hostType string) *HostSettings {
	for i := range s.Hosts {
		if s.Hosts[i].Type == hostType {
			return &s.Hosts[i]
		}
	}
	return nil
}

// OverrideHost merges non-empty values into the host of that type.
// A missing host is only added when the override names its organization.
func (s *Settings) OverrideHost(override HostSettings) {
	host := s.Host(override.Type)
	if host == nil {
		if override.Organization == "" {
			return
		}
		s.Hosts = append(s.Hosts, HostSettings{Type: override.Type})
		host = &s.Hosts[len(s.Hosts)-1]
	}
	if override.Organization != "" {
		host.Organization = override.Organization
	}
	if override.Token != "" {
		host.Token = ResolveToken(override.Token)
	}
	if override.BaseURL != "" {
		host.BaseURL = override.BaseURL
	}
	if override.User != "" {
		host.User = override.User
	}
}

// SourceRepository returns where the package is developed, defaulting to
// the unscoped package name in the first GitHub organization.
func (s *Settings) SourceRepository() SourceSettings {
	source := s.Source
	if source.Host == "" {
		source.Host = HostGitHub
	}
	if source.Organization == "" {
		if host := s.Host(source.Host); host != nil {
			source.Organization = host.Organization
		}
	}
	if source.Name == "" {
		name := s.Package
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		source.Name = name
	}
	return source
}

// Validate checks the values a run cannot start without.
func (s *Settings) Validate() error {
	if s.Package == "" {
		return ErrNoPackage
	}
	if len(s.Hosts) == 0 {
		return ErrNoHosts
	}

	for i, host := range s.Hosts {
		if host.Type != HostGitHub && host.Type != HostGitLab {
			return fmt.Errorf("hosts[%d].type must be %q or %q, got %q", i, HostGitHub, HostGitLab, host.Type)
		}
		if host.Organization == "" {
			return fmt.Errorf("hosts[%d].organization is required", i)
		}
		if host.Token == "" {
			return fmt.Errorf(
				"hosts[%d].token is required for %s (set inline, via ${ENV_VAR}, or as file path)",
				i, host.Type,
			)
		}
	}

	return nil
}

// FindConfigFile searches for a configuration file in standard locations.
func FindConfigFile() (string, error) {
	locations := []string{".", ".config", "configs"}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{
		".uptocode.yaml",
		".uptocode.yml",
		"uptocode.yaml",
		"uptocode.yml",
	}

	for _, location := range locations {
		for _, pattern := range patterns {
			candidate := filepath.Join(location, pattern)
			if _, statErr := os.Stat(candidate); statErr == nil {
				return candidate, nil
			}
		}
	}

	return "", ErrConfigNotFound
}

// ResolveToken expands ${VAR} references and, when the result is an existing
// file, reads the token from it.
func ResolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Debugf("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}
