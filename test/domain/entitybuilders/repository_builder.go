//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"
	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

// RepositoryBuilder helps create test repositories with a fluent interface.
type RepositoryBuilder struct {
	*testkit.BaseBuilder
	id             int64
	host           string
	organization   string
	name           string
	language       string
	pushPermission bool
	archived       bool
	defaultBranch  string
}

// NewRepositoryBuilder creates a pushable, active JavaScript repository on GitHub.
func NewRepositoryBuilder() *RepositoryBuilder {
	b := &RepositoryBuilder{BaseBuilder: testkit.NewBaseBuilder()}
	b.defaults()
	return b
}

func (b *RepositoryBuilder) defaults() {
	b.id = 1
	b.host = entities.HostGitHub
	b.organization = "acme"
	b.name = "web"
	b.language = "JavaScript"
	b.pushPermission = true
	b.archived = false
	b.defaultBranch = "main"
}

func (b *RepositoryBuilder) WithID(id int64) *RepositoryBuilder {
	b.id = id
	return b
}

func (b *RepositoryBuilder) WithHost(host string) *RepositoryBuilder {
	b.host = host
	return b
}

func (b *RepositoryBuilder) WithOrganization(organization string) *RepositoryBuilder {
	b.organization = organization
	return b
}

func (b *RepositoryBuilder) WithName(name string) *RepositoryBuilder {
	b.name = name
	return b
}

func (b *RepositoryBuilder) WithLanguage(language string) *RepositoryBuilder {
	b.language = language
	return b
}

func (b *RepositoryBuilder) WithoutPushPermission() *RepositoryBuilder {
	b.pushPermission = false
	return b
}

func (b *RepositoryBuilder) Archived() *RepositoryBuilder {
	b.archived = true
	return b
}

func (b *RepositoryBuilder) WithDefaultBranch(branch string) *RepositoryBuilder {
	b.defaultBranch = branch
	return b
}

// Build creates the repository (satisfies testkit.Builder interface).
func (b *RepositoryBuilder) Build() interface{} {
	return b.BuildRepository()
}

// BuildRepository creates the repository with a concrete return type.
func (b *RepositoryBuilder) BuildRepository() entities.Repository {
	return entities.Repository{
		ID:              b.id,
		Host:            b.host,
		Organization:    b.organization,
		Name:            b.name,
		PrimaryLanguage: b.language,
		PushPermission:  b.pushPermission,
		Archived:        b.archived,
		DefaultBranch:   b.defaultBranch,
		CloneURL:        "https://example.com/" + b.organization + "/" + b.name + ".git",
		WebURL:          "https://example.com/" + b.organization + "/" + b.name,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *RepositoryBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.defaults()
	return b
}

// Clone creates a deep copy of the RepositoryBuilder.
func (b *RepositoryBuilder) Clone() testkit.Builder {
	clone := *b
	clone.BaseBuilder = b.BaseBuilder.Clone().(*testkit.BaseBuilder)
	return &clone
}
