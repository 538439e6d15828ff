//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"maps"

	testkit "github.com/rios0rios0/testkit/pkg/test"
	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

// ManifestBuilder helps create package manifests with a fluent interface.
type ManifestBuilder struct {
	*testkit.BaseBuilder
	sections map[entities.DependencySection]map[string]string
}

// NewManifestBuilder creates a manifest without dependencies.
func NewManifestBuilder() *ManifestBuilder {
	return &ManifestBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		sections:    make(map[entities.DependencySection]map[string]string),
	}
}

// WithDependency declares pkg inside section with the given range.
func (b *ManifestBuilder) WithDependency(
	section entities.DependencySection, pkg, versionRange string,
) *ManifestBuilder {
	if b.sections[section] == nil {
		b.sections[section] = make(map[string]string)
	}
	b.sections[section][pkg] = versionRange
	return b
}

// Build creates the manifest (satisfies testkit.Builder interface).
func (b *ManifestBuilder) Build() interface{} {
	return b.BuildManifest()
}

// BuildManifest creates the manifest with a concrete return type.
func (b *ManifestBuilder) BuildManifest() *entities.Manifest {
	return &entities.Manifest{
		Dependencies:     maps.Clone(b.sections[entities.Dependencies]),
		DevDependencies:  maps.Clone(b.sections[entities.DevDependencies]),
		PeerDependencies: maps.Clone(b.sections[entities.PeerDependencies]),
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *ManifestBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.sections = make(map[entities.DependencySection]map[string]string)
	return b
}

// Clone creates a deep copy of the ManifestBuilder.
func (b *ManifestBuilder) Clone() testkit.Builder {
	sections := make(map[entities.DependencySection]map[string]string, len(b.sections))
	for section, deps := range b.sections {
		sections[section] = maps.Clone(deps)
	}
	return &ManifestBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		sections:    sections,
	}
}
