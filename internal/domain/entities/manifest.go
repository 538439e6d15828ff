package entities

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// ManifestFileName is the dependency descriptor read and edited in every repository.
const ManifestFileName = "package.json"

// DependencySection names one of the three dependency mappings of a manifest.
type DependencySection string

const (
	Dependencies     DependencySection = "dependencies"
	DevDependencies  DependencySection = "devDependencies"
	PeerDependencies DependencySection = "peerDependencies"
)

// DependencySections lists the sections in the order they are inspected.
func DependencySections() []DependencySection {
	return []DependencySection{Dependencies, DevDependencies, PeerDependencies}
}

// Manifest holds the dependency mappings of a package.json, package name to version range.
type Manifest struct {
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// ParseManifest decodes the dependency mappings out of a package.json document.
func ParseManifest(content []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(content, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFileName, err)
	}
	return &manifest, nil
}

func (m *Manifest) section(section DependencySection) map[string]string {
	switch section {
	case Dependencies:
		return m.Dependencies
	case DevDependencies:
		return m.DevDependencies
	case PeerDependencies:
		return m.PeerDependencies
	}
	return nil
}

// Declarations returns every section declaring the package.
func (m *Manifest) Declarations(packageName string) []DependencySection {
	var found []DependencySection
	for _, section := range DependencySections() {
		if _, ok := m.section(section)[packageName]; ok {
			found = append(found, section)
		}
	}
	return found
}

// Locate returns the section and version range of the package.
// It fails with a ManifestError unless exactly one section declares it.
func (m *Manifest) Locate(packageName string) (DependencySection, string, error) {
	sections := m.Declarations(packageName)
	switch len(sections) {
	case 0:
		return "", "", &ManifestError{Package: packageName, Err: ErrPackageNotDeclared}
	case 1:
		return sections[0], m.section(sections[0])[packageName], nil
	default:
		return "", "", &ManifestError{Package: packageName, Sections: sections, Err: ErrPackageDeclaredTwice}
	}
}

// exactVersionPattern finds the first full version inside a range such as "^1.2.3" or "~1.2.3-rc.1".
var exactVersionPattern = regexp.MustCompile(
	`\d+\.\d+\.\d+(?:-[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?(?:\+[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?`,
)

// ExactVersion extracts the concrete version pinned by a version range.
func ExactVersion(versionRange string) (string, error) {
	match := exactVersionPattern.FindString(versionRange)
	if match == "" {
		return "", fmt.Errorf("no exact version in range %q", versionRange)
	}
	version, err := semver.NewVersion(match)
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", match, err)
	}
	return version.String(), nil
}

// IsNewer reports whether candidate is strictly greater than current.
func IsNewer(candidate, current string) (bool, error) {
	candidateVersion, err := semver.NewVersion(candidate)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", candidate, err)
	}
	currentVersion, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", current, err)
	}
	return candidateVersion.GreaterThan(currentVersion), nil
}
