package entities

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// UpdatePlan describes the bump performed on one repository during a run.
// It is built once and passed by value.
type UpdatePlan struct {
	PackageName   string
	Repository    Repository
	BeforeVersion string
	AfterVersion  string
	BranchName    string
	Breaking      bool
}

// NewUpdatePlan builds a plan, marking it breaking when the major version changes.
func NewUpdatePlan(packageName string, repository Repository, before, after, branch string) UpdatePlan {
	return UpdatePlan{
		PackageName:   packageName,
		Repository:    repository,
		BeforeVersion: before,
		AfterVersion:  after,
		BranchName:    branch,
		Breaking:      semver.Major(canonical(before)) != semver.Major(canonical(after)),
	}
}

// Title is used both as the commit subject and the review request title.
func (p UpdatePlan) Title() string {
	return fmt.Sprintf("chore(deps): bump %s from %s to %s", p.PackageName, p.BeforeVersion, p.AfterVersion)
}

// ChangelogEntry is the Keep-a-Changelog bullet recorded for the bump.
func (p UpdatePlan) ChangelogEntry() string {
	return fmt.Sprintf("- changed the `%s` dependency from `%s` to `%s`", p.PackageName, p.BeforeVersion, p.AfterVersion)
}

// BranchName derives the working branch of a package, e.g. "@acme/ui" gives "uptocode-acme-ui".
func BranchName(prefix, packageName string) string {
	name := strings.TrimPrefix(packageName, "@")
	name = strings.ReplaceAll(name, "/", "-")
	return prefix + name
}

func canonical(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
