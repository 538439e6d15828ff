package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
	"github.com/rios0rios0/uptocode/internal/domain/repositories"
)

// ciSkipMarkers are dropped from commit titles, they only make sense on the source repository.
var ciSkipMarkers = []string{" [ci skip]", " [skip ci]"} //nolint:gochecknoglobals // constant list

// ChangeNotePublisher renders the commits between two revisions as Markdown.
type ChangeNotePublisher struct {
	botAuthor string
}

// NewChangeNotePublisher creates a publisher that renders botAuthor's commits without attribution.
func NewChangeNotePublisher(botAuthor string) *ChangeNotePublisher {
	return &ChangeNotePublisher{botAuthor: botAuthor}
}

// BuildChangeNote compares base and head on the repository and renders the result.
func (it *ChangeNotePublisher) BuildChangeNote(
	ctx context.Context,
	host repositories.HostRepository,
	repo entities.Repository,
	baseRevision, headRevision string,
) (string, error) {
	comparison, err := host.CompareRevisions(ctx, repo, baseRevision, headRevision)
	if err != nil {
		return "", fmt.Errorf("failed to compare %s...%s on %s: %w",
			baseRevision, headRevision, repo.FullName(), err)
	}
	return renderChangeNote(comparison, it.botAuthor), nil
}

func renderChangeNote(comparison *entities.Comparison, botAuthor string) string {
	var sb strings.Builder
	sb.WriteString("### Diff\n\n")
	fmt.Fprintf(&sb, "[%s...%s](%s)\n\n", comparison.BaseRevision, comparison.HeadRevision, comparison.WebURL)
	sb.WriteString("### Commits\n\n")

	// hosts return the newest commit first, notes read top to bottom
	commits := slices.Clone(comparison.Commits)
	slices.Reverse(commits)
	for _, commit := range commits {
		title := commitTitle(commit.Message)
		if commit.AuthorName == botAuthor {
			fmt.Fprintf(&sb, "- [%s](%s)\n", title, commit.WebURL)
			continue
		}
		fmt.Fprintf(&sb, "- %s: [%s](%s)\n", commit.AuthorName, title, commit.WebURL)
	}
	return sb.String()
}

func commitTitle(message string) string {
	title, _, _ := strings.Cut(message, "\n")
	for _, marker := range ciSkipMarkers {
		title = strings.ReplaceAll(title, marker, "")
	}
	return strings.TrimSpace(title)
}

// describePlan is the review request body; the change note is appended when available.
func describePlan(plan entities.UpdatePlan, changeNote string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bumps `%s` from `%s` to `%s`.\n", plan.PackageName, plan.BeforeVersion, plan.AfterVersion)
	if plan.Breaking {
		sb.WriteString("\nThis is a major version change, it will not be merged automatically.\n")
	}
	if changeNote != "" {
		sb.WriteString("\n")
		sb.WriteString(changeNote)
	}
	return sb.String()
}
