package entities

import "strings"

// ReviewRequestState is the normalized lifecycle state of a pull or merge request.
type ReviewRequestState string

const (
	ReviewRequestOpen   ReviewRequestState = "open"
	ReviewRequestClosed ReviewRequestState = "closed"
	ReviewRequestMerged ReviewRequestState = "merged"
)

// ReviewRequest is a pull request on GitHub or a merge request on GitLab.
// For one repository and source branch at most one of them may be open.
type ReviewRequest struct {
	ID           int64
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
	State        ReviewRequestState
	HeadRevision string
	WebURL       string
}

// ReviewRequestInput carries the fields written when creating or updating a request.
type ReviewRequestInput struct {
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
}

// Matches reports whether the persisted title and description equal the input.
// Hosts rewrite line endings and trailing whitespace, those differences are ignored.
func (r ReviewRequest) Matches(input ReviewRequestInput) (bool, string) {
	if normalizeText(r.Title) != normalizeText(input.Title) {
		return false, "title"
	}
	if normalizeText(r.Description) != normalizeText(input.Description) {
		return false, "description"
	}
	return true, ""
}

func normalizeText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}
