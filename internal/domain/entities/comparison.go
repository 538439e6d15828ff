package entities

// Commit is one entry of a revision comparison.
type Commit struct {
	ID         string
	AuthorName string
	Message    string
	WebURL     string
}

// Comparison is the result of comparing two revisions on a host.
// Commits are ordered newest first.
type Comparison struct {
	BaseRevision string
	HeadRevision string
	WebURL       string
	Commits      []Commit
}
