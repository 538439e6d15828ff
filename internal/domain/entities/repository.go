package entities

import "strings"

// Repository is a snapshot of a hosted repository taken during discovery.
// Two repositories are the same when their ID matches, names can repeat across pages.
type Repository struct {
	ID              int64
	Host            string
	Organization    string
	Name            string
	PrimaryLanguage string
	PushPermission  bool
	Archived        bool
	DefaultBranch   string
	CloneURL        string
	WebURL          string
}

// FullName returns the "organization/name" path of the repository.
func (r Repository) FullName() string {
	return r.Organization + "/" + r.Name
}

// HasLanguage reports whether the primary language is one of the given languages.
// An unknown language matches, GitLab does not report one in listings.
func (r Repository) HasLanguage(languages []string) bool {
	if r.PrimaryLanguage == "" || len(languages) == 0 {
		return true
	}
	for _, language := range languages {
		if strings.EqualFold(language, r.PrimaryLanguage) {
			return true
		}
	}
	return false
}
