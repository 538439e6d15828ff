package entities

import "time"

// Outcome is the final state of one repository after a run.
type Outcome string

const (
	OutcomeMerged         Outcome = "merged"
	OutcomeAwaitingReview Outcome = "awaiting-review"
	OutcomeMergeAborted   Outcome = "merge-aborted"
	OutcomePlanned        Outcome = "planned"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFailed         Outcome = "failed"
)

// RepositoryResult is what the orchestrator records for every attempted repository.
type RepositoryResult struct {
	Repository    Repository
	Plan          *UpdatePlan
	ReviewRequest *ReviewRequest
	Outcome       Outcome
	Err           error
}

// HostFailure records a host branch that could not list its repositories.
type HostFailure struct {
	Host         string
	Organization string
	Err          error
}

// RunReport summarizes a run. Individual failures never fail the run itself.
type RunReport struct {
	Package  string
	Results  []RepositoryResult
	Failures []HostFailure
	Duration time.Duration
}

// Count returns how many repositories ended with the given outcome.
func (r *RunReport) Count(outcome Outcome) int {
	count := 0
	for _, result := range r.Results {
		if result.Outcome == outcome {
			count++
		}
	}
	return count
}
