package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPackageNotDeclared   = errors.New("package is not declared in any dependency section")
	ErrPackageDeclaredTwice = errors.New("package is declared in more than one dependency section")
	ErrSourceNotResolved    = errors.New("package source repository could not be resolved")
)

// DiscoveryError aborts the whole host branch; paging state cannot be trusted after it.
type DiscoveryError struct {
	Host         string
	Organization string
	Err          error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed on %s for %q: %v", e.Host, e.Organization, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ManifestError reports a package that is missing or declared in several sections.
type ManifestError struct {
	Package  string
	Sections []DependencySection
	Err      error
}

func (e *ManifestError) Error() string {
	if len(e.Sections) == 0 {
		return fmt.Sprintf("manifest error for %q: %v", e.Package, e.Err)
	}
	names := make([]string, 0, len(e.Sections))
	for _, section := range e.Sections {
		names = append(names, string(section))
	}
	return fmt.Sprintf("manifest error for %q (%s): %v", e.Package, strings.Join(names, ", "), e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// RegistryLagError is returned when the registry does not publish anything newer than the pinned version.
type RegistryLagError struct {
	Package string
	Pinned  string
	Latest  string
}

func (e *RegistryLagError) Error() string {
	return fmt.Sprintf("registry latest %s of %q is not newer than pinned %s", e.Latest, e.Package, e.Pinned)
}

// ReviewConflictError means several open review requests share the source branch.
type ReviewConflictError struct {
	SourceBranch string
	IDs          []int64
}

func (e *ReviewConflictError) Error() string {
	return fmt.Sprintf("%d open review requests found for branch %q (%v), resolve manually",
		len(e.IDs), e.SourceBranch, e.IDs)
}

// ReviewUpdateDroppedError means the host accepted an update but did not persist it.
type ReviewUpdateDroppedError struct {
	ID    int64
	Field string
}

func (e *ReviewUpdateDroppedError) Error() string {
	return fmt.Sprintf("review request %d did not persist the updated %s", e.ID, e.Field)
}

// PipelineFailureReason tells why the merge gate gave up.
type PipelineFailureReason string

const (
	PipelineNotFound      PipelineFailureReason = "no-pipeline"
	PipelineTimedOut      PipelineFailureReason = "timeout"
	PipelineUnsuccessful  PipelineFailureReason = "unsuccessful"
	PipelineRevisionDrift PipelineFailureReason = "revision-drift"
	PipelineRequestClosed PipelineFailureReason = "closed"
)

// PipelineError aborts the merge only, the review request stays open.
type PipelineError struct {
	Reason   PipelineFailureReason
	Revision string
	Status   PipelineStatus
	Err      error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("pipeline check failed (%s) for revision %s", e.Reason, e.Revision)
	if e.Status != "" {
		msg += fmt.Sprintf(", status %s", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StepError attaches the pipeline step that failed to an error.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }
