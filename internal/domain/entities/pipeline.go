package entities

// PipelineStatus is the normalized CI status shared by both hosts.
type PipelineStatus string

const (
	PipelinePending  PipelineStatus = "pending"
	PipelineRunning  PipelineStatus = "running"
	PipelineSuccess  PipelineStatus = "success"
	PipelineFailure  PipelineStatus = "failure"
	PipelineCanceled PipelineStatus = "canceled"
)

// IsTerminal is false while the pipeline is pending or running.
func (s PipelineStatus) IsTerminal() bool {
	return s != PipelinePending && s != PipelineRunning
}

// Pipeline is a CI run for one commit revision.
type Pipeline struct {
	ID       int64
	Revision string
	Status   PipelineStatus
	WebURL   string
}

// MergeState tracks how far the merge gate got for a review request.
type MergeState string

const (
	MergeDiscovered        MergeState = "discovered"
	MergePipelineFound     MergeState = "pipeline-found"
	MergePipelineTerminal  MergeState = "pipeline-terminal"
	MergeRevisionConfirmed MergeState = "revision-confirmed"
	MergeMerged            MergeState = "merged"
	MergeAborted           MergeState = "aborted"
)
