package commands

// RenderChangeNote exports renderChangeNote for testing.
var RenderChangeNote = renderChangeNote //nolint:gochecknoglobals // test export

// DescribePlan exports describePlan for testing.
var DescribePlan = describePlan //nolint:gochecknoglobals // test export

// OutcomeOf exports outcomeOf for testing.
var OutcomeOf = outcomeOf //nolint:gochecknoglobals // test export
