//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/uptocode/internal/domain/commands"
	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

// StubScanCommand is a stub implementation of commands.Scan.
type StubScanCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	Results          []commands.ScanResult
	LastSettings     *entities.Settings
}

var _ commands.Scan = (*StubScanCommand)(nil)

func (s *StubScanCommand) Execute(_ context.Context, settings *entities.Settings) ([]commands.ScanResult, error) {
	s.ExecuteCallCount++
	s.LastSettings = settings
	return s.Results, s.ExecuteErr
}
