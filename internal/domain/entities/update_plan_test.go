//go:build unit

package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

func TestNewUpdatePlan(t *testing.T) {
	t.Parallel()

	repo := entities.Repository{Organization: "acme", Name: "web"}

	t.Run("should flag a major version change as breaking", func(t *testing.T) {
		t.Parallel()

		// when
		plan := entities.NewUpdatePlan("@acme/ui", repo, "1.9.0", "2.0.0", "uptocode-acme-ui")

		// then
		assert.True(t, plan.Breaking)
		assert.Equal(t, "chore(deps): bump @acme/ui from 1.9.0 to 2.0.0", plan.Title())
		assert.Equal(t, "- changed the `@acme/ui` dependency from `1.9.0` to `2.0.0`", plan.ChangelogEntry())
	})

	t.Run("should not flag a minor version change", func(t *testing.T) {
		t.Parallel()

		// when
		plan := entities.NewUpdatePlan("@acme/ui", repo, "1.4.0", "1.5.2", "uptocode-acme-ui")

		// then
		assert.False(t, plan.Breaking)
	})
}

func TestBranchName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pkg      string
		expected string
	}{
		{"@acme/ui", "uptocode-acme-ui"},
		{"left-pad", "uptocode-left-pad"},
	}
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, entities.BranchName("uptocode-", tt.pkg))
		})
	}
}
