//go:build unit

package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rios0rios0/uptocode/internal/domain/entities"
)

func TestReviewRequestMatches(t *testing.T) {
	t.Parallel()

	t.Run("should ignore line endings and surrounding whitespace", func(t *testing.T) {
		t.Parallel()

		// given
		request := entities.ReviewRequest{Title: "bump", Description: "line one\r\nline two\r\n"}

		// when
		ok, field := request.Matches(entities.ReviewRequestInput{Title: "bump ", Description: "line one\nline two"})

		// then
		assert.True(t, ok)
		assert.Empty(t, field)
	})

	t.Run("should name the field that differs", func(t *testing.T) {
		t.Parallel()

		// given
		request := entities.ReviewRequest{Title: "bump", Description: "old"}

		// when
		ok, field := request.Matches(entities.ReviewRequestInput{Title: "bump", Description: "new"})

		// then
		assert.False(t, ok)
		assert.Equal(t, "description", field)
	})
}
