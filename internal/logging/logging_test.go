//go:build unit

package logging_test

import (
	"context"
	"testing"

	logger "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/rios0rios0/uptocode/internal/logging"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("should fall back to the standard logger when the context has no entry", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		// when
		entry := logging.FromContext(ctx)

		// then
		assert.Equal(t, logger.StandardLogger(), entry.Logger)
		assert.Empty(t, entry.Data)
	})

	t.Run("should accumulate fields across derived contexts", func(t *testing.T) {
		t.Parallel()

		// given
		ctx, _ := logging.WithFields(context.Background(), logger.Fields{"host": "github"})

		// when
		ctx, entry := logging.WithFields(ctx, logger.Fields{"repository": "acme/web"})

		// then
		assert.Equal(t, "github", entry.Data["host"])
		assert.Equal(t, "acme/web", entry.Data["repository"])
		assert.Equal(t, entry, logging.FromContext(ctx))
	})
}
