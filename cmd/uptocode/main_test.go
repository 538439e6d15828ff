//go:build unit

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectAppContext(t *testing.T) {
	t.Parallel()

	t.Run("should resolve every controller from the container", func(t *testing.T) {
		t.Parallel()

		// given
		root := buildRootCommand()

		// when
		addSubcommands(root, injectAppContext())

		// then
		names := make([]string, 0, len(root.Commands()))
		for _, sub := range root.Commands() {
			names = append(names, sub.Name())
		}
		assert.ElementsMatch(t, []string{"run", "scan"}, names)

		run, _, err := root.Find([]string{"run"})
		require.NoError(t, err)
		assert.NotNil(t, run.Flags().Lookup("dry-run"))
		assert.NotNil(t, run.Flags().Lookup("metrics-file"))
		assert.NotNil(t, root.PersistentFlags().Lookup("github-org"))
	})
}
