package cli

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "bkt", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	want := []string{"auth", "repo", "pr", "issue", "pipeline", "api", "config", "tui"}
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range want {
		assert.True(t, names[name], "missing subcommand %s", name)
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"workspace", "repo", "json", "verbose"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "w", cmd.PersistentFlags().Lookup("workspace").Shorthand)
	assert.Equal(t, "r", cmd.PersistentFlags().Lookup("repo").Shorthand)
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	configureLogging(0)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	configureLogging(1)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	configureLogging(2)
	assert.Equal(t, logrus.TraceLevel, logrus.GetLevel())
}
