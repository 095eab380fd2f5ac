package main

import (
	"errors"
	"testing"

	"ab-retention/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "bootstrap")
	assert.Contains(t, names, "retention")
}

func TestBootstrap_UnknownMetric(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"bootstrap", "--metric", "LTV"})
	root.SilenceErrors = true
	err := root.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidParameter))
}

func TestRetention_MissingDSN(t *testing.T) {
	t.Setenv(dsnEnv, "")
	root := newRootCommand()
	root.SetArgs([]string{"retention", "--start", "2024-01-01", "--end", "2024-02-01"})
	root.SilenceErrors = true
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing DSN")
}
