package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckCommand(t *testing.T) {
	cmd := newCheckCommand()
	assert.Equal(t, "check PATH", cmd.Use)
}

func TestCheckCommandReportsConsistent(t *testing.T) {
	path := createTestPool(t, "app")

	cmd := newCheckCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{path, "--layout", "app"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "consistent")
}
