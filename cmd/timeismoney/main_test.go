package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"text", "--wage", "4", "$20"}, &stdout, &stderr))
	assert.Equal(t, "4.50 h\n", stdout.String())

	stdout.Reset()
	err := execute(context.Background(), []string{"--no-such-flag"}, &stdout, &stderr)
	assert.Error(t, err)
	assert.Contains(t, stderr.String(), "unknown flag")
}
