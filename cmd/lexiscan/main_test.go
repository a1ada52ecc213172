package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSimilarityCommand(t *testing.T) {
	out, err := execute(t, "similarity", "Αγωγή", "αγωγή")
	require.NoError(t, err)
	assert.Equal(t, "1.0000\n", out)

	out, err = execute(t, "similarity", "kitten", "sitting")
	require.NoError(t, err)
	assert.Equal(t, "0.5714\n", out)
}

func TestCommandArgs(t *testing.T) {
	_, err := execute(t, "similarity", "only-one")
	assert.Error(t, err)

	_, err = execute(t, "ocr")
	assert.Error(t, err)

	_, err = execute(t, "analyze")
	assert.Error(t, err)
}
