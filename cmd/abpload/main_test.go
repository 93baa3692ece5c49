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

func TestCodesCommand(t *testing.T) {
	out, err := execute(t, "codes", "postal")
	require.NoError(t, err)
	assert.Contains(t, out, "postal")
	assert.Contains(t, out, "Record linked to PAF")
	assert.NotContains(t, out, "England")
}

func TestCodesCommandAllTables(t *testing.T) {
	out, err := execute(t, "codes")
	require.NoError(t, err)
	for _, want := range []string{"postal", "country", "rpc", "state"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "England")
	assert.Contains(t, out, "Under construction")
}

func TestCodesCommandUnknownTable(t *testing.T) {
	_, err := execute(t, "codes", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown code table "nope"`)
}

func TestLoadWithoutInputs(t *testing.T) {
	_, err := execute(t, "load")
	require.Error(t, err)
	assert.EqualError(t, err, "no input files given")
}
