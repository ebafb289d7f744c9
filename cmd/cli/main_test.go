package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/graphunit/internal/testutil"
)

const model = `
model "m" {
  param "w" {
    value = 3
  }
}
graph {
  node "x" {
    op = "placeholder"
  }
  node "w" {
    op     = "get_param"
    target = "w"
  }
  node "y" {
    op     = "call_function"
    target = "mul"
    args   = [x, w]
  }
  node "out" {
    op   = "output"
    args = [y]
  }
}
`

func TestRun_Forward(t *testing.T) {
	t.Parallel()
	dir := testutil.WriteFiles(t, map[string]string{"m.hcl": model})

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, errOut, []string{"-log-level", "error", "-input", "x=[1, 2]", filepath.Join(dir, "m.hcl")})

	require.NoError(t, err)
	require.Equal(t, "[3, 6]\n", out.String())
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()
	dir := testutil.WriteFiles(t, map[string]string{"m.hcl": `model "m" {`})

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := run(context.Background(), out, errOut, []string{dir})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse")
	require.Contains(t, errOut.String(), "m.hcl", "diagnostics point at the model file")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}

	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
