package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	orig := stderrIsTerminal
	stderrIsTerminal = func() bool { return false }
	t.Cleanup(func() { stderrIsTerminal = orig })

	testCases := []struct {
		name       string
		args       []string
		shouldExit bool
		exitCode   int
		check      func(t *testing.T, out string)
	}{
		{
			name: "model with inputs",
			args: []string{"-input", "x=[1, 2]", "-input", "y=3", "-print-code", "model.hcl"},
		},
		{
			name: "restore without model",
			args: []string{"-restore", "unit.json", "-save", "copy.json", "-describe"},
		},
		{name: "help", args: []string{"-h"}, shouldExit: true, check: func(t *testing.T, out string) {
			assert.Contains(t, out, "Usage:")
		}},
		{name: "nothing to do", args: []string{}, shouldExit: true},
		{name: "unknown flag", args: []string{"-workers", "4"}, exitCode: 2},
		{name: "bad format", args: []string{"-log-format", "xml", "m.hcl"}, exitCode: 2},
		{name: "bad level", args: []string{"-log-level", "loud", "m.hcl"}, exitCode: 2},
		{name: "bad input", args: []string{"-input", "x", "m.hcl"}, exitCode: 2},
		{name: "model and restore", args: []string{"-restore", "b.json", "m.hcl"}, exitCode: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, exit, err := Parse(tc.args, &out)
			if tc.exitCode != 0 {
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr))
				assert.Equal(t, tc.exitCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.shouldExit, exit)
			if tc.check != nil {
				tc.check(t, out.String())
			}
			if exit {
				assert.Nil(t, cfg)
				return
			}
			assert.Equal(t, "json", cfg.LogFormat, "json is the default off a terminal")
			assert.Equal(t, "info", cfg.LogLevel)
		})
	}
}

func TestParse_Fields(t *testing.T) {
	cfg, exit, err := Parse([]string{"-input", "x=[1, 2]", "-input", "y=3", "-print-code", "-log-format", "TEXT", "model"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "model", cfg.ModelPath)
	assert.Equal(t, []string{"x=[1, 2]", "y=3"}, cfg.Inputs)
	assert.True(t, cfg.PrintCode)
	assert.False(t, cfg.Describe)
	assert.Equal(t, "text", cfg.LogFormat)
}
