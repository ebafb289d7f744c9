package app

import (
	"testing"

	"github.com/vk/graphunit/internal/registry"
	"github.com/vk/graphunit/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. It returns
// the app, its result output and its debug-level log output.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	out := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	testutil.DumpLogs(t, logs)
	return NewApp(out, logs, cfg, modules...), out, logs
}
