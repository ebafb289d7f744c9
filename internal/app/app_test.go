package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/graphunit/internal/app"
	"github.com/vk/graphunit/internal/registry"
	"github.com/vk/graphunit/internal/testutil"
	"github.com/vk/graphunit/modules/activation"
	"github.com/vk/graphunit/modules/linear"
	"gopkg.in/yaml.v3"
)

const modelHCL = `
model "mlp" {
  training = false

  module "fc" {
    kind = "linear"
    param "weight" {
      value = [[1, 0], [0, -1]]
    }
    param "bias" {
      value = [0, 1]
    }
  }
  module "act" {
    kind = "relu"
  }
  module "echo" {
    kind = "echo"
  }
}

graph {
  node "x" {
    op = "placeholder"
  }
  node "h" {
    op     = "call_module"
    target = "fc"
    args   = [x]
  }
  node "e" {
    op     = "call_module"
    target = "echo"
    args   = [h]
  }
  node "a" {
    op     = "call_module"
    target = "act"
    args   = [e]
  }
  node "y" {
    op     = "call_function"
    target = "mul"
    args   = [a, 2]
  }
  node "out" {
    op   = "output"
    args = [y]
  }
}
`

const wantCode = "def forward(self, x):\n    h = self::fc(x)\n    e = self::echo(h)\n    a = self::act(e)\n    y = mul(a, 2)\n    return y\n"

func modules(echo *testutil.RecorderModule) []registry.Module {
	return []registry.Module{&linear.Module{}, &activation.Module{}, echo}
}

func TestRun_PrintAndForward(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"model/main.hcl": modelHCL})
	echo := testutil.NewRecorderModule("echo", 0)

	a, out, logs := app.SetupAppTest(t, &app.Config{
		ModelPath: filepath.Join(dir, "model"),
		PrintCode: true,
		Inputs:    []string{"x=[1, 2]"},
	}, modules(echo)...)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, wantCode+"[2, 0]\n", out.String())
	assert.Len(t, echo.Calls(), 1)
	assert.Contains(t, logs.String(), "Unit ready.")
	assert.Equal(t, 0, a.Sources().Len(), "closing the unit releases its key")
}

func TestRun_Describe(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": modelHCL})
	a, out, _ := app.SetupAppTest(t, &app.Config{ModelPath: dir, Describe: true}, modules(testutil.NewRecorderModule("echo", 0))...)
	require.NoError(t, a.Run(context.Background()))

	var d struct {
		Kind     string            `yaml:"kind"`
		Training bool              `yaml:"training"`
		Inputs   []string          `yaml:"inputs"`
		Modules  map[string]string `yaml:"modules"`
		Params   []struct {
			Path string `yaml:"path"`
			Type string `yaml:"type"`
		} `yaml:"params"`
		Nodes []struct {
			Name string   `yaml:"name"`
			Op   string   `yaml:"op"`
			Args []string `yaml:"args"`
		} `yaml:"nodes"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out.String()), &d))

	assert.Equal(t, "mlp", d.Kind)
	assert.False(t, d.Training)
	assert.Equal(t, []string{"x"}, d.Inputs)
	assert.Equal(t, map[string]string{"fc": "linear", "act": "relu", "echo": "echo"}, d.Modules)
	require.Len(t, d.Params, 2)
	assert.Equal(t, "fc.bias", d.Params[0].Path)
	assert.Equal(t, "list of number", d.Params[0].Type)
	require.Len(t, d.Nodes, 6)
	assert.Equal(t, []string{"a", "2"}, d.Nodes[4].Args)
}

func TestRun_SaveAndRestore(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": modelHCL})
	bundle := filepath.Join(t.TempDir(), "unit.json")
	echo := testutil.NewRecorderModule("echo", 0)

	a, _, _ := app.SetupAppTest(t, &app.Config{ModelPath: dir, SavePath: bundle}, modules(echo)...)
	require.NoError(t, a.Run(context.Background()))

	b, out, _ := app.SetupAppTest(t, &app.Config{
		RestorePath: bundle,
		PrintCode:   true,
		Inputs:      []string{"x = [3, -1]"},
	}, modules(echo)...)
	require.NoError(t, b.Run(context.Background()))
	assert.Equal(t, wantCode+"[6, 4]\n", out.String())
	assert.Len(t, echo.Calls(), 1, "the restored echo container got its kind method back")
}

func TestRun_Errors(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": modelHCL})
	bad := testutil.WriteFiles(t, map[string]string{"main.hcl": "model \"m\" {}\ngraph {\n  node \"x\" { op = \"jump\" }\n}\n"})

	testCases := []struct {
		name    string
		cfg     app.Config
		errMsg  string
		errLogs string
	}{
		{name: "missing input", cfg: app.Config{ModelPath: dir, Inputs: []string{"y=1"}}, errMsg: `missing input "x"`},
		{name: "unknown input", cfg: app.Config{ModelPath: dir, Inputs: []string{"x=[1, 1]", "z=1"}}, errMsg: `unknown input "z"`},
		{name: "bad input expression", cfg: app.Config{ModelPath: dir, Inputs: []string{"x=[1,"}}, errMsg: `input "x"`},
		{name: "forward failure", cfg: app.Config{ModelPath: dir, Inputs: []string{"x=[1, 2, 3]"}}, errMsg: "forward"},
		{name: "bad model", cfg: app.Config{ModelPath: bad}, errMsg: "failed to load model", errLogs: "Invalid operation"},
		{name: "missing bundle", cfg: app.Config{RestorePath: filepath.Join(dir, "absent.json")}, errMsg: "failed to open bundle"},
		{name: "bad bundle", cfg: app.Config{RestorePath: filepath.Join(dir, "main.hcl")}, errMsg: "invalid bundle encoding"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, _, logs := app.SetupAppTest(t, &tc.cfg, modules(testutil.NewRecorderModule("echo", 0))...)
			err := a.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
			if tc.errLogs != "" {
				assert.Contains(t, logs.String(), tc.errLogs)
			}
		})
	}
}

func TestNewConfig(t *testing.T) {
	_, err := app.NewConfig(app.Config{})
	assert.Error(t, err)
	_, err = app.NewConfig(app.Config{ModelPath: "a", RestorePath: "b"})
	assert.Error(t, err)
	_, err = app.NewConfig(app.Config{ModelPath: "a", Inputs: []string{"=1"}})
	assert.ErrorContains(t, err, "want name=expression")

	cfg, err := app.NewConfig(app.Config{RestorePath: "b", Inputs: []string{"x=1"}})
	require.NoError(t, err)
	assert.Equal(t, "b", cfg.RestorePath)
}
