package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/fraggrow/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps configuration files of the environment out of the tests.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", t.TempDir())
}

func TestParse(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	cmd, exit, err := Parse([]string{"fragment", "-seed", "7", "-workers", "2", "a.xyz", "b.xyz"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, Fragment, cmd.Name)
	assert.Equal(t, []string{"a.xyz", "b.xyz"}, cmd.Inputs)
	assert.Equal(t, "fragments.stf", cmd.Output)
	assert.Equal(t, 2, cmd.Workers)
	assert.Equal(t, uint64(7), cmd.Config.Generation.Seed)
	assert.Equal(t, "text", cmd.LogFormat)
	assert.Equal(t, "info", cmd.LogLevel)
	assert.Empty(t, cmd.ConfigPath)

	cmd, _, err = Parse([]string{"generate", "-n", "5", "-max-atoms", "12", "-init", "O", "-o", "out",
		"-db", "m.db", "-run", "test", "-predictor", "python3 serve.py --gpu", "-stop-probability", "0.2", "-log-level", "DEBUG"}, &out)
	require.NoError(t, err)
	g := cmd.Config.Generation
	assert.Equal(t, 5, g.NumSeeds)
	assert.Equal(t, 12, g.MaxAtoms)
	assert.Equal(t, "O", g.Init)
	assert.Equal(t, []string{"python3", "serve.py", "--gpu"}, g.Predictor)
	assert.InDelta(t, 0.2, g.StopProbability, 1e-12)
	assert.Equal(t, "out", cmd.Config.Output.Dir)
	assert.Equal(t, "m.db", cmd.Config.Output.DB)
	assert.Equal(t, "test", cmd.Run)
	assert.Equal(t, "debug", cmd.LogLevel)
}

func TestParseConfigOverride(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := config.DefaultConfig()
	cfg.Generation.NumSeeds = 9
	cfg.Generation.MaxAtoms = 20
	require.NoError(t, cfg.Save(path))

	cmd, _, err := Parse([]string{"generate", "-config", path, "-max-atoms", "15"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, path, cmd.ConfigPath)
	assert.Equal(t, 9, cmd.Config.Generation.NumSeeds, "not overridden")
	assert.Equal(t, 15, cmd.Config.Generation.MaxAtoms, "overridden")

	t.Setenv(config.EnvConfigPath, path)
	cmd, _, err = Parse([]string{"generate"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 9, cmd.Config.Generation.NumSeeds)
}

func TestParseHelp(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{nil, {"-h"}, {"generate", "-h"}} {
		var out bytes.Buffer
		cmd, exit, err := Parse(args, &out)
		assert.NoError(t, err, args)
		assert.True(t, exit, args)
		assert.Nil(t, cmd)
		assert.Contains(t, out.String(), "fraggrow fragment", args)
	}
}

func TestParseErrors(t *testing.T) {
	isolate(t)
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("cutoff: [1, 2"), 0o644))
	cases := map[string][]string{
		"unknown subcommand": {"train"},
		"unknown flag":       {"generate", "-nope"},
		"log format":         {"generate", "-log-format", "xml"},
		"log level":          {"generate", "-log-level", "loud"},
		"workers":            {"fragment", "-workers", "0", "a.xyz"},
		"missing config":     {"generate", "-config", filepath.Join(t.TempDir(), "none.yaml")},
		"broken config":      {"generate", "-config", bad},
		"invalid config":     {"generate", "-stop-probability", "2"},
		"no fragment input":  {"fragment"},
		"no inspect input":   {"inspect"},
		"generate arguments": {"generate", "a.xyz"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			cmd, exit, err := Parse(args, &bytes.Buffer{})
			require.Error(t, err)
			assert.False(t, exit)
			assert.Nil(t, cmd)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
