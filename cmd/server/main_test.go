package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/config"
)

func TestFlagsOverrideConfig(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9100", "--blueprints", "gui", "--dev", "--no-watch"}))

	var f flags
	f.port, _ = cmd.Flags().GetString("port")
	f.blueprints, _ = cmd.Flags().GetString("blueprints")
	f.dev, _ = cmd.Flags().GetBool("dev")
	f.noWatch, _ = cmd.Flags().GetBool("no-watch")

	cfg := config.Default()
	f.apply(cmd, cfg)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "gui", cfg.Storage.BlueprintDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.Storage.Watch)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.yaml"), []byte(`
cluster: shop
main_menu: home
windows:
  - id: home
    size: 9
`), 0o644))

	run := func(args ...string) (string, error) {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"validate"}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run(dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   "+filepath.Join(dir, "shop.yaml"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("cluster: shop\nmain_menu: nowhere\n"), 0o644))
	out, err = run(dir)
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "FAIL "+filepath.Join(dir, "broken.yaml"))

	_, err = run(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
