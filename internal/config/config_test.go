package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Drawing.BatchSize)
	assert.Equal(t, 4.0, cfg.Drawing.PenWidth)
	assert.Equal(t, 30.0, cfg.Drawing.EraserWidth)
	assert.Equal(t, "blue", cfg.Drawing.DefaultColor)
	assert.Equal(t, 100*time.Millisecond, cfg.Sim.Interval())
	assert.Equal(t, time.Second/60, cfg.Drawing.FrameInterval())
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("SHAREDBOARD_DATA_DIR", t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8888, cfg.Network.Port)
	assert.Equal(t, Default().Drawing, cfg.Drawing)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[network]
port = 9000
room = "studio"
discovery = false

[drawing]
batch_size = 16
smoothing = false
default_color = "orange"

[storage]
enabled = false

[log]
level = "debug"
json = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Network.Port)
	assert.Equal(t, "studio", cfg.Network.Room)
	assert.False(t, cfg.Network.Discovery)
	assert.Equal(t, 16, cfg.Drawing.BatchSize)
	assert.False(t, cfg.Drawing.Smoothing)
	assert.Equal(t, "orange", cfg.Drawing.DefaultColor)
	assert.Equal(t, 4.0, cfg.Drawing.PenWidth, "unset keys keep defaults")
	assert.False(t, cfg.Storage.Enabled)
	assert.True(t, cfg.Log.JSON)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHAREDBOARD_PORT", "7777")
	t.Setenv("SHAREDBOARD_LOG_LEVEL", "trace")
	path := writeConfig(t, "[network]\nport = 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Network.Port)
	assert.Equal(t, "trace", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{name: "syntax", body: "[network\nport = 1"},
		{name: "unknown key", body: "[drawing]\nbrush = 3\n", invalid: true},
		{name: "bad port", body: "[network]\nport = 70000\n", invalid: true},
		{name: "tiny batch", body: "[drawing]\nbatch_size = 1\n", invalid: true},
		{name: "unknown color", body: "[drawing]\ndefault_color = \"mauve\"\n", invalid: true},
		{name: "bad level", body: "[log]\nlevel = \"chatty\"\n", invalid: true},
		{name: "no store path", body: "[storage]\nenabled = true\npath = \"\"\n", invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NotErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Drawing.PenWidth = 0
	cfg.Drawing.FrameRate = 0
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "pen_width")
	assert.Contains(t, err.Error(), "frame_rate")
}
