package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Session.MaxReveal)
	assert.Equal(t, 20, cfg.Session.OverflowPageSize)
	assert.Equal(t, 120.0, cfg.Layout.LinkDistance)
	assert.Equal(t, 280*time.Millisecond, cfg.Gestures.DoubleClickWindow)
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Session, cfg.Session)
	})

	t.Run("yaml overrides defaults, untouched keys survive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
session:
  max_reveal: 8
layout:
  link_distance: 90
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Session.MaxReveal)
		assert.Equal(t, 90.0, cfg.Layout.LinkDistance)
		// Not mentioned in the file: defaults remain.
		assert.Equal(t, 20, cfg.Session.OverflowPageSize)
		assert.Equal(t, -360.0, cfg.Layout.ChargeStrength)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("session: ["), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BIFROST_MAX_REVEAL", "3")
	t.Setenv("BIFROST_LINK_DISTANCE", "200.5")
	t.Setenv("BIFROST_DOUBLE_CLICK_MS", "350")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Session.MaxReveal)
	assert.Equal(t, 200.5, cfg.Layout.LinkDistance)
	assert.Equal(t, 350*time.Millisecond, cfg.Gestures.DoubleClickWindow)
}

// Environment beats file: env is applied after the YAML overlay.
func TestEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  max_reveal: 8\n"), 0o644))
	t.Setenv("BIFROST_MAX_REVEAL", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Session.MaxReveal)
}

func TestUnparsableEnvIgnored(t *testing.T) {
	t.Setenv("BIFROST_MAX_REVEAL", "lots")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Session.MaxReveal)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"zero max reveal", func(c *Config) { c.Session.MaxReveal = 0 }, "max_reveal"},
		{"negative page size", func(c *Config) { c.Session.OverflowPageSize = -1 }, "overflow_page_size"},
		{"alpha decay at one", func(c *Config) { c.Layout.AlphaDecay = 1 }, "alpha_decay"},
		{"zero reheat", func(c *Config) { c.Layout.ReheatAlpha = 0 }, "reheat_alpha"},
		{"zero link distance", func(c *Config) { c.Layout.LinkDistance = 0 }, "link_distance"},
		{"inverted zoom range", func(c *Config) { c.Gestures.MinZoom = 3; c.Gestures.MaxZoom = 1 }, "zoom range"},
		{"zero double click window", func(c *Config) { c.Gestures.DoubleClickWindow = 0 }, "double_click_window"},
		{"negative weight", func(c *Config) { c.Rank.Evidence = -0.1 }, "rank weights"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.errSub),
				"error %q should mention %q", err, tc.errSub)
		})
	}
}

func TestString(t *testing.T) {
	s := Default().String()
	assert.Contains(t, s, "reveal=5")
	assert.Contains(t, s, "zoom=[0.25,4]")
}
