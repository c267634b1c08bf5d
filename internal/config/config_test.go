package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3000", cfg.Listen)
	require.Equal(t, "data/geochat.db", cfg.DBPath)
	require.Empty(t, cfg.GMPassword)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GEOCHAT_LISTEN", "0.0.0.0:8080")
	t.Setenv("GEOCHAT_GM_PASSWORD", "sesame")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.Listen)
	require.Equal(t, "sesame", cfg.GMPassword)
}
