package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Editor.QuietPeriod)
	assert.Equal(t, 250*time.Millisecond, cfg.Editor.RetryInterval)
	assert.Equal(t, "en-US", cfg.Editor.Locale)
	assert.Equal(t, "8080", cfg.Server.HTTPPort)
	assert.Equal(t, "INFO", cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.OTELEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EDITOR_AUTOSAVE_QUIET_PERIOD", "1500ms")
	t.Setenv("EDITOR_LOCALE", "es-ES")
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Editor.QuietPeriod)
	assert.Equal(t, "es-ES", cfg.Editor.Locale)
	assert.Equal(t, "9999", cfg.Server.HTTPPort)
}

func TestLoadErrors(t *testing.T) {
	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("EDITOR_AUTOSAVE_QUIET_PERIOD", "soon")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("non-positive quiet period", func(t *testing.T) {
		t.Setenv("EDITOR_AUTOSAVE_QUIET_PERIOD", "0s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EDITOR_AUTOSAVE_QUIET_PERIOD")
	})
}
