package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Storage(t *testing.T) {
	t.Run("SOUNDTRIP_STORAGE_DRIVER switches driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SOUNDTRIP_STORAGE_DRIVER", "memory")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "memory", cfg.Storage.Driver)
		assert.Equal(t, "soundtrip.db", cfg.Storage.Path)
	})

	t.Run("SOUNDTRIP_DB replaces a configured path", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SOUNDTRIP_DB", "/data/trips.db")

		cfg := &Config{Storage: StorageConfig{Driver: "sqlite3", Path: "custom.db"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/data/trips.db", cfg.Storage.Path)
		assert.Equal(t, "sqlite3", cfg.Storage.Driver)
		assert.Equal(t, "/data/trips.db", cfg.DatabasePath("/home/u/.soundtrip"))
	})
}

func TestEnvOverrides_API(t *testing.T) {
	t.Run("empty values leave config untouched", func(t *testing.T) {
		clearEnv(t)

		cfg := &Config{API: APIConfig{BaseURL: "http://10.0.2.2:8000", Timeout: "30s"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://10.0.2.2:8000", cfg.API.BaseURL)
		assert.Equal(t, "30s", cfg.API.Timeout)
	})

	t.Run("unparseable timeout falls back at use", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SOUNDTRIP_TIMEOUT", "soon")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "soon", cfg.API.Timeout)
		assert.Equal(t, defaultTimeout, cfg.GetTimeout())
	})
}

func TestEnvOverrides_Debug(t *testing.T) {
	tests := []struct {
		name  string
		value string
		start bool
		want  bool
	}{
		{name: "true enables", value: "true", start: false, want: true},
		{name: "1 enables", value: "1", start: false, want: true},
		{name: "false disables", value: "false", start: true, want: false},
		{name: "garbage is ignored", value: "loud", start: true, want: true},
		{name: "unset is ignored", value: "", start: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SOUNDTRIP_DEBUG", tt.value)

			cfg := &Config{Logging: LoggingConfig{DebugMode: tt.start}}
			cfg.applyEnvOverrides()

			assert.Equal(t, tt.want, cfg.Logging.DebugMode)
		})
	}
}
