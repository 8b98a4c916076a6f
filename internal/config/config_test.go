package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SOUNDTRIP_API_BASE",
		"SOUNDTRIP_TIMEOUT",
		"SOUNDTRIP_DB",
		"SOUNDTRIP_STORAGE_DRIVER",
		"SOUNDTRIP_DEBUG",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("expected BaseURL=http://localhost:8000, got %s", cfg.API.BaseURL)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected Driver=sqlite, got %s", cfg.Storage.Driver)
	}
	if cfg.Profile.AgeRange != "30s" || len(cfg.AudioStyle.SFX) != 3 {
		t.Errorf("unexpected default profile/audio: %+v %+v", cfg.Profile, cfg.AudioStyle)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), FileName)

	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://192.168.1.20:8000"
	cfg.Profile.Mood = []string{"lively"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.API.BaseURL != "http://192.168.1.20:8000" {
		t.Errorf("expected BaseURL to round-trip, got %s", loaded.API.BaseURL)
	}
	if len(loaded.Profile.Mood) != 1 || loaded.Profile.Mood[0] != "lively" {
		t.Errorf("expected mood [lively], got %v", loaded.Profile.Mood)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope", FileName))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.Timeout != "120s" {
		t.Errorf("expected default timeout, got %s", cfg.API.Timeout)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("api: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error for invalid yaml")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SOUNDTRIP_API_BASE", "http://story-api:9000")
	t.Setenv("SOUNDTRIP_TIMEOUT", "15s")
	t.Setenv("SOUNDTRIP_DB", "/tmp/st.db")
	t.Setenv("SOUNDTRIP_STORAGE_DRIVER", "sqlite3")
	t.Setenv("SOUNDTRIP_DEBUG", "true")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.API.BaseURL != "http://story-api:9000" {
		t.Errorf("expected BaseURL override, got %s", cfg.API.BaseURL)
	}
	if cfg.GetTimeout() != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", cfg.GetTimeout())
	}
	if cfg.Storage.Path != "/tmp/st.db" || cfg.Storage.Driver != "sqlite3" {
		t.Errorf("expected storage overrides, got %+v", cfg.Storage)
	}
	if !cfg.Logging.DebugMode {
		t.Error("expected debug mode from SOUNDTRIP_DEBUG")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)

	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ".env"), []byte("SOUNDTRIP_API_BASE=http://from-dotenv:8000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Path(home))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "http://from-dotenv:8000" {
		t.Errorf("expected .env override, got %s", cfg.API.BaseURL)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no scheme", func(c *Config) { c.API.BaseURL = "localhost:8000" }, true},
		{"ftp scheme", func(c *Config) { c.API.BaseURL = "ftp://host" }, true},
		{"zero attempts", func(c *Config) { c.API.MaxAttempts = 0 }, true},
		{"single attempt", func(c *Config) { c.API.MaxAttempts = 1 }, false},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "bolt" }, true},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }, true},
		{"memory without path", func(c *Config) { c.Storage.Driver = "memory"; c.Storage.Path = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()

	cfg.API.Timeout = "garbage"
	if cfg.GetTimeout() != defaultTimeout {
		t.Errorf("GetTimeout should fall back to default, got %v", cfg.GetTimeout())
	}
	cfg.API.RetryBackoff = "-1s"
	if cfg.GetRetryBackoff() != defaultRetryBackoff {
		t.Errorf("GetRetryBackoff should fall back to default, got %v", cfg.GetRetryBackoff())
	}

	if got := cfg.DatabasePath("/data"); got != filepath.Join("/data", "soundtrip.db") {
		t.Errorf("unexpected DatabasePath: %s", got)
	}
	cfg.Storage.Path = "/abs/st.db"
	if got := cfg.DatabasePath("/data"); got != "/abs/st.db" {
		t.Errorf("absolute path should be kept, got %s", got)
	}

	b := cfg.Builder()
	if b.AudioStyle.Voice != "ja-JP-NanamiNeural" || b.Profile.Budget != "mid" {
		t.Errorf("builder not populated from config: %+v", b)
	}
}

func TestDefaultHome_UsesEnv(t *testing.T) {
	t.Setenv("SOUNDTRIP_HOME", "/srv/soundtrip")
	if got := DefaultHome(); got != "/srv/soundtrip" {
		t.Errorf("expected SOUNDTRIP_HOME to win, got %s", got)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("api") {
		t.Error("categories must be disabled without debug mode")
	}

	lc.DebugMode = true
	if !lc.IsCategoryEnabled("api") {
		t.Error("categories default to enabled in debug mode")
	}

	lc.Categories = map[string]bool{"api": false}
	if lc.IsCategoryEnabled("api") {
		t.Error("explicitly disabled category should be off")
	}
	if !lc.IsCategoryEnabled("store") {
		t.Error("unlisted category should be on")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), FileName)
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 8)
	w, err := Watch(path, func(cfg *Config, err error) {
		if err != nil {
			return
		}
		select {
		case changes <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://reloaded:8000"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-changes:
			if got.API.BaseURL == "http://reloaded:8000" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}
}
