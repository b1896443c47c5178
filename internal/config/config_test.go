package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "postdeck.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.BaseURL != "https://jsonplaceholder.typicode.com" {
		t.Errorf("default base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("default timeout = %v, want %v", cfg.API.Timeout, 10*time.Second)
	}
	if cfg.Posts.DefaultOwnerID != 1 {
		t.Errorf("default owner = %d, want 1", cfg.Posts.DefaultOwnerID)
	}
	if cfg.Cache.StaleAfter != 5*time.Minute {
		t.Errorf("default stale_after = %v, want %v", cfg.Cache.StaleAfter, 5*time.Minute)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	cfgPath := writeConfig(t, `
api:
  base_url: http://localhost:3000
  timeout: 3s
posts:
  default_owner_id: 7
cache:
  stale_after: 1m
ui:
  close_delay: 50ms
log:
  level: debug
  file: /tmp/postdeck.log
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:3000" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.Posts.DefaultOwnerID != 7 {
		t.Errorf("owner = %d, want 7", cfg.Posts.DefaultOwnerID)
	}
	if cfg.Cache.StaleAfter != time.Minute {
		t.Errorf("stale_after = %v, want 1m", cfg.Cache.StaleAfter)
	}
	if cfg.UI.CloseDelay != 50*time.Millisecond {
		t.Errorf("close_delay = %v, want 50ms", cfg.UI.CloseDelay)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/postdeck.log" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/postdeck.yaml")
	if err != nil {
		t.Fatalf("Load() should return defaults for missing file, got error: %v", err)
	}
	if want := DefaultConfig(); *cfg != want {
		t.Errorf("Load(missing) = %+v, want defaults %+v", *cfg, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "{{invalid yaml")); err == nil {
		t.Fatal("Load(invalid YAML) should return error")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	cfgPath := writeConfig(t, `
api:
  base_ur: http://x
`)
	if _, err := Load(cfgPath); err == nil {
		t.Fatal("Load() should return error for unknown field 'base_ur'")
	}
}

func TestLoad_CommentOnlyAndEmptyFiles(t *testing.T) {
	for name, body := range map[string]string{"comment": "# nothing\n", "empty": ""} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, body))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if want := DefaultConfig(); *cfg != want {
				t.Errorf("Load() = %+v, want defaults %+v", *cfg, want)
			}
		})
	}
}

func TestLoad_LayeredPriority(t *testing.T) {
	// Given: a user layer setting URL and owner, a project layer overriding the owner
	userCfg := writeConfig(t, `
api:
  base_url: http://user.example
posts:
  default_owner_id: 2
`)
	projectCfg := writeConfig(t, `
posts:
  default_owner_id: 5
`)

	// When: both are loaded in order
	cfg, err := LoadLayered(userCfg, projectCfg)
	if err != nil {
		t.Fatalf("LoadLayered() error = %v", err)
	}

	// Then: later layers win field by field
	if cfg.API.BaseURL != "http://user.example" {
		t.Errorf("base url = %q, want user layer", cfg.API.BaseURL)
	}
	if cfg.Posts.DefaultOwnerID != 5 {
		t.Errorf("owner = %d, want project layer 5", cfg.Posts.DefaultOwnerID)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want default", cfg.API.Timeout)
	}
}

func TestLoadLayered_AllMissing(t *testing.T) {
	cfg, err := LoadLayered("/no/user.yaml", "/no/project.yaml")
	if err != nil {
		t.Fatalf("LoadLayered(all missing) error = %v", err)
	}
	if want := DefaultConfig(); *cfg != want {
		t.Errorf("got %+v, want defaults %+v", *cfg, want)
	}
}

func TestLoadLayered_InvalidLayer(t *testing.T) {
	bad := writeConfig(t, "cache:\n  stale: 1m\n")
	if _, err := LoadLayered(bad); err == nil {
		t.Fatal("LoadLayered() should reject unknown fields")
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		wantErr bool
		check   func(*testing.T, Config)
	}{
		{
			name: "POSTDECK_BASE_URL overrides base url",
			envs: map[string]string{"POSTDECK_BASE_URL": "http://localhost:8080"},
			check: func(t *testing.T, c Config) {
				if c.API.BaseURL != "http://localhost:8080" {
					t.Errorf("base url = %q", c.API.BaseURL)
				}
			},
		},
		{
			name: "POSTDECK_TIMEOUT overrides timeout",
			envs: map[string]string{"POSTDECK_TIMEOUT": "30s"},
			check: func(t *testing.T, c Config) {
				if c.API.Timeout != 30*time.Second {
					t.Errorf("timeout = %v, want %v", c.API.Timeout, 30*time.Second)
				}
			},
		},
		{
			name: "POSTDECK_OWNER_ID overrides default owner",
			envs: map[string]string{"POSTDECK_OWNER_ID": "3"},
			check: func(t *testing.T, c Config) {
				if c.Posts.DefaultOwnerID != 3 {
					t.Errorf("owner = %d, want 3", c.Posts.DefaultOwnerID)
				}
			},
		},
		{
			name: "POSTDECK_LOG_LEVEL and POSTDECK_LOG_FILE override log",
			envs: map[string]string{"POSTDECK_LOG_LEVEL": "info", "POSTDECK_LOG_FILE": "x.log"},
			check: func(t *testing.T, c Config) {
				if c.Log.Level != "info" || c.Log.File != "x.log" {
					t.Errorf("log = %+v", c.Log)
				}
			},
		},
		{
			name:    "invalid POSTDECK_TIMEOUT returns error",
			envs:    map[string]string{"POSTDECK_TIMEOUT": "soon"},
			wantErr: true,
		},
		{
			name:    "invalid POSTDECK_OWNER_ID returns error",
			envs:    map[string]string{"POSTDECK_OWNER_ID": "me"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envs {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			err := cfg.ApplyEnv()

			if tt.wantErr {
				if err == nil {
					t.Fatal("ApplyEnv() should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnv() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{name: "relative base url", modify: func(c *Config) { c.API.BaseURL = "/posts" }, wantErr: true},
		{name: "ftp base url", modify: func(c *Config) { c.API.BaseURL = "ftp://host" }, wantErr: true},
		{name: "zero timeout", modify: func(c *Config) { c.API.Timeout = 0 }, wantErr: true},
		{name: "negative owner", modify: func(c *Config) { c.Posts.DefaultOwnerID = -1 }, wantErr: true},
		{name: "zero owner", modify: func(c *Config) { c.Posts.DefaultOwnerID = 0 }, wantErr: true},
		{name: "negative stale_after", modify: func(c *Config) { c.Cache.StaleAfter = -time.Second }, wantErr: true},
		{name: "negative close_delay", modify: func(c *Config) { c.UI.CloseDelay = -time.Second }, wantErr: true},
		{name: "unknown log level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLog_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelWarn,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := Log{Level: in}.SlogLevel()
		if err != nil {
			t.Errorf("SlogLevel(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
