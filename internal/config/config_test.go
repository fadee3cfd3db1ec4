package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"vnpipe/internal/config"
	"vnpipe/internal/services"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FLOW_URL", "FLOW_SCRIPT", "FLOW_KEY", "FLOW_USER",
		"DISCORD_TOKEN_BOT", "DISCORD_CHANNEL", "DISCORD_USER",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "vnpipe")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.Discord.BaseURL != "https://discord.com/api/v10" {
		t.Fatalf("unexpected discord base url: %q", cfg.Discord.BaseURL)
	}
	if cfg.DiscordEnabled() {
		t.Fatal("expected discord disabled without credentials")
	}
	if cfg.HythonBinary() != "hython" {
		t.Fatalf("unexpected hython binary: %q", cfg.HythonBinary())
	}
	if err := cfg.RequireFlow(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing flow credentials, got %v", err)
	}
}

func TestLoadUsesEnvironmentFallbacks(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FLOW_URL", "https://studio.example.com/")
	t.Setenv("FLOW_SCRIPT", "publisher")
	t.Setenv("FLOW_KEY", "secret-key")
	t.Setenv("FLOW_USER", "artist@example.com")
	t.Setenv("DISCORD_TOKEN_BOT", "bot-token")
	t.Setenv("DISCORD_CHANNEL", "1234")
	t.Setenv("DISCORD_USER", "Artist")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Flow.URL != "https://studio.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Flow.URL)
	}
	if cfg.Flow.ScriptName != "publisher" || cfg.Flow.APIKey != "secret-key" || cfg.Flow.UserEmail != "artist@example.com" {
		t.Fatalf("unexpected flow credentials: %+v", cfg.Flow)
	}
	if err := cfg.RequireFlow(); err != nil {
		t.Fatalf("RequireFlow: %v", err)
	}
	if !cfg.DiscordEnabled() || cfg.Discord.User != "Artist" {
		t.Fatalf("unexpected discord config: %+v", cfg.Discord)
	}
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	configPath := filepath.Join(dir, "vnpipe.toml")
	if err := os.WriteFile(configPath, []byte("[flow]\nurl = \"https://studio.example.com\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	env := "FLOW_SCRIPT=publisher\nFLOW_KEY=from-dotenv\nFLOW_USER=artist@example.com\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("FLOW_SCRIPT")
		os.Unsetenv("FLOW_KEY")
		os.Unsetenv("FLOW_USER")
	})

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if cfg.Flow.APIKey != "from-dotenv" {
		t.Fatalf("expected api key from .env, got %q", cfg.Flow.APIKey)
	}
}

func TestFileValuesWinOverEnvironment(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FLOW_KEY", "from-env")

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	payload := map[string]any{
		"flow": map[string]any{"api_key": "from-file"},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Flow.APIKey != "from-file" {
		t.Fatalf("expected file value, got %q", cfg.Flow.APIKey)
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "relative flow url",
			mutate: func(c *config.Config) { c.Flow.URL = "studio.example.com" },
			want:   "flow.url",
		},
		{
			name:   "discord token without channel",
			mutate: func(c *config.Config) { c.Discord.Token = "abc" },
			want:   "discord.token and discord.channel_id",
		},
		{
			name: "drive enabled without token path",
			mutate: func(c *config.Config) {
				c.Drive.Enabled = true
				c.Drive.TokenPath = ""
			},
			want: "drive.token_path",
		},
		{
			name:   "unknown log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Drive.AssetsFolder != "assets" || cfg.Host.Container != "/obj/publisher" {
		t.Fatalf("unexpected sample values: %+v %+v", cfg.Drive, cfg.Host)
	}
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Flow.APIKey = "abcdefgh"
	cfg.Discord.Token = "xyz"
	red := cfg.Redacted()
	if red.Flow.APIKey != "ab****gh" {
		t.Fatalf("unexpected masked key %q", red.Flow.APIKey)
	}
	if red.Discord.Token != "****" {
		t.Fatalf("unexpected masked token %q", red.Discord.Token)
	}
	if cfg.Flow.APIKey != "abcdefgh" {
		t.Fatal("Redacted must not mutate the receiver")
	}
}
