package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vnpipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Tracker credentials are filled with placeholders so RequireFlow passes.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Flow.URL = "http://127.0.0.1:0"
	cfgVal.Flow.ScriptName = "vnpipe-test"
	cfgVal.Flow.APIKey = "test-key"
	cfgVal.Flow.UserEmail = "artist@example.com"
	cfgVal.Drive.CredentialsPath = filepath.Join(base, "drive", "credentials.json")
	cfgVal.Drive.TokenPath = filepath.Join(base, "drive", "token.json")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFlowURL points the tracker client at url (usually an httptest server).
func WithFlowURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Flow.URL = url
	}
}

// WithDiscord enables chat notifications against baseURL.
func WithDiscord(baseURL, token, channel string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discord.BaseURL = baseURL
		b.cfg.Discord.Token = token
		b.cfg.Discord.ChannelID = channel
		b.cfg.Discord.User = "artist"
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, hython is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"hython"}
		}
		for _, name := range names {
			StubBinary(b.t, filepath.Join(b.baseDir, "bin"), name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// StubBinary writes an executable shell script named name into binDir and
// prepends binDir to PATH for the duration of the test.
func StubBinary(t testing.TB, binDir, name, script string) string {
	t.Helper()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
