package preflight

import (
	"context"
	"net/http"
	"time"

	"vnpipe/internal/config"
	"vnpipe/internal/services/flow"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckBinary("Host binary", cfg.HythonBinary()),
		CheckTrackerFromConfig(ctx, cfg),
	}

	if cfg.DiscordEnabled() {
		client := &http.Client{Timeout: time.Duration(cfg.Discord.RequestTimeout) * time.Second}
		results = append(results, CheckDiscord(ctx, cfg.Discord.BaseURL, cfg.Discord.Token, client))
	}

	if cfg.Drive.Enabled {
		results = append(results, CheckDriveToken(cfg.Drive.TokenPath))
	}

	return results
}

// CheckTrackerFromConfig builds a tracker client from cfg and verifies that
// a token can be obtained.
func CheckTrackerFromConfig(ctx context.Context, cfg *config.Config) Result {
	client, err := flow.New(cfg)
	if err != nil {
		return Result{Name: trackerCheckName, Detail: err.Error()}
	}
	return CheckTracker(ctx, client)
}
