package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFlow()
	c.normalizeDiscord()
	if err := c.normalizeDrive(); err != nil {
		return err
	}
	c.normalizeHost()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFlow() {
	c.Flow.URL = envFallback(c.Flow.URL, "FLOW_URL")
	c.Flow.URL = strings.TrimRight(c.Flow.URL, "/")
	c.Flow.ScriptName = envFallback(c.Flow.ScriptName, "FLOW_SCRIPT")
	c.Flow.APIKey = envFallback(c.Flow.APIKey, "FLOW_KEY")
	c.Flow.UserEmail = envFallback(c.Flow.UserEmail, "FLOW_USER")
	if c.Flow.RequestTimeout <= 0 {
		c.Flow.RequestTimeout = defaultFlowRequestTimeout
	}
}

func (c *Config) normalizeDiscord() {
	c.Discord.Token = envFallback(c.Discord.Token, "DISCORD_TOKEN_BOT")
	c.Discord.ChannelID = envFallback(c.Discord.ChannelID, "DISCORD_CHANNEL")
	c.Discord.User = envFallback(c.Discord.User, "DISCORD_USER")
	c.Discord.BaseURL = strings.TrimRight(strings.TrimSpace(c.Discord.BaseURL), "/")
	if c.Discord.BaseURL == "" {
		c.Discord.BaseURL = defaultDiscordBaseURL
	}
	if c.Discord.RequestTimeout <= 0 {
		c.Discord.RequestTimeout = defaultDiscordTimeout
	}
}

func (c *Config) normalizeDrive() error {
	var err error
	if strings.TrimSpace(c.Drive.CredentialsPath) == "" {
		c.Drive.CredentialsPath = defaultDriveCredentialsPath
	}
	if c.Drive.CredentialsPath, err = expandPath(c.Drive.CredentialsPath); err != nil {
		return fmt.Errorf("drive.credentials_path: %w", err)
	}
	if strings.TrimSpace(c.Drive.TokenPath) == "" {
		c.Drive.TokenPath = defaultDriveTokenPath
	}
	if c.Drive.TokenPath, err = expandPath(c.Drive.TokenPath); err != nil {
		return fmt.Errorf("drive.token_path: %w", err)
	}
	c.Drive.AssetsFolder = strings.TrimSpace(c.Drive.AssetsFolder)
	if c.Drive.AssetsFolder == "" {
		c.Drive.AssetsFolder = defaultDriveAssetsFolder
	}
	return nil
}

func (c *Config) normalizeHost() {
	c.Host.HythonBinary = strings.TrimSpace(c.Host.HythonBinary)
	if c.Host.HythonBinary == "" {
		c.Host.HythonBinary = defaultHythonBinary
	}
	c.Host.Container = strings.TrimSpace(c.Host.Container)
	if c.Host.Container == "" {
		c.Host.Container = defaultHostContainer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
