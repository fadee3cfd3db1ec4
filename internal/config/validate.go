package config

import (
	"fmt"
	"net/url"
	"strings"

	"vnpipe/internal/services"
)

// Validate ensures the configuration is usable. Tracker credentials are only
// checked by RequireFlow so commands that never talk to the tracker can run
// without them.
func (c *Config) Validate() error {
	if err := c.validateFlowURL(); err != nil {
		return err
	}
	if err := c.validateDiscord(); err != nil {
		return err
	}
	if err := c.validateDrive(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireFlow reports a configuration error when any tracker credential is
// missing. Commands that publish call it once at startup.
func (c *Config) RequireFlow() error {
	missing := make([]string, 0, 4)
	if c.Flow.URL == "" {
		missing = append(missing, "flow.url (FLOW_URL)")
	}
	if c.Flow.ScriptName == "" {
		missing = append(missing, "flow.script_name (FLOW_SCRIPT)")
	}
	if c.Flow.APIKey == "" {
		missing = append(missing, "flow.api_key (FLOW_KEY)")
	}
	if c.Flow.UserEmail == "" {
		missing = append(missing, "flow.user_email (FLOW_USER)")
	}
	if len(missing) == 0 {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/vnpipe/config.toml"
	}
	return services.Wrap(services.ErrConfiguration, "config", "flow",
		fmt.Sprintf("missing %s; set the env vars or edit %s (create with 'vnpipe config init')", strings.Join(missing, ", "), defaultPath), nil)
}

// DiscordEnabled reports whether chat notifications are configured.
func (c *Config) DiscordEnabled() bool {
	return c.Discord.Token != "" && c.Discord.ChannelID != ""
}

func (c *Config) validateFlowURL() error {
	if c.Flow.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Flow.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return services.Wrap(services.ErrConfiguration, "config", "flow", fmt.Sprintf("flow.url %q is not an absolute URL", c.Flow.URL), nil)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return services.Wrap(services.ErrConfiguration, "config", "flow", "flow.url must use http or https", nil)
	}
	return nil
}

func (c *Config) validateDiscord() error {
	if (c.Discord.Token == "") != (c.Discord.ChannelID == "") {
		return services.Wrap(services.ErrConfiguration, "config", "discord", "discord.token and discord.channel_id must be set together", nil)
	}
	return nil
}

func (c *Config) validateDrive() error {
	if !c.Drive.Enabled {
		return nil
	}
	if c.Drive.CredentialsPath == "" {
		return services.Wrap(services.ErrConfiguration, "config", "drive", "drive.credentials_path must be set when drive.enabled is true", nil)
	}
	if c.Drive.TokenPath == "" {
		return services.Wrap(services.ErrConfiguration, "config", "drive", "drive.token_path must be set when drive.enabled is true", nil)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("%w: logging.level %q must be one of debug, info, warn, error", services.ErrConfiguration, c.Logging.Level)
	}
}
