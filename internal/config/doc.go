// Package config loads, normalizes, and validates vnpipe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a neighbouring .env file, and honours the
// environment fallbacks the host scripts have always used (FLOW_URL,
// FLOW_SCRIPT, FLOW_KEY, FLOW_USER, DISCORD_TOKEN_BOT, DISCORD_CHANNEL,
// DISCORD_USER). The Config value is built once at startup and passed
// explicitly to every component; nothing re-reads the environment later.
package config
