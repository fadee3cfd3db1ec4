package config

const (
	defaultStateDir             = "~/.local/share/vnpipe"
	defaultLogDir               = "~/.local/share/vnpipe/logs"
	defaultExportDir            = "~/vnpipe/exports"
	defaultFlowRequestTimeout   = 30
	defaultDiscordBaseURL       = "https://discord.com/api/v10"
	defaultDiscordTimeout       = 10
	defaultDriveCredentialsPath = "~/.config/vnpipe/drive_credentials.json"
	defaultDriveTokenPath       = "~/.config/vnpipe/drive_token.json"
	defaultDriveAssetsFolder    = "assets"
	defaultHythonBinary         = "hython"
	defaultHostContainer        = "/obj/publisher"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogMaxSizeMB         = 20
	defaultLogMaxBackups        = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Flow: Flow{
			RequestTimeout: defaultFlowRequestTimeout,
		},
		Discord: Discord{
			BaseURL:        defaultDiscordBaseURL,
			RequestTimeout: defaultDiscordTimeout,
		},
		Drive: Drive{
			CredentialsPath: defaultDriveCredentialsPath,
			TokenPath:       defaultDriveTokenPath,
			AssetsFolder:    defaultDriveAssetsFolder,
		},
		Host: Host{
			HythonBinary: defaultHythonBinary,
			Container:    defaultHostContainer,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
