package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vnpipe/internal/config"
	"vnpipe/internal/services"
	"vnpipe/internal/services/drive"
)

func newDriveCommand(ctx *commandContext) *cobra.Command {
	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "Google Drive utilities",
	}

	driveCmd.AddCommand(newDriveAuthCommand(ctx))
	driveCmd.AddCommand(newDriveUploadCommand(ctx))

	return driveCmd
}

func newDriveAuthCommand(ctx *commandContext) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize vnpipe to upload to Drive",
		Long: "Prints the consent URL for the configured OAuth client. Paste the code the\n" +
			"browser shows (or pass --code) to save a refreshable token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			oauthCfg, err := drive.OAuthConfig(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(code) == "" {
				fmt.Fprintln(out, "Open this URL in a browser and approve access:")
				fmt.Fprintln(out, drive.AuthURL(oauthCfg, "vnpipe"))
				fmt.Fprint(out, "Authorization code: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return services.Wrap(services.ErrValidation, "cli", "drive auth", "no authorization code entered", err)
				}
				code = line
			}
			store := drive.NewTokenStore(cfg.Drive.TokenPath)
			if _, err := drive.Exchange(cmd.Context(), oauthCfg, store, code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved Drive token to %s\n", store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code (prompted when omitted)")
	return cmd
}

func newDriveUploadCommand(ctx *commandContext) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file into <project>/<assets folder> on Drive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			client, err := drive.New(cmd.Context(), cfg, ctx.log())
			if err != nil {
				return err
			}
			file, err := client.UploadToProject(cmd.Context(), project, path)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, file)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s)\n", file.Name, file.ID)
			if file.WebViewLink != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Link: %s\n", file.WebViewLink)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project folder name")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
