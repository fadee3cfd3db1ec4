package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vnpipe/internal/config"
	"vnpipe/internal/fileutil"
	"vnpipe/internal/logging"
	"vnpipe/internal/publish"
	"vnpipe/internal/services"
	"vnpipe/internal/services/drive"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var project, asset, file string
	var version int
	var upload bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an asset version to the tracker",
		Long: "Finds or creates the asset in the project and attaches a new version\n" +
			"labelled <asset>_vNNN. The file (or its Drive link with --upload) is stored\n" +
			"on the version and announced in chat when Discord is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if upload && strings.TrimSpace(file) == "" {
				return services.Wrap(services.ErrValidation, "cli", "publish", "--file is required with --upload", nil)
			}
			path := file
			if path != "" {
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return err
				}
				path = expanded
			}
			link, result, err := publishExport(cmd.Context(), ctx, project, asset, version, path, upload)
			if err != nil {
				if result != nil && publish.IsPartial(*result, err) {
					fmt.Fprintf(cmd.ErrOrStderr(), "asset %d was created but has no version\n", result.AssetID)
				}
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, struct {
					publish.AssetResult
					Link string `json:"link,omitempty"`
				}{*result, link})
			}
			printAssetResult(cmd, *result)
			if link != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Link: %s\n", link)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Tracker project name")
	cmd.Flags().StringVarP(&asset, "asset", "a", "", "Asset name")
	cmd.Flags().IntVarP(&version, "version", "v", 1, "Version number (0-999)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Produced file to reference on the version")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload the file to Drive and use its link")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}

// publishExport optionally uploads path to Drive, then publishes the asset
// version with the resulting link.
func publishExport(ctx context.Context, cc *commandContext, project, asset string, version int, path string, upload bool) (string, *publish.AssetResult, error) {
	wf, closeFn, err := cc.newWorkflow(ctx)
	if err != nil {
		return "", nil, err
	}
	defer closeFn()

	link := path
	if upload {
		if !fileutil.FileExists(path) {
			return "", nil, services.Wrap(services.ErrValidation, "cli", "publish", "file "+path+" not found", nil)
		}
		cfg, err := cc.ensureConfig()
		if err != nil {
			return "", nil, err
		}
		client, err := drive.New(ctx, cfg, cc.log())
		if err != nil {
			return "", nil, err
		}
		uploaded, err := client.UploadToProject(ctx, project, path)
		if err != nil {
			return "", nil, err
		}
		if uploaded.WebViewLink != "" {
			link = uploaded.WebViewLink
		}
		cc.log().Info("file uploaded to drive",
			logging.String("file_id", uploaded.ID),
			logging.String("link", link),
		)
	}

	result, err := wf.EnsureAssetAndPublish(ctx, publish.AssetRequest{
		Project: project,
		Asset:   asset,
		Version: version,
		Link:    link,
	})
	return link, &result, err
}

func printAssetResult(cmd *cobra.Command, result publish.AssetResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Published %s (version %d)\n", result.Label, result.VersionID)
	fmt.Fprintf(out, "  Asset: %d (created: %s)\n", result.AssetID, yesNo(result.AssetCreated))
	fmt.Fprintf(out, "  Notified: %s\n", yesNo(result.Notified))
	fmt.Fprintf(out, "  Request: %s\n", result.RequestID)
}

func newFlipbookCommand(ctx *commandContext) *cobra.Command {
	var req publish.FlipbookRequest

	cmd := &cobra.Command{
		Use:   "flipbook <movie>",
		Short: "Publish a review movie to one of your tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			movie, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			req.MoviePath = movie

			wf, closeFn, err := ctx.newWorkflow(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := wf.PublishFlipbook(cmd.Context(), req)
			if err != nil {
				if result.VersionID != 0 && !result.Uploaded {
					fmt.Fprintf(cmd.ErrOrStderr(), "version %d was created but the movie upload failed\n", result.VersionID)
				}
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Published flipbook %s (version %d) to task %s\n", result.Label, result.VersionID, req.Task)
			fmt.Fprintf(out, "  Notified: %s\n", yesNo(result.Notified))
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Project, "project", "p", "", "Tracker project name")
	cmd.Flags().StringVarP(&req.Task, "task", "t", "", "Task name (content)")
	cmd.Flags().StringVarP(&req.Label, "label", "l", "", "Version label, e.g. fxSmoke_v004")
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Version description")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}
