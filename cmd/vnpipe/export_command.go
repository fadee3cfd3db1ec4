package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vnpipe/internal/config"
	"vnpipe/internal/export"
	"vnpipe/internal/fileutil"
	"vnpipe/internal/host"
	"vnpipe/internal/host/hython"
	"vnpipe/internal/publish"
	"vnpipe/internal/services"
	"vnpipe/internal/textutil"
)

type exportOptions struct {
	hipFile   string
	container string
	kind      string
	version   int
	name      string
	output    string
	wait      time.Duration
	dryRun    bool
	publish   bool
	project   string
	upload    bool
}

type exportReport struct {
	Export  export.Result        `json:"export"`
	Publish *publish.AssetResult `json:"publish,omitempty"`
	Link    string               `json:"link,omitempty"`
	DryRun  bool                 `json:"dry_run,omitempty"`
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Configure and run an export node in a scene",
		Long: "Sets the output path of the first export node of the requested kind in the\n" +
			"container and presses its execute button. With --publish the produced file is\n" +
			"then published as a new asset version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			kind, err := export.ParseKind(opts.kind)
			if err != nil {
				return err
			}
			if opts.publish && strings.TrimSpace(opts.project) == "" {
				return services.Wrap(services.ErrValidation, "cli", "export", "--project is required with --publish", nil)
			}
			if opts.upload && kind == export.KindVDB {
				return services.Wrap(services.ErrValidation, "cli", "export", "--upload is not supported for vdb caches (output is a frame sequence)", nil)
			}
			container, closeFn, err := openContainer(cfg, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			outputDir, err := exportDir(cfg, opts.output, opts.name)
			if err != nil {
				return err
			}

			runCtx := services.WithOperation(cmd.Context(), "export")
			configurator := export.NewConfigurator(ctx.log())
			result, err := configurator.ConfigureAndExecute(runCtx, container, export.Request{
				EntityName: opts.name,
				Version:    opts.version,
				Kind:       kind,
				OutputDir:  outputDir,
			})
			if err != nil {
				return err
			}
			report := exportReport{Export: result, DryRun: opts.dryRun}

			if opts.wait > 0 && !opts.dryRun {
				if err := export.WaitForOutput(runCtx, result, opts.wait); err != nil {
					return err
				}
			}

			if opts.publish && !opts.dryRun {
				link, pub, err := publishExport(cmd.Context(), ctx, opts.project, opts.name, opts.version, result.OutputPath, opts.upload)
				if pub != nil {
					report.Publish = pub
				}
				report.Link = link
				if err != nil {
					return err
				}
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			printExportReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.hipFile, "hip", "", "Scene file to open in the headless host")
	cmd.Flags().StringVar(&opts.container, "container", "", "Container node holding the export nodes (default from config)")
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "Export kind: fbx, abc, vdb or usd")
	cmd.Flags().IntVarP(&opts.version, "version", "v", 1, "Version number (0-999)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Asset or entity name")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output directory (default <export_dir>/<name>)")
	cmd.Flags().DurationVar(&opts.wait, "wait", 0, "Wait up to this long for the produced file to appear")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Run against an in-memory scene without touching the host")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Publish the produced file as an asset version")
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Tracker project to publish into")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Upload the produced file to Drive and use its link")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func openContainer(cfg *config.Config, opts exportOptions) (host.Container, func(), error) {
	path := strings.TrimSpace(opts.container)
	if path == "" {
		path = cfg.Host.Container
	}
	if opts.dryRun {
		return dryRunScene(path), func() {}, nil
	}
	if strings.TrimSpace(opts.hipFile) == "" {
		return nil, nil, services.Wrap(services.ErrValidation, "cli", "export", "--hip is required unless --dry-run is set", nil)
	}
	hip, err := config.ExpandPath(opts.hipFile)
	if err != nil {
		return nil, nil, err
	}
	session, err := hython.New(cfg.HythonBinary(), hip)
	if err != nil {
		return nil, nil, err
	}
	return session.Container(path), func() { _ = session.Close() }, nil
}

// dryRunScene returns a scene holding one node of every export type.
func dryRunScene(path string) *host.Scene {
	scene := host.NewScene(path)
	for _, kind := range export.Kinds() {
		target, _ := kind.Target()
		scene.AddNode(target.Token+"_export", target.NodeType)
	}
	return scene
}

func exportDir(cfg *config.Config, output, name string) (string, error) {
	dir := strings.TrimSpace(output)
	if dir == "" {
		sub := textutil.SanitizeFileName(name)
		if sub == "" {
			return "", services.Wrap(services.ErrValidation, "cli", "export", "--name is required", nil)
		}
		dir = filepath.Join(cfg.Paths.ExportDir, sub)
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	return fileutil.WithTrailingSeparator(expanded), nil
}

func printExportReport(cmd *cobra.Command, report exportReport) {
	out := cmd.OutOrStdout()
	prefix := ""
	if report.DryRun {
		prefix = "[dry-run] "
	}
	fmt.Fprintf(out, "%sExported %s via %s\n", prefix, report.Export.Label, report.Export.NodePath)
	fmt.Fprintf(out, "  Output: %s\n", report.Export.OutputPath)
	if report.Publish != nil {
		printAssetResult(cmd, *report.Publish)
	}
	if report.Link != "" {
		fmt.Fprintf(out, "  Link: %s\n", report.Link)
	}
}
