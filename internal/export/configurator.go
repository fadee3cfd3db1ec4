package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"vnpipe/internal/fileutil"
	"vnpipe/internal/host"
	"vnpipe/internal/logging"
	"vnpipe/internal/services"
)

// Request describes one export.
type Request struct {
	EntityName string
	Version    int
	Kind       Kind
	// OutputDir is concatenated directly with the file name; it is expected
	// to end in a path separator.
	OutputDir string
}

// Result reports what was configured.
type Result struct {
	Kind     Kind   `json:"kind"`
	NodePath string `json:"node_path"`
	// OutputPath is the produced file. For VDB it is the configured directory
	// joined with the basename; the host appends its own frame and extension.
	OutputPath string `json:"output_path"`
	Label      string `json:"label"`
}

// Configurator drives export nodes.
type Configurator struct {
	logger *slog.Logger
}

// NewConfigurator returns a configurator that logs through logger.
func NewConfigurator(logger *slog.Logger) *Configurator {
	return &Configurator{logger: logging.NewComponentLogger(logger, "export")}
}

// ConfigureAndExecute sets the output parameters of the first node of the
// required type and presses its execute button.
func (c *Configurator) ConfigureAndExecute(ctx context.Context, container host.Container, req Request) (Result, error) {
	target, ok := req.Kind.Target()
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, "export", "configure", fmt.Sprintf("invalid export kind %d", int(req.Kind)), nil)
	}
	entity := strings.TrimSpace(req.EntityName)
	if entity == "" {
		return Result{}, services.Wrap(services.ErrValidation, "export", "configure", "entity name is required", nil)
	}
	suffix, err := VersionSuffix(req.Version)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "export", "configure", "output directory is required", nil)
	}
	if container == nil {
		return Result{}, services.Wrap(services.ErrValidation, "export", "configure", "container is required", nil)
	}

	nodes, err := ResolveNodes(ctx, container)
	if err != nil {
		return Result{}, err
	}
	node := nodes[req.Kind]
	if node == nil {
		return Result{}, &services.MissingExportNodeError{Kind: target.Label, NodeType: target.NodeType}
	}

	if err := fileutil.EnsureDir(req.OutputDir); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "export", "configure", "create output directory", err)
	}

	label := entity + suffix
	result := Result{Kind: req.Kind, NodePath: node.Path(), Label: label}
	logger := logging.WithContext(ctx, c.logger).With(
		logging.String("kind", target.Token),
		logging.String("node", node.Path()),
	)

	if target.Parm == "" {
		if err := node.SetParm(ctx, target.BaseParm, label); err != nil {
			return Result{}, setParmError(target.BaseParm, node, err)
		}
		if err := node.SetParm(ctx, target.DirParm, req.OutputDir); err != nil {
			return Result{}, setParmError(target.DirParm, node, err)
		}
		result.OutputPath = filepath.Join(req.OutputDir, label)
	} else {
		outputPath := req.OutputDir + label + target.Extension
		if err := node.SetParm(ctx, target.Parm, outputPath); err != nil {
			return Result{}, setParmError(target.Parm, node, err)
		}
		result.OutputPath = outputPath
	}
	logger.Debug("export node configured", logging.String("output", result.OutputPath))

	started := time.Now()
	if err := node.PressButton(ctx, target.ButtonParm); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "export", "execute", node.Path(), err)
	}
	logger.Info("export executed",
		logging.String("label", label),
		logging.String("output", result.OutputPath),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// ResolveNodes maps each known kind to the first immediate child of the
// matching type. Kinds without a node are absent from the map.
func ResolveNodes(ctx context.Context, container host.Container) (map[Kind]host.Node, error) {
	children, err := container.Children(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "export", "list children", container.Path(), err)
	}
	byType := make(map[string]Kind, len(targets))
	for kind, target := range targets {
		byType[target.NodeType] = kind
	}
	resolved := make(map[Kind]host.Node, len(targets))
	for _, child := range children {
		kind, ok := byType[child.TypeName()]
		if !ok {
			continue
		}
		if _, seen := resolved[kind]; seen {
			continue
		}
		resolved[kind] = child
	}
	return resolved, nil
}

// WaitForOutput blocks until the produced file exists or timeout elapses.
func WaitForOutput(ctx context.Context, result Result, timeout time.Duration) error {
	if result.Kind == KindVDB {
		// The host decorates VDB basenames with frame numbers; only the
		// directory can be watched.
		return nil
	}
	if err := fileutil.WaitForFile(ctx, result.OutputPath, timeout); err != nil {
		return services.Wrap(services.ErrExternalTool, "export", "wait", result.OutputPath, err)
	}
	return nil
}

func setParmError(parm string, node host.Node, err error) error {
	return services.Wrap(services.ErrExternalTool, "export", "set parm", fmt.Sprintf("%s on %s", parm, node.Path()), err)
}
