package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vnpipe/internal/export"
	"vnpipe/internal/history"
	"vnpipe/internal/logging"
	"vnpipe/internal/notifications"
	"vnpipe/internal/services"
	"vnpipe/internal/services/flow"
	"vnpipe/internal/textutil"
)

const (
	assetTypeModel = "Model"
	statusReview   = "rev"
	movieField     = "sg_uploaded_movie"
)

// Tracker is the subset of the tracker client the workflow needs.
type Tracker interface {
	Find(ctx context.Context, entityType string, filters []flow.Filter, fields []string) ([]flow.Record, error)
	FindOne(ctx context.Context, entityType string, filters []flow.Filter, fields []string) (flow.Record, bool, error)
	Create(ctx context.Context, entityType string, data map[string]any) (flow.Record, error)
	Upload(ctx context.Context, entityType string, id int, field, path string) error
}

// Recorder persists publish attempts.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// Options configures a Workflow. Tracker and UserEmail are required.
type Options struct {
	Tracker   Tracker
	Notifier  notifications.Service
	History   Recorder
	UserEmail string
	LockDir   string
	Logger    *slog.Logger
}

// Workflow publishes versions for one tracker user.
type Workflow struct {
	tracker   Tracker
	notifier  notifications.Service
	history   Recorder
	userEmail string
	lockDir   string
	logger    *slog.Logger
}

// New validates opts and returns a workflow.
func New(opts Options) (*Workflow, error) {
	if opts.Tracker == nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "init", "tracker client is required", nil)
	}
	email := strings.TrimSpace(opts.UserEmail)
	if email == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "init", "user email is required", nil)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Workflow{
		tracker:   opts.Tracker,
		notifier:  notifier,
		history:   opts.History,
		userEmail: email,
		lockDir:   opts.LockDir,
		logger:    logging.NewComponentLogger(opts.Logger, "publish"),
	}, nil
}

// AssetRequest names the asset version to publish.
type AssetRequest struct {
	Project string
	Asset   string
	Version int
	// Link is the produced file path or a cloud link to it.
	Link string
}

// AssetResult reports what the publish produced. On error it holds whatever
// was created before the failure.
type AssetResult struct {
	RequestID    string `json:"request_id"`
	ProjectID    int    `json:"project_id"`
	AssetID      int    `json:"asset_id"`
	AssetCreated bool   `json:"asset_created"`
	VersionID    int    `json:"version_id"`
	Label        string `json:"label"`
	Notified     bool   `json:"notified"`
}

// EnsureAssetAndPublish resolves the project, finds or creates the named
// Asset, and attaches a Version labelled <asset>_vNNN to it.
//
// There is no rollback: if the Version create fails after the Asset was
// created, the Asset remains and AssetCreated is set on the returned result.
func (w *Workflow) EnsureAssetAndPublish(ctx context.Context, req AssetRequest) (AssetResult, error) {
	project := textutil.NormalizeName(req.Project)
	asset := textutil.NormalizeName(req.Asset)
	if project == "" || asset == "" {
		return AssetResult{}, services.Wrap(services.ErrValidation, "publish", "asset", "project and asset names are required", nil)
	}
	label, err := export.VersionLabel(asset, req.Version)
	if err != nil {
		return AssetResult{}, err
	}

	result := AssetResult{RequestID: uuid.NewString(), Label: label}
	ctx = services.WithRequestID(ctx, result.RequestID)
	ctx = services.WithOperation(ctx, "publish")
	ctx = services.WithProject(ctx, project)
	logger := logging.WithContext(ctx, w.logger)

	unlock, err := lockProject(ctx, w.lockDir, project)
	if err != nil {
		return result, err
	}
	defer unlock()

	err = w.publishAsset(ctx, logger, project, asset, req.Link, &result)
	w.record(ctx, logger, history.Entry{
		RequestID:    result.RequestID,
		Kind:         history.KindAsset,
		Project:      project,
		Entity:       asset,
		Label:        label,
		VersionID:    result.VersionID,
		AssetID:      result.AssetID,
		AssetCreated: result.AssetCreated,
		Link:         req.Link,
	}, err)
	if err != nil {
		logging.ErrorWithContext(logger, "asset publish failed", "publish_failed",
			logging.String("asset", asset),
			logging.String("label", label),
			logging.Int("asset_id", result.AssetID),
			logging.Bool("asset_created", result.AssetCreated),
			logging.Error(err),
		)
		return result, err
	}

	result.Notified = w.notify(ctx, logger, func(ctx context.Context) error {
		return w.notifier.NotifyAssetPublished(ctx, notifyFileName(req.Link, label))
	})
	logger.Info("asset version published",
		logging.String("asset", asset),
		logging.String("label", label),
		logging.Int("asset_id", result.AssetID),
		logging.Bool("asset_created", result.AssetCreated),
		logging.Int("version_id", result.VersionID),
	)
	return result, nil
}

func (w *Workflow) publishAsset(ctx context.Context, logger *slog.Logger, project, asset, link string, result *AssetResult) error {
	projectRef, err := w.resolveProject(ctx, project)
	if err != nil {
		return err
	}
	result.ProjectID = projectRef.ID

	user, err := w.resolveUser(ctx)
	if err != nil {
		return err
	}

	assetID, created, err := w.ensureAsset(ctx, projectRef, asset)
	if err != nil {
		return err
	}
	result.AssetID = assetID
	result.AssetCreated = created
	if created {
		logger.Info("asset created", logging.String("asset", asset), logging.Int("asset_id", assetID))
	}

	data := map[string]any{
		"project":        projectRef,
		"entity":         flow.Ref("Asset", assetID),
		"code":           result.Label,
		"sg_status_list": statusReview,
		"user":           user,
	}
	if link != "" {
		data["description"] = link
		if !isURL(link) {
			data["sg_path_to_movie"] = link
		}
	}
	version, err := w.tracker.Create(ctx, "Version", data)
	if err != nil {
		return services.NewRemoteError("create Version", err)
	}
	result.VersionID = version.ID
	return nil
}

func (w *Workflow) resolveProject(ctx context.Context, name string) (flow.EntityRef, error) {
	rec, ok, err := w.tracker.FindOne(ctx, "Project", []flow.Filter{flow.Is("name", name)}, []string{"id", "name"})
	if err != nil {
		return flow.EntityRef{}, services.NewRemoteError("find Project", err)
	}
	if !ok {
		return flow.EntityRef{}, &services.UnknownProjectError{Project: name}
	}
	return flow.Ref("Project", rec.ID), nil
}

func (w *Workflow) resolveUser(ctx context.Context) (flow.EntityRef, error) {
	rec, ok, err := w.tracker.FindOne(ctx, "HumanUser", []flow.Filter{flow.Is("email", w.userEmail)}, []string{"id", "name"})
	if err != nil {
		return flow.EntityRef{}, services.NewRemoteError("find HumanUser", err)
	}
	if !ok {
		return flow.EntityRef{}, services.Wrap(services.ErrNotFound, "publish", "user",
			fmt.Sprintf("no tracker user with email %q", w.userEmail), nil)
	}
	return flow.Ref("HumanUser", rec.ID), nil
}

// ensureAsset returns the id of the Asset named asset under project, creating
// it when the project has none.
func (w *Workflow) ensureAsset(ctx context.Context, project flow.EntityRef, asset string) (int, bool, error) {
	records, err := w.tracker.Find(ctx, "Asset", []flow.Filter{flow.Is("project", project)}, []string{"code"})
	if err != nil {
		return 0, false, services.NewRemoteError("find Asset", err)
	}
	listedID := 0
	for _, rec := range records {
		if textutil.SameName(rec.Text("code"), asset) {
			listedID = rec.ID
			break
		}
	}

	if listedID != 0 {
		filters := []flow.Filter{flow.Is("project", project), flow.Is("code", asset)}
		rec, ok, err := w.tracker.FindOne(ctx, "Asset", filters, []string{"id", "code"})
		if err != nil {
			return 0, false, services.NewRemoteError("find Asset", err)
		}
		if ok {
			return rec.ID, false, nil
		}
		// The listing matched after normalization but the exact-code lookup
		// did not; the listed record is the same asset.
		return listedID, false, nil
	}

	created, err := w.tracker.Create(ctx, "Asset", map[string]any{
		"project":       project,
		"code":          asset,
		"sg_asset_type": assetTypeModel,
	})
	if err != nil {
		return 0, false, services.NewRemoteError("create Asset", err)
	}
	return created.ID, true, nil
}

// notify runs send and reports whether it succeeded. Failures are logged.
func (w *Workflow) notify(ctx context.Context, logger *slog.Logger, send func(context.Context) error) bool {
	if notifications.IsNoop(w.notifier) {
		return false
	}
	if err := send(ctx); err != nil {
		logging.WarnWithContext(logger, "publish notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check discord token and channel, or run 'vnpipe test-notify'"),
			logging.String(logging.FieldImpact, "version published without chat announcement"),
		)
		return false
	}
	return true
}

func (w *Workflow) record(ctx context.Context, logger *slog.Logger, entry history.Entry, cause error) {
	if w.history == nil {
		return
	}
	entry.Status = history.StatusPublished
	if cause != nil {
		entry.Status = history.StatusFailed
		entry.Error = cause.Error()
	}
	// Recorded even when ctx was cancelled mid-publish.
	if _, err := w.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "publish history write failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "publish not shown by 'vnpipe history'"),
		)
	}
}

func notifyFileName(link, label string) string {
	if link == "" || isURL(link) {
		return label
	}
	return filepath.Base(link)
}

func isURL(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}

// IsPartial reports whether err left tracker state behind: an Asset was
// created but no Version attached to it.
func IsPartial(result AssetResult, err error) bool {
	return err != nil && result.AssetCreated && result.VersionID == 0 && !errors.Is(err, services.ErrValidation)
}
