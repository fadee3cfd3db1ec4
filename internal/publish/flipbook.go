package publish

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"vnpipe/internal/catalog"
	"vnpipe/internal/fileutil"
	"vnpipe/internal/history"
	"vnpipe/internal/logging"
	"vnpipe/internal/services"
	"vnpipe/internal/services/flow"
	"vnpipe/internal/textutil"
)

// FlipbookRequest names a review movie to attach to one of the user's tasks.
type FlipbookRequest struct {
	Project     string
	Task        string
	Label       string
	Description string
	MoviePath   string
}

// FlipbookResult reports the Version created for a flipbook.
type FlipbookResult struct {
	RequestID string `json:"request_id"`
	ProjectID int    `json:"project_id"`
	TaskID    int    `json:"task_id"`
	VersionID int    `json:"version_id"`
	Label     string `json:"label"`
	Uploaded  bool   `json:"uploaded"`
	Notified  bool   `json:"notified"`
}

// PublishFlipbook creates a review Version on the task and uploads the movie
// to it. The project and task must be visible to the configured user.
func (w *Workflow) PublishFlipbook(ctx context.Context, req FlipbookRequest) (FlipbookResult, error) {
	project := textutil.NormalizeName(req.Project)
	task := textutil.NormalizeName(req.Task)
	label := strings.TrimSpace(req.Label)
	switch {
	case project == "" || task == "":
		return FlipbookResult{}, services.Wrap(services.ErrValidation, "publish", "flipbook", "project and task are required", nil)
	case label == "":
		return FlipbookResult{}, services.Wrap(services.ErrValidation, "publish", "flipbook", "version label is required", nil)
	case !fileutil.FileExists(req.MoviePath):
		return FlipbookResult{}, services.Wrap(services.ErrValidation, "publish", "flipbook", "movie file "+req.MoviePath+" not found", nil)
	}

	result := FlipbookResult{RequestID: uuid.NewString(), Label: label}
	ctx = services.WithRequestID(ctx, result.RequestID)
	ctx = services.WithOperation(ctx, "flipbook")
	ctx = services.WithProject(ctx, project)
	logger := logging.WithContext(ctx, w.logger)

	unlock, err := lockProject(ctx, w.lockDir, project)
	if err != nil {
		return result, err
	}
	defer unlock()

	err = w.publishFlipbook(ctx, project, task, req, &result)
	w.record(ctx, logger, history.Entry{
		RequestID: result.RequestID,
		Kind:      history.KindFlipbook,
		Project:   project,
		Entity:    task,
		Label:     label,
		VersionID: result.VersionID,
		Link:      req.MoviePath,
	}, err)
	if err != nil {
		logging.ErrorWithContext(logger, "flipbook publish failed", "publish_failed",
			logging.String("task", task),
			logging.String("label", label),
			logging.Int("version_id", result.VersionID),
			logging.Bool("uploaded", result.Uploaded),
			logging.Error(err),
		)
		return result, err
	}

	result.Notified = w.notify(ctx, logger, func(ctx context.Context) error {
		return w.notifier.NotifyFlipbookPublished(ctx, project, task)
	})
	logger.Info("flipbook version published",
		logging.String("task", task),
		logging.String("label", label),
		logging.Int("version_id", result.VersionID),
	)
	return result, nil
}

func (w *Workflow) publishFlipbook(ctx context.Context, project, task string, req FlipbookRequest, result *FlipbookResult) error {
	cat := catalog.New(w.tracker, w.userEmail, w.logger)
	user, err := cat.User(ctx)
	if err != nil {
		return err
	}
	projects, err := cat.ProjectsFor(ctx, user)
	if err != nil {
		return err
	}
	var projectRef flow.EntityRef
	for _, p := range projects {
		if textutil.SameName(p.Name, project) {
			projectRef = flow.Ref("Project", p.ID)
			break
		}
	}
	if projectRef.IsZero() {
		return &services.UnknownProjectError{Project: project}
	}
	result.ProjectID = projectRef.ID

	tasks, err := cat.TasksFor(ctx, user, []flow.EntityRef{projectRef})
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if textutil.SameName(t.Content, task) {
			result.TaskID = t.ID
			break
		}
	}
	if result.TaskID == 0 {
		return &services.UnknownTaskError{Task: task}
	}

	version, err := w.tracker.Create(ctx, "Version", map[string]any{
		"project":        projectRef,
		"sg_task":        flow.Ref("Task", result.TaskID),
		"code":           result.Label,
		"description":    req.Description,
		"sg_status_list": statusReview,
		"user":           flow.Ref("HumanUser", user.ID),
	})
	if err != nil {
		return services.NewRemoteError("create Version", err)
	}
	result.VersionID = version.ID

	if err := w.tracker.Upload(ctx, "Version", version.ID, movieField, req.MoviePath); err != nil {
		return services.NewRemoteError("upload Version movie", err)
	}
	result.Uploaded = true
	return nil
}
