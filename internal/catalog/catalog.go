package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vnpipe/internal/logging"
	"vnpipe/internal/services"
	"vnpipe/internal/services/flow"
	"vnpipe/internal/textutil"
)

// Finder is the read side of the tracker client.
type Finder interface {
	Find(ctx context.Context, entityType string, filters []flow.Filter, fields []string) ([]flow.Record, error)
	FindOne(ctx context.Context, entityType string, filters []flow.Filter, fields []string) (flow.Record, bool, error)
}

// Task is a tracker task assigned to the user.
type Task struct {
	ID      int            `json:"id"`
	Content string         `json:"content"`
	Entity  flow.EntityRef `json:"entity"`
	Project flow.EntityRef `json:"project"`
}

// Catalog reads menu data for one user.
type Catalog struct {
	tracker   Finder
	userEmail string
	logger    *slog.Logger
}

// New returns a catalog for the user identified by userEmail.
func New(tracker Finder, userEmail string, logger *slog.Logger) *Catalog {
	return &Catalog{
		tracker:   tracker,
		userEmail: strings.TrimSpace(userEmail),
		logger:    logging.NewComponentLogger(logger, "catalog"),
	}
}

// User resolves the configured user.
func (c *Catalog) User(ctx context.Context) (flow.EntityRef, error) {
	rec, ok, err := c.tracker.FindOne(ctx, "HumanUser", []flow.Filter{flow.Is("email", c.userEmail)}, []string{"id", "name"})
	if err != nil {
		return flow.EntityRef{}, services.NewRemoteError("find HumanUser", err)
	}
	if !ok {
		return flow.EntityRef{}, services.Wrap(services.ErrNotFound, "catalog", "user",
			fmt.Sprintf("no tracker user with email %q", c.userEmail), nil)
	}
	return rec.EntityRef("name"), nil
}

// Projects returns the projects the user belongs to.
func (c *Catalog) Projects(ctx context.Context) ([]flow.EntityRef, error) {
	user, err := c.User(ctx)
	if err != nil {
		return nil, err
	}
	return c.ProjectsFor(ctx, user)
}

func (c *Catalog) ProjectsFor(ctx context.Context, user flow.EntityRef) ([]flow.EntityRef, error) {
	rec, ok, err := c.tracker.FindOne(ctx, "HumanUser", []flow.Filter{flow.Is("id", user.ID)}, []string{"projects"})
	if err != nil {
		return nil, services.NewRemoteError("find HumanUser projects", err)
	}
	if !ok {
		return nil, nil
	}
	return rec.Refs("projects"), nil
}

// Tasks returns the tasks assigned to the user across their projects, in
// project order.
func (c *Catalog) Tasks(ctx context.Context) ([]Task, error) {
	user, err := c.User(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := c.ProjectsFor(ctx, user)
	if err != nil {
		return nil, err
	}
	return c.TasksFor(ctx, user, projects)
}

func (c *Catalog) TasksFor(ctx context.Context, user flow.EntityRef, projects []flow.EntityRef) ([]Task, error) {
	userRef := flow.Ref("HumanUser", user.ID)
	var tasks []Task
	for _, project := range projects {
		filters := []flow.Filter{
			flow.Is("project", flow.Ref("Project", project.ID)),
			flow.Is("task_assignees", userRef),
		}
		records, err := c.tracker.Find(ctx, "Task", filters, []string{"content", "entity", "project"})
		if err != nil {
			return nil, services.NewRemoteError("find Task", err)
		}
		for _, rec := range records {
			task := Task{ID: rec.ID, Content: rec.Text("content")}
			task.Entity, _ = rec.Ref("entity")
			if ref, ok := rec.Ref("project"); ok {
				task.Project = ref
			} else {
				task.Project = project
			}
			tasks = append(tasks, task)
		}
	}
	c.logger.Debug("tasks resolved", logging.Int("projects", len(projects)), logging.Int("tasks", len(tasks)))
	return tasks, nil
}

// Shots returns the distinct task parent names in first-seen order.
func Shots(tasks []Task) []string {
	names := make([]string, 0, len(tasks))
	for _, task := range tasks {
		names = append(names, task.Entity.Name)
	}
	return textutil.Unique(names)
}

// Sequences returns the distinct sequence prefixes (the shot name up to the
// first underscore) in first-seen order.
func Sequences(tasks []Task) []string {
	names := make([]string, 0, len(tasks))
	for _, shot := range Shots(tasks) {
		seq, _, _ := strings.Cut(shot, "_")
		names = append(names, seq)
	}
	return textutil.Unique(names)
}
