package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"vnpipe/internal/services"
	"vnpipe/internal/textutil"
)

// MenuKind names one of the host parameter menus.
type MenuKind string

const (
	MenuProject  MenuKind = "project"
	MenuSequence MenuKind = "seq"
	MenuShot     MenuKind = "shot"
	MenuTask     MenuKind = "task"
)

// MenuKinds lists the menus in display order.
func MenuKinds() []MenuKind {
	return []MenuKind{MenuProject, MenuSequence, MenuShot, MenuTask}
}

// ParseMenuKind accepts a menu parameter name.
func ParseMenuKind(value string) (MenuKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "project", "projects":
		return MenuProject, nil
	case "seq", "sequence", "sequences":
		return MenuSequence, nil
	case "shot", "shots":
		return MenuShot, nil
	case "task", "tasks":
		return MenuTask, nil
	}
	return "", services.Wrap(services.ErrValidation, "catalog", "menu", fmt.Sprintf("unknown menu %q", value), nil)
}

// MenuItem is one menu entry. Tokens and labels carry the same name.
type MenuItem struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// Menus holds every menu for the user.
type Menus map[MenuKind][]MenuItem

// Labels returns the labels of one menu.
func (m Menus) Labels(kind MenuKind) []string {
	items := m[kind]
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Label)
	}
	return out
}

// Menus fetches projects and tasks once and builds all four menus.
func (c *Catalog) Menus(ctx context.Context) (Menus, error) {
	user, err := c.User(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := c.ProjectsFor(ctx, user)
	if err != nil {
		return nil, err
	}
	tasks, err := c.TasksFor(ctx, user, projects)
	if err != nil {
		return nil, err
	}

	projectNames := make([]string, 0, len(projects))
	for _, p := range projects {
		projectNames = append(projectNames, p.Name)
	}
	taskNames := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskNames = append(taskNames, t.Content)
	}
	return Menus{
		MenuProject:  items(projectNames),
		MenuSequence: items(Sequences(tasks)),
		MenuShot:     items(Shots(tasks)),
		MenuTask:     items(taskNames),
	}, nil
}

// Menu returns a single menu.
func (c *Catalog) Menu(ctx context.Context, kind MenuKind) ([]MenuItem, error) {
	menus, err := c.Menus(ctx)
	if err != nil {
		return nil, err
	}
	return menus[kind], nil
}

func items(names []string) []MenuItem {
	unique := textutil.Unique(names)
	out := make([]MenuItem, 0, len(unique))
	for _, name := range unique {
		out = append(out, MenuItem{Token: name, Label: name})
	}
	return out
}

// SceneContext is the pipeline context encoded in a scene file name.
type SceneContext struct {
	Project  string `json:"project"`
	Sequence string `json:"sequence"`
	Shot     string `json:"shot"`
	Task     string `json:"task"`
}

// ParseSceneName splits PROJECT_SEQ_SHOT_NN_TASK[_...][.ext]. The shot is
// the third and fourth fields joined by an underscore.
func ParseSceneName(basename string) (SceneContext, error) {
	name := filepath.Base(strings.TrimSpace(basename))
	for {
		ext := filepath.Ext(name)
		if ext == "" || !isSceneExt(ext) {
			break
		}
		name = strings.TrimSuffix(name, ext)
	}
	parts := strings.Split(name, "_")
	if len(parts) < 5 {
		return SceneContext{}, services.Wrap(services.ErrValidation, "catalog", "scene name",
			fmt.Sprintf("%q does not follow PROJECT_SEQ_SHOT_NN_TASK", basename), nil)
	}
	return SceneContext{
		Project:  parts[0],
		Sequence: parts[1],
		Shot:     parts[2] + "_" + parts[3],
		Task:     parts[4],
	}, nil
}

func isSceneExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".hip", ".hiplc", ".hipnc", ".bak":
		return true
	}
	return false
}

// Selections holds the menu index preselected for each menu.
type Selections map[MenuKind]int

// DefaultSelections finds each scene value within its menu labels.
func DefaultSelections(menus Menus, scene SceneContext) (Selections, error) {
	values := map[MenuKind]string{
		MenuProject:  scene.Project,
		MenuSequence: scene.Sequence,
		MenuShot:     scene.Shot,
		MenuTask:     scene.Task,
	}
	out := make(Selections, len(values))
	for _, kind := range MenuKinds() {
		index := indexOf(menus.Labels(kind), values[kind])
		if index < 0 {
			return nil, services.Wrap(services.ErrValidation, "catalog", "default selection",
				fmt.Sprintf("%s %q is not in the %s menu", kind, values[kind], kind), nil)
		}
		out[kind] = index
	}
	return out, nil
}

func indexOf(labels []string, value string) int {
	for i, label := range labels {
		if textutil.SameName(label, value) {
			return i
		}
	}
	return -1
}
