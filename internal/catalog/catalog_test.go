package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"vnpipe/internal/services"
	"vnpipe/internal/services/flow"
	"vnpipe/internal/services/flow/flowtest"
)

func seedTracker(t *testing.T) *flowtest.Tracker {
	t.Helper()
	tracker := flowtest.New()
	npt := tracker.Add("Project", map[string]any{"name": "NPT"})
	lab := tracker.Add("Project", map[string]any{"name": "LAB"})
	other := tracker.Add("HumanUser", map[string]any{"email": "other@example.com", "name": "Other"})
	user := tracker.Add("HumanUser", map[string]any{
		"email":    "artist@example.com",
		"name":     "Artist",
		"projects": []flow.EntityRef{npt.EntityRef("name"), lab.EntityRef("name")},
	})
	me := flow.Ref("HumanUser", user.ID)

	shot := func(name string) flow.EntityRef { return flow.EntityRef{Type: "Shot", ID: len(name), Name: name} }
	tracker.Add("Task", map[string]any{"content": "FX", "project": flow.Ref("Project", npt.ID), "task_assignees": me, "entity": shot("SQ01_010")})
	tracker.Add("Task", map[string]any{"content": "Lighting", "project": flow.Ref("Project", npt.ID), "task_assignees": me, "entity": shot("SQ01_020")})
	tracker.Add("Task", map[string]any{"content": "FX", "project": flow.Ref("Project", npt.ID), "task_assignees": me, "entity": shot("SQ02_010")})
	tracker.Add("Task", map[string]any{"content": "Comp", "project": flow.Ref("Project", npt.ID), "task_assignees": flow.Ref("HumanUser", other.ID), "entity": shot("SQ09_010")})
	tracker.Add("Task", map[string]any{"content": "Layout", "project": flow.Ref("Project", lab.ID), "task_assignees": me, "entity": shot("TST_001")})
	return tracker
}

func TestProjectsForUser(t *testing.T) {
	c := New(seedTracker(t), "artist@example.com", nil)
	projects, err := c.Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 2 || projects[0].Name != "NPT" || projects[1].Name != "LAB" {
		t.Fatalf("unexpected projects: %+v", projects)
	}
}

func TestTasksOnlyAssignedToUser(t *testing.T) {
	c := New(seedTracker(t), "artist@example.com", nil)
	tasks, err := c.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d: %+v", len(tasks), tasks)
	}
	for _, task := range tasks {
		if task.Content == "Comp" {
			t.Fatal("task assigned to another user leaked into the list")
		}
	}
	if !reflect.DeepEqual(Shots(tasks), []string{"SQ01_010", "SQ01_020", "SQ02_010", "TST_001"}) {
		t.Fatalf("unexpected shots: %v", Shots(tasks))
	}
	if !reflect.DeepEqual(Sequences(tasks), []string{"SQ01", "SQ02", "TST"}) {
		t.Fatalf("unexpected sequences: %v", Sequences(tasks))
	}
}

func TestMenusDeduplicate(t *testing.T) {
	c := New(seedTracker(t), "artist@example.com", nil)
	menus, err := c.Menus(context.Background())
	if err != nil {
		t.Fatalf("Menus: %v", err)
	}
	if got := menus.Labels(MenuTask); !reflect.DeepEqual(got, []string{"FX", "Lighting", "Layout"}) {
		t.Fatalf("unexpected task menu: %v", got)
	}
	for _, item := range menus[MenuProject] {
		if item.Token != item.Label {
			t.Fatalf("token and label differ: %+v", item)
		}
	}
}

func TestUnknownUserIsNotFound(t *testing.T) {
	c := New(seedTracker(t), "ghost@example.com", nil)
	if _, err := c.Projects(context.Background()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoteFailureSurfaces(t *testing.T) {
	tracker := seedTracker(t)
	tracker.FailOn("find", "Task", errors.New("boom"))
	c := New(tracker, "artist@example.com", nil)
	_, err := c.Tasks(context.Background())
	var remote *services.RemoteServiceError
	if !errors.As(err, &remote) || remote.Operation != "find Task" {
		t.Fatalf("expected RemoteServiceError for find Task, got %v", err)
	}
}

func TestParseSceneName(t *testing.T) {
	got, err := ParseSceneName("/work/NPT_SQ01_SH_010_FX_v003.hiplc")
	if err != nil {
		t.Fatalf("ParseSceneName: %v", err)
	}
	want := SceneContext{Project: "NPT", Sequence: "SQ01", Shot: "SH_010", Task: "FX"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	got, err = ParseSceneName("NPT_SQ01_SH_010_FX.hip")
	if err != nil || got.Task != "FX" {
		t.Fatalf("expected extension stripped from task, got %+v (%v)", got, err)
	}

	if _, err := ParseSceneName("NPT_SQ01_SH.hip"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for short name, got %v", err)
	}
}

func TestDefaultSelections(t *testing.T) {
	menus := Menus{
		MenuProject:  items([]string{"LAB", "NPT"}),
		MenuSequence: items([]string{"SQ01", "SQ02"}),
		MenuShot:     items([]string{"SQ01_010", "SQ02_010"}),
		MenuTask:     items([]string{"FX", "Lighting"}),
	}
	scene := SceneContext{Project: "NPT", Sequence: "SQ02", Shot: "SQ02_010", Task: "Lighting"}
	sel, err := DefaultSelections(menus, scene)
	if err != nil {
		t.Fatalf("DefaultSelections: %v", err)
	}
	want := Selections{MenuProject: 1, MenuSequence: 1, MenuShot: 1, MenuTask: 1}
	if !reflect.DeepEqual(sel, want) {
		t.Fatalf("got %v, want %v", sel, want)
	}

	scene.Task = "Comp"
	if _, err := DefaultSelections(menus, scene); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing task, got %v", err)
	}
}

func TestParseMenuKind(t *testing.T) {
	for in, want := range map[string]MenuKind{"project": MenuProject, "sequence": MenuSequence, "SEQ": MenuSequence, "shots": MenuShot, "task": MenuTask} {
		got, err := ParseMenuKind(in)
		if err != nil || got != want {
			t.Errorf("ParseMenuKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMenuKind("asset"); err == nil {
		t.Fatal("expected error for unknown menu")
	}
}
