package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vnpipe/internal/host"
	"vnpipe/internal/logging"
	"vnpipe/internal/services"
)

func TestVersionSuffixCoversFullRange(t *testing.T) {
	for n := 0; n <= MaxVersion; n++ {
		got, err := VersionSuffix(n)
		if err != nil {
			t.Fatalf("VersionSuffix(%d): %v", n, err)
		}
		if len(got) != 5 || got[:2] != "_v" {
			t.Fatalf("VersionSuffix(%d) = %q", n, got)
		}
	}
	if got, _ := VersionSuffix(4); got != "_v004" {
		t.Fatalf("VersionSuffix(4) = %q", got)
	}
	if got, _ := VersionSuffix(999); got != "_v999" {
		t.Fatalf("VersionSuffix(999) = %q", got)
	}
}

func TestVersionSuffixRejectsOutOfRange(t *testing.T) {
	for _, n := range []int{-1, 1000, 12345} {
		if _, err := VersionSuffix(n); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("VersionSuffix(%d): expected ErrValidation, got %v", n, err)
		}
	}
}

func TestParseKindAcceptsDotAndCase(t *testing.T) {
	tests := []struct {
		token string
		want  Kind
	}{
		{"fbx", KindFBX},
		{".FBX", KindFBX},
		{"abc", KindAlembic},
		{".abc", KindAlembic},
		{"VDB", KindVDB},
		{" usd ", KindUSD},
	}
	for _, tc := range tests {
		got, err := ParseKind(tc.token)
		if err != nil || got != tc.want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", tc.token, got, err, tc.want)
		}
	}
	if _, err := ParseKind("obj"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown token, got %v", err)
	}
}

func newScene() *host.Scene {
	scene := host.NewScene("/obj/publisher")
	scene.AddNode("null1", "null")
	scene.AddNode("rop_fbx1", "rop_fbx")
	scene.AddNode("rop_fbx2", "rop_fbx")
	scene.AddNode("rop_alembic1", "rop_alembic")
	scene.AddNode("usdexport1", "usdexport")
	return scene
}

func TestConfigureAndExecuteFBX(t *testing.T) {
	scene := newScene()
	outDir := filepath.Join(t.TempDir(), "exports") + string(filepath.Separator)
	c := NewConfigurator(logging.NewNop())

	result, err := c.ConfigureAndExecute(context.Background(), scene, Request{
		EntityName: "Rock01",
		Version:    4,
		Kind:       KindFBX,
		OutputDir:  outDir,
	})
	if err != nil {
		t.Fatalf("ConfigureAndExecute: %v", err)
	}
	if result.Label != "Rock01_v004" {
		t.Fatalf("unexpected label %q", result.Label)
	}
	want := outDir + "Rock01_v004.fbx"
	if result.OutputPath != want || result.NodePath != "/obj/publisher/rop_fbx1" {
		t.Fatalf("unexpected result: %+v", result)
	}

	first := scene.Node("/obj/publisher/rop_fbx1")
	if v, _ := first.Parm("sopoutput"); v != want {
		t.Fatalf("sopoutput = %q, want %q", v, want)
	}
	if presses := first.Presses(); len(presses) != 1 || presses[0] != "execute" {
		t.Fatalf("expected one execute press, got %v", presses)
	}
	second := scene.Node("/obj/publisher/rop_fbx2")
	if len(second.Parms()) != 0 || len(second.Presses()) != 0 {
		t.Fatal("only the first node of a type should be touched")
	}
	if info, err := os.Stat(outDir); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir created: %v", err)
	}
}

func TestConfigureAndExecuteParameterPerKind(t *testing.T) {
	tests := []struct {
		kind Kind
		node string
		parm string
		ext  string
	}{
		{KindAlembic, "/obj/publisher/rop_alembic1", "filename", ".abc"},
		{KindUSD, "/obj/publisher/usdexport1", "lopoutput", ".usd"},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			scene := newScene()
			outDir := t.TempDir() + string(filepath.Separator)
			result, err := NewConfigurator(nil).ConfigureAndExecute(context.Background(), scene, Request{
				EntityName: "Tree02", Version: 12, Kind: tc.kind, OutputDir: outDir,
			})
			if err != nil {
				t.Fatalf("ConfigureAndExecute: %v", err)
			}
			want := outDir + "Tree02_v012" + tc.ext
			if v, _ := scene.Node(tc.node).Parm(tc.parm); v != want || result.OutputPath != want {
				t.Fatalf("%s = %q (result %q), want %q", tc.parm, v, result.OutputPath, want)
			}
		})
	}
}

func TestConfigureAndExecuteVDBSetsBasenameAndDir(t *testing.T) {
	scene := host.NewScene("/obj/publisher")
	cache := scene.AddNode("filecache1", "filecache::2.0")
	outDir := t.TempDir() + string(filepath.Separator)

	result, err := NewConfigurator(nil).ConfigureAndExecute(context.Background(), scene, Request{
		EntityName: "Smoke", Version: 0, Kind: KindVDB, OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("ConfigureAndExecute: %v", err)
	}
	if v, _ := cache.Parm("basename"); v != "Smoke_v000" {
		t.Fatalf("basename = %q", v)
	}
	if v, _ := cache.Parm("basedir"); v != outDir {
		t.Fatalf("basedir = %q", v)
	}
	if result.Label != "Smoke_v000" || len(cache.Presses()) != 1 {
		t.Fatalf("unexpected result %+v presses=%v", result, cache.Presses())
	}
}

func TestConfigureAndExecuteMissingNodeTouchesNothing(t *testing.T) {
	scene := newScene()
	outDir := filepath.Join(t.TempDir(), "never") + string(filepath.Separator)

	_, err := NewConfigurator(nil).ConfigureAndExecute(context.Background(), scene, Request{
		EntityName: "Smoke", Version: 1, Kind: KindVDB, OutputDir: outDir,
	})
	var missing *services.MissingExportNodeError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingExportNodeError, got %v", err)
	}
	if missing.NodeType != "filecache::2.0" || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unexpected error detail: %+v", missing)
	}
	children, _ := scene.Children(context.Background())
	for _, child := range children {
		node := scene.Node(child.Path())
		if len(node.Parms()) != 0 || len(node.Presses()) != 0 {
			t.Fatalf("node %s was modified", child.Path())
		}
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("output dir should not be created, stat err=%v", err)
	}
}

func TestConfigureAndExecuteRejectsBadVersion(t *testing.T) {
	scene := newScene()
	_, err := NewConfigurator(nil).ConfigureAndExecute(context.Background(), scene, Request{
		EntityName: "Rock01", Version: 1000, Kind: KindFBX, OutputDir: t.TempDir() + "/",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(scene.Node("/obj/publisher/rop_fbx1").Presses()) != 0 {
		t.Fatal("execute must not be pressed")
	}
}

func TestConfigureAndExecuteWrapsPressFailure(t *testing.T) {
	scene := newScene()
	scene.Node("/obj/publisher/rop_fbx1").OnPress = func(*host.MemoryNode, string) error {
		return errors.New("cook error")
	}
	_, err := NewConfigurator(nil).ConfigureAndExecute(context.Background(), scene, Request{
		EntityName: "Rock01", Version: 4, Kind: KindFBX, OutputDir: t.TempDir() + "/",
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestWaitForOutputSeesProducedFile(t *testing.T) {
	scene := newScene()
	scene.Node("/obj/publisher/rop_fbx1").OnPress = func(n *host.MemoryNode, _ string) error {
		path, _ := n.Parm("sopoutput")
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = os.WriteFile(path, []byte("fbx"), 0o644)
		}()
		return nil
	}
	result, err := NewConfigurator(nil).ConfigureAndExecute(context.Background(), scene, Request{
		EntityName: "Rock01", Version: 4, Kind: KindFBX, OutputDir: t.TempDir() + "/",
	})
	if err != nil {
		t.Fatalf("ConfigureAndExecute: %v", err)
	}
	if err := WaitForOutput(context.Background(), result, 5*time.Second); err != nil {
		t.Fatalf("WaitForOutput: %v", err)
	}
}
