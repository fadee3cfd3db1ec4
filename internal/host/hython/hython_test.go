package hython

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vnpipe/internal/services"
	"vnpipe/internal/testsupport"
)

// stubHython installs a fake hython that saves its stdin request to
// requestLog and prints reply as the result line.
func stubHython(t *testing.T, reply string) (binary, requestLog string) {
	t.Helper()
	dir := t.TempDir()
	requestLog = filepath.Join(dir, "requests.jsonl")
	script := "#!/bin/sh\n" +
		"cat >> '" + requestLog + "'\n" +
		"echo >> '" + requestLog + "'\n" +
		"echo 'loading scene...'\n" +
		"echo '" + resultPrefix + reply + "'\n"
	testsupport.StubBinary(t, filepath.Join(dir, "bin"), "hython", script)
	return "hython", requestLog
}

func writeHip(t *testing.T) string {
	t.Helper()
	hip := filepath.Join(t.TempDir(), "NPT_SQ01_SH_010_FX.hip")
	testsupport.WriteFile(t, hip, 16)
	return hip
}

func readRequests(t *testing.T, path string) []request {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read request log: %v", err)
	}
	var out []request
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var req request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			t.Fatalf("decode request %q: %v", line, err)
		}
		out = append(out, req)
	}
	return out
}

func TestChildrenListsContainerNodes(t *testing.T) {
	binary, log := stubHython(t, `{"ok":true,"result":[{"path":"/obj/publisher/rop_fbx1","type":"rop_fbx"},{"path":"/obj/publisher/cache1","type":"filecache::2.0"}]}`)
	hip := writeHip(t)

	session, err := New(binary, hip)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer session.Close()

	children, err := session.Container("/obj/publisher").Children(context.Background())
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 2 || children[1].TypeName() != "filecache::2.0" || children[0].Path() != "/obj/publisher/rop_fbx1" {
		t.Fatalf("unexpected children: %+v", children)
	}

	reqs := readRequests(t, log)
	if len(reqs) != 1 || reqs[0].Command != "children" || reqs[0].Container != "/obj/publisher" || reqs[0].Hip != hip {
		t.Fatalf("unexpected request: %+v", reqs)
	}
}

func TestPressButtonSendsStagedParms(t *testing.T) {
	binary, log := stubHython(t, `{"ok":true,"result":{"node":"/obj/publisher/rop_fbx1"}}`)
	session, err := New(binary, writeHip(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer session.Close()

	n := &node{session: session, path: "/obj/publisher/rop_fbx1", typeName: "rop_fbx", staged: map[string]string{}}
	ctx := context.Background()
	if err := n.SetParm(ctx, "sopoutput", "/exports/Rock01_v004.fbx"); err != nil {
		t.Fatalf("SetParm: %v", err)
	}
	if err := n.PressButton(ctx, "execute"); err != nil {
		t.Fatalf("PressButton: %v", err)
	}

	reqs := readRequests(t, log)
	if len(reqs) != 1 {
		t.Fatalf("expected one host invocation, got %d", len(reqs))
	}
	got := reqs[0]
	if got.Command != "apply" || got.Button != "execute" || !got.Save || got.Parms["sopoutput"] != "/exports/Rock01_v004.fbx" {
		t.Fatalf("unexpected apply request: %+v", got)
	}
	if len(n.staged) != 0 {
		t.Fatalf("expected staged parms cleared, got %v", n.staged)
	}
}

func TestBridgeFailureIsExternalToolError(t *testing.T) {
	binary, _ := stubHython(t, `{"ok":false,"error":"container not found: /obj/nope"}`)
	session, err := New(binary, writeHip(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer session.Close()

	_, err = session.Container("/obj/nope").Children(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "container not found") {
		t.Fatalf("expected bridge message in error, got %v", err)
	}
}

func TestNewRequiresBinaryAndScene(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := New("hython", writeHip(t)); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool for missing binary, got %v", err)
	}

	binary, _ := stubHython(t, `{"ok":true}`)
	if _, err := New(binary, filepath.Join(t.TempDir(), "missing.hip")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing scene, got %v", err)
	}
}

func TestParseResponseUsesLastResultLine(t *testing.T) {
	out := []byte("noise\n" + resultPrefix + `{"ok":false,"error":"first"}` + "\n" + resultPrefix + `{"ok":true}` + "\n")
	resp, err := parseResponse(out)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected last line to win, got %+v", resp)
	}
	if _, err := parseResponse([]byte("no result here\n")); err == nil {
		t.Fatal("expected error without result line")
	}
}
