package hython

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"vnpipe/internal/host"
	"vnpipe/internal/services"
)

//go:embed bridge.py
var bridgeScript []byte

const resultPrefix = "VNPIPE_RESULT "

// Session runs bridge requests against one scene file.
type Session struct {
	binary  string
	hipFile string

	scriptOnce sync.Once
	scriptPath string
	scriptErr  error
}

// New resolves binary on PATH and returns a session bound to hipFile.
func New(binary, hipFile string) (*Session, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "hython"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "hython", "lookup", "host binary not found on PATH", err)
	}
	hipFile = strings.TrimSpace(hipFile)
	if hipFile == "" {
		return nil, services.Wrap(services.ErrValidation, "hython", "open", "scene file is required", nil)
	}
	if _, err := os.Stat(hipFile); err != nil {
		return nil, services.Wrap(services.ErrValidation, "hython", "open", "scene file not readable", err)
	}
	return &Session{binary: resolved, hipFile: hipFile}, nil
}

// HipFile returns the scene file path.
func (s *Session) HipFile() string { return s.hipFile }

// Container returns a host.Container for the node at path.
func (s *Session) Container(path string) host.Container {
	return &container{session: s, path: path}
}

// Close removes the extracted bridge script.
func (s *Session) Close() error {
	if s.scriptPath == "" {
		return nil
	}
	return os.RemoveAll(filepath.Dir(s.scriptPath))
}

type request struct {
	Command   string            `json:"command"`
	Hip       string            `json:"hip"`
	Container string            `json:"container,omitempty"`
	Node      string            `json:"node,omitempty"`
	Parms     map[string]string `json:"parms,omitempty"`
	Button    string            `json:"button,omitempty"`
	Save      bool              `json:"save,omitempty"`
}

type response struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (s *Session) script() (string, error) {
	s.scriptOnce.Do(func() {
		dir, err := os.MkdirTemp("", "vnpipe-hython-")
		if err != nil {
			s.scriptErr = fmt.Errorf("create bridge dir: %w", err)
			return
		}
		path := filepath.Join(dir, "bridge.py")
		if err := os.WriteFile(path, bridgeScript, 0o600); err != nil {
			s.scriptErr = fmt.Errorf("write bridge script: %w", err)
			return
		}
		s.scriptPath = path
	})
	return s.scriptPath, s.scriptErr
}

func (s *Session) run(ctx context.Context, req request, out any) error {
	script, err := s.script()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "hython", req.Command, "prepare bridge", err)
	}
	req.Hip = s.hipFile
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode bridge request: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.binary, script)
	cmd.Stdin = bytes.NewReader(payload)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, runErr := cmd.Output()

	resp, parseErr := parseResponse(output)
	if parseErr != nil {
		if runErr != nil {
			return services.Wrap(services.ErrExternalTool, "hython", req.Command, strings.TrimSpace(stderr.String()), runErr)
		}
		return services.Wrap(services.ErrExternalTool, "hython", req.Command, "read bridge output", parseErr)
	}
	if !resp.OK {
		return services.Wrap(services.ErrExternalTool, "hython", req.Command, resp.Error, runErr)
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return services.Wrap(services.ErrExternalTool, "hython", req.Command, "decode bridge result", err)
		}
	}
	return nil
}

func parseResponse(output []byte) (response, error) {
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, resultPrefix) {
			last = strings.TrimPrefix(line, resultPrefix)
		}
	}
	if err := scanner.Err(); err != nil {
		return response{}, err
	}
	if last == "" {
		return response{}, errors.New("no result line in bridge output")
	}
	var resp response
	if err := json.Unmarshal([]byte(last), &resp); err != nil {
		return response{}, err
	}
	return resp, nil
}

type container struct {
	session *Session
	path    string
}

func (c *container) Path() string { return c.path }

func (c *container) Children(ctx context.Context) ([]host.Node, error) {
	var listed []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	}
	if err := c.session.run(ctx, request{Command: "children", Container: c.path}, &listed); err != nil {
		return nil, err
	}
	nodes := make([]host.Node, 0, len(listed))
	for _, entry := range listed {
		nodes = append(nodes, &node{session: c.session, path: entry.Path, typeName: entry.Type, staged: map[string]string{}})
	}
	return nodes, nil
}

type node struct {
	session  *Session
	path     string
	typeName string

	mu     sync.Mutex
	staged map[string]string
}

func (n *node) Path() string     { return n.path }
func (n *node) TypeName() string { return n.typeName }

// SetParm stages the value; it is applied by the next PressButton.
func (n *node) SetParm(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.staged[name] = value
	return nil
}

// PressButton applies staged parameters, presses name and saves the scene.
func (n *node) PressButton(ctx context.Context, name string) error {
	n.mu.Lock()
	parms := make(map[string]string, len(n.staged))
	for k, v := range n.staged {
		parms[k] = v
	}
	n.mu.Unlock()

	req := request{Command: "apply", Node: n.path, Parms: parms, Button: name, Save: true}
	if err := n.session.run(ctx, req, nil); err != nil {
		return err
	}

	n.mu.Lock()
	n.staged = map[string]string{}
	n.mu.Unlock()
	return nil
}
