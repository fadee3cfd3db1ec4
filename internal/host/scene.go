package host

import (
	"context"
	"fmt"
	"path"
	"sync"
)

// Scene is an in-memory Container. It records every parameter set and button
// press so callers can inspect what a live host would have received.
type Scene struct {
	path  string
	mu    sync.Mutex
	nodes []*MemoryNode
}

// NewScene returns an empty scene rooted at containerPath.
func NewScene(containerPath string) *Scene {
	return &Scene{path: containerPath}
}

// Path returns the container path.
func (s *Scene) Path() string { return s.path }

// AddNode appends a child of the given type and returns it.
func (s *Scene) AddNode(name, typeName string) *MemoryNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	node := &MemoryNode{
		path:     path.Join(s.path, name),
		typeName: typeName,
		parms:    map[string]string{},
	}
	s.nodes = append(s.nodes, node)
	return node
}

// Children returns the nodes in insertion order.
func (s *Scene) Children(context.Context) ([]Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out, nil
}

// Node returns the child at nodePath, or nil.
func (s *Scene) Node(nodePath string) *MemoryNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.path == nodePath {
			return n
		}
	}
	return nil
}

// MemoryNode is a Scene child.
type MemoryNode struct {
	path     string
	typeName string

	mu      sync.Mutex
	parms   map[string]string
	presses []string

	// OnPress, when set, runs after a button press is recorded. Tests use it
	// to simulate the host writing the output file.
	OnPress func(node *MemoryNode, button string) error
}

func (n *MemoryNode) Path() string     { return n.path }
func (n *MemoryNode) TypeName() string { return n.typeName }

// SetParm records value under name.
func (n *MemoryNode) SetParm(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.parms[name] = value
	return nil
}

// PressButton records the press and runs OnPress.
func (n *MemoryNode) PressButton(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	n.presses = append(n.presses, name)
	hook := n.OnPress
	n.mu.Unlock()
	if hook != nil {
		if err := hook(n, name); err != nil {
			return fmt.Errorf("press %s on %s: %w", name, n.path, err)
		}
	}
	return nil
}

// Parm returns a recorded parameter value.
func (n *MemoryNode) Parm(name string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.parms[name]
	return v, ok
}

// Parms returns a copy of all recorded parameters.
func (n *MemoryNode) Parms() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]string, len(n.parms))
	for k, v := range n.parms {
		out[k] = v
	}
	return out
}

// Presses returns the recorded button presses in order.
func (n *MemoryNode) Presses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.presses...)
}
