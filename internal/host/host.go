package host

import "context"

// Node is a single scene-graph node.
type Node interface {
	Path() string
	TypeName() string
	SetParm(ctx context.Context, name, value string) error
	PressButton(ctx context.Context, name string) error
}

// Container is a node whose immediate children can be enumerated.
type Container interface {
	Path() string
	Children(ctx context.Context) ([]Node, error)
}
