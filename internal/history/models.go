package history

import "time"

// Kind distinguishes asset publishes from flipbook publishes.
type Kind string

const (
	KindAsset    Kind = "asset"
	KindFlipbook Kind = "flipbook"
)

// Status is the outcome of a publish attempt.
type Status string

const (
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// Entry is one publish attempt.
type Entry struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	Kind         Kind      `json:"kind"`
	Project      string    `json:"project"`
	Entity       string    `json:"entity"`
	Label        string    `json:"label"`
	VersionID    int       `json:"version_id,omitempty"`
	AssetID      int       `json:"asset_id,omitempty"`
	AssetCreated bool      `json:"asset_created"`
	Link         string    `json:"link,omitempty"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
