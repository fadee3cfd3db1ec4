// Package publish records exported files as tracker versions and announces
// them in chat.
//
// EnsureAssetAndPublish finds or creates the Asset for a name inside a
// project and attaches a new Version to it. PublishFlipbook attaches a
// review movie to a task. Both take a per-project file lock for the duration
// of the tracker calls and record every attempt in the local history when one
// is configured. Chat failures are logged and never fail a publish.
package publish
