// Package history keeps a local SQLite ledger of publish attempts.
//
// Every asset or flipbook publish appends one row, successful or not, so an
// artist can see what was sent to the tracker from their machine and find
// assets left without a version after a partial failure. The database lives
// at <state_dir>/history.db and carries a schema version; a mismatch is
// reported instead of migrated.
package history
