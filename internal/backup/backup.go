// Package backup stores pre-migration snapshots of files and restores
// them. A snapshot must be durable before the original is mutated: it is
// the only recovery mechanism when no migration commit exists.
//
// Two topologies are supported. The namespaced store keeps snapshots
// under a dedicated directory tree keyed by timestamp (and branch), away
// from the files' normal positions. The sibling store writes each backup
// next to its original under a derived name. Both resolve "the most
// recent backup" by lexical timestamp order, which is chronological
// because keys are fixed-width.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoBackup indicates no snapshot exists for the requested path.
var ErrNoBackup = errors.New("no backup found")

// KeyFormat is the fixed-width timestamp layout used as the sort key.
const KeyFormat = "20060102150405"

// Handle identifies one stored snapshot of one original file.
type Handle struct {
	Rel      string // repository-relative path of the original file
	Snapshot string // absolute path of the snapshot
	Key      string // timestamp key the snapshot was written under
}

// Store is the capability interface for snapshot storage.
type Store interface {
	// Save writes a durable snapshot of content for rel. It must return
	// only after the snapshot is on disk.
	Save(rel string, content []byte) (Handle, error)

	// Latest locates the most recent snapshot for rel, or ErrNoBackup.
	Latest(rel string) (Handle, error)

	// Restore moves the snapshot back over the file at dst. After a
	// successful restore the snapshot no longer exists; older
	// generations are preserved.
	Restore(h Handle, dst string) error

	// Artifacts returns repository-relative paths created by this store
	// during the current run that belong in a migration commit. Only the
	// sibling topology produces any.
	Artifacts() []string
}

// NewKey produces a snapshot key for the current moment.
func NewKey(now time.Time) string {
	return now.UTC().Format(KeyFormat)
}

// writeSnapshot writes content to path, creating parent directories.
func writeSnapshot(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %q: %w", path, err)
	}
	return nil
}

// restoreByMove removes the migrated file and renames the snapshot into
// its place. Move semantics make the snapshot's disappearance atomic with
// the restoration.
func restoreByMove(snapshot, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating restore directory: %w", err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing migrated file %q: %w", dst, err)
	}
	if err := os.Rename(snapshot, dst); err != nil {
		return fmt.Errorf("moving snapshot into place: %w", err)
	}
	return nil
}
