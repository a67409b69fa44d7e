package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// backupDirName is the dedicated tree under the repository root holding
// namespaced snapshots. It is excluded from candidate discovery and never
// staged.
const backupDirName = ".bdmigrate/backups"

// NamespacedStore keeps snapshots under
// <root>/.bdmigrate/backups/<key>[/<branch>]/<rel>.
type NamespacedStore struct {
	root   string
	branch string
	key    string
}

// NewNamespacedStore creates a namespaced store for one run. branch may
// be empty for branch-unaware layouts.
func NewNamespacedStore(root, branch, key string) *NamespacedStore {
	return &NamespacedStore{root: root, branch: branch, key: key}
}

func (s *NamespacedStore) generationDir(key string) string {
	dir := filepath.Join(s.root, filepath.FromSlash(backupDirName), key)
	if s.branch != "" {
		dir = filepath.Join(dir, filepath.FromSlash(s.branch))
	}
	return dir
}

// Save writes a snapshot of content under the run's generation directory.
func (s *NamespacedStore) Save(rel string, content []byte) (Handle, error) {
	snapshot := filepath.Join(s.generationDir(s.key), filepath.FromSlash(rel))
	if err := writeSnapshot(snapshot, content); err != nil {
		return Handle{}, err
	}
	return Handle{Rel: rel, Snapshot: snapshot, Key: s.key}, nil
}

// Latest finds the most recent generation containing a snapshot for rel.
func (s *NamespacedStore) Latest(rel string) (Handle, error) {
	base := filepath.Join(s.root, filepath.FromSlash(backupDirName))
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return Handle{}, ErrNoBackup
		}
		return Handle{}, fmt.Errorf("reading backup tree: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	// Fixed-width keys: lexically greatest is the most recent.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	for _, key := range keys {
		snapshot := filepath.Join(s.generationDir(key), filepath.FromSlash(rel))
		if _, err := os.Stat(snapshot); err == nil {
			return Handle{Rel: rel, Snapshot: snapshot, Key: key}, nil
		}
	}
	return Handle{}, ErrNoBackup
}

// Restore moves the snapshot back over dst, removing exactly that
// snapshot and preserving older generations.
func (s *NamespacedStore) Restore(h Handle, dst string) error {
	if err := restoreByMove(h.Snapshot, dst); err != nil {
		return err
	}
	// Drop now-empty generation directories; older generations with
	// remaining snapshots are untouched.
	pruneEmptyDirs(filepath.Dir(h.Snapshot), filepath.Join(s.root, filepath.FromSlash(backupDirName)))
	return nil
}

// Artifacts is empty for the namespaced topology: its snapshots live
// outside the committed tree.
func (s *NamespacedStore) Artifacts() []string { return nil }

// pruneEmptyDirs removes empty directories walking upward from dir until
// stop (exclusive) or a non-empty directory is met.
func pruneEmptyDirs(dir, stop string) {
	for dir != stop && len(dir) > len(stop) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
