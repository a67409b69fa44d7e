package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// siblingMarker separates the original name from the snapshot key in a
// derived sibling filename: <name>_backup_<key><ext>.
const siblingMarker = "_backup_"

var siblingKeyPattern = regexp.MustCompile(`_backup_(\d{14})`)

// SiblingStore writes each snapshot alongside its original file under a
// derived name. The snapshots live inside the working tree, so they
// become companion artifacts of a migration commit.
type SiblingStore struct {
	root      string
	key       string
	artifacts []string
}

// NewSiblingStore creates a sibling store for one run.
func NewSiblingStore(root, key string) *SiblingStore {
	return &SiblingStore{root: root, key: key}
}

// siblingName derives the snapshot filename for rel under the given key.
func siblingName(rel, key string) string {
	ext := filepath.Ext(rel)
	stem := strings.TrimSuffix(rel, ext)
	return stem + siblingMarker + key + ext
}

// Save writes the snapshot next to the original and records it as a
// commit companion artifact.
func (s *SiblingStore) Save(rel string, content []byte) (Handle, error) {
	relSnapshot := siblingName(rel, s.key)
	snapshot := filepath.Join(s.root, filepath.FromSlash(relSnapshot))
	if err := writeSnapshot(snapshot, content); err != nil {
		return Handle{}, err
	}
	s.artifacts = append(s.artifacts, relSnapshot)
	return Handle{Rel: rel, Snapshot: snapshot, Key: s.key}, nil
}

// Latest finds the lexically greatest sibling snapshot for rel.
func (s *SiblingStore) Latest(rel string) (Handle, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	dir := filepath.Dir(abs)
	ext := filepath.Ext(rel)
	stem := strings.TrimSuffix(filepath.Base(rel), ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Handle{}, ErrNoBackup
		}
		return Handle{}, fmt.Errorf("reading directory for sibling backups: %w", err)
	}

	prefix := stem + siblingMarker
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ext) && siblingKeyPattern.MatchString(name) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return Handle{}, ErrNoBackup
	}
	sort.Strings(matches)
	name := matches[len(matches)-1]
	key := siblingKeyPattern.FindStringSubmatch(name)[1]

	return Handle{Rel: rel, Snapshot: filepath.Join(dir, name), Key: key}, nil
}

// Restore deletes the migrated file and moves the snapshot back into
// place. The restored snapshot ceases to exist; older sibling generations
// stay where they are.
func (s *SiblingStore) Restore(h Handle, dst string) error {
	return restoreByMove(h.Snapshot, dst)
}

// Artifacts lists the sibling snapshots written during this run, relative
// to the repository root, for inclusion in the migration commit.
func (s *SiblingStore) Artifacts() []string {
	out := make([]string, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}
