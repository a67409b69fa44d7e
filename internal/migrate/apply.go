package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bd-migrate/bdmigrate/internal/classify"
	"github.com/bd-migrate/bdmigrate/internal/transform"
)

// apply performs the migration edits on one branch. For every
// transformable direct finding, in file order: snapshot the current
// content, compute the transform, and overwrite only when the result
// differs. The snapshot write strictly precedes the mutation: it is the
// only recovery path if the process dies before the commit.
func (m *Migrator) apply(branch string, findings []classify.Finding, summary *BranchSummary) error {
	store := m.newStore(branch)
	opts := m.transformOptions()

	for i := range findings {
		f := &findings[i]
		if f.FoundType != classify.FoundDirect {
			continue
		}
		if !f.CIType.Transformable(m.cfg.Migration.EditJenkins) {
			m.logger.Info("skipping non-transformable file", "path", f.FilePath, "ci_type", f.CIType.String())
			f.MigrationChanges = "skipped"
			summary.Skipped = append(summary.Skipped, f.FilePath)
			continue
		}

		abs := filepath.Join(m.cfg.Root, filepath.FromSlash(f.FilePath))
		content, err := os.ReadFile(abs)
		if err != nil {
			m.logger.Warn("skipping unreadable file", "path", f.FilePath, "error", err)
			continue
		}
		original := string(content)
		if !transform.Changes(f.CIType, original, opts) {
			m.logger.Info("no changes needed", "path", f.FilePath)
			f.MigrationChanges = "no-op"
			summary.NoOps = append(summary.NoOps, f.FilePath)
			continue
		}
		transformed := transform.Apply(f.CIType, original, opts)

		handle, err := store.Save(f.FilePath, content)
		if err != nil {
			return fmt.Errorf("backing up %q: %w", f.FilePath, err)
		}
		m.logger.Info("backup written", "path", f.FilePath, "snapshot", handle.Snapshot)
		summary.BackedUp = append(summary.BackedUp, f.FilePath)

		if err := os.WriteFile(abs, []byte(transformed), 0o644); err != nil {
			return fmt.Errorf("writing migrated %q: %w", f.FilePath, err)
		}
		m.logger.Info("file migrated", "path", f.FilePath)
		f.MigrationChanges = "applied"
		summary.Changed = append(summary.Changed, f.FilePath)
	}

	if len(summary.Changed) == 0 {
		m.logger.Info("no files changed on branch", "branch", branch)
		return nil
	}
	if !m.cfg.Git.Commit {
		m.logger.Info("commit disabled; leaving changes in the working tree", "branch", branch)
		return nil
	}

	// Stage only what this run changed, plus sibling snapshots. The
	// report file is never part of the commit.
	staged := append([]string{}, summary.Changed...)
	staged = append(staged, store.Artifacts()...)
	message := fmt.Sprintf("chore: migrate static analysis integration to Black Duck [%s]", m.MigrationTag())
	hash, err := m.client.CommitPaths(staged, message)
	if err != nil {
		return err
	}
	summary.Commit = hash
	m.logger.Info("migration committed", "branch", branch, "commit", hash, "tag", m.MigrationTag())

	if m.cfg.Git.Push {
		if err := m.client.Push(); err != nil {
			// The local commit stands and carries the tag for rollback;
			// the failed push must still fail the run loudly.
			return fmt.Errorf("push failed after commit %s: %w", hash, err)
		}
		summary.Pushed = true
	}
	return nil
}
