package migrate

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bd-migrate/bdmigrate/internal/backup"
	"github.com/bd-migrate/bdmigrate/internal/lister"
	"github.com/bd-migrate/bdmigrate/internal/vcs"
)

// rollback restores a branch to its pre-migration state. Reverting the
// tagged migration commit is the authoritative path; when no such commit
// exists (interrupted run, commit disabled), the most recent backups are
// restored instead. Having neither is a hard error: silently continuing
// would falsely imply success.
func (m *Migrator) rollback(branch string, summary *BranchSummary) error {
	commit, err := m.client.FindCommitByTag(tagPrefix)
	switch {
	case err == nil:
		hash, err := m.client.RevertCommit(commit)
		if errors.Is(err, vcs.ErrAlreadyReverted) {
			m.logger.Info("migration commit already reverted; nothing to do",
				"branch", branch, "commit", commit.Hash.String())
			summary.RolledBy = "none"
			return nil
		}
		if err != nil {
			return fmt.Errorf("reverting migration commit %s: %w", commit.Hash.String(), err)
		}
		m.logger.Info("reverted migration commit",
			"branch", branch, "reverted", commit.Hash.String(), "revert_commit", hash)
		summary.Commit = hash
		summary.RolledBy = "revert"
		stats, err := commit.Stats()
		if err == nil {
			for _, s := range stats {
				summary.Restored = append(summary.Restored, s.Name)
			}
		}
		if m.cfg.Git.Push {
			if err := m.client.Push(); err != nil {
				return fmt.Errorf("push failed after revert commit %s: %w", hash, err)
			}
			summary.Pushed = true
		}
		return nil

	case errors.Is(err, vcs.ErrNoTaggedCommit):
		return m.restoreFromBackups(branch, summary)

	default:
		return err
	}
}

// restoreFromBackups moves the most recent snapshot of every candidate
// file back into place. Each restore consumes exactly the snapshot it
// used; older generations stay available.
func (m *Migrator) restoreFromBackups(branch string, summary *BranchSummary) error {
	store := m.newStore(branch)

	candidates, err := lister.ListCandidates(m.cfg.Root)
	if err != nil {
		return fmt.Errorf("listing candidate files: %w", err)
	}

	for _, rel := range candidates {
		handle, err := store.Latest(rel)
		if errors.Is(err, backup.ErrNoBackup) {
			continue
		}
		if err != nil {
			return fmt.Errorf("locating backup for %q: %w", rel, err)
		}
		dst := filepath.Join(m.cfg.Root, filepath.FromSlash(rel))
		if err := store.Restore(handle, dst); err != nil {
			return fmt.Errorf("restoring %q: %w", rel, err)
		}
		m.logger.Info("restored from backup", "path", rel, "snapshot_key", handle.Key)
		summary.Restored = append(summary.Restored, rel)
	}

	if len(summary.Restored) == 0 {
		m.logger.Error("rollback cannot proceed", "branch", branch,
			"reason", "no tagged commit and no backups")
		return ErrRollbackImpossible
	}
	summary.RolledBy = "backup"

	// Restoring is itself a tree mutation worth recording.
	if m.cfg.Git.Commit {
		// The restore marker must not contain the migration tag itself,
		// or a later rollback would revert this restoration.
		message := fmt.Sprintf("chore: restore pre-migration CI configuration [bd-restore:%s]", m.key)
		hash, err := m.client.CommitPaths(summary.Restored, message)
		if err != nil {
			return err
		}
		summary.Commit = hash
		m.logger.Info("restoration committed", "branch", branch, "commit", hash)
		if m.cfg.Git.Push {
			if err := m.client.Push(); err != nil {
				return fmt.Errorf("push failed after restore commit %s: %w", hash, err)
			}
			summary.Pushed = true
		}
	}
	return nil
}
