// Package migrate implements the migration state machine: for each
// selected branch it checks the branch out, classifies every candidate
// CI file, reports findings, and, depending on the mode, previews,
// applies, or rolls back the vendor migration. Processing is strictly
// sequential: the shared mutable resource is the single working tree.
package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/bd-migrate/bdmigrate/internal/backup"
	"github.com/bd-migrate/bdmigrate/internal/classify"
	"github.com/bd-migrate/bdmigrate/internal/config"
	"github.com/bd-migrate/bdmigrate/internal/lister"
	"github.com/bd-migrate/bdmigrate/internal/report"
	"github.com/bd-migrate/bdmigrate/internal/transform"
	"github.com/bd-migrate/bdmigrate/internal/vcs"
)

// tagPrefix marks migration commits so rollback can locate them.
const tagPrefix = "bd-migration:"

// Migrator drives one invocation of the tool across branches.
type Migrator struct {
	cfg    *config.Config
	logger hclog.Logger
	client *vcs.Client
	sink   *report.CSVSink

	mode  Mode
	runID string
	key   string

	findings  []classify.Finding
	summaries []BranchSummary
}

// BranchSummary records what one branch's pass did.
type BranchSummary struct {
	Branch    string
	Findings  int
	Changed   []string
	BackedUp  []string
	Restored  []string
	Commit    string
	Pushed    bool
	NoOps     []string
	Skipped   []string
	RolledBy  string // "revert" or "backup"
}

// New constructs a Migrator. The mode comes from configuration and is
// fixed for the whole run.
func New(cfg *config.Config, client *vcs.Client, logger hclog.Logger) (*Migrator, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	return &Migrator{
		cfg:    cfg,
		logger: logger,
		client: client,
		sink:   report.NewCSVSink(cfg.Report.CSVPath),
		mode:   mode,
		runID:  uuid.New().String(),
		key:    backup.NewKey(time.Now()),
	}, nil
}

// MigrationTag returns the commit-message marker for this run.
func (m *Migrator) MigrationTag() string {
	return tagPrefix + m.key
}

// Summaries returns the per-branch summaries accumulated so far.
func (m *Migrator) Summaries() []BranchSummary {
	return m.summaries
}

// Run executes the state machine over the selected branches. A checkout
// failure aborts the whole run: an un-checked-out branch cannot be
// scanned safely.
func (m *Migrator) Run() error {
	m.logger.Info("starting run", "mode", m.mode.String(), "run_id", m.runID, "root", m.cfg.Root)

	branches := m.cfg.Branches.Names
	if m.cfg.Branches.All {
		remote, err := m.client.RemoteBranches()
		if err != nil {
			return fmt.Errorf("listing remote branches: %w", err)
		}
		branches = remote
	}
	if len(branches) == 0 {
		return fmt.Errorf("no branches to process")
	}

	if m.mode == Apply || m.mode == Rollback {
		if err := m.checkCleanTree(); err != nil {
			return err
		}
	}

	for _, branch := range branches {
		if err := m.runBranch(branch); err != nil {
			return fmt.Errorf("branch %q: %w", branch, err)
		}
	}

	m.logger.Info("report updated", "path", m.sink.Path(), "rows", len(m.findings))
	if m.cfg.Report.SARIFPath != "" {
		if err := report.WriteSARIF(m.cfg.Report.SARIFPath, m.findings); err != nil {
			return err
		}
		m.logger.Info("wrote SARIF export", "path", m.cfg.Report.SARIFPath)
	}
	return nil
}

// checkCleanTree enforces the dirty-tree precondition for mutating modes.
// Backup and restore correctness assume the tree reflects committed
// history only.
func (m *Migrator) checkCleanTree() error {
	if m.cfg.Migration.AllowDirty {
		m.logger.Warn("dirty-tree check bypassed by configuration")
		return nil
	}
	clean, err := m.client.IsClean()
	if err != nil {
		return err
	}
	if !clean {
		return ErrDirtyWorkingTree
	}
	return nil
}

func (m *Migrator) runBranch(branch string) error {
	if err := m.client.Checkout(branch); err != nil {
		m.logger.Error("checkout failed", "branch", branch, "error", err)
		return err
	}
	m.logger.Info("processing branch", "branch", branch, "mode", m.mode.String())

	summary := BranchSummary{Branch: branch}
	findings, err := m.scan(branch)
	if err != nil {
		return err
	}

	switch m.mode {
	case Audit:
		// scan output is the whole job
	case DryRun:
		m.preview(findings)
	case Apply:
		if err := m.apply(branch, findings, &summary); err != nil {
			return err
		}
	case Rollback:
		if err := m.rollback(branch, &summary); err != nil {
			return err
		}
	}

	summary.Findings = len(findings)
	if err := m.sink.Append(findings); err != nil {
		return err
	}
	m.findings = append(m.findings, findings...)
	m.summaries = append(m.summaries, summary)
	m.logSummary(summary)
	return nil
}

// scan classifies every candidate file present on the checked-out branch.
// Unreadable or missing files are skipped: candidate globs legitimately
// reference paths that do not exist everywhere.
func (m *Migrator) scan(branch string) ([]classify.Finding, error) {
	candidates, err := lister.ListCandidates(m.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("listing candidate files: %w", err)
	}

	build := lister.DetectBuild(m.cfg.Root)
	repoID := m.client.RepoID()

	var findings []classify.Finding
	for _, rel := range candidates {
		content, err := os.ReadFile(filepath.Join(m.cfg.Root, filepath.FromSlash(rel)))
		if err != nil {
			m.logger.Debug("skipping unreadable candidate", "path", rel, "error", err)
			continue
		}
		finding, ok := classify.Classify(content, rel)
		if !ok {
			continue
		}
		finding.Repo = repoID
		finding.Branch = branch
		finding.BuildType = strings.Join(build.Labels, "+")
		finding.PackageManagerFile = strings.Join(build.Files, "+")
		findings = append(findings, finding)
		m.logger.Debug("classified candidate",
			"path", rel, "found_type", finding.FoundType, "style", finding.InvocationStyle)
	}
	m.logger.Info("scan complete", "branch", branch, "findings", len(findings))
	return findings, nil
}

// transformOptions derives the engine switches from configuration.
func (m *Migrator) transformOptions() transform.Options {
	return transform.Options{EditJenkins: m.cfg.Migration.EditJenkins}
}

// transformTargets filters findings down to the ones Apply would edit.
func (m *Migrator) transformTargets(findings []classify.Finding) []*classify.Finding {
	var out []*classify.Finding
	for i := range findings {
		f := &findings[i]
		if f.FoundType != classify.FoundDirect {
			continue
		}
		if !f.CIType.Transformable(m.cfg.Migration.EditJenkins) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// preview computes each edit on an in-memory copy and surfaces the diff.
// Nothing on disk changes: the only observable effect is report output.
func (m *Migrator) preview(findings []classify.Finding) {
	opts := m.transformOptions()
	for _, f := range m.transformTargets(findings) {
		abs := filepath.Join(m.cfg.Root, filepath.FromSlash(f.FilePath))
		content, err := os.ReadFile(abs)
		if err != nil {
			m.logger.Debug("skipping unreadable file in preview", "path", f.FilePath, "error", err)
			continue
		}
		original := string(content)
		if !transform.Changes(f.CIType, original, opts) {
			f.MigrationChanges = "no-op"
			continue
		}
		diff := renderDiff(original, transform.Apply(f.CIType, original, opts))
		f.MigrationChanges = diff
		m.logger.Info("proposed change", "path", f.FilePath)
		fmt.Printf("--- %s\n%s\n", f.FilePath, diff)
	}
}

func (m *Migrator) logSummary(s BranchSummary) {
	m.logger.Info("branch summary",
		"branch", s.Branch,
		"run_id", m.runID,
		"findings", s.Findings,
		"changed", len(s.Changed),
		"backed_up", len(s.BackedUp),
		"restored", len(s.Restored),
		"no_ops", len(s.NoOps),
		"skipped", len(s.Skipped),
		"commit", s.Commit,
		"pushed", s.Pushed,
	)
}

// newStore builds the backup store for one branch under the configured
// topology.
func (m *Migrator) newStore(branch string) backup.Store {
	if m.cfg.Migration.BackupTopology == config.TopologySibling {
		return backup.NewSiblingStore(m.cfg.Root, m.key)
	}
	return backup.NewNamespacedStore(m.cfg.Root, branch, m.key)
}
