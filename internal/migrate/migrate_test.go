package migrate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/hashicorp/go-hclog"

	"github.com/bd-migrate/bdmigrate/internal/config"
	"github.com/bd-migrate/bdmigrate/internal/vcs"
)

const adoPipeline = `trigger:
  - main
steps:
  - checkout: self
  - task: SynopsysSecurityScan@1
    inputs:
      scanType: 'polaris'
`

const travisPipeline = `language: java
script:
  - ./bridge-cli --stage polaris
`

const jenkinsPipeline = `pipeline {
    stages {
        stage('Analysis') {
            steps {
                withCoverityEnv(coverityInstanceUrl: 'https://cov.example.com') {
                    coverityScan()
                }
            }
        }
    }
}
`

const bridgePipeline = `stage:
  polaris:
    serverUrl: https://polaris.example.com
`

// setupMigrationRepo initialises a repository on master containing legacy
// CI files, all committed.
func setupMigrationRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
		if _, err := wt.Add(rel); err != nil {
			t.Fatalf("add %s: %v", rel, err)
		}
	}
	if _, err := wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@localhost", When: time.Now()},
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return root
}

func defaultFiles() map[string]string {
	return map[string]string{
		"azure-pipelines.yml": adoPipeline,
		".travis.yml":         travisPipeline,
		"Jenkinsfile":         jenkinsPipeline,
		"bridge.yml":          bridgePipeline,
		"README.md":           "readme\n",
	}
}

func newTestConfig(t *testing.T, root, mode string) *config.Config {
	t.Helper()
	return &config.Config{
		Mode:     mode,
		Root:     root,
		Report:   config.Report{CSVPath: filepath.Join(t.TempDir(), "out.csv")},
		Branches: config.Branches{Names: []string{"master"}},
		Git:      config.Git{Remote: "origin"},
		Migration: config.Migration{
			BackupTopology: config.TopologyNamespaced,
		},
	}
}

func runMigrator(t *testing.T, cfg *config.Config) (*Migrator, error) {
	t.Helper()
	client, err := vcs.Open(cfg.Root, cfg, hclog.NewNullLogger())
	if err != nil {
		t.Fatalf("vcs.Open: %v", err)
	}
	m, err := New(cfg, client, hclog.NewNullLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, m.Run()
}

func snapshotTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		out[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walking tree: %v", err)
	}
	return out
}

func TestAuditReportsWithoutTouchingFiles(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	cfg := newTestConfig(t, root, "audit")

	before := snapshotTree(t, root)
	m, err := runMigrator(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	after := snapshotTree(t, root)

	for rel, content := range before {
		if after[rel] != content {
			t.Fatalf("audit modified %s", rel)
		}
	}

	if len(m.Summaries()) != 1 {
		t.Fatalf("summaries = %d, want 1", len(m.Summaries()))
	}
	// azure, travis, jenkins, bridge carry evidence; README does not
	if got := m.Summaries()[0].Findings; got != 4 {
		t.Fatalf("findings = %d, want 4", got)
	}

	raw, err := os.ReadFile(cfg.Report.CSVPath)
	if err != nil {
		t.Fatalf("report missing: %v", err)
	}
	if !strings.Contains(string(raw), "azure-pipelines.yml") {
		t.Fatalf("report lacks expected rows:\n%s", raw)
	}
}

func TestDryRunLeavesTreeByteIdentical(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	cfg := newTestConfig(t, root, "dry-run")

	before := snapshotTree(t, root)
	if _, err := runMigrator(t, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	after := snapshotTree(t, root)

	if len(before) != len(after) {
		t.Fatalf("dry-run created or removed files")
	}
	for rel, content := range before {
		if after[rel] != content {
			t.Fatalf("dry-run modified %s", rel)
		}
	}

	raw, err := os.ReadFile(cfg.Report.CSVPath)
	if err != nil {
		t.Fatalf("report missing: %v", err)
	}
	if !strings.Contains(string(raw), "BlackDuckSecurityScan@1") {
		t.Fatalf("dry-run report must embed the proposed diff:\n%s", raw)
	}
}

func TestApplyMigratesWithBackupAndCommit(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	cfg := newTestConfig(t, root, "apply")
	cfg.Git.Commit = true

	m, err := runMigrator(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	migrated, err := os.ReadFile(filepath.Join(root, "azure-pipelines.yml"))
	if err != nil {
		t.Fatalf("read migrated: %v", err)
	}
	if !strings.Contains(string(migrated), "BlackDuckSecurityScan@1") ||
		!strings.Contains(string(migrated), "scanType: 'blackduck'") {
		t.Fatalf("expected substitutions missing:\n%s", migrated)
	}

	summary := m.Summaries()[0]
	if summary.Commit == "" {
		t.Fatalf("expected a migration commit")
	}
	if len(summary.Changed) == 0 {
		t.Fatalf("expected changed files")
	}

	// snapshot content equals the pre-apply content
	snapshot := filepath.Join(root, ".bdmigrate", "backups", m.key, "master", "azure-pipelines.yml")
	b, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatalf("backup snapshot missing: %v", err)
	}
	if string(b) != adoPipeline {
		t.Fatalf("backup = %q, want pre-apply content", b)
	}

	// commit message carries the migration tag
	repo, _ := git.PlainOpen(root)
	head, _ := repo.Head()
	commit, _ := repo.CommitObject(head.Hash())
	if !strings.Contains(commit.Message, m.MigrationTag()) {
		t.Fatalf("commit message %q lacks migration tag", commit.Message)
	}

	// jenkins was skipped entirely
	for _, p := range summary.Changed {
		if p == "Jenkinsfile" {
			t.Fatalf("jenkins must not be changed without opt-in")
		}
	}
	jenkins, _ := os.ReadFile(filepath.Join(root, "Jenkinsfile"))
	if string(jenkins) != jenkinsPipeline {
		t.Fatalf("jenkinsfile modified without opt-in")
	}
	if len(summary.Skipped) == 0 || summary.Skipped[0] != "Jenkinsfile" {
		t.Fatalf("skipped = %v, want Jenkinsfile", summary.Skipped)
	}
}

func TestApplyCommitExcludesReportAndUnchangedFiles(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	cfg := newTestConfig(t, root, "apply")
	cfg.Git.Commit = true
	// report deliberately inside the repository
	cfg.Report.CSVPath = filepath.Join(root, "report.csv")

	if _, err := runMigrator(t, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	repo, _ := git.PlainOpen(root)
	head, _ := repo.Head()
	commit, _ := repo.CommitObject(head.Hash())
	if _, err := commit.File("report.csv"); err == nil {
		t.Fatalf("the report must never be committed")
	}

	parent, _ := commit.Parent(0)
	patch, err := parent.Patch(commit)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		name := ""
		if to != nil {
			name = to.Path()
		} else if from != nil {
			name = from.Path()
		}
		if name == "README.md" || name == "Jenkinsfile" {
			t.Fatalf("commit touches unchanged file %s", name)
		}
	}
}

func TestApplyRollbackRoundTripViaRevert(t *testing.T) {
	files := defaultFiles()
	root := setupMigrationRepo(t, files)
	cfg := newTestConfig(t, root, "apply")
	cfg.Git.Commit = true

	if _, err := runMigrator(t, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	rbCfg := newTestConfig(t, root, "rollback")
	rbCfg.Git.Commit = true
	m, err := runMigrator(t, rbCfg)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if m.Summaries()[0].RolledBy != "revert" {
		t.Fatalf("rollback path = %q, want revert", m.Summaries()[0].RolledBy)
	}

	for _, rel := range []string{"azure-pipelines.yml", ".travis.yml", "bridge.yml"} {
		b, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(b) != files[rel] {
			t.Fatalf("%s not restored byte-for-byte:\n%s", rel, b)
		}
	}
}

func TestRollbackTwiceIsRecognizedNoOp(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	cfg := newTestConfig(t, root, "apply")
	cfg.Git.Commit = true
	if _, err := runMigrator(t, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	first := newTestConfig(t, root, "rollback")
	first.Git.Commit = true
	if _, err := runMigrator(t, first); err != nil {
		t.Fatalf("first rollback: %v", err)
	}

	second := newTestConfig(t, root, "rollback")
	m, err := runMigrator(t, second)
	if err != nil {
		t.Fatalf("second rollback: %v", err)
	}
	if got := m.Summaries()[0].RolledBy; got != "none" {
		t.Fatalf("second rollback path = %q, want none", got)
	}
}

func TestApplyRollbackRoundTripViaBackups(t *testing.T) {
	files := defaultFiles()
	root := setupMigrationRepo(t, files)

	// commit disabled: rollback must fall back to backup restore
	cfg := newTestConfig(t, root, "apply")
	if _, err := runMigrator(t, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	rbCfg := newTestConfig(t, root, "rollback")
	rbCfg.Migration.AllowDirty = true // uncommitted migration edits are expected here
	m, err := runMigrator(t, rbCfg)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	summary := m.Summaries()[0]
	if summary.RolledBy != "backup" {
		t.Fatalf("rollback path = %q, want backup", summary.RolledBy)
	}

	for _, rel := range []string{"azure-pipelines.yml", ".travis.yml", "bridge.yml"} {
		b, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(b) != files[rel] {
			t.Fatalf("%s not restored byte-for-byte", rel)
		}
	}

	// the restored snapshots no longer exist
	backupRoot := filepath.Join(root, ".bdmigrate", "backups")
	if entries, err := os.ReadDir(backupRoot); err == nil && len(entries) > 0 {
		t.Fatalf("restored snapshots must be consumed, found %d generations", len(entries))
	}
}

func TestRollbackImpossibleIsFatal(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	cfg := newTestConfig(t, root, "rollback")

	_, err := runMigrator(t, cfg)
	if !errors.Is(err, ErrRollbackImpossible) {
		t.Fatalf("err = %v, want ErrRollbackImpossible", err)
	}
}

func TestBridgeConfigReapplyIsNoOp(t *testing.T) {
	root := setupMigrationRepo(t, map[string]string{"bridge.yml": bridgePipeline})
	cfg := newTestConfig(t, root, "apply")
	cfg.Git.Commit = true

	if _, err := runMigrator(t, cfg); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	migrated, _ := os.ReadFile(filepath.Join(root, "bridge.yml"))
	if !strings.Contains(string(migrated), "blackduck:") {
		t.Fatalf("first apply must add the blackduck block")
	}

	cfg2 := newTestConfig(t, root, "apply")
	cfg2.Git.Commit = true
	m, err := runMigrator(t, cfg2)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	summary := m.Summaries()[0]
	if len(summary.Changed) != 0 {
		t.Fatalf("second apply changed files: %v", summary.Changed)
	}
	if summary.Commit != "" {
		t.Fatalf("second apply must not commit")
	}
	if len(summary.NoOps) == 0 {
		t.Fatalf("second apply must report the no-op")
	}
}

func TestDirtyTreePrecondition(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("dirty\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := newTestConfig(t, root, "apply")
	if _, err := runMigrator(t, cfg); !errors.Is(err, ErrDirtyWorkingTree) {
		t.Fatalf("err = %v, want ErrDirtyWorkingTree", err)
	}

	cfg2 := newTestConfig(t, root, "apply")
	cfg2.Migration.AllowDirty = true
	if _, err := runMigrator(t, cfg2); err != nil {
		t.Fatalf("allow-dirty apply: %v", err)
	}
}

func TestReportAppendsAcrossRuns(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	cfg := newTestConfig(t, root, "audit")

	if _, err := runMigrator(t, cfg); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := os.ReadFile(cfg.Report.CSVPath)

	cfg2 := newTestConfig(t, root, "audit")
	cfg2.Report.CSVPath = cfg.Report.CSVPath
	if _, err := runMigrator(t, cfg2); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, _ := os.ReadFile(cfg.Report.CSVPath)

	if got := strings.Count(string(second), "repo,branch,"); got != 1 {
		t.Fatalf("header count = %d, want exactly 1", got)
	}
	firstRows := strings.Count(strings.TrimSpace(string(first)), "\n")
	secondRows := strings.Count(strings.TrimSpace(string(second)), "\n")
	if secondRows != firstRows*2 {
		t.Fatalf("rows after second run = %d, want %d", secondRows, firstRows*2)
	}
}

func TestSiblingTopologyApplyAndCommitArtifacts(t *testing.T) {
	root := setupMigrationRepo(t, map[string]string{"azure-pipelines.yml": adoPipeline})
	cfg := newTestConfig(t, root, "apply")
	cfg.Git.Commit = true
	cfg.Migration.BackupTopology = config.TopologySibling

	m, err := runMigrator(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sibling := filepath.Join(root, "azure-pipelines_backup_"+m.key+".yml")
	b, err := os.ReadFile(sibling)
	if err != nil {
		t.Fatalf("sibling backup missing: %v", err)
	}
	if string(b) != adoPipeline {
		t.Fatalf("sibling backup must hold the pre-apply content")
	}

	// companion artifact is part of the migration commit
	repo, _ := git.PlainOpen(root)
	head, _ := repo.Head()
	commit, _ := repo.CommitObject(head.Hash())
	if _, err := commit.File("azure-pipelines_backup_" + m.key + ".yml"); err != nil {
		t.Fatalf("sibling backup must be committed alongside the migrated file")
	}
}

func TestSARIFExport(t *testing.T) {
	root := setupMigrationRepo(t, defaultFiles())
	cfg := newTestConfig(t, root, "audit")
	cfg.Report.SARIFPath = filepath.Join(t.TempDir(), "out.sarif")

	if _, err := runMigrator(t, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	raw, err := os.ReadFile(cfg.Report.SARIFPath)
	if err != nil {
		t.Fatalf("sarif missing: %v", err)
	}
	if !strings.Contains(string(raw), "bdmigrate") {
		t.Fatalf("sarif lacks tool name")
	}
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "audit", want: Audit},
		{input: "dry-run", want: DryRun},
		{input: "Apply", want: Apply},
		{input: " rollback ", want: Rollback},
		{input: "yolo", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseMode(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseMode(%q) expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMode(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
