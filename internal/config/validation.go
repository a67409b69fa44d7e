package config

import (
	"fmt"
	"os"
	"path/filepath"
)

var validModes = map[string]bool{
	"audit":    true,
	"dry-run":  true,
	"apply":    true,
	"rollback": true,
}

var validTopologies = map[string]bool{
	TopologyNamespaced: true,
	TopologySibling:    true,
}

// Validate is the pre-flight check. Every error here is fatal and must be
// raised before any scanning or mutation begins.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration object is nil")
	}
	if !validModes[cfg.Mode] {
		return fmt.Errorf("invalid mode %q: must be one of audit, dry-run, apply, rollback", cfg.Mode)
	}
	if cfg.Report.CSVPath == "" {
		return fmt.Errorf("report CSV path is required (set OUT_CSV or --out-csv)")
	}
	if err := validateRoot(cfg.Root); err != nil {
		return err
	}
	if !validTopologies[cfg.Migration.BackupTopology] {
		return fmt.Errorf("invalid backup topology %q: must be %q or %q",
			cfg.Migration.BackupTopology, TopologyNamespaced, TopologySibling)
	}
	if cfg.Git.Push {
		if !cfg.Git.Commit {
			return fmt.Errorf("push requires commit to be enabled")
		}
		if err := validatePushAuth(&cfg.Git); err != nil {
			return err
		}
	}
	if len(cfg.Branches.Names) == 0 && !cfg.Branches.All {
		return fmt.Errorf("no branches selected: set BRANCHES or ALL_BRANCHES")
	}
	return nil
}

// validateRoot checks that the root exists and is a git repository.
func validateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("repository root %q: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("repository root %q is not a directory", root)
	}
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		return fmt.Errorf("repository root %q is not a git repository", root)
	}
	return nil
}

func validatePushAuth(g *Git) error {
	switch g.AuthType {
	case "", "http":
		if g.Token == "" {
			return fmt.Errorf("pushing over HTTP requires a token (set GIT_TOKEN)")
		}
	case "ssh-key":
		if g.SSHKey == "" {
			return fmt.Errorf("ssh-key authentication requires a key path (set GIT_SSH_KEY)")
		}
	case "ssh-agent":
		// nothing to validate up front; the agent socket is probed at use
	default:
		return fmt.Errorf("unknown auth type %q", g.AuthType)
	}
	return nil
}
