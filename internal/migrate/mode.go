package migrate

import (
	"fmt"
	"strings"
)

// Mode selects what a run does after scanning. It is global to the
// invocation, never per-file.
type Mode int

const (
	// Audit scans and reports, touching nothing.
	Audit Mode = iota
	// DryRun additionally previews the edits Apply would make.
	DryRun
	// Apply performs the migration edits with backups and optional commit.
	Apply
	// Rollback restores pre-migration state from the tagged commit or
	// the most recent backups.
	Rollback
)

// String returns the mode's canonical identifier.
func (m Mode) String() string {
	switch m {
	case DryRun:
		return "dry-run"
	case Apply:
		return "apply"
	case Rollback:
		return "rollback"
	default:
		return "audit"
	}
}

// ParseMode converts a string identifier into a Mode.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "audit":
		return Audit, nil
	case "dry-run", "dryrun":
		return DryRun, nil
	case "apply":
		return Apply, nil
	case "rollback":
		return Rollback, nil
	default:
		return Audit, fmt.Errorf("unsupported mode %q", raw)
	}
}
