// Package report persists migration findings. The primary sink is an
// append-only CSV file shared across runs, branches, and repositories;
// an optional SARIF export serves tooling that consumes scan results.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/bd-migrate/bdmigrate/internal/classify"
)

// Header is the fixed CSV column layout, written exactly once per target.
var Header = []string{
	"repo",
	"branch",
	"build_type",
	"package_manager_file",
	"file_path",
	"ci_type",
	"found_type",
	"invocation_style",
	"evidence",
	"migration_changes",
}

// CSVSink appends findings to a durable CSV file. The target is opened in
// append mode so repeated invocations against the same path consolidate
// into one report; the header is emitted only when the file is new or
// empty.
type CSVSink struct {
	path string
}

// NewCSVSink creates a sink for the given path. Relative paths resolve
// against the process working directory, not the repository root.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Path returns the sink's target path.
func (s *CSVSink) Path() string { return s.path }

// Append writes findings as rows, creating the file and header on first
// use. Rows are never rewritten.
func (s *CSVSink) Append(findings []classify.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	needHeader, err := s.needsHeader()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening report %q: %w", s.path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if needHeader {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("writing report header: %w", err)
		}
	}
	for _, f := range findings {
		if err := w.Write(row(f)); err != nil {
			return fmt.Errorf("writing report row for %q: %w", f.FilePath, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return nil
}

func (s *CSVSink) needsHeader() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat report %q: %w", s.path, err)
	}
	return info.Size() == 0, nil
}

func row(f classify.Finding) []string {
	return []string{
		collapse(f.Repo),
		collapse(f.Branch),
		collapse(f.BuildType),
		collapse(f.PackageManagerFile),
		collapse(f.FilePath),
		f.CIType.String(),
		f.FoundType,
		collapse(f.InvocationStyle),
		collapse(f.Evidence),
		collapse(f.MigrationChanges),
	}
}

// collapse flattens embedded newlines so every finding stays one row.
func collapse(v string) string {
	v = strings.ReplaceAll(v, "\r\n", `\n`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	return v
}
