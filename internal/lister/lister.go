// Package lister discovers candidate CI configuration files within a
// repository working tree and detects the repository's build tooling.
package lister

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// CandidatePatterns is the fixed set of path globs recognized as CI
// configuration files. Patterns are matched against slash-separated
// repository-relative paths.
var CandidatePatterns = []string{
	".travis.yml",
	"**/azure-pipelines.yml",
	"**/azure-pipelines.yaml",
	"azure-pipelines.yml",
	"azure-pipelines.yaml",
	".github/workflows/*.yml",
	".github/workflows/*.yaml",
	"**/bamboo-specs/**/*.yml",
	"**/bamboo-specs/**/*.yaml",
	"bamboo-specs/**/*.yml",
	"bamboo-specs/**/*.yaml",
	"bridge.yml",
	"bridge.yaml",
	"**/bridge.yml",
	"**/bridge.yaml",
	"Jenkinsfile*",
	"**/Jenkinsfile*",
}

// skipDirs are directory names never descended into during discovery.
var skipDirs = map[string]bool{
	".git":         true,
	".bdmigrate":   true,
	"node_modules": true,
}

// ListCandidates walks root and returns the sorted repository-relative
// paths of every file matching a candidate pattern. Unreadable entries
// are skipped: the candidate set may legitimately reference paths that do
// not exist on a given branch.
func ListCandidates(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matchesAny(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func matchesAny(rel string) bool {
	for _, pattern := range CandidatePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			// Sibling backups match Jenkinsfile* style patterns; keep
			// them out of the candidate set.
			if strings.Contains(filepath.Base(rel), "_backup_") {
				return false
			}
			return true
		}
	}
	return false
}

// BuildInfo describes the build tooling detected in a repository.
type BuildInfo struct {
	Labels []string // e.g. maven, npm, gomod
	Files  []string // repository-relative marker file paths
}

// buildMarkers maps package-manager marker basenames to build labels.
var buildMarkers = map[string]string{
	"pom.xml":          "maven",
	"build.gradle":     "gradle",
	"build.gradle.kts": "gradle",
	"package.json":     "npm",
	"go.mod":           "gomod",
	"requirements.txt": "python",
	"setup.py":         "python",
	"pyproject.toml":   "python",
	"Gemfile":          "ruby",
	"composer.json":    "php",
	"Cargo.toml":       "cargo",
}

// buildMarkerSuffixes maps file suffixes to build labels, for markers that
// are project-named rather than fixed-named.
var buildMarkerSuffixes = map[string]string{
	".csproj": "dotnet",
	".sln":    "dotnet",
}

// DetectBuild scans the top two directory levels of root for
// package-manager marker files and reports the detected build labels.
func DetectBuild(root string) BuildInfo {
	var info BuildInfo
	seen := map[string]bool{}

	record := func(rel, label string) {
		info.Files = append(info.Files, rel)
		if !seen[label] {
			seen[label] = true
			info.Labels = append(info.Labels, label)
		}
	}

	scanDir := func(dir, prefix string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			rel := name
			if prefix != "" {
				rel = prefix + "/" + name
			}
			if label, ok := buildMarkers[name]; ok {
				record(rel, label)
				continue
			}
			for suffix, label := range buildMarkerSuffixes {
				if strings.HasSuffix(name, suffix) {
					record(rel, label)
					break
				}
			}
		}
	}

	scanDir(root, "")
	entries, err := os.ReadDir(root)
	if err != nil {
		return info
	}
	for _, e := range entries {
		if e.IsDir() && !skipDirs[e.Name()] {
			scanDir(filepath.Join(root, e.Name()), e.Name())
		}
	}

	sort.Strings(info.Labels)
	sort.Strings(info.Files)
	return info
}
