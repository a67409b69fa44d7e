// Package citype identifies which CI system owns a pipeline file based on
// its path within the repository.
package citype

import (
	"fmt"
	"path"
	"strings"
)

// Type represents the CI system owning a pipeline file.
type Type int

const (
	// Unknown indicates the CI system could not be identified.
	Unknown Type = iota
	// Travis identifies Travis CI configuration files.
	Travis
	// AzureDevOps identifies Azure DevOps pipeline files.
	AzureDevOps
	// GitHubActions identifies GitHub Actions workflow files.
	GitHubActions
	// Bamboo identifies Bamboo Specs files.
	Bamboo
	// Jenkins identifies Jenkinsfiles.
	Jenkins
	// BridgeConfig identifies standalone bridge configuration files.
	BridgeConfig
)

// String returns the human-readable string representation of a Type.
func (t Type) String() string {
	switch t {
	case Travis:
		return "travis"
	case AzureDevOps:
		return "azure_devops"
	case GitHubActions:
		return "github_actions"
	case Bamboo:
		return "bamboo"
	case Jenkins:
		return "jenkins"
	case BridgeConfig:
		return "bridge_config"
	default:
		return "unknown"
	}
}

// ParseType converts a string identifier into a Type value.
func ParseType(raw string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "travis":
		return Travis, nil
	case "azure_devops":
		return AzureDevOps, nil
	case "github_actions":
		return GitHubActions, nil
	case "bamboo":
		return Bamboo, nil
	case "jenkins":
		return Jenkins, nil
	case "bridge_config":
		return BridgeConfig, nil
	default:
		return Unknown, fmt.Errorf("unsupported ci type %q", raw)
	}
}

// rule is a single entry in the path resolution table.
type rule struct {
	match func(rel, base string) bool
	kind  Type
}

// resolutionTable is evaluated top to bottom; the first matching rule wins.
// Matching is case-sensitive on purpose: CI systems treat these filenames
// as case-sensitive on the platforms that host them.
var resolutionTable = []rule{
	{func(rel, base string) bool { return base == ".travis.yml" }, Travis},
	{func(rel, base string) bool {
		return base == "azure-pipelines.yml" || base == "azure-pipelines.yaml"
	}, AzureDevOps},
	{func(rel, base string) bool {
		dir := path.Dir(rel)
		return dir == ".github/workflows" && (strings.HasSuffix(base, ".yml") || strings.HasSuffix(base, ".yaml"))
	}, GitHubActions},
	{func(rel, base string) bool {
		return strings.Contains(rel, "bamboo-specs") && (strings.HasSuffix(base, ".yml") || strings.HasSuffix(base, ".yaml"))
	}, Bamboo},
	{func(rel, base string) bool { return strings.HasPrefix(base, "Jenkinsfile") }, Jenkins},
	{func(rel, base string) bool {
		return base == "bridge.yml" || base == "bridge.yaml"
	}, BridgeConfig},
}

// Resolve determines the owning CI system for a repository-relative path.
func Resolve(rel string) Type {
	rel = path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	base := path.Base(rel)
	for _, r := range resolutionTable {
		if r.match(rel, base) {
			return r.kind
		}
	}
	return Unknown
}

// Transformable reports whether files of this type are eligible for
// migration edits. Jenkinsfiles are excluded unless explicitly opted in;
// unrecognized files are never touched.
func (t Type) Transformable(editJenkins bool) bool {
	switch t {
	case Unknown:
		return false
	case Jenkins:
		return editJenkins
	default:
		return true
	}
}
