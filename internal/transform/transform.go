// Package transform rewrites CI configuration text from the legacy
// static-analysis integration to Black Duck. Every rule is a pure
// function over text: no I/O, deterministic output, and idempotent
// (applying a rule twice equals applying it once). Byte-identical output
// means the rule was a no-op for that file.
package transform

import (
	"github.com/bd-migrate/bdmigrate/internal/citype"
)

// Options carries the switches that alter rule selection.
type Options struct {
	// EditJenkins opts Jenkinsfiles into transformation; they are
	// excluded by default because Groovy pipelines routinely wrap vendor
	// steps in shared-library code this tool cannot see.
	EditJenkins bool
}

// Apply transforms file text according to the rule for its CI type.
// Unknown CI types and non-opted-in Jenkinsfiles pass through untouched.
func Apply(t citype.Type, text string, opts Options) string {
	switch t {
	case citype.Travis, citype.Bamboo:
		return bridgeStageRule(text)
	case citype.AzureDevOps:
		return azureDevOpsRule(text)
	case citype.GitHubActions:
		return githubActionsRule(text)
	case citype.BridgeConfig:
		return bridgeConfigRule(text)
	case citype.Jenkins:
		if opts.EditJenkins {
			return bridgeStageRule(text)
		}
		return text
	default:
		return text
	}
}

// Changes reports whether applying the rule for t would alter the text.
func Changes(t citype.Type, text string, opts Options) bool {
	return Apply(t, text, opts) != text
}
