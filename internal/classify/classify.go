// Package classify inspects CI configuration file contents for evidence
// of the legacy static-analysis integration and produces findings for the
// migration report.
package classify

import (
	"strings"

	"github.com/bd-migrate/bdmigrate/internal/citype"
)

// Found-type values.
const (
	FoundDirect   = "direct"
	FoundIndirect = "indirect"
)

// Invocation-style identifiers, ordered most to least specific in the
// cascade below.
const (
	StyleBridgeConfigFile      = "bridge_config_file"
	StyleGitHubVendorAction    = "github_action_synopsys_action"
	StyleADOSynopsysScan       = "ado_task_synopsys_security_scan"
	StyleADOSynopsysBridge     = "ado_task_synopsys_bridge"
	StyleADOBlackDuckScan      = "ado_task_blackduck_security_scan"
	StyleADOTaskExtension      = "ado_task_extension"
	StyleBridgeCLI             = "bridge_cli"
	StyleCoverityCLI           = "coverity_cli"
	StyleJenkinsCoverityPlugin = "jenkins_coverity_plugin_steps"
	StylePolarisEnvOrConfig    = "polaris_env_or_config"
	StyleUnknown               = "unknown"
)

// maxEvidenceLines bounds the evidence captured per file.
const maxEvidenceLines = 10

// evidenceDelimiter joins captured evidence lines for report embedding.
const evidenceDelimiter = " | "

// Finding is the result of classifying one candidate file on one branch.
// The classifier fills the content-derived fields; the state machine
// completes the repository context before the finding reaches a sink.
type Finding struct {
	Repo               string
	Branch             string
	BuildType          string
	PackageManagerFile string
	FilePath           string
	CIType             citype.Type
	FoundType          string
	InvocationStyle    string
	Evidence           string
	MigrationChanges   string
}

// Classify inspects file text and reports whether it carries evidence of
// the legacy integration. ok is false when the file carries no evidence;
// such files produce no finding. Classification never fails: callers pass
// whatever bytes they could read.
func Classify(text []byte, relPath string) (Finding, bool) {
	content := string(text)
	kind := citype.Resolve(relPath)

	finding := Finding{
		FilePath: relPath,
		CIType:   kind,
	}

	switch {
	case matchesDirect(content, kind):
		finding.FoundType = FoundDirect
	case matchesIndirect(content):
		finding.FoundType = FoundIndirect
	default:
		return Finding{}, false
	}

	finding.InvocationStyle = invocationStyle(content, kind)
	finding.Evidence = collectEvidence(content)
	return finding, true
}

// matchesDirect reports unambiguous evidence of the legacy integration.
func matchesDirect(content string, kind citype.Type) bool {
	for _, re := range directPatterns {
		if re.MatchString(content) {
			return true
		}
	}
	// A bridge config carrying a polaris key is direct evidence even
	// without any CLI or env marker.
	return kind == citype.BridgeConfig &&
		(rePolarisBareKey.MatchString(content) || rePolarisSubKey.MatchString(content))
}

// matchesIndirect requires a structural reuse signal AND a vendor keyword.
// The conjunction keeps generic uses:/image: lines in unrelated workflows
// from producing false positives.
func matchesIndirect(content string) bool {
	return reStructuralSignal.MatchString(content) && reVendorKeyword.MatchString(content)
}

// invocationStyle evaluates the style cascade, most to least specific.
// All matched styles are reported joined with "+": a single CI file can
// legitimately carry several integration idioms at once. Env-var-only
// evidence is the weakest tier and is reported only when nothing stronger
// matched.
func invocationStyle(content string, kind citype.Type) string {
	var styles []string

	if kind == citype.BridgeConfig && (rePolarisBareKey.MatchString(content) || rePolarisSubKey.MatchString(content)) {
		styles = append(styles, StyleBridgeConfigFile)
	}
	if reGitHubVendorAction.MatchString(content) {
		styles = append(styles, StyleGitHubVendorAction)
	}
	styles = append(styles, adoStyles(content)...)
	if reBridgeCLI.MatchString(content) || reBridgeStage.MatchString(content) {
		styles = append(styles, StyleBridgeCLI)
	}
	if reCoverityCLI.MatchString(content) || rePolarisCLI.MatchString(content) {
		styles = append(styles, StyleCoverityCLI)
	}
	if reJenkinsPluginSteps.MatchString(content) {
		styles = append(styles, StyleJenkinsCoverityPlugin)
	}

	if len(styles) == 0 {
		if reEnvMarker.MatchString(content) {
			return StylePolarisEnvOrConfig
		}
		return StyleUnknown
	}
	return strings.Join(styles, "+")
}

// adoStyles resolves the most specific Azure DevOps task styles present.
// The generic ado_task_extension is reported only when a vendor task is
// present that none of the specific patterns recognize.
func adoStyles(content string) []string {
	var styles []string
	if reADOSynopsysScan.MatchString(content) {
		styles = append(styles, StyleADOSynopsysScan)
	}
	if reADOSynopsysBridge.MatchString(content) {
		styles = append(styles, StyleADOSynopsysBridge)
	}
	if reADOBlackDuckScan.MatchString(content) {
		styles = append(styles, StyleADOBlackDuckScan)
	}
	if len(styles) == 0 && reADOGenericTask.MatchString(content) {
		styles = append(styles, StyleADOTaskExtension)
	}
	return styles
}

// collectEvidence captures the first matching lines for the report. Each
// line's text is preserved literally with any embedded newline collapsed
// to a space; CSV escaping is the sink's job.
func collectEvidence(content string) string {
	var captured []string
	for _, line := range strings.Split(content, "\n") {
		if len(captured) >= maxEvidenceLines {
			break
		}
		for _, re := range evidencePatterns {
			if re.MatchString(line) {
				captured = append(captured, sanitizeEvidenceLine(line))
				break
			}
		}
	}
	return strings.Join(captured, evidenceDelimiter)
}

func sanitizeEvidenceLine(line string) string {
	line = strings.ReplaceAll(line, "\r", " ")
	line = strings.ReplaceAll(line, "\n", " ")
	return strings.TrimSpace(line)
}
