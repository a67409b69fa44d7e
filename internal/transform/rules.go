package transform

import (
	"regexp"
	"strings"
)

// Substitution patterns. Each rule guards on target-state markers before
// inserting anything, so applying a rule twice equals applying it once.
var (
	reStageFlag      = regexp.MustCompile(`(--stage[ =]+['"]?)polaris(['"]?)`)
	rePolarisEnvLine = regexp.MustCompile(`^(\s*-?\s*)(?:export\s+)?POLARIS_[A-Z_]+`)
	reEnvMapStyle    = regexp.MustCompile(`^\s*-?\s*POLARIS_[A-Z_]+\s*:`)

	reADOTaskName    = regexp.MustCompile(`SynopsysSecurityScan(@\d+)`)
	reADOScanType    = regexp.MustCompile(`(scanType:\s*)(['"]?)polaris(['"]?)`)
	reADOServiceConn = regexp.MustCompile(`polarisServiceConnection(\s*:)`)
	reADOCheckout    = regexp.MustCompile(`(?m)^(\s*)- checkout:.*$`)

	reVendorCLIMarker = regexp.MustCompile(`\bcov-(build|analyze|capture|commit-defects)\b|(^|[\s/])polaris(\.exe)?\s+(analyze|setup|install|capture)\b`)
	reBridgeMarker    = regexp.MustCompile(`(?i)(bridge-cli|synopsys-bridge)\b|--stage[ =]+['"]?polaris`)
	reVendorAction    = regexp.MustCompile(`uses:\s*['"]?synopsys-sig/synopsys-action@`)

	reBlackDuckEnv  = regexp.MustCompile(`\bBLACKDUCK_[A-Z_]+`)
	reBlackDuckTask = regexp.MustCompile(`BlackDuckSecurityScan@\d+`)

	reStageBlock     = regexp.MustCompile(`(?m)^stage\s*:`)
	rePolarisSubKey  = regexp.MustCompile(`^(\s+)polaris\s*:\s*$`)
	rePolarisBareKey = regexp.MustCompile(`(?m)^polaris\s*:`)
	reBlackDuckKey   = regexp.MustCompile(`(?m)^\s*blackduck\s*:`)
)

const suggestionMarker = "# --- Black Duck migration suggestion ---"

const actionSuggestionBlock = suggestionMarker + `
# No universal Black Duck action replaces synopsys-action automatically.
# Add your organization's approved Black Duck action, for example:
#
#      - name: Black Duck security scan
#        uses: <approved-blackduck-action>@<version>
#        with:
#          blackduck_url: ${{ secrets.BLACKDUCK_URL }}
#          blackduck_api_token: ${{ secrets.BLACKDUCK_API_TOKEN }}
`

// replaceStageFlag rewrites the bridge CLI stage flag from the legacy
// stage to blackduck, preserving quoting.
func replaceStageFlag(text string) string {
	return reStageFlag.ReplaceAllString(text, "${1}blackduck${2}")
}

// ensureEnvPlaceholders inserts Black Duck placeholder environment lines
// directly after the first legacy marker line, matching its layout. No-op
// when no legacy markers exist or Black Duck markers are already present.
func ensureEnvPlaceholders(text string) string {
	if reBlackDuckEnv.MatchString(text) {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := rePolarisEnvLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		prefix := m[1]
		var placeholders []string
		if reEnvMapStyle.MatchString(line) {
			placeholders = []string{
				prefix + "BLACKDUCK_URL: https://your-blackduck-instance.example.com",
				prefix + "BLACKDUCK_API_TOKEN: <replace-with-secret-reference>",
			}
		} else {
			placeholders = []string{
				prefix + "BLACKDUCK_URL=https://your-blackduck-instance.example.com",
				prefix + "BLACKDUCK_API_TOKEN=<replace-with-secret-reference>",
			}
		}
		out := make([]string, 0, len(lines)+2)
		out = append(out, lines[:i+1]...)
		out = append(out, placeholders...)
		out = append(out, lines[i+1:]...)
		return strings.Join(out, "\n")
	}
	return text
}

// bridgeStageRule is the shared travis/bamboo rule: stage-flag rewrite
// plus placeholder environment insertion.
func bridgeStageRule(text string) string {
	return ensureEnvPlaceholders(replaceStageFlag(text))
}

// azureDevOpsRule renames the legacy task (version suffix preserved),
// rewrites the scanType value, renames the service-connection key, and
// inserts a Black Duck step after the checkout step when only a raw
// vendor CLI invocation exists.
func azureDevOpsRule(text string) string {
	text = reADOTaskName.ReplaceAllString(text, "BlackDuckSecurityScan${1}")
	text = reADOScanType.ReplaceAllString(text, "${1}${2}blackduck${3}")
	text = reADOServiceConn.ReplaceAllString(text, "blackDuckServiceConnection${1}")

	if reVendorCLIMarker.MatchString(text) && !reBlackDuckTask.MatchString(text) {
		if loc := reADOCheckout.FindStringSubmatchIndex(text); loc != nil {
			indent := text[loc[2]:loc[3]]
			block := "\n" + indent + "- task: BlackDuckSecurityScan@1\n" +
				indent + "  inputs:\n" +
				indent + "    blackDuckUrl: $(BLACKDUCK_URL)\n" +
				indent + "    blackDuckApiToken: $(BLACKDUCK_API_TOKEN)"
			text = text[:loc[1]] + block + text[loc[1]:]
		}
	}
	return text
}

// githubActionsRule applies the bridge-CLI rule when bridge markers are
// present, and appends a commented suggestion block when the legacy
// vendor action is referenced. The suggestion is deliberately not an
// automated replacement.
func githubActionsRule(text string) string {
	if reBridgeMarker.MatchString(text) {
		text = bridgeStageRule(text)
	}
	if reVendorAction.MatchString(text) && !strings.Contains(text, suggestionMarker) {
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += "\n" + actionSuggestionBlock
	}
	return text
}

// bridgeConfigRule appends a blackduck stage block next to the legacy one.
// Already-migrated configs (any blackduck key) are left untouched.
func bridgeConfigRule(text string) string {
	if reBlackDuckKey.MatchString(text) {
		return text
	}

	if reStageBlock.MatchString(text) {
		if out, ok := insertBlackDuckSubKey(text); ok {
			return out
		}
	}

	if rePolarisBareKey.MatchString(text) {
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return text + `
# NOTE: expected a 'stage:' block containing a 'polaris:' sub-key; the
# layout below was appended at top level and needs manual review.
blackduck:
  url: https://your-blackduck-instance.example.com
  token: <replace-with-token>
  project:
    name: <project-name>
    version: <project-version>
`
	}
	return text
}

// insertBlackDuckSubKey locates the polaris sub-block under stage: and
// appends a sibling blackduck block directly after it.
func insertBlackDuckSubKey(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	start := -1
	var indent string
	for i, line := range lines {
		if m := rePolarisSubKey.FindStringSubmatch(line); m != nil {
			start = i
			indent = m[1]
			break
		}
	}
	if start == -1 {
		return text, false
	}

	// The polaris block ends at the first subsequent line at the same or
	// shallower indentation that is not blank.
	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if len(lines[i])-len(strings.TrimLeft(lines[i], " \t")) <= len(indent) {
			end = i
			break
		}
	}
	// back up over trailing blank lines so the new block sits directly
	// under the legacy one
	for end-1 > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	block := []string{
		indent + "blackduck:",
		indent + "  url: https://your-blackduck-instance.example.com",
		indent + "  token: <replace-with-token>",
		indent + "  project:",
		indent + "    name: <project-name>",
		indent + "    version: <project-version>",
	}

	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:end]...)
	out = append(out, block...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n"), true
}
