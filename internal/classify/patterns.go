package classify

import "regexp"

// Direct-evidence patterns: unambiguous syntactic markers proving the
// legacy integration is present in a file. These are configuration-grade
// constants; the classifier logic layered on top is in classify.go.
var (
	// CLI invocations
	reBridgeCLI   = regexp.MustCompile(`(?i)(bridge-cli|synopsys-bridge)\b`)
	reBridgeStage = regexp.MustCompile(`--stage[ =]+['"]?polaris['"]?`)
	reCoverityCLI = regexp.MustCompile(`\bcov-(build|analyze|capture|commit-defects|format-errors)\b`)
	rePolarisCLI  = regexp.MustCompile(`(^|[\s/])polaris(\.exe)?\s+(analyze|setup|install|capture)\b`)

	// Azure DevOps task extensions
	reADOSynopsysScan   = regexp.MustCompile(`task:\s*['"]?SynopsysSecurityScan@\d+`)
	reADOSynopsysBridge = regexp.MustCompile(`task:\s*['"]?SynopsysBridge@\d+`)
	reADOBlackDuckScan  = regexp.MustCompile(`task:\s*['"]?BlackDuckSecurityScan@\d+`)
	reADOGenericTask    = regexp.MustCompile(`task:\s*['"]?[A-Za-z]*(Synopsys|Polaris|Coverity)[A-Za-z]*@\d+`)
	reADOScanType       = regexp.MustCompile(`scanType:\s*['"]?polaris['"]?`)

	// GitHub Actions vendor action
	reGitHubVendorAction = regexp.MustCompile(`uses:\s*['"]?synopsys-sig/synopsys-action@`)

	// Jenkins Coverity plugin step syntax
	reJenkinsPluginSteps = regexp.MustCompile(`\b(withCoverityEnv|coverityScan|synopsysCoverity|coverityIssueCheck)\b|\bpolaris\s*\(`)

	// Environment / config-key markers (weakest direct tier)
	reEnvMarker = regexp.MustCompile(`\bPOLARIS_(SERVER_URL|ACCESS_TOKEN|PROJECT_NAME|FF_[A-Z_]+)\b`)

	// Bridge config file shape
	rePolarisSubKey  = regexp.MustCompile(`(?m)^\s+polaris\s*:`)
	rePolarisBareKey = regexp.MustCompile(`(?m)^polaris\s*:`)
)

// Indirect-evidence patterns: structural reuse signals that only suggest
// the integration may live behind a template, shared library, or image.
// Indirect classification requires a structural signal AND a vendor
// keyword; either alone is not evidence.
var (
	reStructuralSignal = regexp.MustCompile(`(?m)(^\s*(template|extends|resources)\s*:|uses:\s*\S+@|image:\s*\S+|@Library\(|\blibrary\s*\()`)
	reVendorKeyword    = regexp.MustCompile(`(?i)\b(polaris|coverity|synopsys)\b`)
)

// directPatterns is the full direct-evidence set, in no particular order;
// any single match makes a file "direct".
var directPatterns = []*regexp.Regexp{
	reBridgeCLI,
	reBridgeStage,
	reCoverityCLI,
	rePolarisCLI,
	reADOSynopsysScan,
	reADOSynopsysBridge,
	reADOGenericTask,
	reADOScanType,
	reGitHubVendorAction,
	reJenkinsPluginSteps,
	reEnvMarker,
}

// evidencePatterns are the patterns whose matching lines are captured as
// evidence in the report.
var evidencePatterns = []*regexp.Regexp{
	reBridgeCLI,
	reBridgeStage,
	reCoverityCLI,
	rePolarisCLI,
	reADOSynopsysScan,
	reADOSynopsysBridge,
	reADOBlackDuckScan,
	reADOGenericTask,
	reADOScanType,
	reGitHubVendorAction,
	reJenkinsPluginSteps,
	reEnvMarker,
	rePolarisSubKey,
	rePolarisBareKey,
}
