package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bd-migrate/bdmigrate/internal/citype"
)

const travisLegacy = `language: java
env:
  global:
    - POLARIS_SERVER_URL=https://polaris.example.com
    - POLARIS_ACCESS_TOKEN=secret
script:
  - ./bridge-cli --stage polaris --verbose
`

const adoLegacy = `trigger:
  - main
steps:
  - checkout: self
  - task: SynopsysSecurityScan@1
    inputs:
      scanType: 'polaris'
      polarisServiceConnection: 'my-connection'
`

const adoVendorCLI = `steps:
  - checkout: self
  - script: |
      cov-build --dir idir make
      cov-analyze --dir idir
`

const workflowAction = `jobs:
  security:
    steps:
      - uses: actions/checkout@v3
      - uses: synopsys-sig/synopsys-action@v1.6.0
`

const bridgeStaged = `stage:
  polaris:
    serverUrl: https://polaris.example.com
    accessToken: token
other: value
`

const bridgeBare = `polaris:
  serverUrl: https://polaris.example.com
`

func TestTravisStageFlagAndEnvPlaceholders(t *testing.T) {
	got := Apply(citype.Travis, travisLegacy, Options{})

	assert.Contains(t, got, "--stage blackduck")
	assert.NotContains(t, got, "--stage polaris")
	assert.Contains(t, got, "- BLACKDUCK_URL=")
	assert.Contains(t, got, "- BLACKDUCK_API_TOKEN=")

	// placeholders land directly after the first legacy marker line
	lines := strings.Split(got, "\n")
	for i, line := range lines {
		if strings.Contains(line, "POLARIS_SERVER_URL") {
			assert.Contains(t, lines[i+1], "BLACKDUCK_URL")
			assert.Contains(t, lines[i+2], "BLACKDUCK_API_TOKEN")
			break
		}
	}
}

func TestEnvPlaceholdersNotDuplicated(t *testing.T) {
	withTarget := strings.Replace(travisLegacy,
		"- POLARIS_ACCESS_TOKEN=secret",
		"- POLARIS_ACCESS_TOKEN=secret\n    - BLACKDUCK_URL=https://bd.example.com", 1)
	got := Apply(citype.Travis, withTarget, Options{})
	assert.Equal(t, 1, strings.Count(got, "BLACKDUCK_URL"))
}

func TestBambooSharesTravisRule(t *testing.T) {
	assert.Equal(t,
		Apply(citype.Travis, travisLegacy, Options{}),
		Apply(citype.Bamboo, travisLegacy, Options{}))
}

func TestAzureDevOpsSubstitutions(t *testing.T) {
	got := Apply(citype.AzureDevOps, adoLegacy, Options{})

	assert.Contains(t, got, "task: BlackDuckSecurityScan@1")
	assert.NotContains(t, got, "SynopsysSecurityScan")
	assert.Contains(t, got, "scanType: 'blackduck'")
	assert.Contains(t, got, "blackDuckServiceConnection: 'my-connection'")
	assert.NotContains(t, got, "polarisServiceConnection")
}

func TestAzureDevOpsStepInsertionAfterCheckout(t *testing.T) {
	got := Apply(citype.AzureDevOps, adoVendorCLI, Options{})

	idxCheckout := strings.Index(got, "- checkout: self")
	idxTask := strings.Index(got, "- task: BlackDuckSecurityScan@1")
	if idxTask == -1 {
		t.Fatalf("expected inserted step block, got:\n%s", got)
	}
	if idxTask < idxCheckout {
		t.Fatalf("step block must follow the checkout step:\n%s", got)
	}
	// existing steps are never removed
	assert.Contains(t, got, "cov-build --dir idir make")
}

func TestAzureDevOpsNoInsertionWhenTaskExists(t *testing.T) {
	got := Apply(citype.AzureDevOps, adoLegacy, Options{})
	assert.Equal(t, 1, strings.Count(got, "BlackDuckSecurityScan@1"))
}

func TestGitHubActionsSuggestionBlock(t *testing.T) {
	got := Apply(citype.GitHubActions, workflowAction, Options{})

	assert.Contains(t, got, suggestionMarker)
	assert.Contains(t, got, "# ")
	// the vendor action reference itself is not rewritten
	assert.Contains(t, got, "uses: synopsys-sig/synopsys-action@v1.6.0")

	// every appended line is a comment
	appended := got[strings.Index(got, suggestionMarker):]
	for _, line := range strings.Split(strings.TrimSpace(appended), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(strings.TrimSpace(line), "#") {
			t.Fatalf("suggestion block contains a non-comment line: %q", line)
		}
	}
}

func TestGitHubActionsBridgeCLI(t *testing.T) {
	content := "jobs:\n  scan:\n    steps:\n      - run: bridge-cli --stage polaris\n"
	got := Apply(citype.GitHubActions, content, Options{})
	assert.Contains(t, got, "--stage blackduck")
}

func TestBridgeConfigStagedInsertion(t *testing.T) {
	got := Apply(citype.BridgeConfig, bridgeStaged, Options{})

	assert.Contains(t, got, "  blackduck:")
	assert.Contains(t, got, "    url: https://your-blackduck-instance.example.com")

	// inserted after the polaris block and before the next top-level key
	idxPolaris := strings.Index(got, "  polaris:")
	idxBlackDuck := strings.Index(got, "  blackduck:")
	idxOther := strings.Index(got, "other: value")
	if !(idxPolaris < idxBlackDuck && idxBlackDuck < idxOther) {
		t.Fatalf("blackduck block misplaced:\n%s", got)
	}
}

func TestBridgeConfigAlreadyMigratedNoOp(t *testing.T) {
	migrated := Apply(citype.BridgeConfig, bridgeStaged, Options{})
	assert.Equal(t, migrated, Apply(citype.BridgeConfig, migrated, Options{}))
}

func TestBridgeConfigBareKeyAppendsWithNote(t *testing.T) {
	got := Apply(citype.BridgeConfig, bridgeBare, Options{})
	assert.Contains(t, got, "# NOTE:")
	assert.Contains(t, got, "\nblackduck:")
}

func TestJenkinsGating(t *testing.T) {
	content := "node {\n  sh './bridge-cli --stage polaris'\n}\n"

	assert.Equal(t, content, Apply(citype.Jenkins, content, Options{}),
		"jenkins must be a no-op without opt-in")

	got := Apply(citype.Jenkins, content, Options{EditJenkins: true})
	assert.Contains(t, got, "--stage blackduck")
}

func TestUnknownTypeIdentity(t *testing.T) {
	content := "--stage polaris everywhere\n"
	assert.Equal(t, content, Apply(citype.Unknown, content, Options{}))
}

// Applying any rule twice must equal applying it once.
func TestIdempotence(t *testing.T) {
	testCases := []struct {
		name string
		kind citype.Type
		text string
		opts Options
	}{
		{name: "Travis", kind: citype.Travis, text: travisLegacy},
		{name: "Bamboo", kind: citype.Bamboo, text: travisLegacy},
		{name: "AzureTask", kind: citype.AzureDevOps, text: adoLegacy},
		{name: "AzureVendorCLI", kind: citype.AzureDevOps, text: adoVendorCLI},
		{name: "GitHubAction", kind: citype.GitHubActions, text: workflowAction},
		{name: "BridgeStaged", kind: citype.BridgeConfig, text: bridgeStaged},
		{name: "BridgeBare", kind: citype.BridgeConfig, text: bridgeBare},
		{name: "JenkinsOptIn", kind: citype.Jenkins, text: "sh 'bridge-cli --stage polaris'\n", opts: Options{EditJenkins: true}},
		{name: "JenkinsDefault", kind: citype.Jenkins, text: "sh 'bridge-cli --stage polaris'\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			once := Apply(tc.kind, tc.text, tc.opts)
			twice := Apply(tc.kind, once, tc.opts)
			if once != twice {
				t.Fatalf("rule is not idempotent:\nonce:\n%s\ntwice:\n%s", once, twice)
			}
		})
	}
}

func TestChanges(t *testing.T) {
	if !Changes(citype.Travis, travisLegacy, Options{}) {
		t.Fatalf("expected travis legacy content to change")
	}
	if Changes(citype.Travis, "language: go\n", Options{}) {
		t.Fatalf("clean file must be a no-op")
	}
}
