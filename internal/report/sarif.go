package report

import (
	"fmt"
	"os"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/bd-migrate/bdmigrate/internal/classify"
)

const toolURI = "https://github.com/bd-migrate/bdmigrate"

// WriteSARIF exports findings as a SARIF report. Unlike the CSV sink the
// SARIF file is written whole at the end of a run: SARIF has no appendable
// representation.
func WriteSARIF(path string, findings []classify.Finding) error {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("bdmigrate", toolURI)
	for _, f := range findings {
		ruleID := f.InvocationStyle
		if ruleID == "" {
			ruleID = "unknown"
		}
		rule := run.AddRule(ruleID).
			WithDescription("legacy static-analysis integration detected").
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: levelFor(f.FoundType),
			})

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.FilePath)),
		)

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(message(f))).
			WithLevel(levelFor(f.FoundType)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}
	doc.AddRun(run)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening SARIF report %q: %w", path, err)
	}
	defer file.Close()

	if err := doc.PrettyWrite(file); err != nil {
		return fmt.Errorf("writing SARIF report: %w", err)
	}
	return nil
}

func levelFor(foundType string) string {
	if foundType == classify.FoundDirect {
		return "warning"
	}
	return "note"
}

func message(f classify.Finding) string {
	if f.Evidence == "" {
		return fmt.Sprintf("branch %s: %s evidence of legacy integration", f.Branch, f.FoundType)
	}
	return fmt.Sprintf("branch %s: %s", f.Branch, f.Evidence)
}
