package audit

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bd-migrate/bdmigrate/internal/config"
	"github.com/bd-migrate/bdmigrate/internal/logger"
	"github.com/bd-migrate/bdmigrate/internal/migrate"
)

// RunOptionsAudit holds the arguments for the audit command.
type RunOptionsAudit struct {
	Root        string
	OutCSV      string
	OutSARIF    string
	Branches    []string
	AllBranches bool
	Remote      string
}

var (
	AppConfig         *config.Config
	auditOptions      RunOptionsAudit
	exampleAuditUsage = `  # Auditing the CI configuration of the main branch
  bdmigrate audit --root /path/to/repo --branches main --out-csv report.csv

  # Auditing every remote branch with a SARIF export
  bdmigrate audit --root /path/to/repo --all-branches --out-csv report.csv --out-sarif report.sarif`
)

// AuditCmd represents the audit command.
var AuditCmd = &cobra.Command{
	Use:                   "audit [--root PATH] (--branches NAMES | --all-branches) --out-csv PATH [--out-sarif PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleAuditUsage,
	Short:                 "Scan CI configuration and report findings without modifying anything",
	RunE:                  runAuditCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runAuditCommand(cmd *cobra.Command, args []string) error {
	cfg := *AppConfig
	applyAuditFlags(cmd.Flags(), &cfg)
	cfg.Mode = "audit"

	if err := config.Validate(&cfg); err != nil {
		return err
	}

	log := logger.New(&cfg, "bdmigrate-audit")
	_, err := migrate.Execute(&cfg, log)
	if err != nil {
		log.Error("audit command failed", "error", err)
		return err
	}
	log.Info("audit command completed successfully")
	return nil
}

// applyAuditFlags overlays explicitly set flags onto the configuration.
// Flags win over both the environment and the config file.
func applyAuditFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("root") {
		cfg.Root = auditOptions.Root
	}
	if flags.Changed("out-csv") {
		cfg.Report.CSVPath = auditOptions.OutCSV
	}
	if flags.Changed("out-sarif") {
		cfg.Report.SARIFPath = auditOptions.OutSARIF
	}
	if flags.Changed("branches") {
		cfg.Branches.Names = auditOptions.Branches
	}
	if flags.Changed("all-branches") {
		cfg.Branches.All = auditOptions.AllBranches
	}
	if flags.Changed("remote") {
		cfg.Git.Remote = auditOptions.Remote
	}
}

func init() {
	AuditCmd.Flags().StringVarP(&auditOptions.Root, "root", "r", "", "Path to the root of the repository working tree to audit.")
	AuditCmd.Flags().StringVarP(&auditOptions.OutCSV, "out-csv", "o", "", "Path to the CSV report file. Rows are appended across runs.")
	AuditCmd.Flags().StringVar(&auditOptions.OutSARIF, "out-sarif", "", "Optional path for a SARIF export of the findings.")
	AuditCmd.Flags().StringSliceVarP(&auditOptions.Branches, "branches", "b", nil, "Comma-separated list of branches to process.")
	AuditCmd.Flags().BoolVar(&auditOptions.AllBranches, "all-branches", false, "Process every branch of the configured remote.")
	AuditCmd.Flags().StringVar(&auditOptions.Remote, "remote", "", "Name of the git remote used for branch discovery. Defaults to origin.")
}
