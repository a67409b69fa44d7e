package dryrun

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bd-migrate/bdmigrate/internal/config"
	"github.com/bd-migrate/bdmigrate/internal/logger"
	"github.com/bd-migrate/bdmigrate/internal/migrate"
)

// RunOptionsDryRun holds the arguments for the dry-run command.
type RunOptionsDryRun struct {
	Root        string
	OutCSV      string
	OutSARIF    string
	Branches    []string
	AllBranches bool
	Remote      string
	EditJenkins bool
}

var (
	AppConfig          *config.Config
	dryRunOptions      RunOptionsDryRun
	exampleDryRunUsage = `  # Previewing the edits an apply run would make on main
  bdmigrate dry-run --root /path/to/repo --branches main --out-csv report.csv

  # Previewing with Jenkinsfile editing opted in
  bdmigrate dry-run --root /path/to/repo --branches main --out-csv report.csv --edit-jenkins`
)

// DryRunCmd represents the dry-run command.
var DryRunCmd = &cobra.Command{
	Use:                   "dry-run [--root PATH] (--branches NAMES | --all-branches) --out-csv PATH [--edit-jenkins]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleDryRunUsage,
	Short:                 "Preview the migration edits without touching any file",
	RunE:                  runDryRunCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runDryRunCommand(cmd *cobra.Command, args []string) error {
	cfg := *AppConfig
	applyDryRunFlags(cmd.Flags(), &cfg)
	cfg.Mode = "dry-run"

	if err := config.Validate(&cfg); err != nil {
		return err
	}

	log := logger.New(&cfg, "bdmigrate-dry-run")
	_, err := migrate.Execute(&cfg, log)
	if err != nil {
		log.Error("dry-run command failed", "error", err)
		return err
	}
	log.Info("dry-run command completed successfully")
	return nil
}

func applyDryRunFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("root") {
		cfg.Root = dryRunOptions.Root
	}
	if flags.Changed("out-csv") {
		cfg.Report.CSVPath = dryRunOptions.OutCSV
	}
	if flags.Changed("out-sarif") {
		cfg.Report.SARIFPath = dryRunOptions.OutSARIF
	}
	if flags.Changed("branches") {
		cfg.Branches.Names = dryRunOptions.Branches
	}
	if flags.Changed("all-branches") {
		cfg.Branches.All = dryRunOptions.AllBranches
	}
	if flags.Changed("remote") {
		cfg.Git.Remote = dryRunOptions.Remote
	}
	if flags.Changed("edit-jenkins") {
		cfg.Migration.EditJenkins = dryRunOptions.EditJenkins
	}
}

func init() {
	DryRunCmd.Flags().StringVarP(&dryRunOptions.Root, "root", "r", "", "Path to the root of the repository working tree.")
	DryRunCmd.Flags().StringVarP(&dryRunOptions.OutCSV, "out-csv", "o", "", "Path to the CSV report file. Rows are appended across runs.")
	DryRunCmd.Flags().StringVar(&dryRunOptions.OutSARIF, "out-sarif", "", "Optional path for a SARIF export of the findings.")
	DryRunCmd.Flags().StringSliceVarP(&dryRunOptions.Branches, "branches", "b", nil, "Comma-separated list of branches to process.")
	DryRunCmd.Flags().BoolVar(&dryRunOptions.AllBranches, "all-branches", false, "Process every branch of the configured remote.")
	DryRunCmd.Flags().StringVar(&dryRunOptions.Remote, "remote", "", "Name of the git remote used for branch discovery. Defaults to origin.")
	DryRunCmd.Flags().BoolVar(&dryRunOptions.EditJenkins, "edit-jenkins", false, "Include Jenkinsfiles in the preview. They are skipped by default.")
}
