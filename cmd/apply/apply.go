package apply

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bd-migrate/bdmigrate/internal/config"
	"github.com/bd-migrate/bdmigrate/internal/logger"
	"github.com/bd-migrate/bdmigrate/internal/migrate"
)

// RunOptionsApply holds the arguments for the apply command.
type RunOptionsApply struct {
	Root           string
	OutCSV         string
	OutSARIF       string
	Branches       []string
	AllBranches    bool
	Remote         string
	Commit         bool
	Push           bool
	AllowDirty     bool
	EditJenkins    bool
	BackupTopology string
	AuthType       string
	Username       string
	SSHKey         string
}

var (
	AppConfig         *config.Config
	applyOptions      RunOptionsApply
	exampleApplyUsage = `  # Migrating the main branch, leaving the edits uncommitted
  bdmigrate apply --root /path/to/repo --branches main --out-csv report.csv

  # Migrating with a tagged commit and push (token from GIT_TOKEN)
  bdmigrate apply --root /path/to/repo --branches main --out-csv report.csv --commit --push

  # Migrating with sibling backups committed next to each pipeline file
  bdmigrate apply --root /path/to/repo --branches main --out-csv report.csv --commit --backup-topology sibling`
)

// ApplyCmd represents the apply command.
var ApplyCmd = &cobra.Command{
	Use:                   "apply [--root PATH] (--branches NAMES | --all-branches) --out-csv PATH [--commit [--push]] [--edit-jenkins]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleApplyUsage,
	Short:                 "Rewrite the CI configuration to Black Duck, with backups first",
	Long: `Apply performs the migration edits on every selected branch. Each file
is snapshotted before it is overwritten, so an interrupted run is always
recoverable. With --commit the changed files are committed with a
migration tag that the rollback command can find later; with --push the
commit is pushed to the configured remote. The push credential is read
from GIT_TOKEN and never accepted as a flag.`,
	RunE: runApplyCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runApplyCommand(cmd *cobra.Command, args []string) error {
	cfg := *AppConfig
	applyApplyFlags(cmd.Flags(), &cfg)
	cfg.Mode = "apply"

	if err := config.Validate(&cfg); err != nil {
		return err
	}

	log := logger.New(&cfg, "bdmigrate-apply")
	_, err := migrate.Execute(&cfg, log)
	if err != nil {
		log.Error("apply command failed", "error", err)
		return err
	}
	log.Info("apply command completed successfully")
	return nil
}

func applyApplyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("root") {
		cfg.Root = applyOptions.Root
	}
	if flags.Changed("out-csv") {
		cfg.Report.CSVPath = applyOptions.OutCSV
	}
	if flags.Changed("out-sarif") {
		cfg.Report.SARIFPath = applyOptions.OutSARIF
	}
	if flags.Changed("branches") {
		cfg.Branches.Names = applyOptions.Branches
	}
	if flags.Changed("all-branches") {
		cfg.Branches.All = applyOptions.AllBranches
	}
	if flags.Changed("remote") {
		cfg.Git.Remote = applyOptions.Remote
	}
	if flags.Changed("commit") {
		cfg.Git.Commit = applyOptions.Commit
	}
	if flags.Changed("push") {
		cfg.Git.Push = applyOptions.Push
	}
	if flags.Changed("allow-dirty") {
		cfg.Migration.AllowDirty = applyOptions.AllowDirty
	}
	if flags.Changed("edit-jenkins") {
		cfg.Migration.EditJenkins = applyOptions.EditJenkins
	}
	if flags.Changed("backup-topology") {
		cfg.Migration.BackupTopology = applyOptions.BackupTopology
	}
	if flags.Changed("auth-type") {
		cfg.Git.AuthType = applyOptions.AuthType
	}
	if flags.Changed("username") {
		cfg.Git.Username = applyOptions.Username
	}
	if flags.Changed("ssh-key") {
		cfg.Git.SSHKey = applyOptions.SSHKey
	}
}

func init() {
	ApplyCmd.Flags().StringVarP(&applyOptions.Root, "root", "r", "", "Path to the root of the repository working tree to migrate.")
	ApplyCmd.Flags().StringVarP(&applyOptions.OutCSV, "out-csv", "o", "", "Path to the CSV report file. Rows are appended across runs.")
	ApplyCmd.Flags().StringVar(&applyOptions.OutSARIF, "out-sarif", "", "Optional path for a SARIF export of the findings.")
	ApplyCmd.Flags().StringSliceVarP(&applyOptions.Branches, "branches", "b", nil, "Comma-separated list of branches to process.")
	ApplyCmd.Flags().BoolVar(&applyOptions.AllBranches, "all-branches", false, "Process every branch of the configured remote.")
	ApplyCmd.Flags().StringVar(&applyOptions.Remote, "remote", "", "Name of the git remote used for branch discovery and push. Defaults to origin.")
	ApplyCmd.Flags().BoolVar(&applyOptions.Commit, "commit", false, "Commit the migrated files with a migration tag in the message.")
	ApplyCmd.Flags().BoolVar(&applyOptions.Push, "push", false, "Push the migration commit to the remote. Requires --commit.")
	ApplyCmd.Flags().BoolVar(&applyOptions.AllowDirty, "allow-dirty", false, "Proceed even when the working tree has uncommitted changes.")
	ApplyCmd.Flags().BoolVar(&applyOptions.EditJenkins, "edit-jenkins", false, "Include Jenkinsfiles in the migration. They are skipped by default.")
	ApplyCmd.Flags().StringVar(&applyOptions.BackupTopology, "backup-topology", "", "Backup layout: namespaced (default) or sibling.")
	ApplyCmd.Flags().StringVar(&applyOptions.AuthType, "auth-type", "", "Authentication type for push: http, ssh-key or ssh-agent.")
	ApplyCmd.Flags().StringVar(&applyOptions.Username, "username", "", "Username for HTTP authentication.")
	ApplyCmd.Flags().StringVar(&applyOptions.SSHKey, "ssh-key", "", "Path to the private key for ssh-key authentication.")
}
