package rollback

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bd-migrate/bdmigrate/internal/config"
	"github.com/bd-migrate/bdmigrate/internal/logger"
	"github.com/bd-migrate/bdmigrate/internal/migrate"
)

// RunOptionsRollback holds the arguments for the rollback command.
type RunOptionsRollback struct {
	Root           string
	OutCSV         string
	OutSARIF       string
	Branches       []string
	AllBranches    bool
	Remote         string
	Commit         bool
	Push           bool
	AllowDirty     bool
	BackupTopology string
	AuthType       string
	Username       string
	SSHKey         string
}

var (
	AppConfig            *config.Config
	rollbackOptions      RunOptionsRollback
	exampleRollbackUsage = `  # Rolling back the migration on main
  bdmigrate rollback --root /path/to/repo --branches main --out-csv report.csv

  # Rolling back and committing the restoration
  bdmigrate rollback --root /path/to/repo --branches main --out-csv report.csv --commit`
)

// RollbackCmd represents the rollback command.
var RollbackCmd = &cobra.Command{
	Use:                   "rollback [--root PATH] (--branches NAMES | --all-branches) --out-csv PATH [--commit [--push]]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRollbackUsage,
	Short:                 "Restore the pre-migration CI configuration",
	Long: `Rollback restores each selected branch to its pre-migration state.
When a tagged migration commit exists it is reverted; otherwise the most
recent backups are restored. A branch with neither is an error: there is
nothing trustworthy to restore from.`,
	RunE: runRollbackCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runRollbackCommand(cmd *cobra.Command, args []string) error {
	cfg := *AppConfig
	applyRollbackFlags(cmd.Flags(), &cfg)
	cfg.Mode = "rollback"

	if err := config.Validate(&cfg); err != nil {
		return err
	}

	log := logger.New(&cfg, "bdmigrate-rollback")
	_, err := migrate.Execute(&cfg, log)
	if err != nil {
		log.Error("rollback command failed", "error", err)
		return err
	}
	log.Info("rollback command completed successfully")
	return nil
}

func applyRollbackFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("root") {
		cfg.Root = rollbackOptions.Root
	}
	if flags.Changed("out-csv") {
		cfg.Report.CSVPath = rollbackOptions.OutCSV
	}
	if flags.Changed("out-sarif") {
		cfg.Report.SARIFPath = rollbackOptions.OutSARIF
	}
	if flags.Changed("branches") {
		cfg.Branches.Names = rollbackOptions.Branches
	}
	if flags.Changed("all-branches") {
		cfg.Branches.All = rollbackOptions.AllBranches
	}
	if flags.Changed("remote") {
		cfg.Git.Remote = rollbackOptions.Remote
	}
	if flags.Changed("commit") {
		cfg.Git.Commit = rollbackOptions.Commit
	}
	if flags.Changed("push") {
		cfg.Git.Push = rollbackOptions.Push
	}
	if flags.Changed("allow-dirty") {
		cfg.Migration.AllowDirty = rollbackOptions.AllowDirty
	}
	if flags.Changed("backup-topology") {
		cfg.Migration.BackupTopology = rollbackOptions.BackupTopology
	}
	if flags.Changed("auth-type") {
		cfg.Git.AuthType = rollbackOptions.AuthType
	}
	if flags.Changed("username") {
		cfg.Git.Username = rollbackOptions.Username
	}
	if flags.Changed("ssh-key") {
		cfg.Git.SSHKey = rollbackOptions.SSHKey
	}
}

func init() {
	RollbackCmd.Flags().StringVarP(&rollbackOptions.Root, "root", "r", "", "Path to the root of the repository working tree to restore.")
	RollbackCmd.Flags().StringVarP(&rollbackOptions.OutCSV, "out-csv", "o", "", "Path to the CSV report file. Rows are appended across runs.")
	RollbackCmd.Flags().StringVar(&rollbackOptions.OutSARIF, "out-sarif", "", "Optional path for a SARIF export of the findings.")
	RollbackCmd.Flags().StringSliceVarP(&rollbackOptions.Branches, "branches", "b", nil, "Comma-separated list of branches to process.")
	RollbackCmd.Flags().BoolVar(&rollbackOptions.AllBranches, "all-branches", false, "Process every branch of the configured remote.")
	RollbackCmd.Flags().StringVar(&rollbackOptions.Remote, "remote", "", "Name of the git remote used for branch discovery and push. Defaults to origin.")
	RollbackCmd.Flags().BoolVar(&rollbackOptions.Commit, "commit", false, "Commit the restored files.")
	RollbackCmd.Flags().BoolVar(&rollbackOptions.Push, "push", false, "Push the revert or restore commit to the remote. Requires --commit.")
	RollbackCmd.Flags().BoolVar(&rollbackOptions.AllowDirty, "allow-dirty", false, "Proceed even when the working tree has uncommitted changes.")
	RollbackCmd.Flags().StringVar(&rollbackOptions.BackupTopology, "backup-topology", "", "Backup layout to restore from: namespaced (default) or sibling.")
	RollbackCmd.Flags().StringVar(&rollbackOptions.AuthType, "auth-type", "", "Authentication type for push: http, ssh-key or ssh-agent.")
	RollbackCmd.Flags().StringVar(&rollbackOptions.Username, "username", "", "Username for HTTP authentication.")
	RollbackCmd.Flags().StringVar(&rollbackOptions.SSHKey, "ssh-key", "", "Path to the private key for ssh-key authentication.")
}
