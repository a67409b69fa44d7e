package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	applycmd "github.com/bd-migrate/bdmigrate/cmd/apply"
	auditcmd "github.com/bd-migrate/bdmigrate/cmd/audit"
	dryruncmd "github.com/bd-migrate/bdmigrate/cmd/dryrun"
	rollbackcmd "github.com/bd-migrate/bdmigrate/cmd/rollback"
	versioncmd "github.com/bd-migrate/bdmigrate/cmd/version"
	"github.com/bd-migrate/bdmigrate/internal/config"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "bdmigrate [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Bdmigrate audits and migrates CI pipeline configuration to Black Duck.",
		Long: `Bdmigrate scans the CI configuration of a git repository for legacy
static-analysis integrations (Polaris, Coverity, Synopsys Bridge), reports
every finding to a CSV audit trail, and can mechanically rewrite the
pipelines to their Black Duck equivalents with full backup and rollback
support.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML configuration file")
	rootCmd.AddCommand(auditcmd.AuditCmd)
	rootCmd.AddCommand(dryruncmd.DryRunCmd)
	rootCmd.AddCommand(applycmd.ApplyCmd)
	rootCmd.AddCommand(rollbackcmd.RollbackCmd)
	rootCmd.AddCommand(versioncmd.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return 1
	}
	return 0
}

func initConfig() {
	var err error
	AppConfig, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing configuration failed: %v\n", err)
		os.Exit(1)
	}

	auditcmd.Init(AppConfig)
	dryruncmd.Init(AppConfig)
	applycmd.Init(AppConfig)
	rollbackcmd.Init(AppConfig)
}
