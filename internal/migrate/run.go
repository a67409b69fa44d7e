package migrate

import (
	"github.com/hashicorp/go-hclog"

	"github.com/bd-migrate/bdmigrate/internal/config"
	"github.com/bd-migrate/bdmigrate/internal/vcs"
)

// Execute opens the repository named by cfg.Root and drives one full run
// under the configured mode. It is the single entry point the command
// layer uses.
func Execute(cfg *config.Config, log hclog.Logger) ([]BranchSummary, error) {
	client, err := vcs.Open(cfg.Root, cfg, log.Named("git"))
	if err != nil {
		return nil, err
	}
	m, err := New(cfg, client, log)
	if err != nil {
		return nil, err
	}
	err = m.Run()
	return m.Summaries(), err
}
