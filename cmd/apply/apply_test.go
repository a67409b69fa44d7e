package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bd-migrate/bdmigrate/internal/config"
)

func TestApplyFlagOverlay(t *testing.T) {
	flags := ApplyCmd.Flags()
	assert.NoError(t, flags.Set("root", "/tmp/repo"))
	assert.NoError(t, flags.Set("commit", "true"))
	assert.NoError(t, flags.Set("branches", "main,develop"))
	assert.NoError(t, flags.Set("backup-topology", "sibling"))

	cfg := &config.Config{
		Root: "/from/env",
		Git:  config.Git{Remote: "upstream"},
		Migration: config.Migration{
			BackupTopology: config.TopologyNamespaced,
		},
	}
	applyApplyFlags(flags, cfg)

	assert.Equal(t, "/tmp/repo", cfg.Root)
	assert.True(t, cfg.Git.Commit)
	assert.Equal(t, []string{"main", "develop"}, cfg.Branches.Names)
	assert.Equal(t, config.TopologySibling, cfg.Migration.BackupTopology)

	// flags that were never set must not clobber config values
	assert.Equal(t, "upstream", cfg.Git.Remote)
	assert.False(t, cfg.Git.Push)
}
