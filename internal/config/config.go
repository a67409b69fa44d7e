// Package config holds the immutable runtime configuration for bdmigrate.
// It is constructed once at process start from an optional YAML file plus
// environment overrides, and passed into components by pointer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Backup topology identifiers.
const (
	TopologyNamespaced = "namespaced"
	TopologySibling    = "sibling"
)

// Config is the full runtime configuration.
type Config struct {
	Mode      string    `yaml:"mode"`
	Root      string    `yaml:"root"`
	Report    Report    `yaml:"report"`
	Branches  Branches  `yaml:"branches"`
	Git       Git       `yaml:"git"`
	Migration Migration `yaml:"migration"`
	Logger    Logger    `yaml:"logger"`
}

// Report configures the audit outputs.
type Report struct {
	CSVPath   string `yaml:"csv_path"`
	SARIFPath string `yaml:"sarif_path"`
}

// Branches selects which branches a run operates on.
type Branches struct {
	Names []string `yaml:"names"`
	All   bool     `yaml:"all"`
}

// Git configures the version-control collaborator.
type Git struct {
	Remote   string `yaml:"remote"`
	Push     bool   `yaml:"push"`
	Commit   bool   `yaml:"commit"`
	AuthType string `yaml:"auth_type"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
	SSHKey   string `yaml:"ssh_key"`
}

// Migration configures the state machine's safety switches.
type Migration struct {
	AllowDirty     bool   `yaml:"allow_dirty"`
	EditJenkins    bool   `yaml:"edit_jenkins"`
	BackupTopology string `yaml:"backup_topology"`
}

// Logger configures log output.
type Logger struct {
	Level           string `yaml:"level"`
	JSONFormat      bool   `yaml:"json_format"`
	IncludeLocation bool   `yaml:"include_location"`
}

// Load reads an optional YAML config file and applies environment
// overrides on top. A missing file is not an error; the environment and
// defaults alone form a valid configuration.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %q: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Root: ".",
		Git: Git{
			Remote: "origin",
		},
		Migration: Migration{
			BackupTopology: TopologyNamespaced,
		},
		Logger: Logger{
			Level: "INFO",
		},
	}
}

func loadYAML(path string, out *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return yaml.NewDecoder(file).Decode(out)
}

// applyEnv overlays the recognized process environment onto the config.
// Environment values win over file values; flags win over both (applied
// later by the command layer).
func (c *Config) applyEnv(lookup func(string) string) {
	setString(&c.Mode, lookup("MODE"))
	setString(&c.Root, lookup("ROOT"))
	setString(&c.Report.CSVPath, lookup("OUT_CSV"))
	setString(&c.Report.SARIFPath, lookup("OUT_SARIF"))
	if v := lookup("BRANCHES"); v != "" {
		c.Branches.Names = splitList(v)
	}
	setBool(&c.Branches.All, lookup("ALL_BRANCHES"))
	setString(&c.Git.Remote, lookup("REMOTE"))
	setBool(&c.Git.Push, lookup("PUSH"))
	setBool(&c.Git.Commit, lookup("COMMIT"))
	setString(&c.Git.AuthType, lookup("GIT_AUTH_TYPE"))
	setString(&c.Git.Username, lookup("GIT_USERNAME"))
	setString(&c.Git.Token, lookup("GIT_TOKEN"))
	setString(&c.Git.SSHKey, lookup("GIT_SSH_KEY"))
	setBool(&c.Migration.AllowDirty, lookup("ALLOW_DIRTY"))
	setBool(&c.Migration.EditJenkins, lookup("EDIT_JENKINS"))
	setString(&c.Migration.BackupTopology, lookup("BACKUP_TOPOLOGY"))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v string) {
	if v == "" {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		// 1/0/true/false are the documented forms; anything else is off.
		parsed = false
	}
	*dst = parsed
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
