// Package config loads the yaml configuration consumed by the updctl
// command. The library itself takes a plain selfupdate.Config; this
// package only exists so the demo CLI can be pointed at a backend
// without recompiling.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend identifies and parameterizes the release source.
type Backend struct {
	// Kind is one of "github", "gitlab", or "s3".
	Kind string `yaml:"kind"`

	// GitHub.
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`

	// GitLab: numeric project ID or URL-encoded "group/project" path.
	Project string `yaml:"project"`

	// S3-compatible storage.
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Prefix   string `yaml:"prefix"`

	// BaseURL overrides the API base URL (GitHub Enterprise, self-hosted
	// GitLab).
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// Binary describes the executable being updated.
type Binary struct {
	Name           string `yaml:"name"`
	Target         string `yaml:"target"`
	PathInArchive  string `yaml:"path_in_archive"`
	PinnedVersion  string `yaml:"pinned_version"`
	VerifyChecksum bool   `yaml:"verify_checksum"`
}

type Config struct {
	Backend  Backend `yaml:"backend"`
	Binary   Binary  `yaml:"binary"`
	LogLevel string  `yaml:"log_level"`
	Notify   bool    `yaml:"notify"`
}

// DefaultPath returns the conventional config location, ~/.updctl.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".updctl.yaml"
	}
	return filepath.Join(home, ".updctl.yaml")
}

// Load reads and validates the config at path. The file may carry an
// auth token, so its permissions are tightened on platforms that
// support it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{LogLevel: "info"}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if cfg.Backend.Token != "" {
		if err := restrictPermissions(path); err != nil {
			return nil, fmt.Errorf("securing %s: %w", path, err)
		}
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Binary.Name == "" {
		return fmt.Errorf("binary.name required")
	}
	switch c.Backend.Kind {
	case "github":
		if c.Backend.Owner == "" || c.Backend.Repo == "" {
			return fmt.Errorf("github backend requires owner and repo")
		}
	case "gitlab":
		if c.Backend.Project == "" {
			return fmt.Errorf("gitlab backend requires project")
		}
	case "s3":
		if c.Backend.Bucket == "" {
			return fmt.Errorf("s3 backend requires bucket")
		}
	case "":
		return fmt.Errorf("backend.kind required")
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	return nil
}
