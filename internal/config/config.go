package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
)

// CurrentVersion is the only configuration format version understood by Load.
const CurrentVersion = "1"

// Config is the gitpath configuration file: the materials to track plus the
// settings of the long-running poller.
type Config struct {
	Version   string      `yaml:"version"`
	Workspace string      `yaml:"workspace"`
	Backend   BackendKind `yaml:"backend"`
	GitBinary string      `yaml:"git_binary,omitempty"`
	Logging   LogLevel    `yaml:"log_level,omitempty"`

	Materials []Material   `yaml:"materials"`
	Daemon    DaemonConfig `yaml:"daemon"`
	Notify    NotifyConfig `yaml:"notify"`
}

// DaemonConfig controls the polling daemon.
type DaemonConfig struct {
	Interval time.Duration `yaml:"interval"`
	HTTPAddr string        `yaml:"http_addr"`
	StateDB  string        `yaml:"state_db"`
	Retry    RetryConfig   `yaml:"retry"`
}

// RetryConfig controls retries of failed polls.
type RetryConfig struct {
	MaxRetries   int              `yaml:"max_retries"`
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay time.Duration    `yaml:"initial_delay"`
	MaxDelay     time.Duration    `yaml:"max_delay"`
}

// NotifyConfig controls new-revision notifications. An empty NATSURL
// disables publishing. With KVBucket set the latest revision of every
// material is also kept in that JetStream key-value bucket.
type NotifyConfig struct {
	NATSURL  string `yaml:"nats_url"`
	Subject  string `yaml:"subject"`
	KVBucket string `yaml:"kv_bucket,omitempty"`
}

// Enabled reports whether notifications are configured.
func (n NotifyConfig) Enabled() bool { return n.NATSURL != "" }

// Load reads configPath, expanding ${VAR} references from the environment
// (after .env files are loaded), then applies defaults and validates.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found: " + configPath).
				WithContext("path", configPath).
				UserAction().
				Build()
		}
		return nil, errors.FileSystemError("failed to read config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes a configuration document. Environment references are
// expanded before decoding.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.ConfigError("failed to unmarshal config").
			WithCause(err).
			Build()
	}
	if cfg.Version != CurrentVersion {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported configuration version: %q (expected %s)", cfg.Version, CurrentVersion)).
			UserAction().
			Build()
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Material returns the material named name.
func (c *Config) Material(name string) (*Material, bool) {
	for i := range c.Materials {
		if c.Materials[i].Name == name {
			return &c.Materials[i], true
		}
	}
	return nil, false
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	recursive := true
	example := Config{
		Version:   CurrentVersion,
		Workspace: "./work",
		Backend:   BackendCommand,
		GitBinary: "git",
		Materials: []Material{
			{
				Name:                     "app",
				URL:                      "https://github.com/example/app.git",
				Username:                 "bot",
				Password:                 "${GIT_PASSWORD}",
				Branch:                   "main",
				Paths:                    []string{"src/", "docs/"},
				RecursiveSubmoduleUpdate: &recursive,
				ShallowClone:             &ShallowCloneConfig{DefaultDepth: 2, AdditionalDepth: 100},
			},
		},
		Daemon: DaemonConfig{
			Interval: time.Minute,
			HTTPAddr: ":9464",
			StateDB:  "./gitpath.db",
			Retry: RetryConfig{
				MaxRetries:   2,
				Backoff:      RetryBackoffLinear,
				InitialDelay: time.Second,
				MaxDelay:     30 * time.Second,
			},
		},
		Notify: NotifyConfig{Subject: "gitpath.revisions"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
