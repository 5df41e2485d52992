// internal/config/config.go
//
// This package handles configuration and the .ghactions directory structure.
// Every project that uses ghactions gets a .ghactions/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DotDir is the name of the directory we create in each project
	DotDir = ".ghactions"

	defaultWorkflowsDir = ".github/workflows"
)

const defaultProjectConfigYAML = `# ghactions project configuration
version: 1

workflows:
  # Directory scanned by lint and inspect. Relative paths resolve against
  # the project root.
  dir: .github/workflows

bridge:
  enabled: true
  host: 127.0.0.1
  port: 8320
  # Name of the environment variable holding the webhook shared secret.
  # Leave empty to accept unsigned deliveries (local development only).
  secret_env: GHACTIONS_WEBHOOK_SECRET

lint:
  # Rule identifiers to disable, e.g. [unpinned-uses]
  disable: []
`

// WorkflowsConfig locates the workflow files the tools operate on.
type WorkflowsConfig struct {
	Dir string `yaml:"dir"`
}

// BridgeConfig configures the local webhook receiver.
type BridgeConfig struct {
	Enabled   *bool  `yaml:"enabled,omitempty"`
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port,omitempty"`
	SecretEnv string `yaml:"secret_env,omitempty"`
}

// LintConfig carries lint preferences.
type LintConfig struct {
	Disable []string `yaml:"disable,omitempty"`
}

// ProjectConfig models .ghactions/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Workflows WorkflowsConfig `yaml:"workflows"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Lint      LintConfig      `yaml:"lint"`
}

// Config holds the runtime configuration for the toolkit.
type Config struct {
	// ProjectDir is the directory where the user ran `ghactions` from
	ProjectDir string

	// ProjectDotDir is ProjectDir/.ghactions
	ProjectDotDir string

	Project ProjectConfig
}

// InitDotDir creates the .ghactions directory structure in the given project
// directory.
//
// Structure created:
// .ghactions/
// ├── logs/        <- tool activity log
// └── deliveries/  <- webhook payloads captured by the bridge
func InitDotDir(projectDir string) error {
	dotDir := filepath.Join(projectDir, DotDir)
	dirs := []string{
		filepath.Join(dotDir, "logs"),
		filepath.Join(dotDir, "deliveries"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(dotDir, "config.yaml"))
}

// NewConfig creates a Config populated from .ghactions/config.yaml when it
// exists, defaults otherwise.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:    projectDir,
		ProjectDotDir: filepath.Join(projectDir, DotDir),
		Project:       defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ProjectDotDir, "logs")
}

// DeliveriesDir returns where the bridge stores captured payloads
func (c *Config) DeliveriesDir() string {
	return filepath.Join(c.ProjectDotDir, "deliveries")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ProjectDotDir, "config.yaml")
}

// WorkflowsDir returns the configured workflow directory, resolved against
// the project root when relative.
func (c *Config) WorkflowsDir() string {
	dir := strings.TrimSpace(c.Project.Workflows.Dir)
	if dir == "" {
		dir = defaultWorkflowsDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Clean(filepath.Join(c.ProjectDir, dir))
}

// DisabledLintRules returns the lint rules the project switched off.
func (c *Config) DisabledLintRules() []string {
	return c.Project.Lint.Disable
}

// BridgeSecret resolves the webhook shared secret from the configured
// environment variable. An empty result means unsigned deliveries are
// accepted.
func (c *Config) BridgeSecret() string {
	name := strings.TrimSpace(c.Project.Bridge.SecretEnv)
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// SetWorkflowsDir updates the workflow directory and persists the value back
// to .ghactions/config.yaml.
func (c *Config) SetWorkflowsDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("config: workflows dir is required")
	}
	c.Project.Workflows.Dir = dir
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Workflows: WorkflowsConfig{
			Dir: defaultWorkflowsDir,
		},
		Bridge: BridgeConfig{
			SecretEnv: "GHACTIONS_WEBHOOK_SECRET",
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Workflows.Dir) == "" {
		pc.Workflows.Dir = defaultWorkflowsDir
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Workflows.Dir = strings.TrimSpace(pc.Workflows.Dir)
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	pc.Bridge.SecretEnv = strings.TrimSpace(pc.Bridge.SecretEnv)
	cleaned := pc.Lint.Disable[:0]
	for _, rule := range pc.Lint.Disable {
		rule = strings.TrimSpace(rule)
		if rule != "" {
			cleaned = append(cleaned, rule)
		}
	}
	pc.Lint.Disable = cleaned
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Bridge.Port < 0 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port must be between 0 and 65535")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.ProjectDotDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure project dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
