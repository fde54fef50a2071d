// internal/config/config.go
//
// This package handles configuration and the .forge directory structure.
// Every project that runs forge gets a .forge/ folder holding the session
// log, exported policy bundles, and config.yaml.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ForgeDir is the directory created in each project root.
	ForgeDir = ".forge"

	defaultBackendURL  = "http://127.0.0.1:8712"
	defaultListenHost  = "127.0.0.1"
	defaultListenPort  = 8712
	defaultTimeoutSecs = 120
	defaultModel       = "gpt-4o"
)

const defaultProjectConfigYAML = `# policy forge configuration
version: 1

# Where the forge TUI reaches the generation backend.
backend:
  url: http://127.0.0.1:8712
  timeout_seconds: 120

# Where forged (the generation backend) listens.
listen:
  host: 127.0.0.1
  port: 8712

# LLM settings used by forged. The API key is read from OPENAI_API_KEY; when
# it is absent forged falls back to the scripted offline client.
llm:
  model: gpt-4o
  base_url: ""

# Exported policy bundles are written here, relative to the project root.
output_dir: .forge/output
`

// BackendConfig locates the generation backend from the TUI side.
type BackendConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ListenConfig configures the forged HTTP listener.
type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig configures the model forged generates with.
type LLMConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// ProjectConfig models .forge/config.yaml.
type ProjectConfig struct {
	Version   int           `yaml:"version"`
	Backend   BackendConfig `yaml:"backend"`
	Listen    ListenConfig  `yaml:"listen"`
	LLM       LLMConfig     `yaml:"llm"`
	OutputDir string        `yaml:"output_dir"`
}

// Config holds the resolved runtime configuration.
type Config struct {
	// ProjectDir is the directory the user ran forge from.
	ProjectDir string
	// ForgeProjectDir is ProjectDir/.forge.
	ForgeProjectDir string

	Project ProjectConfig
}

// InitForgeDir creates the .forge directory structure and materializes the
// default config.yaml when none exists.
func InitForgeDir(projectDir string) error {
	forgeDir := filepath.Join(projectDir, ForgeDir)
	dirs := []string{
		filepath.Join(forgeDir, "logs"),
		filepath.Join(forgeDir, "output"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(forgeDir, "config.yaml"))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write default config: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:   1,
		Backend:   BackendConfig{URL: defaultBackendURL, TimeoutSeconds: defaultTimeoutSecs},
		Listen:    ListenConfig{Host: defaultListenHost, Port: defaultListenPort},
		LLM:       LLMConfig{Model: defaultModel},
		OutputDir: filepath.Join(ForgeDir, "output"),
	}
}

// NewConfig loads the project configuration, applying env overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:      projectDir,
		ForgeProjectDir: filepath.Join(projectDir, ForgeDir),
		Project:         defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) loadProjectConfig() error {
	path := filepath.Join(c.ForgeProjectDir, "config.yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if parsed.Backend.URL == "" {
		parsed.Backend.URL = defaultBackendURL
	}
	if parsed.Backend.TimeoutSeconds <= 0 {
		parsed.Backend.TimeoutSeconds = defaultTimeoutSecs
	}
	if parsed.Listen.Host == "" {
		parsed.Listen.Host = defaultListenHost
	}
	if parsed.Listen.Port <= 0 {
		parsed.Listen.Port = defaultListenPort
	}
	if parsed.LLM.Model == "" {
		parsed.LLM.Model = defaultModel
	}
	if parsed.OutputDir == "" {
		parsed.OutputDir = filepath.Join(ForgeDir, "output")
	}
	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := strings.TrimSpace(os.Getenv("FORGE_BACKEND_URL")); url != "" {
		c.Project.Backend.URL = url
	}
	if dir := strings.TrimSpace(os.Getenv("FORGE_OUTPUT_DIR")); dir != "" {
		c.Project.OutputDir = dir
	}
	if port := strings.TrimSpace(os.Getenv("FORGE_LISTEN_PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil && parsed > 0 {
			c.Project.Listen.Port = parsed
		}
	}
	if model := strings.TrimSpace(os.Getenv("FORGE_LLM_MODEL")); model != "" {
		c.Project.LLM.Model = model
	}
}

// LogsDir returns the session log directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.ForgeProjectDir, "logs")
}

// SessionLogPath returns the logbook path.
func (c *Config) SessionLogPath() string {
	return filepath.Join(c.LogsDir(), "session.log")
}

// OutputDir returns the absolute export directory.
func (c *Config) OutputDir() string {
	if filepath.IsAbs(c.Project.OutputDir) {
		return c.Project.OutputDir
	}
	return filepath.Join(c.ProjectDir, c.Project.OutputDir)
}

// BackendURL returns the generation backend base URL.
func (c *Config) BackendURL() string {
	return c.Project.Backend.URL
}

// ListenAddr returns the forged listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Project.Listen.Host, c.Project.Listen.Port)
}
