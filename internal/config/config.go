// Package config provides YAML-based configuration loading for Scrumkit.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Scrumkit configuration, loaded from scrumkit.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Notify    NotifyConfig    `yaml:"notify"`
	GitHub    GitHubConfig    `yaml:"github"`
	Retention RetentionConfig `yaml:"retention"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP listener and the event stream endpoint.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	AppURL            string        `yaml:"app_url"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	StreamBuffer      int           `yaml:"stream_buffer"`
}

// DatabaseConfig selects and configures the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite only
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// APIKey resolves the API key from the configured environment variable.
func (c LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// NotifyConfig holds chat webhooks that generated reports can be shared to.
type NotifyConfig struct {
	SlackWebhookURL   string `yaml:"slack_webhook_url"`
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
}

// GitHubConfig identifies the repository action items are exported to.
type GitHubConfig struct {
	Owner    string   `yaml:"owner"`
	Repo     string   `yaml:"repo"`
	TokenEnv string   `yaml:"token_env"`
	Labels   []string `yaml:"labels"`
}

// Enabled reports whether an export target is configured.
func (c GitHubConfig) Enabled() bool {
	return c.Owner != "" && c.Repo != ""
}

// Token resolves the GitHub token from the configured environment variable.
func (c GitHubConfig) Token() string {
	if c.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.TokenEnv)
}

// RetentionConfig controls the purge of old completed sessions.
type RetentionConfig struct {
	Schedule string        `yaml:"schedule"` // 5-field cron expression; empty disables
	MaxAge   time.Duration `yaml:"max_age"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied, for
// running without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.AppURL == "" {
		c.Server.AppURL = "http://localhost:3000"
	}
	c.Server.AppURL = strings.TrimRight(c.Server.AppURL, "/")
	if c.Server.HeartbeatInterval == 0 {
		c.Server.HeartbeatInterval = 30 * time.Second
	}
	if c.Server.StreamBuffer == 0 {
		c.Server.StreamBuffer = 64
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "scrumkit"
	}
	if c.Database.Path == "" {
		c.Database.Path = "scrumkit.db"
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com"
	}
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2000
	}

	if c.GitHub.TokenEnv == "" {
		c.GitHub.TokenEnv = "GITHUB_TOKEN"
	}
	if c.GitHub.Labels == nil {
		c.GitHub.Labels = []string{"retrospective"}
	}

	if c.Retention.MaxAge == 0 {
		c.Retention.MaxAge = 90 * 24 * time.Hour
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.HeartbeatInterval < 0 {
		errs = append(errs, "server.heartbeat_interval must be positive")
	}
	if c.Server.StreamBuffer < 0 {
		errs = append(errs, "server.stream_buffer must be positive")
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, "llm.timeout must be positive")
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, "llm.max_tokens must be positive")
	}
	if (c.GitHub.Owner == "") != (c.GitHub.Repo == "") {
		errs = append(errs, "github.owner and github.repo must be set together")
	}
	if c.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(c.Retention.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("retention.schedule %q: %v", c.Retention.Schedule, err))
		}
	}
	if c.Retention.MaxAge < 0 {
		errs = append(errs, "retention.max_age must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be debug, info, warn, or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
