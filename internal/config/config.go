package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/jsonc"
)

// FileName is the config file inside the workspace directory.
const FileName = "config.json"

// APIKeyEnv names the environment variable holding the generator credential.
const APIKeyEnv = "OPENAI_API_KEY"

// LedgerFile is the run ledger database inside the workspace directory.
const LedgerFile = "ideaforge.db"

// Config holds application configuration.
type Config struct {
	// ProjectsDir is the projects root, relative to the workspace unless absolute.
	ProjectsDir string `json:"projects_dir"`

	// IdeasFile is the idea store path, relative to the workspace unless absolute.
	IdeasFile string `json:"ideas_file"`

	// Blacklist adds keywords to the built-in idea blacklist.
	Blacklist []string `json:"blacklist,omitempty"`

	// Model is the chat completions model name.
	Model string `json:"model"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `json:"base_url"`

	// TimeoutSeconds bounds each generator call.
	TimeoutSeconds int `json:"timeout_seconds"`

	// Schedule is the 5-field cron expression the daemon runs the pipeline on.
	Schedule string `json:"schedule"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// LogLevel is a logrus level name ("debug", "info", "warn", ...).
	LogLevel string `json:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ProjectsDir:    "projects",
		IdeasFile:      "ideas.json",
		Model:          "gpt-4o-mini",
		BaseURL:        "https://api.openai.com/v1",
		TimeoutSeconds: 120,
		Schedule:       "0 6 * * *",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load loads configuration from workspace/config.json merged over the
// defaults. A missing file yields the defaults. Comments and trailing commas
// are accepted.
func Load(workspace string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(workspace, FileName))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.ProjectsDir = firstNonEmpty(overlay.ProjectsDir, base.ProjectsDir)
	result.IdeasFile = firstNonEmpty(overlay.IdeasFile, base.IdeasFile)
	result.Model = firstNonEmpty(overlay.Model, base.Model)
	result.BaseURL = firstNonEmpty(overlay.BaseURL, base.BaseURL)
	result.Schedule = firstNonEmpty(overlay.Schedule, base.Schedule)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstNonEmpty(overlay.LogFormat, base.LogFormat)

	result.TimeoutSeconds = overlay.TimeoutSeconds
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = base.TimeoutSeconds
	}

	result.Blacklist = mergeStringSlice(base.Blacklist, overlay.Blacklist)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// Validate reports the first invalid setting as an error.
func (c *Config) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds)
	}
	if c.Schedule != "" {
		if _, err := ParseSchedule(c.Schedule); err != nil {
			return fmt.Errorf("schedule %q: %w", c.Schedule, err)
		}
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

// ParseSchedule parses a standard 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Timeout returns the generator call timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ProjectsPath resolves ProjectsDir against workspace.
func (c *Config) ProjectsPath(workspace string) string {
	return resolve(workspace, c.ProjectsDir)
}

// IdeasPath resolves IdeasFile against workspace.
func (c *Config) IdeasPath(workspace string) string {
	return resolve(workspace, c.IdeasFile)
}

// LedgerPath returns the run ledger database path for workspace.
func LedgerPath(workspace string) string {
	return filepath.Join(workspace, LedgerFile)
}

// LoadEnv loads workspace/.env into the process environment without
// overriding variables that are already set. A missing file is fine.
func LoadEnv(workspace string) error {
	path := filepath.Join(workspace, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// APIKey returns the generator credential from the environment, or "".
func APIKey() string {
	return strings.TrimSpace(os.Getenv(APIKeyEnv))
}

func resolve(workspace, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspace, p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
