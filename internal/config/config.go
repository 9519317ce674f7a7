package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for EventMind.
type Config struct {
	General GeneralConfig `json:"general"`
	Line    LineConfig    `json:"line"`
	Agent   AgentConfig   `json:"agent"`
	Memory  MemoryConfig  `json:"memory"`
	Metrics MetricsConfig `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel              string `json:"logLevel"`
	MaxConcurrentMessages int    `json:"maxConcurrentMessages"`
	Timezone              string `json:"timezone"`
}

// LineConfig configures the LINE Messaging API channel. Secrets are
// normally referenced as ${LINE_CHANNEL_SECRET} style env placeholders.
type LineConfig struct {
	ChannelSecret      string `json:"channelSecret"`
	ChannelAccessToken string `json:"channelAccessToken"`
	Port               int    `json:"port"`
	WebhookPath        string `json:"webhookPath,omitempty"`
}

// AgentConfig configures the Gemini agent runtime.
type AgentConfig struct {
	AppName       string `json:"appName"`
	Model         string `json:"model"`
	APIKey        string `json:"apiKey"`
	ProfilePath   string `json:"profilePath,omitempty"` // optional YAML profile override
	MaxToolRounds int    `json:"maxToolRounds"`
}

type MemoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.eventmind).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".eventmind"
	}
	return filepath.Join(home, ".eventmind")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Memory.DBPath = ExpandPath(cfg.Memory.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks structural values. Secret presence is checked separately
// by ValidateSecrets so read-only commands can load a secretless config.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}
	if cfg.Line.Port < 0 || cfg.Line.Port > 65535 {
		errs = append(errs, "line.port must be between 0 and 65535")
	}
	if cfg.Agent.MaxToolRounds < 1 || cfg.Agent.MaxToolRounds > 50 {
		errs = append(errs, "agent.maxToolRounds must be between 1 and 50")
	}
	if cfg.Agent.AppName == "" {
		errs = append(errs, "agent.appName must not be empty")
	}
	if cfg.Memory.Enabled && cfg.Memory.DBPath == "" {
		errs = append(errs, "memory.dbPath is required when memory.enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateSecrets fails when a required secret is absent or its env
// placeholder was left unexpanded. serve refuses to start on error.
func ValidateSecrets(cfg *Config) error {
	var missing []string

	check := func(name, value string) {
		if value == "" || strings.HasPrefix(value, "${") {
			missing = append(missing, name)
		}
	}
	check("line.channelSecret (LINE_CHANNEL_SECRET)", cfg.Line.ChannelSecret)
	check("line.channelAccessToken (LINE_CHANNEL_ACCESS_TOKEN)", cfg.Line.ChannelAccessToken)
	check("agent.apiKey (GEMINI_API_KEY)", cfg.Agent.APIKey)

	if len(missing) > 0 {
		return fmt.Errorf("missing required secrets:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
