package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Scoring  Scoring  `yaml:"scoring"`
	Mail     Mail     `yaml:"mail"`
	Pipeline Pipeline `yaml:"pipeline"`
	Digest   Digest   `yaml:"digest"`
	Server   Server   `yaml:"server"`
	Output   Output   `yaml:"output"`
}

// Scoring selects and configures the inference provider.
type Scoring struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

// Mail configures the outbound alert transport.
type Mail struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	From      string `yaml:"from"`
}

// Pipeline holds the change-detection and delivery policy knobs.
type Pipeline struct {
	DispatchThreshold int `yaml:"dispatch_threshold"`
	RetentionDays     int `yaml:"retention_days"`
	SweepBatchSize    int `yaml:"sweep_batch_size"`
	DedupPrefixLen    int `yaml:"dedup_prefix_len"`
	ExtractMaxChars   int `yaml:"extract_max_chars"`
	PeekTimeoutSec    int `yaml:"peek_timeout_seconds"`
	ExtractTimeoutSec int `yaml:"extract_timeout_seconds"`
	ScoreTimeoutSec   int `yaml:"score_timeout_seconds"`
	CycleHours        int `yaml:"cycle_hours"`
}

// Digest configures the weekly digest job.
type Digest struct {
	Enabled      bool     `yaml:"enabled"`
	Recipients   []string `yaml:"recipients"`
	LookbackDays int      `yaml:"lookback_days"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for civicsignal.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "civicsignal")
}

// DataDir returns the XDG data directory for civicsignal.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "civicsignal")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/civicsignal/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'civicsignal init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults first.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Scoring: Scoring{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   1024,
		},
		Mail: Mail{
			BaseURL:   "https://api.resend.com",
			APIKeyEnv: "RESEND_API_KEY",
			From:      "CivicSignal <alerts@localhost>",
		},
		Pipeline: Pipeline{
			DispatchThreshold: 7,
			RetentionDays:     21,
			SweepBatchSize:    400,
			DedupPrefixLen:    100,
			ExtractMaxChars:   45000,
			PeekTimeoutSec:    45,
			ExtractTimeoutSec: 60,
			ScoreTimeoutSec:   120,
			CycleHours:        6,
		},
		Digest: Digest{
			LookbackDays: 7,
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
