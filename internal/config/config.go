// Package config loads and saves webpilot configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lmercat/webpilot/internal/logging"
)

// LLMConfig selects and configures the language model backend.
type LLMConfig struct {
	Provider    string  `json:"provider"` // "openai" or "anthropic"
	Model       string  `json:"model"`
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// AgentConfig bounds the orchestrator loop.
type AgentConfig struct {
	MaxSteps       int `json:"max_steps"`
	TokenThreshold int `json:"token_threshold"`
	KeepTurns      int `json:"keep_turns"`
}

// BrowserConfig controls browser session behavior.
type BrowserConfig struct {
	Headless     bool   `json:"headless"`
	ChromePath   string `json:"chrome_path,omitempty"`
	ProxyURL     string `json:"proxy_url,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	WindowWidth  int    `json:"window_width,omitempty"`
	WindowHeight int    `json:"window_height,omitempty"`
	NavRetries   int    `json:"nav_retries,omitempty"`
}

// CaptchaConfig configures the external solving service and local OCR.
type CaptchaConfig struct {
	ServiceURL    string `json:"service_url,omitempty"`
	ServiceAPIKey string `json:"service_api_key,omitempty"`
	TesseractPath string `json:"tesseract_path,omitempty"`
	MaxAttempts   int    `json:"max_attempts,omitempty"`
}

// Config is the root configuration loaded from webpilot.json.
type Config struct {
	LLM      LLMConfig     `json:"llm"`
	Agent    AgentConfig   `json:"agent"`
	Browser  BrowserConfig `json:"browser"`
	Captcha  CaptchaConfig `json:"captcha"`
	DataDir  string        `json:"data_dir,omitempty"`
	LogLevel string        `json:"log_level,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			MaxTokens: 4096,
		},
		Agent: AgentConfig{
			MaxSteps:       20,
			TokenThreshold: 50000,
			KeepTurns:      1,
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
			NavRetries:   3,
		},
		Captcha: CaptchaConfig{
			MaxAttempts: 3,
		},
	}
}

// Dir returns the webpilot config directory, ~/.webpilot by default.
// WEBPILOT_DIR overrides it.
func Dir() string {
	if d := os.Getenv("WEBPILOT_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".webpilot"
	}
	return filepath.Join(home, ".webpilot")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(Dir(), "webpilot.json")
}

// Load reads webpilot.json, applying defaults for missing fields and
// environment overrides on top. A missing file is not an error; the
// defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path())
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", Path(), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", Path(), err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(Dir(), "data")
	}
	return cfg, nil
}

// Save writes the config back to webpilot.json, creating the directory
// if needed.
func Save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(Path(), data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", Path(), err)
	}
	logging.L_info("config saved", "path", Path())
	return nil
}

func applyEnv(cfg *Config) {
	switch cfg.LLM.Provider {
	case "anthropic":
		if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
			cfg.LLM.APIKey = k
		}
	default:
		if k := os.Getenv("OPENAI_API_KEY"); k != "" {
			cfg.LLM.APIKey = k
		}
	}
	if k := os.Getenv("CAPTCHA_SERVICE_API_KEY"); k != "" {
		cfg.Captcha.ServiceAPIKey = k
	}
	if p := os.Getenv("WEBPILOT_PROXY"); p != "" {
		cfg.Browser.ProxyURL = p
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Agent.MaxSteps <= 0 {
		cfg.Agent.MaxSteps = def.Agent.MaxSteps
	}
	if cfg.Agent.TokenThreshold <= 0 {
		cfg.Agent.TokenThreshold = def.Agent.TokenThreshold
	}
	if cfg.Agent.KeepTurns <= 0 {
		cfg.Agent.KeepTurns = def.Agent.KeepTurns
	}
	if cfg.Browser.NavRetries <= 0 {
		cfg.Browser.NavRetries = def.Browser.NavRetries
	}
	if cfg.Browser.WindowWidth <= 0 {
		cfg.Browser.WindowWidth = def.Browser.WindowWidth
	}
	if cfg.Browser.WindowHeight <= 0 {
		cfg.Browser.WindowHeight = def.Browser.WindowHeight
	}
	if cfg.Captcha.MaxAttempts <= 0 {
		cfg.Captcha.MaxAttempts = def.Captcha.MaxAttempts
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
}

// LogLevelValue maps the config string to a logging level constant.
func (c *Config) LogLevelValue() int {
	switch c.LogLevel {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
