package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("WEBPILOT_DIR", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.MaxSteps != 20 {
		t.Errorf("max steps = %d, want 20", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.TokenThreshold != 50000 {
		t.Errorf("token threshold = %d, want 50000", cfg.Agent.TokenThreshold)
	}
	if cfg.Agent.KeepTurns != 1 {
		t.Errorf("keep turns = %d, want 1", cfg.Agent.KeepTurns)
	}
	if cfg.Browser.NavRetries != 3 {
		t.Errorf("nav retries = %d, want 3", cfg.Browser.NavRetries)
	}
	if cfg.DataDir == "" {
		t.Error("data dir not defaulted")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WEBPILOT_DIR", dir)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("CAPTCHA_SERVICE_API_KEY", "cap-key")

	body := `{
		"llm": {"provider": "openai", "model": "gpt-4.1"},
		"agent": {"max_steps": 5},
		"browser": {"headless": false}
	}`
	if err := os.WriteFile(filepath.Join(dir, "webpilot.json"), []byte(body), 0o600); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4.1" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("api key = %q, want env override", cfg.LLM.APIKey)
	}
	if cfg.Captcha.ServiceAPIKey != "cap-key" {
		t.Errorf("captcha key = %q", cfg.Captcha.ServiceAPIKey)
	}
	if cfg.Agent.MaxSteps != 5 {
		t.Errorf("max steps = %d, want 5 from file", cfg.Agent.MaxSteps)
	}
	// fields the file omits fall back to defaults
	if cfg.Agent.TokenThreshold != 50000 {
		t.Errorf("token threshold = %d, want default", cfg.Agent.TokenThreshold)
	}
	if cfg.Browser.Headless {
		t.Error("headless should be false from file")
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WEBPILOT_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, "webpilot.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("WEBPILOT_DIR", t.TempDir())

	cfg := Default()
	cfg.LLM.Model = "custom-model"
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.LLM.Model != "custom-model" {
		t.Errorf("model = %q after round trip", loaded.LLM.Model)
	}
}
