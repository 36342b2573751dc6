package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"AWS_REGION", "AWS_DEFAULT_REGION", "AWS_PROFILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaults(t *testing.T) {
	cfg := defaults()
	if cfg.Preferred != ProviderAnthropic {
		t.Errorf("preferred = %s, want anthropic", cfg.Preferred)
	}
	if cfg.Agent.Mode != ModePrompt {
		t.Errorf("mode = %s, want prompt", cfg.Agent.Mode)
	}
	if cfg.Agent.MaxSteps != DefaultMaxSteps {
		t.Errorf("max steps = %d, want %d", cfg.Agent.MaxSteps, DefaultMaxSteps)
	}
}

func TestHasCredentials(t *testing.T) {
	clearProviderEnv(t)

	cfg := defaults()
	for _, id := range []ProviderID{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderBedrock} {
		if cfg.HasCredentials(id) {
			t.Errorf("HasCredentials(%s) = true with no credentials anywhere", id)
		}
	}
	if cfg.HasCredentials("unknown") {
		t.Error("HasCredentials should be false for unknown providers")
	}

	cfg.Providers = map[ProviderID]Provider{
		ProviderOpenAI:  {APIKey: "sk-test"},
		ProviderBedrock: {Region: "us-west-2"},
	}
	if !cfg.HasCredentials(ProviderOpenAI) {
		t.Error("config api_key should satisfy HasCredentials")
	}
	if !cfg.HasCredentials(ProviderBedrock) {
		t.Error("config region should satisfy bedrock HasCredentials")
	}

	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	if !cfg.HasCredentials(ProviderAnthropic) {
		t.Error("environment key should satisfy HasCredentials")
	}
}

func TestGetToolsetFallback(t *testing.T) {
	cfg := defaults()

	ts, err := cfg.GetToolset("")
	if err != nil {
		t.Fatalf("GetToolset: %v", err)
	}
	if ts.Name != "default" || len(ts.Tools) == 0 {
		t.Errorf("built-in default toolset = %+v", ts)
	}

	cfg.Toolsets = []Toolset{{Name: "readonly", Tools: []string{"read_file"}}}
	ts, err = cfg.GetToolset("readonly")
	if err != nil {
		t.Fatalf("GetToolset: %v", err)
	}
	if ts.Name != "readonly" {
		t.Errorf("toolset = %+v, want readonly", ts)
	}

	// Unknown names fall back to default.
	ts, err = cfg.GetToolset("missing")
	if err != nil {
		t.Fatalf("GetToolset: %v", err)
	}
	if ts.Name != "default" {
		t.Errorf("fallback toolset = %+v, want default", ts)
	}
}

func TestLoadMergesProjectOverUser(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	userDir := filepath.Join(home, ".supercmd")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	userYAML := "preferred: openai\nagent:\n  mode: auto\n  max_steps: 5\n"
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(userYAML), 0644); err != nil {
		t.Fatal(err)
	}

	projectDir := filepath.Join(project, ".supercmd")
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatal(err)
	}
	projectYAML := "preferred: gemini\n"
	if err := os.WriteFile(filepath.Join(projectDir, "config.yaml"), []byte(projectYAML), 0644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(project); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Preferred != ProviderGemini {
		t.Errorf("preferred = %s, want gemini (project wins)", cfg.Preferred)
	}
	if cfg.Agent.Mode != ModeAuto || cfg.Agent.MaxSteps != 5 {
		t.Errorf("agent settings = %+v, want user-level values preserved", cfg.Agent)
	}
}
