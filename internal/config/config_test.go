package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Pipeline.DispatchThreshold != 7 {
		t.Errorf("expected dispatch threshold 7, got %d", cfg.Pipeline.DispatchThreshold)
	}
	if cfg.Pipeline.RetentionDays != 21 {
		t.Errorf("expected retention 21 days, got %d", cfg.Pipeline.RetentionDays)
	}
	if cfg.Pipeline.SweepBatchSize != 400 {
		t.Errorf("expected sweep batch 400, got %d", cfg.Pipeline.SweepBatchSize)
	}
	if cfg.Pipeline.DedupPrefixLen != 100 {
		t.Errorf("expected dedup prefix 100, got %d", cfg.Pipeline.DedupPrefixLen)
	}
	if cfg.Scoring.Provider != "ollama" {
		t.Errorf("expected ollama default, got %q", cfg.Scoring.Provider)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := parse([]byte(`
scoring:
  provider: openai
  openai_model: gpt-4o
pipeline:
  dispatch_threshold: 8
  retention_days: 30
digest:
  enabled: true
  recipients:
    - owner@example.com
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Scoring.Provider != "openai" || cfg.Scoring.OpenAIModel != "gpt-4o" {
		t.Errorf("unexpected scoring config: %+v", cfg.Scoring)
	}
	if cfg.Pipeline.DispatchThreshold != 8 || cfg.Pipeline.RetentionDays != 30 {
		t.Errorf("unexpected pipeline config: %+v", cfg.Pipeline)
	}
	// Untouched defaults survive a partial override.
	if cfg.Pipeline.SweepBatchSize != 400 {
		t.Errorf("expected default sweep batch to survive, got %d", cfg.Pipeline.SweepBatchSize)
	}
	if !cfg.Digest.Enabled || len(cfg.Digest.Recipients) != 1 {
		t.Errorf("unexpected digest config: %+v", cfg.Digest)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := parse([]byte("scoring: [not a map")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestDefaultConfigParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("embedded default config failed to parse: %v", err)
	}
	if cfg.Pipeline.DispatchThreshold != 7 {
		t.Errorf("unexpected threshold in embedded default: %d", cfg.Pipeline.DispatchThreshold)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}

	got, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("expected %q, got %q", path, got)
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected XDG default data dir")
	}

	cfg.Output.DataDir = "/tmp/custom"
	if cfg.GetDataDir() != "/tmp/custom" {
		t.Errorf("expected configured dir, got %q", cfg.GetDataDir())
	}
}
