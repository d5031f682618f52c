package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return dir
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChunkSize != 5000 || cfg.WindowSize != 350 {
		t.Errorf("defaults = chunk %d window %d", cfg.ChunkSize, cfg.WindowSize)
	}
	if cfg.TargetLang != "en" || cfg.DefaultLang != "cs" {
		t.Errorf("defaults = target %q default %q", cfg.TargetLang, cfg.DefaultLang)
	}
	if cfg.ConfidenceThreshold != 0.4 {
		t.Errorf("default threshold = %v", cfg.ConfidenceThreshold)
	}
}

func TestLoad_Overrides(t *testing.T) {
	dir := writeConfig(t, `
chunk_size: 1000
target_lang: de
confidence_threshold: 0.6
rules:
  - tag: poznamka
    namespace: amcr
  - tag: popis
    attribute: note
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChunkSize != 1000 {
		t.Errorf("chunk_size = %d", cfg.ChunkSize)
	}
	if cfg.TargetLang != "de" {
		t.Errorf("target_lang = %q", cfg.TargetLang)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("confidence_threshold = %v", cfg.ConfidenceThreshold)
	}
	// Unset keys keep their defaults.
	if cfg.WindowSize != 350 || cfg.DefaultLang != "cs" {
		t.Errorf("defaults lost: window %d default %q", cfg.WindowSize, cfg.DefaultLang)
	}
	if len(cfg.Rules) != 2 || cfg.Rules[0].Namespace != "amcr" || cfg.Rules[1].Attribute != "note" {
		t.Errorf("rules = %+v", cfg.Rules)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []string{
		"chunk_size: -1",
		"window_size: -5",
		"confidence_threshold: 1.5",
		"rules:\n  - namespace: amcr",
	}
	for _, content := range cases {
		dir := writeConfig(t, content)
		if _, err := Load(dir); err == nil {
			t.Errorf("expected validation error for %q", content)
		}
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := writeConfig(t, ":\n\t- not yaml")
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}
