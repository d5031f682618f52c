// Package config — .atrium.yaml configuration file support.
//
// When a .atrium.yaml file exists in the working directory, its values
// become the run defaults; command-line flags still override them. Backend
// limits (chunk budget, reading-order window) live here because they are
// service-specific, not properties of the engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/K4TEL/atrium-translator/doctree"
)

// FileName is the default config file name.
const FileName = ".atrium.yaml"

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .atrium.yaml structure.
type Config struct {
	// BackendURL is the translation service root (default: the public
	// Lindat endpoint).
	BackendURL string `yaml:"backend_url,omitempty"`
	// ChunkSize is the per-request payload budget in bytes (default 5000).
	ChunkSize int `yaml:"chunk_size,omitempty"`
	// WindowSize bounds the boxes per reading-order inference (default 350).
	WindowSize int `yaml:"window_size,omitempty"`
	// SourceLang forces the source language; empty means detect.
	SourceLang string `yaml:"source_lang,omitempty"`
	// TargetLang is the translation target (default "en").
	TargetLang string `yaml:"target_lang,omitempty"`
	// DefaultLang substitutes for low-confidence detections (default "cs").
	DefaultLang string `yaml:"default_lang,omitempty"`
	// ConfidenceThreshold gates language detection, inclusive (default 0.4).
	ConfidenceThreshold float64 `yaml:"confidence_threshold,omitempty"`
	// Concurrency is the number of parallel unit workers per document and
	// parallel documents in batch mode (default 4).
	Concurrency int `yaml:"concurrency,omitempty"`
	// MaxRetries bounds backend retries per chunk (default 3).
	MaxRetries int `yaml:"max_retries,omitempty"`
	// ReorderModel is the path to an ONNX reading-order model; empty
	// selects the geometric fallback.
	ReorderModel string `yaml:"reorder_model,omitempty"`
	// OnnxruntimeLib is the onnxruntime shared-library path, when the
	// platform default does not resolve.
	OnnxruntimeLib string `yaml:"onnxruntime_lib,omitempty"`
	// Rules are the path-match rules for generic record XML.
	Rules []doctree.Rule `yaml:"rules,omitempty"`
	// NamespaceHint is a substring used to discover the record namespace
	// URI when rules omit one (default "amcr").
	NamespaceHint string `yaml:"namespace_hint,omitempty"`
	// NamespaceFallback is the URI assumed when discovery finds nothing.
	NamespaceFallback string `yaml:"namespace_fallback,omitempty"`
	// CSVLog is the QA log path; empty disables it.
	CSVLog string `yaml:"csv_log,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ChunkSize:           5000,
		WindowSize:          350,
		TargetLang:          "en",
		DefaultLang:         "cs",
		ConfidenceThreshold: 0.4,
		Concurrency:         4,
		MaxRetries:          3,
		NamespaceHint:       "amcr",
		NamespaceFallback:   "http://amcr.aiscr.cz/ns/amcr",
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .atrium.yaml from dir, layered over the defaults. A missing
// file is not an error: the defaults are returned as-is.
func Load(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the numeric limits and rule shapes.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", c.WindowSize)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.TargetLang == "" {
		return fmt.Errorf("target_lang must not be empty")
	}
	for i, r := range c.Rules {
		if r.Tag == "" {
			return fmt.Errorf("rules[%d]: tag must not be empty", i)
		}
	}
	return nil
}
