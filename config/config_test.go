package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "entry url with host",
			mutate:  func(c *Config) { c.EntryURL = "https://example.test/catalog" },
			wantErr: false,
		},
		{
			name:    "entry url without host",
			mutate:  func(c *Config) { c.EntryURL = "/catalog" },
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: true,
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.DiscoveryDelay = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero discovery timeout",
			mutate:  func(c *Config) { c.DiscoveryTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "zero extraction timeout",
			mutate:  func(c *Config) { c.ExtractionTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "zero dedupe size",
			mutate:  func(c *Config) { c.DedupeMaxSize = 0 },
			wantErr: true,
		},
		{
			name:    "empty output file",
			mutate:  func(c *Config) { c.OutputFile = "" },
			wantErr: true,
		},
		{
			name:    "empty user agent",
			mutate:  func(c *Config) { c.UserAgent = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	if _, err := NewViper(filepath.Join(t.TempDir(), "missing-on-purpose")); err == nil {
		t.Fatalf("expected error for explicit missing config file")
	}

	v, err := NewViper("")
	if err != nil {
		t.Fatalf("new viper: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := DefaultConfig()
	if cfg.Concurrency != want.Concurrency {
		t.Errorf("concurrency = %d, want %d", cfg.Concurrency, want.Concurrency)
	}
	if cfg.DiscoveryDelay != want.DiscoveryDelay {
		t.Errorf("discovery delay = %v, want %v", cfg.DiscoveryDelay, want.DiscoveryDelay)
	}
	if cfg.OutputFile != want.OutputFile {
		t.Errorf("output file = %q, want %q", cfg.OutputFile, want.OutputFile)
	}
}

func TestLoadOverrides(t *testing.T) {
	v, err := NewViper("")
	if err != nil {
		t.Fatalf("new viper: %v", err)
	}
	v.Set("concurrency", 3)
	v.Set("discovery.delay", "250ms")
	v.Set("extraction.timeout", "5s")
	v.Set("output_file", "out/test.json")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("concurrency = %d, want 3", cfg.Concurrency)
	}
	if cfg.DiscoveryDelay != 250*time.Millisecond {
		t.Errorf("discovery delay = %v, want 250ms", cfg.DiscoveryDelay)
	}
	if cfg.ExtractionTimeout != 5*time.Second {
		t.Errorf("extraction timeout = %v, want 5s", cfg.ExtractionTimeout)
	}
	if cfg.OutputFile != "out/test.json" {
		t.Errorf("output file = %q, want out/test.json", cfg.OutputFile)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	v, err := NewViper("")
	if err != nil {
		t.Fatalf("new viper: %v", err)
	}
	v.Set("concurrency", -1)

	if _, err := Load(v); err == nil {
		t.Fatalf("expected validation error for negative concurrency")
	}
}
