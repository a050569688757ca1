// Package config holds harvest run configuration.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the knobs for one harvest run.
type Config struct {
	EntryURL          string        // optional override of the site adapter's entry page
	Concurrency       int           // extraction admission cap
	DiscoveryDelay    time.Duration // politeness delay between category fetches
	DiscoveryTimeout  time.Duration // per-request timeout during discovery
	ExtractionTimeout time.Duration // per-request timeout during extraction
	DedupeMaxSize     int           // capacity of the discovery seen-set
	OutputFile        string
	UserAgent         string
	MetricsAddr       string
	Verbose           bool
}

// DefaultConfig returns conservative defaults. Extraction pages are large, so
// their timeout sits well above the discovery one.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:       20,
		DiscoveryDelay:    500 * time.Millisecond,
		DiscoveryTimeout:  15 * time.Second,
		ExtractionTimeout: 60 * time.Second,
		DedupeMaxSize:     100_000,
		OutputFile:        "output/catalog.json",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		MetricsAddr:       "",
		Verbose:           false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.EntryURL != "" {
		parsed, err := url.Parse(c.EntryURL)
		if err != nil {
			return fmt.Errorf("invalid entry URL: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("entry URL must include a host")
		}
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.DiscoveryDelay < 0 {
		return fmt.Errorf("discovery delay cannot be negative")
	}
	if c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("discovery timeout must be positive")
	}
	if c.ExtractionTimeout <= 0 {
		return fmt.Errorf("extraction timeout must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}
