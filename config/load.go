package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Viper keys understood by Load.
const (
	keyEntryURL          = "entry_url"
	keyConcurrency       = "concurrency"
	keyDiscoveryDelay    = "discovery.delay"
	keyDiscoveryTimeout  = "discovery.timeout"
	keyExtractionTimeout = "extraction.timeout"
	keyDedupeMaxSize     = "discovery.dedupe_max_size"
	keyOutputFile        = "output_file"
	keyUserAgent         = "user_agent"
	keyMetricsAddr       = "metrics_addr"
	keyVerbose           = "verbose"
)

// NewViper builds a viper instance with defaults, env binding
// (HARVESTER_-prefixed, dots become underscores) and an optional config file.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(keyEntryURL, defaults.EntryURL)
	v.SetDefault(keyConcurrency, defaults.Concurrency)
	v.SetDefault(keyDiscoveryDelay, defaults.DiscoveryDelay)
	v.SetDefault(keyDiscoveryTimeout, defaults.DiscoveryTimeout)
	v.SetDefault(keyExtractionTimeout, defaults.ExtractionTimeout)
	v.SetDefault(keyDedupeMaxSize, defaults.DedupeMaxSize)
	v.SetDefault(keyOutputFile, defaults.OutputFile)
	v.SetDefault(keyUserAgent, defaults.UserAgent)
	v.SetDefault(keyMetricsAddr, defaults.MetricsAddr)
	v.SetDefault(keyVerbose, defaults.Verbose)

	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("harvester")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.harvester")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	return v, nil
}

// Load materializes a Config from a prepared viper instance.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		EntryURL:          v.GetString(keyEntryURL),
		Concurrency:       v.GetInt(keyConcurrency),
		DiscoveryDelay:    v.GetDuration(keyDiscoveryDelay),
		DiscoveryTimeout:  v.GetDuration(keyDiscoveryTimeout),
		ExtractionTimeout: v.GetDuration(keyExtractionTimeout),
		DedupeMaxSize:     v.GetInt(keyDedupeMaxSize),
		OutputFile:        v.GetString(keyOutputFile),
		UserAgent:         v.GetString(keyUserAgent),
		MetricsAddr:       v.GetString(keyMetricsAddr),
		Verbose:           v.GetBool(keyVerbose),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
