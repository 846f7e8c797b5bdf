// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simverse/riversim/internal/engine"
)

// Config holds everything the server and bot commands need to wire up.
// Secrets (telegram token, OpenAI key) stay in the environment.
type Config struct {
	ServerPort          string `yaml:"port"`
	DatabasePath        string `yaml:"databasePath"`
	CampaignDays        int    `yaml:"campaignDays"`
	ObservationURL      string `yaml:"observationURL"`
	ObservationSchedule string `yaml:"observationSchedule"`
	PurgeSchedule       string `yaml:"purgeSchedule"`
	SessionTTLHours     int    `yaml:"sessionTTLHours"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ServerPort:          "8080",
		DatabasePath:        "", // repository picks data/riversim.db
		CampaignDays:        engine.CampaignDays,
		ObservationURL:      "", // scraper picks its default bulletin
		ObservationSchedule: "0 * * * *",
		PurgeSchedule:       "30 * * * *",
		SessionTTLHours:     72,
	}
}

// Load reads the configuration file at path, or the defaults when path is
// empty, and applies environment overrides either way.
func Load(path string) (*Config, error) {
	conf := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(content, conf); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	if v := os.Getenv("RIVERSIM_PORT"); v != "" {
		conf.ServerPort = v
	}
	if v := os.Getenv("RIVERSIM_DB_PATH"); v != "" {
		conf.DatabasePath = v
	}
	if v := os.Getenv("RIVERSIM_OBSERVATION_URL"); v != "" {
		conf.ObservationURL = v
	}

	if conf.CampaignDays <= 0 {
		return nil, fmt.Errorf("campaignDays must be positive, got %d", conf.CampaignDays)
	}
	if conf.SessionTTLHours <= 0 {
		return nil, fmt.Errorf("sessionTTLHours must be positive, got %d", conf.SessionTTLHours)
	}
	return conf, nil
}
