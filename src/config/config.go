// Package config provides configuration management for the slipway tools.
// Everything is read from environment variables; only the Jenkins URL is
// mandatory, the broker and database integrations switch on when their
// variables are present.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	// JenkinsURL is the base URL of the Jenkins server to drive.
	JenkinsURL string
	// JenkinsUser and JenkinsAPIToken configure basic auth. Both empty
	// means anonymous access.
	JenkinsUser     string
	JenkinsAPIToken string
	// Brokers lists Kafka/Redpanda seed brokers for build event publishing.
	// Empty disables publishing.
	Brokers []string
	// PostgresDSN enables the build-history store when set.
	PostgresDSN string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	jenkinsURL := os.Getenv("JENKINS_URL")
	if jenkinsURL == "" {
		return nil, fmt.Errorf("JENKINS_URL environment variable is required")
	}

	cfg := &Config{
		JenkinsURL:      jenkinsURL,
		JenkinsUser:     os.Getenv("JENKINS_USER"),
		JenkinsAPIToken: os.Getenv("JENKINS_API_TOKEN"),
		PostgresDSN:     os.Getenv("SLIPWAY_DB_DSN"),
	}

	if brokers := os.Getenv("SLIPWAY_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Brokers = append(cfg.Brokers, b)
			}
		}
	}

	if cfg.JenkinsUser == "" && cfg.JenkinsAPIToken != "" {
		return nil, fmt.Errorf("JENKINS_API_TOKEN is set but JENKINS_USER is empty")
	}

	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics
// on error. Useful in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
