package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`

	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`

	// Gateway is the execution bridge that performs platform side effects.
	Gateway struct {
		URL       string   `mapstructure:"url"`
		Platforms []string `mapstructure:"platforms"`
	} `mapstructure:"gateway"`

	// Collaborators are the external analysis services the pipeline calls.
	Collaborators struct {
		ExtractionURL string `mapstructure:"extraction_url"`
		SynthesisURL  string `mapstructure:"synthesis_url"`
		VisionURL     string `mapstructure:"vision_url"`
		ScoutURL      string `mapstructure:"scout_url"`
	} `mapstructure:"collaborators"`

	Graph struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"graph"`

	Heartbeat struct {
		Interval       time.Duration `mapstructure:"interval"`
		MaxConcurrency int           `mapstructure:"max_concurrency"`
	} `mapstructure:"heartbeat"`

	Learner struct {
		PriorConfidence    float64 `mapstructure:"prior_confidence"`
		MinSamples         int     `mapstructure:"min_samples"`
		SaturationHalfLife float64 `mapstructure:"saturation_half_life"`
	} `mapstructure:"learner"`

	Auth struct {
		OktaDomain   string `mapstructure:"okta_domain"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"auth"`

	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env still make a
		// runnable configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Auth.OktaDomain = normalizeIssuer(config.Auth.OktaDomain)

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "dev")
	viper.SetDefault("dev_mode_bypass", true)
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("gateway.url", "http://localhost:3001")
	viper.SetDefault("gateway.platforms", []string{"twitter", "reddit", "instagram"})
	viper.SetDefault("heartbeat.interval", 30*time.Minute)
	viper.SetDefault("heartbeat.max_concurrency", 4)
	viper.SetDefault("learner.prior_confidence", 0.5)
	viper.SetDefault("learner.min_samples", 3)
	viper.SetDefault("learner.saturation_half_life", 5.0)
}

// normalizeIssuer ensures the provided OIDC issuer string is in a
// predictable form. It removes any trailing slash and leaves the scheme and
// path intact, so the full URL from the admin console can be pasted as-is.
func normalizeIssuer(input string) string {
	iss := strings.TrimSpace(input)
	if strings.HasSuffix(iss, "/") {
		iss = strings.TrimRight(iss, "/")
	}
	return iss
}
