package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Oracle   OracleConfig   `yaml:"oracle" mapstructure:"oracle"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Places   PlacesConfig   `yaml:"places" mapstructure:"places"`
	Listings ListingsConfig `yaml:"listings" mapstructure:"listings"`
	Contact  ContactConfig  `yaml:"contact" mapstructure:"contact"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OracleConfig holds Anthropic API settings for the generative oracle.
type OracleConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	Model      string `yaml:"model" mapstructure:"model"`
	JudgeModel string `yaml:"judge_model" mapstructure:"judge_model"`
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeocodeConfig configures the address standardization client.
type GeocodeConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Region      string  `yaml:"region" mapstructure:"region"`
}

// SearchConfig configures the web search client.
type SearchConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
}

// PlacesConfig configures the candidate discovery provider.
type PlacesConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	MaxPages    int    `yaml:"max_pages" mapstructure:"max_pages"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ListingsConfig configures the structured attribute source.
type ListingsConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ContactConfig configures the contact resolution engine.
type ContactConfig struct {
	GatherSecondary bool     `yaml:"gather_secondary" mapstructure:"gather_secondary"`
	ListingDomains  []string `yaml:"listing_domains" mapstructure:"listing_domains"`
	CacheTTLHours   int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentBuildings int `yaml:"max_concurrent_buildings" mapstructure:"max_concurrent_buildings"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_buildings", 5)
	v.SetDefault("oracle.model", "claude-haiku-4-5-20251001")
	v.SetDefault("oracle.judge_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("oracle.max_tokens", 1024)
	v.SetDefault("geocode.base_url", "https://geocoding.geo.census.gov")
	v.SetDefault("geocode.rate_limit", 10)
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.region", "NY")
	v.SetDefault("search.base_url", "https://s.jina.ai")
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("search.retries", 2)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.max_pages", 3)
	v.SetDefault("places.timeout_secs", 30)
	v.SetDefault("listings.timeout_secs", 15)
	v.SetDefault("contact.gather_secondary", true)
	v.SetDefault("contact.cache_ttl_hours", 24)
	v.SetDefault("contact.listing_domains", []string{
		"apartments.com", "zillow.com", "streeteasy.com", "rent.com",
	})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
