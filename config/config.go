package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Lykdat   LykdatConfig
	Vision   VisionConfig
	Gemini   GeminiConfig
	Fetch    FetchConfig
	Pipeline PipelineConfig
	Locale   LocaleConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
}

// LykdatConfig holds Lykdat API configuration (deep tagging + global search)
type LykdatConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	TagTimeout    time.Duration `mapstructure:"tag_timeout"`
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
}

// VisionConfig holds Google Vision OCR configuration
type VisionConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GeminiConfig holds Gemini text-generation configuration.
// The key is optional: without it, structuring degrades and explanations
// use the template fallback.
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FetchConfig holds product-page fetcher configuration
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	MaxChars  int           `mapstructure:"max_chars"`
}

// PipelineConfig holds aggregation pipeline configuration
type PipelineConfig struct {
	MaxWorkers      int `mapstructure:"max_workers"`
	MaxAlternatives int `mapstructure:"max_alternatives"`
}

// LocaleConfig holds the locale-bias reordering policy
type LocaleConfig struct {
	PreferredCurrency string   `mapstructure:"preferred_currency"`
	PreferredDomains  []string `mapstructure:"preferred_domains"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ecoscan/")

	// Environment variable settings
	v.SetEnvPrefix("ECOSCAN")
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.log_level", "info")

	// Lykdat defaults
	v.SetDefault("lykdat.base_url", "https://cloudapi.lykdat.com")
	v.SetDefault("lykdat.tag_timeout", "15s")
	v.SetDefault("lykdat.search_timeout", "20s")

	// Vision defaults
	v.SetDefault("vision.base_url", "https://vision.googleapis.com")
	v.SetDefault("vision.timeout", "15s")

	// Gemini defaults
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", "30s")

	// Fetch defaults
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.user_agent", "EcoScan/1.0")
	v.SetDefault("fetch.max_chars", 15000)

	// Pipeline defaults
	v.SetDefault("pipeline.max_workers", 4)
	v.SetDefault("pipeline.max_alternatives", 10)

	// Locale defaults
	v.SetDefault("locale.preferred_currency", "USD")
	v.SetDefault("locale.preferred_domains", []string{})
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Lykdat.APIKey == "" {
		return fmt.Errorf("Lykdat API key is required (set ECOSCAN_LYKDAT_API_KEY)")
	}

	if config.Vision.APIKey == "" {
		return fmt.Errorf("Vision API key is required (set ECOSCAN_VISION_API_KEY)")
	}

	if config.Pipeline.MaxWorkers < 1 {
		return fmt.Errorf("pipeline max_workers must be >= 1, got: %d", config.Pipeline.MaxWorkers)
	}

	if config.Pipeline.MaxAlternatives < 0 {
		return fmt.Errorf("pipeline max_alternatives must be >= 0, got: %d", config.Pipeline.MaxAlternatives)
	}

	return nil
}
