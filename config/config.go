package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Risk    RiskConfig    `mapstructure:"risk"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	StreamEnabled   bool          `mapstructure:"stream_enabled"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Configuration for the pricing engine. A zero seed draws a random one per run.
type PricingConfig struct {
	MonteCarloSteps int    `mapstructure:"monte_carlo_steps"`
	MonteCarloPaths int    `mapstructure:"monte_carlo_paths"`
	Workers         int    `mapstructure:"workers"`
	Seed            uint64 `mapstructure:"seed"`
}

// Configuration for risk calculations
type RiskConfig struct {
	VaRConfidenceLevel float64 `mapstructure:"var_confidence_level"`
	VaRPaths           int     `mapstructure:"var_paths"`
	VaRMethod          string  `mapstructure:"var_method"`
	Workers            int     `mapstructure:"workers"`
}

// Configuration for the event publisher
type KafkaConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Brokers         []string      `mapstructure:"brokers"`
	ValuationsTopic string        `mapstructure:"valuations_topic"`
	RiskTopic       string        `mapstructure:"risk_topic"`
	RequiredAcks    string        `mapstructure:"required_acks"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// Configuration for metrics
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Interval   time.Duration    `mapstructure:"interval"`
}

// Configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads .env, the config file at GetConfigPath and OPTRISK_* variables
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads the configuration from path, which may not exist, plus .env
// and the environment. Environment variables win over the file.
func LoadFrom(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if _, err := os.Stat(path); path != "" && err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("OPTRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks that every setting is within range
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative, got %v", c.API.RateLimit)
	}
	if c.Pricing.MonteCarloSteps <= 0 {
		return fmt.Errorf("pricing.monte_carlo_steps must be positive, got %d", c.Pricing.MonteCarloSteps)
	}
	if c.Pricing.MonteCarloPaths <= 0 {
		return fmt.Errorf("pricing.monte_carlo_paths must be positive, got %d", c.Pricing.MonteCarloPaths)
	}
	if c.Risk.VaRConfidenceLevel <= 0 || c.Risk.VaRConfidenceLevel >= 1 {
		return fmt.Errorf("risk.var_confidence_level must be in (0, 1), got %v", c.Risk.VaRConfidenceLevel)
	}
	if c.Risk.VaRPaths <= 0 {
		return fmt.Errorf("risk.var_paths must be positive, got %d", c.Risk.VaRPaths)
	}
	switch c.Risk.VaRMethod {
	case "repricing", "full_revaluation":
	default:
		return fmt.Errorf("risk.var_method must be repricing or full_revaluation, got %q", c.Risk.VaRMethod)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Metrics.Prometheus.Enabled && (c.Metrics.Prometheus.Port <= 0 || c.Metrics.Prometheus.Port > 65535) {
		return fmt.Errorf("metrics.prometheus.port out of range: %d", c.Metrics.Prometheus.Port)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "options-risk-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.rate_burst", 20)
	v.SetDefault("api.stream_enabled", true)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type"})

	// Pricing defaults
	v.SetDefault("pricing.monte_carlo_steps", 50)
	v.SetDefault("pricing.monte_carlo_paths", 10000)
	v.SetDefault("pricing.workers", 0)
	v.SetDefault("pricing.seed", 0)

	// Risk defaults
	v.SetDefault("risk.var_confidence_level", 0.95)
	v.SetDefault("risk.var_paths", 10000)
	v.SetDefault("risk.var_method", "repricing")
	v.SetDefault("risk.workers", 4)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.valuations_topic", "option-valuations")
	v.SetDefault("kafka.risk_topic", "portfolio-risk")
	v.SetDefault("kafka.required_acks", "one")
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.write_timeout", "5s")

	// Metrics defaults
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.port", 9090)
	v.SetDefault("metrics.interval", "15s")
}

// GetConfigPath returns OPTRISK_CONFIG_PATH or the default config location
func GetConfigPath() string {
	configPath := os.Getenv("OPTRISK_CONFIG_PATH")
	if configPath != "" {
		return configPath
	}

	return "./config/config.yaml"
}
