package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Auth configuration for bearer token verification
	Auth AuthConfig `mapstructure:"auth"`

	// External AI inference service
	AI AIConfig `mapstructure:"ai"`

	// HubSpot CRM sync
	HubSpot HubSpotConfig `mapstructure:"hubspot"`

	// Asynchronous event delivery
	Events EventsConfig `mapstructure:"events"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Distributed tracing
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	CORSOrigin   string `mapstructure:"cors_origin"`

	// DemoRateLimit is the number of public demo requests one client IP may send per minute
	DemoRateLimit int `mapstructure:"demo_rate_limit"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// AuthConfig holds the identity provider's token verification settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Audience  string `mapstructure:"audience"`
}

// AIConfig holds settings for the denial-risk and appeal-letter service
type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HubSpotConfig holds CRM settings
type HubSpotConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	AccessToken string `mapstructure:"access_token"`
}

// EventsConfig holds event bus settings
type EventsConfig struct {
	BufferSize      int    `mapstructure:"buffer_size"`
	Workers         int    `mapstructure:"workers"`
	AMQPURL         string `mapstructure:"amqp_url"`
	Exchange        string `mapstructure:"exchange"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// TracingConfig holds OpenTelemetry settings. An empty endpoint keeps spans in process.
type TracingConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/clarityclaim")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Enable environment variable support
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 90)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.demo_rate_limit", 5)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "clarityclaim")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("auth.audience", "authenticated")

	v.SetDefault("ai.timeout_seconds", 60)

	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")

	v.SetDefault("events.buffer_size", 256)
	v.SetDefault("events.workers", 2)
	v.SetDefault("events.exchange", "clarityclaim.events")
	v.SetDefault("events.shutdown_timeout", 10)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.health_path", "/health")

	v.SetDefault("tracing.environment", "production")
	v.SetDefault("tracing.sampling_rate", 1.0)

	// Logging defaults
	v.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with the conventional platform variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}

	if secret := os.Getenv("SUPABASE_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if key := os.Getenv("AI_API_KEY"); key != "" {
		config.AI.APIKey = key
	}

	if url := os.Getenv("AI_SERVICE_URL"); url != "" {
		config.AI.BaseURL = url
	}

	if token := os.Getenv("HUBSPOT_ACCESS_TOKEN"); token != "" {
		config.HubSpot.AccessToken = token
	}

	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		config.Server.CORSOrigin = origin
	}

	if endpoint := os.Getenv("JAEGER_ENDPOINT"); endpoint != "" {
		config.Tracing.JaegerEndpoint = endpoint
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Database.URL == "" && config.Database.Password == "" {
		return fmt.Errorf("database URL or password is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Tracing.SamplingRate < 0 || config.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing sampling rate must be between 0 and 1")
	}

	if config.Server.DemoRateLimit <= 0 {
		return fmt.Errorf("demo rate limit must be positive")
	}

	if config.Events.BufferSize <= 0 {
		return fmt.Errorf("events buffer size must be positive")
	}

	if config.Events.Workers <= 0 {
		return fmt.Errorf("events workers must be positive")
	}

	return nil
}
