package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	DB        DatabaseConfig
	Redis     RedisConfig
	App       AppConfig
	Auth      AuthConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Weather   WeatherConfig
	Webhook   WebhookConfig
	Logger    LoggerConfig
}

// DatabaseConfig holds configuration for the database
type DatabaseConfig struct {
	Driver              string `mapstructure:"DB_DRIVER"` // postgres or sqlite
	Host                string `mapstructure:"DB_HOST"`
	Port                string `mapstructure:"DB_PORT"`
	User                string `mapstructure:"DB_USER"`
	Password            string `mapstructure:"DB_PASSWORD"`
	Name                string `mapstructure:"DB_NAME"`
	SSLMode             string `mapstructure:"DB_SSLMODE"`
	SQLitePath          string `mapstructure:"DB_SQLITE_PATH"`
	MaxOpenConns        int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns        int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime     int    `mapstructure:"DB_CONN_MAX_LIFETIME_SECONDS"`
	ConnMaxIdleTime     int    `mapstructure:"DB_CONN_MAX_IDLE_TIME_SECONDS"`
	StoreTimeoutSeconds int    `mapstructure:"STORE_TIMEOUT_SECONDS"`
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
	CacheTTL    int    `mapstructure:"REDIS_CACHE_TTL_SECONDS"`
}

// AppConfig holds configuration for the application server
type AppConfig struct {
	GRPCPort               string `mapstructure:"GRPC_PORT"`
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
	Environment            string `mapstructure:"APP_ENV"`
}

// AuthConfig holds configuration for bearer tokens
type AuthConfig struct {
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	JWTAlgorithm             string `mapstructure:"JWT_ALGORITHM"`
	AccessTokenExpireMinutes int    `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
}

// PasswordConfig holds Argon2id cost parameters
type PasswordConfig struct {
	MemoryKiB  int `mapstructure:"PASSWORD_ARGON_MEMORY_KIB"`
	Iterations int `mapstructure:"PASSWORD_ARGON_ITERATIONS"`
	Threads    int `mapstructure:"PASSWORD_ARGON_THREADS"`
}

// RateLimitConfig holds configuration for the token bucket shared by HTTP and gRPC
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_RPS"`
	BurstCapacity     int     `mapstructure:"RATE_LIMIT_BURST"`
	WindowSeconds     int     `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`
}

// WeatherConfig holds configuration for the weather proxy
type WeatherConfig struct {
	BaseURL         string `mapstructure:"WEATHER_BASE_URL"`
	APIKey          string `mapstructure:"WEATHER_API_KEY"`
	CacheTTLSeconds int    `mapstructure:"WEATHER_CACHE_TTL_SECONDS"`
	TimeoutSeconds  int    `mapstructure:"WEATHER_TIMEOUT_SECONDS"`
}

// WebhookConfig holds configuration for the webhook receiver
type WebhookConfig struct {
	Secret          string `mapstructure:"WEBHOOK_SECRET"`
	DedupTTLSeconds int    `mapstructure:"WEBHOOK_DEDUP_TTL_SECONDS"`
	MaxBodyBytes    int64  `mapstructure:"WEBHOOK_MAX_BODY_BYTES"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL"`
	Format           string  `mapstructure:"LOG_FORMAT"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv() // Read from environment variables

	// Defaults depend on APP_ENV, so env must be bound first
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	var config Config

	// Manually populate config from viper
	config.DB.Driver = v.GetString("DB_DRIVER")
	config.DB.Host = v.GetString("DB_HOST")
	config.DB.Port = v.GetString("DB_PORT")
	config.DB.User = v.GetString("DB_USER")
	config.DB.Password = v.GetString("DB_PASSWORD")
	config.DB.Name = v.GetString("DB_NAME")
	config.DB.SSLMode = v.GetString("DB_SSLMODE")
	config.DB.SQLitePath = v.GetString("DB_SQLITE_PATH")
	config.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.DB.ConnMaxLifetime = v.GetInt("DB_CONN_MAX_LIFETIME_SECONDS")
	config.DB.ConnMaxIdleTime = v.GetInt("DB_CONN_MAX_IDLE_TIME_SECONDS")
	config.DB.StoreTimeoutSeconds = v.GetInt("STORE_TIMEOUT_SECONDS")

	config.Redis.Host = v.GetString("REDIS_HOST")
	config.Redis.Port = v.GetString("REDIS_PORT")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.MaxRetries = v.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = v.GetInt("REDIS_MIN_IDLE_CONN")
	config.Redis.CacheTTL = v.GetInt("REDIS_CACHE_TTL_SECONDS")

	config.App.GRPCPort = v.GetString("GRPC_PORT")
	config.App.HTTPPort = v.GetString("HTTP_PORT")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")
	config.App.Environment = v.GetString("APP_ENV")

	config.Auth.JWTSecret = v.GetString("JWT_SECRET")
	config.Auth.JWTAlgorithm = v.GetString("JWT_ALGORITHM")
	config.Auth.AccessTokenExpireMinutes = v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES")

	config.Password.MemoryKiB = v.GetInt("PASSWORD_ARGON_MEMORY_KIB")
	config.Password.Iterations = v.GetInt("PASSWORD_ARGON_ITERATIONS")
	config.Password.Threads = v.GetInt("PASSWORD_ARGON_THREADS")

	config.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	config.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	config.RateLimit.BurstCapacity = v.GetInt("RATE_LIMIT_BURST")
	config.RateLimit.WindowSeconds = v.GetInt("RATE_LIMIT_WINDOW_SECONDS")

	config.Weather.BaseURL = v.GetString("WEATHER_BASE_URL")
	config.Weather.APIKey = v.GetString("WEATHER_API_KEY")
	config.Weather.CacheTTLSeconds = v.GetInt("WEATHER_CACHE_TTL_SECONDS")
	config.Weather.TimeoutSeconds = v.GetInt("WEATHER_TIMEOUT_SECONDS")

	config.Webhook.Secret = v.GetString("WEBHOOK_SECRET")
	config.Webhook.DedupTTLSeconds = v.GetInt("WEBHOOK_DEDUP_TTL_SECONDS")
	config.Webhook.MaxBodyBytes = v.GetInt64("WEBHOOK_MAX_BODY_BYTES")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "user_auth_service")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "user_auth_service.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)
	v.SetDefault("STORE_TIMEOUT_SECONDS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 2)
	v.SetDefault("REDIS_CACHE_TTL_SECONDS", 300)

	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)

	v.SetDefault("PASSWORD_ARGON_MEMORY_KIB", 64*1024)
	v.SetDefault("PASSWORD_ARGON_ITERATIONS", 1)
	v.SetDefault("PASSWORD_ARGON_THREADS", 4)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	v.SetDefault("WEATHER_BASE_URL", "https://api.openweathermap.org")
	v.SetDefault("WEATHER_API_KEY", "")
	v.SetDefault("WEATHER_CACHE_TTL_SECONDS", 300)
	v.SetDefault("WEATHER_TIMEOUT_SECONDS", 5)

	v.SetDefault("WEBHOOK_SECRET", defaultWebhookSecret)
	v.SetDefault("WEBHOOK_DEDUP_TTL_SECONDS", 24*60*60)
	v.SetDefault("WEBHOOK_MAX_BODY_BYTES", 1<<20)

	// Logger defaults
	env := v.GetString("APP_ENV")
	if env == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("SERVICE_NAME", "user-auth-service")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

const (
	// minProductionSecretLength is the shortest JWT secret accepted in production.
	minProductionSecretLength = 32

	// defaultWebhookSecret only suits local development.
	defaultWebhookSecret = "webhook-secret"
)

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.Name == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for the postgres driver"))
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			errs = append(errs, errors.New("DB_SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver))
	}
	if c.DB.StoreTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT_SECONDS must be positive"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.App.Environment == "production" && len(c.Auth.JWTSecret) < minProductionSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLength))
	}
	switch strings.ToUpper(c.Auth.JWTAlgorithm) {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported JWT_ALGORITHM %q", c.Auth.JWTAlgorithm))
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}

	if c.Password.MemoryKiB < 8*c.Password.Threads || c.Password.Iterations <= 0 || c.Password.Threads <= 0 || c.Password.Threads > 255 {
		errs = append(errs, errors.New("invalid PASSWORD_ARGON_* parameters"))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstCapacity <= 0 || c.RateLimit.WindowSeconds <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS, RATE_LIMIT_BURST and RATE_LIMIT_WINDOW_SECONDS must be positive"))
	}

	if c.Webhook.Secret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required"))
	} else if c.App.Environment == "production" && c.Webhook.Secret == defaultWebhookSecret {
		errs = append(errs, errors.New("WEBHOOK_SECRET must be changed from the default in production"))
	}

	return errors.Join(errs...)
}

// DSN returns the PostgreSQL Data Source Name
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}
