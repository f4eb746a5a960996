package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains every configuration section the gateway reads at boot.
type Config struct {
	Database DatabaseConfig
	Server ServerConfig
	Auth AuthConfig
	ObjectStore ObjectStoreConfig
	Worker WorkerConfig
	Wallet WalletConfig
	RateLimit RateLimitConfig
	Logging LoggingConfig
	Webhook WebhookConfig
	Admission AdmissionConfig
}

// AdmissionConfig selects how the Admission Pipeline invokes the named
// remote procedures (check_subscription_limits, deduct_wallet_balance,
// increment_subscription_usage, calculate_topup_bonus). When RPCBaseURL is
// empty the pipeline calls them in-process against the row store; when set,
// it calls out over HTTP to an external procedure host instead.
type AdmissionConfig struct {
	RPCBaseURL string
	RPCTimeout time.Duration
}

// DatabaseConfig configures the row store.
type DatabaseConfig struct {
	Host string
	Port int
	Name string
	User string
	Password string
	SSLMode string
	URL string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string
	Port int
	Environment string
	ReadTimeout time.Duration
	WriteTimeout time.Duration
	IdleTimeout time.Duration
}

// AuthConfig configures dashboard/admin authentication.
type AuthConfig struct {
	AdminAPIKey string
}

// ObjectStoreConfig configures the Object Store Adapter. It backs a single
// private bucket that mirrors every session's auth directory.
type ObjectStoreConfig struct {
	Enabled bool
	Endpoint string
	Region string
	Bucket string
	AccessKey string
	SecretKey string
	PathStyle bool
	MaxObjectSizeMiB int64
}

// WorkerConfig configures the Browser Worker Interface and the Session
// Supervisor's initialization/readiness policy.
type WorkerConfig struct {
	AuthBaseDir string // local filesystem root for per-session device state
	Timeout time.Duration
	ReconnectInterval time.Duration
	QRCodeTimeout time.Duration
	RestoreDeadline time.Duration // restoration path deadline before marked disconnected
	FreshConnectTimeout time.Duration // new-session "stuck initializing" deadline
	ReadinessPollEvery time.Duration
	ReadinessPollFor time.Duration
}

// WalletConfig carries the prepaid-wallet constants.
type WalletConfig struct {
	CostPerMessageIQD int64
	InitialBalanceIQD int64
}

// RateLimitConfig carries the default per-user rate limit triple, used when
// a user has no row in rate_limit_settings.
type RateLimitConfig struct {
	DefaultPerMinute int
	DefaultPerHour int
	DefaultPerDay int
}

// WebhookConfig configures the Fan-out Engine's HTTP client and default
// retry policy (overridable per subscription).
type WebhookConfig struct {
	Timeout time.Duration
	DefaultMaxRetries int
	DefaultRetryDelay time.Duration
}

type LoggingConfig struct {
	Level string
	Pretty bool
}

// Load reads configuration from the environment, falling back to an
// optional.env file for local development.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host: getEnv("POSTGRES_HOST", "localhost"),
			Port: getEnvAsInt("POSTGRES_PORT", 5432),
			Name: getEnv("POSTGRES_DB", "wagateway"),
			User: getEnv("POSTGRES_USER", "wagateway"),
			Password: getEnv("POSTGRES_PASSWORD", "wagateway"),
			SSLMode: getEnv("POSTGRES_SSLMODE", "disable"),
			URL: getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 50),
			MaxIdleConns: getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 15*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			ReadTimeout: getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout: getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			AdminAPIKey: getEnv("ADMIN_API_KEY", "admin_secret_key"),
		},
		ObjectStore: ObjectStoreConfig{
			Enabled: getEnvAsBool("OBJECT_STORE_ENABLED", true),
			Endpoint: getEnv("OBJECT_STORE_ENDPOINT", ""),
			Region: getEnv("OBJECT_STORE_REGION", "us-east-1"),
			Bucket: getEnv("OBJECT_STORE_BUCKET", "whatsapp-sessions"),
			AccessKey: getEnv("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("OBJECT_STORE_SECRET_KEY", ""),
			PathStyle: getEnvAsBool("OBJECT_STORE_PATH_STYLE", true),
			MaxObjectSizeMiB: int64(getEnvAsInt("OBJECT_STORE_MAX_OBJECT_MIB", 10)),
		},
		Worker: WorkerConfig{
			AuthBaseDir: getEnv("WORKER_AUTH_BASE_DIR", "./data/sessions"),
			Timeout: getEnvAsDuration("WORKER_TIMEOUT", 30*time.Second),
			ReconnectInterval: getEnvAsDuration("WORKER_RECONNECT_INTERVAL", 5*time.Second),
			QRCodeTimeout: getEnvAsDuration("QR_CODE_TIMEOUT", 60*time.Second),
			RestoreDeadline: getEnvAsDuration("WORKER_RESTORE_DEADLINE", 120*time.Second),
			FreshConnectTimeout: getEnvAsDuration("WORKER_FRESH_CONNECT_TIMEOUT", 5*time.Minute),
			ReadinessPollEvery: getEnvAsDuration("WORKER_READINESS_POLL_EVERY", 500*time.Millisecond),
			ReadinessPollFor: getEnvAsDuration("WORKER_READINESS_POLL_FOR", 15*time.Second),
		},
		Wallet: WalletConfig{
			CostPerMessageIQD: int64(getEnvAsInt("WALLET_COST_PER_MESSAGE_IQD", 10)),
			InitialBalanceIQD: int64(getEnvAsInt("WALLET_INITIAL_BALANCE_IQD", 1000)),
		},
		RateLimit: RateLimitConfig{
			DefaultPerMinute: getEnvAsInt("RATE_LIMIT_DEFAULT_PER_MINUTE", 10),
			DefaultPerHour: getEnvAsInt("RATE_LIMIT_DEFAULT_PER_HOUR", 100),
			DefaultPerDay: getEnvAsInt("RATE_LIMIT_DEFAULT_PER_DAY", 1000),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", true),
		},
		Webhook: WebhookConfig{
			Timeout: getEnvAsDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			DefaultMaxRetries: getEnvAsInt("WEBHOOK_DEFAULT_MAX_RETRIES", 3),
			DefaultRetryDelay: getEnvAsDuration("WEBHOOK_DEFAULT_RETRY_DELAY", 5*time.Second),
		},
		Admission: AdmissionConfig{
			RPCBaseURL: getEnv("ADMISSION_RPC_BASE_URL", ""),
			RPCTimeout: getEnvAsDuration("ADMISSION_RPC_TIMEOUT", 5*time.Second),
		},
	}

	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	return config, nil
}

// Validate checks the settings that must be present for the process to run.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Auth.AdminAPIKey == "" {
		return fmt.Errorf("admin API key is required")
	}
	if c.Wallet.CostPerMessageIQD <= 0 {
		return fmt.Errorf("wallet cost per message must be positive")
	}
	if c.ObjectStore.Enabled && c.ObjectStore.Bucket == "" {
		return fmt.Errorf("object store bucket is required when object store is enabled")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, fmt.Sprintf("%d", c.Server.Port))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string, separator string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, separator)
	}
	return defaultValue
}
