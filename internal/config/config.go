// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Store       StoreConfig
	JWT         JWTConfig
	Operator    OperatorConfig
	Inventory   InventoryConfig
	Logging     LoggingConfig
	AWS         AWSConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL        string
	AllowedOrigins []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   int
	LogLevel      string
	ListenEnabled bool
	ListenChannel string
}

// StoreConfig selects the remote data store backing the inventory cache.
type StoreConfig struct {
	Driver string // "postgres" or "memory"
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

// OperatorConfig seeds the single operator account on startup.
type OperatorConfig struct {
	Email    string
	Password string
	Name     string
}

type InventoryConfig struct {
	// EvictOnDeleteFailure removes a product from the cache even when the
	// remote delete reported an error.
	EvictOnDeleteFailure  bool
	UseTransactions       bool
	ReloadAfterSaleUpdate bool
	DefaultPaymentMethod  string
	TimeZone              string
	ListenDebounceSeconds int
	RecentSalesLimit      int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
	LocalUploadDir  string
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", ""),
			Database:      getEnv("DB_NAME", "angel_fit"),
			SSLMode:       getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:  getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:  getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:   getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:      getEnv("DB_LOG_LEVEL", "silent"),
			ListenEnabled: getEnvAsBool("DB_LISTEN_ENABLED", false),
			ListenChannel: getEnv("DB_LISTEN_CHANNEL", "inventory_changes"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "postgres"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 12),
		},
		Operator: OperatorConfig{
			Email:    getEnv("OPERATOR_EMAIL", ""),
			Password: getEnv("OPERATOR_PASSWORD", ""),
			Name:     getEnv("OPERATOR_NAME", "Operador"),
		},
		Inventory: InventoryConfig{
			EvictOnDeleteFailure:  getEnvAsBool("INVENTORY_EVICT_ON_DELETE_FAILURE", true),
			UseTransactions:       getEnvAsBool("INVENTORY_USE_TRANSACTIONS", true),
			ReloadAfterSaleUpdate: getEnvAsBool("INVENTORY_RELOAD_AFTER_SALE_UPDATE", true),
			DefaultPaymentMethod:  getEnv("INVENTORY_DEFAULT_PAYMENT_METHOD", "Dinheiro"),
			TimeZone:              getEnv("INVENTORY_TIMEZONE", "UTC"),
			ListenDebounceSeconds: getEnvAsInt("INVENTORY_LISTEN_DEBOUNCE", 2),
			RecentSalesLimit:      getEnvAsInt("INVENTORY_RECENT_SALES", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "sa-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "angel-fit-reports"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
			LocalUploadDir:  getEnv("LOCAL_UPLOAD_DIR", "./uploads"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "pt_BR"),
		},
		Frontend: FrontendConfig{
			BaseURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" && c.Store.Driver == "postgres" {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}

	if _, err := time.LoadLocation(c.Inventory.TimeZone); err != nil {
		return fmt.Errorf("invalid inventory timezone %q: %w", c.Inventory.TimeZone, err)
	}

	return nil
}

// Location returns the time zone used to bucket sales by calendar day.
func (c *InventoryConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
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
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
