package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	Database    DatabaseConfig
	JWT         JWTConfig
	Auth        AuthConfig
	Tax         TaxSystemConfig
	RateLimit   RateLimitConfig
	Archive     ArchiveConfig
}

// ArchiveConfig controls invoice snapshot archival
type ArchiveConfig struct {
	Enabled bool
	Path    string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string
	ExpiryHours int
	Issuer      string
}

// AuthConfig holds the configured admin credential. Login is refused
// outright until a password is set.
type AuthConfig struct {
	AdminUsername string
	AdminPassword string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Set up Viper
	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8081")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PATH", "./data/construction.db")
	viper.SetDefault("DB_MIGRATIONS_PATH", "./migrations")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 1)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 1)
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_ISSUER", "construction-invoice-api")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ARCHIVE_ENABLED", false)
	viper.SetDefault("ARCHIVE_PATH", "./data/archive")

	taxConfig, err := LoadTaxSystemConfig()
	if err != nil {
		return nil, err
	}

	rateLimitConfig, err := LoadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment: viper.GetString("ENVIRONMENT"),
		Port:        viper.GetString("PORT"),
		Database:    *LoadDatabaseConfigFromEnv(),
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
			Issuer:      viper.GetString("JWT_ISSUER"),
		},
		Auth: AuthConfig{
			AdminUsername: viper.GetString("ADMIN_USERNAME"),
			AdminPassword: viper.GetString("ADMIN_PASSWORD"),
		},
		Tax:       *taxConfig,
		RateLimit: *rateLimitConfig,
		Archive: ArchiveConfig{
			Enabled: viper.GetBool("ARCHIVE_ENABLED"),
			Path:    viper.GetString("ARCHIVE_PATH"),
		},
	}

	return config, nil
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsInt gets an environment variable as integer with a fallback value
func GetEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// GetEnvAsBool gets an environment variable as boolean with a fallback value
func GetEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
