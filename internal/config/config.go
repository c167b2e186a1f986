package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Solana   SolanaConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret          string
	AdminWallet        string
	PlatformFeePercent int64
	VerificationMargin int64
	SettlementEnabled  bool
	SettlementInterval time.Duration
}

// SolanaConfig holds Solana RPC settings for deposit verification
type SolanaConfig struct {
	Network           string
	VerifyDepositTxns bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "fitstake"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			AdminWallet:        getEnv("ADMIN_WALLET", ""),
			PlatformFeePercent: getEnvInt64("PLATFORM_FEE_PERCENT", 5),
			VerificationMargin: getEnvInt64("VERIFICATION_MARGIN", 3),
			SettlementEnabled:  getEnv("SETTLEMENT_ENABLED", "false") == "true",
			SettlementInterval: time.Duration(getEnvInt64("SETTLEMENT_INTERVAL_MINUTES", 10)) * time.Minute,
		},
		Solana: SolanaConfig{
			Network:           getEnv("SOLANA_NETWORK", "devnet"),
			VerifyDepositTxns: getEnv("SOLANA_VERIFY_DEPOSITS", "false") == "true",
		},
	}

	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.App.AdminWallet == "" {
		return nil, fmt.Errorf("ADMIN_WALLET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt64 gets an integer environment variable with a fallback default
func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
