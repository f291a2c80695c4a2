// Package config provides environment-based configuration management
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// RedisConfig holds Redis connection parameters
type RedisConfig struct {
	Addr string // Format: host:port
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Port int
}

// LineConfig holds messaging platform credentials and endpoints.
// Endpoints are overridable so tests can target a local server.
type LineConfig struct {
	ChannelSecret string // Shared secret for webhook HMAC validation
	ChannelToken  string // Bearer token for the reply and content APIs
	APIEndpoint   string // Reply API base URL
	DataEndpoint  string // Content API base URL
}

// FaceConfig holds detection service credentials
type FaceConfig struct {
	APIKey    string
	APISecret string
	Endpoint  string // Detect endpoint URL
}

// Config aggregates all configuration sections
type Config struct {
	DB    DBConfig
	Redis RedisConfig
	App   AppConfig
	Line  LineConfig
	Face  FaceConfig
}

// LoadConfig reads configuration from environment variables
// Returns error if critical variables are missing
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Database Configuration (audit log)
	cfg.DB.Host = getEnv("DB_HOST", "facebot_db")
	cfg.DB.Port = getEnvAsInt("DB_PORT", 3306)
	cfg.DB.User = getEnv("DB_USER", "root")
	cfg.DB.Password = getEnv("DB_PASS", "")
	cfg.DB.Database = getEnv("DB_NAME", "facebot")

	if cfg.DB.Password == "" {
		return nil, fmt.Errorf("DB_PASS environment variable is required")
	}

	// Redis Configuration (user state store)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "facebot_redis:6379")

	// Application Configuration
	cfg.App.Port = getEnvAsInt("APP_PORT", 8080)

	// Messaging platform Configuration
	cfg.Line.ChannelSecret = getEnv("LINE_CHANNEL_SECRET", "")
	cfg.Line.ChannelToken = getEnv("LINE_CHANNEL_TOKEN", "")
	cfg.Line.APIEndpoint = getEnv("LINE_API_ENDPOINT", "https://api.line.me")
	cfg.Line.DataEndpoint = getEnv("LINE_DATA_ENDPOINT", "https://api-data.line.me")

	if cfg.Line.ChannelSecret == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_SECRET environment variable is required")
	}
	if cfg.Line.ChannelToken == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_TOKEN environment variable is required")
	}

	// Detection service Configuration
	cfg.Face.APIKey = getEnv("FACE_API_KEY", "")
	cfg.Face.APISecret = getEnv("FACE_API_SECRET", "")
	cfg.Face.Endpoint = getEnv("FACE_API_ENDPOINT", "https://api-us.faceplusplus.com/facepp/v3/detect")

	if cfg.Face.APIKey == "" {
		return nil, fmt.Errorf("FACE_API_KEY environment variable is required")
	}
	if cfg.Face.APISecret == "" {
		return nil, fmt.Errorf("FACE_API_SECRET environment variable is required")
	}

	return cfg, nil
}

// GetDSN returns MariaDB connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// getEnv reads environment variable with fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads environment variable as integer with fallback default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
