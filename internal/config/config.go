package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"flume-exporter/internal/models"

	"github.com/joho/godotenv"
)

// Config holds the exporter's configuration, populated from environment
// variables (optionally via a .env file).
type Config struct {
	Credentials models.Credentials

	BaseURL  string
	Port     string
	LogLevel string
	LogFile  string
	Interval time.Duration
	Timeout  time.Duration

	// Optional InfluxDB mirror; the sink is enabled only when all four are set.
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// InfluxEnabled reports whether the optional readings sink is configured.
func (c Config) InfluxEnabled() bool {
	return c.InfluxURL != "" && c.InfluxToken != "" && c.InfluxOrg != "" && c.InfluxBucket != ""
}

// Load reads the configuration from environment variables. The four Flume
// credential variables are required; everything else has a default.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system environment variables")
	}

	cfg := Config{
		Credentials: models.Credentials{
			ClientID:     os.Getenv("FLUME_CLIENT_ID"),
			ClientSecret: os.Getenv("FLUME_CLIENT_SECRET"),
			Username:     os.Getenv("FLUME_USERNAME"),
			Password:     os.Getenv("FLUME_PASSWORD"),
		},
		BaseURL:      getEnv("FLUME_BASE_URL", "https://api.flumewater.com"),
		Port:         getEnv("EXPORTER_PORT", "8001"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		LogFile:      os.Getenv("LOG_FILE"),
		Interval:     getEnvAsDuration("COLLECTION_INTERVAL_S", 60*time.Second),
		Timeout:      getEnvAsDuration("HTTP_TIMEOUT_S", 10*time.Second),
		InfluxURL:    os.Getenv("INFLUXDB_URL"),
		InfluxToken:  os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUXDB_ORG"),
		InfluxBucket: os.Getenv("INFLUXDB_BUCKET"),
	}

	var missing []string
	if cfg.Credentials.ClientID == "" {
		missing = append(missing, "FLUME_CLIENT_ID")
	}
	if cfg.Credentials.ClientSecret == "" {
		missing = append(missing, "FLUME_CLIENT_SECRET")
	}
	if cfg.Credentials.Username == "" {
		missing = append(missing, "FLUME_USERNAME")
	}
	if cfg.Credentials.Password == "" {
		missing = append(missing, "FLUME_PASSWORD")
	}
	if len(missing) > 0 {
		return Config{}, &models.ConfigError{Missing: missing}
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsDuration reads a duration environment variable (in seconds) or
// returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return time.Duration(intValue) * time.Second
		}
	}
	return defaultValue
}
