package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Log    LogConfig
	Engine EngineConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"reward_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// EngineConfig holds allocation-engine tuning knobs.
type EngineConfig struct {
	// DrawMaxRetries bounds how often a draw re-samples after losing a
	// stock race to a concurrent draw.
	DrawMaxRetries int `envconfig:"ENGINE_DRAW_MAX_RETRIES" default:"3"`
	// FulfillQueueSize is the buffered capacity of the fulfillment queue.
	FulfillQueueSize int `envconfig:"ENGINE_FULFILL_QUEUE_SIZE" default:"1024"`
	// FulfillWorkers is the number of fulfillment worker goroutines.
	FulfillWorkers int `envconfig:"ENGINE_FULFILL_WORKERS" default:"4"`
	// FulfillMaxElapsed caps the retry window of one fulfillment, in seconds.
	FulfillMaxElapsed int `envconfig:"ENGINE_FULFILL_MAX_ELAPSED" default:"60"`
	// JanitorInterval is how often expired claim counters are pruned, in minutes.
	JanitorInterval int `envconfig:"ENGINE_JANITOR_INTERVAL" default:"60"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
