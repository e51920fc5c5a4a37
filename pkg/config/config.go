// Package config loads the bot configuration from the environment (and an
// optional .env file).
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string
	DevGuildID string

	// Storage
	StoreBackend string
	MongoDBURL   string
	DBName       string
	SQLitePath   string
	// RedisURL, when set, moves the daily moderation quotas to Redis.
	RedisURL string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Web Server
	Port       string
	AdminToken string

	// Environment
	Environment string
	LogLevel    string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string

	Security Security
}

// Security groups the tunables of the moderation core.
type Security struct {
	AuditWindow     time.Duration
	AuditAttempts   int
	AuditDelay      time.Duration
	DailyActionCap  int
	ResetPolicy     string
	TimeoutDuration time.Duration
	SweepInterval   time.Duration
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

var (
	cfg     *Config
	cfgErr  error
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgErr = nil
	cfgOnce = sync.Once{}
}

func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	p := &parser{}
	c := &Config{
		BotToken:   getEnv("botToken", ""),
		DevGuildID: getEnv("devGuildId", ""),

		StoreBackend: getEnv("STORE_BACKEND", StoreMongo),
		MongoDBURL:   getEnv("mongodbUrl", "mongodb://localhost:27017"),
		DBName:       getEnv("dbName", "PancyGuard"),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/pancyguard.db"),
		RedisURL:     getEnv("REDIS_URL", ""),

		MQTTHost:     getEnv("MQTT_Host", "localhost"),
		MQTTPort:     getEnv("MQTT_Port", "1883"),
		MQTTUser:     getEnv("MQTT_User", ""),
		MQTTPassword: getEnv("MQTT_Password", ""),

		Port:       getEnv("PORT", "3000"),
		AdminToken: getEnv("ADMIN_TOKEN", ""),

		Environment: getEnv("enviroment", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "system"),

		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),

		Security: Security{
			AuditWindow:     p.duration("AUDIT_WINDOW", 30*time.Second),
			AuditAttempts:   p.int("AUDIT_ATTEMPTS", 3),
			AuditDelay:      p.duration("AUDIT_DELAY", 900*time.Millisecond),
			DailyActionCap:  p.int("DAILY_ACTION_CAP", 4),
			ResetPolicy:     getEnv("SECURITY_RESET_POLICY", "always"),
			TimeoutDuration: p.duration("PUNISHMENT_TIMEOUT", time.Hour),
			SweepInterval:   p.duration("WARN_SWEEP_INTERVAL", 10*time.Minute),
		},
	}
	if c.StoreBackend != StoreMongo && c.StoreBackend != StoreSQLite {
		p.fail("STORE_BACKEND", c.StoreBackend)
	}
	cfg, cfgErr = c, p.err
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, cfgErr
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed variables and keeps the first malformed one.
type parser struct {
	err error
}

func (p *parser) fail(key, value string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid value %q for %s", value, key)
	}
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		p.fail(key, raw)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		p.fail(key, raw)
		return def
	}
	return v
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
