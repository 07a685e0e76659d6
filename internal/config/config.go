package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Store   StoreConfig
	Session SessionConfig
	Cache   CacheConfig
	Notify  NotifyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"stocktrack-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	// Base URL of the admin dashboard, used to build deep links in
	// notification emails.
	DashboardURL string `envconfig:"APP_DASHBOARD_URL" default:"http://localhost:3000"`
}

// StoreConfig holds persistence settings. Type selects the backend.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, mysql, postgres, or mongodb

	// SQLite settings
	Path string `envconfig:"STORE_SQLITE_PATH" default:"./data/stocktrack.db"`

	// MySQL / PostgreSQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"0"`
	Name     string `envconfig:"STORE_DB_NAME" default:"stocktrack"`
	User     string `envconfig:"STORE_DB_USER" default:""`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`

	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"stocktrack"`
}

// SessionConfig holds Redis session store settings.
type SessionConfig struct {
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	TokenTTL      time.Duration `envconfig:"SESSION_TOKEN_TTL" default:"12h"`
	// Seed admin credentials, used when the users table is empty.
	AdminEmail string `envconfig:"ADMIN_EMAIL" default:""`
	AdminKey   string `envconfig:"ADMIN_KEY" default:""`
}

// CacheConfig holds listing-cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"1m"`
}

// NotifyConfig holds the dual-channel notification settings. All values
// are opaque secrets; a channel with an empty token/key is disabled.
type NotifyConfig struct {
	// Telegram bot channel
	TelegramBotToken string        `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramChatID   string        `envconfig:"TELEGRAM_CHAT_ID" default:""`
	TelegramTimeout  time.Duration `envconfig:"TELEGRAM_TIMEOUT" default:"10s"`

	// EmailJS channel
	EmailJSServiceID  string        `envconfig:"EMAILJS_SERVICE_ID" default:""`
	EmailJSTemplateID string        `envconfig:"EMAILJS_TEMPLATE_ID" default:""`
	EmailJSPublicKey  string        `envconfig:"EMAILJS_PUBLIC_KEY" default:""`
	EmailRecipient    string        `envconfig:"NOTIFICATION_EMAIL" default:""`
	EmailJSTimeout    time.Duration `envconfig:"EMAILJS_TIMEOUT" default:"10s"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *SessionConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	port := s.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, port, s.Name)
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, port, s.Name, s.SSLMode)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
