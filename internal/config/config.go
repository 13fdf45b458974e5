// Package config loads the importer's settings from environment variables.
// Every field has a default except the database URL, and the whole
// configuration is validated once at startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Media    MediaConfig
	Avatar   AvatarConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// BaseURL is the public origin prefixed to relative avatar URLs,
	// e.g. https://members.example.com. Empty leaves URLs relative.
	BaseURL string `env:"SERVER_BASE_URL"`

	// ReadTimeout is the maximum duration for reading a request (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, imports can be slow)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-import requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// DATABASE_URL and DB_URL are both accepted.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the largest accepted upload (default: 20MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20MB"`

	// MaxConcurrent is how many batches may run at once (default: 1)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long a request waits for a batch slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// PasswordCost is the bcrypt cost for generated passwords (default: 10)
	PasswordCost int `env:"IMPORT_PASSWORD_COST" default:"10"`

	// SideloadAvatars downloads user_profile_picture URLs (default: true)
	SideloadAvatars bool `env:"IMPORT_SIDELOAD_AVATARS" default:"true"`
}

// MediaConfig holds settings for stored files and remote downloads.
type MediaConfig struct {
	// UploadsDir is where attachments are written (default: ./uploads)
	UploadsDir string `env:"MEDIA_UPLOADS_DIR" default:"./uploads"`

	// UploadsURL is the URL path the uploads directory is served under (default: /uploads)
	UploadsURL string `env:"MEDIA_UPLOADS_URL" default:"/uploads"`

	// FetchTimeout bounds a single remote picture download (default: 15s)
	FetchTimeout time.Duration `env:"MEDIA_FETCH_TIMEOUT" default:"15s"`

	// MaxDownloadSize caps a remote picture download (default: 5MB)
	MaxDownloadSize int64 `env:"MEDIA_MAX_DOWNLOAD_SIZE" default:"5MB"`

	// ForceHTTPS rewrites http: avatar URLs to https: (default: false)
	ForceHTTPS bool `env:"MEDIA_FORCE_HTTPS" default:"false"`
}

// AvatarConfig holds local avatar settings.
type AvatarConfig struct {
	// DefaultSize is the pixel size used when a request names none (default: 96)
	DefaultSize int `env:"AVATAR_DEFAULT_SIZE" default:"96"`

	// MaxSize is the largest size that will be generated (default: 512)
	MaxSize int `env:"AVATAR_MAX_SIZE" default:"512"`

	// MaxUploadSize caps a direct avatar upload (default: 2MB)
	MaxUploadSize int64 `env:"AVATAR_MAX_UPLOAD_SIZE" default:"2MB"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import and avatar upload endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey enforces X-API-Key on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
