package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("SERVER_BASE_URL (%q) must be an absolute URL", c.Server.BaseURL))
		}
	}

	// Import
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.PasswordCost < 4 || c.Import.PasswordCost > 31 {
		errs = append(errs, fmt.Sprintf("IMPORT_PASSWORD_COST (%d) must be 4-31", c.Import.PasswordCost))
	}

	// Media
	if c.Media.UploadsDir == "" {
		errs = append(errs, "MEDIA_UPLOADS_DIR is required")
	}
	if !strings.HasPrefix(c.Media.UploadsURL, "/") && !strings.Contains(c.Media.UploadsURL, "://") {
		errs = append(errs, fmt.Sprintf("MEDIA_UPLOADS_URL (%q) must be a path or an absolute URL", c.Media.UploadsURL))
	}
	if c.Media.FetchTimeout <= 0 {
		errs = append(errs, "MEDIA_FETCH_TIMEOUT must be positive")
	}
	if c.Media.MaxDownloadSize <= 0 {
		errs = append(errs, "MEDIA_MAX_DOWNLOAD_SIZE must be positive")
	}

	// Avatar
	if c.Avatar.DefaultSize <= 0 {
		errs = append(errs, "AVATAR_DEFAULT_SIZE must be positive")
	}
	if c.Avatar.MaxSize < c.Avatar.DefaultSize {
		errs = append(errs, fmt.Sprintf("AVATAR_MAX_SIZE (%d) must be >= AVATAR_DEFAULT_SIZE (%d)",
			c.Avatar.MaxSize, c.Avatar.DefaultSize))
	}
	if c.Avatar.MaxUploadSize <= 0 {
		errs = append(errs, "AVATAR_MAX_UPLOAD_SIZE must be positive")
	}

	// Rate limit
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ImportLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	// Security
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}
	for _, cidr := range c.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not a CIDR", cidr))
		}
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d, BaseURL: %q}, ", c.Server.Host, c.Server.Port, c.Server.BaseURL)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d, SideloadAvatars: %v}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.SideloadAvatars)
	fmt.Fprintf(&b, "Media: {UploadsDir: %q, UploadsURL: %q, ForceHTTPS: %v}, ",
		c.Media.UploadsDir, c.Media.UploadsURL, c.Media.ForceHTTPS)
	fmt.Fprintf(&b, "Avatar: {DefaultSize: %d, MaxSize: %d}, ", c.Avatar.DefaultSize, c.Avatar.MaxSize)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
