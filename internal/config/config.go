// Package config provides centralized configuration for the local-bi
// tools. Settings load from environment variables with defaults and are
// validated up front so a misconfigured run fails before touching data.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Shopify      ShopifyConfig
	Klaviyo      KlaviyoConfig
	Searchspring SearchspringConfig
	Batch        BatchConfig
	Files        FilesConfig
	Logging      LoggingConfig
}

// ServerConfig holds HTTP server settings for the upload UI.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxUploadSize is the largest accepted order-sheet upload in bytes (default: 16MB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"16777216"`
}

// DatabaseConfig holds warehouse replica connection settings.
// The replica is read-only; only commands that extract snapshots need it.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 8)
	MaxConns int `env:"DB_MAX_CONNS" default:"8"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// ShopifyConfig holds Shopify Admin API settings.
type ShopifyConfig struct {
	// ShopURL is the myshopify domain, e.g. "example.myshopify.com"
	ShopURL string `env:"SHOP_URL"`

	// Token is the Admin API access token
	Token string `env:"SHOP_TOKEN"`

	// APIVersion is the Admin API version (default: 2025-01)
	APIVersion string `env:"SHOP_API_VERSION" default:"2025-01"`

	// Timeout is the per-request timeout (default: 30s)
	Timeout time.Duration `env:"SHOP_TIMEOUT" default:"30s"`
}

// KlaviyoConfig holds Klaviyo API settings.
type KlaviyoConfig struct {
	// APIKey is the private API key
	APIKey string `env:"KLAVIYO_API_KEY"`

	// Revision is the API revision date header (default: 2024-10-15)
	Revision string `env:"KLAVIYO_REVISION" default:"2024-10-15"`
}

// SearchspringConfig holds Searchspring search API settings.
type SearchspringConfig struct {
	// SiteID identifies the Searchspring account
	SiteID string `env:"SEARCHSPRING_SITE_ID"`

	// BgFilterField is the background filter field for collection pages
	// (default: collection_handle)
	BgFilterField string `env:"SEARCHSPRING_BGFILTER_FIELD" default:"collection_handle"`

	// ResultsPerPage is the page size used when paginating (default: 100)
	ResultsPerPage int `env:"SEARCHSPRING_RESULTS_PER_PAGE" default:"100"`
}

// BatchConfig holds per-batch settings for the order-sheet transform.
// Sales team and tag change per trade show; they are env-settable so a
// batch can be run without editing code.
type BatchConfig struct {
	// SalesTeam is stamped on the first line of every order (default: Wholesale)
	SalesTeam string `env:"BATCH_SALES_TEAM" default:"Wholesale"`

	// Tag is the order tag for this batch, e.g. "SURFJAN26"
	Tag string `env:"BATCH_TAG"`

	// StaleThresholdDays is the age after which a "New" tag or badge is
	// considered stale (default: 60)
	StaleThresholdDays int `env:"STALE_THRESHOLD_DAYS" default:"60"`
}

// FilesConfig holds paths to the reference files every transform run
// needs. The master SKU list and contacts export are maintained by
// hand and refreshed before each trade show.
type FilesConfig struct {
	// MasterPath is the master SKU CSV (default: data/master-sku.csv)
	MasterPath string `env:"MASTER_SKU_PATH" default:"data/master-sku.csv"`

	// VariantPath is the ERP variant export CSV (default: data/variant-export.csv)
	VariantPath string `env:"VARIANT_EXPORT_PATH" default:"data/variant-export.csv"`

	// ContactsPath is the ERP contacts export CSV (default: data/contacts.csv)
	ContactsPath string `env:"CONTACTS_PATH" default:"data/contacts.csv"`

	// OutputDir is where transformed order sheets are written (default: output)
	OutputDir string `env:"OUTPUT_DIR" default:"output"`
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
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.MaxUploadSize <= 0 {
		errs = append(errs, "SERVER_MAX_UPLOAD_SIZE must be positive")
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

	if c.Batch.StaleThresholdDays <= 0 {
		errs = append(errs, "STALE_THRESHOLD_DAYS must be positive")
	}
	if c.Searchspring.ResultsPerPage <= 0 {
		errs = append(errs, "SEARCHSPRING_RESULTS_PER_PAGE must be positive")
	}

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

// String returns a safe representation of the config for logging.
// Credentials and connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d}, ", c.Database.MaxConns))
	b.WriteString(fmt.Sprintf("Shopify: {ShopURL: %q, Token: [MASKED], APIVersion: %q}, ",
		c.Shopify.ShopURL, c.Shopify.APIVersion))
	b.WriteString(fmt.Sprintf("Batch: {SalesTeam: %q, Tag: %q}, ", c.Batch.SalesTeam, c.Batch.Tag))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
