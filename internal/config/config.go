// Package config provides configuration management for the gallery server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vyrodovalexey/catalog-gallery/internal/catalog"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultEnvFile         = ".env"
	DefaultDataSource      = "items.json"
	DefaultMaxPrice        = catalog.DefaultMaxPrice
	DefaultPriceRangeMax   = catalog.DefaultMaxPrice
	DefaultMaxImageBytes   = 5 << 20
	DefaultRenderCacheSize = 128
)

// Default option lists offered by the item form and the filter bar.
var (
	DefaultFilterTags   = []string{"top", "bottom", "outerwear", "accessories"}
	DefaultColorOptions = []string{"Red", "Blue", "Green", "Black", "White"}
	DefaultSizeOptions  = []string{"XS", "S", "M", "L", "XL"}
)

// Environment variable names.
const (
	EnvEnvFile         = "APP_ENV_FILE"
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvDataSource      = "APP_DATA_SOURCE"
	EnvDefaultMaxPrice = "APP_DEFAULT_MAX_PRICE"
	EnvPriceRangeMax   = "APP_PRICE_RANGE_MAX"
	EnvMaxImageBytes   = "APP_MAX_IMAGE_BYTES"
	EnvRenderCacheSize = "APP_RENDER_CACHE_SIZE"
	EnvFilterTags      = "APP_FILTER_TAGS"
	EnvColorOptions    = "APP_COLOR_OPTIONS"
	EnvSizeOptions     = "APP_SIZE_OPTIONS"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// DataSource is the file path or http(s) URL of the initial catalog.
	// Empty starts with an empty catalog.
	DataSource string

	// Gallery settings.
	DefaultMaxPrice float64
	PriceRangeMax   float64
	MaxImageBytes   int64
	RenderCacheSize int
	FilterTags      []string
	ColorOptions    []string
	SizeOptions     []string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidPriceRange      = errors.New("price range max must be a positive finite number")
	ErrInvalidDefaultMaxPrice = errors.New(
		"default max price must be between 0 and the price range max",
	)
	ErrInvalidMaxImageBytes   = errors.New("max image bytes must be positive")
	ErrInvalidRenderCacheSize = errors.New("render cache size must not be negative")
	ErrInvalidFilterTags      = errors.New(`filter tags must be non-empty and must not contain "all"`)
	ErrInvalidColorOptions    = errors.New("color options must not be empty")
	ErrInvalidSizeOptions     = errors.New("size options must not be empty")
)

// Load reads configuration from environment variables with defaults.
// A .env file, if present, is read first; variables already set in the
// environment take priority over it.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:      DefaultServerPort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		DataSource:      DefaultDataSource,
		DefaultMaxPrice: DefaultMaxPrice,
		PriceRangeMax:   DefaultPriceRangeMax,
		MaxImageBytes:   DefaultMaxImageBytes,
		RenderCacheSize: DefaultRenderCacheSize,
		FilterTags:      slices.Clone(DefaultFilterTags),
		ColorOptions:    slices.Clone(DefaultColorOptions),
		SizeOptions:     slices.Clone(DefaultSizeOptions),
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadEnvFile loads APP_ENV_FILE (default .env). A missing file is ignored.
func loadEnvFile() error {
	path := DefaultEnvFile
	if val := os.Getenv(EnvEnvFile); val != "" {
		path = val
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadGalleryEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadGalleryEnv loads the catalog and gallery environment variables.
func (c *Config) loadGalleryEnv() error {
	if val, ok := os.LookupEnv(EnvDataSource); ok {
		c.DataSource = strings.TrimSpace(val)
	}

	if val := os.Getenv(EnvDefaultMaxPrice); val != "" {
		price, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvDefaultMaxPrice, err)
		}
		c.DefaultMaxPrice = price
	}

	if val := os.Getenv(EnvPriceRangeMax); val != "" {
		price, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvPriceRangeMax, err)
		}
		c.PriceRangeMax = price
	}

	if val := os.Getenv(EnvMaxImageBytes); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMaxImageBytes, err)
		}
		c.MaxImageBytes = n
	}

	if val := os.Getenv(EnvRenderCacheSize); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRenderCacheSize, err)
		}
		c.RenderCacheSize = n
	}

	if val, ok := os.LookupEnv(EnvFilterTags); ok {
		c.FilterTags = splitList(val)
	}

	if val, ok := os.LookupEnv(EnvColorOptions); ok {
		c.ColorOptions = splitList(val)
	}

	if val, ok := os.LookupEnv(EnvSizeOptions); ok {
		c.SizeOptions = splitList(val)
	}

	return nil
}

// splitList parses a comma-separated list, dropping blanks and duplicates.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateGallery(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateGallery validates price, image and option settings.
func (c *Config) validateGallery() error {
	if math.IsNaN(c.PriceRangeMax) || math.IsInf(c.PriceRangeMax, 0) || c.PriceRangeMax <= 0 {
		return ErrInvalidPriceRange
	}

	if math.IsNaN(c.DefaultMaxPrice) || c.DefaultMaxPrice < 0 || c.DefaultMaxPrice > c.PriceRangeMax {
		return ErrInvalidDefaultMaxPrice
	}

	if c.MaxImageBytes <= 0 {
		return ErrInvalidMaxImageBytes
	}

	if c.RenderCacheSize < 0 {
		return ErrInvalidRenderCacheSize
	}

	if len(c.FilterTags) == 0 || slices.Contains(c.FilterTags, catalog.TagAll) {
		return ErrInvalidFilterTags
	}

	if len(c.ColorOptions) == 0 {
		return ErrInvalidColorOptions
	}

	if len(c.SizeOptions) == 0 {
		return ErrInvalidSizeOptions
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
