package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the GoPro media fetcher
type Config struct {
	// GoPro session credentials and API settings
	GoPro GoProConfig `yaml:"gopro" json:"gopro"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// GoProConfig holds the captured session credential and API endpoint
// settings. CookieHeader is the full "name=value; name=value" cookie
// string captured after a browser login; AccessToken overrides the
// gp_access_token cookie when set directly.
type GoProConfig struct {
	CookieHeader string `yaml:"cookie_header" json:"cookie_header"`
	AccessToken  string `yaml:"access_token" json:"access_token"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`
	APIBaseURL   string `yaml:"api_base_url" json:"api_base_url"`
}

// RateLimitConfig holds client-side rate limiting configuration for
// download workers. The listing fetch handles server 429s on its own.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// DownloadConfig holds download and pagination settings
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	PerPage             int           `yaml:"per_page" json:"per_page"`
	MaxPages            int           `yaml:"max_pages" json:"max_pages"`
	MaxRecords          int           `yaml:"max_records" json:"max_records"`
	ListTimeout         time.Duration `yaml:"list_timeout" json:"list_timeout"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GoPro: GoProConfig{
			UserAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			APIBaseURL: "https://api.gopro.com",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 240,
		},
		Output: OutputConfig{
			BaseDirectory: "./gopro_media",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 4,
			PerPage:             100,
			MaxPages:            0, // 0 means no cap
			MaxRecords:          0,
			ListTimeout:         30 * time.Second,
			DownloadTimeout:     2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Session credential: GPFETCH_ names first, then the plain GOPRO_
	// names the original tooling used.
	if cookie := firstEnv("GPFETCH_COOKIE", "GOPRO_COOKIE"); cookie != "" {
		c.GoPro.CookieHeader = cookie
	}
	if token := firstEnv("GPFETCH_ACCESS_TOKEN", "GOPRO_ACCESS_TOKEN"); token != "" {
		c.GoPro.AccessToken = token
	}
	if ua := os.Getenv("GPFETCH_USER_AGENT"); ua != "" {
		c.GoPro.UserAgent = ua
	}
	if base := os.Getenv("GPFETCH_API_BASE_URL"); base != "" {
		c.GoPro.APIBaseURL = base
	}

	if rpm := os.Getenv("GPFETCH_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if outputDir := os.Getenv("GPFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if concurrent := os.Getenv("GPFETCH_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}

	if perPage := os.Getenv("GPFETCH_PER_PAGE"); perPage != "" {
		var val int
		fmt.Sscanf(perPage, "%d", &val)
		if val > 0 {
			c.Download.PerPage = val
		}
	}

	if logLevel := os.Getenv("GPFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".gpfetch.yaml",
		".gpfetch.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "gpfetch", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "gpfetch", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".gpfetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are checked
// separately at the start of a fetch run so that auth subcommands work
// without a session.
func (c *Config) Validate() error {
	var errs []error

	if c.GoPro.APIBaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Download.PerPage <= 0 || c.Download.PerPage > 100 {
		errs = append(errs, errors.New("per page must be between 1 and 100"))
	}
	if c.Download.MaxPages < 0 {
		errs = append(errs, errors.New("max pages cannot be negative"))
	}
	if c.Download.MaxRecords < 0 {
		errs = append(errs, errors.New("max records cannot be negative"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrency"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if perPage, ok := flags["per-page"].(int); ok && perPage > 0 {
		c.Download.PerPage = perPage
	}
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Download.MaxPages = maxPages
	}
	if maxRecords, ok := flags["max-records"].(int); ok && maxRecords > 0 {
		c.Download.MaxRecords = maxRecords
	}
	if rateLimit, ok := flags["rate-limit"].(int); ok && rateLimit > 0 {
		c.RateLimit.RequestsPerMinute = rateLimit
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".gpfetch.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
