package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wilfredor/addwikigeolocation/pkg/logger"
)

// Config holds all configuration options for the geolocation bot
type Config struct {
	// Commons API client settings
	Commons CommonsConfig `yaml:"commons" json:"commons"`

	// Scan settings
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Edit rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Processing settings
	Processing ProcessingConfig `yaml:"processing" json:"processing"`

	// Logging configuration
	Logging logger.Config `yaml:"logging" json:"logging"`
}

// CommonsConfig holds MediaWiki API client configuration
type CommonsConfig struct {
	APIURL         string        `yaml:"api_url" json:"api_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	Username       string        `yaml:"username" json:"username"`
	Password       string        `yaml:"password" json:"password"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
}

// ScanConfig holds crawl configuration
type ScanConfig struct {
	// PagePause is the pause between listing pages
	PagePause time.Duration `yaml:"page_pause" json:"page_pause"`
	// BatchSize is the number of titles per detail-fetch API call.
	// The API caps titles= at 50 for non-bot clients.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// AuthorFilter keeps only files whose author contains this string
	// (case-insensitive). Empty disables the filter.
	AuthorFilter string `yaml:"author_filter" json:"author_filter"`
	// MaxDepth bounds category subtree traversal
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
}

// RateLimitConfig holds edit pacing configuration
type RateLimitConfig struct {
	MaxEditsPerMinute int           `yaml:"max_edits_per_minute" json:"max_edits_per_minute"`
	BaseSleep         time.Duration `yaml:"base_sleep" json:"base_sleep"`
}

// ProcessingConfig holds queue processing configuration
type ProcessingConfig struct {
	// MaxEdits bounds successful edits per run (0 means unlimited)
	MaxEdits int `yaml:"max_edits" json:"max_edits"`
	// Upload re-uploads modified files back to Commons
	Upload bool `yaml:"upload" json:"upload"`
	// DryRun previews edits without touching anything remote
	DryRun bool `yaml:"dry_run" json:"dry_run"`
	// StateFile is the checkpoint path
	StateFile string `yaml:"state_file" json:"state_file"`
	// DownloadDir stores fetched files; empty means a temp directory
	DownloadDir string `yaml:"download_dir" json:"download_dir"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Commons: CommonsConfig{
			APIURL:         "https://commons.wikimedia.org/w/api.php",
			UserAgent:      "AddGeoLocationBot/1.0 (https://github.com/wilfredor/addwikigeolocation; wilfredor@gmail.com)",
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
		},
		Scan: ScanConfig{
			PagePause: time.Second,
			BatchSize: 50,
			MaxDepth:  1,
		},
		RateLimit: RateLimitConfig{
			MaxEditsPerMinute: 30,
			BaseSleep:         10 * time.Second,
		},
		Processing: ProcessingConfig{
			MaxEdits:  19,
			StateFile: "gps_scan.json",
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if user := os.Getenv("COMMONS_USER"); user != "" {
		c.Commons.Username = user
	}
	if pass := os.Getenv("COMMONS_PASS"); pass != "" {
		c.Commons.Password = pass
	}
	if apiURL := os.Getenv("AWG_API_URL"); apiURL != "" {
		c.Commons.APIURL = apiURL
	}
	if ua := os.Getenv("AWG_USER_AGENT"); ua != "" {
		c.Commons.UserAgent = ua
	}
	if epm := os.Getenv("AWG_MAX_EDITS_PER_MIN"); epm != "" {
		if val, err := strconv.Atoi(epm); err == nil && val > 0 {
			c.RateLimit.MaxEditsPerMinute = val
		}
	}
	if stateFile := os.Getenv("AWG_STATE_FILE"); stateFile != "" {
		c.Processing.StateFile = stateFile
	}
	if downloadDir := os.Getenv("AWG_DOWNLOAD_DIR"); downloadDir != "" {
		c.Processing.DownloadDir = downloadDir
	}
	if logLevel := os.Getenv("AWG_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // no config file, not an error
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
		".addwikigeolocation.yaml",
		".addwikigeolocation.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "addwikigeolocation", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".addwikigeolocation.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Commons.APIURL == "" {
		errs = append(errs, errors.New("API URL is required"))
	}
	if c.Commons.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Commons.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Commons.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.Scan.BatchSize <= 0 || c.Scan.BatchSize > 50 {
		errs = append(errs, errors.New("batch size must be between 1 and 50"))
	}
	if c.Scan.MaxDepth < 0 {
		errs = append(errs, errors.New("max depth cannot be negative"))
	}

	if c.RateLimit.MaxEditsPerMinute <= 0 {
		errs = append(errs, errors.New("max edits per minute must be positive"))
	}
	if c.RateLimit.BaseSleep < 0 {
		errs = append(errs, errors.New("base sleep cannot be negative"))
	}

	if c.Processing.MaxEdits < 0 {
		errs = append(errs, errors.New("max edits cannot be negative"))
	}
	if c.Processing.StateFile == "" {
		errs = append(errs, errors.New("state file path is required"))
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

// MergeFlags merges command line flag values into the configuration
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if v, ok := flags["state-file"].(string); ok && v != "" {
		c.Processing.StateFile = v
	}
	if v, ok := flags["download-dir"].(string); ok && v != "" {
		c.Processing.DownloadDir = v
	}
	if v, ok := flags["max-edits"].(int); ok && v >= 0 {
		c.Processing.MaxEdits = v
	}
	if v, ok := flags["upload"].(bool); ok {
		c.Processing.Upload = v
	}
	if v, ok := flags["dry-run"].(bool); ok {
		c.Processing.DryRun = v
	}
	if v, ok := flags["sleep"].(time.Duration); ok && v > 0 {
		c.RateLimit.BaseSleep = v
	}
	if v, ok := flags["max-edits-per-min"].(int); ok && v > 0 {
		c.RateLimit.MaxEditsPerMinute = v
	}
	if v, ok := flags["author-filter"].(string); ok && v != "" {
		c.Scan.AuthorFilter = v
	}
	if v, ok := flags["max-depth"].(int); ok && v >= 0 {
		c.Scan.MaxDepth = v
	}
	if v, ok := flags["user"].(string); ok && v != "" {
		c.Commons.Username = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".addwikigeolocation.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
