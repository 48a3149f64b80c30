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
)

// DefaultDaysBack is the lookback used when the operator gives no usable value
const DefaultDaysBack = 7

// Config holds all configuration options for a harvesting run
type Config struct {
	Run         RunConfig       `yaml:"run" json:"run"`
	Output      OutputConfig    `yaml:"output" json:"output"`
	HTTP        HTTPConfig      `yaml:"http" json:"http"`
	RateLimit   RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Download    DownloadConfig  `yaml:"download" json:"download"`
	Metrics     MetricsConfig   `yaml:"metrics" json:"metrics"`
	Logging     LoggingConfig   `yaml:"logging" json:"logging"`
	SourcesFile string          `yaml:"sources_file" json:"sources_file"`
}

// RunConfig holds the per-run parameters the operator is prompted for
type RunConfig struct {
	DaysBack int `yaml:"days_back" json:"days_back"`
}

// UnmarshalYAML reads days_back leniently: a negative, non-numeric or
// non-scalar value becomes DefaultDaysBack instead of failing the load
func (r *RunConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		DaysBack *yaml.Node `yaml:"days_back"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.DaysBack != nil {
		r.DaysBack = ParseDaysBack(raw.DaysBack.Value, DefaultDaysBack)
	}
	return nil
}

// OutputConfig holds output tree configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	LogFile       string `yaml:"log_file" json:"log_file"`
	WriteManifest bool   `yaml:"write_manifest" json:"write_manifest"`
}

// HTTPConfig holds transport configuration
type HTTPConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// Backoff is "exponential" (retry_delay doubling) or "constant"
	Backoff string `yaml:"backoff" json:"backoff"`
}

// RateLimitConfig caps outbound requests across all workers
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// DownloadConfig holds executor configuration
type DownloadConfig struct {
	ConcurrentDownloads int `yaml:"concurrent_downloads" json:"concurrent_downloads"`
}

// MetricsConfig holds Prometheus textfile output configuration
type MetricsConfig struct {
	// Textfile is written relative to the output directory; empty disables it
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			DaysBack: DefaultDaysBack,
		},
		Output: OutputConfig{
			BaseDirectory: "AirgapIntel_Feeds",
			LogFile:       "misp_feed_download_log.csv",
			WriteManifest: true,
		},
		HTTP: HTTPConfig{
			RequestTimeout: 60 * time.Second,
			UserAgent:      "Mozilla/5.0 (compatible; MISPFeedDownloader/1.0)",
			MaxAttempts:    2,
			RetryDelay:     2 * time.Second,
			Backoff:        "exponential",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 1,
		},
		Metrics: MetricsConfig{
			Textfile: "airgapintel.prom",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ParseDaysBack converts operator input to a lookback. Empty, non-numeric or
// negative input silently yields def.
func ParseDaysBack(input string, def int) int {
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// LogPath returns the CSV run log location
func (c *Config) LogPath() string {
	if filepath.IsAbs(c.Output.LogFile) {
		return c.Output.LogFile
	}
	return filepath.Join(c.Output.BaseDirectory, c.Output.LogFile)
}

// MetricsPath returns the textfile location, or "" when disabled
func (c *Config) MetricsPath() string {
	if c.Metrics.Textfile == "" {
		return ""
	}
	if filepath.IsAbs(c.Metrics.Textfile) {
		return c.Metrics.Textfile
	}
	return filepath.Join(c.Output.BaseDirectory, c.Metrics.Textfile)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if days := os.Getenv("AIRGAPINTEL_DAYS_BACK"); days != "" {
		c.Run.DaysBack = ParseDaysBack(days, DefaultDaysBack)
	}
	if outputDir := os.Getenv("AIRGAPINTEL_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if userAgent := os.Getenv("AIRGAPINTEL_USER_AGENT"); userAgent != "" {
		c.HTTP.UserAgent = userAgent
	}
	if timeout := os.Getenv("AIRGAPINTEL_REQUEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid AIRGAPINTEL_REQUEST_TIMEOUT: %w", err)
		}
		c.HTTP.RequestTimeout = d
	}
	if backoff := os.Getenv("AIRGAPINTEL_RETRY_BACKOFF"); backoff != "" {
		c.HTTP.Backoff = backoff
	}
	if rpm := os.Getenv("AIRGAPINTEL_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if concurrent := os.Getenv("AIRGAPINTEL_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if sources := os.Getenv("AIRGAPINTEL_SOURCES_FILE"); sources != "" {
		c.SourcesFile = sources
	}
	if logLevel := os.Getenv("AIRGAPINTEL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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
	home := os.Getenv("HOME")
	locations := []string{
		".airgapintel.yaml",
		".airgapintel.yml",
		filepath.Join(home, ".config", "airgapintel", "config.yaml"),
		filepath.Join(home, ".config", "airgapintel", "config.yml"),
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

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.LogFile == "" {
		errs = append(errs, errors.New("log file is required"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.HTTP.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	switch strings.ToLower(c.HTTP.Backoff) {
	case "", "exponential", "constant":
	default:
		errs = append(errs, fmt.Errorf("invalid retry backoff %q (exponential or constant)", c.HTTP.Backoff))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	switch days := flags["days-back"].(type) {
	case string:
		c.Run.DaysBack = ParseDaysBack(days, DefaultDaysBack)
	case int:
		c.Run.DaysBack = days
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.HTTP.RequestTimeout = timeout
	}
	if sources, ok := flags["sources"].(string); ok && sources != "" {
		c.SourcesFile = sources
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".airgapintel.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	if config.Run.DaysBack < 0 {
		config.Run.DaysBack = DefaultDaysBack
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
