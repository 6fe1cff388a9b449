package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// MaxChunkSize is the largest number of child ids the continuation endpoint accepts
	MaxChunkSize = 100

	// DefaultDeletedAuthor is the author value the API reports for removed accounts
	DefaultDeletedAuthor = "[deleted]"

	envPrefix = "THREADSCRAPER_"
)

// Config holds all configuration options for the thread scraper
type Config struct {
	// Remote API settings
	API APIConfig `yaml:"api" json:"api"`

	// Retry behaviour of the fetch client
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Global request rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Tree expansion and checkpoint cadence
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Raw output and checkpoint locations
	Output OutputConfig `yaml:"output" json:"output"`

	// Threads processed by the batch runner, in order
	Threads []ThreadTarget `yaml:"threads" json:"threads" validate:"dive"`

	// Aggregation settings
	Aggregate AggregateConfig `yaml:"aggregate" json:"aggregate"`

	// SQLite export settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Prometheus textfile output
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds remote API settings
type APIConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	OAuthBaseURL string        `yaml:"oauth_base_url" json:"oauth_base_url" validate:"required,url"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent" validate:"required"`
	AccessToken  string        `yaml:"access_token" json:"access_token"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// RetryConfig holds the fetch client's retry budget and delays
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts" validate:"gte=1,lte=20"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay" validate:"gte=0"`
	NetworkDelay time.Duration `yaml:"network_delay" json:"network_delay" validate:"gte=0"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerMinute caps outgoing requests; 0 disables the limiter
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute" validate:"gte=0"`
}

// FetchConfig holds the tree expansion parameters
type FetchConfig struct {
	RootLimit       int           `yaml:"root_limit" json:"root_limit" validate:"gt=0"`
	RootDepth       int           `yaml:"root_depth" json:"root_depth" validate:"gt=0"`
	ChunkSize       int           `yaml:"chunk_size" json:"chunk_size" validate:"gte=1,lte=100"`
	CheckpointEvery int           `yaml:"checkpoint_every" json:"checkpoint_every" validate:"gte=1"`
	ProgressEvery   int           `yaml:"progress_every" json:"progress_every" validate:"gte=1"`
	PacingDelay     time.Duration `yaml:"pacing_delay" json:"pacing_delay" validate:"gte=0"`
	InitialDelay    time.Duration `yaml:"initial_delay" json:"initial_delay" validate:"gte=0"`
	ThreadCooldown  time.Duration `yaml:"thread_cooldown" json:"thread_cooldown" validate:"gte=0"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory           string `yaml:"directory" json:"directory" validate:"required"`
	CheckpointDirectory string `yaml:"checkpoint_directory" json:"checkpoint_directory"`
	Overwrite           bool   `yaml:"overwrite" json:"overwrite"`
}

// ThreadTarget maps a remote thread identifier to the label used in file names
type ThreadTarget struct {
	ID    string `yaml:"id" json:"id" validate:"required,alphanum"`
	Label string `yaml:"label" json:"label" validate:"required,excludesall=/\\ "`
	// Game is the human readable name written into aggregated files
	Game string `yaml:"game,omitempty" json:"game,omitempty"`
	// Group merges several threads (e.g. the two halves of one game) during aggregation
	Group string `yaml:"group,omitempty" json:"group,omitempty"`
}

// AggregateConfig holds aggregation settings
type AggregateConfig struct {
	Directory        string  `yaml:"directory" json:"directory" validate:"required"`
	DeletedAuthor    string  `yaml:"deleted_author" json:"deleted_author"`
	TopFraction      float64 `yaml:"top_fraction" json:"top_fraction" validate:"gt=0,lte=1"`
	HistogramPreview int     `yaml:"histogram_preview" json:"histogram_preview" validate:"gte=0"`
}

// ExportConfig holds SQLite export settings
type ExportConfig struct {
	Database string `yaml:"database" json:"database" validate:"required"`
}

// MetricsConfig holds metrics output settings
type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in Prometheus text format
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level" validate:"oneof=debug info warn warning error disabled DEBUG INFO WARN WARNING ERROR"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "https://www.reddit.com",
			OAuthBaseURL: "https://oauth.reddit.com",
			UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Timeout:      15 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  6,
			BaseDelay:    1 * time.Second,
			MaxDelay:     5 * time.Minute,
			NetworkDelay: 3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
		},
		Fetch: FetchConfig{
			RootLimit:       500,
			RootDepth:       10,
			ChunkSize:       MaxChunkSize,
			CheckpointEvery: 50,
			ProgressEvery:   10,
			PacingDelay:     2 * time.Second,
			InitialDelay:    2 * time.Second,
			ThreadCooldown:  20 * time.Minute,
		},
		Output: OutputConfig{
			Directory: "./data/raw",
		},
		Aggregate: AggregateConfig{
			Directory:        "./data/derived",
			DeletedAuthor:    DefaultDeletedAuthor,
			TopFraction:      0.05,
			HistogramPreview: 20,
		},
		Export: ExportConfig{
			Database: "./data/threads.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// CheckpointDir returns the directory checkpoints are written to
func (c *Config) CheckpointDir() string {
	if c.Output.CheckpointDirectory != "" {
		return c.Output.CheckpointDirectory
	}
	return c.Output.Directory
}

// FindThread returns the configured target with the given label
func (c *Config) FindThread(label string) (ThreadTarget, bool) {
	for _, t := range c.Threads {
		if t.Label == label {
			return t, true
		}
	}
	return ThreadTarget{}, false
}

// GameName returns the display name used in aggregated output
func (t ThreadTarget) GameName() string {
	if t.Game != "" {
		return t.Game
	}
	return t.GroupName()
}

// GroupName returns the aggregation group, defaulting to the label
func (t ThreadTarget) GroupName() string {
	if t.Group != "" {
		return t.Group
	}
	return t.Label
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(envPrefix + "USER_AGENT"); v != "" {
		c.API.UserAgent = v
	}
	if v := os.Getenv(envPrefix + "ACCESS_TOKEN"); v != "" {
		c.API.AccessToken = v
	}
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv(envPrefix + "CHECKPOINT_DIR"); v != "" {
		c.Output.CheckpointDirectory = v
	}
	if v := os.Getenv(envPrefix + "DERIVED_DIR"); v != "" {
		c.Aggregate.Directory = v
	}
	if v := os.Getenv(envPrefix + "DATABASE"); v != "" {
		c.Export.Database = v
	}
	if v := os.Getenv(envPrefix + "METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(envPrefix + "REQUESTS_PER_MINUTE"); v != "" {
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil || val < 0 {
			errs = append(errs, fmt.Errorf("invalid %sREQUESTS_PER_MINUTE: %q", envPrefix, v))
		} else {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if v := os.Getenv(envPrefix + "MAX_ATTEMPTS"); v != "" {
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil || val <= 0 {
			errs = append(errs, fmt.Errorf("invalid %sMAX_ATTEMPTS: %q", envPrefix, v))
		} else {
			c.Retry.MaxAttempts = val
		}
	}

	durations := map[string]*time.Duration{
		"PACING_DELAY":    &c.Fetch.PacingDelay,
		"INITIAL_DELAY":   &c.Fetch.InitialDelay,
		"THREAD_COOLDOWN": &c.Fetch.ThreadCooldown,
		"TIMEOUT":         &c.API.Timeout,
	}
	for name, target := range durations {
		v := os.Getenv(envPrefix + name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err))
			continue
		}
		*target = d
	}

	return errors.Join(errs...)
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
	home := os.Getenv("HOME")
	locations := []string{
		"threadscraper.yaml",
		".threadscraper.yaml",
		".threadscraper.yml",
		filepath.Join(home, ".config", "threadscraper", "config.yaml"),
		filepath.Join(home, ".config", "threadscraper", "config.yml"),
		filepath.Join(home, ".threadscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, fieldErrors(validate.Struct(c))...)

	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		errs = append(errs, errors.New("retry base delay cannot exceed max delay"))
	}

	seen := make(map[string]string)
	for _, t := range c.Threads {
		if other, ok := seen[t.Label]; ok {
			errs = append(errs, fmt.Errorf("duplicate thread label %q (threads %s and %s)", t.Label, other, t.ID))
			continue
		}
		seen[t.Label] = t.ID
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate applies the same field rules as configured threads, for targets
// given on the command line
func (t ThreadTarget) Validate() error {
	return errors.Join(fieldErrors(validate.Struct(t))...)
}

func fieldErrors(err error) []error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Errorf("%s: failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return out
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

// Redacted returns a copy safe for display
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Threads = append([]ThreadTarget(nil), c.Threads...)
	if cp.API.AccessToken != "" {
		cp.API.AccessToken = "********"
	}
	return &cp
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output-dir"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["checkpoint-dir"].(string); ok && v != "" {
		c.Output.CheckpointDirectory = v
	}
	if v, ok := flags["derived-dir"].(string); ok && v != "" {
		c.Aggregate.Directory = v
	}
	if v, ok := flags["database"].(string); ok && v != "" {
		c.Export.Database = v
	}
	if v, ok := flags["user-agent"].(string); ok && v != "" {
		c.API.UserAgent = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := flags["metrics-textfile"].(string); ok && v != "" {
		c.Metrics.Textfile = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
	if v, ok := flags["overwrite"].(bool); ok && v {
		c.Output.Overwrite = true
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["checkpoint-every"].(int); ok && v > 0 {
		c.Fetch.CheckpointEvery = v
	}
	if v, ok := flags["pacing-delay"].(time.Duration); ok && v >= 0 {
		c.Fetch.PacingDelay = v
	}
	if v, ok := flags["cooldown"].(time.Duration); ok && v >= 0 {
		c.Fetch.ThreadCooldown = v
	}
	if v, ok := flags["top-fraction"].(float64); ok && v > 0 {
		c.Aggregate.TopFraction = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".threadscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	config.Logging.Level = strings.ToLower(config.Logging.Level)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
