package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	defaultLDBWSURL          = "https://lite.realtime.nationalrail.co.uk/OpenLDBWS/ldb12.asmx"
	defaultStationsSource    = "resources/stations.csv"
	defaultIgnoreSource      = "resources/ignore-stations.json"
	defaultResolverCacheSize = 1000
	defaultNumRows           = 10
	defaultPort              = "3000"
)

// ErrMissingAPIKey means no LDBWS access token was configured
var ErrMissingAPIKey = errors.New("no API key set")

type Config struct {
	Environment string
	LogLevel    zerolog.Level
	HTTPTimeout time.Duration
	MaxRetries  int

	APIKey   string
	LDBWSURL string
	NumRows  int

	StationsSource       string
	IgnoreStationsSource string
	ResolverCacheSize    int
	MaxConcurrentDetails int

	Port string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

func WithLDBWSURL(url string) Option {
	return func(c *Config) {
		c.LDBWSURL = url
	}
}

func WithNumRows(n int) Option {
	return func(c *Config) {
		c.NumRows = n
	}
}

// WithStationsSource sets where the station list and ignore list are read from.
// Each may be a file path, an http(s) URL or an s3:// URI.
func WithStationsSource(stations, ignore string) Option {
	return func(c *Config) {
		c.StationsSource = stations
		c.IgnoreStationsSource = ignore
	}
}

// WithResolverCacheSize sets how many station queries are memoized. 0 disables the memo.
func WithResolverCacheSize(size int) Option {
	return func(c *Config) {
		c.ResolverCacheSize = size
	}
}

// WithMaxConcurrentDetails bounds parallel service detail calls. 0 means unbounded.
func WithMaxConcurrentDetails(n int) Option {
	return func(c *Config) {
		c.MaxConcurrentDetails = n
	}
}

func WithPort(port string) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:          "production",
		LogLevel:             zerolog.InfoLevel,
		HTTPTimeout:          10 * time.Second,
		MaxRetries:           3,
		LDBWSURL:             defaultLDBWSURL,
		NumRows:              defaultNumRows,
		StationsSource:       defaultStationsSource,
		IgnoreStationsSource: defaultIgnoreSource,
		ResolverCacheSize:    defaultResolverCacheSize,
		Port:                 defaultPort,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Validate reports settings that make departures impossible to fetch
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

// LoadFromEnv loads configuration from environment variables, with the YAML
// file named by CONFIG_FILE (if any) supplying values the environment leaves unset.
func LoadFromEnv() *Config {
	cfg, err := Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring unreadable config file")
		cfg, _ = Load("")
	}
	return cfg
}

// Load builds the configuration from defaults, then the YAML file at path,
// then environment variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	file := fileValues{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	return New(
		WithEnvironment(file.getEnvOrDefault("ENV", "production")),
		WithLogLevel(file.getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", file.durationOrDefault("HTTP_TIMEOUT", 10*time.Second))),
		WithAPIKey(file.getEnvOrDefault("API_KEY", "")),
		WithLDBWSURL(file.getEnvOrDefault("LDBWS_URL", defaultLDBWSURL)),
		WithNumRows(getEnvInt("NUM_ROWS", file.intOrDefault("NUM_ROWS", defaultNumRows))),
		WithStationsSource(
			file.getEnvOrDefault("STATIONS_SOURCE", defaultStationsSource),
			file.getEnvOrDefault("IGNORE_STATIONS_SOURCE", defaultIgnoreSource),
		),
		WithResolverCacheSize(getEnvInt("RESOLVER_CACHE_SIZE", file.intOrDefault("RESOLVER_CACHE_SIZE", defaultResolverCacheSize))),
		WithMaxConcurrentDetails(getEnvInt("MAX_CONCURRENT_DETAILS", file.intOrDefault("MAX_CONCURRENT_DETAILS", 0))),
		WithPort(file.getEnvOrDefault("PORT", defaultPort)),
	), nil
}

// fileValues holds the top level keys of the YAML config file
type fileValues map[string]any

// getEnvOrDefault prefers the environment, then the file, then defaultValue
func (f fileValues) getEnvOrDefault(key, defaultValue string) string {
	return getEnvOrDefault(key, f.stringOrDefault(key, defaultValue))
}

func (f fileValues) stringOrDefault(key, defaultValue string) string {
	if v, ok := f[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return defaultValue
}

func (f fileValues) intOrDefault(key string, defaultValue int) int {
	s := f.stringOrDefault(key, "")
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Warn().Str("key", key).Msg("Invalid integer value in config file, using default")
		return defaultValue
	}
	return n
}

func (f fileValues) durationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(f.stringOrDefault(key, "")); err == nil {
		return d
	}
	return defaultValue
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}
