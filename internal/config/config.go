package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeZone   = "America/Chicago"
	DefaultAPIBaseURL = "https://api.floodwatch.example.com"
)

type Config struct {
	Environment string
	LogLevel    zerolog.Level
	HTTPTimeout time.Duration
	MaxRetries  int
	APIBaseURL  string
	Region      string
	TimeZone    string

	// ForecastGaugeIDs are the gauges forecasts are requested for.
	ForecastGaugeIDs []string

	SnapshotBucket string
	LocationsTable string
	DynamoEndpoint string

	GaugePollInterval    time.Duration
	ReadingsPollInterval time.Duration
	ForecastPollInterval time.Duration
	MetricsAddr          string

	CrestMinProminenceFt float64
	CrestMaxNeighborGap  time.Duration
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

func WithMaxRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxRetries = n
		}
	}
}

func WithAPIBaseURL(url string) Option {
	return func(c *Config) {
		c.APIBaseURL = strings.TrimRight(url, "/")
	}
}

func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

func WithTimeZone(tz string) Option {
	return func(c *Config) {
		c.TimeZone = tz
	}
}

func WithForecastGaugeIDs(ids []string) Option {
	return func(c *Config) {
		c.ForecastGaugeIDs = ids
	}
}

// WithStorage sets where snapshots and location metadata live. An empty
// dynamoEndpoint means the default AWS endpoint.
func WithStorage(bucket, table, dynamoEndpoint string) Option {
	return func(c *Config) {
		c.SnapshotBucket = bucket
		c.LocationsTable = table
		c.DynamoEndpoint = dynamoEndpoint
	}
}

func WithPollIntervals(gauges, readings, forecasts time.Duration) Option {
	return func(c *Config) {
		c.GaugePollInterval = gauges
		c.ReadingsPollInterval = readings
		c.ForecastPollInterval = forecasts
	}
}

func WithMetricsAddr(addr string) Option {
	return func(c *Config) {
		c.MetricsAddr = addr
	}
}

// WithCrest sets the crest thresholds. A prominence of 0 accepts any
// interior maximum; negative values keep the default.
func WithCrest(minProminenceFt float64, maxNeighborGap time.Duration) Option {
	return func(c *Config) {
		if minProminenceFt >= 0 {
			c.CrestMinProminenceFt = minProminenceFt
		}
		if maxNeighborGap > 0 {
			c.CrestMaxNeighborGap = maxNeighborGap
		}
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:          "production",
		LogLevel:             zerolog.InfoLevel,
		HTTPTimeout:          10 * time.Second,
		MaxRetries:           3,
		APIBaseURL:           DefaultAPIBaseURL,
		Region:               "default",
		TimeZone:             DefaultTimeZone,
		LocationsTable:       "gauge-locations",
		GaugePollInterval:    5 * time.Minute,
		ReadingsPollInterval: time.Minute,
		ForecastPollInterval: 30 * time.Minute,
		MetricsAddr:          ":9090",
		CrestMinProminenceFt: 1.0,
		CrestMaxNeighborGap:  120 * time.Minute,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.IsLocal() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

func (c *Config) IsLocal() bool {
	return c.Environment == "local" || c.Environment == "development"
}

// Location resolves TimeZone, falling back to UTC when the zone database does
// not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Warn().Err(err).Str("time_zone", c.TimeZone).Msg("Unknown time zone, using UTC")
		return time.UTC
	}
	return loc
}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is read first when present; real environment
// variables win.
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not read .env file")
	}

	return New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 10*time.Second)),
		WithMaxRetries(getEnvInt("HTTP_MAX_RETRIES", 3)),
		WithAPIBaseURL(getEnvOrDefault("API_BASE_URL", DefaultAPIBaseURL)),
		WithRegion(getEnvOrDefault("REGION", "default")),
		WithTimeZone(getEnvOrDefault("TIME_ZONE", DefaultTimeZone)),
		WithForecastGaugeIDs(getListEnv("FORECAST_GAUGE_IDS")),
		WithStorage(
			os.Getenv("SNAPSHOT_BUCKET"),
			getEnvOrDefault("LOCATIONS_TABLE", "gauge-locations"),
			os.Getenv("DYNAMODB_ENDPOINT"),
		),
		WithPollIntervals(
			getDurationEnvOrDefault("GAUGE_POLL_INTERVAL", 5*time.Minute),
			getDurationEnvOrDefault("READINGS_POLL_INTERVAL", time.Minute),
			getDurationEnvOrDefault("FORECAST_POLL_INTERVAL", 30*time.Minute),
		),
		WithMetricsAddr(getEnvOrDefault("METRICS_ADDR", ":9090")),
		WithCrest(
			getFloatEnvOrDefault("CREST_MIN_PROMINENCE_FT", 1.0),
			getDurationEnvOrDefault("CREST_MAX_NEIGHBOR_GAP", 120*time.Minute),
		),
	)
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

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Msg("Invalid float value in environment variable, using default")
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping empty items.
func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
