package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheConfig holds all cache-related configuration
type CacheConfig struct {
	// Chart option LRU settings
	ChartLRUSize       int
	ChartLRUTTLMinutes int

	// S3 snapshot settings
	SnapshotTTLHours int

	// General settings
	EnableChartCache bool
	EnableSnapshots  bool
}

const (
	// Default values
	defaultChartLRUSize       = 500
	defaultChartLRUTTLMinutes = 5
	defaultSnapshotTTLHours   = 6
)

// GetCacheConfig returns the cache configuration from environment variables or defaults
func GetCacheConfig() *CacheConfig {
	config := &CacheConfig{
		ChartLRUSize:       getEnvInt("CACHE_CHART_LRU_SIZE", defaultChartLRUSize),
		ChartLRUTTLMinutes: getEnvInt("CACHE_CHART_LRU_TTL_MINUTES", defaultChartLRUTTLMinutes),
		SnapshotTTLHours:   getEnvInt("CACHE_SNAPSHOT_TTL_HOURS", defaultSnapshotTTLHours),
		EnableChartCache:   getEnvBool("CACHE_ENABLE_CHART", true),
		EnableSnapshots:    getEnvBool("CACHE_ENABLE_SNAPSHOTS", true),
	}

	log.Debug().
		Int("ChartLRUSize", config.ChartLRUSize).
		Int("ChartLRUTTLMinutes", config.ChartLRUTTLMinutes).
		Int("SnapshotTTLHours", config.SnapshotTTLHours).
		Bool("EnableChartCache", config.EnableChartCache).
		Bool("EnableSnapshots", config.EnableSnapshots).
		Msg("Cache configuration loaded")

	return config
}

func (c *CacheConfig) GetChartLRUTTL() time.Duration {
	return time.Duration(c.ChartLRUTTLMinutes) * time.Minute
}

func (c *CacheConfig) GetSnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}

// Helper functions to get environment variables with defaults
func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
