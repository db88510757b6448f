package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// MaxRowLimit caps every row-limit tier.
const MaxRowLimit = 400_000

const defaultRowTiers = "5000,10000,25000,50000,100000,200000,400000"

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataPath        string
	RowTiers        []int
	DefaultRowLimit int
	Preload         bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox reverse geocoding of the density map center.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	tiers, err := parseRowTiers(sharedcfg.EnvOrDefault("ROW_TIERS", defaultRowTiers))
	if err != nil {
		return nil, err
	}

	defaultLimit := tiers[0]
	if s := os.Getenv("DEFAULT_ROW_LIMIT"); s != "" {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || !slices.Contains(tiers, n) {
			return nil, fmt.Errorf("invalid DEFAULT_ROW_LIMIT %q: must be one of ROW_TIERS", s)
		}
		defaultLimit = n
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		DataPath:        sharedcfg.EnvOrDefault("DATA_PATH", "Motor_Vehicle_Collisions_-_Crashes.csv"),
		RowTiers:        tiers,
		DefaultRowLimit: defaultLimit,
		Preload:         sharedcfg.EnvOrDefault("PRELOAD", "true") == "true",
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.DataPath == "" {
		return nil, errors.New("DATA_PATH is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// parseRowTiers parses a comma-separated list of strictly increasing positive
// row limits no larger than MaxRowLimit.
func parseRowTiers(s string) ([]int, error) {
	var tiers []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 || n > MaxRowLimit {
			return nil, fmt.Errorf("invalid ROW_TIERS entry %q: must be in [1,%d]", part, MaxRowLimit)
		}
		if len(tiers) > 0 && n <= tiers[len(tiers)-1] {
			return nil, fmt.Errorf("invalid ROW_TIERS: %d is not greater than %d", n, tiers[len(tiers)-1])
		}
		tiers = append(tiers, n)
	}
	if len(tiers) == 0 {
		return nil, errors.New("ROW_TIERS is required")
	}
	return tiers, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
