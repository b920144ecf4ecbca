package config

import (
	"os"
	"time"
)

// Config captures process-level configuration. Domain thresholds (detector
// tuning, retention periods) live with their owning packages; only deployment
// concerns are surfaced here.
type Config struct {
	Addr string

	// PostgresDSN enables the postgres-backed stores when set. Empty means
	// in-memory stores (development and tests).
	PostgresDSN string

	// RedisURL enables the shared cooldown store when set. Empty means the
	// per-process in-memory cooldown store.
	RedisURL string

	// SitesFile seeds the work-site registry from a JSON file. Empty starts
	// the engine with an empty registry.
	SitesFile string

	CooldownWindow  time.Duration
	FixTimeout      time.Duration
	MonitorInterval time.Duration
	SweepInterval   time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            getEnv("VERILOC_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("VERILOC_POSTGRES_DSN"),
		RedisURL:        os.Getenv("VERILOC_REDIS_URL"),
		SitesFile:       os.Getenv("VERILOC_SITES_FILE"),
		CooldownWindow:  getDuration("VERILOC_COOLDOWN_WINDOW", 5*time.Minute),
		FixTimeout:      getDuration("VERILOC_FIX_TIMEOUT", 30*time.Second),
		MonitorInterval: getDuration("VERILOC_MONITOR_INTERVAL", 5*time.Minute),
		SweepInterval:   getDuration("VERILOC_SWEEP_INTERVAL", time.Hour),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
