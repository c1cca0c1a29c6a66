package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// ListenHost is the interface the HTTP server binds to.
	ListenHost string

	// Hostname is the public hostname where this service is reachable
	// (used for did:web).
	Hostname string

	// ServiceDID is the DID this service identifies as.
	ServiceDID string

	// PublisherDID is the DID of the account operating the tracker.
	PublisherDID string

	// SQLitePath is the SQLite database location. ":memory:" is valid but
	// loses everything on restart.
	SQLitePath string

	// SubscriptionEndpoint is the Jetstream WebSocket endpoint.
	SubscriptionEndpoint string

	// SubscriptionReconnectDelay is how long to wait before re-dialing the
	// firehose after a dropped connection.
	SubscriptionReconnectDelay time.Duration

	// BskyUsername and BskyPassword are the App Password credentials used
	// for profile lookups.
	BskyUsername string
	BskyPassword string

	// CacheCapacity is the per-tier author cache size.
	CacheCapacity int

	// DrainInterval is the queue drain cadence; DrainBatchSize caps how
	// many queued events one tick processes.
	DrainInterval  time.Duration
	DrainBatchSize int

	// PruneInterval is the retention cadence; RetentionCount is how many
	// of the most recent posts survive a prune.
	PruneInterval  time.Duration
	RetentionCount int
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.Port)
}

// Load reads configuration from environment variables, after loading a
// .env file when one is present. Missing required values are an error.
func Load() (*Config, error) {
	// A .env file is a development convenience; production supplies the
	// environment directly.
	_ = godotenv.Load()

	hostname := envString("FEEDGEN_HOSTNAME", "example.com")

	cfg := &Config{
		Port:                 envInt("FEEDGEN_PORT", 3000),
		ListenHost:           envString("FEEDGEN_LISTENHOST", "localhost"),
		Hostname:             hostname,
		ServiceDID:           envString("FEEDGEN_SERVICE_DID", "did:web:"+hostname),
		PublisherDID:         os.Getenv("FEEDGEN_PUBLISHER_DID"),
		SQLitePath:           envString("FEEDGEN_SQLITE_LOCATION", ":memory:"),
		SubscriptionEndpoint: envString("FEEDGEN_SUBSCRIPTION_ENDPOINT", "wss://jetstream1.us-east.bsky.network/subscribe"),

		SubscriptionReconnectDelay: millis(envInt("FEEDGEN_SUBSCRIPTION_RECONNECT_DELAY", 3000)),

		BskyUsername: os.Getenv("BSKY_USERNAME"),
		BskyPassword: os.Getenv("BSKY_PASSWORD"),

		CacheCapacity:  envInt("TRACKER_CACHE_CAPACITY", 100000),
		DrainInterval:  millis(envInt("TRACKER_DRAIN_INTERVAL_MS", 1000)),
		DrainBatchSize: envInt("TRACKER_DRAIN_BATCH_SIZE", 1000),
		PruneInterval:  millis(envInt("TRACKER_PRUNE_INTERVAL_MS", 30000)),
		RetentionCount: envInt("TRACKER_RETENTION_COUNT", 10000),
	}

	if cfg.PublisherDID == "" {
		return nil, fmt.Errorf("FEEDGEN_PUBLISHER_DID is required")
	}
	if cfg.BskyUsername == "" || cfg.BskyPassword == "" {
		return nil, fmt.Errorf("BSKY_USERNAME and BSKY_PASSWORD are required")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
