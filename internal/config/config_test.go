package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FEEDGEN_PUBLISHER_DID", "did:plc:publisher")
	t.Setenv("BSKY_USERNAME", "tracker.bsky.social")
	t.Setenv("BSKY_PASSWORD", "app-password")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 3000, cfg.Port)
	require.Equal(t, "localhost", cfg.ListenHost)
	require.Equal(t, "localhost:3000", cfg.ListenAddr())
	require.Equal(t, "did:web:example.com", cfg.ServiceDID)
	require.Equal(t, ":memory:", cfg.SQLitePath)
	require.Equal(t, "wss://jetstream1.us-east.bsky.network/subscribe", cfg.SubscriptionEndpoint)
	require.Equal(t, 3*time.Second, cfg.SubscriptionReconnectDelay)
	require.Equal(t, 100000, cfg.CacheCapacity)
	require.Equal(t, time.Second, cfg.DrainInterval)
	require.Equal(t, 1000, cfg.DrainBatchSize)
	require.Equal(t, 30*time.Second, cfg.PruneInterval)
	require.Equal(t, 10000, cfg.RetentionCount)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FEEDGEN_PORT", "8080")
	t.Setenv("FEEDGEN_HOSTNAME", "tracker.example.net")
	t.Setenv("FEEDGEN_SQLITE_LOCATION", "/var/lib/tracker/posts.db")
	t.Setenv("FEEDGEN_SUBSCRIPTION_RECONNECT_DELAY", "500")
	t.Setenv("TRACKER_RETENTION_COUNT", "250")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "did:web:tracker.example.net", cfg.ServiceDID)
	require.Equal(t, "/var/lib/tracker/posts.db", cfg.SQLitePath)
	require.Equal(t, 500*time.Millisecond, cfg.SubscriptionReconnectDelay)
	require.Equal(t, 250, cfg.RetentionCount)
}

func TestLoadRequiresPublisherDID(t *testing.T) {
	setRequired(t)
	t.Setenv("FEEDGEN_PUBLISHER_DID", "")

	_, err := Load()
	require.ErrorContains(t, err, "FEEDGEN_PUBLISHER_DID")
}

func TestLoadRequiresCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("BSKY_PASSWORD", "")

	_, err := Load()
	require.ErrorContains(t, err, "BSKY_USERNAME and BSKY_PASSWORD")
}
