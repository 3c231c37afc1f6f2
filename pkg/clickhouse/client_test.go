package clickhouse

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(ClientConfig{
		Host:        "ch.local",
		Port:        9000,
		Database:    "agenttrader",
		User:        "writer",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		AsyncInsert: true,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/agenttrader", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	assert.Equal(t, "5s", u.Query().Get("dial_timeout"))
	assert.Equal(t, "1", u.Query().Get("async_insert"))
	assert.Empty(t, u.Query().Get("wait_for_async_insert"))
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := BuildDSN(ClientConfig{Host: "h", Port: 8123, Database: "d", UseHTTP: true})
	assert.Contains(t, dsn, "http://")
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}

func TestOptionsKeepDefaultsForZeroValues(t *testing.T) {
	cfg := defaultClientConfig()
	for _, opt := range []ClientOption{
		WithServer("ch", 0, false),
		WithAuth("", "", "pw"),
		WithLimits(0, 0, 30*time.Second),
	} {
		opt(&cfg)
	}
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "default", cfg.Database)
	assert.Equal(t, "default", cfg.User)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Contains(t, BuildDSN(cfg), "max_execution_time=30")
}
