package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "x", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	b := NewHTTPServiceBase("test", srv.URL, time.Second)
	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, b.GetJSON(context.Background(), "/v", map[string][]string{"q": {"x"}}, &out))
	assert.Equal(t, 42, out.Value)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := NewHTTPServiceBase("test", srv.URL, time.Second, WithBreaker(2, time.Minute))
	ctx := context.Background()
	var out map[string]interface{}

	assert.Error(t, b.GetJSON(ctx, "/", nil, &out))
	assert.Error(t, b.GetJSON(ctx, "/", nil, &out))
	err := b.GetJSONWithRetry(ctx, "/", nil, &out, 3)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load(), "open breaker short-circuits")
	assert.Equal(t, "open", b.State())
}

func TestNotInitialized(t *testing.T) {
	b := NewHTTPServiceBase("test", "", time.Second)
	assert.ErrorIs(t, b.GetJSON(context.Background(), "/", nil, nil), ErrNotInitialized)
}
