package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONSendsQueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "k", r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second))
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.GetJSON(context.Background(), srv.URL+"/x", url.Values{"vs_currency": {"usd"}}, map[string]string{"x-cg-demo-api-key": "k"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(strings.Repeat("x", 2*maxErrorBody)))
	}))
	defer srv.Close()

	err := NewClient().GetJSON(context.Background(), srv.URL, nil, nil, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Len(t, se.Body, maxErrorBody)
	assert.True(t, se.Retryable())
	assert.False(t, (&StatusError{Code: http.StatusNotFound}).Retryable())
}
