package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartJSON(prices ...float64) string {
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = fmt.Sprintf("[%d,%g]", 1_700_000_000_000+int64(i)*3_600_000, p)
	}
	return `{"prices":[` + strings.Join(parts, ",") + `]}`
}

func newServer(t *testing.T, global string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/global":
			_, _ = w.Write([]byte(global))
		case "/coins/ethereum/market_chart":
			assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
			assert.Equal(t, "30", r.URL.Query().Get("days"))
			_, _ = w.Write([]byte(chartJSON(2000, 2010, 1990)))
		case "/coins/bitcoin/market_chart":
			_, _ = w.Write([]byte(chartJSON(40000, 40100, 39900)))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetchInputs(t *testing.T) {
	srv := newServer(t, `{"data":{"market_cap_percentage":{"btc":51.5,"eth":17.2}}}`)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RateLimit: -1})
	in, err := c.FetchInputs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 51.5, in.Dominance)
	assert.Equal(t, []float64{2000, 2010, 1990}, in.PrimaryPrices)
	assert.Equal(t, []float64{40000, 40100, 39900}, in.ReferencePrices)
}

func TestFetchInputsMissingDominance(t *testing.T) {
	srv := newServer(t, `{"data":{"market_cap_percentage":{"eth":17.2}}}`)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RateLimit: -1})
	_, err := c.FetchInputs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market_cap_percentage.btc")
}

func TestFetchInputsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RateLimit: -1})
	_, err := c.FetchInputs(context.Background())
	assert.Error(t, err)
}
