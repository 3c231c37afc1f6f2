package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AgentTrader/internal/service/metrics"
	xhttp "AgentTrader/pkg/http"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrNotInitialized is returned when a base was built without a URL.
var ErrNotInitialized = errors.New("upstream http client not initialized")

// HTTPServiceBase is the shared foundation for market data REST clients:
// JSON GETs behind a circuit breaker and an outbound rate limit.
type HTTPServiceBase struct {
	name    string
	baseURL string
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	headers map[string]string
}

type Option func(*HTTPServiceBase)

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(b *HTTPServiceBase) {
		if rps > 0 {
			if burst <= 0 {
				burst = 1
			}
			b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(b *HTTPServiceBase) {
		if value != "" {
			b.headers[key] = value
		}
	}
}

// WithBreaker trips after consecutive failures and stays open for cooldown.
func WithBreaker(consecutive uint32, cooldown time.Duration) Option {
	return func(b *HTTPServiceBase) {
		b.breaker = newBreaker(b.name, consecutive, cooldown)
	}
}

func NewHTTPServiceBase(name, baseURL string, timeout time.Duration, opts ...Option) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b := &HTTPServiceBase{
		name:    name,
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		headers: map[string]string{"Accept": "application/json"},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.breaker == nil {
		b.breaker = newBreaker(name, 3, 30*time.Second)
	}
	return b
}

func newBreaker(name string, consecutive uint32, cooldown time.Duration) *gobreaker.CircuitBreaker {
	if consecutive == 0 {
		consecutive = 3
	}
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  cooldown,
	}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= consecutive
	}
	return gobreaker.NewCircuitBreaker(st)
}

// GetJSON fetches baseURL+path and decodes the JSON body into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return ErrNotInitialized
	}
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("get %s: %w", path, err)
		}
	}
	start := time.Now()
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.GetJSON(ctx, b.baseURL+path, query, b.headers, dest)
	})
	metrics.Observe(b.name, path, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

// GetJSONWithRetry retries transient failures with linear backoff. An open
// breaker and client errors other than 429 are not retried.
func (b *HTTPServiceBase) GetJSONWithRetry(ctx context.Context, path string, query map[string][]string, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.GetJSON(ctx, path, query, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.GetJSON(ctx, path, query, dest)
		if err == nil || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, ErrNotInitialized) {
			return err
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return err
		}
		if i == attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// State reports the breaker state, for health output.
func (b *HTTPServiceBase) State() string {
	return b.breaker.State().String()
}
