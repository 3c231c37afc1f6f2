package coingecko

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"
	"AgentTrader/internal/service/upstream"
)

// Config selects the assets and history window for macro inputs.
type Config struct {
	BaseURL         string
	APIKey          string
	PrimaryID       string // e.g. ethereum
	ReferenceID     string // e.g. bitcoin
	DominanceSymbol string // key in market_cap_percentage, e.g. btc
	Days            int
	Interval        string
	Timeout         time.Duration
	RateLimit       float64 // requests per second
}

func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://api.coingecko.com/api/v3",
		PrimaryID:       "ethereum",
		ReferenceID:     "bitcoin",
		DominanceSymbol: "btc",
		Days:            30,
		Interval:        "hourly",
		Timeout:         15 * time.Second,
		RateLimit:       0.5,
	}
}

// Client fetches dominance and hourly price histories from CoinGecko.
type Client struct {
	cfg  Config
	base *upstream.HTTPServiceBase
}

func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PrimaryID == "" {
		cfg.PrimaryID = def.PrimaryID
	}
	if cfg.ReferenceID == "" {
		cfg.ReferenceID = def.ReferenceID
	}
	if cfg.DominanceSymbol == "" {
		cfg.DominanceSymbol = def.DominanceSymbol
	}
	if cfg.Days <= 0 {
		cfg.Days = def.Days
	}
	opts := []upstream.Option{
		upstream.WithBreaker(3, time.Minute),
		upstream.WithHeader("x-cg-demo-api-key", cfg.APIKey),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, upstream.WithRateLimit(cfg.RateLimit, 3))
	}
	return &Client{
		cfg:  cfg,
		base: upstream.NewHTTPServiceBase("coingecko", strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout, opts...),
	}
}

type globalResponse struct {
	Data struct {
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

type marketChart struct {
	Prices [][]float64 `json:"prices"`
}

// FetchInputs runs the three upstream requests concurrently. Any failure or
// malformed payload fails the whole fetch.
func (c *Client) FetchInputs(ctx context.Context) (models.MacroInputs, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		dominance float64
		primary   []float64
		reference []float64
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		d, err := c.Dominance(ctx)
		if err != nil {
			fail(err)
			return
		}
		dominance = d
	}()
	go func() {
		defer wg.Done()
		p, err := c.HourlyPrices(ctx, c.cfg.PrimaryID)
		if err != nil {
			fail(err)
			return
		}
		primary = p
	}()
	go func() {
		defer wg.Done()
		p, err := c.HourlyPrices(ctx, c.cfg.ReferenceID)
		if err != nil {
			fail(err)
			return
		}
		reference = p
	}()
	wg.Wait()

	if firstErr != nil {
		return models.MacroInputs{}, firstErr
	}
	return models.MacroInputs{Dominance: dominance, PrimaryPrices: primary, ReferencePrices: reference}, nil
}

// Dominance returns the reference asset's market cap share in percent.
func (c *Client) Dominance(ctx context.Context) (float64, error) {
	var g globalResponse
	if err := c.base.GetJSONWithRetry(ctx, "/global", nil, &g, 2); err != nil {
		return 0, fmt.Errorf("coingecko global: %w", err)
	}
	d, ok := g.Data.MarketCapPercentage[c.cfg.DominanceSymbol]
	if !ok || math.IsNaN(d) {
		return 0, fmt.Errorf("coingecko global: market_cap_percentage.%s missing", c.cfg.DominanceSymbol)
	}
	return d, nil
}

// HourlyPrices returns the close prices of coin over the configured window, oldest first.
func (c *Client) HourlyPrices(ctx context.Context, coin string) ([]float64, error) {
	q := map[string][]string{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(c.cfg.Days)},
	}
	if c.cfg.Interval != "" {
		q["interval"] = []string{c.cfg.Interval}
	}
	var mc marketChart
	if err := c.base.GetJSONWithRetry(ctx, "/coins/"+coin+"/market_chart", q, &mc, 2); err != nil {
		return nil, fmt.Errorf("coingecko %s chart: %w", coin, err)
	}
	out := make([]float64, 0, len(mc.Prices))
	for i, p := range mc.Prices {
		if len(p) < 2 {
			return nil, fmt.Errorf("coingecko %s chart: malformed point %d", coin, i)
		}
		out = append(out, p[1])
	}
	return out, nil
}

// BreakerState exposes the upstream breaker for health output.
func (c *Client) BreakerState() string {
	return c.base.State()
}

var _ domrepo.MacroSource = (*Client)(nil)
