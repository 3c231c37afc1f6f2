package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"
	"AgentTrader/internal/service/upstream"
	"AgentTrader/pkg/logger"

	"github.com/gorilla/websocket"
)

// Config points the client at Binance REST and websocket endpoints.
type Config struct {
	RestURL        string
	StreamURL      string
	Symbol         string
	Timeout        time.Duration
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RestURL:        "https://api.binance.com",
		StreamURL:      "wss://stream.binance.com:9443/stream",
		Symbol:         "ETHUSDT",
		Timeout:        10 * time.Second,
		ReconnectDelay: 3 * time.Second,
		PingInterval:   30 * time.Second,
	}
}

// Client is a CandleSource backed by Binance klines.
type Client struct {
	cfg  Config
	rest *upstream.HTTPServiceBase
	log  *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Client {
	def := DefaultConfig()
	if cfg.RestURL == "" {
		cfg.RestURL = def.RestURL
	}
	if cfg.StreamURL == "" {
		cfg.StreamURL = def.StreamURL
	}
	if cfg.Symbol == "" {
		cfg.Symbol = def.Symbol
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		cfg:  cfg,
		rest: upstream.NewHTTPServiceBase("binance", strings.TrimRight(cfg.RestURL, "/"), cfg.Timeout, upstream.WithBreaker(5, 30*time.Second)),
		log:  log,
	}
}

// Backfill loads the most recent limit klines, oldest first.
func (c *Client) Backfill(ctx context.Context, tf models.Timeframe, limit int) ([]models.Candle, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	var rows [][]json.RawMessage
	q := map[string][]string{
		"symbol":   {strings.ToUpper(c.cfg.Symbol)},
		"interval": {tf.String()},
		"limit":    {strconv.Itoa(limit)},
	}
	if err := c.rest.GetJSONWithRetry(ctx, "/api/v3/klines", q, &rows, 3); err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", tf, err)
	}
	out := make([]models.Candle, 0, len(rows))
	for i, r := range rows {
		cd, err := parseRestKline(r)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s row %d: %w", tf, i, err)
		}
		out = append(out, cd)
	}
	return out, nil
}

func parseRestKline(r []json.RawMessage) (models.Candle, error) {
	if len(r) < 6 {
		return models.Candle{}, fmt.Errorf("short row (%d fields)", len(r))
	}
	var openMs int64
	if err := json.Unmarshal(r[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		var s string
		if err := json.Unmarshal(r[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = f
	}
	return models.Candle{Time: openMs / 1000, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}, nil
}

type streamEnvelope struct {
	Stream string     `json:"stream"`
	Data   klineEvent `json:"data"`
}

type klineEvent struct {
	Event string    `json:"e"`
	Kline wireKline `json:"k"`
}

type wireKline struct {
	Start    int64  `json:"t"`
	Interval string `json:"i"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

// StreamURL builds the combined-stream URL for the given timeframes.
func (c *Client) StreamURL(tfs []models.Timeframe) string {
	sym := strings.ToLower(c.cfg.Symbol)
	names := make([]string, len(tfs))
	for i, tf := range tfs {
		names[i] = sym + "@kline_" + tf.String()
	}
	return c.cfg.StreamURL + "?streams=" + strings.Join(names, "/")
}

// Stream follows the kline websocket and reconnects until ctx is cancelled.
func (c *Client) Stream(ctx context.Context, tfs []models.Timeframe, fn func(models.CandleUpdate)) error {
	url := c.StreamURL(tfs)
	for {
		err := c.streamOnce(ctx, url, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("binance stream dropped, reconnecting",
			logger.Error(err), logger.Duration("delay", c.cfg.ReconnectDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, url string, fn func(models.CandleUpdate)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	defer conn.Close()
	c.log.Info("binance stream connected", logger.String("url", url))

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("binance read: %w", err)
		}
		u, ok, err := DecodeStreamMessage(b)
		if err != nil {
			c.log.Debug("binance frame skipped", logger.Error(err))
			continue
		}
		if ok {
			fn(u)
		}
	}
}

// DecodeStreamMessage turns one combined-stream frame into a candle update.
// Non-kline frames return ok=false.
func DecodeStreamMessage(b []byte) (models.CandleUpdate, bool, error) {
	var env streamEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return models.CandleUpdate{}, false, fmt.Errorf("decode frame: %w", err)
	}
	if env.Data.Event != "kline" {
		return models.CandleUpdate{}, false, nil
	}
	k := env.Data.Kline
	vals := make([]float64, 5)
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.CandleUpdate{}, false, fmt.Errorf("kline field %d: %w", i, err)
		}
		vals[i] = f
	}
	return models.CandleUpdate{
		Timeframe: models.Timeframe(k.Interval),
		Candle: models.Candle{
			Time:   k.Start / 1000,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		},
		Closed: k.Closed,
	}, true, nil
}

var _ domrepo.CandleSource = (*Client)(nil)
