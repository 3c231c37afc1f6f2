package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
	"AgentTrader/pkg/logger"
)

func TestBackfillParsesKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5m", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			[1700000000000,"2000.1","2010.0","1995.5","2005.2","12.5",1700000299999,"0",10,"0","0","0"],
			[1700000300000,"2005.2","2008.0","2001.0","2002.0","8.25",1700000599999,"0",7,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	c := New(Config{RestURL: srv.URL}, logger.Nop())
	cs, err := c.Backfill(context.Background(), models.TF5m, 2)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, models.Candle{Time: 1700000000, Open: 2000.1, High: 2010, Low: 1995.5, Close: 2005.2, Volume: 12.5}, cs[0])
	assert.Equal(t, int64(1700000300), cs[1].Time)
}

func TestBackfillMalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1700000000000,"x","1","1","1","1"]]`))
	}))
	defer srv.Close()

	c := New(Config{RestURL: srv.URL}, logger.Nop())
	_, err := c.Backfill(context.Background(), models.TF1m, 1)
	assert.Error(t, err)
}

func TestDecodeStreamMessage(t *testing.T) {
	frame := `{"stream":"ethusdt@kline_1m","data":{"e":"kline","E":1700000065000,"s":"ETHUSDT",
		"k":{"t":1700000040000,"T":1700000099999,"s":"ETHUSDT","i":"1m","o":"2000","c":"2001.5","h":"2002","l":"1999","v":"3.5","x":true}}}`
	u, ok, err := DecodeStreamMessage([]byte(frame))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.TF1m, u.Timeframe)
	assert.Equal(t, int64(1700000040), u.Candle.Time)
	assert.Equal(t, 2001.5, u.Candle.Close)
	assert.True(t, u.Closed)

	_, ok, err = DecodeStreamMessage([]byte(`{"result":null,"id":1}`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamURL(t *testing.T) {
	c := New(Config{StreamURL: "wss://example/stream", Symbol: "ETHUSDT"}, nil)
	assert.Equal(t, "wss://example/stream?streams=ethusdt@kline_1m/ethusdt@kline_1h",
		c.StreamURL([]models.Timeframe{models.TF1m, models.TF1h}))
}

func TestStreamDeliversUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		frame := `{"stream":"ethusdt@kline_5m","data":{"e":"kline","k":{"t":1700000100000,"i":"5m","o":"1","c":"2","h":"3","l":"0.5","v":"9","x":false}}}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{StreamURL: "ws" + strings.TrimPrefix(srv.URL, "http"), ReconnectDelay: time.Hour}, logger.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make(chan models.CandleUpdate, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Stream(ctx, []models.Timeframe{models.TF5m}, func(u models.CandleUpdate) {
			select {
			case got <- u:
			default:
			}
		})
	}()

	select {
	case u := <-got:
		assert.Equal(t, models.TF5m, u.Timeframe)
		assert.Equal(t, 2.0, u.Candle.Close)
	case <-ctx.Done():
		t.Fatal("no update received")
	}
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
