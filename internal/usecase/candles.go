package usecase

import (
	"fmt"
	"sort"
	"sync"

	"AgentTrader/internal/domain/models"
)

// DefaultSeriesCap bounds each timeframe's live series.
const DefaultSeriesCap = 600

type series struct {
	candles []models.Candle
	version uint64
}

// CandleBook holds the live candle series per timeframe. Updates are
// upserted by bar time: a repeated timestamp overwrites, a newer one appends.
type CandleBook struct {
	mu      sync.RWMutex
	cap     int
	byTF    map[models.Timeframe]*series
	version uint64
}

func NewCandleBook(capacity int) *CandleBook {
	if capacity <= 0 {
		capacity = DefaultSeriesCap
	}
	return &CandleBook{cap: capacity, byTF: make(map[models.Timeframe]*series)}
}

// Replace installs a backfilled series. Input order is not trusted; bars are
// sorted and deduplicated (last one wins) before the cap is applied.
func (b *CandleBook) Replace(tf models.Timeframe, candles []models.Candle) error {
	if !models.IsValidTimeframe(tf) {
		return fmt.Errorf("unsupported timeframe %q", tf)
	}
	clean := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if err := c.Validate(); err != nil {
			continue
		}
		clean = append(clean, c)
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Time < clean[j].Time })
	dedup := clean[:0]
	for _, c := range clean {
		if n := len(dedup); n > 0 && dedup[n-1].Time == c.Time {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	if len(dedup) > b.cap {
		dedup = dedup[len(dedup)-b.cap:]
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.get(tf)
	s.candles = append([]models.Candle(nil), dedup...)
	s.version++
	b.version++
	return nil
}

// Upsert applies one live bar. It reports whether the series changed; a bar
// older than the newest retained one is ignored.
func (b *CandleBook) Upsert(tf models.Timeframe, c models.Candle) (bool, error) {
	if !models.IsValidTimeframe(tf) {
		return false, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if err := c.Validate(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.get(tf)
	n := len(s.candles)
	switch {
	case n > 0 && s.candles[n-1].Time == c.Time:
		if s.candles[n-1] == c {
			return false, nil
		}
		s.candles[n-1] = c
	case n > 0 && s.candles[n-1].Time > c.Time:
		i := sort.Search(n, func(i int) bool { return s.candles[i].Time >= c.Time })
		if i == n || s.candles[i].Time != c.Time || s.candles[i] == c {
			return false, nil
		}
		s.candles[i] = c
	default:
		s.candles = append(s.candles, c)
		if len(s.candles) > b.cap {
			s.candles = append(s.candles[:0:0], s.candles[len(s.candles)-b.cap:]...)
		}
	}
	s.version++
	b.version++
	return true, nil
}

// Series returns a copy of the timeframe's bars, oldest first.
func (b *CandleBook) Series(tf models.Timeframe) []models.Candle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.byTF[tf]
	if !ok {
		return nil
	}
	return append([]models.Candle(nil), s.candles...)
}

// Tail returns at most n of the most recent bars.
func (b *CandleBook) Tail(tf models.Timeframe, n int) []models.Candle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.byTF[tf]
	if !ok || n <= 0 {
		return nil
	}
	from := 0
	if len(s.candles) > n {
		from = len(s.candles) - n
	}
	return append([]models.Candle(nil), s.candles[from:]...)
}

// Snapshot returns the series together with its version under one lock.
func (b *CandleBook) Snapshot(tf models.Timeframe) ([]models.Candle, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.byTF[tf]
	if !ok {
		return nil, 0
	}
	return append([]models.Candle(nil), s.candles...), s.version
}

// Version changes whenever any timeframe changes.
func (b *CandleBook) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

func (b *CandleBook) TimeframeVersion(tf models.Timeframe) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if s, ok := b.byTF[tf]; ok {
		return s.version
	}
	return 0
}

func (b *CandleBook) get(tf models.Timeframe) *series {
	s, ok := b.byTF[tf]
	if !ok {
		s = &series{}
		b.byTF[tf] = s
	}
	return s
}

// CandlesUseCase serves the candle query endpoint.
type CandlesUseCase struct {
	book *CandleBook
}

func NewCandlesUseCase(book *CandleBook) *CandlesUseCase {
	return &CandlesUseCase{book: book}
}

type GetCandlesResult struct {
	Timeframe string          `json:"timeframe"`
	Count     int             `json:"count"`
	Candles   []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(tf models.Timeframe, limit int) (*GetCandlesResult, error) {
	if !models.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if limit <= 0 {
		limit = 100
	}
	cs := uc.book.Tail(tf, limit)
	if cs == nil {
		cs = []models.Candle{}
	}
	return &GetCandlesResult{Timeframe: tf.String(), Count: len(cs), Candles: cs}, nil
}
