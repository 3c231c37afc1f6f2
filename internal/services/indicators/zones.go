package indicators

import (
	"math"
	"sort"

	"AgentTrader/internal/domain/models"
)

type pivot struct {
	price float64
	index int
}

// swingPivots returns bar highs and lows that are extreme within window bars on each side.
func swingPivots(candles []models.Candle, window int) []pivot {
	var out []pivot
	for i := window; i < len(candles)-window; i++ {
		isHigh, isLow := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			out = append(out, pivot{price: candles[i].High, index: i})
		}
		if isLow {
			out = append(out, pivot{price: candles[i].Low, index: i})
		}
	}
	return out
}

// Zones clusters swing pivots whose prices lie within tolerance (relative) of
// each other into bands. Bands are ranked by touches, then by recency.
func Zones(candles []models.Candle, window int, tolerance float64, maxZones int) []models.Zone {
	if window <= 0 || len(candles) < 2*window+1 || maxZones <= 0 {
		return nil
	}
	pivots := swingPivots(candles, window)
	if len(pivots) == 0 {
		return nil
	}
	sort.Slice(pivots, func(i, j int) bool { return pivots[i].price < pivots[j].price })

	type cluster struct {
		low, high float64
		touches   int
		lastIndex int
	}
	var clusters []cluster
	for _, p := range pivots {
		if n := len(clusters); n > 0 && (p.price-clusters[n-1].low) <= clusters[n-1].low*tolerance {
			c := &clusters[n-1]
			c.high = math.Max(c.high, p.price)
			c.touches++
			if p.index > c.lastIndex {
				c.lastIndex = p.index
			}
			continue
		}
		clusters = append(clusters, cluster{low: p.price, high: p.price, touches: 1, lastIndex: p.index})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].touches != clusters[j].touches {
			return clusters[i].touches > clusters[j].touches
		}
		return clusters[i].lastIndex > clusters[j].lastIndex
	})
	if len(clusters) > maxZones {
		clusters = clusters[:maxZones]
	}

	total := 0
	for _, c := range clusters {
		total += c.touches
	}
	zones := make([]models.Zone, 0, len(clusters))
	for _, c := range clusters {
		zones = append(zones, models.Zone{
			Low:      c.low,
			High:     c.high,
			Touches:  c.touches,
			Strength: float64(c.touches) / float64(total),
		})
	}
	return zones
}
