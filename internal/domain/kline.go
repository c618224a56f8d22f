package domain

import "time"

// Kline represents a single candlestick data point.
type Kline struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Kline interval (e.g., "5m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume
	IsFinal   bool      // Whether this kline is the final one for the interval
}

// HL2 returns the midpoint of the bar's range, the source price used by
// the SuperBuySellTrend bands.
func (k *Kline) HL2() float64 {
	return (k.High + k.Low) / 2
}

// IsBullish reports whether the bar closed above its open.
func (k *Kline) IsBullish() bool {
	return k.Close > k.Open
}

// IsBearish reports whether the bar closed below its open.
func (k *Kline) IsBearish() bool {
	return k.Close < k.Open
}

// Body returns the absolute size of the candle body.
func (k *Kline) Body() float64 {
	if k.Close > k.Open {
		return k.Close - k.Open
	}
	return k.Open - k.Close
}

// TrueRange returns the Wilder true range of the bar given the previous close.
func (k *Kline) TrueRange(prevClose float64) float64 {
	tr := k.High - k.Low
	if d := abs(k.High - prevClose); d > tr {
		tr = d
	}
	if d := abs(k.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Closes extracts the close prices of a kline slice, preserving order.
func Closes(klines []*Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

// Highs extracts the high prices of a kline slice, preserving order.
func Highs(klines []*Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.High
	}
	return out
}

// Lows extracts the low prices of a kline slice, preserving order.
func Lows(klines []*Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Low
	}
	return out
}

// Volumes extracts the volumes of a kline slice, preserving order.
func Volumes(klines []*Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Volume
	}
	return out
}
