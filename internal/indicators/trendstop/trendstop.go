// Package trendstop implements the trailing-stop trend indicators: each one
// is a small state machine folded left-to-right over a bar series. Every
// indicator exposes the same two entry points: a streaming Update that advances
// the state by one bar, and a batch Compute helper that feeds a fresh instance
// bar-by-bar. Because the batch path reuses the streaming step, the two always
// produce identical output for the same series.
package trendstop

import (
	"cryptoSignalBot/internal/domain"
)

// Point is the common per-bar output shared by all trend-stop indicators:
// the directional state, the trailing stop level, and the flip events. A flip
// produces exactly one Buy or Sell on the bar where the direction changes.
type Point struct {
	Direction domain.Direction
	Stop      float64
	Buy       bool
	Sell      bool
}

// atrState is a streaming Wilder ATR: the mean of true ranges while warming
// up, then the standard smoothed update. Keeping ATR incremental is what lets
// the indicators above it stay incremental too.
type atrState struct {
	period    int
	count     int
	sumTR     float64
	value     float64
	prevClose float64
}

func newATRState(period int) *atrState {
	return &atrState{period: period}
}

func (a *atrState) update(k *domain.Kline) float64 {
	var tr float64
	if a.count == 0 {
		tr = k.High - k.Low
	} else {
		tr = k.TrueRange(a.prevClose)
	}
	a.count++
	a.prevClose = k.Close

	if a.count <= a.period {
		a.sumTR += tr
		a.value = a.sumTR / float64(a.count)
	} else {
		a.value = (a.value*float64(a.period-1) + tr) / float64(a.period)
	}
	return a.value
}

// window is a bounded FIFO of recent bars used by the lookback indicators.
type window struct {
	size int
	bars []*domain.Kline
}

func newWindow(size int) *window {
	return &window{size: size, bars: make([]*domain.Kline, 0, size)}
}

func (w *window) push(k *domain.Kline) {
	if len(w.bars) == w.size {
		copy(w.bars, w.bars[1:])
		w.bars[len(w.bars)-1] = k
		return
	}
	w.bars = append(w.bars, k)
}

func (w *window) highestHigh() float64 {
	h := w.bars[0].High
	for _, k := range w.bars[1:] {
		if k.High > h {
			h = k.High
		}
	}
	return h
}

func (w *window) lowestLow() float64 {
	l := w.bars[0].Low
	for _, k := range w.bars[1:] {
		if k.Low < l {
			l = k.Low
		}
	}
	return l
}

func (w *window) highestClose() float64 {
	h := w.bars[0].Close
	for _, k := range w.bars[1:] {
		if k.Close > h {
			h = k.Close
		}
	}
	return h
}

func (w *window) lowestClose() float64 {
	l := w.bars[0].Close
	for _, k := range w.bars[1:] {
		if k.Close < l {
			l = k.Close
		}
	}
	return l
}

func (w *window) meanHigh() float64 {
	sum := 0.0
	for _, k := range w.bars {
		sum += k.High
	}
	return sum / float64(len(w.bars))
}

func (w *window) meanLow() float64 {
	sum := 0.0
	for _, k := range w.bars {
		sum += k.Low
	}
	return sum / float64(len(w.bars))
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
