package domain

// PriceSeries is a bounded, time-ascending window of klines for one symbol.
// Append-only during a session; the oldest entries are evicted once the
// capacity is exceeded. It is owned exclusively by the scan loop and is not
// safe for concurrent use.
type PriceSeries struct {
	klines []*Kline
	cap    int
}

// DefaultSeriesCapacity bounds the in-memory kline window.
const DefaultSeriesCapacity = 500

// NewPriceSeries creates a series with the given capacity. A capacity of zero
// or less falls back to DefaultSeriesCapacity.
func NewPriceSeries(capacity int) *PriceSeries {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}
	return &PriceSeries{
		klines: make([]*Kline, 0, capacity),
		cap:    capacity,
	}
}

// Append adds a kline to the end of the series, evicting the oldest entry
// once the capacity is exceeded.
func (s *PriceSeries) Append(k *Kline) {
	s.klines = append(s.klines, k)
	if len(s.klines) > s.cap {
		s.klines = s.klines[len(s.klines)-s.cap:]
	}
}

// Replace swaps the whole window, trimming to capacity from the front.
func (s *PriceSeries) Replace(klines []*Kline) {
	if len(klines) > s.cap {
		klines = klines[len(klines)-s.cap:]
	}
	s.klines = append(s.klines[:0], klines...)
}

// Klines returns the underlying window, oldest first. Callers must not mutate it.
func (s *PriceSeries) Klines() []*Kline {
	return s.klines
}

// Len returns the number of klines currently held.
func (s *PriceSeries) Len() int {
	return len(s.klines)
}

// Closes returns the closing prices of the window, oldest first.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.klines))
	for i, k := range s.klines {
		closes[i] = k.Close
	}
	return closes
}
