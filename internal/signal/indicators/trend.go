package indicators

import "math"

// TrendStrength estimates how directional the recent window is, as the
// separation between a short and a long SMA normalized by the price range of
// the long window. Result is clamped to [0,1]; short history degrades to a
// neutral 0.5 rather than failing, since the reading only gates the trend
// confirmation rule.
func TrendStrength(prices []float64, shortPeriod, longPeriod int) float64 {
	if shortPeriod <= 0 || longPeriod <= 0 || len(prices) < longPeriod {
		return 0.5
	}

	shortMA, err := SMA(prices, shortPeriod)
	if err != nil {
		return 0.5
	}
	longMA, err := SMA(prices, longPeriod)
	if err != nil {
		return 0.5
	}

	window := prices[len(prices)-longPeriod:]
	low, high := window[0], window[0]
	for _, p := range window[1:] {
		if p < low {
			low = p
		}
		if p > high {
			high = p
		}
	}
	priceRange := high - low
	if priceRange == 0 {
		return 0.5
	}

	strength := math.Abs(shortMA-longMA) / priceRange
	if strength > 1 {
		strength = 1
	}
	return strength
}

// Volatility estimates annualizable price volatility as the standard
// deviation of simple returns over the last `period` points, scaled by
// sqrt(period). Returns 0 on short history.
func Volatility(prices []float64, period int) float64 {
	if period <= 1 || len(prices) < period {
		return 0
	}

	window := prices[len(prices)-period:]
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			return 0
		}
		returns = append(returns, (window[i]-window[i-1])/window[i-1])
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(float64(period))
}
