package indicators

import (
	"errors"
	"fmt"
)

// ErrNotEnoughData is returned when a window is shorter than the requested
// period. Callers treat the indicator as unavailable and skip it; this is
// never a fatal condition.
var ErrNotEnoughData = errors.New("not enough data points")

// SMA calculates the Simple Moving Average over the last `period` prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("SMA period must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("SMA(%d) over %d points: %w", period, len(prices), ErrNotEnoughData)
	}

	total := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		total += prices[i]
	}
	return total / float64(period), nil
}

// EMA calculates the Exponential Moving Average over the window with
// smoothing factor 2/(period+1), seeded with the SMA of the first `period`
// prices. Deterministic given identical input order.
func EMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("EMA period must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("EMA(%d) over %d points: %w", period, len(prices), ErrNotEnoughData)
	}

	series, err := emaSeries(prices, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// emaSeries computes the EMA value at every point from index period-1 onward.
// The returned slice is aligned so that series[i] is the EMA of prices[:period+i].
func emaSeries(prices []float64, period int) ([]float64, error) {
	if len(prices) < period {
		return nil, fmt.Errorf("EMA(%d) over %d points: %w", period, len(prices), ErrNotEnoughData)
	}

	multiplier := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += prices[i]
	}
	seed /= float64(period)

	series := make([]float64, 0, len(prices)-period+1)
	ema := seed
	series = append(series, ema)
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		series = append(series, ema)
	}
	return series, nil
}

// WMA calculates the linearly Weighted Moving Average over the last `period`
// prices, with the most recent price carrying the highest weight.
func WMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("WMA period must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("WMA(%d) over %d points: %w", period, len(prices), ErrNotEnoughData)
	}

	var weighted, weightSum float64
	for i := 0; i < period; i++ {
		weight := float64(i + 1)
		weighted += prices[len(prices)-period+i] * weight
		weightSum += weight
	}
	return weighted / weightSum, nil
}
