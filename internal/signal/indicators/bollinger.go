package indicators

import (
	"fmt"
	"math"
)

// BollingerBands holds the three band levels. Upper >= Middle >= Lower for any
// non-negative deviation.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger calculates Bollinger Bands over the last `period` prices:
// middle = SMA(period), upper/lower = middle ± k*stddev. A typical k is 2.0.
func Bollinger(prices []float64, period int, k float64) (BollingerBands, error) {
	if k < 0 {
		return BollingerBands{}, fmt.Errorf("Bollinger deviation multiplier must be non-negative, got %f", k)
	}
	middle, err := SMA(prices, period)
	if err != nil {
		return BollingerBands{}, err
	}

	var variance float64
	for i := len(prices) - period; i < len(prices); i++ {
		d := prices[i] - middle
		variance += d * d
	}
	std := math.Sqrt(variance / float64(period))

	return BollingerBands{
		Upper:  middle + k*std,
		Middle: middle,
		Lower:  middle - k*std,
	}, nil
}
