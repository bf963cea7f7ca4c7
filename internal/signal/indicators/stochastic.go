package indicators

import (
	"fmt"

	"mtPilotBot/internal/domain"
)

// StochasticK calculates the stochastic oscillator %K over the last `period`
// klines: (close - lowestLow) / (highestHigh - lowestLow) * 100. Returns a
// neutral 50 when the range is flat.
func StochasticK(klines []*domain.Kline, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("stochastic period must be positive, got %d", period)
	}
	if len(klines) < period {
		return 0, fmt.Errorf("stochastic(%d) over %d klines: %w", period, len(klines), ErrNotEnoughData)
	}

	window := klines[len(klines)-period:]
	lowest := window[0].Low
	highest := window[0].High
	for _, k := range window[1:] {
		if k.Low < lowest {
			lowest = k.Low
		}
		if k.High > highest {
			highest = k.High
		}
	}

	if highest == lowest {
		return 50, nil
	}

	close := window[len(window)-1].Close
	return (close - lowest) / (highest - lowest) * 100, nil
}
