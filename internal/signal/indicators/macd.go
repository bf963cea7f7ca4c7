package indicators

import "fmt"

// MACDResult holds the MACD line and its signal line for the latest point.
type MACDResult struct {
	Line   float64 // fast EMA - slow EMA
	Signal float64 // EMA of the MACD line history
}

// MACD calculates the Moving Average Convergence-Divergence with the given
// fast/slow/signal periods (12/26/9 is the textbook default). The signal line
// is a true EMA over the MACD line history, seeded with its SMA.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) (MACDResult, error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return MACDResult{}, fmt.Errorf("MACD periods must be positive, got %d/%d/%d", fastPeriod, slowPeriod, signalPeriod)
	}
	if fastPeriod >= slowPeriod {
		return MACDResult{}, fmt.Errorf("MACD fast period %d must be less than slow period %d", fastPeriod, slowPeriod)
	}
	// Need enough history for the slow EMA plus signalPeriod MACD points.
	required := slowPeriod + signalPeriod - 1
	if len(prices) < required {
		return MACDResult{}, fmt.Errorf("MACD(%d,%d,%d) over %d points: %w",
			fastPeriod, slowPeriod, signalPeriod, len(prices), ErrNotEnoughData)
	}

	fastSeries, err := emaSeries(prices, fastPeriod)
	if err != nil {
		return MACDResult{}, err
	}
	slowSeries, err := emaSeries(prices, slowPeriod)
	if err != nil {
		return MACDResult{}, err
	}

	// Align the two series on the slow EMA's start and build the MACD line history.
	offset := slowPeriod - fastPeriod
	macdLine := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries, err := emaSeries(macdLine, signalPeriod)
	if err != nil {
		return MACDResult{}, err
	}

	return MACDResult{
		Line:   macdLine[len(macdLine)-1],
		Signal: signalSeries[len(signalSeries)-1],
	}, nil
}
