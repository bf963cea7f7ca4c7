package indicators

import (
	"fmt"
	"math"

	"mtPilotBot/internal/domain"
)

// ATR calculates the Average True Range over the klines using Wilder's
// smoothing. True range takes the greatest of high-low, |high-prevClose| and
// |low-prevClose|, so gaps between bars are captured.
func ATR(klines []*domain.Kline, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("ATR period must be positive, got %d", period)
	}
	if len(klines) < period+1 {
		return 0, fmt.Errorf("ATR(%d) over %d klines: %w", period, len(klines), ErrNotEnoughData)
	}

	trueRanges := make([]float64, len(klines))
	trueRanges[0] = klines[0].High - klines[0].Low

	for i := 1; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr := high - low
		if d := math.Abs(high - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(low - prevClose); d > tr {
			tr = d
		}
		trueRanges[i] = tr
	}

	// First ATR is a simple average of the first `period` true ranges,
	// then Wilder's smoothing for the rest of the window.
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(klines); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}
	return atr, nil
}
