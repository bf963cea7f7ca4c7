package domain

// IndicatorSnapshot holds the indicator readings computed for the latest point
// of a price series. It is recomputed fresh on every scan cycle and never
// mutated in place. Nil fields mean the indicator had too little history and
// should be skipped by the scorer.
type IndicatorSnapshot struct {
	MAShort     *float64
	MALong      *float64
	EMAFast     *float64
	EMASlow     *float64
	WMAFast     *float64
	WMASlow     *float64
	RSI         *float64
	BBUpper     *float64
	BBMiddle    *float64
	BBLower     *float64
	MACDLine    *float64
	MACDSignal  *float64
	ATR         *float64
	StochasticK *float64

	// TrendStrength and Volatility always carry a value; they degrade to
	// neutral defaults (0.5 and 0 respectively) on short history.
	TrendStrength float64
	Volatility    float64
}

// SignalScores carries the raw accumulator values behind a decision,
// retained for logging and analysis.
type SignalScores struct {
	BuyScore       int
	SellScore      int
	BuyConfidence  float64
	SellConfidence float64
}

// SignalDecision is the outcome of scoring one snapshot against one trading
// mode. Immutable once produced.
type SignalDecision struct {
	Action     Action
	Confidence float64 // in [0,1]
	Strength   float64 // trend strength backing the decision
	Scores     SignalScores
}
