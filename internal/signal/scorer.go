// Package signal turns an indicator snapshot into a trade decision by
// weighted rule scoring. Scoring is a pure function of (snapshot, price,
// mode): no hidden state, fully reproducible for identical inputs.
package signal

import (
	"mtPilotBot/internal/domain"
)

// Rule weights. The sum of all weights on one side is maxPossibleScore, the
// fixed normalizing constant for confidence.
const (
	weightMAAlignment = 3
	weightEMAMomentum = 2
	weightWMACross    = 1
	weightRSIStrong   = 4
	weightRSIMild     = 2
	weightBollinger   = 2
	weightMACDCross   = 1
	weightStochastic  = 1
	weightTrend       = 1

	maxPossibleScore = weightMAAlignment + weightEMAMomentum + weightWMACross +
		weightRSIStrong + weightBollinger + weightMACDCross + weightStochastic + weightTrend // 15
)

// RSI thresholds. Strong extremes score double weight, the neutral middle
// zone penalizes both sides.
const (
	rsiStrongOversold   = 25.0
	rsiMildOversold     = 35.0
	rsiStrongOverbought = 75.0
	rsiMildOverbought   = 65.0
	rsiNeutralLow       = 45.0
	rsiNeutralHigh      = 55.0
)

// Stochastic %K extreme levels.
const (
	stochOversold   = 20.0
	stochOverbought = 80.0
)

// Decision thresholds: a primary signal must dominate the opposite side by
// 20%. Weaker signals still fire at a discounted confidence, either on 50%
// dominance alone or on clearing the mode's score bar with a strict lead.
const (
	primaryDominance   = 1.2
	secondaryDominance = 1.5
	secondaryDiscount  = 0.8
)

// Score combines the snapshot's indicator readings into buy/sell scores and
// emits a decision for the given trading mode. Indicators that are nil in
// the snapshot are skipped; with no readings at all the result is HOLD.
func Score(snap *domain.IndicatorSnapshot, currentPrice float64, mode domain.TradingMode) domain.SignalDecision {
	var buyScore, sellScore int

	// MA alignment: price above both MAs with short above long.
	if snap.MAShort != nil && snap.MALong != nil {
		if currentPrice > *snap.MAShort && *snap.MAShort > *snap.MALong {
			buyScore += weightMAAlignment
		} else if currentPrice < *snap.MAShort && *snap.MAShort < *snap.MALong {
			sellScore += weightMAAlignment
		}
	}

	// EMA momentum: fast over slow with price leading the fast EMA.
	if snap.EMAFast != nil && snap.EMASlow != nil {
		if *snap.EMAFast > *snap.EMASlow && currentPrice > *snap.EMAFast {
			buyScore += weightEMAMomentum
		} else if *snap.EMAFast < *snap.EMASlow && currentPrice < *snap.EMAFast {
			sellScore += weightEMAMomentum
		}
	}

	// WMA cross.
	if snap.WMAFast != nil && snap.WMASlow != nil {
		if *snap.WMAFast > *snap.WMASlow {
			buyScore += weightWMACross
		} else if *snap.WMAFast < *snap.WMASlow {
			sellScore += weightWMACross
		}
	}

	// RSI extremes, with a penalty for the directionless middle zone.
	if snap.RSI != nil {
		rsi := *snap.RSI
		switch {
		case rsi <= rsiStrongOversold:
			buyScore += weightRSIStrong
		case rsi <= rsiMildOversold:
			buyScore += weightRSIMild
		case rsi >= rsiStrongOverbought:
			sellScore += weightRSIStrong
		case rsi >= rsiMildOverbought:
			sellScore += weightRSIMild
		case rsi >= rsiNeutralLow && rsi <= rsiNeutralHigh:
			buyScore--
			sellScore--
		}
	}

	// Bollinger touch: price at or beyond a band.
	if snap.BBLower != nil && snap.BBUpper != nil {
		if currentPrice <= *snap.BBLower {
			buyScore += weightBollinger
		} else if currentPrice >= *snap.BBUpper {
			sellScore += weightBollinger
		}
	}

	// MACD cross.
	if snap.MACDLine != nil && snap.MACDSignal != nil {
		if *snap.MACDLine > *snap.MACDSignal {
			buyScore += weightMACDCross
		} else if *snap.MACDLine < *snap.MACDSignal {
			sellScore += weightMACDCross
		}
	}

	// Stochastic extremes.
	if snap.StochasticK != nil {
		if *snap.StochasticK <= stochOversold {
			buyScore += weightStochastic
		} else if *snap.StochasticK >= stochOverbought {
			sellScore += weightStochastic
		}
	}

	// Trend confirmation, only when the trend is strong enough for the mode.
	if snap.TrendStrength > mode.TrendStrengthMin && snap.MAShort != nil && snap.MALong != nil {
		if *snap.MAShort > *snap.MALong {
			buyScore += weightTrend
		} else if *snap.MAShort < *snap.MALong {
			sellScore += weightTrend
		}
	}

	// Neutral-zone penalties may push a side negative; floor at zero so
	// confidence stays within [0,1].
	if buyScore < 0 {
		buyScore = 0
	}
	if sellScore < 0 {
		sellScore = 0
	}

	buyConfidence := clamp01(float64(buyScore) / maxPossibleScore)
	sellConfidence := clamp01(float64(sellScore) / maxPossibleScore)

	decision := domain.SignalDecision{
		Action:   domain.Hold,
		Strength: snap.TrendStrength,
		Scores: domain.SignalScores{
			BuyScore:       buyScore,
			SellScore:      sellScore,
			BuyConfidence:  buyConfidence,
			SellConfidence: sellConfidence,
		},
	}

	switch {
	// Primary path: the winning side clears the mode's score and confidence
	// bars and dominates the other side.
	case buyScore >= mode.MinScore && buyConfidence >= mode.MinConfidence && buyConfidence > sellConfidence*primaryDominance:
		decision.Action = domain.Buy
		decision.Confidence = buyConfidence
	case sellScore >= mode.MinScore && sellConfidence >= mode.MinConfidence && sellConfidence > buyConfidence*primaryDominance:
		decision.Action = domain.Sell
		decision.Confidence = sellConfidence

	// Secondary path: strong one-sided dominance without clearing the
	// primary bar still fires, at a discounted confidence.
	case buyScore > 0 && buyConfidence > sellConfidence*secondaryDominance:
		decision.Action = domain.Buy
		decision.Confidence = clamp01(buyConfidence * secondaryDiscount)
	case sellScore > 0 && sellConfidence > buyConfidence*secondaryDominance:
		decision.Action = domain.Sell
		decision.Confidence = clamp01(sellConfidence * secondaryDiscount)

	// Fallback: enough absolute score plus a strict lead still trades,
	// discounted. Without it a strong one-way trend can stall on the
	// extreme-RSI and stochastic rules feeding the opposite side.
	case buyScore >= mode.MinScore && buyConfidence > sellConfidence:
		decision.Action = domain.Buy
		decision.Confidence = clamp01(buyConfidence * secondaryDiscount)
	case sellScore >= mode.MinScore && sellConfidence > buyConfidence:
		decision.Action = domain.Sell
		decision.Confidence = clamp01(sellConfidence * secondaryDiscount)
	}

	return decision
}

// Features flattens a snapshot into the feature vector handed to an optional
// external predictor. Unavailable indicators are encoded as zero.
func Features(snap *domain.IndicatorSnapshot, currentPrice float64) []float64 {
	get := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	return []float64{
		currentPrice,
		get(snap.MAShort),
		get(snap.MALong),
		get(snap.EMAFast),
		get(snap.EMASlow),
		get(snap.WMAFast),
		get(snap.WMASlow),
		get(snap.RSI),
		get(snap.BBUpper),
		get(snap.BBMiddle),
		get(snap.BBLower),
		get(snap.MACDLine),
		get(snap.MACDSignal),
		get(snap.ATR),
		get(snap.StochasticK),
		snap.TrendStrength,
		snap.Volatility,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
