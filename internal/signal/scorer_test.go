package signal

import (
	"testing"
	"time"

	"mtPilotBot/internal/domain"
	"mtPilotBot/internal/signal/indicators"
)

func f(v float64) *float64 { return &v }

func balancedMode() domain.TradingMode {
	mode := domain.Modes[domain.ModeBalanced]
	return mode
}

func TestScore_EmptySnapshotHolds(t *testing.T) {
	snap := &domain.IndicatorSnapshot{TrendStrength: 0.5}
	decision := Score(snap, 100, balancedMode())

	if decision.Action != domain.Hold {
		t.Errorf("expected HOLD, got %s", decision.Action)
	}
	if decision.Scores.BuyScore != 0 || decision.Scores.SellScore != 0 {
		t.Errorf("expected zero scores, got %+v", decision.Scores)
	}
	if decision.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", decision.Confidence)
	}
}

func TestScore_FullBullishAlignment(t *testing.T) {
	price := 110.0
	snap := &domain.IndicatorSnapshot{
		MAShort:       f(105), // price > short > long
		MALong:        f(100),
		EMAFast:       f(106), // fast > slow, price > fast
		EMASlow:       f(101),
		WMAFast:       f(107),
		WMASlow:       f(102),
		RSI:           f(20),  // strong oversold
		BBUpper:       f(130),
		BBMiddle:      f(120),
		BBLower:       f(111), // price at/below lower band
		MACDLine:      f(1.5),
		MACDSignal:    f(1.0),
		StochasticK:   f(10),
		TrendStrength: 0.8, // above the balanced minimum
	}

	decision := Score(snap, price, balancedMode())
	if decision.Action != domain.Buy {
		t.Fatalf("expected BUY, got %s", decision.Action)
	}
	// 3 + 2 + 1 + 4 + 2 + 1 + 1 + 1 = 15, the maximum.
	if decision.Scores.BuyScore != 15 {
		t.Errorf("BuyScore = %d, want 15", decision.Scores.BuyScore)
	}
	if decision.Confidence != 1.0 {
		t.Errorf("Confidence = %f, want 1.0", decision.Confidence)
	}
}

func TestScore_FullBearishAlignment(t *testing.T) {
	price := 90.0
	snap := &domain.IndicatorSnapshot{
		MAShort:       f(95), // price < short < long
		MALong:        f(100),
		EMAFast:       f(94),
		EMASlow:       f(99),
		WMAFast:       f(93),
		WMASlow:       f(98),
		RSI:           f(80), // strong overbought
		BBUpper:       f(89), // price at/above upper band
		BBMiddle:      f(80),
		BBLower:       f(71),
		MACDLine:      f(-1.5),
		MACDSignal:    f(-1.0),
		StochasticK:   f(90),
		TrendStrength: 0.8,
	}

	decision := Score(snap, price, balancedMode())
	if decision.Action != domain.Sell {
		t.Fatalf("expected SELL, got %s", decision.Action)
	}
	if decision.Scores.SellScore != 15 {
		t.Errorf("SellScore = %d, want 15", decision.Scores.SellScore)
	}
	if decision.Confidence != 1.0 {
		t.Errorf("Confidence = %f, want 1.0", decision.Confidence)
	}
}

func TestScore_NeutralRSIPenalizesBothSides(t *testing.T) {
	// Only RSI present, sitting in the directionless middle zone: both
	// sides go negative and are floored at zero.
	snap := &domain.IndicatorSnapshot{RSI: f(50), TrendStrength: 0.3}
	decision := Score(snap, 100, balancedMode())

	if decision.Action != domain.Hold {
		t.Errorf("expected HOLD, got %s", decision.Action)
	}
	if decision.Scores.BuyScore != 0 || decision.Scores.SellScore != 0 {
		t.Errorf("expected floored scores, got %+v", decision.Scores)
	}
}

func TestScore_SecondaryPathDiscountsConfidence(t *testing.T) {
	// A single weak one-sided rule misses the primary bar but dominates
	// the empty opposite side, so the secondary path fires discounted.
	snap := &domain.IndicatorSnapshot{
		WMAFast:       f(101),
		WMASlow:       f(100),
		TrendStrength: 0.3,
	}
	decision := Score(snap, 100, balancedMode())

	if decision.Action != domain.Buy {
		t.Fatalf("expected BUY via secondary path, got %s", decision.Action)
	}
	want := (1.0 / 15.0) * 0.8
	if diff := decision.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Confidence = %f, want %f", decision.Confidence, want)
	}
	if decision.Confidence >= decision.Scores.BuyConfidence {
		t.Error("secondary confidence should be discounted below the raw confidence")
	}
}

func TestScore_ConfidenceAlwaysInUnitRange(t *testing.T) {
	snaps := []*domain.IndicatorSnapshot{
		{TrendStrength: 0},
		{RSI: f(50), TrendStrength: 1},
		{MAShort: f(110), MALong: f(100), RSI: f(10), WMAFast: f(2), WMASlow: f(1), TrendStrength: 1},
		{MAShort: f(90), MALong: f(100), RSI: f(95), WMAFast: f(1), WMASlow: f(2), TrendStrength: 1},
	}
	for _, snap := range snaps {
		for _, mode := range domain.Modes {
			d := Score(snap, 120, mode)
			if d.Confidence < 0 || d.Confidence > 1 {
				t.Errorf("confidence %f out of [0,1] for mode %s", d.Confidence, mode.Name)
			}
			if d.Scores.BuyConfidence < 0 || d.Scores.BuyConfidence > 1 ||
				d.Scores.SellConfidence < 0 || d.Scores.SellConfidence > 1 {
				t.Errorf("side confidences out of [0,1]: %+v", d.Scores)
			}
		}
	}
}

func TestScore_RisingSeriesThroughBankProducesBuy(t *testing.T) {
	// 60 bars stepping +2.5/-1.5 so the trend is clearly up while RSI
	// stays out of the overbought zone.
	bank, err := indicators.NewBank(indicators.DefaultBankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	klines := make([]*domain.Kline, 60)
	for i := range klines {
		close := 100 + 0.5*float64(i) + 2.0*float64(i%2)
		klines[i] = &domain.Kline{
			OpenTime:  now.Add(time.Duration(i-60) * time.Minute),
			CloseTime: now.Add(time.Duration(i-59) * time.Minute),
			Open:      close,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    100,
			IsFinal:   true,
		}
	}

	snap, err := bank.Compute(klines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mode := balancedMode()
	mode.MinConfidence = 0.6
	decision := Score(snap, klines[len(klines)-1].Close, mode)

	if decision.Action != domain.Buy {
		t.Fatalf("expected BUY for a rising series, got %s (scores %+v)", decision.Action, decision.Scores)
	}
	if decision.Scores.BuyScore <= decision.Scores.SellScore {
		t.Errorf("expected buy side to dominate, got %+v", decision.Scores)
	}
	if decision.Confidence <= 0 {
		t.Errorf("expected positive confidence, got %f", decision.Confidence)
	}
}

func TestScore_MonotonicRisingSeriesProducesBuy(t *testing.T) {
	// A strictly rising series drives RSI to 100 and the stochastic to its
	// ceiling, both of which score the sell side. The fallback path must
	// still read the trend as a BUY.
	bank, err := indicators.NewBank(indicators.DefaultBankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	klines := make([]*domain.Kline, 60)
	for i := range klines {
		close := 100 + 0.5*float64(i)
		klines[i] = &domain.Kline{
			OpenTime:  now.Add(time.Duration(i-60) * time.Minute),
			CloseTime: now.Add(time.Duration(i-59) * time.Minute),
			Open:      close,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    100,
			IsFinal:   true,
		}
	}

	snap, err := bank.Compute(klines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mode := balancedMode()
	mode.MinConfidence = 0.6
	decision := Score(snap, klines[len(klines)-1].Close, mode)

	if decision.Action != domain.Buy {
		t.Fatalf("expected BUY for a monotonic rising series, got %s (scores %+v)", decision.Action, decision.Scores)
	}
	if decision.Scores.BuyScore <= decision.Scores.SellScore {
		t.Errorf("expected buy side to lead, got %+v", decision.Scores)
	}
	if decision.Confidence <= 0 || decision.Confidence > 1 {
		t.Errorf("confidence %f out of (0,1]", decision.Confidence)
	}
	if decision.Confidence >= decision.Scores.BuyConfidence {
		t.Error("fallback confidence should be discounted below the raw confidence")
	}
}

func TestFeatures_EncodesMissingAsZero(t *testing.T) {
	snap := &domain.IndicatorSnapshot{
		MAShort:       f(105),
		TrendStrength: 0.4,
		Volatility:    0.02,
	}
	features := Features(snap, 110)

	if len(features) != 17 {
		t.Fatalf("feature vector length = %d, want 17", len(features))
	}
	if features[0] != 110 {
		t.Errorf("features[0] = %f, want current price", features[0])
	}
	if features[1] != 105 {
		t.Errorf("features[1] = %f, want MAShort", features[1])
	}
	if features[2] != 0 {
		t.Errorf("features[2] = %f, want 0 for missing MALong", features[2])
	}
	if features[15] != 0.4 || features[16] != 0.02 {
		t.Errorf("trailing features = %f/%f, want trend/volatility", features[15], features[16])
	}
}
