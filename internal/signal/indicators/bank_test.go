package indicators

import (
	"testing"
	"time"

	"mtPilotBot/internal/domain"
)

func linearKlines(n int, start, step float64) []*domain.Kline {
	now := time.Now()
	klines := make([]*domain.Kline, n)
	for i := 0; i < n; i++ {
		close := start + step*float64(i)
		klines[i] = &domain.Kline{
			OpenTime:  now.Add(time.Duration(i-n) * time.Minute),
			CloseTime: now.Add(time.Duration(i-n+1) * time.Minute),
			Open:      close - step,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    100,
			IsFinal:   true,
		}
	}
	return klines
}

func TestNewBank_Validation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         BankConfig
		expectError bool
	}{
		{name: "defaults are valid", cfg: BankConfig{}},
		{name: "ma short must be below long", cfg: BankConfig{MAShortPeriod: 50, MALongPeriod: 10}, expectError: true},
		{name: "ema fast must be below slow", cfg: BankConfig{EMAFastPeriod: 26, EMASlowPeriod: 12}, expectError: true},
		{name: "wma fast must be below slow", cfg: BankConfig{WMAFastPeriod: 21, WMASlowPeriod: 9}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBank(tt.cfg)
			if tt.expectError && err == nil {
				t.Error("expected error")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBank_RequiredDataPoints(t *testing.T) {
	bank, err := NewBank(DefaultBankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The default long MA (50) dominates every other requirement.
	if got := bank.RequiredDataPoints(); got != 50 {
		t.Errorf("RequiredDataPoints = %d, want 50", got)
	}
}

func TestBank_ComputeFullWindow(t *testing.T) {
	bank, err := NewBank(DefaultBankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := bank.Compute(linearKlines(bank.RequiredDataPoints(), 100, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, field := range map[string]*float64{
		"MAShort":     snap.MAShort,
		"MALong":      snap.MALong,
		"EMAFast":     snap.EMAFast,
		"EMASlow":     snap.EMASlow,
		"WMAFast":     snap.WMAFast,
		"WMASlow":     snap.WMASlow,
		"RSI":         snap.RSI,
		"BBUpper":     snap.BBUpper,
		"BBMiddle":    snap.BBMiddle,
		"BBLower":     snap.BBLower,
		"MACDLine":    snap.MACDLine,
		"MACDSignal":  snap.MACDSignal,
		"ATR":         snap.ATR,
		"StochasticK": snap.StochasticK,
	} {
		if field == nil {
			t.Errorf("expected %s to be available at the full window", name)
		}
	}
}

func TestBank_ComputeShortWindowLeavesFieldsNil(t *testing.T) {
	bank, err := NewBank(DefaultBankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 30 bars: enough for the short MA (10), not for the long MA (50)
	// or MACD 12/26/9 (needs 34).
	snap, err := bank.Compute(linearKlines(30, 100, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.MAShort == nil {
		t.Error("expected short MA to be available at 30 bars")
	}
	if snap.MALong != nil {
		t.Error("expected long MA to be unavailable at 30 bars")
	}
	if snap.MACDLine != nil || snap.MACDSignal != nil {
		t.Error("expected MACD to be unavailable at 30 bars")
	}
	if snap.RSI == nil {
		t.Error("expected RSI to be available at 30 bars")
	}
}
