package indicators

import (
	"errors"
	"fmt"

	"mtPilotBot/internal/domain"
)

// BankConfig holds the lookback periods used by the indicator bank.
// Zero values are replaced with the defaults below.
type BankConfig struct {
	MAShortPeriod    int // default 10
	MALongPeriod     int // default 50
	EMAFastPeriod    int // default 12
	EMASlowPeriod    int // default 26
	WMAFastPeriod    int // default 9
	WMASlowPeriod    int // default 21
	RSIPeriod        int // default 14
	BBPeriod         int // default 20
	BBDeviation      float64 // default 2.0
	MACDFastPeriod   int // default 12
	MACDSlowPeriod   int // default 26
	MACDSignalPeriod int // default 9
	ATRPeriod        int // default 14
	StochasticPeriod int // default 14
	TrendShortPeriod int // default 7
	TrendLongPeriod  int // default 20
	VolatilityPeriod int // default 20
}

// DefaultBankConfig returns the textbook periods the bot trades with.
func DefaultBankConfig() BankConfig {
	return BankConfig{
		MAShortPeriod:    10,
		MALongPeriod:     50,
		EMAFastPeriod:    12,
		EMASlowPeriod:    26,
		WMAFastPeriod:    9,
		WMASlowPeriod:    21,
		RSIPeriod:        14,
		BBPeriod:         20,
		BBDeviation:      2.0,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
		ATRPeriod:        14,
		StochasticPeriod: 14,
		TrendShortPeriod: 7,
		TrendLongPeriod:  20,
		VolatilityPeriod: 20,
	}
}

func (c *BankConfig) applyDefaults() {
	d := DefaultBankConfig()
	if c.MAShortPeriod <= 0 {
		c.MAShortPeriod = d.MAShortPeriod
	}
	if c.MALongPeriod <= 0 {
		c.MALongPeriod = d.MALongPeriod
	}
	if c.EMAFastPeriod <= 0 {
		c.EMAFastPeriod = d.EMAFastPeriod
	}
	if c.EMASlowPeriod <= 0 {
		c.EMASlowPeriod = d.EMASlowPeriod
	}
	if c.WMAFastPeriod <= 0 {
		c.WMAFastPeriod = d.WMAFastPeriod
	}
	if c.WMASlowPeriod <= 0 {
		c.WMASlowPeriod = d.WMASlowPeriod
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.BBPeriod <= 0 {
		c.BBPeriod = d.BBPeriod
	}
	if c.BBDeviation <= 0 {
		c.BBDeviation = d.BBDeviation
	}
	if c.MACDFastPeriod <= 0 {
		c.MACDFastPeriod = d.MACDFastPeriod
	}
	if c.MACDSlowPeriod <= 0 {
		c.MACDSlowPeriod = d.MACDSlowPeriod
	}
	if c.MACDSignalPeriod <= 0 {
		c.MACDSignalPeriod = d.MACDSignalPeriod
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	if c.StochasticPeriod <= 0 {
		c.StochasticPeriod = d.StochasticPeriod
	}
	if c.TrendShortPeriod <= 0 {
		c.TrendShortPeriod = d.TrendShortPeriod
	}
	if c.TrendLongPeriod <= 0 {
		c.TrendLongPeriod = d.TrendLongPeriod
	}
	if c.VolatilityPeriod <= 0 {
		c.VolatilityPeriod = d.VolatilityPeriod
	}
}

// Bank computes a fresh IndicatorSnapshot from a kline window on every scan
// cycle. Indicators with too little history are left nil in the snapshot;
// any other calculation failure is returned as an error.
type Bank struct {
	cfg BankConfig
}

// NewBank creates an indicator bank, filling missing periods with defaults.
func NewBank(cfg BankConfig) (*Bank, error) {
	cfg.applyDefaults()
	if cfg.MAShortPeriod >= cfg.MALongPeriod {
		return nil, fmt.Errorf("MA short period %d must be less than long period %d", cfg.MAShortPeriod, cfg.MALongPeriod)
	}
	if cfg.EMAFastPeriod >= cfg.EMASlowPeriod {
		return nil, fmt.Errorf("EMA fast period %d must be less than slow period %d", cfg.EMAFastPeriod, cfg.EMASlowPeriod)
	}
	if cfg.WMAFastPeriod >= cfg.WMASlowPeriod {
		return nil, fmt.Errorf("WMA fast period %d must be less than slow period %d", cfg.WMAFastPeriod, cfg.WMASlowPeriod)
	}
	return &Bank{cfg: cfg}, nil
}

// RequiredDataPoints returns the window length at which every indicator in
// the bank becomes available.
func (b *Bank) RequiredDataPoints() int {
	required := b.cfg.MALongPeriod
	candidates := []int{
		b.cfg.EMASlowPeriod,
		b.cfg.WMASlowPeriod,
		b.cfg.RSIPeriod + 1,
		b.cfg.BBPeriod,
		b.cfg.MACDSlowPeriod + b.cfg.MACDSignalPeriod - 1,
		b.cfg.ATRPeriod + 1,
		b.cfg.StochasticPeriod,
		b.cfg.TrendLongPeriod,
		b.cfg.VolatilityPeriod,
	}
	for _, c := range candidates {
		if c > required {
			required = c
		}
	}
	return required
}

// Compute produces the snapshot for the most recent point of the window.
func (b *Bank) Compute(klines []*domain.Kline) (*domain.IndicatorSnapshot, error) {
	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	snap := &domain.IndicatorSnapshot{
		TrendStrength: TrendStrength(closes, b.cfg.TrendShortPeriod, b.cfg.TrendLongPeriod),
		Volatility:    Volatility(closes, b.cfg.VolatilityPeriod),
	}

	var err error
	if snap.MAShort, err = optional(SMA(closes, b.cfg.MAShortPeriod)); err != nil {
		return nil, err
	}
	if snap.MALong, err = optional(SMA(closes, b.cfg.MALongPeriod)); err != nil {
		return nil, err
	}
	if snap.EMAFast, err = optional(EMA(closes, b.cfg.EMAFastPeriod)); err != nil {
		return nil, err
	}
	if snap.EMASlow, err = optional(EMA(closes, b.cfg.EMASlowPeriod)); err != nil {
		return nil, err
	}
	if snap.WMAFast, err = optional(WMA(closes, b.cfg.WMAFastPeriod)); err != nil {
		return nil, err
	}
	if snap.WMASlow, err = optional(WMA(closes, b.cfg.WMASlowPeriod)); err != nil {
		return nil, err
	}
	if snap.RSI, err = optional(RSI(closes, b.cfg.RSIPeriod)); err != nil {
		return nil, err
	}

	bands, err := Bollinger(closes, b.cfg.BBPeriod, b.cfg.BBDeviation)
	switch {
	case err == nil:
		snap.BBUpper = &bands.Upper
		snap.BBMiddle = &bands.Middle
		snap.BBLower = &bands.Lower
	case !errors.Is(err, ErrNotEnoughData):
		return nil, err
	}

	macd, err := MACD(closes, b.cfg.MACDFastPeriod, b.cfg.MACDSlowPeriod, b.cfg.MACDSignalPeriod)
	switch {
	case err == nil:
		snap.MACDLine = &macd.Line
		snap.MACDSignal = &macd.Signal
	case !errors.Is(err, ErrNotEnoughData):
		return nil, err
	}

	if snap.ATR, err = optional(ATR(klines, b.cfg.ATRPeriod)); err != nil {
		return nil, err
	}
	if snap.StochasticK, err = optional(StochasticK(klines, b.cfg.StochasticPeriod)); err != nil {
		return nil, err
	}

	return snap, nil
}

// optional converts a (value, error) indicator result into a nil-able
// snapshot field, swallowing only ErrNotEnoughData.
func optional(v float64, err error) (*float64, error) {
	if err != nil {
		if errors.Is(err, ErrNotEnoughData) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
