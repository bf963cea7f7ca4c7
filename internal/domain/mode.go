package domain

import (
	"fmt"
	"time"
)

// ModeName identifies one of the built-in trading mode presets.
type ModeName string

const (
	ModeConservative ModeName = "CONSERVATIVE"
	ModeBalanced     ModeName = "BALANCED"
	ModeAggressive   ModeName = "AGGRESSIVE"
	ModeHFT          ModeName = "HFT"
)

// TradingMode is a named, read-only configuration governing signal acceptance
// and risk sizing. Loaded at startup; never mutated afterwards.
type TradingMode struct {
	Name             ModeName
	Description      string
	TPFraction       float64       // take-profit target as a fraction of balance
	SLFraction       float64       // stop-loss budget as a fraction of balance
	MinConfidence    float64       // minimum confidence to accept a signal
	MinScore         int           // minimum raw score on the winning side
	MaxPositions     int           // maximum concurrent open positions
	ScanInterval     time.Duration // poll-compute-act cadence
	TrendStrengthMin float64       // trend confirmation threshold for the scorer
	MaxConsecLosses  int           // loss streak that triggers the cooldown
	Cooldown         time.Duration // pause after the loss streak is hit
}

// Modes is the static preset table. Values follow the original production
// presets: tight TP with wider SL, confidence bars rising with scan frequency.
var Modes = map[ModeName]TradingMode{
	ModeConservative: {
		Name:             ModeConservative,
		Description:      "Conservative Ultra-Safe",
		TPFraction:       0.003,
		SLFraction:       0.008,
		MinConfidence:    0.85,
		MinScore:         4,
		MaxPositions:     3,
		ScanInterval:     60 * time.Second,
		TrendStrengthMin: 0.7,
		MaxConsecLosses:  3,
		Cooldown:         15 * time.Minute,
	},
	ModeBalanced: {
		Name:             ModeBalanced,
		Description:      "Balanced Professional",
		TPFraction:       0.005,
		SLFraction:       0.012,
		MinConfidence:    0.7,
		MinScore:         3,
		MaxPositions:     5,
		ScanInterval:     30 * time.Second,
		TrendStrengthMin: 0.5,
		MaxConsecLosses:  4,
		Cooldown:         15 * time.Minute,
	},
	ModeAggressive: {
		Name:             ModeAggressive,
		Description:      "Aggressive Profit Hunter",
		TPFraction:       0.01,
		SLFraction:       0.02,
		MinConfidence:    0.6,
		MinScore:         3,
		MaxPositions:     8,
		ScanInterval:     15 * time.Second,
		TrendStrengthMin: 0.4,
		MaxConsecLosses:  5,
		Cooldown:         15 * time.Minute,
	},
	ModeHFT: {
		Name:             ModeHFT,
		Description:      "Ultra HFT Scalper",
		TPFraction:       0.002,
		SLFraction:       0.006,
		MinConfidence:    0.8,
		MinScore:         5,
		MaxPositions:     2,
		ScanInterval:     3 * time.Second,
		TrendStrengthMin: 0.8,
		MaxConsecLosses:  2,
		Cooldown:         30 * time.Minute,
	},
}

// ModeByName resolves a preset by its (case-sensitive) name.
func ModeByName(name ModeName) (TradingMode, error) {
	mode, ok := Modes[name]
	if !ok {
		return TradingMode{}, fmt.Errorf("unknown trading mode %q", name)
	}
	return mode, nil
}

// Validate checks the internal consistency of a mode configuration.
func (m TradingMode) Validate() error {
	if m.TPFraction <= 0 || m.SLFraction <= 0 {
		return fmt.Errorf("mode %s: TP/SL fractions must be positive", m.Name)
	}
	if m.MinConfidence < 0 || m.MinConfidence > 1 {
		return fmt.Errorf("mode %s: MinConfidence must be in [0,1]", m.Name)
	}
	if m.MaxPositions <= 0 {
		return fmt.Errorf("mode %s: MaxPositions must be positive", m.Name)
	}
	if m.ScanInterval <= 0 {
		return fmt.Errorf("mode %s: ScanInterval must be positive", m.Name)
	}
	if m.MaxConsecLosses <= 0 {
		return fmt.Errorf("mode %s: MaxConsecLosses must be positive", m.Name)
	}
	return nil
}
