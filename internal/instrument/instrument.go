// Package instrument holds the per-symbol contract parameters needed to
// convert money amounts into price offsets. Conversion factors differ per
// broker, so the table is loadable from a YAML file; the built-in defaults
// cover the common retail symbols.
package instrument

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec describes one tradable instrument.
type Spec struct {
	Symbol       string  `yaml:"-"`
	Point        float64 `yaml:"point"`         // smallest price increment
	TickValue    float64 `yaml:"tick_value"`    // account-currency value of one point move per 1.0 lot
	ContractSize float64 `yaml:"contract_size"` // units per 1.0 lot
	Digits       int     `yaml:"digits"`        // price decimal places
}

// Validate checks that the spec can be used for money-to-price conversion.
func (s Spec) Validate() error {
	if s.Point <= 0 {
		return fmt.Errorf("instrument %s: point must be positive", s.Symbol)
	}
	if s.TickValue <= 0 {
		return fmt.Errorf("instrument %s: tick_value must be positive", s.Symbol)
	}
	if s.ContractSize <= 0 {
		return fmt.Errorf("instrument %s: contract_size must be positive", s.Symbol)
	}
	return nil
}

// MoneyToPriceOffset converts an account-currency amount into a price offset
// for a position of the given lot size.
func (s Spec) MoneyToPriceOffset(amount, lots float64) (float64, error) {
	if lots <= 0 {
		return 0, fmt.Errorf("instrument %s: lots must be positive, got %f", s.Symbol, lots)
	}
	points := amount / (s.TickValue * lots)
	return points * s.Point, nil
}

// ProfitFor computes the account-currency PnL of a closed position.
func (s Spec) ProfitFor(entryPrice, exitPrice, lots float64, isLong bool) float64 {
	diff := exitPrice - entryPrice
	if !isLong {
		diff = -diff
	}
	return diff / s.Point * s.TickValue * lots
}

// Table maps symbols to their specs.
type Table struct {
	specs map[string]Spec
}

// file is the YAML document shape:
//
//	instruments:
//	  XAUUSD: {point: 0.01, tick_value: 1.0, contract_size: 100, digits: 2}
type file struct {
	Instruments map[string]Spec `yaml:"instruments"`
}

// DefaultTable returns specs for the symbols the bot ships with. Tick values
// assume a USD account; JPY crosses in particular need broker-specific
// overrides via LoadTable.
func DefaultTable() *Table {
	return &Table{specs: map[string]Spec{
		"XAUUSD": {Symbol: "XAUUSD", Point: 0.01, TickValue: 1.0, ContractSize: 100, Digits: 2},
		"EURUSD": {Symbol: "EURUSD", Point: 0.0001, TickValue: 10.0, ContractSize: 100000, Digits: 5},
		"GBPUSD": {Symbol: "GBPUSD", Point: 0.0001, TickValue: 10.0, ContractSize: 100000, Digits: 5},
		"USDJPY": {Symbol: "USDJPY", Point: 0.01, TickValue: 6.7, ContractSize: 100000, Digits: 3},
		"BTCUSD": {Symbol: "BTCUSD", Point: 0.01, TickValue: 0.01, ContractSize: 1, Digits: 2},
	}}
}

// LoadTable reads instrument specs from a YAML file, merged over the
// defaults so a partial file only overrides what it names.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instrument table %s: %w", path, err)
	}

	var doc file
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse instrument table %s: %w", path, err)
	}

	table := DefaultTable()
	for symbol, spec := range doc.Instruments {
		spec.Symbol = symbol
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		table.specs[symbol] = spec
	}
	return table, nil
}

// Lookup returns the spec for a symbol.
func (t *Table) Lookup(symbol string) (Spec, error) {
	spec, ok := t.specs[symbol]
	if !ok {
		return Spec{}, fmt.Errorf("no instrument spec for symbol %q", symbol)
	}
	return spec, nil
}

// Symbols lists the configured symbols.
func (t *Table) Symbols() []string {
	out := make([]string, 0, len(t.specs))
	for s := range t.specs {
		out = append(out, s)
	}
	return out
}
