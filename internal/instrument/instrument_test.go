package instrument

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()

	gold, err := table.Lookup("XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, "XAUUSD", gold.Symbol)
	assert.Equal(t, 0.01, gold.Point)
	assert.Equal(t, 1.0, gold.TickValue)
	assert.Equal(t, 2, gold.Digits)

	eur, err := table.Lookup("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 0.0001, eur.Point)
	assert.Equal(t, 5, eur.Digits)

	_, err = table.Lookup("UNKNOWN")
	assert.Error(t, err)

	assert.Len(t, table.Symbols(), 5)
}

func TestMoneyToPriceOffset(t *testing.T) {
	gold := Spec{Symbol: "XAUUSD", Point: 0.01, TickValue: 1.0, ContractSize: 100, Digits: 2}

	// $10 at 0.1 lots of gold: 10 / (1.0 * 0.1) = 100 points = $1.00.
	offset, err := gold.MoneyToPriceOffset(10, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.00, offset, 1e-9)

	// $30 at the same size is three times the distance.
	offset, err = gold.MoneyToPriceOffset(30, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 3.00, offset, 1e-9)

	_, err = gold.MoneyToPriceOffset(10, 0)
	assert.Error(t, err)
}

func TestProfitFor(t *testing.T) {
	gold := Spec{Symbol: "XAUUSD", Point: 0.01, TickValue: 1.0, ContractSize: 100, Digits: 2}

	// Long 0.1 lots, $1.00 move up: 100 points * 1.0 * 0.1 = $10.
	assert.InDelta(t, 10, gold.ProfitFor(2650.00, 2651.00, 0.1, true), 1e-9)
	// Same move against a short loses the same amount.
	assert.InDelta(t, -10, gold.ProfitFor(2650.00, 2651.00, 0.1, false), 1e-9)
	// Short profits from a drop.
	assert.InDelta(t, 30, gold.ProfitFor(2650.00, 2647.00, 0.1, false), 1e-9)
}

func TestSpecValidate(t *testing.T) {
	valid := Spec{Symbol: "X", Point: 0.01, TickValue: 1, ContractSize: 100, Digits: 2}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Point = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.TickValue = -1
	assert.Error(t, bad.Validate())

	bad = valid
	bad.ContractSize = 0
	assert.Error(t, bad.Validate())
}

func TestLoadTable_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instruments.yaml")
	doc := `instruments:
  XAUUSD:
    point: 0.01
    tick_value: 1.5
    contract_size: 100
    digits: 2
  USDCHF:
    point: 0.0001
    tick_value: 11.2
    contract_size: 100000
    digits: 5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)

	// Overridden symbol takes the file's values.
	gold, err := table.Lookup("XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.5, gold.TickValue)

	// New symbol is added.
	chf, err := table.Lookup("USDCHF")
	require.NoError(t, err)
	assert.Equal(t, "USDCHF", chf.Symbol)
	assert.Equal(t, 11.2, chf.TickValue)

	// Untouched defaults survive.
	eur, err := table.Lookup("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 10.0, eur.TickValue)
}

func TestLoadTable_Errors(t *testing.T) {
	_, err := LoadTable("/nonexistent/instruments.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("instruments: [not a map"), 0o644))
	_, err = LoadTable(badPath)
	assert.Error(t, err)

	invalidPath := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalidPath, []byte("instruments:\n  BAD:\n    point: 0\n    tick_value: 1\n    contract_size: 1\n    digits: 2\n"), 0o644))
	_, err = LoadTable(invalidPath)
	assert.Error(t, err, "zero point must fail validation")
}
