package indicators

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name        string
		prices      []float64
		period      int
		expected    float64
		expectError bool
	}{
		{
			name:     "last three of five",
			prices:   []float64{1, 2, 3, 4, 5},
			period:   3,
			expected: 4,
		},
		{
			name:     "full window",
			prices:   []float64{10, 20, 30},
			period:   3,
			expected: 20,
		},
		{
			name:        "insufficient data",
			prices:      []float64{1, 2},
			period:      3,
			expectError: true,
		},
		{
			name:        "invalid period",
			prices:      []float64{1, 2, 3},
			period:      0,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SMA(tt.prices, tt.period)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got value %f", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got, tt.expected, 1e-9) {
				t.Errorf("SMA = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestSMA_ShortInputIsNotEnoughData(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 5)
	if !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("expected ErrNotEnoughData, got %v", err)
	}
}

func TestEMA(t *testing.T) {
	tests := []struct {
		name        string
		prices      []float64
		period      int
		expected    float64
		expectError bool
	}{
		{
			// seed = SMA(2,4,6) = 4, multiplier 0.5
			// step 8:  (8-4)*0.5+4 = 6
			// step 10: (10-6)*0.5+6 = 8
			name:     "sma seeded smoothing",
			prices:   []float64{2, 4, 6, 8, 10},
			period:   3,
			expected: 8,
		},
		{
			name:     "window equals period returns seed",
			prices:   []float64{3, 6, 9},
			period:   3,
			expected: 6,
		},
		{
			name:        "insufficient data",
			prices:      []float64{1, 2},
			period:      3,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EMA(tt.prices, tt.period)
			if tt.expectError {
				if !errors.Is(err, ErrNotEnoughData) {
					t.Fatalf("expected ErrNotEnoughData, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got, tt.expected, 1e-9) {
				t.Errorf("EMA = %f, want %f", got, tt.expected)
			}
		})
	}
}

func TestEMA_Deterministic(t *testing.T) {
	prices := []float64{100, 101, 99, 102, 103, 101, 104, 105}
	first, err := EMA(prices, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := EMA(prices, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("EMA not deterministic: %f vs %f", first, second)
	}
}

func TestWMA(t *testing.T) {
	tests := []struct {
		name        string
		prices      []float64
		period      int
		expected    float64
		expectError bool
	}{
		{
			// (1*1 + 2*2 + 3*3) / 6 = 14/6
			name:     "linear weights favor recent",
			prices:   []float64{1, 2, 3},
			period:   3,
			expected: 14.0 / 6.0,
		},
		{
			name:     "uses only the last period prices",
			prices:   []float64{100, 100, 1, 2, 3},
			period:   3,
			expected: 14.0 / 6.0,
		},
		{
			name:        "insufficient data",
			prices:      []float64{1},
			period:      2,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WMA(tt.prices, tt.period)
			if tt.expectError {
				if !errors.Is(err, ErrNotEnoughData) {
					t.Fatalf("expected ErrNotEnoughData, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got, tt.expected, 1e-9) {
				t.Errorf("WMA = %f, want %f", got, tt.expected)
			}
		})
	}
}
