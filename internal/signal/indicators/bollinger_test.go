package indicators

import (
	"errors"
	"math"
	"testing"
)

func TestBollinger(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	bands, err := Bollinger(prices, 5, 2.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantMiddle := 3.0
	wantStd := math.Sqrt(2.0) // population stddev of 1..5
	if !almostEqual(bands.Middle, wantMiddle, 1e-9) {
		t.Errorf("Middle = %f, want %f", bands.Middle, wantMiddle)
	}
	if !almostEqual(bands.Upper, wantMiddle+2*wantStd, 1e-9) {
		t.Errorf("Upper = %f, want %f", bands.Upper, wantMiddle+2*wantStd)
	}
	if !almostEqual(bands.Lower, wantMiddle-2*wantStd, 1e-9) {
		t.Errorf("Lower = %f, want %f", bands.Lower, wantMiddle-2*wantStd)
	}
}

func TestBollinger_Ordering(t *testing.T) {
	series := [][]float64{
		{5, 1, 9, 3, 7, 2, 8},
		{100, 100, 100, 100, 100},
		{0.5, 0.9, 0.1, 0.4, 0.8},
	}
	for _, prices := range series {
		bands, err := Bollinger(prices, len(prices), 2.0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bands.Upper < bands.Middle || bands.Middle < bands.Lower {
			t.Errorf("band ordering violated: %+v for %v", bands, prices)
		}
	}
}

func TestBollinger_FlatPricesCollapseBands(t *testing.T) {
	bands, err := Bollinger([]float64{7, 7, 7, 7}, 4, 2.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bands.Upper != 7 || bands.Middle != 7 || bands.Lower != 7 {
		t.Errorf("expected collapsed bands at 7, got %+v", bands)
	}
}

func TestBollinger_Errors(t *testing.T) {
	if _, err := Bollinger([]float64{1, 2}, 5, 2.0); !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("expected ErrNotEnoughData, got %v", err)
	}
	if _, err := Bollinger([]float64{1, 2, 3}, 3, -1.0); err == nil {
		t.Error("expected error for negative deviation multiplier")
	}
}
