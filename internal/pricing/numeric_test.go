package pricing

import (
	"math"
	"testing"
)

func TestBoundedDiscountNeverExceedsLineValue(t *testing.T) {
	quantities := []float64{0, 1, 2.7, 5, 13}
	prices := []Money{0, 0.5, 10, 99.99, 1500}
	percents := []float64{0, 10, 50, 100, 250, -5}
	fixeds := []Money{0, 1, 25, -3}

	for _, q := range quantities {
		for _, p := range prices {
			for _, pct := range percents {
				for _, f := range fixeds {
					got := BoundedDiscount(q, p, pct, f)
					max := p * math.Floor(math.Max(q, 0))
					if got < 0 || got > max {
						t.Fatalf("BoundedDiscount(%v,%v,%v,%v)=%v out of [0,%v]", q, p, pct, f, got, max)
					}
				}
			}
		}
	}
}

func TestBoundedDiscountFloorsQuantity(t *testing.T) {
	if got := BoundedDiscount(2.9, 100, 50, 0); got != 100 {
		t.Fatalf("expected discount on 2 units = 100, got %v", got)
	}
}

func TestBoundedDiscountFixedReducesPercent(t *testing.T) {
	// 10% of 3x100 minus 5 per unit.
	if got := BoundedDiscount(3, 100, 10, 5); got != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
}

func TestBoundedDiscountNaNInputs(t *testing.T) {
	if got := BoundedDiscount(2, 100, math.NaN(), math.NaN()); got != 0 {
		t.Fatalf("expected NaN inputs coerced to zero discount, got %v", got)
	}
}

func TestRound2(t *testing.T) {
	if got := round2(295.004999); got != 295.00 {
		t.Fatalf("expected 295.00, got %v", got)
	}
	if got := round2(0.125); got != 0.13 {
		t.Fatalf("expected 0.13, got %v", got)
	}
}
