package pricing

import "math"

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(math.Min(v, hi), lo)
}

// BoundedDiscount computes the monetary discount for qty units priced at
// unitPrice. Quantity is floored to a non-negative integer, percentOff is
// clamped to [0,100] and fixedOff is coerced to a non-negative amount. The
// result is clamped to [0, qty*unitPrice] so a discount can never be negative
// or exceed the value it applies to. Every strategy routes its monetary
// computation through here.
func BoundedDiscount(qty float64, unitPrice Money, percentOff float64, fixedOff Money) Money {
	quantity := math.Floor(math.Max(qty, 0))
	percentOff = clampFloat(percentOff, 0, 100)
	if fixedOff < 0 || math.IsNaN(fixedOff) {
		fixedOff = 0
	}

	totalPrice := unitPrice * quantity
	totalOff := (totalPrice*percentOff)/100 - fixedOff*quantity

	return math.Min(math.Max(totalOff, 0), totalPrice)
}

func round2(v Money) Money {
	return math.Round(v*100) / 100
}
