package pricing

// PassMask records which items of a pool generation satisfy a filter set and
// how much quantity qualifies.
type PassMask struct {
	Pass          []bool
	PassQuantity  int
	TotalQuantity int
}

// ComputePassMask evaluates the filter set once per item, in pool order.
func ComputePassMask(items []Item, filters []Filter) PassMask {
	mask := PassMask{Pass: make([]bool, len(items))}
	for ix, it := range items {
		pass := testProductFilters(filters, it.Product)
		mask.Pass[ix] = pass
		if pass {
			mask.PassQuantity += it.Qty
		}
		mask.TotalQuantity += it.Qty
	}
	return mask
}

// ReduceResult reports the outcome of a quantity reduction.
type ReduceResult struct {
	// Items is the next pool generation with reduced quantities.
	Items []Item
	// Total is the monetary value of the removed units.
	Total Money
	// Remaining is how much of the target could not be satisfied. Callers
	// must check it: supply may be insufficient.
	Remaining int
}

// ReduceQuantity removes up to target units from the masked-in items,
// consuming them in the pool's current order. The input generation is never
// mutated; historical snapshots stay valid.
func ReduceQuantity(items []Item, target int, mask []bool) ReduceResult {
	next := cloneItems(items)
	result := ReduceResult{Items: next, Remaining: target}

	for ix := range next {
		if ix >= len(mask) || !mask[ix] {
			continue
		}
		take := result.Remaining
		if next[ix].Qty < take {
			take = next[ix].Qty
		}
		result.Remaining -= take
		result.Total += Money(take) * next[ix].Price()
		next[ix].Qty -= take
	}
	return result
}
