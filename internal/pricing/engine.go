package pricing

import (
	"math"
	"sort"
	"time"
)

// CalculatePricing applies the discount stack to the item pool and returns
// the full auditable breakdown. It is pure: user-input-shaped problems are
// routed into the result's Errors, never raised. Disabled definitions and
// definitions in the wrong application mode are filtered out here, so passing
// pre-filtered lists is also safe.
func CalculatePricing(items []Item, autoDiscounts, coupons []Discount, shipping ShippingSelection, customerID string) PricingResult {
	return CalculatePricingAt(items, autoDiscounts, coupons, shipping, customerID, time.Now())
}

// CalculatePricingAt is CalculatePricing with an explicit evaluation instant
// for date-scoped filters.
func CalculatePricingAt(items []Item, autoDiscounts, coupons []Discount, shipping ShippingSelection, customerID string, now time.Time) PricingResult {
	discounts := selectDiscounts(autoDiscounts, coupons)
	pool := normalizeItems(items)

	if math.IsNaN(shipping.Price) || shipping.Price < 0 {
		shipping.Price = 0
	}

	var subtotal Money
	for _, it := range pool {
		subtotal += Money(it.Qty) * it.Price()
	}
	quantityTotal := TotalQuantity(pool)

	result := PricingResult{
		CustomerID:           customerID,
		Shipping:             shipping,
		SubtotalUndiscounted: subtotal,
		Subtotal:             subtotal,
		TotalUndiscounted:    subtotal + shipping.Price,
		Total:                subtotal + shipping.Price,
		QuantityTotal:        quantityTotal,
		QuantityUndiscounted: quantityTotal,
		Evolution: []Snapshot{{
			Subtotal:             subtotal,
			Total:                subtotal + shipping.Price,
			QuantityUndiscounted: quantityTotal,
			Items:                pool,
		}},
	}

	for _, d := range discounts {
		ctx := OrderContext{
			CustomerID: customerID,
			Subtotal:   result.Subtotal,
			Quantity:   result.QuantityTotal,
			Now:        now,
		}
		current := result.Evolution[len(result.Evolution)-1].Items

		stage, err := applyDiscountStrategy(current, d, ctx)
		if err != nil {
			// The failing discount contributes nothing: totals and pool stay
			// untouched and the remaining stack still runs.
			result.Errors = append(result.Errors, DiscountError{
				DiscountCode: d.Code,
				Message:      err.Error(),
			})
			result.Total = round2(result.Total)
			continue
		}

		result.SubtotalDiscount += stage.totalDiscount
		result.Subtotal -= stage.totalDiscount
		result.Total -= stage.totalDiscount
		result.QuantityDiscounted += stage.quantityDiscounted
		result.QuantityUndiscounted -= stage.quantityDiscounted
		if stage.freeShipping {
			result.FreeShipping = true
		}

		result.Evolution = append(result.Evolution, Snapshot{
			DiscountCode:         d.Code,
			TotalDiscount:        stage.totalDiscount,
			Subtotal:             result.Subtotal,
			Total:                result.Total,
			QuantityDiscounted:   stage.quantityDiscounted,
			QuantityUndiscounted: TotalQuantity(stage.items),
			Items:                stage.items,
		})

		// Only the running total is rounded per stage; intermediate subtotal
		// and discount amounts keep full precision so rounding error does not
		// compound across discounts.
		result.Total = round2(result.Total)
	}

	return result
}

// selectDiscounts fixes the application order: enabled automatic discounts
// sorted ascending by priority, then enabled manual coupons sorted the same
// way. Auto-before-manual is a contract, not incidental.
func selectDiscounts(autoDiscounts, coupons []Discount) []Discount {
	selected := make([]Discount, 0, len(autoDiscounts)+len(coupons))
	for _, d := range autoDiscounts {
		if d.Enabled && d.Application == ApplicationAutomatic {
			selected = append(selected, d)
		}
	}
	autoCount := len(selected)
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Priority < selected[j].Priority
	})

	for _, d := range coupons {
		if d.Enabled && d.Application == ApplicationManual {
			selected = append(selected, d)
		}
	}
	manual := selected[autoCount:]
	sort.SliceStable(manual, func(i, j int) bool {
		return manual[i].Priority < manual[j].Priority
	})
	return selected
}

// normalizeItems clamps quantities and orders the pool by descending unit
// price with original order preserved for equal prices. Pool order decides
// which units the reducing strategies consume first, so this ordering is
// load-bearing.
func normalizeItems(items []Item) []Item {
	pool := cloneItems(items)
	for ix := range pool {
		if pool[ix].Qty < 0 {
			pool[ix].Qty = 0
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Price() > pool[j].Price()
	})
	return pool
}
