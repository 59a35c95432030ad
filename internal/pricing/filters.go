package pricing

import "math"

// testProductFilter evaluates a single product-scope filter against a product
// snapshot. Unknown operators and missing data fail closed: the item is
// excluded rather than the computation aborted.
func testProductFilter(f Filter, product *ProductSnapshot) bool {
	if product == nil {
		return f.Op == OpProductAll
	}

	switch f.Op {
	case OpProductAll:
		return true

	case OpProductInPriceRange:
		from := 0.0
		to := math.Inf(1)
		if f.From != nil {
			from = *f.From
		}
		if f.To != nil {
			to = *f.To
		}
		return product.Price >= from && product.Price <= to

	case OpProductInCollections:
		return anyIn(product.Collections, f.Values)
	case OpProductNotInCollections:
		return !anyIn(product.Collections, f.Values)

	case OpProductInHandles:
		return contains(f.Values, product.Handle)
	case OpProductNotInHandles:
		return !contains(f.Values, product.Handle)

	case OpProductInTags:
		return anyIn(product.Tags, f.Values)
	case OpProductNotInTags:
		return !anyIn(product.Tags, f.Values)
	}

	return false
}

// testProductFilters reports whether an item's snapshot passes a filter set.
// The set is restricted to product-scope filters first; an empty or
// all-order-scope set never matches any product.
func testProductFilters(filters []Filter, product *ProductSnapshot) bool {
	matched := false
	for _, f := range filters {
		if f.Op.Scope() != FilterScopeProduct {
			continue
		}
		if !testProductFilter(f, product) {
			return false
		}
		matched = true
	}
	return matched
}

// testOrderFilter evaluates a single order-scope filter against aggregate
// order context. Unknown operators fail closed.
func testOrderFilter(f Filter, ctx OrderContext) bool {
	switch f.Op {
	case OpOrderDateInRange:
		if f.From == nil || f.To == nil {
			return false
		}
		now := float64(ctx.Now.UnixMilli())
		return now >= *f.From && now < *f.To

	case OpOrderHasCustomer:
		return ctx.CustomerID != "" && contains(f.Values, ctx.CustomerID)

	case OpOrderItemsCountInRange:
		if f.From == nil {
			return false
		}
		return float64(ctx.Quantity) >= *f.From

	case OpOrderSubtotalInRange:
		if f.From == nil {
			return false
		}
		return ctx.Subtotal >= *f.From
	}

	return false
}

// testOrderFilters applies the same non-empty, all-must-pass semantics as the
// product variant, restricted to order-scope filters.
func testOrderFilters(filters []Filter, ctx OrderContext) bool {
	matched := false
	for _, f := range filters {
		if f.Op.Scope() != FilterScopeOrder {
			continue
		}
		if !testOrderFilter(f, ctx) {
			return false
		}
		matched = true
	}
	return matched
}

func contains(values []string, v string) bool {
	for _, el := range values {
		if el == v {
			return true
		}
	}
	return false
}

func anyIn(haystack, needles []string) bool {
	for _, h := range haystack {
		if contains(needles, h) {
			return true
		}
	}
	return false
}
