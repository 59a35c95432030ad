package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrKindMismatch indicates a discount was routed to the wrong strategy.
	ErrKindMismatch = errors.New("discount kind does not match strategy")
	// ErrUnknownKind indicates a discount kind outside the supported set.
	ErrUnknownKind = errors.New("unknown discount kind")
	// ErrInvalidParams indicates the kind parameters fail their required shape.
	ErrInvalidParams = errors.New("invalid discount parameters")
)

// stageResult is what a strategy hands back to the accumulator: the next pool
// generation, the discount granted, and the quantity it consumed.
type stageResult struct {
	items              []Item
	totalDiscount      Money
	quantityDiscounted int
	freeShipping       bool
}

// applyDiscountStrategy routes a discount to its kind's algorithm.
func applyDiscountStrategy(items []Item, d Discount, ctx OrderContext) (stageResult, error) {
	switch d.Kind {
	case KindRegular:
		return applyRegular(items, d, ctx)
	case KindBulk:
		return applyBulk(items, d, ctx)
	case KindBuyXGetY:
		return applyBuyXGetY(items, d, ctx)
	case KindBundle:
		return applyBundle(items, d, ctx)
	case KindOrder:
		return applyOrder(items, d, ctx)
	}
	return stageResult{}, fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
}

func guardKind(d Discount, want DiscountKind) error {
	if d.Kind != want {
		return fmt.Errorf("%w: got %q, want %q", ErrKindMismatch, d.Kind, want)
	}
	return nil
}

// applyRegular discounts every matching item by its own quantity and price.
// It never consumes quantity: the pool passes through unchanged.
func applyRegular(items []Item, d Discount, _ OrderContext) (stageResult, error) {
	if err := guardKind(d, KindRegular); err != nil {
		return stageResult{}, err
	}

	result := stageResult{items: cloneItems(items)}
	for _, it := range items {
		if !testProductFilters(d.Filters, it.Product) {
			continue
		}
		result.totalDiscount += BoundedDiscount(
			float64(it.Qty), it.Price(), d.Params.Percent, d.Params.Fixed,
		)
		result.quantityDiscounted += it.Qty
	}
	return result, nil
}

// applyBulk groups qualifying quantity into bulks of Params.Qty units and
// discounts the aggregate value of the consumed units. Fixed-per-bulk
// multiplies by the number of bulks; percent applies once to the aggregate.
func applyBulk(items []Item, d Discount, _ OrderContext) (stageResult, error) {
	if err := guardKind(d, KindBulk); err != nil {
		return stageResult{}, err
	}
	if d.Params.Qty <= 0 {
		return stageResult{}, fmt.Errorf("%w: bulk qty must be positive", ErrInvalidParams)
	}

	mask := ComputePassMask(items, d.Filters)

	bulksFit := mask.PassQuantity / d.Params.Qty
	if !d.Params.Recursive && bulksFit > 1 {
		bulksFit = 1
	}
	toReduce := bulksFit * d.Params.Qty

	reduced := ReduceQuantity(items, toReduce, mask.Pass)
	discount := BoundedDiscount(
		1, reduced.Total, d.Params.Percent, d.Params.Fixed*Money(bulksFit),
	)

	return stageResult{
		items:              reduced.Items,
		totalDiscount:      discount,
		quantityDiscounted: toReduce,
	}, nil
}

// applyBuyXGetY consumes QtyX units matching the discount's filters, then
// discounts QtyY units matching Params.FiltersY out of the already-reduced
// pool. When the Y supply is insufficient the X units consumed in that
// iteration are kept, matching the behaviour the stored breakdowns were
// produced with.
func applyBuyXGetY(items []Item, d Discount, _ OrderContext) (stageResult, error) {
	if err := guardKind(d, KindBuyXGetY); err != nil {
		return stageResult{}, err
	}
	if d.Params.QtyX <= 0 || d.Params.QtyY <= 0 {
		return stageResult{}, fmt.Errorf("%w: qty_x and qty_y must be positive", ErrInvalidParams)
	}

	result := stageResult{items: items}
	for {
		maskX := ComputePassMask(result.items, d.Filters)
		if d.Params.QtyX > maskX.PassQuantity {
			break
		}
		// X is consumed without discount. The reduction is committed before
		// the Y check: a failing Y supply does not restore the X units.
		reducedX := ReduceQuantity(result.items, d.Params.QtyX, maskX.Pass)
		result.items = reducedX.Items

		maskY := ComputePassMask(result.items, d.Params.FiltersY)
		if d.Params.QtyY > maskY.PassQuantity {
			break
		}
		reducedY := ReduceQuantity(result.items, d.Params.QtyY, maskY.Pass)

		result.items = reducedY.Items
		result.totalDiscount += BoundedDiscount(
			1, reducedY.Total, d.Params.Percent, d.Params.Fixed,
		)
		result.quantityDiscounted += d.Params.QtyX + d.Params.QtyY

		if !d.Params.Recursive {
			break
		}
	}
	return result, nil
}

// applyBundle treats each filter of the discount as one bundle slot. Per
// iteration every slot locates the first item in pool order with remaining
// quantity that passes that single filter; one unit is taken per slot and the
// summed unit prices are discounted as a whole.
func applyBundle(items []Item, d Discount, _ OrderContext) (stageResult, error) {
	if err := guardKind(d, KindBundle); err != nil {
		return stageResult{}, err
	}

	result := stageResult{items: cloneItems(items)}
	for {
		locations := make([]int, 0, len(d.Filters))
		complete := len(d.Filters) > 0
		for _, f := range d.Filters {
			loc := -1
			for ix, it := range result.items {
				if it.Qty > 0 && testProductFilters([]Filter{f}, it.Product) {
					loc = ix
					break
				}
			}
			if loc == -1 {
				complete = false
				break
			}
			locations = append(locations, loc)
		}
		if !complete {
			break
		}

		var sum Money
		for _, loc := range locations {
			result.items[loc].Qty--
			sum += result.items[loc].Price()
		}

		// quantityDiscounted reflects the last iteration's slot count while
		// the discount accumulates. TODO: accumulate once downstream order
		// records tolerate the changed quantity totals.
		result.quantityDiscounted = len(locations)
		result.totalDiscount += BoundedDiscount(1, sum, d.Params.Percent, d.Params.Fixed)

		if !d.Params.Recursive {
			break
		}
	}
	return result, nil
}

// applyOrder evaluates the order-scope filter set against the running order
// context and, when it passes, discounts the whole subtotal once. The item
// pool is untouched. Params.FreeShipping is surfaced to the caller; shipping
// adjustment is not this layer's responsibility.
func applyOrder(items []Item, d Discount, ctx OrderContext) (stageResult, error) {
	if err := guardKind(d, KindOrder); err != nil {
		return stageResult{}, err
	}

	result := stageResult{items: items}
	if !testOrderFilters(d.Filters, ctx) {
		return result, nil
	}

	result.totalDiscount = BoundedDiscount(1, ctx.Subtotal, d.Params.Percent, d.Params.Fixed)
	result.freeShipping = d.Params.FreeShipping
	return result, nil
}

// ValidateParams checks that a discount definition carries exactly the
// parameter shape its kind requires. Storage ingestion runs this before a
// definition is accepted.
func ValidateParams(d Discount) error {
	switch d.Kind {
	case KindRegular:
		if d.Params.Qty != 0 || d.Params.QtyX != 0 || d.Params.QtyY != 0 || len(d.Params.FiltersY) != 0 {
			return fmt.Errorf("%w: regular discount takes only percent/fixed", ErrInvalidParams)
		}
	case KindBulk:
		if d.Params.Qty <= 0 {
			return fmt.Errorf("%w: bulk qty must be positive", ErrInvalidParams)
		}
		if d.Params.QtyX != 0 || d.Params.QtyY != 0 || len(d.Params.FiltersY) != 0 {
			return fmt.Errorf("%w: bulk discount does not take buy/get parameters", ErrInvalidParams)
		}
	case KindBuyXGetY:
		if d.Params.QtyX <= 0 || d.Params.QtyY <= 0 {
			return fmt.Errorf("%w: qty_x and qty_y must be positive", ErrInvalidParams)
		}
		if d.Params.Qty != 0 {
			return fmt.Errorf("%w: buy_x_get_y does not take a bulk qty", ErrInvalidParams)
		}
	case KindBundle:
		if len(d.Filters) == 0 {
			return fmt.Errorf("%w: bundle discount needs at least one slot filter", ErrInvalidParams)
		}
		if d.Params.Qty != 0 || d.Params.QtyX != 0 || d.Params.QtyY != 0 {
			return fmt.Errorf("%w: bundle discount takes no quantity parameters", ErrInvalidParams)
		}
	case KindOrder:
		if d.Params.Qty != 0 || d.Params.QtyX != 0 || d.Params.QtyY != 0 || d.Params.Recursive {
			return fmt.Errorf("%w: order discount takes only percent/fixed/free_shipping", ErrInvalidParams)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
	}
	return nil
}
