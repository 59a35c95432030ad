package pricing

import "time"

// Money represents a monetary value in major currency units.
type Money = float64

// ProductSnapshot carries the authoritative product fields a line item was
// joined with before pricing. Filters match against this snapshot, never
// against live storage.
type ProductSnapshot struct {
	Handle      string   `json:"handle"`
	Price       Money    `json:"price"`
	Collections []string `json:"collections,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Item is one line entry of the pool at a given discount stage. Quantity is
// never mutated in place; every reduction produces a new generation.
type Item struct {
	ID        string           `json:"id"`
	UnitPrice *Money           `json:"unit_price,omitempty"`
	Qty       int              `json:"qty"`
	Product   *ProductSnapshot `json:"product,omitempty"`
}

// Price resolves the effective unit price. An explicit price wins even when
// it is zero; only an absent price falls back to the product snapshot.
func (it Item) Price() Money {
	if it.UnitPrice != nil {
		return *it.UnitPrice
	}
	if it.Product != nil {
		return it.Product.Price
	}
	return 0
}

// FilterScope distinguishes predicates matched per product from predicates
// matched against aggregate order context.
type FilterScope string

const (
	FilterScopeProduct FilterScope = "product"
	FilterScopeOrder   FilterScope = "order"
)

// FilterOp enumerates the supported filter predicates.
type FilterOp string

const (
	OpProductAll              FilterOp = "p_all"
	OpProductInPriceRange     FilterOp = "p_in_price_range"
	OpProductInCollections    FilterOp = "p_in_collections"
	OpProductNotInCollections FilterOp = "p_not_in_collections"
	OpProductInHandles        FilterOp = "p_in_handles"
	OpProductNotInHandles     FilterOp = "p_not_in_handles"
	OpProductInTags           FilterOp = "p_in_tags"
	OpProductNotInTags        FilterOp = "p_not_in_tags"

	OpOrderDateInRange      FilterOp = "o_date_in_range"
	OpOrderHasCustomer      FilterOp = "o_has_customer"
	OpOrderItemsCountInRange FilterOp = "o_items_count_in_range"
	OpOrderSubtotalInRange  FilterOp = "o_subtotal_in_range"
)

// Scope reports which context the operator evaluates against. Unknown
// operators report an empty scope and never match anything.
func (op FilterOp) Scope() FilterScope {
	switch op {
	case OpProductAll, OpProductInPriceRange,
		OpProductInCollections, OpProductNotInCollections,
		OpProductInHandles, OpProductNotInHandles,
		OpProductInTags, OpProductNotInTags:
		return FilterScopeProduct
	case OpOrderDateInRange, OpOrderHasCustomer,
		OpOrderItemsCountInRange, OpOrderSubtotalInRange:
		return FilterScopeOrder
	}
	return ""
}

// Filter is one immutable predicate owned by a discount definition. Only the
// parameter fields relevant to Op are read: From/To carry price or subtotal
// bounds, item-count thresholds, or unix-millisecond instants for
// o_date_in_range; Values carries collection, handle, tag or customer
// identifiers.
type Filter struct {
	Op     FilterOp  `json:"op"`
	From   *float64  `json:"from,omitempty"`
	To     *float64  `json:"to,omitempty"`
	Values []string  `json:"values,omitempty"`
}

// DiscountKind selects one of the five discount algorithms.
type DiscountKind string

const (
	KindRegular  DiscountKind = "regular"
	KindBulk     DiscountKind = "bulk"
	KindBuyXGetY DiscountKind = "buy_x_get_y"
	KindBundle   DiscountKind = "bundle"
	KindOrder    DiscountKind = "order"
)

// ApplicationMode distinguishes automatic discounts from manual coupons.
type ApplicationMode string

const (
	ApplicationAutomatic ApplicationMode = "automatic"
	ApplicationManual    ApplicationMode = "manual"
)

// Params is the kind-keyed parameter record of a discount. Exactly one shape
// is meaningful per kind; ValidateParams enforces it.
type Params struct {
	Percent      float64  `json:"percent,omitempty"`
	Fixed        Money    `json:"fixed,omitempty"`
	Qty          int      `json:"qty,omitempty"`
	QtyX         int      `json:"qty_x,omitempty"`
	QtyY         int      `json:"qty_y,omitempty"`
	Recursive    bool     `json:"recursive,omitempty"`
	FiltersY     []Filter `json:"filters_y,omitempty"`
	FreeShipping bool     `json:"free_shipping,omitempty"`
}

// Discount is a full discount or coupon definition.
type Discount struct {
	Code        string          `json:"code"`
	Title       string          `json:"title,omitempty"`
	Enabled     bool            `json:"enabled"`
	Application ApplicationMode `json:"application"`
	Priority    int             `json:"priority"`
	Kind        DiscountKind    `json:"kind"`
	Filters     []Filter        `json:"filters,omitempty"`
	Params      Params          `json:"params"`
}

// ShippingSelection is the shipping method chosen for the order.
type ShippingSelection struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Price Money  `json:"price"`
}

// OrderContext is the aggregate order state order-scope filters evaluate
// against.
type OrderContext struct {
	CustomerID string
	Subtotal   Money
	Quantity   int
	Now        time.Time
}

// Snapshot is one entry of the evolution trail: the pool and running totals
// after a discount was applied. The first snapshot carries the undiscounted
// state and no discount reference.
type Snapshot struct {
	DiscountCode         string `json:"discount_code,omitempty"`
	TotalDiscount        Money  `json:"total_discount"`
	Subtotal             Money  `json:"subtotal"`
	Total                Money  `json:"total"`
	QuantityDiscounted   int    `json:"quantity_discounted"`
	QuantityUndiscounted int    `json:"quantity_undiscounted"`
	Items                []Item `json:"items"`
}

// DiscountError records a discount that failed to apply. Failures never abort
// the remaining stack.
type DiscountError struct {
	DiscountCode string `json:"discount_code"`
	Message      string `json:"message"`
}

// PricingResult is the full auditable price breakdown. Consumers persist it
// verbatim as part of an order record.
type PricingResult struct {
	Evolution            []Snapshot        `json:"evolution"`
	CustomerID           string            `json:"customer_id,omitempty"`
	Shipping             ShippingSelection `json:"shipping"`
	SubtotalUndiscounted Money             `json:"subtotal_undiscounted"`
	SubtotalDiscount     Money             `json:"subtotal_discount"`
	Subtotal             Money             `json:"subtotal"`
	TotalUndiscounted    Money             `json:"total_undiscounted"`
	Total                Money             `json:"total"`
	QuantityTotal        int               `json:"quantity_total"`
	QuantityDiscounted   int               `json:"quantity_discounted"`
	QuantityUndiscounted int               `json:"quantity_undiscounted"`
	Errors               []DiscountError   `json:"errors,omitempty"`
	FreeShipping         bool              `json:"free_shipping,omitempty"`
}

// TotalQuantity sums the quantities of a pool generation.
func TotalQuantity(items []Item) int {
	var total int
	for _, it := range items {
		total += it.Qty
	}
	return total
}

func cloneItems(items []Item) []Item {
	next := make([]Item, len(items))
	copy(next, items)
	return next
}
