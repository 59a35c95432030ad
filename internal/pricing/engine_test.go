package pricing

import (
	"testing"
	"time"
)

func TestCalculatePricingOrderDiscountScenario(t *testing.T) {
	items := []Item{{ID: "x", UnitPrice: fptr(100), Qty: 3}}
	shipping := ShippingSelection{Price: 25}
	discount := Discount{
		Code: "TENOFF", Enabled: true, Application: ApplicationAutomatic,
		Kind:    KindOrder,
		Filters: []Filter{{Op: OpOrderSubtotalInRange, From: fptr(0), To: fptr(10000)}},
		Params:  Params{Percent: 10},
	}

	result := CalculatePricing(items, []Discount{discount}, nil, shipping, "")

	if result.SubtotalUndiscounted != 300 {
		t.Fatalf("expected undiscounted subtotal 300, got %v", result.SubtotalUndiscounted)
	}
	if result.SubtotalDiscount != 30 {
		t.Fatalf("expected total discount 30, got %v", result.SubtotalDiscount)
	}
	if result.Subtotal != 270 {
		t.Fatalf("expected subtotal 270, got %v", result.Subtotal)
	}
	if result.Total != 295.00 {
		t.Fatalf("expected total 295.00, got %v", result.Total)
	}
	if len(result.Evolution) != 2 {
		t.Fatalf("expected initial + one applied snapshot, got %d", len(result.Evolution))
	}
	if result.Evolution[1].DiscountCode != "TENOFF" {
		t.Fatalf("snapshot must reference the applied discount, got %q", result.Evolution[1].DiscountCode)
	}
}

func TestCalculatePricingAutoBeforeCoupons(t *testing.T) {
	items := []Item{gameItem("a", 100, 1, "games")}

	orderFilter := []Filter{{Op: OpOrderSubtotalInRange, From: fptr(0)}}
	auto := Discount{
		Code: "AUTO", Enabled: true, Application: ApplicationAutomatic, Priority: 99,
		Kind: KindOrder, Filters: orderFilter, Params: Params{Percent: 10},
	}
	coupon := Discount{
		Code: "COUPON", Enabled: true, Application: ApplicationManual, Priority: 0,
		Kind: KindOrder, Filters: orderFilter, Params: Params{Percent: 10},
	}

	result := CalculatePricing(items, []Discount{auto}, []Discount{coupon}, ShippingSelection{}, "")

	if len(result.Evolution) != 3 {
		t.Fatalf("expected both discounts applied, got %d snapshots", len(result.Evolution))
	}
	// The coupon's lower priority never jumps it ahead of the auto discount.
	if result.Evolution[1].DiscountCode != "AUTO" || result.Evolution[2].DiscountCode != "COUPON" {
		t.Fatalf("application order wrong: %q then %q",
			result.Evolution[1].DiscountCode, result.Evolution[2].DiscountCode)
	}
	// 10% of 100 then 10% of the remaining 90.
	if result.SubtotalDiscount != 19 {
		t.Fatalf("expected stacked discount 19, got %v", result.SubtotalDiscount)
	}
}

func TestCalculatePricingPrioritySortsWithinList(t *testing.T) {
	items := []Item{gameItem("a", 100, 1, "games")}
	orderFilter := []Filter{{Op: OpOrderSubtotalInRange, From: fptr(0)}}
	first := Discount{Code: "FIRST", Enabled: true, Application: ApplicationAutomatic, Priority: 1, Kind: KindOrder, Filters: orderFilter, Params: Params{Percent: 5}}
	second := Discount{Code: "SECOND", Enabled: true, Application: ApplicationAutomatic, Priority: 2, Kind: KindOrder, Filters: orderFilter, Params: Params{Percent: 5}}

	result := CalculatePricing(items, []Discount{second, first}, nil, ShippingSelection{}, "")
	if result.Evolution[1].DiscountCode != "FIRST" {
		t.Fatalf("expected priority ordering, got %q first", result.Evolution[1].DiscountCode)
	}
}

func TestCalculatePricingFiltersDisabledAndWrongMode(t *testing.T) {
	items := []Item{gameItem("a", 100, 1, "games")}
	orderFilter := []Filter{{Op: OpOrderSubtotalInRange, From: fptr(0)}}
	disabled := Discount{Code: "OFF", Enabled: false, Application: ApplicationAutomatic, Kind: KindOrder, Filters: orderFilter, Params: Params{Percent: 50}}
	manualInAuto := Discount{Code: "MIS", Enabled: true, Application: ApplicationManual, Kind: KindOrder, Filters: orderFilter, Params: Params{Percent: 50}}

	result := CalculatePricing(items, []Discount{disabled, manualInAuto}, nil, ShippingSelection{}, "")
	if result.SubtotalDiscount != 0 {
		t.Fatalf("expected no discount applied, got %v", result.SubtotalDiscount)
	}
	if len(result.Evolution) != 1 {
		t.Fatalf("expected only the seed snapshot, got %d", len(result.Evolution))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("skipped definitions are not errors, got %v", result.Errors)
	}
}

func TestCalculatePricingFailingDiscountIsIsolated(t *testing.T) {
	items := []Item{gameItem("a", 100, 2, "games")}
	broken := Discount{
		Code: "BROKEN", Enabled: true, Application: ApplicationAutomatic, Priority: 0,
		Kind: KindBulk, Filters: allGames(), // bulk qty missing
	}
	good := Discount{
		Code: "GOOD", Enabled: true, Application: ApplicationAutomatic, Priority: 1,
		Kind: KindOrder, Filters: []Filter{{Op: OpOrderSubtotalInRange, From: fptr(0)}},
		Params: Params{Percent: 10},
	}

	result := CalculatePricing(items, []Discount{broken, good}, nil, ShippingSelection{}, "")

	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one discount error, got %d", len(result.Errors))
	}
	if result.Errors[0].DiscountCode != "BROKEN" {
		t.Fatalf("error must name the offending discount, got %q", result.Errors[0].DiscountCode)
	}
	// The failure leaves totals untouched and the stack running.
	if result.SubtotalDiscount != 20 {
		t.Fatalf("expected the good discount's 20, got %v", result.SubtotalDiscount)
	}
	if len(result.Evolution) != 2 {
		t.Fatalf("no snapshot is appended for a failed discount, got %d", len(result.Evolution))
	}
}

func TestCalculatePricingExplicitZeroPriceWins(t *testing.T) {
	items := []Item{
		{ID: "free-sample", UnitPrice: fptr(0), Qty: 1, Product: &ProductSnapshot{Handle: "free-sample", Price: 59.90}},
		{ID: "zelda", Qty: 1, Product: &ProductSnapshot{Handle: "zelda", Price: 50}},
	}
	result := CalculatePricing(items, nil, nil, ShippingSelection{}, "")
	// An explicit zero is a real price; only the item without one falls back
	// to its snapshot.
	if result.SubtotalUndiscounted != 50 {
		t.Fatalf("expected subtotal 50, got %v", result.SubtotalUndiscounted)
	}
}

func TestCalculatePricingStackedRegularAccounting(t *testing.T) {
	items := []Item{gameItem("a", 100, 2, "games")}
	ten := func(code string, priority int) Discount {
		return Discount{
			Code: code, Enabled: true, Application: ApplicationAutomatic, Priority: priority,
			Kind: KindRegular, Filters: allGames(), Params: Params{Percent: 10},
		}
	}

	result := CalculatePricing(items, []Discount{ten("REG-A", 1), ten("REG-B", 2)}, nil, ShippingSelection{}, "")

	// Regular never consumes pool quantity, so a second regular matching the
	// same items discounts the full line value again and counts the same units
	// a second time. The quantity counters reflect that double counting; the
	// pool itself stays conserved.
	if result.SubtotalDiscount != 40 {
		t.Fatalf("expected both discounts at full value, got %v", result.SubtotalDiscount)
	}
	if result.QuantityDiscounted != 4 {
		t.Fatalf("expected double-counted quantity 4, got %d", result.QuantityDiscounted)
	}
	if result.QuantityUndiscounted != -2 {
		t.Fatalf("expected undiscounted counter -2, got %d", result.QuantityUndiscounted)
	}
	if result.Evolution[2].Items[0].Qty != 2 {
		t.Fatalf("pool quantity must be conserved, got %d", result.Evolution[2].Items[0].Qty)
	}
}

func TestCalculatePricingNormalizesItemOrder(t *testing.T) {
	items := []Item{
		gameItem("cheap", 10, 1, "games"),
		gameItem("dear", 90, 1, "games"),
		gameItem("mid-a", 50, 1, "games"),
		gameItem("mid-b", 50, 1, "games"),
	}
	result := CalculatePricing(items, nil, nil, ShippingSelection{}, "")
	pool := result.Evolution[0].Items
	ids := []string{pool[0].ID, pool[1].ID, pool[2].ID, pool[3].ID}
	want := []string{"dear", "mid-a", "mid-b", "cheap"}
	for ix := range want {
		if ids[ix] != want[ix] {
			t.Fatalf("pool order %v, want %v", ids, want)
		}
	}
}

func TestCalculatePricingNegativeQuantityClamped(t *testing.T) {
	items := []Item{gameItem("a", 10, -3, "games")}
	result := CalculatePricing(items, nil, nil, ShippingSelection{Price: 5}, "")
	if result.QuantityTotal != 0 || result.SubtotalUndiscounted != 0 {
		t.Fatalf("negative quantity must clamp to zero: qty=%d subtotal=%v",
			result.QuantityTotal, result.SubtotalUndiscounted)
	}
	if result.Total != 5 {
		t.Fatalf("expected shipping-only total 5, got %v", result.Total)
	}
}

func TestCalculatePricingEvolutionSnapshotsStayValid(t *testing.T) {
	items := []Item{gameItem("a", 10, 6, "games")}
	bulk := Discount{
		Code: "3FOR", Enabled: true, Application: ApplicationAutomatic,
		Kind: KindBulk, Filters: allGames(),
		Params: Params{Qty: 3, Percent: 50, Recursive: true},
	}

	result := CalculatePricing(items, []Discount{bulk}, nil, ShippingSelection{}, "")

	if len(result.Evolution) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(result.Evolution))
	}
	// The seed snapshot still shows the pre-discount pool even though a later
	// generation consumed it.
	if result.Evolution[0].Items[0].Qty != 6 {
		t.Fatalf("historical snapshot was mutated: qty %d", result.Evolution[0].Items[0].Qty)
	}
	if result.Evolution[1].Items[0].Qty != 0 {
		t.Fatalf("expected the bulk to consume all units, qty %d", result.Evolution[1].Items[0].Qty)
	}
}

func TestCalculatePricingFreeShippingSurfaces(t *testing.T) {
	items := []Item{gameItem("a", 100, 1, "games")}
	free := Discount{
		Code: "FREESHIP", Enabled: true, Application: ApplicationManual,
		Kind:    KindOrder,
		Filters: []Filter{{Op: OpOrderSubtotalInRange, From: fptr(0)}},
		Params:  Params{FreeShipping: true},
	}
	result := CalculatePricing(items, nil, []Discount{free}, ShippingSelection{Price: 12}, "")
	if !result.FreeShipping {
		t.Fatal("free shipping flag must be surfaced to the caller")
	}
	// The engine itself never adjusts the shipping component.
	if result.Total != 112 {
		t.Fatalf("expected total 112, got %v", result.Total)
	}
}

func TestCalculatePricingDateScopedCoupon(t *testing.T) {
	now := time.Date(2024, 12, 24, 10, 0, 0, 0, time.UTC)
	items := []Item{gameItem("a", 100, 1, "games")}
	holiday := Discount{
		Code: "XMAS", Enabled: true, Application: ApplicationManual,
		Kind: KindOrder,
		Filters: []Filter{{
			Op:   OpOrderDateInRange,
			From: fptr(float64(now.Add(-24 * time.Hour).UnixMilli())),
			To:   fptr(float64(now.Add(24 * time.Hour).UnixMilli())),
		}},
		Params: Params{Percent: 25},
	}

	within := CalculatePricingAt(items, nil, []Discount{holiday}, ShippingSelection{}, "", now)
	if within.SubtotalDiscount != 25 {
		t.Fatalf("expected holiday discount applied, got %v", within.SubtotalDiscount)
	}
	after := CalculatePricingAt(items, nil, []Discount{holiday}, ShippingSelection{}, "", now.Add(48*time.Hour))
	if after.SubtotalDiscount != 0 {
		t.Fatalf("expected no discount outside the window, got %v", after.SubtotalDiscount)
	}
}

func TestCalculatePricingCustomerScopedDiscount(t *testing.T) {
	items := []Item{gameItem("a", 100, 1, "games")}
	vip := Discount{
		Code: "VIP", Enabled: true, Application: ApplicationAutomatic,
		Kind:    KindOrder,
		Filters: []Filter{{Op: OpOrderHasCustomer, Values: []string{"cust-7"}}},
		Params:  Params{Percent: 15},
	}
	mine := CalculatePricing(items, []Discount{vip}, nil, ShippingSelection{}, "cust-7")
	if mine.SubtotalDiscount != 15 {
		t.Fatalf("expected VIP discount for the listed customer, got %v", mine.SubtotalDiscount)
	}
	other := CalculatePricing(items, []Discount{vip}, nil, ShippingSelection{}, "cust-1")
	if other.SubtotalDiscount != 0 {
		t.Fatalf("expected no discount for other customers, got %v", other.SubtotalDiscount)
	}
}
