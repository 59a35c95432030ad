package pricing

import (
	"errors"
	"testing"
)

func allGames() []Filter {
	return []Filter{{Op: OpProductInCollections, Values: []string{"games"}}}
}

func TestApplyRegularDiscountsMatchesOnly(t *testing.T) {
	items := poolOf(
		gameItem("a", 100, 2, "games"),
		gameItem("b", 50, 1, "consoles"),
	)
	d := Discount{
		Code: "REG10", Kind: KindRegular, Enabled: true,
		Filters: allGames(),
		Params:  Params{Percent: 10},
	}
	stage, err := applyRegular(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.totalDiscount != 20 {
		t.Fatalf("expected discount 20, got %v", stage.totalDiscount)
	}
	if stage.quantityDiscounted != 2 {
		t.Fatalf("expected 2 units discounted, got %d", stage.quantityDiscounted)
	}
	// Regular reduces price only, never quantity.
	if TotalQuantity(stage.items) != TotalQuantity(items) {
		t.Fatal("regular discount must not consume quantity")
	}
}

func TestApplyRegularKindGuard(t *testing.T) {
	d := Discount{Code: "X", Kind: KindBulk, Params: Params{Qty: 3}}
	if _, err := applyRegular(nil, d, OrderContext{}); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected kind mismatch, got %v", err)
	}
}

func TestApplyBulkNonRecursiveCapsAtOneBulk(t *testing.T) {
	items := poolOf(gameItem("a", 10, 7, "games"))
	d := Discount{
		Code: "3FOR", Kind: KindBulk,
		Filters: allGames(),
		Params:  Params{Qty: 3, Percent: 100},
	}
	stage, err := applyBulk(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.quantityDiscounted != 3 {
		t.Fatalf("non-recursive bulk consumes one bulk, got %d", stage.quantityDiscounted)
	}
	if stage.totalDiscount != 30 {
		t.Fatalf("expected discount 30, got %v", stage.totalDiscount)
	}
	if TotalQuantity(stage.items) != 4 {
		t.Fatalf("expected 4 units left, got %d", TotalQuantity(stage.items))
	}
}

func TestApplyBulkRecursiveFitsAllBulks(t *testing.T) {
	items := poolOf(gameItem("a", 10, 7, "games"))
	d := Discount{
		Code: "3FOR", Kind: KindBulk,
		Filters: allGames(),
		Params:  Params{Qty: 3, Percent: 50, Recursive: true},
	}
	stage, err := applyBulk(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// floor(7/3)=2 bulks, 6 units at 10 each, 50% off 60.
	if stage.quantityDiscounted != 6 {
		t.Fatalf("expected 6 units consumed, got %d", stage.quantityDiscounted)
	}
	if stage.totalDiscount != 30 {
		t.Fatalf("expected discount 30, got %v", stage.totalDiscount)
	}
}

func TestApplyBulkFixedMultipliesPerBulk(t *testing.T) {
	items := poolOf(gameItem("a", 10, 6, "games"))
	d := Discount{
		Code: "3FOR25", Kind: KindBulk,
		Filters: allGames(),
		Params:  Params{Qty: 3, Percent: 100, Fixed: 5, Recursive: true},
	}
	stage, err := applyBulk(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2 bulks, removed value 60, 100% minus 5 per bulk = 60 - 10.
	if stage.totalDiscount != 50 {
		t.Fatalf("expected discount 50, got %v", stage.totalDiscount)
	}
}

func TestApplyBulkRejectsNonPositiveQty(t *testing.T) {
	d := Discount{Code: "B", Kind: KindBulk, Filters: allGames()}
	if _, err := applyBulk(nil, d, OrderContext{}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func TestApplyBuyXGetYNonRecursive(t *testing.T) {
	items := poolOf(gameItem("a", 10, 5, "games"))
	d := Discount{
		Code: "B2G1", Kind: KindBuyXGetY,
		Filters: allGames(),
		Params: Params{
			QtyX: 2, QtyY: 1, Percent: 100,
			FiltersY: allGames(),
		},
	}
	stage, err := applyBuyXGetY(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2 X consumed free of discount, 1 Y discounted at 100%.
	if stage.totalDiscount != 10 {
		t.Fatalf("expected discount 10, got %v", stage.totalDiscount)
	}
	if stage.quantityDiscounted != 3 {
		t.Fatalf("expected 3 units consumed, got %d", stage.quantityDiscounted)
	}
	if TotalQuantity(stage.items) != 2 {
		t.Fatalf("expected 2 units left, got %d", TotalQuantity(stage.items))
	}
}

func TestApplyBuyXGetYRecursiveLoopsUntilSupplyRunsOut(t *testing.T) {
	items := poolOf(gameItem("a", 10, 7, "games"))
	d := Discount{
		Code: "B2G1", Kind: KindBuyXGetY,
		Filters: allGames(),
		Params: Params{
			QtyX: 2, QtyY: 1, Percent: 100, Recursive: true,
			FiltersY: allGames(),
		},
	}
	stage, err := applyBuyXGetY(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two full iterations fit into 7 units; the third stops at the X check.
	if stage.totalDiscount != 20 {
		t.Fatalf("expected discount 20, got %v", stage.totalDiscount)
	}
	if stage.quantityDiscounted != 6 {
		t.Fatalf("expected 6 units accounted, got %d", stage.quantityDiscounted)
	}
	if TotalQuantity(stage.items) != 1 {
		t.Fatalf("expected 1 unit left, got %d", TotalQuantity(stage.items))
	}
}

func TestApplyBuyXGetYKeepsXWhenYSupplyFails(t *testing.T) {
	items := poolOf(gameItem("a", 10, 3, "games"))
	d := Discount{
		Code: "B2G1", Kind: KindBuyXGetY,
		Filters: allGames(),
		Params: Params{
			QtyX: 2, QtyY: 1, Percent: 100,
			FiltersY: []Filter{{Op: OpProductInCollections, Values: []string{"consoles"}}},
		},
	}
	stage, err := applyBuyXGetY(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The X units are committed before the Y check and are not restored.
	if TotalQuantity(stage.items) != 1 {
		t.Fatalf("expected X units kept out of the pool, %d left", TotalQuantity(stage.items))
	}
	if stage.totalDiscount != 0 || stage.quantityDiscounted != 0 {
		t.Fatal("no discount is granted when Y supply is missing")
	}
}

func TestApplyBuyXGetYInsufficientXSupply(t *testing.T) {
	items := poolOf(gameItem("a", 10, 1, "games"))
	d := Discount{
		Code: "B2G1", Kind: KindBuyXGetY,
		Filters: allGames(),
		Params:  Params{QtyX: 2, QtyY: 1, Percent: 100, FiltersY: allGames()},
	}
	stage, err := applyBuyXGetY(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.totalDiscount != 0 || stage.quantityDiscounted != 0 {
		t.Fatal("insufficient supply yields zero discount, not an error")
	}
	if TotalQuantity(stage.items) != 1 {
		t.Fatal("pool must stay unchanged when nothing applies")
	}
}

func TestApplyBundleOneIteration(t *testing.T) {
	items := poolOf(
		gameItem("console", 300, 1, "consoles"),
		gameItem("game", 60, 1, "games"),
	)
	d := Discount{
		Code: "COMBO", Kind: KindBundle,
		Filters: []Filter{
			{Op: OpProductInCollections, Values: []string{"consoles"}},
			{Op: OpProductInCollections, Values: []string{"games"}},
		},
		Params: Params{Percent: 10},
	}
	stage, err := applyBundle(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.totalDiscount != 36 {
		t.Fatalf("expected 10%% of 360 = 36, got %v", stage.totalDiscount)
	}
	if stage.items[0].Qty != 0 || stage.items[1].Qty != 0 {
		t.Fatal("both slot items must drop to zero")
	}
	if stage.quantityDiscounted != 2 {
		t.Fatalf("expected 2 slots counted, got %d", stage.quantityDiscounted)
	}
}

func TestApplyBundleRecursiveOverwritesQuantityButAccumulatesDiscount(t *testing.T) {
	items := poolOf(
		gameItem("console", 300, 2, "consoles"),
		gameItem("game", 60, 2, "games"),
	)
	d := Discount{
		Code: "COMBO", Kind: KindBundle,
		Filters: []Filter{
			{Op: OpProductInCollections, Values: []string{"consoles"}},
			{Op: OpProductInCollections, Values: []string{"games"}},
		},
		Params: Params{Percent: 10, Recursive: true},
	}
	stage, err := applyBundle(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.totalDiscount != 72 {
		t.Fatalf("discount accumulates across iterations, got %v", stage.totalDiscount)
	}
	// Deliberately pinned: the quantity counter holds only the last
	// iteration's slot count.
	if stage.quantityDiscounted != 2 {
		t.Fatalf("expected last-iteration slot count 2, got %d", stage.quantityDiscounted)
	}
}

func TestApplyBundleStopsWhenSlotUnfilled(t *testing.T) {
	items := poolOf(gameItem("game", 60, 3, "games"))
	d := Discount{
		Code: "COMBO", Kind: KindBundle,
		Filters: []Filter{
			{Op: OpProductInCollections, Values: []string{"games"}},
			{Op: OpProductInCollections, Values: []string{"consoles"}},
		},
		Params: Params{Percent: 50},
	}
	stage, err := applyBundle(items, d, OrderContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.totalDiscount != 0 {
		t.Fatalf("unfilled slot yields zero discount, got %v", stage.totalDiscount)
	}
	if TotalQuantity(stage.items) != 3 {
		t.Fatal("pool must stay unchanged")
	}
}

func TestApplyOrderDiscountLeavesPoolUntouched(t *testing.T) {
	items := poolOf(gameItem("a", 100, 3, "games"))
	d := Discount{
		Code: "ORDER10", Kind: KindOrder,
		Filters: []Filter{{Op: OpOrderSubtotalInRange, From: fptr(0), To: fptr(10000)}},
		Params:  Params{Percent: 10, FreeShipping: true},
	}
	ctx := OrderContext{Subtotal: 300, Quantity: 3}
	stage, err := applyOrder(items, d, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.totalDiscount != 30 {
		t.Fatalf("expected discount 30, got %v", stage.totalDiscount)
	}
	if stage.quantityDiscounted != 0 {
		t.Fatal("order discount consumes no quantity")
	}
	if !stage.freeShipping {
		t.Fatal("free shipping flag must surface")
	}

	// Applying again over the reduced subtotal still consumes no quantity.
	again, err := applyOrder(stage.items, d, OrderContext{Subtotal: ctx.Subtotal - stage.totalDiscount, Quantity: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.quantityDiscounted != 0 {
		t.Fatal("order discount stays quantity-idempotent")
	}
}

func TestApplyOrderFiltersUnmet(t *testing.T) {
	d := Discount{
		Code: "ORDER10", Kind: KindOrder,
		Filters: []Filter{{Op: OpOrderSubtotalInRange, From: fptr(500)}},
		Params:  Params{Percent: 10},
	}
	stage, err := applyOrder(nil, d, OrderContext{Subtotal: 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage.totalDiscount != 0 {
		t.Fatalf("expected no discount, got %v", stage.totalDiscount)
	}
}

func TestStrategiesConserveQuantity(t *testing.T) {
	items := poolOf(
		gameItem("a", 10, 4, "games"),
		gameItem("b", 20, 2, "consoles"),
	)
	before := TotalQuantity(items)
	discounts := []Discount{
		{Code: "r", Kind: KindRegular, Filters: allGames(), Params: Params{Percent: 5}},
		{Code: "b", Kind: KindBulk, Filters: allGames(), Params: Params{Qty: 2, Percent: 5}},
		{Code: "x", Kind: KindBuyXGetY, Filters: allGames(), Params: Params{QtyX: 1, QtyY: 1, FiltersY: allGames(), Percent: 5}},
		{Code: "o", Kind: KindOrder, Filters: []Filter{{Op: OpOrderSubtotalInRange, From: fptr(0)}}, Params: Params{Percent: 5}},
	}
	for _, d := range discounts {
		stage, err := applyDiscountStrategy(items, d, OrderContext{Subtotal: 80, Quantity: before})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", d.Code, err)
		}
		after := TotalQuantity(stage.items)
		if after > before {
			t.Fatalf("%s: quantity grew from %d to %d", d.Code, before, after)
		}
		if (d.Kind == KindRegular || d.Kind == KindOrder) && after != before {
			t.Fatalf("%s: non-consuming kind changed quantity", d.Code)
		}
	}
}

func TestApplyDiscountStrategyUnknownKind(t *testing.T) {
	d := Discount{Code: "??", Kind: "mystery"}
	if _, err := applyDiscountStrategy(nil, d, OrderContext{}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestValidateParamsShapes(t *testing.T) {
	cases := []struct {
		name    string
		d       Discount
		wantErr bool
	}{
		{"regular ok", Discount{Kind: KindRegular, Params: Params{Percent: 10}}, false},
		{"regular with bulk qty", Discount{Kind: KindRegular, Params: Params{Qty: 3}}, true},
		{"bulk ok", Discount{Kind: KindBulk, Params: Params{Qty: 3, Percent: 10}}, false},
		{"bulk missing qty", Discount{Kind: KindBulk, Params: Params{Percent: 10}}, true},
		{"bxgy ok", Discount{Kind: KindBuyXGetY, Params: Params{QtyX: 2, QtyY: 1}}, false},
		{"bxgy missing y", Discount{Kind: KindBuyXGetY, Params: Params{QtyX: 2}}, true},
		{"bundle ok", Discount{Kind: KindBundle, Filters: allGames()}, false},
		{"bundle without slots", Discount{Kind: KindBundle}, true},
		{"order ok", Discount{Kind: KindOrder, Params: Params{Percent: 10, FreeShipping: true}}, false},
		{"order with recursion", Discount{Kind: KindOrder, Params: Params{Recursive: true}}, true},
		{"unknown kind", Discount{Kind: "mystery"}, true},
	}
	for _, tc := range cases {
		err := ValidateParams(tc.d)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
