package checkout

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/common"
	"github.com/noah-isme/backend-pricing/internal/events"
	"github.com/noah-isme/backend-pricing/internal/obs"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Line is one submitted order line. The unit price is never taken from the
// client; it is resolved from the catalog snapshot at pricing time.
type Line struct {
	Handle string `json:"handle"`
	Qty    int    `json:"qty"`
}

// PricingRequest asks for a price breakdown without creating an order.
type PricingRequest struct {
	CustomerID string                    `json:"customer_id"`
	Coupons    []string                  `json:"coupons"`
	Shipping   pricing.ShippingSelection `json:"shipping"`
	Lines      []Line                    `json:"lines"`
}

// CreateRequest submits an order for persistence.
type CreateRequest struct {
	PricingRequest
	Email string `json:"email"`
}

type snapshotProvider interface {
	Snapshots(ctx context.Context, handles []string) (map[string]pricing.ProductSnapshot, error)
}

type discountProvider interface {
	Active(ctx context.Context) (autos, coupons []pricing.Discount, err error)
	ResolveCoupons(ctx context.Context, codes []string) (resolved []pricing.Discount, rejected []string, err error)
}

type orderStore interface {
	Insert(ctx context.Context, o Order) (Order, error)
}

// ReceiptEnqueuer schedules receipt notifications for created orders.
type ReceiptEnqueuer interface {
	EnqueueReceipt(ctx context.Context, orderID uuid.UUID) error
}

// Service orchestrates catalog joins, discount resolution, the pricing engine,
// and order persistence.
type Service struct {
	Catalog   snapshotProvider
	Discounts discountProvider
	Orders    orderStore
	Bus       *events.Bus
	Receipts  ReceiptEnqueuer
	Currency  string
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Price resolves the request against the catalog and active discounts and
// runs the pricing engine.
func (s *Service) Price(ctx context.Context, req PricingRequest) (pricing.PricingResult, error) {
	if s == nil || s.Catalog == nil || s.Discounts == nil {
		return pricing.PricingResult{}, errors.New("checkout service not configured")
	}
	items, err := s.resolveItems(ctx, req.Lines)
	if err != nil {
		countPricing("rejected")
		return pricing.PricingResult{}, err
	}
	autos, _, err := s.Discounts.Active(ctx)
	if err != nil {
		countPricing("error")
		return pricing.PricingResult{}, err
	}
	coupons, rejected, err := s.Discounts.ResolveCoupons(ctx, req.Coupons)
	if err != nil {
		countPricing("error")
		return pricing.PricingResult{}, err
	}
	if len(rejected) > 0 {
		countPricing("rejected")
		return pricing.PricingResult{}, &common.AppError{
			Code: "INVALID_COUPON", Message: "unknown or inactive coupon codes",
			HTTPStatus: http.StatusBadRequest, Details: rejected,
		}
	}

	kinds := make(map[string]pricing.DiscountKind, len(autos)+len(coupons))
	for _, d := range autos {
		kinds[d.Code] = d.Kind
	}
	for _, d := range coupons {
		kinds[d.Code] = d.Kind
	}

	start := time.Now()
	result := pricing.CalculatePricingAt(items, autos, coupons, req.Shipping, strings.TrimSpace(req.CustomerID), s.now())
	observeResult(result, kinds, time.Since(start))

	// A quote has no stored aggregate; each pricing run gets its own id.
	if s.Bus != nil {
		_, _ = s.Bus.Emit(ctx, events.TopicCheckoutPriced, uuid.New(), map[string]any{
			"customer_id":       result.CustomerID,
			"total":             result.Total,
			"subtotal_discount": result.SubtotalDiscount,
			"free_shipping":     result.FreeShipping,
		})
	}
	return result, nil
}

// Create prices the request, persists the order, emits the checkout event,
// and schedules the receipt notification.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Order, error) {
	if s.Orders == nil {
		return Order{}, errors.New("checkout service not configured")
	}
	result, err := s.Price(ctx, req.PricingRequest)
	if err != nil {
		countCheckout("rejected")
		return Order{}, err
	}

	total := result.Total
	if result.FreeShipping {
		total = round2(total - result.Shipping.Price)
	}
	order, err := s.Orders.Insert(ctx, Order{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Email:      strings.TrimSpace(req.Email),
		Currency:   s.Currency,
		Status:     "created",
		Shipping:   result.Shipping,
		Pricing:    result,
		Total:      total,
	})
	if err != nil {
		countCheckout("error")
		return Order{}, err
	}
	countCheckout("ok")

	if s.Bus != nil {
		_, _ = s.Bus.Emit(ctx, events.TopicCheckoutCreated, order.ID, map[string]any{
			"order_id":    order.ID.String(),
			"customer_id": order.CustomerID,
			"total":       order.Total,
			"currency":    order.Currency,
		})
	}
	if s.Receipts != nil && order.Email != "" {
		_ = s.Receipts.EnqueueReceipt(ctx, order.ID)
	}
	return order, nil
}

func (s *Service) resolveItems(ctx context.Context, lines []Line) ([]pricing.Item, error) {
	if len(lines) == 0 {
		return nil, common.NewAppError("BAD_REQUEST", "at least one line is required", http.StatusBadRequest, nil)
	}
	handles := make([]string, 0, len(lines))
	for _, ln := range lines {
		handles = append(handles, strings.TrimSpace(ln.Handle))
	}
	snaps, err := s.Catalog.Snapshots(ctx, handles)
	if err != nil {
		return nil, err
	}
	items := make([]pricing.Item, 0, len(lines))
	var unknown []string
	for ix, ln := range lines {
		handle := handles[ix]
		snap, ok := snaps[handle]
		if !ok {
			unknown = append(unknown, handle)
			continue
		}
		items = append(items, pricing.Item{
			ID:        handle,
			UnitPrice: &snap.Price,
			Qty:       ln.Qty,
			Product:   &snap,
		})
	}
	if len(unknown) > 0 {
		return nil, &common.AppError{
			Code: "UNKNOWN_PRODUCT", Message: "some products are unknown or unavailable",
			HTTPStatus: http.StatusBadRequest, Details: unknown,
		}
	}
	return items, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func countPricing(result string) {
	if obs.PricingCalcTotal != nil {
		obs.PricingCalcTotal.WithLabelValues(result).Inc()
	}
}

func countCheckout(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}

func observeResult(result pricing.PricingResult, kinds map[string]pricing.DiscountKind, took time.Duration) {
	countPricing("ok")
	if obs.PricingCalcLatency != nil {
		obs.PricingCalcLatency.Observe(obs.DurationMillis(took))
	}
	if obs.DiscountApplyTotal == nil {
		return
	}
	for _, snap := range result.Evolution {
		if snap.DiscountCode != "" {
			obs.DiscountApplyTotal.WithLabelValues(string(kinds[snap.DiscountCode]), "ok").Inc()
		}
	}
	for _, derr := range result.Errors {
		obs.DiscountApplyTotal.WithLabelValues(string(kinds[derr.DiscountCode]), "error").Inc()
	}
}
