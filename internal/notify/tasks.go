package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pricing/internal/checkout"
	"github.com/noah-isme/backend-pricing/internal/obs"
)

// TypeReceipt is the asynq task type for order receipt emails.
const TypeReceipt = "notify:receipt"

type receiptPayload struct {
	OrderID string `json:"order_id"`
}

// NewReceiptTask builds the receipt task for an order.
func NewReceiptTask(orderID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(receiptPayload{OrderID: orderID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReceipt, payload,
		asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// Enqueuer schedules receipt tasks on the asynq queue.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueReceipt implements checkout.ReceiptEnqueuer.
func (e *Enqueuer) EnqueueReceipt(ctx context.Context, orderID uuid.UUID) error {
	if e == nil || e.Client == nil {
		return nil
	}
	task, err := NewReceiptTask(orderID)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		countReceipt("enqueue_error")
		return fmt.Errorf("notify: enqueue receipt: %w", err)
	}
	countReceipt("enqueued")
	return nil
}

type orderGetter interface {
	Get(ctx context.Context, orderID uuid.UUID) (checkout.Order, error)
}

// ReceiptHandler processes receipt tasks on the worker.
type ReceiptHandler struct {
	Orders orderGetter
	Mailer *Mailer
	Log    zerolog.Logger
}

// ProcessTask implements asynq.Handler for TypeReceipt.
func (h *ReceiptHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload receiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		countReceipt("error")
		return fmt.Errorf("notify: decode receipt payload: %w: %w", err, asynq.SkipRetry)
	}
	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		countReceipt("error")
		return fmt.Errorf("notify: invalid order id %q: %w: %w", payload.OrderID, err, asynq.SkipRetry)
	}
	order, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		countReceipt("error")
		return fmt.Errorf("notify: load order %s: %w", orderID, err)
	}
	if err := h.Mailer.SendReceipt(order); err != nil {
		countReceipt("error")
		return fmt.Errorf("notify: send receipt for %s: %w", orderID, err)
	}
	countReceipt("sent")
	h.Log.Info().Str("order_id", orderID.String()).Str("to", order.Email).Msg("receipt sent")
	return nil
}

func countReceipt(result string) {
	if obs.ReceiptTaskTotal != nil {
		obs.ReceiptTaskTotal.WithLabelValues(result).Inc()
	}
}
