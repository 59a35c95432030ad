package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-pricing/internal/checkout"
	"github.com/noah-isme/backend-pricing/internal/common"
)

// Mailer renders and sends order receipts.
type Mailer struct {
	Sender common.EmailSender
	From   string
}

// SendReceipt renders the receipt for an order and hands it to the sender.
func (m *Mailer) SendReceipt(order checkout.Order) error {
	if m == nil || m.Sender == nil {
		return errors.New("notify: email sender not configured")
	}
	if order.Email == "" {
		return errors.New("notify: order has no email address")
	}
	subject := fmt.Sprintf("Your order %s", shortID(order))
	return m.Sender.Send(order.Email, subject, RenderReceiptHTML(order))
}

func shortID(order checkout.Order) string {
	id := order.ID.String()
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// RenderReceiptHTML builds the receipt body from the order's pricing
// breakdown. Each applied discount becomes its own line so the customer sees
// how the final amount was reached.
func RenderReceiptHTML(order checkout.Order) string {
	var b strings.Builder
	b.WriteString("<h1>Thanks for your order</h1>\n")
	fmt.Fprintf(&b, "<p>Order %s</p>\n", order.ID)

	b.WriteString("<table>\n")
	result := order.Pricing
	if len(result.Evolution) > 0 {
		for _, it := range result.Evolution[0].Items {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%d x %s %.2f</td></tr>\n",
				itemTitle(it.ID), it.Qty, order.Currency, it.Price())
		}
	}
	fmt.Fprintf(&b, "<tr><td>Subtotal</td><td>%s %.2f</td></tr>\n", order.Currency, result.SubtotalUndiscounted)

	for ix, snap := range result.Evolution {
		if ix == 0 || snap.DiscountCode == "" {
			continue
		}
		fmt.Fprintf(&b, "<tr><td>Discount %s</td><td>-%s %.2f</td></tr>\n",
			snap.DiscountCode, order.Currency, snap.TotalDiscount)
	}

	if order.Shipping.Name != "" || order.Shipping.Price > 0 {
		if result.FreeShipping {
			fmt.Fprintf(&b, "<tr><td>Shipping (%s)</td><td>free</td></tr>\n", shippingName(order))
		} else {
			fmt.Fprintf(&b, "<tr><td>Shipping (%s)</td><td>%s %.2f</td></tr>\n",
				shippingName(order), order.Currency, order.Shipping.Price)
		}
	}
	fmt.Fprintf(&b, "<tr><td><strong>Total</strong></td><td><strong>%s %.2f</strong></td></tr>\n",
		order.Currency, order.Total)
	b.WriteString("</table>\n")
	return b.String()
}

func itemTitle(id string) string {
	if id == "" {
		return "item"
	}
	return id
}

func shippingName(order checkout.Order) string {
	if order.Shipping.Name != "" {
		return order.Shipping.Name
	}
	return "shipping"
}
