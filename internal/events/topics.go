package events

// Topic constants for domain events emitted by the platform.
const (
	TopicCheckoutCreated  = "checkout.created"
	TopicCheckoutPriced   = "checkout.priced"
	TopicDiscountCreated  = "discount.created"
	TopicDiscountUpdated  = "discount.updated"
	TopicDiscountDisabled = "discount.disabled"
)
