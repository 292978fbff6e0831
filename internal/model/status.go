package model

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCanceled  SubscriptionStatus = "canceled"
	SubscriptionRenewed   SubscriptionStatus = "renewed"
	SubscriptionFailed    SubscriptionStatus = "failed"
)

// Valid reports membership in the enumerated set. Transition legality is
// deliberately not checked: any status-to-status write is accepted.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionPending, SubscriptionActive, SubscriptionSuspended,
		SubscriptionExpired, SubscriptionCanceled, SubscriptionRenewed,
		SubscriptionFailed:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoiceGenerated InvoiceStatus = "generated"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCanceled  InvoiceStatus = "canceled"
	InvoiceFailed    InvoiceStatus = "failed"
	InvoiceRefunded  InvoiceStatus = "refunded"
)
