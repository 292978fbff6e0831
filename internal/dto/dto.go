package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AssignmentItem struct {
	ItemID   string `json:"item_id"`
	Quantity int32  `json:"quantity"`
}

type CreateAssignmentRequest struct {
	CustomerID string            `json:"customer_id"`
	PlanID     string            `json:"plan_id"`
	Status     string            `json:"status"`
	StartDate  string            `json:"start_date"` // YYYY-MM-DD
	EndDate    string            `json:"end_date"`   // YYYY-MM-DD
	AutoRenew  bool              `json:"auto_renew"`
	Items      []*AssignmentItem `json:"items"`
}

// ReplaceAssignmentRequest carries the complete new field set for a PUT;
// every scalar is written unconditionally and the item list fully replaces
// the stored one.
type ReplaceAssignmentRequest struct {
	CustomerID string            `json:"customer_id"`
	PlanID     string            `json:"plan_id"`
	Status     string            `json:"status"`
	StartDate  string            `json:"start_date"`
	EndDate    string            `json:"end_date"`
	AutoRenew  bool              `json:"auto_renew"`
	Items      []*AssignmentItem `json:"items"`
}

// PatchAssignmentRequest carries an arbitrary subset of fields; nil means
// "keep the stored value". A nil Items pointer leaves line items untouched.
type PatchAssignmentRequest struct {
	CustomerID *string            `json:"customer_id"`
	PlanID     *string            `json:"plan_id"`
	Status     *string            `json:"status"`
	StartDate  *string            `json:"start_date"`
	EndDate    *string            `json:"end_date"`
	AutoRenew  *bool              `json:"auto_renew"`
	Items      *[]*AssignmentItem `json:"items"`
}

type SubscriptionItemView struct {
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type SubscriptionView struct {
	ID           uint                    `json:"id"`
	CustomerID   string                  `json:"customer_id"`
	CustomerName string                  `json:"customer_name"`
	PlanID       string                  `json:"plan_id"`
	PlanName     string                  `json:"plan_name"`
	Status       string                  `json:"status"`
	StartDate    time.Time               `json:"start_date"`
	EndDate      time.Time               `json:"end_date"`
	AutoRenew    bool                    `json:"auto_renew"`
	Items        []*SubscriptionItemView `json:"items"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

type InvoiceView struct {
	ID             uint            `json:"id"`
	CustomerID     string          `json:"customer_id"`
	CustomerName   string          `json:"customer_name"`
	CustomerEmail  string          `json:"customer_email"`
	SubscriptionID uint            `json:"subscription_id"`
	PlanName       string          `json:"plan_name"`
	PlanPrice      decimal.Decimal `json:"plan_price"`
	InvoiceNumber  string          `json:"invoice_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Items          json.RawMessage `json:"items"`
	Status         string          `json:"status"`
	IssuedDate     time.Time       `json:"issued_date"`
	DueDate        time.Time       `json:"due_date"`
	PdfURL         string          `json:"pdf_url,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AssignmentResult is what create and patch hand back to the HTTP layer.
type AssignmentResult struct {
	Success      bool              `json:"success"`
	Subscription *SubscriptionView `json:"subscription"`
	Invoice      *InvoiceView      `json:"invoice"`
}

type ListAssignmentsResponse struct {
	Total         int64               `json:"total"`
	Subscriptions []*SubscriptionView `json:"subscriptions"`
}

type BatchDeleteInvoicesRequest struct {
	IDs []uint `json:"ids"`
}

type BatchDeleteInvoicesResponse struct {
	Deleted int64 `json:"deleted"`
}
