package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Customer struct {
	ID        string `gorm:"primaryKey;size:64;not null"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Plan struct {
	ID          string          `gorm:"primaryKey;size:64;not null"`
	Name        string          `gorm:"size:255;not null"`
	Description string          `gorm:"size:512"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency    string          `gorm:"size:8;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Item struct {
	ID        string          `gorm:"primaryKey;size:64;not null"`
	Name      string          `gorm:"size:255;not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency  string          `gorm:"size:8;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// A customer cannot hold two subscriptions to the same plan in the same
// status, so the composite unique index is the duplicate check of record.
type Subscription struct {
	ID         uint               `gorm:"primaryKey"`
	CustomerID string             `gorm:"size:64;not null;uniqueIndex:idx_customer_plan_status"`
	PlanID     string             `gorm:"size:64;not null;uniqueIndex:idx_customer_plan_status"`
	Status     SubscriptionStatus `gorm:"size:32;not null;uniqueIndex:idx_customer_plan_status"`
	StartDate  time.Time          `gorm:"not null"`
	EndDate    time.Time          `gorm:"not null"`
	AutoRenew  bool               `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Customer Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	Plan     Plan     `gorm:"foreignKey:PlanID;constraint:OnDelete:RESTRICT"`
}

type SubscriptionItem struct {
	ID             uint   `gorm:"primaryKey"`
	SubscriptionID uint   `gorm:"not null;uniqueIndex:idx_subscription_item"`
	ItemID         string `gorm:"size:64;not null;uniqueIndex:idx_subscription_item"`
	Quantity       int32  `gorm:"not null;check:quantity >= 1"`
	CreatedAt      time.Time

	Subscription Subscription `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE"`
	Item         Item         `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT"`
}

// Invoice snapshots customer, plan and item data at derivation time; the
// items column is a JSON blob so historic invoices stay stable when item
// master data changes later.
type Invoice struct {
	ID             uint            `gorm:"primaryKey"`
	CustomerID     string          `gorm:"size:64;index;not null"`
	CustomerName   string          `gorm:"size:255;not null"`
	CustomerEmail  string          `gorm:"size:255;not null"`
	SubscriptionID uint            `gorm:"index;not null"`
	PlanName       string          `gorm:"size:255;not null"`
	PlanPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	InvoiceNumber  string          `gorm:"size:64;uniqueIndex;not null"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Items          datatypes.JSON
	Status         InvoiceStatus `gorm:"size:32;index;not null"`
	IssuedDate     time.Time     `gorm:"not null"`
	DueDate        time.Time     `gorm:"not null"`
	PdfURL         string        `gorm:"size:512"`
	Notes          string        `gorm:"size:1024"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Subscription Subscription `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE"`
}

// InvoiceItem is one element of the invoice's JSON items snapshot.
type InvoiceItem struct {
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	Quantity     int32           `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}
