package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"subscription-billing-backoffice/internal/apperr"
	"subscription-billing-backoffice/internal/dto"
	"subscription-billing-backoffice/internal/model"
	"subscription-billing-backoffice/internal/repository"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperr.Validation(field, "required")
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperr.Validation(field, fmt.Sprintf("cannot parse %q as date", value))
	}
	return t, nil
}

// buildItemRows turns request items into subscription_item rows. A
// non-positive quantity is rejected as the constraint violation the DB
// check would raise.
func buildItemRows(subscriptionID uint, items []*dto.AssignmentItem) ([]*model.SubscriptionItem, error) {
	rows := make([]*model.SubscriptionItem, 0, len(items))
	for _, item := range items {
		if item.ItemID == "" {
			return nil, apperr.Validation("items.item_id", "required")
		}
		if item.Quantity < 1 {
			return nil, apperr.Constraint(fmt.Errorf("item %s: quantity must be >= 1, got %d", item.ItemID, item.Quantity))
		}
		rows = append(rows, &model.SubscriptionItem{
			SubscriptionID: subscriptionID,
			ItemID:         item.ItemID,
			Quantity:       item.Quantity,
		})
	}
	return rows, nil
}

// mergePatch applies the supplied subset of fields onto the stored
// subscription; unset fields keep their previous value.
func mergePatch(stored *model.Subscription, req *dto.PatchAssignmentRequest) error {
	if req.CustomerID != nil {
		if *req.CustomerID == "" {
			return apperr.Validation("customer_id", "cannot be empty")
		}
		stored.CustomerID = *req.CustomerID
	}
	if req.PlanID != nil {
		if *req.PlanID == "" {
			return apperr.Validation("plan_id", "cannot be empty")
		}
		stored.PlanID = *req.PlanID
	}
	if req.Status != nil {
		status := model.SubscriptionStatus(*req.Status)
		if !status.Valid() {
			return apperr.Validation("status", fmt.Sprintf("unknown status %q", *req.Status))
		}
		stored.Status = status
	}
	if req.StartDate != nil {
		t, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			return err
		}
		stored.StartDate = t
	}
	if req.EndDate != nil {
		t, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			return err
		}
		stored.EndDate = t
	}
	if req.AutoRenew != nil {
		stored.AutoRenew = *req.AutoRenew
	}
	return nil
}

// itemPair is the normalized form used for change detection: display-only
// fields stripped, only identity and quantity left.
type itemPair struct {
	itemID   string
	quantity int32
}

func normalizeDetails(details []*repository.ItemDetail) []itemPair {
	pairs := make([]itemPair, 0, len(details))
	for _, d := range details {
		pairs = append(pairs, itemPair{itemID: d.ItemID, quantity: d.Quantity})
	}
	return pairs
}

func normalizeSupplied(items []*dto.AssignmentItem) []itemPair {
	pairs := make([]itemPair, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, itemPair{itemID: item.ItemID, quantity: item.Quantity})
	}
	return pairs
}

// itemSetsEqual compares two normalized item lists order-insensitively.
func itemSetsEqual(a, b []itemPair) bool {
	if len(a) != len(b) {
		return false
	}
	sortPairs := func(pairs []itemPair) {
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].itemID < pairs[j].itemID })
	}
	sortPairs(a)
	sortPairs(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// classifyWriteError maps gorm's translated constraint errors onto the
// service taxonomy; anything else passes through wrapped.
func classifyWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated):
		return apperr.Constraint(err)
	}
	return err
}

func itemViews(details []*repository.ItemDetail) []*dto.SubscriptionItemView {
	views := make([]*dto.SubscriptionItemView, 0, len(details))
	for _, d := range details {
		views = append(views, &dto.SubscriptionItemView{
			ItemID:    d.ItemID,
			ItemName:  d.ItemName,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
		})
	}
	return views
}

func viewFromSnapshot(snapshot *repository.SubscriptionSnapshot) *dto.SubscriptionView {
	if snapshot == nil {
		return nil
	}
	return &dto.SubscriptionView{
		ID:           snapshot.SubscriptionID,
		CustomerID:   snapshot.CustomerID,
		CustomerName: snapshot.CustomerName,
		PlanID:       snapshot.PlanID,
		PlanName:     snapshot.PlanName,
		Status:       string(snapshot.Status),
		StartDate:    snapshot.StartDate,
		EndDate:      snapshot.EndDate,
		AutoRenew:    snapshot.AutoRenew,
		Items:        itemViews(snapshot.Items),
		CreatedAt:    snapshot.CreatedAt,
		UpdatedAt:    snapshot.UpdatedAt,
	}
}

func invoiceView(invoice *model.Invoice) *dto.InvoiceView {
	if invoice == nil {
		return nil
	}
	return &dto.InvoiceView{
		ID:             invoice.ID,
		CustomerID:     invoice.CustomerID,
		CustomerName:   invoice.CustomerName,
		CustomerEmail:  invoice.CustomerEmail,
		SubscriptionID: invoice.SubscriptionID,
		PlanName:       invoice.PlanName,
		PlanPrice:      invoice.PlanPrice,
		InvoiceNumber:  invoice.InvoiceNumber,
		TotalAmount:    invoice.TotalAmount,
		Items:          []byte(invoice.Items),
		Status:         string(invoice.Status),
		IssuedDate:     invoice.IssuedDate,
		DueDate:        invoice.DueDate,
		PdfURL:         invoice.PdfURL,
		Notes:          invoice.Notes,
		CreatedAt:      invoice.CreatedAt,
		UpdatedAt:      invoice.UpdatedAt,
	}
}
