package repository

import (
	"context"
	"time"

	"subscription-billing-backoffice/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemDetail is a subscription line item joined with item master data.
type ItemDetail struct {
	ItemID    string
	ItemName  string
	Quantity  int32
	UnitPrice decimal.Decimal
}

// SubscriptionSnapshot is the denormalized view (customer + plan + items)
// that invoice derivation consumes.
type SubscriptionSnapshot struct {
	SubscriptionID uint
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	PlanID         string
	PlanName       string
	PlanPrice      decimal.Decimal
	Status         model.SubscriptionStatus
	StartDate      time.Time
	EndDate        time.Time
	AutoRenew      bool
	Items          []*ItemDetail
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ListOptions control paging and ordering of the list-all query. SortBy is
// restricted to an allow-list; anything else falls back to updated_at.
type ListOptions struct {
	SortBy  string
	SortDir string
	Offset  int
	Limit   int
}

var sortColumns = map[string]string{
	"id":            "subscriptions.id",
	"customer_name": "customers.name",
	"plan_name":     "plans.name",
	"status":        "subscriptions.status",
	"start_date":    "subscriptions.start_date",
	"end_date":      "subscriptions.end_date",
	"auto_renew":    "subscriptions.auto_renew",
	"created_at":    "subscriptions.created_at",
	"updated_at":    "subscriptions.updated_at",
}

func (o ListOptions) orderExpr() string {
	col, ok := sortColumns[o.SortBy]
	if !ok {
		col = "subscriptions.updated_at"
	}
	dir := "DESC"
	if o.SortDir == "asc" {
		dir = "ASC"
	}
	return col + " " + dir
}

type SubscriptionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error
	CreateItems(ctx context.Context, tx *gorm.DB, items []*model.SubscriptionItem) error
	DeleteItems(ctx context.Context, tx *gorm.DB, subscriptionID uint) error
	Update(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error
	Delete(ctx context.Context, tx *gorm.DB, subscriptionID uint) (*model.Subscription, error)

	FindByID(ctx context.Context, tx *gorm.DB, subscriptionID uint) (*model.Subscription, error)
	FindByCustomerAndPlan(ctx context.Context, customerID, planID string) (*model.Subscription, error)
	FindByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error)
	FindByPlan(ctx context.Context, planID string) ([]*model.Subscription, error)
	List(ctx context.Context, opts ListOptions) ([]*model.Subscription, int64, error)

	GetItems(ctx context.Context, tx *gorm.DB, subscriptionID uint) ([]*ItemDetail, error)
	GetItemsBatch(ctx context.Context, subscriptionIDs []uint) (map[uint][]*ItemDetail, error)
	GetSnapshot(ctx context.Context, tx *gorm.DB, subscriptionID uint) (*SubscriptionSnapshot, error)
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{
		db: db,
	}
}

// conn picks the transaction handle when one is supplied, otherwise the
// pooled connection. Read methods accept a nil tx so they can run both
// standalone and inside a workflow transaction.
func (r *subscriptionRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *subscriptionRepoImpl) Create(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	return r.conn(tx).WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepoImpl) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.SubscriptionItem) error {
	return r.conn(tx).WithContext(ctx).Create(&items).Error
}

func (r *subscriptionRepoImpl) DeleteItems(ctx context.Context, tx *gorm.DB, subscriptionID uint) error {
	return r.conn(tx).WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Delete(&model.SubscriptionItem{}).Error
}

func (r *subscriptionRepoImpl) Update(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	sub.UpdatedAt = time.Now()
	result := r.conn(tx).WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"customer_id": sub.CustomerID,
			"plan_id":     sub.PlanID,
			"status":      sub.Status,
			"start_date":  sub.StartDate,
			"end_date":    sub.EndDate,
			"auto_renew":  sub.AutoRenew,
			"updated_at":  sub.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *subscriptionRepoImpl) Delete(ctx context.Context, tx *gorm.DB, subscriptionID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.conn(tx).WithContext(ctx).
		Where("id = ?", subscriptionID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}

	err = r.conn(tx).WithContext(ctx).
		Where("id = ?", subscriptionID).
		Delete(&model.Subscription{}).Error
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, subscriptionID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.conn(tx).WithContext(ctx).
		Where("id = ?", subscriptionID).
		First(&sub).Error

	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepoImpl) FindByCustomerAndPlan(ctx context.Context, customerID, planID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Where("plan_id = ?", planID).
		Order("id ASC").
		First(&sub).Error

	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepoImpl) FindByCustomer(ctx context.Context, customerID string) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Find(&subs).Error

	if err != nil {
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepoImpl) FindByPlan(ctx context.Context, planID string) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Find(&subs).Error

	if err != nil {
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepoImpl) List(ctx context.Context, opts ListOptions) ([]*model.Subscription, int64, error) {
	joined := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Subscription{}).
			Select("subscriptions.*").
			Joins("JOIN customers ON customers.id = subscriptions.customer_id").
			Joins("JOIN plans ON plans.id = subscriptions.plan_id")
	}

	var total int64
	if err := joined().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := joined().Order(opts.orderExpr())
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var subs []*model.Subscription
	if err := q.Find(&subs).Error; err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

// GetItems fetches the line items of a subscription and joins them with
// item master data in memory (empty slice, not nil, when there are none).
func (r *subscriptionRepoImpl) GetItems(ctx context.Context, tx *gorm.DB, subscriptionID uint) ([]*ItemDetail, error) {
	conn := r.conn(tx)

	var rows []*model.SubscriptionItem
	err := conn.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("item_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	details := make([]*ItemDetail, 0, len(rows))
	if len(rows) == 0 {
		return details, nil
	}

	itemIDs := make([]string, len(rows))
	for i, row := range rows {
		itemIDs[i] = row.ItemID
	}

	var items []*model.Item
	err = conn.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	itemsByID := make(map[string]*model.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	for _, row := range rows {
		detail := &ItemDetail{
			ItemID:   row.ItemID,
			Quantity: row.Quantity,
		}
		if item, ok := itemsByID[row.ItemID]; ok {
			detail.ItemName = item.Name
			detail.UnitPrice = item.UnitPrice
		}
		details = append(details, detail)
	}

	return details, nil
}

// GetItemsBatch loads the line items of several subscriptions in two
// queries and groups them by subscription id. Subscriptions without items
// get an empty slice.
func (r *subscriptionRepoImpl) GetItemsBatch(ctx context.Context, subscriptionIDs []uint) (map[uint][]*ItemDetail, error) {
	grouped := make(map[uint][]*ItemDetail, len(subscriptionIDs))
	for _, id := range subscriptionIDs {
		grouped[id] = []*ItemDetail{}
	}
	if len(subscriptionIDs) == 0 {
		return grouped, nil
	}

	var rows []*model.SubscriptionItem
	err := r.db.WithContext(ctx).
		Where("subscription_id IN ?", subscriptionIDs).
		Order("item_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return grouped, nil
	}

	itemIDSet := make(map[string]struct{})
	for _, row := range rows {
		itemIDSet[row.ItemID] = struct{}{}
	}
	itemIDs := make([]string, 0, len(itemIDSet))
	for id := range itemIDSet {
		itemIDs = append(itemIDs, id)
	}

	var items []*model.Item
	err = r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	itemsByID := make(map[string]*model.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	for _, row := range rows {
		detail := &ItemDetail{
			ItemID:   row.ItemID,
			Quantity: row.Quantity,
		}
		if item, ok := itemsByID[row.ItemID]; ok {
			detail.ItemName = item.Name
			detail.UnitPrice = item.UnitPrice
		}
		grouped[row.SubscriptionID] = append(grouped[row.SubscriptionID], detail)
	}

	return grouped, nil
}

// GetSnapshot assembles the denormalized customer+plan+items view of a
// subscription as it currently stands.
func (r *subscriptionRepoImpl) GetSnapshot(ctx context.Context, tx *gorm.DB, subscriptionID uint) (*SubscriptionSnapshot, error) {
	conn := r.conn(tx)

	sub, err := r.FindByID(ctx, tx, subscriptionID)
	if err != nil {
		return nil, err
	}

	var customer model.Customer
	if err := conn.WithContext(ctx).Where("id = ?", sub.CustomerID).First(&customer).Error; err != nil {
		return nil, err
	}

	var plan model.Plan
	if err := conn.WithContext(ctx).Where("id = ?", sub.PlanID).First(&plan).Error; err != nil {
		return nil, err
	}

	items, err := r.GetItems(ctx, tx, subscriptionID)
	if err != nil {
		return nil, err
	}

	return &SubscriptionSnapshot{
		SubscriptionID: sub.ID,
		CustomerID:     customer.ID,
		CustomerName:   customer.Name,
		CustomerEmail:  customer.Email,
		PlanID:         plan.ID,
		PlanName:       plan.Name,
		PlanPrice:      plan.Price,
		Status:         sub.Status,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		AutoRenew:      sub.AutoRenew,
		Items:          items,
		CreatedAt:      sub.CreatedAt,
		UpdatedAt:      sub.UpdatedAt,
	}, nil
}
