package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"subscription-billing-backoffice/internal/client"
	"subscription-billing-backoffice/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := client.InitSqliteClient(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	return db
}

func seedMasterData(t *testing.T, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, NewCustomerRepository(db).Seed(ctx))
	require.NoError(t, NewPlanRepository(db).Seed(ctx))
	require.NoError(t, NewItemRepository(db).Seed(ctx))
}

func mustCreateSubscription(t *testing.T, db *gorm.DB, customerID, planID string) *model.Subscription {
	t.Helper()
	sub := &model.Subscription{
		CustomerID: customerID,
		PlanID:     planID,
		Status:     model.SubscriptionActive,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestOrderExpr(t *testing.T) {
	cases := []struct {
		opts ListOptions
		want string
	}{
		{ListOptions{SortBy: "customer_name", SortDir: "asc"}, "customers.name ASC"},
		{ListOptions{SortBy: "plan_name"}, "plans.name DESC"},
		{ListOptions{SortBy: "status", SortDir: "desc"}, "subscriptions.status DESC"},
		{ListOptions{SortBy: "id", SortDir: "ASC"}, "subscriptions.id DESC"}, // direction is matched lowercase
		{ListOptions{}, "subscriptions.updated_at DESC"},
		{ListOptions{SortBy: "1; DROP TABLE subscriptions"}, "subscriptions.updated_at DESC"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.opts.orderExpr(), "sort_by=%q sort_dir=%q", tc.opts.SortBy, tc.opts.SortDir)
	}
}

func TestListJoinsAndCounts(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	mustCreateSubscription(t, db, "cust_demo_002", "plan_basic")
	mustCreateSubscription(t, db, "cust_demo_001", "plan_enterprise")
	mustCreateSubscription(t, db, "cust_demo_003", "plan_pro")

	subs, total, err := repo.List(ctx, ListOptions{SortBy: "plan_name", SortDir: "asc", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, subs, 2)
	assert.Equal(t, "plan_basic", subs[0].PlanID)
	assert.Equal(t, "plan_enterprise", subs[1].PlanID)

	// The join must not bleed customer or plan columns into the
	// subscription scan.
	assert.Equal(t, "cust_demo_002", subs[0].CustomerID)
	assert.NotZero(t, subs[0].ID)
}

func TestGetSnapshotAssemblesItems(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	sub := mustCreateSubscription(t, db, "cust_demo_001", "plan_pro")
	require.NoError(t, repo.CreateItems(ctx, nil, []*model.SubscriptionItem{
		{SubscriptionID: sub.ID, ItemID: "item_support", Quantity: 1},
		{SubscriptionID: sub.ID, ItemID: "item_seat", Quantity: 4},
	}))

	snap, err := repo.GetSnapshot(ctx, nil, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Wong", snap.CustomerName)
	assert.Equal(t, "Pro", snap.PlanName)
	assert.True(t, snap.PlanPrice.Equal(decimal.NewFromFloat(29.99)))

	require.Len(t, snap.Items, 2)
	assert.Equal(t, "item_seat", snap.Items[0].ItemID)
	assert.Equal(t, int32(4), snap.Items[0].Quantity)
	assert.True(t, snap.Items[0].UnitPrice.Equal(decimal.NewFromFloat(5.00)))
	assert.Equal(t, "item_support", snap.Items[1].ItemID)
}

func TestGetSnapshotWithoutItems(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	repo := NewSubscriptionRepository(db)

	sub := mustCreateSubscription(t, db, "cust_demo_002", "plan_basic")
	snap, err := repo.GetSnapshot(context.Background(), nil, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.Items)
	assert.Empty(t, snap.Items)
}

func TestGetItemsBatchGroupsBySubscription(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	a := mustCreateSubscription(t, db, "cust_demo_001", "plan_basic")
	b := mustCreateSubscription(t, db, "cust_demo_002", "plan_basic")
	require.NoError(t, repo.CreateItems(ctx, nil, []*model.SubscriptionItem{
		{SubscriptionID: a.ID, ItemID: "item_seat", Quantity: 1},
		{SubscriptionID: a.ID, ItemID: "item_storage", Quantity: 2},
		{SubscriptionID: b.ID, ItemID: "item_support", Quantity: 1},
	}))

	grouped, err := repo.GetItemsBatch(ctx, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, grouped[a.ID], 2)
	require.Len(t, grouped[b.ID], 1)
	assert.Equal(t, "Priority support", grouped[b.ID][0].ItemName)
}

func TestUniqueCustomerPlanStatusIndex(t *testing.T) {
	db := newTestDB(t)
	seedMasterData(t, db)

	mustCreateSubscription(t, db, "cust_demo_001", "plan_pro")

	dup := &model.Subscription{
		CustomerID: "cust_demo_001",
		PlanID:     "plan_pro",
		Status:     model.SubscriptionActive,
		StartDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	err := db.Create(dup).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// A different status for the same pair is allowed.
	other := &model.Subscription{
		CustomerID: "cust_demo_001",
		PlanID:     "plan_pro",
		Status:     model.SubscriptionCanceled,
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, db.Create(other).Error)
}
