package repository

import (
	"context"

	"subscription-billing-backoffice/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, itemID string) (*model.Item, error)
	FindMany(ctx context.Context, itemIDs []string) ([]*model.Item, error)
}

type itemRepoImpl struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepoImpl{
		db: db,
	}
}

func (r *itemRepoImpl) Seed(ctx context.Context) error {
	items := []model.Item{
		{ID: "item_seat", Name: "Extra seat", UnitPrice: decimal.NewFromFloat(5.00), Currency: "USD"},
		{ID: "item_storage", Name: "Storage add-on 100GB", UnitPrice: decimal.NewFromFloat(3.50), Currency: "USD"},
		{ID: "item_support", Name: "Priority support", UnitPrice: decimal.NewFromFloat(15.00), Currency: "USD"},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&items).Error
}

func (r *itemRepoImpl) FindByID(ctx context.Context, itemID string) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error

	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *itemRepoImpl) FindMany(ctx context.Context, itemIDs []string) ([]*model.Item, error) {
	var items []*model.Item
	err := r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).
		Error

	if err != nil {
		return nil, err
	}

	return items, nil
}
