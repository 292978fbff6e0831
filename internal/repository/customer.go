package repository

import (
	"context"

	"subscription-billing-backoffice/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, customerID string) (*model.Customer, error)
	FindMany(ctx context.Context, customerIDs []string) ([]*model.Customer, error)
}

type customerRepoImpl struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepoImpl{
		db: db,
	}
}

func (r *customerRepoImpl) Seed(ctx context.Context) error {
	customers := []model.Customer{
		{ID: "cust_demo_001", Name: "Ada Wong", Email: "ada@example.com"},
		{ID: "cust_demo_002", Name: "Ben Okafor", Email: "ben@example.com"},
		{ID: "cust_demo_003", Name: "Carla Reyes", Email: "carla@example.com"},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&customers).Error
}

func (r *customerRepoImpl) FindByID(ctx context.Context, customerID string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", customerID).
		First(&customer).Error

	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func (r *customerRepoImpl) FindMany(ctx context.Context, customerIDs []string) ([]*model.Customer, error) {
	var customers []*model.Customer
	err := r.db.WithContext(ctx).
		Where("id IN ?", customerIDs).
		Find(&customers).
		Error

	if err != nil {
		return nil, err
	}

	return customers, nil
}
