package repository

import (
	"context"

	"subscription-billing-backoffice/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlanRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, planID string) (*model.Plan, error)
	FindMany(ctx context.Context, planIDs []string) ([]*model.Plan, error)
}

type planRepoImpl struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepoImpl{
		db: db,
	}
}

func (r *planRepoImpl) Seed(ctx context.Context) error {
	plans := []model.Plan{
		{ID: "plan_basic", Name: "Basic", Description: "Entry tier, monthly billing", Price: decimal.NewFromFloat(9.99), Currency: "USD"},
		{ID: "plan_pro", Name: "Pro", Description: "Pro tier with support", Price: decimal.NewFromFloat(29.99), Currency: "USD"},
		{ID: "plan_enterprise", Name: "Enterprise", Description: "Custom volume tier", Price: decimal.NewFromFloat(99.99), Currency: "USD"},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&plans).Error
}

func (r *planRepoImpl) FindByID(ctx context.Context, planID string) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.WithContext(ctx).
		Where("id = ?", planID).
		First(&plan).Error

	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepoImpl) FindMany(ctx context.Context, planIDs []string) ([]*model.Plan, error) {
	var plans []*model.Plan
	err := r.db.WithContext(ctx).
		Where("id IN ?", planIDs).
		Find(&plans).
		Error

	if err != nil {
		return nil, err
	}

	return plans, nil
}
