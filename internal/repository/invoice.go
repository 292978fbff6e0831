package repository

import (
	"context"
	"time"

	"subscription-billing-backoffice/internal/model"

	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, invoice *model.Invoice) error
	FindByID(ctx context.Context, invoiceID uint) (*model.Invoice, error)
	FindBySubscription(ctx context.Context, subscriptionID uint) ([]*model.Invoice, error)
	FindMany(ctx context.Context, invoiceIDs []uint) ([]*model.Invoice, error)
	ExistsByNumber(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	CancelGenerated(ctx context.Context, tx *gorm.DB, subscriptionID uint) (int64, error)
	DeleteBatch(ctx context.Context, tx *gorm.DB, invoiceIDs []uint) (int64, error)
}

type invoiceRepoImpl struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepoImpl{
		db: db,
	}
}

func (r *invoiceRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *invoiceRepoImpl) Create(ctx context.Context, tx *gorm.DB, invoice *model.Invoice) error {
	return r.conn(tx).WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepoImpl) FindByID(ctx context.Context, invoiceID uint) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.WithContext(ctx).
		Where("id = ?", invoiceID).
		First(&invoice).Error

	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

func (r *invoiceRepoImpl) FindBySubscription(ctx context.Context, subscriptionID uint) ([]*model.Invoice, error) {
	var invoices []*model.Invoice
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("id ASC").
		Find(&invoices).Error

	if err != nil {
		return nil, err
	}

	return invoices, nil
}

func (r *invoiceRepoImpl) FindMany(ctx context.Context, invoiceIDs []uint) ([]*model.Invoice, error) {
	var invoices []*model.Invoice
	err := r.db.WithContext(ctx).
		Where("id IN ?", invoiceIDs).
		Find(&invoices).Error

	if err != nil {
		return nil, err
	}

	return invoices, nil
}

func (r *invoiceRepoImpl) ExistsByNumber(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&model.Invoice{}).
		Where("invoice_number = ?", number).
		Count(&count).Error

	return count > 0, err
}

// CancelGenerated soft-cancels every invoice of the subscription that is
// still in the 'generated' status. The rows are kept for audit history.
func (r *invoiceRepoImpl) CancelGenerated(ctx context.Context, tx *gorm.DB, subscriptionID uint) (int64, error) {
	result := r.conn(tx).WithContext(ctx).Model(&model.Invoice{}).
		Where("subscription_id = ?", subscriptionID).
		Where("status = ?", model.InvoiceGenerated).
		Updates(map[string]interface{}{
			"status":     model.InvoiceCanceled,
			"updated_at": time.Now(),
		})

	return result.RowsAffected, result.Error
}

func (r *invoiceRepoImpl) DeleteBatch(ctx context.Context, tx *gorm.DB, invoiceIDs []uint) (int64, error) {
	result := r.conn(tx).WithContext(ctx).
		Where("id IN ?", invoiceIDs).
		Delete(&model.Invoice{})

	return result.RowsAffected, result.Error
}
