package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"subscription-billing-backoffice/internal/apperr"
	"subscription-billing-backoffice/internal/dto"
	"subscription-billing-backoffice/internal/model"
	"subscription-billing-backoffice/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type InvoiceService interface {
	GetInvoice(ctx context.Context, invoiceID uint) (*dto.InvoiceView, error)
	ListBySubscription(ctx context.Context, subscriptionID uint) ([]*dto.InvoiceView, error)
	BatchDelete(ctx context.Context, invoiceIDs []uint) (int64, error)
}

type invoiceServiceImpl struct {
	db          *gorm.DB
	log         *logrus.Logger
	invoiceRepo repository.InvoiceRepository
	pdfDir      string
}

func NewInvoiceService(db *gorm.DB, log *logrus.Logger, invoiceRepo repository.InvoiceRepository, pdfDir string) InvoiceService {
	return &invoiceServiceImpl{
		db:          db,
		log:         log,
		invoiceRepo: invoiceRepo,
		pdfDir:      pdfDir,
	}
}

func (s *invoiceServiceImpl) GetInvoice(ctx context.Context, invoiceID uint) (*dto.InvoiceView, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invoice", invoiceID)
		}
		return nil, err
	}

	return invoiceView(invoice), nil
}

func (s *invoiceServiceImpl) ListBySubscription(ctx context.Context, subscriptionID uint) ([]*dto.InvoiceView, error) {
	invoices, err := s.invoiceRepo.FindBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	views := make([]*dto.InvoiceView, 0, len(invoices))
	for _, invoice := range invoices {
		views = append(views, invoiceView(invoice))
	}

	return views, nil
}

// BatchDelete hard-deletes the given invoices in one transaction and then
// removes their local PDF artifacts. Artifact removal is best-effort: a
// missing file is not an error once the rows are gone.
func (s *invoiceServiceImpl) BatchDelete(ctx context.Context, invoiceIDs []uint) (int64, error) {
	if len(invoiceIDs) == 0 {
		return 0, apperr.Validation("ids", "at least one invoice id required")
	}

	invoices, err := s.invoiceRepo.FindMany(ctx, invoiceIDs)
	if err != nil {
		return 0, fmt.Errorf("load invoices for deletion: %w", err)
	}

	var deleted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err = s.invoiceRepo.DeleteBatch(ctx, tx, invoiceIDs)
		if err != nil {
			return fmt.Errorf("delete invoices: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("invoice_ids", invoiceIDs).Error("invoice batch delete failed")
		return 0, err
	}

	for _, invoice := range invoices {
		s.removeArtifact(invoice)
	}

	return deleted, nil
}

func (s *invoiceServiceImpl) removeArtifact(invoice *model.Invoice) {
	if invoice.PdfURL == "" || s.pdfDir == "" {
		return
	}
	path := filepath.Join(s.pdfDir, filepath.Base(invoice.PdfURL))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.WithError(err).WithField("path", path).Warn("could not remove invoice pdf artifact")
	}
}
