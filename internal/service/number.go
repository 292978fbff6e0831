package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"subscription-billing-backoffice/internal/apperr"
	"subscription-billing-backoffice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// numberAttempts bounds the collision retries before the generator gives
// up; exhaustion is fatal for the enclosing transaction.
const numberAttempts = 5

type InvoiceNumberGenerator interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
}

type invoiceNumberGeneratorImpl struct {
	invoiceRepo repository.InvoiceRepository
}

func NewInvoiceNumberGenerator(invoiceRepo repository.InvoiceRepository) InvoiceNumberGenerator {
	return &invoiceNumberGeneratorImpl{
		invoiceRepo: invoiceRepo,
	}
}

// Next produces a human-readable invoice number, INV-YYYYMMDD-XXXXXXXX,
// re-checked against the invoice table so a number is never reused.
func (g *invoiceNumberGeneratorImpl) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
		number := fmt.Sprintf("INV-%s-%s", time.Now().Format("20060102"), suffix)

		exists, err := g.invoiceRepo.ExistsByNumber(ctx, tx, number)
		if err != nil {
			return "", fmt.Errorf("check invoice number uniqueness: %w", err)
		}
		if !exists {
			return number, nil
		}
	}

	return "", fmt.Errorf("%w: %d attempts exhausted", apperr.ErrNumberGeneration, numberAttempts)
}
