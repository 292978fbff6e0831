package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"subscription-billing-backoffice/internal/client"
	"subscription-billing-backoffice/internal/dto"
	"subscription-billing-backoffice/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires the full service stack against an in-memory sqlite database
// named after the test, so each test gets an isolated schema with foreign
// keys enforced.
type testEnv struct {
	db          *gorm.DB
	assignments AssignmentService
	invoices    InvoiceService
	invoiceRepo repository.InvoiceRepository
	pdfDir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := client.InitSqliteClient(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	ctx := context.Background()
	customerRepo := repository.NewCustomerRepository(db)
	planRepo := repository.NewPlanRepository(db)
	itemRepo := repository.NewItemRepository(db)
	require.NoError(t, customerRepo.Seed(ctx))
	require.NoError(t, planRepo.Seed(ctx))
	require.NoError(t, itemRepo.Seed(ctx))

	subscriptionRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	numbers := NewInvoiceNumberGenerator(invoiceRepo)

	log := logrus.New()
	log.SetOutput(io.Discard)

	pdfDir := t.TempDir()

	return &testEnv{
		db: db,
		assignments: NewAssignmentService(
			db, log,
			subscriptionRepo,
			customerRepo,
			planRepo,
			itemRepo,
			invoiceRepo,
			numbers,
		),
		invoices:    NewInvoiceService(db, log, invoiceRepo, pdfDir),
		invoiceRepo: invoiceRepo,
		pdfDir:      pdfDir,
	}
}

func (e *testEnv) rowCount(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

// proRequest is a valid create request against seeded master data.
func proRequest(items ...*dto.AssignmentItem) *dto.CreateAssignmentRequest {
	return &dto.CreateAssignmentRequest{
		CustomerID: "cust_demo_001",
		PlanID:     "plan_pro",
		Status:     "active",
		StartDate:  "2026-01-01",
		EndDate:    "2026-12-31",
		AutoRenew:  true,
		Items:      items,
	}
}
