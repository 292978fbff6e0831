package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"subscription-billing-backoffice/internal/client"
	"subscription-billing-backoffice/internal/repository"
	"subscription-billing-backoffice/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
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

	log := logrus.New()
	log.SetOutput(io.Discard)

	assignments := service.NewAssignmentService(
		db, log,
		subscriptionRepo,
		customerRepo,
		planRepo,
		itemRepo,
		invoiceRepo,
		service.NewInvoiceNumberGenerator(invoiceRepo),
	)
	invoices := service.NewInvoiceService(db, log, invoiceRepo, t.TempDir())

	return NewServer(assignments, invoices, "")
}

func doJSON(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAssignmentLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	createBody := `{
		"customer_id": "cust_demo_001",
		"plan_id": "plan_pro",
		"status": "active",
		"start_date": "2026-01-01",
		"end_date": "2026-12-31",
		"auto_renew": true,
		"items": [{"item_id": "item_seat", "quantity": 2}]
	}`

	rec := doJSON(srv, http.MethodPost, "/api/assignments", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"invoice_number":"INV-`)

	// Same pair again conflicts.
	rec = doJSON(srv, http.MethodPost, "/api/assignments", createBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/assignments/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"customer_name":"Ada Wong"`)

	rec = doJSON(srv, http.MethodGet, "/api/assignments/lookup?customer_id=cust_demo_001&plan_id=plan_pro", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(srv, http.MethodPatch, "/api/assignments/1", `{"status": "suspended"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(srv, http.MethodGet, "/api/assignments/1/invoices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(srv, http.MethodDelete, "/api/assignments/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/assignments/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignmentValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/api/assignments", `{"plan_id": "plan_pro"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/api/assignments", `{
		"customer_id": "cust_demo_001",
		"plan_id": "plan_pro",
		"status": "active",
		"start_date": "2026-01-01",
		"end_date": "2026-12-31",
		"items": [{"item_id": "item_seat", "quantity": 0}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/assignments/not-a-number", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceBatchDeleteOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(srv, http.MethodPost, "/api/assignments", `{
		"customer_id": "cust_demo_002",
		"plan_id": "plan_basic",
		"status": "active",
		"start_date": "2026-01-01",
		"end_date": "2026-12-31"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(srv, http.MethodPost, "/api/invoices/batch-delete", `{"ids": [1]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":1`)

	rec = doJSON(srv, http.MethodGet, "/api/invoices/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/api/invoices/batch-delete", `{"ids": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
