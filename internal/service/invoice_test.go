package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"subscription-billing-backoffice/internal/apperr"
	"subscription-billing-backoffice/internal/dto"
	"subscription-billing-backoffice/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInvoiceNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.invoices.GetInvoice(context.Background(), 404)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestListInvoicesBySubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.assignments.CreateAssignment(ctx, proRequest())
	require.NoError(t, err)
	patched, err := env.assignments.PatchAssignment(ctx, created.Subscription.ID, &dto.PatchAssignmentRequest{})
	require.NoError(t, err)

	invoices, err := env.invoices.ListBySubscription(ctx, created.Subscription.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, created.Invoice.ID, invoices[0].ID)
	assert.Equal(t, patched.Invoice.ID, invoices[1].ID)

	empty, err := env.invoices.ListBySubscription(ctx, 99999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBatchDeleteInvoices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.assignments.CreateAssignment(ctx, proRequest())
	require.NoError(t, err)
	patched, err := env.assignments.PatchAssignment(ctx, created.Subscription.ID, &dto.PatchAssignmentRequest{})
	require.NoError(t, err)

	deleted, err := env.invoices.BatchDelete(ctx, []uint{created.Invoice.ID, patched.Invoice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, int64(0), env.rowCount(t, &model.Invoice{}))

	// The subscription itself is untouched.
	assert.Equal(t, int64(1), env.rowCount(t, &model.Subscription{}))
}

func TestBatchDeleteRemovesPdfArtifact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.assignments.CreateAssignment(ctx, proRequest())
	require.NoError(t, err)

	artifact := filepath.Join(env.pdfDir, "inv-test.pdf")
	require.NoError(t, os.WriteFile(artifact, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, env.db.Model(&model.Invoice{}).
		Where("id = ?", created.Invoice.ID).
		Update("pdf_url", "/files/invoices/inv-test.pdf").Error)

	deleted, err := env.invoices.BatchDelete(ctx, []uint{created.Invoice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = os.Stat(artifact)
	assert.True(t, os.IsNotExist(err), "pdf artifact should be removed")
}

func TestBatchDeleteValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.invoices.BatchDelete(ctx, nil)
	assert.True(t, apperr.IsValidation(err))

	// Unknown ids are not an error, just zero rows.
	deleted, err := env.invoices.BatchDelete(ctx, []uint{777})
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
