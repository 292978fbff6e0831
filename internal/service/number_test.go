package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceNumberFormat(t *testing.T) {
	env := newTestEnv(t)
	gen := NewInvoiceNumberGenerator(env.invoiceRepo)

	number, err := gen.Next(context.Background(), env.db)
	require.NoError(t, err)
	assert.Regexp(t, invoiceNumberPattern, number)
}

func TestInvoiceNumbersAreDistinct(t *testing.T) {
	env := newTestEnv(t)
	gen := NewInvoiceNumberGenerator(env.invoiceRepo)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		number, err := gen.Next(ctx, env.db)
		require.NoError(t, err)
		assert.False(t, seen[number], "number %s issued twice", number)
		seen[number] = true
	}
}
