package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
)

func TestBackfillLegacyNumbers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 2; i++ {
		id, err := env.invoices.Create(ctx, &entity.Invoice{
			ClientRef:    1,
			ReadingRef:   1,
			Consumption:  decimal.NewFromInt(10),
			BasicAmount:  decimal.RequireFromString("2.50"),
			TotalAmount:  decimal.RequireFromString("2.50"),
			BillingMonth: "Enero",
			Status:       entity.InvoiceStatusPaid,
			ServiceType:  entity.ServiceResidential,
			IssuedAt:     time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	numbered := env.registerFor(t, 1, "15")

	before, err := env.invoice.GetInvoice(ctx, ids[0])
	require.NoError(t, err)
	assert.Nil(t, before.Number)
	assert.Equal(t, "001-001-000000001", before.DisplayNumber())

	n, err := env.legacy.BackfillLegacyNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range ids {
		inv, err := env.invoice.GetInvoice(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, inv.Number)
		assert.Equal(t, inv.DisplayNumber(), *inv.Number)
	}

	kept, err := env.invoice.GetInvoice(ctx, numbered.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "001-010-0000000001", *kept.Number)

	again, err := env.legacy.BackfillLegacyNumbers(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
}
