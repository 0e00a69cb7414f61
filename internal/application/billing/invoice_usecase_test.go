package billing_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-agua/internal/application/billing"
	"github.com/jhoicas/facturacion-agua/internal/application/dto"
	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/tariff"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

func breakdownFor(t *testing.T, consumption string) entity.AmountBreakdown {
	t.Helper()
	b, err := tariff.NewEngine(tariff.PolicyCurrent).Compute(tariff.Input{
		Consumption: decimal.RequireFromString(consumption),
		ServiceType: entity.ServiceResidential,
	})
	require.NoError(t, err)
	return b
}

// ──────────────────────────────────────────────────────────────────────────────
// Creación con número asignado
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateInvoice_ConNumeroAsignado(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	number, err := env.sequence.AllocateNext(ctx, "", "")
	require.NoError(t, err)

	inv, err := env.invoice.CreateInvoice(ctx, breakdownFor(t, "15"), number, 3, 8, "Marzo", entity.InvoiceStatusDebt)
	require.NoError(t, err)
	assert.Positive(t, inv.ID)

	stored, err := env.invoice.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, number, stored.DisplayNumber())
	assert.Equal(t, "4.50", stored.TotalAmount.StringFixed(2))
	assert.True(t, stored.Consistent())

	next, err := env.sequence.AllocateNext(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "001-010-0000000002", next)
}

func TestCreateInvoice_TotalInconsistente(t *testing.T) {
	env := newTestEnv(t)

	b := breakdownFor(t, "15")
	b.TotalAmount = b.TotalAmount.Add(decimal.RequireFromString("0.01"))

	_, err := env.invoice.CreateInvoice(context.Background(), b, "001-010-0000000001", 1, 1, "Enero", entity.InvoiceStatusDebt)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCreateInvoice_EntradaInvalida(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := breakdownFor(t, "15")

	cases := []struct {
		name   string
		number string
		month  entity.Month
		status entity.InvoiceStatus
	}{
		{"número corto", "001-010-1", "Enero", entity.InvoiceStatusDebt},
		{"número con letras", "001-010-00000000AB", "Enero", entity.InvoiceStatusDebt},
		{"mes desconocido", "001-010-0000000001", "Enerito", entity.InvoiceStatusDebt},
		{"estado desconocido", "001-010-0000000001", "Enero", "Anulada"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.invoice.CreateInvoice(ctx, b, tc.number, 1, 1, tc.month, tc.status)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestCreateInvoice_NumeroYaRegistrado(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	b := breakdownFor(t, "15")

	_, err := env.invoice.CreateInvoice(ctx, b, "001-010-0000000001", 1, 1, "Enero", entity.InvoiceStatusDebt)
	require.NoError(t, err)
	_, err = env.invoice.CreateInvoice(ctx, b, "001-010-0000000001", 2, 2, "Enero", entity.InvoiceStatusDebt)
	assert.True(t, errors.Is(err, domain.ErrDuplicateNumber))
}

func TestCreateInvoice_VerificacionFallida(t *testing.T) {
	invRepo := stubInvoiceRepo{}
	uc := billing.NewInvoiceUseCase(stubRunner{invoiceRepo: invRepo}, invRepo, logger.Nop())

	_, err := uc.CreateInvoice(context.Background(), breakdownFor(t, "15"), "001-010-0000000001", 1, 1, "Enero", entity.InvoiceStatusDebt)
	assert.True(t, errors.Is(err, domain.ErrCommitVerificationFailed))
}

func TestDeleteInvoice_Inexistente(t *testing.T) {
	env := newTestEnv(t)

	err := env.invoice.DeleteInvoice(context.Background(), 404)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = env.invoice.GetInvoice(context.Background(), 404)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// ──────────────────────────────────────────────────────────────────────────────
// Registro de lecturas
// ──────────────────────────────────────────────────────────────────────────────

func TestRegister_MontosYCargos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reading, err := env.register.RecordReading(ctx, 9, decimal.RequireFromString("101"))
	require.NoError(t, err)

	resp, err := env.register.Register(ctx, dto.RegisterInvoiceRequest{
		ReadingID:      reading.ID,
		BillingMonth:   "FEBRERO",
		ServiceType:    "INDUSTRIAL",
		SeniorDiscount: true,
		PaymentMethod:  "Transferencia",
		Ancillary:      []string{"medidor", "medidor"},
		Discretionary:  []string{"carnet_nuevo"},
		Materials:      decimal.RequireFromString("12.35"),
	})
	require.NoError(t, err)

	inv := resp.Invoice
	assert.Equal(t, "001-010-0000000001", inv.Number)
	assert.Equal(t, int64(9), inv.ClientRef)
	assert.Equal(t, reading.ID, inv.ReadingRef)
	assert.Equal(t, "Febrero", inv.BillingMonth)
	assert.Equal(t, "Deuda", inv.Status)
	assert.Equal(t, "Transferencia", inv.PaymentMethod)
	assert.Equal(t, "2.25", inv.BasicAmount.StringFixed(2))
	assert.Equal(t, "72.80", inv.ExcessAmount.StringFixed(2))
	assert.Equal(t, "63.35", inv.AncillaryTotal.StringFixed(2))
	assert.Equal(t, "138.40", inv.TotalAmount.StringFixed(2))
	assert.Len(t, inv.Fees, 3)

	stored, err := env.invoice.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Fees, 3)
	assert.True(t, stored.Consistent())
}

func TestRegister_SaldoPrevioDelCliente(t *testing.T) {
	env := newTestEnv(t)

	first := env.registerFor(t, 4, "15")
	assert.True(t, first.PriorBalance.IsZero())
	assert.Zero(t, first.PriorDebts)

	second := env.registerFor(t, 4, "15")
	assert.Equal(t, "4.50", second.PriorBalance.StringFixed(2))
	assert.Equal(t, int64(1), second.PriorDebts)
}

func TestRegister_EntradaInvalida(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reading, err := env.register.RecordReading(ctx, 1, decimal.RequireFromString("20"))
	require.NoError(t, err)

	cases := []struct {
		name string
		req  dto.RegisterInvoiceRequest
	}{
		{"mes", dto.RegisterInvoiceRequest{ReadingID: reading.ID, BillingMonth: "Mes13", ServiceType: "COMERCIAL"}},
		{"servicio", dto.RegisterInvoiceRequest{ReadingID: reading.ID, BillingMonth: "Enero", ServiceType: "AGRICOLA"}},
		{"cargo", dto.RegisterInvoiceRequest{ReadingID: reading.ID, BillingMonth: "Enero", ServiceType: "COMERCIAL", Ancillary: []string{"piscina"}}},
		{"forma de pago", dto.RegisterInvoiceRequest{ReadingID: reading.ID, BillingMonth: "Enero", ServiceType: "COMERCIAL", PaymentMethod: "Cheque"}},
		{"serie", dto.RegisterInvoiceRequest{ReadingID: reading.ID, BillingMonth: "Enero", ServiceType: "COMERCIAL", Establishment: "1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.register.Register(ctx, tc.req)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}

	available, err := env.sequence.Available(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), available)
}

func TestRegister_LecturaInexistente(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.register.Register(context.Background(), dto.RegisterInvoiceRequest{
		ReadingID: 77, BillingMonth: "Enero", ServiceType: "COMERCIAL",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRegister_FalloAlInsertarRevierteLaSerie(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.db.ExecContext(ctx, `
		CREATE TRIGGER fallo_insercion BEFORE INSERT ON invoices
		BEGIN SELECT RAISE(ABORT, 'fallo forzado'); END`)
	require.NoError(t, err)

	_, err = env.tryRegister(1, "15")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorage))

	current, err := env.sequence.CurrentSequential(ctx, "001", "010")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Zero(t, *current, "la serie no debe avanzar")

	all, err := env.invoice.ListByClient(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = env.db.ExecContext(ctx, `DROP TRIGGER fallo_insercion`)
	require.NoError(t, err)

	assert.Equal(t, "001-010-0000000001", env.registerFor(t, 1, "15").Invoice.Number)
}

func TestQuote_NoRegistraNada(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reading, err := env.register.RecordReading(ctx, 2, decimal.RequireFromString("60"))
	require.NoError(t, err)

	b, err := env.register.Quote(ctx, reading.ID, tariff.Input{ServiceType: entity.ServiceCommercial})
	require.NoError(t, err)
	assert.Equal(t, "3.50", b.BasicAmount.StringFixed(2))
	assert.Equal(t, "30.00", b.ExcessAmount.StringFixed(2))

	all, err := env.invoice.ListByClient(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecordReading_EntradaInvalida(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.register.RecordReading(ctx, 0, decimal.NewFromInt(5))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = env.register.RecordReading(ctx, 1, decimal.NewFromInt(-5))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
