package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/internal/infrastructure/sqlite"
	"github.com/jhoicas/facturacion-agua/pkg/config"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	cfg := config.DBConfig{
		Driver:        config.DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "facturas.db"),
		BusyTimeoutMS: 5000,
	}
	db, err := sqlite.Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Migrate(context.Background())
	require.NoError(t, err)
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(s string) *string { return &s }

func sampleInvoice(clientRef int64, number *string, status entity.InvoiceStatus, total string) *entity.Invoice {
	return &entity.Invoice{
		Number:         number,
		ClientRef:      clientRef,
		ReadingRef:     1,
		Consumption:    dec("15"),
		BasicAmount:    dec("2.50"),
		ExcessAmount:   dec(total).Sub(dec("2.50")),
		AncillaryTotal: decimal.Zero,
		TotalAmount:    dec(total),
		BillingMonth:   "Enero",
		Status:         status,
		ServiceType:    entity.ServiceResidential,
		PaymentMethod:  entity.PaymentCash,
		IssuedAt:       time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

// ─── Migraciones ──────────────────────────────────────────────────────────────

func TestMigrate_Idempotente(t *testing.T) {
	db := openDB(t)

	n, err := db.Migrate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ─── Facturas ─────────────────────────────────────────────────────────────────

func TestInvoiceRepo_CrearYLeerConCargos(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewInvoiceRepository(openDB(t))

	inv := sampleInvoice(7, ptr("001-010-0000000001"), entity.InvoiceStatusDebt, "32.50")
	inv.AncillaryTotal = dec("30.00")
	inv.ExcessAmount = decimal.Zero
	inv.SeniorDiscount = true
	inv.Fees = []entity.InvoiceFee{{Code: "traspaso", Kind: entity.FeeAncillary, Amount: dec("30")}}

	id, err := repo.Create(ctx, inv)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "001-010-0000000001", *got.Number)
	assert.Equal(t, "32.50", got.TotalAmount.StringFixed(2))
	assert.Equal(t, "30.00", got.AncillaryTotal.StringFixed(2))
	assert.True(t, got.SeniorDiscount)
	assert.Equal(t, entity.Month("Enero"), got.BillingMonth)
	assert.True(t, got.IssuedAt.Equal(inv.IssuedAt))
	require.Len(t, got.Fees, 1)
	assert.Equal(t, "traspaso", got.Fees[0].Code)
	assert.Equal(t, id, got.Fees[0].InvoiceID)

	byNumber, err := repo.GetByNumber(ctx, "001-010-0000000001")
	require.NoError(t, err)
	require.NotNil(t, byNumber)
	assert.Equal(t, id, byNumber.ID)
}

func TestInvoiceRepo_NoExisteDevuelveNil(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewInvoiceRepository(openDB(t))

	inv, err := repo.GetByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, inv)

	latest, err := repo.Latest(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestInvoiceRepo_NumeroDuplicado(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewInvoiceRepository(openDB(t))

	_, err := repo.Create(ctx, sampleInvoice(1, ptr("001-010-0000000001"), entity.InvoiceStatusDebt, "2.50"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleInvoice(2, ptr("001-010-0000000001"), entity.InvoiceStatusDebt, "2.50"))
	assert.True(t, errors.Is(err, domain.ErrDuplicateNumber))
}

func TestInvoiceRepo_VariasFacturasSinNumero(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewInvoiceRepository(openDB(t))

	for i := 0; i < 2; i++ {
		_, err := repo.Create(ctx, sampleInvoice(1, nil, entity.InvoiceStatusDebt, "2.50"))
		require.NoError(t, err)
	}
	ids, err := repo.ListWithoutNumber(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestInvoiceRepo_NumbersWithPrefix(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewInvoiceRepository(openDB(t))

	for _, n := range []string{"001-010-0000000001", "001-010-0000000003", "002-001-0000000001"} {
		_, err := repo.Create(ctx, sampleInvoice(1, ptr(n), entity.InvoiceStatusDebt, "2.50"))
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, sampleInvoice(1, nil, entity.InvoiceStatusDebt, "2.50"))
	require.NoError(t, err)

	numbers, err := repo.NumbersWithPrefix(ctx, "001-010-")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"001-010-0000000001", "001-010-0000000003"}, numbers)
}

func TestInvoiceRepo_EstadosYSumas(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewInvoiceRepository(openDB(t))

	_, err := repo.Create(ctx, sampleInvoice(5, ptr("001-010-0000000001"), entity.InvoiceStatusDebt, "10.10"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleInvoice(5, ptr("001-010-0000000002"), entity.InvoiceStatusDebt, "20.20"))
	require.NoError(t, err)
	paidID, err := repo.Create(ctx, sampleInvoice(5, ptr("001-010-0000000003"), entity.InvoiceStatusPaid, "5.00"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleInvoice(6, ptr("001-010-0000000004"), entity.InvoiceStatusDebt, "99.00"))
	require.NoError(t, err)

	count, sum, err := repo.SumByStatus(ctx, 5, entity.InvoiceStatusDebt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, "30.30", sum.StringFixed(2))

	latest, err := repo.Latest(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, paidID, latest.ID)

	updated, err := repo.UpdateStatusForClient(ctx, 5, entity.InvoiceStatusDebt, entity.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	debts, err := repo.CountByStatus(ctx, 5, entity.InvoiceStatusDebt)
	require.NoError(t, err)
	assert.Zero(t, debts)

	other, err := repo.CountByStatus(ctx, 6, entity.InvoiceStatusDebt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestInvoiceRepo_EliminarBorraCargos(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := sqlite.NewInvoiceRepository(db)

	inv := sampleInvoice(1, ptr("001-010-0000000001"), entity.InvoiceStatusDebt, "12.50")
	inv.ExcessAmount = decimal.Zero
	inv.AncillaryTotal = dec("10.00")
	inv.Fees = []entity.InvoiceFee{{Code: "reconexion", Kind: entity.FeeAncillary, Amount: dec("10")}}
	id, err := repo.Create(ctx, inv)
	require.NoError(t, err)

	n, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var fees int
	require.NoError(t, db.GetContext(ctx, &fees, `SELECT COUNT(*) FROM invoice_fees`))
	assert.Zero(t, fees)

	n, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ─── Series ───────────────────────────────────────────────────────────────────

func TestSequenceRepo_CrearDuplicadaYDesactivar(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewSequenceRepository(openDB(t))

	require.NoError(t, repo.Create(ctx, &entity.Sequence{Establishment: "001", IssuePoint: "010", LastAllocated: 4, Active: true}))
	err := repo.Create(ctx, &entity.Sequence{Establishment: "001", IssuePoint: "010", Active: true})
	assert.True(t, errors.Is(err, domain.ErrDuplicateSeries))

	seq, err := repo.Get(ctx, "001", "010")
	require.NoError(t, err)
	require.NotNil(t, seq)
	assert.Equal(t, int64(4), seq.LastAllocated)
	assert.True(t, seq.Active)

	n, err := repo.Deactivate(ctx, "001", "010")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.SetLastAllocated(ctx, "001", "010", 5)
	require.NoError(t, err)
	assert.Zero(t, n, "una serie inactiva no se actualiza")

	missing, err := repo.Get(ctx, "009", "009")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)
}

// ─── Lecturas ─────────────────────────────────────────────────────────────────

func TestReadingRepo_CrearYLeer(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewReadingRepository(openDB(t))

	id, err := repo.Create(ctx, &entity.Reading{ClientRef: 3, Consumption: dec("42.5"), ReadAt: time.Now()})
	require.NoError(t, err)

	r, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, int64(3), r.ClientRef)
	assert.True(t, r.Consumption.Equal(dec("42.5")))

	none, err := repo.GetByID(ctx, id+1)
	require.NoError(t, err)
	assert.Nil(t, none)
}

// ─── Transacciones ────────────────────────────────────────────────────────────

func TestTxRunner_RollbackAnteError(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	runner := sqlite.NewTxRunner(db, logger.Nop())
	boom := errors.New("fallo")

	err := runner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository, sequenceRepo repository.SequenceRepository) error {
		require.NoError(t, sequenceRepo.Create(ctx, &entity.Sequence{Establishment: "001", IssuePoint: "010", Active: true}))
		_, err := invoiceRepo.Create(ctx, sampleInvoice(1, ptr("001-010-0000000001"), entity.InvoiceStatusDebt, "2.50"))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	seq, err := sqlite.NewSequenceRepository(db).Get(ctx, "001", "010")
	require.NoError(t, err)
	assert.Nil(t, seq)

	inv, err := sqlite.NewInvoiceRepository(db).GetByNumber(ctx, "001-010-0000000001")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestTxRunner_Commit(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	runner := sqlite.NewTxRunner(db, logger.Nop())

	err := runner.RunBilling(ctx, func(_ repository.InvoiceRepository, sequenceRepo repository.SequenceRepository) error {
		return sequenceRepo.Create(ctx, &entity.Sequence{Establishment: "001", IssuePoint: "010", Active: true})
	})
	require.NoError(t, err)

	seq, err := sqlite.NewSequenceRepository(db).Get(ctx, "001", "010")
	require.NoError(t, err)
	assert.NotNil(t, seq)
}
