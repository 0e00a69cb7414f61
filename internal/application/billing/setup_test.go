package billing_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-agua/internal/application/billing"
	"github.com/jhoicas/facturacion-agua/internal/application/dto"
	"github.com/jhoicas/facturacion-agua/internal/domain/tariff"
	"github.com/jhoicas/facturacion-agua/internal/infrastructure/sqlite"
	"github.com/jhoicas/facturacion-agua/pkg/config"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// testEnv casos de uso cableados sobre un archivo SQLite temporal con la serie 001-010.
type testEnv struct {
	db       *sqlite.DB
	invoices *sqlite.InvoiceRepo
	sequence *billing.SequenceUseCase
	invoice  *billing.InvoiceUseCase
	register *billing.RegisterInvoiceUseCase
	debt     *billing.DebtUseCase
	legacy   *billing.LegacyUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	db, err := sqlite.Open(ctx, config.DBConfig{
		Driver:        config.DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "facturas.db"),
		BusyTimeoutMS: 5000,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	runner := sqlite.NewTxRunner(db, log)
	invoiceRepo := sqlite.NewInvoiceRepository(db)
	sequenceRepo := sqlite.NewSequenceRepository(db)
	readingRepo := sqlite.NewReadingRepository(db)

	seqUC := billing.NewSequenceUseCase(runner, sequenceRepo, invoiceRepo,
		billing.SeriesConfig{Establishment: "001", IssuePoint: "010"}, log)
	require.NoError(t, seqUC.EnsureDefaultSeries(ctx))

	return &testEnv{
		db:       db,
		invoices: invoiceRepo,
		sequence: seqUC,
		invoice:  billing.NewInvoiceUseCase(runner, invoiceRepo, log),
		register: billing.NewRegisterInvoiceUseCase(runner, seqUC, readingRepo, invoiceRepo, tariff.NewEngine(tariff.PolicyCurrent), log),
		debt:     billing.NewDebtUseCase(runner, invoiceRepo, log),
		legacy:   billing.NewLegacyUseCase(runner, log),
	}
}

// registerFor registra una lectura del cliente y la factura en la serie por defecto.
func (e *testEnv) registerFor(t *testing.T, clientRef int64, consumption string) *dto.RegisterInvoiceResponse {
	t.Helper()
	resp, err := e.tryRegister(clientRef, consumption)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) tryRegister(clientRef int64, consumption string) (*dto.RegisterInvoiceResponse, error) {
	ctx := context.Background()
	reading, err := e.register.RecordReading(ctx, clientRef, decimal.RequireFromString(consumption))
	if err != nil {
		return nil, err
	}
	return e.register.Register(ctx, dto.RegisterInvoiceRequest{
		ReadingID:    reading.ID,
		BillingMonth: "enero",
		ServiceType:  "domiciliaria",
	})
}
