package main

import (
	"context"

	"github.com/jhoicas/facturacion-agua/internal/application/billing"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/internal/domain/tariff"
	"github.com/jhoicas/facturacion-agua/internal/infrastructure/postgres"
	"github.com/jhoicas/facturacion-agua/internal/infrastructure/sqlite"
	"github.com/jhoicas/facturacion-agua/pkg/config"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// services casos de uso cableados sobre el almacenamiento configurado.
type services struct {
	engine   *tariff.Engine
	sequence *billing.SequenceUseCase
	invoice  *billing.InvoiceUseCase
	register *billing.RegisterInvoiceUseCase
	debt     *billing.DebtUseCase
	legacy   *billing.LegacyUseCase
	applied  int // migraciones aplicadas al abrir
	close    func()
}

type store struct {
	runner   billing.BillingTxRunner
	invoices repository.InvoiceRepository
	series   repository.SequenceRepository
	readings repository.ReadingRepository
	migrate  func(context.Context) (int, error)
	close    func()
}

func openStore(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*store, error) {
	if cfg.Driver == config.DriverPostgres {
		pool, err := postgres.NewPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return &store{
			runner:   postgres.NewTxRunner(pool, log),
			invoices: postgres.NewInvoiceRepository(pool),
			series:   postgres.NewSequenceRepository(pool),
			readings: postgres.NewReadingRepository(pool),
			migrate:  func(ctx context.Context) (int, error) { return postgres.Migrate(ctx, pool, log) },
			close:    pool.Close,
		}, nil
	}

	db, err := sqlite.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &store{
		runner:   sqlite.NewTxRunner(db, log),
		invoices: sqlite.NewInvoiceRepository(db),
		series:   sqlite.NewSequenceRepository(db),
		readings: sqlite.NewReadingRepository(db),
		migrate:  db.Migrate,
		close:    func() { _ = db.Close() },
	}, nil
}

// openServices abre el almacenamiento, aplica migraciones pendientes y crea la serie por defecto.
func openServices(ctx context.Context, cfg *config.Config, log *logger.Logger) (*services, error) {
	policy, err := tariff.PolicyByName(cfg.Billing.TariffPolicy)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}
	applied, err := st.migrate(ctx)
	if err != nil {
		st.close()
		return nil, err
	}

	engine := tariff.NewEngine(policy)
	seqUC := billing.NewSequenceUseCase(st.runner, st.series, st.invoices,
		billing.SeriesConfig{Establishment: cfg.Billing.Establishment, IssuePoint: cfg.Billing.IssuePoint}, log)
	if err := seqUC.EnsureDefaultSeries(ctx); err != nil {
		st.close()
		return nil, err
	}

	return &services{
		engine:   engine,
		sequence: seqUC,
		invoice:  billing.NewInvoiceUseCase(st.runner, st.invoices, log),
		register: billing.NewRegisterInvoiceUseCase(st.runner, seqUC, st.readings, st.invoices, engine, log),
		debt:     billing.NewDebtUseCase(st.runner, st.invoices, log),
		legacy:   billing.NewLegacyUseCase(st.runner, log),
		applied:  applied,
		close:    st.close,
	}, nil
}
