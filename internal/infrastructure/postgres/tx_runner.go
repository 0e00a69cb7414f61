package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-agua/internal/application/billing"
	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// Ensure TxRunner implements billing.BillingTxRunner.
var _ billing.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, log *logger.Logger) *TxRunner {
	return &TxRunner{pool: pool, log: log.Component("tx")}
}

// RunBilling inicia una transacción con repos de facturas y series, ejecuta fn y hace Commit o Rollback.
// La exclusión entre asignaciones de una misma serie la da SequenceRepo.LockSeries (FOR UPDATE).
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	sequenceRepo repository.SequenceRepository,
) error) error {
	txID := uuid.NewString()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.StorageError(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()
	r.log.Trace().Str("tx_id", txID).Msg("transacción iniciada")

	if err := fn(NewInvoiceRepository(tx), NewSequenceRepository(tx)); err != nil {
		r.log.Debug().Str("tx_id", txID).Err(err).Msg("rollback")
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.StorageError(err, "commit transaction")
	}
	r.log.Trace().Str("tx_id", txID).Msg("commit")
	return nil
}
