package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-agua/internal/application/billing"
	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

var _ billing.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción SQLite (BEGIN IMMEDIATE).
type TxRunner struct {
	db  *DB
	log *logger.Logger
}

// NewTxRunner construye el runner.
func NewTxRunner(db *DB, log *logger.Logger) *TxRunner {
	return &TxRunner{db: db, log: log.Component("tx")}
}

// RunBilling inicia la transacción, ejecuta fn con repos atados a ella y hace Commit o Rollback.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	sequenceRepo repository.SequenceRepository,
) error) error {
	txID := uuid.NewString()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.StorageError(err, "iniciar transacción")
	}
	defer func() { _ = tx.Rollback() }()
	r.log.Trace().Str("tx_id", txID).Msg("transacción iniciada")

	if err := fn(NewInvoiceRepository(tx), NewSequenceRepository(tx)); err != nil {
		r.log.Debug().Str("tx_id", txID).Err(err).Msg("rollback")
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.StorageError(err, "confirmar transacción")
	}
	r.log.Trace().Str("tx_id", txID).Msg("commit")
	return nil
}
