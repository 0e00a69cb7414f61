package billing

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

const (
	msgReconciled    = "Actualización exitosa: Se han actualizado %d facturas de un total de %d facturas en estado 'Deuda' a estado 'Pagado'."
	msgNotReconciled = "No se pueden actualizar las facturas: La última factura registrada no está en estado 'Pagado'."
	msgNoInvoices    = "No se pueden actualizar las facturas: el cliente no tiene facturas registradas."
)

// DebtUseCase conciliación de deudas y saldo pendiente por cliente.
// La conciliación solo corre a pedido del operador; marcar una factura como pagada no la dispara.
type DebtUseCase struct {
	txRunner    BillingTxRunner
	invoiceRepo repository.InvoiceRepository
	log         *logger.Logger
}

// NewDebtUseCase construye el caso de uso.
func NewDebtUseCase(txRunner BillingTxRunner, invoiceRepo repository.InvoiceRepository, log *logger.Logger) *DebtUseCase {
	return &DebtUseCase{txRunner: txRunner, invoiceRepo: invoiceRepo, log: log.Component("deudas")}
}

// Reconcile: si la factura más reciente del cliente está Pagado, pasa a Pagado todas
// sus facturas en Deuda. Lectura y actualización ocurren en la misma transacción.
func (uc *DebtUseCase) Reconcile(ctx context.Context, clientRef int64) (entity.ReconciliationResult, error) {
	result := entity.ReconciliationResult{ClientRef: clientRef}

	err := uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.SequenceRepository) error {
		latest, err := invoiceRepo.Latest(ctx, clientRef)
		if err != nil {
			return err
		}
		switch {
		case latest == nil:
			result.Message = msgNoInvoices
			return nil
		case latest.Status != entity.InvoiceStatusPaid:
			result.Message = msgNotReconciled
			return nil
		}

		prior, err := invoiceRepo.CountByStatus(ctx, clientRef, entity.InvoiceStatusDebt)
		if err != nil {
			return err
		}
		updated, err := invoiceRepo.UpdateStatusForClient(ctx, clientRef, entity.InvoiceStatusDebt, entity.InvoiceStatusPaid)
		if err != nil {
			return err
		}
		result.PriorDebtCount = prior
		result.UpdatedCount = updated
		result.Message = fmt.Sprintf(msgReconciled, updated, prior)
		return nil
	})
	if err != nil {
		uc.log.Warn().Err(err).Int64("cliente", clientRef).Msg("conciliación revertida")
		return entity.ReconciliationResult{}, err
	}

	uc.log.Info().
		Int64("cliente", clientRef).
		Int64("actualizadas", result.UpdatedCount).
		Int64("deudas_previas", result.PriorDebtCount).
		Msg("conciliación de deudas")
	return result, nil
}

// MarkPaid registra el pago de una factura. No concilia las deudas anteriores.
func (uc *DebtUseCase) MarkPaid(ctx context.Context, invoiceID int64) error {
	affected, err := uc.invoiceRepo.SetStatus(ctx, invoiceID, entity.InvoiceStatusPaid)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Wrapf(domain.ErrNotFound, "factura %d", invoiceID)
	}
	uc.log.Info().Int64("id", invoiceID).Msg("factura marcada como pagada")
	return nil
}

// OutstandingBalance suma total_amount de las facturas del cliente en Deuda.
func (uc *DebtUseCase) OutstandingBalance(ctx context.Context, clientRef int64) (decimal.Decimal, error) {
	summary, err := uc.DebtSummary(ctx, clientRef)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.Balance, nil
}

// DebtSummary cantidad de facturas en Deuda y su saldo.
func (uc *DebtUseCase) DebtSummary(ctx context.Context, clientRef int64) (entity.DebtSummary, error) {
	count, balance, err := uc.invoiceRepo.SumByStatus(ctx, clientRef, entity.InvoiceStatusDebt)
	if err != nil {
		return entity.DebtSummary{}, err
	}
	return entity.DebtSummary{ClientRef: clientRef, InvoiceCount: count, Balance: balance.Round(2)}, nil
}
