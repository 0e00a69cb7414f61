package billing

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/numbering"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// LegacyUseCase numeración de facturas anteriores a las series.
type LegacyUseCase struct {
	txRunner BillingTxRunner
	log      *logger.Logger
}

// NewLegacyUseCase construye el caso de uso.
func NewLegacyUseCase(txRunner BillingTxRunner, log *logger.Logger) *LegacyUseCase {
	return &LegacyUseCase{txRunner: txRunner, log: log.Component("legado")}
}

// BackfillLegacyNumbers persiste 001-001-{id:09d} en las facturas sin número.
// Todo o nada: una sola transacción. Devuelve la cantidad de facturas numeradas.
func (uc *LegacyUseCase) BackfillLegacyNumbers(ctx context.Context) (int, error) {
	var count int
	err := uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.SequenceRepository) error {
		ids, err := invoiceRepo.ListWithoutNumber(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			affected, err := invoiceRepo.SetNumber(ctx, id, numbering.Legacy(id))
			if err != nil {
				return err
			}
			if affected == 0 {
				return errors.Wrapf(domain.ErrNotFound, "factura %d", id)
			}
		}
		count = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	uc.log.Info().Int("numeradas", count).Msg("numeración de facturas antiguas")
	return count, nil
}
