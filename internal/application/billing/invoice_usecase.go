package billing

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/numbering"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// InvoiceUseCase persiste facturas con un número ya asignado y las consulta.
type InvoiceUseCase struct {
	txRunner    BillingTxRunner
	invoiceRepo repository.InvoiceRepository
	log         *logger.Logger
	now         func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(txRunner BillingTxRunner, invoiceRepo repository.InvoiceRepository, log *logger.Logger) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		log:         log.Component("facturas"),
		now:         time.Now,
	}
}

// CreateInvoice inserta una factura con un número obtenido previamente de AllocateNext.
// Exige total == básico + excedente + adicionales y un número con formato válido.
// Tras el commit relee la factura por número y compara el ID.
func (uc *InvoiceUseCase) CreateInvoice(
	ctx context.Context,
	breakdown entity.AmountBreakdown,
	number string,
	clientRef, readingRef int64,
	month entity.Month,
	status entity.InvoiceStatus,
) (*entity.Invoice, error) {
	inv, err := newInvoice(breakdown, number, clientRef, readingRef, month, status, uc.now())
	if err != nil {
		return nil, err
	}

	err = uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.SequenceRepository) error {
		id, err := invoiceRepo.Create(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("numero", number).Msg("no se pudo crear la factura")
		return nil, err
	}

	if err := verifyInvoice(ctx, uc.invoiceRepo, number, inv.ID); err != nil {
		uc.log.Error().Err(err).Str("numero", number).Int64("id", inv.ID).Msg("factura no confirmada tras el commit")
		return nil, err
	}
	uc.log.Info().Str("numero", number).Int64("id", inv.ID).Int64("cliente", clientRef).Msg("factura creada")
	return inv, nil
}

// GetInvoice devuelve la factura con sus cargos o domain.ErrNotFound.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, id int64) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "factura %d", id)
	}
	return inv, nil
}

// ListByClient facturas del cliente, de la más reciente a la más antigua.
func (uc *InvoiceUseCase) ListByClient(ctx context.Context, clientRef int64) ([]*entity.Invoice, error) {
	return uc.invoiceRepo.ListByClient(ctx, clientRef)
}

// DeleteInvoice elimina una factura. Su número queda libre y la próxima
// asignación de la serie lo reutiliza.
func (uc *InvoiceUseCase) DeleteInvoice(ctx context.Context, id int64) error {
	affected, err := uc.invoiceRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Wrapf(domain.ErrNotFound, "factura %d", id)
	}
	uc.log.Info().Int64("id", id).Msg("factura eliminada")
	return nil
}

func newInvoice(
	b entity.AmountBreakdown,
	number string,
	clientRef, readingRef int64,
	month entity.Month,
	status entity.InvoiceStatus,
	issuedAt time.Time,
) (*entity.Invoice, error) {
	if !b.Consistent() {
		return nil, domain.InvalidInput("total %s distinto de básico %s + excedente %s + adicionales %s",
			b.TotalAmount, b.BasicAmount, b.ExcessAmount, b.AncillaryTotal)
	}
	if !numbering.Valid(number) {
		return nil, domain.InvalidInput("número de factura con formato inválido %q", number)
	}
	if clientRef <= 0 || readingRef <= 0 {
		return nil, domain.InvalidInput("cliente %d o lectura %d inválidos", clientRef, readingRef)
	}
	if _, ok := entity.ParseMonth(string(month)); !ok {
		return nil, domain.InvalidInput("mes de facturación desconocido %q", month)
	}
	if _, ok := entity.ParseInvoiceStatus(string(status)); !ok || status == "" {
		return nil, domain.InvalidInput("estado desconocido %q", status)
	}

	inv := &entity.Invoice{
		Number:        &number,
		ClientRef:     clientRef,
		ReadingRef:    readingRef,
		BillingMonth:  month,
		Status:        status,
		PaymentMethod: entity.PaymentCash,
		IssuedAt:      issuedAt,
	}
	inv.ApplyBreakdown(b)
	return inv, nil
}

// verifyInvoice relee la factura confirmada por número y exige que sea la recién insertada.
func verifyInvoice(ctx context.Context, repo repository.InvoiceRepository, number string, id int64) error {
	stored, err := repo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	if stored == nil || stored.ID != id {
		return errors.Wrapf(domain.ErrCommitVerificationFailed, "factura %s", number)
	}
	return nil
}
