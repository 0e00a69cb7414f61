package billing

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-agua/internal/application/dto"
	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/numbering"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/internal/domain/tariff"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// RegisterInvoiceUseCase factura una lectura: calcula montos, reserva el número e
// inserta la factura en una sola transacción.
type RegisterInvoiceUseCase struct {
	txRunner    BillingTxRunner
	sequenceUC  *SequenceUseCase
	readingRepo repository.ReadingRepository
	invoiceRepo repository.InvoiceRepository
	engine      *tariff.Engine
	log         *logger.Logger
	now         func() time.Time
}

// NewRegisterInvoiceUseCase construye el caso de uso.
func NewRegisterInvoiceUseCase(
	txRunner BillingTxRunner,
	sequenceUC *SequenceUseCase,
	readingRepo repository.ReadingRepository,
	invoiceRepo repository.InvoiceRepository,
	engine *tariff.Engine,
	log *logger.Logger,
) *RegisterInvoiceUseCase {
	return &RegisterInvoiceUseCase{
		txRunner:    txRunner,
		sequenceUC:  sequenceUC,
		readingRepo: readingRepo,
		invoiceRepo: invoiceRepo,
		engine:      engine,
		log:         log.Component("registro"),
		now:         time.Now,
	}
}

// Register emite la factura de una lectura.
// Si cualquier paso falla se revierte todo: la serie no avanza y no queda fila de factura.
func (uc *RegisterInvoiceUseCase) Register(ctx context.Context, in dto.RegisterInvoiceRequest) (*dto.RegisterInvoiceResponse, error) {
	month, ok := entity.ParseMonth(in.BillingMonth)
	if !ok {
		return nil, domain.InvalidInput("mes de facturación desconocido %q", in.BillingMonth)
	}
	status, ok := entity.ParseInvoiceStatus(in.Status)
	if !ok {
		return nil, domain.InvalidInput("estado desconocido %q", in.Status)
	}
	payment, ok := entity.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return nil, domain.InvalidInput("forma de pago desconocida %q", in.PaymentMethod)
	}
	establishment, issuePoint := uc.sequenceUC.Defaults().resolve(in.Establishment, in.IssuePoint)
	if err := numbering.ValidSeries(establishment, issuePoint); err != nil {
		return nil, err
	}

	// Lectura (solo lectura, fuera de la tx)
	reading, err := uc.readingRepo.GetByID(ctx, in.ReadingID)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "lectura %d", in.ReadingID)
	}

	breakdown, err := uc.engine.Compute(tariff.Input{
		Consumption:    reading.Consumption,
		ServiceType:    entity.ServiceType(strings.ToUpper(strings.TrimSpace(in.ServiceType))),
		SeniorDiscount: in.SeniorDiscount,
		Ancillary:      in.Ancillary,
		Discretionary:  in.Discretionary,
		Materials:      in.Materials,
	})
	if err != nil {
		return nil, err
	}

	priorDebts, priorBalance, err := uc.invoiceRepo.SumByStatus(ctx, reading.ClientRef, entity.InvoiceStatusDebt)
	if err != nil {
		return nil, err
	}

	var inv *entity.Invoice
	err = uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository, sequenceRepo repository.SequenceRepository) error {
		// 1) Reservar el primer número libre de la serie (bloqueada hasta el commit)
		sequential, err := uc.sequenceUC.AllocateInTx(ctx, invoiceRepo, sequenceRepo, establishment, issuePoint)
		if err != nil {
			return err
		}
		number := numbering.Format(establishment, issuePoint, sequential)

		// 2) Entidad factura con la instantánea de montos
		inv, err = newInvoice(breakdown, number, reading.ClientRef, reading.ID, month, status, uc.now())
		if err != nil {
			return err
		}
		inv.PaymentMethod = payment

		// 3) Cabecera y líneas de cargo
		id, err := invoiceRepo.Create(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		uc.log.Warn().Err(err).Int64("lectura", in.ReadingID).Msg("registro de factura revertido")
		return nil, err
	}

	// 4) Verificación posterior al commit
	if err := verifyInvoice(ctx, uc.invoiceRepo, *inv.Number, inv.ID); err != nil {
		uc.log.Error().Err(err).Str("numero", *inv.Number).Msg("factura no confirmada tras el commit")
		return nil, err
	}

	uc.log.Info().
		Str("numero", *inv.Number).
		Int64("cliente", inv.ClientRef).
		Str("total", inv.TotalAmount.StringFixed(2)).
		Str("politica", breakdown.Policy).
		Msg("factura registrada")

	return &dto.RegisterInvoiceResponse{
		Invoice:      dto.InvoiceFromEntity(inv),
		PriorBalance: priorBalance.Round(2),
		PriorDebts:   priorDebts,
	}, nil
}

// Quote calcula los montos de una lectura sin registrar nada.
func (uc *RegisterInvoiceUseCase) Quote(ctx context.Context, readingID int64, in tariff.Input) (entity.AmountBreakdown, error) {
	reading, err := uc.readingRepo.GetByID(ctx, readingID)
	if err != nil {
		return entity.AmountBreakdown{}, err
	}
	if reading == nil {
		return entity.AmountBreakdown{}, errors.Wrapf(domain.ErrNotFound, "lectura %d", readingID)
	}
	in.Consumption = reading.Consumption
	return uc.engine.Compute(in)
}

// RecordReading registra una lectura de medidor (alta mínima para el flujo de facturación).
func (uc *RegisterInvoiceUseCase) RecordReading(ctx context.Context, clientRef int64, consumption decimal.Decimal) (*entity.Reading, error) {
	if clientRef <= 0 {
		return nil, domain.InvalidInput("cliente inválido %d", clientRef)
	}
	if consumption.IsNegative() {
		return nil, domain.InvalidInput("consumo negativo: %s", consumption)
	}
	r := &entity.Reading{ClientRef: clientRef, Consumption: consumption, ReadAt: uc.now()}
	id, err := uc.readingRepo.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	r.ID = id
	uc.log.Debug().Int64("lectura", id).Int64("cliente", clientRef).Msg("lectura registrada")
	return r, nil
}
