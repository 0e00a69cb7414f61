package billing

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/numbering"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// SequenceUseCase asigna números de factura y administra las series.
//
// La asignación no confía en el contador de la serie: en cada llamada recorre los
// números ya emitidos y toma el primer hueco, de modo que el número de una factura
// eliminada vuelve a usarse. El recorrido es O(n) por asignación.
type SequenceUseCase struct {
	txRunner     BillingTxRunner
	sequenceRepo repository.SequenceRepository
	invoiceRepo  repository.InvoiceRepository
	defaults     SeriesConfig
	log          *logger.Logger
}

// NewSequenceUseCase construye el caso de uso. Los repositorios deben operar fuera de
// transacción (pool); se usan para consultas y para verificar después del commit.
func NewSequenceUseCase(
	txRunner BillingTxRunner,
	sequenceRepo repository.SequenceRepository,
	invoiceRepo repository.InvoiceRepository,
	defaults SeriesConfig,
	log *logger.Logger,
) *SequenceUseCase {
	return &SequenceUseCase{
		txRunner:     txRunner,
		sequenceRepo: sequenceRepo,
		invoiceRepo:  invoiceRepo,
		defaults:     defaults,
		log:          log.Component("secuencias"),
	}
}

// Defaults devuelve la serie configurada por defecto.
func (uc *SequenceUseCase) Defaults() SeriesConfig { return uc.defaults }

// AllocateNext reserva el siguiente número disponible de la serie en su propia transacción.
// Tras el commit relee la serie y exige que last_allocated sea el valor escrito.
func (uc *SequenceUseCase) AllocateNext(ctx context.Context, establishment, issuePoint string) (string, error) {
	establishment, issuePoint = uc.defaults.resolve(establishment, issuePoint)
	if err := numbering.ValidSeries(establishment, issuePoint); err != nil {
		return "", err
	}

	var sequential int64
	err := uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository, sequenceRepo repository.SequenceRepository) error {
		var err error
		sequential, err = uc.AllocateInTx(ctx, invoiceRepo, sequenceRepo, establishment, issuePoint)
		return err
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("serie", numbering.Prefix(establishment, issuePoint)).Msg("asignación de número fallida")
		return "", err
	}

	if err := uc.verifyLastAllocated(ctx, establishment, issuePoint, sequential); err != nil {
		return "", err
	}

	number := numbering.Format(establishment, issuePoint, sequential)
	uc.log.Info().Str("numero", number).Msg("número de factura asignado")
	return number, nil
}

// AllocateInTx ejecuta la búsqueda del primer hueco y la actualización de la serie con
// repositorios atados a la transacción del llamador. No hace commit: la inserción de la
// factura con ese número debe ocurrir en la misma transacción.
func (uc *SequenceUseCase) AllocateInTx(
	ctx context.Context,
	invoiceRepo repository.InvoiceRepository,
	sequenceRepo repository.SequenceRepository,
	establishment, issuePoint string,
) (int64, error) {
	if err := sequenceRepo.LockSeries(ctx, establishment, issuePoint); err != nil {
		return 0, err
	}
	numbers, err := invoiceRepo.NumbersWithPrefix(ctx, numbering.Prefix(establishment, issuePoint))
	if err != nil {
		return 0, err
	}
	next := numbering.FirstAvailable(numbering.UsedSequentials(numbers))

	affected, err := sequenceRepo.SetLastAllocated(ctx, establishment, issuePoint, next)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, errors.Wrapf(domain.ErrNoActiveSequence, "serie %s-%s", establishment, issuePoint)
	}
	return next, nil
}

func (uc *SequenceUseCase) verifyLastAllocated(ctx context.Context, establishment, issuePoint string, want int64) error {
	seq, err := uc.sequenceRepo.Get(ctx, establishment, issuePoint)
	if err != nil {
		return err
	}
	if seq == nil || seq.LastAllocated != want {
		got := int64(-1)
		if seq != nil {
			got = seq.LastAllocated
		}
		uc.log.Error().
			Str("serie", numbering.Prefix(establishment, issuePoint)).
			Int64("esperado", want).
			Int64("leido", got).
			Msg("secuencial no confirmado tras el commit")
		return errors.Wrapf(domain.ErrCommitVerificationFailed, "secuencial %d de la serie %s-%s", want, establishment, issuePoint)
	}
	return nil
}

// Available devuelve el secuencial que recibiría la próxima asignación, sin reservarlo.
func (uc *SequenceUseCase) Available(ctx context.Context, establishment, issuePoint string) (int64, error) {
	establishment, issuePoint = uc.defaults.resolve(establishment, issuePoint)
	if err := numbering.ValidSeries(establishment, issuePoint); err != nil {
		return 0, err
	}
	numbers, err := uc.invoiceRepo.NumbersWithPrefix(ctx, numbering.Prefix(establishment, issuePoint))
	if err != nil {
		return 0, err
	}
	return numbering.FirstAvailable(numbering.UsedSequentials(numbers)), nil
}

// CurrentSequential devuelve last_allocated sin modificarlo; nil si la serie no existe.
func (uc *SequenceUseCase) CurrentSequential(ctx context.Context, establishment, issuePoint string) (*int64, error) {
	establishment, issuePoint = uc.defaults.resolve(establishment, issuePoint)
	seq, err := uc.sequenceRepo.Get(ctx, establishment, issuePoint)
	if err != nil || seq == nil {
		return nil, err
	}
	v := seq.LastAllocated
	return &v, nil
}

// CreateSeries crea una serie activa. Si ya existe devuelve domain.ErrDuplicateSeries
// y la serie existente queda intacta.
func (uc *SequenceUseCase) CreateSeries(ctx context.Context, establishment, issuePoint string, initial int64) error {
	if err := numbering.ValidSeries(establishment, issuePoint); err != nil {
		return err
	}
	if initial < 0 {
		return domain.InvalidInput("secuencial inicial negativo: %d", initial)
	}
	err := uc.sequenceRepo.Create(ctx, &entity.Sequence{
		Establishment: establishment,
		IssuePoint:    issuePoint,
		LastAllocated: initial,
		Active:        true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSeries) {
			uc.log.Info().Str("serie", numbering.Prefix(establishment, issuePoint)).Msg("la serie ya existe")
		}
		return err
	}
	uc.log.Info().Str("serie", numbering.Prefix(establishment, issuePoint)).Int64("inicial", initial).Msg("serie creada")
	return nil
}

// EnsureDefaultSeries crea la serie por defecto si todavía no existe.
func (uc *SequenceUseCase) EnsureDefaultSeries(ctx context.Context) error {
	err := uc.CreateSeries(ctx, uc.defaults.Establishment, uc.defaults.IssuePoint, 0)
	if errors.Is(err, domain.ErrDuplicateSeries) {
		return nil
	}
	return err
}

// DeactivateSeries desactiva una serie; una serie inactiva no asigna números.
func (uc *SequenceUseCase) DeactivateSeries(ctx context.Context, establishment, issuePoint string) error {
	affected, err := uc.sequenceRepo.Deactivate(ctx, establishment, issuePoint)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Wrapf(domain.ErrNotFound, "serie %s-%s", establishment, issuePoint)
	}
	uc.log.Info().Str("serie", numbering.Prefix(establishment, issuePoint)).Msg("serie desactivada")
	return nil
}

// ListSeries lista todas las series, activas e inactivas.
func (uc *SequenceUseCase) ListSeries(ctx context.Context) ([]*entity.Sequence, error) {
	return uc.sequenceRepo.List(ctx)
}
