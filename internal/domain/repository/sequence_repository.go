package repository

import (
	"context"

	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
)

// SequenceRepository define el puerto de persistencia para series de numeración.
type SequenceRepository interface {
	// Create inserta la serie; si ya existe devuelve domain.ErrDuplicateSeries.
	Create(ctx context.Context, seq *entity.Sequence) error
	// Get devuelve nil, nil si la serie no existe.
	Get(ctx context.Context, establishment, issuePoint string) (*entity.Sequence, error)
	List(ctx context.Context) ([]*entity.Sequence, error)
	// SetLastAllocated actualiza solo series activas; devuelve filas afectadas.
	SetLastAllocated(ctx context.Context, establishment, issuePoint string, value int64) (int64, error)
	Deactivate(ctx context.Context, establishment, issuePoint string) (int64, error)

	// LockSeries bloquea la serie hasta el fin de la transacción en curso, de modo que
	// la búsqueda del primer hueco y la inserción de la factura no se intercalen con
	// otra asignación. Fuera de una transacción no tiene efecto útil.
	LockSeries(ctx context.Context, establishment, issuePoint string) error
}
