package repository

import (
	"context"

	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
)

// ReadingRepository acceso a lecturas de medidor (solo lectura para la facturación).
type ReadingRepository interface {
	Create(ctx context.Context, r *entity.Reading) (int64, error)
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Reading, error)
}
