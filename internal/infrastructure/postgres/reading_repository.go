package postgres

import (
	"context"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
)

var _ repository.ReadingRepository = (*ReadingRepo)(nil)

// ReadingRepo lecturas de medidor.
type ReadingRepo struct {
	q Querier
}

// NewReadingRepository construye el adaptador.
func NewReadingRepository(q Querier) *ReadingRepo {
	return &ReadingRepo{q: q}
}

func (r *ReadingRepo) Create(ctx context.Context, reading *entity.Reading) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`INSERT INTO readings (client_ref, consumption, read_at) VALUES ($1, $2, $3) RETURNING id`,
		reading.ClientRef, reading.Consumption, reading.ReadAt,
	).Scan(&id)
	if err != nil {
		return 0, domain.StorageError(err, "insert reading")
	}
	return id, nil
}

func (r *ReadingRepo) GetByID(ctx context.Context, id int64) (*entity.Reading, error) {
	var reading entity.Reading
	err := r.q.QueryRow(ctx,
		`SELECT id, client_ref, consumption, read_at FROM readings WHERE id = $1`, id,
	).Scan(&reading.ID, &reading.ClientRef, &reading.Consumption, &reading.ReadAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.StorageError(err, "get reading")
	}
	return &reading, nil
}
