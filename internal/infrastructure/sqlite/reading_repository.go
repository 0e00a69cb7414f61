package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

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

type readingRow struct {
	ID          int64           `db:"id"`
	ClientRef   int64           `db:"client_ref"`
	Consumption decimal.Decimal `db:"consumption"`
	ReadAt      string          `db:"read_at"`
}

func (r *ReadingRepo) Create(ctx context.Context, reading *entity.Reading) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO readings (client_ref, consumption, read_at) VALUES (?, ?, ?)`,
		reading.ClientRef, reading.Consumption.String(), formatTime(reading.ReadAt),
	)
	if err != nil {
		return 0, domain.StorageError(err, "insertar lectura")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StorageError(err, "id de lectura")
	}
	return id, nil
}

func (r *ReadingRepo) GetByID(ctx context.Context, id int64) (*entity.Reading, error) {
	var row readingRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT id, client_ref, consumption, read_at FROM readings WHERE id = ?`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.StorageError(err, "obtener lectura")
	}
	return &entity.Reading{
		ID:          row.ID,
		ClientRef:   row.ClientRef,
		Consumption: row.Consumption,
		ReadAt:      parseTime(row.ReadAt),
	}, nil
}
