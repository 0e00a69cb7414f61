package sqlite

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo implementación de SequenceRepository (usable con DB o tx).
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

type sequenceRow struct {
	ID            int64  `db:"id"`
	Establishment string `db:"establishment"`
	IssuePoint    string `db:"issue_point"`
	LastAllocated int64  `db:"last_allocated"`
	Active        bool   `db:"active"`
	CreatedAt     string `db:"created_at"`
}

func (row sequenceRow) toEntity() *entity.Sequence {
	return &entity.Sequence{
		ID:            row.ID,
		Establishment: row.Establishment,
		IssuePoint:    row.IssuePoint,
		LastAllocated: row.LastAllocated,
		Active:        row.Active,
		CreatedAt:     parseTime(row.CreatedAt),
	}
}

const sequenceColumns = `id, establishment, issue_point, last_allocated, active, created_at`

func (r *SequenceRepo) Create(ctx context.Context, seq *entity.Sequence) error {
	if seq.CreatedAt.IsZero() {
		seq.CreatedAt = time.Now()
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO sequences (establishment, issue_point, last_allocated, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		seq.Establishment, seq.IssuePoint, seq.LastAllocated, seq.Active, formatTime(seq.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(domain.ErrDuplicateSeries, "serie %s-%s", seq.Establishment, seq.IssuePoint)
		}
		return domain.StorageError(err, "crear serie")
	}
	seq.ID, _ = res.LastInsertId()
	return nil
}

func (r *SequenceRepo) Get(ctx context.Context, establishment, issuePoint string) (*entity.Sequence, error) {
	var row sequenceRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+sequenceColumns+` FROM sequences WHERE establishment = ? AND issue_point = ?`,
		establishment, issuePoint)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.StorageError(err, "obtener serie")
	}
	return row.toEntity(), nil
}

func (r *SequenceRepo) List(ctx context.Context) ([]*entity.Sequence, error) {
	var rows []sequenceRow
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT `+sequenceColumns+` FROM sequences ORDER BY establishment, issue_point`,
	); err != nil {
		return nil, domain.StorageError(err, "listar series")
	}
	return lo.Map(rows, func(row sequenceRow, _ int) *entity.Sequence { return row.toEntity() }), nil
}

func (r *SequenceRepo) SetLastAllocated(ctx context.Context, establishment, issuePoint string, value int64) (int64, error) {
	return r.exec(ctx, "actualizar secuencial",
		`UPDATE sequences SET last_allocated = ? WHERE establishment = ? AND issue_point = ? AND active = 1`,
		value, establishment, issuePoint)
}

func (r *SequenceRepo) Deactivate(ctx context.Context, establishment, issuePoint string) (int64, error) {
	return r.exec(ctx, "desactivar serie",
		`UPDATE sequences SET active = 0 WHERE establishment = ? AND issue_point = ?`,
		establishment, issuePoint)
}

// LockSeries no hace nada: la transacción ya tiene el bloqueo de escritura (BEGIN IMMEDIATE).
func (r *SequenceRepo) LockSeries(context.Context, string, string) error {
	return nil
}

func (r *SequenceRepo) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, domain.StorageError(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.StorageError(err, op)
	}
	return n, nil
}
