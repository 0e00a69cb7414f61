package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo implementación de SequenceRepository (usable con pool o tx).
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

const sequenceColumns = `id, establishment, issue_point, last_allocated, active, created_at`

func scanSequence(row pgx.Row) (*entity.Sequence, error) {
	var s entity.Sequence
	if err := row.Scan(&s.ID, &s.Establishment, &s.IssuePoint, &s.LastAllocated, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SequenceRepo) Create(ctx context.Context, seq *entity.Sequence) error {
	if seq.CreatedAt.IsZero() {
		seq.CreatedAt = time.Now()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO sequences (establishment, issue_point, last_allocated, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		seq.Establishment, seq.IssuePoint, seq.LastAllocated, seq.Active, seq.CreatedAt,
	).Scan(&seq.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(domain.ErrDuplicateSeries, "serie %s-%s", seq.Establishment, seq.IssuePoint)
		}
		return domain.StorageError(err, "insert sequence")
	}
	return nil
}

func (r *SequenceRepo) Get(ctx context.Context, establishment, issuePoint string) (*entity.Sequence, error) {
	s, err := scanSequence(r.q.QueryRow(ctx,
		`SELECT `+sequenceColumns+` FROM sequences WHERE establishment = $1 AND issue_point = $2`,
		establishment, issuePoint))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.StorageError(err, "get sequence")
	}
	return s, nil
}

func (r *SequenceRepo) List(ctx context.Context) ([]*entity.Sequence, error) {
	rows, err := r.q.Query(ctx, `SELECT `+sequenceColumns+` FROM sequences ORDER BY establishment, issue_point`)
	if err != nil {
		return nil, domain.StorageError(err, "list sequences")
	}
	defer rows.Close()

	var list []*entity.Sequence
	for rows.Next() {
		s, err := scanSequence(rows)
		if err != nil {
			return nil, domain.StorageError(err, "scan sequence")
		}
		list = append(list, s)
	}
	return list, domain.StorageError(rows.Err(), "iterate sequences")
}

func (r *SequenceRepo) SetLastAllocated(ctx context.Context, establishment, issuePoint string, value int64) (int64, error) {
	return exec(ctx, r.q, "update last allocated",
		`UPDATE sequences SET last_allocated = $1 WHERE establishment = $2 AND issue_point = $3 AND active`,
		value, establishment, issuePoint)
}

func (r *SequenceRepo) Deactivate(ctx context.Context, establishment, issuePoint string) (int64, error) {
	return exec(ctx, r.q, "deactivate sequence",
		`UPDATE sequences SET active = FALSE WHERE establishment = $1 AND issue_point = $2`,
		establishment, issuePoint)
}

// LockSeries toma la fila de la serie con FOR UPDATE hasta el fin de la transacción.
// Si la serie no existe no bloquea nada; SetLastAllocated devolverá 0 filas.
func (r *SequenceRepo) LockSeries(ctx context.Context, establishment, issuePoint string) error {
	var id int64
	err := r.q.QueryRow(ctx,
		`SELECT id FROM sequences WHERE establishment = $1 AND issue_point = $2 FOR UPDATE`,
		establishment, issuePoint).Scan(&id)
	if err != nil && !isNoRows(err) {
		return domain.StorageError(err, "lock sequence")
	}
	return nil
}
