package sqlite

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con DB o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar DB o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Los montos se guardan como TEXT con dos decimales; decimal.Decimal los escanea de vuelta.
type invoiceRow struct {
	ID             int64           `db:"id"`
	Number         sql.NullString  `db:"invoice_number"`
	ClientRef      int64           `db:"client_ref"`
	ReadingRef     int64           `db:"reading_ref"`
	Consumption    decimal.Decimal `db:"consumption"`
	BasicAmount    decimal.Decimal `db:"basic_amount"`
	ExcessAmount   decimal.Decimal `db:"excess_amount"`
	AncillaryTotal decimal.Decimal `db:"ancillary_total"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	BillingMonth   string          `db:"billing_month"`
	Status         string          `db:"status"`
	ServiceType    string          `db:"service_type"`
	PaymentMethod  string          `db:"payment_method"`
	SeniorDiscount bool            `db:"senior_discount_applied"`
	IssuedAt       string          `db:"issued_at"`
}

const invoiceColumns = `id, invoice_number, client_ref, reading_ref, consumption,
       basic_amount, excess_amount, ancillary_total, total_amount,
       billing_month, status, service_type, payment_method,
       senior_discount_applied, issued_at`

func (row invoiceRow) toEntity() *entity.Invoice {
	inv := &entity.Invoice{
		ID:             row.ID,
		ClientRef:      row.ClientRef,
		ReadingRef:     row.ReadingRef,
		Consumption:    row.Consumption,
		BasicAmount:    row.BasicAmount,
		ExcessAmount:   row.ExcessAmount,
		AncillaryTotal: row.AncillaryTotal,
		TotalAmount:    row.TotalAmount,
		BillingMonth:   entity.Month(row.BillingMonth),
		Status:         entity.InvoiceStatus(row.Status),
		ServiceType:    entity.ServiceType(row.ServiceType),
		PaymentMethod:  entity.PaymentMethod(row.PaymentMethod),
		SeniorDiscount: row.SeniorDiscount,
		IssuedAt:       parseTime(row.IssuedAt),
	}
	if row.Number.Valid {
		n := row.Number.String
		inv.Number = &n
	}
	return inv
}

type feeRow struct {
	ID        int64           `db:"id"`
	InvoiceID int64           `db:"invoice_id"`
	Code      string          `db:"code"`
	Kind      string          `db:"kind"`
	Amount    decimal.Decimal `db:"amount"`
}

// Create persiste la cabecera y las líneas de cargo.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) (int64, error) {
	var number any
	if inv.Number != nil {
		number = *inv.Number
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO invoices (invoice_number, client_ref, reading_ref, consumption,
		                      basic_amount, excess_amount, ancillary_total, total_amount,
		                      billing_month, status, service_type, payment_method,
		                      senior_discount_applied, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		number, inv.ClientRef, inv.ReadingRef, inv.Consumption.String(),
		inv.BasicAmount.StringFixed(2), inv.ExcessAmount.StringFixed(2),
		inv.AncillaryTotal.StringFixed(2), inv.TotalAmount.StringFixed(2),
		string(inv.BillingMonth), string(inv.Status), string(inv.ServiceType), string(inv.PaymentMethod),
		inv.SeniorDiscount, formatTime(inv.IssuedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errors.Wrapf(domain.ErrDuplicateNumber, "factura %s", inv.DisplayNumber())
		}
		return 0, domain.StorageError(err, "insertar factura")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StorageError(err, "id de factura")
	}

	for i := range inv.Fees {
		fee := &inv.Fees[i]
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO invoice_fees (invoice_id, code, kind, amount) VALUES (?, ?, ?, ?)`,
			id, fee.Code, string(fee.Kind), fee.Amount.StringFixed(2),
		)
		if err != nil {
			return 0, domain.StorageError(err, "insertar cargo de factura")
		}
		fee.InvoiceID = id
		fee.ID, _ = res.LastInsertId()
	}
	return id, nil
}

// GetByID obtiene la factura con sus cargos.
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
}

// GetByNumber obtiene la factura con sus cargos.
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = ?`, number)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, arg any) (*entity.Invoice, error) {
	var row invoiceRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, arg); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.StorageError(err, "obtener factura")
	}
	inv := row.toEntity()

	var fees []feeRow
	if err := sqlx.SelectContext(ctx, r.q, &fees,
		`SELECT id, invoice_id, code, kind, amount FROM invoice_fees WHERE invoice_id = ? ORDER BY id`, inv.ID,
	); err != nil {
		return nil, domain.StorageError(err, "obtener cargos de factura")
	}
	inv.Fees = lo.Map(fees, func(f feeRow, _ int) entity.InvoiceFee {
		return entity.InvoiceFee{ID: f.ID, InvoiceID: f.InvoiceID, Code: f.Code, Kind: entity.FeeKind(f.Kind), Amount: f.Amount}
	})
	return inv, nil
}

// NumbersWithPrefix lista los números que empiezan con el prefijo. El prefijo solo
// contiene dígitos y guiones, sin comodines de LIKE.
func (r *InvoiceRepo) NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	if err := sqlx.SelectContext(ctx, r.q, &numbers,
		`SELECT invoice_number FROM invoices WHERE invoice_number LIKE ?`, prefix+"%",
	); err != nil {
		return nil, domain.StorageError(err, "listar números de la serie")
	}
	return numbers, nil
}

// Latest factura más reciente del cliente (mayor ID), sin cargos.
func (r *InvoiceRepo) Latest(ctx context.Context, clientRef int64) (*entity.Invoice, error) {
	var row invoiceRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+invoiceColumns+` FROM invoices WHERE client_ref = ? ORDER BY id DESC LIMIT 1`, clientRef)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.StorageError(err, "última factura del cliente")
	}
	return row.toEntity(), nil
}

// ListByClient facturas del cliente (más reciente primero), sin cargos.
func (r *InvoiceRepo) ListByClient(ctx context.Context, clientRef int64) ([]*entity.Invoice, error) {
	var rows []invoiceRow
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT `+invoiceColumns+` FROM invoices WHERE client_ref = ? ORDER BY id DESC`, clientRef,
	); err != nil {
		return nil, domain.StorageError(err, "listar facturas del cliente")
	}
	return lo.Map(rows, func(row invoiceRow, _ int) *entity.Invoice { return row.toEntity() }), nil
}

func (r *InvoiceRepo) CountByStatus(ctx context.Context, clientRef int64, status entity.InvoiceStatus) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, r.q, &n,
		`SELECT COUNT(*) FROM invoices WHERE client_ref = ? AND status = ?`, clientRef, string(status),
	); err != nil {
		return 0, domain.StorageError(err, "contar facturas")
	}
	return n, nil
}

// SumByStatus suma en Go: SUM de SQLite sobre TEXT operaría en punto flotante.
func (r *InvoiceRepo) SumByStatus(ctx context.Context, clientRef int64, status entity.InvoiceStatus) (int64, decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := sqlx.SelectContext(ctx, r.q, &totals,
		`SELECT total_amount FROM invoices WHERE client_ref = ? AND status = ?`, clientRef, string(status),
	); err != nil {
		return 0, decimal.Zero, domain.StorageError(err, "sumar facturas")
	}
	return int64(len(totals)), decimal.Sum(decimal.Zero, totals...), nil
}

func (r *InvoiceRepo) UpdateStatusForClient(ctx context.Context, clientRef int64, from, to entity.InvoiceStatus) (int64, error) {
	return r.exec(ctx, "actualizar estado de facturas",
		`UPDATE invoices SET status = ? WHERE client_ref = ? AND status = ?`, string(to), clientRef, string(from))
}

func (r *InvoiceRepo) SetStatus(ctx context.Context, id int64, status entity.InvoiceStatus) (int64, error) {
	return r.exec(ctx, "actualizar estado de factura", `UPDATE invoices SET status = ? WHERE id = ?`, string(status), id)
}

func (r *InvoiceRepo) ListWithoutNumber(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, r.q, &ids,
		`SELECT id FROM invoices WHERE invoice_number IS NULL ORDER BY id`,
	); err != nil {
		return nil, domain.StorageError(err, "listar facturas sin número")
	}
	return ids, nil
}

// SetNumber solo asigna número a facturas que aún no lo tienen.
func (r *InvoiceRepo) SetNumber(ctx context.Context, id int64, number string) (int64, error) {
	n, err := r.exec(ctx, "numerar factura",
		`UPDATE invoices SET invoice_number = ? WHERE id = ? AND invoice_number IS NULL`, number, id)
	if err != nil && isUniqueViolation(err) {
		return 0, errors.Wrapf(domain.ErrDuplicateNumber, "factura %s", number)
	}
	return n, err
}

// Delete elimina la factura; sus cargos se borran en cascada.
func (r *InvoiceRepo) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec(ctx, "eliminar factura", `DELETE FROM invoices WHERE id = ?`, id)
}

func (r *InvoiceRepo) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
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
