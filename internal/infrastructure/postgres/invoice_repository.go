package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, invoice_number, client_ref, reading_ref, consumption,
       basic_amount, excess_amount, ancillary_total, total_amount,
       billing_month, status, service_type, payment_method,
       senior_discount_applied, issued_at`

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var month, status, service, payment string
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.ClientRef, &inv.ReadingRef, &inv.Consumption,
		&inv.BasicAmount, &inv.ExcessAmount, &inv.AncillaryTotal, &inv.TotalAmount,
		&month, &status, &service, &payment,
		&inv.SeniorDiscount, &inv.IssuedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.BillingMonth = entity.Month(month)
	inv.Status = entity.InvoiceStatus(status)
	inv.ServiceType = entity.ServiceType(service)
	inv.PaymentMethod = entity.PaymentMethod(payment)
	return &inv, nil
}

// Create persiste la cabecera de la factura y sus líneas de cargo.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) (int64, error) {
	query := `
		INSERT INTO invoices (invoice_number, client_ref, reading_ref, consumption,
		                      basic_amount, excess_amount, ancillary_total, total_amount,
		                      billing_month, status, service_type, payment_method,
		                      senior_discount_applied, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	var id int64
	err := r.q.QueryRow(ctx, query,
		inv.Number, inv.ClientRef, inv.ReadingRef, inv.Consumption,
		inv.BasicAmount.Round(2), inv.ExcessAmount.Round(2), inv.AncillaryTotal.Round(2), inv.TotalAmount.Round(2),
		string(inv.BillingMonth), string(inv.Status), string(inv.ServiceType), string(inv.PaymentMethod),
		inv.SeniorDiscount, inv.IssuedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errors.Wrapf(domain.ErrDuplicateNumber, "factura %s", inv.DisplayNumber())
		}
		return 0, domain.StorageError(err, "insert invoice")
	}

	for i := range inv.Fees {
		fee := &inv.Fees[i]
		err := r.q.QueryRow(ctx,
			`INSERT INTO invoice_fees (invoice_id, code, kind, amount) VALUES ($1, $2, $3, $4) RETURNING id`,
			id, fee.Code, string(fee.Kind), fee.Amount.Round(2),
		).Scan(&fee.ID)
		if err != nil {
			return 0, domain.StorageError(err, "insert invoice fee")
		}
		fee.InvoiceID = id
	}
	return id, nil
}

// GetByID obtiene una factura completa por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// GetByNumber obtiene una factura completa por número.
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`, number)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, arg any) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.StorageError(err, "get invoice")
	}
	fees, err := r.fees(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Fees = fees
	return inv, nil
}

func (r *InvoiceRepo) fees(ctx context.Context, invoiceID int64) ([]entity.InvoiceFee, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, invoice_id, code, kind, amount FROM invoice_fees WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, domain.StorageError(err, "get invoice fees")
	}
	defer rows.Close()

	var list []entity.InvoiceFee
	for rows.Next() {
		var f entity.InvoiceFee
		var kind string
		if err := rows.Scan(&f.ID, &f.InvoiceID, &f.Code, &kind, &f.Amount); err != nil {
			return nil, domain.StorageError(err, "scan invoice fee")
		}
		f.Kind = entity.FeeKind(kind)
		list = append(list, f)
	}
	return list, domain.StorageError(rows.Err(), "iterate invoice fees")
}

func (r *InvoiceRepo) NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT invoice_number FROM invoices WHERE invoice_number LIKE $1`, prefix+"%")
	if err != nil {
		return nil, domain.StorageError(err, "list series numbers")
	}
	numbers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, domain.StorageError(err, "scan series numbers")
	}
	return numbers, nil
}

// Latest factura más reciente del cliente (mayor ID), sin cargos.
func (r *InvoiceRepo) Latest(ctx context.Context, clientRef int64) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE client_ref = $1 ORDER BY id DESC LIMIT 1`, clientRef))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.StorageError(err, "latest invoice")
	}
	return inv, nil
}

// ListByClient facturas del cliente (más reciente primero), sin cargos.
func (r *InvoiceRepo) ListByClient(ctx context.Context, clientRef int64) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE client_ref = $1 ORDER BY id DESC`, clientRef)
	if err != nil {
		return nil, domain.StorageError(err, "list invoices")
	}
	defer rows.Close()

	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, domain.StorageError(err, "scan invoice")
		}
		list = append(list, inv)
	}
	return list, domain.StorageError(rows.Err(), "iterate invoices")
}

func (r *InvoiceRepo) CountByStatus(ctx context.Context, clientRef int64, status entity.InvoiceStatus) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE client_ref = $1 AND status = $2`, clientRef, string(status)).Scan(&n)
	if err != nil {
		return 0, domain.StorageError(err, "count invoices")
	}
	return n, nil
}

func (r *InvoiceRepo) SumByStatus(ctx context.Context, clientRef int64, status entity.InvoiceStatus) (int64, decimal.Decimal, error) {
	var n int64
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM invoices WHERE client_ref = $1 AND status = $2`,
		clientRef, string(status)).Scan(&n, &sum)
	if err != nil {
		return 0, decimal.Zero, domain.StorageError(err, "sum invoices")
	}
	return n, sum, nil
}

func (r *InvoiceRepo) UpdateStatusForClient(ctx context.Context, clientRef int64, from, to entity.InvoiceStatus) (int64, error) {
	return exec(ctx, r.q, "update client invoices status",
		`UPDATE invoices SET status = $1 WHERE client_ref = $2 AND status = $3`, string(to), clientRef, string(from))
}

func (r *InvoiceRepo) SetStatus(ctx context.Context, id int64, status entity.InvoiceStatus) (int64, error) {
	return exec(ctx, r.q, "update invoice status", `UPDATE invoices SET status = $1 WHERE id = $2`, string(status), id)
}

func (r *InvoiceRepo) ListWithoutNumber(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM invoices WHERE invoice_number IS NULL ORDER BY id`)
	if err != nil {
		return nil, domain.StorageError(err, "list unnumbered invoices")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, domain.StorageError(err, "scan unnumbered invoices")
	}
	return ids, nil
}

func (r *InvoiceRepo) SetNumber(ctx context.Context, id int64, number string) (int64, error) {
	n, err := exec(ctx, r.q, "set invoice number",
		`UPDATE invoices SET invoice_number = $1 WHERE id = $2 AND invoice_number IS NULL`, number, id)
	if err != nil && isUniqueViolation(err) {
		return 0, errors.Wrapf(domain.ErrDuplicateNumber, "factura %s", number)
	}
	return n, err
}

// Delete elimina la factura; invoice_fees se borra en cascada.
func (r *InvoiceRepo) Delete(ctx context.Context, id int64) (int64, error) {
	return exec(ctx, r.q, "delete invoice", `DELETE FROM invoices WHERE id = $1`, id)
}
