package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// Migration cambio de esquema versionado.
type Migration struct {
	Version string
	Name    string
	Up      []string // una sentencia por elemento
}

// Migrations esquema de facturación en orden de aplicación.
var Migrations = []Migration{
	{
		Version: "20240101000001",
		Name:    "create_sequences",
		Up: []string{`
CREATE TABLE IF NOT EXISTS sequences (
    id             BIGSERIAL PRIMARY KEY,
    establishment  VARCHAR(3)  NOT NULL,
    issue_point    VARCHAR(3)  NOT NULL,
    last_allocated BIGINT      NOT NULL DEFAULT 0,
    active         BOOLEAN     NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (establishment, issue_point)
)`},
	},
	{
		Version: "20240101000002",
		Name:    "create_readings",
		Up: []string{`
CREATE TABLE IF NOT EXISTS readings (
    id          BIGSERIAL PRIMARY KEY,
    client_ref  BIGINT        NOT NULL,
    consumption NUMERIC(12,3) NOT NULL,
    read_at     TIMESTAMPTZ   NOT NULL DEFAULT now()
)`,
			`CREATE INDEX IF NOT EXISTS idx_readings_client ON readings (client_ref)`},
	},
	{
		Version: "20240101000003",
		Name:    "create_invoices",
		Up: []string{`
CREATE TABLE IF NOT EXISTS invoices (
    id                      BIGSERIAL PRIMARY KEY,
    invoice_number          VARCHAR(18) UNIQUE,
    client_ref              BIGINT        NOT NULL,
    reading_ref             BIGINT        NOT NULL,
    consumption             NUMERIC(12,3) NOT NULL,
    basic_amount            NUMERIC(12,2) NOT NULL,
    excess_amount           NUMERIC(12,2) NOT NULL,
    ancillary_total         NUMERIC(12,2) NOT NULL DEFAULT 0,
    total_amount            NUMERIC(12,2) NOT NULL,
    billing_month           VARCHAR(12)   NOT NULL,
    status                  VARCHAR(10)   NOT NULL DEFAULT 'Deuda',
    service_type            VARCHAR(16)   NOT NULL,
    payment_method          VARCHAR(16)   NOT NULL DEFAULT 'Efectivo',
    senior_discount_applied BOOLEAN       NOT NULL DEFAULT FALSE,
    issued_at               TIMESTAMPTZ   NOT NULL DEFAULT now()
)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_client_status ON invoices (client_ref, status)`},
	},
	{
		Version: "20240101000004",
		Name:    "create_invoice_fees",
		Up: []string{`
CREATE TABLE IF NOT EXISTS invoice_fees (
    id         BIGSERIAL PRIMARY KEY,
    invoice_id BIGINT        NOT NULL REFERENCES invoices (id) ON DELETE CASCADE,
    code       VARCHAR(32)   NOT NULL,
    kind       VARCHAR(16)   NOT NULL,
    amount     NUMERIC(12,2) NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_invoice_fees_invoice ON invoice_fees (invoice_id)`},
	},
}

// Migrate aplica las migraciones pendientes; cada una en su transacción. Devuelve cuántas se aplicaron.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) (int, error) {
	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    VARCHAR(14) PRIMARY KEY,
    name       TEXT        NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return 0, domain.StorageError(err, "create schema_migrations")
	}

	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, domain.StorageError(err, "read schema_migrations")
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, domain.StorageError(err, "scan schema_migrations")
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	count := 0
	for _, m := range Migrations {
		if done[m.Version] {
			continue
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			for _, stmt := range m.Up {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return count, domain.StorageError(err, "migration "+m.Name)
		}
		log.Info().Str("version", m.Version).Str("nombre", m.Name).Msg("migración aplicada")
		count++
	}
	return count, nil
}
