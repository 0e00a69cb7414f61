package sqlite

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-agua/internal/domain"
)

// Migration cambio de esquema versionado. Up se ejecuta sentencia por sentencia en
// una sola transacción junto con el registro en schema_migrations.
type Migration struct {
	Version string
	Name    string
	Up      []string
}

// Migrations esquema de facturación en orden de aplicación.
var Migrations = []Migration{
	{
		Version: "20240101000001",
		Name:    "create_sequences",
		Up: []string{`
CREATE TABLE IF NOT EXISTS sequences (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    establishment  TEXT    NOT NULL,
    issue_point    TEXT    NOT NULL,
    last_allocated INTEGER NOT NULL DEFAULT 0,
    active         INTEGER NOT NULL DEFAULT 1,
    created_at     TEXT    NOT NULL,
    UNIQUE (establishment, issue_point)
)`},
	},
	{
		Version: "20240101000002",
		Name:    "create_readings",
		Up: []string{`
CREATE TABLE IF NOT EXISTS readings (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    client_ref  INTEGER NOT NULL,
    consumption TEXT    NOT NULL,
    read_at     TEXT    NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_readings_client ON readings (client_ref)`,
		},
	},
	{
		Version: "20240101000003",
		Name:    "create_invoices",
		Up: []string{`
CREATE TABLE IF NOT EXISTS invoices (
    id                      INTEGER PRIMARY KEY AUTOINCREMENT,
    invoice_number          TEXT UNIQUE,
    client_ref              INTEGER NOT NULL,
    reading_ref             INTEGER NOT NULL,
    consumption             TEXT    NOT NULL,
    basic_amount            TEXT    NOT NULL,
    excess_amount           TEXT    NOT NULL,
    ancillary_total         TEXT    NOT NULL DEFAULT '0.00',
    total_amount            TEXT    NOT NULL,
    billing_month           TEXT    NOT NULL,
    status                  TEXT    NOT NULL DEFAULT 'Deuda',
    service_type            TEXT    NOT NULL,
    payment_method          TEXT    NOT NULL DEFAULT 'Efectivo',
    senior_discount_applied INTEGER NOT NULL DEFAULT 0,
    issued_at               TEXT    NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_client_status ON invoices (client_ref, status)`,
		},
	},
	{
		Version: "20240101000004",
		Name:    "create_invoice_fees",
		Up: []string{`
CREATE TABLE IF NOT EXISTS invoice_fees (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    invoice_id INTEGER NOT NULL REFERENCES invoices (id) ON DELETE CASCADE,
    code       TEXT    NOT NULL,
    kind       TEXT    NOT NULL,
    amount     TEXT    NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_invoice_fees_invoice ON invoice_fees (invoice_id)`,
		},
	},
}

// Migrate aplica las migraciones pendientes. Devuelve cuántas se aplicaron.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TEXT NOT NULL
)`); err != nil {
		return 0, domain.StorageError(err, "crear schema_migrations")
	}

	var applied []string
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return 0, domain.StorageError(err, "leer schema_migrations")
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
		if err := db.apply(ctx, m); err != nil {
			return count, err
		}
		db.log.Info().Str("version", m.Version).Str("nombre", m.Name).Msg("migración aplicada")
		count++
	}
	return count, nil
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.StorageError(err, "iniciar migración "+m.Name)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.Up {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return domain.StorageError(err, "migración "+m.Name)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Name, formatTime(time.Now()),
	); err != nil {
		return domain.StorageError(err, "registrar migración "+m.Name)
	}
	if err := tx.Commit(); err != nil {
		return domain.StorageError(err, "confirmar migración "+m.Name)
	}
	return nil
}
