// Package sqlite implementa los repositorios de facturación sobre un archivo SQLite local
// (driver modernc.org/sqlite, sin cgo) usando sqlx.
package sqlite

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/pkg/config"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

const driverName = "sqlite"

// Querier operaciones comunes a *sqlx.DB y *sqlx.Tx; los repositorios se construyen
// sobre cualquiera de los dos.
type Querier interface {
	sqlx.ExtContext
}

// DB conexión al archivo de la junta.
type DB struct {
	*sqlx.DB
	log *logger.Logger
}

// Open abre (o crea) el archivo SQLite.
//
// Las transacciones se abren con BEGIN IMMEDIATE (_txlock=immediate): toman el bloqueo de
// escritura al inicio, de modo que dos asignaciones de número nunca se intercalan. Se usa
// una sola conexión; un repositorio construido sobre el DB no debe usarse dentro de una
// transacción en curso porque esperaría la conexión que la transacción retiene.
func Open(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn(cfg))
	if err != nil {
		return nil, domain.StorageError(err, "abrir base SQLite")
	}
	db.SetMaxOpenConns(1)

	log.Info().Str("archivo", cfg.Path).Msg("base SQLite abierta")
	return &DB{DB: db, log: log.Component("sqlite")}, nil
}

func dsn(cfg config.DBConfig) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeoutMS))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Close cierra la conexión.
func (db *DB) Close() error {
	return db.DB.Close()
}
