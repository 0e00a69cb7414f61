package billing

import (
	"context"

	"github.com/jhoicas/facturacion-agua/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción de escritura única con
// repositorios de facturas y secuencias atados a ella. Si fn devuelve error se hace
// rollback; si no, commit. Las implementaciones deben garantizar exclusión mutua entre
// asignaciones de la misma serie (BEGIN IMMEDIATE en SQLite, FOR UPDATE en PostgreSQL).
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		sequenceRepo repository.SequenceRepository,
	) error) error
}

// SeriesConfig serie de numeración por defecto.
type SeriesConfig struct {
	Establishment string
	IssuePoint    string
}

// resolve completa los códigos vacíos con la serie por defecto.
func (c SeriesConfig) resolve(establishment, issuePoint string) (string, string) {
	if establishment == "" {
		establishment = c.Establishment
	}
	if issuePoint == "" {
		issuePoint = c.IssuePoint
	}
	return establishment, issuePoint
}
