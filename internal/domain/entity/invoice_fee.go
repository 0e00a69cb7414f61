package entity

import "github.com/shopspring/decimal"

// FeeKind agrupa los cargos adicionales de una factura.
type FeeKind string

const (
	FeeAncillary     FeeKind = "adicional"  // servicios técnicos (traspaso, medidor, ...)
	FeeDiscretionary FeeKind = "otros"      // cargos administrativos (reubicación, sanciones, ...)
	FeeMaterials     FeeKind = "materiales" // monto ingresado por el operador
)

// InvoiceFee representa una línea de cargo adicional de una factura.
type InvoiceFee struct {
	ID        int64
	InvoiceID int64
	Code      string
	Kind      FeeKind
	Amount    decimal.Decimal
}
