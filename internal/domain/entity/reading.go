package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reading lectura de medidor; la factura copia su consumo al emitirse.
type Reading struct {
	ID          int64
	ClientRef   int64
	Consumption decimal.Decimal // m³
	ReadAt      time.Time
}
