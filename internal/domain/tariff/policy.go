// Package tariff: cálculo del monto de una factura de agua potable a partir del consumo,
// el tipo de servicio, el descuento de tercera edad y los cargos adicionales.
// No realiza I/O; el resultado se congela en la factura al registrarla.
package tariff

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-agua/internal/domain"
)

// Nombres de las políticas de excedente.
const (
	PolicyCurrentName = "vigente"
	PolicyLegacyName  = "legado"
)

// FreeAllowance consumo básico incluido en la tarifa (m³).
var FreeAllowance = decimal.NewFromInt(10)

// Band tramo de consumo. El tramo aplica cuando el consumo TOTAL es <= UpTo;
// el último tramo no tiene límite (Unbounded).
type Band struct {
	UpTo      decimal.Decimal
	Unbounded bool
	Rate      decimal.Decimal // precio por m³ excedente
}

// Policy tabla de tramos de excedente.
type Policy struct {
	Name  string
	Bands []Band
}

func band(upTo int64, rate string) Band {
	return Band{UpTo: decimal.NewFromInt(upTo), Rate: decimal.RequireFromString(rate)}
}

func openBand(rate string) Band {
	return Band{Unbounded: true, Rate: decimal.RequireFromString(rate)}
}

// PolicyCurrent tabla usada en el registro y la edición de facturas: 11–50, 51–100, >100.
var PolicyCurrent = Policy{
	Name:  PolicyCurrentName,
	Bands: []Band{band(50, "0.40"), band(100, "0.60"), openBand("0.80")},
}

// PolicyLegacy tabla alternativa (11–25, 26–50, 51–100, 101+).
var PolicyLegacy = Policy{
	Name:  PolicyLegacyName,
	Bands: []Band{band(25, "0.30"), band(50, "0.40"), band(100, "0.50"), openBand("0.75")},
}

// PolicyByName devuelve la política configurada. Vacío equivale a la vigente.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyCurrentName:
		return PolicyCurrent, nil
	case PolicyLegacyName:
		return PolicyLegacy, nil
	}
	return Policy{}, domain.InvalidInput("política de tarifa desconocida %q", name)
}

// RateFor devuelve el precio por m³ excedente según el tramo del consumo total.
// Devuelve cero cuando el consumo no supera el básico.
func (p Policy) RateFor(consumption decimal.Decimal) decimal.Decimal {
	if consumption.LessThanOrEqual(FreeAllowance) {
		return decimal.Zero
	}
	b, ok := lo.Find(p.Bands, func(b Band) bool {
		return b.Unbounded || consumption.LessThanOrEqual(b.UpTo)
	})
	if !ok {
		return decimal.Zero
	}
	return b.Rate
}
