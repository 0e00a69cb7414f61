package tariff

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
)

// Precisión monetaria (centavos).
const currencyPlaces = 2

var seniorFactor = decimal.RequireFromString("0.5")

// BaseRates tarifa básica mensual por tipo de servicio.
var BaseRates = map[entity.ServiceType]decimal.Decimal{
	entity.ServiceResidential: decimal.RequireFromString("2.50"),
	entity.ServiceCommercial:  decimal.RequireFromString("3.50"),
	entity.ServiceIndustrial:  decimal.RequireFromString("4.50"),
}

// AncillaryFees servicios técnicos con precio fijo.
var AncillaryFees = map[string]decimal.Decimal{
	"traspaso":        decimal.RequireFromString("30.00"),
	"medidor":         decimal.RequireFromString("50.00"),
	"reconexion":      decimal.RequireFromString("10.00"),
	"multas_mingas":   decimal.RequireFromString("10.00"),
	"multas_sesiones": decimal.RequireFromString("10.00"),
	"conexion_nueva":  decimal.RequireFromString("500.00"),
}

// DiscretionaryFees cargos administrativos ("otros servicios").
var DiscretionaryFees = map[string]decimal.Decimal{
	"reubicacion":  decimal.RequireFromString("30.00"),
	"sanciones":    decimal.RequireFromString("100.00"),
	"multa_carnet": decimal.RequireFromString("5.00"),
	"carnet_nuevo": decimal.RequireFromString("1.00"),
}

// MaterialsCode código de la línea de materiales.
const MaterialsCode = "materiales"

// Input datos de entrada del cálculo.
type Input struct {
	Consumption    decimal.Decimal
	ServiceType    entity.ServiceType
	SeniorDiscount bool
	Ancillary      []string        // códigos de AncillaryFees
	Discretionary  []string        // códigos de DiscretionaryFees
	Materials      decimal.Decimal // monto libre; cero si no aplica
}

// Engine calcula montos con una política de excedente fija.
type Engine struct {
	policy Policy
}

// NewEngine crea el motor con la política indicada.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy devuelve la política en uso.
func (e *Engine) Policy() Policy { return e.policy }

// Compute calcula básico, excedente, adicionales y total.
// Cada componente se redondea a centavos antes de sumar, de modo que el total
// siempre es la suma exacta de sus partes.
func (e *Engine) Compute(in Input) (entity.AmountBreakdown, error) {
	if in.Consumption.IsNegative() {
		return entity.AmountBreakdown{}, domain.InvalidInput("consumo negativo: %s", in.Consumption)
	}
	base, ok := BaseRates[in.ServiceType]
	if !ok {
		return entity.AmountBreakdown{}, domain.InvalidInput("tipo de servicio desconocido %q", in.ServiceType)
	}
	if in.Materials.IsNegative() {
		return entity.AmountBreakdown{}, domain.InvalidInput("monto de materiales negativo: %s", in.Materials)
	}

	if in.SeniorDiscount {
		base = base.Mul(seniorFactor)
	}
	basic := base.Round(currencyPlaces)

	excessUnits := decimal.Max(in.Consumption.Sub(FreeAllowance), decimal.Zero)
	rate := e.policy.RateFor(in.Consumption)
	excess := excessUnits.Mul(rate).Round(currencyPlaces)

	fees, err := feeLines(in.Ancillary, AncillaryFees, entity.FeeAncillary)
	if err != nil {
		return entity.AmountBreakdown{}, err
	}
	others, err := feeLines(in.Discretionary, DiscretionaryFees, entity.FeeDiscretionary)
	if err != nil {
		return entity.AmountBreakdown{}, err
	}
	fees = append(fees, others...)
	if in.Materials.IsPositive() {
		fees = append(fees, entity.InvoiceFee{
			Code:   MaterialsCode,
			Kind:   entity.FeeMaterials,
			Amount: in.Materials.Round(currencyPlaces),
		})
	}

	ancillary := decimal.Zero
	for _, f := range fees {
		ancillary = ancillary.Add(f.Amount)
	}

	return entity.AmountBreakdown{
		Policy:         e.policy.Name,
		ServiceType:    in.ServiceType,
		SeniorDiscount: in.SeniorDiscount,
		Consumption:    in.Consumption,
		ExcessUnits:    excessUnits,
		ExcessRate:     rate,
		BasicAmount:    basic,
		ExcessAmount:   excess,
		AncillaryTotal: ancillary,
		TotalAmount:    basic.Add(excess).Add(ancillary),
		Fees:           fees,
	}, nil
}

// feeLines convierte los códigos seleccionados en líneas de cargo. Los códigos
// repetidos cuentan una sola vez; un código desconocido es un error de entrada.
func feeLines(codes []string, catalogue map[string]decimal.Decimal, kind entity.FeeKind) ([]entity.InvoiceFee, error) {
	normalized := lo.Uniq(lo.FilterMap(codes, func(c string, _ int) (string, bool) {
		c = strings.ToLower(strings.TrimSpace(c))
		return c, c != ""
	}))
	sort.Strings(normalized)

	lines := make([]entity.InvoiceFee, 0, len(normalized))
	for _, code := range normalized {
		amount, ok := catalogue[code]
		if !ok {
			return nil, domain.InvalidInput("cargo %s desconocido %q", kind, code)
		}
		lines = append(lines, entity.InvoiceFee{Code: code, Kind: kind, Amount: amount})
	}
	return lines, nil
}

// ParseAmount interpreta un monto ingresado por el operador. Vacío equivale a cero;
// se acepta coma como separador decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, domain.InvalidInput("monto no numérico %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, domain.InvalidInput("monto negativo %q", s)
	}
	return d, nil
}

// FeeCodes lista ordenada de códigos de un catálogo (para ayuda del CLI).
func FeeCodes(catalogue map[string]decimal.Decimal) []string {
	codes := lo.Keys(catalogue)
	sort.Strings(codes)
	return codes
}
