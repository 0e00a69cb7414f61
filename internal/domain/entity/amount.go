package entity

import "github.com/shopspring/decimal"

// AmountBreakdown resultado del motor de tarifas para una lectura.
type AmountBreakdown struct {
	Policy         string
	ServiceType    ServiceType
	SeniorDiscount bool
	Consumption    decimal.Decimal
	ExcessUnits    decimal.Decimal
	ExcessRate     decimal.Decimal
	BasicAmount    decimal.Decimal
	ExcessAmount   decimal.Decimal
	AncillaryTotal decimal.Decimal
	TotalAmount    decimal.Decimal
	Fees           []InvoiceFee
}

// Consistent verifica total == básico + excedente + adicionales.
func (b AmountBreakdown) Consistent() bool {
	return b.TotalAmount.Equal(b.BasicAmount.Add(b.ExcessAmount).Add(b.AncillaryTotal))
}

// ReconciliationResult resultado de la conciliación de deudas de un cliente.
type ReconciliationResult struct {
	ClientRef      int64
	UpdatedCount   int64
	PriorDebtCount int64
	Message        string
}

// DebtSummary saldo pendiente de un cliente (facturas en Deuda).
type DebtSummary struct {
	ClientRef    int64
	InvoiceCount int64
	Balance      decimal.Decimal
}
