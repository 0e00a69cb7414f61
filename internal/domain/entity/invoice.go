package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado de cobro de una factura.
type InvoiceStatus string

const (
	InvoiceStatusDebt InvoiceStatus = "Deuda"
	InvoiceStatusPaid InvoiceStatus = "Pagado"
)

// ParseInvoiceStatus valida el texto de un estado. Vacío equivale a Deuda.
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	switch InvoiceStatus(s) {
	case "", InvoiceStatusDebt:
		return InvoiceStatusDebt, true
	case InvoiceStatusPaid:
		return InvoiceStatusPaid, true
	}
	return "", false
}

// ServiceType tipo de servicio del medidor; determina la tarifa básica.
type ServiceType string

const (
	ServiceResidential ServiceType = "DOMICILIARIA"
	ServiceCommercial  ServiceType = "COMERCIAL"
	ServiceIndustrial  ServiceType = "INDUSTRIAL"
)

// PaymentMethod forma de pago registrada en la factura.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Efectivo"
	PaymentTransfer PaymentMethod = "Transferencia"
)

// ParsePaymentMethod valida la forma de pago. Vacío equivale a Efectivo.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case "", PaymentCash:
		return PaymentCash, true
	case PaymentTransfer:
		return PaymentTransfer, true
	}
	return "", false
}

// Invoice representa una factura emitida a un cliente (medidor) por una lectura.
// Los montos son una instantánea: nunca se recalculan desde las tarifas vigentes.
type Invoice struct {
	ID             int64   // clave interna, creciente, nunca se reutiliza
	Number         *string // EEE-PPP-SSSSSSSSSS; nil en facturas anteriores a la numeración
	ClientRef      int64
	ReadingRef     int64
	Consumption    decimal.Decimal
	BasicAmount    decimal.Decimal
	ExcessAmount   decimal.Decimal
	AncillaryTotal decimal.Decimal
	TotalAmount    decimal.Decimal
	BillingMonth   Month
	Status         InvoiceStatus
	ServiceType    ServiceType
	PaymentMethod  PaymentMethod
	SeniorDiscount bool
	Fees           []InvoiceFee
	IssuedAt       time.Time
}

// LegacyNumberFormat formato mostrado para facturas sin número persistido.
const LegacyNumberFormat = "001-001-%09d"

// DisplayNumber devuelve el número persistido o, para facturas antiguas,
// el número sintetizado a partir del ID (solo para mostrar).
func (inv *Invoice) DisplayNumber() string {
	if inv.Number != nil && *inv.Number != "" {
		return *inv.Number
	}
	return fmt.Sprintf(LegacyNumberFormat, inv.ID)
}

// ApplyBreakdown copia los montos calculados por el motor de tarifas.
func (inv *Invoice) ApplyBreakdown(b AmountBreakdown) {
	inv.Consumption = b.Consumption
	inv.BasicAmount = b.BasicAmount
	inv.ExcessAmount = b.ExcessAmount
	inv.AncillaryTotal = b.AncillaryTotal
	inv.TotalAmount = b.TotalAmount
	inv.ServiceType = b.ServiceType
	inv.SeniorDiscount = b.SeniorDiscount
	inv.Fees = append([]InvoiceFee(nil), b.Fees...)
}

// Consistent verifica total == básico + excedente + adicionales.
func (inv *Invoice) Consistent() bool {
	return inv.TotalAmount.Equal(inv.BasicAmount.Add(inv.ExcessAmount).Add(inv.AncillaryTotal))
}
