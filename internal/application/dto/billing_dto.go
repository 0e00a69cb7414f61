package dto

import "github.com/shopspring/decimal"

// RegisterInvoiceRequest datos para facturar una lectura.
// Establishment e IssuePoint vacíos usan la serie por defecto.
type RegisterInvoiceRequest struct {
	ReadingID      int64           `json:"reading_id"`
	BillingMonth   string          `json:"billing_month"` // Enero..Diciembre
	ServiceType    string          `json:"service_type"`  // DOMICILIARIA, COMERCIAL, INDUSTRIAL
	SeniorDiscount bool            `json:"senior_discount"`
	PaymentMethod  string          `json:"payment_method,omitempty"` // Efectivo (defecto) o Transferencia
	Status         string          `json:"status,omitempty"`         // Deuda (defecto) o Pagado
	Ancillary      []string        `json:"ancillary,omitempty"`
	Discretionary  []string        `json:"discretionary,omitempty"`
	Materials      decimal.Decimal `json:"materials"`
	Establishment  string          `json:"establishment,omitempty"`
	IssuePoint     string          `json:"issue_point,omitempty"`
}

// InvoiceFeeResponse línea de cargo en la respuesta.
type InvoiceFeeResponse struct {
	Code   string          `json:"code"`
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// InvoiceResponse factura registrada.
type InvoiceResponse struct {
	ID             int64                `json:"id"`
	Number         string               `json:"number"`
	ClientRef      int64                `json:"client_ref"`
	ReadingRef     int64                `json:"reading_ref"`
	BillingMonth   string               `json:"billing_month"`
	Status         string               `json:"status"`
	ServiceType    string               `json:"service_type"`
	PaymentMethod  string               `json:"payment_method"`
	SeniorDiscount bool                 `json:"senior_discount"`
	Consumption    decimal.Decimal      `json:"consumption"`
	BasicAmount    decimal.Decimal      `json:"basic_amount"`
	ExcessAmount   decimal.Decimal      `json:"excess_amount"`
	AncillaryTotal decimal.Decimal      `json:"ancillary_total"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	IssuedAt       string               `json:"issued_at"`
	Fees           []InvoiceFeeResponse `json:"fees"`
}

// RegisterInvoiceResponse factura emitida más el saldo pendiente del cliente
// antes de registrarla (lo que el operador ve al facturar).
type RegisterInvoiceResponse struct {
	Invoice      InvoiceResponse `json:"invoice"`
	PriorBalance decimal.Decimal `json:"prior_balance"`
	PriorDebts   int64           `json:"prior_debts"`
}
