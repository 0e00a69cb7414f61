package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
)

// ErrorResponse error legible para la salida del operador.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InvoiceFromEntity arma la respuesta a partir de la entidad persistida.
func InvoiceFromEntity(inv *entity.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:             inv.ID,
		Number:         inv.DisplayNumber(),
		ClientRef:      inv.ClientRef,
		ReadingRef:     inv.ReadingRef,
		BillingMonth:   string(inv.BillingMonth),
		Status:         string(inv.Status),
		ServiceType:    string(inv.ServiceType),
		PaymentMethod:  string(inv.PaymentMethod),
		SeniorDiscount: inv.SeniorDiscount,
		Consumption:    inv.Consumption,
		BasicAmount:    inv.BasicAmount,
		ExcessAmount:   inv.ExcessAmount,
		AncillaryTotal: inv.AncillaryTotal,
		TotalAmount:    inv.TotalAmount,
		IssuedAt:       inv.IssuedAt.Format(time.DateTime),
		Fees: lo.Map(inv.Fees, func(f entity.InvoiceFee, _ int) InvoiceFeeResponse {
			return InvoiceFeeResponse{Code: f.Code, Kind: string(f.Kind), Amount: f.Amount}
		}),
	}
}
