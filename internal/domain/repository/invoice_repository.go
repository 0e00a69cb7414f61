package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para facturas y sus cargos.
// Las implementaciones se construyen sobre el pool o sobre una transacción.
type InvoiceRepository interface {
	// Create inserta cabecera y líneas de cargo; devuelve el ID asignado.
	// Un número ya registrado devuelve domain.ErrDuplicateNumber.
	Create(ctx context.Context, inv *entity.Invoice) (int64, error)
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	// GetByNumber devuelve nil, nil si no existe.
	GetByNumber(ctx context.Context, number string) (*entity.Invoice, error)
	// NumbersWithPrefix lista los números que empiezan con el prefijo de una serie.
	NumbersWithPrefix(ctx context.Context, prefix string) ([]string, error)
	// Latest devuelve la factura más reciente del cliente (mayor ID) o nil.
	Latest(ctx context.Context, clientRef int64) (*entity.Invoice, error)
	ListByClient(ctx context.Context, clientRef int64) ([]*entity.Invoice, error)
	CountByStatus(ctx context.Context, clientRef int64, status entity.InvoiceStatus) (int64, error)
	// SumByStatus devuelve la cantidad de facturas y la suma de total_amount en el estado dado.
	SumByStatus(ctx context.Context, clientRef int64, status entity.InvoiceStatus) (int64, decimal.Decimal, error)
	// UpdateStatusForClient cambia from -> to en todas las facturas del cliente; devuelve filas afectadas.
	UpdateStatusForClient(ctx context.Context, clientRef int64, from, to entity.InvoiceStatus) (int64, error)
	SetStatus(ctx context.Context, id int64, status entity.InvoiceStatus) (int64, error)
	// ListWithoutNumber IDs de facturas antiguas sin número persistido.
	ListWithoutNumber(ctx context.Context) ([]int64, error)
	SetNumber(ctx context.Context, id int64, number string) (int64, error)
	// Delete elimina una factura (operación explícita del operador); devuelve filas afectadas.
	Delete(ctx context.Context, id int64) (int64, error)
}
