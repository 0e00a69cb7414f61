package entity

import "time"

// Sequence representa una serie de numeración de facturas (establecimiento + punto de emisión).
// LastAllocated es solo registro contable: la fuente de verdad para asignar números
// son los números ya presentes en la tabla de facturas.
type Sequence struct {
	ID            int64
	Establishment string // código de establecimiento (ej: "001")
	IssuePoint    string // código de punto de emisión (ej: "010")
	LastAllocated int64
	Active        bool
	CreatedAt     time.Time
}

// Prefix devuelve el prefijo común de los números de la serie (ej: "001-010-").
func (s *Sequence) Prefix() string {
	return s.Establishment + "-" + s.IssuePoint + "-"
}
