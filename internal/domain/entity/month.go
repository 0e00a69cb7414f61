package entity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Month mes de facturación (etiqueta, no fecha).
type Month string

// Months en orden calendario.
var Months = []Month{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// ParseMonth normaliza el nombre del mes sin distinguir mayúsculas ("ENERO" -> "Enero").
func ParseMonth(s string) (Month, bool) {
	// cases.Caser no es seguro entre goroutines: se crea uno por llamada.
	m := Month(cases.Title(language.Spanish).String(strings.TrimSpace(s)))
	for _, known := range Months {
		if known == m {
			return m, true
		}
	}
	return "", false
}
