// Package numbering: formato y asignación de números de factura EEE-PPP-SSSSSSSSSS.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
)

var (
	numberPattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{10}$`)
	codePattern   = regexp.MustCompile(`^\d{3}$`)
)

// Prefix devuelve el prefijo de la serie (ej: "001-010-").
func Prefix(establishment, issuePoint string) string {
	return establishment + "-" + issuePoint + "-"
}

// Format construye el número de factura con secuencial de 10 dígitos.
func Format(establishment, issuePoint string, sequential int64) string {
	return fmt.Sprintf("%s-%s-%010d", establishment, issuePoint, sequential)
}

// Legacy número sintetizado para facturas anteriores a la numeración.
func Legacy(id int64) string {
	return fmt.Sprintf(entity.LegacyNumberFormat, id)
}

// Valid indica si el texto cumple exactamente el formato EEE-PPP-SSSSSSSSSS.
func Valid(number string) bool {
	return numberPattern.MatchString(number)
}

// ValidSeries valida los códigos de establecimiento y punto de emisión (3 dígitos).
func ValidSeries(establishment, issuePoint string) error {
	if !codePattern.MatchString(establishment) || !codePattern.MatchString(issuePoint) {
		return domain.InvalidInput("serie inválida %q-%q: se esperan 3 dígitos", establishment, issuePoint)
	}
	return nil
}

// Sequential extrae el secuencial (tercer segmento) de un número.
// ok es false si el número no tiene tres segmentos o el último no es numérico.
func Sequential(number string) (int64, bool) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// UsedSequentials conjunto de secuenciales presentes; omite números mal formados.
func UsedSequentials(numbers []string) map[int64]struct{} {
	used := make(map[int64]struct{}, len(numbers))
	for _, n := range numbers {
		if seq, ok := Sequential(n); ok && seq > 0 {
			used[seq] = struct{}{}
		}
	}
	return used
}

// FirstAvailable devuelve el menor entero positivo ausente del conjunto:
// el primer hueco dejado por una eliminación, o max+1 si no hay huecos.
func FirstAvailable(used map[int64]struct{}) int64 {
	next := int64(1)
	for {
		if _, ok := used[next]; !ok {
			return next
		}
		next++
	}
}
