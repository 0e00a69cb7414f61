package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/transform"

	"github.com/jhoicas/facturacion-agua/internal/application/dto"
	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/internal/domain/tariff"
)

var printer = message.NewPrinter(language.Spanish)

// money formatea un monto en dólares con dos decimales y separadores locales.
func money(d decimal.Decimal) string {
	return printer.Sprintf("$%v", number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

func yesNo(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}

func printInvoice(out io.Writer, inv dto.InvoiceResponse) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "factura\t%s\t(id %d)\n", inv.Number, inv.ID)
	fmt.Fprintf(w, "cliente\t%d\tlectura %d\n", inv.ClientRef, inv.ReadingRef)
	fmt.Fprintf(w, "mes\t%s\n", inv.BillingMonth)
	fmt.Fprintf(w, "servicio\t%s\ttercera edad: %s\n", inv.ServiceType, yesNo(inv.SeniorDiscount))
	fmt.Fprintf(w, "consumo\t%s m³\n", inv.Consumption.String())
	fmt.Fprintf(w, "básico\t%s\n", money(inv.BasicAmount))
	fmt.Fprintf(w, "excedente\t%s\n", money(inv.ExcessAmount))
	for _, f := range inv.Fees {
		fmt.Fprintf(w, "  %s\t%s\n", f.Code, money(f.Amount))
	}
	fmt.Fprintf(w, "adicionales\t%s\n", money(inv.AncillaryTotal))
	fmt.Fprintf(w, "total\t%s\n", money(inv.TotalAmount))
	fmt.Fprintf(w, "estado\t%s\t%s\n", inv.Status, inv.PaymentMethod)
	fmt.Fprintf(w, "emitida\t%s\n", inv.IssuedAt)
	_ = w.Flush()
}

// readingRow fila del archivo de lecturas.
type readingRow struct {
	line        int
	clientRef   int64
	consumption decimal.Decimal
}

// readReadingsCSV lee un archivo cliente;consumo. La primera fila se ignora si no
// es numérica (encabezado). Las planillas exportadas en Windows llegan en ISO-8859-1.
func readReadingsCSV(path string, latin1 bool) ([]readingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "abrir %s", path)
	}
	defer f.Close()

	var src io.Reader = f
	if latin1 {
		src = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	return parseReadings(src)
}

func parseReadings(src io.Reader) ([]readingRow, error) {
	r := csv.NewReader(src)
	r.Comma = ';'
	r.Comment = '#'
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	var rows []readingRow
	for first := true; ; first = false {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.InvalidInput("%v", err)
		}
		line, _ := r.FieldPos(0)
		client, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			if first {
				continue
			}
			return nil, domain.InvalidInput("línea %d: cliente no numérico %q", line, rec[0])
		}
		consumption, err := tariff.ParseAmount(rec[1])
		if err != nil {
			return nil, errors.Wrapf(err, "línea %d", line)
		}
		rows = append(rows, readingRow{line: line, clientRef: client, consumption: consumption})
	}
	return rows, nil
}
