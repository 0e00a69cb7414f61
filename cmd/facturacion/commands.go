package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/jhoicas/facturacion-agua/internal/application/dto"
	"github.com/jhoicas/facturacion-agua/internal/domain/entity"
	"github.com/jhoicas/facturacion-agua/internal/domain/tariff"
	"github.com/jhoicas/facturacion-agua/pkg/config"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

// cliApp estado compartido por los comandos; los servicios se abren al primer uso.
type cliApp struct {
	cfg *config.Config
	log *logger.Logger
	out io.Writer
	svc *services
}

func (a *cliApp) services(c *cli.Context) (*services, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := openServices(c.Context, a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *cliApp) closeServices(*cli.Context) error {
	if a.svc != nil {
		a.svc.close()
		a.svc = nil
	}
	return nil
}

func newApp(cfg *config.Config, log *logger.Logger, out io.Writer) *cli.App {
	a := &cliApp{cfg: cfg, log: log, out: out}

	seriesFlags := []cli.Flag{
		&cli.StringFlag{Name: "establecimiento", Aliases: []string{"e"}, Usage: "código de establecimiento (3 dígitos)", Value: cfg.Billing.Establishment},
		&cli.StringFlag{Name: "punto", Aliases: []string{"p"}, Usage: "código de punto de emisión (3 dígitos)", Value: cfg.Billing.IssuePoint},
	}
	feeFlags := []cli.Flag{
		&cli.StringSliceFlag{Name: "adicional", Usage: "servicio técnico: " + strings.Join(tariff.FeeCodes(tariff.AncillaryFees), ", ")},
		&cli.StringSliceFlag{Name: "otros", Usage: "cargo administrativo: " + strings.Join(tariff.FeeCodes(tariff.DiscretionaryFees), ", ")},
		&cli.StringFlag{Name: "materiales", Usage: "monto de materiales"},
		&cli.BoolFlag{Name: "tercera-edad", Usage: "aplica descuento de tercera edad"},
		&cli.StringFlag{Name: "servicio", Usage: "DOMICILIARIA, COMERCIAL o INDUSTRIAL", Value: string(entity.ServiceResidential)},
	}

	return &cli.App{
		Name:      "facturacion",
		Usage:     "facturación de la junta de agua potable",
		Writer:    out,
		ErrWriter: out,
		After:     a.closeServices,
		Commands: []*cli.Command{
			{
				Name:   "migrar",
				Usage:  "crea o actualiza el esquema de la base",
				Action: a.migrate,
			},
			{
				Name:  "serie",
				Usage: "series de numeración",
				Subcommands: []*cli.Command{
					{
						Name:  "crear",
						Usage: "crea una serie activa",
						Flags: append([]cli.Flag{
							&cli.Int64Flag{Name: "inicial", Usage: "último secuencial ya emitido"},
						}, seriesFlags...),
						Action: a.createSeries,
					},
					{Name: "desactivar", Usage: "desactiva una serie", Flags: seriesFlags, Action: a.deactivateSeries},
					{Name: "listar", Usage: "lista las series", Action: a.listSeries},
					{Name: "actual", Usage: "muestra el último secuencial asignado", Flags: seriesFlags, Action: a.currentSequential},
					{Name: "siguiente", Usage: "reserva y muestra el siguiente número", Flags: seriesFlags, Action: a.allocateNext},
					{Name: "disponible", Usage: "muestra el siguiente secuencial libre sin reservarlo", Flags: seriesFlags, Action: a.available},
				},
			},
			{
				Name:  "lectura",
				Usage: "lecturas de medidor",
				Subcommands: []*cli.Command{
					{
						Name:  "registrar",
						Usage: "registra una lectura",
						Flags: []cli.Flag{
							&cli.Int64Flag{Name: "cliente", Required: true},
							&cli.StringFlag{Name: "consumo", Required: true, Usage: "m³"},
						},
						Action: a.recordReading,
					},
					{
						Name:  "importar",
						Usage: "importa lecturas desde un CSV cliente;consumo",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "archivo", Required: true},
							&cli.BoolFlag{Name: "latin1", Usage: "el archivo está en ISO-8859-1"},
						},
						Action: a.importReadings,
					},
				},
			},
			{
				Name:  "factura",
				Usage: "facturas",
				Subcommands: []*cli.Command{
					{
						Name:  "registrar",
						Usage: "factura una lectura",
						Flags: append(append([]cli.Flag{
							&cli.Int64Flag{Name: "lectura", Required: true},
							&cli.StringFlag{Name: "mes", Required: true, Usage: "Enero..Diciembre"},
							&cli.StringFlag{Name: "pago", Usage: "Efectivo o Transferencia"},
							&cli.StringFlag{Name: "estado", Usage: "Deuda o Pagado"},
						}, feeFlags...), seriesFlags...),
						Action: a.registerInvoice,
					},
					{Name: "ver", Usage: "muestra una factura", Flags: []cli.Flag{&cli.Int64Flag{Name: "id", Required: true}}, Action: a.showInvoice},
					{Name: "listar", Usage: "facturas de un cliente", Flags: []cli.Flag{&cli.Int64Flag{Name: "cliente", Required: true}}, Action: a.listInvoices},
					{Name: "pagar", Usage: "marca una factura como pagada", Flags: []cli.Flag{&cli.Int64Flag{Name: "id", Required: true}}, Action: a.markPaid},
					{Name: "eliminar", Usage: "elimina una factura (su número queda libre)", Flags: []cli.Flag{&cli.Int64Flag{Name: "id", Required: true}}, Action: a.deleteInvoice},
				},
			},
			{
				Name:  "deudas",
				Usage: "deudas por cliente",
				Subcommands: []*cli.Command{
					{Name: "conciliar", Usage: "salda las deudas si la última factura está pagada", Flags: []cli.Flag{&cli.Int64Flag{Name: "cliente", Required: true}}, Action: a.reconcile},
					{Name: "saldo", Usage: "saldo pendiente del cliente", Flags: []cli.Flag{&cli.Int64Flag{Name: "cliente", Required: true}}, Action: a.balance},
				},
			},
			{
				Name:  "legado",
				Usage: "facturas anteriores a la numeración",
				Subcommands: []*cli.Command{
					{Name: "numerar", Usage: "persiste 001-001-{id} en facturas sin número", Action: a.backfill},
				},
			},
			{
				Name:  "tarifa",
				Usage: "cálculo de montos",
				Subcommands: []*cli.Command{
					{
						Name:  "calcular",
						Usage: "calcula el monto de un consumo sin registrar nada",
						Flags: append([]cli.Flag{
							&cli.StringFlag{Name: "consumo", Required: true, Usage: "m³"},
							&cli.StringFlag{Name: "politica", Usage: "vigente o legado", Value: cfg.Billing.TariffPolicy},
						}, feeFlags...),
						Action: a.quote,
					},
				},
			},
		},
	}
}

// ─── series ───────────────────────────────────────────────────────────────────

func (a *cliApp) migrate(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "migraciones aplicadas: %d\n", svc.applied)
	return nil
}

func (a *cliApp) createSeries(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	est, pt := c.String("establecimiento"), c.String("punto")
	if err := svc.sequence.CreateSeries(c.Context, est, pt, c.Int64("inicial")); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "serie %s-%s creada\n", est, pt)
	return nil
}

func (a *cliApp) deactivateSeries(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	est, pt := c.String("establecimiento"), c.String("punto")
	if err := svc.sequence.DeactivateSeries(c.Context, est, pt); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "serie %s-%s desactivada\n", est, pt)
	return nil
}

func (a *cliApp) listSeries(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	list, err := svc.sequence.ListSeries(c.Context)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERIE\tÚLTIMO\tACTIVA")
	for _, s := range list {
		fmt.Fprintf(w, "%s-%s\t%d\t%s\n", s.Establishment, s.IssuePoint, s.LastAllocated, yesNo(s.Active))
	}
	return w.Flush()
}

func (a *cliApp) currentSequential(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	current, err := svc.sequence.CurrentSequential(c.Context, c.String("establecimiento"), c.String("punto"))
	if err != nil {
		return err
	}
	if current == nil {
		fmt.Fprintln(a.out, "la serie no existe")
		return nil
	}
	fmt.Fprintln(a.out, *current)
	return nil
}

func (a *cliApp) allocateNext(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	number, err := svc.sequence.AllocateNext(c.Context, c.String("establecimiento"), c.String("punto"))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, number)
	return nil
}

func (a *cliApp) available(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	next, err := svc.sequence.Available(c.Context, c.String("establecimiento"), c.String("punto"))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, next)
	return nil
}

// ─── lecturas ─────────────────────────────────────────────────────────────────

func (a *cliApp) recordReading(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	consumption, err := tariff.ParseAmount(c.String("consumo"))
	if err != nil {
		return err
	}
	r, err := svc.register.RecordReading(c.Context, c.Int64("cliente"), consumption)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "lectura %d registrada\n", r.ID)
	return nil
}

func (a *cliApp) importReadings(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	rows, err := readReadingsCSV(c.String("archivo"), c.Bool("latin1"))
	if err != nil {
		return err
	}
	for _, row := range rows {
		r, err := svc.register.RecordReading(c.Context, row.clientRef, row.consumption)
		if err != nil {
			return errors.Wrapf(err, "línea %d", row.line)
		}
		fmt.Fprintf(a.out, "lectura %d registrada (cliente %d)\n", r.ID, row.clientRef)
	}
	fmt.Fprintf(a.out, "lecturas importadas: %d\n", len(rows))
	return nil
}

// ─── facturas ─────────────────────────────────────────────────────────────────

func (a *cliApp) registerInvoice(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	materials, err := tariff.ParseAmount(c.String("materiales"))
	if err != nil {
		return err
	}
	resp, err := svc.register.Register(c.Context, dto.RegisterInvoiceRequest{
		ReadingID:      c.Int64("lectura"),
		BillingMonth:   c.String("mes"),
		ServiceType:    c.String("servicio"),
		SeniorDiscount: c.Bool("tercera-edad"),
		PaymentMethod:  c.String("pago"),
		Status:         c.String("estado"),
		Ancillary:      c.StringSlice("adicional"),
		Discretionary:  c.StringSlice("otros"),
		Materials:      materials,
		Establishment:  c.String("establecimiento"),
		IssuePoint:     c.String("punto"),
	})
	if err != nil {
		return err
	}
	printInvoice(a.out, resp.Invoice)
	if resp.PriorDebts > 0 {
		fmt.Fprintf(a.out, "deuda anterior: %d facturas, %s\n", resp.PriorDebts, money(resp.PriorBalance))
	}
	return nil
}

func (a *cliApp) showInvoice(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	inv, err := svc.invoice.GetInvoice(c.Context, c.Int64("id"))
	if err != nil {
		return err
	}
	printInvoice(a.out, dto.InvoiceFromEntity(inv))
	return nil
}

func (a *cliApp) listInvoices(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	list, err := svc.invoice.ListByClient(c.Context, c.Int64("cliente"))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNÚMERO\tMES\tESTADO\tTOTAL")
	for _, inv := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", inv.ID, inv.DisplayNumber(), inv.BillingMonth, inv.Status, money(inv.TotalAmount))
	}
	return w.Flush()
}

func (a *cliApp) markPaid(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	if err := svc.debt.MarkPaid(c.Context, c.Int64("id")); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "factura %d pagada\n", c.Int64("id"))
	return nil
}

func (a *cliApp) deleteInvoice(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	if err := svc.invoice.DeleteInvoice(c.Context, c.Int64("id")); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "factura %d eliminada\n", c.Int64("id"))
	return nil
}

// ─── deudas ───────────────────────────────────────────────────────────────────

func (a *cliApp) reconcile(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	res, err := svc.debt.Reconcile(c.Context, c.Int64("cliente"))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, res.Message)
	return nil
}

func (a *cliApp) balance(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	summary, err := svc.debt.DebtSummary(c.Context, c.Int64("cliente"))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "facturas en deuda: %d\nsaldo pendiente: %s\n", summary.InvoiceCount, money(summary.Balance))
	return nil
}

func (a *cliApp) backfill(c *cli.Context) error {
	svc, err := a.services(c)
	if err != nil {
		return err
	}
	n, err := svc.legacy.BackfillLegacyNumbers(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "facturas numeradas: %d\n", n)
	return nil
}

// ─── tarifa ───────────────────────────────────────────────────────────────────

func (a *cliApp) quote(c *cli.Context) error {
	policy, err := tariff.PolicyByName(c.String("politica"))
	if err != nil {
		return err
	}
	consumption, err := tariff.ParseAmount(c.String("consumo"))
	if err != nil {
		return err
	}
	materials, err := tariff.ParseAmount(c.String("materiales"))
	if err != nil {
		return err
	}
	b, err := tariff.NewEngine(policy).Compute(tariff.Input{
		Consumption:    consumption,
		ServiceType:    entity.ServiceType(strings.ToUpper(c.String("servicio"))),
		SeniorDiscount: c.Bool("tercera-edad"),
		Ancillary:      c.StringSlice("adicional"),
		Discretionary:  c.StringSlice("otros"),
		Materials:      materials,
	})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "política\t%s\n", b.Policy)
	fmt.Fprintf(w, "básico\t%s\n", money(b.BasicAmount))
	fmt.Fprintf(w, "excedente\t%s\t(%s m³ x %s)\n", money(b.ExcessAmount), b.ExcessUnits, b.ExcessRate)
	for _, f := range b.Fees {
		fmt.Fprintf(w, "  %s\t%s\n", f.Code, money(f.Amount))
	}
	fmt.Fprintf(w, "adicionales\t%s\n", money(b.AncillaryTotal))
	fmt.Fprintf(w, "total\t%s\n", money(b.TotalAmount))
	return w.Flush()
}
