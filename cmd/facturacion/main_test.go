package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-agua/internal/domain"
	"github.com/jhoicas/facturacion-agua/pkg/config"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Env: "test", Name: "facturacion", LogLevel: "error"},
		DB: config.DBConfig{
			Driver:        config.DriverSQLite,
			Path:          filepath.Join(t.TempDir(), "junta.db"),
			BusyTimeoutMS: 5000,
		},
		Billing: config.BillingConfig{Establishment: "001", IssuePoint: "010", TariffPolicy: "vigente"},
	}
}

func run(cfg *config.Config, args ...string) (string, error) {
	var out bytes.Buffer
	err := newApp(cfg, logger.Nop(), &out).Run(append([]string{"facturacion"}, args...))
	return out.String(), err
}

func mustRun(t *testing.T, cfg *config.Config, args ...string) string {
	t.Helper()
	out, err := run(cfg, args...)
	require.NoError(t, err, "facturacion %s", strings.Join(args, " "))
	return out
}

// ─── flujo completo ───────────────────────────────────────────────────────────

func TestCLI_RegistrarFactura(t *testing.T) {
	cfg := testConfig(t)

	out := mustRun(t, cfg, "migrar")
	assert.Contains(t, out, "migraciones aplicadas")

	out = mustRun(t, cfg, "lectura", "registrar", "--cliente", "7", "--consumo", "30")
	assert.Contains(t, out, "lectura 1 registrada")

	out = mustRun(t, cfg, "factura", "registrar", "--lectura", "1", "--mes", "enero", "--servicio", "domiciliaria")
	assert.Contains(t, out, "001-010-0000000001")
	assert.Contains(t, out, "Enero")

	out = mustRun(t, cfg, "factura", "listar", "--cliente", "7")
	assert.Contains(t, out, "001-010-0000000001")
	assert.Contains(t, out, "Deuda")

	out = mustRun(t, cfg, "deudas", "saldo", "--cliente", "7")
	assert.Contains(t, out, "facturas en deuda: 1")

	out = mustRun(t, cfg, "serie", "disponible")
	assert.Equal(t, "2\n", out)
}

func TestCLI_SiguienteSinFacturaRepiteNumero(t *testing.T) {
	cfg := testConfig(t)

	first := mustRun(t, cfg, "serie", "siguiente")
	second := mustRun(t, cfg, "serie", "siguiente")
	assert.Equal(t, "001-010-0000000001\n", first)
	assert.Equal(t, first, second)

	assert.Equal(t, "1\n", mustRun(t, cfg, "serie", "actual"))
}

func TestCLI_SeriesAdicionales(t *testing.T) {
	cfg := testConfig(t)

	mustRun(t, cfg, "serie", "crear", "-e", "002", "-p", "001", "--inicial", "5")
	out := mustRun(t, cfg, "serie", "listar")
	assert.Contains(t, out, "001-010")
	assert.Contains(t, out, "002-001")

	_, err := run(cfg, "serie", "crear", "-e", "002", "-p", "001")
	assert.True(t, errors.Is(err, domain.ErrDuplicateSeries))

	mustRun(t, cfg, "serie", "desactivar", "-e", "002", "-p", "001")
	_, err = run(cfg, "serie", "siguiente", "-e", "002", "-p", "001")
	assert.True(t, errors.Is(err, domain.ErrNoActiveSequence))
}

func TestCLI_ConciliarClienteSinFacturas(t *testing.T) {
	cfg := testConfig(t)

	out := mustRun(t, cfg, "deudas", "conciliar", "--cliente", "3")
	assert.Contains(t, out, "no tiene facturas registradas")
}

func TestCLI_FacturaInexistente(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(cfg, "factura", "ver", "--id", "99")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = run(cfg, "factura", "eliminar", "--id", "99")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCLI_TarifaCalcularNoAbreBase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Path = filepath.Join(t.TempDir(), "no", "existe", "junta.db")

	out := mustRun(t, cfg, "tarifa", "calcular", "--consumo", "26", "--otros", "carnet_nuevo")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "carnet_nuevo")

	_, err := run(cfg, "tarifa", "calcular", "--consumo", "10", "--politica", "otra")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

// ─── importación ──────────────────────────────────────────────────────────────

func TestParseReadings_IgnoraEncabezado(t *testing.T) {
	rows, err := parseReadings(strings.NewReader("cliente;consumo\n# comentario\n4;12,5\n9; 30\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(4), rows[0].clientRef)
	assert.Equal(t, "12.5", rows[0].consumption.String())
	assert.Equal(t, int64(9), rows[1].clientRef)
	assert.Equal(t, 4, rows[1].line)
}

func TestParseReadings_Errores(t *testing.T) {
	_, err := parseReadings(strings.NewReader("4;12\nx;3\n"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = parseReadings(strings.NewReader("4;-1\n"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = parseReadings(strings.NewReader("4;1;2\n"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCLI_ImportarLatin1(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "lecturas.csv")
	// encabezado "Cliente;Consumo m³" en ISO-8859-1
	require.NoError(t, os.WriteFile(path, []byte("Cliente;Consumo m\xb3\n1;15\n2;8\n"), 0o600))

	rows, err := readReadingsCSV(path, true)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	out := mustRun(t, cfg, "lectura", "importar", "--archivo", path, "--latin1")
	assert.Contains(t, out, "lecturas importadas: 2")

	out = mustRun(t, cfg, "factura", "registrar", "--lectura", "2", "--mes", "Febrero")
	assert.Contains(t, out, "001-010-0000000001")
}

func TestOpenServices_PoliticaDesconocida(t *testing.T) {
	cfg := testConfig(t)
	cfg.Billing.TariffPolicy = "otra"

	_, err := openServices(context.Background(), cfg, logger.Nop())
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
