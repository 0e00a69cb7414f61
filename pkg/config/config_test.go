package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-agua/pkg/config"
)

// chdir cambia el directorio de trabajo y lo restaura al terminar el test
// (equivalente a t.Chdir, no disponible antes de Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_ValoresPorDefecto(t *testing.T) {
	chdir(t, t.TempDir()) // sin .env ni config.env

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "sistema_facturacion.db", cfg.DB.Path)
	assert.Equal(t, 5000, cfg.DB.BusyTimeoutMS)
	assert.Equal(t, "001", cfg.Billing.Establishment)
	assert.Equal(t, "010", cfg.Billing.IssuePoint)
	assert.Equal(t, "vigente", cfg.Billing.TariffPolicy)
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("BILLING_ISSUE_POINT", "001")
	t.Setenv("BILLING_TARIFF_POLICY", "legado")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "001", cfg.Billing.IssuePoint)
	assert.Equal(t, "legado", cfg.Billing.TariffPolicy)
}

func TestLoad_DriverDesconocido(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "mysql")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "junta", Password: "p@ss:word", DBName: "agua", SSLMode: "disable"}
	assert.Equal(t, "postgres://junta:p%40ss%3Aword@db:5432/agua?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
