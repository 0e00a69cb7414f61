// Comando facturacion: operación local de la facturación de la junta de agua
// (series de numeración, registro de facturas, conciliación de deudas).
package main

import (
	"os"

	"github.com/jhoicas/facturacion-agua/pkg/config"
	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Debug().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("driver", cfg.DB.Driver).
		Msg("iniciando")

	if err := newApp(cfg, log, os.Stdout).Run(os.Args); err != nil {
		log.Error().Err(err).Msg("operación fallida")
		os.Exit(1)
	}
}
