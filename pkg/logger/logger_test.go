package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-agua/pkg/logger"
)

func TestNew_ProduccionEscribeJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "debug", Output: &buf})

	log.Component("secuencias").Info().Str("numero", "001-010-0000000001").Msg("número asignado")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "secuencias", entry["component"])
	assert.Equal(t, "001-010-0000000001", entry["numero"])
}

func TestNew_NivelFiltra(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "warn", Output: &buf})

	log.Info().Msg("no debe aparecer")
	assert.Zero(t, buf.Len())

	log.WithFields(map[string]any{"cliente": 12}).Warn().Msg("aparece")
	assert.Contains(t, buf.String(), `"cliente":12`)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { logger.Nop().Error().Msg("descartado") })
}
