package domain

import "github.com/cockroachdb/errors"

// Errores de dominio. Las capas inferiores envuelven estos valores con
// errors.Wrap / errors.Mark; los llamadores comparan con errors.Is.
var (
	ErrNotFound                 = errors.New("recurso no encontrado")
	ErrInvalidInput             = errors.New("entrada inválida")
	ErrNoActiveSequence         = errors.New("no existe secuencia activa")
	ErrDuplicateSeries          = errors.New("la secuencia ya existe")
	ErrDuplicateNumber          = errors.New("el número de factura ya está registrado")
	ErrCommitVerificationFailed = errors.New("el dato confirmado no coincide tras el commit")
	ErrStorage                  = errors.New("error de almacenamiento")
)

// StorageError envuelve un error del motor de base de datos y lo marca como ErrStorage.
// Devuelve nil si err es nil.
func StorageError(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, op), ErrStorage)
}

// InvalidInput devuelve ErrInvalidInput con un detalle legible para el operador.
func InvalidInput(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}
