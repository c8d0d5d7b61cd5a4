package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// Domain crea un campo para el dominio del relying party.
func Domain(v string) zap.Field {
	return zap.String("domain", v)
}

// Subject crea un campo para el subject verificado.
func Subject(v string) zap.Field {
	return zap.String("sub", v)
}

// Pool crea un campo para la partición/pool de nonces.
func Pool(v string) zap.Field {
	return zap.String("pool", v)
}

// KID crea un campo para el key-id de firma.
func KID(v string) zap.Field {
	return zap.String("kid", v)
}

// Origin crea un campo para el origin emisor (JWKS).
func Origin(v string) zap.Field {
	return zap.String("origin", v)
}

// Reason crea un campo para el motivo de rechazo.
func Reason(v string) zap.Field {
	return zap.String("reason", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Backend crea un campo para el backend de almacenamiento (memory/redis/postgres).
func Backend(v string) zap.Field {
	return zap.String("backend", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}
