// Package nonce implementa el ciclo de vida anti-replay: generación,
// persistencia con TTL y consumo atómico de nonces de un solo uso.
//
// Un nonce es consumible a lo sumo una vez, y sólo estrictamente antes de
// su expiración. La exclusión mutua se delega por completo a la primitiva
// atómica de borrado condicional de cada backend; nadie por encima de este
// paquete toma locks.
package nonce

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"hash/fnv"
	"time"
)

// DefaultTTL es la vigencia de un nonce desde que se persiste.
const DefaultTTL = 5 * time.Minute

// Store persiste y consume nonces de un solo uso.
type Store interface {
	// Store persiste el token con expiresAt = now + TTL.
	// Idempotente: volver a guardar el mismo token sobreescribe la expiración.
	Store(ctx context.Context, token string) error

	// Consume borra el registro del token de forma atómica y retorna true
	// sólo si existía y todavía no expiró. Un registro expirado pero aún no
	// barrido cuenta como inexistente.
	Consume(ctx context.Context, token string) (bool, error)

	// Ping verifica que el backend esté accesible.
	Ping(ctx context.Context) error

	// Close libera recursos (timers, conexiones).
	Close() error
}

// poolLen es el largo del prefijo de partición (hint de localidad).
const poolLen = 2

// rawLen es el largo en bytes de la parte aleatoria (128 bits de entropía).
const rawLen = 16

// TokenLen es el largo total del token emitido: prefijo + hex(16 bytes).
const TokenLen = poolLen + rawLen*2

// Generate produce un token con 128 bits de entropía, independiente de
// cualquier token anterior, prefijado por el pool dado. La probabilidad de
// colisión es criptográficamente despreciable y no se chequea.
func Generate(pool string) string {
	if len(pool) != poolLen {
		pool = "xx"
	}
	b := make([]byte, rawLen)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand no puede fallar en ninguna plataforma soportada;
		// si falla, no hay forma segura de seguir.
		panic("nonce: crypto/rand: " + err.Error())
	}
	return pool + hex.EncodeToString(b)
}

// Pool extrae el prefijo de partición de un token.
func Pool(token string) string {
	if len(token) < poolLen {
		return "xx"
	}
	return token[:poolLen]
}

// PoolFromHint deriva un pool determinístico de 2 letras a partir de un hint
// de localidad arbitrario (código de región, continente, etc.). El pool sólo
// balancea carga entre shards; nunca altera la corrección.
func PoolFromHint(hint string) string {
	if len(hint) == poolLen && isLowerAlpha(hint) {
		return hint
	}
	if hint == "" {
		return "xx"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(hint))
	s := h.Sum32()
	return string([]byte{'a' + byte(s%26), 'a' + byte((s/26)%26)})
}

func isLowerAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
