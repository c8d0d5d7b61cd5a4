package handlers

import (
	"net/http"
)

// NewJWKSHandler publica el set de claves (sólo la mitad pública de la
// clave activa). El JSON se arma una vez al boot.
//
//	GET /.well-known/jwks.json
func NewJWKSHandler(jwksJSON []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jwksJSON)
	}
}
