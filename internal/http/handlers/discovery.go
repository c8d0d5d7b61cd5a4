package handlers

import (
	"net/http"
	"strings"
	"time"

	httpx "github.com/dropDatabas3/siwauth/internal/http"
)

type discoveryMetadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// NewDiscoveryHandler publica el documento mínimo de openid-configuration,
// suficiente para que herramientas tipo jwt.io descubran el endpoint JWKS.
//
//	GET /.well-known/openid-configuration
func NewDiscoveryHandler(issuer string) http.Handler {
	iss := strings.TrimRight(issuer, "/")
	meta := discoveryMetadata{
		Issuer:  iss,
		JWKSURI: iss + "/.well-known/jwks.json",
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Cache razonable (los clientes suelen cachear discovery por un rato)
		w.Header().Set("Cache-Control", "public, max-age=600, must-revalidate")
		w.Header().Set("Expires", time.Now().Add(10*time.Minute).UTC().Format(http.TimeFormat))

		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, meta)
	})
}
