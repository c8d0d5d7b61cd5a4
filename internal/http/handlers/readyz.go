package handlers

import (
	"context"
	"net/http"
	"time"

	httpx "github.com/dropDatabas3/siwauth/internal/http"
	"github.com/dropDatabas3/siwauth/internal/nonce"
)

// NewReadyzHandler reporta readiness: el backend de nonces tiene que
// responder, si no el broker no puede emitir ni consumir desafíos.
//
//	GET /readyz
func NewReadyzHandler(store nonce.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodeServer, "nonce store unavailable")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
