package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	httpx "github.com/dropDatabas3/siwauth/internal/http"
	"github.com/dropDatabas3/siwauth/internal/metrics"
	"github.com/dropDatabas3/siwauth/internal/nonce"
	"github.com/dropDatabas3/siwauth/internal/observability/logger"
)

// NewNonceHandler emite nonces de un solo uso.
//
//	POST /nonce
//
// El hint de localidad es opcional: body {"pool": "..."} o header
// X-Nonce-Pool. Sólo reparte shards, nunca afecta la corrección.
func NewNonceHandler(store nonce.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Body opcional y tolerante: /nonce sin body es válido.
		var req struct {
			Pool string `json:"pool"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req)
			_ = r.Body.Close()
		}
		hint := req.Pool
		if hint == "" {
			hint = r.Header.Get("X-Nonce-Pool")
		}

		tok := nonce.Generate(nonce.PoolFromHint(hint))
		if err := store.Store(r.Context(), tok); err != nil {
			logger.From(r.Context()).Error("no se pudo persistir el nonce", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeServer, "failed to generate nonce")
			return
		}

		metrics.NoncesIssued.Inc()
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"nonce": tok})
	}
}
