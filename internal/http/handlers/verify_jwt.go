package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/siwauth/internal/http"
	"github.com/dropDatabas3/siwauth/internal/observability/logger"
	"github.com/dropDatabas3/siwauth/internal/token"
)

// NewVerifyJWTHandler valida una credencial presentada por un relying party.
//
//	GET /verify-jwt?token=...&domain=...
//
// Éxito: 200 con las claims crudas. Token inválido (expirado, malformado,
// firma/issuer/audience equivocados, claim faltante): 400 invalid_token.
// El contrato "nil en fallo" del verifier separa eso de un 500 de infra.
func NewVerifyJWTHandler(v *token.Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		tok := q.Get("token")
		domain := q.Get("domain")
		if tok == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidParams, "token is required")
			return
		}
		if domain == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidParams, "domain is required")
			return
		}

		claims, err := v.Verify(r.Context(), tok, domain)
		if err != nil {
			logger.From(r.Context()).Error("no se pudo resolver el key set", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeUpstream, "failed to verify token")
			return
		}
		if claims == nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidToken, "token is invalid")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, claims)
	}
}

// NewVerifyTokenHandler es la variante POST sin error estructurado: siempre
// 200 con {valid:bool} salvo parámetros faltantes o fallas de infra.
//
//	POST /verify-token  {token, domain}
func NewVerifyTokenHandler(v *token.Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token  string `json:"token"`
			Domain string `json:"domain"`
		}
		if !httpx.ReadJSON(w, r, &req) {
			return
		}
		if req.Token == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidParams, "token is required")
			return
		}
		if req.Domain == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidParams, "domain is required")
			return
		}

		claims, err := v.Verify(r.Context(), req.Token, req.Domain)
		if err != nil {
			logger.From(r.Context()).Error("no se pudo resolver el key set", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeUpstream, "failed to verify token")
			return
		}
		if claims == nil {
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"valid": false})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"valid": true, "payload": claims})
	}
}
