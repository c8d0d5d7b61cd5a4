package handlers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/siwauth/internal/auth"
	httpx "github.com/dropDatabas3/siwauth/internal/http"
	"github.com/dropDatabas3/siwauth/internal/observability/logger"
)

type verifySIWXRequest struct {
	Message           string `json:"message"`
	Domain            string `json:"domain"`
	Signature         string `json:"signature"`
	AcceptAuthAddress bool   `json:"acceptAuthAddress"`
}

// NewVerifySIWXHandler corre el protocolo verify-and-consume y emite la
// credencial en caso de éxito.
//
//	POST /verify-siwf
//
// Éxito: 200 {valid:true, token}. Rechazo: 400 {error, error_message}.
// Verificador externo caído: 500 upstream_error, sin reintentos.
func NewVerifySIWXHandler(o *auth.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifySIWXRequest
		if !httpx.ReadJSON(w, r, &req) {
			return
		}
		if req.Message == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidParams, "message is required")
			return
		}
		if req.Signature == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidParams, "signature is required")
			return
		}
		if req.Domain == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidParams, "domain is required")
			return
		}

		out, err := o.VerifySignIn(r.Context(), auth.Request{
			Message:           req.Message,
			Signature:         req.Signature,
			Domain:            req.Domain,
			AcceptAuthAddress: req.AcceptAuthAddress,
		})
		if err != nil {
			if errors.Is(err, auth.ErrUpstream) {
				logger.From(r.Context()).Warn("verificador externo no disponible", logger.Err(err))
				httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeUpstream, "verifier unreachable")
				return
			}
			logger.From(r.Context()).Error("fallo interno verificando sign-in", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeServer, "failed to verify message")
			return
		}

		if !out.Valid {
			httpx.WriteError(w, http.StatusBadRequest, out.Reason, out.Detail)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"valid": true, "token": out.Token})
	}
}
