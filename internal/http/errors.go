package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Códigos de error estructurados de la API, por taxonomía:
// invalid_params (campos faltantes/malformados), invalid_nonce,
// invalid_token, upstream_error (verificador o key set inaccesible),
// server_error (interno inesperado, sin detalles hacia afuera).
const (
	CodeInvalidParams = "invalid_params"
	CodeInvalidNonce  = "invalid_nonce"
	CodeInvalidToken  = "invalid_token"
	CodeUpstream      = "upstream_error"
	CodeServer        = "server_error"
)

type apiError struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

// WriteError emite un error estructurado y legible por máquina. Nunca
// filtra internals: el detalle viene del caller, que ya lo sanitizó.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:        code,
		ErrorMessage: msg,
		RequestID:    rid,
	})
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica JSON de forma tolerante (NO falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, CodeInvalidParams, "Content-Type debe ser application/json")
		return false
	}
	// máx 1MB
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, CodeInvalidParams, "json inválido")
		return false
	}
	return true
}
