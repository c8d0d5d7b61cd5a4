// Package relay define el contrato con el verificador externo de mensajes:
// el colaborador que chequea la firma criptográfica y la titularidad de la
// cuenta. El broker no reimplementa esa verificación; sólo consume su
// resultado. El verificador NO toca el nonce: consumirlo y validarlo es
// responsabilidad exclusiva del NonceStore.
package relay

import (
	"context"
)

// Request es la entrada del verificador externo.
type Request struct {
	Message           string `json:"message"`
	Signature         string `json:"signature"`
	Domain            string `json:"domain"`
	Nonce             string `json:"nonce"`
	AcceptAuthAddress bool   `json:"acceptAuthAddress,omitempty"`
}

// Result es la salida del verificador externo. Valid=true trae la identidad
// afirmada (subject + address); Valid=false trae el motivo del rechazo.
type Result struct {
	Valid   bool   `json:"valid"`
	Subject string `json:"sub,omitempty"`
	Address string `json:"address,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Verifier es el colaborador externo. Un error del método es un problema de
// infraestructura (red, upstream caído), distinto de un rechazo de firma:
// el rechazo viene como Result{Valid:false} sin error.
type Verifier interface {
	VerifySignIn(ctx context.Context, req Request) (*Result, error)
}
