// Package auth coordina el protocolo verify-and-consume: liga el chequeo de
// firma del verificador externo al consumo atómico del nonce, y sólo si
// ambos aceptan delega la emisión de la credencial.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dropDatabas3/siwauth/internal/metrics"
	"github.com/dropDatabas3/siwauth/internal/nonce"
	"github.com/dropDatabas3/siwauth/internal/observability/logger"
	"github.com/dropDatabas3/siwauth/internal/relay"
	"github.com/dropDatabas3/siwauth/internal/siwx"
	"github.com/dropDatabas3/siwauth/internal/token"
)

// Motivos de rechazo expuestos al caller.
const (
	ReasonMissingNonce     = "missing_nonce"
	ReasonInvalidNonce     = "invalid_nonce"
	ReasonInvalidSignature = "invalid_signature"
)

// ErrUpstream indica que el verificador externo no estuvo disponible.
// Se distingue de "firma inválida": no hay veredicto, no un rechazo.
var ErrUpstream = errors.New("auth: verificador externo no disponible")

// Request es una sumisión de prueba firmada.
type Request struct {
	Message           string
	Signature         string
	Domain            string
	AcceptAuthAddress bool
}

// Outcome es el resultado de una verificación: aceptada con credencial, o
// rechazada con motivo y detalle.
type Outcome struct {
	Valid  bool
	Token  string
	Reason string
	Detail string
}

// Orchestrator ejecuta la máquina de estados por request. No tiene estado
// propio ni locks: la exclusión del nonce vive en el store.
type Orchestrator struct {
	Nonces nonce.Store
	Relay  relay.Verifier
	Issuer *token.Issuer
}

func NewOrchestrator(nonces nonce.Store, rv relay.Verifier, issuer *token.Issuer) *Orchestrator {
	return &Orchestrator{Nonces: nonces, Relay: rv, Issuer: issuer}
}

// VerifySignIn corre el protocolo completo.
//
// Política de consumo: el nonce se
// consume EN PARALELO con la verificación de firma, y una firma rechazada
// deja el nonce quemado igual. Prioriza la prevención de replay por sobre
// la usabilidad ante un fallo transitorio de firma; el caller debe pedir un
// nonce nuevo y reenviar. Sin reintentos en ningún punto de este camino.
func (o *Orchestrator) VerifySignIn(ctx context.Context, req Request) (*Outcome, error) {
	msg := siwx.Parse(req.Message)
	if msg.Nonce == "" {
		// Terminal: sin nonce no se llama ni al verificador ni al store.
		metrics.VerifyRequests.WithLabelValues(ReasonMissingNonce).Inc()
		return &Outcome{Valid: false, Reason: ReasonMissingNonce, Detail: "el mensaje no embebe un nonce"}, nil
	}

	// Fan-out: las dos operaciones no dependen entre sí, corren en paralelo
	// sólo por latencia. Ninguna cancela a la otra: ambas llegan al join.
	var (
		wg sync.WaitGroup

		consumed   bool
		consumeErr error

		relayRes *relay.Result
		relayErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		relayRes, relayErr = o.Relay.VerifySignIn(ctx, relay.Request{
			Message:           req.Message,
			Signature:         req.Signature,
			Domain:            req.Domain,
			Nonce:             msg.Nonce,
			AcceptAuthAddress: req.AcceptAuthAddress,
		})
	}()
	go func() {
		defer wg.Done()
		consumed, consumeErr = o.Nonces.Consume(ctx, msg.Nonce)
	}()
	wg.Wait()

	// Fan-in. El orden importa: un nonce no consumible rechaza sin importar
	// qué dijo la firma.
	if consumeErr != nil {
		metrics.VerifyRequests.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("auth: consumiendo nonce: %w", consumeErr)
	}
	if !consumed {
		metrics.NoncesConsumed.WithLabelValues("miss").Inc()
		metrics.VerifyRequests.WithLabelValues(ReasonInvalidNonce).Inc()
		return &Outcome{Valid: false, Reason: ReasonInvalidNonce, Detail: "nonce inexistente, expirado o ya consumido"}, nil
	}
	metrics.NoncesConsumed.WithLabelValues("ok").Inc()

	if relayErr != nil {
		metrics.VerifyRequests.WithLabelValues("upstream_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, relayErr)
	}
	if !relayRes.Valid {
		reason := relayRes.Reason
		if reason == "" {
			reason = ReasonInvalidSignature
		}
		// El nonce ya quedó quemado acá; ver la política arriba.
		metrics.VerifyRequests.WithLabelValues(ReasonInvalidSignature).Inc()
		logger.From(ctx).Info("sign-in rechazado",
			logger.Domain(req.Domain), logger.Reason(reason))
		return &Outcome{Valid: false, Reason: reason, Detail: relayRes.Message}, nil
	}

	address := relayRes.Address
	if address == "" {
		address = msg.Address
	}
	signed, err := o.Issuer.Issue(token.Identity{Subject: relayRes.Subject, Address: address}, req.Domain)
	if err != nil {
		metrics.VerifyRequests.WithLabelValues("issue_error").Inc()
		return nil, fmt.Errorf("auth: emitiendo credencial: %w", err)
	}

	metrics.VerifyRequests.WithLabelValues("accepted").Inc()
	logger.From(ctx).Info("sign-in aceptado",
		logger.Domain(req.Domain), logger.Subject(relayRes.Subject))
	return &Outcome{Valid: true, Token: signed}, nil
}
