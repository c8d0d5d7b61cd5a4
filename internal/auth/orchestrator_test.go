package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/siwauth/internal/nonce"
	"github.com/dropDatabas3/siwauth/internal/relay"
	"github.com/dropDatabas3/siwauth/internal/siwx"
	"github.com/dropDatabas3/siwauth/internal/token"
)

// fakeRelay es un verificador externo programable que cuenta llamadas.
type fakeRelay struct {
	calls  int64
	result *relay.Result
	err    error
}

func (f *fakeRelay) VerifySignIn(ctx context.Context, req relay.Request) (*relay.Result, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// countingStore envuelve un Store y cuenta consumos.
type countingStore struct {
	inner    nonce.Store
	consumes int64
}

func (c *countingStore) Store(ctx context.Context, tok string) error {
	return c.inner.Store(ctx, tok)
}

func (c *countingStore) Consume(ctx context.Context, tok string) (bool, error) {
	atomic.AddInt64(&c.consumes, 1)
	return c.inner.Consume(ctx, tok)
}

func (c *countingStore) Ping(ctx context.Context) error { return c.inner.Ping(ctx) }

func (c *countingStore) Close() error { return c.inner.Close() }

func newOrchestrator(t *testing.T, rv relay.Verifier) (*Orchestrator, *countingStore) {
	t.Helper()
	ks, err := token.NewDevRSA("kid-test")
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	store := &countingStore{inner: nonce.NewMemory(time.Minute)}
	o := NewOrchestrator(store, rv, token.NewIssuer("https://auth.example.com", ks))
	t.Cleanup(func() { _ = store.Close() })
	return o, store
}

func proofMessage(n string) string {
	return siwx.Format(siwx.Message{
		Domain:  "app.example.com",
		Address: "0xabc",
		URI:     "https://app.example.com",
		ChainID: "10",
		Nonce:   n,
	})
}

func TestVerifySignInAcceptsOnceThenInvalidNonce(t *testing.T) {
	rv := &fakeRelay{result: &relay.Result{Valid: true, Subject: "12345", Address: "0xabc"}}
	o, store := newOrchestrator(t, rv)
	ctx := context.Background()

	n := nonce.Generate("xx")
	if err := store.inner.Store(ctx, n); err != nil {
		t.Fatalf("store: %v", err)
	}
	msg := proofMessage(n)

	out, err := o.VerifySignIn(ctx, Request{Message: msg, Signature: "0xsig", Domain: "app.example.com"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !out.Valid || out.Token == "" {
		t.Fatalf("primera sumisión tenía que aceptar: %+v", out)
	}

	// La credencial emitida valida contra el emisor
	ver := token.NewVerifier("https://auth.example.com", token.LocalKeys{Set: o.Issuer.Keys})
	claims, err := ver.Verify(ctx, out.Token, "app.example.com")
	if err != nil || claims == nil {
		t.Fatalf("credencial emitida no valida: claims=%v err=%v", claims, err)
	}
	if claims["sub"] != "12345" || claims["address"] != "0xabc" {
		t.Errorf("claims = %v", claims)
	}

	// Reenviar el mensaje idéntico: el nonce ya fue consumido.
	out, err = o.VerifySignIn(ctx, Request{Message: msg, Signature: "0xsig", Domain: "app.example.com"})
	if err != nil {
		t.Fatalf("verify replay: %v", err)
	}
	if out.Valid || out.Reason != ReasonInvalidNonce {
		t.Fatalf("replay tenía que rechazar con invalid_nonce: %+v", out)
	}
}

func TestVerifySignInMissingNonceShortCircuits(t *testing.T) {
	rv := &fakeRelay{result: &relay.Result{Valid: true}}
	o, store := newOrchestrator(t, rv)

	msg := "app.example.com wants you to sign in with your Ethereum account:\n0xabc\n\nVersion: 1"
	out, err := o.VerifySignIn(context.Background(), Request{Message: msg, Signature: "0xsig", Domain: "app.example.com"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Valid || out.Reason != ReasonMissingNonce {
		t.Fatalf("esperaba missing_nonce: %+v", out)
	}

	// Rechazo inmediato: cero llamadas al verificador y al store.
	if n := atomic.LoadInt64(&rv.calls); n != 0 {
		t.Errorf("el verificador externo fue llamado %d veces", n)
	}
	if n := atomic.LoadInt64(&store.consumes); n != 0 {
		t.Errorf("el store fue consultado %d veces", n)
	}
}

func TestVerifySignInBadSignatureBurnsNonce(t *testing.T) {
	rv := &fakeRelay{result: &relay.Result{Valid: false, Reason: "invalid_signature", Message: "firma no corresponde"}}
	o, store := newOrchestrator(t, rv)
	ctx := context.Background()

	n := nonce.Generate("xx")
	if err := store.inner.Store(ctx, n); err != nil {
		t.Fatalf("store: %v", err)
	}

	out, err := o.VerifySignIn(ctx, Request{Message: proofMessage(n), Signature: "0xmala", Domain: "app.example.com"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Valid || out.Reason != "invalid_signature" {
		t.Fatalf("esperaba rechazo por firma: %+v", out)
	}
	if out.Detail != "firma no corresponde" {
		t.Errorf("el detalle del verificador tiene que pasar: %q", out.Detail)
	}

	// Política: la firma fallida quemó el nonce igual.
	ok, _ := store.inner.Consume(ctx, n)
	if ok {
		t.Fatal("el nonce tenía que quedar quemado tras el fallo de firma")
	}
}

func TestVerifySignInInvalidNonceWinsOverSignature(t *testing.T) {
	// Firma válida pero nonce jamás almacenado: gana invalid_nonce.
	rv := &fakeRelay{result: &relay.Result{Valid: true, Subject: "1"}}
	o, _ := newOrchestrator(t, rv)

	out, err := o.VerifySignIn(context.Background(), Request{
		Message:   proofMessage(nonce.Generate("xx")),
		Signature: "0xsig",
		Domain:    "app.example.com",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Valid || out.Reason != ReasonInvalidNonce {
		t.Fatalf("esperaba invalid_nonce: %+v", out)
	}
}

func TestVerifySignInUpstreamFailure(t *testing.T) {
	rv := &fakeRelay{err: errors.New("connection refused")}
	o, store := newOrchestrator(t, rv)
	ctx := context.Background()

	n := nonce.Generate("xx")
	if err := store.inner.Store(ctx, n); err != nil {
		t.Fatalf("store: %v", err)
	}

	_, err := o.VerifySignIn(ctx, Request{Message: proofMessage(n), Signature: "0xsig", Domain: "app.example.com"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("esperaba ErrUpstream, tengo %v", err)
	}
}

func TestVerifySignInExpiredNonce(t *testing.T) {
	rv := &fakeRelay{result: &relay.Result{Valid: true, Subject: "1"}}

	ks, err := token.NewDevRSA("kid-test")
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	mem := nonce.NewMemory(time.Millisecond)
	defer mem.Close()
	o := NewOrchestrator(mem, rv, token.NewIssuer("https://auth.example.com", ks))

	ctx := context.Background()
	n := nonce.Generate("xx")
	if err := mem.Store(ctx, n); err != nil {
		t.Fatalf("store: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	out, err := o.VerifySignIn(ctx, Request{Message: proofMessage(n), Signature: "0xsig", Domain: "app.example.com"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Valid || out.Reason != ReasonInvalidNonce {
		t.Fatalf("nonce expirado tenía que dar invalid_nonce: %+v", out)
	}
}

func TestVerifySignInAddressFallsBackToMessage(t *testing.T) {
	// El verificador no afirma address: se usa la del mensaje parseado.
	rv := &fakeRelay{result: &relay.Result{Valid: true, Subject: "7"}}
	o, store := newOrchestrator(t, rv)
	ctx := context.Background()

	n := nonce.Generate("xx")
	if err := store.inner.Store(ctx, n); err != nil {
		t.Fatalf("store: %v", err)
	}

	out, err := o.VerifySignIn(ctx, Request{Message: proofMessage(n), Signature: "0xsig", Domain: "app.example.com"})
	if err != nil || !out.Valid {
		t.Fatalf("verify: out=%+v err=%v", out, err)
	}

	ver := token.NewVerifier("https://auth.example.com", token.LocalKeys{Set: o.Issuer.Keys})
	claims, _ := ver.Verify(ctx, out.Token, "app.example.com")
	if claims["address"] != "0xabc" {
		t.Errorf("address = %v, want la del mensaje", claims["address"])
	}
}
