// Package token firma y valida las credenciales JWT (RS256) del broker.
package token

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// ErrKeyLoad indica material de clave ausente o malformado. Es fatal al
// boot: el servicio no arranca sin una clave de firma usable.
var ErrKeyLoad = errors.New("token: key material missing or malformed")

// JWK es la representación JSON de una clave RSA. Para la pública alcanzan
// n y e; la privada trae además d/p/q (dp/dq/qi los recalcula Go).
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	D   string `json:"d,omitempty"`
	P   string `json:"p,omitempty"`
	Q   string `json:"q,omitempty"`
}

func b64uToBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("empty base64url")
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func bigIntToB64u(n *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(n.Bytes())
}

// PublicKeyFromJWK convierte un JWK RSA público a *rsa.PublicKey.
func PublicKeyFromJWK(k JWK) (*rsa.PublicKey, error) {
	if !strings.EqualFold(k.Kty, "RSA") {
		return nil, fmt.Errorf("unsupported kty: %q", k.Kty)
	}
	n, err := b64uToBigInt(k.N)
	if err != nil {
		return nil, fmt.Errorf("rsa n: %w", err)
	}
	eBig, err := b64uToBigInt(k.E)
	if err != nil {
		return nil, fmt.Errorf("rsa e: %w", err)
	}
	if !eBig.IsInt64() || eBig.Int64() > int64(^uint32(0)>>1) {
		return nil, errors.New("rsa exponent too large")
	}
	return &rsa.PublicKey{N: n, E: int(eBig.Int64())}, nil
}

// privateKeyFromJWK convierte un JWK RSA privado a *rsa.PrivateKey.
func privateKeyFromJWK(k JWK) (*rsa.PrivateKey, error) {
	pub, err := PublicKeyFromJWK(k)
	if err != nil {
		return nil, err
	}
	d, err := b64uToBigInt(k.D)
	if err != nil {
		return nil, fmt.Errorf("rsa d: %w", err)
	}
	p, err := b64uToBigInt(k.P)
	if err != nil {
		return nil, fmt.Errorf("rsa p: %w", err)
	}
	q, err := b64uToBigInt(k.Q)
	if err != nil {
		return nil, fmt.Errorf("rsa q: %w", err)
	}
	priv := &rsa.PrivateKey{
		PublicKey: *pub,
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	priv.Precompute()
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("rsa validate: %w", err)
	}
	return priv, nil
}

// KeySet es el material de firma activo: un único par RSA identificado por
// kid. La verificación tolera cualquier clave presente en el set publicado;
// la emisión usa siempre la activa.
type KeySet struct {
	Priv *rsa.PrivateKey
	Pub  *rsa.PublicKey
	KID  string
	Alg  string // "RS256"
}

// LoadKeySet parsea el par de JWKs y lo valida de una. Cualquier problema se
// reporta como ErrKeyLoad envuelto, para que el boot corte ahí mismo.
func LoadKeySet(publicJWK, privateJWK []byte) (*KeySet, error) {
	var pubJWK, privJWK JWK
	if err := json.Unmarshal(publicJWK, &pubJWK); err != nil {
		return nil, fmt.Errorf("%w: public jwk: %v", ErrKeyLoad, err)
	}
	if err := json.Unmarshal(privateJWK, &privJWK); err != nil {
		return nil, fmt.Errorf("%w: private jwk: %v", ErrKeyLoad, err)
	}

	pub, err := PublicKeyFromJWK(pubJWK)
	if err != nil {
		return nil, fmt.Errorf("%w: public jwk: %v", ErrKeyLoad, err)
	}
	priv, err := privateKeyFromJWK(privJWK)
	if err != nil {
		return nil, fmt.Errorf("%w: private jwk: %v", ErrKeyLoad, err)
	}
	if pub.N.Cmp(priv.N) != 0 || pub.E != priv.E {
		return nil, fmt.Errorf("%w: el JWK público no corresponde al privado", ErrKeyLoad)
	}

	kid := pubJWK.Kid
	if kid == "" {
		kid = privJWK.Kid
	}
	if kid == "" {
		kid = uuid.NewString()
	}
	return &KeySet{Priv: priv, Pub: pub, KID: kid, Alg: "RS256"}, nil
}

// NewDevRSA genera un par RSA-2048 en memoria con un KID dado. Sólo para
// tests y tooling; en producción el material viene de la configuración.
func NewDevRSA(kid string) (*KeySet, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	if kid == "" {
		kid = uuid.NewString()
	}
	return &KeySet{Priv: priv, Pub: &priv.PublicKey, KID: kid, Alg: "RS256"}, nil
}

// PublicJWK serializa la mitad pública como JWK.
func (k *KeySet) PublicJWK() JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: k.Alg,
		Kid: k.KID,
		N:   bigIntToB64u(k.Pub.N),
		E:   bigIntToB64u(big.NewInt(int64(k.Pub.E))),
	}
}

// PrivateJWK serializa el par completo como JWK privado.
func (k *KeySet) PrivateJWK() JWK {
	j := k.PublicJWK()
	j.D = bigIntToB64u(k.Priv.D)
	j.P = bigIntToB64u(k.Priv.Primes[0])
	j.Q = bigIntToB64u(k.Priv.Primes[1])
	return j
}
