package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// KeySource resuelve el set de claves públicas contra el que se valida una
// credencial. Las implementaciones: las claves locales del broker y un JWKS
// remoto cacheado por origin.
type KeySource interface {
	Keys(ctx context.Context) (map[string]*rsa.PublicKey, error)
}

// LocalKeys expone la clave activa del broker como KeySource.
type LocalKeys struct {
	Set *KeySet
}

func (l LocalKeys) Keys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	if l.Set == nil || l.Set.Pub == nil {
		return nil, ErrKeyLoad
	}
	return map[string]*rsa.PublicKey{l.Set.KID: l.Set.Pub}, nil
}

// Verifier valida credenciales contra un KeySource y el issuer canónico.
type Verifier struct {
	Iss    string
	Source KeySource
}

func NewVerifier(iss string, src KeySource) *Verifier {
	return &Verifier{Iss: iss, Source: src}
}

// errKidUnknown marca un kid que no está en el set publicado; es un token
// inválido, no un error de infraestructura.
var errKidUnknown = errors.New("kid not in published key set")

// Verify valida firma (RS256), issuer, audience y presencia de sub/exp.
// Contrato "nil en fallo": token expirado, malformado, con firma inválida,
// issuer/audience equivocado o claim faltante retorna (nil, nil). Sólo los
// errores de infraestructura (no poder resolver el key set) retornan error,
// para que el caller distinga "no autenticado" de un problema operacional
// sin inspeccionar tipos de excepción.
func (v *Verifier) Verify(ctx context.Context, tokenStr, expectedAudience string) (map[string]any, error) {
	keys, err := v.Source.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("token: resolviendo key set: %w", err)
	}

	keyfunc := func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if pub, ok := keys[kid]; ok {
			return pub, nil
		}
		return nil, errKidUnknown
	}

	tok, err := jwtv5.Parse(tokenStr, keyfunc,
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithIssuer(v.Iss),
		jwtv5.WithAudience(expectedAudience),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
	)
	if err != nil || !tok.Valid {
		return nil, nil
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, nil
	}
	// iss/aud/exp ya los exigió el parser; sub lo exige el contrato.
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, nil
	}

	out := make(map[string]any, len(claims))
	for k, val := range claims {
		out[k] = val
	}
	return out, nil
}
