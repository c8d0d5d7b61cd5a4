package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Identity es la identidad afirmada por el verificador externo tras un
// sign-in exitoso: el subject y la cuenta asociada.
type Identity struct {
	Subject string // "sub"
	Address string // cuenta/address asociada
}

// Issuer firma credenciales con la clave activa del KeySet.
type Issuer struct {
	Iss       string        // "iss"
	Keys      *KeySet       // clave activa
	AccessTTL time.Duration // TTL del token emitido (default 1h)
}

func NewIssuer(iss string, ks *KeySet) *Issuer {
	return &Issuer{
		Iss:       iss,
		Keys:      ks,
		AccessTTL: time.Hour,
	}
}

// Issue emite un JWT RS256 para la identidad verificada, con audience el
// dominio del relying party. No cachea nada: firma fresca por llamada.
func (i *Issuer) Issue(id Identity, audience string) (string, error) {
	if i.Keys == nil || i.Keys.Priv == nil {
		return "", fmt.Errorf("%w: no hay clave activa", ErrKeyLoad)
	}
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)

	claims := jwtv5.MapClaims{
		"iss":     i.Iss,
		"sub":     id.Subject,
		"address": id.Address,
		"aud":     audience,
		"iat":     now.Unix(),
		"exp":     exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["kid"] = i.Keys.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.Keys.Priv)
	if err != nil {
		return "", fmt.Errorf("token: firmando credencial: %w", err)
	}
	return signed, nil
}

// JWKSJSON expone el JWKS actual del emisor.
func (i *Issuer) JWKSJSON() []byte {
	return i.Keys.JWKSJSON()
}
