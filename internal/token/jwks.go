package token

import (
	"encoding/json"
)

// ----- JWKS (serialización) -----

type jwks struct {
	Keys []JWK `json:"keys"`
}

// JWKSJSON devuelve el JWKS publicado (sólo la mitad pública de la clave
// activa) en JSON.
func (k *KeySet) JWKSJSON() []byte {
	b, _ := json.Marshal(jwks{Keys: []JWK{k.PublicJWK()}})
	return b
}

// ParseJWKS parsea un documento JWKS y devuelve las claves RSA por kid.
// Claves de otro tipo se ignoran sin error: un set publicado puede mezclar
// familias y acá sólo verificamos RS256.
func ParseJWKS(data []byte) (map[string]JWK, error) {
	var doc jwks
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]JWK, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kid == "" {
			continue
		}
		out[k.Kid] = k
	}
	return out, nil
}
