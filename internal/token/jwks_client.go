package token

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// JWKSClient resuelve y cachea key sets publicados por origin emisor.
// La entrada se construye en el primer uso y se reusa por la vida del
// proceso; primeros usos concurrentes contra un origin no cacheado colapsan
// en una sola construcción vía singleflight.
type JWKSClient struct {
	httpc *http.Client
	cache *gocache.Cache
	sf    singleflight.Group
}

func NewJWKSClient(httpc *http.Client) *JWKSClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSClient{
		httpc: httpc,
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// For retorna un KeySource atado a un origin. El origin es también el
// issuer canónico esperado para las credenciales de ese broker.
func (c *JWKSClient) For(origin string) KeySource {
	return originSource{c: c, origin: origin}
}

type originSource struct {
	c      *JWKSClient
	origin string
}

func (s originSource) Keys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	return s.c.keysFor(ctx, s.origin)
}

func (c *JWKSClient) keysFor(ctx context.Context, origin string) (map[string]*rsa.PublicKey, error) {
	if v, ok := c.cache.Get(origin); ok {
		return v.(map[string]*rsa.PublicKey), nil
	}

	v, err, _ := c.sf.Do(origin, func() (any, error) {
		// Double-check: otro vuelo pudo haberla poblado.
		if v, ok := c.cache.Get(origin); ok {
			return v, nil
		}
		keys, err := c.fetch(ctx, origin)
		if err != nil {
			return nil, err
		}
		c.cache.Set(origin, keys, gocache.NoExpiration)
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]*rsa.PublicKey), nil
}

func (c *JWKSClient) fetch(ctx context.Context, origin string) (map[string]*rsa.PublicKey, error) {
	url := origin + "/.well-known/jwks.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("token: jwks request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token: jwks fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token: jwks fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("token: jwks body: %w", err)
	}

	raw, err := ParseJWKS(body)
	if err != nil {
		return nil, fmt.Errorf("token: jwks parse: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(raw))
	for kid, jwk := range raw {
		pub, err := PublicKeyFromJWK(jwk)
		if err != nil {
			// Clave no-RSA o malformada: se ignora, un token firmado con
			// ella simplemente no valida.
			continue
		}
		keys[kid] = pub
	}
	return keys, nil
}
