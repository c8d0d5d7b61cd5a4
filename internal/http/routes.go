package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
)

// RouterDeps agrupa los handlers ya construidos. El wiring vive en main;
// acá sólo se arma el árbol de rutas y la cadena de middlewares.
type RouterDeps struct {
	Nonce       stdhttp.Handler // POST /nonce
	VerifySIWX  stdhttp.Handler // POST /verify-siwf
	VerifyToken stdhttp.Handler // POST /verify-token
	VerifyJWT   stdhttp.Handler // GET  /verify-jwt
	JWKS        stdhttp.Handler // GET  /.well-known/jwks.json
	Discovery   stdhttp.Handler // GET  /.well-known/openid-configuration
	Readyz      stdhttp.Handler
	Metrics     stdhttp.Handler // GET /metrics (opcional)

	CORSAllowedOrigins []string
}

func NewRouter(d RouterDeps) stdhttp.Handler {
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(WithRecover)
	r.Use(WithMetrics)
	r.Use(WithAccessLog)
	r.Use(func(next stdhttp.Handler) stdhttp.Handler {
		return WithCORS(next, d.CORSAllowedOrigins)
	})

	// Health
	r.Get("/healthz", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Readyz != nil {
		r.Get("/readyz", d.Readyz.ServeHTTP)
	}

	// Discovery / JWKS
	r.Get("/.well-known/jwks.json", d.JWKS.ServeHTTP)
	r.Get("/.well-known/openid-configuration", d.Discovery.ServeHTTP)
	r.Head("/.well-known/openid-configuration", d.Discovery.ServeHTTP)

	// Protocolo SIWX
	r.Post("/nonce", d.Nonce.ServeHTTP)
	r.Post("/verify-siwf", d.VerifySIWX.ServeHTTP)
	r.Post("/verify-token", d.VerifyToken.ServeHTTP)
	r.Get("/verify-jwt", d.VerifyJWT.ServeHTTP)

	if d.Metrics != nil {
		r.Get("/metrics", d.Metrics.ServeHTTP)
	}

	return r
}
