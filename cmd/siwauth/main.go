package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/siwauth/internal/auth"
	"github.com/dropDatabas3/siwauth/internal/config"
	httpx "github.com/dropDatabas3/siwauth/internal/http"
	"github.com/dropDatabas3/siwauth/internal/http/handlers"
	"github.com/dropDatabas3/siwauth/internal/nonce"
	"github.com/dropDatabas3/siwauth/internal/observability/logger"
	"github.com/dropDatabas3/siwauth/internal/relay"
	"github.com/dropDatabas3/siwauth/internal/token"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "siwauth:", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", envOr("SIWAUTH_CONFIG", "config.yaml"), "ruta al YAML de configuración")
	flag.Parse()

	// .env si existe (dev); en prod las vars vienen del entorno real
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = ""
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "siwauth",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	// Material de clave: parseo completo acá, el boot corta si está mal.
	pubJWK, err := cfg.PublicJWK()
	if err != nil {
		return err
	}
	privJWK, err := cfg.PrivateJWK()
	if err != nil {
		return err
	}
	keys, err := token.LoadKeySet(pubJWK, privJWK)
	if err != nil {
		return err
	}
	log.Info("clave de firma cargada", logger.KID(keys.KID))

	// Backend de nonces
	ttl, _ := cfg.NonceTTL()
	store, err := buildNonceStore(cfg, ttl)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	log.Info("nonce store listo", logger.Backend(cfg.Nonce.Backend))

	// Verificador externo
	if cfg.Relay.URL == "" {
		return fmt.Errorf("relay.url es requerido: el broker no verifica firmas por sí mismo")
	}
	relayTimeout, _ := cfg.RelayTimeout()
	verifier := relay.NewClient(cfg.Relay.URL, relayTimeout)

	// Emisión y validación de credenciales
	accessTTL, _ := cfg.AccessTTL()
	issuer := token.NewIssuer(cfg.JWT.Issuer, keys)
	issuer.AccessTTL = accessTTL
	jwtVerifier := token.NewVerifier(cfg.JWT.Issuer, token.LocalKeys{Set: keys})

	orchestrator := auth.NewOrchestrator(store, verifier, issuer)

	metricsHandler, err := httpx.RegisterMetrics(nil)
	if err != nil {
		return fmt.Errorf("registrando métricas: %w", err)
	}

	router := httpx.NewRouter(httpx.RouterDeps{
		Nonce:              handlers.NewNonceHandler(store),
		VerifySIWX:         handlers.NewVerifySIWXHandler(orchestrator),
		VerifyToken:        handlers.NewVerifyTokenHandler(jwtVerifier),
		VerifyJWT:          handlers.NewVerifyJWTHandler(jwtVerifier),
		JWKS:               handlers.NewJWKSHandler(keys.JWKSJSON()),
		Discovery:          handlers.NewDiscoveryHandler(cfg.JWT.Issuer),
		Readyz:             handlers.NewReadyzHandler(store),
		Metrics:            metricsHandler,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	srv := httpx.NewServer(cfg.Server.Addr, router)

	errc := make(chan error, 1)
	go func() {
		log.Info("escuchando", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Info("apagando", logger.String("signal", sig.String()))
	}
	return httpx.Shutdown(srv, 10*time.Second)
}

func buildNonceStore(cfg *config.Config, ttl time.Duration) (nonce.Store, error) {
	switch cfg.Nonce.Backend {
	case "redis":
		return nonce.NewRedis(nonce.RedisConfig{
			Addr:     cfg.Nonce.Redis.Addr,
			Password: cfg.Nonce.Redis.Password,
			DB:       cfg.Nonce.Redis.DB,
			Prefix:   cfg.Nonce.Redis.Prefix,
			TTL:      ttl,
		})
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return nonce.NewPG(ctx, cfg.Nonce.Postgres.DSN, ttl)
	default:
		return nonce.NewMemory(ttl), nil
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
