package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Nonce struct {
		Backend string `yaml:"backend"` // memory | redis | postgres
		TTL     string `yaml:"ttl"`     // duración, ej: "5m"
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
	} `yaml:"nonce"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		AccessTTL  string `yaml:"access_ttl"`
		PublicJWK  string `yaml:"public_jwk"`  // JWK JSON inline, o @ruta para leer de archivo
		PrivateJWK string `yaml:"private_jwk"` // idem
	} `yaml:"jwt"`

	Relay struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"relay"`
}

// Load lee el YAML (si path no está vacío), aplica defaults y overrides por env,
// y valida los campos requeridos. Falla rápido con un error descriptivo:
// la clave de firma ausente o malformada se detecta acá, no por-request.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: leyendo %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parseando %s: %w", path, err)
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Nonce.Backend == "" {
		c.Nonce.Backend = "memory"
	}
	if c.Nonce.TTL == "" {
		c.Nonce.TTL = "5m"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "1h"
	}
	if c.Relay.Timeout == "" {
		c.Relay.Timeout = "10s"
	}

	// overrides por env (compat con deploys que inyectan el material por entorno)
	if v := os.Getenv("SIWAUTH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SIWAUTH_ISSUER"); v != "" {
		c.JWT.Issuer = v
	}
	if v := os.Getenv("JWK_PUBLIC_KEY"); v != "" {
		c.JWT.PublicJWK = v
	}
	if v := os.Getenv("JWK_PRIVATE_KEY"); v != "" {
		c.JWT.PrivateJWK = v
	}
	if v := os.Getenv("SIWAUTH_RELAY_URL"); v != "" {
		c.Relay.URL = v
	}
	if v := os.Getenv("SIWAUTH_NONCE_BACKEND"); v != "" {
		c.Nonce.Backend = v
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.JWT.Issuer == "" {
		return fmt.Errorf("config: jwt.issuer es requerido")
	}
	if !strings.HasPrefix(c.JWT.Issuer, "http://") && !strings.HasPrefix(c.JWT.Issuer, "https://") {
		return fmt.Errorf("config: jwt.issuer debe ser una URL absoluta, tengo %q", c.JWT.Issuer)
	}
	switch c.Nonce.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("config: nonce.backend inválido %q (memory|redis|postgres)", c.Nonce.Backend)
	}
	if c.Nonce.Backend == "redis" && c.Nonce.Redis.Addr == "" {
		return fmt.Errorf("config: nonce.redis.addr es requerido con backend redis")
	}
	if c.Nonce.Backend == "postgres" && c.Nonce.Postgres.DSN == "" {
		return fmt.Errorf("config: nonce.postgres.dsn es requerido con backend postgres")
	}
	if _, err := c.NonceTTL(); err != nil {
		return fmt.Errorf("config: nonce.ttl: %w", err)
	}
	if _, err := c.AccessTTL(); err != nil {
		return fmt.Errorf("config: jwt.access_ttl: %w", err)
	}
	if _, err := c.RelayTimeout(); err != nil {
		return fmt.Errorf("config: relay.timeout: %w", err)
	}
	// El material de clave se parsea en profundidad en token.LoadKeySet;
	// acá sólo chequeamos presencia y JSON bien formado para fallar en boot.
	for name, raw := range map[string]string{"jwt.public_jwk": c.JWT.PublicJWK, "jwt.private_jwk": c.JWT.PrivateJWK} {
		if raw == "" {
			return fmt.Errorf("config: %s es requerido (inline o @archivo)", name)
		}
		b, err := material(raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		if !json.Valid(b) {
			return fmt.Errorf("config: %s no es JSON válido", name)
		}
	}
	return nil
}

// material resuelve un valor inline o @ruta a bytes.
func material(v string) ([]byte, error) {
	if strings.HasPrefix(v, "@") {
		return os.ReadFile(strings.TrimPrefix(v, "@"))
	}
	return []byte(v), nil
}

// PublicJWK retorna el JWK público ya resuelto (inline o archivo).
func (c *Config) PublicJWK() ([]byte, error) { return material(c.JWT.PublicJWK) }

// PrivateJWK retorna el JWK privado ya resuelto.
func (c *Config) PrivateJWK() ([]byte, error) { return material(c.JWT.PrivateJWK) }

func (c *Config) NonceTTL() (time.Duration, error)     { return time.ParseDuration(c.Nonce.TTL) }
func (c *Config) AccessTTL() (time.Duration, error)    { return time.ParseDuration(c.JWT.AccessTTL) }
func (c *Config) RelayTimeout() (time.Duration, error) { return time.ParseDuration(c.Relay.Timeout) }
