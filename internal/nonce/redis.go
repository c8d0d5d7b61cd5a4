package nonce

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript es el check-and-delete atómico: lee la expiración, borra la
// key y compara contra el "ahora" del caller, todo en una sola evaluación.
// Un GET seguido de un DEL en dos round-trips sería un bug de corrección:
// dos consumidores concurrentes podrían aceptar el mismo nonce.
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return 0
end
redis.call('DEL', KEYS[1])
if tonumber(v) <= tonumber(ARGV[1]) then
  return 0
end
return 1
`)

// RedisStore implementa Store sobre Redis. El valor de cada key es la
// expiración en unix milli; el TTL de Redis actúa como barrido implícito,
// así que no hay sweeper propio.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// RedisConfig configura el backend Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedis crea un RedisStore y verifica la conexión.
func NewRedis(cfg RedisConfig) (*RedisStore, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "nonce"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("nonce: redis ping failed: %w", err)
	}

	return &RedisStore{
		client: rdb,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + token
}

func (s *RedisStore) Store(ctx context.Context, token string) error {
	exp := s.now().Add(s.ttl)
	// SET pisa cualquier valor anterior: volver a guardar el mismo token
	// es idempotente por contrato.
	return s.client.Set(ctx, s.key(token), strconv.FormatInt(exp.UnixMilli(), 10), s.ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, token string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{s.key(token)}, s.now().UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("nonce: redis consume: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
