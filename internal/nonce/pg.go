package nonce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/siwauth/internal/observability/logger"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nonces (
	nonce      TEXT PRIMARY KEY,
	expires_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nonces_expires_at ON nonces(expires_at);
`

// PGStore implementa Store sobre Postgres. El consumo es un
// DELETE ... RETURNING: la fila se borra y se observa en la misma sentencia.
type PGStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
	sw   *sweeper
}

// NewPG crea un PGStore, verifica la conexión y asegura el esquema.
func NewPG(ctx context.Context, dsn string, ttl time.Duration) (*PGStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("nonce: pg connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("nonce: pg ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("nonce: pg schema: %w", err)
	}

	s := &PGStore{pool: pool, ttl: ttl, now: time.Now}
	// El barrido en Postgres es global: la partición del token sólo reparte
	// carga, el índice por expires_at hace el resto.
	s.sw = newSweeper(ttl, func(string) { s.Sweep(context.Background()) })
	return s, nil
}

func (s *PGStore) Store(ctx context.Context, token string) error {
	const q = `
		INSERT INTO nonces (nonce, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (nonce) DO UPDATE SET expires_at = EXCLUDED.expires_at`
	exp := s.now().Add(s.ttl).UnixMilli()
	if _, err := s.pool.Exec(ctx, q, token, exp); err != nil {
		return fmt.Errorf("nonce: pg store: %w", err)
	}
	s.sw.arm("")
	return nil
}

func (s *PGStore) Consume(ctx context.Context, token string) (bool, error) {
	const q = `DELETE FROM nonces WHERE nonce = $1 RETURNING expires_at`
	var exp int64
	err := s.pool.QueryRow(ctx, q, token).Scan(&exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("nonce: pg consume: %w", err)
	}
	return s.now().UnixMilli() < exp, nil
}

// Sweep borra todos los registros ya expirados. Correr en paralelo con
// Consume es seguro: un DELETE de filas ya borradas afecta cero filas.
func (s *PGStore) Sweep(ctx context.Context) {
	const q = `DELETE FROM nonces WHERE expires_at <= $1`
	ct, err := s.pool.Exec(ctx, q, s.now().UnixMilli())
	if err != nil {
		logger.L().Warn("nonce sweep failed", logger.Backend("postgres"), logger.Err(err))
		return
	}
	if n := ct.RowsAffected(); n > 0 {
		logger.L().Debug("nonce sweep", logger.Backend("postgres"), logger.Int("deleted", int(n)))
	}
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) Close() error {
	s.sw.close()
	s.pool.Close()
	return nil
}
