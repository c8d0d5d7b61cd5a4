package nonce

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implementa Store con shards en memoria por partición.
// Útil para desarrollo y testing; también sirve para despliegues de un
// solo proceso.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	shards map[string]*memShard

	sw *sweeper
}

// memShard guarda token -> expiración (unix milli) bajo su propio lock,
// de modo que Consume sea un borrado condicional en un solo paso.
type memShard struct {
	mu      sync.Mutex
	entries map[string]int64
}

// NewMemory crea un MemoryStore con el TTL dado (DefaultTTL si ttl <= 0).
func NewMemory(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		shards: make(map[string]*memShard),
	}
	s.sw = newSweeper(ttl, s.onSweep)
	return s
}

func (s *MemoryStore) shard(pool string) *memShard {
	s.mu.RLock()
	sh, ok := s.shards[pool]
	s.mu.RUnlock()
	if ok {
		return sh
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok = s.shards[pool]; ok {
		return sh
	}
	sh = &memShard{entries: make(map[string]int64)}
	s.shards[pool] = sh
	return sh
}

func (s *MemoryStore) Store(ctx context.Context, token string) error {
	pool := Pool(token)
	sh := s.shard(pool)

	exp := s.now().Add(s.ttl).UnixMilli()
	sh.mu.Lock()
	sh.entries[token] = exp
	sh.mu.Unlock()

	s.sw.arm(pool)
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, token string) (bool, error) {
	sh := s.shard(Pool(token))

	// Borrado condicional bajo el lock del shard: ningún otro consumidor
	// puede observar el registro entre el lookup y el delete.
	sh.mu.Lock()
	exp, ok := sh.entries[token]
	if ok {
		delete(sh.entries, token)
	}
	sh.mu.Unlock()

	if !ok {
		return false, nil
	}
	return s.now().UnixMilli() < exp, nil
}

// Sweep borra todos los registros expirados de la partición. Es idempotente
// y seguro de correr en paralelo con Consume: borrar un registro ya borrado
// no es un error.
func (s *MemoryStore) Sweep(pool string) {
	sh := s.shard(pool)
	now := s.now().UnixMilli()

	sh.mu.Lock()
	for tok, exp := range sh.entries {
		if exp <= now {
			delete(sh.entries, tok)
		}
	}
	pending := len(sh.entries)
	sh.mu.Unlock()

	// Rearma sólo si queda trabajo pendiente.
	if pending > 0 {
		s.sw.arm(pool)
	}
}

func (s *MemoryStore) onSweep(pool string) { s.Sweep(pool) }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error {
	s.sw.close()
	return nil
}
