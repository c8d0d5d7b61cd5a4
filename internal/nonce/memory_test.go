package nonce

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryConsumeExactlyOnce(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	tok := Generate("xx")
	if err := s.Store(ctx, tok); err != nil {
		t.Fatalf("store: %v", err)
	}

	ok, err := s.Consume(ctx, tok)
	if err != nil || !ok {
		t.Fatalf("primer consume = (%v, %v), want (true, nil)", ok, err)
	}
	for i := 0; i < 3; i++ {
		ok, err = s.Consume(ctx, tok)
		if err != nil || ok {
			t.Fatalf("consume repetido = (%v, %v), want (false, nil)", ok, err)
		}
	}
}

func TestMemoryConsumeUnknown(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()

	ok, err := s.Consume(context.Background(), Generate("xx"))
	if err != nil || ok {
		t.Fatalf("consume de token nunca guardado = (%v, %v)", ok, err)
	}
}

func TestMemoryConsumeExpired(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	tok := Generate("xx")
	if err := s.Store(ctx, tok); err != nil {
		t.Fatalf("store: %v", err)
	}

	// Avanza el reloj más allá del TTL sin barrer: el registro sigue ahí
	// pero tiene que contar como inexistente.
	now = now.Add(time.Minute + time.Millisecond)
	ok, err := s.Consume(ctx, tok)
	if err != nil || ok {
		t.Fatalf("consume post-expiración = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestMemoryStoreIdempotent(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	tok := Generate("xx")
	if err := s.Store(ctx, tok); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Store(ctx, tok); err != nil {
		t.Fatalf("re-store: %v", err)
	}
	if ok, _ := s.Consume(ctx, tok); !ok {
		t.Fatal("consume tras doble store tiene que dar true")
	}
	if ok, _ := s.Consume(ctx, tok); ok {
		t.Fatal("el doble store no puede habilitar un segundo consumo")
	}
}

func TestMemoryConcurrentConsumeSingleWinner(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	tok := Generate("xx")
	if err := s.Store(ctx, tok); err != nil {
		t.Fatalf("store: %v", err)
	}

	const goroutines = 64
	var wins int64
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.Consume(ctx, tok)
			if err != nil {
				t.Errorf("consume: %v", err)
			}
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("exactamente un consumidor tiene que ganar, ganaron %d", wins)
	}
}

func TestMemorySweepRemovesExpiredOnly(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	old := Generate("aa")
	if err := s.Store(ctx, old); err != nil {
		t.Fatalf("store: %v", err)
	}

	now = now.Add(30 * time.Second)
	fresh := Generate("aa")
	if err := s.Store(ctx, fresh); err != nil {
		t.Fatalf("store: %v", err)
	}

	// old expira, fresh no
	now = now.Add(45 * time.Second)
	s.Sweep("aa")

	sh := s.shard("aa")
	sh.mu.Lock()
	_, oldThere := sh.entries[old]
	_, freshThere := sh.entries[fresh]
	sh.mu.Unlock()

	if oldThere {
		t.Fatal("el sweep tenía que borrar el registro expirado")
	}
	if !freshThere {
		t.Fatal("el sweep no puede borrar registros vigentes")
	}

	// Sweep repetido: no-op, sin errores
	s.Sweep("aa")

	if ok, _ := s.Consume(ctx, fresh); !ok {
		t.Fatal("fresh tenía que seguir siendo consumible tras el sweep")
	}
}

func TestMemorySweepConcurrentWithConsume(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	tokens := make([]string, 100)
	for i := range tokens {
		tokens[i] = Generate("zz")
		if err := s.Store(ctx, tokens[i]); err != nil {
			t.Fatalf("store: %v", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.Sweep("zz")
		}
	}()
	go func() {
		defer wg.Done()
		for _, tok := range tokens {
			if _, err := s.Consume(ctx, tok); err != nil {
				t.Errorf("consume durante sweep: %v", err)
			}
		}
	}()
	wg.Wait()
}

func TestMemoryPartitionsAreIndependent(t *testing.T) {
	s := NewMemory(time.Minute)
	defer s.Close()
	ctx := context.Background()

	a := Generate("aa")
	b := Generate("bb")
	if err := s.Store(ctx, a); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Store(ctx, b); err != nil {
		t.Fatalf("store: %v", err)
	}

	// Barrer aa no puede tocar bb
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	s.Sweep("aa")
	s.now = time.Now

	if ok, _ := s.Consume(ctx, b); !ok {
		t.Fatal("el sweep de otra partición no puede afectar este token")
	}
}
