package nonce

import (
	"sync"
	"time"
)

// sweeper agenda barridos diferidos por partición. Se arma un timer por pool
// sólo si no hay uno pendiente (mismo contrato que una alarma: a lo sumo una
// programada por partición), y se rearma únicamente cuando queda trabajo.
type sweeper struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	fire   func(pool string)
	closed bool
}

func newSweeper(delay time.Duration, fire func(pool string)) *sweeper {
	return &sweeper{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		fire:   fire,
	}
}

// arm agenda un barrido para el pool si no hay uno pendiente.
func (s *sweeper) arm(pool string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.timers[pool]; ok {
		return
	}
	s.timers[pool] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, pool)
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.fire(pool)
		}
	})
}

// close frena todos los timers pendientes.
func (s *sweeper) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for pool, t := range s.timers {
		t.Stop()
		delete(s.timers, pool)
	}
}
