package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter es la implementación en memoria de la ventana deslizante.
// Pensada para tests y despliegues de un solo proceso; en producción se usa
// la variante Redis.
type MemoryLimiter struct {
	cfg      Config
	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewMemoryLimiter crea un limiter en memoria.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:      cfg,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow verifica si la clave tiene intentos disponibles dentro de la ventana.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.prune(key)) < l.cfg.MaxAttempts, nil
}

// RecordFailure registra un intento fallido.
func (l *MemoryLimiter) RecordFailure(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempts[key] = append(l.prune(key), l.now())
	return nil
}

// Reset limpia el contador de una clave.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.attempts, key)
	return nil
}

// prune descarta los intentos fuera de la ventana. Debe llamarse con el lock.
func (l *MemoryLimiter) prune(key string) []time.Time {
	cutoff := l.now().Add(-l.cfg.Window)
	kept := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, key)
		return nil
	}
	l.attempts[key] = kept
	return kept
}
