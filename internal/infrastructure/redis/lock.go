package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLocked otro proceso tiene el lock.
var ErrLocked = errors.New("lock tomado por otro proceso")

// Locker lock distribuido para procesos que no deben correr en paralelo (ej. backfill de cartera).
type Locker struct {
	client *redislock.Client
}

// NewLocker construye el locker sobre el cliente Redis.
func NewLocker(rdb redis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Lock lock obtenido; se mantiene vivo con Refresh y se suelta con Release.
type Lock struct {
	lock *redislock.Lock
	ttl  time.Duration
}

// Obtain intenta tomar key una sola vez (sin reintentos). Devuelve ErrLocked si está tomado.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtener lock %s: %w", key, err)
	}
	return &Lock{lock: lock, ttl: ttl}, nil
}

// Refresh extiende el TTL; falla si el lock expiró y lo tomó otro.
func (l *Lock) Refresh(ctx context.Context) error {
	if err := l.lock.Refresh(ctx, l.ttl, nil); err != nil {
		return fmt.Errorf("renovar lock %s: %w", l.lock.Key(), err)
	}
	return nil
}

// Release suelta el lock. Soltar uno ya expirado no es error.
func (l *Lock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("soltar lock %s: %w", l.lock.Key(), err)
	}
	return nil
}
