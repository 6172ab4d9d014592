package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	appwallet "github.com/jhoicas/Cartera-api/internal/application/wallet"
	"github.com/jhoicas/Cartera-api/internal/domain/entity"
)

var _ appwallet.BalanceCache = (*BalanceCache)(nil)

// storeIfCurrent guarda el snapshot solo si la generación no avanzó mientras se calculaba.
var storeIfCurrent = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

type cachedSnapshot struct {
	Gen      int64                   `json:"gen"`
	Snapshot *entity.BalanceSnapshot `json:"snapshot"`
}

// BalanceCache caché de saldos etiquetada por generación.
//
//	<prefix>:balances:gen       contador, INCR en cada escritura a la cartera
//	<prefix>:balances:snapshot  {gen, snapshot} con TTL
type BalanceCache struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	genKey  string
	snapKey string
}

// NewBalanceCache construye la caché. prefix vacío usa "wallet".
func NewBalanceCache(rdb redis.UniversalClient, ttl time.Duration, prefix string) *BalanceCache {
	if prefix == "" {
		prefix = "wallet"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{
		rdb:     rdb,
		ttl:     ttl,
		genKey:  prefix + ":balances:gen",
		snapKey: prefix + ":balances:snapshot",
	}
}

// Get lee generación y snapshot en un solo MGET.
func (c *BalanceCache) Get(ctx context.Context) (*entity.BalanceSnapshot, int64, bool, error) {
	vals, err := c.rdb.MGet(ctx, c.genKey, c.snapKey).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("leer caché de saldos: %w", err)
	}
	gen, err := parseGen(vals[0])
	if err != nil {
		return nil, 0, false, err
	}
	raw, ok := vals[1].(string)
	if !ok {
		return nil, gen, false, nil
	}
	var cached cachedSnapshot
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.Snapshot == nil {
		// snapshot ilegible: se trata como ausente y se recalcula
		return nil, gen, false, nil
	}
	if cached.Gen != gen {
		return nil, gen, false, nil
	}
	return cached.Snapshot, gen, true, nil
}

// Store guarda el snapshot bajo gen; si la generación ya avanzó no escribe nada.
func (c *BalanceCache) Store(ctx context.Context, gen int64, snap *entity.BalanceSnapshot) error {
	payload, err := json.Marshal(cachedSnapshot{Gen: gen, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("serializar snapshot: %w", err)
	}
	err = storeIfCurrent.Run(ctx, c.rdb, []string{c.genKey, c.snapKey},
		gen, string(payload), c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("guardar snapshot de saldos: %w", err)
	}
	return nil
}

// Invalidate avanza la generación y borra el snapshot en una transacción MULTI.
func (c *BalanceCache) Invalidate(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, c.genKey)
		p.Del(ctx, c.snapKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidar caché de saldos: %w", err)
	}
	return nil
}

func parseGen(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("generación de caché con tipo inesperado")
	}
	gen, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("generación de caché inválida %q: %w", s, err)
	}
	return gen, nil
}
