// backfill_wallet registra en la cartera las ventas históricas exportadas del POS.
//
// Uso: go run ./cmd/backfill_wallet ventas.csv [utf-8|iso-8859-1]
// Columnas: client_sale_id,total,payment_method,created_at (RFC3339). La primera fila es el encabezado.
//
// Es seguro relanzarlo: las ventas ya registradas se cuentan como duplicadas. Con REDIS_URL
// configurado toma un lock para que dos ejecuciones no corran a la vez.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	appwallet "github.com/jhoicas/Cartera-api/internal/application/wallet"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
	"github.com/jhoicas/Cartera-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Cartera-api/internal/infrastructure/redis"
	"github.com/jhoicas/Cartera-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/Cartera-api/pkg/config"
	"github.com/jhoicas/Cartera-api/pkg/logger"
)

const (
	lockKey     = "cartera:backfill_wallet"
	lockTTL     = 2 * time.Minute
	refreshEach = 200
)

type counts struct {
	created, duplicate, failed int
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Uso: backfill_wallet <ventas.csv> [utf-8|iso-8859-1]")
		os.Exit(2)
	}
	encoding := "utf-8"
	if len(os.Args) > 2 {
		encoding = strings.ToLower(os.Args[2])
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level}).Component("backfill_wallet")
	ctx := context.Background()

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var input io.Reader = f
	switch encoding {
	case "utf-8", "utf8":
	case "iso-8859-1", "iso8859-1", "latin1":
		input = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	default:
		fmt.Fprintf(os.Stderr, "Codificación no soportada: %s\n", encoding)
		os.Exit(2)
	}

	repo, closeRepo, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir almacén: %v\n", err)
		os.Exit(1)
	}
	defer closeRepo()

	var lock *infraredis.Lock
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Conectar Redis: %v\n", err)
			os.Exit(1)
		}
		defer rdb.Close()
		lock, err = infraredis.NewLocker(rdb).Obtain(ctx, lockKey, lockTTL)
		if errors.Is(err, infraredis.ErrLocked) {
			fmt.Fprintln(os.Stderr, "Otro backfill está en curso")
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Tomar lock: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = lock.Release(context.Background()) }()
	}

	// el backfill corre fuera del servidor: la caché de saldos se invalida en la próxima escritura
	uc := appwallet.NewUseCase(repo, nil, nil, log, appwallet.Config{})

	n, err := run(ctx, uc, input, lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backfill: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backfill terminado: %d registradas, %d duplicadas, %d fallidas\n", n.created, n.duplicate, n.failed)
	if n.failed > 0 {
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.MovementRepository, func(), error) {
	switch cfg.Wallet.Store {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewMovementRepository(pool, postgres.NewTxRunner(pool)), pool.Close, nil
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.Wallet.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("WALLET_STORE=%s no persiste; use postgres o sqlite", cfg.Wallet.Store)
	}
}

func run(ctx context.Context, uc *appwallet.UseCase, input io.Reader, lock *infraredis.Lock) (counts, error) {
	var n counts
	r := csv.NewReader(input)
	r.FieldsPerRecord = 4
	r.TrimLeadingSpace = true

	if _, err := r.Read(); err != nil {
		return n, fmt.Errorf("leer encabezado: %w", err)
	}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("línea %d: %w", line, err)
		}

		sale, err := parseRow(rec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Línea %d: %v\n", line, err)
			n.failed++
			continue
		}
		out := uc.TrySale(ctx, sale)
		switch {
		case out.Err != nil:
			n.failed++
		case out.Duplicate:
			n.duplicate++
		default:
			n.created++
		}

		if lock != nil && line%refreshEach == 0 {
			if err := lock.Refresh(ctx); err != nil {
				return n, fmt.Errorf("renovar lock: %w", err)
			}
		}
	}
}

func parseRow(rec []string) (appwallet.SaleOrigin, error) {
	total, err := decimal.NewFromString(strings.TrimSpace(rec[1]))
	if err != nil {
		return appwallet.SaleOrigin{}, fmt.Errorf("total %q: %w", rec[1], err)
	}
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[3]))
	if err != nil {
		return appwallet.SaleOrigin{}, fmt.Errorf("created_at %q: %w", rec[3], err)
	}
	return appwallet.SaleOrigin{
		ClientSaleID: strings.TrimSpace(rec[0]),
		Method:       strings.ToLower(strings.TrimSpace(rec[2])),
		Total:        total,
		At:           &at,
		Actor:        appwallet.Actor{UID: "backfill"},
	}, nil
}
