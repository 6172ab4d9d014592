package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appwallet "github.com/jhoicas/Cartera-api/internal/application/wallet"
	"github.com/jhoicas/Cartera-api/internal/domain/repository"
	"github.com/jhoicas/Cartera-api/internal/infrastructure/memory"
	"github.com/jhoicas/Cartera-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Cartera-api/internal/infrastructure/redis"
	"github.com/jhoicas/Cartera-api/internal/infrastructure/sqlite"
	httpRouter "github.com/jhoicas/Cartera-api/internal/interfaces/http"
	"github.com/jhoicas/Cartera-api/pkg/config"
	"github.com/jhoicas/Cartera-api/pkg/logger"
)

// pinger almacenes que pueden verificar su conexión para /health.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Wallet.Store).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		repo  repository.MovementRepository
		probe pinger
	)
	switch cfg.Wallet.Store {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("esquema de cartera")
		}
		repo = postgres.NewMovementRepository(pool, postgres.NewTxRunner(pool))
		probe = pool
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.Wallet.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Wallet.SQLitePath).Msg("base SQLite")
		}
		defer db.Close()
		repo = db
		probe = db
	default:
		log.Warn().Msg("cartera en memoria: los movimientos se pierden al reiniciar")
		repo = memory.NewMovementRepository()
	}

	var cache appwallet.BalanceCache
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		cache = infraredis.NewBalanceCache(rdb, cfg.Redis.CacheTTL, cfg.App.Name)
	}

	walletUC := appwallet.NewUseCase(repo, nil, cache, log, appwallet.Config{
		PageDefault: cfg.Wallet.PageDefault,
		PageMax:     cfg.Wallet.PageMax,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Cartera API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if probe != nil {
			pingCtx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			if err := probe.Ping(pingCtx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name, "store": cfg.Wallet.Store})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Wallet.Store})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Wallet:    walletUC,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
