package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wagerd/config"
	"wagerd/controllers/account"
	"wagerd/controllers/wager"
	"wagerd/database"
	"wagerd/escrow"
	"wagerd/helpers"
	"wagerd/jobs"
	"wagerd/middlewares"
	"wagerd/routes"
	"wagerd/substrate"
	_ "wagerd/substrate/gormstore"
	_ "wagerd/substrate/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deps substrate.Deps
	if cfg.UsesDatabase() {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		deps.DB = db
	}

	backend, err := substrate.Open(cfg.Wager.Substrate, deps)
	if err != nil {
		log.Fatalf("❌ Failed to open substrate: %v", err)
	}
	log.Infof("✅ Using %s substrate", cfg.Wager.Substrate)

	var idempotency middlewares.IdempotencyStore
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("❌ Failed to connect to redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		idempotency = middlewares.NewRedisIdempotency(rdb)
		log.Info("✅ Idempotency cache enabled")
	}

	engine := escrow.NewEngine(backend, escrow.SystemClock)
	validate := helpers.NewValidator()

	app := fiber.New(fiber.Config{AppName: "wagerd"})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	routes.Setup(app, cfg, routes.Handlers{
		Account:     account.NewHandler(backend, cfg.JWT, validate),
		Wager:       wager.NewHandler(engine, cfg.Wager, validate),
		Idempotency: idempotency,
	})
	scanner := jobs.StartExpiryScanner(ctx, engine, cfg.Wager.ScanInterval)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Info("Server running at ", addr)

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Panicf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	log.Info("Gracefully shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	<-scanner
	log.Info("Server exited cleanly")
}
