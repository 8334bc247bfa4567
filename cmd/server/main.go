package main // Entry point package

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/subvault/subscription-portal/internal/config"
    "github.com/subvault/subscription-portal/internal/database"
    "github.com/subvault/subscription-portal/internal/handler"
    "github.com/subvault/subscription-portal/internal/middleware"
    "github.com/subvault/subscription-portal/internal/queue"
    "github.com/subvault/subscription-portal/internal/repository"
    "github.com/subvault/subscription-portal/internal/router"
    "github.com/subvault/subscription-portal/internal/service"
    "github.com/subvault/subscription-portal/internal/workflow"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    if err := godotenv.Load(); err != nil {
        log.Printf("no .env file loaded: %v", err)
    }
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connection failed: %v", err)
    }
    defer db.Close()

    // Redis is optional: with a nil client the rate limiter and response
    // cache disable themselves and alert dedupe falls back to the engine.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Printf("redis unavailable; rate limiting and response caching disabled")
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    subs := repository.NewSubscriptionRepo(db)
    notes := repository.NewNotificationRepo(db)
    depts := repository.NewDepartmentRepo(db)

    rates := workflow.DefaultRates()
    if cfg.CurrencyRates != "" {
        rates, err = workflow.ParseRates(cfg.CurrencyRates)
        if err != nil {
            log.Fatalf("invalid CURRENCY_RATES: %v", err)
        }
    }

    engine := workflow.NewEngine(subs, repository.NewDirectoryAdapter(users), service.NewQueueNotifier(), rates)

    // Consume notification events into the notifications table. Runs for
    // the lifetime of the process and reconnects on broker failures.
    go func() {
        if err := queue.StartNotificationConsumer(notes); err != nil {
            log.Printf("notification consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
    router.RegisterSubscriptions(e, handler.NewSubscriptionHandler(engine, subs, users, rdb, cfg.AlertDays), cfg.JWTSecret, cache)
    router.RegisterHOD(e, handler.NewHODHandler(engine, users), cfg.JWTSecret)
    router.RegisterFinance(e, handler.NewFinanceHandler(engine, subs, users), cfg.JWTSecret)
    router.RegisterAdmin(e, handler.NewAdminHandler(engine, subs, users, depts), cfg.JWTSecret)
    router.RegisterNotifications(e, handler.NewNotificationHandler(notes), cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
