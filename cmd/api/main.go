package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerforge/ledgerd/internal/auth"
	"github.com/ledgerforge/ledgerd/internal/cache"
	"github.com/ledgerforge/ledgerd/internal/config"
	"github.com/ledgerforge/ledgerd/internal/database"
	"github.com/ledgerforge/ledgerd/internal/httpapi"
	"github.com/ledgerforge/ledgerd/internal/logger"
	"github.com/ledgerforge/ledgerd/internal/postgres"
	"github.com/ledgerforge/ledgerd/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("starting ledger service", "env", cfg.Env, "port", cfg.Port)

	db, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connection established")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL, Password: cfg.RedisPassword})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("redis connection established")

	redisCache := cache.New(redisClient, log)

	ledgerRepo := cache.NewCachedLedgerRepository(postgres.NewLedgerRepository(db.Pool), redisCache)
	accountRepo := cache.NewCachedAccountRepository(postgres.NewAccountRepository(db.Pool), redisCache)
	transactionRepo := postgres.NewTransactionRepository(db.Pool)
	settlementRepo := postgres.NewSettlementRepository(db.Pool)
	monitorRepo := postgres.NewMonitorRepository(db.Pool)
	statementRepo := postgres.NewStatementRepository(db.Pool)

	retryPolicy := service.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}

	ledgerSvc := service.NewLedgerService(ledgerRepo)
	accountSvc := service.NewAccountService(accountRepo, ledgerRepo)
	transactionSvc := service.NewTransactionService(transactionRepo, ledgerRepo, retryPolicy, log)
	settlementSvc := service.NewSettlementService(settlementRepo, accountRepo, ledgerRepo, transactionSvc)
	monitorSvc := service.NewMonitorService(monitorRepo, accountRepo, log)
	statementSvc := service.NewStatementService(statementRepo, accountRepo, ledgerRepo)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	rateLimiter := httpapi.NewRateLimiter(cfg.RateLimitRequestsPerSecond, cfg.RateLimitBurst)

	allowedOrigins := []string{"http://localhost:5173"}
	if cfg.IsProduction() {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins = []string{origins}
		}
	}

	router := httpapi.New(httpapi.Config{
		Handlers: &httpapi.Handlers{
			Ledgers:                        ledgerSvc,
			Accounts:                       accountSvc,
			Transactions:                   transactionSvc,
			Settlements:                    settlementSvc,
			Monitors:                       monitorSvc,
			Statements:                     statementSvc,
			AllowPostedTransactionDeletion: cfg.AllowPostedTransactionDeletion,
		},
		Logger:         log,
		Verifier:       verifier,
		AllowedOrigins: allowedOrigins,
		RateLimiter:    rateLimiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped gracefully")
}
