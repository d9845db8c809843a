package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/session-ledger/internal/config"
	"github.com/nimasrn/session-ledger/internal/handlers"
	"github.com/nimasrn/session-ledger/internal/idempotency"
	"github.com/nimasrn/session-ledger/internal/repository"
	"github.com/nimasrn/session-ledger/internal/services"
	"github.com/nimasrn/session-ledger/internal/session"
	xhttp "github.com/nimasrn/session-ledger/pkg/http"
	"github.com/nimasrn/session-ledger/pkg/logger"
	"github.com/nimasrn/session-ledger/pkg/pg"
	"github.com/nimasrn/session-ledger/pkg/prom"
	"github.com/nimasrn/session-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()

	if err = logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("ignoring LOG_LEVEL", "error", err)
	}
	logger.Info("starting session ledger", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

	if cfg.AppDebugMetricsAddr != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed to create prometheus metrics", "error", err)
			return
		}
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	// transport (tcp for now)
	opt := xhttp.DefaultServerOption
	opt.Name = cfg.AppName
	opt.ReadTimeout = cfg.HttpServerReadTimeout
	opt.WriteTimeout = cfg.HttpServerWriteTimeout
	s := xhttp.NewServer(opt)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpServerRequestTimeout))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	db, err := pg.CreateReadWrite(cfg.ReadStore(), cfg.Store(), cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to the store", "driver", cfg.DBDriver, "error", err)
		return
	}
	defer db.Close()

	// idempotency keys are optional; without redis the header is ignored
	var idem services.IdempotencyStore
	if cfg.RedisAddr != "" {
		redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{cfg.RedisAddr},
			ClientName: cfg.AppName,
			DB:         cfg.RedisDatabase,
			Username:   cfg.RedisUsername,
			Password:   cfg.RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		defer redisAdap.Close()
		idem = idempotency.NewService(redisAdap, idempotency.Config{TTL: cfg.IdempotencyTTL, KeyPrefix: "idempotency:"})
	}

	transactionRepo := repository.NewTransactionRepository(db)

	// services
	transactionService := services.NewTransactionService(transactionRepo, idem)
	healthService := services.NewHealthService(db)

	guard := session.NewGuard(session.Options{Path: cfg.SessionCookiePath, MaxAge: cfg.SessionMaxAge})

	// handlers
	transactionHandler := handlers.NewTransactionHandler(transactionService, guard)
	healthHandler := handlers.NewHealthHandler(healthService)

	handlers.RegisterTransactionRoutes(s.Router, cfg.HttpBaseRequestUrl, transactionHandler)
	handlers.RegisterHealthRoutes(s.Router.Group("/api/v1"), healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if path, ok := strings.CutPrefix(v, "--env="); ok {
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "path", path, "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
