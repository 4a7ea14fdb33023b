package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Friztone/AlertMe/internal/backend"
	"github.com/Friztone/AlertMe/internal/config"
	"github.com/Friztone/AlertMe/pkg/logger"
	"github.com/Friztone/AlertMe/pkg/utils"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := backend.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Error("token issuer init failed", "err", err)
		os.Exit(1)
	}

	var store backend.Store
	if cfg.DatabaseDSN != "" {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.DatabaseDSN, utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		sqlStore := backend.NewSQLStore(db)
		if err := sqlStore.Migrate(rootCtx); err != nil {
			log.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		store = sqlStore
		log.Info("using postgres store")
	} else {
		mem := backend.NewMemoryStore()
		mem.SeedOffices()
		store = mem
		log.Info("using in-memory store with seeded offices")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	srv := backend.NewServer(store, tokens, log, backend.Options{
		Redis:       rdb,
		LoginLimit:  cfg.LoginRateLimit,
		LoginWindow: cfg.LoginRateWindow,
		UploadDir:   cfg.UploadDir,
	})

	router := srv.Router()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("devserver listening", "addr", httpSrv.Addr, "env", cfg.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
