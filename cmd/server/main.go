package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/JackDiSalvatore/EOS-DEX/internal/adapter/cache"
	"github.com/JackDiSalvatore/EOS-DEX/internal/adapter/memory"
	"github.com/JackDiSalvatore/EOS-DEX/internal/adapter/pg"
	httpapi "github.com/JackDiSalvatore/EOS-DEX/internal/api/http"
	"github.com/JackDiSalvatore/EOS-DEX/internal/config"
	"github.com/JackDiSalvatore/EOS-DEX/internal/core"
	"github.com/JackDiSalvatore/EOS-DEX/internal/logger"
	"github.com/JackDiSalvatore/EOS-DEX/internal/middleware"
	"github.com/JackDiSalvatore/EOS-DEX/internal/port"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("EXCHANGE_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.LogLevel)
	defer func() { _ = zlog.Sync() }()

	var stores port.Stores
	if cfg.PostgresDSN != "" {
		pgStore, err := pg.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			zlog.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			zlog.Fatal("failed to prepare postgres schema", zap.Error(err))
		}
		stores = pgStore.Stores()
		zlog.Info("using postgres store")
	} else {
		stores = memory.NewStore().Stores()
		zlog.Info("using in-memory store")
	}

	var bookCache port.Cache
	if cfg.RedisAddr != "" {
		bookCache = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		zlog.Info("using redis cache", zap.String("addr", cfg.RedisAddr))
	} else {
		bookCache = memory.NewCache()
	}

	gateway := memory.NewTransferRecorder(zlog.Named("gateway"))
	engine := core.NewEngine(stores, bookCache, gateway, cfg.ExchangeAccount, zlog.Named("engine"))

	limiter := middleware.NewRateLimiter(cfg.RateInterval)
	server := httpapi.NewServer(engine, cfg.OperatorAccount, limiter, zlog.Named("http"))

	zlog.Info("starting HTTP server", zap.String("addr", cfg.ListenAddr))
	if err := server.Run(cfg.ListenAddr); err != nil {
		zlog.Fatal("HTTP server failed", zap.Error(err))
	}
}
