package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"parcelone/internal/cache"
	"parcelone/internal/cache/memstore"
	"parcelone/internal/cache/redisstore"
	"parcelone/internal/core/config"
	"parcelone/internal/core/health"
	"parcelone/internal/core/httpclient"
	"parcelone/internal/core/observability"
	"parcelone/internal/core/router"
	"parcelone/internal/core/server"
	"parcelone/internal/export"
	"parcelone/internal/invalidation/kafkaconsumer"
	"parcelone/internal/logger"
	"parcelone/internal/wfs"
	"parcelone/internal/zones"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "parcelsd",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting parcelsd",
		"addr", cfg.Addr,
		"version", Version,
		"wfs_c", cfg.WFSBaseC,
		"wfs_e", cfg.WFSBaseE)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hc := httpclient.NewOutbound(cfg.ConnectTimeout, cfg.ReadTimeout)
	client := wfs.NewClient(hc, appLog, cfg.RetryAttempts, cfg.RetryBackoff)
	fetcher := wfs.NewFetcher(client, cfg.WFSBaseC, cfg.WFSBaseE, wfs.Options{
		PageSize:          cfg.PageSize,
		PreviewPageSize:   cfg.PreviewPageSize,
		StartIndexCeiling: cfg.StartIndexCeiling,
		MinPlausibleBytes: cfg.MinPlausibleBytes,
	}, observability.StepSink())

	var store cache.Interface
	readiness := map[string]health.Pinger{}
	if cfg.RedisAddr != "" {
		rc, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			appLog.Error("redis unavailable", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		store = rc
		readiness["redis"] = rc
		appLog.Info("cache backend", "driver", "redis", "addr", cfg.RedisAddr)
	} else {
		store = memstore.New(cfg.CacheMemSize)
		appLog.Info("cache backend", "driver", "memory", "size", cfg.CacheMemSize)
	}

	cached := cache.NewCachedFetcher(fetcher, store, cfg.CacheTTL, appLog,
		cfg.CacheOpTimeout, cfg.PageSize, cfg.PreviewPageSize)

	var conv export.Converter
	if c, err := export.NewOGRConverter(cfg.Ogr2ogrPath); err == nil {
		conv = c
	} else if errors.Is(err, export.ErrConverterUnavailable) {
		appLog.Warn("ogr2ogr not found, gpkg/kml export disabled")
	}

	if cfg.Invalidation.Enabled && cfg.Invalidation.Driver == "kafka" {
		consumer := kafkaconsumer.New(kafkaconsumer.Config{
			Brokers:             splitCSV(cfg.Invalidation.Brokers),
			Topic:               cfg.Invalidation.Topic,
			GroupID:             cfg.Invalidation.GroupID,
			InitialOffsetOldest: true,
		}, appLog, cached)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				appLog.Error("invalidation consumer exited", "err", err)
			}
		}()
	}

	handlers := router.NewHandlers(appLog, cached, fetcher, zones.Default(), conv, cfg.PreviewPageSize)

	if err := server.Run(ctx, cfg, appLog, handlers, readiness); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
