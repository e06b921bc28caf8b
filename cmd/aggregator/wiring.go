package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/aggregator"
	"solana-token-aggregator/internal/config"
	"solana-token-aggregator/internal/ingestion"
	"solana-token-aggregator/internal/livefeed"
	"solana-token-aggregator/internal/retention"
	"solana-token-aggregator/internal/solana"
	"solana-token-aggregator/internal/storage"
	chstore "solana-token-aggregator/internal/storage/clickhouse"
	"solana-token-aggregator/internal/storage/kafkasink"
	"solana-token-aggregator/internal/storage/memory"
	"solana-token-aggregator/internal/storage/migrations"
	pgstore "solana-token-aggregator/internal/storage/postgres"
	"solana-token-aggregator/internal/storage/redisstorage"
)

// buildAdapters creates the four provider adapters in priority order.
func buildAdapters(cfg *config.Config, rpc solana.RPCClient, logger logrus.FieldLogger) []ingestion.Adapter {
	client := func() *ingestion.JSONClient {
		return ingestion.NewJSONClient(
			ingestion.WithRateLimit(cfg.RateLimit, 1),
			ingestion.WithRequestTimeout(cfg.FetchTimeout),
		)
	}

	var mints []string
	if len(cfg.KnownMints) > 0 {
		mints = cfg.KnownMints
	}

	return []ingestion.Adapter{
		ingestion.NewJupiterSource(cfg.JupiterURL, client(), logger),
		ingestion.NewPumpPortalSource(cfg.PumpFunURL, client(), logger),
		ingestion.NewHeliusSource(ingestion.HeliusConfig{
			BaseURL:   cfg.HeliusURL,
			APIKey:    cfg.HeliusAPIKey,
			PageLimit: cfg.HeliusPageLimit,
			MaxPages:  cfg.HeliusMaxPages,
		}, client(), logger),
		ingestion.NewChainSource(rpc, mints, logger),
	}
}

// buildSink opens the configured summary sink. The returned cleanup is never nil.
// A nil sink means persistence is disabled.
func buildSink(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (storage.SummarySink, func(), error) {
	noop := func() {}

	switch cfg.Sink {
	case config.SinkNone:
		return nil, noop, nil

	case config.SinkMemory:
		return memory.NewSummaryLog(), noop, nil

	case config.SinkPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("postgres migrations: %w", err)
		}
		return pgstore.NewSummarySink(pool), pool.Close, nil

	case config.SinkClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("clickhouse migrations: %w", err)
		}
		return chstore.NewSummarySink(conn), func() { _ = conn.Close() }, nil

	case config.SinkRedis:
		rcfg := redisstorage.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			MaxLen:   cfg.RedisMaxLen,
		}
		client, err := redisstorage.NewClient(ctx, rcfg)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to redis: %w", err)
		}
		return redisstorage.NewSummarySink(client, rcfg), func() { _ = client.Close() }, nil

	case config.SinkKafka:
		sink, err := kafkasink.New(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("create kafka producer: %w", err)
		}
		return sink, sink.Close, nil
	}

	return nil, noop, fmt.Errorf("unknown sink %q", cfg.Sink)
}

// buildService assembles the aggregator. live controls whether the PumpPortal
// feed is attached.
func buildService(ctx context.Context, cfg *config.Config, live bool, logger logrus.FieldLogger) (*aggregator.Service, func(), error) {
	store := memory.NewTokenStore()
	rpc := solana.NewHTTPClient(cfg.SolanaRPCURL, solana.WithTimeout(cfg.FetchTimeout))

	sink, cleanup, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := aggregator.Options{
		Store:           store,
		Adapters:        buildAdapters(cfg, rpc, logger),
		RPC:             rpc,
		FetchTimeout:    cfg.FetchTimeout,
		RefreshInterval: cfg.RefreshInterval,
		Logger:          logger,
	}
	if sink != nil {
		opts.Persister = retention.NewPersister(sink, retention.DefaultRules(), logger)
	}
	if live && !cfg.DisableLive {
		feedCfg := livefeed.DefaultConfig(cfg.PumpPortalWSURL)
		feedCfg.ReconnectDelay = cfg.ReconnectDelay
		opts.Live = aggregator.NewPumpPortalFeed(feedCfg, store, logger, nil)
	}

	svc, err := aggregator.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
