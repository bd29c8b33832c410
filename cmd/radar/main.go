// Command radar polls P2P order books on a fixed interval, infers trades
// from inventory deltas and serves the aggregated view over metrics and an
// optional websocket feed.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"p2pradar/config"
	"p2pradar/gateway"
	"p2pradar/history"
	"p2pradar/infer"
	"p2pradar/infrastructure/logger"
	"p2pradar/ledger"
	"p2pradar/market"
	"p2pradar/metrics"
	"p2pradar/poller"
	"p2pradar/snapshot"
	"p2pradar/stream"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Close()

	if cfg.Metrics.Addr != "" {
		metrics.StartMetricsServer(cfg.Metrics.Addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Snapshot.Backend == "redis" || cfg.Ledger.Backend == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logg.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
	}

	store := buildSnapshotStore(cfg, rdb)
	book := ledger.New(ctx, cfg.Ledger.Retention(), buildLedgerPersister(cfg, rdb))

	engine, err := infer.New(infer.Config{
		DustThreshold: cfg.Engine.DustThreshold,
		WhaleCeiling:  cfg.Engine.WhaleCeiling,
	}, nil)
	if err != nil {
		logg.Fatal("init inference engine", zap.Error(err))
	}

	httpClient := gateway.NewDefaultHTTPClient()
	sources, err := poller.SourcesFromConfig(cfg.Sources, httpClient, gateway.NewTokenBucketLimiter(2, 4))
	if err != nil {
		logg.Fatal("build sources", zap.Error(err))
	}
	p := poller.New(poller.Options{
		Sources:        sources,
		Official:       &gateway.RateProvider{BaseURL: cfg.Sources.OfficialRate, Quote: cfg.Sources.Fiat, HTTPClient: httpClient},
		Peg:            &gateway.PegProvider{BaseURL: cfg.Sources.PegRate, HTTPClient: httpClient},
		Filter:         market.Filter{Band: market.Band{Min: cfg.Filter.BandMin, Max: cfg.Filter.BandMax}},
		ScamFactor:     cfg.Filter.ScamFactor,
		TopOffers:      cfg.Filter.TopOffers,
		Engine:         engine,
		Store:          store,
		Ledger:         book,
		Log:            logg,
		Workers:        cfg.Poll.Workers,
		RequestTimeout: cfg.Poll.RequestTimeout(),
	})

	var hub *stream.Hub
	if cfg.Stream.Addr != "" {
		hub = stream.NewHub(logg)
		go func() {
			if err := stream.Serve(cfg.Stream.Addr, hub); err != nil {
				logg.Error("stream server stopped", zap.Error(err))
			}
		}()
	}

	var hist *history.Writer
	if cfg.History.Enabled {
		hist = &history.Writer{Path: cfg.History.Path}
	}

	// Hot reload: only the filter band and engine thresholds are swapped at
	// runtime; source topology changes need a restart.
	watcher := config.Watcher{Path: *cfgPath}
	go func() {
		err := watcher.Start(ctx, func(next config.AppConfig) {
			p.ApplyFilter(market.Filter{Band: market.Band{Min: next.Filter.BandMin, Max: next.Filter.BandMax}}, next.Filter.ScamFactor)
			if err := engine.SetThresholds(infer.Config{
				DustThreshold: next.Engine.DustThreshold,
				WhaleCeiling:  next.Engine.WhaleCeiling,
			}); err != nil {
				logg.Warn("reload thresholds rejected", zap.Error(err))
				return
			}
			logg.Info("config reloaded",
				zap.Float64("bandMin", next.Filter.BandMin),
				zap.Float64("bandMax", next.Filter.BandMax),
				zap.Float64("dust", next.Engine.DustThreshold),
				zap.Float64("whale", next.Engine.WhaleCeiling),
			)
		})
		if err != nil && ctx.Err() == nil {
			logg.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	logg.Info("radar starting",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.Poll.Interval()),
		zap.Int("sources", len(sources)),
		zap.String("fiat", cfg.Sources.Fiat),
	)

	err = p.RunLoop(ctx, cfg.Poll.Interval(), func(res *poller.Result) {
		if hub != nil {
			hub.Broadcast(res)
		}
		if hist != nil && res.Stats != nil {
			if err := hist.Append(res.Taken, res.Stats, res.OfficialRate); err != nil {
				logg.Warn("history append failed", zap.Error(err))
			}
		}
	})
	if err != nil && ctx.Err() == nil {
		logg.Error("poll loop stopped", zap.Error(err))
		os.Exit(1)
	}
	logg.Info("radar shut down")
}

func buildSnapshotStore(cfg config.AppConfig, rdb *redis.Client) snapshot.Store {
	if cfg.Snapshot.Backend == "redis" {
		key := cfg.Snapshot.RedisKey
		if key == "" {
			key = "p2pradar:snapshot"
		}
		return snapshot.NewRedisStore(rdb, key, cfg.Snapshot.Staleness(), nil)
	}
	return &snapshot.FileStore{Path: cfg.Snapshot.Path, Staleness: cfg.Snapshot.Staleness()}
}

func buildLedgerPersister(cfg config.AppConfig, rdb *redis.Client) ledger.Persister {
	switch cfg.Ledger.Backend {
	case "redis":
		key := cfg.Ledger.RedisKey
		if key == "" {
			key = "p2pradar:ledger"
		}
		return ledger.NewRedisPersister(rdb, key)
	case "file":
		return &ledger.FilePersister{Path: cfg.Ledger.Path}
	default:
		return nil // memory only
	}
}

