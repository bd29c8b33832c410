// Command scan runs a single poll cycle and prints the result as JSON.
// Useful for checking source connectivity and tuning the filter band without
// starting the daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"p2pradar/config"
	"p2pradar/gateway"
	"p2pradar/infer"
	"p2pradar/infrastructure/logger"
	"p2pradar/ledger"
	"p2pradar/market"
	"p2pradar/poller"
	"p2pradar/snapshot"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to config file")
	timeout := flag.Duration("timeout", 60*time.Second, "overall deadline for the cycle")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	engine, err := infer.New(infer.Config{
		DustThreshold: cfg.Engine.DustThreshold,
		WhaleCeiling:  cfg.Engine.WhaleCeiling,
	}, nil)
	if err != nil {
		log.Fatalf("init inference engine: %v", err)
	}

	httpClient := gateway.NewDefaultHTTPClient()
	sources, err := poller.SourcesFromConfig(cfg.Sources, httpClient, gateway.NewTokenBucketLimiter(2, 4))
	if err != nil {
		log.Fatalf("build sources: %v", err)
	}

	// A scan diffs against a throwaway snapshot so it never perturbs the
	// daemon's state.
	scratch := filepath.Join(os.TempDir(), "p2pradar-scan-snapshot.json")
	defer os.Remove(scratch)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	p := poller.New(poller.Options{
		Sources:        sources,
		Official:       &gateway.RateProvider{BaseURL: cfg.Sources.OfficialRate, Quote: cfg.Sources.Fiat, HTTPClient: httpClient},
		Peg:            &gateway.PegProvider{BaseURL: cfg.Sources.PegRate, HTTPClient: httpClient},
		Filter:         market.Filter{Band: market.Band{Min: cfg.Filter.BandMin, Max: cfg.Filter.BandMax}},
		ScamFactor:     cfg.Filter.ScamFactor,
		TopOffers:      cfg.Filter.TopOffers,
		Engine:         engine,
		Store:          &snapshot.FileStore{Path: scratch, Staleness: cfg.Snapshot.Staleness()},
		Ledger:         ledger.New(ctx, cfg.Ledger.Retention(), nil),
		Log:            logger.NewNop(),
		Workers:        cfg.Poll.Workers,
		RequestTimeout: cfg.Poll.RequestTimeout(),
	})

	res, err := p.RunCycle(ctx)
	if err != nil {
		log.Fatalf("cycle: %v", err)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))
}
