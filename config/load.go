package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"p2pradar/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env      string         `yaml:"env"`
	Poll     PollConfig     `yaml:"poll"`
	Sources  SourcesConfig  `yaml:"sources"`
	Filter   FilterConfig   `yaml:"filter"`
	Engine   EngineConfig   `yaml:"engine"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Stream   StreamConfig   `yaml:"stream"`
	History  HistoryConfig  `yaml:"history"`
	Log      logger.Config  `yaml:"log"`
}

type PollConfig struct {
	IntervalSec       int `yaml:"intervalSec"`       // delay between cycles
	Workers           int `yaml:"workers"`           // bound on concurrent source fetches
	RequestTimeoutSec int `yaml:"requestTimeoutSec"` // per-request deadline
}

func (p PollConfig) Interval() time.Duration       { return time.Duration(p.IntervalSec) * time.Second }
func (p PollConfig) RequestTimeout() time.Duration { return time.Duration(p.RequestTimeoutSec) * time.Second }

type SourcesConfig struct {
	Asset        string        `yaml:"asset"` // e.g. USDT
	Fiat         string        `yaml:"fiat"`  // e.g. ETB
	Bybit        BybitConfig   `yaml:"bybit"`
	P2PArmy      P2PArmyConfig `yaml:"p2pArmy"`
	OfficialRate string        `yaml:"officialRateURL"`
	PegRate      string        `yaml:"pegRateURL"`
}

type BybitConfig struct {
	Enabled  bool     `yaml:"enabled"`
	BaseURL  string   `yaml:"baseURL"`
	MaxPages int      `yaml:"maxPages"`
	Sides    []string `yaml:"sides"`
}

type P2PArmyConfig struct {
	Enabled bool     `yaml:"enabled"`
	BaseURL string   `yaml:"baseURL"`
	APIKey  string   `yaml:"apiKey"`
	Markets []string `yaml:"markets"` // venues mirrored through the aggregator
	Limit   int      `yaml:"limit"`
	Sides   []string `yaml:"sides"`
}

type FilterConfig struct {
	BandMin    float64 `yaml:"bandMin"`    // hard sanity band, exclusive bounds
	BandMax    float64 `yaml:"bandMax"`
	ScamFactor float64 `yaml:"scamFactor"` // bait cutoff relative to median, display only
	TopOffers  int     `yaml:"topOffers"`  // offer feed length
}

type EngineConfig struct {
	DustThreshold float64 `yaml:"dustThreshold"`
	WhaleCeiling  float64 `yaml:"whaleCeiling"`
}

type SnapshotConfig struct {
	Backend      string `yaml:"backend"` // file or redis
	Path         string `yaml:"path"`
	RedisKey     string `yaml:"redisKey"`
	StalenessMin int    `yaml:"stalenessMin"`
}

func (s SnapshotConfig) Staleness() time.Duration {
	return time.Duration(s.StalenessMin) * time.Minute
}

type LedgerConfig struct {
	Backend      string `yaml:"backend"` // memory, file or redis
	Path         string `yaml:"path"`
	RedisKey     string `yaml:"redisKey"`
	RetentionMin int    `yaml:"retentionMin"`
}

func (l LedgerConfig) Retention() time.Duration {
	return time.Duration(l.RetentionMin) * time.Minute
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the metrics server
}

type StreamConfig struct {
	Addr string `yaml:"addr"` // empty disables the websocket feed
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns the built-in configuration; Load merges the file on top.
func Defaults() AppConfig {
	return AppConfig{
		Env: "dev",
		Poll: PollConfig{
			IntervalSec:       300,
			Workers:           10,
			RequestTimeoutSec: 10,
		},
		Sources: SourcesConfig{
			Asset: "USDT",
			Fiat:  "ETB",
			Bybit: BybitConfig{
				Enabled:  true,
				BaseURL:  "https://api2.bybit.com",
				MaxPages: 5,
				Sides:    []string{"SELL", "BUY"},
			},
			P2PArmy: P2PArmyConfig{
				Enabled: true,
				BaseURL: "https://p2p.army",
				Markets: []string{"binance", "mexc"},
				Limit:   100,
				Sides:   []string{"SELL"},
			},
			OfficialRate: "https://open.er-api.com",
			PegRate:      "https://api.coingecko.com",
		},
		Filter: FilterConfig{
			BandMin:    10,
			BandMax:    500,
			ScamFactor: 0.90,
			TopOffers:  15,
		},
		Engine: EngineConfig{
			DustThreshold: 5,
			WhaleCeiling:  10000,
		},
		Snapshot: SnapshotConfig{
			Backend:      "file",
			Path:         "data/snapshot.json",
			StalenessMin: 20,
		},
		Ledger: LedgerConfig{
			Backend:      "file",
			Path:         "data/ledger.json",
			RetentionMin: 360,
		},
		Metrics: MetricsConfig{Addr: ":9100"},
		Log:     logger.DefaultConfig(),
	}
}

// Load reads YAML config from path over the defaults and validates it.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env
// vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("RADAR_P2P_ARMY_KEY"); v != "" {
		cfg.Sources.P2PArmy.APIKey = v
	}
	if v := os.Getenv("RADAR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RADAR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	return cfg, Validate(cfg)
}
