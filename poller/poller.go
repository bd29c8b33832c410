// Package poller runs the poll cycle: fan out over every configured
// (venue, side) pair, fan in, then walk the merged listings through the
// filter, the aggregator and the delta engine in one goroutine.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"p2pradar/gateway"
	"p2pradar/infer"
	"p2pradar/infrastructure/logger"
	"p2pradar/ledger"
	"p2pradar/market"
	"p2pradar/metrics"
	"p2pradar/snapshot"
)

// SourceSpec is one fetch task per cycle.
type SourceSpec struct {
	Source gateway.Source
	Side   market.Side
}

// OfficialRateProvider supplies the reference rate for premium computation.
type OfficialRateProvider interface {
	OfficialRate(ctx context.Context) (float64, error)
}

// PegRateProvider supplies the quote-currency peg against the reference
// asset.
type PegRateProvider interface {
	UsdtPeg(ctx context.Context) float64
}

// Options wires the poller's collaborators.
type Options struct {
	Sources        []SourceSpec
	Official       OfficialRateProvider // optional
	Peg            PegRateProvider      // optional
	Filter         market.Filter
	ScamFactor     float64
	TopOffers      int
	Engine         *infer.Engine
	Store          snapshot.Store
	Ledger         *ledger.Ledger
	Log            *logger.Logger
	Workers        int
	RequestTimeout time.Duration
}

// Result is the read-only outcome of one cycle, handed to reporting.
type Result struct {
	Taken        time.Time            `json:"taken"`
	Stats        *market.Statistics   `json:"stats"` // nil when < 2 usable prices
	OfficialRate float64              `json:"official_rate"`
	Peg          float64              `json:"peg"`
	Premium      float64              `json:"premium_percent"`
	Trades       []ledger.TradeEvent  `json:"trades"`
	Offers       []market.Offer       `json:"offers"`
	AdsBySource  map[string]int       `json:"ads_by_source"`
}

// Poller executes cycles strictly sequentially; only the filter and
// threshold fields are mutable, guarded for config hot reload.
type Poller struct {
	opts Options

	mu         sync.Mutex
	filter     market.Filter
	scamFactor float64
}

func New(opts Options) *Poller {
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	return &Poller{opts: opts, filter: opts.Filter, scamFactor: opts.ScamFactor}
}

// ApplyFilter swaps the sanity band and scam factor, used by hot reload.
func (p *Poller) ApplyFilter(f market.Filter, scamFactor float64) {
	p.mu.Lock()
	p.filter = f
	p.scamFactor = scamFactor
	p.mu.Unlock()
}

// RunCycle fetches all sources concurrently, then processes the merged
// listings. Source failures degrade to empty contributions; the only errors
// returned are the caller's own context ending.
func (p *Poller) RunCycle(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()

	specs := p.opts.Sources
	fetched := make([][]market.MarketAd, len(specs))
	var official float64
	peg := 1.0

	g := &errgroup.Group{}
	g.SetLimit(p.opts.Workers)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
			defer cancel()
			ads, err := spec.Source.Fetch(tctx, spec.Side)
			if err != nil {
				// One flaky source never fails the cycle.
				metrics.SourceErrors.WithLabelValues(string(spec.Source.Venue()), string(spec.Side)).Inc()
				p.opts.Log.LogSourceError(string(spec.Source.Venue()), string(spec.Side), err)
				return nil
			}
			fetched[i] = ads
			return nil
		})
	}
	if p.opts.Official != nil {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
			defer cancel()
			rate, err := p.opts.Official.OfficialRate(tctx)
			if err != nil {
				p.opts.Log.Warn("official rate unavailable", zap.Error(err))
				return nil
			}
			official = rate
			return nil
		})
	}
	if p.opts.Peg != nil {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
			defer cancel()
			peg = p.opts.Peg.UsdtPeg(tctx)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	p.mu.Lock()
	filter := p.filter
	scamFactor := p.scamFactor
	p.mu.Unlock()

	var ads []market.MarketAd
	adsBySource := make(map[string]int, len(specs))
	for i, spec := range specs {
		label := string(spec.Source.Venue()) + "/" + string(spec.Side)
		adsBySource[label] += len(fetched[i])
		metrics.SourceAds.WithLabelValues(string(spec.Source.Venue()), string(spec.Side)).Set(float64(len(fetched[i])))
		ads = append(ads, fetched[i]...)
	}

	prices := make([]float64, len(ads))
	for i, ad := range ads {
		prices[i] = ad.Price
	}
	banded := filter.Apply(prices)

	result := &Result{
		Taken:        now,
		OfficialRate: official,
		Peg:          peg,
		AdsBySource:  adsBySource,
	}

	stats, err := market.ComputeStatistics(banded, peg)
	if err == nil {
		result.Stats = stats
		metrics.MedianPrice.Set(stats.Median)
		metrics.SampleCount.Set(float64(stats.SampleCount))
		if official > 0 {
			result.Premium = (stats.Median - official) / official * 100
			metrics.Premium.Set(result.Premium)
		}
		result.Offers = market.TopOffers(ads, peg, stats.Median, scamFactor, p.opts.TopOffers)
	} else {
		metrics.SampleCount.Set(float64(len(banded)))
	}

	// Inference diffs against the previous poll, then the snapshot is
	// replaced with the current one. Load failures read as first-run.
	prev, err := p.opts.Store.Load(ctx)
	if err != nil {
		p.opts.Log.Warn("snapshot load failed", zap.Error(err))
		prev = snapshot.Snapshot{}
	}
	trades := p.opts.Engine.Infer(now, ads, prev)
	result.Trades = trades
	if len(trades) > 0 {
		if err := p.opts.Ledger.Append(ctx, trades...); err != nil {
			p.opts.Log.Warn("ledger persistence failed", zap.Error(err))
		}
		for _, ev := range trades {
			metrics.TradesInferred.WithLabelValues(string(ev.Exchange), string(ev.Direction)).Inc()
			metrics.TradeVolume.WithLabelValues(string(ev.Exchange), string(ev.Direction)).Add(ev.Volume)
			p.opts.Log.LogTrade(
				zap.String("venue", string(ev.Exchange)),
				zap.String("direction", string(ev.Direction)),
				zap.Float64("price", ev.Price),
				zap.Float64("volume", ev.Volume),
			)
		}
	}
	metrics.LedgerSize.Set(float64(p.opts.Ledger.Len()))

	if err := p.opts.Store.Save(ctx, ads, now); err != nil {
		p.opts.Log.Warn("snapshot save failed", zap.Error(err))
	}

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(time.Since(started).Seconds())
	fields := []zap.Field{
		zap.Int("ads", len(ads)),
		zap.Int("banded", len(banded)),
		zap.Int("trades", len(trades)),
		zap.Float64("official", official),
		zap.Float64("peg", peg),
		zap.Duration("took", time.Since(started)),
	}
	if result.Stats != nil {
		fields = append(fields, zap.Float64("median", result.Stats.Median))
	}
	p.opts.Log.LogCycle(fields...)
	return result, nil
}

// RunLoop executes cycles sequentially with a fixed delay between them; the
// loop body never overlaps itself. onResult receives every cycle's outcome.
func (p *Poller) RunLoop(ctx context.Context, interval time.Duration, onResult func(*Result)) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	for {
		result, err := p.RunCycle(ctx)
		if err != nil {
			return err
		}
		if onResult != nil {
			onResult(result)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
