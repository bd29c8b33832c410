// Package ledger keeps the append-only, time-windowed log of inferred trades.
package ledger

import (
	"context"
	"sync"
	"time"

	"p2pradar/market"
)

// Direction is the counterparty's side of an inferred trade.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// TradeEvent is one inferred execution. Immutable after creation; it leaves
// the ledger only through retention trimming.
type TradeEvent struct {
	ID        string          `json:"id"`
	Time      time.Time       `json:"time"`
	Exchange  market.Exchange `json:"exchange"`
	Direction Direction       `json:"direction"`
	Price     float64         `json:"price"`
	Volume    float64         `json:"volume"`
}

// Persister stores the compacted event log after each write. Implementations
// must replace the stored log wholesale (rewrite-with-trim), never append
// blindly.
type Persister interface {
	Store(ctx context.Context, events []TradeEvent) error
	Load(ctx context.Context) ([]TradeEvent, error)
}

// DefaultRetention bounds the ledger when the deployment does not configure
// a window.
const DefaultRetention = 6 * time.Hour

// Ledger holds events oldest-first and trims on every write, so memory and
// storage stay bounded without a separate GC pass.
type Ledger struct {
	mu        sync.Mutex
	retention time.Duration
	events    []TradeEvent
	persist   Persister
	now       func() time.Time
}

// New builds a ledger. persist may be nil for a purely in-memory log. An
// existing persisted log is loaded and trimmed immediately; a failed load
// starts empty rather than failing, matching first-run semantics.
func New(ctx context.Context, retention time.Duration, persist Persister) *Ledger {
	if retention <= 0 {
		retention = DefaultRetention
	}
	l := &Ledger{retention: retention, persist: persist, now: time.Now}
	if persist != nil {
		if events, err := persist.Load(ctx); err == nil {
			l.events = events
			l.compactLocked(l.now())
		}
	}
	return l
}

// Append adds events and compacts the log. The persisted copy is rewritten
// with the trimmed contents; a persistence failure is returned but the
// in-memory log keeps the events.
func (l *Ledger) Append(ctx context.Context, events ...TradeEvent) error {
	l.mu.Lock()
	l.events = append(l.events, events...)
	l.compactLocked(l.now())
	snapshot := make([]TradeEvent, len(l.events))
	copy(snapshot, l.events)
	l.mu.Unlock()

	if l.persist == nil {
		return nil
	}
	return l.persist.Store(ctx, snapshot)
}

// Recent returns events within the window ordered newest-first. The slice is
// a copy; callers never see internal state.
func (l *Ledger) Recent(window time.Duration) []TradeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	cut := l.now().Add(-window)
	out := make([]TradeEvent, 0, len(l.events))
	for i := len(l.events) - 1; i >= 0; i-- {
		ev := l.events[i]
		if ev.Time.Before(cut) {
			break
		}
		out = append(out, ev)
	}
	return out
}

// Len reports the current number of retained events.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Compact drops events older than the retention window relative to now.
// Append already compacts; this exists for callers that want an explicit
// trim between writes.
func (l *Ledger) Compact(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.compactLocked(now)
}

func (l *Ledger) compactLocked(now time.Time) {
	cut := now.Add(-l.retention)
	first := 0
	for first < len(l.events) && l.events[first].Time.Before(cut) {
		first++
	}
	if first > 0 {
		l.events = append(l.events[:0], l.events[first:]...)
	}
}
