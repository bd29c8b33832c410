package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"p2pradar/market"
)

// DefaultStaleness bounds how old a stored snapshot may be before it is
// treated as absent. Diffing against inventories from a dead process would
// compare unrelated market conditions.
const DefaultStaleness = 20 * time.Minute

// FileStore keeps the snapshot in a single JSON document, replaced atomically
// on every save via a temp file and rename.
type FileStore struct {
	Path      string
	Staleness time.Duration
	Identity  market.IdentityStrategy
}

type fileDoc struct {
	Taken time.Time  `json:"taken"`
	Ads   []fileItem `json:"ads"`
}

type fileItem struct {
	Exchange   string  `json:"exchange"`
	Advertiser string  `json:"advertiser"`
	Price      float64 `json:"price"`
	Amount     float64 `json:"amount"`
}

func (fs *FileStore) staleness() time.Duration {
	if fs.Staleness > 0 {
		return fs.Staleness
	}
	return DefaultStaleness
}

// Load reads the stored snapshot. A missing, corrupt, or stale file yields an
// empty snapshot and no error: first-run semantics, never fatal.
func (fs *FileStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	raw, err := os.ReadFile(fs.Path)
	if err != nil {
		return Snapshot{}, nil
	}
	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Snapshot{}, nil
	}
	if time.Since(doc.Taken) > fs.staleness() {
		return Snapshot{}, nil
	}
	amounts := make(map[market.Key]float64, len(doc.Ads))
	for _, it := range doc.Ads {
		key := market.Key{Exchange: market.Exchange(it.Exchange), Advertiser: it.Advertiser, Price: it.Price}
		if prev, ok := amounts[key]; !ok || it.Amount > prev {
			amounts[key] = it.Amount
		}
	}
	return Snapshot{Taken: doc.Taken, Amounts: amounts}, nil
}

// Save atomically replaces the stored snapshot with the current poll's ads.
func (fs *FileStore) Save(ctx context.Context, ads []market.MarketAd, ts time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := fs.Identity
	if id == nil {
		id = market.CompositeIdentity{}
	}
	doc := fileDoc{Taken: ts, Ads: make([]fileItem, 0, len(ads))}
	for _, ad := range ads {
		key := id.KeyOf(ad)
		doc.Ads = append(doc.Ads, fileItem{
			Exchange:   string(key.Exchange),
			Advertiser: key.Advertiser,
			Price:      key.Price,
			Amount:     ad.Available,
		})
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(fs.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, fs.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
