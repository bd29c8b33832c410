package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// FilePersister rewrites the whole compacted log as one JSON document on
// every store, replaced atomically via temp file and rename.
type FilePersister struct {
	Path string
}

func (fp *FilePersister) Store(ctx context.Context, events []TradeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	dir := filepath.Dir(fp.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ledger dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("ledger temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, fp.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Load reads the persisted log. Missing or corrupt files start an empty
// ledger; persistence failures never block the engine.
func (fp *FilePersister) Load(ctx context.Context) ([]TradeEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(fp.Path)
	if err != nil {
		return nil, nil
	}
	var events []TradeEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, nil
	}
	return events, nil
}
