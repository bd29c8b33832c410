package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"p2pradar/market"
)

func TestAppendAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	w := &Writer{Path: path}

	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		st := &market.Statistics{Median: 130 + float64(i), Q1: 128, Q3: 133}
		if err := w.Append(base.Add(time.Duration(i)*5*time.Minute), st, 120); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	rows, err := Tail(path, 2)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Median != 131 || rows[1].Median != 132 {
		t.Fatalf("unexpected tail: %+v", rows)
	}
	if rows[1].Official != 120 {
		t.Fatalf("official column lost: %+v", rows[1])
	}
}

func TestAppendSkipsNilStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	w := &Writer{Path: path}
	if err := w.Append(time.Now(), nil, 120); err != nil {
		t.Fatalf("nil stats must be a no-op: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("no file expected for nil stats")
	}
}

func TestTailMissingFile(t *testing.T) {
	rows, err := Tail(filepath.Join(t.TempDir(), "nope.csv"), 10)
	if err != nil || rows != nil {
		t.Fatalf("missing file is an empty history: %v %v", rows, err)
	}
}

func TestTailSkipsDamagedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	content := "Timestamp,Median,Q1,Q3,Official\n" +
		"2026-08-28 12:00:00,130.00,128.00,133.00,120.00\n" +
		"garbage line,x,y,z,w\n" +
		"2026-08-28 12:05:00,131.00,128.50,133.50,120.00\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rows, err := Tail(path, 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 parsed rows, got %+v", rows)
	}
}
