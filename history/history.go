// Package history appends per-cycle statistics to a CSV file for trend
// rendering by external tooling.
package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"p2pradar/market"
)

const timeLayout = "2006-01-02 15:04:05"

var header = []string{"Timestamp", "Median", "Q1", "Q3", "Official"}

// Writer appends one row per cycle, writing the header on first use.
type Writer struct {
	Path string
}

// Append records one cycle's summary. Cycles without statistics are not
// recorded.
func (w *Writer) Append(ts time.Time, st *market.Statistics, official float64) error {
	if st == nil {
		return nil
	}
	_, statErr := os.Stat(w.Path)
	f, err := os.OpenFile(w.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if statErr != nil {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	row := []string{
		ts.Format(timeLayout),
		strconv.FormatFloat(st.Median, 'f', 2, 64),
		strconv.FormatFloat(st.Q1, 'f', 2, 64),
		strconv.FormatFloat(st.Q3, 'f', 2, 64),
		strconv.FormatFloat(official, 'f', 2, 64),
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// Row is one recorded cycle.
type Row struct {
	Time     time.Time
	Median   float64
	Q1       float64
	Q3       float64
	Official float64
}

// Tail loads the last n rows. Malformed lines are skipped, a missing file is
// an empty history.
func Tail(path string, n int) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if len(rec) < 5 {
			continue
		}
		ts, err := time.Parse(timeLayout, rec[0])
		if err != nil {
			continue // header or damaged line
		}
		median, err1 := strconv.ParseFloat(rec[1], 64)
		q1, err2 := strconv.ParseFloat(rec[2], 64)
		q3, err3 := strconv.ParseFloat(rec[3], 64)
		official, err4 := strconv.ParseFloat(rec[4], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		rows = append(rows, Row{Time: ts, Median: median, Q1: q1, Q3: q3, Official: official})
	}
	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}
