package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tturner/replaylab/internal/sim"
)

var requiredCols = []string{"mode", "run_index", "legit_sent", "legit_accepted", "attack_attempts", "attack_accepted"}

// ReadMetricsCSV reads a per-run CSV file written by Writer and returns the
// parsed metrics along with the first and last timestamps found in the data.
func ReadMetricsCSV(path string) ([]Metric, time.Time, time.Time, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("open metrics CSV: %w", err)
	}
	defer file.Close()

	return readMetrics(csv.NewReader(file))
}

func readMetrics(reader *csv.Reader) ([]Metric, time.Time, time.Time, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}
	for _, col := range requiredCols {
		if _, ok := colIndex[col]; !ok {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("CSV missing required column: %s", col)
		}
	}

	var metrics []Metric
	var firstTime, lastTime time.Time
	rowCount := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("read CSV row %d: %w", rowCount+2, err)
		}

		field := func(col string) (string, bool) {
			idx, ok := colIndex[col]
			if !ok || idx >= len(record) {
				return "", false
			}
			return record[idx], true
		}
		intField := func(col string) (int, error) {
			v, _ := field(col)
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("row %d column %s: %w", rowCount+2, col, err)
			}
			return n, nil
		}

		m := Metric{}
		if v, ok := field("timestamp"); ok {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				m.Timestamp = t
				if firstTime.IsZero() {
					firstTime = t
				}
				lastTime = t
			}
		}
		if v, ok := field("mode"); ok {
			m.Mode = sim.Mode(v)
		}
		if v, ok := field("seed"); ok && v != "" {
			if s, err := strconv.ParseInt(v, 10, 64); err == nil {
				m.Seed = s
			}
		}

		ints := []struct {
			col string
			dst *int
		}{
			{"run_index", &m.RunIndex},
			{"legit_sent", &m.LegitSent},
			{"legit_accepted", &m.LegitAccepted},
			{"attack_attempts", &m.AttackAttempts},
			{"attack_accepted", &m.AttackAccepted},
		}
		for _, f := range ints {
			n, err := intField(f.col)
			if err != nil {
				return nil, time.Time{}, time.Time{}, err
			}
			*f.dst = n
		}
		if v, ok := field("channel_dropped"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				m.ChannelDropped = n
			}
		}

		metrics = append(metrics, m)
		rowCount++
	}

	if rowCount == 0 {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("no data rows in CSV file")
	}

	return metrics, firstTime, lastTime, nil
}
