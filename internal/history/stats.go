package history

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lucasnoah/gateagent/internal/gate"
)

// GateStat summarises how one gate behaved across recorded runs. Skipped
// results count toward Runs but not toward the duration percentiles.
type GateStat struct {
	Name       string  `json:"name"`
	Runs       int     `json:"runs"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	Errors     int     `json:"errors"`
	FailurePct float64 `json:"failure_pct"`
	AvgMs      float64 `json:"avg_ms"`
	P50Ms      float64 `json:"p50_ms"`
	P95Ms      float64 `json:"p95_ms"`
}

// GateStats returns per-gate outcome counts and duration percentiles for
// runs created at or after since. A zero since covers every run.
func (s *Store) GateStats(ctx context.Context, since time.Time) ([]GateStat, error) {
	query := `
		SELECT r.name, r.status, r.duration_ms
		FROM gate_results r
		JOIN gate_runs g ON g.id = r.run_id`
	var args []any
	if !since.IsZero() {
		query += ` WHERE g.created_at >= $1`
		args = append(args, since.UTC().Format(timeLayout))
	}

	rows, err := s.conn.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query gate stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*GateStat)
	durations := make(map[string][]float64)
	for rows.Next() {
		var (
			name, status string
			ms           int64
		)
		if err := rows.Scan(&name, &status, &ms); err != nil {
			return nil, fmt.Errorf("scan gate stat: %w", err)
		}
		st, ok := stats[name]
		if !ok {
			st = &GateStat{Name: name}
			stats[name] = st
		}
		st.Runs++
		switch gate.Status(status) {
		case gate.StatusPassed:
			st.Passed++
		case gate.StatusFailed:
			st.Failed++
		case gate.StatusSkipped:
			st.Skipped++
			continue
		case gate.StatusError:
			st.Errors++
		}
		durations[name] = append(durations[name], float64(ms))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]GateStat, 0, len(stats))
	for name, st := range stats {
		d := durations[name]
		sort.Float64s(d)
		st.FailurePct = pct(st.Failed+st.Errors, st.Runs-st.Skipped)
		st.AvgMs = avg(d)
		st.P50Ms = percentile(d, 50)
		st.P95Ms = percentile(d, 95)
		results = append(results, *st)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})
	return results, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
