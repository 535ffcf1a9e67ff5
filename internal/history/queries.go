package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/gateagent/internal/gate"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run represents a row in the gate_runs table.
type Run struct {
	ID           string
	ProjectRoot  string
	ConfigDigest string
	Success      bool
	Total        int
	Passed       int
	Failed       int
	Skipped      int
	Errors       int
	Duration     time.Duration
	CreatedAt    time.Time
}

// GateResult represents a row in the gate_results table.
type GateResult struct {
	RunID        string
	Position     int
	Name         string
	Status       gate.Status
	Message      string
	Duration     time.Duration
	ErrorCount   int
	WarningCount int
	// Details is the JSON encoding of the gate's details, or empty.
	Details string
}

// Record stores rep and its per-gate results in one transaction and returns
// the new run ID.
func (s *Store) Record(ctx context.Context, projectRoot, digest string, rep *gate.Report) (string, error) {
	id := uuid.NewString()
	created := rep.Timestamp
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	sum := rep.Summary
	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO gate_runs (id, project_root, config_digest, success, total, passed, failed, skipped, errors, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`),
		id, projectRoot, digest, rep.Success, sum.Total, sum.Passed, sum.Failed, sum.Skipped, sum.Errors,
		sum.TotalDuration.Milliseconds(), created.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	insert := s.rebind(
		`INSERT INTO gate_results (run_id, position, name, status, message, duration_ms, error_count, warning_count, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	for i, r := range rep.Results {
		var details sql.NullString
		if len(r.Details) > 0 {
			data, err := json.Marshal(r.Details)
			if err != nil {
				return "", fmt.Errorf("encode details for %s: %w", r.Name, err)
			}
			details = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert,
			id, i, r.Name, string(r.Status), r.Message, r.Duration.Milliseconds(),
			findingCount(r.Details, errorCountKeys, len(r.Errors)),
			findingCount(r.Details, warningCountKeys, len(r.Warnings)),
			details,
		); err != nil {
			return "", fmt.Errorf("insert result %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// Gates list at most a handful of findings; these Details keys carry the
// real totals.
var (
	errorCountKeys   = []string{"errorCount", "securityErrorCount", "unformattedCount", "vulnerabilityCount"}
	warningCountKeys = []string{"warningCount"}
)

func findingCount(details map[string]any, keys []string, listed int) int {
	for _, k := range keys {
		switch v := details[k].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return listed
}

const runColumns = `id, project_root, config_digest, success, total, passed, failed, skipped, errors, duration_ms, created_at`

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, s.rebind(
		`SELECT `+runColumns+` FROM gate_runs ORDER BY created_at DESC, id DESC LIMIT $1`), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns a single run.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, s.rebind(`SELECT `+runColumns+` FROM gate_runs WHERE id = $1`), runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// Results returns the per-gate rows of a run in registration order.
func (s *Store) Results(ctx context.Context, runID string) ([]GateResult, error) {
	rows, err := s.conn.QueryContext(ctx, s.rebind(
		`SELECT run_id, position, name, status, message, duration_ms, error_count, warning_count, details
		 FROM gate_results WHERE run_id = $1 ORDER BY position`), runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []GateResult
	for rows.Next() {
		var (
			r       GateResult
			status  string
			ms      int64
			details sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.Position, &r.Name, &status, &r.Message, &ms,
			&r.ErrorCount, &r.WarningCount, &details); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Status = gate.Status(status)
		r.Duration = time.Duration(ms) * time.Millisecond
		r.Details = details.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must be >= 0, got %d", keep)
	}
	res, err := s.conn.ExecContext(ctx, s.rebind(
		`DELETE FROM gate_runs WHERE id NOT IN (
		   SELECT id FROM gate_runs ORDER BY created_at DESC, id DESC LIMIT $1
		 )`), keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r       Run
		ms      int64
		created string
	)
	if err := sc.Scan(&r.ID, &r.ProjectRoot, &r.ConfigDigest, &r.Success, &r.Total, &r.Passed,
		&r.Failed, &r.Skipped, &r.Errors, &ms, &created); err != nil {
		return Run{}, err
	}
	r.Duration = time.Duration(ms) * time.Millisecond
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	r.CreatedAt = t
	return r, nil
}
