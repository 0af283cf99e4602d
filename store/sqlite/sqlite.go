/*
Package sqlite persists generated batches and their QC verdicts.

PURPOSE:
  A generation run can produce thousands of expanded runs. Persisting
  them lets the API serve batch listings and QC reports without
  re-expanding, and keeps an audit trail of what was modeled.

KEY TABLES:
  batches:      one row per generation run, with skip/warning lists
  runs:         one row per expanded combination
  applications: the scheduled dates and rates for each run
  qc_results:   one verdict row per validated run

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers do not
  block the single writer.

USAGE:
  store, err := sqlite.New("./data/appdate.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - run: produces the BatchRow values stored here
  - qc:  produces the verdicts stored here
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/aquasim/appdate-engine/label"
	"github.com/aquasim/appdate-engine/qc"
	"github.com/aquasim/appdate-engine/run"
	"github.com/aquasim/appdate-engine/schedule"
)

// ErrNotFound is returned when a batch does not exist.
var ErrNotFound = errors.New("not found")

// Batch is one persisted generation run.
type Batch struct {
	ID         string
	RunID      string
	Assessment string
	CreatedAt  time.Time

	Rows []run.BatchRow

	MissingScenarios   []string
	MissingProfiles    []string
	UnreachedAnnualMax []string
}

// BatchSummary is a batch without its rows, for listings.
type BatchSummary struct {
	ID         string
	RunID      string
	Assessment string
	CreatedAt  time.Time
	RunCount   int
}

// QCRecord is one run's persisted validation verdict.
type QCRecord struct {
	RunName    string
	Valid      bool
	ModeledApp int
	ModeledAmt decimal.Decimal
	Failures   []string
}

// Store persists batches in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		assessment TEXT NOT NULL,
		missing_scenarios_json TEXT NOT NULL,
		missing_profiles_json TEXT NOT NULL,
		unreached_annual_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		descriptor TEXT NOT NULL,
		run_name TEXT NOT NULL,
		huc2 TEXT NOT NULL,
		scenario TEXT NOT NULL,
		bin INTEGER NOT NULL,
		app_method INTEGER NOT NULL,
		depth INTEGER NOT NULL,
		tband TEXT,
		efficiency TEXT NOT NULL,
		drift TEXT NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_batch ON runs(batch_id, seq);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_batch_name ON runs(batch_id, run_name);

	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		app_month INTEGER NOT NULL,
		app_day INTEGER NOT NULL,
		rate TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_applications_run ON applications(run_id, seq);

	CREATE TABLE IF NOT EXISTS qc_results (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		run_name TEXT NOT NULL,
		valid BOOLEAN NOT NULL,
		modeled_apps INTEGER NOT NULL,
		modeled_amt TEXT NOT NULL,
		failures_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(batch_id, run_name)
	);

	CREATE INDEX IF NOT EXISTS idx_qc_results_batch ON qc_results(batch_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BATCHES
// =============================================================================

// SaveBatch stores a batch and all of its runs atomically. A zero ID is
// assigned; CreatedAt is set to now.
func (s *Store) SaveBatch(ctx context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	batch.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches
		(id, run_id, assessment, missing_scenarios_json, missing_profiles_json, unreached_annual_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.RunID,
		batch.Assessment,
		mustJSON(batch.MissingScenarios),
		mustJSON(batch.MissingProfiles),
		mustJSON(batch.UnreachedAnnualMax),
		batch.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	for seq, row := range batch.Rows {
		runID := uuid.NewString()
		var tband sql.NullString
		if row.HasTBand {
			tband = sql.NullString{String: row.TBand.String(), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO runs
			(id, batch_id, descriptor, run_name, huc2, scenario, bin, app_method, depth, tband, efficiency, drift, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, batch.ID,
			row.Descriptor, row.RunName, row.HUC2, row.Scenario,
			row.Bin, row.AppMethod, row.Depth, tband,
			row.Efficiency.String(), row.Drift.String(), seq,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run %s: %w", row.RunName, err)
		}

		for i, app := range row.Applications {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO applications (id, run_id, seq, app_month, app_day, rate)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), runID, i,
				int(app.Date.Month()), app.Date.DayOfMonth(), app.Rate.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert application: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetBatch loads a batch with all of its runs and applications.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := &Batch{ID: id}
	var createdAt, scenarios, profiles, unreached string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, assessment, missing_scenarios_json, missing_profiles_json, unreached_annual_json, created_at
		FROM batches WHERE id = ?`, id,
	).Scan(&batch.RunID, &batch.Assessment, &scenarios, &profiles, &unreached, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	batch.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(scenarios), &batch.MissingScenarios); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	if err := json.Unmarshal([]byte(profiles), &batch.MissingProfiles); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	if err := json.Unmarshal([]byte(unreached), &batch.UnreachedAnnualMax); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}

	if batch.Rows, err = s.loadRows(ctx, id); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *Store) loadRows(ctx context.Context, batchID string) ([]run.BatchRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, descriptor, run_name, huc2, scenario, bin, app_method, depth, tband, efficiency, drift
		FROM runs WHERE batch_id = ? ORDER BY seq ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []run.BatchRow
	var runIDs []string
	for rows.Next() {
		var id, tbandStr, eff, drift string
		var tband sql.NullString
		var row run.BatchRow
		if err := rows.Scan(&id, &row.Descriptor, &row.RunName, &row.HUC2, &row.Scenario,
			&row.Bin, &row.AppMethod, &row.Depth, &tband, &eff, &drift); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if tband.Valid {
			tbandStr = tband.String
			row.HasTBand = true
			if row.TBand, err = decimal.NewFromString(tbandStr); err != nil {
				return nil, fmt.Errorf("failed to decode t-band: %w", err)
			}
		}
		if row.Efficiency, err = decimal.NewFromString(eff); err != nil {
			return nil, fmt.Errorf("failed to decode efficiency: %w", err)
		}
		if row.Drift, err = decimal.NewFromString(drift); err != nil {
			return nil, fmt.Errorf("failed to decode drift: %w", err)
		}
		out = append(out, row)
		runIDs = append(runIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, runID := range runIDs {
		apps, err := s.loadApplications(ctx, runID)
		if err != nil {
			return nil, err
		}
		out[i].Applications = apps
	}
	return out, nil
}

func (s *Store) loadApplications(ctx context.Context, runID string) ([]schedule.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT app_month, app_day, rate FROM applications
		WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []schedule.Application
	for rows.Next() {
		var month, day int
		var rateStr string
		if err := rows.Scan(&month, &day, &rateStr); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to decode rate: %w", err)
		}
		apps = append(apps, schedule.Application{
			Date: label.NewDay(time.Month(month), day),
			Rate: rate,
		})
	}
	return apps, rows.Err()
}

// ListBatches returns batch summaries, newest first.
func (s *Store) ListBatches(ctx context.Context) ([]BatchSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.run_id, b.assessment, b.created_at,
		       (SELECT COUNT(*) FROM runs r WHERE r.batch_id = b.id)
		FROM batches b ORDER BY b.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var out []BatchSummary
	for rows.Next() {
		var sum BatchSummary
		var createdAt string
		if err := rows.Scan(&sum.ID, &sum.RunID, &sum.Assessment, &createdAt, &sum.RunCount); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// =============================================================================
// QC RESULTS
// =============================================================================

// SaveQCResults stores one verdict per validated run, replacing earlier
// verdicts for the same batch and run name.
func (s *Store) SaveQCResults(ctx context.Context, batchID string, results []qc.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range results {
		res := &results[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO qc_results
			(id, batch_id, run_name, valid, modeled_apps, modeled_amt, failures_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(batch_id, run_name) DO UPDATE SET
				valid = excluded.valid,
				modeled_apps = excluded.modeled_apps,
				modeled_amt = excluded.modeled_amt,
				failures_json = excluded.failures_json,
				created_at = excluded.created_at`,
			uuid.NewString(), batchID, res.RunName,
			res.Valid(), res.ModeledApps, res.AnnAmt.Modeled.String(),
			mustJSON(failureNames(res)), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert qc result: %w", err)
		}
	}

	return tx.Commit()
}

// GetQCResults returns the stored verdicts for a batch in run order.
func (s *Store) GetQCResults(ctx context.Context, batchID string) ([]QCRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_name, valid, modeled_apps, modeled_amt, failures_json
		FROM qc_results WHERE batch_id = ? ORDER BY run_name ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query qc results: %w", err)
	}
	defer rows.Close()

	var out []QCRecord
	for rows.Next() {
		var rec QCRecord
		var amt, failures string
		if err := rows.Scan(&rec.RunName, &rec.Valid, &rec.ModeledApp, &amt, &failures); err != nil {
			return nil, fmt.Errorf("failed to scan qc result: %w", err)
		}
		if rec.ModeledAmt, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("failed to decode modeled amount: %w", err)
		}
		if err := json.Unmarshal([]byte(failures), &rec.Failures); err != nil {
			return nil, fmt.Errorf("failed to decode failures: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// failureNames lists the checks a result failed, by result column name.
func failureNames(res *qc.Result) []string {
	named := []struct {
		name string
		pass bool
	}{
		{"Check_Ann_NumApps_NotExceeded", res.AnnNumApps.Pass},
		{"Check_Ann_Amt_NotExceeded", res.AnnAmt.Pass},
		{"Check_PreE_NumApps_NotExceeded", res.PreNumApps.Pass},
		{"Check_PreE_Amt_NotExceeded", res.PreAmt.Pass},
		{"Check_PostE_NumApps_NotExceeded", res.PostNumApps.Pass},
		{"Check_PostE_Amt_NotExceeded", res.PostAmt.Pass},
		{"Check_MRI_NotWithin", res.MRIPass},
		{"Check_NoDuplicate_AppDates", res.NoDuplicates},
		{"Check_PreHarvInt_NotWithin", res.PHIPass},
		{"Check_NumAppsField_IsCorrect", res.DeclaredCountPass},
	}

	failures := []string{}
	for _, check := range named {
		if !check.pass {
			failures = append(failures, check.name)
		}
	}
	return failures
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
