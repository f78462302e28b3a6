// Package store handles SQLite persistence of corpora and training runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/morsetrain/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a corpus or run does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for corpora and training history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS corpora (
			id TEXT PRIMARY KEY,
			policy TEXT NOT NULL,
			seed INTEGER NOT NULL,
			min_wpm REAL NOT NULL,
			max_wpm REAL NOT NULL,
			sigma REAL NOT NULL,
			created_at TEXT NOT NULL,
			element_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS elements (
			corpus_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			run INTEGER NOT NULL,
			duration_ms REAL NOT NULL,
			is_key_down INTEGER NOT NULL,
			label INTEGER NOT NULL,
			PRIMARY KEY (corpus_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			corpus_id TEXT NOT NULL,
			model TEXT NOT NULL,
			window_length INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			reason TEXT NOT NULL DEFAULT '',
			epochs INTEGER NOT NULL DEFAULT 0,
			best_epoch INTEGER NOT NULL DEFAULT 0,
			best_val_loss REAL NOT NULL DEFAULT 0,
			test_accuracy REAL NOT NULL DEFAULT 0,
			scaler_mean REAL NOT NULL DEFAULT 0,
			scaler_std REAL NOT NULL DEFAULT 1,
			snapshot TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS epochs (
			run_id TEXT NOT NULL,
			epoch INTEGER NOT NULL,
			train_loss REAL NOT NULL,
			train_acc REAL NOT NULL,
			val_loss REAL NOT NULL,
			val_acc REAL NOT NULL,
			learning_rate REAL NOT NULL,
			phase TEXT NOT NULL,
			PRIMARY KEY (run_id, epoch)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_corpora_created_at ON corpora(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveCorpus stores a corpus and its elements. A missing ID or creation time is
// filled in and the stored ID is returned.
func (s *Store) SaveCorpus(ctx context.Context, corpus model.Corpus) (id string, err error) {
	if corpus.ID == "" {
		corpus.ID = uuid.NewString()
	}
	if corpus.CreatedAt.IsZero() {
		corpus.CreatedAt = s.now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO corpora (id, policy, seed, min_wpm, max_wpm, sigma, created_at, element_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		corpus.ID,
		string(corpus.Policy),
		corpus.Seed,
		corpus.MinWPM,
		corpus.MaxWPM,
		corpus.Sigma,
		corpus.CreatedAt.Format(time.RFC3339Nano),
		len(corpus.Elements),
	); err != nil {
		return "", err
	}

	if len(corpus.Elements) > 0 {
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx,
			`INSERT INTO elements (corpus_id, seq, run, duration_ms, is_key_down, label)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, e := range corpus.Elements {
			if _, err = stmt.ExecContext(ctx, corpus.ID, i, e.Run, e.DurationMs, boolToInt(e.IsKeyDown), int(e.Label)); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return corpus.ID, nil
}

// LoadCorpus reads a corpus and its elements in generation order.
func (s *Store) LoadCorpus(ctx context.Context, id string) (model.Corpus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy, seed, min_wpm, max_wpm, sigma, created_at, element_count
		 FROM corpora WHERE id = ?`, id)
	summary, err := scanCorpus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Corpus{}, fmt.Errorf("corpus %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Corpus{}, err
	}
	corpus := model.Corpus{
		ID:        summary.ID,
		Policy:    summary.Policy,
		Seed:      summary.Seed,
		MinWPM:    summary.MinWPM,
		MaxWPM:    summary.MaxWPM,
		Sigma:     summary.Sigma,
		CreatedAt: summary.CreatedAt,
		Elements:  make([]model.TimingElement, 0, summary.Elements),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run, duration_ms, is_key_down, label FROM elements
		 WHERE corpus_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return model.Corpus{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var e model.TimingElement
		var keyDown, label int
		if err := rows.Scan(&e.Run, &e.DurationMs, &keyDown, &label); err != nil {
			return model.Corpus{}, err
		}
		e.IsKeyDown = keyDown != 0
		e.Label = model.Class(label)
		if err := e.Validate(); err != nil {
			return model.Corpus{}, fmt.Errorf("corpus %s element %d: %w", id, len(corpus.Elements), err)
		}
		corpus.Elements = append(corpus.Elements, e)
	}
	if err := rows.Err(); err != nil {
		return model.Corpus{}, err
	}
	return corpus, nil
}

// LatestCorpus returns the ID of the most recently created corpus.
func (s *Store) LatestCorpus(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM corpora ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no corpus stored: %w", ErrNotFound)
	}
	return id, err
}

// ListCorpora returns corpus summaries, newest first.
func (s *Store) ListCorpora(ctx context.Context) ([]model.CorpusSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy, seed, min_wpm, max_wpm, sigma, created_at, element_count
		 FROM corpora ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var result []model.CorpusSummary
	for rows.Next() {
		summary, err := scanCorpus(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCorpus(row scanner) (model.CorpusSummary, error) {
	var summary model.CorpusSummary
	var policy, createdAt string
	if err := row.Scan(&summary.ID, &policy, &summary.Seed, &summary.MinWPM, &summary.MaxWPM, &summary.Sigma, &createdAt, &summary.Elements); err != nil {
		return model.CorpusSummary{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.CorpusSummary{}, err
	}
	summary.Policy = model.Policy(policy)
	summary.CreatedAt = parsed
	return summary, nil
}

// CreateRun registers a training run and returns its ID.
func (s *Store) CreateRun(ctx context.Context, run model.RunSummary) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, corpus_id, model, window_length, started_at, scaler_mean, scaler_std)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CorpusID,
		run.Model,
		run.WindowLength,
		run.StartedAt.Format(time.RFC3339Nano),
		run.ScalerMean,
		run.ScalerStd,
	)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// RecordEpoch stores the metrics of one epoch.
func (s *Store) RecordEpoch(ctx context.Context, rec model.EpochRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO epochs (run_id, epoch, train_loss, train_acc, val_loss, val_acc, learning_rate, phase)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Epoch, rec.TrainLoss, rec.TrainAcc, rec.ValLoss, rec.ValAcc, rec.LearningRate, rec.Phase)
	return err
}

// FinishRun records the outcome of a run together with its best snapshot.
func (s *Store) FinishRun(ctx context.Context, run model.RunSummary, snapshot []float64) error {
	var payload sql.NullString
	if finiteSnapshot(snapshot) {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}
	endedAt := s.now()
	if run.EndedAt != nil {
		endedAt = *run.EndedAt
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, reason = ?, epochs = ?, best_epoch = ?, best_val_loss = ?,
			test_accuracy = ?, scaler_mean = ?, scaler_std = ?, snapshot = ?
		 WHERE id = ?`,
		endedAt.Format(time.RFC3339Nano),
		run.Reason,
		run.Epochs,
		run.BestEpoch,
		run.BestValLoss,
		run.TestAccuracy,
		run.ScalerMean,
		run.ScalerStd,
		payload,
		run.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// finiteSnapshot reports whether snapshot is non-empty and holds only finite values.
func finiteSnapshot(snapshot []float64) bool {
	if len(snapshot) == 0 {
		return false
	}
	for _, v := range snapshot {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// LoadSnapshot returns the best parameter snapshot of a finished run.
func (s *Store) LoadSnapshot(ctx context.Context, runID string) ([]float64, error) {
	var payload sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM runs WHERE id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !payload.Valid {
		return nil, fmt.Errorf("run %s has no snapshot: %w", runID, ErrNotFound)
	}
	var snapshot []float64
	if err := json.Unmarshal([]byte(payload.String), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

// ListRuns returns run summaries filtered by cfg, oldest first.
func (s *Store) ListRuns(ctx context.Context, cfg model.RunsConfig) ([]model.RunSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Model != "" {
		clauses = append(clauses, "model = ?")
		args = append(args, cfg.Model)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, corpus_id, model, window_length, started_at, ended_at, reason, epochs,
			best_epoch, best_val_loss, test_accuracy, scaler_mean, scaler_std
		FROM runs
		WHERE %s
		ORDER BY started_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.CorpusID, &r.Model, &r.WindowLength, &startedAt, &endedAt, &r.Reason, &r.Epochs,
			&r.BestEpoch, &r.BestValLoss, &r.TestAccuracy, &r.ScalerMean, &r.ScalerStd); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		r.StartedAt = parsed
		if endedAt.Valid {
			ended, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, err
			}
			r.EndedAt = &ended
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return runs, nil
}

// ListEpochs returns the epoch history of a run in epoch order.
func (s *Store) ListEpochs(ctx context.Context, runID string) ([]model.EpochRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, epoch, train_loss, train_acc, val_loss, val_acc, learning_rate, phase
		 FROM epochs WHERE run_id = ? ORDER BY epoch ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.EpochRecord
	for rows.Next() {
		var rec model.EpochRecord
		if err := rows.Scan(&rec.RunID, &rec.Epoch, &rec.TrainLoss, &rec.TrainAcc, &rec.ValLoss, &rec.ValAcc, &rec.LearningRate, &rec.Phase); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
