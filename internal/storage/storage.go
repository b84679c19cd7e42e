// Package storage keeps the run ledger: one SQLite row per processed scene with
// its options, status and output count.
//
// The ledger is provenance only. Nothing read back from it influences numeric
// results, and a missing or deleted database simply starts a fresh ledger.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/usfs-r5/edart/internal/models"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	scene       TEXT NOT NULL,
	workspace   TEXT NOT NULL DEFAULT '',
	options     TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	outputs     INTEGER NOT NULL DEFAULT 0,
	message     TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// fixed width so that text ordering is time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Storage is a thread-safe run ledger backed by SQLite
type Storage struct {
	db       *sql.DB
	filePath string
	mu       sync.Mutex
}

// New opens (creating when needed) the ledger at filePath.
// If filePath is empty, uses OS-appropriate tmp directory
func New(filePath string, dirPermissions os.FileMode) (*Storage, error) {
	if filePath == "" {
		filePath = filepath.Join(os.TempDir(), "edart", "runs.db")
	}
	if dirPermissions == 0 {
		dirPermissions = 0o755
	}
	if err := os.MkdirAll(filepath.Dir(filePath), dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	return &Storage{db: db, filePath: filePath}, nil
}

// Path returns the database file.
func (s *Storage) Path() string {
	return s.filePath
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// AddRun inserts a new run
func (s *Storage) AddRun(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO runs
		(id, kind, scene, workspace, options, status, outputs, message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Scene, run.Workspace, run.Options, run.Status,
		run.Outputs, run.Message, run.StartedAt.UTC().Format(timeLayout), formatTime(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the final status of a run.
func (s *Storage) FinishRun(id, status, workspace string, outputs int, message string, finishedAt time.Time) error {
	run, err := s.GetRun(id)
	if err != nil {
		return err
	}
	run.Status = status
	run.Outputs = outputs
	run.Message = message
	if workspace != "" {
		run.Workspace = workspace
	}
	run.FinishedAt = &finishedAt
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`UPDATE runs SET status = ?, workspace = ?, outputs = ?, message = ?, finished_at = ?
		WHERE id = ?`,
		run.Status, run.Workspace, run.Outputs, run.Message, formatTime(run.FinishedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(id string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, kind, scene, workspace, options, status, outputs, message,
		started_at, finished_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. An empty kind lists every kind.
func (s *Storage) ListRuns(kind string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, kind, scene, workspace, options, status, outputs, message,
		started_at, finished_at FROM runs WHERE ? = '' OR kind = ?
		ORDER BY started_at DESC LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// RotateRuns removes the oldest runs beyond maxRuns.
func (s *Storage) RotateRuns(maxRuns int) error {
	if maxRuns <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM runs WHERE id NOT IN
		(SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`, maxRuns)
	if err != nil {
		return fmt.Errorf("failed to rotate runs: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*models.Run, error) {
	var run models.Run
	var started string
	var finished sql.NullString
	err := sc.Scan(&run.ID, &run.Kind, &run.Scene, &run.Workspace, &run.Options, &run.Status,
		&run.Outputs, &run.Message, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("run %s: bad started_at: %w", run.ID, err)
	}
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at: %w", run.ID, err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}
