package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/coreyalejandro/juniorgpt/pkg/models"
)

// SQLiteStore persists execution records in a local SQLite file.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// DefaultDBPath returns the default database location under the user's
// data directory.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "juniorgpt", "juniorgpt.db")
}

// Open opens the SQLite store at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// migrate applies pending schema migrations.
func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Executions},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Executions = `
CREATE TABLE IF NOT EXISTS executions (
	execution_id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	team_id TEXT,
	plan_id TEXT,
	strategy TEXT,
	status TEXT NOT NULL,
	started_at DATETIME,
	completed_at DATETIME,
	results TEXT,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_executions_job_id ON executions(job_id);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
`

// Record writes or replaces the execution record. Results are stored as
// a JSON blob.
func (s *SQLiteStore) Record(ctx context.Context, exec *models.JobExecution) error {
	var resultsJSON []byte
	if exec.Results != nil {
		var err error
		resultsJSON, err = json.Marshal(exec.Results)
		if err != nil {
			return fmt.Errorf("record execution %s: encode results: %w", exec.ExecutionID, err)
		}
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO executions
			(execution_id, job_id, team_id, plan_id, strategy, status, started_at, completed_at, results, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ExecutionID,
		exec.JobID,
		nullString(exec.TeamID),
		nullString(exec.PlanID),
		nullString(exec.Strategy),
		string(exec.Status),
		nullTime(exec.StartedAt),
		nullTime(exec.CompletedAt),
		nullString(string(resultsJSON)),
		nullString(exec.Error),
	)
	if err != nil {
		return fmt.Errorf("record execution %s: %w", exec.ExecutionID, err)
	}
	return nil
}

// FetchExecution returns one recorded execution by ID, or ErrNotFound.
func (s *SQLiteStore) FetchExecution(ctx context.Context, execID string) (*models.JobExecution, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT execution_id, job_id, team_id, plan_id, strategy, status, started_at, completed_at, results, error
		FROM executions
		WHERE execution_id = ?`, execID)

	var (
		exec        models.JobExecution
		teamID      sql.NullString
		planID      sql.NullString
		strategy    sql.NullString
		status      string
		startedAt   sql.NullTime
		completedAt sql.NullTime
		resultsJSON sql.NullString
		execErr     sql.NullString
	)
	err := row.Scan(&exec.ExecutionID, &exec.JobID, &teamID, &planID, &strategy,
		&status, &startedAt, &completedAt, &resultsJSON, &execErr)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fetch execution %s: %w", execID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch execution %s: %w", execID, err)
	}

	exec.TeamID = teamID.String
	exec.PlanID = planID.String
	exec.Strategy = strategy.String
	exec.Status = models.ExecutionStatus(status)
	exec.StartedAt = startedAt.Time
	exec.CompletedAt = completedAt.Time
	exec.Error = execErr.String
	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &exec.Results); err != nil {
			return nil, fmt.Errorf("fetch execution %s: decode results: %w", execID, err)
		}
	}
	return &exec, nil
}

// FetchHistory returns all recorded executions for a job, newest first.
func (s *SQLiteStore) FetchHistory(ctx context.Context, jobID string) ([]*models.JobExecution, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT execution_id, job_id, team_id, plan_id, strategy, status, started_at, completed_at, results, error
		FROM executions
		WHERE job_id = ?
		ORDER BY started_at DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch history for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var history []*models.JobExecution
	for rows.Next() {
		var (
			exec        models.JobExecution
			teamID      sql.NullString
			planID      sql.NullString
			strategy    sql.NullString
			status      string
			startedAt   sql.NullTime
			completedAt sql.NullTime
			resultsJSON sql.NullString
			execErr     sql.NullString
		)
		if err := rows.Scan(&exec.ExecutionID, &exec.JobID, &teamID, &planID, &strategy,
			&status, &startedAt, &completedAt, &resultsJSON, &execErr); err != nil {
			return nil, fmt.Errorf("fetch history for job %s: scan: %w", jobID, err)
		}

		exec.TeamID = teamID.String
		exec.PlanID = planID.String
		exec.Strategy = strategy.String
		exec.Status = models.ExecutionStatus(status)
		exec.StartedAt = startedAt.Time
		exec.CompletedAt = completedAt.Time
		exec.Error = execErr.String
		if resultsJSON.Valid && resultsJSON.String != "" {
			if err := json.Unmarshal([]byte(resultsJSON.String), &exec.Results); err != nil {
				return nil, fmt.Errorf("fetch history for job %s: decode results: %w", jobID, err)
			}
		}
		history = append(history, &exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch history for job %s: %w", jobID, err)
	}
	return history, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
