package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"companiond/internal/types"
)

// SQLiteStore persists sessions in SQLite. The connection pool is pinned to
// a single connection and writes run inside one transaction per append, so
// per-session serialization falls out of the single-writer model.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path and initializes the
// schema.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("session store opened", zap.String("path", path))
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS turns (
		session_id          TEXT NOT NULL REFERENCES sessions(id),
		turn_number         INTEGER NOT NULL,
		user_message        TEXT NOT NULL,
		response            TEXT NOT NULL,
		intent              TEXT NOT NULL,
		judge_score         REAL NOT NULL,
		approved            INTEGER NOT NULL,
		input_safety_json   TEXT NOT NULL,
		output_safety_json  TEXT NOT NULL,
		created_at          TIMESTAMP NOT NULL,
		PRIMARY KEY (session_id, turn_number)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn_number);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetOrCreate implements Store.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, id string) (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		var createdAt time.Time
		err := s.db.QueryRowContext(ctx, "SELECT created_at FROM sessions WHERE id = ?", id).Scan(&createdAt)
		switch {
		case err == nil:
			turns, err := s.historyLocked(ctx, id)
			if err != nil {
				return types.Session{}, err
			}
			return types.Session{ID: id, CreatedAt: createdAt, Turns: turns}, nil
		case err != sql.ErrNoRows:
			return types.Session{}, fmt.Errorf("failed to look up session: %w", err)
		}
	} else {
		id = uuid.NewString()
	}

	createdAt := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)", id, createdAt); err != nil {
		return types.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return types.Session{ID: id, CreatedAt: createdAt}, nil
}

// Append implements Store. The turn number is computed and inserted in one
// transaction so concurrent appends to the same session never collide.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn types.Turn) error {
	inputJSON, err := json.Marshal(turn.InputSafety)
	if err != nil {
		return fmt.Errorf("failed to marshal input verdict: %w", err)
	}
	outputJSON, err := json.Marshal(turn.OutputSafety)
	if err != nil {
		return fmt.Errorf("failed to marshal output verdict: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE id = ?", sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, turn_number, user_message, response, intent,
		                    judge_score, approved, input_safety_json, output_safety_json, created_at)
		 SELECT ?, COALESCE(MAX(turn_number), 0) + 1, ?, ?, ?, ?, ?, ?, ?, ?
		 FROM turns WHERE session_id = ?`,
		sessionID, turn.UserMessage, turn.Response, string(turn.Intent),
		turn.JudgeScore, turn.Approved, string(inputJSON), string(outputJSON),
		turn.CreatedAt, sessionID)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	return tx.Commit()
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE id = ?", sessionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	return s.historyLocked(ctx, sessionID)
}

func (s *SQLiteStore) historyLocked(ctx context.Context, sessionID string) ([]types.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_message, response, intent, judge_score, approved,
		        input_safety_json, output_safety_json, created_at
		 FROM turns WHERE session_id = ? ORDER BY turn_number ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var turns []types.Turn
	for rows.Next() {
		var turn types.Turn
		var intent, inputJSON, outputJSON string
		if err := rows.Scan(&turn.UserMessage, &turn.Response, &intent,
			&turn.JudgeScore, &turn.Approved, &inputJSON, &outputJSON, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Intent = types.Intent(intent)
		if err := json.Unmarshal([]byte(inputJSON), &turn.InputSafety); err != nil {
			s.logger.Warn("corrupt input verdict in store", zap.Error(err))
		}
		if err := json.Unmarshal([]byte(outputJSON), &turn.OutputSafety); err != nil {
			s.logger.Warn("corrupt output verdict in store", zap.Error(err))
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Stats implements Store.
func (s *SQLiteStore) Stats(ctx context.Context) (types.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats types.Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&stats.Sessions); err != nil {
		return types.Stats{}, fmt.Errorf("failed to count sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM turns").Scan(&stats.Turns); err != nil {
		return types.Stats{}, fmt.Errorf("failed to count turns: %w", err)
	}
	return stats, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
