package store

import (
	"database/sql"
	"time"
)

// AICall is one attempt against a language model provider.
type AICall struct {
	ID           int64
	CalledAt     time.Time
	Provider     string
	Model        string
	Operation    string // "summary", "ask", "compare", "climate", "health"
	Success      bool
	Category     sql.NullString
	ErrorMessage sql.NullString
	DurationMS   int64
}

func (s *Store) RecordAICall(c AICall) error {
	if c.CalledAt.IsZero() {
		c.CalledAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO ai_calls (called_at, provider, model, operation, success, category, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.CalledAt, c.Provider, c.Model, c.Operation, c.Success, c.Category, c.ErrorMessage, c.DurationMS)
	return err
}

// GetRecentAICalls returns the latest AI calls, newest first. When failedOnly
// is set only unsuccessful calls are returned.
func (s *Store) GetRecentAICalls(limit int, failedOnly bool) ([]AICall, error) {
	query := `
		SELECT id, called_at, provider, COALESCE(model, ''), operation, success, category, error_message, COALESCE(duration_ms, 0)
		FROM ai_calls`
	if failedOnly {
		query += ` WHERE success = FALSE`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []AICall
	for rows.Next() {
		var c AICall
		if err := rows.Scan(&c.ID, &c.CalledAt, &c.Provider, &c.Model, &c.Operation,
			&c.Success, &c.Category, &c.ErrorMessage, &c.DurationMS); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// PruneAICalls deletes calls logged before cutoff.
func (s *Store) PruneAICalls(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM ai_calls WHERE SUBSTR(called_at, 1, 19) < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
