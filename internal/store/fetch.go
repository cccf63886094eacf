package store

import (
	"database/sql"
	"time"
)

// FetchRun records a single upstream API call for auditing.
type FetchRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Provider          string // "openweather", "nasapower", "nominatim"
	Endpoint          string // "forecast", "air_pollution", "temporal/daily/point", ...
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	DurationMS        sql.NullInt64
	Success           bool
	ErrorMessage      sql.NullString
}

// StartFetchRun creates a new fetch run record and returns it.
func (s *Store) StartFetchRun(provider, endpoint string) (*FetchRun, error) {
	run := &FetchRun{
		StartedAt: time.Now().UTC(),
		Provider:  provider,
		Endpoint:  endpoint,
	}

	result, err := s.db.Exec(`
		INSERT INTO fetch_runs (started_at, provider, endpoint, success)
		VALUES (?, ?, ?, FALSE)
	`, run.StartedAt, run.Provider, run.Endpoint)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteFetchRun updates the run with its outcome.
func (s *Store) CompleteFetchRun(run *FetchRun) error {
	if run == nil {
		return nil
	}

	finished := time.Now().UTC()
	run.FinishedAt = sql.NullTime{Time: finished, Valid: true}
	if !run.DurationMS.Valid {
		run.DurationMS = sql.NullInt64{Int64: finished.Sub(run.StartedAt).Milliseconds(), Valid: true}
	}

	_, err := s.db.Exec(`
		UPDATE fetch_runs SET
			finished_at = ?,
			http_status = ?,
			response_size_bytes = ?,
			duration_ms = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.DurationMS,
		run.Success, run.ErrorMessage, run.ID)
	return err
}

// FetchHealthSummary aggregates fetch runs per day, provider and endpoint.
type FetchHealthSummary struct {
	Date          string
	Provider      string
	Endpoint      string
	TotalRuns     int
	SuccessRuns   int
	FailedRuns    int
	AvgDurationMS float64
}

// GetFetchHealth returns fetch health summaries for the last N days.
func (s *Store) GetFetchHealth(days int) ([]FetchHealthSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			provider,
			endpoint,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM fetch_runs
		WHERE SUBSTR(started_at, 1, 19) > datetime('now', '-' || ? || ' days')
		GROUP BY date, provider, endpoint
		ORDER BY date DESC, provider, endpoint
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchHealthSummary
	for rows.Next() {
		var h FetchHealthSummary
		if err := rows.Scan(&h.Date, &h.Provider, &h.Endpoint, &h.TotalRuns,
			&h.SuccessRuns, &h.FailedRuns, &h.AvgDurationMS); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// GetRecentFetchErrors returns recent failed fetch runs, newest first.
func (s *Store) GetRecentFetchErrors(limit int) ([]FetchRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, provider, endpoint,
			   http_status, response_size_bytes, duration_ms, success, error_message
		FROM fetch_runs
		WHERE success = FALSE
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchRun
	for rows.Next() {
		var r FetchRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Provider, &r.Endpoint,
			&r.HTTPStatus, &r.ResponseSizeBytes, &r.DurationMS, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// PruneFetchRuns deletes runs started before cutoff.
func (s *Store) PruneFetchRuns(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM fetch_runs WHERE SUBSTR(started_at, 1, 19) < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
