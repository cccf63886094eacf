package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// GetCachedResponse returns the payload stored under key if it has not
// expired at now.
func (s *Store) GetCachedResponse(key string, now time.Time) ([]byte, bool, error) {
	var compressed []byte
	err := s.db.QueryRow(`
		SELECT payload_compressed FROM response_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, now.UnixMilli()).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cached response: %w", err)
	}

	payload, err := decompress(compressed)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// PutCachedResponse stores payload under key until expiresAt, replacing any
// previous entry.
func (s *Store) PutCachedResponse(key, provider string, payload []byte, expiresAt time.Time) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)

	_, err := s.db.Exec(`
		INSERT INTO response_cache (cache_key, provider, payload_compressed, payload_hash, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			provider = excluded.provider,
			payload_compressed = excluded.payload_compressed,
			payload_hash = excluded.payload_hash,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, key, provider, buf.Bytes(), hex.EncodeToString(hash[:]), time.Now().UnixMilli(), expiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert cached response: %w", err)
	}
	return nil
}

// PruneCache deletes expired entries, then the oldest entries beyond
// maxEntries. It returns the number of rows removed.
func (s *Store) PruneCache(now time.Time, maxEntries int) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM response_cache WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	expired, _ := res.RowsAffected()

	if maxEntries <= 0 {
		return expired, nil
	}

	res, err = s.db.Exec(`
		DELETE FROM response_cache WHERE cache_key IN (
			SELECT cache_key FROM response_cache
			ORDER BY fetched_at DESC
			LIMIT -1 OFFSET ?
		)
	`, maxEntries)
	if err != nil {
		return expired, fmt.Errorf("delete overflow: %w", err)
	}
	overflow, _ := res.RowsAffected()
	return expired + overflow, nil
}

// CacheStats summarises the cache per provider.
type CacheStats struct {
	Provider string
	Entries  int
	Bytes    int64
}

func (s *Store) GetCacheStats() ([]CacheStats, error) {
	rows, err := s.db.Query(`
		SELECT provider, COUNT(*), COALESCE(SUM(LENGTH(payload_compressed)), 0)
		FROM response_cache
		GROUP BY provider
		ORDER BY provider
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CacheStats
	for rows.Next() {
		var st CacheStats
		if err := rows.Scan(&st.Provider, &st.Entries, &st.Bytes); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func decompress(compressed []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return payload, nil
}
