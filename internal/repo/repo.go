package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"billcast/internal/domain"
)

// ErrNotFound marks a missing, stale or unreadable cache entry.
var ErrNotFound = errors.New("not found")

// Store is the durable forecast cache tier backed by SQLite.
type Store struct {
	DB *sql.DB
}

// GetForecast returns the cached forecast for key when its write
// timestamp is within maxAge of now. Corrupt or stale rows are reported
// as ErrNotFound so callers treat them as cache misses.
func (s Store) GetForecast(ctx context.Context, key string, maxAge time.Duration, now time.Time) (domain.Forecast, error) {
	var payload, writtenAt string
	err := s.DB.QueryRowContext(ctx,
		`SELECT payload_json, written_at FROM forecast_cache WHERE bill_key = ?`, key).
		Scan(&payload, &writtenAt)
	if err == sql.ErrNoRows {
		return domain.Forecast{}, ErrNotFound
	}
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("read forecast cache: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, writtenAt)
	if err != nil {
		return domain.Forecast{}, ErrNotFound
	}
	if now.Sub(ts) >= maxAge {
		return domain.Forecast{}, ErrNotFound
	}
	var f domain.Forecast
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return domain.Forecast{}, ErrNotFound
	}
	return f, nil
}

// PutForecast writes through the forecast, overwriting any previous entry.
func (s Store) PutForecast(ctx context.Context, key string, f domain.Forecast, now time.Time) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal forecast: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO forecast_cache(bill_key, payload_json, written_at) VALUES (?,?,?)
		 ON CONFLICT(bill_key) DO UPDATE SET payload_json=excluded.payload_json, written_at=excluded.written_at`,
		key, string(payload), now.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write forecast cache: %w", err)
	}
	return nil
}

// DeleteForecast evicts one entry. Missing entries are not an error.
func (s Store) DeleteForecast(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM forecast_cache WHERE bill_key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete forecast cache entry: %w", err)
	}
	return nil
}

// PurgeForecasts drops every cached forecast and reports how many rows went.
func (s Store) PurgeForecasts(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM forecast_cache`)
	if err != nil {
		return 0, fmt.Errorf("purge forecast cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
