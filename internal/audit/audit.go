package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Event types appended by the orchestrator.
const (
	TypeComputed = "forecast.computed"
	TypeCacheHit = "forecast.cache_hit"
	TypeDegraded = "forecast.degraded"
	TypeNotFound = "forecast.not_found"
	TypePurged   = "cache.purged"
)

type Payload map[string]any

// Event is one stored audit row.
type Event struct {
	ID      int64   `json:"id"`
	TS      string  `json:"ts"`
	Type    string  `json:"type"`
	BillKey string  `json:"bill_key,omitempty"`
	Payload Payload `json:"payload,omitempty"`
}

// Writer appends audit rows for forecast computations.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Append inserts one audit event. The bill key may be empty for
// cache-wide operations.
func (w Writer) Append(ctx context.Context, evtType, billKey string, payload Payload) error {
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx,
		`INSERT INTO audit_events(ts, type, bill_key, payload_json) VALUES (?,?,?,?)`,
		w.now().UTC().Format(time.RFC3339), evtType, nullable(billKey), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// Filter narrows a Tail query. Zero values mean no filter; Limit
// defaults to 20.
type Filter struct {
	Type    string
	BillKey string
	Limit   uint64
}

// Tail returns the newest audit events matching the filter, newest first.
func (w Writer) Tail(ctx context.Context, f Filter) ([]Event, error) {
	if f.Limit == 0 {
		f.Limit = 20
	}
	q := sq.Select("id", "ts", "type", "bill_key", "payload_json").
		From("audit_events").
		OrderBy("id DESC").
		Limit(f.Limit)
	if f.Type != "" {
		q = q.Where(sq.Eq{"type": f.Type})
	}
	if f.BillKey != "" {
		q = q.Where(sq.Eq{"bill_key": f.BillKey})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var billKey sql.NullString
		var payload string
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &billKey, &payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.BillKey = billKey.String
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			e.Payload = Payload{}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
