package forecast

import (
	"context"
	"time"

	"billcast/internal/audit"
	"billcast/internal/domain"
)

// BillProvider supplies normalized bill data. Implementations must be
// safe to call with unknown identifiers: empty results, not errors.
type BillProvider interface {
	FetchBillRecord(ctx context.Context, id domain.BillID) (domain.BillRecord, error)
	FetchProceduralHistory(ctx context.Context, id domain.BillID) ([]domain.ProceduralEvent, error)
	FetchRapporteurs(ctx context.Context, id domain.BillID) ([]domain.Rapporteur, error)
}

// TextClassifier is the optional model-backed collaborator. The
// orchestrator must function with it entirely absent.
type TextClassifier interface {
	Classify(ctx context.Context, text string, categories []string) (map[string]float64, error)
	Generate(ctx context.Context, text, instruction string) (string, error)
}

// Store is the durable cache tier.
type Store interface {
	GetForecast(ctx context.Context, key string, maxAge time.Duration, now time.Time) (domain.Forecast, error)
	PutForecast(ctx context.Context, key string, f domain.Forecast, now time.Time) error
}

// AuditSink records computation events.
type AuditSink interface {
	Append(ctx context.Context, evtType, billKey string, payload audit.Payload) error
}
