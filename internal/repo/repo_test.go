package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"billcast/internal/db"
	"billcast/internal/domain"
	"billcast/internal/migrate"
)

func newStore(t *testing.T) Store {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Store{DB: conn}
}

func sampleForecast() domain.Forecast {
	return domain.Forecast{
		ComputationID: "c1",
		BillID:        domain.BillID{Kind: "PL", Number: "2234", Year: "2022"},
		ComputedAt:    "2024-06-10T12:00:00Z",
		Title:         "Regulamentação de apostas",
		Risk: domain.RiskAssessment{
			Score: 72,
			Level: "High",
			Factors: []domain.RiskFactor{
				{Name: "Location power", Impact: "+10 points", Delta: 10},
			},
		},
		Timeline:  domain.TimelineEstimate{MinMonths: 6, MaxMonths: 9, Estimate: "6-9 months"},
		NextSteps: []domain.NextStepPrediction{{Step: "Floor vote", Probability: "High"}},
	}
}

func TestForecastRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	f := sampleForecast()
	key := f.BillID.Key()

	if err := s.PutForecast(ctx, key, f, now); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.GetForecast(ctx, key, 24*time.Hour, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ComputationID != f.ComputationID || got.Risk.Score != f.Risk.Score {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Risk.Factors) != 1 || got.Risk.Factors[0].Name != "Location power" {
		t.Errorf("factors lost: %+v", got.Risk.Factors)
	}
}

func TestStaleEntryIsMiss(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	f := sampleForecast()

	if err := s.PutForecast(ctx, f.BillID.Key(), f, now); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, err := s.GetForecast(ctx, f.BillID.Key(), 24*time.Hour, now.Add(25*time.Hour))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO forecast_cache(bill_key, payload_json, written_at) VALUES (?,?,?)`,
		"PL_9_2024", "{not json", now.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err = s.GetForecast(ctx, "PL_9_2024", 24*time.Hour, now)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	f := sampleForecast()
	key := f.BillID.Key()

	if err := s.PutForecast(ctx, key, f, now); err != nil {
		t.Fatalf("put: %v", err)
	}
	f.ComputationID = "c2"
	if err := s.PutForecast(ctx, key, f, now.Add(time.Hour)); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, err := s.GetForecast(ctx, key, 24*time.Hour, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ComputationID != "c2" {
		t.Errorf("id = %s, want c2", got.ComputationID)
	}
}

func TestPurgeForecasts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	f := sampleForecast()

	if err := s.PutForecast(ctx, "PL_1_2024", f, now); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutForecast(ctx, "PL_2_2024", f, now); err != nil {
		t.Fatalf("put: %v", err)
	}
	n, err := s.PurgeForecasts(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d, want 2", n)
	}
	if _, err := s.GetForecast(ctx, "PL_1_2024", 24*time.Hour, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after purge", err)
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	s := newStore(t)
	if err := s.DeleteForecast(context.Background(), "absent"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
