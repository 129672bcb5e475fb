package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"billcast/internal/cache"
	"billcast/internal/domain"
	"billcast/internal/forecast"
)

type stubProvider struct {
	rec domain.BillRecord
}

func (p stubProvider) FetchBillRecord(ctx context.Context, id domain.BillID) (domain.BillRecord, error) {
	rec := p.rec
	rec.ID = id
	return rec, nil
}

func (p stubProvider) FetchProceduralHistory(ctx context.Context, id domain.BillID) ([]domain.ProceduralEvent, error) {
	return nil, nil
}

func (p stubProvider) FetchRapporteurs(ctx context.Context, id domain.BillID) ([]domain.Rapporteur, error) {
	return nil, nil
}

func newHandler(t *testing.T, secret string) http.Handler {
	t.Helper()
	o := &forecast.Orchestrator{
		Provider: stubProvider{rec: domain.BillRecord{
			Title:  "Regulamentação de apostas",
			Status: domain.BillStatus{Location: "CCJ", Text: "Em tramitação"},
		}},
		Memory: cache.NewMemory(nil),
	}
	h, err := New(Config{
		Orchestrator: o,
		Watchlist:    []domain.BillID{{Kind: "PL", Number: "1", Year: "2024"}},
		BasePath:     "/api/v1",
		JWTSecret:    secret,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(newHandler(t, ""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestGetForecast(t *testing.T) {
	srv := httptest.NewServer(newHandler(t, ""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/bills/PL/2234/2022/forecast")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var f domain.Forecast
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.BillID.Key() != "PL_2234_2022" {
		t.Errorf("bill = %+v", f.BillID)
	}
	if f.Risk.Level == "" || len(f.Risk.Factors) == 0 {
		t.Errorf("risk not populated: %+v", f.Risk)
	}
}

func TestSectorOverviewUsesWatchlistWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(newHandler(t, ""))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/sector/overview", "application/json",
		jsonBody(`{"ids": []}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var overview domain.SectorOverview
	if err := json.NewDecoder(resp.Body).Decode(&overview); err != nil {
		t.Fatal(err)
	}
	if overview.BillCount != 1 {
		t.Errorf("count = %d, want the single watchlist bill", overview.BillCount)
	}
}

func TestSectorOverviewRejectsBadID(t *testing.T) {
	srv := httptest.NewServer(newHandler(t, ""))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/sector/overview", "application/json",
		jsonBody(`{"ids": ["nope"]}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEventsWithoutAuditIsEmpty(t *testing.T) {
	srv := httptest.NewServer(newHandler(t, ""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	srv := httptest.NewServer(newHandler(t, "s3cret"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/bills/PL/1/2024/forecast")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	// Health stays open for probes.
	resp, err = http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthAcceptsValidToken(t *testing.T) {
	secret := "s3cret"
	srv := httptest.NewServer(newHandler(t, secret))
	defer srv.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "analyst",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/bills/PL/1/2024/forecast", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}
