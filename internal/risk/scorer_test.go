package risk

import (
	"testing"
	"time"

	"billcast/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
}

func TestScoreFactorOrder(t *testing.T) {
	s := Scorer{Now: fixedNow}
	rec := domain.BillRecord{
		ID:          domain.BillID{Kind: "PL", Number: "1", Year: "2024"},
		PresentedAt: "2024-06-01",
		Author:      "Poder Executivo",
		Events: []domain.ProceduralEvent{
			{Date: "2024-06-06", Text: "Movimentação"},
			{Date: "2024-06-01", Text: "Movimentação"},
		},
		Rapporteurs: []domain.Rapporteur{{Name: "Senadora A", Current: true}},
	}
	status := domain.BillStatus{Location: "CCJ", Text: "Aprovação do parecer"}

	got := s.Score(rec, status)
	want := []string{
		"Location power", "Status trend", "Bill age", "Tramitation cadence",
		"Recency", "Rapporteur", "Author influence",
	}
	if len(got.Factors) != len(want) {
		t.Fatalf("factors = %d, want %d", len(got.Factors), len(want))
	}
	for i, name := range want {
		if got.Factors[i].Name != name {
			t.Errorf("factor[%d] = %q, want %q", i, got.Factors[i].Name, name)
		}
	}
	if got.Score < 0 || got.Score > 100 {
		t.Errorf("score %v out of range", got.Score)
	}
}

func TestScoreClamped(t *testing.T) {
	s := Scorer{Now: fixedNow}
	rec := domain.BillRecord{
		PresentedAt: "2020-01-01",
		Events: []domain.ProceduralEvent{
			{Date: "2020-03-01"},
			{Date: "2020-01-01"},
		},
	}
	status := domain.BillStatus{Location: "Secretaria", Text: "Arquivada ao final da legislatura"}
	got := s.Score(rec, status)
	if got.Score < 0 {
		t.Fatalf("score %v below zero", got.Score)
	}
	if got.Level != "Very Low" {
		t.Errorf("level = %q, want Very Low", got.Level)
	}
}

func TestPlenaryScenario(t *testing.T) {
	// Presented 10 days ago, no rapporteur, sitting in the floor queue.
	s := Scorer{Now: fixedNow}
	rec := domain.BillRecord{PresentedAt: "2024-05-31"}
	status := domain.BillStatus{Location: "Plenário", Text: "Em tramitação"}

	got := s.Score(rec, status)
	if got.Score != 50 {
		t.Fatalf("score = %v, want 50 (+10 location, -5 age, -5 rapporteur, neutral status)", got.Score)
	}
	if got.Level != "Medium" {
		t.Errorf("level = %q, want Medium", got.Level)
	}
}

func TestAdvancingCommitteeScenario(t *testing.T) {
	s := Scorer{Now: fixedNow}
	rec := domain.BillRecord{
		PresentedAt: "2024-01-01",
		Events: []domain.ProceduralEvent{
			{Date: "2024-06-06", Text: "Parecer lido"},
			{Date: "2024-06-01", Text: "Distribuído"},
		},
	}
	status := domain.BillStatus{Location: "CCJ", Text: "APROVADO EM COMISSÃO"}

	got := s.Score(rec, status)
	// +10 location, +15 advancing, +10 cadence, +5 recency, -5 rapporteur.
	if got.Score != 85 {
		t.Fatalf("score = %v, want 85", got.Score)
	}
	if got.Level != "Very High" {
		t.Errorf("level = %q, want Very High", got.Level)
	}
}

func TestLocationDeltaIsExact(t *testing.T) {
	s := Scorer{Now: fixedNow}
	rec := domain.BillRecord{PresentedAt: "2024-05-01"}

	inCommittee := s.Score(rec, domain.BillStatus{Location: "CAE", Text: "Em análise"})
	elsewhere := s.Score(rec, domain.BillStatus{Location: "Secretaria Geral", Text: "Em análise"})

	if diff := inCommittee.Score - elsewhere.Score; diff != 15 {
		t.Fatalf("high-power vs ordinary location delta = %v, want 15", diff)
	}
}

func TestAuthorType(t *testing.T) {
	cases := map[string]string{
		"Poder Executivo":                "executive",
		"Comissão de Assuntos Sociais":   "institutional",
		"Senador Fulano de Tal (MDB/SP)": "parliamentary",
		"Iniciativa Popular":             "other",
	}
	for author, want := range cases {
		if got := AuthorType(author); got != want {
			t.Errorf("AuthorType(%q) = %q, want %q", author, got, want)
		}
	}
}

func TestEventDatesSkipsMalformed(t *testing.T) {
	events := []domain.ProceduralEvent{
		{Date: "2024-06-01"},
		{Date: "not-a-date"},
		{Date: ""},
		{Date: "2024-06-05"},
	}
	dates := EventDates(events)
	if len(dates) != 2 {
		t.Fatalf("dates = %d, want 2", len(dates))
	}
	if !dates[0].After(dates[1]) {
		t.Errorf("dates not newest-first: %v", dates)
	}
}
