package stage

import (
	"testing"

	"billcast/internal/domain"
)

func TestIdentifyFromStatus(t *testing.T) {
	cases := map[string]string{
		"Recebido na secretaria":         Initial.Name,
		"Aguardando designação na CAE":   Committees.Name,
		"Matéria na CCJ":                 Justice.Name,
		"Incluída em Ordem do Dia":       Plenary.Name,
		"Remessa à Câmara dos Deputados": Revision.Name,
		"Aguarda sanção":                 Sanction.Name,
	}
	for text, want := range cases {
		rec := domain.BillRecord{Status: domain.BillStatus{Text: text}}
		if got := Identify(rec); got.Name != want {
			t.Errorf("Identify(%q) = %s, want %s", text, got.Name, want)
		}
	}
}

func TestIdentifyFallsBackToNewestEvent(t *testing.T) {
	rec := domain.BillRecord{
		Status: domain.BillStatus{Text: "xyz"},
		Events: []domain.ProceduralEvent{
			{Text: "Matéria no Plenário", Location: ""},
			{Text: "Protocolada", Location: ""},
		},
	}
	if got := Identify(rec); got.Name != Plenary.Name {
		t.Fatalf("Identify = %s, want %s", got.Name, Plenary.Name)
	}
}

func TestIdentifyDefaultsToInitial(t *testing.T) {
	if got := Identify(domain.BillRecord{}); got.Name != Initial.Name {
		t.Fatalf("Identify = %s, want %s", got.Name, Initial.Name)
	}
}

func TestRemainingPrependsOffPathStage(t *testing.T) {
	got := Remaining(Rapporteur, PathNormal)
	if got[0].Name != Rapporteur.Name {
		t.Fatalf("first = %s, want %s", got[0].Name, Rapporteur.Name)
	}
	if len(got) != len(Path(PathNormal))+1 {
		t.Errorf("len = %d, want %d", len(got), len(Path(PathNormal))+1)
	}
}

func TestRemainingFromMidPath(t *testing.T) {
	got := Remaining(Plenary, PathNormal)
	want := []string{Plenary.Name, Revision.Name, Sanction.Name}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("remaining[%d] = %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestAfterCapsResults(t *testing.T) {
	got := After(Initial, PathNormal, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != Committees.Name || got[1].Name != Justice.Name {
		t.Errorf("got %s,%s want %s,%s", got[0].Name, got[1].Name, Committees.Name, Justice.Name)
	}
}

func TestAfterAtFinalStage(t *testing.T) {
	if got := After(Sanction, PathNormal, 2); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestPathShapes(t *testing.T) {
	if n := len(Path(PathNormal)); n != 6 {
		t.Errorf("normal path has %d stages, want 6", n)
	}
	if n := len(Path(PathUrgent)); n != 5 {
		t.Errorf("urgent path has %d stages, want 5", n)
	}
	if n := len(Path(PathSimplified)); n != 4 {
		t.Errorf("simplified path has %d stages, want 4", n)
	}
	if n := len(Path("unknown")); n != 6 {
		t.Errorf("unknown path has %d stages, want normal fallback of 6", n)
	}
}
