package domain

import "testing"

func TestParseBillID(t *testing.T) {
	cases := []struct {
		in   string
		want BillID
	}{
		{"PL 2234/2022", BillID{Kind: "PL", Number: "2234", Year: "2022"}},
		{"pl 2234/2022", BillID{Kind: "PL", Number: "2234", Year: "2022"}},
		{"PL_2234_2022", BillID{Kind: "PL", Number: "2234", Year: "2022"}},
		{"PEC 45/2019", BillID{Kind: "PEC", Number: "45", Year: "2019"}},
	}
	for _, c := range cases {
		got, err := ParseBillID(c.in)
		if err != nil {
			t.Errorf("ParseBillID(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseBillID(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"", "PL", "PL 2234", "PL_2234", "PL//2022"} {
		if _, err := ParseBillID(bad); err == nil {
			t.Errorf("ParseBillID(%q) should fail", bad)
		}
	}
}

func TestBillIDKeyAndString(t *testing.T) {
	id := BillID{Kind: "PL", Number: "2234", Year: "2022"}
	if got := id.Key(); got != "PL_2234_2022" {
		t.Errorf("Key = %q", got)
	}
	if got := id.String(); got != "PL 2234/2022" {
		t.Errorf("String = %q", got)
	}
}

func TestRiskLevelBands(t *testing.T) {
	cases := map[float64]string{
		0:   "Very Low",
		19:  "Very Low",
		20:  "Low",
		39:  "Low",
		40:  "Medium",
		59:  "Medium",
		60:  "High",
		79:  "High",
		80:  "Very High",
		100: "Very High",
	}
	for score, want := range cases {
		if got := RiskLevelName(score); got != want {
			t.Errorf("RiskLevelName(%v) = %q, want %q", score, got, want)
		}
	}
}

func TestFactorImpactFormatting(t *testing.T) {
	up := ScoredFactor("x", "d", 10, "e")
	if up.Impact != "+10 points" {
		t.Errorf("impact = %q", up.Impact)
	}
	down := ScoredFactor("x", "d", -5, "e")
	if down.Impact != "-5 points" {
		t.Errorf("impact = %q", down.Impact)
	}
	neutral := NeutralFactor("x", "d", "e")
	if neutral.Impact != ImpactNeutral || neutral.Delta != 0 {
		t.Errorf("neutral = %+v", neutral)
	}
}

func TestRecordEmpty(t *testing.T) {
	if !(BillRecord{ID: BillID{Kind: "PL"}}).Empty() {
		t.Error("id-only record should be empty")
	}
	if (BillRecord{Title: "x"}).Empty() {
		t.Error("titled record should not be empty")
	}
}
