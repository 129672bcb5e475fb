package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"billcast/internal/domain"
)

const baselineScore = 50

// Committees and floors where a bill's presence signals real traction.
var highPowerLocations = []string{
	"CCJ",
	"CAE",
	"PLENÁRIO",
	"MESA",
	"COMISSÃO DIRETORA",
	"COMISSÃO DE CONSTITUIÇÃO E JUSTIÇA",
	"COMISSÃO DE ASSUNTOS ECONÔMICOS",
}

var advancingKeywords = []string{
	"APROVAD", "APROVAÇÃO", "VOTAÇÃO", "DESIGNADO RELATOR",
	"INCLUÍDA EM ORDEM DO DIA", "PRONTA PARA A PAUTA",
	"AUDIÊNCIA PÚBLICA", "PARECER FAVORÁVEL", "URGÊNCIA",
}

var stalledKeywords = []string{
	"ARQUIVAD", "PREJUDICAD", "RETIRAD", "REJEITAD",
	"DEVOLVID", "RETIRADO PELO AUTOR", "PARECER CONTRÁRIO",
}

// IsHighPowerLocation reports whether the location is one of the
// high-influence committees or the floor.
func IsHighPowerLocation(location string) bool {
	upper := strings.ToUpper(location)
	for _, l := range highPowerLocations {
		if strings.Contains(upper, l) {
			return true
		}
	}
	return false
}

// AuthorType buckets an author display string.
func AuthorType(author string) string {
	upper := strings.ToUpper(author)
	switch {
	case strings.Contains(upper, "PODER EXECUTIVO") || strings.Contains(upper, "PRESIDÊNCIA") || strings.Contains(upper, "PRESIDENTE DA REPÚBLICA"):
		return "executive"
	case strings.Contains(upper, "COMISSÃO") || strings.Contains(upper, "MESA"):
		return "institutional"
	case strings.Contains(author, "("):
		return "parliamentary"
	default:
		return "other"
	}
}

// Scorer computes the approval-likelihood score for a bill snapshot.
// Every heuristic runs behind its own guard so one bad field never
// aborts the whole assessment.
type Scorer struct {
	Now func() time.Time
}

func (s Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Score evaluates the fixed factor sequence over the record and returns
// the clamped score with every evaluated factor in order.
func (s Scorer) Score(rec domain.BillRecord, status domain.BillStatus) domain.RiskAssessment {
	score := float64(baselineScore)
	var factors []domain.RiskFactor

	steps := []func(domain.BillRecord, domain.BillStatus) (domain.RiskFactor, bool){
		s.locationFactor,
		s.statusTrendFactor,
		s.ageFactor,
		s.cadenceFactor,
		s.recencyFactor,
		s.rapporteurFactor,
		s.authorFactor,
	}
	for _, step := range steps {
		f, ok := step(rec, status)
		if !ok {
			continue
		}
		score += f.Delta
		factors = append(factors, f)
	}

	score = math.Max(0, math.Min(100, score))
	return domain.RiskAssessment{
		Score:   score,
		Level:   domain.RiskLevelName(score),
		Factors: factors,
	}
}

func (s Scorer) locationFactor(rec domain.BillRecord, status domain.BillStatus) (domain.RiskFactor, bool) {
	loc := strings.TrimSpace(status.Location)
	if loc == "" {
		return domain.RiskFactor{}, false
	}
	if IsHighPowerLocation(loc) {
		return domain.ScoredFactor("Location power", fmt.Sprintf("Currently at %s", loc), 10,
			"High-influence committee or floor; presence there correlates with real movement"), true
	}
	return domain.ScoredFactor("Location power", fmt.Sprintf("Currently at %s", loc), -5,
		"Location outside the decisive committees"), true
}

func (s Scorer) statusTrendFactor(rec domain.BillRecord, status domain.BillStatus) (domain.RiskFactor, bool) {
	text := strings.TrimSpace(status.Text)
	if text == "" {
		return domain.RiskFactor{}, false
	}
	upper := strings.ToUpper(text)
	for _, kw := range advancingKeywords {
		if strings.Contains(upper, kw) {
			return domain.ScoredFactor("Status trend", text, 15, "Status indicates active advancement"), true
		}
	}
	for _, kw := range stalledKeywords {
		if strings.Contains(upper, kw) {
			return domain.ScoredFactor("Status trend", text, -40, "Status indicates a stalled or terminated procedure"), true
		}
	}
	return domain.NeutralFactor("Status trend", text, "Status matches neither advancing nor stalled signals"), true
}

func (s Scorer) ageFactor(rec domain.BillRecord, _ domain.BillStatus) (domain.RiskFactor, bool) {
	presented, err := ParseDate(rec.PresentedAt)
	if err != nil {
		return domain.RiskFactor{}, false
	}
	days := int(s.now().Sub(presented).Hours() / 24)
	switch {
	case days < 30:
		return domain.ScoredFactor("Bill age", fmt.Sprintf("Presented %d days ago", days), -5,
			"Too recent to have built momentum"), true
	case days > 365:
		return domain.ScoredFactor("Bill age", fmt.Sprintf("Presented %d days ago", days), -10,
			"Old bills tend to lose priority"), true
	}
	return domain.RiskFactor{}, false
}

func (s Scorer) cadenceFactor(rec domain.BillRecord, _ domain.BillStatus) (domain.RiskFactor, bool) {
	dates := EventDates(rec.Events)
	if len(dates) < 2 {
		return domain.RiskFactor{}, false
	}
	mean := MeanIntervalDays(dates)
	desc := fmt.Sprintf("Mean interval of %.0f days between events", mean)
	switch {
	case mean < 15:
		return domain.ScoredFactor("Tramitation cadence", desc, 10, "Fast cadence of procedural movement"), true
	case mean > 60:
		return domain.ScoredFactor("Tramitation cadence", desc, -10, "Slow cadence of procedural movement"), true
	}
	return domain.NeutralFactor("Tramitation cadence", desc, "Cadence within the typical range"), true
}

func (s Scorer) recencyFactor(rec domain.BillRecord, _ domain.BillStatus) (domain.RiskFactor, bool) {
	dates := EventDates(rec.Events)
	if len(dates) == 0 {
		return domain.RiskFactor{}, false
	}
	newest := dates[0]
	for _, d := range dates[1:] {
		if d.After(newest) {
			newest = d
		}
	}
	days := int(s.now().Sub(newest).Hours() / 24)
	switch {
	case days > 90:
		return domain.ScoredFactor("Recency", fmt.Sprintf("Last movement %d days ago", days), -15,
			"No recent procedural activity"), true
	case days < 15:
		return domain.ScoredFactor("Recency", fmt.Sprintf("Last movement %d days ago", days), 5,
			"Recent procedural activity"), true
	}
	return domain.RiskFactor{}, false
}

func (s Scorer) rapporteurFactor(rec domain.BillRecord, _ domain.BillStatus) (domain.RiskFactor, bool) {
	if len(rec.Rapporteurs) > 0 {
		return domain.ScoredFactor("Rapporteur", fmt.Sprintf("%d rapporteur(s) assigned", len(rec.Rapporteurs)), 10,
			"An assigned rapporteur moves the analysis forward"), true
	}
	return domain.ScoredFactor("Rapporteur", "No rapporteur assigned", -5,
		"Without a rapporteur the bill waits in queue"), true
}

func (s Scorer) authorFactor(rec domain.BillRecord, _ domain.BillStatus) (domain.RiskFactor, bool) {
	author := strings.TrimSpace(rec.Author)
	if author == "" {
		return domain.RiskFactor{}, false
	}
	switch AuthorType(author) {
	case "executive":
		return domain.ScoredFactor("Author influence", author, 15, "Executive-branch bills carry government priority"), true
	case "institutional":
		return domain.ScoredFactor("Author influence", author, 10, "Institutional authorship signals internal consensus"), true
	}
	return domain.RiskFactor{}, false
}

// ParseDate accepts the date layouts seen in upstream data.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// EventDates extracts the parseable event dates, newest first.
func EventDates(events []domain.ProceduralEvent) []time.Time {
	var dates []time.Time
	for _, e := range events {
		if t, err := ParseDate(e.Date); err == nil {
			dates = append(dates, t)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates
}

// MeanIntervalDays computes the mean gap in days between consecutive dates.
// Input must hold at least two entries.
func MeanIntervalDays(dates []time.Time) float64 {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	var total float64
	for i := 1; i < len(sorted); i++ {
		total += sorted[i].Sub(sorted[i-1]).Hours() / 24
	}
	return total / float64(len(sorted)-1)
}
