package timeline

import (
	"fmt"
	"math"
	"strings"
	"time"

	"billcast/internal/domain"
	"billcast/internal/risk"
	"billcast/internal/stage"
)

// Keyword prefixes that mark a procedure as finished.
var terminalKeywords = []string{
	"ARQUIVAD", "REJEITAD", "PREJUDICAD", "RETIRAD", "VETADO", "ENCERRAD",
}

var urgencyKeywords = []string{
	"URGENTE", "URGÊNCIA", "PRIORIDADE", "EMERGENCIAL", "IMEDIATO",
	"REGIME DE URGÊNCIA", "TRAMITAÇÃO URGENTE", "SOLICITAÇÃO DE URGÊNCIA",
}

// Terminated reports whether the status or the newest event carries a
// terminal keyword.
func Terminated(status domain.BillStatus, events []domain.ProceduralEvent) bool {
	texts := []string{status.Text}
	if len(events) > 0 {
		texts = append(texts, events[0].Text, events[0].Status)
	}
	for _, t := range texts {
		upper := strings.ToUpper(t)
		for _, kw := range terminalKeywords {
			if strings.Contains(upper, kw) {
				return true
			}
		}
	}
	return false
}

func containsUrgency(text string) bool {
	upper := strings.ToUpper(text)
	for _, kw := range urgencyKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// Estimator predicts time to approval from the stage model and the
// observed tramitation velocity.
type Estimator struct {
	Now func() time.Time
}

func (e Estimator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// UrgencyIndicators counts the signals that push a bill onto a shorter path.
func UrgencyIndicators(rec domain.BillRecord) int {
	count := 0
	if containsUrgency(rec.Title) {
		count += 2
	}
	dates := risk.EventDates(rec.Events)
	if len(dates) >= 3 {
		recent := dates[:3]
		mean := risk.MeanIntervalDays(recent)
		if mean < 7 {
			count++
		}
		if mean < 3 {
			count += 2
		}
	}
	limit := len(rec.Events)
	if limit > 5 {
		limit = 5
	}
	for _, ev := range rec.Events[:limit] {
		if containsUrgency(ev.Text) {
			count += 2
			break
		}
	}
	if risk.AuthorType(rec.Author) == "executive" {
		count++
	}
	return count
}

// SelectPath maps the urgency indicator count to a path name.
func SelectPath(indicators int) string {
	switch {
	case indicators >= 3:
		return stage.PathUrgent
	case indicators >= 1:
		return stage.PathSimplified
	default:
		return stage.PathNormal
	}
}

// velocityMultiplier compares expected cadence (15 days per event) against
// the actual elapsed span of the dated events.
func velocityMultiplier(events []domain.ProceduralEvent) (float64, string) {
	dates := risk.EventDates(events)
	if len(dates) < 2 {
		return 1.0, "Not enough dated events to measure velocity"
	}
	newest, oldest := dates[0], dates[0]
	for _, d := range dates {
		if d.After(newest) {
			newest = d
		}
		if d.Before(oldest) {
			oldest = d
		}
	}
	actual := newest.Sub(oldest).Hours() / 24
	if actual <= 0 {
		return 0.8, "All dated events fall on the same day"
	}
	expected := 15.0 * float64(len(dates))
	ratio := expected / actual
	switch {
	case ratio > 1.5:
		return 0.7, fmt.Sprintf("Tramitation much faster than typical (ratio %.2f)", ratio)
	case ratio > 1.1:
		return 0.9, fmt.Sprintf("Tramitation faster than typical (ratio %.2f)", ratio)
	case ratio < 0.6:
		return 1.3, fmt.Sprintf("Tramitation much slower than typical (ratio %.2f)", ratio)
	case ratio < 0.9:
		return 1.1, fmt.Sprintf("Tramitation slower than typical (ratio %.2f)", ratio)
	}
	return 1.0, fmt.Sprintf("Tramitation close to typical velocity (ratio %.2f)", ratio)
}

// Estimate computes the remaining time from the current stage to the end
// of the selected path, adjusted by observed velocity. Terminated bills
// short-circuit to a not-applicable marker.
func (e Estimator) Estimate(rec domain.BillRecord, status domain.BillStatus, events []domain.ProceduralEvent) domain.TimelineEstimate {
	if Terminated(status, events) {
		return domain.TimelineEstimate{
			NotApplicable: true,
			Estimate:      "Not applicable",
			Factors: []domain.RiskFactor{
				domain.NeutralFactor("Procedure state", "Terminal status detected",
					"The bill was archived, rejected, withdrawn or vetoed; no approval timeline applies"),
			},
		}
	}

	current := stage.Identify(rec)
	indicators := UrgencyIndicators(rec)
	pathName := SelectPath(indicators)
	remaining := stage.Remaining(current, pathName)

	var months float64
	for _, s := range remaining {
		months += s.Midpoint()
	}
	mult, multReason := velocityMultiplier(events)
	months *= mult

	factors := []domain.RiskFactor{
		domain.NeutralFactor("Current stage", current.Name, fmt.Sprintf("%d stage(s) remaining on the %s path", len(remaining), pathName)),
		domain.NeutralFactor("Path selection", fmt.Sprintf("%s path (%d urgency indicator(s))", pathName, indicators), "Urgency signals from title, cadence, events and authorship"),
		domain.NeutralFactor("Velocity adjustment", fmt.Sprintf("Multiplier %.1f", mult), multReason),
	}

	if months < 1 {
		days := int(math.Round(months * 30))
		return domain.TimelineEstimate{
			Days:     days,
			Estimate: fmt.Sprintf("%d days", days),
			Factors:  factors,
		}
	}
	minM := int(math.Round(months * 0.8))
	maxM := int(math.Round(months * 1.2))
	if minM < 1 {
		minM = 1
	}
	if maxM < minM {
		maxM = minM
	}
	return domain.TimelineEstimate{
		MinMonths: minM,
		MaxMonths: maxM,
		Estimate:  fmt.Sprintf("%d-%d months", minM, maxM),
		Factors:   factors,
	}
}
