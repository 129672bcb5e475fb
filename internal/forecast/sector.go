package forecast

import (
	"context"
	"sort"
	"strings"
	"time"

	"billcast/internal/domain"
)

const (
	topBillsLimit       = 5
	criticalEventsLimit = 5
	highRiskThreshold   = 60
	mediumRiskThreshold = 40
)

// SectorOverview maps Forecast over the given bills and aggregates the
// results. Not-found bills are skipped in the aggregates.
func (o *Orchestrator) SectorOverview(ctx context.Context, ids []domain.BillID, forceRefresh bool) domain.SectorOverview {
	forecasts := make([]domain.Forecast, 0, len(ids))
	for _, id := range ids {
		forecasts = append(forecasts, o.Forecast(ctx, id, forceRefresh))
	}
	return Aggregate(forecasts, o.now())
}

// Aggregate folds a set of forecasts into the sector overview.
func Aggregate(forecasts []domain.Forecast, now time.Time) domain.SectorOverview {
	out := domain.SectorOverview{
		ComputedAt: now.UTC().Format(time.RFC3339),
	}

	var scored []domain.Forecast
	var total float64
	for _, f := range forecasts {
		if f.NotFound {
			continue
		}
		scored = append(scored, f)
		total += f.Risk.Score
		switch {
		case f.Risk.Score >= highRiskThreshold:
			out.Distribution.High++
		case f.Risk.Score >= mediumRiskThreshold:
			out.Distribution.Medium++
		default:
			out.Distribution.Low++
		}
	}
	out.BillCount = len(scored)
	if len(scored) == 0 {
		out.AverageLevel = domain.RiskLevelName(0)
		return out
	}
	out.AverageScore = total / float64(len(scored))
	out.AverageLevel = domain.RiskLevelName(out.AverageScore)

	byScore := make([]domain.Forecast, len(scored))
	copy(byScore, scored)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Risk.Score > byScore[j].Risk.Score })

	for _, f := range byScore {
		if f.Risk.Score < highRiskThreshold {
			break
		}
		out.TopHighRisk = append(out.TopHighRisk, domain.HighRiskBill{
			BillID: f.BillID,
			Title:  f.Title,
			Score:  f.Risk.Score,
			Status: f.Status.Text,
		})
		if len(out.TopHighRisk) == topBillsLimit {
			break
		}
	}

	out.CriticalEvents = criticalEvents(byScore)
	return out
}

// criticalEvents collects upcoming votes and formal reports from
// high-risk bills, sorted by score then probability tier.
func criticalEvents(byScore []domain.Forecast) []domain.CriticalEvent {
	var events []domain.CriticalEvent
	for _, f := range byScore {
		if f.Risk.Score < highRiskThreshold {
			continue
		}
		for _, step := range f.NextSteps {
			if step.Probability != domain.ProbabilityHigh && step.Probability != domain.ProbabilityMedium {
				continue
			}
			if !denotesVoteOrReport(step.Step) {
				continue
			}
			events = append(events, domain.CriticalEvent{
				BillID:      f.BillID,
				Title:       f.Title,
				Event:       step.Step,
				Probability: step.Probability,
				Observation: step.Observation,
				Context:     step.Context,
				Score:       f.Risk.Score,
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Score != events[j].Score {
			return events[i].Score > events[j].Score
		}
		return tierRank(events[i].Probability) < tierRank(events[j].Probability)
	})
	if len(events) > criticalEventsLimit {
		events = events[:criticalEventsLimit]
	}
	return events
}

func denotesVoteOrReport(step string) bool {
	lower := strings.ToLower(step)
	return strings.Contains(lower, "vote") || strings.Contains(lower, "report")
}

func tierRank(tier string) int {
	switch tier {
	case domain.ProbabilityHigh:
		return 0
	case domain.ProbabilityMedium:
		return 1
	}
	return 2
}
