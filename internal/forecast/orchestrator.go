package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"billcast/internal/audit"
	"billcast/internal/cache"
	"billcast/internal/contextual"
	"billcast/internal/domain"
	"billcast/internal/repo"
	"billcast/internal/risk"
	"billcast/internal/timeline"
)

// FreshnessWindow is how long a cached forecast stays authoritative.
const FreshnessWindow = 24 * time.Hour

const recentEventsLimit = 5

// Orchestrator is the public entry point of the engine. It coordinates
// cache lookup, provider enrichment, the four scoring components,
// contextual adjustment and cache write-through. It never returns an
// error for a recoverable failure; it degrades to a flagged fallback.
type Orchestrator struct {
	Provider   BillProvider
	Classifier TextClassifier // optional
	Memory     cache.Cache
	Store      Store     // optional
	Audit      AuditSink // optional
	Logger     *log.Logger
	Now        func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

func (o *Orchestrator) appendAudit(ctx context.Context, evtType, billKey string, payload audit.Payload) {
	if o.Audit == nil {
		return
	}
	if err := o.Audit.Append(ctx, evtType, billKey, payload); err != nil {
		o.logf("audit append %s: %v", evtType, err)
	}
}

// Forecast computes or retrieves the forecast for one bill.
func (o *Orchestrator) Forecast(ctx context.Context, id domain.BillID, forceRefresh bool) domain.Forecast {
	key := id.Key()
	now := o.now()

	if !forceRefresh {
		if f, ok := o.cachedForecast(ctx, key, now); ok {
			o.appendAudit(ctx, audit.TypeCacheHit, key, audit.Payload{"computation_id": f.ComputationID})
			return f
		}
	}

	rec, err := o.Provider.FetchBillRecord(ctx, id)
	if err != nil {
		o.logf("provider lookup %s failed: %v", id, err)
		f := o.degradedForecast(id, rec, now)
		o.appendAudit(ctx, audit.TypeDegraded, key, audit.Payload{"reason": err.Error()})
		return f
	}
	rec.ID = id
	if rec.Empty() {
		f := o.notFoundForecast(id, now)
		o.appendAudit(ctx, audit.TypeNotFound, key, nil)
		return f
	}

	o.enrich(ctx, &rec)

	f, ok := o.compute(ctx, rec, now)
	if !ok {
		f = o.degradedForecast(id, rec, now)
		o.appendAudit(ctx, audit.TypeDegraded, key, audit.Payload{"reason": "scoring failure"})
		return f
	}

	o.writeThrough(ctx, key, f, now)
	o.appendAudit(ctx, audit.TypeComputed, key, audit.Payload{
		"computation_id": f.ComputationID,
		"score":          f.Risk.Score,
		"level":          f.Risk.Level,
	})
	return f
}

func (o *Orchestrator) cachedForecast(ctx context.Context, key string, now time.Time) (domain.Forecast, bool) {
	if o.Memory != nil {
		if f, ok := o.Memory.Get(key, FreshnessWindow); ok {
			return f, true
		}
	}
	if o.Store != nil {
		f, err := o.Store.GetForecast(ctx, key, FreshnessWindow, now)
		if err == nil {
			if o.Memory != nil {
				o.Memory.Put(key, f)
			}
			return f, true
		}
		if !errors.Is(err, repo.ErrNotFound) {
			o.logf("durable cache read %s: %v", key, err)
		}
	}
	return domain.Forecast{}, false
}

func (o *Orchestrator) writeThrough(ctx context.Context, key string, f domain.Forecast, now time.Time) {
	if o.Memory != nil {
		o.Memory.Put(key, f)
	}
	if o.Store != nil {
		if err := o.Store.PutForecast(ctx, key, f, now); err != nil {
			o.logf("durable cache write %s: %v", key, err)
		}
	}
}

func (o *Orchestrator) enrich(ctx context.Context, rec *domain.BillRecord) {
	if len(rec.Events) == 0 {
		events, err := o.Provider.FetchProceduralHistory(ctx, rec.ID)
		if err != nil {
			o.logf("history enrichment %s: %v", rec.ID, err)
		} else {
			rec.Events = events
		}
	}
	if len(rec.Rapporteurs) == 0 {
		raps, err := o.Provider.FetchRapporteurs(ctx, rec.ID)
		if err != nil {
			o.logf("rapporteur enrichment %s: %v", rec.ID, err)
		} else {
			rec.Rapporteurs = raps
		}
	}
}

// compute runs the scoring components and assembles the forecast. The
// recover guard upholds the contract that scoring never propagates a
// failure to the caller.
func (o *Orchestrator) compute(ctx context.Context, rec domain.BillRecord, now time.Time) (f domain.Forecast, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logf("scoring panic for %s: %v", rec.ID, r)
			ok = false
		}
	}()

	fixedNow := func() time.Time { return now }
	scorer := risk.Scorer{Now: fixedNow}
	estimator := timeline.Estimator{Now: fixedNow}
	classifier := contextual.Classifier{Now: fixedNow}
	var forecaster timeline.Forecaster

	analysis := classifier.Classify(rec, rec.Status, rec.Events)
	analysis = o.refineWithModel(ctx, rec, analysis)

	assessment := scorer.Score(rec, rec.Status)
	estimate := estimator.Estimate(rec, rec.Status, rec.Events)
	steps := forecaster.Predict(rec, rec.Status, rec.Events)

	assessment = applyContextualDeltas(assessment, analysis)
	estimate = shrinkForUrgency(estimate, analysis)

	recent := rec.Events
	if len(recent) > recentEventsLimit {
		recent = recent[:recentEventsLimit]
	}

	return domain.Forecast{
		ComputationID: uuid.NewString(),
		BillID:        rec.ID,
		ComputedAt:    now.UTC().Format(time.RFC3339),
		Title:         rec.Title,
		Author:        rec.Author,
		Status:        rec.Status,
		Risk:          assessment,
		Timeline:      estimate,
		NextSteps:     steps,
		Context:       analysis,
		RecentEvents:  recent,
		Authorship:    ExtractAuthorship(rec),
		Trend:         trendFrom(assessment),
	}, true
}

// refineWithModel lets the optional classifier supersede the rule-based
// urgency/controversy tiers. Any model failure keeps the rule-based read.
func (o *Orchestrator) refineWithModel(ctx context.Context, rec domain.BillRecord, analysis domain.ContextualAnalysis) domain.ContextualAnalysis {
	if o.Classifier == nil {
		return analysis
	}
	text := rec.Title + "\n" + rec.Status.Text
	scores, err := o.Classifier.Classify(ctx, text, []string{"urgency", "controversy"})
	if err != nil {
		o.logf("model classification %s: %v", rec.ID, err)
		return analysis
	}
	if v, found := scores["urgency"]; found {
		analysis.Urgency = tierFromScore(v)
	}
	if v, found := scores["controversy"]; found {
		analysis.Controversy = tierFromScore(v)
	}
	return analysis
}

func tierFromScore(v float64) string {
	switch {
	case v >= 0.66:
		return domain.TierHigh
	case v >= 0.33:
		return domain.TierMedium
	}
	return domain.TierLow
}

func applyContextualDeltas(a domain.RiskAssessment, ctx domain.ContextualAnalysis) domain.RiskAssessment {
	if ctx.Urgency == domain.TierHigh {
		f := domain.ScoredFactor("Contextual urgency", "High urgency classification", 10,
			"Urgency signals accelerate scheduling and approval odds")
		a.Score += f.Delta
		a.Factors = append(a.Factors, f)
	}
	if ctx.Controversy == domain.TierHigh {
		f := domain.ScoredFactor("Contextual controversy", "High controversy classification", -5,
			"Contested bills face amendment cycles and obstruction")
		a.Score += f.Delta
		a.Factors = append(a.Factors, f)
	}
	a.Score = math.Max(0, math.Min(100, a.Score))
	a.Level = domain.RiskLevelName(a.Score)
	return a
}

// shrinkForUrgency tightens a month-range estimate when urgency is High.
// Day-count and terminal estimates are left alone.
func shrinkForUrgency(e domain.TimelineEstimate, ctx domain.ContextualAnalysis) domain.TimelineEstimate {
	if ctx.Urgency != domain.TierHigh || e.NotApplicable || e.MinMonths == 0 {
		return e
	}
	minM := e.MinMonths - 2
	if minM < 1 {
		minM = 1
	}
	maxM := e.MaxMonths - 3
	if maxM < 3 {
		maxM = 3
	}
	if maxM < minM {
		maxM = minM
	}
	e.MinMonths = minM
	e.MaxMonths = maxM
	e.Estimate = fmt.Sprintf("%d-%d months", minM, maxM)
	e.Factors = append(e.Factors, domain.NeutralFactor("Urgency compression",
		fmt.Sprintf("Range tightened to %d-%d months", minM, maxM),
		"High contextual urgency shortens the expected path"))
	return e
}

func trendFrom(a domain.RiskAssessment) string {
	for _, f := range a.Factors {
		if f.Name != "Status trend" {
			continue
		}
		switch {
		case f.Delta > 0:
			return "advancing"
		case f.Delta < 0:
			return "stalled"
		}
		return "stable"
	}
	return "stable"
}

func (o *Orchestrator) notFoundForecast(id domain.BillID, now time.Time) domain.Forecast {
	return domain.Forecast{
		ComputationID: uuid.NewString(),
		BillID:        id,
		ComputedAt:    now.UTC().Format(time.RFC3339),
		NotFound:      true,
		Risk: domain.RiskAssessment{
			Score: 0,
			Level: domain.RiskLevelName(0),
		},
		Timeline: domain.TimelineEstimate{Estimate: "Unknown"},
	}
}

// degradedForecast is the minimal fallback when even basic scoring is
// impossible. Callers detect it via the Degraded flag.
func (o *Orchestrator) degradedForecast(id domain.BillID, rec domain.BillRecord, now time.Time) domain.Forecast {
	title := rec.Title
	return domain.Forecast{
		ComputationID: uuid.NewString(),
		BillID:        id,
		ComputedAt:    now.UTC().Format(time.RFC3339),
		Title:         title,
		Author:        rec.Author,
		Status:        rec.Status,
		Degraded:      true,
		Risk: domain.RiskAssessment{
			Score: 50,
			Level: domain.RiskLevelName(50),
			Factors: []domain.RiskFactor{
				domain.NeutralFactor("Fallback", "Insufficient data for scoring",
					"Baseline assessment returned because enrichment or scoring failed"),
			},
		},
		Timeline: domain.TimelineEstimate{
			MinMonths: 6,
			MaxMonths: 12,
			Estimate:  "6-12 months",
		},
		NextSteps: []domain.NextStepPrediction{
			{Step: "Committee review", Probability: domain.ProbabilityMedium,
				Observation: "Typical continuation for a bill in tramitation"},
			{Step: "Floor vote", Probability: domain.ProbabilityLow,
				Observation: "Follows committee review in the standard pipeline"},
		},
		Context: domain.ContextualAnalysis{
			Urgency:          domain.TierLow,
			Controversy:      domain.TierLow,
			PoliticalContext: "Insufficient data for a political read.",
			SectorImpact:     "Sector impact not automatically identified; manual review of the bill text is recommended.",
		},
	}
}

// Invalidate evicts both cache tiers for one bill.
func (o *Orchestrator) Invalidate(ctx context.Context, id domain.BillID) {
	key := id.Key()
	if o.Memory != nil {
		o.Memory.Delete(key)
	}
	if s, ok := o.Store.(interface {
		DeleteForecast(ctx context.Context, key string) error
	}); ok && o.Store != nil {
		if err := s.DeleteForecast(ctx, key); err != nil {
			o.logf("invalidate %s: %v", key, err)
		}
	}
}
