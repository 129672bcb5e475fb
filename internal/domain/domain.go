package domain

import (
	"fmt"
	"strings"
)

// BillID uniquely identifies a legislative bill.
type BillID struct {
	Kind   string `json:"kind"`
	Number string `json:"number"`
	Year   string `json:"year"`
}

// Key returns the stable cache/storage key for the bill.
func (id BillID) Key() string {
	return fmt.Sprintf("%s_%s_%s", id.Kind, id.Number, id.Year)
}

func (id BillID) String() string {
	return fmt.Sprintf("%s %s/%s", id.Kind, id.Number, id.Year)
}

// ParseBillID accepts "PL 2234/2022" or "PL_2234_2022".
func ParseBillID(s string) (BillID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BillID{}, fmt.Errorf("empty bill id")
	}
	var parts []string
	if strings.Contains(s, "_") {
		parts = strings.Split(s, "_")
	} else {
		fields := strings.Fields(s)
		if len(fields) == 2 && strings.Contains(fields[1], "/") {
			np := strings.SplitN(fields[1], "/", 2)
			parts = []string{fields[0], np[0], np[1]}
		}
	}
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return BillID{}, fmt.Errorf("invalid bill id %q (want \"PL 2234/2022\" or \"PL_2234_2022\")", s)
	}
	return BillID{Kind: strings.ToUpper(parts[0]), Number: parts[1], Year: parts[2]}, nil
}

// BillStatus is the current procedural position of a bill.
type BillStatus struct {
	Location string `json:"location,omitempty"`
	Text     string `json:"text,omitempty"`
	Date     string `json:"date,omitempty" format:"date"`
}

// ProceduralEvent is one dated entry in a bill's procedural history.
// Lists are kept most-recent-first; events with malformed dates stay in
// the list but are skipped by date-dependent calculations.
type ProceduralEvent struct {
	Date     string `json:"date,omitempty" format:"date"`
	Location string `json:"location,omitempty"`
	Status   string `json:"status,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Rapporteur is a legislator assigned to report on a bill in a committee.
type Rapporteur struct {
	Name       string  `json:"name"`
	Party      string  `json:"party,omitempty"`
	State      string  `json:"state,omitempty"`
	Committee  string  `json:"committee,omitempty"`
	AssignedAt string  `json:"assigned_at,omitempty" format:"date"`
	RemovedAt  *string `json:"removed_at,omitempty" format:"date"`
	Current    bool    `json:"current"`
}

// BillRecord is an immutable snapshot of a bill's metadata. It is passed
// by value into every scoring component; only the orchestrator's
// enrichment step fills missing sub-fields before scoring starts.
type BillRecord struct {
	ID          BillID            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Keywords    string            `json:"keywords,omitempty"`
	PresentedAt string            `json:"presented_at,omitempty" format:"date"`
	Author      string            `json:"author,omitempty"`
	Status      BillStatus        `json:"status"`
	Events      []ProceduralEvent `json:"events,omitempty"`
	Rapporteurs []Rapporteur      `json:"rapporteurs,omitempty"`
	FullText    string            `json:"full_text,omitempty"`
}

// Empty reports whether the record carries no data beyond its identifier.
func (r BillRecord) Empty() bool {
	return r.Title == "" && r.Author == "" && r.Status == (BillStatus{}) &&
		len(r.Events) == 0 && len(r.Rapporteurs) == 0
}

// Probability tiers for next-step predictions.
const (
	ProbabilityHigh   = "High"
	ProbabilityMedium = "Medium"
	ProbabilityLow    = "Low"
)

// Urgency / controversy tiers.
const (
	TierHigh   = "High"
	TierMedium = "Medium"
	TierLow    = "Low"
)

// ImpactNeutral marks a factor that was evaluated but moved nothing.
const ImpactNeutral = "Neutral"

// RiskFactor records one evaluated scoring signal. Factors that fired
// carry a signed delta and a "+N points"/"-N points" impact; factors
// that were evaluated without effect are recorded as neutral so the
// assessment stays auditable.
type RiskFactor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Impact      string  `json:"impact"`
	Delta       float64 `json:"delta"`
	Explanation string  `json:"explanation"`
}

// NeutralFactor builds a zero-delta factor entry.
func NeutralFactor(name, description, explanation string) RiskFactor {
	return RiskFactor{Name: name, Description: description, Impact: ImpactNeutral, Explanation: explanation}
}

// ScoredFactor builds a factor entry carrying a signed delta.
func ScoredFactor(name, description string, delta float64, explanation string) RiskFactor {
	return RiskFactor{
		Name:        name,
		Description: description,
		Impact:      fmt.Sprintf("%+g points", delta),
		Delta:       delta,
		Explanation: explanation,
	}
}

// RiskAssessment is the scored approval likelihood with its factor trail.
// Factors keep evaluation order, not magnitude order.
type RiskAssessment struct {
	Score   float64      `json:"score"`
	Level   string       `json:"level"`
	Factors []RiskFactor `json:"factors"`
}

// RiskLevelName maps a 0-100 score to its band label.
func RiskLevelName(score float64) string {
	switch {
	case score < 20:
		return "Very Low"
	case score < 40:
		return "Low"
	case score < 60:
		return "Medium"
	case score < 80:
		return "High"
	default:
		return "Very High"
	}
}

// TimelineEstimate is either a terminal marker (NotApplicable) or a
// day/month range with the factors that shaped it.
type TimelineEstimate struct {
	NotApplicable bool         `json:"not_applicable,omitempty"`
	Days          int          `json:"days,omitempty"`
	MinMonths     int          `json:"min_months,omitempty"`
	MaxMonths     int          `json:"max_months,omitempty"`
	Estimate      string       `json:"estimate"`
	Factors       []RiskFactor `json:"factors,omitempty"`
}

// NextStepPrediction is one forecast procedural milestone.
type NextStepPrediction struct {
	Step        string `json:"step"`
	Probability string `json:"probability" enum:"High,Medium,Low"`
	Observation string `json:"observation"`
	Context     string `json:"context,omitempty"`
}

// ContextualAnalysis carries the rule-based (or model-based) qualitative read.
type ContextualAnalysis struct {
	Urgency          string `json:"urgency" enum:"High,Medium,Low"`
	Controversy      string `json:"controversy" enum:"High,Medium,Low"`
	PoliticalContext string `json:"political_context"`
	SectorImpact     string `json:"sector_impact"`
}

// Author is one attributed participant in a bill's authorship breakdown.
type Author struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Party     string `json:"party,omitempty"`
	State     string `json:"state,omitempty"`
	Committee string `json:"committee,omitempty"`
}

// Forecast is the aggregate result of one computation. It is created
// fresh on every cache miss and never mutated afterwards; the next
// computation supersedes it.
type Forecast struct {
	ComputationID string               `json:"computation_id"`
	BillID        BillID               `json:"bill_id"`
	ComputedAt    string               `json:"computed_at" format:"date-time"`
	Title         string               `json:"title,omitempty"`
	Author        string               `json:"author,omitempty"`
	Status        BillStatus           `json:"status"`
	Risk          RiskAssessment       `json:"risk"`
	Timeline      TimelineEstimate     `json:"timeline"`
	NextSteps     []NextStepPrediction `json:"next_steps"`
	Context       ContextualAnalysis   `json:"context"`
	RecentEvents  []ProceduralEvent    `json:"recent_events,omitempty"`
	Authorship    []Author             `json:"authorship,omitempty"`
	Trend         string               `json:"trend,omitempty"`
	Degraded      bool                 `json:"degraded,omitempty"`
	NotFound      bool                 `json:"not_found,omitempty"`
}

// RiskDistribution buckets forecasts by score: High >=60, Medium [40,60), Low <40.
type RiskDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// HighRiskBill is a sector-overview entry for a bill scored >= 60.
type HighRiskBill struct {
	BillID BillID  `json:"bill_id"`
	Title  string  `json:"title,omitempty"`
	Score  float64 `json:"score"`
	Status string  `json:"status,omitempty"`
}

// CriticalEvent is an upcoming vote or formal report on a high-risk bill.
type CriticalEvent struct {
	BillID      BillID  `json:"bill_id"`
	Title       string  `json:"title,omitempty"`
	Event       string  `json:"event"`
	Probability string  `json:"probability"`
	Observation string  `json:"observation,omitempty"`
	Context     string  `json:"context,omitempty"`
	Score       float64 `json:"score"`
}

// SectorOverview aggregates forecasts over a set of bills.
type SectorOverview struct {
	ComputedAt     string           `json:"computed_at" format:"date-time"`
	BillCount      int              `json:"bill_count"`
	AverageScore   float64          `json:"average_score"`
	AverageLevel   string           `json:"average_level"`
	Distribution   RiskDistribution `json:"distribution"`
	TopHighRisk    []HighRiskBill   `json:"top_high_risk,omitempty"`
	CriticalEvents []CriticalEvent  `json:"critical_events,omitempty"`
}
