package timeline

import (
	"fmt"
	"strings"

	"billcast/internal/domain"
	"billcast/internal/stage"
)

// stepName maps a stage to the milestone name used in predictions.
func stepName(s stage.Stage) string {
	switch s.Name {
	case stage.Initial.Name:
		return "Filing and distribution"
	case stage.Committees.Name:
		return "Committee review"
	case stage.Justice.Name:
		return "Constitutional review (CCJ)"
	case stage.Rapporteur.Name:
		return "Rapporteur report"
	case stage.Plenary.Name:
		return "Floor vote"
	case stage.Revision.Name:
		return "Review by the other chamber"
	case stage.Sanction.Name:
		return "Presidential sanction or veto"
	}
	return s.Name
}

func observationFor(s stage.Stage, rec domain.BillRecord, status domain.BillStatus) string {
	switch s.Name {
	case stage.Initial.Name:
		return "Formal reception, numbering and distribution to the competent committees"
	case stage.Committees.Name:
		if loc := strings.TrimSpace(status.Location); loc != "" && strings.Contains(strings.ToUpper(loc), "COMISSÃO") {
			return fmt.Sprintf("Continuation of analysis at %s", loc)
		}
		return "Substantive analysis by the assigned committees"
	case stage.Justice.Name:
		return "Constitutionality and legal-form review by the Justice Committee"
	case stage.Rapporteur.Name:
		if len(rec.Rapporteurs) > 0 {
			return "Report preparation by the already assigned rapporteur"
		}
		return "Rapporteur assignment pending; report follows the designation"
	case stage.Plenary.Name:
		return "Inclusion in the order of the day, floor discussion and vote"
	case stage.Revision.Name:
		return "Remittance to the revising chamber for a second round of review"
	case stage.Sanction.Name:
		return "Submission to the President for sanction or veto"
	}
	return "Next procedural movement"
}

func pathContext(pathName string) string {
	switch pathName {
	case stage.PathUrgent:
		return "Urgent processing path; stages may be compressed or skipped"
	case stage.PathSimplified:
		return "Simplified path with a reduced committee circuit"
	default:
		return "Normal full-pipeline processing"
	}
}

// Forecaster predicts the next procedural milestones.
type Forecaster struct{}

// Predict returns the upcoming milestones with probability tiers. A
// terminated bill yields exactly one entry.
func (Forecaster) Predict(rec domain.BillRecord, status domain.BillStatus, events []domain.ProceduralEvent) []domain.NextStepPrediction {
	if Terminated(status, events) {
		return []domain.NextStepPrediction{{
			Step:        "Procedure concluded",
			Probability: domain.ProbabilityHigh,
			Observation: "The bill reached a terminal state; no further procedural movement is expected",
		}}
	}

	current := stage.Identify(rec)
	pathName := SelectPath(UrgencyIndicators(rec))
	upcoming := stage.After(current, pathName, 2)

	if len(upcoming) == 0 {
		return []domain.NextStepPrediction{{
			Step:        stepName(current),
			Probability: domain.ProbabilityHigh,
			Observation: "The bill is at the final stage of its path; conclusion of the current step closes the procedure",
			Context:     pathContext(pathName),
		}}
	}

	tiers := []string{domain.ProbabilityHigh, domain.ProbabilityMedium}
	preds := make([]domain.NextStepPrediction, 0, len(upcoming))
	for i, s := range upcoming {
		p := domain.NextStepPrediction{
			Step:        stepName(s),
			Probability: tiers[i],
			Observation: observationFor(s, rec, status),
		}
		if i == 0 {
			p.Context = pathContext(pathName)
		}
		preds = append(preds, p)
	}
	return preds
}
